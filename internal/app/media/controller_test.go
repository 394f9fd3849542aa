package media

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/dkeye/CoNote/internal/core"
	"github.com/dkeye/CoNote/internal/domain"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestEnableDisableAudio(t *testing.T) {
	dev := newFakeDevice()
	c := NewController(dev)

	st, err := c.EnableAudio(context.Background())
	require.NoError(t, err)
	assert.True(t, st.AudioEnabled)
	assert.True(t, st.Presence().InAudio)
	require.NotNil(t, c.Handle())
	assert.Equal(t, []domain.Constraints{{Audio: true}}, dev.requested())

	audio := dev.last().track(domain.KindAudio)
	st = c.DisableAudio()
	assert.False(t, st.AudioEnabled)
	assert.False(t, st.Presence().InAudio)
	assert.Nil(t, c.Handle(), "handle is released when video is off")
	assert.Empty(t, st.HandleID)
	assert.Equal(t, 1, audio.stopCount())
}

func TestEnableAudioTwiceIsNoop(t *testing.T) {
	dev := newFakeDevice()
	c := NewController(dev)

	_, err := c.EnableAudio(context.Background())
	require.NoError(t, err)
	_, err = c.EnableAudio(context.Background())
	require.NoError(t, err)
	assert.Len(t, dev.requested(), 1)
}

func TestDisableAudioKeepsVideoHandle(t *testing.T) {
	dev := newFakeDevice()
	c := NewController(dev)

	_, err := c.EnableVideo(context.Background())
	require.NoError(t, err)
	_, err = c.EnableAudio(context.Background())
	require.NoError(t, err)

	h := dev.last()
	st := c.DisableAudio()
	assert.False(t, st.AudioEnabled)
	assert.True(t, st.VideoEnabled)
	assert.Same(t, h, c.Handle())
	assert.True(t, h.track(domain.KindAudio).Ended())
	assert.False(t, h.track(domain.KindVideo).Ended())
}

func TestEnableVideoKeepsAudioUntilReplaced(t *testing.T) {
	dev := newFakeDevice()
	c := NewController(dev)

	_, err := c.EnableAudio(context.Background())
	require.NoError(t, err)
	oldAudio := dev.last().track(domain.KindAudio)

	var stoppedDuringAcquire bool
	dev.onAcquire = func() { stoppedDuringAcquire = oldAudio.Ended() }

	st, err := c.EnableVideo(context.Background())
	require.NoError(t, err)

	assert.False(t, stoppedDuringAcquire, "old audio track stopped before the new handle existed")
	assert.Equal(t, domain.Constraints{Audio: true, Video: true}, dev.requested()[1])
	assert.True(t, oldAudio.Ended())
	assert.True(t, st.AudioEnabled)
	assert.True(t, st.VideoEnabled)

	h := dev.last()
	assert.Same(t, h, c.Handle())
	assert.Len(t, core.LiveTracks(h, domain.KindAudio), 1)
	assert.Len(t, core.LiveTracks(h, domain.KindVideo), 1)
}

func TestCaptureErrorLeavesStateUnchanged(t *testing.T) {
	dev := newFakeDevice()
	c := NewController(dev)

	_, err := c.EnableAudio(context.Background())
	require.NoError(t, err)
	before := c.State()
	h := c.Handle()

	dev.errs[domain.KindVideo] = domain.ErrPermissionDenied
	st, err := c.EnableVideo(context.Background())
	require.Error(t, err)
	assert.True(t, errors.Is(err, domain.ErrPermissionDenied))
	assert.True(t, IsCaptureError(err))

	var ce *domain.CaptureError
	require.True(t, errors.As(err, &ce))
	assert.Equal(t, domain.KindVideo, ce.Kind)

	assert.Equal(t, before, st)
	assert.Same(t, h, c.Handle())
	assert.Empty(t, core.LiveTracks(h, domain.KindVideo))
	assert.Len(t, core.LiveTracks(h, domain.KindAudio), 1)
}

func TestCaptureErrorWithoutHandle(t *testing.T) {
	dev := newFakeDevice()
	dev.errs[domain.KindAudio] = domain.ErrDeviceNotFound
	c := NewController(dev)

	st, err := c.EnableAudio(context.Background())
	assert.ErrorIs(t, err, domain.ErrDeviceNotFound)
	assert.Equal(t, State{}, st)
	assert.Nil(t, c.Handle())
}

func TestToggleMuteTwiceRestoresTrack(t *testing.T) {
	dev := newFakeDevice()
	c := NewController(dev)
	_, err := c.EnableAudio(context.Background())
	require.NoError(t, err)
	audio := dev.last().track(domain.KindAudio)

	st := c.ToggleMute()
	assert.True(t, st.Muted)
	assert.False(t, audio.Enabled())
	assert.False(t, st.AudioLive())

	st = c.ToggleMute()
	assert.False(t, st.Muted)
	assert.True(t, audio.Enabled())
	assert.True(t, st.AudioLive())
}

func TestToggleMuteWithoutAudioIsNoop(t *testing.T) {
	dev := newFakeDevice()
	c := NewController(dev)

	assert.Equal(t, State{}, c.ToggleMute())

	_, err := c.EnableVideo(context.Background())
	require.NoError(t, err)
	st := c.ToggleMute()
	assert.False(t, st.Muted)
	assert.True(t, dev.last().track(domain.KindVideo).Enabled())
}

func TestDisableAudioClearsMute(t *testing.T) {
	c := NewController(newFakeDevice())
	_, err := c.EnableAudio(context.Background())
	require.NoError(t, err)
	c.ToggleMute()

	st := c.DisableAudio()
	assert.False(t, st.Muted)
}

func TestMuteSurvivesHandleReplacement(t *testing.T) {
	dev := newFakeDevice()
	c := NewController(dev)
	_, err := c.EnableAudio(context.Background())
	require.NoError(t, err)
	c.ToggleMute()

	st, err := c.EnableVideo(context.Background())
	require.NoError(t, err)
	assert.True(t, st.Muted)
	assert.False(t, dev.last().track(domain.KindAudio).Enabled())

	st = c.ToggleMute()
	assert.False(t, st.Muted)
	assert.True(t, dev.last().track(domain.KindAudio).Enabled())
}

func TestToggleDeafenTouchesNoTrack(t *testing.T) {
	dev := newFakeDevice()
	c := NewController(dev)
	_, err := c.EnableAudio(context.Background())
	require.NoError(t, err)

	st := c.ToggleDeafen()
	assert.True(t, st.Deafened)
	assert.True(t, dev.last().track(domain.KindAudio).Enabled())

	st = c.ToggleDeafen()
	assert.False(t, st.Deafened)
}

func TestEnterCallRequiresVideo(t *testing.T) {
	c := NewController(newFakeDevice())

	st, ok := c.EnterCall()
	assert.False(t, ok)
	assert.False(t, st.InCall)

	_, err := c.EnableVideo(context.Background())
	require.NoError(t, err)
	st, ok = c.EnterCall()
	assert.True(t, ok)
	assert.True(t, st.InCall)

	st = c.LeaveCall()
	assert.False(t, st.InCall)

	c.EnterCall()
	st = c.DisableVideo()
	assert.False(t, st.InCall, "disabling video ends the call")
}

func TestToggleAudioAndVideo(t *testing.T) {
	c := NewController(newFakeDevice())
	ctx := context.Background()

	st, err := c.ToggleAudio(ctx)
	require.NoError(t, err)
	assert.True(t, st.AudioEnabled)
	st, err = c.ToggleVideo(ctx)
	require.NoError(t, err)
	assert.True(t, st.VideoEnabled)
	st, err = c.ToggleAudio(ctx)
	require.NoError(t, err)
	assert.False(t, st.AudioEnabled)
	st, err = c.ToggleVideo(ctx)
	require.NoError(t, err)
	assert.False(t, st.VideoEnabled)
	assert.Nil(t, c.Handle())
}

func TestStaleAcquisitionIsDiscarded(t *testing.T) {
	dev := newFakeDevice()
	dev.gate = make(chan struct{})
	c := NewController(dev)

	type result struct {
		st  State
		err error
	}
	done := make(chan result, 1)
	go func() {
		st, err := c.EnableAudio(context.Background())
		done <- result{st, err}
	}()
	require.Eventually(t, func() bool { return len(dev.requested()) == 1 }, time.Second, time.Millisecond)

	// user toggles audio off before the device answers
	c.DisableAudio()
	close(dev.gate)

	res := <-done
	assert.ErrorIs(t, res.err, domain.ErrStaleAcquisition)
	assert.False(t, res.st.AudioEnabled)
	assert.Nil(t, c.Handle())

	h := dev.last()
	require.NotNil(t, h)
	assert.True(t, h.track(domain.KindAudio).Ended(), "discarded handle must be stopped")
}

func TestConcurrentKindsMergeIntoOneHandle(t *testing.T) {
	dev := newFakeDevice()
	dev.gate = make(chan struct{})
	c := NewController(dev)

	errs := make(chan error, 2)
	go func() {
		_, err := c.EnableAudio(context.Background())
		errs <- err
	}()
	go func() {
		_, err := c.EnableVideo(context.Background())
		errs <- err
	}()
	require.Eventually(t, func() bool { return len(dev.requested()) == 2 }, time.Second, time.Millisecond)
	close(dev.gate)
	require.NoError(t, <-errs)
	require.NoError(t, <-errs)

	st := c.State()
	assert.True(t, st.AudioEnabled)
	assert.True(t, st.VideoEnabled)
	h := c.Handle()
	require.NotNil(t, h)
	assert.Len(t, core.LiveTracks(h, domain.KindAudio), 1)
	assert.Len(t, core.LiveTracks(h, domain.KindVideo), 1)
}

func TestCancelledAcquisition(t *testing.T) {
	dev := newFakeDevice()
	dev.gate = make(chan struct{})
	c := NewController(dev)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	_, err := c.EnableVideo(ctx)
	assert.ErrorIs(t, err, context.Canceled)
	assert.Equal(t, State{}, c.State())
}

func TestCloseStopsTracksOnce(t *testing.T) {
	dev := newFakeDevice()
	c := NewController(dev)
	_, err := c.EnableAudio(context.Background())
	require.NoError(t, err)
	_, err = c.EnableVideo(context.Background())
	require.NoError(t, err)
	h := dev.last()

	require.NoError(t, c.Close())
	require.NoError(t, c.Close())

	assert.Equal(t, 1, h.track(domain.KindAudio).stopCount())
	assert.Equal(t, 1, h.track(domain.KindVideo).stopCount())
	assert.Nil(t, c.Handle())

	_, err = c.EnableAudio(context.Background())
	assert.ErrorIs(t, err, domain.ErrSessionClosed)
}

func TestReleaseKeepsControllerUsable(t *testing.T) {
	dev := newFakeDevice()
	c := NewController(dev)
	_, err := c.EnableAudio(context.Background())
	require.NoError(t, err)
	c.ToggleDeafen()

	st := c.Release()
	assert.Equal(t, State{}, st)
	assert.True(t, dev.last().track(domain.KindAudio).Ended())

	_, err = c.EnableAudio(context.Background())
	assert.NoError(t, err)
}
