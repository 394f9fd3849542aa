// Package media owns the local capture lifecycle of a session: acquiring and
// releasing microphone and camera handles, track-level mute, the cosmetic
// deafen flag and call overlay gating.
package media

import (
	"context"
	"errors"
	"sync"

	"github.com/dkeye/CoNote/internal/core"
	"github.com/dkeye/CoNote/internal/domain"
	"github.com/rs/zerolog/log"
)

// State is the derived view of local media.
type State struct {
	AudioEnabled bool   `json:"audio_enabled"`
	VideoEnabled bool   `json:"video_enabled"`
	Muted        bool   `json:"muted"`
	Deafened     bool   `json:"deafened"`
	InCall       bool   `json:"in_call"`
	HandleID     string `json:"handle_id,omitempty"`
}

// Presence maps the media flags onto the local participant.
func (s State) Presence() domain.Presence {
	return domain.Presence{Online: true, InAudio: s.AudioEnabled, InVideo: s.VideoEnabled}
}

// AudioLive reports whether the in-call audio indicator is lit.
func (s State) AudioLive() bool { return s.AudioEnabled && !s.Muted }

// Controller holds at most one capture handle. A handle exists iff audio or
// video is enabled.
//
// Acquisitions run without holding the lock. Every enable or disable of a kind
// bumps that kind's generation, and a completion carrying an older generation
// is discarded.
type Controller struct {
	device core.CaptureDevice

	mu     sync.Mutex
	handle core.CaptureHandle
	st     State
	gen    map[domain.MediaKind]uint64
	closed bool
}

func NewController(device core.CaptureDevice) *Controller {
	return &Controller{
		device: device,
		gen:    make(map[domain.MediaKind]uint64),
	}
}

func (c *Controller) State() State {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.st
}

// Handle returns the current capture handle, nil when nothing is captured.
func (c *Controller) Handle() core.CaptureHandle {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.handle
}

func (c *Controller) EnableAudio(ctx context.Context) (State, error) {
	return c.enable(ctx, domain.KindAudio)
}

func (c *Controller) DisableAudio() State { return c.disable(domain.KindAudio) }

func (c *Controller) EnableVideo(ctx context.Context) (State, error) {
	return c.enable(ctx, domain.KindVideo)
}

func (c *Controller) DisableVideo() State { return c.disable(domain.KindVideo) }

// ToggleAudio enables audio when it is off and disables it otherwise.
func (c *Controller) ToggleAudio(ctx context.Context) (State, error) {
	if c.State().AudioEnabled {
		return c.DisableAudio(), nil
	}
	return c.EnableAudio(ctx)
}

// ToggleVideo enables video when it is off and disables it otherwise.
func (c *Controller) ToggleVideo(ctx context.Context) (State, error) {
	if c.State().VideoEnabled {
		return c.DisableVideo(), nil
	}
	return c.EnableVideo(ctx)
}

func (c *Controller) enable(ctx context.Context, kind domain.MediaKind) (State, error) {
	c.mu.Lock()
	if c.closed {
		st := c.st
		c.mu.Unlock()
		return st, domain.ErrSessionClosed
	}
	if c.enabledLocked(kind) {
		st := c.st
		c.mu.Unlock()
		return st, nil
	}
	c.gen[kind]++
	token := c.gen[kind]
	// Ask for both kinds when the other is live so they share one handle.
	want := domain.Constraints{
		Audio: kind == domain.KindAudio || c.st.AudioEnabled,
		Video: kind == domain.KindVideo || c.st.VideoEnabled,
	}
	c.mu.Unlock()

	logger := log.With().Str("module", "app.media").Str("kind", kind.String()).Uint64("gen", token).Logger()
	logger.Debug().Bool("audio", want.Audio).Bool("video", want.Video).Msg("acquiring capture handle")

	h, err := c.device.Acquire(ctx, want)

	c.mu.Lock()
	defer c.mu.Unlock()
	if err != nil {
		logger.Warn().Err(err).Msg("capture failed")
		return c.st, &domain.CaptureError{Kind: kind, Err: err}
	}
	if c.closed || c.gen[kind] != token {
		logger.Info().Str("handle", h.ID()).Msg("discarding stale acquisition")
		core.StopAll(h)
		return c.st, domain.ErrStaleAcquisition
	}

	c.installLocked(h, kind)
	c.setEnabledLocked(kind, true)
	logger.Info().Str("handle", c.handle.ID()).Msg("capture enabled")
	return c.st, nil
}

// installLocked swaps in h. The previous handle is stopped only now that its
// replacement exists. Live tracks of an enabled kind that h lacks (because
// that kind was enabled while h was in flight) are carried over.
func (c *Controller) installLocked(h core.CaptureHandle, kind domain.MediaKind) {
	old := c.handle
	tracks := append([]core.Track(nil), h.Tracks()...)
	carried := make(map[core.Track]bool)

	for _, other := range []domain.MediaKind{domain.KindAudio, domain.KindVideo} {
		if other == kind {
			continue
		}
		if !c.enabledLocked(other) {
			// disabled while h was in flight
			for _, t := range core.LiveTracks(h, other) {
				t.Stop()
			}
			continue
		}
		if len(core.LiveTracks(h, other)) > 0 {
			continue
		}
		for _, t := range core.LiveTracks(old, other) {
			tracks = append(tracks, t)
			carried[t] = true
		}
	}

	if old != nil {
		for _, t := range old.Tracks() {
			if !carried[t] {
				t.Stop()
			}
		}
	}

	if len(carried) > 0 {
		c.handle = &mergedHandle{id: h.ID(), tracks: tracks}
	} else {
		c.handle = h
	}
	c.st.HandleID = c.handle.ID()

	// keep Muted mirroring the live audio track
	if c.st.Muted {
		if at := core.LiveTracks(c.handle, domain.KindAudio); len(at) > 0 {
			at[0].SetEnabled(false)
		}
	}
}

func (c *Controller) disable(kind domain.MediaKind) State {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.gen[kind]++

	if c.handle != nil {
		for _, t := range core.LiveTracks(c.handle, kind) {
			t.Stop()
		}
		if !c.enabledLocked(other(kind)) {
			core.StopAll(c.handle)
			c.handle = nil
			c.st.HandleID = ""
		}
	}
	c.setEnabledLocked(kind, false)
	log.Info().Str("module", "app.media").Str("kind", kind.String()).Bool("released", c.handle == nil).Msg("capture disabled")
	return c.st
}

// ToggleMute flips the first live audio track. Without one it does nothing.
func (c *Controller) ToggleMute() State {
	c.mu.Lock()
	defer c.mu.Unlock()
	tracks := core.LiveTracks(c.handle, domain.KindAudio)
	if len(tracks) == 0 {
		return c.st
	}
	t := tracks[0]
	t.SetEnabled(!t.Enabled())
	c.st.Muted = !t.Enabled()
	log.Debug().Str("module", "app.media").Str("track", t.ID()).Bool("muted", c.st.Muted).Msg("mute toggled")
	return c.st
}

// ToggleDeafen flips the deafen flag. There is no inbound audio to silence,
// so no track is touched.
func (c *Controller) ToggleDeafen() State {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.st.Deafened = !c.st.Deafened
	return c.st
}

// EnterCall shows the call overlay. It requires video and reports whether the
// call was entered.
func (c *Controller) EnterCall() (State, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if !c.st.VideoEnabled {
		return c.st, false
	}
	c.st.InCall = true
	return c.st, true
}

func (c *Controller) LeaveCall() State {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.st.InCall = false
	return c.st
}

// Release stops every track and resets all flags. In-flight acquisitions are
// invalidated. The controller stays usable.
func (c *Controller) Release() State {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.releaseLocked()
	return c.st
}

// Close ends the session. Tracks are stopped once; later calls do nothing.
func (c *Controller) Close() error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.closed {
		return nil
	}
	c.closed = true
	c.releaseLocked()
	log.Info().Str("module", "app.media").Msg("controller closed")
	return nil
}

func (c *Controller) releaseLocked() {
	c.gen[domain.KindAudio]++
	c.gen[domain.KindVideo]++
	if c.handle != nil {
		core.StopAll(c.handle)
		c.handle = nil
	}
	c.st = State{}
}

func (c *Controller) enabledLocked(kind domain.MediaKind) bool {
	if kind == domain.KindAudio {
		return c.st.AudioEnabled
	}
	return c.st.VideoEnabled
}

func (c *Controller) setEnabledLocked(kind domain.MediaKind, on bool) {
	switch kind {
	case domain.KindAudio:
		c.st.AudioEnabled = on
		if !on {
			c.st.Muted = false
		}
	case domain.KindVideo:
		c.st.VideoEnabled = on
		if !on {
			c.st.InCall = false
		}
	}
}

func other(kind domain.MediaKind) domain.MediaKind {
	if kind == domain.KindAudio {
		return domain.KindVideo
	}
	return domain.KindAudio
}

// IsCaptureError reports whether err came from the capture device.
func IsCaptureError(err error) bool {
	var ce *domain.CaptureError
	return errors.As(err, &ce)
}

type mergedHandle struct {
	id     string
	tracks []core.Track
}

func (m *mergedHandle) ID() string           { return m.id }
func (m *mergedHandle) Tracks() []core.Track { return m.tracks }
