package rtc

import (
	"errors"
	"sync/atomic"

	"github.com/dkeye/CoNote/internal/domain"
	"github.com/pion/webrtc/v4"
	"github.com/pion/webrtc/v4/pkg/media"
)

var ErrTrackEnded = errors.New("track ended")

type TrackState int32

const (
	TrackStateLive TrackState = iota
	TrackStateMuted
	TrackStateEnded
)

// LocalTrack is one captured audio or video track. Samples are written to the
// underlying pion track only while it is live.
type LocalTrack struct {
	local *webrtc.TrackLocalStaticSample
	kind  domain.MediaKind
	state atomic.Int32 // Zero by default (TrackStateLive)

	written atomic.Uint64
	dropped atomic.Uint64
}

func codecFor(kind domain.MediaKind) webrtc.RTPCodecCapability {
	if kind == domain.KindVideo {
		return webrtc.RTPCodecCapability{MimeType: webrtc.MimeTypeVP8, ClockRate: 90000}
	}
	return webrtc.RTPCodecCapability{MimeType: webrtc.MimeTypeOpus, ClockRate: 48000, Channels: 2}
}

func NewLocalTrack(kind domain.MediaKind, id, streamID string) (*LocalTrack, error) {
	local, err := webrtc.NewTrackLocalStaticSample(codecFor(kind), id, streamID)
	if err != nil {
		return nil, err
	}
	return &LocalTrack{local: local, kind: kind}, nil
}

func (t *LocalTrack) ID() string                            { return t.local.ID() }
func (t *LocalTrack) Kind() domain.MediaKind                { return t.kind }
func (t *LocalTrack) Local() *webrtc.TrackLocalStaticSample { return t.local }

func (t *LocalTrack) GetState() TrackState {
	return TrackState(t.state.Load())
}

func (t *LocalTrack) Enabled() bool { return t.GetState() == TrackStateLive }

// SetEnabled mutes or unmutes the track. An ended track stays ended.
func (t *LocalTrack) SetEnabled(on bool) {
	from, to := TrackStateLive, TrackStateMuted
	if on {
		from, to = TrackStateMuted, TrackStateLive
	}
	t.state.CompareAndSwap(int32(from), int32(to))
}

func (t *LocalTrack) Stop() {
	t.state.Store(int32(TrackStateEnded))
}

func (t *LocalTrack) Ended() bool { return t.GetState() == TrackStateEnded }

// WriteSample forwards s while the track is live and drops it while muted.
func (t *LocalTrack) WriteSample(s media.Sample) error {
	switch t.GetState() {
	case TrackStateEnded:
		return ErrTrackEnded
	case TrackStateMuted:
		t.dropped.Add(1)
		return nil
	}
	if err := t.local.WriteSample(s); err != nil {
		return err
	}
	t.written.Add(1)
	return nil
}

// Stats returns the number of forwarded and dropped samples.
func (t *LocalTrack) Stats() (written, dropped uint64) {
	return t.written.Load(), t.dropped.Load()
}
