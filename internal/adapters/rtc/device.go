package rtc

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/dkeye/CoNote/internal/core"
	"github.com/dkeye/CoNote/internal/domain"
	"github.com/google/uuid"
	"github.com/pion/webrtc/v4/pkg/media"
	"github.com/rs/zerolog/log"
)

// Availability describes how a capture device answers a request.
type Availability string

const (
	Available Availability = "available"
	Denied    Availability = "denied"
	Missing   Availability = "missing"
)

type DeviceOptions struct {
	Audio Availability
	Video Availability
	// AcquireDelay simulates the time the user takes to answer the
	// permission prompt.
	AcquireDelay time.Duration
	// FrameInterval is how often a granted handle produces a sample. Zero
	// disables sample generation.
	FrameInterval time.Duration
}

// opus silence
var silenceFrame = []byte{0xf8, 0xff, 0xfe}

var blankFrame = []byte{0x10, 0x02, 0x00, 0x9d, 0x01, 0x2a}

// LocalDevice grants capture handles backed by pion sample tracks.
type LocalDevice struct {
	mu    sync.RWMutex
	avail map[domain.MediaKind]Availability
	delay time.Duration
	frame time.Duration
}

func NewLocalDevice(opts DeviceOptions) *LocalDevice {
	d := &LocalDevice{
		avail: make(map[domain.MediaKind]Availability),
		delay: opts.AcquireDelay,
		frame: opts.FrameInterval,
	}
	d.SetAvailability(domain.KindAudio, opts.Audio)
	d.SetAvailability(domain.KindVideo, opts.Video)
	return d
}

// SetAvailability changes how later requests for kind are answered. An empty
// value means Available.
func (d *LocalDevice) SetAvailability(kind domain.MediaKind, a Availability) {
	if a == "" {
		a = Available
	}
	d.mu.Lock()
	defer d.mu.Unlock()
	d.avail[kind] = a
}

func (d *LocalDevice) Availability(kind domain.MediaKind) Availability {
	d.mu.RLock()
	defer d.mu.RUnlock()
	return d.avail[kind]
}

func (d *LocalDevice) Acquire(ctx context.Context, c domain.Constraints) (core.CaptureHandle, error) {
	if c.Empty() {
		return nil, domain.ErrNothingRequested
	}

	if d.delay > 0 {
		t := time.NewTimer(d.delay)
		defer t.Stop()
		select {
		case <-t.C:
		case <-ctx.Done():
			return nil, ctx.Err()
		}
	} else if err := ctx.Err(); err != nil {
		return nil, err
	}

	for _, kind := range c.Kinds() {
		switch d.Availability(kind) {
		case Denied:
			return nil, fmt.Errorf("%s: %w", kind, domain.ErrPermissionDenied)
		case Missing:
			return nil, fmt.Errorf("%s: %w", kind, domain.ErrDeviceNotFound)
		}
	}

	h := &Handle{id: uuid.NewString()}
	for _, kind := range c.Kinds() {
		t, err := NewLocalTrack(kind, uuid.NewString(), h.id)
		if err != nil {
			core.StopAll(h)
			return nil, fmt.Errorf("create %s track: %w", kind, err)
		}
		h.tracks = append(h.tracks, t)
	}

	log.Debug().
		Str("module", "rtc.device").
		Str("handle", h.id).
		Bool("audio", c.Audio).
		Bool("video", c.Video).
		Msg("capture granted")

	if d.frame > 0 {
		go feed(h, d.frame)
	}
	return h, nil
}

// feed writes a sample to every track of h on each tick until all of them
// have ended.
func feed(h *Handle, every time.Duration) {
	ticker := time.NewTicker(every)
	defer ticker.Stop()
	for range ticker.C {
		if h.ended() {
			log.Debug().Str("module", "rtc.device").Str("handle", h.id).Msg("capture released")
			return
		}
		for _, t := range h.tracks {
			data := silenceFrame
			if t.Kind() == domain.KindVideo {
				data = blankFrame
			}
			if err := t.WriteSample(media.Sample{Data: data, Duration: every}); err != nil && !errors.Is(err, ErrTrackEnded) {
				log.Warn().Err(err).Str("module", "rtc.device").Str("track", t.ID()).Msg("write sample")
			}
		}
	}
}
