package core

import (
	"context"

	"github.com/dkeye/CoNote/internal/domain"
)

// Track is a single audio or video component of a capture handle.
type Track interface {
	ID() string
	Kind() domain.MediaKind
	// Enabled reports whether the track is sending. Disabling a track mutes it
	// without releasing the device.
	Enabled() bool
	SetEnabled(bool)
	// Stop releases the underlying device. Safe to call more than once.
	Stop()
	Ended() bool
}

// Stream is anything that can be bound to a playback surface.
type Stream interface {
	ID() string
	Tracks() []Track
}

// CaptureHandle is an acquired local device session. Stopping every track
// releases it.
type CaptureHandle interface {
	Stream
}

// CaptureDevice acquires local capture handles. Acquire may block; it honors
// ctx cancellation and reports domain.ErrPermissionDenied or
// domain.ErrDeviceNotFound when a capability cannot be granted.
type CaptureDevice interface {
	Acquire(ctx context.Context, c domain.Constraints) (CaptureHandle, error)
}

// PlaybackSurface renders at most one stream at a time.
type PlaybackSurface interface {
	Name() string
	// Attach replaces the bound stream. A nil stream detaches.
	Attach(s Stream) error
	Bound() Stream
	Muted() bool
}

// LiveTracks returns the tracks of s with the given kind that have not ended.
func LiveTracks(s Stream, kind domain.MediaKind) []Track {
	if s == nil {
		return nil
	}
	var out []Track
	for _, t := range s.Tracks() {
		if t.Kind() == kind && !t.Ended() {
			out = append(out, t)
		}
	}
	return out
}

// StopAll stops every track of s.
func StopAll(s Stream) {
	if s == nil {
		return
	}
	for _, t := range s.Tracks() {
		t.Stop()
	}
}
