package domain

import (
	"errors"
	"fmt"
)

// Session errors.
var (
	ErrNameEmpty     = errors.New("name empty")
	ErrNotMounted    = errors.New("session not mounted")
	ErrNotJoined     = errors.New("session not joined")
	ErrAlreadyJoined = errors.New("session already joined")
	ErrSessionClosed = errors.New("session closed")
)

// Capture errors.
var (
	ErrPermissionDenied = errors.New("permission denied")
	ErrDeviceNotFound   = errors.New("device not found")
	ErrNothingRequested = errors.New("no capability requested")
	// ErrStaleAcquisition is returned when a newer request for the same kind
	// superseded this one before it resolved.
	ErrStaleAcquisition = errors.New("stale acquisition")
)

// Playback errors.
var (
	ErrNothingToAttach = errors.New("stream has no live tracks")
	ErrSurfaceClosed   = errors.New("surface closed")
)

// ValidationError reports user input that was rejected before any transition.
type ValidationError struct {
	Field string
	Err   error
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("invalid %s: %v", e.Field, e.Err)
}

func (e *ValidationError) Unwrap() error { return e.Err }

// CaptureError reports a failed device acquisition. Prior state is kept.
type CaptureError struct {
	Kind MediaKind
	Err  error
}

func (e *CaptureError) Error() string {
	return fmt.Sprintf("capture %s: %v", e.Kind, e.Err)
}

func (e *CaptureError) Unwrap() error { return e.Err }

// AttachmentError reports a stream that could not be bound to a surface.
type AttachmentError struct {
	Surface  string
	StreamID string
	Err      error
}

func (e *AttachmentError) Error() string {
	return fmt.Sprintf("attach stream %s to %s: %v", e.StreamID, e.Surface, e.Err)
}

func (e *AttachmentError) Unwrap() error { return e.Err }
