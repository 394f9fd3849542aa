package signal

import (
	"errors"

	"github.com/dkeye/CoNote/internal/domain"
)

var (
	ErrBackpressure = errors.New("backpressure")
	ErrConnClosed   = errors.New("connection closed")
	ErrRateLimited  = errors.New("rate limited")
	ErrBadPayload   = errors.New("bad payload")
)

// Error codes sent to clients.
const (
	CodeValidation  = "validation"
	CodeCapture     = "capture"
	CodeNotMounted  = "not_mounted"
	CodeNotJoined   = "not_joined"
	CodeJoined      = "already_joined"
	CodeStale       = "stale"
	CodeClosed      = "closed"
	CodeRateLimited = "rate_limited"
	CodeBadPayload  = "bad_payload"
	CodeInternal    = "internal"
)

// ErrorCode classifies err for the wire.
func ErrorCode(err error) string {
	var verr *domain.ValidationError
	var cerr *domain.CaptureError
	switch {
	case errors.As(err, &verr):
		return CodeValidation
	case errors.Is(err, domain.ErrStaleAcquisition):
		return CodeStale
	case errors.As(err, &cerr):
		return CodeCapture
	case errors.Is(err, domain.ErrNotMounted):
		return CodeNotMounted
	case errors.Is(err, domain.ErrNotJoined):
		return CodeNotJoined
	case errors.Is(err, domain.ErrAlreadyJoined):
		return CodeJoined
	case errors.Is(err, domain.ErrSessionClosed):
		return CodeClosed
	case errors.Is(err, ErrRateLimited):
		return CodeRateLimited
	case errors.Is(err, ErrBadPayload):
		return CodeBadPayload
	default:
		return CodeInternal
	}
}
