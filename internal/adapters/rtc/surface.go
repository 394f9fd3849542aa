package rtc

import (
	"sync"

	"github.com/dkeye/CoNote/internal/core"
	"github.com/dkeye/CoNote/internal/domain"
)

// Surface is a playback sink holding at most one stream.
type Surface struct {
	name  string
	muted bool

	mu     sync.RWMutex
	bound  core.Stream
	closed bool
}

func NewSurface(name string, muted bool) *Surface {
	return &Surface{name: name, muted: muted}
}

// NewRemoteSurface is the surface factory for remote participants. Remote
// playback is never muted.
func NewRemoteSurface(id domain.ParticipantID) core.PlaybackSurface {
	return NewSurface("remote-"+string(id), false)
}

func (s *Surface) Name() string { return s.name }
func (s *Surface) Muted() bool  { return s.muted }

func (s *Surface) Bound() core.Stream {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.bound
}

// Attach binds st, replacing any previous stream. A nil st detaches. A stream
// without a live track cannot be bound.
func (s *Surface) Attach(st core.Stream) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return domain.ErrSurfaceClosed
	}
	if st == nil {
		s.bound = nil
		return nil
	}
	if len(core.LiveTracks(st, domain.KindAudio))+len(core.LiveTracks(st, domain.KindVideo)) == 0 {
		return domain.ErrNothingToAttach
	}
	s.bound = st
	return nil
}

func (s *Surface) Close() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.closed = true
	s.bound = nil
}
