package overlay

import (
	"sync"

	"github.com/dkeye/CoNote/internal/core"
	"github.com/dkeye/CoNote/internal/domain"
	"github.com/rs/zerolog/log"
)

// SurfaceFactory creates the playback surface for a remote participant.
type SurfaceFactory func(id domain.ParticipantID) core.PlaybackSurface

// Attacher binds streams to playback surfaces. A surface is re-bound only when
// the stream it should show changes.
type Attacher struct {
	local     core.PlaybackSurface
	newRemote SurfaceFactory

	mu     sync.Mutex
	remote map[domain.ParticipantID]core.PlaybackSurface
}

func NewAttacher(local core.PlaybackSurface, newRemote SurfaceFactory) *Attacher {
	return &Attacher{
		local:     local,
		newRemote: newRemote,
		remote:    make(map[domain.ParticipantID]core.PlaybackSurface),
	}
}

// Sync brings every surface in line with local and remotes. Binding failures
// are logged and returned for inspection; they never abort the sync.
func (a *Attacher) Sync(local core.Stream, remotes map[domain.ParticipantID]core.Stream) []error {
	a.mu.Lock()
	defer a.mu.Unlock()

	var errs []error
	if err := bind(a.local, local); err != nil {
		errs = append(errs, err)
	}

	for id, s := range remotes {
		surf, ok := a.remote[id]
		if !ok {
			if a.newRemote == nil {
				continue
			}
			surf = a.newRemote(id)
			a.remote[id] = surf
		}
		if err := bind(surf, s); err != nil {
			errs = append(errs, err)
		}
	}
	for id, surf := range a.remote {
		if _, ok := remotes[id]; ok {
			continue
		}
		if err := bind(surf, nil); err != nil {
			errs = append(errs, err)
		}
		delete(a.remote, id)
	}
	return errs
}

// Detach unbinds every surface.
func (a *Attacher) Detach() {
	a.mu.Lock()
	defer a.mu.Unlock()
	_ = bind(a.local, nil)
	for id, surf := range a.remote {
		_ = bind(surf, nil)
		delete(a.remote, id)
	}
}

func (a *Attacher) Local() core.PlaybackSurface { return a.local }

func (a *Attacher) Remote(id domain.ParticipantID) (core.PlaybackSurface, bool) {
	a.mu.Lock()
	defer a.mu.Unlock()
	s, ok := a.remote[id]
	return s, ok
}

func bind(surf core.PlaybackSurface, s core.Stream) error {
	if surf == nil || sameStream(surf.Bound(), s) {
		return nil
	}
	if err := surf.Attach(s); err != nil {
		aerr := &domain.AttachmentError{Surface: surf.Name(), StreamID: streamID(s), Err: err}
		log.Warn().Err(aerr).Str("module", "app.overlay").Str("surface", surf.Name()).Msg("attach failed")
		return aerr
	}
	log.Debug().Str("module", "app.overlay").Str("surface", surf.Name()).Str("stream", streamID(s)).Msg("stream attached")
	return nil
}

func sameStream(a, b core.Stream) bool {
	if a == nil || b == nil {
		return a == nil && b == nil
	}
	return a.ID() == b.ID()
}

func streamID(s core.Stream) string {
	if s == nil {
		return ""
	}
	return s.ID()
}
