package core

import (
	"errors"
	"sync"

	"github.com/dkeye/CoNote/internal/domain"
	"github.com/rs/zerolog/log"
)

// ErrDuplicateID is returned when the random source keeps producing ids that
// are already taken.
var ErrDuplicateID = errors.New("participant id already in use")

const idAttempts = 8

// Roster is a threadsafe in-memory participant list kept in join order.
type Roster struct {
	rnd RandomSource

	mu    sync.RWMutex
	order []domain.ParticipantID
	byID  map[domain.ParticipantID]*domain.Participant
}

func NewRoster(rnd RandomSource) *Roster {
	if rnd == nil {
		rnd = DefaultRandom()
	}
	return &Roster{
		rnd:  rnd,
		byID: make(map[domain.ParticipantID]*domain.Participant),
	}
}

// Join adds a participant named name. The color is picked independently of
// other participants, so two people may share one.
func (r *Roster) Join(name string) (domain.Participant, error) {
	if err := domain.ValidateName(name); err != nil {
		return domain.Participant{}, err
	}
	r.mu.Lock()
	defer r.mu.Unlock()

	var id domain.ParticipantID
	for range idAttempts {
		cand := domain.ParticipantID(r.rnd.NewID())
		if _, taken := r.byID[cand]; !taken {
			id = cand
			break
		}
	}
	if id == "" {
		return domain.Participant{}, ErrDuplicateID
	}
	p := &domain.Participant{
		ID:     id,
		Name:   name,
		Color:  domain.Palette[r.rnd.Intn(len(domain.Palette))],
		Online: true,
	}
	r.byID[p.ID] = p
	r.order = append(r.order, p.ID)
	log.Info().Str("module", "core.roster").Str("id", string(p.ID)).Str("color", p.Color).Msg("participant joined")
	return *p, nil
}

// Update replaces the presence flags of id. Unknown ids are ignored.
func (r *Roster) Update(id domain.ParticipantID, patch domain.Presence) {
	r.mu.Lock()
	defer r.mu.Unlock()
	p, ok := r.byID[id]
	if !ok {
		log.Debug().Str("module", "core.roster").Str("id", string(id)).Msg("update for unknown participant")
		return
	}
	p.Online = patch.Online
	p.InAudio = patch.InAudio
	p.InVideo = patch.InVideo
}

func (r *Roster) Get(id domain.ParticipantID) (domain.Participant, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	p, ok := r.byID[id]
	if !ok {
		return domain.Participant{}, false
	}
	return *p, true
}

func (r *Roster) Remove(id domain.ParticipantID) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, ok := r.byID[id]; !ok {
		return
	}
	delete(r.byID, id)
	for i, pid := range r.order {
		if pid == id {
			r.order = append(r.order[:i], r.order[i+1:]...)
			break
		}
	}
	log.Info().Str("module", "core.roster").Str("id", string(id)).Msg("participant removed")
}

func (r *Roster) Len() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.order)
}

// Snapshot returns copies of all participants in join order.
func (r *Roster) Snapshot() []domain.Participant {
	r.mu.RLock()
	defer r.mu.RUnlock()
	out := make([]domain.Participant, 0, len(r.order))
	for _, id := range r.order {
		out = append(out, *r.byID[id])
	}
	return out
}
