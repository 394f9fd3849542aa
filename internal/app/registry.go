package app

import (
	"sync"

	"github.com/dkeye/CoNote/internal/app/session"
	"github.com/rs/zerolog/log"
)

// ShellFactory builds the shell for a new client token.
type ShellFactory func(token string) *session.Shell

// Registry maps client tokens to their session shells.
type Registry struct {
	factory ShellFactory

	mu     sync.RWMutex
	shells map[string]*session.Shell
}

func NewRegistry(factory ShellFactory) *Registry {
	return &Registry{
		factory: factory,
		shells:  make(map[string]*session.Shell),
	}
}

// Get returns the shell of token, creating it on first use.
func (r *Registry) Get(token string) *session.Shell {
	r.mu.RLock()
	s, ok := r.shells[token]
	r.mu.RUnlock()
	if ok {
		return s
	}

	r.mu.Lock()
	defer r.mu.Unlock()
	if s, ok := r.shells[token]; ok {
		return s
	}
	s = r.factory(token)
	r.shells[token] = s
	log.Info().Str("module", "app.registry").Str("client", token).Msg("created new session")
	return s
}

func (r *Registry) Lookup(token string) (*session.Shell, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	s, ok := r.shells[token]
	return s, ok
}

// Close tears down the shell of token. It reports false for unknown tokens.
func (r *Registry) Close(token string) bool {
	r.mu.Lock()
	s, ok := r.shells[token]
	delete(r.shells, token)
	r.mu.Unlock()
	if !ok {
		return false
	}
	if err := s.Close(); err != nil {
		log.Warn().Err(err).Str("module", "app.registry").Str("client", token).Msg("close session")
	}
	log.Info().Str("module", "app.registry").Str("client", token).Msg("closed session")
	return true
}

func (r *Registry) Len() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.shells)
}

// CloseAll tears down every shell. Used at shutdown.
func (r *Registry) CloseAll() {
	r.mu.Lock()
	shells := r.shells
	r.shells = make(map[string]*session.Shell)
	r.mu.Unlock()

	for token, s := range shells {
		if err := s.Close(); err != nil {
			log.Warn().Err(err).Str("module", "app.registry").Str("client", token).Msg("close session")
		}
	}
	log.Info().Str("module", "app.registry").Int("count", len(shells)).Msg("closed all sessions")
}
