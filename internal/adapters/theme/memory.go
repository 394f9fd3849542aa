// Package theme stores the theme preference of each client.
package theme

import (
	"context"
	"sync"

	"github.com/dkeye/CoNote/internal/domain"
)

type MemoryStore struct {
	mu     sync.RWMutex
	themes map[string]domain.Theme
}

func NewMemoryStore() *MemoryStore {
	return &MemoryStore{themes: make(map[string]domain.Theme)}
}

// Load returns the saved theme of client, or the system theme when none was
// saved.
func (m *MemoryStore) Load(_ context.Context, client string) (domain.Theme, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	if t, ok := m.themes[client]; ok {
		return t, nil
	}
	return domain.ThemeSystem, nil
}

func (m *MemoryStore) Save(_ context.Context, client string, t domain.Theme) error {
	if _, ok := domain.ParseTheme(string(t)); !ok {
		return &domain.ValidationError{Field: "theme", Err: ErrUnknownTheme}
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	m.themes[client] = t
	return nil
}
