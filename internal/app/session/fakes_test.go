package session

import (
	"context"
	"errors"
	"fmt"
	"sync"

	"github.com/dkeye/CoNote/internal/core"
	"github.com/dkeye/CoNote/internal/domain"
)

type testTrack struct {
	id      string
	kind    domain.MediaKind
	enabled bool
	ended   bool
}

func (t *testTrack) ID() string             { return t.id }
func (t *testTrack) Kind() domain.MediaKind { return t.kind }
func (t *testTrack) Enabled() bool          { return t.enabled }
func (t *testTrack) SetEnabled(on bool)     { t.enabled = on }
func (t *testTrack) Stop()                  { t.ended = true }
func (t *testTrack) Ended() bool            { return t.ended }

type testHandle struct {
	id     string
	tracks []core.Track
}

func (h *testHandle) ID() string           { return h.id }
func (h *testHandle) Tracks() []core.Track { return h.tracks }

// testDevice grants every kind unless it is listed in deny. A non-nil gate
// holds each Acquire until a value arrives.
type testDevice struct {
	mu      sync.Mutex
	n       int
	deny    map[domain.MediaKind]error
	all     []*testHandle
	gate    chan struct{}
	waiting chan struct{}
}

func newTestDevice() *testDevice {
	return &testDevice{deny: make(map[domain.MediaKind]error)}
}

func (d *testDevice) Acquire(ctx context.Context, c domain.Constraints) (core.CaptureHandle, error) {
	d.mu.Lock()
	gate, waiting := d.gate, d.waiting
	d.mu.Unlock()
	if gate != nil {
		if waiting != nil {
			waiting <- struct{}{}
		}
		select {
		case <-gate:
		case <-ctx.Done():
			return nil, ctx.Err()
		}
	}

	d.mu.Lock()
	defer d.mu.Unlock()
	for _, k := range c.Kinds() {
		if err := d.deny[k]; err != nil {
			return nil, err
		}
	}
	d.n++
	h := &testHandle{id: fmt.Sprintf("h%d", d.n)}
	for _, k := range c.Kinds() {
		h.tracks = append(h.tracks, &testTrack{id: fmt.Sprintf("h%d-%s", d.n, k), kind: k, enabled: true})
	}
	d.all = append(d.all, h)
	return h, nil
}

func (d *testDevice) handles() []*testHandle {
	d.mu.Lock()
	defer d.mu.Unlock()
	return append([]*testHandle(nil), d.all...)
}

type fixedRandom struct{ n int }

func (r *fixedRandom) NewID() string {
	r.n++
	return fmt.Sprintf("p%d", r.n)
}

func (r *fixedRandom) Intn(int) int { return 0 }

type memThemes struct {
	mu      sync.Mutex
	saved   map[string]domain.Theme
	loadErr error
	saveErr error
}

func newMemThemes() *memThemes {
	return &memThemes{saved: make(map[string]domain.Theme)}
}

func (m *memThemes) Load(_ context.Context, client string) (domain.Theme, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.loadErr != nil {
		return "", m.loadErr
	}
	if t, ok := m.saved[client]; ok {
		return t, nil
	}
	return domain.ThemeSystem, nil
}

func (m *memThemes) Save(_ context.Context, client string, t domain.Theme) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.saveErr != nil {
		return m.saveErr
	}
	m.saved[client] = t
	return nil
}

type testSurface struct {
	name  string
	bound core.Stream
}

func (s *testSurface) Name() string       { return s.name }
func (s *testSurface) Bound() core.Stream { return s.bound }
func (s *testSurface) Muted() bool        { return true }

func (s *testSurface) Attach(st core.Stream) error {
	s.bound = st
	return nil
}

var errStoreDown = errors.New("store down")
