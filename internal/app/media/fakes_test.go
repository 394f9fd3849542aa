package media

import (
	"context"
	"fmt"
	"sync"

	"github.com/dkeye/CoNote/internal/core"
	"github.com/dkeye/CoNote/internal/domain"
)

type fakeTrack struct {
	id   string
	kind domain.MediaKind

	mu      sync.Mutex
	enabled bool
	stops   int
}

func (t *fakeTrack) ID() string             { return t.id }
func (t *fakeTrack) Kind() domain.MediaKind { return t.kind }

func (t *fakeTrack) Enabled() bool {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.enabled
}

func (t *fakeTrack) SetEnabled(on bool) {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.enabled = on
}

func (t *fakeTrack) Stop() {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.stops++
}

func (t *fakeTrack) Ended() bool {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.stops > 0
}

func (t *fakeTrack) stopCount() int {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.stops
}

type fakeHandle struct {
	id     string
	tracks []core.Track
}

func (h *fakeHandle) ID() string           { return h.id }
func (h *fakeHandle) Tracks() []core.Track { return h.tracks }

func (h *fakeHandle) track(kind domain.MediaKind) *fakeTrack {
	for _, t := range h.tracks {
		if t.Kind() == kind {
			return t.(*fakeTrack)
		}
	}
	return nil
}

// fakeDevice hands out fake handles. Errors are returned per requested kind,
// and a non-nil gate makes Acquire wait for a value before resolving.
type fakeDevice struct {
	mu        sync.Mutex
	n         int
	errs      map[domain.MediaKind]error
	handles   []*fakeHandle
	requests  []domain.Constraints
	gate      chan struct{}
	onAcquire func()
}

func newFakeDevice() *fakeDevice {
	return &fakeDevice{errs: make(map[domain.MediaKind]error)}
}

func (d *fakeDevice) Acquire(ctx context.Context, c domain.Constraints) (core.CaptureHandle, error) {
	d.mu.Lock()
	gate := d.gate
	hook := d.onAcquire
	d.requests = append(d.requests, c)
	d.mu.Unlock()

	if hook != nil {
		hook()
	}
	if gate != nil {
		select {
		case <-gate:
		case <-ctx.Done():
			return nil, ctx.Err()
		}
	}

	d.mu.Lock()
	defer d.mu.Unlock()
	for _, k := range c.Kinds() {
		if err := d.errs[k]; err != nil {
			return nil, err
		}
	}
	d.n++
	h := &fakeHandle{id: fmt.Sprintf("h%d", d.n)}
	for _, k := range c.Kinds() {
		h.tracks = append(h.tracks, &fakeTrack{id: fmt.Sprintf("h%d-%s", d.n, k), kind: k, enabled: true})
	}
	d.handles = append(d.handles, h)
	return h, nil
}

func (d *fakeDevice) last() *fakeHandle {
	d.mu.Lock()
	defer d.mu.Unlock()
	if len(d.handles) == 0 {
		return nil
	}
	return d.handles[len(d.handles)-1]
}

func (d *fakeDevice) requested() []domain.Constraints {
	d.mu.Lock()
	defer d.mu.Unlock()
	return append([]domain.Constraints(nil), d.requests...)
}
