package rtc

import "github.com/dkeye/CoNote/internal/core"

// Handle groups the tracks granted by one acquisition. Its ID doubles as the
// stream ID of every track.
type Handle struct {
	id     string
	tracks []*LocalTrack
}

func (h *Handle) ID() string { return h.id }

func (h *Handle) Tracks() []core.Track {
	out := make([]core.Track, 0, len(h.tracks))
	for _, t := range h.tracks {
		out = append(out, t)
	}
	return out
}

func (h *Handle) ended() bool {
	for _, t := range h.tracks {
		if !t.Ended() {
			return false
		}
	}
	return true
}
