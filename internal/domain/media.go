package domain

type MediaKind string

const (
	KindAudio MediaKind = "audio"
	KindVideo MediaKind = "video"
)

func (k MediaKind) String() string { return string(k) }

// Constraints describe which capabilities a capture request asks for.
type Constraints struct {
	Audio bool
	Video bool
}

func (c Constraints) Empty() bool { return !c.Audio && !c.Video }

// Kinds lists requested kinds in a stable order.
func (c Constraints) Kinds() []MediaKind {
	out := make([]MediaKind, 0, 2)
	if c.Audio {
		out = append(out, KindAudio)
	}
	if c.Video {
		out = append(out, KindVideo)
	}
	return out
}
