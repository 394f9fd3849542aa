// Package overlay derives the full-screen call grid and keeps playback
// surfaces bound to the streams it shows.
package overlay

import (
	"sort"

	"github.com/dkeye/CoNote/internal/core"
	"github.com/dkeye/CoNote/internal/domain"
)

// GridSlots is the number of tiles the grid aims to fill.
const GridSlots = 6

type SlotKind string

const (
	SlotLocal       SlotKind = "local"
	SlotRemote      SlotKind = "remote"
	SlotPlaceholder SlotKind = "placeholder"
)

type Slot struct {
	Kind        SlotKind             `json:"kind"`
	Label       string               `json:"label"`
	Participant domain.ParticipantID `json:"participant,omitempty"`
	StreamID    string               `json:"stream_id,omitempty"`
	Muted       bool                 `json:"muted"`
	VideoOff    bool                 `json:"video_off"`
}

// Controls are the three in-call buttons. Audio toggles mute, video toggles
// the camera, leave hides the overlay.
type Controls struct {
	AudioOn bool `json:"audio_on"`
	VideoOn bool `json:"video_on"`
}

type View struct {
	Visible  bool     `json:"visible"`
	Slots    []Slot   `json:"slots,omitempty"`
	Controls Controls `json:"controls"`
}

type Input struct {
	InCall       bool
	Local        core.Stream
	Remotes      map[domain.ParticipantID]core.Stream
	VideoEnabled bool
	// AudioEnabled is true when audio is captured and not muted.
	AudioEnabled bool
}

// Layout renders nothing unless in a call. Otherwise it yields the local tile,
// one tile per remote ordered by participant id, and placeholders up to
// GridSlots.
func Layout(in Input) View {
	if !in.InCall {
		return View{}
	}
	v := View{
		Visible:  true,
		Controls: Controls{AudioOn: in.AudioEnabled, VideoOn: in.VideoEnabled},
	}

	local := Slot{Kind: SlotLocal, Label: "You", Muted: true, VideoOff: !in.VideoEnabled}
	if !in.VideoEnabled {
		local.Label = "You (Video Off)"
	}
	if in.Local != nil {
		local.StreamID = in.Local.ID()
	}
	v.Slots = append(v.Slots, local)

	for _, id := range sortedIDs(in.Remotes) {
		s := in.Remotes[id]
		slot := Slot{Kind: SlotRemote, Label: "User " + shortID(id), Participant: id}
		if s != nil {
			slot.StreamID = s.ID()
		}
		v.Slots = append(v.Slots, slot)
	}

	for i := 0; i < Placeholders(len(in.Remotes)); i++ {
		v.Slots = append(v.Slots, Slot{Kind: SlotPlaceholder, Label: "Waiting for user..."})
	}
	return v
}

// Placeholders returns how many empty tiles follow the local and remote ones.
func Placeholders(remotes int) int {
	return max(0, GridSlots-remotes-1)
}

func shortID(id domain.ParticipantID) string {
	r := []rune(string(id))
	if len(r) > 6 {
		r = r[:6]
	}
	return string(r)
}

func sortedIDs(m map[domain.ParticipantID]core.Stream) []domain.ParticipantID {
	out := make([]domain.ParticipantID, 0, len(m))
	for id := range m {
		out = append(out, id)
	}
	sort.Slice(out, func(i, j int) bool { return out[i] < out[j] })
	return out
}
