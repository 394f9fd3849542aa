// Package domain contains entities without logic, just meta-data
package domain

import "strings"

// RosterCapacity is shown next to the participant count. It is not enforced.
const RosterCapacity = 10

type ParticipantID string

// Palette holds the avatar colors a participant can be assigned.
var Palette = []string{
	"#FF6B6B",
	"#4ECDC4",
	"#45B7D1",
	"#96CEB4",
	"#FFEAA7",
	"#DDA0DD",
	"#98D8C8",
	"#F7DC6F",
	"#BB8FCE",
	"#85C1E9",
}

type Participant struct {
	ID      ParticipantID `json:"id"`
	Name    string        `json:"name"`
	Color   string        `json:"color"`
	Online  bool          `json:"online"`
	InAudio bool          `json:"in_audio"`
	InVideo bool          `json:"in_video"`
}

// Presence is the mutable part of a participant.
type Presence struct {
	Online  bool
	InAudio bool
	InVideo bool
}

func (p Participant) Presence() Presence {
	return Presence{Online: p.Online, InAudio: p.InAudio, InVideo: p.InVideo}
}

// Initial returns the upper-cased first letter used for the avatar.
func (p Participant) Initial() string {
	for _, r := range p.Name {
		return strings.ToUpper(string(r))
	}
	return ""
}

// ValidateName rejects names that are empty or whitespace only.
func ValidateName(name string) error {
	if strings.TrimSpace(name) == "" {
		return &ValidationError{Field: "name", Err: ErrNameEmpty}
	}
	return nil
}
