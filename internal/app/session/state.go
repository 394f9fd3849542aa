// Package session coordinates one client's notes session: the join flow, the
// note text, the presence roster and local media, all held in a single State
// that changes only through Reduce.
package session

import (
	"fmt"

	"github.com/dkeye/CoNote/internal/app/media"
	"github.com/dkeye/CoNote/internal/domain"
	"github.com/dkeye/CoNote/internal/editor"
)

type Phase string

const (
	// PhaseNotMounted lasts until the client reports it is ready.
	PhaseNotMounted Phase = "not_mounted"
	PhaseUnjoined   Phase = "unjoined"
	PhaseJoined     Phase = "joined"
)

type State struct {
	Phase        Phase                `json:"phase"`
	Draft        string               `json:"draft"`
	Self         domain.ParticipantID `json:"self,omitempty"`
	Participants []domain.Participant `json:"participants"`
	Media        media.State          `json:"media"`
	Text         string               `json:"text"`
	Selection    editor.Selection     `json:"selection"`
	Theme        domain.Theme         `json:"theme"`
}

func initialState() State {
	return State{Phase: PhaseNotMounted, Theme: domain.ThemeSystem}
}

// CanJoin reports whether the join button is enabled.
func (s State) CanJoin() bool {
	return s.Phase == PhaseUnjoined && domain.ValidateName(s.Draft) == nil
}

func (s State) SelfParticipant() (domain.Participant, bool) {
	for _, p := range s.Participants {
		if p.ID == s.Self {
			return p, true
		}
	}
	return domain.Participant{}, false
}

// Status is the bottom bar of a joined session.
type Status struct {
	Participants int    `json:"participants"`
	Capacity     int    `json:"capacity"`
	InAudio      int    `json:"in_audio"`
	InVideo      int    `json:"in_video"`
	Characters   int    `json:"characters"`
	ConnectedAs  string `json:"connected_as"`
	// Badge is the roster size shown in the header, e.g. "1/10".
	Badge string `json:"badge"`
	Line  string `json:"line"`
}

func (s State) Status() Status {
	st := Status{
		Participants: len(s.Participants),
		Capacity:     domain.RosterCapacity,
		Characters:   editor.Length(s.Text),
	}
	for _, p := range s.Participants {
		if p.InAudio {
			st.InAudio++
		}
		if p.InVideo {
			st.InVideo++
		}
	}
	if self, ok := s.SelfParticipant(); ok {
		st.ConnectedAs = self.Name
	}
	st.Badge = fmt.Sprintf("%d/%d", st.Participants, st.Capacity)
	st.Line = fmt.Sprintf("%d users in audio • %d users in video • %d characters", st.InAudio, st.InVideo, st.Characters)
	return st
}

// SidebarEntry is one row of the participant list.
type SidebarEntry struct {
	ID      domain.ParticipantID `json:"id"`
	Name    string               `json:"name"`
	Initial string               `json:"initial"`
	Color   string               `json:"color"`
	Self    bool                 `json:"self"`
	Label   string               `json:"label"`
	InAudio bool                 `json:"in_audio"`
	InVideo bool                 `json:"in_video"`
}

func (s State) Sidebar() []SidebarEntry {
	out := make([]SidebarEntry, 0, len(s.Participants))
	for _, p := range s.Participants {
		label := "Offline"
		if p.Online {
			label = "Online"
		}
		out = append(out, SidebarEntry{
			ID:      p.ID,
			Name:    p.Name,
			Initial: p.Initial(),
			Color:   p.Color,
			Self:    p.ID == s.Self,
			Label:   label,
			InAudio: p.InAudio,
			InVideo: p.InVideo,
		})
	}
	return out
}

// Header lists the controls shown above the editor.
type Header struct {
	AudioLabel string `json:"audio_label"`
	VideoLabel string `json:"video_label"`
	CallButton bool   `json:"call_button"`
	MuteDeafen bool   `json:"mute_deafen"`
	ThemeIcon  string `json:"theme_icon"`
}

func (s State) Header() Header {
	h := Header{
		AudioLabel: "Join Audio",
		VideoLabel: "Start Video",
		CallButton: s.Media.VideoEnabled,
		MuteDeafen: s.Media.AudioEnabled,
		ThemeIcon:  s.Theme.Icon(),
	}
	if s.Phase == PhaseNotMounted {
		h.ThemeIcon = domain.ThemeSystem.Icon()
	}
	if s.Media.AudioEnabled {
		h.AudioLabel = "Leave Audio"
	}
	if s.Media.VideoEnabled {
		h.VideoLabel = "Stop Video"
	}
	return h
}

// View is what clients render: the state plus everything derived from it.
type View struct {
	State   State          `json:"state"`
	Status  Status         `json:"status"`
	Header  Header         `json:"header"`
	Sidebar []SidebarEntry `json:"sidebar"`
	CanJoin bool           `json:"can_join"`
}

func (s State) View() View {
	return View{
		State:   s,
		Status:  s.Status(),
		Header:  s.Header(),
		Sidebar: s.Sidebar(),
		CanJoin: s.CanJoin(),
	}
}
