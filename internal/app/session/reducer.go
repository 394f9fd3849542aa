package session

import (
	"github.com/dkeye/CoNote/internal/app/media"
	"github.com/dkeye/CoNote/internal/domain"
	"github.com/dkeye/CoNote/internal/editor"
)

// Event is one user action, already resolved against the roster and the
// media controller.
type Event interface {
	event()
}

type Mounted struct{}

type DraftChanged struct{ Name string }

type Joined struct {
	Self         domain.ParticipantID
	Participants []domain.Participant
}

type AudioToggled struct {
	Media        media.State
	Participants []domain.Participant
}

type VideoToggled struct {
	Media        media.State
	Participants []domain.Participant
}

type MuteToggled struct{ Media media.State }

type DeafenToggled struct{ Media media.State }

type CallEntered struct{ Media media.State }

type CallLeft struct{ Media media.State }

type TextChanged struct {
	Text      string
	Selection editor.Selection
}

type ThemeChanged struct{ Theme domain.Theme }

type Left struct{ Participants []domain.Participant }

func (Mounted) event()       {}
func (DraftChanged) event()  {}
func (Joined) event()        {}
func (AudioToggled) event()  {}
func (VideoToggled) event()  {}
func (MuteToggled) event()   {}
func (DeafenToggled) event() {}
func (CallEntered) event()   {}
func (CallLeft) event()      {}
func (TextChanged) event()   {}
func (ThemeChanged) event()  {}
func (Left) event()          {}

// Reduce applies ev to s. Events that do not fit the current phase leave s
// untouched.
func Reduce(s State, ev Event) State {
	switch e := ev.(type) {
	case Mounted:
		if s.Phase == PhaseNotMounted {
			s.Phase = PhaseUnjoined
		}
	case DraftChanged:
		s.Draft = e.Name
	case Joined:
		if s.Phase != PhaseUnjoined {
			return s
		}
		s.Phase = PhaseJoined
		s.Self = e.Self
		s.Participants = e.Participants
	case AudioToggled:
		if s.Phase != PhaseJoined {
			return s
		}
		s.Media = e.Media
		s.Participants = e.Participants
	case VideoToggled:
		if s.Phase != PhaseJoined {
			return s
		}
		s.Media = e.Media
		s.Participants = e.Participants
	case MuteToggled:
		if s.Phase == PhaseJoined {
			s.Media = e.Media
		}
	case DeafenToggled:
		if s.Phase == PhaseJoined {
			s.Media = e.Media
		}
	case CallEntered:
		if s.Phase == PhaseJoined {
			s.Media = e.Media
		}
	case CallLeft:
		if s.Phase == PhaseJoined {
			s.Media = e.Media
		}
	case TextChanged:
		if s.Phase != PhaseJoined {
			return s
		}
		s.Text = e.Text
		s.Selection = e.Selection
	case ThemeChanged:
		if s.Phase != PhaseNotMounted {
			s.Theme = e.Theme
		}
	case Left:
		if s.Phase != PhaseJoined {
			return s
		}
		s.Phase = PhaseUnjoined
		s.Self = ""
		s.Participants = e.Participants
		s.Media = media.State{}
	}
	return s
}
