package session

import (
	"context"
	"errors"
	"sync"

	"github.com/dkeye/CoNote/internal/app/media"
	"github.com/dkeye/CoNote/internal/app/overlay"
	"github.com/dkeye/CoNote/internal/core"
	"github.com/dkeye/CoNote/internal/domain"
	"github.com/dkeye/CoNote/internal/editor"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
)

type Options struct {
	// Client keys the theme preference.
	Client         string
	Device         core.CaptureDevice
	Random         core.RandomSource
	Themes         core.ThemeStore
	LocalSurface   core.PlaybackSurface
	RemoteSurfaces overlay.SurfaceFactory
}

// Shell owns all state of one session. Handlers resolve side effects (roster,
// capture devices, theme store) and then feed one Event per action to Reduce.
type Shell struct {
	client   string
	roster   *core.Roster
	media    *media.Controller
	attacher *overlay.Attacher
	themes   core.ThemeStore
	logger   zerolog.Logger
	done     chan struct{}

	// op serializes actions from check to dispatch. Device acquisition runs
	// outside it so a slow permission prompt does not block typing.
	op sync.Mutex

	mu        sync.Mutex
	state     State
	remotes   map[domain.ParticipantID]core.Stream
	listeners map[int]func(State)
	nextSub   int
	closed    bool
}

func New(opts Options) *Shell {
	return &Shell{
		client:    opts.Client,
		roster:    core.NewRoster(opts.Random),
		media:     media.NewController(opts.Device),
		attacher:  overlay.NewAttacher(opts.LocalSurface, opts.RemoteSurfaces),
		themes:    opts.Themes,
		logger:    log.With().Str("module", "app.session").Str("client", opts.Client).Logger(),
		done:      make(chan struct{}),
		state:     initialState(),
		remotes:   make(map[domain.ParticipantID]core.Stream),
		listeners: make(map[int]func(State)),
	}
}

func (s *Shell) Snapshot() State {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.state
}

// Subscribe registers fn to receive every new state. The returned func
// removes it.
func (s *Shell) Subscribe(fn func(State)) func() {
	s.mu.Lock()
	defer s.mu.Unlock()
	id := s.nextSub
	s.nextSub++
	s.listeners[id] = fn
	return func() {
		s.mu.Lock()
		defer s.mu.Unlock()
		delete(s.listeners, id)
	}
}

func (s *Shell) dispatch(ev Event) State {
	s.mu.Lock()
	s.state = Reduce(s.state, ev)
	st := s.state
	fns := make([]func(State), 0, len(s.listeners))
	for _, fn := range s.listeners {
		fns = append(fns, fn)
	}
	s.mu.Unlock()

	for _, fn := range fns {
		fn(st)
	}
	return st
}

// Mount moves a fresh session to the join screen and restores the theme.
func (s *Shell) Mount(ctx context.Context) (State, error) {
	s.op.Lock()
	defer s.op.Unlock()
	if err := s.check(PhaseNotMounted, PhaseUnjoined, PhaseJoined); err != nil {
		return s.Snapshot(), err
	}
	if s.Snapshot().Phase != PhaseNotMounted {
		return s.Snapshot(), nil
	}
	st := s.dispatch(Mounted{})
	if s.themes != nil {
		t, err := s.themes.Load(ctx, s.client)
		if err != nil {
			s.logger.Warn().Err(err).Msg("theme load failed")
		} else {
			st = s.dispatch(ThemeChanged{Theme: t})
		}
	}
	s.logger.Info().Msg("mounted")
	return st, nil
}

func (s *Shell) SetDraft(name string) (State, error) {
	s.op.Lock()
	defer s.op.Unlock()
	if err := s.check(PhaseNotMounted, PhaseUnjoined, PhaseJoined); err != nil {
		return s.Snapshot(), err
	}
	return s.dispatch(DraftChanged{Name: name}), nil
}

// Join enters the session as name. Blank names are rejected with a
// ValidationError and nothing changes.
func (s *Shell) Join(name string) (State, error) {
	s.op.Lock()
	defer s.op.Unlock()
	if err := s.check(PhaseUnjoined); err != nil {
		return s.Snapshot(), err
	}
	s.dispatch(DraftChanged{Name: name})

	p, err := s.roster.Join(name)
	if err != nil {
		return s.Snapshot(), err
	}
	s.logger.Info().Str("participant", string(p.ID)).Msg("joined")
	return s.dispatch(Joined{Self: p.ID, Participants: s.roster.Snapshot()}), nil
}

// Leave returns to the join screen and releases all capture handles.
func (s *Shell) Leave() (State, error) {
	s.op.Lock()
	defer s.op.Unlock()
	if err := s.check(PhaseJoined); err != nil {
		return s.Snapshot(), err
	}
	self := s.Snapshot().Self
	s.media.Release()
	s.attacher.Detach()
	s.roster.Remove(self)
	s.logger.Info().Str("participant", string(self)).Msg("left")
	return s.dispatch(Left{Participants: s.roster.Snapshot()}), nil
}

func (s *Shell) ToggleAudio(ctx context.Context) (State, error) {
	return s.toggleMedia(ctx, domain.KindAudio, s.media.ToggleAudio)
}

func (s *Shell) ToggleVideo(ctx context.Context) (State, error) {
	return s.toggleMedia(ctx, domain.KindVideo, s.media.ToggleVideo)
}

// toggleMedia runs the device side of a toggle without holding op, then
// publishes the controller's state as it stands once op is held. A toggle
// that finishes after Leave or Close reports the phase error.
func (s *Shell) toggleMedia(ctx context.Context, kind domain.MediaKind, toggle func(context.Context) (media.State, error)) (State, error) {
	if err := s.check(PhaseJoined); err != nil {
		return s.Snapshot(), err
	}
	_, err := toggle(ctx)

	s.op.Lock()
	defer s.op.Unlock()
	if err != nil {
		s.logMediaErr(err, kind)
		return s.Snapshot(), err
	}
	if err := s.check(PhaseJoined); err != nil {
		return s.Snapshot(), err
	}
	ms := s.media.State()
	s.roster.Update(s.Snapshot().Self, ms.Presence())
	s.syncSurfaces()
	var ev Event = AudioToggled{Media: ms, Participants: s.roster.Snapshot()}
	if kind == domain.KindVideo {
		ev = VideoToggled{Media: ms, Participants: s.roster.Snapshot()}
	}
	return s.dispatch(ev), nil
}

func (s *Shell) ToggleMute() (State, error) {
	s.op.Lock()
	defer s.op.Unlock()
	if err := s.check(PhaseJoined); err != nil {
		return s.Snapshot(), err
	}
	return s.dispatch(MuteToggled{Media: s.media.ToggleMute()}), nil
}

func (s *Shell) ToggleDeafen() (State, error) {
	s.op.Lock()
	defer s.op.Unlock()
	if err := s.check(PhaseJoined); err != nil {
		return s.Snapshot(), err
	}
	return s.dispatch(DeafenToggled{Media: s.media.ToggleDeafen()}), nil
}

// EnterCall opens the call overlay. Without video it does nothing.
func (s *Shell) EnterCall() (State, error) {
	s.op.Lock()
	defer s.op.Unlock()
	if err := s.check(PhaseJoined); err != nil {
		return s.Snapshot(), err
	}
	ms, ok := s.media.EnterCall()
	if !ok {
		return s.Snapshot(), nil
	}
	s.syncSurfaces()
	return s.dispatch(CallEntered{Media: ms}), nil
}

func (s *Shell) LeaveCall() (State, error) {
	s.op.Lock()
	defer s.op.Unlock()
	if err := s.check(PhaseJoined); err != nil {
		return s.Snapshot(), err
	}
	return s.dispatch(CallLeft{Media: s.media.LeaveCall()}), nil
}

// SetText replaces the note text as typed by the user.
func (s *Shell) SetText(text string, sel editor.Selection) (State, error) {
	s.op.Lock()
	defer s.op.Unlock()
	if err := s.check(PhaseJoined); err != nil {
		return s.Snapshot(), err
	}
	return s.dispatch(TextChanged{Text: text, Selection: sel}), nil
}

// Format wraps sel in the markers of f.
func (s *Shell) Format(f editor.Format, sel editor.Selection) (State, error) {
	s.op.Lock()
	defer s.op.Unlock()
	if err := s.check(PhaseJoined); err != nil {
		return s.Snapshot(), err
	}
	text, next, err := editor.Apply(f, s.Snapshot().Text, sel)
	if err != nil {
		return s.Snapshot(), &domain.ValidationError{Field: "format", Err: err}
	}
	return s.dispatch(TextChanged{Text: text, Selection: next}), nil
}

// Key applies a formatting shortcut. It reports false for keys that are not
// shortcuts.
func (s *Shell) Key(k editor.Key, sel editor.Selection) (State, bool, error) {
	f, ok := editor.Shortcut(k)
	if !ok {
		return s.Snapshot(), false, nil
	}
	st, err := s.Format(f, sel)
	return st, err == nil, err
}

// CycleTheme moves to the next theme and hands it to the theme store.
// Before mount it does nothing.
func (s *Shell) CycleTheme(ctx context.Context) (State, error) {
	s.op.Lock()
	defer s.op.Unlock()
	if err := s.check(PhaseNotMounted, PhaseUnjoined, PhaseJoined); err != nil {
		return s.Snapshot(), err
	}
	cur := s.Snapshot()
	if cur.Phase == PhaseNotMounted {
		return cur, nil
	}
	next := cur.Theme.Next()
	if s.themes != nil {
		if err := s.themes.Save(ctx, s.client, next); err != nil {
			s.logger.Warn().Err(err).Str("theme", string(next)).Msg("theme save failed")
		}
	}
	return s.dispatch(ThemeChanged{Theme: next}), nil
}

// Overlay renders the call overlay for the current state.
func (s *Shell) Overlay() overlay.View {
	st := s.Snapshot()
	return overlay.Layout(overlay.Input{
		InCall:       st.Media.InCall,
		Local:        s.localStream(),
		Remotes:      s.remoteStreams(),
		VideoEnabled: st.Media.VideoEnabled,
		AudioEnabled: st.Media.AudioLive(),
	})
}

// Surfaces exposes the playback surfaces bound by the overlay.
func (s *Shell) Surfaces() *overlay.Attacher { return s.attacher }

// Done is closed once the session has been closed.
func (s *Shell) Done() <-chan struct{} { return s.done }

// Close ends the session and stops every captured track.
func (s *Shell) Close() error {
	s.op.Lock()
	defer s.op.Unlock()
	s.mu.Lock()
	if s.closed {
		s.mu.Unlock()
		return nil
	}
	s.closed = true
	s.listeners = make(map[int]func(State))
	close(s.done)
	s.mu.Unlock()

	err := s.media.Close()
	s.attacher.Detach()
	if c, ok := s.attacher.Local().(interface{ Close() }); ok {
		c.Close()
	}
	s.logger.Info().Msg("session closed")
	return err
}

func (s *Shell) check(allowed ...Phase) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return domain.ErrSessionClosed
	}
	for _, p := range allowed {
		if s.state.Phase == p {
			return nil
		}
	}
	switch s.state.Phase {
	case PhaseNotMounted:
		return domain.ErrNotMounted
	case PhaseJoined:
		return domain.ErrAlreadyJoined
	default:
		return domain.ErrNotJoined
	}
}

// SetRemoteStream records the inbound stream of a remote participant. A nil
// stream removes the entry. Nothing in this build produces remote streams.
func (s *Shell) SetRemoteStream(id domain.ParticipantID, stream core.Stream) {
	s.op.Lock()
	defer s.op.Unlock()
	s.mu.Lock()
	if stream == nil {
		delete(s.remotes, id)
	} else {
		s.remotes[id] = stream
	}
	s.mu.Unlock()
	s.syncSurfaces()
}

func (s *Shell) syncSurfaces() {
	// failures are logged by the attacher and must not abort the action
	_ = s.attacher.Sync(s.localStream(), s.remoteStreams())
}

func (s *Shell) localStream() core.Stream {
	if h := s.media.Handle(); h != nil {
		return h
	}
	return nil
}

func (s *Shell) remoteStreams() map[domain.ParticipantID]core.Stream {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make(map[domain.ParticipantID]core.Stream, len(s.remotes))
	for id, r := range s.remotes {
		out[id] = r
	}
	return out
}

func (s *Shell) logMediaErr(err error, kind domain.MediaKind) {
	switch {
	case errors.Is(err, domain.ErrStaleAcquisition):
		s.logger.Debug().Str("kind", kind.String()).Msg("superseded acquisition")
	case media.IsCaptureError(err):
		s.logger.Warn().Err(err).Str("kind", kind.String()).Msg("could not access device")
	default:
		s.logger.Error().Err(err).Str("kind", kind.String()).Msg("media toggle failed")
	}
}
