package signal

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/dkeye/CoNote/internal/app/session"
	"github.com/dkeye/CoNote/internal/core"
	"github.com/dkeye/CoNote/internal/editor"
	"github.com/rs/zerolog/log"
)

// action is the union of every client message. Fields unused by a type are
// ignored.
type action struct {
	Type      string           `json:"type"`
	Name      string           `json:"name"`
	Text      string           `json:"text"`
	Format    editor.Format    `json:"format"`
	Selection editor.Selection `json:"selection"`
	editor.Key
}

// handleSignal applies one client message to the caller's shell. State changes
// reach the client through the shell subscription; only failures and pongs
// are answered here.
func (ctl *SessionWSController) handleSignal(ctx context.Context, token string, c core.SignalConnection, data []byte) {
	var a action
	if err := json.Unmarshal(data, &a); err != nil {
		log.Error().Err(err).Str("module", "signal").Msg("bad json")
		ctl.sendError(c, "", fmt.Errorf("%w: %v", ErrBadPayload, err))
		return
	}
	if !ctl.Limiter.Allow(token) {
		log.Warn().Str("module", "signal").Str("client", token).Str("type", a.Type).Msg("rate limited")
		ctl.sendError(c, a.Type, ErrRateLimited)
		return
	}

	shell := ctl.Registry.Get(token)
	var err error
	switch a.Type {
	case "ping":
		ctl.sendJSON(c, struct {
			Type string `json:"type"`
		}{Type: "pong"})
	case "mount":
		_, err = shell.Mount(ctx)
	case "name":
		_, err = shell.SetDraft(a.Name)
	case "join":
		_, err = shell.Join(a.Name)
	case "leave":
		_, err = shell.Leave()
	case "audio":
		err = ctl.withTimeout(ctx, shell.ToggleAudio)
	case "video":
		err = ctl.withTimeout(ctx, shell.ToggleVideo)
	case "mute":
		_, err = shell.ToggleMute()
	case "deafen":
		_, err = shell.ToggleDeafen()
	case "call_enter":
		_, err = shell.EnterCall()
	case "call_leave":
		_, err = shell.LeaveCall()
	case "text":
		_, err = shell.SetText(a.Text, a.Selection)
	case "format":
		_, err = shell.Format(a.Format, a.Selection)
	case "key":
		_, _, err = shell.Key(a.Key, a.Selection)
	case "theme":
		_, err = shell.CycleTheme(ctx)
	default:
		log.Warn().Str("module", "signal").Str("type", a.Type).Msg("unknown signal")
		err = fmt.Errorf("%w: unknown type %q", ErrBadPayload, a.Type)
	}
	if err != nil {
		log.Debug().Err(err).Str("module", "signal").Str("client", token).Str("type", a.Type).Msg("action failed")
		ctl.sendError(c, a.Type, err)
	}
}

func (ctl *SessionWSController) withTimeout(ctx context.Context, fn func(context.Context) (session.State, error)) error {
	ctx, cancel := context.WithTimeout(ctx, ctl.opts.AcquireTimeout)
	defer cancel()
	_, err := fn(ctx)
	return err
}
