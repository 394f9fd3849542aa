package signal

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"sync"
	"time"

	"github.com/dkeye/CoNote/internal/app"
	"github.com/dkeye/CoNote/internal/app/session"
	"github.com/dkeye/CoNote/internal/core"
	"github.com/gin-gonic/gin"
	"github.com/gorilla/websocket"
	"github.com/rs/zerolog/log"
)

type Options struct {
	ReadLimit      int64
	PingPeriod     time.Duration
	AcquireTimeout time.Duration
	Policy         app.Policy
}

// SessionWSController drives session shells over a WebSocket.
type SessionWSController struct {
	Registry *app.Registry
	Limiter  *RateLimiter
	Policy   app.Policy
	opts     Options
}

func NewSessionWSController(reg *app.Registry, limiter *RateLimiter, opts Options) *SessionWSController {
	if opts.PingPeriod <= 0 {
		opts.PingPeriod = 54 * time.Second
	}
	if opts.AcquireTimeout <= 0 {
		opts.AcquireTimeout = 10 * time.Second
	}
	if opts.Policy == nil {
		opts.Policy = app.SimplePolicy{}
	}
	return &SessionWSController{Registry: reg, Limiter: limiter, Policy: opts.Policy, opts: opts}
}

type WsSignalConn struct {
	conn *websocket.Conn
	send chan core.Frame

	mu     sync.RWMutex
	closed bool
}

var _ core.SignalConnection = (*WsSignalConn)(nil)

func (c *WsSignalConn) TrySend(f core.Frame) error {
	c.mu.RLock()
	defer c.mu.RUnlock()
	if c.closed {
		return ErrConnClosed
	}
	select {
	case c.send <- f:
	default:
		return ErrBackpressure
	}
	return nil
}

func (c *WsSignalConn) Close() {
	c.mu.Lock()
	if c.closed {
		c.mu.Unlock()
		return
	}
	c.closed = true
	close(c.send)
	_ = c.conn.Close()
	c.mu.Unlock()
}

var upgrader = websocket.Upgrader{
	CheckOrigin: func(r *http.Request) bool { return true },
}

// HandleSignal upgrades the request and serves the shell of the calling
// client until the socket closes or ctx ends.
func (ctl *SessionWSController) HandleSignal(ctx context.Context, c *gin.Context) {
	token := c.GetString("client_token")
	log.Info().Str("module", "signal").Str("client", token).Msg("new WS connection")

	ws, err := upgrader.Upgrade(c.Writer, c.Request, nil)
	if err != nil {
		log.Error().Err(err).Str("module", "signal").Msg("ws upgrade")
		return
	}
	if ctl.opts.ReadLimit > 0 {
		ws.SetReadLimit(ctl.opts.ReadLimit)
	}

	conn := &WsSignalConn{
		conn: ws,
		send: make(chan core.Frame, 32),
	}
	shell := ctl.Registry.Get(token)
	unsubscribe := shell.Subscribe(func(st session.State) {
		ctl.sendState(conn, st)
	})

	ctx, cancel := context.WithCancel(ctx)
	go ctl.writePump(ctx, conn)
	go func() {
		defer cancel()
		defer unsubscribe()
		ctl.readPump(ctx, token, conn)
	}()
	// A socket serves exactly one shell. Once it is closed the client has to
	// reconnect to reach the shell that replaces it.
	go func() {
		select {
		case <-shell.Done():
			log.Info().Str("module", "signal").Str("client", token).Msg("session closed, dropping socket")
			cancel()
		case <-ctx.Done():
		}
	}()

	ctl.sendState(conn, shell.Snapshot())
}

type stateEnvelope struct {
	Type string `json:"type"`
	session.View
}

type errorEnvelope struct {
	Type    string `json:"type"`
	Action  string `json:"action,omitempty"`
	Error   string `json:"error"`
	Message string `json:"message"`
}

func (ctl *SessionWSController) sendState(c core.SignalConnection, st session.State) {
	ctl.sendJSON(c, stateEnvelope{Type: "state", View: st.View()})
}

func (ctl *SessionWSController) sendError(c core.SignalConnection, action string, err error) {
	ctl.sendJSON(c, errorEnvelope{
		Type:    "error",
		Action:  action,
		Error:   ErrorCode(err),
		Message: err.Error(),
	})
}

func (ctl *SessionWSController) sendJSON(c core.SignalConnection, v any) {
	b, err := json.Marshal(v)
	if err != nil {
		log.Error().Err(err).Str("module", "signal").Msg("sendJSON marshal")
		return
	}
	err = c.TrySend(b)
	if !errors.Is(err, ErrBackpressure) {
		return
	}
	switch ctl.Policy.OnBackPressure(c) {
	case app.CloseConn:
		log.Warn().Str("module", "signal").Msg("closing slow connection")
		c.Close()
	case app.DropFrame:
		log.Warn().Str("module", "signal").Msg("sendJSON dropped frame")
	}
}
