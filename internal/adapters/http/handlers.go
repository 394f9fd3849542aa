package http

import (
	"context"
	"fmt"
	"net/http"
	"time"

	"github.com/dkeye/CoNote/internal/adapters/signal"
	"github.com/dkeye/CoNote/internal/app"
	"github.com/dkeye/CoNote/internal/app/session"
	"github.com/dkeye/CoNote/internal/editor"
	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog/log"
)

// SessionHandlers exposes the caller's session shell as REST endpoints.
type SessionHandlers struct {
	Registry       *app.Registry
	Limiter        *signal.RateLimiter
	AcquireTimeout time.Duration
}

func (h *SessionHandlers) Register(g *gin.RouterGroup) {
	g.GET("", h.get)
	g.GET("/overlay", h.overlay)
	g.DELETE("", h.close)

	w := g.Group("", h.rateLimit)
	w.POST("/mount", h.action(func(c *gin.Context, s *session.Shell) (session.State, error) {
		return s.Mount(c.Request.Context())
	}))
	w.POST("/name", h.action(func(c *gin.Context, s *session.Shell) (session.State, error) {
		var req nameRequest
		if err := bind(c, &req); err != nil {
			return s.Snapshot(), err
		}
		return s.SetDraft(req.Name)
	}))
	w.POST("/join", h.action(func(c *gin.Context, s *session.Shell) (session.State, error) {
		var req nameRequest
		if err := bind(c, &req); err != nil {
			return s.Snapshot(), err
		}
		return s.Join(req.Name)
	}))
	w.POST("/leave", h.action(func(_ *gin.Context, s *session.Shell) (session.State, error) {
		return s.Leave()
	}))
	w.POST("/audio", h.action(func(c *gin.Context, s *session.Shell) (session.State, error) {
		ctx, cancel := h.acquireContext(c)
		defer cancel()
		return s.ToggleAudio(ctx)
	}))
	w.POST("/video", h.action(func(c *gin.Context, s *session.Shell) (session.State, error) {
		ctx, cancel := h.acquireContext(c)
		defer cancel()
		return s.ToggleVideo(ctx)
	}))
	w.POST("/mute", h.action(func(_ *gin.Context, s *session.Shell) (session.State, error) {
		return s.ToggleMute()
	}))
	w.POST("/deafen", h.action(func(_ *gin.Context, s *session.Shell) (session.State, error) {
		return s.ToggleDeafen()
	}))
	w.POST("/call", h.action(func(_ *gin.Context, s *session.Shell) (session.State, error) {
		return s.EnterCall()
	}))
	w.DELETE("/call", h.action(func(_ *gin.Context, s *session.Shell) (session.State, error) {
		return s.LeaveCall()
	}))
	w.PUT("/text", h.action(func(c *gin.Context, s *session.Shell) (session.State, error) {
		var req textRequest
		if err := bind(c, &req); err != nil {
			return s.Snapshot(), err
		}
		return s.SetText(req.Text, req.Selection)
	}))
	w.POST("/format", h.action(func(c *gin.Context, s *session.Shell) (session.State, error) {
		var req formatRequest
		if err := bind(c, &req); err != nil {
			return s.Snapshot(), err
		}
		return s.Format(req.Format, req.Selection)
	}))
	w.POST("/key", h.key)
	w.POST("/theme", h.action(func(c *gin.Context, s *session.Shell) (session.State, error) {
		return s.CycleTheme(c.Request.Context())
	}))
}

type nameRequest struct {
	Name string `json:"name"`
}

type textRequest struct {
	Text      string           `json:"text"`
	Selection editor.Selection `json:"selection"`
}

type formatRequest struct {
	Format    editor.Format    `json:"format" binding:"required"`
	Selection editor.Selection `json:"selection"`
}

type keyRequest struct {
	editor.Key
	Selection editor.Selection `json:"selection"`
}

func (h *SessionHandlers) shell(c *gin.Context) *session.Shell {
	return h.Registry.Get(c.GetString(clientTokenKey))
}

func (h *SessionHandlers) get(c *gin.Context) {
	c.JSON(http.StatusOK, h.shell(c).Snapshot().View())
}

func (h *SessionHandlers) overlay(c *gin.Context) {
	c.JSON(http.StatusOK, h.shell(c).Overlay())
}

func (h *SessionHandlers) close(c *gin.Context) {
	token := c.GetString(clientTokenKey)
	closed := h.Registry.Close(token)
	h.Limiter.Forget(token)
	c.JSON(http.StatusOK, gin.H{"closed": closed})
}

func (h *SessionHandlers) key(c *gin.Context) {
	s := h.shell(c)
	var req keyRequest
	if err := bind(c, &req); err != nil {
		writeError(c, err)
		return
	}
	st, handled, err := s.Key(req.Key, req.Selection)
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"handled": handled, "view": st.View()})
}

type actionFunc func(c *gin.Context, s *session.Shell) (session.State, error)

func (h *SessionHandlers) action(fn actionFunc) gin.HandlerFunc {
	return func(c *gin.Context) {
		st, err := fn(c, h.shell(c))
		if err != nil {
			writeError(c, err)
			return
		}
		c.JSON(http.StatusOK, st.View())
	}
}

func (h *SessionHandlers) rateLimit(c *gin.Context) {
	token := c.GetString(clientTokenKey)
	if !h.Limiter.Allow(token) {
		log.Warn().Str("module", "adapters.http").Str("client", token).Str("path", c.FullPath()).Msg("rate limited")
		writeError(c, signal.ErrRateLimited)
		c.Abort()
		return
	}
	c.Next()
}

func (h *SessionHandlers) acquireContext(c *gin.Context) (context.Context, context.CancelFunc) {
	if h.AcquireTimeout <= 0 {
		return context.WithCancel(c.Request.Context())
	}
	return context.WithTimeout(c.Request.Context(), h.AcquireTimeout)
}

func bind(c *gin.Context, v any) error {
	if err := c.ShouldBindJSON(v); err != nil {
		return fmt.Errorf("%w: %v", signal.ErrBadPayload, err)
	}
	return nil
}

// StatusFor maps a wire error code to an HTTP status.
func StatusFor(code string) int {
	switch code {
	case signal.CodeValidation, signal.CodeBadPayload:
		return http.StatusBadRequest
	case signal.CodeCapture, signal.CodeNotMounted, signal.CodeNotJoined, signal.CodeJoined, signal.CodeStale:
		return http.StatusConflict
	case signal.CodeClosed:
		return http.StatusGone
	case signal.CodeRateLimited:
		return http.StatusTooManyRequests
	default:
		return http.StatusInternalServerError
	}
}

func writeError(c *gin.Context, err error) {
	code := signal.ErrorCode(err)
	status := StatusFor(code)
	if status >= http.StatusInternalServerError {
		log.Error().Err(err).Str("module", "adapters.http").Str("path", c.FullPath()).Msg("request failed")
	}
	c.JSON(status, gin.H{"error": code, "message": err.Error()})
}
