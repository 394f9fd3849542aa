package http

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/dkeye/CoNote/internal/adapters/rtc"
	"github.com/dkeye/CoNote/internal/adapters/signal"
	"github.com/dkeye/CoNote/internal/adapters/theme"
	"github.com/dkeye/CoNote/internal/app"
	"github.com/dkeye/CoNote/internal/app/session"
	"github.com/dkeye/CoNote/internal/config"
	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type client struct {
	t       *testing.T
	r       *gin.Engine
	cookies []*http.Cookie
}

func newClient(t *testing.T, dev *rtc.LocalDevice, limiter *signal.RateLimiter) (*client, *app.Registry) {
	t.Helper()
	gin.SetMode(gin.TestMode)
	themes := theme.NewMemoryStore()
	reg := app.NewRegistry(func(token string) *session.Shell {
		return session.New(session.Options{
			Client:       token,
			Device:       dev,
			Themes:       themes,
			LocalSurface: rtc.NewSurface("local", true),
		})
	})
	t.Cleanup(reg.CloseAll)

	cfg := &config.Config{
		Mode:       "test",
		Secret:     "test-secret",
		StaticPath: t.TempDir(),
		PingPeriod: time.Minute,
		Devices:    config.DevicesConfig{AcquireTimeout: time.Second},
	}
	r := SetupRouter(context.Background(), cfg, reg, limiter)
	return &client{t: t, r: r}, reg
}

func (c *client) do(method, path, body string) (int, map[string]any) {
	c.t.Helper()
	req := httptest.NewRequest(method, path, strings.NewReader(body))
	if body != "" {
		req.Header.Set("Content-Type", "application/json")
	}
	for _, ck := range c.cookies {
		req.AddCookie(ck)
	}
	w := httptest.NewRecorder()
	c.r.ServeHTTP(w, req)
	if got := w.Result().Cookies(); len(got) > 0 {
		c.cookies = got
	}

	var out map[string]any
	if w.Body.Len() > 0 {
		require.NoError(c.t, json.Unmarshal(w.Body.Bytes(), &out), w.Body.String())
	}
	return w.Code, out
}

func field(m map[string]any, path ...string) any {
	var cur any = m
	for _, p := range path {
		obj, ok := cur.(map[string]any)
		if !ok {
			return nil
		}
		cur = obj[p]
	}
	return cur
}

func TestSessionLifecycle(t *testing.T) {
	c, reg := newClient(t, rtc.NewLocalDevice(rtc.DeviceOptions{}), nil)

	code, body := c.do(http.MethodGet, "/api/session", "")
	require.Equal(t, http.StatusOK, code)
	assert.Equal(t, "not_mounted", field(body, "state", "phase"))
	require.NotEmpty(t, c.cookies, "client token cookie issued")

	code, body = c.do(http.MethodPost, "/api/session/mount", "")
	require.Equal(t, http.StatusOK, code)
	assert.Equal(t, "unjoined", field(body, "state", "phase"))

	code, body = c.do(http.MethodPost, "/api/session/join", `{"name":"Ada"}`)
	require.Equal(t, http.StatusOK, code)
	assert.Equal(t, "joined", field(body, "state", "phase"))
	assert.Equal(t, "Ada", field(body, "status", "connected_as"))
	assert.Equal(t, 1, reg.Len(), "same cookie, same session")

	code, body = c.do(http.MethodPost, "/api/session/audio", "")
	require.Equal(t, http.StatusOK, code)
	assert.Equal(t, true, field(body, "state", "media", "audio_enabled"))
	assert.Equal(t, "Leave Audio", field(body, "header", "audio_label"))
	assert.Equal(t, float64(1), field(body, "status", "in_audio"))

	code, body = c.do(http.MethodPost, "/api/session/video", "")
	require.Equal(t, http.StatusOK, code)
	assert.Equal(t, true, field(body, "header", "call_button"))

	code, _ = c.do(http.MethodPost, "/api/session/call", "")
	require.Equal(t, http.StatusOK, code)
	code, body = c.do(http.MethodGet, "/api/session/overlay", "")
	require.Equal(t, http.StatusOK, code)
	assert.Equal(t, true, body["visible"])
	assert.Len(t, body["slots"], 6)

	code, body = c.do(http.MethodPut, "/api/session/text", `{"text":"hello world","selection":{"start":0,"end":0}}`)
	require.Equal(t, http.StatusOK, code)
	assert.Equal(t, float64(11), field(body, "status", "characters"))

	code, body = c.do(http.MethodPost, "/api/session/format", `{"format":"underline","selection":{"start":6,"end":11}}`)
	require.Equal(t, http.StatusOK, code)
	assert.Equal(t, "hello __world__", field(body, "state", "text"))

	code, body = c.do(http.MethodPost, "/api/session/key", `{"key":"q","ctrl":true}`)
	require.Equal(t, http.StatusOK, code)
	assert.Equal(t, false, body["handled"])

	code, body = c.do(http.MethodPost, "/api/session/theme", "")
	require.Equal(t, http.StatusOK, code)
	assert.Equal(t, "light", field(body, "state", "theme"))
	assert.Equal(t, "sun", field(body, "header", "theme_icon"))

	code, body = c.do(http.MethodPost, "/api/session/leave", "")
	require.Equal(t, http.StatusOK, code)
	assert.Equal(t, "unjoined", field(body, "state", "phase"))
	assert.Equal(t, "hello __world__", field(body, "state", "text"))

	code, body = c.do(http.MethodDelete, "/api/session", "")
	require.Equal(t, http.StatusOK, code)
	assert.Equal(t, true, body["closed"])
	assert.Equal(t, 0, reg.Len())
}

func TestErrorStatuses(t *testing.T) {
	c, _ := newClient(t, rtc.NewLocalDevice(rtc.DeviceOptions{Video: rtc.Missing}), nil)

	code, body := c.do(http.MethodPost, "/api/session/join", `{"name":"Ada"}`)
	assert.Equal(t, http.StatusConflict, code)
	assert.Equal(t, signal.CodeNotMounted, body["error"])

	c.do(http.MethodPost, "/api/session/mount", "")

	code, body = c.do(http.MethodPost, "/api/session/join", `{"name":"   "}`)
	assert.Equal(t, http.StatusBadRequest, code)
	assert.Equal(t, signal.CodeValidation, body["error"])

	code, body = c.do(http.MethodPost, "/api/session/join", `{"name":`)
	assert.Equal(t, http.StatusBadRequest, code)
	assert.Equal(t, signal.CodeBadPayload, body["error"])

	code, body = c.do(http.MethodPost, "/api/session/mute", "")
	assert.Equal(t, http.StatusConflict, code)
	assert.Equal(t, signal.CodeNotJoined, body["error"])

	c.do(http.MethodPost, "/api/session/join", `{"name":"Ada"}`)
	code, body = c.do(http.MethodPost, "/api/session/video", "")
	assert.Equal(t, http.StatusConflict, code)
	assert.Equal(t, signal.CodeCapture, body["error"])

	code, body = c.do(http.MethodPost, "/api/session/format", `{"format":"strike"}`)
	assert.Equal(t, http.StatusBadRequest, code)
	assert.Equal(t, signal.CodeValidation, body["error"])
}

func TestRateLimit(t *testing.T) {
	c, _ := newClient(t, rtc.NewLocalDevice(rtc.DeviceOptions{}), signal.NewRateLimiter(1, time.Minute))

	code, _ := c.do(http.MethodPost, "/api/session/mount", "")
	assert.Equal(t, http.StatusOK, code)
	code, body := c.do(http.MethodPost, "/api/session/theme", "")
	assert.Equal(t, http.StatusTooManyRequests, code)
	assert.Equal(t, signal.CodeRateLimited, body["error"])

	code, _ = c.do(http.MethodGet, "/api/session", "")
	assert.Equal(t, http.StatusOK, code, "reads are not limited")
}

func TestStatusFor(t *testing.T) {
	assert.Equal(t, http.StatusConflict, StatusFor(signal.CodeStale))
	assert.Equal(t, http.StatusGone, StatusFor(signal.CodeClosed))
	assert.Equal(t, http.StatusInternalServerError, StatusFor(signal.CodeInternal))
}

func TestHealthz(t *testing.T) {
	c, _ := newClient(t, rtc.NewLocalDevice(rtc.DeviceOptions{}), nil)
	code, body := c.do(http.MethodGet, "/healthz", "")
	assert.Equal(t, http.StatusOK, code)
	assert.Equal(t, "ok", body["status"])
}
