package middleware

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	log "github.com/sirupsen/logrus"
	"github.com/sirupsen/logrus/hooks/test"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var ok = http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
	w.WriteHeader(http.StatusTeapot)
	_, _ = w.Write([]byte("hi"))
})

func TestLogging_RecordsFields(t *testing.T) {
	logger, hook := test.NewNullLogger()
	h := Logging(logger)(ok)

	req := httptest.NewRequest(http.MethodGet, "/scan", nil)
	req.RemoteAddr = "203.0.113.9:5555"
	h.ServeHTTP(httptest.NewRecorder(), req)

	entry := hook.LastEntry()
	require.NotNil(t, entry)
	assert.Equal(t, log.InfoLevel, entry.Level)
	assert.Equal(t, http.StatusTeapot, entry.Data["status"])
	assert.Equal(t, "/scan", entry.Data["path"])
	assert.Equal(t, "203.0.113.9", entry.Data["ip"])
	assert.Equal(t, int64(2), entry.Data["bytes"])
}

func TestRateLimiter_RefillsOverTime(t *testing.T) {
	now := time.Date(2026, 10, 14, 9, 0, 0, 0, time.UTC)
	rl := newRateLimiter(2, 1, func() time.Time { return now })

	assert.True(t, rl.Allow("a"))
	assert.True(t, rl.Allow("a"))
	assert.False(t, rl.Allow("a"))
	assert.True(t, rl.Allow("b"), "buckets are per key")

	now = now.Add(time.Second)
	assert.True(t, rl.Allow("a"))
	assert.False(t, rl.Allow("a"))

	now = now.Add(time.Hour)
	rl.prune(10 * time.Minute)
	rl.mu.Lock()
	assert.Empty(t, rl.buckets)
	rl.mu.Unlock()
}

func TestRateLimit_Middleware(t *testing.T) {
	rl := newRateLimiter(1, 1, time.Now)
	h := RateLimit(rl)(ok)

	req := httptest.NewRequest(http.MethodPost, "/scan", nil)
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)
	assert.Equal(t, http.StatusTeapot, rec.Code)

	rec = httptest.NewRecorder()
	h.ServeHTTP(rec, req)
	assert.Equal(t, http.StatusTooManyRequests, rec.Code)
	assert.Equal(t, "60", rec.Header().Get("Retry-After"))
}

func TestClientIP(t *testing.T) {
	req := httptest.NewRequest(http.MethodGet, "/", nil)
	req.RemoteAddr = "198.51.100.1:1234"
	assert.Equal(t, "198.51.100.1", ClientIP(req))

	req.Header.Set("X-Forwarded-For", "192.0.2.7, 10.0.0.1")
	assert.Equal(t, "192.0.2.7", ClientIP(req))
}

func TestAPIKeyAuth(t *testing.T) {
	var seen string
	h := APIKeyAuth(map[string]string{"mobile": "k-123"})(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		seen = ClientFromContext(r.Context())
	}))

	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/api/v1/analyses", nil))
	assert.Equal(t, http.StatusUnauthorized, rec.Code)

	req := httptest.NewRequest(http.MethodGet, "/api/v1/analyses", nil)
	req.Header.Set("Authorization", "Bearer wrong")
	rec = httptest.NewRecorder()
	h.ServeHTTP(rec, req)
	assert.Equal(t, http.StatusUnauthorized, rec.Code)

	req.Header.Set("Authorization", "Bearer k-123")
	rec = httptest.NewRecorder()
	h.ServeHTTP(rec, req)
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "mobile", seen)
}

func TestAPIKeyAuth_DisabledWithoutKeys(t *testing.T) {
	rec := httptest.NewRecorder()
	APIKeyAuth(nil)(ok).ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/", nil))
	assert.Equal(t, http.StatusTeapot, rec.Code)
}

func TestHealthHandler(t *testing.T) {
	h := HealthHandler(map[string]HealthChecker{
		"cache": CheckFunc(func(context.Context) error { return nil }),
		"db":    CheckFunc(func(context.Context) error { return errors.New("connection refused") }),
	})
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/health", nil))

	assert.Equal(t, http.StatusServiceUnavailable, rec.Code)
	assert.Contains(t, rec.Body.String(), `"status":"unhealthy"`)
	assert.Contains(t, rec.Body.String(), "connection refused")
}

func TestDecodeJSON(t *testing.T) {
	type body struct {
		Mode  string `json:"mode" validate:"required,oneof=text image link"`
		Input string `json:"input" validate:"required"`
	}

	var dst body
	req := httptest.NewRequest(http.MethodPost, "/", strings.NewReader(`{"mode":"text","input":"hi"}`))
	require.NoError(t, DecodeJSON(req, 1024, &dst))
	assert.Equal(t, "hi", dst.Input)

	req = httptest.NewRequest(http.MethodPost, "/", strings.NewReader(`{"mode":"audio","input":"hi"}`))
	err := DecodeJSON(req, 1024, &dst)
	var rerr *RequestError
	require.ErrorAs(t, err, &rerr)
	assert.Contains(t, rerr.Msg, "mode (oneof)")

	req = httptest.NewRequest(http.MethodPost, "/", strings.NewReader(`{"mode":`))
	assert.ErrorAs(t, DecodeJSON(req, 1024, &dst), &rerr)
}

func TestValidateSessionID(t *testing.T) {
	assert.NoError(t, ValidateSessionID("5b6f2d4e-8c1a-4f7e-9a0b-2c3d4e5f6a7b"))
	assert.Error(t, ValidateSessionID("../etc"))
}

func TestSanitizeAndPaging(t *testing.T) {
	assert.Equal(t, "a\tb\nc", SanitizeString("a\tb\nc\x00\x07"))
	assert.Equal(t, 20, ValidateLimit(0))
	assert.Equal(t, 100, ValidateLimit(500))
	assert.Equal(t, 1, ValidatePage(-3))
}
