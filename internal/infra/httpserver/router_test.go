package httpserver

import (
	"bytes"
	"context"
	"encoding/json"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/sirupsen/logrus/hooks/test"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	appanalysis "github.com/bryanwahyu/scamguard/internal/application/analysis"
	"github.com/bryanwahyu/scamguard/internal/application/session"
	domain "github.com/bryanwahyu/scamguard/internal/domain/analysis"
	"github.com/bryanwahyu/scamguard/internal/infra/ai/fake"
	"github.com/bryanwahyu/scamguard/internal/middleware"
	"github.com/bryanwahyu/scamguard/internal/views"
)

var pngHeader = []byte("\x89PNG\r\n\x1a\n\x00\x00\x00\rIHDR\x00\x00\x00\x01\x00\x00\x00\x01\x08\x06\x00\x00\x00")

type harness struct {
	srv      http.Handler
	model    *fake.Model
	sessions *session.Manager
}

func newHarness(t *testing.T, mutate func(*Deps)) *harness {
	t.Helper()
	logger, _ := test.NewNullLogger()
	model := fake.New("")
	svc := &appanalysis.Service{Model: model, Log: logger}
	mgr := session.NewManager(svc, session.Options{Log: logger})
	t.Cleanup(func() {
		ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
		defer cancel()
		_ = mgr.Shutdown(ctx)
	})
	rnd, err := views.New()
	require.NoError(t, err)

	d := Deps{Analyses: svc, Sessions: mgr, Views: rnd, Log: logger, MaxUploadBytes: 1 << 20}
	if mutate != nil {
		mutate(&d)
	}
	return &harness{srv: NewRouter(d), model: model, sessions: mgr}
}

func (h *harness) do(req *http.Request) *httptest.ResponseRecorder {
	rec := httptest.NewRecorder()
	h.srv.ServeHTTP(rec, req)
	return rec
}

func jsonReq(method, path, body string) *http.Request {
	req := httptest.NewRequest(method, path, strings.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	return req
}

func multipartReq(t *testing.T, fields map[string]string, file []byte) *http.Request {
	t.Helper()
	var buf bytes.Buffer
	mw := multipart.NewWriter(&buf)
	for k, v := range fields {
		require.NoError(t, mw.WriteField(k, v))
	}
	if file != nil {
		fw, err := mw.CreateFormFile("image", "shot.png")
		require.NoError(t, err)
		_, err = fw.Write(file)
		require.NoError(t, err)
	}
	require.NoError(t, mw.Close())
	req := httptest.NewRequest(http.MethodPost, "/scan", &buf)
	req.Header.Set("Content-Type", mw.FormDataContentType())
	return req
}

func sessionCookieFrom(t *testing.T, rec *httptest.ResponseRecorder) *http.Cookie {
	t.Helper()
	for _, c := range rec.Result().Cookies() {
		if c.Name == sessionCookie {
			return c
		}
	}
	t.Fatal("session cookie not set")
	return nil
}

func TestIndex_StartsSession(t *testing.T) {
	h := newHarness(t, nil)
	rec := h.do(httptest.NewRequest(http.MethodGet, "/", nil))

	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), "Text / SMS")
	c := sessionCookieFrom(t, rec)
	assert.True(t, c.HttpOnly)
	assert.Equal(t, 1, h.sessions.Len())
}

func TestBrowserScan_TextToResult(t *testing.T) {
	h := newHarness(t, nil)
	cookie := sessionCookieFrom(t, h.do(httptest.NewRequest(http.MethodGet, "/", nil)))

	req := multipartReq(t, map[string]string{"mode": "text", "text": "Your parcel is held, pay $2"}, nil)
	req.AddCookie(cookie)
	rec := h.do(req)
	require.Equal(t, http.StatusSeeOther, rec.Code)
	assert.Equal(t, "/", rec.Header().Get("Location"))

	require.Eventually(t, func() bool {
		s, err := h.sessions.Get(cookie.Value)
		return err == nil && s.Phase == domain.PhaseResult
	}, 2*time.Second, 5*time.Millisecond)

	get := httptest.NewRequest(http.MethodGet, "/", nil)
	get.AddCookie(cookie)
	body := h.do(get).Body.String()
	assert.Contains(t, body, "LOW RISK")
	assert.Contains(t, body, "No suspicious elements found.")
	assert.Equal(t, 1, h.model.Calls())
}

func TestBrowserScan_EmptyTextIsNoop(t *testing.T) {
	h := newHarness(t, nil)
	req := multipartReq(t, map[string]string{"mode": "text", "text": "   "}, nil)
	rec := h.do(req)

	assert.Equal(t, http.StatusSeeOther, rec.Code)
	s, err := h.sessions.Get(sessionCookieFrom(t, rec).Value)
	require.NoError(t, err)
	assert.Equal(t, domain.PhaseIdle, s.Phase)
	assert.Equal(t, 0, h.model.Calls())
}

func TestBrowserScan_ImageUpload(t *testing.T) {
	h := newHarness(t, nil)
	h.model.Gate = make(chan struct{})
	defer close(h.model.Gate)

	rec := h.do(multipartReq(t, map[string]string{"mode": "image"}, pngHeader))
	require.Equal(t, http.StatusSeeOther, rec.Code)

	s, err := h.sessions.Get(sessionCookieFrom(t, rec).Value)
	require.NoError(t, err)
	assert.True(t, strings.HasPrefix(s.Image, "data:image/png;base64,"))
	assert.True(t, s.State.Loading)

	require.Eventually(t, func() bool { return h.model.Calls() == 1 }, 2*time.Second, 5*time.Millisecond)
	req := h.model.LastRequest()
	require.Len(t, req.Parts, 2)
	var img *domain.InlineImage
	for _, p := range req.Parts {
		if p.Image != nil {
			img = p.Image
		}
	}
	require.NotNil(t, img)
	assert.Equal(t, "image/png", img.MIMEType)
	assert.Equal(t, pngHeader, img.Data)
}

func TestBrowserScan_RejectsNonImage(t *testing.T) {
	h := newHarness(t, nil)
	rec := h.do(multipartReq(t, map[string]string{"mode": "image"}, []byte("just some text, not a picture")))
	assert.Equal(t, http.StatusUnsupportedMediaType, rec.Code)
}

func TestBrowserScan_UploadTooLarge(t *testing.T) {
	h := newHarness(t, func(d *Deps) { d.MaxUploadBytes = 512 })
	big := append(append([]byte{}, pngHeader...), bytes.Repeat([]byte{0}, 4096)...)
	rec := h.do(multipartReq(t, map[string]string{"mode": "image"}, big))
	assert.Equal(t, http.StatusRequestEntityTooLarge, rec.Code)
}

func TestBrowserModeAndReset(t *testing.T) {
	h := newHarness(t, nil)
	cookie := sessionCookieFrom(t, h.do(httptest.NewRequest(http.MethodGet, "/", nil)))
	_, err := h.sessions.SetURL(cookie.Value, "https://example.test")
	require.NoError(t, err)

	req := httptest.NewRequest(http.MethodPost, "/mode", strings.NewReader("mode=link"))
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	req.AddCookie(cookie)
	assert.Equal(t, http.StatusSeeOther, h.do(req).Code)
	s, _ := h.sessions.Get(cookie.Value)
	assert.Equal(t, domain.ModeLink, s.Mode)

	req = httptest.NewRequest(http.MethodPost, "/mode", strings.NewReader("mode=audio"))
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	req.AddCookie(cookie)
	assert.Equal(t, http.StatusBadRequest, h.do(req).Code)

	req = httptest.NewRequest(http.MethodPost, "/reset", nil)
	req.AddCookie(cookie)
	assert.Equal(t, http.StatusSeeOther, h.do(req).Code)
	s, _ = h.sessions.Get(cookie.Value)
	assert.Empty(t, s.URL)
	assert.Equal(t, domain.PhaseIdle, s.Phase)
}

func TestAPIAnalyze(t *testing.T) {
	h := newHarness(t, nil)
	rec := h.do(jsonReq(http.MethodPost, "/api/v1/analyze", `{"mode":"text","input":"hello grandma, new number"}`))

	require.Equal(t, http.StatusOK, rec.Code)
	var res domain.Result
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &res))
	assert.Equal(t, domain.RiskLow, res.RiskScore)
	assert.NotContains(t, rec.Body.String(), "sources")
}

func TestAPIAnalyze_Errors(t *testing.T) {
	h := newHarness(t, nil)
	assert.Equal(t, http.StatusBadRequest, h.do(jsonReq(http.MethodPost, "/api/v1/analyze", `{"mode":"audio","input":"x"}`)).Code)
	assert.Equal(t, http.StatusBadRequest, h.do(jsonReq(http.MethodPost, "/api/v1/analyze", `{"mode":"text","input":"   "}`)).Code)
	assert.Equal(t, http.StatusBadRequest, h.do(jsonReq(http.MethodPost, "/api/v1/analyze", `not json`)).Code)

	h.model.Error = assert.AnError
	rec := h.do(jsonReq(http.MethodPost, "/api/v1/analyze", `{"mode":"link","input":"https://examp1e.test"}`))
	assert.Equal(t, http.StatusBadGateway, rec.Code)
	assert.Equal(t, domain.FailedMessage+"\n", rec.Body.String())
}

func TestAPISessionLifecycle(t *testing.T) {
	h := newHarness(t, nil)

	rec := h.do(jsonReq(http.MethodPost, "/api/v1/sessions", ``))
	require.Equal(t, http.StatusCreated, rec.Code)
	var created session.Session
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &created))
	base := "/api/v1/sessions/" + created.ID

	rec = h.do(jsonReq(http.MethodPost, base+"/scan", ``))
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), `"started":false`)

	rec = h.do(jsonReq(http.MethodPut, base+"/input", `{"mode":"link","url":"https://lookalike.test"}`))
	require.Equal(t, http.StatusOK, rec.Code)

	rec = h.do(jsonReq(http.MethodPost, base+"/scan", ``))
	require.Equal(t, http.StatusAccepted, rec.Code)

	require.Eventually(t, func() bool {
		rec := h.do(httptest.NewRequest(http.MethodGet, base, nil))
		return strings.Contains(rec.Body.String(), `"phase":"result"`)
	}, 2*time.Second, 5*time.Millisecond)
	assert.True(t, h.model.LastRequest().WebSearch)

	rec = h.do(jsonReq(http.MethodPost, base+"/reset", ``))
	require.Equal(t, http.StatusOK, rec.Code)
	var reset session.Session
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &reset))
	assert.Equal(t, domain.PhaseIdle, reset.Phase)
	assert.Empty(t, reset.URL)
}

func TestAPISession_NotFoundAndBadID(t *testing.T) {
	h := newHarness(t, nil)
	assert.Equal(t, http.StatusNotFound, h.do(httptest.NewRequest(http.MethodGet, "/api/v1/sessions/5b6f2d4e-8c1a-4f7e-9a0b-2c3d4e5f6a7b", nil)).Code)
	assert.Equal(t, http.StatusBadRequest, h.do(httptest.NewRequest(http.MethodGet, "/api/v1/sessions/not-a-uuid", nil)).Code)

	rec := h.do(jsonReq(http.MethodPost, "/api/v1/sessions", ``))
	var created session.Session
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &created))
	rec = h.do(jsonReq(http.MethodPut, "/api/v1/sessions/"+created.ID+"/input", `{"mode":"video"}`))
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestAPIAnalyses_HistoryDisabled(t *testing.T) {
	h := newHarness(t, nil)
	assert.Equal(t, http.StatusNotFound, h.do(httptest.NewRequest(http.MethodGet, "/api/v1/analyses", nil)).Code)
}

func TestAPIKeyRequired(t *testing.T) {
	h := newHarness(t, func(d *Deps) { d.APIKeys = map[string]string{"ci": "secret"} })
	assert.Equal(t, http.StatusUnauthorized, h.do(jsonReq(http.MethodPost, "/api/v1/sessions", ``)).Code)

	req := jsonReq(http.MethodPost, "/api/v1/sessions", ``)
	req.Header.Set("Authorization", "Bearer secret")
	assert.Equal(t, http.StatusCreated, h.do(req).Code)

	// browser routes stay open
	assert.Equal(t, http.StatusOK, h.do(httptest.NewRequest(http.MethodGet, "/", nil)).Code)
}

func TestRateLimitOnAnalyze(t *testing.T) {
	limiter := middleware.NewRateLimiter(1, 1)
	t.Cleanup(limiter.Close)
	h := newHarness(t, func(d *Deps) { d.Limiter = limiter })

	body := `{"mode":"text","input":"free gift card"}`
	assert.Equal(t, http.StatusOK, h.do(jsonReq(http.MethodPost, "/api/v1/analyze", body)).Code)
	assert.Equal(t, http.StatusTooManyRequests, h.do(jsonReq(http.MethodPost, "/api/v1/analyze", body)).Code)
}

func TestOpsEndpoints(t *testing.T) {
	h := newHarness(t, nil)
	assert.Equal(t, http.StatusOK, h.do(httptest.NewRequest(http.MethodGet, "/health", nil)).Code)
	assert.Equal(t, http.StatusOK, h.do(httptest.NewRequest(http.MethodGet, "/ready", nil)).Code)
	assert.Equal(t, "ok", h.do(httptest.NewRequest(http.MethodGet, "/live", nil)).Body.String())

	rec := h.do(httptest.NewRequest(http.MethodGet, "/metrics", nil))
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), "analyses_total")
}
