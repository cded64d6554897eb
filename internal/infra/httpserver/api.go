package httpserver

import (
	"encoding/json"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"

	appanalysis "github.com/bryanwahyu/scamguard/internal/application/analysis"
	"github.com/bryanwahyu/scamguard/internal/application/session"
	domain "github.com/bryanwahyu/scamguard/internal/domain/analysis"
	"github.com/bryanwahyu/scamguard/internal/middleware"
)

// POST /api/v1/analyze
// Body: {"mode": "text|image|link", "input": "<text, url or image data URI>"}
// Runs one analysis synchronously, outside any session.
func (r *Router) handleAnalyze(w http.ResponseWriter, req *http.Request) error {
	var body struct {
		Mode  string `json:"mode" validate:"required,oneof=text image link"`
		Input string `json:"input" validate:"required"`
	}
	if err := middleware.DecodeJSON(req, r.jsonLimit(), &body); err != nil {
		return err
	}

	res, err := r.analyses.Analyze(req.Context(), appanalysis.AnalyzeCommand{
		Mode:  domain.InputMode(body.Mode),
		Input: body.Input,
	})
	if err != nil {
		return err
	}
	return writeJSON(w, http.StatusOK, res)
}

// GET /api/v1/analyses?page=&page_size=
func (r *Router) handleListAnalyses(w http.ResponseWriter, req *http.Request) error {
	page, _ := strconv.Atoi(req.URL.Query().Get("page"))
	size, _ := strconv.Atoi(req.URL.Query().Get("page_size"))

	list, err := r.analyses.List(req.Context(), middleware.ValidatePage(page), middleware.ValidateLimit(size))
	if err != nil {
		return err
	}
	return writeJSON(w, http.StatusOK, list)
}

// POST /api/v1/sessions
func (r *Router) handleCreateSession(w http.ResponseWriter, req *http.Request) error {
	return writeJSON(w, http.StatusCreated, r.sessions.Create())
}

// GET /api/v1/sessions/{id}
func (r *Router) handleGetSession(w http.ResponseWriter, req *http.Request) error {
	id, err := sessionID(req)
	if err != nil {
		return err
	}
	s, err := r.sessions.Get(id)
	if err != nil {
		return err
	}
	return writeJSON(w, http.StatusOK, s)
}

// PUT /api/v1/sessions/{id}/input
// Body: any of {"mode", "text", "url", "image"}; absent fields are kept.
func (r *Router) handleUpdateInput(w http.ResponseWriter, req *http.Request) error {
	id, err := sessionID(req)
	if err != nil {
		return err
	}
	var body struct {
		Mode  *string `json:"mode" validate:"omitempty,oneof=text image link"`
		Text  *string `json:"text"`
		URL   *string `json:"url"`
		Image *string `json:"image" validate:"omitempty,startswith=data:image/"`
	}
	if err := middleware.DecodeJSON(req, r.jsonLimit(), &body); err != nil {
		return err
	}

	in := session.Input{Text: body.Text, URL: body.URL, Image: body.Image}
	if body.Mode != nil {
		mode := domain.InputMode(*body.Mode)
		in.Mode = &mode
	}
	s, err := r.sessions.Update(id, in)
	if err != nil {
		return err
	}
	return writeJSON(w, http.StatusOK, s)
}

// POST /api/v1/sessions/{id}/scan
// 202 when a scan started; 200 with started=false when the guard refused.
func (r *Router) handleSessionScan(w http.ResponseWriter, req *http.Request) error {
	id, err := sessionID(req)
	if err != nil {
		return err
	}
	started, s, err := r.sessions.Scan(id)
	if err != nil {
		return err
	}
	status := http.StatusOK
	if started {
		status = http.StatusAccepted
	}
	return writeJSON(w, status, map[string]any{
		"started": started,
		"session": s,
	})
}

// POST /api/v1/sessions/{id}/reset
func (r *Router) handleSessionReset(w http.ResponseWriter, req *http.Request) error {
	id, err := sessionID(req)
	if err != nil {
		return err
	}
	s, err := r.sessions.Reset(id)
	if err != nil {
		return err
	}
	return writeJSON(w, http.StatusOK, s)
}

// GET /api/v1/sessions/{id}/failures?limit=
// Diagnostic view of why scans in this session failed.
func (r *Router) handleSessionFailures(w http.ResponseWriter, req *http.Request) error {
	id, err := sessionID(req)
	if err != nil {
		return err
	}
	limit, _ := strconv.Atoi(req.URL.Query().Get("limit"))
	list, err := r.analyses.FailuresFor(req.Context(), id, middleware.ValidateLimit(limit))
	if err != nil {
		return err
	}
	return writeJSON(w, http.StatusOK, list)
}

// jsonLimit leaves room for a base64 image inside the JSON body.
func (r *Router) jsonLimit() int64 {
	return r.maxUpload*4/3 + 4096
}

func sessionID(req *http.Request) (string, error) {
	id := chi.URLParam(req, "id")
	if err := middleware.ValidateSessionID(id); err != nil {
		return "", err
	}
	return id, nil
}

func writeJSON(w http.ResponseWriter, status int, v any) error {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	return json.NewEncoder(w).Encode(v)
}
