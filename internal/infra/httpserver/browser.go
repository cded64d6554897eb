package httpserver

import (
	"errors"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"strings"

	"github.com/gabriel-vasile/mimetype"

	"github.com/bryanwahyu/scamguard/internal/application/session"
	domain "github.com/bryanwahyu/scamguard/internal/domain/analysis"
	"github.com/bryanwahyu/scamguard/internal/infra/ai/prompt"
	"github.com/bryanwahyu/scamguard/internal/middleware"
)

var errNotImage = errors.New("uploaded file is not an image")

// GET /
func (r *Router) handleIndex(w http.ResponseWriter, req *http.Request) error {
	s := r.browserSession(w, req)
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	w.Header().Set("Cache-Control", "no-store")
	return r.views.Render(w, s)
}

// POST /mode  form: mode
func (r *Router) handleMode(w http.ResponseWriter, req *http.Request) error {
	s := r.browserSession(w, req)
	mode, ok := domain.ParseMode(req.PostFormValue("mode"))
	if !ok {
		return fmt.Errorf("%w: %q", domain.ErrUnknownMode, req.PostFormValue("mode"))
	}
	if _, err := r.sessions.SetMode(s.ID, mode); err != nil {
		return err
	}
	return seeOther(w, req)
}

// POST /scan  multipart: mode, text, url, image (file)
// Submitted fields replace the stored ones before the scan is attempted.
func (r *Router) handleScan(w http.ResponseWriter, req *http.Request) error {
	s := r.browserSession(w, req)
	req.Body = http.MaxBytesReader(w, req.Body, r.maxUpload)
	if err := req.ParseMultipartForm(r.maxUpload); err != nil && !errors.Is(err, http.ErrNotMultipart) {
		return err
	}

	in, err := r.formInput(req)
	if err != nil {
		return err
	}
	if _, err := r.sessions.Update(s.ID, in); err != nil {
		return err
	}
	if _, _, err := r.sessions.Scan(s.ID); err != nil {
		return err
	}
	return seeOther(w, req)
}

// POST /image/clear
func (r *Router) handleClearImage(w http.ResponseWriter, req *http.Request) error {
	s := r.browserSession(w, req)
	if _, err := r.sessions.ClearImage(s.ID); err != nil {
		return err
	}
	return seeOther(w, req)
}

// POST /reset
func (r *Router) handleReset(w http.ResponseWriter, req *http.Request) error {
	s := r.browserSession(w, req)
	if _, err := r.sessions.Reset(s.ID); err != nil {
		return err
	}
	return seeOther(w, req)
}

func (r *Router) formInput(req *http.Request) (session.Input, error) {
	var in session.Input
	if v, ok := formValue(req, "mode"); ok {
		mode, valid := domain.ParseMode(v)
		if !valid {
			return in, fmt.Errorf("%w: %q", domain.ErrUnknownMode, v)
		}
		in.Mode = &mode
	}
	if v, ok := formValue(req, "text"); ok {
		v = middleware.SanitizeString(v)
		in.Text = &v
	}
	if v, ok := formValue(req, "url"); ok {
		v = strings.TrimSpace(v)
		in.URL = &v
	}

	file, _, err := req.FormFile("image")
	switch {
	case errors.Is(err, http.ErrMissingFile), errors.Is(err, http.ErrNotMultipart):
		return in, nil
	case err != nil:
		return in, err
	}
	defer file.Close()
	uri, err := imageDataURI(file)
	if err != nil {
		return in, err
	}
	if uri != "" {
		in.Image = &uri
	}
	return in, nil
}

// imageDataURI sniffs the upload and encodes it as a data URI.
func imageDataURI(f multipart.File) (string, error) {
	data, err := io.ReadAll(f)
	if err != nil {
		return "", err
	}
	if len(data) == 0 {
		return "", nil
	}
	mt := mimetype.Detect(data)
	if !strings.HasPrefix(mt.String(), "image/") {
		return "", fmt.Errorf("%w: %s", errNotImage, mt.String())
	}
	return prompt.DataURI(domain.InlineImage{MIMEType: mt.String(), Data: data}), nil
}

func formValue(req *http.Request, key string) (string, bool) {
	vals, ok := req.Form[key]
	if !ok || len(vals) == 0 {
		return "", false
	}
	return vals[0], true
}

func seeOther(w http.ResponseWriter, req *http.Request) error {
	http.Redirect(w, req, "/", http.StatusSeeOther)
	return nil
}
