package httpserver

import (
	"context"
	"database/sql"
	"errors"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/cors"
	log "github.com/sirupsen/logrus"

	appanalysis "github.com/bryanwahyu/scamguard/internal/application/analysis"
	"github.com/bryanwahyu/scamguard/internal/application/session"
	domain "github.com/bryanwahyu/scamguard/internal/domain/analysis"
	"github.com/bryanwahyu/scamguard/internal/domain/history"
	"github.com/bryanwahyu/scamguard/internal/metrics"
	"github.com/bryanwahyu/scamguard/internal/middleware"
	"github.com/bryanwahyu/scamguard/internal/views"
)

// Analyzer is the part of the analysis service the router needs.
type Analyzer interface {
	Analyze(ctx context.Context, cmd appanalysis.AnalyzeCommand) (*domain.Result, error)
	List(ctx context.Context, page, pageSize int) (*history.Page, error)
	FailuresFor(ctx context.Context, sessionID string, limit int) ([]*history.Failure, error)
}

type Deps struct {
	Analyses Analyzer
	Sessions *session.Manager
	Views    *views.Renderer
	Log      log.FieldLogger
	// Limiter throttles scan and analyze calls per client IP when set.
	Limiter        *middleware.RateLimiter
	Health         map[string]middleware.HealthChecker
	MaxUploadBytes int64
	CORSOrigins    []string
	APIKeys        map[string]string
	// SecureCookie marks the session cookie Secure.
	SecureCookie bool
}

type Router struct {
	analyses  Analyzer
	sessions  *session.Manager
	views     *views.Renderer
	log       log.FieldLogger
	maxUpload int64
	secure    bool
}

func NewRouter(d Deps) http.Handler {
	r := &Router{
		analyses:  d.Analyses,
		sessions:  d.Sessions,
		views:     d.Views,
		log:       d.Log,
		maxUpload: d.MaxUploadBytes,
		secure:    d.SecureCookie,
	}
	if r.log == nil {
		r.log = log.StandardLogger()
	}
	if r.maxUpload <= 0 {
		r.maxUpload = 5 << 20
	}

	throttle := func(next http.Handler) http.Handler { return next }
	if d.Limiter != nil {
		throttle = middleware.RateLimit(d.Limiter)
	}

	mux := chi.NewRouter()
	mux.Use(metrics.Middleware)
	mux.Use(middleware.Logging(r.log))

	mux.Get("/health", middleware.HealthHandler(d.Health))
	mux.Get("/ready", middleware.ReadinessHandler)
	mux.Get("/live", middleware.LivenessHandler)
	mux.Get("/metrics", metrics.Handler)

	mux.Get("/", r.wrap(r.handleIndex))
	mux.Post("/mode", r.wrap(r.handleMode))
	mux.With(throttle).Post("/scan", r.wrap(r.handleScan))
	mux.Post("/image/clear", r.wrap(r.handleClearImage))
	mux.Post("/reset", r.wrap(r.handleReset))

	origins := d.CORSOrigins
	if len(origins) == 0 {
		origins = []string{"*"}
	}
	mux.Route("/api/v1", func(rt chi.Router) {
		rt.Use(cors.Handler(cors.Options{
			AllowedOrigins: origins,
			AllowedMethods: []string{http.MethodGet, http.MethodPost, http.MethodPut, http.MethodOptions},
			AllowedHeaders: []string{"Authorization", "Content-Type"},
			MaxAge:         300,
		}))
		rt.Use(middleware.APIKeyAuth(d.APIKeys))

		rt.With(throttle).Post("/analyze", r.wrap(r.handleAnalyze))
		rt.Get("/analyses", r.wrap(r.handleListAnalyses))
		rt.Post("/sessions", r.wrap(r.handleCreateSession))
		rt.Route("/sessions/{id}", func(s chi.Router) {
			s.Get("/", r.wrap(r.handleGetSession))
			s.Put("/input", r.wrap(r.handleUpdateInput))
			s.With(throttle).Post("/scan", r.wrap(r.handleSessionScan))
			s.Post("/reset", r.wrap(r.handleSessionReset))
			s.Get("/failures", r.wrap(r.handleSessionFailures))
		})
	})

	return mux
}

type handlerFunc func(http.ResponseWriter, *http.Request) error

func (r *Router) wrap(h handlerFunc) http.HandlerFunc {
	return func(w http.ResponseWriter, req *http.Request) {
		err := h(w, req)
		if err == nil {
			return
		}
		var reqErr *middleware.RequestError
		var tooBig *http.MaxBytesError
		switch {
		case errors.As(err, &reqErr):
			http.Error(w, reqErr.Msg, http.StatusBadRequest)
		case errors.Is(err, domain.ErrEmptyInput), errors.Is(err, domain.ErrUnknownMode):
			http.Error(w, err.Error(), http.StatusBadRequest)
		case errors.Is(err, errNotImage):
			http.Error(w, err.Error(), http.StatusUnsupportedMediaType)
		case errors.As(err, &tooBig):
			http.Error(w, "upload too large", http.StatusRequestEntityTooLarge)
		case errors.Is(err, session.ErrNotFound), errors.Is(err, sql.ErrNoRows):
			http.Error(w, "not found", http.StatusNotFound)
		case errors.Is(err, appanalysis.ErrHistoryDisabled):
			http.Error(w, err.Error(), http.StatusNotFound)
		case errors.Is(err, domain.ErrAnalysisFailed):
			http.Error(w, domain.FailedMessage, http.StatusBadGateway)
		default:
			r.log.WithError(err).WithField("path", req.URL.Path).Error("request failed")
			http.Error(w, "internal error", http.StatusInternalServerError)
		}
	}
}

const sessionCookie = "scamguard_session"

// browserSession returns the cookie's session, starting a new one when the
// cookie is missing or its session was evicted.
func (r *Router) browserSession(w http.ResponseWriter, req *http.Request) session.Session {
	if c, err := req.Cookie(sessionCookie); err == nil {
		if s, err := r.sessions.Get(c.Value); err == nil {
			return s
		}
	}
	s := r.sessions.Create()
	http.SetCookie(w, &http.Cookie{
		Name:     sessionCookie,
		Value:    s.ID,
		Path:     "/",
		HttpOnly: true,
		Secure:   r.secure,
		SameSite: http.SameSiteLaxMode,
		Expires:  time.Now().Add(24 * time.Hour),
	})
	return s
}
