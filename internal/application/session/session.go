package session

import (
	"context"
	"errors"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
	log "github.com/sirupsen/logrus"

	"github.com/bryanwahyu/scamguard/internal/application"
	appanalysis "github.com/bryanwahyu/scamguard/internal/application/analysis"
	domain "github.com/bryanwahyu/scamguard/internal/domain/analysis"
)

// ErrNotFound is returned for unknown or evicted session IDs.
var ErrNotFound = errors.New("session not found")

// Analyzer runs one analysis. *appanalysis.Service implements it.
type Analyzer interface {
	Analyze(ctx context.Context, cmd appanalysis.AnalyzeCommand) (*domain.Result, error)
}

// Session is a snapshot of one user's scan workspace.
type Session struct {
	ID        string           `json:"id"`
	Mode      domain.InputMode `json:"mode"`
	Text      string           `json:"text"`
	URL       string           `json:"url"`
	Image     string           `json:"image,omitempty"` // data URI
	State     domain.State     `json:"state"`
	Phase     domain.Phase     `json:"phase"`
	UpdatedAt time.Time        `json:"updated_at"`
}

// Input carries optional field updates; nil fields are left unchanged.
type Input struct {
	Mode  *domain.InputMode
	Text  *string
	URL   *string
	Image *string
}

// ActiveInput is the input the current mode would submit.
func (s Session) ActiveInput() string {
	switch s.Mode {
	case domain.ModeImage:
		return s.Image
	case domain.ModeLink:
		return strings.TrimSpace(s.URL)
	default:
		return s.Text
	}
}

// CanScan reports whether the active mode has input and nothing is in flight.
func (s Session) CanScan() bool {
	return !s.State.Loading && appanalysis.HasInput(s.Mode, s.ActiveInput())
}

type entry struct {
	Session
	cancel     context.CancelFunc
	generation uint64
}

// Options tune a Manager.
type Options struct {
	// TTL evicts sessions idle for longer than this; zero disables eviction.
	TTL time.Duration
	// ScanTimeout bounds one analysis; zero leaves it to the transport.
	ScanTimeout time.Duration
	Clock       application.Clock
	Log         log.FieldLogger
}

// Manager owns every session and is the only place their state changes.
type Manager struct {
	analyzer Analyzer
	opts     Options

	mu       sync.Mutex
	sessions map[string]*entry

	base     context.Context
	stop     context.CancelFunc
	inflight sync.WaitGroup
}

func NewManager(analyzer Analyzer, opts Options) *Manager {
	if opts.Clock == nil {
		opts.Clock = application.SystemClock{}
	}
	if opts.Log == nil {
		opts.Log = log.StandardLogger()
	}
	base, stop := context.WithCancel(context.Background())
	m := &Manager{
		analyzer: analyzer,
		opts:     opts,
		sessions: make(map[string]*entry),
		base:     base,
		stop:     stop,
	}
	if opts.TTL > 0 {
		go m.cleanup()
	}
	return m
}

// Create starts an idle session in text mode.
func (m *Manager) Create() Session {
	e := &entry{Session: Session{
		ID:        uuid.New().String(),
		Mode:      domain.ModeText,
		UpdatedAt: m.opts.Clock.Now(),
	}}
	m.mu.Lock()
	m.sessions[e.ID] = e
	m.mu.Unlock()
	return e.snapshot()
}

func (m *Manager) Get(id string) (Session, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	e, ok := m.sessions[id]
	if !ok {
		return Session{}, ErrNotFound
	}
	return e.snapshot(), nil
}

// Update applies input edits. Edits during loading change the stored
// fields only; the in-flight request keeps the input it started with.
func (m *Manager) Update(id string, in Input) (Session, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	e, ok := m.sessions[id]
	if !ok {
		return Session{}, ErrNotFound
	}
	if in.Mode != nil {
		if _, ok := domain.ParseMode(string(*in.Mode)); !ok {
			return Session{}, domain.ErrUnknownMode
		}
		e.Mode = *in.Mode
	}
	if in.Text != nil {
		e.Text = *in.Text
	}
	if in.URL != nil {
		e.URL = *in.URL
	}
	if in.Image != nil {
		e.Image = *in.Image
	}
	e.UpdatedAt = m.opts.Clock.Now()
	return e.snapshot(), nil
}

func (m *Manager) SetMode(id string, mode domain.InputMode) (Session, error) {
	return m.Update(id, Input{Mode: &mode})
}

func (m *Manager) SetText(id, text string) (Session, error) {
	return m.Update(id, Input{Text: &text})
}

func (m *Manager) SetURL(id, url string) (Session, error) {
	return m.Update(id, Input{URL: &url})
}

func (m *Manager) SetImage(id, dataURI string) (Session, error) {
	return m.Update(id, Input{Image: &dataURI})
}

func (m *Manager) ClearImage(id string) (Session, error) {
	empty := ""
	return m.Update(id, Input{Image: &empty})
}

// Scan moves an idle, result or error session to loading and starts the
// analysis. It returns false without doing anything when the active input
// is empty or a scan is already in flight.
func (m *Manager) Scan(id string) (bool, Session, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	e, ok := m.sessions[id]
	if !ok {
		return false, Session{}, ErrNotFound
	}
	if !e.CanScan() {
		return false, e.snapshot(), nil
	}

	e.State = domain.State{Loading: true}
	e.generation++
	e.UpdatedAt = m.opts.Clock.Now()

	ctx, cancel := context.WithCancel(m.base)
	if m.opts.ScanTimeout > 0 {
		var cancelTimeout context.CancelFunc
		ctx, cancelTimeout = context.WithTimeout(ctx, m.opts.ScanTimeout)
		parent := cancel
		cancel = func() { cancelTimeout(); parent() }
	}
	e.cancel = cancel

	cmd := appanalysis.AnalyzeCommand{SessionID: e.ID, Mode: e.Mode, Input: e.ActiveInput()}
	m.inflight.Add(1)
	go m.run(ctx, e.ID, e.generation, cmd)
	return true, e.snapshot(), nil
}

func (m *Manager) run(ctx context.Context, id string, generation uint64, cmd appanalysis.AnalyzeCommand) {
	defer m.inflight.Done()
	res, err := m.analyzer.Analyze(ctx, cmd)

	m.mu.Lock()
	defer m.mu.Unlock()
	e, ok := m.sessions[id]
	if !ok || e.generation != generation {
		m.opts.Log.WithField("session_id", id).Debug("discarding stale analysis")
		return
	}
	e.cancel()
	e.cancel = nil
	if err != nil {
		msg := domain.FailedMessage
		e.State = domain.State{Error: &msg}
	} else {
		e.State = domain.State{Result: res}
	}
	e.UpdatedAt = m.opts.Clock.Now()
}

// Reset returns a session to idle from any phase and clears text, URL and
// image. An in-flight scan is cancelled and its outcome discarded.
func (m *Manager) Reset(id string) (Session, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	e, ok := m.sessions[id]
	if !ok {
		return Session{}, ErrNotFound
	}
	if e.cancel != nil {
		e.cancel()
		e.cancel = nil
	}
	e.generation++
	e.Text, e.URL, e.Image = "", "", ""
	e.State = domain.State{}
	e.UpdatedAt = m.opts.Clock.Now()
	return e.snapshot(), nil
}

// Len reports the number of live sessions.
func (m *Manager) Len() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.sessions)
}

// Shutdown cancels in-flight scans and waits for them to return.
func (m *Manager) Shutdown(ctx context.Context) error {
	m.stop()
	done := make(chan struct{})
	go func() {
		m.inflight.Wait()
		close(done)
	}()
	select {
	case <-done:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

// Evict drops sessions idle since before cutoff. Loading sessions are kept.
func (m *Manager) Evict(cutoff time.Time) int {
	m.mu.Lock()
	defer m.mu.Unlock()
	n := 0
	for id, e := range m.sessions {
		if !e.State.Loading && e.UpdatedAt.Before(cutoff) {
			delete(m.sessions, id)
			n++
		}
	}
	return n
}

func (m *Manager) cleanup() {
	ticker := time.NewTicker(m.opts.TTL / 2)
	defer ticker.Stop()
	for {
		select {
		case <-m.base.Done():
			return
		case <-ticker.C:
			if n := m.Evict(m.opts.Clock.Now().Add(-m.opts.TTL)); n > 0 {
				m.opts.Log.WithField("evicted", n).Debug("idle sessions evicted")
			}
		}
	}
}

func (e *entry) snapshot() Session {
	s := e.Session
	s.Phase = s.State.Phase()
	return s
}
