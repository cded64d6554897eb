package fake

import (
	"context"
	"sync"
	"sync/atomic"
	"time"

	"github.com/bryanwahyu/scamguard/internal/domain/analysis"
)

// DefaultResponse is a well-formed low-risk verdict.
const DefaultResponse = `{"risk_score":"Low","scam_type":"No Scam Detected","red_flags":[],"advice":"This content looks safe. Stay cautious with unexpected requests."}`

// Model is a scripted stand-in for a hosted model, used for local runs and
// tests. It is safe for concurrent use.
type Model struct {
	ResponseText string
	Chunks       []analysis.GroundingChunk
	Error        error
	// Delay holds every call before it answers.
	Delay time.Duration
	// Gate, when set, blocks every call until it is closed or ctx is done.
	Gate chan struct{}

	calls atomic.Int64
	mu    sync.Mutex
	last  analysis.Request
}

func New(response string) *Model {
	return &Model{ResponseText: response}
}

func (m *Model) Generate(ctx context.Context, req analysis.Request) (analysis.RawResponse, error) {
	m.calls.Add(1)
	m.mu.Lock()
	m.last = req
	m.mu.Unlock()

	if m.Gate != nil {
		select {
		case <-m.Gate:
		case <-ctx.Done():
			return analysis.RawResponse{}, ctx.Err()
		}
	}
	if m.Delay > 0 {
		select {
		case <-time.After(m.Delay):
		case <-ctx.Done():
			return analysis.RawResponse{}, ctx.Err()
		}
	}
	if m.Error != nil {
		return analysis.RawResponse{}, m.Error
	}
	text := m.ResponseText
	if text == "" {
		text = DefaultResponse
	}
	return analysis.RawResponse{Text: text, Chunks: m.Chunks}, nil
}

// Calls reports how many generate calls were made.
func (m *Model) Calls() int { return int(m.calls.Load()) }

// LastRequest returns the most recent request.
func (m *Model) LastRequest() analysis.Request {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.last
}
