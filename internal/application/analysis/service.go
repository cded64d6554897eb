package analysis

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	log "github.com/sirupsen/logrus"

	"github.com/bryanwahyu/scamguard/internal/application"
	domain "github.com/bryanwahyu/scamguard/internal/domain/analysis"
	"github.com/bryanwahyu/scamguard/internal/domain/history"
	"github.com/bryanwahyu/scamguard/internal/infra/ai/prompt"
	"github.com/bryanwahyu/scamguard/internal/metrics"
)

// ErrHistoryDisabled is returned by List when no repository is configured.
var ErrHistoryDisabled = errors.New("analysis history is not configured")

// Service runs one analysis: build the request, call the model once,
// normalize the verdict. Records, Failures, Images and Cache are optional.
// Service is safe for concurrent use.
type Service struct {
	Model      domain.Model
	Normalizer *domain.Normalizer
	Records    history.Repository
	Failures   history.FailureRepository
	Images     domain.ImageStore
	Cache      domain.Cache
	CacheTTL   time.Duration
	Clock      application.Clock
	Log        log.FieldLogger
}

// AnalyzeCommand is one user submission.
type AnalyzeCommand struct {
	SessionID string
	Mode      domain.InputMode
	Input     string
}

// HasInput reports whether the active mode's required input is present.
func HasInput(mode domain.InputMode, input string) bool {
	if mode == domain.ModeImage {
		return input != ""
	}
	return strings.TrimSpace(input) != ""
}

// Digest identifies an input for caching and auditing without storing it.
func Digest(mode domain.InputMode, input string) string {
	sum := sha256.Sum256([]byte(string(mode) + "\x00" + input))
	return hex.EncodeToString(sum[:])
}

// Analyze returns ErrEmptyInput when there is nothing to scan, ErrUnknownMode
// for an unsupported mode and ErrAnalysisFailed for every other failure.
// The cause of a failure is logged and recorded, never returned.
func (s *Service) Analyze(ctx context.Context, cmd AnalyzeCommand) (*domain.Result, error) {
	if _, ok := domain.ParseMode(string(cmd.Mode)); !ok {
		return nil, fmt.Errorf("%w: %q", domain.ErrUnknownMode, cmd.Mode)
	}
	if !HasInput(cmd.Mode, cmd.Input) {
		return nil, domain.ErrEmptyInput
	}

	req, err := prompt.Build(cmd.Input, cmd.Mode)
	if err != nil {
		return nil, s.fail(ctx, cmd, history.PhaseBuild, err)
	}

	digest := Digest(cmd.Mode, cmd.Input)
	if cached := s.cached(ctx, digest); cached != nil {
		return cached, nil
	}

	metrics.IncrementAnalyses()
	metrics.IncrementAnalysesRunning()
	raw, err := s.Model.Generate(ctx, req)
	metrics.DecrementAnalysesRunning()
	if err != nil {
		return nil, s.fail(ctx, cmd, history.PhaseGenerate, err)
	}

	res, err := s.normalizer().Normalize(raw)
	if err != nil {
		return nil, s.fail(ctx, cmd, history.PhaseNormalize, err)
	}

	s.record(ctx, cmd, req, digest, res)
	if s.Cache != nil {
		if err := s.Cache.Set(ctx, digest, res, s.cacheTTL()); err != nil {
			s.logger().WithError(err).Warn("verdict cache set failed")
		}
	}
	return res, nil
}

// List returns a page of past analyses.
func (s *Service) List(ctx context.Context, page, pageSize int) (*history.Page, error) {
	if s.Records == nil {
		return nil, ErrHistoryDisabled
	}
	if page <= 0 {
		page = 1
	}
	if pageSize <= 0 {
		pageSize = 20
	}
	if pageSize > 100 {
		pageSize = 100
	}
	data, err := s.Records.Paginate(ctx, page, pageSize)
	if err != nil {
		return nil, err
	}
	return &history.Page{Data: data, Page: page, PageSize: pageSize}, nil
}

// FailuresFor returns the recorded causes of a session's failed analyses,
// newest first.
func (s *Service) FailuresFor(ctx context.Context, sessionID string, limit int) ([]*history.Failure, error) {
	if s.Failures == nil {
		return nil, ErrHistoryDisabled
	}
	if limit <= 0 || limit > 100 {
		limit = 20
	}
	return s.Failures.ListBySession(ctx, sessionID, limit)
}

func (s *Service) cached(ctx context.Context, digest string) *domain.Result {
	if s.Cache == nil {
		return nil
	}
	res, ok, err := s.Cache.Get(ctx, digest)
	if err != nil {
		s.logger().WithError(err).Warn("verdict cache get failed")
		return nil
	}
	if !ok {
		return nil
	}
	metrics.IncrementCacheHits()
	s.logger().WithField("digest", digest).Debug("verdict cache hit")
	return res
}

func (s *Service) fail(ctx context.Context, cmd AnalyzeCommand, phase string, cause error) error {
	metrics.IncrementAnalysesFailed()
	s.logger().WithFields(log.Fields{
		"session_id": cmd.SessionID,
		"mode":       cmd.Mode,
		"phase":      phase,
	}).WithError(cause).Error("analysis failed")

	if s.Failures != nil {
		f := &history.Failure{
			SessionID: cmd.SessionID,
			Mode:      string(cmd.Mode),
			Phase:     phase,
			Message:   cause.Error(),
			CreatedAt: s.now(),
		}
		// the request context may already be cancelled
		if err := s.Failures.Save(context.WithoutCancel(ctx), f); err != nil {
			s.logger().WithError(err).Warn("failure record not saved")
		}
	}
	return domain.ErrAnalysisFailed
}

func (s *Service) record(ctx context.Context, cmd AnalyzeCommand, req domain.Request, digest string, res *domain.Result) {
	if s.Records == nil && s.Images == nil {
		return
	}
	now := s.now()
	rec := &history.Record{
		ID:          history.RecordID(uuid.New().String()),
		SessionID:   cmd.SessionID,
		Mode:        string(cmd.Mode),
		InputDigest: digest,
		RiskScore:   string(res.RiskScore),
		ScamType:    res.ScamType,
		CreatedAt:   now,
	}

	if s.Images != nil && cmd.Mode == domain.ModeImage {
		for _, p := range req.Parts {
			if p.Image == nil {
				continue
			}
			key := fmt.Sprintf("%s/%s", now.UTC().Format("2006/01/02"), rec.ID)
			url, err := s.Images.PutImage(ctx, key, *p.Image)
			if err != nil {
				s.logger().WithError(err).WithField("record_id", rec.ID).Warn("screenshot archive failed")
				break
			}
			rec.ImageURL = url
			break
		}
	}

	if s.Records == nil {
		return
	}
	body, err := json.Marshal(res)
	if err != nil {
		s.logger().WithError(err).Warn("result encode failed")
		return
	}
	rec.Result = string(body)
	if err := s.Records.Save(ctx, rec); err != nil {
		s.logger().WithError(err).WithField("record_id", rec.ID).Warn("analysis record not saved")
	}
}

var strictNormalizer = domain.NewNormalizer(false)

func (s *Service) normalizer() *domain.Normalizer {
	if s.Normalizer == nil {
		return strictNormalizer
	}
	return s.Normalizer
}

func (s *Service) logger() log.FieldLogger {
	if s.Log == nil {
		return log.StandardLogger()
	}
	return s.Log
}

func (s *Service) now() time.Time {
	if s.Clock == nil {
		return time.Now()
	}
	return s.Clock.Now()
}

func (s *Service) cacheTTL() time.Duration {
	if s.CacheTTL <= 0 {
		return 24 * time.Hour
	}
	return s.CacheTTL
}
