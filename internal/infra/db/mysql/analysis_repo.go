package mysql

import (
	"context"
	"database/sql"
	"strings"
	"time"

	domain "github.com/bryanwahyu/scamguard/internal/domain/history"
)

type AnalysisRepository struct {
	db *sql.DB
}

func NewAnalysisRepository(db *sql.DB) *AnalysisRepository {
	return &AnalysisRepository{db: db}
}

// Save inserts an analysis record
func (r *AnalysisRepository) Save(ctx context.Context, a *domain.Record) error {
	const q = `
INSERT INTO scamguard_analyses
  (id, session_id, mode, input_digest, risk_score, scam_type, result_json, image_url, created_at)
VALUES (?,?,?,?,?,?,?,?,?)
ON DUPLICATE KEY UPDATE
  risk_score=VALUES(risk_score), scam_type=VALUES(scam_type), result_json=VALUES(result_json), image_url=VALUES(image_url);
`
	// Ensure non-nullable fields have safe defaults
	session := stringOrDash(a.SessionID)
	scamType := stringOrDash(a.ScamType)
	result := a.Result
	if strings.TrimSpace(result) == "" {
		// result_json column requires valid JSON; use empty object
		result = "{}"
	}
	createdAt := a.CreatedAt
	if createdAt.IsZero() {
		createdAt = time.Now()
	}

	_, err := r.db.ExecContext(ctx, q, a.ID, session, a.Mode, a.InputDigest, a.RiskScore, scamType, result, a.ImageURL, createdAt)
	return err
}

// Get returns one record or sql.ErrNoRows
func (r *AnalysisRepository) Get(ctx context.Context, id domain.RecordID) (*domain.Record, error) {
	const q = `
SELECT id, session_id, mode, input_digest, risk_score, scam_type, result_json, image_url, created_at
FROM scamguard_analyses
WHERE id=? LIMIT 1;
`
	var a domain.Record
	err := r.db.QueryRowContext(ctx, q, id).Scan(
		&a.ID, &a.SessionID, &a.Mode, &a.InputDigest, &a.RiskScore, &a.ScamType, &a.Result, &a.ImageURL, &a.CreatedAt,
	)
	if err != nil {
		return nil, err
	}
	return &a, nil
}

// Paginate returns a page of analysis records ordered by created_at desc
func (r *AnalysisRepository) Paginate(ctx context.Context, page, pageSize int) ([]*domain.Record, error) {
	if page <= 0 {
		page = 1
	}
	if pageSize <= 0 {
		pageSize = 20
	}
	offset := (page - 1) * pageSize

	const q = `
SELECT id, session_id, mode, input_digest, risk_score, scam_type, result_json, image_url, created_at
FROM scamguard_analyses
ORDER BY created_at DESC, id DESC
LIMIT ? OFFSET ?;
`
	rows, err := r.db.QueryContext(ctx, q, pageSize, offset)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []*domain.Record
	for rows.Next() {
		var a domain.Record
		if err := rows.Scan(&a.ID, &a.SessionID, &a.Mode, &a.InputDigest, &a.RiskScore, &a.ScamType, &a.Result, &a.ImageURL, &a.CreatedAt); err != nil {
			return nil, err
		}
		out = append(out, &a)
	}
	return out, rows.Err()
}
