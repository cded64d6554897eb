package postgres

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

// Save inserts or updates an analysis record
func (r *AnalysisRepository) Save(ctx context.Context, a *domain.Record) error {
	const q = `
INSERT INTO scamguard_analyses
  (id, session_id, mode, input_digest, risk_score, scam_type, result_json, image_url, created_at)
VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9)
ON CONFLICT (id) DO UPDATE SET
  risk_score=EXCLUDED.risk_score,
  scam_type=EXCLUDED.scam_type,
  result_json=EXCLUDED.result_json,
  image_url=EXCLUDED.image_url;
`
	result := a.Result
	if strings.TrimSpace(result) == "" {
		result = "{}"
	}
	createdAt := a.CreatedAt
	if createdAt.IsZero() {
		createdAt = time.Now()
	}
	_, err := r.db.ExecContext(ctx, q, a.ID, stringOrDash(a.SessionID), a.Mode, a.InputDigest, a.RiskScore, stringOrDash(a.ScamType), result, a.ImageURL, createdAt)
	return err
}

// Get returns one record or sql.ErrNoRows
func (r *AnalysisRepository) Get(ctx context.Context, id domain.RecordID) (*domain.Record, error) {
	const q = `
SELECT id, session_id, mode, input_digest, risk_score, scam_type, result_json, image_url, created_at
FROM scamguard_analyses
WHERE id=$1 LIMIT 1;`
	var a domain.Record
	if err := r.db.QueryRowContext(ctx, q, id).Scan(
		&a.ID, &a.SessionID, &a.Mode, &a.InputDigest, &a.RiskScore, &a.ScamType, &a.Result, &a.ImageURL, &a.CreatedAt,
	); err != nil {
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
LIMIT $1 OFFSET $2;
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
