package postgres

import (
	"context"
	"database/sql"
	"strings"
	"time"

	domain "github.com/bryanwahyu/scamguard/internal/domain/history"
)

type FailureRepository struct {
	db *sql.DB
}

func NewFailureRepository(db *sql.DB) *FailureRepository { return &FailureRepository{db: db} }

func (r *FailureRepository) Save(ctx context.Context, f *domain.Failure) error {
	const q = `
INSERT INTO scamguard_failures
  (session_id, mode, phase, message, created_at)
VALUES ($1,$2,$3,$4,$5)
RETURNING id`
	msg := f.Message
	if strings.TrimSpace(msg) == "" {
		msg = "-"
	}
	created := f.CreatedAt
	if created.IsZero() {
		created = time.Now()
	}
	return r.db.QueryRowContext(ctx, q, stringOrDash(f.SessionID), stringOrDash(f.Mode), stringOrDash(f.Phase), msg, created).Scan(&f.ID)
}

func (r *FailureRepository) ListBySession(ctx context.Context, sessionID string, limit int) ([]*domain.Failure, error) {
	if limit <= 0 {
		limit = 20
	}
	const q = `
SELECT id, session_id, mode, phase, message, created_at
FROM scamguard_failures
WHERE session_id = $1
ORDER BY created_at DESC, id DESC
LIMIT $2;`
	rows, err := r.db.QueryContext(ctx, q, sessionID, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var out []*domain.Failure
	for rows.Next() {
		var f domain.Failure
		if err := rows.Scan(&f.ID, &f.SessionID, &f.Mode, &f.Phase, &f.Message, &f.CreatedAt); err != nil {
			return nil, err
		}
		out = append(out, &f)
	}
	return out, rows.Err()
}
