package history

import "context"

// Repository port for persisting and querying analyses
type Repository interface {
	Save(ctx context.Context, r *Record) error
	Get(ctx context.Context, id RecordID) (*Record, error)
	Paginate(ctx context.Context, page, pageSize int) ([]*Record, error)
}

// FailureRepository port for persisting analysis failure causes
type FailureRepository interface {
	Save(ctx context.Context, f *Failure) error
	ListBySession(ctx context.Context, sessionID string, limit int) ([]*Failure, error)
}
