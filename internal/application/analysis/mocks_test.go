package analysis

import (
	"context"
	"time"

	"github.com/stretchr/testify/mock"

	domain "github.com/bryanwahyu/scamguard/internal/domain/analysis"
	"github.com/bryanwahyu/scamguard/internal/domain/history"
)

type recordRepo struct{ mock.Mock }

func (m *recordRepo) Save(ctx context.Context, r *history.Record) error {
	return m.Called(ctx, r).Error(0)
}

func (m *recordRepo) Get(ctx context.Context, id history.RecordID) (*history.Record, error) {
	args := m.Called(ctx, id)
	rec, _ := args.Get(0).(*history.Record)
	return rec, args.Error(1)
}

func (m *recordRepo) Paginate(ctx context.Context, page, pageSize int) ([]*history.Record, error) {
	args := m.Called(ctx, page, pageSize)
	recs, _ := args.Get(0).([]*history.Record)
	return recs, args.Error(1)
}

type failureRepo struct{ mock.Mock }

func (m *failureRepo) Save(ctx context.Context, f *history.Failure) error {
	return m.Called(ctx, f).Error(0)
}

func (m *failureRepo) ListBySession(ctx context.Context, sessionID string, limit int) ([]*history.Failure, error) {
	args := m.Called(ctx, sessionID, limit)
	out, _ := args.Get(0).([]*history.Failure)
	return out, args.Error(1)
}

type verdictCache struct{ mock.Mock }

func (m *verdictCache) Get(ctx context.Context, key string) (*domain.Result, bool, error) {
	args := m.Called(ctx, key)
	res, _ := args.Get(0).(*domain.Result)
	return res, args.Bool(1), args.Error(2)
}

func (m *verdictCache) Set(ctx context.Context, key string, r *domain.Result, ttl time.Duration) error {
	return m.Called(ctx, key, r, ttl).Error(0)
}

type imageStore struct{ mock.Mock }

func (m *imageStore) PutImage(ctx context.Context, key string, img domain.InlineImage) (string, error) {
	args := m.Called(ctx, key, img)
	return args.String(0), args.Error(1)
}
