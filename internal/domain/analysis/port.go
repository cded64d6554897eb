package analysis

import (
	"context"
	"time"
)

// Model port (the external generative model)
type Model interface {
	Generate(ctx context.Context, req Request) (RawResponse, error)
}

// ImageStore port (archive for analyzed screenshots)
type ImageStore interface {
	PutImage(ctx context.Context, key string, img InlineImage) (string, error)
}

// Cache port (verdicts keyed by input digest)
type Cache interface {
	Get(ctx context.Context, key string) (*Result, bool, error)
	Set(ctx context.Context, key string, r *Result, ttl time.Duration) error
}
