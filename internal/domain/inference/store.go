package inference

import (
	"context"
	"time"
)

// Cache stores engine output keyed by a digest of model, params and text.
type Cache interface {
	Get(ctx context.Context, key string) (CachedSummary, bool, error)
	Put(ctx context.Context, key string, entry CachedSummary, ttl time.Duration) error
}

// RunRepository persists run records.
type RunRepository interface {
	Append(ctx context.Context, record RunRecord) error
	Recent(ctx context.Context, limit int) ([]RunRecord, error)
}
