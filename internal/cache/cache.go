// Package cache abstracts the byte store behind the response cache so
// the service works the same whether Redis is reachable or not.
package cache

import (
	"context"
	"time"
)

// Store is a minimal TTL byte cache. Implementations must be safe for
// concurrent use and must treat failures as misses: callers never see
// an error, only absence.
type Store interface {
	Get(ctx context.Context, key string) ([]byte, bool)
	Set(ctx context.Context, key string, value []byte, ttl time.Duration)
}
