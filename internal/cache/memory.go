package cache

import (
	"context"
	"time"

	gocache "github.com/patrickmn/go-cache"
)

// MemoryStore is the in-process fallback used when Redis is not
// configured or unreachable at startup.
type MemoryStore struct {
	inner *gocache.Cache
}

func NewMemoryStore() *MemoryStore {
	return &MemoryStore{inner: gocache.New(gocache.NoExpiration, 5*time.Minute)}
}

func (s *MemoryStore) Get(_ context.Context, key string) ([]byte, bool) {
	v, ok := s.inner.Get(key)
	if !ok {
		return nil, false
	}
	bs, ok := v.([]byte)
	return bs, ok
}

func (s *MemoryStore) Set(_ context.Context, key string, value []byte, ttl time.Duration) {
	s.inner.Set(key, value, ttl)
}
