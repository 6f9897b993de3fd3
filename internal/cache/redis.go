package cache

import (
	"context"
	"time"

	"github.com/redis/go-redis/v9"
)

// RedisStore backs the cache with a shared Redis instance.
type RedisStore struct {
	client *redis.Client
}

func NewRedisStore(client *redis.Client) *RedisStore {
	return &RedisStore{client: client}
}

func (s *RedisStore) Get(ctx context.Context, key string) ([]byte, bool) {
	bs, err := s.client.Get(ctx, key).Bytes()
	if err != nil {
		return nil, false
	}
	return bs, true
}

func (s *RedisStore) Set(ctx context.Context, key string, value []byte, ttl time.Duration) {
	_ = s.client.SetEx(ctx, key, value, ttl).Err()
}
