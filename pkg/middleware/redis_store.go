package middleware

import (
	"context"
	"errors"
	"time"

	pkgredis "github.com/prohmpiriya/shelf-booking/pkg/redis"
)

// RedisStore keeps idempotency records in Redis
type RedisStore struct {
	client *pkgredis.Client
}

// NewRedisStore creates a Store backed by client
func NewRedisStore(client *pkgredis.Client) *RedisStore {
	return &RedisStore{client: client}
}

func (s *RedisStore) Get(ctx context.Context, key string) ([]byte, error) {
	data, err := s.client.GetBytes(ctx, key)
	if errors.Is(err, pkgredis.Nil) {
		return nil, ErrRecordNotFound
	}
	return data, err
}

func (s *RedisStore) SetNX(ctx context.Context, key string, value []byte, ttl time.Duration) (bool, error) {
	return s.client.SetNX(ctx, key, value, ttl)
}

func (s *RedisStore) Set(ctx context.Context, key string, value []byte, ttl time.Duration) error {
	return s.client.Set(ctx, key, value, ttl)
}

func (s *RedisStore) Del(ctx context.Context, key string) error {
	return s.client.Del(ctx, key)
}

var _ Store = (*RedisStore)(nil)
