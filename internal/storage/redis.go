package storage

import (
	"context"
	stderrors "errors"
	"fmt"

	"github.com/redis/go-redis/v9"
)

type RedisConfig struct {
	Redis  redis.UniversalClient
	Prefix string
}

// Redis stores every key as a plain string value under "<prefix>:<key>".
type Redis struct {
	redis  redis.UniversalClient
	prefix string
}

func NewRedis(c RedisConfig) *Redis {
	return &Redis{
		redis:  c.Redis,
		prefix: c.Prefix,
	}
}

func (s *Redis) Get(ctx context.Context, key string) ([]byte, error) {
	b, err := s.redis.Get(ctx, s.key(key)).Bytes()
	if stderrors.Is(err, redis.Nil) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("redis: get %s: %w", key, err)
	}

	return b, nil
}

func (s *Redis) Set(ctx context.Context, key string, value []byte) error {
	if err := s.redis.Set(ctx, s.key(key), value, 0).Err(); err != nil {
		return fmt.Errorf("redis: set %s: %w", key, err)
	}

	return nil
}

func (s *Redis) Delete(ctx context.Context, key string) error {
	if err := s.redis.Del(ctx, s.key(key)).Err(); err != nil {
		return fmt.Errorf("redis: del %s: %w", key, err)
	}

	return nil
}

func (s *Redis) key(k string) string {
	if s.prefix == "" {
		return k
	}
	return fmt.Sprintf("%s:%s", s.prefix, k)
}
