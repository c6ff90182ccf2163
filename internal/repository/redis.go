package repository

import (
	"context"
	"time"

	"github.com/go-redis/redis/v8"
)

// RedisRepository is a thin key-value wrapper around the Redis client used
// by the idempotency ledger and the rate limiter.
type RedisRepository struct {
	Client *redis.Client
}

// NewRedisRepository creates a new RedisRepository.
func NewRedisRepository(client *redis.Client) *RedisRepository {
	return &RedisRepository{Client: client}
}

// Exists reports whether the key is present.
func (r *RedisRepository) Exists(ctx context.Context, key string) (bool, error) {
	n, err := r.Client.Exists(ctx, key).Result()
	if err != nil {
		return false, err
	}
	return n > 0, nil
}

// SetFlag writes a marker key with the given TTL. SetNX keeps the write
// idempotent under concurrent markers; the first writer's TTL wins.
func (r *RedisRepository) SetFlag(ctx context.Context, key string, ttl time.Duration) (bool, error) {
	return r.Client.SetNX(ctx, key, "processed", ttl).Result()
}

// Ping verifies connectivity for health checks.
func (r *RedisRepository) Ping(ctx context.Context) error {
	return r.Client.Ping(ctx).Err()
}
