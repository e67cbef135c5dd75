package storage

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/gokaycavdar/go-geogate/pkg/models"
)

// DefaultRedisPrefix namespaces keys written by RedisStore.
const DefaultRedisPrefix = "geogate:resolution:"

// RedisStore shares resolutions between instances through Redis. Expiry is
// delegated to Redis key TTLs.
type RedisStore struct {
	client *redis.Client
	prefix string
}

// NewRedisStore wraps an existing client.
func NewRedisStore(client *redis.Client, prefix string) *RedisStore {
	if prefix == "" {
		prefix = DefaultRedisPrefix
	}
	return &RedisStore{client: client, prefix: prefix}
}

// DialRedis parses redisURL, connects and pings.
func DialRedis(ctx context.Context, redisURL string) (*redis.Client, error) {
	opt, err := redis.ParseURL(redisURL)
	if err != nil {
		return nil, fmt.Errorf("failed to parse Redis URL %q: %w", redisURL, err)
	}

	client := redis.NewClient(opt)
	if err := client.Ping(ctx).Err(); err != nil {
		_ = client.Close()
		return nil, fmt.Errorf("failed to connect to Redis: %w", err)
	}
	return client, nil
}

func (r *RedisStore) Get(ctx context.Context, key string) (models.Verdict, error) {
	val, err := r.client.Get(ctx, r.prefix+key).Result()
	if errors.Is(err, redis.Nil) {
		return models.Unknown, nil
	}
	if err != nil {
		return models.Unknown, fmt.Errorf("redis get: %w", err)
	}

	switch val {
	case "1":
		return models.Match, nil
	case "0":
		return models.NoMatch, nil
	default:
		return models.Unknown, fmt.Errorf("redis get: unexpected value %q", val)
	}
}

func (r *RedisStore) Put(ctx context.Context, key string, value bool, ttl time.Duration) error {
	encoded := "0"
	if value {
		encoded = "1"
	}
	if err := r.client.Set(ctx, r.prefix+key, encoded, effectiveTTL(ttl)).Err(); err != nil {
		return fmt.Errorf("redis set: %w", err)
	}
	return nil
}

// Close closes the underlying client.
func (r *RedisStore) Close() error {
	return r.client.Close()
}
