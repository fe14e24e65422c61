package redis

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/sideseat/sideseat-core/internal/infrastructure/cache"
	"github.com/sideseat/sideseat-core/internal/infrastructure/database"
)

// Backend implements cache.Backend on top of a Redis connection. It is
// the Redis-compatible half of the caching fabric - "Redis-compatible"
// because go-redis's RESP client works unmodified against Valkey and
// Dragonfly, and redis.ParseURL already accepts a Sentinel URL scheme at
// connection time (internal/infrastructure/database.NewRedisDB).
type Backend struct {
	db *database.RedisDB
}

// NewBackend wraps an existing Redis connection as a cache.Backend.
func NewBackend(db *database.RedisDB) *Backend {
	return &Backend{db: db}
}

var _ cache.Backend = (*Backend)(nil)

func (b *Backend) Get(ctx context.Context, key string, dest interface{}) error {
	data, err := b.db.Get(ctx, key)
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return cache.ErrMiss
		}
		return fmt.Errorf("get cache key %s: %w", key, err)
	}
	if err := json.Unmarshal([]byte(data), dest); err != nil {
		return fmt.Errorf("unmarshal cache value for %s: %w", key, err)
	}
	return nil
}

func (b *Backend) Set(ctx context.Context, key string, value interface{}, ttl time.Duration) error {
	data, err := json.Marshal(value)
	if err != nil {
		return fmt.Errorf("marshal cache value for %s: %w", key, err)
	}
	if err := b.db.Set(ctx, key, data, ttl); err != nil {
		return fmt.Errorf("set cache key %s: %w", key, err)
	}
	return nil
}

func (b *Backend) Delete(ctx context.Context, keys ...string) error {
	if len(keys) == 0 {
		return nil
	}
	return b.db.Delete(ctx, keys...)
}

// DeletePattern scans for keys matching a glob pattern and deletes them in
// batches. SCAN is used instead of KEYS so this never blocks the Redis
// event loop on a large keyspace.
func (b *Backend) DeletePattern(ctx context.Context, pattern string) error {
	var cursor uint64
	for {
		keys, next, err := b.db.Client.Scan(ctx, cursor, pattern, 200).Result()
		if err != nil {
			return fmt.Errorf("scan cache pattern %s: %w", pattern, err)
		}
		if len(keys) > 0 {
			if err := b.db.Delete(ctx, keys...); err != nil {
				return fmt.Errorf("delete scanned keys for pattern %s: %w", pattern, err)
			}
		}
		cursor = next
		if cursor == 0 {
			return nil
		}
	}
}

// IncrementWithTTL increments key and sets its expiry only the first time
// the counter is created, matching Redis's own "incr+ttl" rate-limiting
// idiom: the EXPIRE is skipped on every subsequent increment so the
// window doesn't keep sliding forward on a busy key.
func (b *Backend) IncrementWithTTL(ctx context.Context, key string, window time.Duration) (int64, error) {
	current, err := b.db.Increment(ctx, key)
	if err != nil {
		return 0, fmt.Errorf("increment counter %s: %w", key, err)
	}
	if current == 1 && window > 0 {
		if err := b.db.Expire(ctx, key, window); err != nil {
			return current, fmt.Errorf("set counter expiry %s: %w", key, err)
		}
	}
	return current, nil
}
