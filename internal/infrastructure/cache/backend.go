// Package cache defines the storage-agnostic caching and rate-limiting
// fabric: a Backend abstracts an in-process cache from a Redis-compatible
// one behind the same interface, CacheKey gives every caller the same
// namespaced key discipline, and Limiter builds incr+ttl rate limiting on
// top of any Backend.
package cache

import (
	"context"
	"errors"
	"time"
)

// ErrMiss is returned by Backend.Get when the key is absent or expired.
// Callers fall through to the authoritative store on a miss; a miss is
// never itself an error condition for the caller.
var ErrMiss = errors.New("cache: key not found")

// Backend is implemented by every cache storage engine this fabric
// supports: an in-process TinyLFU-style cache (internal/infrastructure/cache/memory)
// and a Redis-compatible one (internal/infrastructure/repository/redis).
// Callers depend on this interface, never on a concrete backend, so the
// backend can be swapped per deployment (embedded/single-node vs. Redis,
// Valkey, Dragonfly, or Sentinel) without touching call sites.
type Backend interface {
	// Get unmarshals the cached value for key into dest. Returns ErrMiss
	// if key is absent or has expired.
	Get(ctx context.Context, key string, dest interface{}) error
	// Set stores value under key with the given TTL. A zero TTL means no
	// expiration.
	Set(ctx context.Context, key string, value interface{}, ttl time.Duration) error
	// Delete removes one or more keys. Deleting an absent key is not an
	// error.
	Delete(ctx context.Context, keys ...string) error
	// DeletePattern removes every key matching a glob-style pattern
	// (e.g. "projects_for_org:*"). Used for invalidation fan-out where
	// the exact key set isn't known in advance.
	DeletePattern(ctx context.Context, pattern string) error
	// IncrementWithTTL atomically increments key and, only on the first
	// increment (the key did not previously exist), sets its TTL to
	// window. This is the incr+ttl primitive the rate limiter is built
	// on: every call within window increments the same counter, and the
	// counter resets once window elapses after the first request.
	IncrementWithTTL(ctx context.Context, key string, window time.Duration) (int64, error)
}
