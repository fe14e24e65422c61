package cache

import (
	"context"
	"fmt"
	"time"
)

// BucketKind partitions the rate limiter's keyspace so a flood against one
// surface (e.g. failed logins) can't exhaust the budget of another (e.g.
// ingestion) even when both are keyed by the same identifier.
type BucketKind string

const (
	BucketAuth         BucketKind = "auth"
	BucketAPI          BucketKind = "api"
	BucketFiles        BucketKind = "files"
	BucketIngestion    BucketKind = "ingestion"
	BucketAuthFailures BucketKind = "auth_failures"
)

// RateLimitBucket identifies one counter: a kind plus the window it resets
// on. Two buckets with the same kind but different windows (a per-second
// burst limit and a per-minute sustained limit on the same resource) are
// independent counters.
type RateLimitBucket struct {
	Kind   BucketKind
	Window time.Duration
}

// Limiter implements incr+ttl rate limiting on top of any cache Backend.
// Per-IP and per-project (or per-API-key) identifiers are checked
// independently by passing distinct keys; the caller composes the final
// identifier, the limiter only owns the bucket-kind namespacing and the
// incr+ttl mechanics.
type Limiter struct {
	backend Backend
}

// NewLimiter builds a rate limiter backed by any cache.Backend - the same
// fabric used for value caching, so an in-process deployment and a
// Redis-backed one share one rate-limiting implementation.
func NewLimiter(backend Backend) *Limiter {
	return &Limiter{backend: backend}
}

func (l *Limiter) key(bucket RateLimitBucket, identifier string) string {
	return fmt.Sprintf("ratelimit:%s:%s", bucket.Kind, identifier)
}

// Check increments the counter for (bucket, identifier) and reports
// whether the request that triggered this call is still within limit. A
// bucket at exactly its limit blocks the *next* request, not the one that
// brought it to the limit.
func (l *Limiter) Check(ctx context.Context, bucket RateLimitBucket, identifier string, limit int64) (allowed bool, current int64, err error) {
	current, err = l.backend.IncrementWithTTL(ctx, l.key(bucket, identifier), bucket.Window)
	if err != nil {
		return false, 0, fmt.Errorf("rate limit check for %s: %w", bucket.Kind, err)
	}
	return current <= limit, current, nil
}

// IsBlocked reports whether (bucket, identifier) is already over limit
// without incrementing it, for call sites that want to check before
// committing to other side effects of a request.
func (l *Limiter) IsBlocked(ctx context.Context, bucket RateLimitBucket, identifier string, limit int64) (bool, error) {
	var current int64
	if err := l.backend.Get(ctx, l.key(bucket, identifier), &current); err != nil {
		if err == ErrMiss {
			return false, nil
		}
		return false, fmt.Errorf("rate limit read for %s: %w", bucket.Kind, err)
	}
	return current > limit, nil
}
