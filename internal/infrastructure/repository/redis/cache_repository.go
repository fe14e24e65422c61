package redis

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/sideseat/sideseat-core/internal/infrastructure/cache"
	"github.com/sideseat/sideseat-core/internal/infrastructure/database"

	"github.com/redis/go-redis/v9"
)

// CacheRepository implements caching operations using Redis. It wraps the
// storage-agnostic Backend (internal/infrastructure/cache) rather than
// calling the Redis client directly, so everything in this file works
// unmodified if a deployment swaps in the in-process backend
// (internal/infrastructure/cache/memory) instead.
type CacheRepository struct {
	db      *database.RedisDB
	backend cache.Backend
	limiter *cache.Limiter
}

// NewCacheRepository creates a new cache repository
func NewCacheRepository(db *database.RedisDB) *CacheRepository {
	backend := NewBackend(db)
	return &CacheRepository{
		db:      db,
		backend: backend,
		limiter: cache.NewLimiter(backend),
	}
}

// Set stores a value in cache with expiration, via the cache.Backend.
func (r *CacheRepository) Set(ctx context.Context, key string, value interface{}, expiration time.Duration) error {
	return r.backend.Set(ctx, key, value, expiration)
}

// Get retrieves a value from cache, via the cache.Backend.
func (r *CacheRepository) Get(ctx context.Context, key string, dest interface{}) error {
	return r.backend.Get(ctx, key, dest)
}

// Delete removes keys from cache, via the cache.Backend.
func (r *CacheRepository) Delete(ctx context.Context, keys ...string) error {
	return r.backend.Delete(ctx, keys...)
}

// DeletePattern removes every key matching a glob pattern, via the
// cache.Backend - used for invalidation fan-out where the exact key set
// isn't known in advance (e.g. every "projects_for_org:*" entry).
func (r *CacheRepository) DeletePattern(ctx context.Context, pattern string) error {
	return r.backend.DeletePattern(ctx, pattern)
}

// Exists checks if key exists in cache
func (r *CacheRepository) Exists(ctx context.Context, key string) (bool, error) {
	count, err := r.db.Exists(ctx, key)
	if err != nil {
		return false, err
	}
	return count > 0, nil
}

// SetHash stores hash fields
func (r *CacheRepository) SetHash(ctx context.Context, key string, fields map[string]interface{}) error {
	values := make([]interface{}, 0, len(fields)*2)
	for field, value := range fields {
		data, err := json.Marshal(value)
		if err != nil {
			return fmt.Errorf("failed to marshal hash field %s: %w", field, err)
		}
		values = append(values, field, string(data))
	}

	return r.db.HSet(ctx, key, values...)
}

// GetHash retrieves hash field
func (r *CacheRepository) GetHash(ctx context.Context, key, field string, dest interface{}) error {
	data, err := r.db.HGet(ctx, key, field)
	if err != nil {
		return fmt.Errorf("failed to get hash field: %w", err)
	}

	if err := json.Unmarshal([]byte(data), dest); err != nil {
		return fmt.Errorf("failed to unmarshal hash value: %w", err)
	}

	return nil
}

// GetAllHash retrieves all hash fields
func (r *CacheRepository) GetAllHash(ctx context.Context, key string) (map[string]interface{}, error) {
	data, err := r.db.HGetAll(ctx, key)
	if err != nil {
		return nil, fmt.Errorf("failed to get all hash fields: %w", err)
	}

	result := make(map[string]interface{})
	for field, value := range data {
		var obj interface{}
		if err := json.Unmarshal([]byte(value), &obj); err != nil {
			// If unmarshal fails, store as string
			result[field] = value
		} else {
			result[field] = obj
		}
	}

	return result, nil
}

// Increment atomically increments a counter
func (r *CacheRepository) Increment(ctx context.Context, key string) (int64, error) {
	return r.db.Increment(ctx, key)
}

// IncrementBy atomically increments a counter by value
func (r *CacheRepository) IncrementBy(ctx context.Context, key string, value int64) (int64, error) {
	return r.db.IncrementBy(ctx, key, value)
}

// SetExpire sets expiration for a key
func (r *CacheRepository) SetExpire(ctx context.Context, key string, expiration time.Duration) error {
	return r.db.Expire(ctx, key, expiration)
}

// AddToSortedSet adds members to sorted set (for rankings, leaderboards)
func (r *CacheRepository) AddToSortedSet(ctx context.Context, key string, score float64, member string) error {
	return r.db.ZAdd(ctx, key, redis.Z{Score: score, Member: member})
}

// GetSortedSetRange gets members from sorted set
func (r *CacheRepository) GetSortedSetRange(ctx context.Context, key string, start, stop int64) ([]string, error) {
	return r.db.ZRange(ctx, key, start, stop)
}

// Session management methods

// CreateSession stores session data
func (r *CacheRepository) CreateSession(ctx context.Context, sessionID string, data interface{}, expiration time.Duration) error {
	key := r.sessionKey(sessionID)
	return r.Set(ctx, key, data, expiration)
}

// GetSession retrieves session data
func (r *CacheRepository) GetSession(ctx context.Context, sessionID string, dest interface{}) error {
	key := r.sessionKey(sessionID)
	return r.Get(ctx, key, dest)
}

// DeleteSession removes session
func (r *CacheRepository) DeleteSession(ctx context.Context, sessionID string) error {
	key := r.sessionKey(sessionID)
	return r.Delete(ctx, key)
}

// RefreshSession extends session expiration
func (r *CacheRepository) RefreshSession(ctx context.Context, sessionID string, expiration time.Duration) error {
	key := r.sessionKey(sessionID)
	return r.SetExpire(ctx, key, expiration)
}

// Rate limiting methods

// CheckRateLimit checks if a request against an arbitrary bucket/window is
// within limit, via the shared incr+ttl Limiter.
func (r *CacheRepository) CheckRateLimit(ctx context.Context, key string, limit int64, window time.Duration) (bool, int64, error) {
	bucket := cache.RateLimitBucket{Kind: cache.BucketAPI, Window: window}
	return r.limiter.Check(ctx, bucket, key, limit)
}

// CheckBucketRateLimit checks a specific bucket kind (auth, api, files,
// ingestion, auth_failures), each an independent counter namespace so a
// flood against one surface can't exhaust another's budget.
func (r *CacheRepository) CheckBucketRateLimit(ctx context.Context, bucket cache.RateLimitBucket, identifier string, limit int64) (bool, int64, error) {
	return r.limiter.Check(ctx, bucket, identifier, limit)
}

// IsBucketBlocked reads a bucket's current count without incrementing it.
func (r *CacheRepository) IsBucketBlocked(ctx context.Context, bucket cache.RateLimitBucket, identifier string, limit int64) (bool, error) {
	return r.limiter.IsBlocked(ctx, bucket, identifier, limit)
}

// API Key caching methods
//
// A validated key is cached under cache.APIKey(hash); an invalid one is
// cached separately under cache.APIKeyNegative(hash) with a shorter TTL,
// so repeated requests with a garbage key don't hit the database on every
// call but a newly-revoked key's negative result still expires quickly.

// CacheAPIKey caches API key validation result
func (r *CacheRepository) CacheAPIKey(ctx context.Context, keyHash string, keyData interface{}, expiration time.Duration) error {
	return r.Set(ctx, string(cache.APIKey(keyHash)), keyData, expiration)
}

// GetCachedAPIKey retrieves cached API key data
func (r *CacheRepository) GetCachedAPIKey(ctx context.Context, keyHash string, dest interface{}) error {
	return r.Get(ctx, string(cache.APIKey(keyHash)), dest)
}

// InvalidateAPIKey removes an API key from both the positive and negative
// cache, so a revoke or rotation is visible on the next request.
func (r *CacheRepository) InvalidateAPIKey(ctx context.Context, keyHash string) error {
	return r.Delete(ctx, string(cache.APIKey(keyHash)), string(cache.APIKeyNegative(keyHash)))
}

// CacheAPIKeyNegative records that keyHash failed validation, so repeated
// probing with the same invalid key doesn't repeat the database lookup.
func (r *CacheRepository) CacheAPIKeyNegative(ctx context.Context, keyHash string, ttl time.Duration) error {
	return r.Set(ctx, string(cache.APIKeyNegative(keyHash)), true, ttl)
}

// IsAPIKeyNegativelyCached reports whether keyHash is currently recorded
// as invalid.
func (r *CacheRepository) IsAPIKeyNegativelyCached(ctx context.Context, keyHash string) (bool, error) {
	return r.Exists(ctx, string(cache.APIKeyNegative(keyHash)))
}

// InvalidateOrganization invalidates every cache entry a membership or
// organization write affects: the organization itself, the per-user
// membership flag, the user's org list, and every project list the
// membership change could stale. Mutations invalidate rather than update,
// so a reader racing a writer sees the old value for at most the TTL of
// the entry it raced, never a value the writer never produced.
func (r *CacheRepository) InvalidateOrganization(ctx context.Context, orgID, userID string) error {
	keys := []string{string(cache.Organization(orgID)), string(cache.ProjectsForOrg(orgID))}
	if userID != "" {
		keys = append(keys,
			string(cache.Membership(orgID, userID)),
			string(cache.OrgsForUser(userID)),
			string(cache.ProjectsForUser(userID)),
		)
	}
	return r.Delete(ctx, keys...)
}

// Helper methods for key generation

func (r *CacheRepository) sessionKey(sessionID string) string {
	return "session:" + sessionID
}

func (r *CacheRepository) userKey(userID string) string {
	return "user:" + userID
}

func (r *CacheRepository) semanticCacheKey(hash string) string {
	return "semantic_cache:" + hash
}

// Semantic cache methods for AI requests

// SetSemanticCache stores AI request/response in semantic cache
func (r *CacheRepository) SetSemanticCache(ctx context.Context, hash string, response interface{}, expiration time.Duration) error {
	key := r.semanticCacheKey(hash)
	return r.Set(ctx, key, response, expiration)
}

// GetSemanticCache retrieves cached AI response
func (r *CacheRepository) GetSemanticCache(ctx context.Context, hash string, dest interface{}) error {
	key := r.semanticCacheKey(hash)
	return r.Get(ctx, key, dest)
}

// CheckSemanticCacheExists checks if semantic cache entry exists
func (r *CacheRepository) CheckSemanticCacheExists(ctx context.Context, hash string) (bool, error) {
	key := r.semanticCacheKey(hash)
	return r.Exists(ctx, key)
}
