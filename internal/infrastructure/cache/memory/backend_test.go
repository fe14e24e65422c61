package memory

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/sideseat/sideseat-core/internal/infrastructure/cache"
)

func TestBackendSetAndGet(t *testing.T) {
	b, err := New(10)
	require.NoError(t, err)

	require.NoError(t, b.Set(context.Background(), "k", "v", time.Minute))

	var got string
	require.NoError(t, b.Get(context.Background(), "k", &got))
	assert.Equal(t, "v", got)
}

func TestBackendGetMissReturnsErrMiss(t *testing.T) {
	b, err := New(10)
	require.NoError(t, err)

	var got string
	err = b.Get(context.Background(), "absent", &got)
	assert.ErrorIs(t, err, cache.ErrMiss)
}

func TestBackendEntryExpiresAfterTTL(t *testing.T) {
	b, err := New(10)
	require.NoError(t, err)

	require.NoError(t, b.Set(context.Background(), "k", "v", time.Millisecond))
	time.Sleep(5 * time.Millisecond)

	var got string
	err = b.Get(context.Background(), "k", &got)
	assert.ErrorIs(t, err, cache.ErrMiss)
}

func TestBackendZeroTTLNeverExpires(t *testing.T) {
	b, err := New(10)
	require.NoError(t, err)

	require.NoError(t, b.Set(context.Background(), "k", "v", 0))
	time.Sleep(5 * time.Millisecond)

	var got string
	require.NoError(t, b.Get(context.Background(), "k", &got))
	assert.Equal(t, "v", got)
}

func TestBackendDelete(t *testing.T) {
	b, err := New(10)
	require.NoError(t, err)

	require.NoError(t, b.Set(context.Background(), "k", "v", time.Minute))
	require.NoError(t, b.Delete(context.Background(), "k"))

	var got string
	assert.ErrorIs(t, b.Get(context.Background(), "k", &got), cache.ErrMiss)
}

func TestBackendDeletePattern(t *testing.T) {
	b, err := New(10)
	require.NoError(t, err)

	require.NoError(t, b.Set(context.Background(), "projects_for_org:1", "a", time.Minute))
	require.NoError(t, b.Set(context.Background(), "projects_for_org:2", "b", time.Minute))
	require.NoError(t, b.Set(context.Background(), "organization:1", "c", time.Minute))

	require.NoError(t, b.DeletePattern(context.Background(), "projects_for_org:*"))

	var dest string
	assert.ErrorIs(t, b.Get(context.Background(), "projects_for_org:1", &dest), cache.ErrMiss)
	assert.ErrorIs(t, b.Get(context.Background(), "projects_for_org:2", &dest), cache.ErrMiss)
	require.NoError(t, b.Get(context.Background(), "organization:1", &dest))
	assert.Equal(t, "c", dest)
}

func TestBackendIncrementWithTTLCountsUp(t *testing.T) {
	b, err := New(10)
	require.NoError(t, err)

	for i := int64(1); i <= 3; i++ {
		current, err := b.IncrementWithTTL(context.Background(), "counter", time.Minute)
		require.NoError(t, err)
		assert.Equal(t, i, current)
	}
}

func TestBackendIncrementWithTTLResetsAfterWindow(t *testing.T) {
	b, err := New(10)
	require.NoError(t, err)

	current, err := b.IncrementWithTTL(context.Background(), "counter", 2*time.Millisecond)
	require.NoError(t, err)
	assert.Equal(t, int64(1), current)

	time.Sleep(10 * time.Millisecond)

	current, err = b.IncrementWithTTL(context.Background(), "counter", 2*time.Millisecond)
	require.NoError(t, err)
	assert.Equal(t, int64(1), current, "counter should reset once its window elapses")
}

func TestLimiterCheckBlocksOverLimit(t *testing.T) {
	b, err := New(10)
	require.NoError(t, err)
	limiter := cache.NewLimiter(b)

	bucket := cache.RateLimitBucket{Kind: cache.BucketAuth, Window: time.Minute}

	for i := 0; i < 3; i++ {
		allowed, _, err := limiter.Check(context.Background(), bucket, "user-1", 3)
		require.NoError(t, err)
		assert.True(t, allowed, "request %d should be within limit 3", i+1)
	}

	allowed, current, err := limiter.Check(context.Background(), bucket, "user-1", 3)
	require.NoError(t, err)
	assert.False(t, allowed, "a bucket at exactly its limit must block the next request")
	assert.Equal(t, int64(4), current)
}

func TestLimiterChecksAreIndependentPerIdentifier(t *testing.T) {
	b, err := New(10)
	require.NoError(t, err)
	limiter := cache.NewLimiter(b)

	bucket := cache.RateLimitBucket{Kind: cache.BucketAuth, Window: time.Minute}

	_, _, err = limiter.Check(context.Background(), bucket, "user-1", 1)
	require.NoError(t, err)

	allowed, _, err := limiter.Check(context.Background(), bucket, "user-2", 1)
	require.NoError(t, err)
	assert.True(t, allowed, "a different identifier in the same bucket must have its own counter")
}
