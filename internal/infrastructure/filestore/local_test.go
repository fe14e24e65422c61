package filestore

import (
	"bytes"
	"context"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestLocalStore(t *testing.T) *LocalStore {
	t.Helper()
	store, err := NewLocalStore(t.TempDir(), logrus.New())
	require.NoError(t, err)
	return store
}

func TestLocalStoreStoreAndGet(t *testing.T) {
	ctx := context.Background()
	store := newTestLocalStore(t)

	content := []byte(`{"hello":"world"}`)
	hash := HashBytes(content)

	require.NoError(t, store.Store(ctx, "proj_1", hash, content))

	got, err := store.Get(ctx, "proj_1", hash)
	require.NoError(t, err)
	assert.Equal(t, content, got)
}

func TestLocalStoreStoreIsIdempotent(t *testing.T) {
	ctx := context.Background()
	store := newTestLocalStore(t)

	content := []byte("identical bytes")
	hash := HashBytes(content)

	require.NoError(t, store.Store(ctx, "proj_1", hash, content))
	require.NoError(t, store.Store(ctx, "proj_1", hash, content))

	got, err := store.Get(ctx, "proj_1", hash)
	require.NoError(t, err)
	assert.Equal(t, content, got)
}

func TestLocalStoreGetMissingReturnsErrNotFound(t *testing.T) {
	ctx := context.Background()
	store := newTestLocalStore(t)

	_, err := store.Get(ctx, "proj_1", HashBytes([]byte("never stored")))
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestLocalStoreExists(t *testing.T) {
	ctx := context.Background()
	store := newTestLocalStore(t)

	content := []byte("present")
	hash := HashBytes(content)
	require.NoError(t, store.Store(ctx, "proj_1", hash, content))

	present, err := store.Exists(ctx, "proj_1", hash)
	require.NoError(t, err)
	assert.True(t, present)

	absent, err := store.Exists(ctx, "proj_1", HashBytes([]byte("absent")))
	require.NoError(t, err)
	assert.False(t, absent)
}

func TestLocalStoreDeleteProject(t *testing.T) {
	ctx := context.Background()
	store := newTestLocalStore(t)

	content := []byte("scoped to a project")
	hash := HashBytes(content)
	require.NoError(t, store.Store(ctx, "proj_1", hash, content))
	require.NoError(t, store.Store(ctx, "proj_2", hash, content))

	require.NoError(t, store.DeleteProject(ctx, "proj_1"))

	_, err := store.Get(ctx, "proj_1", hash)
	assert.ErrorIs(t, err, ErrNotFound)

	stillThere, err := store.Get(ctx, "proj_2", hash)
	require.NoError(t, err)
	assert.Equal(t, content, stillThere)
}

func TestLocalStoreFinalizeTemp(t *testing.T) {
	ctx := context.Background()
	store := newTestLocalStore(t)

	content := []byte("streamed upload")
	hash, size, err := HashReader(bytes.NewReader(content))
	require.NoError(t, err)
	assert.Equal(t, int64(len(content)), size)

	tempPath, err := store.TempPath("proj_1")
	require.NoError(t, err)
	require.NoError(t, os.WriteFile(tempPath, content, 0o644))

	require.NoError(t, store.FinalizeTemp(ctx, "proj_1", hash, tempPath))

	got, err := store.Get(ctx, "proj_1", hash)
	require.NoError(t, err)
	assert.Equal(t, content, got)

	_, statErr := os.Stat(tempPath)
	assert.True(t, os.IsNotExist(statErr))
}

func TestLocalStoreSweepTempRemovesAbandonedFiles(t *testing.T) {
	ctx := context.Background()
	store := newTestLocalStore(t)

	tempPath, err := store.TempPath("proj_1")
	require.NoError(t, err)
	require.NoError(t, os.WriteFile(tempPath, []byte("abandoned"), 0o644))

	old := filepath.Join(filepath.Dir(tempPath), "proj_1_old")
	require.NoError(t, os.WriteFile(old, []byte("old"), 0o644))
	oldTime := time.Now().Add(-time.Hour)
	require.NoError(t, os.Chtimes(old, oldTime, oldTime))

	removed, err := store.SweepTemp(ctx, 0)
	require.NoError(t, err)
	assert.Equal(t, 2, removed)
}
