package filestore

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strconv"
	"time"

	"github.com/sirupsen/logrus"
)

// LocalStore is a Store backed by the local filesystem, laid out as
// {baseDir}/{projectID}/{hash[0:2]}/{hash[2:4]}/{hash}. It is the default
// backend for self-hosted and embedded deployments that run without S3.
type LocalStore struct {
	baseDir string
	logger  *logrus.Logger
}

// NewLocalStore creates a disk-backed store rooted at baseDir, creating the
// directory if it does not already exist.
func NewLocalStore(baseDir string, logger *logrus.Logger) (*LocalStore, error) {
	if err := os.MkdirAll(baseDir, 0o755); err != nil {
		return nil, fmt.Errorf("create file store base dir: %w", err)
	}
	return &LocalStore{baseDir: baseDir, logger: logger}, nil
}

func (s *LocalStore) path(projectID, hash string) string {
	return filepath.Join(s.baseDir, projectID, shardedKey(hash))
}

func (s *LocalStore) tempDir(projectID string) string {
	return filepath.Join(s.baseDir, projectID, ".tmp")
}

// TempPath returns a fresh, collision-resistant temp file path that callers
// should write to and hash before calling FinalizeTemp. The filename embeds
// the project so a later sweep can recover it without extra bookkeeping.
func (s *LocalStore) TempPath(projectID string) (string, error) {
	dir := s.tempDir(projectID)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return "", fmt.Errorf("create temp dir: %w", err)
	}
	name := fmt.Sprintf("%s_%d_%d", projectID, os.Getpid(), time.Now().UnixNano())
	return filepath.Join(dir, name), nil
}

func (s *LocalStore) Store(ctx context.Context, projectID, hash string, content []byte) error {
	dest := s.path(projectID, hash)
	if _, err := os.Stat(dest); err == nil {
		return nil // already present: content-addressed, so bytes are identical
	}

	if err := os.MkdirAll(filepath.Dir(dest), 0o755); err != nil {
		return fmt.Errorf("create shard dir: %w", err)
	}

	tmp := dest + fmt.Sprintf(".tmp-%d-%d", os.Getpid(), time.Now().UnixNano())
	if err := os.WriteFile(tmp, content, 0o644); err != nil {
		return fmt.Errorf("write temp file: %w", err)
	}
	if err := os.Rename(tmp, dest); err != nil {
		_ = os.Remove(tmp)
		return fmt.Errorf("rename into place: %w", err)
	}
	return nil
}

func (s *LocalStore) Get(ctx context.Context, projectID, hash string) ([]byte, error) {
	content, err := os.ReadFile(s.path(projectID, hash))
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("read file: %w", err)
	}
	return content, nil
}

func (s *LocalStore) Exists(ctx context.Context, projectID, hash string) (bool, error) {
	_, err := os.Stat(s.path(projectID, hash))
	if err == nil {
		return true, nil
	}
	if errors.Is(err, os.ErrNotExist) {
		return false, nil
	}
	return false, err
}

func (s *LocalStore) Delete(ctx context.Context, projectID, hash string) error {
	err := os.Remove(s.path(projectID, hash))
	if err != nil && !errors.Is(err, os.ErrNotExist) {
		return fmt.Errorf("delete file: %w", err)
	}
	return nil
}

func (s *LocalStore) DeleteProject(ctx context.Context, projectID string) error {
	dir := filepath.Join(s.baseDir, projectID)
	if err := os.RemoveAll(dir); err != nil {
		return fmt.Errorf("delete project dir: %w", err)
	}
	return nil
}

// FinalizeTemp renames tempPath into its content-addressed slot. A plain
// os.Rename only works within the same filesystem; when the temp directory
// and the store live on different mounts (a common container setup: tmpfs
// scratch space next to a mounted data volume) it falls back to copy-then-
// remove, tagged with pid+nanosecond so concurrent finalizers of the same
// hash never collide on the same intermediate name.
func (s *LocalStore) FinalizeTemp(ctx context.Context, projectID, hash, tempPath string) error {
	dest := s.path(projectID, hash)

	if _, err := os.Stat(dest); err == nil {
		_ = os.Remove(tempPath)
		return nil
	}

	if err := os.MkdirAll(filepath.Dir(dest), 0o755); err != nil {
		return fmt.Errorf("create shard dir: %w", err)
	}

	if err := os.Rename(tempPath, dest); err == nil {
		return nil
	}

	// Cross-filesystem rename failed; copy into a same-directory staging
	// file first so the final rename into dest is still atomic.
	staging := dest + ".finalize-" + strconv.Itoa(os.Getpid()) + "-" + strconv.FormatInt(time.Now().UnixNano(), 10)
	if err := copyFile(tempPath, staging); err != nil {
		return fmt.Errorf("copy temp file to shard dir: %w", err)
	}
	if err := os.Rename(staging, dest); err != nil {
		_ = os.Remove(staging)
		return fmt.Errorf("rename staged file into place: %w", err)
	}
	_ = os.Remove(tempPath)
	return nil
}

func copyFile(src, dst string) error {
	in, err := os.Open(src)
	if err != nil {
		return err
	}
	defer in.Close()

	out, err := os.OpenFile(dst, os.O_CREATE|os.O_WRONLY|os.O_TRUNC, 0o644)
	if err != nil {
		return err
	}
	defer out.Close()

	if _, err := io.Copy(out, in); err != nil {
		return err
	}
	return out.Sync()
}

// SweepTemp scans every project's temp directory for abandoned finalize
// candidates older than maxAge (a crash between writing the temp file and
// calling FinalizeTemp leaves one behind) and removes them. It does not
// attempt to finalize them: without the caller's ledger entry there is no
// way to tell whether the upload that produced the temp file ever completed
// successfully, so the safe behavior is to discard it.
func (s *LocalStore) SweepTemp(ctx context.Context, maxAge time.Duration) (int, error) {
	entries, err := os.ReadDir(s.baseDir)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return 0, nil
		}
		return 0, fmt.Errorf("read base dir: %w", err)
	}

	removed := 0
	cutoff := time.Now().Add(-maxAge)

	for _, project := range entries {
		if !project.IsDir() {
			continue
		}
		tmpDir := s.tempDir(project.Name())
		files, err := os.ReadDir(tmpDir)
		if err != nil {
			continue
		}
		for _, f := range files {
			info, err := f.Info()
			if err != nil || info.ModTime().After(cutoff) {
				continue
			}
			if err := os.Remove(filepath.Join(tmpDir, f.Name())); err == nil {
				removed++
			}
		}
	}

	return removed, nil
}

// ErrNotFound is returned by Get when no blob exists at (projectID, hash).
var ErrNotFound = errors.New("filestore: blob not found")
