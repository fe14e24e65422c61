package filestore

import (
	"context"
	"fmt"
	"os"

	infraStorage "github.com/sideseat/sideseat-core/internal/infrastructure/storage"
)

// S3Store is a Store backed by the existing S3Client, keyed identically to
// LocalStore: "{projectID}/{hash[0:2]}/{hash[2:4]}/{hash}".
type S3Store struct {
	client *infraStorage.S3Client
}

// NewS3Store wraps an already-configured S3 client as a content-addressed
// Store.
func NewS3Store(client *infraStorage.S3Client) *S3Store {
	return &S3Store{client: client}
}

func (s *S3Store) key(projectID, hash string) string {
	return projectID + "/" + shardedKey(hash)
}

func (s *S3Store) Store(ctx context.Context, projectID, hash string, content []byte) error {
	exists, err := s.client.Exists(ctx, s.key(projectID, hash))
	if err != nil {
		return err
	}
	if exists {
		return nil
	}
	return s.client.Upload(ctx, s.key(projectID, hash), content, "application/octet-stream")
}

func (s *S3Store) Get(ctx context.Context, projectID, hash string) ([]byte, error) {
	content, err := s.client.Download(ctx, s.key(projectID, hash))
	if err != nil {
		return nil, err
	}
	return content, nil
}

func (s *S3Store) Exists(ctx context.Context, projectID, hash string) (bool, error) {
	return s.client.Exists(ctx, s.key(projectID, hash))
}

func (s *S3Store) Delete(ctx context.Context, projectID, hash string) error {
	return s.client.Delete(ctx, s.key(projectID, hash))
}

func (s *S3Store) DeleteProject(ctx context.Context, projectID string) error {
	keys, err := s.client.ListKeys(ctx, projectID+"/")
	if err != nil {
		return fmt.Errorf("list project objects: %w", err)
	}
	for _, key := range keys {
		if err := s.client.Delete(ctx, key); err != nil {
			return fmt.Errorf("delete %s: %w", key, err)
		}
	}
	return nil
}

// FinalizeTemp for S3 is an upload: there is no local temp file to rename,
// S3Store only ever receives FinalizeTemp calls when a caller streamed a
// payload to local disk first (e.g. while computing its hash) and now wants
// it promoted to the object store proper. tempPath is read and uploaded,
// then removed.
func (s *S3Store) FinalizeTemp(ctx context.Context, projectID, hash, tempPath string) error {
	content, err := os.ReadFile(tempPath)
	if err != nil {
		return fmt.Errorf("read temp file: %w", err)
	}
	if err := s.Store(ctx, projectID, hash, content); err != nil {
		return err
	}
	_ = os.Remove(tempPath)
	return nil
}
