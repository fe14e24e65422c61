package storage

import (
	"context"
	"database/sql"
	"errors"
	"time"

	"github.com/sirupsen/logrus"

	"github.com/sideseat/sideseat-core/internal/config"
	"github.com/sideseat/sideseat-core/internal/core/domain/storage"
	"github.com/sideseat/sideseat-core/internal/infrastructure/filestore"
	appErrors "github.com/sideseat/sideseat-core/pkg/errors"
	"github.com/sideseat/sideseat-core/pkg/preview"
	"github.com/sideseat/sideseat-core/pkg/ulid"
)

// Ensure BlobStorageService implements the interface
var _ storage.BlobStorageService = (*BlobStorageService)(nil)

// BlobStorageService implements business logic for blob storage management.
// Content is addressed by its SHA-256 hash: fileRows is the ref-counting
// ledger keyed by (project_id, hash), fileStore owns the actual bytes (disk
// or S3, depending on configuration), and blobRepo is kept alongside as the
// append-only ClickHouse audit log of every upload event, independent of
// whether that upload deduplicated against an existing blob.
type BlobStorageService struct {
	blobRepo  storage.BlobStorageRepository
	fileRows  storage.FileRowRepository
	fileStore filestore.Store
	config    *config.BlobStorageConfig
	logger    *logrus.Logger
}

// NewBlobStorageService creates a new blob storage service instance
func NewBlobStorageService(
	blobRepo storage.BlobStorageRepository,
	fileRows storage.FileRowRepository,
	fileStore filestore.Store,
	cfg *config.BlobStorageConfig,
	logger *logrus.Logger,
) *BlobStorageService {
	return &BlobStorageService{
		blobRepo:  blobRepo,
		fileRows:  fileRows,
		fileStore: fileStore,
		config:    cfg,
		logger:    logger,
	}
}

// CreateBlobReference creates a new blob storage reference
func (s *BlobStorageService) CreateBlobReference(ctx context.Context, blob *storage.BlobStorageFileLog) error {
	if blob.ProjectID == "" {
		return appErrors.NewValidationError("project_id is required", "blob must have a valid project_id")
	}
	if blob.EntityType == "" {
		return appErrors.NewValidationError("entity_type is required", "blob must have an entity_type")
	}
	if blob.EntityID == "" {
		return appErrors.NewValidationError("entity_id is required", "blob must have an entity_id")
	}
	if blob.BucketName == "" {
		return appErrors.NewValidationError("bucket_name is required", "blob must have a bucket_name")
	}
	if blob.BucketPath == "" {
		return appErrors.NewValidationError("bucket_path is required", "blob must have a bucket_path")
	}

	if blob.ID == "" {
		blob.ID = ulid.New().String()
	}
	if blob.EventID == "" {
		blob.EventID = ulid.New().String()
	}
	if blob.CreatedAt.IsZero() {
		blob.CreatedAt = time.Now()
	}

	if err := s.blobRepo.Create(ctx, blob); err != nil {
		return appErrors.NewInternalError("failed to create blob reference", err)
	}

	return nil
}

// UpdateBlobReference updates an existing blob storage reference
func (s *BlobStorageService) UpdateBlobReference(ctx context.Context, blob *storage.BlobStorageFileLog) error {
	existing, err := s.blobRepo.GetByID(ctx, blob.ID)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return appErrors.NewNotFoundError("blob " + blob.ID)
		}
		return appErrors.NewInternalError("failed to get blob", err)
	}

	mergeBlobFields(existing, blob)

	if err := s.blobRepo.Update(ctx, existing); err != nil {
		return appErrors.NewInternalError("failed to update blob reference", err)
	}

	return nil
}

// DeleteBlobReference deletes a blob storage reference and decrements the
// underlying content-addressed blob's ref count. The blob itself is only
// removed from fileStore once ref_count reaches zero, since other uploads in
// the same project may have deduplicated against the same bytes.
func (s *BlobStorageService) DeleteBlobReference(ctx context.Context, id string) error {
	blob, err := s.blobRepo.GetByID(ctx, id)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return appErrors.NewNotFoundError("blob " + id)
		}
		return appErrors.NewInternalError("failed to get blob", err)
	}

	hash := blob.BucketPath
	if hash != "" {
		refCount, err := s.fileRows.DecrementRefCount(ctx, blob.ProjectID, hash)
		if err != nil {
			s.logger.WithError(err).Warn("Failed to decrement file row ref count, continuing with reference deletion")
		} else if refCount == 0 {
			if err := s.fileStore.Delete(ctx, blob.ProjectID, hash); err != nil {
				// The ledger row stays at ref_count zero; the orphan sweep
				// will retry the blob delete and remove the row.
				s.logger.WithError(err).Warn("Failed to delete content-addressed blob, leaving ledger row for sweep")
			} else if err := s.fileRows.DeleteFile(ctx, blob.ProjectID, hash); err != nil {
				s.logger.WithError(err).Warn("Failed to delete file row after blob deletion")
			}
		}
	}

	if err := s.blobRepo.Delete(ctx, id); err != nil {
		return appErrors.NewInternalError("failed to delete blob reference", err)
	}

	return nil
}

// GetBlobByID retrieves a blob storage reference by ID
func (s *BlobStorageService) GetBlobByID(ctx context.Context, id string) (*storage.BlobStorageFileLog, error) {
	blob, err := s.blobRepo.GetByID(ctx, id)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, appErrors.NewNotFoundError("blob " + id)
		}
		return nil, appErrors.NewInternalError("failed to get blob", err)
	}

	return blob, nil
}

// GetBlobsByEntityID retrieves all blob references for an entity
func (s *BlobStorageService) GetBlobsByEntityID(ctx context.Context, entityType, entityID string) ([]*storage.BlobStorageFileLog, error) {
	blobs, err := s.blobRepo.GetByEntityID(ctx, entityType, entityID)
	if err != nil {
		return nil, appErrors.NewInternalError("failed to get blobs by entity", err)
	}

	return blobs, nil
}

// GetBlobsByProjectID retrieves blobs by project ID with optional filters
func (s *BlobStorageService) GetBlobsByProjectID(ctx context.Context, projectID string, filter *storage.BlobStorageFilter) ([]*storage.BlobStorageFileLog, error) {
	blobs, err := s.blobRepo.GetByProjectID(ctx, projectID, filter)
	if err != nil {
		return nil, appErrors.NewInternalError("failed to get blobs by project", err)
	}

	return blobs, nil
}

// ShouldOffload returns true if content exceeds the configured threshold (default: 10KB)
func (s *BlobStorageService) ShouldOffload(content string) bool {
	return len(content) > s.config.Threshold
}

// UploadToS3 stores content in the content-addressed blob store and records
// a blob reference. Content is addressed by its SHA-256 hash within the
// project: a second upload of identical bytes for the same project never
// touches fileStore again, it only increments the ledger's ref_count. The
// method name is kept for API continuity with existing callers even though
// the backing store may be local disk rather than S3, per BlobStorageConfig.
func (s *BlobStorageService) UploadToS3(ctx context.Context, content string, projectID, entityType, entityID, eventID string) (*storage.BlobStorageFileLog, error) {
	contentBytes := []byte(content)
	hash := filestore.HashBytes(contentBytes)

	fileRow, err := s.fileRows.UpsertFile(ctx, &storage.FileRow{
		ProjectID: projectID,
		FileHash:  hash,
		HashAlgo:  "sha256",
		MediaType: "application/json",
		SizeBytes: int64(len(contentBytes)),
	})
	if err != nil {
		return nil, appErrors.NewInternalError("failed to upsert file row", err)
	}

	if fileRow.RefCount == 1 {
		if err := s.fileStore.Store(ctx, projectID, hash, contentBytes); err != nil {
			// Roll back the ledger entry so a retry doesn't believe the
			// blob exists when the write never landed.
			_ = s.fileRows.DeleteFile(ctx, projectID, hash)
			return nil, appErrors.NewInternalError("failed to store blob", err)
		}
	}

	blob := &storage.BlobStorageFileLog{
		ID:         ulid.New().String(),
		ProjectID:  projectID,
		EntityType: entityType,
		EntityID:   entityID,
		EventID:    eventID,
		BucketName: s.config.BucketName,
		BucketPath: hash,
		FileSizeBytes: func() *uint64 {
			size := uint64(len(contentBytes))
			return &size
		}(),
		ContentType: func() *string {
			ct := "application/json"
			return &ct
		}(),
		CreatedAt: time.Now(),
	}

	if err := s.CreateBlobReference(ctx, blob); err != nil {
		return nil, err
	}

	return blob, nil
}

// UploadToS3WithPreview uploads content to S3 and returns blob info + preview
func (s *BlobStorageService) UploadToS3WithPreview(ctx context.Context, content string, projectID, entityType, entityID, eventID string) (*storage.BlobStorageFileLog, string, error) {
	blob, err := s.UploadToS3(ctx, content, projectID, entityType, entityID, eventID)
	if err != nil {
		return nil, "", err
	}

	previewText := preview.GeneratePreview(content)
	return blob, previewText, nil
}

// DownloadFromS3 retrieves content from the content-addressed blob store
// using the blob reference's recorded hash.
func (s *BlobStorageService) DownloadFromS3(ctx context.Context, blobID string) (string, error) {
	blob, err := s.blobRepo.GetByID(ctx, blobID)
	if err != nil {
		return "", appErrors.NewNotFoundError("blob " + blobID)
	}

	contentBytes, err := s.fileStore.Get(ctx, blob.ProjectID, blob.BucketPath)
	if err != nil {
		return "", appErrors.NewInternalError("failed to retrieve blob", err)
	}

	return string(contentBytes), nil
}

// CountBlobs returns the count of blob references matching the filter
func (s *BlobStorageService) CountBlobs(ctx context.Context, filter *storage.BlobStorageFilter) (int64, error) {
	count, err := s.blobRepo.Count(ctx, filter)
	if err != nil {
		return 0, appErrors.NewInternalError("failed to count blobs", err)
	}

	return count, nil
}

// DeleteProjectBlobs removes every content-addressed blob and ledger entry
// for a project. It does not touch the ClickHouse audit log rows, which are
// append-only history rather than live state.
func (s *BlobStorageService) DeleteProjectBlobs(ctx context.Context, projectID string) error {
	if err := s.fileStore.DeleteProject(ctx, projectID); err != nil {
		return appErrors.NewInternalError("failed to delete project blobs", err)
	}
	if err := s.fileRows.DeleteByProject(ctx, projectID); err != nil {
		return appErrors.NewInternalError("failed to delete project file rows", err)
	}
	return nil
}

func mergeBlobFields(dst *storage.BlobStorageFileLog, src *storage.BlobStorageFileLog) {
	if src.FileSizeBytes != nil {
		dst.FileSizeBytes = src.FileSizeBytes
	}
	if src.ContentType != nil {
		dst.ContentType = src.ContentType
	}
	if src.Compression != nil {
		dst.Compression = src.Compression
	}
}
