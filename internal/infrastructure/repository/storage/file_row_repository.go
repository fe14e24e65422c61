package storage

import (
	"context"
	"errors"
	"fmt"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/sideseat/sideseat-core/internal/core/domain/storage"
	"github.com/sideseat/sideseat-core/pkg/ulid"
)

type fileRowRepository struct {
	db *gorm.DB
}

// NewFileRowRepository creates a relational file-row ledger repository. It
// works unmodified against either the Postgres or embedded SQLite backend:
// both speak the INSERT ... ON CONFLICT ... DO UPDATE ... RETURNING
// dialect this repository relies on for atomic upsert.
func NewFileRowRepository(db *gorm.DB) storage.FileRowRepository {
	return &fileRowRepository{db: db}
}

func (r *fileRowRepository) UpsertFile(ctx context.Context, row *storage.FileRow) (*storage.FileRow, error) {
	if row.ID == "" {
		row.ID = ulid.New().String()
	}
	if row.HashAlgo == "" {
		row.HashAlgo = "sha256"
	}

	var result storage.FileRow
	err := r.db.WithContext(ctx).Raw(`
		INSERT INTO file_rows (id, project_id, file_hash, hash_algo, media_type, size_bytes, ref_count, created_at, updated_at)
		VALUES (?, ?, ?, ?, ?, ?, 1, CURRENT_TIMESTAMP, CURRENT_TIMESTAMP)
		ON CONFLICT (project_id, file_hash) DO UPDATE SET
			ref_count = file_rows.ref_count + 1,
			updated_at = CURRENT_TIMESTAMP
		RETURNING id, project_id, file_hash, hash_algo, media_type, size_bytes, ref_count, created_at, updated_at
	`, row.ID, row.ProjectID, row.FileHash, row.HashAlgo, row.MediaType, row.SizeBytes).Scan(&result).Error
	if err != nil {
		return nil, fmt.Errorf("upsert file row: %w", err)
	}

	return &result, nil
}

func (r *fileRowRepository) DecrementRefCount(ctx context.Context, projectID, fileHash string) (int64, error) {
	var refCount int64
	err := r.db.WithContext(ctx).Raw(`
		UPDATE file_rows SET ref_count = ref_count - 1, updated_at = CURRENT_TIMESTAMP
		WHERE project_id = ? AND file_hash = ? AND ref_count > 0
		RETURNING ref_count
	`, projectID, fileHash).Scan(&refCount).Error
	if err != nil {
		return 0, fmt.Errorf("decrement file ref count: %w", err)
	}
	return refCount, nil
}

func (r *fileRowRepository) DeleteFile(ctx context.Context, projectID, fileHash string) error {
	err := r.db.WithContext(ctx).
		Where("project_id = ? AND file_hash = ?", projectID, fileHash).
		Delete(&storage.FileRow{}).Error
	if err != nil {
		return fmt.Errorf("delete file row: %w", err)
	}
	return nil
}

func (r *fileRowRepository) GetByHash(ctx context.Context, projectID, fileHash string) (*storage.FileRow, error) {
	var row storage.FileRow
	err := r.db.WithContext(ctx).
		Where("project_id = ? AND file_hash = ?", projectID, fileHash).
		First(&row).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, err
		}
		return nil, fmt.Errorf("get file row by hash: %w", err)
	}
	return &row, nil
}

func (r *fileRowRepository) ListZeroRefCount(ctx context.Context, limit int) ([]*storage.FileRow, error) {
	var rows []*storage.FileRow
	err := r.db.WithContext(ctx).
		Where("ref_count = 0").
		Limit(limit).
		Find(&rows).Error
	if err != nil {
		return nil, fmt.Errorf("list zero ref count file rows: %w", err)
	}
	return rows, nil
}

func (r *fileRowRepository) DeleteByProject(ctx context.Context, projectID string) error {
	err := r.db.WithContext(ctx).
		Where("project_id = ?", projectID).
		Delete(&storage.FileRow{}).Error
	if err != nil {
		return fmt.Errorf("delete file rows by project: %w", err)
	}
	return nil
}

func (r *fileRowRepository) LinkTraceFile(ctx context.Context, link *storage.TraceFile) error {
	err := r.db.WithContext(ctx).
		Clauses(clause.OnConflict{DoNothing: true}).
		Create(link).Error
	if err != nil {
		return fmt.Errorf("link trace file: %w", err)
	}
	return nil
}

func (r *fileRowRepository) ListTraceFiles(ctx context.Context, traceID, projectID string) ([]*storage.TraceFile, error) {
	var links []*storage.TraceFile
	err := r.db.WithContext(ctx).
		Where("trace_id = ? AND project_id = ?", traceID, projectID).
		Find(&links).Error
	if err != nil {
		return nil, fmt.Errorf("list trace files: %w", err)
	}
	return links, nil
}
