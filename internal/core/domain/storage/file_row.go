package storage

import (
	"context"
	"time"
)

// FileRow is the reference-counting ledger entry for one content-addressed
// blob within a project. The same (project_id, file_hash) pair is never
// stored twice: repeated uploads of identical content increment ref_count
// instead of writing new bytes.
type FileRow struct {
	ID         string    `gorm:"column:id;primaryKey"`
	ProjectID  string    `gorm:"column:project_id"`
	FileHash   string    `gorm:"column:file_hash"`
	HashAlgo   string    `gorm:"column:hash_algo"`
	MediaType  string    `gorm:"column:media_type"`
	SizeBytes  int64     `gorm:"column:size_bytes"`
	RefCount   int64     `gorm:"column:ref_count"`
	CreatedAt  time.Time `gorm:"column:created_at"`
	UpdatedAt  time.Time `gorm:"column:updated_at"`
}

// TableName pins the gorm table name; the struct name alone would pluralize
// to "file_rows" anyway but the ledger is referenced by raw SQL elsewhere too.
func (FileRow) TableName() string {
	return "file_rows"
}

// TraceFile associates a content-addressed file with the trace that
// referenced it, independent of the ref-counting ledger above: a trace can
// be deleted without decrementing a file that other traces still reference,
// so this is a plain join table rather than a foreign key on FileRow.
type TraceFile struct {
	TraceID   string    `gorm:"column:trace_id;primaryKey"`
	ProjectID string    `gorm:"column:project_id"`
	FileHash  string    `gorm:"column:file_hash;primaryKey"`
	CreatedAt time.Time `gorm:"column:created_at"`
}

func (TraceFile) TableName() string {
	return "trace_files"
}

// FileRowRepository is the ledger half of the content-addressed file store:
// FileStore (internal/infrastructure/filestore) owns the bytes on disk or in
// S3, this owns the dedup/ref-count bookkeeping in the relational database.
type FileRowRepository interface {
	// UpsertFile atomically inserts a new ledger row at ref_count 1, or
	// increments ref_count on an existing (project_id, file_hash) row, and
	// returns the row as it stands after the operation. Callers use the
	// returned RefCount to decide whether the blob already exists on the
	// underlying store (RefCount > 1 means it does).
	UpsertFile(ctx context.Context, row *FileRow) (*FileRow, error)

	// DecrementRefCount lowers ref_count by one and returns the row's new
	// value. When the new value is zero the caller is responsible for
	// deleting the underlying blob and then calling DeleteFile; leaving the
	// row behind at ref_count zero is valid and is what the temp/orphan
	// sweep later cleans up if blob deletion fails first.
	DecrementRefCount(ctx context.Context, projectID, fileHash string) (int64, error)

	// DeleteFile removes the ledger row outright, used once the underlying
	// blob has been deleted.
	DeleteFile(ctx context.Context, projectID, fileHash string) error

	GetByHash(ctx context.Context, projectID, fileHash string) (*FileRow, error)

	// ListZeroRefCount returns ledger rows with ref_count = 0, the
	// candidates for the periodic orphan sweep.
	ListZeroRefCount(ctx context.Context, limit int) ([]*FileRow, error)

	// DeleteByProject removes every ledger row for a project, used by
	// DeleteProject alongside FileStore.DeleteProject.
	DeleteByProject(ctx context.Context, projectID string) error

	LinkTraceFile(ctx context.Context, link *TraceFile) error
	ListTraceFiles(ctx context.Context, traceID, projectID string) ([]*TraceFile, error)
}
