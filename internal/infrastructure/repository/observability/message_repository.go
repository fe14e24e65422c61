package observability

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/ClickHouse/clickhouse-go/v2"

	"github.com/sideseat/sideseat-core/internal/core/domain/observability"
)

// messageRepository implements ClickHouse persistence for the
// content-addressed message ledger (normalized_messages, trace_messages)
// backing reconstructed conversation feeds.
type messageRepository struct {
	db clickhouse.Conn
}

// NewMessageRepository creates a new message ledger repository instance.
func NewMessageRepository(db clickhouse.Conn) observability.MessageRepository {
	return &messageRepository{db: db}
}

// GetByContentHash resolves the current ledger row for (project_id,
// content_hash), collapsing ReplacingMergeTree versions with FINAL so a
// ref-count bump always starts from the latest known count.
func (r *messageRepository) GetByContentHash(ctx context.Context, projectID, contentHash string) (*observability.NormalizedMessageRecord, error) {
	row := r.db.QueryRow(ctx, `
		SELECT content_hash, project_id, role, content, tool_calls,
		       first_seen_trace_id, ref_count, created_at, ingested_at
		FROM normalized_messages FINAL
		WHERE project_id = ? AND content_hash = ?
	`, projectID, contentHash)

	var rec observability.NormalizedMessageRecord
	if err := row.Scan(
		&rec.ContentHash, &rec.ProjectID, &rec.Role, &rec.Content, &rec.ToolCalls,
		&rec.FirstSeenTraceID, &rec.RefCount, &rec.CreatedAt, &rec.IngestedAt,
	); err != nil {
		if err == sql.ErrNoRows {
			return nil, nil
		}
		return nil, fmt.Errorf("scan normalized message: %w", err)
	}
	return &rec, nil
}

// UpsertMessage writes a new version of the ledger row. ReplacingMergeTree
// collapses on (project_id, content_hash) by greatest ingested_at, so a
// ref-count bump is expressed as inserting a new row with RefCount already
// incremented by the caller rather than an UPDATE.
func (r *messageRepository) UpsertMessage(ctx context.Context, msg *observability.NormalizedMessageRecord) error {
	return r.db.Exec(ctx, `
		INSERT INTO normalized_messages (
			content_hash, project_id, role, content, tool_calls,
			first_seen_trace_id, ref_count, created_at, ingested_at
		) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)
	`,
		msg.ContentHash, msg.ProjectID, msg.Role, msg.Content, msg.ToolCalls,
		msg.FirstSeenTraceID, msg.RefCount, msg.CreatedAt, msg.IngestedAt,
	)
}

// AppendTracePosition records that (trace_id, span_id, position) references
// content_hash. Always an append - trace_messages has no independent
// lifecycle beyond the span that produced it.
func (r *messageRepository) AppendTracePosition(ctx context.Context, ref *observability.TraceMessageRecord) error {
	return r.db.Exec(ctx, `
		INSERT INTO trace_messages (
			project_id, trace_id, span_id, position, content_hash, ingested_at
		) VALUES (?, ?, ?, ?, ?, ?)
	`,
		ref.ProjectID, ref.TraceID, ref.SpanID, ref.Position, ref.ContentHash, ref.IngestedAt,
	)
}
