package observability

import (
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"time"
)

// MessageRole is the normalized role of a reconstructed content block.
type MessageRole string

const (
	RoleSystem    MessageRole = "system"
	RoleUser      MessageRole = "user"
	RoleAssistant MessageRole = "assistant"
	RoleTool      MessageRole = "tool"
)

// BlockEntryType identifies the shape of a Block's Content payload.
type BlockEntryType string

const (
	EntryText       BlockEntryType = "text"
	EntryToolUse    BlockEntryType = "tool_use"
	EntryToolResult BlockEntryType = "tool_result"
	EntryThinking   BlockEntryType = "thinking"
)

// ToolCall is the flattened, provider-agnostic shape of a single tool
// invocation extracted from an assistant message, regardless of whether the
// source dialect carried it as a separate tool_calls array (OpenAI) or as a
// tool_use content block (Anthropic, Bedrock).
type ToolCall struct {
	ID        string `json:"id"`
	Type      string `json:"type"` // always "function"
	Name      string `json:"name"`
	Arguments string `json:"arguments"`
}

// ToolResult is the flattened shape of a tool's return value, keyed back to
// the call that produced it via ToolUseID.
type ToolResult struct {
	ToolUseID string `json:"tool_use_id"`
	Content   string `json:"content"`
	IsError   bool   `json:"is_error,omitempty"`
}

// ToolFunctionDefinition is the OpenAI-compatible function schema every
// recognized provider dialect is normalized down to.
type ToolFunctionDefinition struct {
	Name        string                 `json:"name"`
	Description string                 `json:"description,omitempty"`
	Parameters  map[string]interface{} `json:"parameters,omitempty"`
}

// ToolDefinition wraps a ToolFunctionDefinition in the OpenAI tool envelope.
type ToolDefinition struct {
	Type     string                 `json:"type"` // always "function"
	Function ToolFunctionDefinition `json:"function"`
}

// Block is one normalized, content-addressed unit of a reconstructed
// conversation feed. A GenAI span's input/output message arrays each expand
// into zero or more Blocks.
type Block struct {
	EntryType       BlockEntryType `json:"entry_type"`
	Content         interface{}    `json:"content"`
	Role            MessageRole    `json:"role"`
	TraceID         string         `json:"trace_id"`
	SpanID          string         `json:"span_id"`
	SessionID       *string        `json:"session_id,omitempty"`
	MessageIndex    int            `json:"message_index"`
	EntryIndex      int            `json:"entry_index"`
	ParentSpanID    *string        `json:"parent_span_id,omitempty"`
	SpanPath        []string       `json:"span_path,omitempty"`
	Timestamp       time.Time      `json:"timestamp"`
	ObservationType *string        `json:"observation_type,omitempty"`
	Model           *string        `json:"model,omitempty"`
	Provider        *string        `json:"provider,omitempty"`
	Name            *string        `json:"name,omitempty"`
	FinishReason    *string        `json:"finish_reason,omitempty"`
	ToolUseID       *string        `json:"tool_use_id,omitempty"`
	ToolName        *string        `json:"tool_name,omitempty"`
	Tokens          *uint64        `json:"tokens,omitempty"`
	Cost            *float64       `json:"cost,omitempty"`
	StatusCode      *uint8         `json:"status_code,omitempty"`
	IsError         bool           `json:"is_error"`
	SourceType      string         `json:"source_type"`
	Category        string         `json:"category"`
	ContentHash     string         `json:"content_hash"`
	IsSemantic      bool           `json:"is_semantic"`
}

// contentHashPayload is the normalized struct content_hash is computed over.
// Field order is fixed and Content's map keys are sorted by encoding/json,
// so two blocks with equal (role, content) always hash identically
// regardless of how their source JSON happened to order its keys.
type contentHashPayload struct {
	Role    MessageRole `json:"role"`
	Content interface{} `json:"content"`
}

// ComputeContentHash returns the SHA-256 hex digest of the canonical JSON
// encoding of {role, content}, used to deduplicate identical blocks across
// spans and traces.
func ComputeContentHash(role MessageRole, content interface{}) (string, error) {
	payload, err := json.Marshal(contentHashPayload{Role: role, Content: content})
	if err != nil {
		return "", err
	}
	sum := sha256.Sum256(payload)
	return hex.EncodeToString(sum[:]), nil
}

// DedupKey identifies a Block for cross-trace deduplication: blocks sharing
// (role, content_hash, tool_use_id) across different traces within the same
// session are collapsed to their earliest occurrence.
type DedupKey struct {
	Role        MessageRole
	ContentHash string
	ToolUseID   string
}

func (b *Block) DedupKey() DedupKey {
	key := DedupKey{Role: b.Role, ContentHash: b.ContentHash}
	if b.ToolUseID != nil {
		key.ToolUseID = *b.ToolUseID
	}
	return key
}

// MessageFeed is a reconstructed, ordered conversation feed plus the
// deduplicated tool-definition set referenced by it.
type MessageFeed struct {
	Blocks          []*Block          `json:"blocks"`
	ToolDefinitions []*ToolDefinition `json:"tool_definitions"`
}

// GetMessagesDirective controls how a feed is materialized: either across an
// entire session, or restricted to one trace within a session (in which case
// the tool-definition set is still computed over the whole session).
type GetMessagesDirective struct {
	SessionID        string
	TraceID          string
	ScopeFeedToTrace bool
}

// NormalizedMessageRecord is the content-addressed ledger row for a single
// deduplicated (role, content) pair, backed by the normalized_messages table.
type NormalizedMessageRecord struct {
	ContentHash       string    `json:"content_hash" db:"content_hash"`
	ProjectID         string    `json:"project_id" db:"project_id"`
	Role              string    `json:"role" db:"role"`
	Content           string    `json:"content" db:"content"`
	ToolCalls         string    `json:"tool_calls" db:"tool_calls"`
	FirstSeenTraceID  string    `json:"first_seen_trace_id" db:"first_seen_trace_id"`
	RefCount          uint32    `json:"ref_count" db:"ref_count"`
	CreatedAt         time.Time `json:"created_at" db:"created_at"`
	IngestedAt        time.Time `json:"ingested_at" db:"ingested_at"`
}

// TraceMessageRecord links a trace/span position to a deduplicated message,
// backed by the trace_messages table.
type TraceMessageRecord struct {
	ProjectID   string    `json:"project_id" db:"project_id"`
	TraceID     string    `json:"trace_id" db:"trace_id"`
	SpanID      string    `json:"span_id" db:"span_id"`
	Position    uint16    `json:"position" db:"position"`
	ContentHash string    `json:"content_hash" db:"content_hash"`
	IngestedAt  time.Time `json:"ingested_at" db:"ingested_at"`
}
