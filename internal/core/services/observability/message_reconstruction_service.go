package observability

import (
	"context"
	"encoding/json"
	"fmt"
	"sort"
	"time"

	"github.com/sirupsen/logrus"

	"github.com/sideseat/sideseat-core/internal/core/domain/observability"
)

// Span attribute keys carrying a tool/function declaration set. Different
// instrumentation libraries emit the same information under different keys;
// all recognized keys are consulted and their definitions merged.
const (
	attrToolDefinitions       = "gen_ai.request.tools"
	attrToolDefinitionsLegacy = "llm.request.functions"
)

// MessageReconstructionService implements observability.MessageReconstructionService,
// turning GenAI spans' ChatML-shaped input/output message arrays into a
// provider-agnostic feed of content Blocks plus a unified tool-definition set.
type MessageReconstructionService struct {
	messageRepo observability.MessageRepository
	traceRepo   observability.TraceRepository
	logger      *logrus.Logger
}

// NewMessageReconstructionService creates a new message reconstruction service instance.
func NewMessageReconstructionService(
	messageRepo observability.MessageRepository,
	traceRepo observability.TraceRepository,
	logger *logrus.Logger,
) *MessageReconstructionService {
	return &MessageReconstructionService{
		messageRepo: messageRepo,
		traceRepo:   traceRepo,
		logger:      logger,
	}
}

var _ observability.MessageReconstructionService = (*MessageReconstructionService)(nil)

// NormalizeAndStore extracts Blocks from a span's message payloads and
// persists the content-addressed ledger. Spans with no GenAI message content
// (most spans in a trace) are silently skipped - this is the common case,
// not an error.
func (s *MessageReconstructionService) NormalizeAndStore(ctx context.Context, span *observability.Span) error {
	blocks, toolDefs, err := s.blocksFromSpan(span)
	if err != nil {
		return fmt.Errorf("normalize span messages: %w", err)
	}
	if len(blocks) == 0 {
		return nil
	}

	now := time.Now()
	for position, block := range blocks {
		record, err := s.upsertLedgerRow(ctx, span.ProjectID, span.TraceID, block, now)
		if err != nil {
			return fmt.Errorf("upsert normalized message: %w", err)
		}
		if err := s.messageRepo.AppendTracePosition(ctx, &observability.TraceMessageRecord{
			ProjectID:   span.ProjectID,
			TraceID:     span.TraceID,
			SpanID:      span.SpanID,
			Position:    uint16(position),
			ContentHash: record.ContentHash,
			IngestedAt:  now,
		}); err != nil {
			return fmt.Errorf("append trace position: %w", err)
		}
	}

	if len(toolDefs) > 0 {
		s.logger.WithFields(logrus.Fields{
			"trace_id":   span.TraceID,
			"span_id":    span.SpanID,
			"tool_count": len(toolDefs),
		}).Debug("normalized tool definitions for span")
	}

	return nil
}

// upsertLedgerRow resolves the current ref_count for a content hash (if any
// span has already produced this exact block) and writes the next version.
func (s *MessageReconstructionService) upsertLedgerRow(ctx context.Context, projectID, traceID string, block *observability.Block, now time.Time) (*observability.NormalizedMessageRecord, error) {
	contentJSON, err := json.Marshal(block.Content)
	if err != nil {
		return nil, err
	}

	existing, err := s.messageRepo.GetByContentHash(ctx, projectID, block.ContentHash)
	if err != nil {
		return nil, err
	}

	record := &observability.NormalizedMessageRecord{
		ContentHash:      block.ContentHash,
		ProjectID:        projectID,
		Role:             string(block.Role),
		Content:          string(contentJSON),
		FirstSeenTraceID: traceID,
		RefCount:         1,
		CreatedAt:        now,
		IngestedAt:       now,
	}
	if existing != nil {
		record.FirstSeenTraceID = existing.FirstSeenTraceID
		record.CreatedAt = existing.CreatedAt
		record.RefCount = existing.RefCount + 1
	}
	if block.EntryType == observability.EntryToolUse {
		record.ToolCalls = string(contentJSON)
	}

	if err := s.messageRepo.UpsertMessage(ctx, record); err != nil {
		return nil, err
	}
	return record, nil
}

// GetMessages reconstructs a feed for a session, optionally scoped to one
// trace within it. Tool definitions are always unified across the whole
// session, even when the block feed itself is scoped to a single trace.
func (s *MessageReconstructionService) GetMessages(ctx context.Context, projectID string, directive observability.GetMessagesDirective) (*observability.MessageFeed, error) {
	if directive.SessionID == "" {
		return nil, fmt.Errorf("session_id is required to reconstruct a message feed")
	}

	traces, err := s.traceRepo.GetTracesBySessionID(ctx, directive.SessionID)
	if err != nil {
		return nil, fmt.Errorf("list traces for session: %w", err)
	}

	var allBlocks []*observability.Block
	var allToolDefs []*observability.ToolDefinition

	for _, trace := range traces {
		spans, err := s.traceRepo.GetSpansByTraceID(ctx, trace.TraceID)
		if err != nil {
			s.logger.WithError(err).WithField("trace_id", trace.TraceID).Warn("skipping trace while reconstructing message feed")
			continue
		}
		for _, span := range spans {
			blocks, toolDefs, err := s.blocksFromSpan(span)
			if err != nil {
				s.logger.WithError(err).WithField("span_id", span.SpanID).Warn("skipping span while reconstructing message feed")
				continue
			}
			allBlocks = append(allBlocks, blocks...)
			allToolDefs = append(allToolDefs, toolDefs...)
		}
	}

	deduped := dedupeBlocksAcrossTraces(allBlocks)

	if directive.ScopeFeedToTrace && directive.TraceID != "" {
		scoped := make([]*observability.Block, 0, len(deduped))
		for _, b := range deduped {
			if b.TraceID == directive.TraceID {
				scoped = append(scoped, b)
			}
		}
		deduped = scoped
	}

	sort.SliceStable(deduped, func(i, j int) bool {
		if deduped[i].TraceID != deduped[j].TraceID {
			return deduped[i].Timestamp.Before(deduped[j].Timestamp)
		}
		return deduped[i].MessageIndex < deduped[j].MessageIndex ||
			(deduped[i].MessageIndex == deduped[j].MessageIndex && deduped[i].EntryIndex < deduped[j].EntryIndex)
	})

	return &observability.MessageFeed{
		Blocks:          deduped,
		ToolDefinitions: UnifyToolDefinitions(allToolDefs),
	}, nil
}

// dedupeBlocksAcrossTraces collapses blocks sharing (role, content_hash,
// tool_use_id) to their earliest occurrence, extending its span_path to
// reference every later trace the same content was seen in. Callers are
// expected to pass blocks already in chronological order (the iteration
// order of GetMessages visits traces/spans in start_time order).
func dedupeBlocksAcrossTraces(blocks []*observability.Block) []*observability.Block {
	first := make(map[observability.DedupKey]*observability.Block, len(blocks))
	order := make([]observability.DedupKey, 0, len(blocks))

	for _, b := range blocks {
		key := b.DedupKey()
		if existing, seen := first[key]; seen {
			if b.TraceID != existing.TraceID {
				existing.SpanPath = append(existing.SpanPath, b.TraceID+":"+b.SpanID)
			}
			continue
		}
		first[key] = b
		order = append(order, key)
	}

	out := make([]*observability.Block, 0, len(order))
	for _, k := range order {
		out = append(out, first[k])
	}
	return out
}

// blocksFromSpan expands a span's input/output ChatML message arrays into
// Blocks, plus any tool definitions declared in the span's attributes. Spans
// with no recognizable message content yield zero blocks and a nil error -
// most spans in a trace (HTTP handlers, DB queries, non-GenAI instrumentation)
// fall into this case.
func (s *MessageReconstructionService) blocksFromSpan(span *observability.Span) ([]*observability.Block, []*observability.ToolDefinition, error) {
	var blocks []*observability.Block
	inputCount := 0

	if span.Input != nil && *span.Input != "" {
		msgs := parseChatMLMessages(*span.Input)
		for i, msg := range msgs {
			blocks = append(blocks, s.blocksFromMessage(span, msg, i)...)
		}
		inputCount = len(msgs)
	}

	if span.Output != nil && *span.Output != "" {
		msgs := parseChatMLMessages(*span.Output)
		for i, msg := range msgs {
			blocks = append(blocks, s.blocksFromMessage(span, msg, inputCount+i)...)
		}
	}

	toolDefs := extractSpanToolDefinitions(span.SpanAttributes)

	for _, b := range blocks {
		hash, err := observability.ComputeContentHash(b.Role, b.Content)
		if err != nil {
			return nil, nil, fmt.Errorf("compute content hash: %w", err)
		}
		b.ContentHash = hash
	}

	return blocks, toolDefs, nil
}

// blocksFromMessage expands a single ChatML message into one or more Blocks:
// a plain string content yields one text block, a content array yields one
// block per typed item, and a message-level tool_calls array (the OpenAI
// shape) yields one tool_use block per call.
func (s *MessageReconstructionService) blocksFromMessage(span *observability.Span, msg map[string]interface{}, messageIndex int) []*observability.Block {
	role := normalizeRole(msg["role"])
	var blocks []*observability.Block
	entryIndex := 0

	newBlock := func(entryType observability.BlockEntryType, content interface{}) *observability.Block {
		b := &observability.Block{
			EntryType:    entryType,
			Content:      content,
			Role:         role,
			TraceID:      span.TraceID,
			SpanID:       span.SpanID,
			ParentSpanID: span.ParentSpanID,
			MessageIndex: messageIndex,
			EntryIndex:   entryIndex,
			Timestamp:    span.StartTime,
			Model:        span.ModelName,
			Provider:     span.ProviderName,
			SourceType:   "span",
			Category:     spanCategory(span),
			IsError:      span.HasError,
			IsSemantic:   entryType == observability.EntryText || entryType == observability.EntryThinking,
		}
		if sessionID, ok := span.SpanAttributes["session.id"]; ok && sessionID != "" {
			b.SessionID = &sessionID
		}
		if span.SpanType != nil {
			b.ObservationType = span.SpanType
		}
		b.StatusCode = &span.StatusCode
		entryIndex++
		return b
	}

	switch content := msg["content"].(type) {
	case string:
		if content != "" {
			blocks = append(blocks, newBlock(observability.EntryText, content))
		}
	case []interface{}:
		for _, raw := range content {
			item, ok := raw.(map[string]interface{})
			if !ok {
				continue
			}
			blocks = append(blocks, s.blockFromContentItem(newBlock, item)...)
		}
	}

	if toolCalls, ok := msg["tool_calls"].([]interface{}); ok {
		for _, raw := range toolCalls {
			tc, ok := raw.(map[string]interface{})
			if !ok {
				continue
			}
			call := flattenToolCall(tc)
			block := newBlock(observability.EntryToolUse, call)
			block.ToolUseID = &call.ID
			block.ToolName = &call.Name
			blocks = append(blocks, block)
		}
	}

	if role == observability.RoleTool {
		if content, ok := msg["content"].(string); ok && content != "" {
			toolUseID := extractToolUseID(msg)
			result := &observability.ToolResult{ToolUseID: toolUseID, Content: content}
			block := newBlock(observability.EntryToolResult, result)
			if toolUseID != "" {
				block.ToolUseID = &toolUseID
			}
			blocks = append(blocks, block)
		}
	}

	if finishReason, ok := msg["finish_reason"].(string); ok && finishReason != "" && len(blocks) > 0 {
		blocks[len(blocks)-1].FinishReason = &finishReason
	}

	return blocks
}

// blockFromContentItem normalizes one item of a ChatML content array.
func (s *MessageReconstructionService) blockFromContentItem(newBlock func(observability.BlockEntryType, interface{}) *observability.Block, item map[string]interface{}) []*observability.Block {
	itemType, _ := item["type"].(string)

	switch itemType {
	case "tool_use":
		call := flattenAnthropicToolUse(item)
		block := newBlock(observability.EntryToolUse, call)
		block.ToolUseID = &call.ID
		block.ToolName = &call.Name
		return []*observability.Block{block}
	case "tool_result":
		result := flattenToolResult(item)
		block := newBlock(observability.EntryToolResult, result)
		if result.ToolUseID != "" {
			block.ToolUseID = &result.ToolUseID
		}
		return []*observability.Block{block}
	case "thinking", "redacted_thinking", "reasoning":
		text, _ := item["thinking"].(string)
		if text == "" {
			text, _ = item["text"].(string)
		}
		return []*observability.Block{newBlock(observability.EntryThinking, text)}
	case "text", "input_text", "output_text", "":
		if text, ok := item["text"].(string); ok && text != "" {
			return []*observability.Block{newBlock(observability.EntryText, text)}
		}
	}
	return nil
}

// spanCategory derives a coarse content category from the span's
// materialized span_type, falling back to a generic label for spans whose
// type wasn't classified.
func spanCategory(span *observability.Span) string {
	if span.SpanType != nil && *span.SpanType != "" {
		return *span.SpanType
	}
	return "observation"
}

// normalizeRole maps a raw ChatML role value to the fixed role vocabulary.
// The legacy OpenAI "function" role is treated as "tool".
func normalizeRole(raw interface{}) observability.MessageRole {
	s, _ := raw.(string)
	switch s {
	case "system":
		return observability.RoleSystem
	case "user":
		return observability.RoleUser
	case "tool", "function":
		return observability.RoleTool
	default:
		return observability.RoleAssistant
	}
}

// parseChatMLMessages accepts the three shapes a span's input/output string
// may legitimately take: a JSON array of ChatML messages, a single ChatML
// message object, or plain unstructured text (wrapped as a single assistant
// message so it still flows through block extraction).
func parseChatMLMessages(raw string) []map[string]interface{} {
	var asArray []map[string]interface{}
	if err := json.Unmarshal([]byte(raw), &asArray); err == nil {
		return asArray
	}

	var asObject map[string]interface{}
	if err := json.Unmarshal([]byte(raw), &asObject); err == nil {
		if _, hasRole := asObject["role"]; hasRole {
			return []map[string]interface{}{asObject}
		}
	}

	return []map[string]interface{}{
		{"role": "assistant", "content": raw},
	}
}

// flattenToolCall normalizes an OpenAI-shaped tool_calls entry
// ({id, type, function:{name, arguments}}) to the common ToolCall shape.
// Both "arguments" and "args" are accepted.
func flattenToolCall(raw map[string]interface{}) *observability.ToolCall {
	id, _ := raw["id"].(string)
	fn, ok := raw["function"].(map[string]interface{})
	if !ok {
		fn = raw
	}
	name, _ := fn["name"].(string)
	args := fn["arguments"]
	if args == nil {
		args = fn["args"]
	}
	return &observability.ToolCall{
		ID:        id,
		Type:      "function",
		Name:      name,
		Arguments: stringifyArguments(args),
	}
}

// flattenAnthropicToolUse normalizes an Anthropic tool_use content block
// ({type: tool_use, id, name, input}) to the common ToolCall shape.
func flattenAnthropicToolUse(item map[string]interface{}) *observability.ToolCall {
	id, _ := item["id"].(string)
	name, _ := item["name"].(string)
	return &observability.ToolCall{
		ID:        id,
		Type:      "function",
		Name:      name,
		Arguments: stringifyArguments(item["input"]),
	}
}

// flattenToolResult normalizes an Anthropic tool_result content block.
func flattenToolResult(item map[string]interface{}) *observability.ToolResult {
	toolUseID, _ := item["tool_use_id"].(string)
	isError, _ := item["is_error"].(bool)
	return &observability.ToolResult{
		ToolUseID: toolUseID,
		Content:   stringifyArguments(item["content"]),
		IsError:   isError,
	}
}

// stringifyArguments deterministically renders tool-call arguments as a
// string: pass strings through unchanged, JSON-encode everything else.
func stringifyArguments(v interface{}) string {
	switch t := v.(type) {
	case nil:
		return ""
	case string:
		return t
	default:
		b, err := json.Marshal(t)
		if err != nil {
			return fmt.Sprintf("%v", t)
		}
		return string(b)
	}
}

// extractToolUseID resolves the id of the tool call a tool-role message is
// the result of, consulting candidate keys in the order the OpenAI, legacy
// function-role, and Bedrock Converse dialects use them.
func extractToolUseID(msg map[string]interface{}) string {
	if v, ok := msg["tool_call_id"].(string); ok && v != "" {
		return v
	}
	if v, ok := msg["tool_use_id"].(string); ok && v != "" {
		return v
	}
	if role, _ := msg["role"].(string); role == "tool" || role == "function" {
		if v, ok := msg["id"].(string); ok && v != "" {
			return v
		}
		if v, ok := msg["call_id"].(string); ok && v != "" {
			return v
		}
	}
	if toolResult, ok := msg["toolResult"].(map[string]interface{}); ok {
		if v, ok := toolResult["toolUseId"].(string); ok && v != "" {
			return v
		}
	}
	return ""
}

// extractSpanToolDefinitions reads every recognized tool-definition
// attribute key off a span and normalizes its contents.
func extractSpanToolDefinitions(attrs map[string]string) []*observability.ToolDefinition {
	var defs []*observability.ToolDefinition
	for _, key := range []string{attrToolDefinitions, attrToolDefinitionsLegacy} {
		raw, ok := attrs[key]
		if !ok || raw == "" {
			continue
		}
		var generic interface{}
		if err := json.Unmarshal([]byte(raw), &generic); err != nil {
			continue
		}
		defs = append(defs, normalizeToolDefinitionsValue(generic)...)
	}
	return defs
}

// normalizeToolDefinitionsValue dispatches on the top-level JSON shape: a
// bare array of definitions, or a single definition/wrapper object.
func normalizeToolDefinitionsValue(v interface{}) []*observability.ToolDefinition {
	switch t := v.(type) {
	case []interface{}:
		var out []*observability.ToolDefinition
		for _, item := range t {
			if m, ok := item.(map[string]interface{}); ok {
				out = append(out, normalizeOneToolDefinition(m)...)
			}
		}
		return out
	case map[string]interface{}:
		return normalizeOneToolDefinition(t)
	default:
		return nil
	}
}

// normalizeOneToolDefinition normalizes a single tool-definition object to
// the OpenAI-compatible shape, recognizing OpenAI, Anthropic, Bedrock
// Converse, Gemini functionDeclarations, Vercel AI SDK, and Cohere dialects,
// with a fallback that extracts any top-level name. Gemini's
// functionDeclarations wrapper expands to more than one definition.
func normalizeOneToolDefinition(m map[string]interface{}) []*observability.ToolDefinition {
	if decls, ok := m["functionDeclarations"].([]interface{}); ok {
		var out []*observability.ToolDefinition
		for _, d := range decls {
			if dm, ok := d.(map[string]interface{}); ok {
				out = append(out, normalizeOneToolDefinition(dm)...)
			}
		}
		return out
	}

	// OpenAI: {type: function, function: {name, description, parameters}}
	if fn, ok := m["function"].(map[string]interface{}); ok {
		return []*observability.ToolDefinition{buildToolDefinition(fn["name"], fn["description"], fn["parameters"])}
	}

	// Bedrock Converse: {toolSpec: {name, description, inputSchema: {json: {...}}}}
	if spec, ok := m["toolSpec"].(map[string]interface{}); ok {
		var params interface{}
		if schema, ok := spec["inputSchema"].(map[string]interface{}); ok {
			params = schema["json"]
		}
		return []*observability.ToolDefinition{buildToolDefinition(spec["name"], spec["description"], params)}
	}

	// Anthropic: {name, description, input_schema}
	if schema, ok := m["input_schema"]; ok {
		return []*observability.ToolDefinition{buildToolDefinition(m["name"], m["description"], schema)}
	}

	// Vercel AI SDK: {name, description, inputSchema} (camelCase, distinct from Anthropic's snake_case)
	if schema, ok := m["inputSchema"]; ok {
		return []*observability.ToolDefinition{buildToolDefinition(m["name"], m["description"], schema)}
	}

	// Cohere: {name, description, parameter_definitions: {param: {description, type, required}}}
	if paramDefs, ok := m["parameter_definitions"].(map[string]interface{}); ok {
		return []*observability.ToolDefinition{buildToolDefinition(m["name"], m["description"], cohereParamsToJSONSchema(paramDefs))}
	}

	// Fallback: any top-level name, with optional description/parameters.
	if name, ok := m["name"]; ok {
		return []*observability.ToolDefinition{buildToolDefinition(name, m["description"], m["parameters"])}
	}

	return nil
}

func buildToolDefinition(name, description, parameters interface{}) *observability.ToolDefinition {
	def := &observability.ToolDefinition{Type: "function"}
	if n, ok := name.(string); ok {
		def.Function.Name = n
	}
	if d, ok := description.(string); ok {
		def.Function.Description = d
	}
	if p, ok := parameters.(map[string]interface{}); ok {
		def.Function.Parameters = p
	}
	return def
}

// cohereParamsToJSONSchema converts Cohere's parameter_definitions map to an
// OpenAI-compatible JSON Schema object.
func cohereParamsToJSONSchema(paramDefs map[string]interface{}) map[string]interface{} {
	properties := make(map[string]interface{}, len(paramDefs))
	var required []string

	for name, raw := range paramDefs {
		spec, ok := raw.(map[string]interface{})
		if !ok {
			continue
		}
		prop := make(map[string]interface{})
		if t, ok := spec["type"]; ok {
			prop["type"] = t
		}
		if d, ok := spec["description"]; ok {
			prop["description"] = d
		}
		properties[name] = prop
		if req, ok := spec["required"].(bool); ok && req {
			required = append(required, name)
		}
	}

	schema := map[string]interface{}{"type": "object", "properties": properties}
	if len(required) > 0 {
		sort.Strings(required)
		schema["required"] = required
	}
	return schema
}

// toolDefinitionQualityScore implements the quality formula used to pick a
// merge base when the same tool name is declared with different schemas
// across spans: 2*has_description + 2*has_parameters + 4*has_properties + has_required.
func toolDefinitionQualityScore(def *observability.ToolDefinition) int {
	score := 0
	if def.Function.Description != "" {
		score += 2
	}
	if len(def.Function.Parameters) > 0 {
		score += 2
	}
	if props, ok := def.Function.Parameters["properties"].(map[string]interface{}); ok && len(props) > 0 {
		score += 4
	}
	if required, ok := def.Function.Parameters["required"].([]interface{}); ok && len(required) > 0 {
		score++
	} else if requiredStrs, ok := def.Function.Parameters["required"].([]string); ok && len(requiredStrs) > 0 {
		score++
	}
	return score
}

// UnifyToolDefinitions merges same-name tool definitions collected across
// multiple spans: the highest quality-scoring definition is the merge base,
// and empty top-level fields on it are filled in from lower-scoring
// duplicates without overwriting anything already populated.
func UnifyToolDefinitions(defs []*observability.ToolDefinition) []*observability.ToolDefinition {
	byName := make(map[string][]*observability.ToolDefinition)
	var order []string

	for _, d := range defs {
		if d == nil || d.Function.Name == "" {
			continue
		}
		if _, seen := byName[d.Function.Name]; !seen {
			order = append(order, d.Function.Name)
		}
		byName[d.Function.Name] = append(byName[d.Function.Name], d)
	}

	out := make([]*observability.ToolDefinition, 0, len(order))
	for _, name := range order {
		group := byName[name]
		sort.SliceStable(group, func(i, j int) bool {
			return toolDefinitionQualityScore(group[i]) > toolDefinitionQualityScore(group[j])
		})

		base := *group[0]
		for _, other := range group[1:] {
			if base.Function.Description == "" && other.Function.Description != "" {
				base.Function.Description = other.Function.Description
			}
			if len(base.Function.Parameters) == 0 && len(other.Function.Parameters) > 0 {
				base.Function.Parameters = other.Function.Parameters
			}
		}
		out = append(out, &base)
	}
	return out
}
