package observability

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/sideseat/sideseat-core/internal/core/domain/observability"
)

func TestComputeContentHash_Deterministic(t *testing.T) {
	h1, err := observability.ComputeContentHash(observability.RoleUser, "hello world")
	require.NoError(t, err)
	h2, err := observability.ComputeContentHash(observability.RoleUser, "hello world")
	require.NoError(t, err)
	assert.Equal(t, h1, h2)
	assert.Len(t, h1, 64) // hex-encoded SHA-256
}

func TestComputeContentHash_DifferentRoleOrContentDiffers(t *testing.T) {
	base, err := observability.ComputeContentHash(observability.RoleUser, "hello")
	require.NoError(t, err)

	diffRole, err := observability.ComputeContentHash(observability.RoleAssistant, "hello")
	require.NoError(t, err)
	assert.NotEqual(t, base, diffRole)

	diffContent, err := observability.ComputeContentHash(observability.RoleUser, "goodbye")
	require.NoError(t, err)
	assert.NotEqual(t, base, diffContent)
}

func TestComputeContentHash_MapKeyOrderIgnored(t *testing.T) {
	a := map[string]interface{}{"id": "1", "name": "search"}
	b := map[string]interface{}{"name": "search", "id": "1"}

	hashA, err := observability.ComputeContentHash(observability.RoleAssistant, a)
	require.NoError(t, err)
	hashB, err := observability.ComputeContentHash(observability.RoleAssistant, b)
	require.NoError(t, err)
	assert.Equal(t, hashA, hashB)
}

func TestParseChatMLMessages_Array(t *testing.T) {
	msgs := parseChatMLMessages(`[{"role":"user","content":"hi"},{"role":"assistant","content":"hello"}]`)
	require.Len(t, msgs, 2)
	assert.Equal(t, "user", msgs[0]["role"])
	assert.Equal(t, "assistant", msgs[1]["role"])
}

func TestParseChatMLMessages_SingleObject(t *testing.T) {
	msgs := parseChatMLMessages(`{"role":"user","content":"hi"}`)
	require.Len(t, msgs, 1)
	assert.Equal(t, "user", msgs[0]["role"])
}

func TestParseChatMLMessages_PlainTextFallback(t *testing.T) {
	msgs := parseChatMLMessages("just some raw text, not JSON at all")
	require.Len(t, msgs, 1)
	assert.Equal(t, "assistant", msgs[0]["role"])
	assert.Equal(t, "just some raw text, not JSON at all", msgs[0]["content"])
}

func TestNormalizeRole(t *testing.T) {
	assert.Equal(t, observability.RoleSystem, normalizeRole("system"))
	assert.Equal(t, observability.RoleUser, normalizeRole("user"))
	assert.Equal(t, observability.RoleTool, normalizeRole("tool"))
	assert.Equal(t, observability.RoleTool, normalizeRole("function"))
	assert.Equal(t, observability.RoleAssistant, normalizeRole("assistant"))
	assert.Equal(t, observability.RoleAssistant, normalizeRole(nil))
}

func TestFlattenToolCall_OpenAIShape(t *testing.T) {
	raw := map[string]interface{}{
		"id":   "call_123",
		"type": "function",
		"function": map[string]interface{}{
			"name":      "get_weather",
			"arguments": `{"city":"nyc"}`,
		},
	}
	call := flattenToolCall(raw)
	assert.Equal(t, "call_123", call.ID)
	assert.Equal(t, "get_weather", call.Name)
	assert.Equal(t, `{"city":"nyc"}`, call.Arguments)
}

func TestFlattenToolCall_ArgsAlias(t *testing.T) {
	raw := map[string]interface{}{
		"id": "call_1",
		"function": map[string]interface{}{
			"name": "lookup",
			"args": map[string]interface{}{"q": "foo"},
		},
	}
	call := flattenToolCall(raw)
	assert.Equal(t, "lookup", call.Name)
	assert.JSONEq(t, `{"q":"foo"}`, call.Arguments)
}

func TestFlattenAnthropicToolUse(t *testing.T) {
	item := map[string]interface{}{
		"type": "tool_use",
		"id":   "toolu_1",
		"name": "search",
		"input": map[string]interface{}{
			"query": "golang",
		},
	}
	call := flattenAnthropicToolUse(item)
	assert.Equal(t, "toolu_1", call.ID)
	assert.Equal(t, "search", call.Name)
	assert.JSONEq(t, `{"query":"golang"}`, call.Arguments)
}

func TestFlattenToolResult(t *testing.T) {
	item := map[string]interface{}{
		"type":        "tool_result",
		"tool_use_id": "toolu_1",
		"content":     "42 degrees",
		"is_error":    false,
	}
	result := flattenToolResult(item)
	assert.Equal(t, "toolu_1", result.ToolUseID)
	assert.Equal(t, "42 degrees", result.Content)
	assert.False(t, result.IsError)
}

func TestStringifyArguments(t *testing.T) {
	assert.Equal(t, "", stringifyArguments(nil))
	assert.Equal(t, "raw string", stringifyArguments("raw string"))
	assert.JSONEq(t, `{"a":1}`, stringifyArguments(map[string]interface{}{"a": float64(1)}))
}

func TestExtractToolUseID_PrecedenceOrder(t *testing.T) {
	assert.Equal(t, "a", extractToolUseID(map[string]interface{}{"tool_call_id": "a", "tool_use_id": "b"}))
	assert.Equal(t, "b", extractToolUseID(map[string]interface{}{"tool_use_id": "b"}))
	assert.Equal(t, "c", extractToolUseID(map[string]interface{}{"role": "tool", "id": "c"}))
	assert.Equal(t, "d", extractToolUseID(map[string]interface{}{"role": "function", "call_id": "d"}))
	assert.Equal(t, "e", extractToolUseID(map[string]interface{}{
		"toolResult": map[string]interface{}{"toolUseId": "e"},
	}))
	assert.Equal(t, "", extractToolUseID(map[string]interface{}{"role": "assistant"}))
}

func TestNormalizeOneToolDefinition_OpenAI(t *testing.T) {
	m := map[string]interface{}{
		"type": "function",
		"function": map[string]interface{}{
			"name":        "get_weather",
			"description": "Gets the weather",
			"parameters": map[string]interface{}{
				"type":       "object",
				"properties": map[string]interface{}{"city": map[string]interface{}{"type": "string"}},
			},
		},
	}
	defs := normalizeOneToolDefinition(m)
	require.Len(t, defs, 1)
	assert.Equal(t, "get_weather", defs[0].Function.Name)
	assert.Equal(t, "Gets the weather", defs[0].Function.Description)
}

func TestNormalizeOneToolDefinition_Anthropic(t *testing.T) {
	m := map[string]interface{}{
		"name":        "search",
		"description": "Search the web",
		"input_schema": map[string]interface{}{
			"type": "object",
		},
	}
	defs := normalizeOneToolDefinition(m)
	require.Len(t, defs, 1)
	assert.Equal(t, "search", defs[0].Function.Name)
	assert.NotNil(t, defs[0].Function.Parameters)
}

func TestNormalizeOneToolDefinition_Bedrock(t *testing.T) {
	m := map[string]interface{}{
		"toolSpec": map[string]interface{}{
			"name":        "calculator",
			"description": "Does math",
			"inputSchema": map[string]interface{}{
				"json": map[string]interface{}{"type": "object"},
			},
		},
	}
	defs := normalizeOneToolDefinition(m)
	require.Len(t, defs, 1)
	assert.Equal(t, "calculator", defs[0].Function.Name)
	assert.Equal(t, "Does math", defs[0].Function.Description)
}

func TestNormalizeOneToolDefinition_Gemini(t *testing.T) {
	m := map[string]interface{}{
		"functionDeclarations": []interface{}{
			map[string]interface{}{"name": "fn_a", "description": "A"},
			map[string]interface{}{"name": "fn_b", "description": "B"},
		},
	}
	defs := normalizeOneToolDefinition(m)
	require.Len(t, defs, 2)
	assert.Equal(t, "fn_a", defs[0].Function.Name)
	assert.Equal(t, "fn_b", defs[1].Function.Name)
}

func TestNormalizeOneToolDefinition_Vercel(t *testing.T) {
	m := map[string]interface{}{
		"name":        "lookup",
		"description": "Looks things up",
		"inputSchema": map[string]interface{}{"type": "object"},
	}
	defs := normalizeOneToolDefinition(m)
	require.Len(t, defs, 1)
	assert.Equal(t, "lookup", defs[0].Function.Name)
}

func TestNormalizeOneToolDefinition_Cohere(t *testing.T) {
	m := map[string]interface{}{
		"name":        "translate",
		"description": "Translates text",
		"parameter_definitions": map[string]interface{}{
			"text": map[string]interface{}{"type": "str", "description": "text to translate", "required": true},
			"lang": map[string]interface{}{"type": "str", "required": false},
		},
	}
	defs := normalizeOneToolDefinition(m)
	require.Len(t, defs, 1)
	assert.Equal(t, "translate", defs[0].Function.Name)
	props, ok := defs[0].Function.Parameters["properties"].(map[string]interface{})
	require.True(t, ok)
	assert.Contains(t, props, "text")
	assert.Contains(t, props, "lang")
	required, ok := defs[0].Function.Parameters["required"].([]string)
	require.True(t, ok)
	assert.Equal(t, []string{"text"}, required)
}

func TestNormalizeOneToolDefinition_FallbackNameOnly(t *testing.T) {
	m := map[string]interface{}{"name": "bare_tool"}
	defs := normalizeOneToolDefinition(m)
	require.Len(t, defs, 1)
	assert.Equal(t, "bare_tool", defs[0].Function.Name)
	assert.Empty(t, defs[0].Function.Description)
}

func TestToolDefinitionQualityScore(t *testing.T) {
	bare := &observability.ToolDefinition{Function: observability.ToolFunctionDefinition{Name: "t"}}
	assert.Equal(t, 0, toolDefinitionQualityScore(bare))

	withDescription := &observability.ToolDefinition{Function: observability.ToolFunctionDefinition{
		Name: "t", Description: "desc",
	}}
	assert.Equal(t, 2, toolDefinitionQualityScore(withDescription))

	full := &observability.ToolDefinition{Function: observability.ToolFunctionDefinition{
		Name:        "t",
		Description: "desc",
		Parameters: map[string]interface{}{
			"type":       "object",
			"properties": map[string]interface{}{"a": map[string]interface{}{"type": "string"}},
			"required":   []interface{}{"a"},
		},
	}}
	// description(2) + parameters(2) + properties(4) + required(1) = 9
	assert.Equal(t, 9, toolDefinitionQualityScore(full))
}

func TestUnifyToolDefinitions_MergesByNameKeepsHighestQuality(t *testing.T) {
	low := &observability.ToolDefinition{Function: observability.ToolFunctionDefinition{Name: "search"}}
	high := &observability.ToolDefinition{Function: observability.ToolFunctionDefinition{
		Name:        "search",
		Description: "Searches the web",
		Parameters: map[string]interface{}{
			"type":       "object",
			"properties": map[string]interface{}{"q": map[string]interface{}{"type": "string"}},
		},
	}}

	unified := UnifyToolDefinitions([]*observability.ToolDefinition{low, high})
	require.Len(t, unified, 1)
	assert.Equal(t, "Searches the web", unified[0].Function.Description)
	assert.NotEmpty(t, unified[0].Function.Parameters)
}

func TestUnifyToolDefinitions_FillsMissingFieldsFromDuplicates(t *testing.T) {
	withDescriptionOnly := &observability.ToolDefinition{Function: observability.ToolFunctionDefinition{
		Name:        "search",
		Description: "Searches the web",
	}}
	withParamsOnly := &observability.ToolDefinition{Function: observability.ToolFunctionDefinition{
		Name: "search",
		Parameters: map[string]interface{}{
			"type":       "object",
			"properties": map[string]interface{}{"q": map[string]interface{}{"type": "string"}},
		},
	}}

	unified := UnifyToolDefinitions([]*observability.ToolDefinition{withDescriptionOnly, withParamsOnly})
	require.Len(t, unified, 1)
	assert.Equal(t, "Searches the web", unified[0].Function.Description)
	assert.NotEmpty(t, unified[0].Function.Parameters)
}

func TestUnifyToolDefinitions_IgnoresUnnamed(t *testing.T) {
	unified := UnifyToolDefinitions([]*observability.ToolDefinition{
		{Function: observability.ToolFunctionDefinition{Name: ""}},
		nil,
	})
	assert.Empty(t, unified)
}

func TestDedupeBlocksAcrossTraces_CollapsesSameContent(t *testing.T) {
	hash, err := observability.ComputeContentHash(observability.RoleUser, "hi there")
	require.NoError(t, err)

	b1 := &observability.Block{Role: observability.RoleUser, ContentHash: hash, TraceID: "trace-1", SpanID: "span-1"}
	b2 := &observability.Block{Role: observability.RoleUser, ContentHash: hash, TraceID: "trace-2", SpanID: "span-2"}

	deduped := dedupeBlocksAcrossTraces([]*observability.Block{b1, b2})
	require.Len(t, deduped, 1)
	assert.Same(t, b1, deduped[0])
	assert.Contains(t, deduped[0].SpanPath, "trace-2:span-2")
}

func TestDedupeBlocksAcrossTraces_DistinctToolUseIDsNotCollapsed(t *testing.T) {
	hash, err := observability.ComputeContentHash(observability.RoleAssistant, map[string]interface{}{"name": "search"})
	require.NoError(t, err)

	id1, id2 := "toolu_1", "toolu_2"
	b1 := &observability.Block{Role: observability.RoleAssistant, ContentHash: hash, ToolUseID: &id1, TraceID: "t1"}
	b2 := &observability.Block{Role: observability.RoleAssistant, ContentHash: hash, ToolUseID: &id2, TraceID: "t1"}

	deduped := dedupeBlocksAcrossTraces([]*observability.Block{b1, b2})
	assert.Len(t, deduped, 2)
}

func TestSpanCategory_FallsBackWhenUnclassified(t *testing.T) {
	span := &observability.Span{}
	assert.Equal(t, "observation", spanCategory(span))

	spanType := "llm"
	span.SpanType = &spanType
	assert.Equal(t, "llm", spanCategory(span))
}
