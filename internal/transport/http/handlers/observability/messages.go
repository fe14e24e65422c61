package observability

import (
	"log/slog"

	"github.com/gin-gonic/gin"

	"github.com/sideseat/sideseat-core/internal/core/domain/observability"
	obsServices "github.com/sideseat/sideseat-core/internal/core/services/observability"
	"github.com/sideseat/sideseat-core/internal/transport/http/middleware"
	"github.com/sideseat/sideseat-core/pkg/response"
)

// MessageHandler serves reconstructed, provider-agnostic conversation feeds.
type MessageHandler struct {
	messageService *obsServices.MessageReconstructionService
	logger         *slog.Logger
}

// NewMessageHandler creates a new message reconstruction handler.
func NewMessageHandler(
	messageService *obsServices.MessageReconstructionService,
	logger *slog.Logger,
) *MessageHandler {
	return &MessageHandler{
		messageService: messageService,
		logger:         logger.With("handler", "messages"),
	}
}

// GetMessagesHTTPResponse is the HTTP response for a reconstructed feed.
// @Description Reconstructed conversation feed with unified tool definitions
type GetMessagesHTTPResponse struct {
	Blocks          []*observability.Block          `json:"blocks"`
	ToolDefinitions []*observability.ToolDefinition `json:"tool_definitions"`
}

// HandleGetMessages handles GET /v1/sessions/:session_id/messages
// @Summary Reconstruct a session's conversation feed
// @Description Produces a deduplicated, provider-agnostic feed of content blocks
// @Description for every GenAI span in a session, optionally restricted to one
// @Description trace via the trace_id query parameter.
// @Tags SDK - Messages
// @Produce json
// @Security ApiKeyAuth
// @Param session_id path string true "Session ID"
// @Param trace_id query string false "Restrict the block feed to this trace (tool definitions stay session-scoped)"
// @Success 200 {object} response.APIResponse{data=GetMessagesHTTPResponse} "Reconstructed message feed"
// @Failure 401 {object} response.APIResponse{error=response.APIError} "Invalid or missing API key"
// @Failure 500 {object} response.APIResponse{error=response.APIError} "Internal server error"
// @Router /v1/sessions/{session_id}/messages [get]
func (h *MessageHandler) HandleGetMessages(c *gin.Context) {
	ctx := c.Request.Context()

	projectIDPtr, exists := middleware.GetProjectID(c)
	if !exists || projectIDPtr == nil {
		h.logger.Error("Project ID not found in context")
		response.Unauthorized(c, "Authentication required")
		return
	}
	projectID := projectIDPtr.String()

	sessionID := c.Param("session_id")
	traceID := c.Query("trace_id")

	directive := observability.GetMessagesDirective{
		SessionID:        sessionID,
		TraceID:          traceID,
		ScopeFeedToTrace: traceID != "",
	}

	feed, err := h.messageService.GetMessages(ctx, projectID, directive)
	if err != nil {
		response.Error(c, err)
		return
	}

	response.Success(c, GetMessagesHTTPResponse{
		Blocks:          feed.Blocks,
		ToolDefinitions: feed.ToolDefinitions,
	})
}
