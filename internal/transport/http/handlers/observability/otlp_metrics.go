package observability

import (
	"io"
	"log/slog"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/sideseat/sideseat-core/internal/core/domain/observability"
	"github.com/sideseat/sideseat-core/pkg/response"
)

// OTLPMetricsHandler handles OTLP metrics HTTP requests, delegating
// decoding/conversion/publishing to the shared observability.IngestionPipeline
// the same way OTLPHandler does for traces.
type OTLPMetricsHandler struct {
	pipeline observability.IngestionPipeline
	logger   *slog.Logger
}

// NewOTLPMetricsHandler creates a new OTLP metrics handler.
func NewOTLPMetricsHandler(pipeline observability.IngestionPipeline, logger *slog.Logger) *OTLPMetricsHandler {
	return &OTLPMetricsHandler{
		pipeline: pipeline,
		logger:   logger,
	}
}

// HandleMetrics handles both POST /v1/metrics (legacy) and
// POST /otel/:projectId/v1/metrics (URL-derived tenant).
//
// @Summary OTLP metrics ingestion endpoint (OpenTelemetry spec compliant)
// @Description Accepts OpenTelemetry Protocol (OTLP) metrics in JSON or Protobuf format
// @Tags SDK - OTLP
// @Accept json
// @Accept application/x-protobuf
// @Produce json
// @Security ApiKeyAuth
// @Param request body observability.OTLPMetricsRequest true "OTLP metrics export request"
// @Success 200 {object} response.APIResponse{data=map[string]interface{}} "Metrics accepted"
// @Failure 400 {object} response.APIResponse{error=response.APIError} "Invalid OTLP request"
// @Failure 401 {object} response.APIResponse{error=response.APIError} "Invalid or missing API key"
// @Failure 500 {object} response.APIResponse{error=response.APIError} "Internal server error"
// @Router /otel/{project_id}/v1/metrics [post]
func (h *OTLPMetricsHandler) HandleMetrics(c *gin.Context) {
	ctx := c.Request.Context()

	projectID := requestProjectID(c)

	c.Request.Body = http.MaxBytesReader(c.Writer, c.Request.Body, maxOTLPRequestSize)
	body, err := io.ReadAll(c.Request.Body)
	if err != nil {
		h.logger.Error("Failed to read OTLP metrics request body", "error", err)
		response.ErrorWithStatus(c, http.StatusRequestEntityTooLarge, "payload_too_large", "Request body exceeds maximum size", "")
		return
	}

	contentType := c.GetHeader("Content-Type")
	if enc := c.GetHeader("Content-Encoding"); enc != "" {
		contentType = contentType + ";" + enc
	}

	result, err := h.pipeline.IngestMetrics(ctx, projectID, contentType, body)
	if err != nil {
		h.logger.Error("Failed to ingest OTLP metrics", "project_id", projectID, "error", err)
		response.ValidationError(c, "invalid OTLP request", err.Error())
		return
	}

	h.logger.Info("Successfully published OTLP metrics batch",
		"project_id", projectID,
		"batch_id", result.BatchID.String(),
		"stream_id", result.StreamID,
		"event_count", result.ProcessedEvents,
	)

	response.Success(c, gin.H{
		"batch_id":    result.BatchID.String(),
		"event_count": result.ProcessedEvents,
		"status":      "accepted",
	})
}
