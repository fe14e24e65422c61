package observability

import (
	"io"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/sirupsen/logrus"

	"github.com/sideseat/sideseat-core/internal/core/domain/observability"
	"github.com/sideseat/sideseat-core/internal/transport/http/middleware"
	"github.com/sideseat/sideseat-core/pkg/response"
)

// maxOTLPRequestSize matches the OTel Collector's default HTTP receiver limit.
const maxOTLPRequestSize = 10 * 1024 * 1024

// OTLPHandler handles OTLP HTTP trace ingestion requests. All decoding,
// tenant resolution, conversion, deduplication, and stream publishing is
// delegated to an observability.IngestionPipeline - this handler's job is
// limited to wire plumbing: pulling the URL/auth project id, reading the
// body, and translating the result into an HTTP response.
type OTLPHandler struct {
	pipeline observability.IngestionPipeline
	logger   *logrus.Logger
}

// NewOTLPHandler creates a new OTLP trace handler.
func NewOTLPHandler(pipeline observability.IngestionPipeline, logger *logrus.Logger) *OTLPHandler {
	return &OTLPHandler{
		pipeline: pipeline,
		logger:   logger,
	}
}

// HandleTraces handles both POST /v1/traces (legacy, API-key-derived tenant)
// and POST /otel/:projectId/v1/traces (URL-derived tenant, the OTLP-native
// route). When the route carries a :projectId URL segment it takes
// precedence over the authenticated key's project; otherwise the key's
// project is used. See observability.IngestionPipeline for the full
// precedence rule against the OTLP resource attribute.
//
// @Summary OTLP trace ingestion endpoint (OpenTelemetry spec compliant)
// @Description Accepts OpenTelemetry Protocol (OTLP) traces in JSON or Protobuf format
// @Tags SDK - OTLP
// @Accept json
// @Accept application/x-protobuf
// @Produce json
// @Security ApiKeyAuth
// @Param request body observability.OTLPRequest true "OTLP trace export request"
// @Success 200 {object} response.APIResponse{data=map[string]interface{}} "Traces accepted"
// @Failure 400 {object} response.APIResponse{error=response.APIError} "Invalid OTLP request"
// @Failure 401 {object} response.APIResponse{error=response.APIError} "Invalid or missing API key"
// @Failure 500 {object} response.APIResponse{error=response.APIError} "Internal server error"
// @Router /otel/{project_id}/v1/traces [post]
func (h *OTLPHandler) HandleTraces(c *gin.Context) {
	ctx := c.Request.Context()

	projectID := requestProjectID(c)

	c.Request.Body = http.MaxBytesReader(c.Writer, c.Request.Body, maxOTLPRequestSize)
	body, err := io.ReadAll(c.Request.Body)
	if err != nil {
		h.logger.WithError(err).Error("Failed to read OTLP request body")
		response.ErrorWithStatus(c, http.StatusRequestEntityTooLarge, "payload_too_large", "Request body exceeds maximum size", "")
		return
	}

	contentType := c.GetHeader("Content-Type")
	if enc := c.GetHeader("Content-Encoding"); enc != "" {
		contentType = contentType + ";" + enc
	}

	result, err := h.pipeline.IngestTraces(ctx, projectID, contentType, body)
	if err != nil {
		h.logger.WithFields(logrus.Fields{
			"project_id": projectID,
			"error":      err.Error(),
		}).Error("Failed to ingest OTLP traces")
		response.ValidationError(c, "invalid OTLP request", err.Error())
		return
	}

	if result.AllDuplicates {
		h.logger.WithFields(logrus.Fields{
			"project_id": projectID,
			"duplicates": result.DuplicateEvents,
		}).Info("All OTLP spans were duplicates, skipping")
		response.Success(c, map[string]interface{}{
			"status":          "all_duplicates",
			"duplicate_spans": result.DuplicateEvents,
		})
		return
	}

	h.logger.WithFields(logrus.Fields{
		"batch_id":       result.BatchID.String(),
		"stream_id":      result.StreamID,
		"claimed_events": result.ProcessedEvents,
		"duplicates":     result.DuplicateEvents,
		"project_id":     projectID,
	}).Info("OTLP traces published to stream successfully")

	response.Success(c, map[string]interface{}{
		"status":          "accepted",
		"batch_id":        result.BatchID.String(),
		"stream_id":       result.StreamID,
		"processed_spans": result.ProcessedEvents,
		"duplicate_spans": result.DuplicateEvents,
	})
}

// requestProjectID resolves the project id to hand the ingestion pipeline:
// the URL path segment when the route provides one (the OTLP-native
// /otel/:projectId family), falling back to the authenticated API key's
// project for routes that have none (the legacy /v1 family). An empty
// return means neither source had one; the pipeline rejects that case
// after also checking the OTLP resource attribute.
func requestProjectID(c *gin.Context) string {
	if urlProjectID := c.Param("projectId"); urlProjectID != "" {
		return urlProjectID
	}

	projectIDPtr, exists := middleware.GetProjectID(c)
	if !exists || projectIDPtr == nil {
		return ""
	}
	return projectIDPtr.String()
}
