package filestore

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/sirupsen/logrus"

	"github.com/sideseat/sideseat-core/internal/config"
	"github.com/sideseat/sideseat-core/internal/core/domain/storage"
	"github.com/sideseat/sideseat-core/internal/transport/http/middleware"
	"github.com/sideseat/sideseat-core/pkg/response"
)

// Handler exposes the general-purpose content-addressed blob store over
// HTTP, distinct from the observability blob store used for large event
// payloads ingested off the telemetry path.
type Handler struct {
	config  *config.Config
	logger  *logrus.Logger
	service storage.BlobStorageService
}

func NewHandler(cfg *config.Config, logger *logrus.Logger, service storage.BlobStorageService) *Handler {
	return &Handler{
		config:  cfg,
		logger:  logger,
		service: service,
	}
}

// UploadRequest represents the request body for uploading file content.
type UploadRequest struct {
	Content    string `json:"content" binding:"required" description:"Raw content to store"`
	ProjectID  string `json:"project_id" binding:"required" description:"Owning project ID"`
	EntityType string `json:"entity_type" binding:"required" description:"Type of entity this file is attached to"`
	EntityID   string `json:"entity_id" binding:"required" description:"ID of the entity this file is attached to"`
}

// Upload handles POST /files
func (h *Handler) Upload(c *gin.Context) {
	authCtx, exists := middleware.GetAuthContext(c)
	if !exists {
		response.Unauthorized(c, "Authentication required")
		return
	}

	var req UploadRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.BadRequest(c, "Invalid request payload", err.Error())
		return
	}

	blob, err := h.service.UploadToS3(c.Request.Context(), req.Content, req.ProjectID, req.EntityType, req.EntityID, "")
	if err != nil {
		h.logger.WithError(err).WithField("user_id", authCtx.UserID).Error("Failed to upload file")
		response.Error(c, err)
		return
	}

	c.JSON(http.StatusCreated, response.SuccessResponse{Success: true, Data: blob})
}

// Get handles GET /files/:fileId
func (h *Handler) Get(c *gin.Context) {
	fileID := c.Param("fileId")

	blob, err := h.service.GetBlobByID(c.Request.Context(), fileID)
	if err != nil {
		response.Error(c, err)
		return
	}

	response.Success(c, blob)
}

// Download handles GET /files/:fileId/content
func (h *Handler) Download(c *gin.Context) {
	fileID := c.Param("fileId")

	content, err := h.service.DownloadFromS3(c.Request.Context(), fileID)
	if err != nil {
		response.Error(c, err)
		return
	}

	c.String(http.StatusOK, content)
}

// List handles GET /projects/:projectId/files
func (h *Handler) List(c *gin.Context) {
	projectID := c.Param("projectId")

	blobs, err := h.service.GetBlobsByProjectID(c.Request.Context(), projectID, nil)
	if err != nil {
		response.Error(c, err)
		return
	}

	response.Success(c, blobs)
}

// Delete handles DELETE /files/:fileId
func (h *Handler) Delete(c *gin.Context) {
	fileID := c.Param("fileId")

	if err := h.service.DeleteBlobReference(c.Request.Context(), fileID); err != nil {
		response.Error(c, err)
		return
	}

	c.Status(http.StatusNoContent)
}
