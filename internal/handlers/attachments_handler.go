package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/sirupsen/logrus"
	"product-sync-service/internal/models"
	"product-sync-service/internal/repository"
)

// AttachmentsHandler resolves virtual attachments to their remote image URLs
type AttachmentsHandler struct {
	repo   repository.CatalogRepositoryInterface
	logger *logrus.Entry
}

func NewAttachmentsHandler(repo repository.CatalogRepositoryInterface, logger *logrus.Logger) *AttachmentsHandler {
	return &AttachmentsHandler{
		repo:   repo,
		logger: logger.WithField("component", "attachments-handler"),
	}
}

// RedirectImage redirects to the attachment's remote source URL
// @Summary Resolve an attachment image
// @Description Redirects to the remote image URL behind a virtual attachment
// @Tags Attachments
// @Param id path string true "Attachment ID"
// @Success 302
// @Failure 400 {object} models.ErrorResponse
// @Failure 404 {object} models.ErrorResponse
// @Router /api/v1/attachments/{id}/image [get]
func (h *AttachmentsHandler) RedirectImage(c *gin.Context) {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		c.JSON(http.StatusBadRequest, models.ErrorResponse{
			Error: models.Error{Code: "INVALID_ID", Message: "Invalid attachment ID"},
		})
		return
	}

	attachment, err := h.repo.GetAttachment(c.Request.Context(), id)
	if err != nil || attachment == nil {
		c.JSON(http.StatusNotFound, models.ErrorResponse{
			Error: models.Error{Code: "NOT_FOUND", Message: "Attachment not found"},
		})
		return
	}

	c.Redirect(http.StatusFound, attachment.SourceURL)
}
