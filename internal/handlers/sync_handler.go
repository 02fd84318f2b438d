package handlers

import (
	"net/http"
	"path/filepath"
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/sirupsen/logrus"
	"product-sync-service/internal/events"
	"product-sync-service/internal/models"
	"product-sync-service/internal/sync"
)

// SyncHandler serves the catalog upload endpoint
type SyncHandler struct {
	engine    *sync.Engine
	publisher *events.Publisher
	logger    *logrus.Entry
}

func NewSyncHandler(engine *sync.Engine, publisher *events.Publisher, logger *logrus.Logger) *SyncHandler {
	return &SyncHandler{
		engine:    engine,
		publisher: publisher,
		logger:    logger.WithField("component", "sync-handler"),
	}
}

// Ping answers GET on the sync endpoint so integrators can verify reachability
// @Summary Sync endpoint liveness
// @Description Confirms the catalog sync endpoint is reachable
// @Tags Sync
// @Produce json
// @Success 200 {object} map[string]interface{}
// @Router /product-sync/v1/products [get]
func (h *SyncHandler) Ping(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{
		"ok":      true,
		"message": "Product CSV endpoint is working. Send POST with a CSV file (field name: file).",
	})
}

// Upload processes an uploaded catalog file
// @Summary Sync a catalog file
// @Description Uploads a CSV or XLSX catalog and reconciles it against the product store. A processed file always answers 200; per-row failures are reported in the body.
// @Tags Sync
// @Accept multipart/form-data
// @Produce json
// @Param file formData file true "Catalog file (CSV or XLSX)"
// @Success 200 {object} models.SyncResult
// @Failure 400 {object} models.ErrorResponse
// @Failure 500 {object} models.ErrorResponse
// @Router /product-sync/v1/products [post]
func (h *SyncHandler) Upload(c *gin.Context) {
	if h.engine == nil {
		c.JSON(http.StatusInternalServerError, models.ErrorResponse{
			Error: models.Error{Code: "SYNC_UNAVAILABLE", Message: "Sync engine is not available."},
		})
		return
	}

	fileHeader, err := c.FormFile("file")
	if err != nil {
		c.JSON(http.StatusBadRequest, models.ErrorResponse{
			Error: models.Error{Code: "NO_FILE", Message: `No CSV file uploaded. Please send it as "file" (multipart/form-data).`},
		})
		return
	}

	file, err := fileHeader.Open()
	if err != nil {
		c.JSON(http.StatusInternalServerError, models.ErrorResponse{
			Error: models.Error{Code: "CANNOT_OPEN", Message: "Cannot open uploaded CSV file."},
		})
		return
	}
	defer file.Close()

	var rows []models.CatalogRow
	switch strings.ToLower(filepath.Ext(fileHeader.Filename)) {
	case ".xlsx":
		rows, err = sync.ParseXLSX(file)
	default:
		rows, err = sync.ParseCSV(file)
	}
	if err != nil {
		h.logger.WithError(err).WithField("filename", fileHeader.Filename).Error("Failed to parse catalog file")
		c.JSON(http.StatusInternalServerError, models.ErrorResponse{
			Error: models.Error{Code: "PARSE_FAILED", Message: err.Error()},
		})
		return
	}

	result, err := h.engine.Run(c.Request.Context(), rows)
	if err != nil {
		h.logger.WithError(err).Error("Sync run failed")
		c.JSON(http.StatusInternalServerError, models.ErrorResponse{
			Error: models.Error{Code: "SYNC_FAILED", Message: err.Error()},
		})
		return
	}

	h.logger.WithFields(logrus.Fields{
		"filename":        fileHeader.Filename,
		"rows":            len(rows),
		"created":         result.Created,
		"stock_updated":   result.StockUpdated,
		"stock_unchanged": result.StockUnchanged,
		"error_count":     result.ErrorCount,
	}).Info("Catalog sync completed")

	if h.publisher != nil {
		h.publisher.PublishSyncCompleted(fileHeader.Filename, len(rows), result)
	}

	c.JSON(http.StatusOK, result)
}
