package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/sirupsen/logrus"
	"product-sync-service/internal/clients"
	"product-sync-service/internal/models"
	"product-sync-service/internal/repository"
	"product-sync-service/internal/sync"
)

// SettingsHandler serves the store selection, category mapping and cache
// administration endpoints backing the settings UI
type SettingsHandler struct {
	repo         *repository.SettingsRepository
	storesClient *clients.StoresClient
	index        *sync.ExternalIDIndex
	logger       *logrus.Entry
}

func NewSettingsHandler(repo *repository.SettingsRepository, storesClient *clients.StoresClient, index *sync.ExternalIDIndex, logger *logrus.Logger) *SettingsHandler {
	return &SettingsHandler{
		repo:         repo,
		storesClient: storesClient,
		index:        index,
		logger:       logger.WithField("component", "settings-handler"),
	}
}

// ListStores returns the upstream store catalog
// @Summary List stores
// @Description Lists the stores available from the upstream catalog API
// @Tags Stores
// @Produce json
// @Success 200 {object} models.SuccessResponse
// @Failure 502 {object} models.ErrorResponse
// @Router /api/v1/stores [get]
func (h *SettingsHandler) ListStores(c *gin.Context) {
	stores, err := h.storesClient.GetStores(c.Request.Context())
	if err != nil {
		h.logger.WithError(err).Error("Failed to fetch stores")
		c.JSON(http.StatusBadGateway, models.ErrorResponse{
			Error: models.Error{Code: "STORES_UNAVAILABLE", Message: err.Error()},
		})
		return
	}
	c.JSON(http.StatusOK, models.SuccessResponse{Success: true, Data: stores})
}

// ListStoreCategories returns the categories of one upstream store
// @Summary List store categories
// @Description Lists the categories of one store from the upstream catalog API
// @Tags Stores
// @Produce json
// @Param storeId path string true "Store ID"
// @Success 200 {object} models.SuccessResponse
// @Failure 502 {object} models.ErrorResponse
// @Router /api/v1/stores/{storeId}/categories [get]
func (h *SettingsHandler) ListStoreCategories(c *gin.Context) {
	categories, err := h.storesClient.GetCategories(c.Request.Context(), c.Param("storeId"))
	if err != nil {
		h.logger.WithError(err).Error("Failed to fetch store categories")
		c.JSON(http.StatusBadGateway, models.ErrorResponse{
			Error: models.Error{Code: "STORES_UNAVAILABLE", Message: err.Error()},
		})
		return
	}
	c.JSON(http.StatusOK, models.SuccessResponse{Success: true, Data: categories})
}

// RefreshStoresCache drops the cached upstream payload
// @Summary Refresh the stores cache
// @Description Clears the cached upstream store payload so the next read refetches
// @Tags Stores
// @Produce json
// @Success 200 {object} models.SuccessResponse
// @Failure 500 {object} models.ErrorResponse
// @Router /api/v1/stores/cache/refresh [post]
func (h *SettingsHandler) RefreshStoresCache(c *gin.Context) {
	if err := h.storesClient.ClearCache(c.Request.Context()); err != nil {
		c.JSON(http.StatusInternalServerError, models.ErrorResponse{
			Error: models.Error{Code: "CACHE_CLEAR_FAILED", Message: err.Error()},
		})
		return
	}
	message := "Stores cache cleared"
	c.JSON(http.StatusOK, models.SuccessResponse{Success: true, Message: &message})
}

// GetStoreMapping returns the category mapping for one store
// @Summary Get a store mapping
// @Description Returns the fallback category and category mappings configured for one store
// @Tags Settings
// @Produce json
// @Param storeId path string true "Store ID"
// @Success 200 {object} models.SuccessResponse
// @Failure 500 {object} models.ErrorResponse
// @Router /api/v1/settings/mappings/{storeId} [get]
func (h *SettingsHandler) GetStoreMapping(c *gin.Context) {
	storeID := c.Param("storeId")
	setting, err := h.repo.GetStoreSetting(c.Request.Context(), storeID)
	if err != nil {
		c.JSON(http.StatusInternalServerError, models.ErrorResponse{
			Error: models.Error{Code: "SETTINGS_READ_FAILED", Message: err.Error()},
		})
		return
	}
	if setting == nil {
		// Never-configured stores answer an empty mapping, not 404
		mappings := models.StringMap{}
		setting = &models.StoreSetting{StoreID: storeID, CategoryMappings: &mappings}
	}
	c.JSON(http.StatusOK, models.SuccessResponse{Success: true, Data: setting})
}

// UpdateStoreMapping replaces the category mapping for one store
// @Summary Update a store mapping
// @Description Replaces the fallback category and category mappings for one store
// @Tags Settings
// @Accept json
// @Produce json
// @Param storeId path string true "Store ID"
// @Param mapping body models.UpdateStoreMappingRequest true "Mapping data"
// @Success 200 {object} models.SuccessResponse
// @Failure 400 {object} models.ErrorResponse
// @Failure 500 {object} models.ErrorResponse
// @Router /api/v1/settings/mappings/{storeId} [put]
func (h *SettingsHandler) UpdateStoreMapping(c *gin.Context) {
	var req models.UpdateStoreMappingRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, models.ErrorResponse{
			Error: models.Error{Code: "INVALID_REQUEST", Message: err.Error()},
		})
		return
	}

	setting, err := h.repo.UpsertStoreMapping(c.Request.Context(), c.Param("storeId"), &req)
	if err != nil {
		c.JSON(http.StatusInternalServerError, models.ErrorResponse{
			Error: models.Error{Code: "SETTINGS_WRITE_FAILED", Message: err.Error()},
		})
		return
	}
	c.JSON(http.StatusOK, models.SuccessResponse{Success: true, Data: setting})
}

// ListStoreSettings returns all configured stores
// @Summary List store settings
// @Description Lists every configured store with its enabled flag and mappings
// @Tags Settings
// @Produce json
// @Success 200 {object} models.SuccessResponse
// @Failure 500 {object} models.ErrorResponse
// @Router /api/v1/settings/stores [get]
func (h *SettingsHandler) ListStoreSettings(c *gin.Context) {
	settings, err := h.repo.ListStoreSettings(c.Request.Context())
	if err != nil {
		c.JSON(http.StatusInternalServerError, models.ErrorResponse{
			Error: models.Error{Code: "SETTINGS_READ_FAILED", Message: err.Error()},
		})
		return
	}
	c.JSON(http.StatusOK, models.SuccessResponse{Success: true, Data: settings})
}

// SetEnabledStores replaces the enabled-store selection
// @Summary Set enabled stores
// @Description Marks exactly the given stores as enabled, disabling all others
// @Tags Settings
// @Accept json
// @Produce json
// @Param stores body models.UpdateEnabledStoresRequest true "Enabled store IDs"
// @Success 200 {object} models.SuccessResponse
// @Failure 400 {object} models.ErrorResponse
// @Failure 500 {object} models.ErrorResponse
// @Router /api/v1/settings/stores [put]
func (h *SettingsHandler) SetEnabledStores(c *gin.Context) {
	var req models.UpdateEnabledStoresRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, models.ErrorResponse{
			Error: models.Error{Code: "INVALID_REQUEST", Message: err.Error()},
		})
		return
	}

	if err := h.repo.SetEnabledStores(c.Request.Context(), req.EnabledStores); err != nil {
		c.JSON(http.StatusInternalServerError, models.ErrorResponse{
			Error: models.Error{Code: "SETTINGS_WRITE_FAILED", Message: err.Error()},
		})
		return
	}
	message := "Enabled stores updated"
	c.JSON(http.StatusOK, models.SuccessResponse{Success: true, Message: &message})
}

// RefreshIndex drops the cached external-ID index
// @Summary Refresh the product index
// @Description Invalidates the cached external-ID index so the next sync rebuilds it
// @Tags Sync
// @Produce json
// @Success 200 {object} models.SuccessResponse
// @Router /api/v1/sync/index/refresh [post]
func (h *SettingsHandler) RefreshIndex(c *gin.Context) {
	h.index.Invalidate()
	message := "Product index invalidated"
	c.JSON(http.StatusOK, models.SuccessResponse{Success: true, Message: &message})
}
