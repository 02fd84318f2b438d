package repository

import (
	"context"
	"time"

	"github.com/google/uuid"
	"product-sync-service/internal/models"
	"gorm.io/gorm"
)

// SettingsRepository persists the store selection and category mappings
// managed from the settings surface
type SettingsRepository struct {
	db *gorm.DB
}

func NewSettingsRepository(db *gorm.DB) *SettingsRepository {
	return &SettingsRepository{db: db}
}

// ListStoreSettings returns all per-store settings rows
func (r *SettingsRepository) ListStoreSettings(ctx context.Context) ([]models.StoreSetting, error) {
	var settings []models.StoreSetting
	err := r.db.WithContext(ctx).Order("store_id ASC").Find(&settings).Error
	return settings, err
}

// GetStoreSetting returns the settings row for one store, or (nil, nil) when
// the store has never been configured
func (r *SettingsRepository) GetStoreSetting(ctx context.Context, storeID string) (*models.StoreSetting, error) {
	var settings []models.StoreSetting
	err := r.db.WithContext(ctx).Where("store_id = ?", storeID).Limit(1).Find(&settings).Error
	if err != nil {
		return nil, err
	}
	if len(settings) == 0 {
		return nil, nil
	}
	return &settings[0], nil
}

// UpsertStoreMapping replaces the fallback category and category mappings for
// one store, creating the settings row when missing
func (r *SettingsRepository) UpsertStoreMapping(ctx context.Context, storeID string, req *models.UpdateStoreMappingRequest) (*models.StoreSetting, error) {
	setting, err := r.GetStoreSetting(ctx, storeID)
	if err != nil {
		return nil, err
	}
	if setting == nil {
		setting = &models.StoreSetting{
			ID:        uuid.New(),
			StoreID:   storeID,
			CreatedAt: time.Now(),
		}
	}

	setting.FallbackCategoryID = req.FallbackCategoryID
	mappings := models.StringMap(req.CategoryMappings)
	setting.CategoryMappings = &mappings
	setting.UpdatedAt = time.Now()

	if err := r.db.WithContext(ctx).Save(setting).Error; err != nil {
		return nil, err
	}
	return setting, nil
}

// SetEnabledStores marks exactly the given stores as enabled; every other
// configured store is disabled
func (r *SettingsRepository) SetEnabledStores(ctx context.Context, storeIDs []string) error {
	return r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Model(&models.StoreSetting{}).
			Where("enabled = ?", true).
			Update("enabled", false).Error; err != nil {
			return err
		}
		for _, storeID := range storeIDs {
			var existing []models.StoreSetting
			if err := tx.Where("store_id = ?", storeID).Limit(1).Find(&existing).Error; err != nil {
				return err
			}
			if len(existing) == 0 {
				setting := models.StoreSetting{
					ID:        uuid.New(),
					StoreID:   storeID,
					Enabled:   true,
					CreatedAt: time.Now(),
					UpdatedAt: time.Now(),
				}
				if err := tx.Create(&setting).Error; err != nil {
					return err
				}
				continue
			}
			if err := tx.Model(&existing[0]).Update("enabled", true).Error; err != nil {
				return err
			}
		}
		return nil
	})
}
