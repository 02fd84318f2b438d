package models

import (
	"time"

	"github.com/google/uuid"
)

// StoreSetting holds the per-store import configuration managed from the
// settings surface: whether the store is enabled, the fallback local category,
// and the remote-to-local category mapping. The sync engine never writes here.
type StoreSetting struct {
	ID                 uuid.UUID  `json:"id" gorm:"type:uuid;primary_key;default:gen_random_uuid()"`
	StoreID            string     `json:"storeId" gorm:"not null;uniqueIndex:idx_store_settings_store_id"`
	Enabled            bool       `json:"enabled" gorm:"not null;default:false"`
	FallbackCategoryID *int64     `json:"fallbackCategoryId,omitempty"`
	CategoryMappings   *StringMap `json:"categoryMappings,omitempty" gorm:"type:jsonb"`
	CreatedAt          time.Time  `json:"createdAt"`
	UpdatedAt          time.Time  `json:"updatedAt"`
}

// UpdateStoreMappingRequest updates the category mapping tab for one store
type UpdateStoreMappingRequest struct {
	FallbackCategoryID *int64            `json:"fallbackCategoryId,omitempty"`
	CategoryMappings   map[string]string `json:"categoryMappings"`
}

// UpdateEnabledStoresRequest updates the enabled-store selection
type UpdateEnabledStoresRequest struct {
	EnabledStores []string `json:"enabledStores" binding:"required"`
}

// TableName returns the table name for the StoreSetting model
func (StoreSetting) TableName() string {
	return "store_settings"
}
