package repository

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
	"product-sync-service/internal/models"
	"gorm.io/gorm"
)

// Cache TTL constants
const (
	ProductCacheTTL = 5 * time.Minute // Single product read cache
)

// CatalogRepositoryInterface is the persistence contract consumed by the sync
// engine. Implementations must treat a missing attachment lookup as (nil, nil).
type CatalogRepositoryInterface interface {
	ExternalIDEntries(ctx context.Context) (map[string]uuid.UUID, error)
	GetProduct(ctx context.Context, id uuid.UUID) (*models.Product, error)
	CreateProduct(ctx context.Context, product *models.Product) error
	SaveProduct(ctx context.Context, product *models.Product) error
	ListVariations(ctx context.Context, productID uuid.UUID) ([]*models.ProductVariation, error)
	SaveVariation(ctx context.Context, variation *models.ProductVariation) error
	FindAttachmentBySourceURL(ctx context.Context, sourceURL string) (*models.Attachment, error)
	GetAttachment(ctx context.Context, id uuid.UUID) (*models.Attachment, error)
	CreateAttachment(ctx context.Context, attachment *models.Attachment) error
	SaveAttachment(ctx context.Context, attachment *models.Attachment) error
}

type CatalogRepository struct {
	db    *gorm.DB
	redis *redis.Client
}

var _ CatalogRepositoryInterface = (*CatalogRepository)(nil)

func NewCatalogRepository(db *gorm.DB, redis *redis.Client) *CatalogRepository {
	return &CatalogRepository{
		db:    db,
		redis: redis,
	}
}

func productCacheKey(id uuid.UUID) string {
	return fmt.Sprintf("product-sync:product:%s", id.String())
}

func (r *CatalogRepository) invalidateProductCache(ctx context.Context, id uuid.UUID) {
	if r.redis == nil {
		return
	}
	r.redis.Del(ctx, productCacheKey(id))
}

// ExternalIDEntries scans the catalog for external-ID metadata and returns the
// external-ID -> product-ID mapping. Later rows win on duplicate external IDs.
func (r *CatalogRepository) ExternalIDEntries(ctx context.Context) (map[string]uuid.UUID, error) {
	type entry struct {
		ID         uuid.UUID
		ExternalID string
	}
	var entries []entry
	err := r.db.WithContext(ctx).
		Model(&models.Product{}).
		Select("id", "external_id").
		Where("external_id IS NOT NULL AND external_id <> ''").
		Order("updated_at ASC").
		Find(&entries).Error
	if err != nil {
		return nil, fmt.Errorf("failed to scan external IDs: %w", err)
	}

	index := make(map[string]uuid.UUID, len(entries))
	for _, e := range entries {
		index[e.ExternalID] = e.ID
	}
	return index, nil
}

// GetProduct retrieves a product by ID with read-through caching
func (r *CatalogRepository) GetProduct(ctx context.Context, id uuid.UUID) (*models.Product, error) {
	cacheKey := productCacheKey(id)

	if r.redis != nil {
		val, err := r.redis.Get(ctx, cacheKey).Result()
		if err == nil {
			var product models.Product
			if err := json.Unmarshal([]byte(val), &product); err == nil {
				return &product, nil
			}
		}
	}

	var product models.Product
	if err := r.db.WithContext(ctx).Where("id = ?", id).First(&product).Error; err != nil {
		return nil, err
	}

	if r.redis != nil {
		if data, err := json.Marshal(product); err == nil {
			r.redis.Set(ctx, cacheKey, data, ProductCacheTTL)
		}
	}

	return &product, nil
}

// CreateProduct creates a new product, generating a slug when absent
func (r *CatalogRepository) CreateProduct(ctx context.Context, product *models.Product) error {
	if product.ID == uuid.Nil {
		product.ID = uuid.New()
	}
	product.CreatedAt = time.Now()
	product.UpdatedAt = time.Now()

	if product.Slug == nil || *product.Slug == "" {
		baseSlug := GenerateSlug(product.Name)
		// First 8 chars of the product ID keep slugs unique
		uniqueSlug := fmt.Sprintf("%s-%s", baseSlug, product.ID.String()[:8])
		product.Slug = &uniqueSlug
	}

	return r.db.WithContext(ctx).Create(product).Error
}

// SaveProduct persists the full product record and invalidates its cache
func (r *CatalogRepository) SaveProduct(ctx context.Context, product *models.Product) error {
	product.UpdatedAt = time.Now()
	err := r.db.WithContext(ctx).Save(product).Error
	if err == nil {
		r.invalidateProductCache(ctx, product.ID)
	}
	return err
}

// ListVariations returns all variations belonging to a variable product
func (r *CatalogRepository) ListVariations(ctx context.Context, productID uuid.UUID) ([]*models.ProductVariation, error) {
	var variations []*models.ProductVariation
	err := r.db.WithContext(ctx).
		Where("product_id = ?", productID).
		Order("created_at ASC").
		Find(&variations).Error
	if err != nil {
		return nil, err
	}
	return variations, nil
}

// SaveVariation creates or updates a variation
func (r *CatalogRepository) SaveVariation(ctx context.Context, variation *models.ProductVariation) error {
	if variation.ID == uuid.Nil {
		variation.ID = uuid.New()
		variation.CreatedAt = time.Now()
	}
	variation.UpdatedAt = time.Now()
	err := r.db.WithContext(ctx).Save(variation).Error
	if err == nil {
		// Parent carries the variation list on reads
		r.invalidateProductCache(ctx, variation.ProductID)
	}
	return err
}

// FindAttachmentBySourceURL looks up a virtual attachment by exact source URL.
// Returns (nil, nil) when no attachment matches.
func (r *CatalogRepository) FindAttachmentBySourceURL(ctx context.Context, sourceURL string) (*models.Attachment, error) {
	var attachments []*models.Attachment
	err := r.db.WithContext(ctx).
		Where("source_url = ?", sourceURL).
		Order("created_at ASC").
		Limit(1).
		Find(&attachments).Error
	if err != nil {
		return nil, err
	}
	if len(attachments) == 0 {
		return nil, nil
	}
	return attachments[0], nil
}

// GetAttachment retrieves an attachment by ID
func (r *CatalogRepository) GetAttachment(ctx context.Context, id uuid.UUID) (*models.Attachment, error) {
	var attachment models.Attachment
	if err := r.db.WithContext(ctx).Where("id = ?", id).First(&attachment).Error; err != nil {
		return nil, err
	}
	return &attachment, nil
}

// CreateAttachment creates a new virtual attachment record
func (r *CatalogRepository) CreateAttachment(ctx context.Context, attachment *models.Attachment) error {
	if attachment.ID == uuid.Nil {
		attachment.ID = uuid.New()
	}
	attachment.CreatedAt = time.Now()
	attachment.UpdatedAt = time.Now()
	return r.db.WithContext(ctx).Create(attachment).Error
}

// SaveAttachment persists attachment metadata backfills
func (r *CatalogRepository) SaveAttachment(ctx context.Context, attachment *models.Attachment) error {
	attachment.UpdatedAt = time.Now()
	return r.db.WithContext(ctx).Save(attachment).Error
}

// GenerateSlug lowercases a name, replaces spaces with hyphens and strips
// anything outside [a-z0-9-]
func GenerateSlug(name string) string {
	slug := strings.ToLower(name)
	slug = strings.ReplaceAll(slug, " ", "-")
	var result strings.Builder
	for _, r := range slug {
		if (r >= 'a' && r <= 'z') || (r >= '0' && r <= '9') || r == '-' {
			result.WriteRune(r)
		}
	}
	return result.String()
}
