package models

import (
	"database/sql/driver"
	"encoding/json"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// ProductType is the shape of a catalog product. The sync engine switches
// exhaustively on this tag instead of inspecting the record at runtime.
type ProductType string

const (
	ProductTypeSimple   ProductType = "simple"
	ProductTypeVariable ProductType = "variable"
)

// ProductStatus represents the publish state of a product
type ProductStatus string

const (
	ProductStatusPublish ProductStatus = "publish"
	ProductStatusDraft   ProductStatus = "draft"
)

// StockStatus represents the stock availability of a product or variation
type StockStatus string

const (
	StockStatusInStock    StockStatus = "in_stock"
	StockStatusOutOfStock StockStatus = "out_of_stock"
)

// JSON type for PostgreSQL JSONB (object/map)
type JSON map[string]interface{}

func (j JSON) Value() (driver.Value, error) {
	return json.Marshal(j)
}

func (j *JSON) Scan(value interface{}) error {
	if value == nil {
		*j = make(JSON)
		return nil
	}
	bytes, ok := value.([]byte)
	if !ok {
		return nil
	}
	return json.Unmarshal(bytes, j)
}

// StringMap type for PostgreSQL JSONB holding string-to-string maps,
// used for per-variation attribute values
type StringMap map[string]string

func (m StringMap) Value() (driver.Value, error) {
	return json.Marshal(m)
}

func (m *StringMap) Scan(value interface{}) error {
	if value == nil {
		*m = make(StringMap)
		return nil
	}
	bytes, ok := value.([]byte)
	if !ok {
		return nil
	}
	return json.Unmarshal(bytes, m)
}

// ProductAttribute is an attribute definition owned by a variable product:
// a display name plus the set of allowed values
type ProductAttribute struct {
	Name      string   `json:"name"`
	Options   []string `json:"options"`
	Position  int      `json:"position"`
	Visible   bool     `json:"visible"`
	Variation bool     `json:"variation"`
}

// AttributeSet type for PostgreSQL JSONB holding a product's attribute definitions
type AttributeSet []ProductAttribute

func (a AttributeSet) Value() (driver.Value, error) {
	return json.Marshal(a)
}

func (a *AttributeSet) Scan(value interface{}) error {
	if value == nil {
		*a = make(AttributeSet, 0)
		return nil
	}
	bytes, ok := value.([]byte)
	if !ok {
		return nil
	}
	return json.Unmarshal(bytes, a)
}

// Product represents a catalog product. ExternalID is the identifier from the
// source catalog and the stable join key for re-imports; the sync engine keeps
// an in-memory index over it (see internal/sync).
type Product struct {
	ID             uuid.UUID           `json:"id" gorm:"type:uuid;primary_key;default:gen_random_uuid()"`
	ExternalID     *string             `json:"externalId,omitempty" gorm:"index:idx_products_external_id"`
	Type           ProductType         `json:"type" gorm:"not null;default:'simple'"`
	Name           string              `json:"name" gorm:"not null"`
	Slug           *string             `json:"slug,omitempty" gorm:"index"`
	RegularPrice   *string             `json:"regularPrice,omitempty"`
	Status         ProductStatus       `json:"status" gorm:"not null;default:'publish';index"`
	ManageStock    bool                `json:"manageStock" gorm:"not null;default:false"`
	StockStatus    StockStatus         `json:"stockStatus" gorm:"not null;default:'out_of_stock'"`
	StockQuantity  *int                `json:"stockQuantity,omitempty"`
	ImageID        *uuid.UUID          `json:"imageId,omitempty" gorm:"type:uuid"`
	ImageSourceURL *string             `json:"imageSourceUrl,omitempty"`
	Attributes     *AttributeSet       `json:"attributes,omitempty" gorm:"type:jsonb"`
	Metadata       *JSON               `json:"metadata,omitempty" gorm:"type:jsonb"`
	Variations     []*ProductVariation `json:"variations,omitempty" gorm:"foreignKey:ProductID;constraint:OnDelete:CASCADE"`
	CreatedAt      time.Time           `json:"createdAt"`
	UpdatedAt      time.Time           `json:"updatedAt"`
	DeletedAt      *gorm.DeletedAt     `json:"deletedAt,omitempty" gorm:"index"`
}

// ProductVariation is a child SKU of a variable product, distinguished by its
// attribute-value combination. Attributes holds meta-style keys
// ("attribute_<slug>" -> value) so re-imports can match by value identity.
type ProductVariation struct {
	ID             uuid.UUID       `json:"id" gorm:"type:uuid;primary_key;default:gen_random_uuid()"`
	ProductID      uuid.UUID       `json:"productId" gorm:"type:uuid;not null;index"`
	SKU            string          `json:"sku" gorm:"not null;index"`
	RegularPrice   *string         `json:"regularPrice,omitempty"`
	ManageStock    bool            `json:"manageStock" gorm:"not null;default:true"`
	StockStatus    StockStatus     `json:"stockStatus" gorm:"not null;default:'out_of_stock'"`
	StockQuantity  int             `json:"stockQuantity" gorm:"not null;default:0"`
	Attributes     StringMap       `json:"attributes" gorm:"type:jsonb"`
	ImageID        *uuid.UUID      `json:"imageId,omitempty" gorm:"type:uuid"`
	ImageSourceURL *string         `json:"imageSourceUrl,omitempty"`
	CreatedAt      time.Time       `json:"createdAt"`
	UpdatedAt      time.Time       `json:"updatedAt"`
	DeletedAt      *gorm.DeletedAt `json:"deletedAt,omitempty" gorm:"index"`
}

// Attachment is a virtual image record: it points at a remote URL and owns no
// local bytes. SourceURL is both the canonical locator and the dedupe key
// (lookup-before-create, not a storage constraint).
type Attachment struct {
	ID        uuid.UUID  `json:"id" gorm:"type:uuid;primary_key;default:gen_random_uuid()"`
	SourceURL string     `json:"sourceUrl" gorm:"not null;index:idx_attachments_source_url"`
	MimeType  string     `json:"mimeType" gorm:"not null;default:'image/*'"`
	Title     string     `json:"title"`
	ParentID  *uuid.UUID `json:"parentId,omitempty" gorm:"type:uuid"`
	Metadata  *JSON      `json:"metadata,omitempty" gorm:"type:jsonb"`
	CreatedAt time.Time  `json:"createdAt"`
	UpdatedAt time.Time  `json:"updatedAt"`
}

type ErrorResponse struct {
	Success bool  `json:"success"`
	Error   Error `json:"error"`
}

type Error struct {
	Code    string `json:"code"`
	Message string `json:"message"`
}

type SuccessResponse struct {
	Success bool        `json:"success"`
	Data    interface{} `json:"data,omitempty"`
	Message *string     `json:"message,omitempty"`
}

// TableName returns the table name for the Product model
func (Product) TableName() string {
	return "products"
}

// TableName returns the table name for the ProductVariation model
func (ProductVariation) TableName() string {
	return "product_variations"
}

// TableName returns the table name for the Attachment model
func (Attachment) TableName() string {
	return "attachments"
}
