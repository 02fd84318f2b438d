package sync

import (
	"context"
	"io"
	"strings"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"
	"product-sync-service/internal/models"
)

// fakeCatalogRepo is an in-memory stand-in for the Postgres repository. It
// copies records on read and write so mutations only stick through Save calls,
// like a real database round trip.
type fakeCatalogRepo struct {
	products    map[uuid.UUID]*models.Product
	variations  map[uuid.UUID]*models.ProductVariation
	attachments map[uuid.UUID]*models.Attachment

	errSaveProduct error
}

func newFakeCatalogRepo() *fakeCatalogRepo {
	return &fakeCatalogRepo{
		products:    make(map[uuid.UUID]*models.Product),
		variations:  make(map[uuid.UUID]*models.ProductVariation),
		attachments: make(map[uuid.UUID]*models.Attachment),
	}
}

func (f *fakeCatalogRepo) ExternalIDEntries(ctx context.Context) (map[string]uuid.UUID, error) {
	entries := make(map[string]uuid.UUID)
	for id, p := range f.products {
		if p.ExternalID != nil && *p.ExternalID != "" {
			entries[*p.ExternalID] = id
		}
	}
	return entries, nil
}

func (f *fakeCatalogRepo) GetProduct(ctx context.Context, id uuid.UUID) (*models.Product, error) {
	p, ok := f.products[id]
	if !ok {
		return nil, gorm.ErrRecordNotFound
	}
	cp := *p
	return &cp, nil
}

func (f *fakeCatalogRepo) CreateProduct(ctx context.Context, product *models.Product) error {
	if product.ID == uuid.Nil {
		product.ID = uuid.New()
	}
	cp := *product
	f.products[product.ID] = &cp
	return nil
}

func (f *fakeCatalogRepo) SaveProduct(ctx context.Context, product *models.Product) error {
	if f.errSaveProduct != nil {
		return f.errSaveProduct
	}
	cp := *product
	f.products[product.ID] = &cp
	return nil
}

func (f *fakeCatalogRepo) ListVariations(ctx context.Context, productID uuid.UUID) ([]*models.ProductVariation, error) {
	var result []*models.ProductVariation
	for _, v := range f.variations {
		if v.ProductID == productID {
			cp := *v
			result = append(result, &cp)
		}
	}
	return result, nil
}

func (f *fakeCatalogRepo) SaveVariation(ctx context.Context, variation *models.ProductVariation) error {
	if variation.ID == uuid.Nil {
		variation.ID = uuid.New()
	}
	cp := *variation
	f.variations[variation.ID] = &cp
	return nil
}

func (f *fakeCatalogRepo) FindAttachmentBySourceURL(ctx context.Context, sourceURL string) (*models.Attachment, error) {
	for _, a := range f.attachments {
		if a.SourceURL == sourceURL {
			cp := *a
			return &cp, nil
		}
	}
	return nil, nil
}

func (f *fakeCatalogRepo) GetAttachment(ctx context.Context, id uuid.UUID) (*models.Attachment, error) {
	a, ok := f.attachments[id]
	if !ok {
		return nil, gorm.ErrRecordNotFound
	}
	cp := *a
	return &cp, nil
}

func (f *fakeCatalogRepo) CreateAttachment(ctx context.Context, attachment *models.Attachment) error {
	if attachment.ID == uuid.Nil {
		attachment.ID = uuid.New()
	}
	cp := *attachment
	f.attachments[attachment.ID] = &cp
	return nil
}

func (f *fakeCatalogRepo) SaveAttachment(ctx context.Context, attachment *models.Attachment) error {
	cp := *attachment
	f.attachments[attachment.ID] = &cp
	return nil
}

func (f *fakeCatalogRepo) productByExternalID(externalID string) *models.Product {
	for _, p := range f.products {
		if p.ExternalID != nil && *p.ExternalID == externalID {
			return p
		}
	}
	return nil
}

func (f *fakeCatalogRepo) variationsOf(productID uuid.UUID) []*models.ProductVariation {
	var result []*models.ProductVariation
	for _, v := range f.variations {
		if v.ProductID == productID {
			result = append(result, v)
		}
	}
	return result
}

func testLogger() *logrus.Logger {
	logger := logrus.New()
	logger.SetOutput(io.Discard)
	return logger
}

func newTestEngine(repo *fakeCatalogRepo, opts Options) *Engine {
	logger := testLogger()
	index := NewExternalIDIndex(repo.ExternalIDEntries, time.Minute)
	attacher := NewAttacher(repo, logger)
	return NewEngine(repo, index, attacher, logger, opts)
}

func parseRows(t *testing.T, csvData string) []models.CatalogRow {
	t.Helper()
	rows, err := ParseCSV(strings.NewReader(csvData))
	require.NoError(t, err)
	return rows
}

func TestRunCreatesSimpleProduct(t *testing.T) {
	repo := newFakeCatalogRepo()
	engine := newTestEngine(repo, Options{})

	rows := parseRows(t, "product_id,product_name,current_price,stock_status,is_active,image_url\n"+
		"ext-1,Blue Mug,9.99,in_stock,1,https://cdn.example.com/mug.jpg\n")

	result, err := engine.Run(context.Background(), rows)
	require.NoError(t, err)

	assert.Equal(t, "CSV processed.", result.Message)
	assert.Equal(t, 1, result.Created)
	assert.Equal(t, 0, result.ErrorCount)
	assert.Empty(t, result.Errors)

	product := repo.productByExternalID("ext-1")
	require.NotNil(t, product)
	assert.Equal(t, models.ProductTypeSimple, product.Type)
	assert.Equal(t, "Blue Mug", product.Name)
	assert.Equal(t, models.ProductStatusPublish, product.Status)
	assert.Equal(t, models.StockStatusInStock, product.StockStatus)
	assert.True(t, product.ManageStock)
	require.NotNil(t, product.StockQuantity)
	assert.Equal(t, 1, *product.StockQuantity)
	require.NotNil(t, product.RegularPrice)
	assert.Equal(t, "9.99", *product.RegularPrice)
	require.NotNil(t, product.ImageID)
	require.NotNil(t, product.ImageSourceURL)
	assert.Equal(t, "https://cdn.example.com/mug.jpg", *product.ImageSourceURL)
}

func TestRunMissingProductID(t *testing.T) {
	repo := newFakeCatalogRepo()
	engine := newTestEngine(repo, Options{})

	rows := parseRows(t, "product_id,product_name\n,Orphan Row\n")

	result, err := engine.Run(context.Background(), rows)
	require.NoError(t, err)

	assert.Equal(t, 0, result.Created)
	require.Len(t, result.Errors, 1)
	assert.Equal(t, 2, result.Errors[0].Row)
	assert.Equal(t, "Missing product_id.", result.Errors[0].Error)
	assert.Empty(t, result.Errors[0].ProductID)
}

func TestRunCreateWithoutNameFails(t *testing.T) {
	repo := newFakeCatalogRepo()
	engine := newTestEngine(repo, Options{})

	rows := parseRows(t, "product_id,product_name,stock_status\next-9,,in_stock\n")

	result, err := engine.Run(context.Background(), rows)
	require.NoError(t, err)

	assert.Equal(t, 0, result.Created)
	require.Len(t, result.Errors, 1)
	assert.Equal(t, "ext-9", result.Errors[0].ProductID)
	assert.Equal(t, "Product not found and product_name is empty, cannot create.", result.Errors[0].Error)
}

func TestRunUpdatesStockCounters(t *testing.T) {
	repo := newFakeCatalogRepo()
	extID := "ext-2"
	price := "4.50"
	quantity := 1
	seeded := &models.Product{
		ID:            uuid.New(),
		ExternalID:    &extID,
		Type:          models.ProductTypeSimple,
		Name:          "Seeded",
		Status:        models.ProductStatusPublish,
		ManageStock:   true,
		StockStatus:   models.StockStatusInStock,
		StockQuantity: &quantity,
		RegularPrice:  &price,
	}
	repo.products[seeded.ID] = seeded

	engine := newTestEngine(repo, Options{})
	rows := parseRows(t, "product_id,stock_status\next-2,out_of_stock\n")

	result, err := engine.Run(context.Background(), rows)
	require.NoError(t, err)
	assert.Equal(t, 0, result.Created)
	assert.Equal(t, 1, result.StockUpdated)
	assert.Equal(t, 0, result.StockUnchanged)

	updated := repo.productByExternalID(extID)
	require.NotNil(t, updated)
	assert.Equal(t, models.StockStatusOutOfStock, updated.StockStatus)
	require.NotNil(t, updated.StockQuantity)
	assert.Equal(t, 0, *updated.StockQuantity)

	// Same status again counts as unchanged
	result, err = engine.Run(context.Background(), rows)
	require.NoError(t, err)
	assert.Equal(t, 0, result.StockUpdated)
	assert.Equal(t, 1, result.StockUnchanged)
}

func TestRunVariantsFallbackList(t *testing.T) {
	repo := newFakeCatalogRepo()
	engine := newTestEngine(repo, Options{})

	rows := parseRows(t, "product_id,product_name,current_price,stock_status,has_variants,variants\n"+
		"ext-3,Logo Tee,19.00,in_stock,1,\"S,M,L\"\n")

	result, err := engine.Run(context.Background(), rows)
	require.NoError(t, err)
	assert.Equal(t, 1, result.Created)
	assert.Equal(t, 0, result.ErrorCount)

	parent := repo.productByExternalID("ext-3")
	require.NotNil(t, parent)
	assert.Equal(t, models.ProductTypeVariable, parent.Type)
	assert.False(t, parent.ManageStock)
	require.NotNil(t, parent.Attributes)
	require.Len(t, *parent.Attributes, 1)
	attr := (*parent.Attributes)[0]
	assert.Equal(t, "size", attr.Name)
	assert.ElementsMatch(t, []string{"S", "M", "L"}, attr.Options)
	assert.True(t, attr.Variation)

	variations := repo.variationsOf(parent.ID)
	require.Len(t, variations, 3)
	for _, v := range variations {
		assert.True(t, v.ManageStock)
		assert.Equal(t, models.StockStatusInStock, v.StockStatus)
		assert.Equal(t, 1000, v.StockQuantity)
		require.NotNil(t, v.RegularPrice)
		assert.Equal(t, "19.00", *v.RegularPrice)
		assert.True(t, strings.HasPrefix(v.SKU, "ext-3-"))
		assert.LessOrEqual(t, len(v.SKU), 60)
	}
}

func TestRunVariantsJSONIdempotent(t *testing.T) {
	repo := newFakeCatalogRepo()
	engine := newTestEngine(repo, Options{})

	csvData := "product_id,product_name,stock_status,has_variants,variants\n" +
		`ext-4,Varsity Jacket,in_stock,yes,"[{""sku"":""VJ-R-M"",""price"":""49.00"",""attributes"":{""Color"":""Red"",""Size"":""M""}},{""price"":""51.00"",""attributes"":{""Color"":""Blue"",""Size"":""L""}}]"` + "\n"

	rows := parseRows(t, csvData)
	result, err := engine.Run(context.Background(), rows)
	require.NoError(t, err)
	assert.Equal(t, 1, result.Created)
	assert.Equal(t, 0, result.ErrorCount)

	parent := repo.productByExternalID("ext-4")
	require.NotNil(t, parent)
	require.NotNil(t, parent.Attributes)
	assert.Len(t, *parent.Attributes, 2)

	variations := repo.variationsOf(parent.ID)
	require.Len(t, variations, 2)

	var explicit, synthesized *models.ProductVariation
	for _, v := range variations {
		if v.SKU == "VJ-R-M" {
			explicit = v
		} else {
			synthesized = v
		}
	}
	require.NotNil(t, explicit)
	assert.Equal(t, "Red", explicit.Attributes["attribute_color"])
	assert.Equal(t, "M", explicit.Attributes["attribute_size"])
	require.NotNil(t, synthesized)
	assert.Equal(t, "ext-4-blue-l", synthesized.SKU)

	// Re-importing the same file matches variations by attribute identity
	// instead of duplicating them
	result, err = engine.Run(context.Background(), parseRows(t, csvData))
	require.NoError(t, err)
	assert.Equal(t, 0, result.Created)
	assert.Len(t, repo.variationsOf(parent.ID), 2)
}

func TestRunSimpleToVariableConversion(t *testing.T) {
	repo := newFakeCatalogRepo()
	extID := "ext-5"
	seeded := &models.Product{
		ID:          uuid.New(),
		ExternalID:  &extID,
		Type:        models.ProductTypeSimple,
		Name:        "Old Simple",
		Status:      models.ProductStatusPublish,
		StockStatus: models.StockStatusInStock,
	}
	repo.products[seeded.ID] = seeded

	engine := newTestEngine(repo, Options{})
	rows := parseRows(t, "product_id,product_name,stock_status,has_variants,variants\n"+
		"ext-5,,in_stock,1,\"S,M\"\n")

	result, err := engine.Run(context.Background(), rows)
	require.NoError(t, err)

	// Conversion replaces the product but is not counted as a creation
	assert.Equal(t, 0, result.Created)
	assert.Equal(t, 0, result.ErrorCount)

	// Both records carry the external ID now; pick the variable replacement
	var parent *models.Product
	for _, p := range repo.products {
		if p.Type == models.ProductTypeVariable {
			parent = p
		}
	}
	require.NotNil(t, parent)
	assert.NotEqual(t, seeded.ID, parent.ID)
	// Name falls back to the replaced product's name
	assert.Equal(t, "Old Simple", parent.Name)

	// The old record is orphaned, not deleted
	_, stillThere := repo.products[seeded.ID]
	assert.True(t, stillThere)

	assert.Len(t, repo.variationsOf(parent.ID), 2)
	assert.Empty(t, repo.variationsOf(seeded.ID))
}

func TestRunVariantMissingAttributes(t *testing.T) {
	repo := newFakeCatalogRepo()
	engine := newTestEngine(repo, Options{})

	rows := parseRows(t, "product_id,product_name,has_variants,variants\n"+
		`ext-6,Hat,1,"[{""sku"":""H-1"",""price"":""5.00""}]"`+"\n")

	result, err := engine.Run(context.Background(), rows)
	require.NoError(t, err)

	require.Len(t, result.Errors, 1)
	assert.Equal(t, "Variant missing attributes object.", result.Errors[0].Error)
	assert.Equal(t, "ext-6", result.Errors[0].ProductID)

	parent := repo.productByExternalID("ext-6")
	require.NotNil(t, parent)
	assert.Empty(t, repo.variationsOf(parent.ID))
}

func TestRunErrorCap(t *testing.T) {
	repo := newFakeCatalogRepo()
	engine := newTestEngine(repo, Options{MaxErrors: 2})

	rows := parseRows(t, "product_id,product_name\n,a\n,b\n,c\n")

	result, err := engine.Run(context.Background(), rows)
	require.NoError(t, err)

	assert.Equal(t, 2, result.ErrorCount)
	assert.True(t, result.ErrorsTruncated)
	assert.Len(t, result.Errors, 2)
}

func TestRunRowLimit(t *testing.T) {
	repo := newFakeCatalogRepo()
	engine := newTestEngine(repo, Options{RowLimit: 1})

	rows := parseRows(t, "product_id,product_name,stock_status\n"+
		"ext-7,First,in_stock\n"+
		"ext-8,Second,in_stock\n")

	result, err := engine.Run(context.Background(), rows)
	require.NoError(t, err)

	assert.Equal(t, 1, result.Created)
	assert.NotNil(t, repo.productByExternalID("ext-7"))
	assert.Nil(t, repo.productByExternalID("ext-8"))
}

func TestRunVariantsInheritParentImage(t *testing.T) {
	repo := newFakeCatalogRepo()
	engine := newTestEngine(repo, Options{})

	rows := parseRows(t, "product_id,product_name,stock_status,image_url,has_variants,variants\n"+
		"ext-10,Sneaker,in_stock,https://cdn.example.com/sneaker.png,1,\"40,41\"\n")

	result, err := engine.Run(context.Background(), rows)
	require.NoError(t, err)
	assert.Equal(t, 0, result.ErrorCount)

	parent := repo.productByExternalID("ext-10")
	require.NotNil(t, parent)
	require.NotNil(t, parent.ImageID)

	for _, v := range repo.variationsOf(parent.ID) {
		require.NotNil(t, v.ImageID)
		assert.Equal(t, *parent.ImageID, *v.ImageID)
	}

	// One attachment serves parent and variations alike
	assert.Len(t, repo.attachments, 1)
}

func TestRunVariantsNumericPrice(t *testing.T) {
	repo := newFakeCatalogRepo()
	engine := newTestEngine(repo, Options{})

	rows := parseRows(t, "product_id,product_name,current_price,stock_status,has_variants,variants\n"+
		`ext-11,Belt,19.00,in_stock,1,"[{""price"": 49.99, ""attributes"": {""size"": ""M""}}]"`+"\n")

	result, err := engine.Run(context.Background(), rows)
	require.NoError(t, err)
	assert.Equal(t, 0, result.ErrorCount)

	parent := repo.productByExternalID("ext-11")
	require.NotNil(t, parent)
	variations := repo.variationsOf(parent.ID)
	require.Len(t, variations, 1)
	require.NotNil(t, variations[0].RegularPrice)
	assert.Equal(t, "49.99", *variations[0].RegularPrice)
	assert.Equal(t, map[string]string{"attribute_size": "M"}, map[string]string(variations[0].Attributes))
}

func TestRunVariantsExplicitEmptyFields(t *testing.T) {
	repo := newFakeCatalogRepo()
	engine := newTestEngine(repo, Options{})

	rows := parseRows(t, "product_id,product_name,current_price,stock_status,has_variants,variants\n"+
		`ext-12,Scarf,19.00,in_stock,1,"[{""price"": """", ""stock_status"": """", ""attributes"": {""size"": ""M""}}]"`+"\n")

	result, err := engine.Run(context.Background(), rows)
	require.NoError(t, err)
	assert.Equal(t, 0, result.ErrorCount)

	parent := repo.productByExternalID("ext-12")
	require.NotNil(t, parent)
	variations := repo.variationsOf(parent.ID)
	require.Len(t, variations, 1)

	// An explicitly empty price suppresses the row fallback, and an
	// explicitly empty stock status maps fail-closed to out of stock
	assert.Nil(t, variations[0].RegularPrice)
	assert.Equal(t, models.StockStatusOutOfStock, variations[0].StockStatus)
	assert.Equal(t, 0, variations[0].StockQuantity)
}

func TestRunVariantsReplaceStaleImageWithParents(t *testing.T) {
	repo := newFakeCatalogRepo()
	engine := newTestEngine(repo, Options{})

	withImage := parseRows(t, "product_id,product_name,stock_status,image_url,has_variants,variants\n"+
		`ext-13,Boot,in_stock,https://cdn.example.com/boot.png,1,"[{""image_url"": ""https://cdn.example.com/boot-42.png"", ""attributes"": {""size"": ""42""}}]"`+"\n")
	result, err := engine.Run(context.Background(), withImage)
	require.NoError(t, err)
	assert.Equal(t, 0, result.ErrorCount)

	parent := repo.productByExternalID("ext-13")
	require.NotNil(t, parent)
	require.NotNil(t, parent.ImageID)
	variations := repo.variationsOf(parent.ID)
	require.Len(t, variations, 1)
	require.NotNil(t, variations[0].ImageID)
	assert.NotEqual(t, *parent.ImageID, *variations[0].ImageID)

	// A re-import without the variant image re-points the variation to the
	// parent's image instead of keeping the old one
	withoutImage := parseRows(t, "product_id,product_name,stock_status,image_url,has_variants,variants\n"+
		`ext-13,Boot,in_stock,https://cdn.example.com/boot.png,1,"[{""attributes"": {""size"": ""42""}}]"`+"\n")
	result, err = engine.Run(context.Background(), withoutImage)
	require.NoError(t, err)
	assert.Equal(t, 0, result.ErrorCount)

	variations = repo.variationsOf(parent.ID)
	require.Len(t, variations, 1)
	require.NotNil(t, variations[0].ImageID)
	assert.Equal(t, *parent.ImageID, *variations[0].ImageID)
	require.NotNil(t, variations[0].ImageSourceURL)
	assert.Equal(t, "https://cdn.example.com/boot.png", *variations[0].ImageSourceURL)
}
