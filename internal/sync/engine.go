package sync

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/sirupsen/logrus"
	"product-sync-service/internal/models"
	"product-sync-service/internal/repository"
)

// DefaultMaxErrors caps the per-run error report. Processing continues past the
// cap; only reporting is truncated.
const DefaultMaxErrors = 200

// Options tune a sync engine. Zero values mean unbounded runs with the default
// error cap.
type Options struct {
	MaxErrors int
	RowLimit  int
	Timeout   time.Duration
}

// Engine reconciles uploaded catalog rows against the product store. Rows are
// processed strictly in file order; a failed row never aborts the run.
type Engine struct {
	repo      repository.CatalogRepositoryInterface
	index     *ExternalIDIndex
	attacher  *Attacher
	logger    *logrus.Entry
	maxErrors int
	rowLimit  int
	timeout   time.Duration
}

func NewEngine(repo repository.CatalogRepositoryInterface, index *ExternalIDIndex, attacher *Attacher, logger *logrus.Logger, opts Options) *Engine {
	maxErrors := opts.MaxErrors
	if maxErrors <= 0 {
		maxErrors = DefaultMaxErrors
	}
	return &Engine{
		repo:      repo,
		index:     index,
		attacher:  attacher,
		logger:    logger.WithField("component", "sync-engine"),
		maxErrors: maxErrors,
		rowLimit:  opts.RowLimit,
		timeout:   opts.Timeout,
	}
}

// runState carries the per-run working set: the private external-ID snapshot,
// which is updated as products are created so later rows in the same file
// resolve them, and the accumulating result.
type runState struct {
	snapshot  map[string]uuid.UUID
	result    *models.SyncResult
	maxErrors int
}

func (s *runState) addError(row int, productID, message string) {
	if len(s.result.Errors) >= s.maxErrors {
		return
	}
	s.result.Errors = append(s.result.Errors, models.SyncRowError{
		Row:       row,
		ProductID: productID,
		Error:     message,
	})
}

// Run processes all rows of an uploaded catalog file and returns the
// aggregated result. Only an index build failure is a run-level error;
// everything else is reported per row.
func (e *Engine) Run(ctx context.Context, rows []models.CatalogRow) (*models.SyncResult, error) {
	if e.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, e.timeout)
		defer cancel()
	}

	snapshot, err := e.index.Snapshot(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to build product index: %w", err)
	}

	run := &runState{
		snapshot:  snapshot,
		maxErrors: e.maxErrors,
		result: &models.SyncResult{
			Message: "CSV processed.",
			Errors:  []models.SyncRowError{},
		},
	}

	processed := 0
	for _, row := range rows {
		if e.rowLimit > 0 && processed >= e.rowLimit {
			e.logger.WithField("row_limit", e.rowLimit).Warn("Row limit reached, remaining rows skipped")
			break
		}
		if ctx.Err() != nil {
			run.addError(row.Row, "", "Run deadline exceeded, remaining rows skipped.")
			break
		}
		e.processRow(ctx, run, row)
		processed++
	}

	run.result.ErrorCount = len(run.result.Errors)
	run.result.ErrorsTruncated = len(run.result.Errors) >= e.maxErrors
	return run.result, nil
}

func (e *Engine) processRow(ctx context.Context, run *runState, row models.CatalogRow) {
	externalID := strings.TrimSpace(row.ExternalID)
	if externalID == "" {
		run.addError(row.Row, "", "Missing product_id.")
		return
	}

	var product *models.Product
	if id, ok := run.snapshot[externalID]; ok {
		found, err := e.repo.GetProduct(ctx, id)
		if err != nil {
			e.logger.WithError(err).WithField("product_id", externalID).
				Warn("Indexed product not loadable, treating as missing")
		} else {
			product = found
		}
	}

	if IsTruthy(row.HasVariants) {
		e.syncVariable(ctx, run, row, externalID, product)
		return
	}
	e.syncSimple(ctx, run, row, externalID, product)
}

// newVariableParent builds an unsaved variable parent. The parent never
// manages stock itself; availability lives on the variations. Status is only
// applied at creation time, matching the update semantics of the simple path.
func newVariableParent(name, externalID string, status models.ProductStatus) *models.Product {
	extID := externalID
	parent := &models.Product{
		ID:          uuid.New(),
		ExternalID:  &extID,
		Type:        models.ProductTypeVariable,
		Name:        name,
		Status:      models.ProductStatusPublish,
		ManageStock: false,
	}
	if status != "" {
		parent.Status = status
	}
	return parent
}

func (e *Engine) syncVariable(ctx context.Context, run *runState, row models.CatalogRow, externalID string, product *models.Product) {
	variants := ParseVariantPayload(row.VariantsRaw, row.Price, row.StockStatus)
	attributes := DiscoverAttributes(variants)
	status := MapActiveToStatus(row.IsActive)

	if product == nil {
		name := strings.TrimSpace(row.Name)
		if name == "" {
			name = "Variant product " + externalID
		}
		product = newVariableParent(name, externalID, status)
		if err := e.repo.CreateProduct(ctx, product); err != nil {
			run.addError(row.Row, externalID, "Cannot create variable product: "+err.Error())
			return
		}
		run.snapshot[externalID] = product.ID
		e.index.Add(externalID, product.ID)
		run.result.Created++
	} else if product.Type != models.ProductTypeVariable {
		// A simple product re-imported with variants is replaced by a fresh
		// variable parent. The old record is left behind and loses the
		// external ID race on the next index rebuild. Not counted as created
		// since the source row already existed.
		name := strings.TrimSpace(row.Name)
		if name == "" {
			name = product.Name
		}
		replacement := newVariableParent(name, externalID, status)
		if err := e.repo.CreateProduct(ctx, replacement); err != nil {
			run.addError(row.Row, externalID, "Cannot create variable product: "+err.Error())
			return
		}
		run.snapshot[externalID] = replacement.ID
		e.index.Add(externalID, replacement.ID)
		product = replacement
	}

	if product == nil || product.Type != models.ProductTypeVariable {
		run.addError(row.Row, externalID, "Parent product not available as variable.")
		return
	}

	parentDirty := false
	if row.ImageURL != "" && product.ImageID == nil {
		if imageID := e.attacher.Attach(ctx, product.ID, row.ImageURL); imageID != uuid.Nil {
			imageURL := row.ImageURL
			product.ImageID = &imageID
			product.ImageSourceURL = &imageURL
			parentDirty = true
		}
	}
	if len(attributes) > 0 {
		product.Attributes = &attributes
		parentDirty = true
	}
	if parentDirty {
		if err := e.repo.SaveProduct(ctx, product); err != nil {
			// Recorded but not fatal; the variations below may still save
			run.addError(row.Row, externalID, "Cannot set attributes on parent: "+err.Error())
		}
	}

	existing, err := e.repo.ListVariations(ctx, product.ID)
	if err != nil {
		run.addError(row.Row, externalID, "Cannot load variations: "+err.Error())
		return
	}
	byKey := make(map[VariationKey]*models.ProductVariation, len(existing))
	for _, variation := range existing {
		byKey[KeyFromMeta(variation.Attributes)] = variation
	}

	for _, variant := range variants {
		if len(variant.Attributes) == 0 {
			run.addError(row.Row, externalID, "Variant missing attributes object.")
			continue
		}

		normalized := NormalizeVariantAttributes(variant.Attributes)
		meta := MetaAttributes(normalized)
		key := KeyFromMeta(meta)

		variation, found := byKey[key]
		if !found {
			variation = &models.ProductVariation{
				ProductID:  product.ID,
				Attributes: meta,
			}
		}

		sku := strings.TrimSpace(variant.SKU)
		if sku == "" {
			sku = SynthesizeSKU(externalID, normalized)
		}
		variation.SKU = sku
		variation.ManageStock = true

		// An explicitly empty price means no price, only an absent field
		// falls back to the row
		price := row.Price
		if variant.Price != nil {
			price = strings.TrimSpace(*variant.Price)
		}
		if price != "" {
			variation.RegularPrice = &price
		}

		// Same presence rule for stock status; an explicit empty value maps
		// fail-closed to out of stock
		if variant.StockStatus != nil {
			variation.StockStatus = MapStockStatus(*variant.StockStatus)
		} else {
			variation.StockStatus = MapStockStatus(row.StockStatus)
		}
		if variant.StockQuantity != nil {
			variation.StockQuantity = *variant.StockQuantity
		} else if variation.StockStatus == models.StockStatusInStock {
			variation.StockQuantity = 1000
		} else {
			variation.StockQuantity = 0
		}

		if variant.ImageURL != "" {
			if variation.ImageSourceURL == nil || *variation.ImageSourceURL != variant.ImageURL {
				if imageID := e.attacher.Attach(ctx, product.ID, variant.ImageURL); imageID != uuid.Nil {
					imageURL := variant.ImageURL
					variation.ImageID = &imageID
					variation.ImageSourceURL = &imageURL
				}
			}
		} else if product.ImageID != nil {
			// Variations without their own image always track the parent's,
			// replacing any image left over from an earlier import
			variation.ImageID = product.ImageID
			variation.ImageSourceURL = product.ImageSourceURL
		}

		if err := e.repo.SaveVariation(ctx, variation); err != nil {
			run.addError(row.Row, externalID, "Cannot save variation: "+err.Error())
			continue
		}
		byKey[key] = variation
	}
}

func (e *Engine) syncSimple(ctx context.Context, run *runState, row models.CatalogRow, externalID string, product *models.Product) {
	status := MapActiveToStatus(row.IsActive)
	stockStatus := MapStockStatus(row.StockStatus)

	if product == nil {
		name := strings.TrimSpace(row.Name)
		if name == "" {
			run.addError(row.Row, externalID, "Product not found and product_name is empty, cannot create.")
			return
		}

		quantity := 0
		if stockStatus == models.StockStatusInStock {
			quantity = 1
		}
		extID := externalID
		product = &models.Product{
			ID:            uuid.New(),
			ExternalID:    &extID,
			Type:          models.ProductTypeSimple,
			Name:          name,
			Status:        models.ProductStatusPublish,
			ManageStock:   true,
			StockStatus:   stockStatus,
			StockQuantity: &quantity,
		}
		if status != "" {
			product.Status = status
		}
		if row.Price != "" {
			price := row.Price
			product.RegularPrice = &price
		}
		if row.ImageURL != "" {
			if imageID := e.attacher.Attach(ctx, product.ID, row.ImageURL); imageID != uuid.Nil {
				imageURL := row.ImageURL
				product.ImageID = &imageID
				product.ImageSourceURL = &imageURL
			}
		}

		if err := e.repo.CreateProduct(ctx, product); err != nil {
			run.addError(row.Row, externalID, err.Error())
			return
		}
		run.snapshot[externalID] = product.ID
		e.index.Add(externalID, product.ID)
		run.result.Created++
		return
	}

	// Counters reflect the comparison, not the save outcome
	needsSave := false
	if product.StockStatus != stockStatus {
		quantity := 0
		if stockStatus == models.StockStatusInStock {
			quantity = 1
		}
		product.StockStatus = stockStatus
		product.StockQuantity = &quantity
		product.ManageStock = true
		needsSave = true
		run.result.StockUpdated++
	} else {
		run.result.StockUnchanged++
	}
	if row.Price != "" && (product.RegularPrice == nil || *product.RegularPrice != row.Price) {
		price := row.Price
		product.RegularPrice = &price
		needsSave = true
	}
	if status != "" && product.Status != status {
		product.Status = status
		needsSave = true
	}
	if row.ImageURL != "" && (product.ImageSourceURL == nil || *product.ImageSourceURL != row.ImageURL) {
		if imageID := e.attacher.Attach(ctx, product.ID, row.ImageURL); imageID != uuid.Nil {
			imageURL := row.ImageURL
			product.ImageID = &imageID
			product.ImageSourceURL = &imageURL
			needsSave = true
		}
	}

	if needsSave {
		if err := e.repo.SaveProduct(ctx, product); err != nil {
			run.addError(row.Row, externalID, err.Error())
		}
	}
}
