package models

// SyncFormat represents the uploaded catalog file format
type SyncFormat string

const (
	SyncFormatCSV  SyncFormat = "csv"
	SyncFormatXLSX SyncFormat = "xlsx"
)

// CatalogRow is one data line of an uploaded catalog file, normalized into the
// canonical column set. Constructed per row and discarded after processing.
type CatalogRow struct {
	Row         int
	ExternalID  string
	Name        string
	ImageURL    string
	Price       string
	StockStatus string
	IsActive    string
	HasVariants string
	VariantsRaw string
}

// VariantPayload is one variant record from a row's variants column, either a
// JSON object or a token synthesized from the comma-separated fallback.
// Price, StockStatus and StockQuantity are pointers so an explicitly empty
// value stays distinct from an absent field.
type VariantPayload struct {
	SKU           string            `json:"sku"`
	Price         *string           `json:"price"`
	StockStatus   *string           `json:"stock_status"`
	StockQuantity *int              `json:"stock_quantity"`
	ImageURL      string            `json:"image_url"`
	Attributes    map[string]string `json:"attributes"`
}

// SyncRowError is a recoverable error scoped to one row (or one variant of a
// row); it never aborts the run.
type SyncRowError struct {
	Row       int    `json:"row"`
	ProductID string `json:"product_id,omitempty"`
	Error     string `json:"error"`
}

// SyncResult is the response body of a processed run. The endpoint always
// answers 200 for a processed file; callers detect partial failure from
// ErrorCount and Errors.
type SyncResult struct {
	Message         string         `json:"message"`
	Created         int            `json:"created"`
	StockUpdated    int            `json:"stock_updated"`
	StockUnchanged  int            `json:"stock_unchanged"`
	ErrorCount      int            `json:"error_count"`
	ErrorsTruncated bool           `json:"errors_truncated"`
	Errors          []SyncRowError `json:"errors"`
}
