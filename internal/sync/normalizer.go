package sync

import (
	"strings"

	"product-sync-service/internal/models"
)

var inStockTokens = map[string]bool{
	"instock":   true,
	"in_stock":  true,
	"available": true,
	"1":         true,
	"true":      true,
	"yes":       true,
}

var outOfStockTokens = map[string]bool{
	"outofstock":   true,
	"out_of_stock": true,
	"0":            true,
	"false":        true,
	"no":           true,
}

var activeTokens = map[string]bool{
	"1":      true,
	"true":   true,
	"yes":    true,
	"active": true,
}

var inactiveTokens = map[string]bool{
	"0":        true,
	"false":    true,
	"no":       true,
	"inactive": true,
}

var truthyTokens = map[string]bool{
	"1":    true,
	"true": true,
	"yes":  true,
	"y":    true,
	"on":   true,
}

// MapStockStatus maps a source stock token to a stock status. Unrecognized
// tokens, including the empty string, fail closed to out_of_stock.
func MapStockStatus(value string) models.StockStatus {
	token := strings.ToLower(strings.TrimSpace(value))
	if inStockTokens[token] {
		return models.StockStatusInStock
	}
	if outOfStockTokens[token] {
		return models.StockStatusOutOfStock
	}
	return models.StockStatusOutOfStock
}

// MapActiveToStatus maps a source active token to a publish status. The empty
// string and unrecognized tokens map to "", meaning "leave unchanged".
func MapActiveToStatus(value string) models.ProductStatus {
	token := strings.ToLower(strings.TrimSpace(value))
	if token == "" {
		return ""
	}
	if activeTokens[token] {
		return models.ProductStatusPublish
	}
	if inactiveTokens[token] {
		return models.ProductStatusDraft
	}
	return ""
}

// IsTruthy reports whether a source flag token (has_variants) is set
func IsTruthy(value string) bool {
	return truthyTokens[strings.ToLower(strings.TrimSpace(value))]
}
