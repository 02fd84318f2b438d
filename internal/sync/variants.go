package sync

import (
	"encoding/json"
	"sort"
	"strconv"
	"strings"

	"product-sync-service/internal/models"
	"product-sync-service/internal/repository"
)

// fallbackAttribute is the attribute name used when the variants column is a
// flat token list instead of JSON
const fallbackAttribute = "size"

// maxSKULength caps synthesized variation SKUs
const maxSKULength = 60

// ParseVariantPayload decodes a row's variants column. JSON arrays are decoded
// field by field with scalar coercion (numeric prices and quantities, string
// quantities); anything that is not a JSON array is treated as a
// comma-separated value list, one variant per token with a single size
// attribute and price/stock inherited from the row. Array elements that are
// not objects come back with no attributes so the caller can report them.
func ParseVariantPayload(raw, rowPrice, rowStockStatus string) []models.VariantPayload {
	var elements []json.RawMessage
	if err := json.Unmarshal([]byte(raw), &elements); err != nil || elements == nil {
		// "null" decodes into a nil slice without error; only a real array
		// counts as structured input
		return fallbackVariants(raw, rowPrice, rowStockStatus)
	}

	variants := make([]models.VariantPayload, 0, len(elements))
	for _, element := range elements {
		var fields map[string]json.RawMessage
		if err := json.Unmarshal(element, &fields); err != nil {
			variants = append(variants, models.VariantPayload{})
			continue
		}
		variant := models.VariantPayload{
			SKU:        coerceString(fields["sku"]),
			ImageURL:   coerceString(fields["image_url"]),
			Attributes: coerceStringMap(fields["attributes"]),
		}
		if price, ok := fields["price"]; ok {
			value := coerceString(price)
			variant.Price = &value
		}
		if status, ok := fields["stock_status"]; ok {
			value := coerceString(status)
			variant.StockStatus = &value
		}
		if quantity, ok := fields["stock_quantity"]; ok {
			value := coerceInt(quantity)
			variant.StockQuantity = &value
		}
		variants = append(variants, variant)
	}
	return variants
}

func fallbackVariants(raw, rowPrice, rowStockStatus string) []models.VariantPayload {
	var fallback []models.VariantPayload
	for _, token := range strings.Split(raw, ",") {
		token = strings.TrimSpace(token)
		if token == "" {
			continue
		}
		quantity := 0
		if strings.ToLower(strings.TrimSpace(rowStockStatus)) == "in_stock" {
			quantity = 1000
		}
		price := rowPrice
		stockStatus := rowStockStatus
		qty := quantity
		fallback = append(fallback, models.VariantPayload{
			Price:         &price,
			StockStatus:   &stockStatus,
			StockQuantity: &qty,
			Attributes:    map[string]string{fallbackAttribute: token},
		})
	}
	return fallback
}

// coerceString reads a JSON scalar as a string, keeping the source text of
// numbers so "price": 49.99 round-trips as "49.99"
func coerceString(raw json.RawMessage) string {
	var s string
	if err := json.Unmarshal(raw, &s); err == nil {
		return s
	}
	var n json.Number
	if err := json.Unmarshal(raw, &n); err == nil {
		return n.String()
	}
	return ""
}

// coerceInt reads a JSON number or numeric string as an int, truncating
// fractions. Anything unparseable counts as 0.
func coerceInt(raw json.RawMessage) int {
	var n json.Number
	if err := json.Unmarshal(raw, &n); err == nil {
		if i, err := n.Int64(); err == nil {
			return int(i)
		}
		if f, err := n.Float64(); err == nil {
			return int(f)
		}
	}
	var s string
	if err := json.Unmarshal(raw, &s); err == nil {
		s = strings.TrimSpace(s)
		if i, err := strconv.Atoi(s); err == nil {
			return i
		}
		if f, err := strconv.ParseFloat(s, 64); err == nil {
			return int(f)
		}
	}
	return 0
}

// coerceStringMap reads a JSON object of scalars. A non-object value yields
// nil, which the engine reports as a variant without attributes.
func coerceStringMap(raw json.RawMessage) map[string]string {
	var fields map[string]json.RawMessage
	if err := json.Unmarshal(raw, &fields); err != nil {
		return nil
	}
	attrs := make(map[string]string, len(fields))
	for name, value := range fields {
		attrs[name] = coerceString(value)
	}
	return attrs
}

// DiscoverAttributes unions attribute names and values across a row's
// variants. Names are lower-cased; values keep first-seen order with
// duplicates dropped. The result replaces the parent's variation attributes.
func DiscoverAttributes(variants []models.VariantPayload) models.AttributeSet {
	var names []string
	valuesByName := make(map[string][]string)
	seen := make(map[string]map[string]bool)

	for _, variant := range variants {
		for _, name := range sortedAttributeNames(variant.Attributes) {
			value := variant.Attributes[name]
			normalized := strings.ToLower(strings.TrimSpace(name))
			if value == "" {
				continue
			}
			if seen[normalized] == nil {
				names = append(names, normalized)
				seen[normalized] = make(map[string]bool)
			}
			if !seen[normalized][value] {
				seen[normalized][value] = true
				valuesByName[normalized] = append(valuesByName[normalized], value)
			}
		}
	}

	attributes := make(models.AttributeSet, 0, len(names))
	for _, name := range names {
		attributes = append(attributes, models.ProductAttribute{
			Name:      name,
			Options:   valuesByName[name],
			Visible:   true,
			Variation: true,
		})
	}
	return attributes
}

// sortedAttributeNames gives map iteration a stable order
func sortedAttributeNames(attrs map[string]string) []string {
	names := make([]string, 0, len(attrs))
	for name := range attrs {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// NormalizeVariantAttributes lower-cases and trims attribute names, keeping
// values verbatim
func NormalizeVariantAttributes(attrs map[string]string) map[string]string {
	normalized := make(map[string]string, len(attrs))
	for name, value := range attrs {
		normalized[strings.ToLower(strings.TrimSpace(name))] = value
	}
	return normalized
}

// MetaAttributes converts a normalized attribute map into the persisted
// meta-style form: "attribute_<slug>" -> value
func MetaAttributes(attrs map[string]string) models.StringMap {
	meta := make(models.StringMap, len(attrs))
	for name, value := range attrs {
		meta["attribute_"+repository.GenerateSlug(name)] = value
	}
	return meta
}

// VariationKey identifies a variation by its attribute-value combination.
// Built from sorted (name, value) pairs so matching is an exact map lookup.
type VariationKey string

// keyEscaper keeps the pair and field separators unambiguous inside attribute
// names and values
var keyEscaper = strings.NewReplacer(`\`, `\\`, "|", `\|`, "=", `\=`)

// KeyFromMeta derives the identity key from a meta-style attribute map
func KeyFromMeta(meta models.StringMap) VariationKey {
	keys := make([]string, 0, len(meta))
	for key := range meta {
		keys = append(keys, key)
	}
	sort.Strings(keys)

	var b strings.Builder
	for i, key := range keys {
		if i > 0 {
			b.WriteByte('|')
		}
		b.WriteString(keyEscaper.Replace(key))
		b.WriteByte('=')
		b.WriteString(keyEscaper.Replace(meta[key]))
	}
	return VariationKey(b.String())
}

// SynthesizeSKU builds a variation SKU from the external product ID and the
// slugified attribute values, capped at 60 characters. Collisions are not
// checked.
func SynthesizeSKU(externalID string, attrs map[string]string) string {
	values := make([]string, 0, len(attrs))
	for _, name := range sortedAttributeNames(attrs) {
		values = append(values, attrs[name])
	}
	snippet := repository.GenerateSlug(strings.Join(values, "-"))
	if snippet == "" {
		snippet = "v"
	}
	sku := externalID + "-" + snippet
	if len(sku) > maxSKULength {
		sku = sku[:maxSKULength]
	}
	return sku
}
