package clients

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/sirupsen/logrus"
)

const storesCacheKey = "product-sync:stores"

// RawStore is a store record as the upstream catalog API returns it,
// categories included
type RawStore struct {
	StoreID    json.Number   `json:"store_id"`
	StoreName  string        `json:"store_name"`
	StoreSlug  string        `json:"store_slug"`
	BaseURL    string        `json:"base_url"`
	Categories []RawCategory `json:"categories"`
}

// RawCategory is a category record inside a raw store payload
type RawCategory struct {
	CategoryID   json.Number `json:"category_id"`
	CategoryName string      `json:"category_name"`
	CategorySlug string      `json:"category_slug"`
	CategoryURL  string      `json:"category_url"`
}

// Store is the normalized store shape served to the settings UI
type Store struct {
	ID      string `json:"id"`
	Name    string `json:"name"`
	Slug    string `json:"slug"`
	BaseURL string `json:"baseUrl"`
}

// StoreCategory is the normalized category shape for one store
type StoreCategory struct {
	ID    string `json:"id"`
	Label string `json:"label"`
	Slug  string `json:"slug"`
	URL   string `json:"url"`
}

// StoresClient fetches the store and category catalog from the upstream API,
// caching the raw payload in Redis so UI reads do not hammer the endpoint.
// A nil Redis client degrades to uncached fetches.
type StoresClient struct {
	endpoint   string
	httpClient *http.Client
	redis      *redis.Client
	cacheTTL   time.Duration
	logger     *logrus.Entry
}

func NewStoresClient(endpoint string, redisClient *redis.Client, cacheTTL time.Duration, logger *logrus.Logger) *StoresClient {
	return &StoresClient{
		endpoint: endpoint,
		httpClient: &http.Client{
			Timeout: 20 * time.Second,
		},
		redis:    redisClient,
		cacheTTL: cacheTTL,
		logger:   logger.WithField("component", "stores-client"),
	}
}

// GetRawStores returns the upstream store list, served from cache when fresh
func (c *StoresClient) GetRawStores(ctx context.Context) ([]RawStore, error) {
	if c.redis != nil {
		if val, err := c.redis.Get(ctx, storesCacheKey).Result(); err == nil {
			var stores []RawStore
			if err := json.Unmarshal([]byte(val), &stores); err == nil {
				return stores, nil
			}
		}
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.endpoint, nil)
	if err != nil {
		return nil, err
	}
	req.Header.Set("Accept", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("failed to fetch stores: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("stores API returned %d", resp.StatusCode)
	}

	var stores []RawStore
	if err := json.NewDecoder(resp.Body).Decode(&stores); err != nil {
		return nil, fmt.Errorf("failed to decode stores response: %w", err)
	}

	if c.redis != nil {
		if data, err := json.Marshal(stores); err == nil {
			if err := c.redis.Set(ctx, storesCacheKey, data, c.cacheTTL).Err(); err != nil {
				c.logger.WithError(err).Warn("Failed to cache stores payload")
			}
		}
	}

	return stores, nil
}

// GetStores returns the normalized store list
func (c *StoresClient) GetStores(ctx context.Context) ([]Store, error) {
	raw, err := c.GetRawStores(ctx)
	if err != nil {
		return nil, err
	}

	stores := make([]Store, 0, len(raw))
	for _, item := range raw {
		id := item.StoreID.String()
		if id == "" {
			continue
		}
		name := item.StoreName
		if name == "" {
			name = id
		}
		stores = append(stores, Store{
			ID:      id,
			Name:    name,
			Slug:    item.StoreSlug,
			BaseURL: item.BaseURL,
		})
	}
	return stores, nil
}

// GetCategories returns the normalized categories of one store. An unknown
// store ID yields an empty list, not an error.
func (c *StoresClient) GetCategories(ctx context.Context, storeID string) ([]StoreCategory, error) {
	raw, err := c.GetRawStores(ctx)
	if err != nil {
		return nil, err
	}

	for _, item := range raw {
		if item.StoreID.String() != storeID {
			continue
		}
		categories := make([]StoreCategory, 0, len(item.Categories))
		for _, cat := range item.Categories {
			id := cat.CategoryID.String()
			if id == "" {
				continue
			}
			label := cat.CategoryName
			if label == "" {
				label = id
			}
			categories = append(categories, StoreCategory{
				ID:    id,
				Label: label,
				Slug:  cat.CategorySlug,
				URL:   cat.CategoryURL,
			})
		}
		return categories, nil
	}

	return []StoreCategory{}, nil
}

// ClearCache drops the cached payload so the next read refetches upstream
func (c *StoresClient) ClearCache(ctx context.Context) error {
	if c.redis == nil {
		return nil
	}
	return c.redis.Del(ctx, storesCacheKey).Err()
}
