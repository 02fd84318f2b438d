package sync

import (
	"context"
	"sync"
	"time"

	"github.com/google/uuid"
)

// IndexLoader rebuilds the external-ID mapping from persisted storage
type IndexLoader func(ctx context.Context) (map[string]uuid.UUID, error)

// ExternalIDIndex caches the external-product-ID -> local-product-ID mapping
// for a bounded TTL. Sync runs Add their own creations back so later runs
// within the TTL resolve them; out-of-band changes need an explicit
// Invalidate.
type ExternalIDIndex struct {
	mu       sync.Mutex
	loader   IndexLoader
	ttl      time.Duration
	entries  map[string]uuid.UUID
	loadedAt time.Time
}

func NewExternalIDIndex(loader IndexLoader, ttl time.Duration) *ExternalIDIndex {
	return &ExternalIDIndex{
		loader: loader,
		ttl:    ttl,
	}
}

// Snapshot returns a private copy of the mapping, rebuilding from storage when
// the cache is empty or older than the TTL. The copy is safe for the caller to
// mutate as a run progresses.
func (ix *ExternalIDIndex) Snapshot(ctx context.Context) (map[string]uuid.UUID, error) {
	ix.mu.Lock()
	defer ix.mu.Unlock()

	if ix.entries == nil || time.Since(ix.loadedAt) > ix.ttl {
		entries, err := ix.loader(ctx)
		if err != nil {
			return nil, err
		}
		ix.entries = entries
		ix.loadedAt = time.Now()
	}

	snapshot := make(map[string]uuid.UUID, len(ix.entries))
	for externalID, productID := range ix.entries {
		snapshot[externalID] = productID
	}
	return snapshot, nil
}

// Add records a newly created product in the cached mapping. No-op when the
// cache has been invalidated; the next Snapshot picks the product up from
// storage instead.
func (ix *ExternalIDIndex) Add(externalID string, productID uuid.UUID) {
	ix.mu.Lock()
	defer ix.mu.Unlock()
	if ix.entries == nil {
		return
	}
	ix.entries[externalID] = productID
}

// Invalidate drops the cached mapping; the next Snapshot rebuilds from storage
func (ix *ExternalIDIndex) Invalidate() {
	ix.mu.Lock()
	defer ix.mu.Unlock()
	ix.entries = nil
	ix.loadedAt = time.Time{}
}
