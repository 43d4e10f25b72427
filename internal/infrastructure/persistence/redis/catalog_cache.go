package redis

import (
	"context"
	"errors"

	"github.com/lupe-hub/lupe-evaluation-hub/internal/application/query"
)

// ══════════════════════════════════════════════════════════════════════════════
// CATALOG CACHE
// Per-level catalogs are read on every recording-form load but change only
// on deploys, so they get a long TTL under "catalog:<level>".
// ══════════════════════════════════════════════════════════════════════════════

// CatalogCache caches the per-level recording catalogs.
type CatalogCache struct {
	cache *Cache
}

// NewCatalogCache creates a new CatalogCache.
func NewCatalogCache(cache *Cache) *CatalogCache {
	return &CatalogCache{cache: cache}
}

func catalogKey(level string) string {
	return KeyPrefixCatalog + level
}

// Get returns the cached catalog for the level, or (nil, nil) on a miss.
func (c *CatalogCache) Get(ctx context.Context, level string) (*query.CatalogDTO, error) {
	var dto query.CatalogDTO
	if err := c.cache.Get(ctx, catalogKey(level), &dto); err != nil {
		if errors.Is(err, ErrCacheMiss) {
			return nil, nil
		}
		return nil, err
	}
	return &dto, nil
}

// Set stores the catalog with the catalog TTL.
func (c *CatalogCache) Set(ctx context.Context, dto *query.CatalogDTO) error {
	return c.cache.Set(ctx, catalogKey(dto.Level), dto, TTLCatalog)
}

// InvalidateAll drops every cached catalog. Called on startup so a deploy
// with changed catalogs never serves stale forms.
func (c *CatalogCache) InvalidateAll(ctx context.Context) error {
	return c.cache.DeleteByPattern(ctx, KeyPrefixCatalog+"*")
}
