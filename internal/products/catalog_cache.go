package products

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/vendazap/platform/pkg/logging"
)

const catalogCacheKey = "catalog:active:v1"

// catalogCacheEntry records the limit the listing was fetched with, so a
// read asking for more products than the entry holds is treated as a miss
// instead of returning a short list.
type catalogCacheEntry struct {
	Limit    int        `json:"limit"`
	Products []*Product `json:"products"`
}

// CachedCatalog serves the active-product listing from Redis, falling
// back to the repository on a miss. The webhook pipeline reads the
// catalog on every purchase-intent message, so the hot path should not
// hit Postgres each time.
type CachedCatalog struct {
	repo   Repository
	client *redis.Client
	ttl    time.Duration
	logger *logging.Logger
}

// NewCachedCatalog wraps the repository with a Redis cache. A nil client
// degrades to repository-only reads.
func NewCachedCatalog(repo Repository, client *redis.Client, ttl time.Duration, logger *logging.Logger) *CachedCatalog {
	if logger == nil {
		logger = logging.Default()
	}
	if ttl <= 0 {
		ttl = 5 * time.Minute
	}
	return &CachedCatalog{repo: repo, client: client, ttl: ttl, logger: logger}
}

// ListActive returns up to limit active products, preferring the cache.
// Cache failures are logged and treated as misses.
func (c *CachedCatalog) ListActive(ctx context.Context, limit int) ([]*Product, error) {
	if c.client != nil {
		raw, err := c.client.Get(ctx, catalogCacheKey).Bytes()
		switch {
		case err == nil:
			var entry catalogCacheEntry
			if jsonErr := json.Unmarshal(raw, &entry); jsonErr == nil {
				if entry.Limit >= limit {
					cached := entry.Products
					if limit > 0 && limit < len(cached) {
						cached = cached[:limit]
					}
					return cached, nil
				}
				// Entry fetched with a smaller limit; fall through and refetch.
			} else {
				c.logger.Warn("catalog cache entry corrupt, refetching")
			}
		case errors.Is(err, redis.Nil):
			// miss
		default:
			c.logger.Warn("catalog cache read failed", "error", err)
		}
	}

	list, err := c.repo.ListActive(ctx, limit)
	if err != nil {
		return nil, fmt.Errorf("catalog: list active: %w", err)
	}

	if c.client != nil {
		if payload, err := json.Marshal(catalogCacheEntry{Limit: limit, Products: list}); err == nil {
			if err := c.client.Set(ctx, catalogCacheKey, payload, c.ttl).Err(); err != nil {
				c.logger.Warn("catalog cache write failed", "error", err)
			}
		}
	}
	return list, nil
}

// Invalidate drops the cached listing. Called after product mutations.
func (c *CachedCatalog) Invalidate(ctx context.Context) {
	if c.client == nil {
		return
	}
	if err := c.client.Del(ctx, catalogCacheKey).Err(); err != nil {
		c.logger.Warn("catalog cache invalidate failed", "error", err)
	}
}
