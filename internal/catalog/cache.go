// Package catalog memoizes storefront products by handle.
package catalog

import (
	"context"
	"log/slog"
	"sync"

	"golang.org/x/sync/singleflight"

	"quickadd/internal/model"
)

// Fetcher loads a product from the storefront.
// Interface allows mocking in tests.
type Fetcher interface {
	FetchProduct(ctx context.Context, handle string) (*model.Product, error)
}

// Cache keeps every successfully fetched product for the life of the
// process. Entries never expire and are never invalidated; a later Get for
// the same handle returns the same *model.Product. Failures are not cached.
//
// Concurrent Gets for one handle share a single storefront request.
type Cache struct {
	fetcher  Fetcher
	logger   *slog.Logger
	group    singleflight.Group
	mu       sync.RWMutex
	products map[string]*model.Product
}

// New creates an empty cache in front of fetcher.
func New(fetcher Fetcher, logger *slog.Logger) *Cache {
	if logger == nil {
		logger = slog.Default()
	}
	return &Cache{
		fetcher:  fetcher,
		logger:   logger,
		products: make(map[string]*model.Product),
	}
}

// Get returns the product for handle, fetching it on first use.
func (c *Cache) Get(ctx context.Context, handle string) (*model.Product, error) {
	if p, ok := c.lookup(handle); ok {
		return p, nil
	}

	// The shared fetch must outlive any single caller's cancellation.
	ch := c.group.DoChan(handle, func() (any, error) {
		if p, ok := c.lookup(handle); ok {
			return p, nil
		}
		p, err := c.fetcher.FetchProduct(context.WithoutCancel(ctx), handle)
		if err != nil {
			c.logger.Warn("product fetch failed", "handle", handle, "error", err)
			return nil, err
		}

		c.mu.Lock()
		c.products[handle] = p
		c.mu.Unlock()
		c.logger.Debug("product cached", "handle", handle, "variants", len(p.Variants))
		return p, nil
	})

	select {
	case <-ctx.Done():
		return nil, model.NewFetchError(handle, 0, ctx.Err())
	case res := <-ch:
		if res.Err != nil {
			return nil, res.Err
		}
		return res.Val.(*model.Product), nil
	}
}

// Len reports how many products are cached.
func (c *Cache) Len() int {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return len(c.products)
}

func (c *Cache) lookup(handle string) (*model.Product, bool) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	p, ok := c.products[handle]
	return p, ok
}
