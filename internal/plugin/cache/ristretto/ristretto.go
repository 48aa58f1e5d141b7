// Package ristretto implements registry/cache.ItemCache with an
// in-process ristretto cache, for single-instance deployments that want
// a Get-path cache without a separate Redis dependency.
package ristretto

import (
	"context"
	"fmt"
	"time"

	"github.com/chirino/memstore/internal/config"
	registrycache "github.com/chirino/memstore/internal/registry/cache"
	"github.com/chirino/memstore/internal/store"
	"github.com/dgraph-io/ristretto/v2"
)

func init() {
	registrycache.Register(registrycache.Plugin{
		Name:   "ristretto",
		Loader: load,
	})
}

func load(ctx context.Context) (registrycache.ItemCache, error) {
	cfg := config.FromContext(ctx)
	maxCost := int64(1 << 26)
	var ttl time.Duration
	if cfg != nil {
		ttl = cfg.CacheTTL
		if cfg.RistrettoMaxCost > 0 {
			maxCost = cfg.RistrettoMaxCost
		}
	}

	rc, err := ristretto.NewCache(&ristretto.Config[string, cachedEntry]{
		NumCounters: maxCost / 100 * 10, // ~10x the expected entry count, per ristretto's sizing guidance
		MaxCost:     maxCost,
		BufferItems: 64,
	})
	if err != nil {
		return nil, fmt.Errorf("ristretto cache: %w", err)
	}
	return &itemCache{cache: rc, ttl: ttl}, nil
}

type cachedEntry struct {
	item *store.Item
}

type itemCache struct {
	cache *ristretto.Cache[string, cachedEntry]
	ttl   time.Duration
}

func itemKey(namespace store.Namespace, key string) string {
	return namespace.Encode() + "\x00" + key
}

func (c *itemCache) Available() bool { return true }

func (c *itemCache) Get(_ context.Context, namespace store.Namespace, key string) (*store.Item, bool, error) {
	entry, found := c.cache.Get(itemKey(namespace, key))
	if !found {
		return nil, false, nil
	}
	return entry.item, true, nil
}

func (c *itemCache) Set(_ context.Context, namespace store.Namespace, key string, item *store.Item, ttl time.Duration) error {
	if ttl <= 0 {
		ttl = c.ttl
	}
	c.cache.SetWithTTL(itemKey(namespace, key), cachedEntry{item: item}, 1, ttl)
	return nil
}

func (c *itemCache) Invalidate(_ context.Context, namespace store.Namespace, key string) error {
	c.cache.Del(itemKey(namespace, key))
	return nil
}

var _ registrycache.ItemCache = (*itemCache)(nil)
