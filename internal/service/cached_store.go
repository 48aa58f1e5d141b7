package service

import (
	"context"

	"github.com/chirino/memstore/internal/metrics"
	registrycache "github.com/chirino/memstore/internal/registry/cache"
	"github.com/chirino/memstore/internal/store"
)

// WrapCache returns a KVStore whose Get results are served from cache
// when present, and that invalidates the cached entry on every Put and
// Delete for the same (namespace, key).
func WrapCache(inner KVStore, cache registrycache.ItemCache) KVStore {
	if cache == nil || !cache.Available() {
		return inner
	}
	return &cachedStore{inner: inner, cache: cache}
}

type cachedStore struct {
	inner KVStore
	cache registrycache.ItemCache
}

func (c *cachedStore) Get(ctx context.Context, namespace store.Namespace, key string) (*store.Item, error) {
	if item, found, err := c.cache.Get(ctx, namespace, key); err == nil && found {
		metrics.RecordCacheHit()
		return item, nil
	}
	metrics.RecordCacheMiss()
	item, err := c.inner.Get(ctx, namespace, key)
	if err != nil {
		return nil, err
	}
	_ = c.cache.Set(ctx, namespace, key, item, 0)
	return item, nil
}

func (c *cachedStore) Put(ctx context.Context, namespace store.Namespace, key string, value map[string]any, index store.IndexSpec) error {
	if err := c.inner.Put(ctx, namespace, key, value, index); err != nil {
		return err
	}
	return c.cache.Invalidate(ctx, namespace, key)
}

func (c *cachedStore) Delete(ctx context.Context, namespace store.Namespace, key string) error {
	if err := c.inner.Delete(ctx, namespace, key); err != nil {
		return err
	}
	return c.cache.Invalidate(ctx, namespace, key)
}

func (c *cachedStore) Search(ctx context.Context, op store.SearchOp) ([]store.SearchItem, error) {
	return c.inner.Search(ctx, op)
}

func (c *cachedStore) ListNamespaces(ctx context.Context, op store.ListNamespacesOp) ([]store.Namespace, error) {
	return c.inner.ListNamespaces(ctx, op)
}

var _ KVStore = (*cachedStore)(nil)
