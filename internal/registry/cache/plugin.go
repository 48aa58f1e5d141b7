// Package cache is the plugin registry for Get-path caches that sit in
// front of the store, selected via Config.CacheType.
package cache

import (
	"context"
	"fmt"
	"time"

	"github.com/chirino/memstore/internal/store"
)

type cacheKey struct{}

// WithContext returns a new context carrying the given ItemCache.
func WithContext(ctx context.Context, c ItemCache) context.Context {
	return context.WithValue(ctx, cacheKey{}, c)
}

// FromContext retrieves the ItemCache from the context, or nil if none
// was set.
func FromContext(ctx context.Context) ItemCache {
	c, _ := ctx.Value(cacheKey{}).(ItemCache)
	return c
}

// ItemCache caches the result of Store.Get, keyed by the encoded
// namespace and key. Entries must be invalidated by the caller whenever
// the underlying item is put or deleted.
type ItemCache interface {
	Available() bool
	Get(ctx context.Context, namespace store.Namespace, key string) (*store.Item, bool, error)
	Set(ctx context.Context, namespace store.Namespace, key string, item *store.Item, ttl time.Duration) error
	Invalidate(ctx context.Context, namespace store.Namespace, key string) error
}

// Loader creates an ItemCache from config carried on ctx.
type Loader func(ctx context.Context) (ItemCache, error)

// Plugin represents a cache plugin.
type Plugin struct {
	Name   string
	Loader Loader
}

var plugins []Plugin

// Register adds a cache plugin.
func Register(p Plugin) {
	plugins = append(plugins, p)
}

// Names returns all registered cache plugin names.
func Names() []string {
	names := make([]string, len(plugins))
	for i, p := range plugins {
		names[i] = p.Name
	}
	return names
}

// Select returns the loader for the named cache plugin.
func Select(name string) (Loader, error) {
	for _, p := range plugins {
		if p.Name == name {
			return p.Loader, nil
		}
	}
	return nil, fmt.Errorf("unknown cache %q; valid: %v", name, Names())
}
