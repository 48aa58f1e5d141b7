// Package noop is the default "none" cache plugin: it caches nothing.
package noop

import (
	"context"
	"time"

	"github.com/chirino/memstore/internal/registry/cache"
	"github.com/chirino/memstore/internal/store"
)

func init() {
	cache.Register(cache.Plugin{
		Name: "none",
		Loader: func(ctx context.Context) (cache.ItemCache, error) {
			return &itemCache{}, nil
		},
	})
}

type itemCache struct{}

func (n *itemCache) Available() bool { return false }

func (n *itemCache) Get(_ context.Context, _ store.Namespace, _ string) (*store.Item, bool, error) {
	return nil, false, nil
}

func (n *itemCache) Set(_ context.Context, _ store.Namespace, _ string, _ *store.Item, _ time.Duration) error {
	return nil
}

func (n *itemCache) Invalidate(_ context.Context, _ store.Namespace, _ string) error { return nil }

var _ cache.ItemCache = (*itemCache)(nil)
