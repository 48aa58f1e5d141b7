// Package service composes the core store with cross-cutting decorators
// (caching, metrics) behind one narrow interface that the transport
// layer depends on, the way the rest of the codebase wraps its store
// behind decorator layers before handing it to routes.
package service

import (
	"context"

	"github.com/chirino/memstore/internal/store"
)

// KVStore is the surface the transport layer (HTTP, MCP) depends on.
// *store.Store satisfies it directly; decorators in this package wrap
// one KVStore to produce another.
type KVStore interface {
	Get(ctx context.Context, namespace store.Namespace, key string) (*store.Item, error)
	Put(ctx context.Context, namespace store.Namespace, key string, value map[string]any, index store.IndexSpec) error
	Delete(ctx context.Context, namespace store.Namespace, key string) error
	Search(ctx context.Context, op store.SearchOp) ([]store.SearchItem, error)
	ListNamespaces(ctx context.Context, op store.ListNamespacesOp) ([]store.Namespace, error)
}

var _ KVStore = (*store.Store)(nil)
