package service

import (
	"context"
	"time"

	"github.com/chirino/memstore/internal/metrics"
	"github.com/chirino/memstore/internal/store"
)

// WrapMetrics returns a KVStore that records operation latency and error
// counts for every call.
func WrapMetrics(inner KVStore) KVStore {
	return &metricsStore{inner: inner}
}

type metricsStore struct {
	inner KVStore
}

func (m *metricsStore) Get(ctx context.Context, namespace store.Namespace, key string) (*store.Item, error) {
	start := time.Now()
	item, err := m.inner.Get(ctx, namespace, key)
	metrics.ObserveStoreOp("get", start, err)
	return item, err
}

func (m *metricsStore) Put(ctx context.Context, namespace store.Namespace, key string, value map[string]any, index store.IndexSpec) error {
	start := time.Now()
	err := m.inner.Put(ctx, namespace, key, value, index)
	metrics.ObserveStoreOp("put", start, err)
	return err
}

func (m *metricsStore) Delete(ctx context.Context, namespace store.Namespace, key string) error {
	start := time.Now()
	err := m.inner.Delete(ctx, namespace, key)
	metrics.ObserveStoreOp("delete", start, err)
	return err
}

func (m *metricsStore) Search(ctx context.Context, op store.SearchOp) ([]store.SearchItem, error) {
	start := time.Now()
	items, err := m.inner.Search(ctx, op)
	metrics.ObserveStoreOp("search", start, err)
	return items, err
}

func (m *metricsStore) ListNamespaces(ctx context.Context, op store.ListNamespacesOp) ([]store.Namespace, error) {
	start := time.Now()
	namespaces, err := m.inner.ListNamespaces(ctx, op)
	metrics.ObserveStoreOp("list_namespaces", start, err)
	return namespaces, err
}

var _ KVStore = (*metricsStore)(nil)
