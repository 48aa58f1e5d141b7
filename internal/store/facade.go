package store

import "context"

// Get fetches a single item, or nil if no item exists at (namespace, key).
func (s *Store) Get(ctx context.Context, namespace Namespace, key string) (*Item, error) {
	if err := namespace.Validate(); err != nil {
		return nil, err
	}
	results, err := s.Batch(ctx, []Op{GetOp{Namespace: namespace, Key: key}})
	if err != nil {
		return nil, err
	}
	item, _ := results[0].(*Item)
	return item, nil
}

// Put stores or updates an item's value. Index controls whether (and
// which JSON paths of) the value gets re-embedded for semantic search;
// the zero value defers to the store's default IndexConfig.
func (s *Store) Put(ctx context.Context, namespace Namespace, key string, value map[string]any, index IndexSpec) error {
	if err := namespace.Validate(); err != nil {
		return err
	}
	_, err := s.Batch(ctx, []Op{PutOp{Namespace: namespace, Key: key, Value: value, Index: index}})
	return err
}

// Delete removes an item (and any vectors indexed against it).
func (s *Store) Delete(ctx context.Context, namespace Namespace, key string) error {
	if err := namespace.Validate(); err != nil {
		return err
	}
	_, err := s.Batch(ctx, []Op{PutOp{Namespace: namespace, Key: key, Value: nil}})
	return err
}

// Search runs one search operation and returns its ranked/matched items.
func (s *Store) Search(ctx context.Context, op SearchOp) ([]SearchItem, error) {
	if err := op.NamespacePrefix.Validate(); err != nil {
		return nil, err
	}
	results, err := s.Batch(ctx, []Op{op})
	if err != nil {
		return nil, err
	}
	items, _ := results[0].([]SearchItem)
	return items, nil
}

// ListNamespaces runs one list-namespaces operation.
func (s *Store) ListNamespaces(ctx context.Context, op ListNamespacesOp) ([]Namespace, error) {
	results, err := s.Batch(ctx, []Op{op})
	if err != nil {
		return nil, err
	}
	namespaces, _ := results[0].([]Namespace)
	return namespaces, nil
}
