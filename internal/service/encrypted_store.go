package service

import (
	"context"
	"encoding/base64"
	"encoding/json"
	"fmt"

	registryencrypt "github.com/chirino/memstore/internal/registry/encrypt"
	"github.com/chirino/memstore/internal/store"
)

const ciphertextField = "__memstore_ciphertext"

// WrapEncryption returns a KVStore that encrypts the whole value at rest
// under provider. Because the ciphertext replaces the value entirely,
// encrypted items cannot be matched by Search's JSONB filter or indexed
// for semantic search — callers needing either should leave encryption
// disabled for that namespace.
func WrapEncryption(inner KVStore, provider registryencrypt.Provider) KVStore {
	if provider == nil || provider.ID() == "none" {
		return inner
	}
	return &encryptedStore{inner: inner, provider: provider}
}

type encryptedStore struct {
	inner    KVStore
	provider registryencrypt.Provider
}

func (e *encryptedStore) Get(ctx context.Context, namespace store.Namespace, key string) (*store.Item, error) {
	item, err := e.inner.Get(ctx, namespace, key)
	if err != nil || item == nil {
		return item, err
	}
	value, err := e.decryptValue(item.Value)
	if err != nil {
		return nil, err
	}
	decoded := *item
	decoded.Value = value
	return &decoded, nil
}

func (e *encryptedStore) Put(ctx context.Context, namespace store.Namespace, key string, value map[string]any, index store.IndexSpec) error {
	encrypted, err := e.encryptValue(value)
	if err != nil {
		return err
	}
	return e.inner.Put(ctx, namespace, key, encrypted, index)
}

func (e *encryptedStore) Delete(ctx context.Context, namespace store.Namespace, key string) error {
	return e.inner.Delete(ctx, namespace, key)
}

// Search passes through unchanged: encrypted values are opaque to the
// store's JSONB filter and embedding pipeline, so results here never
// surface ciphertext items in a useful form. Callers should not mix
// encryption with filter/semantic search on the same namespace.
func (e *encryptedStore) Search(ctx context.Context, op store.SearchOp) ([]store.SearchItem, error) {
	return e.inner.Search(ctx, op)
}

func (e *encryptedStore) ListNamespaces(ctx context.Context, op store.ListNamespacesOp) ([]store.Namespace, error) {
	return e.inner.ListNamespaces(ctx, op)
}

func (e *encryptedStore) encryptValue(value map[string]any) (map[string]any, error) {
	plaintext, err := json.Marshal(value)
	if err != nil {
		return nil, fmt.Errorf("encrypt: marshal value: %w", err)
	}
	ciphertext, err := e.provider.Encrypt(plaintext)
	if err != nil {
		return nil, fmt.Errorf("encrypt: %w", err)
	}
	return map[string]any{ciphertextField: base64.StdEncoding.EncodeToString(ciphertext)}, nil
}

func (e *encryptedStore) decryptValue(stored map[string]any) (map[string]any, error) {
	raw, ok := stored[ciphertextField].(string)
	if !ok {
		return stored, nil
	}
	ciphertext, err := base64.StdEncoding.DecodeString(raw)
	if err != nil {
		return nil, fmt.Errorf("decrypt: invalid ciphertext encoding: %w", err)
	}
	plaintext, err := e.provider.Decrypt(ciphertext)
	if err != nil {
		return nil, fmt.Errorf("decrypt: %w", err)
	}
	var value map[string]any
	if err := json.Unmarshal(plaintext, &value); err != nil {
		return nil, fmt.Errorf("decrypt: unmarshal value: %w", err)
	}
	return value, nil
}

var _ KVStore = (*encryptedStore)(nil)
