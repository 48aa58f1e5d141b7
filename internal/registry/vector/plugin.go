// Package vector is the plugin registry for external vector search
// backends — alternatives to the default in-database pgvector index,
// selected via IndexConfig.Backend.
package vector

import (
	"context"
	"fmt"

	"github.com/chirino/memstore/internal/store"
)

// Loader creates a store.VectorIndex from config carried on ctx, given
// the dimensionality the store's embedder produces.
type Loader func(ctx context.Context, dims int) (store.VectorIndex, error)

// Plugin represents a vector backend plugin.
type Plugin struct {
	Name   string
	Loader Loader
}

var plugins []Plugin

// Register adds a vector backend plugin.
func Register(p Plugin) {
	plugins = append(plugins, p)
}

// Names returns all registered vector backend plugin names.
func Names() []string {
	names := make([]string, len(plugins))
	for i, p := range plugins {
		names[i] = p.Name
	}
	return names
}

// Select returns the loader for the named vector backend plugin.
func Select(name string) (Loader, error) {
	for _, p := range plugins {
		if p.Name == name {
			return p.Loader, nil
		}
	}
	return nil, fmt.Errorf("unknown vector backend %q; valid: %v", name, Names())
}
