// Package embed is the plugin registry for embedding backends: disabled,
// local (in-process, deterministic), and openai (remote API).
package embed

import (
	"context"
	"fmt"

	"github.com/chirino/memstore/internal/store"
)

// Provider is an embedder plugin's resolved form: the store.Embedder it
// wires into IndexConfig.Embed, plus the vector dimensionality that
// migration needs to size the store_vectors column.
type Provider struct {
	Embedder store.Embedder
	Dims     int
}

// Loader creates a Provider from config carried on ctx.
type Loader func(ctx context.Context) (Provider, error)

// Plugin represents an embedder plugin.
type Plugin struct {
	Name   string
	Loader Loader
}

var plugins []Plugin

// Register adds an embedder plugin.
func Register(p Plugin) {
	plugins = append(plugins, p)
}

// Names returns all registered embedder plugin names.
func Names() []string {
	names := make([]string, len(plugins))
	for i, p := range plugins {
		names[i] = p.Name
	}
	return names
}

// Select returns the loader for the named embedder plugin.
func Select(name string) (Loader, error) {
	for _, p := range plugins {
		if p.Name == name {
			return p.Loader, nil
		}
	}
	return nil, fmt.Errorf("unknown embedder %q; valid: %v", name, Names())
}
