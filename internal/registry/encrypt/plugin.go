// Package encrypt is the plugin registry for value-at-rest encryption
// providers, selected via Config.EncryptType.
package encrypt

import (
	"context"
	"fmt"

	"github.com/chirino/memstore/internal/config"
)

// Provider encrypts and decrypts the raw JSON bytes of a stored value.
type Provider interface {
	ID() string
	Encrypt(plaintext []byte) ([]byte, error)
	Decrypt(ciphertext []byte) ([]byte, error)
}

// Loader creates a Provider from config.
type Loader func(ctx context.Context, cfg *config.Config) (Provider, error)

// Plugin represents an encryption provider plugin.
type Plugin struct {
	Name   string
	Loader Loader
}

var plugins []Plugin

// Register adds an encryption provider plugin.
func Register(p Plugin) {
	plugins = append(plugins, p)
}

// Names returns all registered encryption provider names.
func Names() []string {
	names := make([]string, len(plugins))
	for i, p := range plugins {
		names[i] = p.Name
	}
	return names
}

// Select returns the loader for the named encryption provider.
func Select(name string) (Loader, error) {
	for _, p := range plugins {
		if p.Name == name {
			return p.Loader, nil
		}
	}
	return nil, fmt.Errorf("unknown encryption provider %q; valid: %v", name, Names())
}
