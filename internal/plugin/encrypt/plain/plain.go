// Package plain registers the "none" encryption provider: it passes
// stored values through unchanged.
package plain

import (
	"context"

	"github.com/chirino/memstore/internal/config"
	"github.com/chirino/memstore/internal/registry/encrypt"
)

func init() {
	encrypt.Register(encrypt.Plugin{
		Name: "none",
		Loader: func(_ context.Context, _ *config.Config) (encrypt.Provider, error) {
			return &provider{}, nil
		},
	})
}

type provider struct{}

func (p *provider) ID() string { return "none" }

func (p *provider) Encrypt(plaintext []byte) ([]byte, error) { return plaintext, nil }

func (p *provider) Decrypt(ciphertext []byte) ([]byte, error) { return ciphertext, nil }

var _ encrypt.Provider = (*provider)(nil)
