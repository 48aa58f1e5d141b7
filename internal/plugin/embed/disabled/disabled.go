// Package disabled registers the "none" embedder: selecting it tells the
// store to run with semantic search turned off entirely.
package disabled

import (
	"context"

	registryembed "github.com/chirino/memstore/internal/registry/embed"
)

func init() {
	registryembed.Register(registryembed.Plugin{
		Name: "none",
		Loader: func(_ context.Context) (registryembed.Provider, error) {
			return registryembed.Provider{}, nil
		},
	})
}
