// Package local implements a deterministic, in-process embedder so a
// store can be run with semantic search enabled without any external
// embedding API.
package local

import (
	"context"
	"hash/fnv"
	"math"
	"strings"
	"unicode"

	registryembed "github.com/chirino/memstore/internal/registry/embed"
	"github.com/chirino/memstore/internal/store"
)

const dimension = 384

func init() {
	registryembed.Register(registryembed.Plugin{
		Name: "local",
		Loader: func(_ context.Context) (registryembed.Provider, error) {
			return registryembed.Provider{Embedder: &Embedder{}, Dims: dimension}, nil
		},
	})
}

// Embedder hashes tokens into a fixed-size bag-of-words vector,
// normalized to unit length. It produces the same vector for the same
// text every time, which makes it useful for tests and offline demos,
// but it carries none of the semantic nuance a trained model would.
type Embedder struct{}

func (e *Embedder) EmbedDocuments(_ context.Context, texts []string) ([][]float32, error) {
	results := make([][]float32, len(texts))
	for i, text := range texts {
		results[i] = embedOne(text)
	}
	return results, nil
}

func embedOne(text string) []float32 {
	vector := make([]float32, dimension)
	for _, tok := range tokenize(text) {
		h := fnv.New64a()
		_, _ = h.Write([]byte(tok))
		i := int(h.Sum64() % uint64(dimension))
		vector[i] += 1
	}
	norm := float32(0)
	for _, v := range vector {
		norm += v * v
	}
	if norm == 0 {
		return vector
	}
	inv := 1 / float32(math.Sqrt(float64(norm)))
	for i := range vector {
		vector[i] *= inv
	}
	return vector
}

func tokenize(text string) []string {
	text = strings.TrimSpace(strings.ToLower(text))
	if text == "" {
		return nil
	}
	return strings.FieldsFunc(text, func(r rune) bool {
		return !(unicode.IsLetter(r) || unicode.IsNumber(r))
	})
}

var _ store.Embedder = (*Embedder)(nil)
