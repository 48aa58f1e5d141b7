package store

import "context"

// Embedder produces vector embeddings from text. Implementations must
// return one vector per input text, in the same order
// (len(out) == len(in)).
type Embedder interface {
	EmbedDocuments(ctx context.Context, texts []string) ([][]float32, error)
}

// EmbedderFunc adapts a plain function to the Embedder interface — the
// "sync callable" normalization form from spec §4.2.
type EmbedderFunc func(ctx context.Context, texts []string) ([][]float32, error)

func (f EmbedderFunc) EmbedDocuments(ctx context.Context, texts []string) ([][]float32, error) {
	return f(ctx, texts)
}

// IndexConfig configures semantic indexing for a store. Dims must be > 0
// and Embed must be resolvable, or the config is rejected by
// NewIndexConfig.
type IndexConfig struct {
	Dims   int
	Embed  Embedder
	Fields []string
	// Backend selects which VectorIndex implementation stores/searches the
	// derived vectors. "" (or "sql") uses the default in-database backend;
	// "qdrant" delegates to an external ANN service.
	Backend string
}

// defaultIndexFields is applied when IndexConfig.Fields is empty: embed the
// whole JSON object as text, per spec §4.2/§6.
var defaultIndexFields = []string{"$"}

// NewIndexConfig validates and normalizes an IndexConfig, applying the
// default Fields when unset.
func NewIndexConfig(cfg IndexConfig) (IndexConfig, error) {
	if cfg.Dims <= 0 {
		return IndexConfig{}, &ConfigError{Message: "index config requires dims > 0"}
	}
	if cfg.Embed == nil {
		return IndexConfig{}, &ConfigError{Message: "index config requires a resolvable embedder"}
	}
	out := cfg
	if len(out.Fields) == 0 {
		out.Fields = defaultIndexFields
	}
	return out, nil
}

// effectiveIndexPaths resolves the fields to index for a single put:
// an op-level override wins, else the store default, else no indexing.
func effectiveIndexPaths(idx IndexSpec, cfg *IndexConfig) ([]string, bool) {
	switch idx.Mode {
	case IndexDisabled:
		return nil, false
	case IndexPaths:
		return idx.Paths, len(idx.Paths) > 0
	default: // IndexUnset
		if cfg == nil {
			return nil, false
		}
		return cfg.Fields, len(cfg.Fields) > 0
	}
}
