package store

import "context"

// embedCache wraps an Embedder so that within a single batch, identical
// texts (e.g. the same field value indexed on two different items) are
// embedded only once. It holds no state across batches — callers
// construct one per Store, and its cache is keyed by batch via a fresh
// request map on every call, so concurrent batches never share state.
type embedCache struct {
	embed Embedder
}

func newEmbedCache(embed Embedder) *embedCache {
	if embed == nil {
		return nil
	}
	return &embedCache{embed: embed}
}

// embedDeduped embeds the given texts, issuing one underlying
// EmbedDocuments call for the distinct texts, and returns a vector per
// input text in the same order (duplicates share a vector, including
// across wildcard-expanded index paths that happen to collide).
func (c *embedCache) embedDeduped(ctx context.Context, texts []string) ([][]float32, error) {
	if c == nil {
		return nil, &MissingEmbedderError{Op: "embed"}
	}
	order := make([]int, len(texts))
	seen := make(map[string]int, len(texts))
	var unique []string
	for i, t := range texts {
		if idx, ok := seen[t]; ok {
			order[i] = idx
			continue
		}
		idx := len(unique)
		seen[t] = idx
		unique = append(unique, t)
		order[i] = idx
	}
	vectors, err := c.embed.EmbedDocuments(ctx, unique)
	if err != nil {
		return nil, err
	}
	if len(vectors) != len(unique) {
		return nil, &ConfigError{Message: "embedder returned a mismatched number of vectors"}
	}
	out := make([][]float32, len(texts))
	for i, idx := range order {
		out[i] = vectors[idx]
	}
	return out, nil
}
