package store

import (
	"context"
	"hash/fnv"
	"math"
	"strings"
	"testing"

	"github.com/chirino/memstore/internal/testutil/testpg"
	"github.com/stretchr/testify/require"
)

const integrationTestDims = 256

// hashEmbed is a deterministic bag-of-tokens embedder, the same
// technique the shipped local embedder plugin uses, sized down here so
// a handful of overlapping/non-overlapping words produce clearly
// separated cosine similarities without pulling that plugin package in
// (which itself imports this one).
func hashEmbed(_ context.Context, texts []string) ([][]float32, error) {
	out := make([][]float32, len(texts))
	for i, text := range texts {
		vec := make([]float32, integrationTestDims)
		for _, tok := range strings.Fields(strings.ToLower(text)) {
			h := fnv.New32a()
			_, _ = h.Write([]byte(tok))
			vec[int(h.Sum32())%integrationTestDims]++
		}
		var norm float32
		for _, v := range vec {
			norm += v * v
		}
		if norm > 0 {
			inv := 1 / float32(math.Sqrt(float64(norm)))
			for j := range vec {
				vec[j] *= inv
			}
		}
		out[i] = vec
	}
	return out, nil
}

func openIntegrationStore(t *testing.T) *Store {
	t.Helper()
	dbURL := testpg.StartPostgres(t)
	idx, err := NewIndexConfig(IndexConfig{Dims: integrationTestDims, Embed: EmbedderFunc(hashEmbed)})
	require.NoError(t, err)
	s, err := Open(context.Background(), dbURL, PoolConfig{}, &idx)
	require.NoError(t, err)
	t.Cleanup(s.Close)
	return s
}

func TestStore_Batch_PutGetDeleteRoundTrip(t *testing.T) {
	s := openIntegrationStore(t)
	ctx := context.Background()
	ns := Namespace{"users", "1"}

	_, err := s.Batch(ctx, []Op{
		PutOp{Namespace: ns, Key: "a", Value: map[string]any{"name": "ada"}, Index: IndexSpec{Mode: IndexDisabled}},
	})
	require.NoError(t, err)

	results, err := s.Batch(ctx, []Op{GetOp{Namespace: ns, Key: "a"}})
	require.NoError(t, err)
	item, ok := results[0].(*Item)
	require.True(t, ok)
	require.NotNil(t, item)
	require.Equal(t, "ada", item.Value["name"])

	_, err = s.Batch(ctx, []Op{PutOp{Namespace: ns, Key: "a", Value: nil}})
	require.NoError(t, err)

	results, err = s.Batch(ctx, []Op{GetOp{Namespace: ns, Key: "a"}})
	require.NoError(t, err)
	require.Nil(t, results[0])
}

func TestStore_Batch_GetSeesPreBatchState(t *testing.T) {
	s := openIntegrationStore(t)
	ctx := context.Background()
	ns := Namespace{"users", "2"}

	_, err := s.Batch(ctx, []Op{
		PutOp{Namespace: ns, Key: "a", Value: map[string]any{"v": float64(1)}, Index: IndexSpec{Mode: IndexDisabled}},
	})
	require.NoError(t, err)

	// A Get and a Put to the same key in one batch: the Get must observe
	// the state from before this batch's write, per the fixed
	// read-before-write dispatch order.
	results, err := s.Batch(ctx, []Op{
		GetOp{Namespace: ns, Key: "a"},
		PutOp{Namespace: ns, Key: "a", Value: map[string]any{"v": float64(2)}, Index: IndexSpec{Mode: IndexDisabled}},
	})
	require.NoError(t, err)
	item := results[0].(*Item)
	require.Equal(t, float64(1), item.Value["v"])

	results, err = s.Batch(ctx, []Op{GetOp{Namespace: ns, Key: "a"}})
	require.NoError(t, err)
	item = results[0].(*Item)
	require.Equal(t, float64(2), item.Value["v"])
}

func TestStore_Batch_MultiNamespaceGetGrouping(t *testing.T) {
	s := openIntegrationStore(t)
	ctx := context.Background()
	nsA := Namespace{"users", "1"}
	nsB := Namespace{"users", "2"}

	_, err := s.Batch(ctx, []Op{
		PutOp{Namespace: nsA, Key: "x", Value: map[string]any{"v": "a-x"}, Index: IndexSpec{Mode: IndexDisabled}},
		PutOp{Namespace: nsA, Key: "y", Value: map[string]any{"v": "a-y"}, Index: IndexSpec{Mode: IndexDisabled}},
		PutOp{Namespace: nsB, Key: "x", Value: map[string]any{"v": "b-x"}, Index: IndexSpec{Mode: IndexDisabled}},
	})
	require.NoError(t, err)

	results, err := s.Batch(ctx, []Op{
		GetOp{Namespace: nsA, Key: "x"},
		GetOp{Namespace: nsB, Key: "x"},
		GetOp{Namespace: nsA, Key: "y"},
		GetOp{Namespace: nsA, Key: "missing"},
	})
	require.NoError(t, err)
	require.Equal(t, "a-x", results[0].(*Item).Value["v"])
	require.Equal(t, "b-x", results[1].(*Item).Value["v"])
	require.Equal(t, "a-y", results[2].(*Item).Value["v"])
	require.Nil(t, results[3])
}

func TestStore_Batch_IndexedSearchRoundTrip(t *testing.T) {
	s := openIntegrationStore(t)
	ctx := context.Background()
	ns := Namespace{"docs"}

	_, err := s.Batch(ctx, []Op{
		PutOp{Namespace: ns, Key: "a", Value: map[string]any{"text": "postgres database indexing and vector search"}, Index: IndexSpec{Mode: IndexPaths, Paths: []string{"text"}}},
	})
	require.NoError(t, err)

	query := "postgres database indexing vector search"
	op := NewSearchOp(ns)
	op.Query = &query
	results, err := s.Batch(ctx, []Op{op})
	require.NoError(t, err)

	items, ok := results[0].([]SearchItem)
	require.True(t, ok)
	require.Len(t, items, 1)
	require.Equal(t, "a", items[0].Key)
	require.NotNil(t, items[0].Score)
}

func TestStore_Batch_SearchFanOutRanksByScore(t *testing.T) {
	s := openIntegrationStore(t)
	ctx := context.Background()
	ns := Namespace{"docs"}

	_, err := s.Batch(ctx, []Op{
		PutOp{Namespace: ns, Key: "close-1", Value: map[string]any{"text": "postgres database indexing vector search"}, Index: IndexSpec{Mode: IndexPaths, Paths: []string{"text"}}},
		PutOp{Namespace: ns, Key: "close-2", Value: map[string]any{"text": "vector search over postgres database indexing"}, Index: IndexSpec{Mode: IndexPaths, Paths: []string{"text"}}},
		PutOp{Namespace: ns, Key: "far", Value: map[string]any{"text": "the weather today is sunny and warm outside"}, Index: IndexSpec{Mode: IndexPaths, Paths: []string{"text"}}},
	})
	require.NoError(t, err)

	query := "postgres database indexing vector search"
	op := NewSearchOp(ns)
	op.Query = &query
	op.Limit = 10
	results, err := s.Batch(ctx, []Op{op})
	require.NoError(t, err)

	items, ok := results[0].([]SearchItem)
	require.True(t, ok)
	require.Len(t, items, 3)

	scoreByKey := make(map[string]float64, len(items))
	for _, item := range items {
		require.NotNil(t, item.Score)
		scoreByKey[item.Key] = *item.Score
	}
	require.Greater(t, scoreByKey["close-1"], scoreByKey["far"])
	require.Greater(t, scoreByKey["close-2"], scoreByKey["far"])
}

func TestStore_Batch_SearchSharesOneEmbedderCallAcrossBatch(t *testing.T) {
	dbURL := testpg.StartPostgres(t)
	calls := 0
	counting := EmbedderFunc(func(ctx context.Context, texts []string) ([][]float32, error) {
		calls++
		return hashEmbed(ctx, texts)
	})
	idx, err := NewIndexConfig(IndexConfig{Dims: integrationTestDims, Embed: counting})
	require.NoError(t, err)
	s, err := Open(context.Background(), dbURL, PoolConfig{}, &idx)
	require.NoError(t, err)
	t.Cleanup(s.Close)

	ctx := context.Background()
	ns := Namespace{"docs"}

	_, err = s.Batch(ctx, []Op{
		PutOp{Namespace: ns, Key: "a", Value: map[string]any{"text": "postgres database indexing"}, Index: IndexSpec{Mode: IndexPaths, Paths: []string{"text"}}},
		PutOp{Namespace: ns, Key: "b", Value: map[string]any{"text": "vector search over databases"}, Index: IndexSpec{Mode: IndexPaths, Paths: []string{"text"}}},
	})
	require.NoError(t, err)
	require.Equal(t, 1, calls, "a single Put with two indexed items should make one embedder call")

	calls = 0
	q1, q2 := "postgres database indexing", "vector search over databases"
	op1 := NewSearchOp(ns)
	op1.Query = &q1
	op2 := NewSearchOp(ns)
	op2.Query = &q2

	results, err := s.Batch(ctx, []Op{op1, op2})
	require.NoError(t, err)
	require.Equal(t, 1, calls, "two query-bearing searches in one batch should share a single embedder call")
	require.Len(t, results, 2)
	require.Equal(t, "a", results[0].([]SearchItem)[0].Key)
	require.Equal(t, "b", results[1].([]SearchItem)[0].Key)
}
