package store

import (
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

func TestPlanGetByNamespace(t *testing.T) {
	p := planGetByNamespace(Namespace{"users", "1"}, []string{"a", "b"})
	require.Contains(t, p.sql, "key = ANY($2)")
	require.Equal(t, []any{"users.1", []string{"a", "b"}}, p.args)
}

func TestPlanPutUpsert(t *testing.T) {
	now := time.Unix(0, 0)
	p, err := planPutUpsert(PutOp{Namespace: Namespace{"users", "1"}, Key: "k", Value: map[string]any{"a": 1}}, now)
	require.NoError(t, err)
	require.Contains(t, p.sql, "ON CONFLICT (prefix, key)")
	require.Equal(t, "users.1", p.args[0])
	require.Equal(t, "k", p.args[1])
	require.Equal(t, now, p.args[3])
}

func TestPlanDeleteByNamespace(t *testing.T) {
	p := planDeleteByNamespace(Namespace{"users", "1"}, []string{"a", "b"})
	require.Contains(t, p.sql, "DELETE FROM store")
	require.Contains(t, p.sql, "key = ANY($2)")
	require.Equal(t, []any{"users.1", []string{"a", "b"}}, p.args)
}

func TestPlanSearch_WithAndWithoutFilter(t *testing.T) {
	op := NewSearchOp(Namespace{"users", "1"})
	p, err := planSearch(op)
	require.NoError(t, err)
	require.NotContains(t, p.sql, "value @>")
	require.Equal(t, []any{"users.1", "users.1.%", 10, 0}, p.args)

	op.Filter = map[string]any{"kind": "note"}
	p, err = planSearch(op)
	require.NoError(t, err)
	require.Contains(t, p.sql, "value @> $3")
	require.Len(t, p.args, 5)
}

func TestPlanGetMany(t *testing.T) {
	p, err := planGetMany(Namespace{"users", "1"}, []string{"a", "b"}, nil)
	require.NoError(t, err)
	require.Contains(t, p.sql, "key = ANY($3)")
	require.Equal(t, []any{"users.1", "users.1.%", []string{"a", "b"}}, p.args)
}

func TestFilterNamespaces_Truncation(t *testing.T) {
	all := []string{"users.1.memories", "users.1.notes", "users.2.memories"}
	out := filterNamespaces(all, ListNamespacesOp{MaxDepth: 2, Limit: 100})
	require.Equal(t, []Namespace{{"users", "1"}, {"users", "2"}}, out)
}

func TestFilterNamespaces_MatchConditions(t *testing.T) {
	all := []string{"users.1.memories", "users.1.notes", "orgs.1.memories"}
	out := filterNamespaces(all, ListNamespacesOp{
		MatchConditions: []MatchCondition{{Kind: MatchPrefix, Path: []string{"users", "*"}}},
		Limit:           100,
	})
	require.Equal(t, []Namespace{{"users", "1", "memories"}, {"users", "1", "notes"}}, out)
}

func TestFilterNamespaces_Pagination(t *testing.T) {
	all := []string{"a", "b", "c", "d"}
	out := filterNamespaces(all, ListNamespacesOp{Limit: 2, Offset: 1})
	require.Equal(t, []Namespace{{"b"}, {"c"}}, out)
}

func TestMatchesAll_EmptyConditionsMatchesEverything(t *testing.T) {
	require.True(t, matchesAll("anything", nil))
}
