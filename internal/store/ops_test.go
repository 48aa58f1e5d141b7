package store

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestNewSearchOp_Defaults(t *testing.T) {
	op := NewSearchOp(Namespace{"users", "123"})
	require.Equal(t, Namespace{"users", "123"}, op.NamespacePrefix)
	require.Equal(t, 10, op.Limit)
	require.Equal(t, 0, op.Offset)
	require.Nil(t, op.Query)
}

func TestNewListNamespacesOp_Defaults(t *testing.T) {
	op := NewListNamespacesOp()
	require.Equal(t, 100, op.Limit)
	require.Equal(t, 0, op.Offset)
	require.Empty(t, op.MatchConditions)
}

func TestOp_IsOpMarkers(t *testing.T) {
	var ops []Op
	ops = append(ops, GetOp{}, PutOp{}, SearchOp{}, ListNamespacesOp{})
	require.Len(t, ops, 4)
}
