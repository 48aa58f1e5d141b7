package store

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestNamespace_Validate(t *testing.T) {
	cases := []struct {
		name    string
		ns      Namespace
		wantErr bool
	}{
		{"valid", Namespace{"users", "123", "memories"}, false},
		{"empty", Namespace{}, true},
		{"empty label", Namespace{"users", ""}, true},
		{"dot in label", Namespace{"users.123"}, true},
		{"reserved root", Namespace{"langgraph", "x"}, true},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			err := tc.ns.Validate()
			if tc.wantErr {
				require.Error(t, err)
				var nsErr *InvalidNamespaceError
				require.ErrorAs(t, err, &nsErr)
			} else {
				require.NoError(t, err)
			}
		})
	}
}

func TestNamespace_EncodeDecodeRoundTrip(t *testing.T) {
	ns := Namespace{"users", "123", "memories"}
	encoded := ns.Encode()
	require.Equal(t, "users.123.memories", encoded)
	require.Equal(t, ns, DecodeNamespace(encoded))
}

func TestDecodeNamespace_Empty(t *testing.T) {
	require.Nil(t, DecodeNamespace(""))
}

func TestPrefixLikePattern_EscapesMetacharacters(t *testing.T) {
	require.Equal(t, `users.%`, PrefixLikePattern("users"))
	require.Equal(t, `my\_space.%`, PrefixLikePattern("my_space"))
	require.Equal(t, `100\%.%`, PrefixLikePattern("100%"))
}

func TestHasPrefix(t *testing.T) {
	require.True(t, HasPrefix("users.123", "users.123"))
	require.True(t, HasPrefix("users.123.memories", "users.123"))
	require.False(t, HasPrefix("userspace.123", "users"))
	require.False(t, HasPrefix("users2", "users"))
}

func TestTruncate(t *testing.T) {
	require.Equal(t, "users.123", Truncate("users.123.memories", 2))
	require.Equal(t, "users.123.memories", Truncate("users.123.memories", 10))
	require.Equal(t, "users.123.memories", Truncate("users.123.memories", 0))
}

func TestDepth(t *testing.T) {
	require.Equal(t, 0, Depth(""))
	require.Equal(t, 1, Depth("users"))
	require.Equal(t, 3, Depth("users.123.memories"))
}

func TestMatchesSuffix(t *testing.T) {
	require.True(t, MatchesSuffix("users.123.memories", []string{"memories"}))
	require.True(t, MatchesSuffix("users.123.memories", []string{"*", "memories"}))
	require.False(t, MatchesSuffix("users.123.memories", []string{"notes"}))
	require.False(t, MatchesSuffix("users", []string{"a", "b"}))
	require.True(t, MatchesSuffix("anything", nil))
}

func TestMatchesPrefixCondition(t *testing.T) {
	require.True(t, MatchesPrefixCondition("users.123.memories", []string{"users", "*"}))
	require.False(t, MatchesPrefixCondition("users.123.memories", []string{"orgs"}))
	require.True(t, MatchesPrefixCondition("anything", nil))
}
