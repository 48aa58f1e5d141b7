package store

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestTokenizePath(t *testing.T) {
	cases := []struct {
		path string
		want []PathSegment
	}{
		{"$", nil},
		{"title", []PathSegment{{Kind: SegmentField, Field: "title"}}},
		{"chapters[*].content", []PathSegment{
			{Kind: SegmentField, Field: "chapters"},
			{Kind: SegmentWildcard},
			{Kind: SegmentField, Field: "content"},
		}},
		{"authors[-1].name", []PathSegment{
			{Kind: SegmentField, Field: "authors"},
			{Kind: SegmentNegIndex, Index: -1},
			{Kind: SegmentField, Field: "name"},
		}},
		{"items[0]", []PathSegment{
			{Kind: SegmentField, Field: "items"},
			{Kind: SegmentIndex, Index: 0},
		}},
	}
	for _, tc := range cases {
		t.Run(tc.path, func(t *testing.T) {
			got, err := TokenizePath(tc.path)
			require.NoError(t, err)
			require.Equal(t, tc.want, got)
		})
	}
}

func TestTokenizePath_Errors(t *testing.T) {
	for _, path := range []string{"", ".title", "title.", "foo[", "foo[bar]", "foo..bar", "foo[1]bar"} {
		t.Run(path, func(t *testing.T) {
			_, err := TokenizePath(path)
			require.Error(t, err)
		})
	}
}

func TestGetTextAtPath_WholeValue(t *testing.T) {
	got, err := GetTextAtPath(map[string]any{"a": 1}, "$")
	require.NoError(t, err)
	require.Equal(t, []string{`{"a":1}`}, got)
}

func TestGetTextAtPath_Field(t *testing.T) {
	value := map[string]any{"title": "hello"}
	got, err := GetTextAtPath(value, "title")
	require.NoError(t, err)
	require.Equal(t, []string{"hello"}, got)
}

func TestGetTextAtPath_Wildcard(t *testing.T) {
	value := map[string]any{
		"chapters": []any{
			map[string]any{"content": "one"},
			map[string]any{"content": "two"},
		},
	}
	got, err := GetTextAtPath(value, "chapters[*].content")
	require.NoError(t, err)
	require.Equal(t, []string{"one", "two"}, got)
}

func TestGetTextAtPath_NegativeIndex(t *testing.T) {
	value := map[string]any{"authors": []any{
		map[string]any{"name": "alice"},
		map[string]any{"name": "bob"},
	}}
	got, err := GetTextAtPath(value, "authors[-1].name")
	require.NoError(t, err)
	require.Equal(t, []string{"bob"}, got)
}

func TestGetTextAtPath_MissingFieldYieldsNoText(t *testing.T) {
	got, err := GetTextAtPath(map[string]any{"a": 1}, "missing")
	require.NoError(t, err)
	require.Empty(t, got)
}

func TestGetTextAtPath_OutOfRangeIndex(t *testing.T) {
	value := map[string]any{"items": []any{1, 2}}
	got, err := GetTextAtPath(value, "items[5]")
	require.NoError(t, err)
	require.Empty(t, got)
}
