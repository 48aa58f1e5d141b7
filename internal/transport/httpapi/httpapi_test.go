package httpapi

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/chirino/memstore/internal/store"
	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/require"
)

type fakeStore struct {
	items map[string]*store.Item
}

func newFakeStore() *fakeStore {
	return &fakeStore{items: make(map[string]*store.Item)}
}

func keyFor(ns store.Namespace, key string) string {
	return ns.Encode() + "|" + key
}

func (f *fakeStore) Get(ctx context.Context, namespace store.Namespace, key string) (*store.Item, error) {
	if err := namespace.Validate(); err != nil {
		return nil, err
	}
	return f.items[keyFor(namespace, key)], nil
}

func (f *fakeStore) Put(ctx context.Context, namespace store.Namespace, key string, value map[string]any, index store.IndexSpec) error {
	if err := namespace.Validate(); err != nil {
		return err
	}
	f.items[keyFor(namespace, key)] = &store.Item{Namespace: namespace, Key: key, Value: value}
	return nil
}

func (f *fakeStore) Delete(ctx context.Context, namespace store.Namespace, key string) error {
	delete(f.items, keyFor(namespace, key))
	return nil
}

func (f *fakeStore) Search(ctx context.Context, op store.SearchOp) ([]store.SearchItem, error) {
	var out []store.SearchItem
	for _, item := range f.items {
		if store.HasPrefix(item.Namespace.Encode(), op.NamespacePrefix.Encode()) {
			out = append(out, store.SearchItem{Item: *item})
		}
	}
	return out, nil
}

func (f *fakeStore) ListNamespaces(ctx context.Context, op store.ListNamespacesOp) ([]store.Namespace, error) {
	seen := map[string]bool{}
	var out []store.Namespace
	for _, item := range f.items {
		enc := item.Namespace.Encode()
		if !seen[enc] {
			seen[enc] = true
			out = append(out, item.Namespace)
		}
	}
	return out, nil
}

func newTestRouter(svc *fakeStore) *gin.Engine {
	gin.SetMode(gin.TestMode)
	r := gin.New()
	MountRoutes(r, svc)
	return r
}

func TestHandleBatch_PutThenGet(t *testing.T) {
	svc := newFakeStore()
	r := newTestRouter(svc)

	body, _ := json.Marshal([]map[string]any{
		{"type": "put", "namespace": []string{"users", "1"}, "key": "profile", "value": map[string]any{"name": "ada"}},
		{"type": "get", "namespace": []string{"users", "1"}, "key": "profile"},
	})
	req := httptest.NewRequest(http.MethodPost, "/v1/batch", bytes.NewReader(body))
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)

	require.Equal(t, http.StatusOK, w.Code)
	var resp struct {
		Results []opResult `json:"results"`
	}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	require.Len(t, resp.Results, 2)
	require.Empty(t, resp.Results[0].Error)
	require.NotNil(t, resp.Results[1].Item)
	require.Equal(t, "ada", resp.Results[1].Item.Value["name"])
}

func TestHandleBatch_EmptyBody(t *testing.T) {
	svc := newFakeStore()
	r := newTestRouter(svc)

	req := httptest.NewRequest(http.MethodPost, "/v1/batch", bytes.NewReader([]byte("[]")))
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)

	require.Equal(t, http.StatusBadRequest, w.Code)
}

func TestHandleBatch_UnknownOpType(t *testing.T) {
	svc := newFakeStore()
	r := newTestRouter(svc)

	body, _ := json.Marshal([]map[string]any{{"type": "frobnicate"}})
	req := httptest.NewRequest(http.MethodPost, "/v1/batch", bytes.NewReader(body))
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)

	require.Equal(t, http.StatusOK, w.Code)
	var resp struct {
		Results []opResult `json:"results"`
	}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	require.Contains(t, resp.Results[0].Error, "unknown operation type")
}

func TestHandleListNamespaces(t *testing.T) {
	svc := newFakeStore()
	require.NoError(t, svc.Put(context.Background(), store.Namespace{"users", "1"}, "a", map[string]any{}, store.IndexSpec{}))
	r := newTestRouter(svc)

	req := httptest.NewRequest(http.MethodGet, "/v1/namespaces", nil)
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)

	require.Equal(t, http.StatusOK, w.Code)
	var resp struct {
		Namespaces []store.Namespace `json:"namespaces"`
	}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	require.Equal(t, []store.Namespace{{"users", "1"}}, resp.Namespaces)
}

func TestHandleOpenAPI(t *testing.T) {
	svc := newFakeStore()
	r := newTestRouter(svc)

	req := httptest.NewRequest(http.MethodGet, "/openapi.json", nil)
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)

	require.Equal(t, http.StatusOK, w.Code)
	require.Contains(t, w.Body.String(), "\"openapi\":\"3.0.3\"")
}

func TestWriteError_StatusMapping(t *testing.T) {
	gin.SetMode(gin.TestMode)
	cases := []struct {
		err  error
		code int
	}{
		{&store.InvalidNamespaceError{Reason: "bad"}, http.StatusBadRequest},
		{&store.ConfigError{Message: "bad config"}, http.StatusUnprocessableEntity},
		{&store.MissingEmbedderError{Op: "search"}, http.StatusUnprocessableEntity},
		{&store.DatabaseError{Op: "acquire", Err: context.DeadlineExceeded}, http.StatusInternalServerError},
	}
	for _, tc := range cases {
		w := httptest.NewRecorder()
		c, _ := gin.CreateTestContext(w)
		writeError(c, tc.err)
		require.Equal(t, tc.code, w.Code)
	}
}
