// Package httpapi is the thin HTTP facade over the store service: a
// single batch endpoint plus namespace listing, mounted on a gin engine
// the way the teacher mounts its domain routes.
package httpapi

import (
	"context"
	"errors"
	"net/http"

	"github.com/chirino/memstore/internal/service"
	"github.com/chirino/memstore/internal/store"
	"github.com/gin-gonic/gin"
)

// MountRoutes mounts the store's HTTP surface under /v1.
func MountRoutes(r *gin.Engine, svc service.KVStore) {
	g := r.Group("/v1")
	g.POST("/batch", func(c *gin.Context) { handleBatch(c, svc) })
	g.GET("/namespaces", func(c *gin.Context) { handleListNamespaces(c, svc) })
	r.GET("/openapi.json", handleOpenAPI)
}

type indexSpecRequest struct {
	Mode  string   `json:"mode,omitempty"` // "", "disabled", "paths"
	Paths []string `json:"paths,omitempty"`
}

func (r indexSpecRequest) toIndexSpec() store.IndexSpec {
	switch r.Mode {
	case "disabled":
		return store.IndexSpec{Mode: store.IndexDisabled}
	case "paths":
		return store.IndexSpec{Mode: store.IndexPaths, Paths: r.Paths}
	default:
		return store.IndexSpec{}
	}
}

type matchConditionRequest struct {
	Kind string   `json:"kind"` // "prefix" or "suffix"
	Path []string `json:"path"`
}

// opRequest is one entry of a batch request body. Type selects which
// fields apply; unused fields are ignored.
type opRequest struct {
	Type string `json:"type"`

	Namespace []string          `json:"namespace,omitempty"`
	Key       string            `json:"key,omitempty"`
	Value     map[string]any    `json:"value,omitempty"`
	Index     *indexSpecRequest `json:"index,omitempty"`

	NamespacePrefix []string       `json:"namespacePrefix,omitempty"`
	Filter          map[string]any `json:"filter,omitempty"`
	Limit           int            `json:"limit,omitempty"`
	Offset          int            `json:"offset,omitempty"`
	Query           *string        `json:"query,omitempty"`

	MatchConditions []matchConditionRequest `json:"matchConditions,omitempty"`
	MaxDepth        int                     `json:"maxDepth,omitempty"`
}

type opResult struct {
	Type       string            `json:"type"`
	Item       *store.Item       `json:"item,omitempty"`
	Items      []store.SearchItem `json:"items,omitempty"`
	Namespaces []store.Namespace `json:"namespaces,omitempty"`
	Error      string            `json:"error,omitempty"`
}

func handleBatch(c *gin.Context, svc service.KVStore) {
	var ops []opRequest
	if err := c.ShouldBindJSON(&ops); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	if len(ops) == 0 {
		c.JSON(http.StatusBadRequest, gin.H{"error": "at least one operation required"})
		return
	}

	ctx := c.Request.Context()
	results := make([]opResult, len(ops))
	for i, op := range ops {
		results[i] = dispatch(ctx, svc, op)
	}
	c.JSON(http.StatusOK, gin.H{"results": results})
}

// dispatch runs one batch entry against svc. Each entry is executed as an
// independent call rather than a single atomic store-level batch; see
// DESIGN.md for the tradeoff.
func dispatch(ctx context.Context, svc service.KVStore, op opRequest) opResult {
	result := opResult{Type: op.Type}
	switch op.Type {
	case "get":
		item, err := svc.Get(ctx, store.Namespace(op.Namespace), op.Key)
		if err != nil {
			result.Error = err.Error()
			return result
		}
		result.Item = item
	case "put":
		index := store.IndexSpec{}
		if op.Index != nil {
			index = op.Index.toIndexSpec()
		}
		if err := svc.Put(ctx, store.Namespace(op.Namespace), op.Key, op.Value, index); err != nil {
			result.Error = err.Error()
		}
	case "delete":
		if err := svc.Delete(ctx, store.Namespace(op.Namespace), op.Key); err != nil {
			result.Error = err.Error()
		}
	case "search":
		searchOp := store.SearchOp{
			NamespacePrefix: store.Namespace(op.NamespacePrefix),
			Filter:          op.Filter,
			Limit:           op.Limit,
			Offset:          op.Offset,
			Query:           op.Query,
		}
		if searchOp.Limit == 0 {
			searchOp.Limit = 10
		}
		items, err := svc.Search(ctx, searchOp)
		if err != nil {
			result.Error = err.Error()
			return result
		}
		result.Items = items
	case "list_namespaces":
		listOp := store.ListNamespacesOp{MaxDepth: op.MaxDepth, Limit: op.Limit, Offset: op.Offset}
		if listOp.Limit == 0 {
			listOp.Limit = 100
		}
		for _, mc := range op.MatchConditions {
			kind := store.MatchPrefix
			if mc.Kind == "suffix" {
				kind = store.MatchSuffix
			}
			listOp.MatchConditions = append(listOp.MatchConditions, store.MatchCondition{Kind: kind, Path: mc.Path})
		}
		namespaces, err := svc.ListNamespaces(ctx, listOp)
		if err != nil {
			result.Error = err.Error()
			return result
		}
		result.Namespaces = namespaces
	default:
		result.Error = "unknown operation type: " + op.Type
	}
	return result
}

func handleListNamespaces(c *gin.Context, svc service.KVStore) {
	op := store.NewListNamespacesOp()
	namespaces, err := svc.ListNamespaces(c.Request.Context(), op)
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"namespaces": namespaces})
}

func writeError(c *gin.Context, err error) {
	var invalid *store.InvalidNamespaceError
	var missingEmbedder *store.MissingEmbedderError
	var cfgErr *store.ConfigError
	switch {
	case errors.As(err, &invalid):
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
	case errors.As(err, &missingEmbedder), errors.As(err, &cfgErr):
		c.JSON(http.StatusUnprocessableEntity, gin.H{"error": err.Error()})
	default:
		c.JSON(http.StatusInternalServerError, gin.H{"error": "internal server error"})
	}
}
