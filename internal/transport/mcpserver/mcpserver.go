// Package mcpserver exposes the store service as MCP tools, the way an
// agent framework talks to a LangGraph-style memory store directly
// instead of through a bespoke REST client.
package mcpserver

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/chirino/memstore/internal/service"
	"github.com/chirino/memstore/internal/store"
	"github.com/mark3labs/mcp-go/mcp"
	"github.com/mark3labs/mcp-go/server"
)

// New builds an MCP server with get/put/delete/search/list_namespaces
// tools backed by svc.
func New(svc service.KVStore) *server.MCPServer {
	s := server.NewMCPServer("memstore", "1.0.0")

	s.AddTool(mcp.NewTool("get",
		mcp.WithDescription("Fetch a single item by namespace and key"),
		mcp.WithArray("namespace", mcp.Required(), mcp.Description("namespace labels, outermost first")),
		mcp.WithString("key", mcp.Required()),
	), handleGet(svc))

	s.AddTool(mcp.NewTool("put",
		mcp.WithDescription("Store or update an item's JSON value"),
		mcp.WithArray("namespace", mcp.Required(), mcp.Description("namespace labels, outermost first")),
		mcp.WithString("key", mcp.Required()),
		mcp.WithObject("value", mcp.Required(), mcp.Description("JSON object to store")),
		mcp.WithArray("indexPaths", mcp.Description("JSON paths to embed for semantic search; omit to use the store default")),
	), handlePut(svc))

	s.AddTool(mcp.NewTool("delete",
		mcp.WithDescription("Delete an item by namespace and key"),
		mcp.WithArray("namespace", mcp.Required(), mcp.Description("namespace labels, outermost first")),
		mcp.WithString("key", mcp.Required()),
	), handleDelete(svc))

	s.AddTool(mcp.NewTool("search",
		mcp.WithDescription("Search items under a namespace prefix, optionally ranked by similarity to a query"),
		mcp.WithArray("namespacePrefix", mcp.Required(), mcp.Description("namespace prefix labels, outermost first")),
		mcp.WithObject("filter", mcp.Description("JSON containment filter applied to stored values")),
		mcp.WithString("query", mcp.Description("natural-language query to rank results by similarity")),
		mcp.WithNumber("limit", mcp.Description("max results, default 10")),
		mcp.WithNumber("offset", mcp.Description("results to skip, default 0")),
	), handleSearch(svc))

	s.AddTool(mcp.NewTool("list_namespaces",
		mcp.WithDescription("List distinct namespaces, optionally constrained and truncated to a max depth"),
		mcp.WithNumber("maxDepth", mcp.Description("truncate namespaces to this many labels, 0 = no truncation")),
		mcp.WithNumber("limit", mcp.Description("max results, default 100")),
		mcp.WithNumber("offset", mcp.Description("results to skip, default 0")),
	), handleListNamespaces(svc))

	return s
}

func namespaceArg(request mcp.CallToolRequest, name string) (store.Namespace, error) {
	raw, ok := request.GetArguments()[name]
	if !ok {
		return nil, fmt.Errorf("%s is required", name)
	}
	items, ok := raw.([]any)
	if !ok {
		return nil, fmt.Errorf("%s must be an array of strings", name)
	}
	ns := make(store.Namespace, len(items))
	for i, v := range items {
		label, ok := v.(string)
		if !ok {
			return nil, fmt.Errorf("%s[%d] must be a string", name, i)
		}
		ns[i] = label
	}
	return ns, nil
}

func jsonResult(v any) (*mcp.CallToolResult, error) {
	data, err := json.Marshal(v)
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	return mcp.NewToolResultText(string(data)), nil
}

func handleGet(svc service.KVStore) server.ToolHandlerFunc {
	return func(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
		ns, err := namespaceArg(request, "namespace")
		if err != nil {
			return mcp.NewToolResultError(err.Error()), nil
		}
		key, err := request.RequireString("key")
		if err != nil {
			return mcp.NewToolResultError(err.Error()), nil
		}
		item, err := svc.Get(ctx, ns, key)
		if err != nil {
			return mcp.NewToolResultError(err.Error()), nil
		}
		return jsonResult(item)
	}
}

func handlePut(svc service.KVStore) server.ToolHandlerFunc {
	return func(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
		ns, err := namespaceArg(request, "namespace")
		if err != nil {
			return mcp.NewToolResultError(err.Error()), nil
		}
		key, err := request.RequireString("key")
		if err != nil {
			return mcp.NewToolResultError(err.Error()), nil
		}
		valueRaw, ok := request.GetArguments()["value"].(map[string]any)
		if !ok {
			return mcp.NewToolResultError("value is required and must be a JSON object"), nil
		}

		index := store.IndexSpec{}
		if pathsRaw, ok := request.GetArguments()["indexPaths"].([]any); ok {
			paths := make([]string, 0, len(pathsRaw))
			for _, p := range pathsRaw {
				if s, ok := p.(string); ok {
					paths = append(paths, s)
				}
			}
			if len(paths) > 0 {
				index = store.IndexSpec{Mode: store.IndexPaths, Paths: paths}
			}
		}

		if err := svc.Put(ctx, ns, key, valueRaw, index); err != nil {
			return mcp.NewToolResultError(err.Error()), nil
		}
		return mcp.NewToolResultText("ok"), nil
	}
}

func handleDelete(svc service.KVStore) server.ToolHandlerFunc {
	return func(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
		ns, err := namespaceArg(request, "namespace")
		if err != nil {
			return mcp.NewToolResultError(err.Error()), nil
		}
		key, err := request.RequireString("key")
		if err != nil {
			return mcp.NewToolResultError(err.Error()), nil
		}
		if err := svc.Delete(ctx, ns, key); err != nil {
			return mcp.NewToolResultError(err.Error()), nil
		}
		return mcp.NewToolResultText("ok"), nil
	}
}

func handleSearch(svc service.KVStore) server.ToolHandlerFunc {
	return func(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
		prefix, err := namespaceArg(request, "namespacePrefix")
		if err != nil {
			return mcp.NewToolResultError(err.Error()), nil
		}
		op := store.NewSearchOp(prefix)
		args := request.GetArguments()
		if filter, ok := args["filter"].(map[string]any); ok {
			op.Filter = filter
		}
		if query := request.GetString("query", ""); query != "" {
			op.Query = &query
		}
		if limit := int(request.GetFloat("limit", 0)); limit > 0 {
			op.Limit = limit
		}
		if offset := int(request.GetFloat("offset", 0)); offset > 0 {
			op.Offset = offset
		}
		items, err := svc.Search(ctx, op)
		if err != nil {
			return mcp.NewToolResultError(err.Error()), nil
		}
		return jsonResult(items)
	}
}

func handleListNamespaces(svc service.KVStore) server.ToolHandlerFunc {
	return func(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
		op := store.NewListNamespacesOp()
		if depth := int(request.GetFloat("maxDepth", 0)); depth > 0 {
			op.MaxDepth = depth
		}
		if limit := int(request.GetFloat("limit", 0)); limit > 0 {
			op.Limit = limit
		}
		if offset := int(request.GetFloat("offset", 0)); offset > 0 {
			op.Offset = offset
		}
		namespaces, err := svc.ListNamespaces(ctx, op)
		if err != nil {
			return mcp.NewToolResultError(err.Error()), nil
		}
		return jsonResult(namespaces)
	}
}

// Serve runs s over the streamable HTTP transport at addr until ctx is
// canceled.
func Serve(ctx context.Context, s *server.MCPServer, addr string) error {
	httpServer := server.NewStreamableHTTPServer(s)
	errCh := make(chan error, 1)
	go func() { errCh <- httpServer.Start(addr) }()
	select {
	case <-ctx.Done():
		return httpServer.Shutdown(context.Background())
	case err := <-errCh:
		return err
	}
}
