package tools

import (
	"context"
	"strconv"

	"github.com/mark3labs/mcp-go/mcp"
)

// GetHandler returns the MCP tool handler for the "kv-get" tool.
func GetHandler(kv KV) func(context.Context, mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	return func(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
		key, err := req.RequireString("key")
		if err != nil {
			return toolError(err), nil
		}
		v, err := kv.Get(key, opsFrom(req))
		if err != nil {
			return toolError(err), nil
		}
		return mcp.NewToolResultText(formatValue(v)), nil
	}
}

// HasHandler returns the MCP tool handler for the "kv-has" tool.
func HasHandler(kv KV) func(context.Context, mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	return func(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
		key, err := req.RequireString("key")
		if err != nil {
			return toolError(err), nil
		}
		found, err := kv.Has(key, opsFrom(req))
		if err != nil {
			return toolError(err), nil
		}
		return mcp.NewToolResultText(strconv.FormatBool(found)), nil
	}
}

// AllHandler returns the MCP tool handler for the "kv-all" tool.
func AllHandler(kv KV) func(context.Context, mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	return func(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
		entries, err := kv.All(opsFrom(req))
		if err != nil {
			return toolError(err), nil
		}
		return mcp.NewToolResultText(formatEntries(entries)), nil
	}
}
