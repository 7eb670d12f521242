package tools

import (
	"context"
	"fmt"

	"github.com/mark3labs/mcp-go/mcp"

	"github.com/leonardcser/quick-kv/internal/cache"
)

// CacheHandler returns the MCP tool handler for the "kv-cache" tool, which
// reports, clears or rebuilds the daemon's read cache.
func CacheHandler(kv KV) func(context.Context, mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	return func(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
		action := req.GetString("action", "size")
		switch action {
		case "clear":
			if err := kv.ClearCache(); err != nil {
				return toolError(err), nil
			}
		case "recache":
			if err := kv.Recache(); err != nil {
				return toolError(err), nil
			}
		case "size":
		default:
			return mcp.NewToolResultError(fmt.Sprintf("unknown action %q, want size, clear or recache", action)), nil
		}
		n, enabled, err := kv.CacheSize()
		if err != nil {
			return toolError(err), nil
		}
		if !enabled {
			return mcp.NewToolResultText("Caching is disabled."), nil
		}
		return mcp.NewToolResultText(fmt.Sprintf("Cache size: %d", n)), nil
	}
}

// BackupHandler returns the MCP tool handler for the "kv-backup" tool.
func BackupHandler(kv KV) func(context.Context, mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	return func(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
		path, err := kv.Backup(cache.BackupOptions{
			Name: req.GetString("name", ""),
			Path: req.GetString("path", ""),
		})
		if err != nil {
			return toolError(err), nil
		}
		return mcp.NewToolResultText("Backed up to " + path), nil
	}
}
