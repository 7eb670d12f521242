package tools

import (
	"context"
	"strconv"

	"github.com/cockroachdb/errors"
	"github.com/mark3labs/mcp-go/mcp"
)

// SetHandler returns the MCP tool handler for the "kv-set" tool.
func SetHandler(kv KV) func(context.Context, mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	return func(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
		key, err := req.RequireString("key")
		if err != nil {
			return toolError(err), nil
		}
		v, err := valueArg(req, "value")
		if err != nil {
			return toolError(err), nil
		}
		if err := kv.Set(key, v, opsFrom(req)); err != nil {
			return toolError(err), nil
		}
		return mcp.NewToolResultText("OK"), nil
	}
}

// DeleteHandler returns the MCP tool handler for the "kv-delete" tool.
func DeleteHandler(kv KV) func(context.Context, mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	return func(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
		key, err := req.RequireString("key")
		if err != nil {
			return toolError(err), nil
		}
		if err := kv.Delete(key, opsFrom(req)); err != nil {
			return toolError(err), nil
		}
		return mcp.NewToolResultText("OK"), nil
	}
}

// DeleteAllHandler returns the MCP tool handler for the "kv-delete-all" tool.
// It refuses to run unless confirm is true.
func DeleteAllHandler(kv KV) func(context.Context, mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	return func(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
		if !req.GetBool("confirm", false) {
			return toolError(errors.New("refusing to delete every entry without confirm=true")), nil
		}
		if err := kv.DeleteAll(); err != nil {
			return toolError(err), nil
		}
		return mcp.NewToolResultText("OK"), nil
	}
}

// ArithmeticHandler returns the handler for "kv-add", or "kv-subtract" when
// subtract is true.
func ArithmeticHandler(kv KV, subtract bool) func(context.Context, mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	return func(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
		key, err := req.RequireString("key")
		if err != nil {
			return toolError(err), nil
		}
		delta, err := req.RequireFloat("delta")
		if err != nil {
			return toolError(err), nil
		}
		op := kv.Add
		if subtract {
			op = kv.Subtract
		}
		n, err := op(key, delta, opsFrom(req))
		if err != nil {
			return toolError(err), nil
		}
		return mcp.NewToolResultText(formatNumber(n)), nil
	}
}

// PushHandler returns the MCP tool handler for the "kv-push" tool.
func PushHandler(kv KV) func(context.Context, mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	return func(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
		key, err := req.RequireString("key")
		if err != nil {
			return toolError(err), nil
		}
		v, err := valueArg(req, "value")
		if err != nil {
			return toolError(err), nil
		}
		list, err := kv.Push(key, v, opsFrom(req))
		if err != nil {
			return toolError(err), nil
		}
		return mcp.NewToolResultText(formatValue(list)), nil
	}
}

// ExpiryHandler returns the MCP tool handler for the "kv-expiry" tool. The
// duration argument is a JSON object such as {"minutes": 10}.
func ExpiryHandler(kv KV) func(context.Context, mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	return func(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
		key, err := req.RequireString("key")
		if err != nil {
			return toolError(err), nil
		}
		spec, err := valueArg(req, "duration")
		if err != nil {
			return toolError(err), nil
		}
		at, err := kv.ExpirySet(key, spec.Interface())
		if err != nil {
			return toolError(err), nil
		}
		return mcp.NewToolResultText(strconv.FormatInt(at, 10)), nil
	}
}

