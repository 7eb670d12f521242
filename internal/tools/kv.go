package tools

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"

	"github.com/mark3labs/mcp-go/mcp"

	"github.com/leonardcser/quick-kv/internal/cache"
	"github.com/leonardcser/quick-kv/internal/store"
	"github.com/leonardcser/quick-kv/internal/value"
)

// KV is the facade surface the tools need. *cache.Client satisfies it.
type KV interface {
	Get(key string, ops ...store.Ops) (value.Value, error)
	Set(key string, v value.Value, ops ...store.Ops) error
	Has(key string, ops ...store.Ops) (bool, error)
	Delete(key string, ops ...store.Ops) error
	DeleteAll() error
	Add(key string, delta float64, ops ...store.Ops) (float64, error)
	Subtract(key string, delta float64, ops ...store.Ops) (float64, error)
	Push(key string, v value.Value, ops ...store.Ops) (value.Value, error)
	All(ops ...store.Ops) ([]store.Entry, error)
	ExpirySet(key string, spec any) (int64, error)
	ClearCache() error
	Recache() error
	CacheSize() (int, bool, error)
	Backup(opts cache.BackupOptions) (string, error)
}

var _ KV = (*cache.Client)(nil)

func opsFrom(req mcp.CallToolRequest) store.Ops {
	return store.Ops{Table: req.GetString("table", "")}
}

// valueArg parses a JSON encoded argument. Text that is not valid JSON is
// stored as a plain string.
func valueArg(req mcp.CallToolRequest, name string) (value.Value, error) {
	raw, err := req.RequireString(name)
	if err != nil {
		return value.Null(), err
	}
	v, err := value.ParseJSON(raw)
	if err != nil {
		return value.String(raw), nil
	}
	return v, nil
}

func formatValue(v value.Value) string {
	b, err := json.Marshal(v)
	if err != nil {
		return v.String()
	}
	return string(b)
}

func formatNumber(n float64) string {
	return formatValue(value.Number(n))
}

// formatEntries renders one "id = json" line per entry.
func formatEntries(entries []store.Entry) string {
	if len(entries) == 0 {
		return "No entries."
	}
	var sb strings.Builder
	for i, e := range entries {
		sb.WriteString(fmt.Sprintf("%s = %s", e.ID, formatValue(e.Data)))
		if i < len(entries)-1 {
			sb.WriteString("\n")
		}
	}
	return sb.String()
}

func toolError(err error) *mcp.CallToolResult {
	return mcp.NewToolResultError(err.Error())
}

type handler = func(context.Context, mcp.CallToolRequest) (*mcp.CallToolResult, error)

// guard answers with a tool error once the request context is done instead
// of calling the daemon.
func guard(h handler) handler {
	return func(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
		if err := ctx.Err(); err != nil {
			return toolError(err), nil
		}
		return h(ctx, req)
	}
}
