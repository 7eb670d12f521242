package tools

import (
	"strings"

	"github.com/mark3labs/mcp-go/mcp"
	"github.com/mark3labs/mcp-go/server"

	"github.com/leonardcser/quick-kv/internal/logger"
)

// multiline joins lines with newlines for tool descriptions.
func multiline(lines ...string) string { return strings.Join(lines, "\n") }

func tableOption() mcp.ToolOption {
	return mcp.WithString("table", mcp.Description("Optional table to target instead of the daemon's default table"))
}

// Register adds every quick-kv tool to s.
func Register(s *server.MCPServer, kv KV) {
	keyOption := mcp.WithString("key", mcp.Required(), mcp.Description("Key in dot notation, e.g. user.profile.name"))

	s.AddTool(mcp.NewTool("kv-get",
		mcp.WithDescription(multiline(
			"Reads the value stored at a key and returns it as JSON",
			"\nUsage notes:",
			"- Missing keys return null",
			"- Reads may be served from the daemon's in-memory cache",
		)),
		keyOption,
		tableOption(),
	), guard(GetHandler(kv)))

	s.AddTool(mcp.NewTool("kv-has",
		mcp.WithDescription("Reports whether a key exists"),
		keyOption,
		tableOption(),
	), guard(HasHandler(kv)))

	s.AddTool(mcp.NewTool("kv-all",
		mcp.WithDescription("Lists every entry of a table, one `id = json` line per entry, read from storage"),
		tableOption(),
	), guard(AllHandler(kv)))

	s.AddTool(mcp.NewTool("kv-set",
		mcp.WithDescription(multiline(
			"Stores a value at a key",
			"\nUsage notes:",
			"- The value is parsed as JSON; text that is not JSON is stored as a string",
			"- Dotted keys create nested objects as needed",
			`- Binary data is written as {"$bytes": "<base64>"}`,
		)),
		keyOption,
		mcp.WithString("value", mcp.Required(), mcp.Description("JSON value to store")),
		tableOption(),
	), guard(SetHandler(kv)))

	s.AddTool(mcp.NewTool("kv-delete",
		mcp.WithDescription("Deletes a key"),
		keyOption,
		tableOption(),
	), guard(DeleteHandler(kv)))

	s.AddTool(mcp.NewTool("kv-delete-all",
		mcp.WithDescription("Deletes every entry of the default table. Requires confirm=true"),
		mcp.WithBoolean("confirm", mcp.Required(), mcp.Description("Must be true")),
	), guard(DeleteAllHandler(kv)))

	s.AddTool(mcp.NewTool("kv-add",
		mcp.WithDescription("Adds a number to the value at a key and returns the result. Missing keys count as 0"),
		keyOption,
		mcp.WithNumber("delta", mcp.Required(), mcp.Description("Amount to add")),
		tableOption(),
	), guard(ArithmeticHandler(kv, false)))

	s.AddTool(mcp.NewTool("kv-subtract",
		mcp.WithDescription("Subtracts a number from the value at a key and returns the result. Missing keys count as 0"),
		keyOption,
		mcp.WithNumber("delta", mcp.Required(), mcp.Description("Amount to subtract")),
		tableOption(),
	), guard(ArithmeticHandler(kv, true)))

	s.AddTool(mcp.NewTool("kv-push",
		mcp.WithDescription("Appends a JSON value to the list at a key and returns the updated list"),
		keyOption,
		mcp.WithString("value", mcp.Required(), mcp.Description("JSON value to append")),
		tableOption(),
	), guard(PushHandler(kv)))

	s.AddTool(mcp.NewTool("kv-expiry",
		mcp.WithDescription(multiline(
			"Schedules an entry for deletion by storing <key>.expiry as a Unix timestamp",
			"\nUsage notes:",
			`- duration is a JSON object such as {"minutes": 10} or {"d": 2, "h": 3}`,
			"- Units: y, M, w, d, h, m, s, ms or their long names",
			"- Expired entries are removed by a background sweep every few seconds",
		)),
		keyOption,
		mcp.WithString("duration", mcp.Required(), mcp.Description("JSON duration object")),
	), guard(ExpiryHandler(kv)))

	s.AddTool(mcp.NewTool("kv-cache",
		mcp.WithDescription("Reports the size of the daemon's read cache, or clears or rebuilds it"),
		mcp.WithString("action", mcp.Enum("size", "clear", "recache"), mcp.Description("size (default), clear or recache")),
	), guard(CacheHandler(kv)))

	s.AddTool(mcp.NewTool("kv-backup",
		mcp.WithDescription("Writes a consistent copy of the database file"),
		mcp.WithString("name", mcp.Description("Backup file name without extension; defaults to backup-<day>-<month>-<year>")),
		mcp.WithString("path", mcp.Description("Destination directory; defaults to ./")),
	), guard(BackupHandler(kv)))

	logger.Infof("Registered quick-kv tools")
}
