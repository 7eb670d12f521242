package cache

import (
	"encoding/json"

	"github.com/leonardcser/quick-kv/internal/store"
	"github.com/leonardcser/quick-kv/internal/value"
)

// Simple JSON protocol for the daemon over a Unix domain socket.
// One request -> one response using json.Encoder/Decoder per connection.

const (
	OpGet        = "get"
	OpSet        = "set"
	OpHas        = "has"
	OpDelete     = "delete"
	OpDeleteAll  = "deleteAll"
	OpAdd        = "add"
	OpSubtract   = "subtract"
	OpPush       = "push"
	OpAll        = "all"
	OpExpirySet  = "expirySet"
	OpClearCache = "clearCache"
	OpRecache    = "recache"
	OpCacheSize  = "cacheSize"
	OpBackup     = "backup"
)

// Error kinds carried in Response.Kind.
const (
	KindValidation = "validation"
)

type Request struct {
	Op    string       `json:"op"`
	Key   string       `json:"key,omitempty"`
	Value *value.Value `json:"value,omitempty"`
	Delta float64      `json:"delta,omitempty"`
	Table string       `json:"table,omitempty"`
	// Expiry is kept raw so that a non-object reaches ParseDurationSpec and
	// fails validation instead of failing to decode.
	Expiry json.RawMessage `json:"expiry,omitempty"`
	Backup *BackupOptions  `json:"backup,omitempty"`
}

type Response struct {
	OK      bool          `json:"ok"`
	Value   *value.Value  `json:"value,omitempty"`
	Number  float64       `json:"number,omitempty"`
	Found   bool          `json:"found,omitempty"`
	Enabled bool          `json:"enabled,omitempty"`
	Entries []store.Entry `json:"entries,omitempty"`
	Path    string        `json:"path,omitempty"`
	Error   string        `json:"error,omitempty"`
	Kind    string        `json:"kind,omitempty"`
}
