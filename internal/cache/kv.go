package cache

import (
	"github.com/leonardcser/quick-kv/internal/store"
	"github.com/leonardcser/quick-kv/internal/value"
)

// Backend defines the persistence contract the facade relies on. Keys use
// dot notation into nested values.
// Implementations must be safe for concurrent use by multiple goroutines.
type Backend interface {
	Get(key string, ops store.Ops) (value.Value, bool, error)
	Set(key string, v value.Value, ops store.Ops) error
	Has(key string, ops store.Ops) (bool, error)
	Delete(key string, ops store.Ops) error
	Add(key string, delta float64, ops store.Ops) (float64, error)
	Subtract(key string, delta float64, ops store.Ops) (float64, error)
	Push(key string, v value.Value, ops store.Ops) (value.Value, error)
	All(ops store.Ops) ([]store.Entry, error)
	Backup(dest string, progress store.Progress) error
	Close() error
}

var _ Backend = (*store.Store)(nil)
