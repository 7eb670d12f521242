package store

import (
	"io"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/cockroachdb/errors"
	bolt "go.etcd.io/bbolt"

	"github.com/leonardcser/quick-kv/internal/value"
)

// DefaultTable is the bucket used when no table name is configured.
const DefaultTable = "json"

// BackupExt is appended to backup destinations.
const BackupExt = ".db"

// Store is a persistent key-value table on top of bbolt. Keys use dot
// notation: the first segment names the entry, the rest address a field
// nested inside the entry's value.
// It is safe for concurrent use by multiple goroutines.
type Store struct {
	db    *bolt.DB
	table []byte
	mu    sync.RWMutex
}

type Options struct {
	// Table is the bucket to use. Defaults to DefaultTable.
	Table string
	// Timeout bounds how long Open waits for the file lock.
	Timeout time.Duration
}

// Ops are per-call options.
type Ops struct {
	// Table overrides the store's table for a single call.
	Table string
}

// Entry is one top-level record.
type Entry struct {
	ID   string      `json:"id"`
	Data value.Value `json:"data"`
}

// Progress reports backup progress in bytes.
type Progress func(total, remaining int64)

var (
	ErrEmptyKey  = errors.New("store: empty key")
	ErrNotNumber = errors.New("store: target is not a number")
	ErrNotList   = errors.New("store: target is not a list")
)

// Open initializes or opens a Store at the given path.
func Open(path string, opts Options) (*Store, error) {
	timeout := opts.Timeout
	if timeout <= 0 {
		timeout = 1 * time.Second
	}
	db, err := bolt.Open(path, 0o600, &bolt.Options{Timeout: timeout})
	if err != nil {
		return nil, err
	}
	table := []byte(DefaultTable)
	if opts.Table != "" {
		table = []byte(opts.Table)
	}
	if err := db.Update(func(tx *bolt.Tx) error {
		_, err := tx.CreateBucketIfNotExists(table)
		return err
	}); err != nil {
		_ = db.Close()
		return nil, err
	}
	return &Store{db: db, table: table}, nil
}

// Table returns the name of the store's default table.
func (s *Store) Table() string { return string(s.table) }

// Close closes the underlying database.
func (s *Store) Close() error {
	if s == nil || s.db == nil {
		return nil
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.db.Close()
}

func (s *Store) bucketName(ops Ops) []byte {
	if ops.Table != "" {
		return []byte(ops.Table)
	}
	return s.table
}

func (s *Store) view(ops Ops, fn func(b *bolt.Bucket) error) error {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.db.View(func(tx *bolt.Tx) error {
		b := tx.Bucket(s.bucketName(ops))
		if b == nil {
			return nil
		}
		return fn(b)
	})
}

func (s *Store) update(ops Ops, fn func(b *bolt.Bucket) error) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.db.Update(func(tx *bolt.Tx) error {
		b, err := tx.CreateBucketIfNotExists(s.bucketName(ops))
		if err != nil {
			return err
		}
		return fn(b)
	})
}

func readEntry(b *bolt.Bucket, id string) (value.Value, bool, error) {
	raw := b.Get([]byte(id))
	if raw == nil {
		return value.Null(), false, nil
	}
	v, err := value.Decode(raw)
	if err != nil {
		return value.Null(), false, errors.Wrapf(err, "store: decode %q", id)
	}
	return v, true, nil
}

func writeEntry(b *bolt.Bucket, id string, v value.Value) error {
	buf, err := value.Encode(v)
	if err != nil {
		return errors.Wrapf(err, "store: encode %q", id)
	}
	return b.Put([]byte(id), buf)
}

// lookup resolves key inside an open bucket.
func lookup(b *bolt.Bucket, key string) (value.Value, bool, error) {
	id, path := value.SplitKey(key)
	root, ok, err := readEntry(b, id)
	if err != nil || !ok {
		return value.Null(), false, err
	}
	v, ok := root.Lookup(path)
	return v, ok, nil
}

// put writes v at key inside an open bucket.
func put(b *bolt.Bucket, key string, v value.Value) error {
	id, path := value.SplitKey(key)
	if len(path) == 0 {
		return writeEntry(b, id, v)
	}
	root, _, err := readEntry(b, id)
	if err != nil {
		return err
	}
	return writeEntry(b, id, root.SetPath(path, v))
}

// Get returns the value at key and whether it exists.
func (s *Store) Get(key string, ops Ops) (value.Value, bool, error) {
	if key == "" {
		return value.Null(), false, ErrEmptyKey
	}
	var (
		out   value.Value
		found bool
	)
	err := s.view(ops, func(b *bolt.Bucket) error {
		var err error
		out, found, err = lookup(b, key)
		return err
	})
	if err != nil {
		return value.Null(), false, err
	}
	return out, found, nil
}

// Has reports whether key exists.
func (s *Store) Has(key string, ops Ops) (bool, error) {
	_, found, err := s.Get(key, ops)
	return found, err
}

// Set stores v at key, creating intermediate maps as needed.
func (s *Store) Set(key string, v value.Value, ops Ops) error {
	if key == "" {
		return ErrEmptyKey
	}
	return s.update(ops, func(b *bolt.Bucket) error {
		return put(b, key, v)
	})
}

// Delete removes key. Deleting a missing key is not an error.
func (s *Store) Delete(key string, ops Ops) error {
	if key == "" {
		return ErrEmptyKey
	}
	return s.update(ops, func(b *bolt.Bucket) error {
		id, path := value.SplitKey(key)
		if len(path) == 0 {
			return b.Delete([]byte(id))
		}
		root, ok, err := readEntry(b, id)
		if err != nil || !ok {
			return err
		}
		updated, removed := root.DeletePath(path)
		if !removed {
			return nil
		}
		return writeEntry(b, id, updated)
	})
}

// Add adds delta to the number at key in a single transaction and returns
// the result. A missing key counts as zero.
func (s *Store) Add(key string, delta float64, ops Ops) (float64, error) {
	if key == "" {
		return 0, ErrEmptyKey
	}
	var result float64
	err := s.update(ops, func(b *bolt.Bucket) error {
		cur, found, err := lookup(b, key)
		if err != nil {
			return err
		}
		var n float64
		if found && !cur.IsNull() {
			var ok bool
			if n, ok = cur.AsNumber(); !ok {
				return errors.Wrapf(ErrNotNumber, "%q holds %s", key, cur.Kind())
			}
		}
		result = n + delta
		return put(b, key, value.Number(result))
	})
	if err != nil {
		return 0, err
	}
	return result, nil
}

// Subtract is Add with the delta negated.
func (s *Store) Subtract(key string, delta float64, ops Ops) (float64, error) {
	return s.Add(key, -delta, ops)
}

// Push appends v to the list at key and returns the updated list. A missing
// key starts a new list.
func (s *Store) Push(key string, v value.Value, ops Ops) (value.Value, error) {
	if key == "" {
		return value.Null(), ErrEmptyKey
	}
	var result value.Value
	err := s.update(ops, func(b *bolt.Bucket) error {
		cur, found, err := lookup(b, key)
		if err != nil {
			return err
		}
		var items []value.Value
		if found && !cur.IsNull() {
			var ok bool
			if items, ok = cur.AsList(); !ok {
				return errors.Wrapf(ErrNotList, "%q holds %s", key, cur.Kind())
			}
		}
		result = value.List(append(items, v)...)
		return put(b, key, result)
	})
	if err != nil {
		return value.Null(), err
	}
	return result, nil
}

// All returns every entry of the table ordered by ID.
func (s *Store) All(ops Ops) ([]Entry, error) {
	out := []Entry{}
	err := s.view(ops, func(b *bolt.Bucket) error {
		return b.ForEach(func(k, raw []byte) error {
			v, err := value.Decode(raw)
			if err != nil {
				return errors.Wrapf(err, "store: decode %q", k)
			}
			out = append(out, Entry{ID: string(k), Data: v})
			return nil
		})
	})
	if err != nil {
		return nil, err
	}
	return out, nil
}

// Backup writes a consistent copy of the whole database to dest+BackupExt.
func (s *Store) Backup(dest string, progress Progress) error {
	path := dest + BackupExt
	if err := ensureParentDir(path); err != nil {
		return err
	}
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.db.View(func(tx *bolt.Tx) error {
		f, err := os.OpenFile(path, os.O_CREATE|os.O_TRUNC|os.O_WRONLY, 0o600)
		if err != nil {
			return err
		}
		var w io.Writer = f
		if progress != nil {
			w = &progressWriter{w: f, total: tx.Size(), fn: progress}
		}
		if _, err := tx.WriteTo(w); err != nil {
			_ = f.Close()
			return err
		}
		if err := f.Sync(); err != nil {
			_ = f.Close()
			return err
		}
		return f.Close()
	})
}

type progressWriter struct {
	w       io.Writer
	total   int64
	written int64
	fn      Progress
}

func (p *progressWriter) Write(b []byte) (int, error) {
	n, err := p.w.Write(b)
	p.written += int64(n)
	remaining := p.total - p.written
	if remaining < 0 {
		remaining = 0
	}
	p.fn(p.total, remaining)
	return n, err
}

func ensureParentDir(path string) error {
	dir := filepath.Dir(path)
	if dir == "." || dir == "" {
		return nil
	}
	return os.MkdirAll(dir, 0o755)
}
