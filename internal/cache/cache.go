package cache

import (
	"context"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"github.com/leonardcser/quick-kv/internal/logger"
	"github.com/leonardcser/quick-kv/internal/store"
	"github.com/leonardcser/quick-kv/internal/value"
)

// DB fronts a Backend with an optional in-memory read cache and runs two
// background timers: cache eviction and expiry sweep.
// It is safe for concurrent use by multiple goroutines.
type DB struct {
	backend Backend
	cfg     Config
	table   string

	mu    sync.RWMutex
	cache map[string]value.Value
	// writes orders cached writes and cache fills so that the cache never
	// ends up holding an older value than the backend. Taken before mu.
	writes sync.Mutex

	ctx       context.Context
	cancel    context.CancelFunc
	waitGroup sync.WaitGroup
	once      sync.Once
	closeErr  error

	now func() time.Time
}

// Open creates the storage directory if needed, opens the bbolt file at
// cfg.StoragePath and returns a DB over it.
func Open(cfg Config) (*DB, error) {
	cfg = cfg.withDefaults()
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	if err := ensureParentDir(cfg.StoragePath); err != nil {
		return nil, err
	}
	st, err := store.Open(cfg.StoragePath, store.Options{Table: cfg.TableName})
	if err != nil {
		return nil, err
	}
	db, err := New(st, cfg)
	if err != nil {
		_ = st.Close()
		return nil, err
	}
	return db, nil
}

// New returns a DB over an already opened backend. When caching is enabled
// the cache is filled from a full scan before the timers start.
func New(backend Backend, cfg Config) (*DB, error) {
	return newDB(backend, cfg, time.Now)
}

func newDB(backend Backend, cfg Config, now func() time.Time) (*DB, error) {
	cfg = cfg.withDefaults()
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	table := cfg.TableName
	if table == "" {
		table = store.DefaultTable
	}
	ctx, cancel := context.WithCancel(context.Background())
	d := &DB{
		backend: backend,
		cfg:     cfg,
		table:   table,
		cache:   make(map[string]value.Value),
		ctx:     ctx,
		cancel:  cancel,
		now:     now,
	}
	d.debugf("database: %s (table %s)", cfg.StoragePath, table)
	d.debugf("cache: %t, evictOnLimit: %t, maxCacheEntries: %d", cfg.CacheEnabled, cfg.EvictOnLimit, cfg.MaxCacheEntries)
	d.debugf("evictionInterval: %s, expirySweepInterval: %s", cfg.EvictionInterval, cfg.ExpirySweepInterval)
	if cfg.CacheEnabled {
		if err := d.fill(); err != nil {
			cancel()
			return nil, err
		}
		d.debugf("current cache size: %d", len(d.cache))
	}
	d.start()
	return d, nil
}

func (d *DB) debugf(format string, args ...any) {
	if d.cfg.Verbose {
		logger.Debugf(format, args...)
	}
}

func mergeOps(ops []store.Ops) store.Ops {
	if len(ops) == 0 {
		return store.Ops{}
	}
	return ops[0]
}

// cached reports whether a call with ops goes through the cache. Calls that
// target another table bypass it.
func (d *DB) cached(ops store.Ops) bool {
	return d.cfg.CacheEnabled && (ops.Table == "" || ops.Table == d.table)
}

// invalidateLocked drops key's entry and every cached key sharing its ID,
// since a write to "a.b" changes what "a" and "a.c" read.
func (d *DB) invalidateLocked(key string) {
	id, _ := value.SplitKey(key)
	delete(d.cache, id)
	prefix := id + "."
	for k := range d.cache {
		if strings.HasPrefix(k, prefix) {
			delete(d.cache, k)
		}
	}
}

// lockWrites takes the write lock for calls that touch the cache and
// returns its release.
func (d *DB) lockWrites(ops store.Ops) func() {
	if !d.cached(ops) {
		return func() {}
	}
	d.writes.Lock()
	return d.writes.Unlock
}

func (d *DB) remember(key string, v value.Value) {
	d.mu.Lock()
	d.invalidateLocked(key)
	d.cache[key] = v
	d.mu.Unlock()
}

func (d *DB) forget(key string) {
	d.mu.Lock()
	d.invalidateLocked(key)
	d.mu.Unlock()
}

func (d *DB) lookup(key string) (value.Value, bool) {
	d.mu.RLock()
	defer d.mu.RUnlock()
	v, ok := d.cache[key]
	return v, ok
}

// Get returns the cached value when present, the backend value otherwise.
// A miss does not fill the cache. Missing keys yield the null value.
func (d *DB) Get(key string, ops ...store.Ops) (value.Value, error) {
	o := mergeOps(ops)
	if d.cached(o) {
		if v, ok := d.lookup(key); ok {
			return v, nil
		}
	}
	v, _, err := d.backend.Get(key, o)
	if err != nil {
		return value.Null(), err
	}
	return v, nil
}

// Has uses the same lookup order as Get.
func (d *DB) Has(key string, ops ...store.Ops) (bool, error) {
	o := mergeOps(ops)
	if d.cached(o) {
		if _, ok := d.lookup(key); ok {
			return true, nil
		}
	}
	return d.backend.Has(key, o)
}

// Set writes v to the backend and, once that succeeds, to the cache. The
// two writes are not atomic.
func (d *DB) Set(key string, v value.Value, ops ...store.Ops) error {
	o := mergeOps(ops)
	unlock := d.lockWrites(o)
	defer unlock()
	if err := d.backend.Set(key, v, o); err != nil {
		return err
	}
	if d.cached(o) {
		d.remember(key, v)
	}
	return nil
}

func (d *DB) Delete(key string, ops ...store.Ops) error {
	o := mergeOps(ops)
	unlock := d.lockWrites(o)
	defer unlock()
	if d.cached(o) {
		d.forget(key)
	}
	return d.backend.Delete(key, o)
}

// DeleteAll deletes every entry of the table one by one.
func (d *DB) DeleteAll() error {
	entries, err := d.backend.All(store.Ops{})
	if err != nil {
		return err
	}
	for _, e := range entries {
		if err := d.Delete(e.ID); err != nil {
			return err
		}
	}
	return nil
}

// Add lets the backend add delta atomically, then caches the backend's
// result rather than a locally computed sum.
func (d *DB) Add(key string, delta float64, ops ...store.Ops) (float64, error) {
	o := mergeOps(ops)
	unlock := d.lockWrites(o)
	defer unlock()
	n, err := d.backend.Add(key, delta, o)
	if err != nil {
		if d.cached(o) {
			d.forget(key)
		}
		return 0, err
	}
	if d.cached(o) {
		d.remember(key, value.Number(n))
	}
	return n, nil
}

// Subtract is the counterpart of Add.
func (d *DB) Subtract(key string, delta float64, ops ...store.Ops) (float64, error) {
	o := mergeOps(ops)
	unlock := d.lockWrites(o)
	defer unlock()
	n, err := d.backend.Subtract(key, delta, o)
	if err != nil {
		if d.cached(o) {
			d.forget(key)
		}
		return 0, err
	}
	if d.cached(o) {
		d.remember(key, value.Number(n))
	}
	return n, nil
}

// Push appends v to the list at key and caches the list the backend ends
// up holding.
func (d *DB) Push(key string, v value.Value, ops ...store.Ops) (value.Value, error) {
	o := mergeOps(ops)
	unlock := d.lockWrites(o)
	defer unlock()
	list, err := d.backend.Push(key, v, o)
	if err != nil {
		if d.cached(o) {
			d.forget(key)
		}
		return value.Null(), err
	}
	if d.cached(o) {
		d.remember(key, list)
	}
	return list, nil
}

// All lists the table straight from the backend.
func (d *DB) All(ops ...store.Ops) ([]store.Entry, error) {
	return d.backend.All(mergeOps(ops))
}

// ExpirySet stores now+spec as Unix seconds at key+".expiry" and returns
// the timestamp. spec must be a structured duration, see ParseDurationSpec.
func (d *DB) ExpirySet(key string, spec any) (int64, error) {
	dur, err := ParseDurationSpec(spec)
	if err != nil {
		return 0, err
	}
	at := dur.AddTo(d.now()).Unix()
	if err := d.Set(key+"."+ExpiryField, value.Number(float64(at))); err != nil {
		return 0, err
	}
	return at, nil
}

// ClearCache empties the cache.
func (d *DB) ClearCache() {
	if !d.cfg.CacheEnabled {
		d.debugf("did not set caching")
		return
	}
	d.mu.Lock()
	clear(d.cache)
	d.mu.Unlock()
}

// Recache discards the cache and rebuilds it from a full scan. It costs a
// read of the whole table; do not call it in a loop.
func (d *DB) Recache() error {
	if !d.cfg.CacheEnabled {
		d.debugf("did not set caching")
		return nil
	}
	if err := d.fill(); err != nil {
		return err
	}
	d.debugf("recaching complete")
	return nil
}

// fill replaces the cache with a full scan. Cached writes wait for it, so
// a write either lands in the scan or is applied on top of it.
func (d *DB) fill() error {
	d.writes.Lock()
	defer d.writes.Unlock()
	entries, err := d.backend.All(store.Ops{})
	if err != nil {
		return err
	}
	fresh := make(map[string]value.Value, len(entries))
	for _, e := range entries {
		d.debugf("caching: %s = %s", e.ID, e.Data)
		fresh[e.ID] = e.Data
	}
	d.mu.Lock()
	d.cache = fresh
	d.mu.Unlock()
	return nil
}

// CacheSize returns the number of cached keys, and false when caching is
// disabled.
func (d *DB) CacheSize() (int, bool) {
	if !d.cfg.CacheEnabled {
		return 0, false
	}
	d.mu.RLock()
	defer d.mu.RUnlock()
	return len(d.cache), true
}

// Close stops both timers, waits for a running tick to finish and closes
// the backend. Further calls return whatever the closed backend returns.
func (d *DB) Close() error {
	d.once.Do(func() {
		d.cancel()
		d.waitGroup.Wait()
		d.closeErr = d.backend.Close()
		d.debugf("closed %s", d.cfg.StoragePath)
	})
	return d.closeErr
}

func ensureParentDir(path string) error {
	dir := filepath.Dir(path)
	if dir == "." || dir == "" {
		return nil
	}
	return os.MkdirAll(dir, 0o755)
}
