package cache

import (
	"time"

	"github.com/leonardcser/quick-kv/internal/logger"
	"github.com/leonardcser/quick-kv/internal/store"
)

const (
	taskEviction = "cache-eviction"
	taskExpiry   = "expiry-sweep"
)

func (d *DB) start() {
	d.waitGroup.Add(2)
	go d.every(taskEviction, d.cfg.EvictionInterval, d.evictTick)
	go d.every(taskExpiry, d.cfg.ExpirySweepInterval, d.sweepTick)
}

// every runs tick on a fixed period until the DB is closed. A failing tick
// is logged and reported, never fatal.
func (d *DB) every(task string, period time.Duration, tick func() error) {
	defer d.waitGroup.Done()
	ticker := time.NewTicker(period)
	defer ticker.Stop()
	for {
		select {
		case <-d.ctx.Done():
			return
		case <-ticker.C:
			if d.ctx.Err() != nil {
				return
			}
			if err := tick(); err != nil {
				logger.Warnf("%s tick failed: %v", task, err)
				if d.cfg.OnTickError != nil {
					d.cfg.OnTickError(task, err)
				}
			}
		}
	}
}

// evictTick clears the whole cache once it reaches MaxCacheEntries.
func (d *DB) evictTick() error {
	if !d.cfg.CacheEnabled || !d.cfg.EvictOnLimit {
		return nil
	}
	d.mu.Lock()
	size := len(d.cache)
	if size < d.cfg.MaxCacheEntries {
		d.mu.Unlock()
		return nil
	}
	clear(d.cache)
	d.mu.Unlock()
	d.debugf("cleared cache of %d entries", size)
	return nil
}

// sweepTick deletes every entry whose expiry field is in the past.
func (d *DB) sweepTick() error {
	entries, err := d.backend.All(store.Ops{})
	if err != nil {
		return err
	}
	now := d.now().Unix()
	for _, e := range entries {
		exp, ok := e.Data.Field(ExpiryField)
		if !ok {
			continue
		}
		at, ok := exp.AsNumber()
		if !ok || at >= float64(now) {
			continue
		}
		if err := d.Delete(e.ID); err != nil {
			return err
		}
		d.debugf("expired %s", e.ID)
	}
	return nil
}
