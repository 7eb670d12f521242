package cache

import (
	"context"
	"encoding/json"
	"net"

	"github.com/cockroachdb/errors"

	"github.com/leonardcser/quick-kv/internal/logger"
	"github.com/leonardcser/quick-kv/internal/store"
	"github.com/leonardcser/quick-kv/internal/value"
)

// Serve accepts connections on l and answers protocol requests against db
// until ctx is cancelled or l is closed.
func Serve(ctx context.Context, l net.Listener, db *DB) error {
	go func() {
		<-ctx.Done()
		_ = l.Close()
	}()
	for {
		conn, err := l.Accept()
		if err != nil {
			if ctx.Err() != nil || errors.Is(err, net.ErrClosed) {
				return nil
			}
			logger.Warnf("accept failed: %v", err)
			continue
		}
		go handleConn(conn, db)
	}
}

func handleConn(conn net.Conn, db *DB) {
	defer conn.Close()
	dec := json.NewDecoder(conn)
	enc := json.NewEncoder(conn)
	for {
		var req Request
		if err := dec.Decode(&req); err != nil {
			return
		}
		if err := enc.Encode(db.Handle(req)); err != nil {
			logger.Warnf("write response for %s failed: %v", req.Op, err)
			return
		}
	}
}

// Handle executes one protocol request.
func (d *DB) Handle(req Request) Response {
	ops := store.Ops{Table: req.Table}
	switch req.Op {
	case OpGet:
		v, err := d.Get(req.Key, ops)
		if err != nil {
			return failure(err)
		}
		return Response{OK: true, Value: &v}
	case OpSet:
		if err := d.Set(req.Key, requestValue(req), ops); err != nil {
			return failure(err)
		}
		return Response{OK: true}
	case OpHas:
		found, err := d.Has(req.Key, ops)
		if err != nil {
			return failure(err)
		}
		return Response{OK: true, Found: found}
	case OpDelete:
		if err := d.Delete(req.Key, ops); err != nil {
			return failure(err)
		}
		return Response{OK: true}
	case OpDeleteAll:
		if err := d.DeleteAll(); err != nil {
			return failure(err)
		}
		return Response{OK: true}
	case OpAdd, OpSubtract:
		var (
			n   float64
			err error
		)
		if req.Op == OpAdd {
			n, err = d.Add(req.Key, req.Delta, ops)
		} else {
			n, err = d.Subtract(req.Key, req.Delta, ops)
		}
		if err != nil {
			return failure(err)
		}
		return Response{OK: true, Number: n}
	case OpPush:
		list, err := d.Push(req.Key, requestValue(req), ops)
		if err != nil {
			return failure(err)
		}
		return Response{OK: true, Value: &list}
	case OpAll:
		entries, err := d.All(ops)
		if err != nil {
			return failure(err)
		}
		return Response{OK: true, Entries: entries}
	case OpExpirySet:
		var spec any
		if len(req.Expiry) > 0 {
			if err := json.Unmarshal(req.Expiry, &spec); err != nil {
				return failure(errors.Mark(errors.Wrap(err, "decode expiry"), ErrValidation))
			}
		}
		at, err := d.ExpirySet(req.Key, spec)
		if err != nil {
			return failure(err)
		}
		return Response{OK: true, Number: float64(at)}
	case OpClearCache:
		d.ClearCache()
		return Response{OK: true}
	case OpRecache:
		if err := d.Recache(); err != nil {
			return failure(err)
		}
		return Response{OK: true}
	case OpCacheSize:
		n, enabled := d.CacheSize()
		return Response{OK: true, Number: float64(n), Enabled: enabled}
	case OpBackup:
		var opts BackupOptions
		if req.Backup != nil {
			opts = *req.Backup
		}
		path, err := d.Backup(opts)
		if err != nil {
			return failure(err)
		}
		return Response{OK: true, Path: path}
	}
	return Response{OK: false, Error: "unknown op " + req.Op}
}

func requestValue(req Request) value.Value {
	if req.Value == nil {
		return value.Null()
	}
	return *req.Value
}

func failure(err error) Response {
	resp := Response{OK: false, Error: err.Error()}
	if errors.Is(err, ErrValidation) {
		resp.Kind = KindValidation
	}
	return resp
}
