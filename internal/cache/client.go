package cache

import (
	"encoding/json"
	"net"
	"time"

	"github.com/cockroachdb/errors"

	"github.com/leonardcser/quick-kv/internal/store"
	"github.com/leonardcser/quick-kv/internal/value"
)

// Client talks to a daemon serving a DB over a Unix socket.
type Client struct {
	socketPath string
	timeout    time.Duration
}

func NewClient(socketPath string) *Client {
	return &Client{socketPath: socketPath, timeout: 500 * time.Millisecond}
}

func (c *Client) withConn(fn func(conn net.Conn) error) error {
	conn, err := net.DialTimeout("unix", c.socketPath, c.timeout)
	if err != nil {
		return err
	}
	defer conn.Close()
	return fn(conn)
}

func (c *Client) do(req Request) (Response, error) {
	var resp Response
	err := c.withConn(func(conn net.Conn) error {
		if err := json.NewEncoder(conn).Encode(&req); err != nil {
			return err
		}
		if err := json.NewDecoder(conn).Decode(&resp); err != nil {
			return err
		}
		if !resp.OK {
			if resp.Kind == KindValidation {
				return errors.Mark(errors.New(resp.Error), ErrValidation)
			}
			return errors.New(resp.Error)
		}
		return nil
	})
	return resp, err
}

func table(ops []store.Ops) string {
	return mergeOps(ops).Table
}

func (r Response) value() value.Value {
	if r.Value == nil {
		return value.Null()
	}
	return *r.Value
}

func (c *Client) Get(key string, ops ...store.Ops) (value.Value, error) {
	resp, err := c.do(Request{Op: OpGet, Key: key, Table: table(ops)})
	if err != nil {
		return value.Null(), err
	}
	return resp.value(), nil
}

func (c *Client) Set(key string, v value.Value, ops ...store.Ops) error {
	_, err := c.do(Request{Op: OpSet, Key: key, Value: &v, Table: table(ops)})
	return err
}

func (c *Client) Has(key string, ops ...store.Ops) (bool, error) {
	resp, err := c.do(Request{Op: OpHas, Key: key, Table: table(ops)})
	return resp.Found, err
}

func (c *Client) Delete(key string, ops ...store.Ops) error {
	_, err := c.do(Request{Op: OpDelete, Key: key, Table: table(ops)})
	return err
}

func (c *Client) DeleteAll() error {
	_, err := c.do(Request{Op: OpDeleteAll})
	return err
}

func (c *Client) Add(key string, delta float64, ops ...store.Ops) (float64, error) {
	resp, err := c.do(Request{Op: OpAdd, Key: key, Delta: delta, Table: table(ops)})
	return resp.Number, err
}

func (c *Client) Subtract(key string, delta float64, ops ...store.Ops) (float64, error) {
	resp, err := c.do(Request{Op: OpSubtract, Key: key, Delta: delta, Table: table(ops)})
	return resp.Number, err
}

func (c *Client) Push(key string, v value.Value, ops ...store.Ops) (value.Value, error) {
	resp, err := c.do(Request{Op: OpPush, Key: key, Value: &v, Table: table(ops)})
	if err != nil {
		return value.Null(), err
	}
	return resp.value(), nil
}

func (c *Client) All(ops ...store.Ops) ([]store.Entry, error) {
	resp, err := c.do(Request{Op: OpAll, Table: table(ops)})
	if err != nil {
		return nil, err
	}
	if resp.Entries == nil {
		return []store.Entry{}, nil
	}
	return resp.Entries, nil
}

// ExpirySet sends spec as JSON; the daemon validates it.
func (c *Client) ExpirySet(key string, spec any) (int64, error) {
	raw, err := json.Marshal(spec)
	if err != nil {
		return 0, errors.Mark(errors.Wrap(err, "encode expiry"), ErrValidation)
	}
	resp, err := c.do(Request{Op: OpExpirySet, Key: key, Expiry: raw})
	return int64(resp.Number), err
}

func (c *Client) ClearCache() error {
	_, err := c.do(Request{Op: OpClearCache})
	return err
}

func (c *Client) Recache() error {
	_, err := c.do(Request{Op: OpRecache})
	return err
}

func (c *Client) CacheSize() (int, bool, error) {
	resp, err := c.do(Request{Op: OpCacheSize})
	return int(resp.Number), resp.Enabled, err
}

func (c *Client) Backup(opts BackupOptions) (string, error) {
	resp, err := c.do(Request{Op: OpBackup, Backup: &opts})
	return resp.Path, err
}
