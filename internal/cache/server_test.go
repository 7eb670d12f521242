package cache

import (
	"context"
	"net"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/leonardcser/quick-kv/internal/store"
	"github.com/leonardcser/quick-kv/internal/value"
)

func serveTest(t *testing.T, cfg Config) (*Client, *DB) {
	t.Helper()
	db, _ := openTest(t, cfg)
	sock := filepath.Join(t.TempDir(), "kv.sock")
	l, err := net.Listen("unix", sock)
	require.NoError(t, err)
	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan struct{})
	go func() {
		defer close(done)
		_ = Serve(ctx, l, db)
	}()
	t.Cleanup(func() {
		cancel()
		<-done
	})
	return NewClient(sock), db
}

func TestClientRoundTrip(t *testing.T) {
	c, _ := serveTest(t, Config{CacheEnabled: true})

	require.NoError(t, c.Set("user.name", value.String("ada")))
	v, err := c.Get("user.name")
	require.NoError(t, err)
	assert.True(t, v.Equal(value.String("ada")))

	v, err = c.Get("missing")
	require.NoError(t, err)
	assert.True(t, v.IsNull())

	ok, err := c.Has("user")
	require.NoError(t, err)
	assert.True(t, ok)

	n, err := c.Add("score", 5)
	require.NoError(t, err)
	assert.Equal(t, 5.0, n)
	n, err = c.Subtract("score", 2)
	require.NoError(t, err)
	assert.Equal(t, 3.0, n)

	list, err := c.Push("tags", value.String("x"))
	require.NoError(t, err)
	assert.Equal(t, []any{"x"}, list.Interface())

	entries, err := c.All()
	require.NoError(t, err)
	ids := []string{}
	for _, e := range entries {
		ids = append(ids, e.ID)
	}
	assert.Equal(t, []string{"score", "tags", "user"}, ids)

	size, enabled, err := c.CacheSize()
	require.NoError(t, err)
	assert.True(t, enabled)
	assert.Equal(t, 3, size)

	require.NoError(t, c.ClearCache())
	size, _, err = c.CacheSize()
	require.NoError(t, err)
	assert.Equal(t, 0, size)
	require.NoError(t, c.Recache())
	size, _, err = c.CacheSize()
	require.NoError(t, err)
	assert.Equal(t, 3, size)

	require.NoError(t, c.Delete("tags"))
	ok, err = c.Has("tags")
	require.NoError(t, err)
	assert.False(t, ok)

	require.NoError(t, c.DeleteAll())
	entries, err = c.All()
	require.NoError(t, err)
	assert.Empty(t, entries)
}

func TestClientKeepsBytes(t *testing.T) {
	c, db := serveTest(t, Config{CacheEnabled: true})
	blob := value.Bytes([]byte{1, 2, 3})
	require.NoError(t, c.Set("blob", blob))
	require.NoError(t, c.Set("doc.payload", blob))

	stored, err := db.Get("blob")
	require.NoError(t, err)
	assert.Equal(t, value.KindBytes, stored.Kind())

	got, err := c.Get("blob")
	require.NoError(t, err)
	assert.True(t, got.Equal(blob), "got %s", got)

	list, err := c.Push("blobs", blob)
	require.NoError(t, err)
	assert.True(t, list.Equal(value.List(blob)))

	entries, err := c.All()
	require.NoError(t, err)
	for _, e := range entries {
		if e.ID == "doc" {
			payload, ok := e.Data.Field("payload")
			require.True(t, ok)
			assert.Equal(t, value.KindBytes, payload.Kind())
		}
	}
}

func TestClientTable(t *testing.T) {
	c, db := serveTest(t, Config{})
	require.NoError(t, c.Set("k", value.Number(1), store.Ops{Table: "other"}))
	v, err := db.Get("k", store.Ops{Table: "other"})
	require.NoError(t, err)
	assert.True(t, v.Equal(value.Number(1)))
	v, err = c.Get("k")
	require.NoError(t, err)
	assert.True(t, v.IsNull())
}

func TestClientExpiry(t *testing.T) {
	c, db := serveTest(t, Config{})
	at, err := c.ExpirySet("session", Duration{Seconds: -1})
	require.NoError(t, err)
	assert.NotZero(t, at)
	require.NoError(t, db.sweepTick())
	ok, err := c.Has("session")
	require.NoError(t, err)
	assert.False(t, ok)

	_, err = c.ExpirySet("session", "10m")
	assert.ErrorIs(t, err, ErrValidation)
}

func TestClientErrors(t *testing.T) {
	c, _ := serveTest(t, Config{})
	_, err := c.Backup(BackupOptions{Name: "a:b"})
	assert.ErrorIs(t, err, ErrValidation)

	require.NoError(t, c.Set("s", value.String("x")))
	_, err = c.Add("s", 1)
	require.Error(t, err)
	assert.NotErrorIs(t, err, ErrValidation)
	assert.Contains(t, err.Error(), "not a number")

	size, enabled, err := c.CacheSize()
	require.NoError(t, err)
	assert.False(t, enabled)
	assert.Zero(t, size)
}

func TestClientBackup(t *testing.T) {
	c, _ := serveTest(t, Config{})
	require.NoError(t, c.Set("k", value.Bool(true)))
	dir := t.TempDir()
	path, err := c.Backup(BackupOptions{Name: "nightly", Path: dir + "/"})
	require.NoError(t, err)
	assert.Equal(t, dir+"/nightly", path)
}

func TestHandleUnknownOp(t *testing.T) {
	db, _ := openTest(t, Config{})
	resp := db.Handle(Request{Op: "explode"})
	assert.False(t, resp.OK)
	assert.Contains(t, resp.Error, "unknown op")
}

func TestClientNoDaemon(t *testing.T) {
	c := NewClient(filepath.Join(t.TempDir(), "absent.sock"))
	_, err := c.Get("k")
	assert.Error(t, err)
}
