package store

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/leonardcser/quick-kv/internal/value"
)

func openTest(t *testing.T, opts Options) *Store {
	t.Helper()
	s, err := Open(filepath.Join(t.TempDir(), "test.db"), opts)
	require.NoError(t, err)
	t.Cleanup(func() { s.Close() })
	return s
}

func TestSetGet(t *testing.T) {
	s := openTest(t, Options{})
	assert.Equal(t, DefaultTable, s.Table())

	v, found, err := s.Get("missing", Ops{})
	require.NoError(t, err)
	assert.False(t, found)
	assert.True(t, v.IsNull())

	require.NoError(t, s.Set("a", value.String("hello"), Ops{}))
	v, found, err = s.Get("a", Ops{})
	require.NoError(t, err)
	assert.True(t, found)
	assert.True(t, v.Equal(value.String("hello")))

	ok, err := s.Has("a", Ops{})
	require.NoError(t, err)
	assert.True(t, ok)
}

func TestEmptyKey(t *testing.T) {
	s := openTest(t, Options{})
	_, _, err := s.Get("", Ops{})
	assert.ErrorIs(t, err, ErrEmptyKey)
	assert.ErrorIs(t, s.Set("", value.Null(), Ops{}), ErrEmptyKey)
}

func TestDotNotation(t *testing.T) {
	s := openTest(t, Options{})
	require.NoError(t, s.Set("user.profile.name", value.String("ada"), Ops{}))
	require.NoError(t, s.Set("user.profile.age", value.Number(36), Ops{}))

	v, found, err := s.Get("user.profile.name", Ops{})
	require.NoError(t, err)
	require.True(t, found)
	assert.True(t, v.Equal(value.String("ada")))

	root, found, err := s.Get("user", Ops{})
	require.NoError(t, err)
	require.True(t, found)
	assert.Equal(t, map[string]any{"profile": map[string]any{"name": "ada", "age": 36.0}}, root.Interface())

	require.NoError(t, s.Delete("user.profile.name", Ops{}))
	_, found, err = s.Get("user.profile.name", Ops{})
	require.NoError(t, err)
	assert.False(t, found)
	_, found, err = s.Get("user.profile.age", Ops{})
	require.NoError(t, err)
	assert.True(t, found)

	require.NoError(t, s.Delete("user", Ops{}))
	ok, err := s.Has("user", Ops{})
	require.NoError(t, err)
	assert.False(t, ok)

	// deleting something that is not there is fine
	require.NoError(t, s.Delete("user.nope", Ops{}))
	require.NoError(t, s.Delete("nope", Ops{}))
}

func TestAddSubtract(t *testing.T) {
	s := openTest(t, Options{})
	n, err := s.Add("score", 5, Ops{})
	require.NoError(t, err)
	assert.Equal(t, 5.0, n)
	n, err = s.Add("score", 5, Ops{})
	require.NoError(t, err)
	assert.Equal(t, 10.0, n)
	n, err = s.Subtract("score", 3, Ops{})
	require.NoError(t, err)
	assert.Equal(t, 7.0, n)

	n, err = s.Add("stats.hits", 1, Ops{})
	require.NoError(t, err)
	assert.Equal(t, 1.0, n)

	require.NoError(t, s.Set("name", value.String("x"), Ops{}))
	_, err = s.Add("name", 1, Ops{})
	assert.ErrorIs(t, err, ErrNotNumber)
	assert.Contains(t, err.Error(), `"name" holds string`)
}

func TestPush(t *testing.T) {
	s := openTest(t, Options{})
	list, err := s.Push("items", value.String("a"), Ops{})
	require.NoError(t, err)
	assert.Equal(t, []any{"a"}, list.Interface())
	list, err = s.Push("items", value.Number(2), Ops{})
	require.NoError(t, err)
	assert.Equal(t, []any{"a", 2.0}, list.Interface())

	stored, _, err := s.Get("items", Ops{})
	require.NoError(t, err)
	assert.True(t, stored.Equal(list))

	require.NoError(t, s.Set("scalar", value.Number(1), Ops{}))
	_, err = s.Push("scalar", value.Null(), Ops{})
	assert.ErrorIs(t, err, ErrNotList)
	assert.Contains(t, err.Error(), `"scalar" holds number`)
}

func TestAllOrdered(t *testing.T) {
	s := openTest(t, Options{})
	require.NoError(t, s.Set("b", value.Number(2), Ops{}))
	require.NoError(t, s.Set("a", value.Number(1), Ops{}))
	require.NoError(t, s.Set("c.d", value.Bool(true), Ops{}))

	entries, err := s.All(Ops{})
	require.NoError(t, err)
	require.Len(t, entries, 3)
	assert.Equal(t, "a", entries[0].ID)
	assert.Equal(t, "b", entries[1].ID)
	assert.Equal(t, "c", entries[2].ID)
	assert.Equal(t, map[string]any{"d": true}, entries[2].Data.Interface())
}

func TestTables(t *testing.T) {
	s := openTest(t, Options{Table: "users"})
	assert.Equal(t, "users", s.Table())
	require.NoError(t, s.Set("a", value.Number(1), Ops{}))
	require.NoError(t, s.Set("a", value.Number(2), Ops{Table: "other"}))

	v, _, err := s.Get("a", Ops{})
	require.NoError(t, err)
	assert.True(t, v.Equal(value.Number(1)))
	v, _, err = s.Get("a", Ops{Table: "other"})
	require.NoError(t, err)
	assert.True(t, v.Equal(value.Number(2)))

	// reading a table that was never written is empty, not an error
	entries, err := s.All(Ops{Table: "ghost"})
	require.NoError(t, err)
	assert.Empty(t, entries)
}

func TestPersistsAcrossOpen(t *testing.T) {
	path := filepath.Join(t.TempDir(), "persist.db")
	s, err := Open(path, Options{})
	require.NoError(t, err)
	require.NoError(t, s.Set("k", value.String("v"), Ops{}))
	require.NoError(t, s.Close())

	s, err = Open(path, Options{})
	require.NoError(t, err)
	defer s.Close()
	v, found, err := s.Get("k", Ops{})
	require.NoError(t, err)
	assert.True(t, found)
	assert.True(t, v.Equal(value.String("v")))
}

func TestBackup(t *testing.T) {
	s := openTest(t, Options{})
	require.NoError(t, s.Set("k", value.String("v"), Ops{}))

	dest := filepath.Join(t.TempDir(), "nested", "snapshot")
	var calls int
	var lastRemaining int64 = -1
	require.NoError(t, s.Backup(dest, func(total, remaining int64) {
		calls++
		lastRemaining = remaining
	}))
	assert.Greater(t, calls, 0)
	assert.Equal(t, int64(0), lastRemaining)

	_, err := os.Stat(dest + BackupExt)
	require.NoError(t, err)

	copyStore, err := Open(dest+BackupExt, Options{})
	require.NoError(t, err)
	defer copyStore.Close()
	v, found, err := copyStore.Get("k", Ops{})
	require.NoError(t, err)
	assert.True(t, found)
	assert.True(t, v.Equal(value.String("v")))
}

func TestClosed(t *testing.T) {
	s, err := Open(filepath.Join(t.TempDir(), "closed.db"), Options{})
	require.NoError(t, err)
	require.NoError(t, s.Close())
	_, _, err = s.Get("k", Ops{})
	assert.Error(t, err)
}
