package logger

import (
	"bytes"
	"io"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLevels(t *testing.T) {
	var buf bytes.Buffer
	SetOutput(&buf)
	t.Cleanup(func() { SetOutput(io.Discard) })

	Infof("opened %s", "db")
	Warnf("tick failed: %d", 3)
	Errorf("boom")
	Debugf("cache size %d", 7)

	out := buf.String()
	assert.Contains(t, out, "[INFO] opened db")
	assert.Contains(t, out, "[WARN] tick failed: 3")
	assert.Contains(t, out, "[ERROR] boom")
	assert.Contains(t, out, "[VERBOSE] cache size 7")
}

func TestConsoleWithoutTerminal(t *testing.T) {
	SetOutput(io.Discard)
	var buf bytes.Buffer
	InitConsole(&buf)
	t.Cleanup(func() { InitConsole(io.Discard) })

	Warnf("careful")
	assert.Contains(t, buf.String(), "[WARN] careful")
	assert.NotContains(t, buf.String(), "\033[")
}

func TestTagColors(t *testing.T) {
	mu.Lock()
	prev := colorize
	colorize = true
	mu.Unlock()
	t.Cleanup(func() {
		mu.Lock()
		colorize = prev
		mu.Unlock()
	})

	assert.Equal(t, yellow+"[WARN]"+reset, tag("WARN"))
	assert.Equal(t, red+"[ERROR]"+reset, tag("ERROR"))
	assert.Equal(t, magenta+"[VERBOSE]"+reset, tag("VERBOSE"))
}

func TestInitWritesFile(t *testing.T) {
	require.NoError(t, Close())
	mu.Lock()
	isInitialized = false
	mu.Unlock()
	t.Cleanup(func() {
		_ = Close()
		SetOutput(io.Discard)
	})

	path := filepath.Join(t.TempDir(), "logs", "quick-kv.log")
	require.NoError(t, Init(path))
	Infof("hello %s", "file")

	b, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Contains(t, string(b), "[INFO] hello file")
}
