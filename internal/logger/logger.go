package logger

import (
	"fmt"
	"io"
	"log"
	"os"
	"path/filepath"
	"sync"

	"github.com/mattn/go-isatty"
)

// Environment variable to configure log file path.
const envLogPath = "QUICK_KV_LOG"

const (
	reset   = "\033[0m"
	red     = "\033[31m"
	green   = "\033[32m"
	yellow  = "\033[33m"
	blue    = "\033[34m"
	magenta = "\033[35m"
)

var (
	mu            sync.Mutex
	std           *log.Logger
	console       *log.Logger
	colorize      bool
	logFile       *os.File
	isInitialized bool
)

// InitFromEnv initializes the logger using QUICK_KV_LOG or a default path.
func InitFromEnv() error {
	path := os.Getenv(envLogPath)
	if path == "" {
		// Default to the directory where the executable is located
		if exePath, err := os.Executable(); err == nil {
			exeDir := filepath.Dir(exePath)
			path = filepath.Join(exeDir, "quick-kv.log")
		} else {
			path = "./quick-kv.log"
		}
	}
	return Init(path)
}

// Init initializes the logger to write to the provided file path.
// It creates parent directories if needed and opens the file in append mode.
func Init(path string) error {
	mu.Lock()
	defer mu.Unlock()
	if isInitialized {
		return nil
	}
	if err := ensureParentDir(path); err != nil {
		return err
	}
	f, err := os.OpenFile(path, os.O_CREATE|os.O_APPEND|os.O_WRONLY, 0o644)
	if err != nil {
		return err
	}
	logFile = f
	std = log.New(f, "", log.Ldate|log.Ltime|log.Lmicroseconds)
	isInitialized = true
	return nil
}

// InitConsole mirrors every message to w. Level tags are colored when w is
// a terminal.
func InitConsole(w io.Writer) {
	mu.Lock()
	defer mu.Unlock()
	console = log.New(w, "", log.Ltime)
	colorize = false
	if f, ok := w.(*os.File); ok {
		fd := f.Fd()
		colorize = os.Getenv("TERM") != "dumb" && (isatty.IsTerminal(fd) || isatty.IsCygwinTerminal(fd))
	}
}

// SetOutput sends log lines to w instead of a file. Used by tests.
func SetOutput(w io.Writer) {
	mu.Lock()
	defer mu.Unlock()
	std = log.New(w, "", 0)
	isInitialized = true
}

// Close closes the underlying log file, if open.
func Close() error {
	mu.Lock()
	defer mu.Unlock()
	if logFile != nil {
		err := logFile.Close()
		logFile = nil
		std = nil
		isInitialized = false
		return err
	}
	return nil
}

// Debugf logs verbose diagnostics. Callers decide whether verbose output
// is enabled.
func Debugf(format string, args ...any) { write("VERBOSE", format, args...) }

// Printf logs a formatted message at info level.
func Printf(format string, args ...any) { write("INFO", format, args...) }

// Infof logs informational messages.
func Infof(format string, args ...any) { write("INFO", format, args...) }

// Warnf logs warnings.
func Warnf(format string, args ...any) { write("WARN", format, args...) }

// Errorf logs errors.
func Errorf(format string, args ...any) { write("ERROR", format, args...) }

func write(level string, format string, args ...any) {
	if !initialized() {
		// Fallback: initialize with default if not already.
		_ = InitFromEnv()
	}
	msg := fmt.Sprintf(format, args...)
	mu.Lock()
	defer mu.Unlock()
	if std != nil {
		std.Printf("[%s] %s", level, msg)
	}
	if console != nil {
		console.Printf("%s %s", tag(level), msg)
	}
}

func initialized() bool {
	mu.Lock()
	defer mu.Unlock()
	return isInitialized
}

func tag(level string) string {
	t := "[" + level + "]"
	if !colorize {
		return t
	}
	switch level {
	case "VERBOSE":
		return magenta + t + reset
	case "WARN":
		return yellow + t + reset
	case "ERROR":
		return red + t + reset
	case "INFO":
		return blue + t + reset
	}
	return green + t + reset
}

func ensureParentDir(path string) error {
	dir := filepath.Dir(path)
	if dir == "." || dir == "" {
		return nil
	}
	return os.MkdirAll(dir, 0o755)
}
