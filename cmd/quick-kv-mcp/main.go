package main

import (
	"net"
	"os"
	"os/exec"
	"path/filepath"
	"time"

	"github.com/mark3labs/mcp-go/server"

	"github.com/leonardcser/quick-kv/internal/cache"
	"github.com/leonardcser/quick-kv/internal/logger"
	"github.com/leonardcser/quick-kv/internal/tools"
)

const daemonBinary = "quick-kv-daemon"

func main() {
	if err := logger.InitFromEnv(); err != nil {
		panic(err)
	}
	defer logger.Close()

	logger.Infof("Starting quick-kv MCP server")

	// Connect to the daemon; start it if needed, then connect.
	sock := defaultSocketPath()
	logger.Infof("Attempting to connect to daemon at %s", sock)
	client, err := connect(sock)
	if err != nil {
		logger.Warnf("Failed to connect to daemon: %v, attempting to start it", err)
		if startErr := startDaemon(); startErr != nil {
			logger.Errorf("Failed to start daemon: %v", startErr)
		} else {
			logger.Infof("Daemon started successfully")
		}
		// wait for socket to appear
		deadline := time.Now().Add(5 * time.Second)
		for time.Now().Before(deadline) {
			if c2, err2 := connect(sock); err2 == nil {
				client = c2
				err = nil
				break
			}
			time.Sleep(200 * time.Millisecond)
		}
		if client == nil {
			logger.Errorf("Failed to connect to daemon after startup attempt: %v", err)
			panic(err)
		}
	}
	logger.Infof("Successfully connected to daemon")

	s := server.NewMCPServer(
		"quick-kv",
		"0.1.0",
		server.WithRecovery(),
		server.WithToolCapabilities(false),
	)
	tools.Register(s, client)

	logger.Infof("Starting MCP server on stdio")
	if err := server.ServeStdio(s); err != nil {
		logger.Errorf("server error: %v", err)
	}
}

func defaultSocketPath() string {
	if s := os.Getenv("QUICK_KV_SOCK"); s != "" {
		return s
	}
	home, _ := os.UserHomeDir()
	if home == "" {
		home = "."
	}
	return filepath.Join(home, ".cache", "quick-kv", "daemon.sock")
}

func connect(sock string) (*cache.Client, error) {
	// quick probe
	conn, err := net.DialTimeout("unix", sock, 200*time.Millisecond)
	if err != nil {
		return nil, err
	}
	_ = conn.Close()
	return cache.NewClient(sock), nil
}

func startDaemon() error {
	// 1) Daemon binary next to this executable
	if exePath, err := os.Executable(); err == nil {
		sibling := filepath.Join(filepath.Dir(exePath), daemonBinary)
		if _, statErr := os.Stat(sibling); statErr == nil {
			return spawn(sibling)
		}
	}

	// 2) PATH binary
	if path, err := exec.LookPath(daemonBinary); err == nil {
		return spawn(path)
	}

	// 3) Current working directory (best-effort)
	if _, err := os.Stat("./" + daemonBinary); err == nil {
		return spawn("./" + daemonBinary)
	}

	return exec.ErrNotFound
}

func spawn(path string) error {
	cmd := exec.Command(path)
	cmd.Stdout = nil
	cmd.Stderr = nil
	cmd.Env = os.Environ()
	return cmd.Start()
}
