package main

import (
	"context"
	"net"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/leonardcser/quick-kv/internal/cache"
	"github.com/leonardcser/quick-kv/internal/logger"
)

func main() {
	if err := newCommand().ExecuteContext(context.Background()); err != nil {
		logger.Errorf("daemon: %v", err)
		os.Stderr.WriteString(err.Error() + "\n")
		os.Exit(1)
	}
}

func newCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:           "quick-kv-daemon",
		Short:         "Serve a cached quick-kv database over a Unix socket",
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE:          run,
	}
	cmd.Flags().String("socket", "", "socket path (env QUICK_KV_SOCK)")
	cmd.Flags().String("config", "", "YAML config file (env QUICK_KV_CONFIG)")
	cmd.Flags().String("db", "", "database file (env QUICK_KV_DB)")
	cmd.Flags().String("table", "", "default table (env QUICK_KV_TABLE)")
	cmd.Flags().Bool("cache", false, "enable the in-memory read cache (env QUICK_KV_CACHE)")
	cmd.Flags().Bool("verbose", false, "log diagnostics to stderr (env QUICK_KV_VERBOSE)")
	return cmd
}

func run(cmd *cobra.Command, _ []string) error {
	if err := logger.InitFromEnv(); err != nil {
		return err
	}
	defer logger.Close()

	sock := flagOrEnv(cmd, "socket", "QUICK_KV_SOCK", defaultSocketPath())

	cfg, err := loadConfig(cmd)
	if err != nil {
		logger.Errorf("invalid configuration: %v", err)
		return err
	}
	if cfg.Verbose {
		logger.InitConsole(os.Stderr)
	}
	cfg.OnTickError = func(task string, err error) {
		logger.Errorf("background %s failed: %v", task, err)
	}

	// Ensure socket dir exists and remove stale socket
	_ = os.MkdirAll(filepath.Dir(sock), 0o755)
	_ = os.Remove(sock)

	l, err := net.Listen("unix", sock)
	if err != nil {
		return err
	}
	_ = os.Chmod(sock, 0o600)

	db, err := cache.Open(cfg)
	if err != nil {
		_ = l.Close()
		logger.Errorf("open %s: %v", cfg.StoragePath, err)
		return err
	}
	defer db.Close()
	logger.Infof("Serving %s on %s (cache %t)", cfg.StoragePath, sock, cfg.CacheEnabled)

	ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
	defer stop()
	if err := cache.Serve(ctx, l, db); err != nil {
		logger.Errorf("serve: %v", err)
	}
	_ = os.Remove(sock)
	logger.Infof("Daemon stopped")
	return nil
}

// loadConfig reads the YAML file named by --config or QUICK_KV_CONFIG when
// set, QUICK_KV_* variables otherwise. Flags given on the command line win.
// Without an explicit database path the file lives next to the socket.
func loadConfig(cmd *cobra.Command) (cache.Config, error) {
	var (
		cfg cache.Config
		err error
	)
	if path := flagOrEnv(cmd, "config", "QUICK_KV_CONFIG", ""); path != "" {
		cfg, err = cache.LoadConfigFile(path)
	} else {
		cfg, err = cache.ConfigFromEnv()
		if err == nil && os.Getenv("QUICK_KV_DB") == "" {
			cfg.StoragePath = defaultDBPath()
		}
	}
	if err != nil {
		return cache.Config{}, err
	}

	flags := cmd.Flags()
	if flags.Changed("db") {
		cfg.StoragePath, _ = flags.GetString("db")
	}
	if flags.Changed("table") {
		cfg.TableName, _ = flags.GetString("table")
	}
	if flags.Changed("cache") {
		cfg.CacheEnabled, _ = flags.GetBool("cache")
	}
	if flags.Changed("verbose") {
		cfg.Verbose, _ = flags.GetBool("verbose")
	}
	return cfg, nil
}

// flagOrEnv returns the flag value when set, then the environment variable,
// then def.
func flagOrEnv(cmd *cobra.Command, flag, env, def string) string {
	if v, _ := cmd.Flags().GetString(flag); v != "" {
		return v
	}
	if v, ok := os.LookupEnv(env); ok && v != "" {
		return v
	}
	return def
}

func defaultSocketPath() string {
	home, _ := os.UserHomeDir()
	if home == "" {
		home = "."
	}
	return filepath.Join(home, ".cache", "quick-kv", "daemon.sock")
}

func defaultDBPath() string {
	home, _ := os.UserHomeDir()
	if home == "" {
		home = "."
	}
	return filepath.Join(home, ".cache", "quick-kv", "json.sqlite")
}
