package main

import (
	"fmt"
	"log/slog"
	"os"
	"path/filepath"

	"github.com/JJStrongstone/niwa/internal/config"
)

// app bundles the configuration and logger every command needs. The store
// itself is opened lazily per invocation by openDispatcher, since each CLI
// invocation is a short-lived process (spec §9).
type app struct {
	cfg    config.Config
	logger *slog.Logger
}

func main() {
	cfg, err := config.Load()
	if err != nil {
		fmt.Fprintf(os.Stderr, "config error: %v\n", err)
		os.Exit(4)
	}

	logger := slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{
		Level: parseLogLevel(cfg.Log.Level),
	}))

	a := &app{cfg: cfg, logger: logger}
	root := newRootCmd(a)
	if err := root.Execute(); err != nil {
		asJSON, _ := root.PersistentFlags().GetBool("json")
		printCommandError(os.Stderr, err, asJSON)
		logger.Debug("command failed", "error", err, "exit_code", exitCodeFor(err))
		os.Exit(exitCodeFor(err))
	}
}

func parseLogLevel(level string) slog.Level {
	switch level {
	case "debug":
		return slog.LevelDebug
	case "warn":
		return slog.LevelWarn
	case "error":
		return slog.LevelError
	default:
		return slog.LevelInfo
	}
}

// dbPath is the single SQLite file inside the store directory.
func dbPath(storeDir string) string {
	return filepath.Join(storeDir, "niwa.db")
}
