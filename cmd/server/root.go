package main

import (
	"fmt"
	"log/slog"
	"os"
	"path/filepath"

	"github.com/spf13/cobra"

	"github.com/sakif/snippet-saver/internal/config"
	sqliteRepo "github.com/sakif/snippet-saver/internal/repository/sqlite"
)

var rootCmd = &cobra.Command{
	Use:          "snippets",
	Short:        "A personal code-snippet manager",
	SilenceUsage: true,
	RunE: func(cmd *cobra.Command, args []string) error {
		return serveCmd.RunE(cmd, args)
	},
}

// setup loads config and builds the logger every subcommand uses.
func setup() (config.Config, *slog.Logger, error) {
	cfg, err := config.Load()
	if err != nil {
		return config.Config{}, nil, err
	}
	logger, err := newLogger(cfg)
	if err != nil {
		return config.Config{}, nil, err
	}
	return cfg, logger, nil
}

// ensureDBDir creates the directory holding the database file.
func ensureDBDir(cfg config.Config) error {
	if cfg.DBPath == ":memory:" {
		return nil
	}
	dir := filepath.Dir(cfg.DBPath)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return fmt.Errorf("creating database directory %s: %w", dir, err)
	}
	return nil
}

// openDB opens the database without running migrations.
func openDB(cfg config.Config) (*sqliteRepo.DB, error) {
	if err := ensureDBDir(cfg); err != nil {
		return nil, err
	}
	return sqliteRepo.Open(cfg.DBPath)
}
