package main

import (
	"fmt"
	"log/slog"
	"os"

	"github.com/charmbracelet/log"

	"github.com/sakif/snippet-saver/internal/config"
)

// newLogger returns a slog.Logger backed by charmbracelet/log: coloured
// text in development, JSON lines in production.
func newLogger(cfg config.Config) (*slog.Logger, error) {
	level, err := log.ParseLevel(cfg.LogLevel)
	if err != nil {
		return nil, fmt.Errorf("LOG_LEVEL: %w", err)
	}

	formatter := log.TextFormatter
	if cfg.IsProduction() {
		formatter = log.JSONFormatter
	}

	handler := log.NewWithOptions(os.Stderr, log.Options{
		ReportTimestamp: true,
		Level:           level,
		Formatter:       formatter,
		Prefix:          "snippets",
	})
	return slog.New(handler), nil
}
