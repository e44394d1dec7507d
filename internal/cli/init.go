// Package cli holds the start-up steps shared by cmd/ledger and
// cmd/ledger-worker.
package cli

import (
	"context"
	"fmt"
	"io"
	"os"
	"os/signal"
	"syscall"

	"ledger/internal/config"
	"ledger/internal/log"

	"github.com/joho/godotenv"
)

// LoadEnvFile loads the .env file for local development.
// Errors are ignored silently as this is optional in production.
func LoadEnvFile() {
	_ = godotenv.Load()
}

// Setup loads the configuration, builds a text logger for component at the
// configured level and runs validate. The logger is returned even when
// validation fails so the caller can report it.
func Setup(w io.Writer, component string, validate func(*config.Config) error) (*config.Config, *log.Logger, error) {
	cfg, err := config.Load()
	if err != nil {
		return nil, log.NewText(w, log.ParseLevel(""), component), fmt.Errorf("load configuration: %w", err)
	}
	logger := log.NewText(w, log.ParseLevel(cfg.LogLevel), component)
	if validate != nil {
		if err := validate(cfg); err != nil {
			return cfg, logger, err
		}
	}
	return cfg, logger, nil
}

// MustSetup is Setup for main: .env is loaded first and any failure exits
// the process.
func MustSetup(component string, validate func(*config.Config) error) (*config.Config, *log.Logger) {
	LoadEnvFile()
	cfg, logger, err := Setup(os.Stdout, component, validate)
	if err != nil {
		logger.Error("Configuration validation failed", log.FieldError, err)
		os.Exit(1)
	}
	return cfg, logger
}

// SignalContext is cancelled on SIGINT or SIGTERM.
func SignalContext() (context.Context, context.CancelFunc) {
	return signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
}
