// Package cli provides common CLI initialization utilities shared by the
// saldo subcommands.
package cli

import (
	"fmt"
	"io"
	"os"

	"github.com/joho/godotenv"

	"saldo/internal/config"
	"saldo/internal/log"
)

// LoadEnvFile loads the .env file for local development.
// Errors are ignored silently as this is optional in production.
func LoadEnvFile() {
	_ = godotenv.Load()
}

// SetupLogger builds the application logger from a level and format name
// and installs it as the slog default.
func SetupLogger(level, format string, out io.Writer) (*log.Logger, error) {
	lvl, err := log.ParseLevel(level)
	if err != nil {
		return nil, err
	}
	switch format {
	case "", "text", "console":
		format = "text"
	case "json":
	default:
		return nil, fmt.Errorf("invalid log format: %s", format)
	}
	if out == nil {
		out = os.Stderr
	}
	logger := log.New(log.Config{Level: lvl, Format: format, Component: log.ComponentApp, Output: out})
	log.SetDefault(logger)
	return logger, nil
}

// LoadAndValidateConfig reads configuration from cfgFile (optional) and the
// environment, then validates it.
func LoadAndValidateConfig(cfgFile string) (*config.Config, error) {
	v, err := config.NewViper(cfgFile)
	if err != nil {
		return nil, err
	}
	cfg := config.Load(v)
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}
