package cli

import (
	"fmt"
	"io"
	"log/slog"
	"strings"

	"github.com/caarlos0/env/v11"

	"github.com/roach88/strata/internal/engine"
)

// Config holds defaults taken from the environment. Command-line flags
// override every field.
type Config struct {
	Database string `env:"STRATA_DB"`
	LogLevel string `env:"STRATA_LOG_LEVEL" envDefault:"info"`
	Horizon  string `env:"STRATA_HORIZON"`
	MaxSteps int    `env:"STRATA_MAX_STEPS"`
	Parallel int    `env:"STRATA_PARALLEL" envDefault:"1"`
}

// LoadConfig reads Config from the environment.
func LoadConfig() (Config, error) {
	cfg := Config{MaxSteps: engine.DefaultMaxSteps}
	if err := env.Parse(&cfg); err != nil {
		return Config{}, fmt.Errorf("parse env: %w", err)
	}
	if cfg.MaxSteps <= 0 {
		return Config{}, fmt.Errorf("STRATA_MAX_STEPS must be positive, got %d", cfg.MaxSteps)
	}
	if _, err := parseLogLevel(cfg.LogLevel); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

func parseLogLevel(s string) (slog.Level, error) {
	switch strings.ToLower(s) {
	case "debug":
		return slog.LevelDebug, nil
	case "", "info":
		return slog.LevelInfo, nil
	case "warn", "warning":
		return slog.LevelWarn, nil
	case "error":
		return slog.LevelError, nil
	}
	return 0, fmt.Errorf("invalid log level %q: must be one of debug, info, warn, error", s)
}

// newLogger builds the text logger for a command. Verbose forces debug.
func newLogger(w io.Writer, level string, verbose bool) *slog.Logger {
	lvl, err := parseLogLevel(level)
	if err != nil {
		lvl = slog.LevelInfo
	}
	if verbose {
		lvl = slog.LevelDebug
	}
	return slog.New(slog.NewTextHandler(w, &slog.HandlerOptions{Level: lvl}))
}
