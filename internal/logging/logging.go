// Package logging renders log/slog records with zerolog.
//
// The vibelist packages log through *slog.Logger; binaries build that logger
// here so output is zerolog JSON in production and zerolog console output on
// a terminal.
//
//	logger, err := logging.New(logging.Config{Level: "debug", Format: "console"})
//	vl, _ := vibelist.Open(ctx, store, enc, vibelist.WithLogger(&vibelist.Logger{Logger: logger}))
package logging

import (
	"fmt"
	"io"
	"log/slog"
	"os"
	"strings"
	"time"

	"github.com/rs/zerolog"
)

// Config holds logging configuration.
type Config struct {
	// Level is the minimum log level: debug, info, warn or error.
	// Default: info
	Level string `koanf:"level" validate:"omitempty,oneof=debug info warn error"`

	// Format is json or console.
	// Default: json
	Format string `koanf:"format" validate:"omitempty,oneof=json console"`

	// Caller includes caller file and line number in logs.
	Caller bool `koanf:"caller"`

	// Output defaults to os.Stderr.
	Output io.Writer `koanf:"-"`
}

// DefaultConfig returns the default logging configuration.
func DefaultConfig() Config {
	return Config{
		Level:  "info",
		Format: "json",
		Output: os.Stderr,
	}
}

// ParseLevel converts a level name to a zerolog level.
func ParseLevel(level string) (zerolog.Level, error) {
	switch strings.ToLower(strings.TrimSpace(level)) {
	case "", "info":
		return zerolog.InfoLevel, nil
	case "debug":
		return zerolog.DebugLevel, nil
	case "warn", "warning":
		return zerolog.WarnLevel, nil
	case "error":
		return zerolog.ErrorLevel, nil
	default:
		return zerolog.NoLevel, fmt.Errorf("unknown log level %q", level)
	}
}

// NewZerolog builds the zerolog logger described by cfg.
func NewZerolog(cfg Config) (zerolog.Logger, error) {
	level, err := ParseLevel(cfg.Level)
	if err != nil {
		return zerolog.Nop(), err
	}

	out := cfg.Output
	if out == nil {
		out = os.Stderr
	}
	switch cfg.Format {
	case "", "json":
	case "console":
		out = zerolog.ConsoleWriter{Out: out, TimeFormat: time.RFC3339}
	default:
		return zerolog.Nop(), fmt.Errorf("unknown log format %q", cfg.Format)
	}

	zctx := zerolog.New(out).Level(level).With().Timestamp()
	if cfg.Caller {
		zctx = zctx.Caller()
	}
	return zctx.Logger(), nil
}

// New returns an slog.Logger backed by zerolog.
func New(cfg Config) (*slog.Logger, error) {
	zl, err := NewZerolog(cfg)
	if err != nil {
		return nil, err
	}
	return slog.New(NewHandler(zl)), nil
}
