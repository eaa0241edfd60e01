// Package logger builds the zerolog.Logger pkg/engine and pkg/condition
// take as a constructor argument, configured from internal/config.
package logger

import (
	"os"

	"github.com/rs/zerolog"

	"github.com/checkrun-dev/engine/internal/config"
)

// New builds a zerolog.Logger per cfg: "json" writes zerolog's native
// structured output to stdout, anything else (including "text") wraps
// stdout in a zerolog.ConsoleWriter for human-readable output.
func New(cfg config.LoggingConfig) zerolog.Logger {
	level := parseLevel(cfg.Level)

	var writer = os.Stdout
	builder := zerolog.New(writer).Level(level).With().Timestamp()
	if cfg.Format != "json" {
		return zerolog.New(zerolog.ConsoleWriter{Out: writer, TimeFormat: "15:04:05"}).
			Level(level).With().Timestamp().Logger()
	}
	return builder.Logger()
}

func parseLevel(level string) zerolog.Level {
	switch level {
	case "debug":
		return zerolog.DebugLevel
	case "warn":
		return zerolog.WarnLevel
	case "error":
		return zerolog.ErrorLevel
	default:
		return zerolog.InfoLevel
	}
}
