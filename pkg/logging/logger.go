// Package logging configures structured logging with zerolog.
package logging

import (
	"io"
	"os"
	"strings"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
)

// LogLevel is the minimum severity to emit.
type LogLevel string

const (
	LevelDebug LogLevel = "debug"
	LevelInfo  LogLevel = "info"
	LevelWarn  LogLevel = "warn"
	LevelError LogLevel = "error"
)

// Config holds logger configuration.
type Config struct {
	// Level is the minimum log level to output.
	Level LogLevel

	// Pretty switches from JSON lines to human-readable console output.
	Pretty bool

	// Output defaults to os.Stderr when nil.
	Output io.Writer
}

// DefaultConfig returns JSON output at info level on stderr.
func DefaultConfig() Config {
	return Config{
		Level:  LevelInfo,
		Output: os.Stderr,
	}
}

// Setup configures the global zerolog logger and returns it. Component
// loggers created afterwards with NewLogger inherit this configuration.
func Setup(cfg Config) zerolog.Logger {
	zerolog.SetGlobalLevel(parseLevel(cfg.Level))

	output := cfg.Output
	if output == nil {
		output = os.Stderr
	}
	if cfg.Pretty {
		output = zerolog.ConsoleWriter{Out: output}
	}

	logger := zerolog.New(output).With().Timestamp().Logger()
	log.Logger = logger
	return logger
}

func parseLevel(level LogLevel) zerolog.Level {
	switch strings.ToLower(string(level)) {
	case "debug":
		return zerolog.DebugLevel
	case "warn", "warning":
		return zerolog.WarnLevel
	case "error":
		return zerolog.ErrorLevel
	default:
		return zerolog.InfoLevel
	}
}

// NewLogger returns a logger tagged with a component name, e.g.
// "chunkedgraph" or "dispatch".
func NewLogger(component string) zerolog.Logger {
	return log.With().Str("component", component).Logger()
}

// Level usage across the packages:
//
//	debug  cache hits and misses, conditional request flow, per-request detail
//	info   batch start/progress/completion, uploads, healthy quota updates
//	warn   quota throttling, retry attempts, cache errors that fall back
//	error  requests failed after retries, quota blocks, bad configuration
//
// Common fields: endpoint, batch, status, duration, error_class, remaining,
// etag, ttl.
