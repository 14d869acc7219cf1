// Package logging configures the process-wide zerolog logger used by the
// command-line tools. Library packages never log through the globals here;
// they receive a zerolog.Logger where they need one.
package logging

import (
	"io"
	"os"
	"strings"
	"sync"
	"time"

	"github.com/rs/zerolog"
)

// Config captures the options of the global logger.
type Config struct {
	Level   string    // "debug", "info", ... (default "info", or LOG_LEVEL)
	Format  string    // "json" or "console" (default "json")
	Output  io.Writer // defaults to os.Stderr
	Service string    // service name attached to every entry
}

var (
	once sync.Once
	base zerolog.Logger
)

// Configure initialises the global logger exactly once. The first call wins,
// so commands call it right after parsing their flags and before anything
// logs.
func Configure(cfg Config) {
	once.Do(func() {
		level := zerolog.InfoLevel

		if cfg.Level == "" {
			cfg.Level = os.Getenv("LOG_LEVEL")
		}

		if parsed, err := zerolog.ParseLevel(strings.ToLower(cfg.Level)); err == nil && cfg.Level != "" {
			level = parsed
		}

		zerolog.SetGlobalLevel(level)
		zerolog.TimeFieldFormat = time.RFC3339

		writer := cfg.Output
		if writer == nil {
			writer = os.Stderr
		}

		if strings.EqualFold(cfg.Format, "console") {
			writer = zerolog.ConsoleWriter{Out: writer, TimeFormat: time.Kitchen}
		}

		service := cfg.Service
		if service == "" {
			service = "serpentine"
		}

		base = zerolog.New(writer).With().
			Timestamp().
			Str("service", service).
			Logger()
	})
}

// Base returns the configured base logger.
func Base() zerolog.Logger {
	Configure(Config{})

	return base
}

// WithComponent returns a child logger annotated with the given component
// name.
func WithComponent(component string) zerolog.Logger {
	return Base().With().Str("component", component).Logger()
}
