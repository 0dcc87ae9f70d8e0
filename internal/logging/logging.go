// UniFi Monitor
// SPDX-License-Identifier: AGPL-3.0-or-later

// Package logging provides centralized zerolog-based logging.
//
// Initialize once at startup with Init, then use the package-level
// helpers (Info, Warn, Error, Debug) or Ctx(ctx) to pick up a
// correlation id stashed on the context.
package logging

import (
	"context"
	"io"
	"os"
	"strings"
	"sync"

	"github.com/rs/zerolog"
)

// Config controls the global logger.
type Config struct {
	// Level is one of trace, debug, info, warn, error. Default info.
	Level string
	// Format is "json" or "console". Default json.
	Format string
	// Output defaults to os.Stderr.
	Output io.Writer
}

func DefaultConfig() Config {
	return Config{Level: "info", Format: "json", Output: os.Stderr}
}

var (
	log zerolog.Logger
	mu  sync.RWMutex
)

func init() {
	initLogger(DefaultConfig())
}

// Init (re)configures the global logger. Safe to call more than once;
// callers typically call it exactly once after config.Load succeeds.
func Init(cfg Config) {
	mu.Lock()
	defer mu.Unlock()
	initLogger(cfg)
}

func initLogger(cfg Config) {
	if cfg.Level == "" {
		cfg.Level = "info"
	}
	if cfg.Format == "" {
		cfg.Format = "json"
	}
	if cfg.Output == nil {
		cfg.Output = os.Stderr
	}

	level, err := zerolog.ParseLevel(strings.ToLower(cfg.Level))
	if err != nil {
		level = zerolog.InfoLevel
	}

	var w io.Writer = cfg.Output
	if cfg.Format == "console" {
		w = zerolog.ConsoleWriter{Out: cfg.Output, TimeFormat: "15:04:05"}
	}

	log = zerolog.New(w).Level(level).With().Timestamp().Logger()
}

// Get returns the current global logger value.
func Get() zerolog.Logger {
	mu.RLock()
	defer mu.RUnlock()
	return log
}

type correlationKey struct{}

// ContextWithCorrelationID attaches a correlation id to ctx; Ctx will
// include it as a field on every subsequent log line.
func ContextWithCorrelationID(ctx context.Context, id string) context.Context {
	return context.WithValue(ctx, correlationKey{}, id)
}

// CorrelationIDFromContext retrieves the correlation id, if any.
func CorrelationIDFromContext(ctx context.Context) string {
	if id, ok := ctx.Value(correlationKey{}).(string); ok {
		return id
	}
	return ""
}

// Ctx returns a logger annotated with ctx's correlation id, if set.
func Ctx(ctx context.Context) *zerolog.Logger {
	l := Get()
	if id := CorrelationIDFromContext(ctx); id != "" {
		l = l.With().Str("correlation_id", id).Logger()
	}
	return &l
}

func Info() *zerolog.Event  { l := Get(); return l.Info() }
func Warn() *zerolog.Event  { l := Get(); return l.Warn() }
func Error() *zerolog.Event { l := Get(); return l.Error() }
func Debug() *zerolog.Event { l := Get(); return l.Debug() }
func Fatal() *zerolog.Event { l := Get(); return l.Fatal() }

// With starts a sub-logger builder, e.g. logging.With().Str("component", "store").Logger().
func With() zerolog.Context {
	return Get().With()
}
