// Package log configures the process-wide slog default.
package log

import (
	"log/slog"
	"os"
)

// Setup installs a text handler on stderr at the requested level. An
// unparseable level name falls back to info rather than failing startup.
func Setup(logLevel string) {
	var level slog.Level
	if err := level.UnmarshalText([]byte(logLevel)); err != nil {
		level = slog.LevelInfo
	}

	slog.SetDefault(slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{
		Level: level,
	})))
}

// WithModule returns the default logger tagged with a module attribute.
func WithModule(module string) *slog.Logger {
	return slog.With("module", module)
}
