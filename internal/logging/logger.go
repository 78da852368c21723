// Package logging configures the zerolog logger shared by coreid commands.
//
// Logs go to stderr. On a terminal they use zerolog's console writer, and
// everywhere else they are JSON lines, so redirected runs stay machine-readable.
//
//	log := logging.WithRun(runID)
//	log.Debug().Int("column", 3).Msg("section column resolved")
package logging

import (
	"io"
	"os"
	"strings"
	"time"

	"github.com/mattn/go-isatty"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
)

var defaultLogger zerolog.Logger

func init() {
	defaultLogger = Setup(envOr("LOG_LEVEL", "warn"), envOr("LOG_FORMAT", "auto"), os.Stderr)
}

// Setup builds a logger for w and installs it as the default. Format is one
// of "auto", "console", or "json".
func Setup(level, format string, w io.Writer) zerolog.Logger {
	if w == nil {
		w = os.Stderr
	}
	lvl := ParseLevel(level)
	zerolog.SetGlobalLevel(lvl)

	out := w
	if useConsole(format, w) {
		out = zerolog.ConsoleWriter{
			Out:        w,
			TimeFormat: time.Kitchen,
			NoColor:    os.Getenv("NO_COLOR") != "",
		}
	}
	logger := zerolog.New(out).Level(lvl).With().Timestamp().Logger()
	SetDefault(logger)
	return logger
}

// Default returns the process-wide logger.
func Default() *zerolog.Logger { return &defaultLogger }

// SetDefault replaces the process-wide logger.
func SetDefault(logger zerolog.Logger) {
	defaultLogger = logger
	log.Logger = logger
}

// WithRun returns the default logger tagged with a run ID.
func WithRun(id string) zerolog.Logger {
	return defaultLogger.With().Str("run_id", id).Logger()
}

// ParseLevel maps a level name to a zerolog level, falling back to warn.
func ParseLevel(level string) zerolog.Level {
	switch strings.ToLower(strings.TrimSpace(level)) {
	case "warning":
		return zerolog.WarnLevel
	case "off", "none":
		return zerolog.Disabled
	}
	if l, err := zerolog.ParseLevel(strings.ToLower(strings.TrimSpace(level))); err == nil && level != "" {
		return l
	}
	return zerolog.WarnLevel
}

func useConsole(format string, w io.Writer) bool {
	switch strings.ToLower(format) {
	case "console", "pretty", "text":
		return true
	case "json":
		return false
	}
	f, ok := w.(*os.File)
	return ok && isatty.IsTerminal(f.Fd())
}

func envOr(key, def string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return def
}
