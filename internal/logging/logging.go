// Package logging configures Waypoint's charmbracelet/log loggers.
//
// All log output goes to stderr; stdout is reserved for command output
// (definition outlines, instance histories, JSON).
//
//	// During CLI initialization (PersistentPreRunE):
//	logging.Setup(verbose, quiet, logging.JSONRequested(os.Getenv))
//
//	// Inside a function, after Setup:
//	logger := logging.New("compiler")
//	logger.Debug("pattern expanded", "pattern", p)
//
// charmbracelet/log copies level and formatter into a child logger when it
// is created. Loggers built before Setup keep the old settings, so packages
// create them where they are used instead of in package-level vars.
package logging

import (
	"io"
	"os"
	"strings"

	"github.com/charmbracelet/log"
)

// Level aliases for charmbracelet/log levels.
const (
	LevelDebug = log.DebugLevel
	LevelInfo  = log.InfoLevel
	LevelWarn  = log.WarnLevel
	LevelError = log.ErrorLevel
	LevelFatal = log.FatalLevel
)

// EnvLogFormat selects the log formatter; "json" switches to NDJSON.
const EnvLogFormat = "WAYPOINT_LOG_FORMAT"

// Setup configures the default logger. Quiet wins over verbose.
func Setup(verbose, quiet, jsonFormat bool) {
	level := log.InfoLevel
	if verbose {
		level = log.DebugLevel
	}
	if quiet {
		level = log.ErrorLevel
	}

	log.SetLevel(level)
	log.SetOutput(os.Stderr)

	if jsonFormat {
		log.SetFormatter(log.JSONFormatter)
	} else {
		log.SetFormatter(log.TextFormatter)
	}
}

// JSONRequested reports whether WAYPOINT_LOG_FORMAT asks for JSON logs.
func JSONRequested(getenv func(string) string) bool {
	return strings.EqualFold(strings.TrimSpace(getenv(EnvLogFormat)), "json")
}

// New creates a logger with the given component prefix. An empty component
// produces a logger without a prefix.
//
//	logging.New("config").Info("loaded", "path", "waypoint.toml")
//	// INFO <config> loaded path=waypoint.toml
func New(component string) *log.Logger {
	return log.WithPrefix(component)
}

// NewTo creates a logger that writes to w at the default logger's level.
// The console uses it to capture engine logs in its own pane.
func NewTo(w io.Writer, component string) *log.Logger {
	return log.NewWithOptions(w, log.Options{
		Level:  log.GetLevel(),
		Prefix: component,
	})
}

// Discard returns a logger that drops everything.
func Discard() *log.Logger {
	return log.NewWithOptions(io.Discard, log.Options{Level: log.FatalLevel + 1})
}

// SetOutput overrides the output writer for the default logger. Tests use it
// with a bytes.Buffer and restore stderr in t.Cleanup.
func SetOutput(w io.Writer) {
	log.SetOutput(w)
}
