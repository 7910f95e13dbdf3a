// Package logger holds the process-wide zerolog setup for the driver.
// Subsystems take component-tagged children via Component; the setup TUI
// flips the whole process to silent mode so log lines don't tear the UI.
package logger

import (
	"io"
	"os"
	"time"

	"github.com/rs/zerolog"
)

// Level names accepted by SetLevel and RVOLUTION_LOG_LEVEL.
const (
	LevelDebug = "debug"
	LevelInfo  = "info"
	LevelWarn  = "warn"
	LevelError = "error"
)

// levelEnvVar overrides the default level before any cobra flag runs,
// which is the only way to get debug output from init-time code paths.
const levelEnvVar = "RVOLUTION_LOG_LEVEL"

var root zerolog.Logger

func init() {
	SetSilentMode(false)
	if level := os.Getenv(levelEnvVar); level != "" {
		SetLevel(level)
	}
}

// SetSilentMode switches between console output on stderr and discarding
// everything. Resets the global level to info.
func SetSilentMode(silent bool) {
	var output io.Writer = io.Discard
	if !silent {
		output = zerolog.ConsoleWriter{
			Out:        os.Stderr,
			TimeFormat: time.RFC3339,
		}
	}

	root = zerolog.New(output).With().Timestamp().Logger()
	zerolog.SetGlobalLevel(zerolog.InfoLevel)
}

// New returns the root logger.
func New() zerolog.Logger {
	return root
}

// Component returns a child logger tagged with the subsystem name.
func Component(name string) zerolog.Logger {
	return root.With().Str("component", name).Logger()
}

// SetLevel sets the global log level by name; unknown names fall back
// to info.
func SetLevel(level string) {
	switch level {
	case LevelDebug:
		zerolog.SetGlobalLevel(zerolog.DebugLevel)
	case LevelWarn:
		zerolog.SetGlobalLevel(zerolog.WarnLevel)
	case LevelError:
		zerolog.SetGlobalLevel(zerolog.ErrorLevel)
	default:
		zerolog.SetGlobalLevel(zerolog.InfoLevel)
	}
}
