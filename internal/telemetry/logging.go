// Package telemetry configures structured logging and tracing for the
// service and the command line tools.
package telemetry

import (
	"io"
	"os"
	"strings"
	"time"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"

	"github.com/killallgit/media-transcript-api/pkg/config"
)

const (
	FormatJSON    = "json"
	FormatConsole = "console"

	FieldComponent = "component"
	FieldRunID     = "run_id"
	FieldJobID     = "job_id"
	FieldStage     = "stage"
	FieldRequestID = "request_id"
)

// SetupLogging configures the global zerolog logger. Unknown levels fall
// back to info.
func SetupLogging(cfg config.LoggingConfig) zerolog.Logger {
	return SetupLoggingTo(os.Stderr, cfg)
}

// SetupLoggingTo is SetupLogging with an explicit destination.
func SetupLoggingTo(out io.Writer, cfg config.LoggingConfig) zerolog.Logger {
	level, err := zerolog.ParseLevel(strings.ToLower(cfg.Level))
	if err != nil || cfg.Level == "" {
		level = zerolog.InfoLevel
	}
	zerolog.SetGlobalLevel(level)
	zerolog.TimeFieldFormat = time.RFC3339

	var w io.Writer = out
	if strings.EqualFold(cfg.Format, FormatConsole) || strings.EqualFold(cfg.Format, "pretty") {
		w = zerolog.ConsoleWriter{Out: out, TimeFormat: "15:04:05"}
	}

	logger := zerolog.New(w).With().Timestamp().Logger()
	log.Logger = logger
	return logger
}

// Component returns a child of the global logger tagged with name.
func Component(name string) zerolog.Logger {
	return log.Logger.With().Str(FieldComponent, name).Logger()
}
