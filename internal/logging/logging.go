// Package logging configures the zerolog logger shared by all binaries.
package logging

import (
	"os"
	"strings"
	"time"

	"github.com/rs/zerolog"

	"github.com/bodleian-io/bodleian/internal/config"
)

// New builds a logger from the logging configuration. The console format
// is meant for development; production uses JSON.
func New(cfg config.LoggingConfig) zerolog.Logger {
	level, err := zerolog.ParseLevel(strings.ToLower(cfg.Level))
	if err != nil {
		level = zerolog.InfoLevel
	}

	timeFormat := cfg.TimeFormat
	if timeFormat == "" {
		timeFormat = time.RFC3339
	}
	zerolog.TimeFieldFormat = timeFormat

	var logger zerolog.Logger
	if strings.ToLower(cfg.Format) == "console" {
		logger = zerolog.New(zerolog.ConsoleWriter{Out: os.Stderr, TimeFormat: timeFormat})
	} else {
		logger = zerolog.New(os.Stdout)
	}

	return logger.Level(level).With().Timestamp().Logger()
}
