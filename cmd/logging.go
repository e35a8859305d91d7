package main

import (
	"io"
	"os"
	"strings"
	"time"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
)

// newLogger builds the service logger and installs it as the global zerolog logger
func newLogger(cfg serviceConfigLogging) zerolog.Logger {
	var output io.Writer = os.Stdout

	zerolog.TimeFieldFormat = time.RFC3339

	if strings.ToLower(cfg.Format) == "console" {
		output = zerolog.ConsoleWriter{
			Out:        output,
			TimeFormat: zerolog.TimeFieldFormat,
		}
	}

	level, err := zerolog.ParseLevel(strings.ToLower(cfg.Level))
	if err != nil || level == zerolog.NoLevel {
		level = zerolog.InfoLevel
	}

	logger := zerolog.New(output).Level(level).With().Timestamp().Str("service", "opas-solr-ws").Logger()

	log.Logger = logger

	return logger
}
