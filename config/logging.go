/*
 * Copyright © 2025 Suparena Software Inc., All rights reserved.
 */

package config

import (
	"io"
	"os"
	"strings"
	"time"

	"github.com/rs/zerolog"
)

// NewLogger builds the process logger from cfg. Output goes to stderr so
// that stdout stays free for command results.
func NewLogger(cfg LoggingConfig) zerolog.Logger {
	return newLogger(cfg, os.Stderr)
}

func newLogger(cfg LoggingConfig, w io.Writer) zerolog.Logger {
	level, err := zerolog.ParseLevel(strings.ToLower(cfg.Level))
	if err != nil || cfg.Level == "" {
		level = zerolog.InfoLevel
	}

	var output io.Writer = w
	if !cfg.Enabled {
		output = io.Discard
	} else if cfg.Format == "console" {
		output = zerolog.ConsoleWriter{Out: w, TimeFormat: time.RFC3339, NoColor: true}
	}

	return zerolog.New(output).
		Level(level).
		With().
		Timestamp().
		Logger()
}
