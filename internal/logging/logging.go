// Package logging builds the process logger.
package logging

import (
	"io"
	"os"
	"time"

	"github.com/rs/zerolog"

	"github.com/polzovatel/reader-autopilot/internal/config"
)

// New returns a logger writing to w (stderr when nil). Console format is
// for people, json for log shippers.
func New(cfg config.LoggerConfig, w io.Writer) (zerolog.Logger, error) {
	level, err := zerolog.ParseLevel(cfg.Level)
	if err != nil {
		return zerolog.Nop(), err
	}
	if level == zerolog.NoLevel {
		level = zerolog.InfoLevel
	}
	tty := w == nil
	if tty {
		w = os.Stderr
	}
	if cfg.Format != "json" {
		w = zerolog.ConsoleWriter{Out: w, TimeFormat: time.TimeOnly, NoColor: !tty}
	}
	return zerolog.New(w).Level(level).With().Timestamp().Logger(), nil
}

// Component derives a sub-logger tagged with comp.
func Component(logger zerolog.Logger, comp string) zerolog.Logger {
	return logger.With().Str("comp", comp).Logger()
}
