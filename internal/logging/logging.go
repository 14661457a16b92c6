package logging

import (
	"io"
	"os"
	"time"

	"github.com/rs/zerolog"
)

// New собирает корневой логгер: JSON в production, человекочитаемый вывод в остальных окружениях.
func New(level, env string) zerolog.Logger {
	return NewWithWriter(level, env, os.Stderr)
}

func NewWithWriter(level, env string, w io.Writer) zerolog.Logger {
	lvl, err := zerolog.ParseLevel(level)
	if err != nil || level == "" {
		lvl = zerolog.InfoLevel
	}
	out := w
	if env != "production" {
		out = zerolog.ConsoleWriter{Out: w, TimeFormat: time.DateTime}
	}
	return zerolog.New(out).Level(lvl).With().Timestamp().Logger()
}

// Component returns a sub-logger tagged with the component name.
func Component(log zerolog.Logger, name string) zerolog.Logger {
	return log.With().Str("component", name).Logger()
}
