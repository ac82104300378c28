package observability

import (
	"context"
	"errors"
	"io"
	"os"
	"time"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
)

// NewLogger returns a zerolog Logger.
// APP_ENV=dev (or development) uses a human-friendly console writer.
func NewLogger(env string) zerolog.Logger {
	return NewLoggerTo(os.Stdout, env)
}

// NewLoggerTo is NewLogger writing to w.
func NewLoggerTo(w io.Writer, env string) zerolog.Logger {
	if env == "dev" || env == "development" {
		w = zerolog.ConsoleWriter{Out: w, TimeFormat: time.RFC3339}
	}
	l := zerolog.New(w).With().Timestamp().Logger()
	if env == "dev" || env == "development" {
		l = l.Level(zerolog.DebugLevel)
	} else {
		l = l.Level(zerolog.InfoLevel)
	}
	return l
}

// Time logs the duration of op when the returned func runs. Pass the
// named error result so failures are logged with it:
//
//	defer observability.Time(ctx, "overpass.fetch")(&err)
func Time(ctx context.Context, op string) func(errp *error) {
	start := time.Now()
	l := log.Ctx(ctx)
	if l.GetLevel() == zerolog.Disabled {
		l = &log.Logger
	}
	return func(errp *error) {
		ev := l.Debug()
		if errp != nil && *errp != nil {
			if errors.Is(*errp, context.Canceled) {
				ev = ev.Err(*errp)
			} else {
				ev = l.Warn().Err(*errp)
			}
		}
		ev.Str("op", op).Dur("dur", time.Since(start)).Msg("op finished")
	}
}
