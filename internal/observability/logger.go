package observability

import (
	"io"
	"log/slog"
	"os"
)

// NewLogger returns a JSON logger that stamps trace, span and actor ids taken
// from the record's context.
func NewLogger(env string) *slog.Logger {
	return newLogger(os.Stdout, env)
}

func newLogger(w io.Writer, env string) *slog.Logger {
	level := slog.LevelInfo

	if env == "dev" {
		level = slog.LevelDebug
	}

	handler := slog.NewJSONHandler(w, &slog.HandlerOptions{
		Level: level,
	})

	return slog.New(NewContextHandler(handler))
}
