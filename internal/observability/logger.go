package observability

import (
	"context"
	"io"
	"log/slog"
	"net/http"
	"os"
)

type contextKey string

const loggerKey = contextKey("logger")

// SetupLogger define a global logger (default is slog.)
func SetupLogger(env string) *slog.Logger {
	return NewLogger(env, os.Stdout)
}

func NewLogger(env string, w io.Writer) *slog.Logger {
	var logger *slog.Logger
	switch env {
	case "development", "dev", "test":
		logger = slog.New(slog.NewTextHandler(w, &slog.HandlerOptions{Level: slog.LevelDebug}))
	default:
		logger = slog.New(slog.NewJSONHandler(w, nil))
	}
	return logger
}

// NopLogger discards everything; handy in tests and CLI tools run with --quiet.
func NopLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

// NewLoggerMiddleware Adds a logger to the context of each request.
func NewLoggerMiddleware(logger *slog.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			ctx := context.WithValue(r.Context(), loggerKey, logger)
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}

// LoggerFrom returns the request logger, or fallback when none was attached.
func LoggerFrom(ctx context.Context, fallback *slog.Logger) *slog.Logger {
	if l, ok := ctx.Value(loggerKey).(*slog.Logger); ok {
		return l
	}
	return fallback
}
