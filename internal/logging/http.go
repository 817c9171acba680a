package logging

import (
	"context"
	"log/slog"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5/middleware"
)

// RequestLogger is chi's request logger writing through slog.
func RequestLogger(l *slog.Logger) func(http.Handler) http.Handler {
	return middleware.RequestLogger(&requestFormatter{logger: l})
}

type requestFormatter struct{ logger *slog.Logger }

func (f *requestFormatter) NewLogEntry(r *http.Request) middleware.LogEntry {
	return &requestEntry{logger: f.logger.With(
		"request_id", middleware.GetReqID(r.Context()),
		"method", r.Method,
		"path", r.URL.Path,
		"remote", r.RemoteAddr,
	)}
}

type requestEntry struct{ logger *slog.Logger }

func (e *requestEntry) Write(status, bytes int, _ http.Header, elapsed time.Duration, _ interface{}) {
	level := slog.LevelInfo
	switch {
	case status >= 500:
		level = slog.LevelError
	case status >= 400:
		level = slog.LevelWarn
	}
	e.logger.Log(context.Background(), level, "request", "status", status, "bytes", bytes, "elapsed_ms", elapsed.Milliseconds())
}

func (e *requestEntry) Panic(v interface{}, stack []byte) {
	e.logger.Error("panic", "panic", v, "stack", string(stack))
}
