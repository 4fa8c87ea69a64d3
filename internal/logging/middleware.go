package logging

import (
	"context"
	"log/slog"
	"net/http"
	"sync"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
)

// ContextKey is a type for context keys
type ContextKey string

const (
	// LoggerContextKey is the key for the logger in the request context
	LoggerContextKey ContextKey = "logger"
	entryContextKey  ContextKey = "log_entry"
)

// entry collects attributes that downstream handlers learn while serving a
// request, such as the authenticated user or the task being touched.
type entry struct {
	mu    sync.Mutex
	attrs []any
}

// Annotate adds key/value pairs to the "request completed" line of the
// current request. It is a no-op outside RequestLogger.
func Annotate(ctx context.Context, args ...any) {
	e, ok := ctx.Value(entryContextKey).(*entry)
	if !ok {
		return
	}
	e.mu.Lock()
	e.attrs = append(e.attrs, args...)
	e.mu.Unlock()
}

// RequestLogger logs request start and completion and stores a request-scoped
// logger in the context.
func RequestLogger(logger *Logger) func(next http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			start := time.Now()

			reqLogger := logger.WithFields(map[string]any{
				"request_id": middleware.GetReqID(r.Context()),
				"method":     r.Method,
				"path":       r.URL.Path,
				"remote_ip":  r.RemoteAddr,
			})
			reqLogger.Debug("request started")

			e := &entry{}
			ctx := context.WithValue(WithLogger(r.Context(), reqLogger), entryContextKey, e)
			ww := middleware.NewWrapResponseWriter(w, r.ProtoMajor)

			next.ServeHTTP(ww, r.WithContext(ctx))

			status := ww.Status()
			if status == 0 {
				status = http.StatusOK
			}

			level := slog.LevelInfo
			switch {
			case status >= 500:
				level = slog.LevelError
			case status >= 400:
				level = slog.LevelWarn
			}

			args := []any{
				"status", status,
				"bytes", ww.BytesWritten(),
				"duration_ms", time.Since(start).Milliseconds(),
			}
			if rctx := chi.RouteContext(r.Context()); rctx != nil && rctx.RoutePattern() != "" {
				args = append(args, "route", rctx.RoutePattern())
			}
			e.mu.Lock()
			args = append(args, e.attrs...)
			e.mu.Unlock()

			reqLogger.Log(r.Context(), level, "request completed", args...)
		})
	}
}

// WithLogger stores logger in ctx.
func WithLogger(ctx context.Context, logger *Logger) context.Context {
	return context.WithValue(ctx, LoggerContextKey, logger)
}

// GetLoggerFromContext retrieves the logger from the request context
func GetLoggerFromContext(ctx context.Context) *Logger {
	if logger, ok := ctx.Value(LoggerContextKey).(*Logger); ok {
		return logger
	}
	return defaultLogger
}

var defaultLogger = New(slog.Default())
