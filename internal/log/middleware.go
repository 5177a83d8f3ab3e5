package log

import (
	"context"
	"log/slog"
	"net/http"
)

const componentUnknown = "unknown"

type ctxKey struct{}

// WithLogger returns a copy of ctx carrying logger.
func WithLogger(ctx context.Context, logger *Logger) context.Context {
	return context.WithValue(ctx, ctxKey{}, logger)
}

// FromContext returns the logger stored by WithLogger. Without one it falls
// back to the slog default tagged with an "unknown" component.
func FromContext(ctx context.Context) *Logger {
	if logger, ok := ctx.Value(ctxKey{}).(*Logger); ok && logger != nil {
		return logger
	}
	return &Logger{Logger: slog.Default(), component: componentUnknown}
}

// Middleware puts logger into every request context. With a component the
// logger is re-tagged first, so handlers below log under that name.
func Middleware(logger *Logger, component ...string) func(http.Handler) http.Handler {
	if len(component) > 0 && component[0] != "" {
		logger = logger.WithComponent(component[0])
	}
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			next.ServeHTTP(w, r.WithContext(WithLogger(r.Context(), logger)))
		})
	}
}
