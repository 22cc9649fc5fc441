package middleware

import (
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/josh-kwaku/sarafi-settlement/internal/logging"
	"github.com/josh-kwaku/sarafi-settlement/internal/tenant"
)

type accessRecorder struct {
	http.ResponseWriter
	status int
	bytes  int
}

func (r *accessRecorder) WriteHeader(code int) {
	r.status = code
	r.ResponseWriter.WriteHeader(code)
}

func (r *accessRecorder) Write(b []byte) (int, error) {
	n, err := r.ResponseWriter.Write(b)
	r.bytes += n
	return n, err
}

func quiet(path string) bool {
	return strings.HasPrefix(path, "/health") || strings.HasPrefix(path, "/docs")
}

// Logging attaches a request scoped logger to the context and writes one
// access line per request. Probe and docs traffic is not logged.
func Logging(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		ctx := r.Context()
		attrs := []any{"request_id", RequestIDFromContext(ctx)}
		if tenantID, ok := tenant.IDFromContext(ctx); ok {
			attrs = append(attrs, "tenant_id", tenantID, "operator", tenant.OperatorFromContext(ctx))
		}
		logger := slog.Default().With(attrs...)
		r = r.WithContext(logging.WithLogger(ctx, logger))

		if quiet(r.URL.Path) {
			next.ServeHTTP(w, r)
			return
		}

		start := time.Now()
		rec := &accessRecorder{ResponseWriter: w, status: http.StatusOK}
		next.ServeHTTP(rec, r)

		level := slog.LevelInfo
		switch {
		case rec.status >= http.StatusInternalServerError:
			level = slog.LevelError
		case rec.status == http.StatusConflict || rec.status == http.StatusUnprocessableEntity:
			level = slog.LevelWarn
		}
		logger.Log(r.Context(), level, "request completed",
			"method", r.Method,
			"path", r.URL.Path,
			"status", rec.status,
			"bytes", rec.bytes,
			"duration_ms", time.Since(start).Milliseconds(),
		)
	})
}
