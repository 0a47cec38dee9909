package middleware

import (
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/davidbz/creditline/internal/observability"
)

// statusRecorder captures the status code while keeping the writer flushable.
type statusRecorder struct {
	http.ResponseWriter
	status int
}

func (r *statusRecorder) WriteHeader(code int) {
	if r.status == 0 {
		r.status = code
	}
	r.ResponseWriter.WriteHeader(code)
}

func (r *statusRecorder) Write(b []byte) (int, error) {
	if r.status == 0 {
		r.status = http.StatusOK
	}
	return r.ResponseWriter.Write(b)
}

// Flush forwards to the underlying writer so SSE relays keep working.
func (r *statusRecorder) Flush() {
	if f, ok := r.ResponseWriter.(http.Flusher); ok {
		f.Flush()
	}
}

// Unwrap lets http.ResponseController reach the underlying writer.
func (r *statusRecorder) Unwrap() http.ResponseWriter {
	return r.ResponseWriter
}

// routeLabel keeps the metric cardinality bounded.
func routeLabel(path string) string {
	switch {
	case strings.HasPrefix(path, "/api/"), path == "/health":
		return path
	case strings.HasPrefix(path, "/_echo/"):
		return "/_echo"
	default:
		return "other"
	}
}

// Metrics records request counts per route and status, and logs completion.
func Metrics() Middleware {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			start := time.Now()
			rec := &statusRecorder{ResponseWriter: w}

			next.ServeHTTP(rec, r)

			status := rec.status
			if status == 0 {
				status = http.StatusOK
			}

			observability.RecordHTTPRequest(routeLabel(r.URL.Path), strconv.Itoa(status))
			observability.FromContext(r.Context()).Info("request completed",
				observability.Int("status", status),
				observability.Duration("duration", time.Since(start)))
		})
	}
}
