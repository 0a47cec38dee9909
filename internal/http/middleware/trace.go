package middleware

import (
	"net/http"

	"github.com/google/uuid"

	"github.com/davidbz/creditline/internal/observability"
)

const (
	headerTraceID   = "X-Trace-Id"
	headerRequestID = "X-Request-Id"
)

// Trace attaches trace, span and request ids to the request context and
// echoes them in the response. A caller-supplied X-Request-Id is kept when it
// is a UUID so client and server logs can be joined.
func Trace() Middleware {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			requestID := r.Header.Get(headerRequestID)
			if _, err := uuid.Parse(requestID); err != nil {
				requestID = observability.GenerateRequestID()
			}
			traceID := observability.GenerateTraceID()

			ctx := observability.WithTraceID(r.Context(), traceID)
			ctx = observability.WithSpanID(ctx, observability.GenerateSpanID())
			ctx = observability.WithRequestID(ctx, requestID)

			w.Header().Set(headerTraceID, traceID)
			w.Header().Set(headerRequestID, requestID)

			observability.FromContext(ctx).Debug("request started",
				observability.String("method", r.Method),
				observability.String("path", r.URL.Path),
				observability.String("remote_addr", r.RemoteAddr))

			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}
