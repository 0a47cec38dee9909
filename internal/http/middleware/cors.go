package middleware

import (
	"context"
	"net/http"
	"slices"

	"github.com/rs/cors"

	"github.com/davidbz/creditline/internal/config"
	"github.com/davidbz/creditline/internal/observability"
)

// CORS applies the configured cross-origin policy with rs/cors. Credentials
// are never allowed together with a wildcard origin, since rs/cors would
// then reflect any origin back with credentials.
func CORS(cfg *config.CORSConfig) Middleware {
	if cfg == nil {
		return func(next http.Handler) http.Handler {
			return next
		}
	}

	allowCredentials := cfg.AllowCredentials
	if allowCredentials && slices.Contains(cfg.AllowedOrigins, "*") {
		observability.FromContext(context.Background()).Warn("CORS_ALLOW_CREDENTIALS ignored with a wildcard origin")
		allowCredentials = false
	}

	c := cors.New(cors.Options{
		AllowedOrigins:   cfg.AllowedOrigins,
		AllowedMethods:   cfg.AllowedMethods,
		AllowedHeaders:   cfg.AllowedHeaders,
		ExposedHeaders:   cfg.ExposedHeaders,
		AllowCredentials: allowCredentials,
		MaxAge:           cfg.MaxAge,
	})

	return c.Handler
}
