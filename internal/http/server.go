package http

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/davidbz/creditline/internal/config"
	"github.com/davidbz/creditline/internal/http/middleware"
	"github.com/davidbz/creditline/internal/observability"
	"github.com/davidbz/creditline/internal/upstream/echo"
)

const echoPrefix = "/_echo"

// Server represents the HTTP server.
type Server struct {
	config      config.ServerConfig
	development bool
	handler     *Handler
	middlewares middleware.Middleware
	srv         *http.Server
}

// NewServer creates a new HTTP server.
func NewServer(
	cfg *config.Config,
	handler *Handler,
	middlewares middleware.Middleware,
) *Server {
	return &Server{
		config:      cfg.Server,
		development: cfg.IsDevelopment(),
		handler:     handler,
		middlewares: middlewares,
		srv:         nil,
	}
}

// Routes builds the routed, middleware-wrapped handler.
func (s *Server) Routes() http.Handler {
	mux := http.NewServeMux()

	mux.HandleFunc("/api/chat", s.handler.HandleChat)
	mux.HandleFunc("/api/balance", s.handler.HandleBalance)
	mux.HandleFunc("/health", s.handler.HandleHealth)
	mux.Handle("/metrics", promhttp.Handler())

	if s.handler.payments != nil {
		mux.HandleFunc("/api/payments/checkout", s.handler.HandleCheckout)
		mux.HandleFunc("/api/payments/webhook", s.handler.HandlePaymentWebhook)
	}

	if s.development {
		mux.Handle(echoPrefix+"/", http.StripPrefix(echoPrefix, echo.NewHandler("")))
	}

	return s.middlewares(mux)
}

// Start starts the HTTP server.
func (s *Server) Start() error {
	s.srv = &http.Server{
		Addr:         fmt.Sprintf(":%d", s.config.Port),
		Handler:      s.Routes(),
		ReadTimeout:  time.Duration(s.config.ReadTimeout) * time.Second,
		WriteTimeout: time.Duration(s.config.WriteTimeout) * time.Second,
	}

	ctx := context.Background()
	observability.FromContext(ctx).Info("starting HTTP server",
		observability.Int("port", s.config.Port),
		observability.Bool("echo_upstream", s.development))

	if err := s.srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return fmt.Errorf("server failed: %w", err)
	}
	return nil
}

// Shutdown gracefully shuts down the server.
func (s *Server) Shutdown(ctx context.Context) error {
	observability.FromContext(ctx).Info("shutting down HTTP server")

	if s.srv == nil {
		return nil
	}

	if err := s.srv.Shutdown(ctx); err != nil {
		return fmt.Errorf("failed to shutdown server: %w", err)
	}

	return nil
}
