package main

import (
	"context"
	"errors"
	"fmt"
	"log"
	"os"
	"os/signal"
	"syscall"
	"time"

	"go.uber.org/dig"
	"go.uber.org/zap"

	"github.com/davidbz/creditline/internal/auth"
	"github.com/davidbz/creditline/internal/config"
	"github.com/davidbz/creditline/internal/domain"
	"github.com/davidbz/creditline/internal/http"
	"github.com/davidbz/creditline/internal/http/middleware"
	"github.com/davidbz/creditline/internal/observability"
	"github.com/davidbz/creditline/internal/payment"
	"github.com/davidbz/creditline/internal/store"
	"github.com/davidbz/creditline/internal/upstream"
	"github.com/davidbz/creditline/internal/usage"
)

const shutdownTimeout = 30 * time.Second

// Stores exposes the opened store set to the container.
type Stores struct {
	dig.Out

	Set      *store.Set
	Balances domain.BalanceStore
	Usage    domain.UsageStore
	Payments domain.PaymentStore
}

func main() {
	container := buildContainer()

	err := container.Invoke(func(
		server *http.Server,
		recorder *usage.Recorder,
		stores *store.Set,
		logger *zap.Logger,
	) {
		defer func() { _ = logger.Sync() }()

		errCh := make(chan error, 1)
		go func() {
			errCh <- server.Start()
		}()

		stop := make(chan os.Signal, 1)
		signal.Notify(stop, syscall.SIGINT, syscall.SIGTERM)

		select {
		case err := <-errCh:
			if err != nil {
				log.Fatalf("Server failed to start: %v", err)
			}
			return
		case sig := <-stop:
			logger.Info("shutdown signal received", zap.String("signal", sig.String()))
		}

		ctx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
		defer cancel()

		if err := server.Shutdown(ctx); err != nil {
			logger.Error("server shutdown failed", zap.Error(err))
		}
		if err := recorder.Close(ctx); err != nil {
			logger.Error("usage recorder did not drain", zap.Error(err))
		}
		if err := stores.Close(); err != nil {
			logger.Error("failed to close stores", zap.Error(err))
		}
	})
	if err != nil {
		log.Fatalf("Failed to start application: %v", err)
	}
}

func buildContainer() *dig.Container {
	container := dig.New()

	// Configuration
	if err := container.Provide(config.Load); err != nil {
		log.Fatalf("Failed to provide config: %v", err)
	}
	if err := container.Provide(config.ParseDependenciesConfig); err != nil {
		log.Fatalf("Failed to provide config dependencies: %v", err)
	}
	if err := container.Invoke(func(cfg *config.Config) error {
		return cfg.Validate()
	}); err != nil {
		log.Fatalf("Invalid configuration: %v", err)
	}

	// Observability
	if err := container.Provide(observability.InitLogger); err != nil {
		log.Fatalf("Failed to provide logger: %v", err)
	}
	if err := container.Invoke(func(*zap.Logger) {}); err != nil {
		log.Fatalf("Failed to initialize logger: %v", err)
	}
	if err := container.Provide(func() domain.EventPublisher {
		return observability.NewEventBus()
	}); err != nil {
		log.Fatalf("Failed to provide event bus: %v", err)
	}

	// Persistence
	if err := container.Provide(provideStores); err != nil {
		log.Fatalf("Failed to provide stores: %v", err)
	}

	// Pricing
	if err := container.Provide(config.NewPricingRegistry); err != nil {
		log.Fatalf("Failed to provide pricing registry: %v", err)
	}
	if err := container.Provide(func(registry domain.PricingRegistry) domain.CostCalculator {
		return domain.NewStandardCostCalculator(registry)
	}); err != nil {
		log.Fatalf("Failed to provide cost calculator: %v", err)
	}

	// Usage recording
	if err := container.Provide(usage.NewRecorder); err != nil {
		log.Fatalf("Failed to provide usage recorder: %v", err)
	}
	if err := container.Provide(func(r *usage.Recorder) domain.UsageRecorder {
		return r
	}); err != nil {
		log.Fatalf("Failed to provide usage recorder interface: %v", err)
	}

	// Authentication
	if err := container.Provide(auth.NewAuthenticator); err != nil {
		log.Fatalf("Failed to provide authenticator: %v", err)
	}
	if err := container.Provide(func(a *auth.Authenticator) http.Authorizer {
		return a
	}); err != nil {
		log.Fatalf("Failed to provide authorizer: %v", err)
	}

	// Upstream
	if err := container.Provide(func(cfg *upstream.Config) domain.Upstream {
		return upstream.NewClient(cfg)
	}); err != nil {
		log.Fatalf("Failed to provide upstream client: %v", err)
	}

	// Domain Services
	if err := container.Provide(domain.NewLedger); err != nil {
		log.Fatalf("Failed to provide ledger: %v", err)
	}
	if err := container.Provide(provideChatOptions); err != nil {
		log.Fatalf("Failed to provide chat options: %v", err)
	}
	if err := container.Provide(domain.NewChatService); err != nil {
		log.Fatalf("Failed to provide chat service: %v", err)
	}

	// Payments
	if err := container.Provide(providePayments); err != nil {
		log.Fatalf("Failed to provide payment service: %v", err)
	}

	// HTTP Layer
	if err := container.Provide(middleware.BuildMiddlewareChain); err != nil {
		log.Fatalf("Failed to provide middleware chain: %v", err)
	}
	if err := container.Provide(http.NewHandler); err != nil {
		log.Fatalf("Failed to provide HTTP handler: %v", err)
	}
	if err := container.Provide(http.NewServer); err != nil {
		log.Fatalf("Failed to provide HTTP server: %v", err)
	}

	return container
}

func provideStores(cfg *config.LedgerConfig) (Stores, error) {
	set, err := store.Open(cfg)
	if err != nil {
		return Stores{}, err
	}

	return Stores{
		Set:      set,
		Balances: set.Balances,
		Usage:    set.Usage,
		Payments: set.Payments,
	}, nil
}

func provideChatOptions(upstreamCfg *upstream.Config, ledgerCfg *config.LedgerConfig) (domain.ChatOptions, error) {
	balance, err := domain.ParseAmount(ledgerCfg.DefaultBalance)
	if err != nil {
		return domain.ChatOptions{}, fmt.Errorf("LEDGER_DEFAULT_BALANCE: %w", err)
	}

	return domain.ChatOptions{
		DefaultModel:   upstreamCfg.DefaultModel,
		DefaultBalance: balance,
	}, nil
}

// providePayments returns a nil service when no processor key is set, which
// leaves the payment routes unregistered.
func providePayments(
	cfg *payment.Config,
	ledger *domain.Ledger,
	payments domain.PaymentStore,
) (*payment.Service, error) {
	if !cfg.Enabled() {
		observability.FromContext(context.Background()).Info("payments disabled: STRIPE_SECRET_KEY not set")
		return nil, nil
	}

	if cfg.WebhookSecret == "" {
		return nil, errors.New("STRIPE_WEBHOOK_SECRET is required when payments are enabled")
	}

	return payment.NewService(cfg, payment.NewStripeSessions(cfg), ledger, payments)
}
