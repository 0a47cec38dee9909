package payment

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stripe/stripe-go/v84"
	"github.com/stripe/stripe-go/v84/webhook"

	"github.com/davidbz/creditline/internal/domain"
	"github.com/davidbz/creditline/internal/observability"
)

const (
	metadataEmail   = "email"
	metadataCredits = "credits"
	centsPerDollar  = 100
)

// Config contains payment processor settings.
type Config struct {
	SecretKey     string `env:"STRIPE_SECRET_KEY"`
	WebhookSecret string `env:"STRIPE_WEBHOOK_SECRET"`
	SuccessURL    string `env:"PAYMENT_SUCCESS_URL"     envDefault:"http://localhost:3000/payment/success"`
	CancelURL     string `env:"PAYMENT_CANCEL_URL"      envDefault:"http://localhost:3000/payment/cancel"`
	MinAmount     string `env:"PAYMENT_MIN_AMOUNT"      envDefault:"5"`
	CreditsPerUSD string `env:"PAYMENT_CREDITS_PER_USD" envDefault:"1"`
}

// Enabled reports whether checkout and webhook routes should be served.
func (c *Config) Enabled() bool {
	return strings.TrimSpace(c.SecretKey) != ""
}

// SessionCreator creates checkout sessions. *stripe.Client's
// V1CheckoutSessions satisfies it.
type SessionCreator interface {
	Create(ctx context.Context, params *stripe.CheckoutSessionCreateParams) (*stripe.CheckoutSession, error)
}

// Checkout is a created checkout session.
type Checkout struct {
	ID  string `json:"id"`
	URL string `json:"url"`
}

// WebhookResult describes what a webhook delivery did.
type WebhookResult struct {
	EventType string
	Credited  bool
	Duplicate bool
}

// Service creates checkouts and reconciles paid sessions into balances.
type Service struct {
	sessions      SessionCreator
	ledger        *domain.Ledger
	payments      domain.PaymentStore
	webhookSecret string
	successURL    string
	cancelURL     string
	minAmount     decimal.Decimal
	creditsPerUSD decimal.Decimal
}

// NewStripeSessions returns the checkout session service of a Stripe client.
func NewStripeSessions(cfg *Config) SessionCreator {
	return stripe.NewClient(cfg.SecretKey).V1CheckoutSessions
}

// NewService creates a payment service (DI constructor).
func NewService(
	cfg *Config,
	sessions SessionCreator,
	ledger *domain.Ledger,
	payments domain.PaymentStore,
) (*Service, error) {
	minAmount, err := domain.ParseAmount(cfg.MinAmount)
	if err != nil {
		return nil, fmt.Errorf("PAYMENT_MIN_AMOUNT: %w", err)
	}

	creditsPerUSD, err := domain.ParseAmount(cfg.CreditsPerUSD)
	if err != nil {
		return nil, fmt.Errorf("PAYMENT_CREDITS_PER_USD: %w", err)
	}

	return &Service{
		sessions:      sessions,
		ledger:        ledger,
		payments:      payments,
		webhookSecret: cfg.WebhookSecret,
		successURL:    cfg.SuccessURL,
		cancelURL:     cfg.CancelURL,
		minAmount:     minAmount,
		creditsPerUSD: creditsPerUSD,
	}, nil
}

// CreateCheckout opens a one-off card checkout for amount USD.
func (s *Service) CreateCheckout(ctx context.Context, email string, amount decimal.Decimal) (*Checkout, error) {
	if amount.LessThan(s.minAmount) {
		return nil, domain.InvalidInput("amount must be at least %s", s.minAmount)
	}

	cents := amount.Mul(decimal.NewFromInt(centsPerDollar)).Round(0).IntPart()
	credits := domain.RoundCost(amount.Mul(s.creditsPerUSD))

	params := &stripe.CheckoutSessionCreateParams{
		CustomerEmail:      stripe.String(email),
		PaymentMethodTypes: []*string{stripe.String("card")},
		LineItems: []*stripe.CheckoutSessionCreateLineItemParams{
			{
				PriceData: &stripe.CheckoutSessionCreateLineItemPriceDataParams{
					Currency: stripe.String(string(stripe.CurrencyUSD)),
					ProductData: &stripe.CheckoutSessionCreateLineItemPriceDataProductDataParams{
						Name:        stripe.String("Credit top-up"),
						Description: stripe.String(fmt.Sprintf("%s credits", credits)),
					},
					UnitAmount: stripe.Int64(cents),
				},
				Quantity: stripe.Int64(1),
			},
		},
		Mode:       stripe.String(string(stripe.CheckoutSessionModePayment)),
		SuccessURL: stripe.String(s.successURL),
		CancelURL:  stripe.String(s.cancelURL),
		Metadata: map[string]string{
			metadataEmail:   email,
			metadataCredits: credits.String(),
		},
	}

	session, err := s.sessions.Create(ctx, params)
	if err != nil {
		return nil, fmt.Errorf("failed to create checkout session: %w", err)
	}

	observability.FromContext(ctx).Info("checkout session created",
		observability.String("session_id", session.ID),
		observability.Stringer("credits", credits))

	return &Checkout{ID: session.ID, URL: session.URL}, nil
}

type checkoutSession struct {
	ID            string            `json:"id"`
	PaymentStatus string            `json:"payment_status"`
	Metadata      map[string]string `json:"metadata"`
}

// HandleWebhook verifies a processor event and credits paid checkouts once.
func (s *Service) HandleWebhook(ctx context.Context, payload []byte, signature string) (WebhookResult, error) {
	event, err := webhook.ConstructEventWithOptions(payload, signature, s.webhookSecret,
		webhook.ConstructEventOptions{IgnoreAPIVersionMismatch: true})
	if err != nil {
		return WebhookResult{}, fmt.Errorf("%w: webhook signature verification failed: %w", domain.ErrInvalidInput, err)
	}

	result := WebhookResult{EventType: string(event.Type)}
	if event.Type != stripe.EventTypeCheckoutSessionCompleted {
		return result, nil
	}

	var session checkoutSession
	if err := json.Unmarshal(event.Data.Raw, &session); err != nil {
		return result, fmt.Errorf("%w: failed to parse checkout session: %w", domain.ErrInvalidInput, err)
	}

	logger := observability.FromContext(ctx)
	if session.PaymentStatus != string(stripe.CheckoutSessionPaymentStatusPaid) {
		logger.Info("checkout completed without payment, ignoring",
			observability.String("session_id", session.ID),
			observability.String("payment_status", session.PaymentStatus))
		return result, nil
	}

	email := strings.ToLower(strings.TrimSpace(session.Metadata[metadataEmail]))
	if email == "" {
		return result, domain.InvalidInput("checkout session %s has no email", session.ID)
	}

	credits, err := domain.ParseAmount(session.Metadata[metadataCredits])
	if err != nil || !credits.IsPositive() {
		return result, domain.InvalidInput("checkout session %s has no credit amount", session.ID)
	}

	inserted, err := s.payments.InsertIfAbsent(ctx, &domain.Payment{
		SessionID: session.ID,
		User:      email,
		Amount:    credits,
		Status:    session.PaymentStatus,
		CreatedAt: time.Now().UTC(),
	})
	if err != nil {
		return result, err
	}

	if !inserted {
		logger.Info("checkout session already credited",
			observability.String("session_id", session.ID))
		result.Duplicate = true
		return result, nil
	}

	if _, err := s.ledger.Credit(ctx, email, credits); err != nil {
		if rmErr := s.payments.Remove(ctx, session.ID); rmErr != nil {
			logger.Error("failed to roll back payment record",
				observability.String("session_id", session.ID),
				observability.Error(rmErr))
		}
		return result, err
	}

	result.Credited = true
	return result, nil
}
