package domain

import (
	"context"
	"io"
	"net/http"

	"github.com/shopspring/decimal"
)

// UpdateFunc computes a new balance from the current one. Returning an error
// aborts the update and leaves the stored balance untouched.
type UpdateFunc func(current decimal.Decimal) (decimal.Decimal, error)

// BalanceStore persists per-user balances.
type BalanceStore interface {
	// Get returns the current balance or ErrUserNotFound.
	Get(ctx context.Context, user string) (decimal.Decimal, error)
	// Update applies fn to the current balance atomically for the user and
	// returns the previous and new values. ErrUserNotFound if absent.
	Update(ctx context.Context, user string, fn UpdateFunc) (BalanceChange, error)
	// Create inserts a record with the initial balance unless one exists.
	// It reports whether a record was created.
	Create(ctx context.Context, user string, initial decimal.Decimal) (bool, error)
}

// UsageStore persists usage records.
type UsageStore interface {
	// Insert appends a usage record.
	Insert(ctx context.Context, rec *UsageRecord) error
}

// UsageRecorder accepts usage records without blocking the caller.
type UsageRecorder interface {
	// Record schedules rec for storage. Failures are logged, never returned.
	Record(ctx context.Context, rec *UsageRecord)
}

// PaymentStore persists credited payments.
type PaymentStore interface {
	// InsertIfAbsent stores p and reports false when the session was already recorded.
	InsertIfAbsent(ctx context.Context, p *Payment) (bool, error)
	// Remove deletes the session's record so a failed credit can be retried.
	Remove(ctx context.Context, sessionID string) error
}

// Authenticator turns an Authorization header into an identity.
type Authenticator interface {
	// Authenticate validates the header value. Failures match ErrUnauthorized.
	Authenticate(ctx context.Context, authorization string) (Identity, error)
}

// UpstreamRequest is a validated conversation ready to be forwarded.
type UpstreamRequest struct {
	Model    string
	Messages []Message
	Stream   bool
	Params   GenerationParams
}

// UpstreamResponse is the raw upstream answer. The caller must close Body.
type UpstreamResponse struct {
	StatusCode int
	Header     http.Header
	Body       io.ReadCloser
}

// Upstream forwards conversations to the completion API.
type Upstream interface {
	// Forward sends req. Timeouts match ErrUpstreamTimeout and non-2xx
	// answers match ErrUpstream.
	Forward(ctx context.Context, req *UpstreamRequest) (*UpstreamResponse, error)
}

// EventPublisher publishes events for observability.
type EventPublisher interface {
	// Publish publishes an event with the given type and data.
	Publish(ctx context.Context, eventType string, data map[string]interface{})
}
