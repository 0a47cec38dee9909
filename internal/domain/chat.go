package domain

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/davidbz/creditline/internal/observability"
)

// ChatOptions holds the chat settings fixed at startup.
type ChatOptions struct {
	DefaultModel   string
	DefaultBalance decimal.Decimal
}

// ChatPlan is a validated chat request, ready to be forwarded and settled.
type ChatPlan struct {
	User      string
	Model     string
	Messages  []Message
	Stream    bool
	Params    GenerationParams
	SessionID string
	// Estimate is the nominal pre-flight charge.
	Estimate decimal.Decimal
	// Balance is the balance seen before forwarding (zero when the check was skipped).
	Balance decimal.Decimal
	// BalanceChecked is false for the development identity.
	BalanceChecked bool
}

// Settlement is the outcome of billing a completed request.
type Settlement struct {
	// Cost is nil when the flat unit was charged instead of a priced cost.
	Cost *decimal.Decimal
	// Consumed is what the debit actually removed from the balance.
	Consumed  decimal.Decimal
	Remaining decimal.Decimal
	Usage     *Usage
}

// ChatService coordinates validation, forwarding and settlement of metered chats.
type ChatService struct {
	ledger         *Ledger
	costCalculator CostCalculator
	recorder       UsageRecorder
	upstream       Upstream
	options        ChatOptions
}

// NewChatService creates a new chat service (DI constructor).
func NewChatService(
	ledger *Ledger,
	costCalculator CostCalculator,
	recorder UsageRecorder,
	upstream Upstream,
	options ChatOptions,
) *ChatService {
	return &ChatService{
		ledger:         ledger,
		costCalculator: costCalculator,
		recorder:       recorder,
		upstream:       upstream,
		options:        options,
	}
}

// ResolveModel picks the model actually sent upstream. Namespaced hints are
// used verbatim; anything else silently falls back to the default.
func ResolveModel(hint, defaultModel string) string {
	hint = strings.TrimSpace(hint)
	if hint == "" || !IsNamespaced(hint) {
		return defaultModel
	}
	return hint
}

// ValidateMessages enforces the 1..MaxMessages bound and trims content.
// It returns a trimmed copy; the input is not modified.
func ValidateMessages(messages []Message) ([]Message, error) {
	if len(messages) == 0 {
		return nil, InvalidInput("messages must be a non-empty array")
	}

	if len(messages) > MaxMessages {
		return nil, InvalidInput("too many messages: %d (max %d)", len(messages), MaxMessages)
	}

	trimmed := make([]Message, len(messages))
	for i, msg := range messages {
		role := strings.TrimSpace(msg.Role)
		if role == "" {
			return nil, InvalidInput("message %d has no role", i)
		}
		trimmed[i] = Message{Role: role, Content: strings.TrimSpace(msg.Content)}
	}

	return trimmed, nil
}

// Provision creates the caller's balance record on first sight.
func (s *ChatService) Provision(ctx context.Context, id Identity) error {
	return s.ledger.Provision(ctx, id.Email, s.options.DefaultBalance)
}

// Prepare validates the request and runs the advisory balance check.
// The development identity skips the check.
func (s *ChatService) Prepare(ctx context.Context, id Identity, req *ChatRequest) (*ChatPlan, error) {
	if req == nil {
		return nil, InvalidInput("request cannot be nil")
	}

	messages, err := ValidateMessages(req.Messages)
	if err != nil {
		return nil, err
	}

	model := ResolveModel(req.Model, s.options.DefaultModel)
	if req.Model != "" && model != strings.TrimSpace(req.Model) {
		observability.FromContext(ctx).Info("requested model replaced by default",
			observability.String("requested_model", req.Model),
			observability.String("effective_model", model))
	}

	plan := &ChatPlan{
		User:      id.Email,
		Model:     model,
		Messages:  messages,
		Stream:    req.Streaming(),
		Params:    req.GenerationParams,
		SessionID: req.SessionID,
		Estimate:  EstimateCost(model),
	}

	if id.Development {
		return plan, nil
	}

	balance, err := s.ledger.EnsureSufficient(ctx, id.Email, plan.Estimate)
	if err != nil {
		return nil, err
	}

	plan.Balance = balance
	plan.BalanceChecked = true

	return plan, nil
}

// Forward sends the plan's conversation upstream.
func (s *ChatService) Forward(ctx context.Context, plan *ChatPlan) (*UpstreamResponse, error) {
	if plan == nil {
		return nil, errors.New("plan cannot be nil")
	}

	start := time.Now()
	resp, err := s.upstream.Forward(ctx, &UpstreamRequest{
		Model:    plan.Model,
		Messages: plan.Messages,
		Stream:   plan.Stream,
		Params:   plan.Params,
	})

	outcome := "ok"
	switch {
	case errors.Is(err, ErrUpstreamTimeout):
		outcome = "timeout"
	case err != nil:
		outcome = "error"
	}
	observability.RecordUpstreamLatency(plan.Stream, outcome, time.Since(start).Seconds())

	if err != nil {
		return nil, fmt.Errorf("forward failed: %w", err)
	}

	return resp, nil
}

// Charge returns what a request should cost: the priced cost when usage was
// reported for a priced namespaced model, otherwise nil and the flat unit.
func (s *ChatService) Charge(ctx context.Context, model string, usage *Usage) (*decimal.Decimal, decimal.Decimal) {
	if usage == nil {
		return nil, FlatUnit
	}

	cost, err := s.costCalculator.Calculate(ctx, model, *usage)
	if err != nil {
		return nil, FlatUnit
	}

	return &cost, cost
}

// Settle debits the request's cost and records usage in the background.
func (s *ChatService) Settle(ctx context.Context, plan *ChatPlan, usage *Usage) (*Settlement, error) {
	if plan == nil {
		return nil, errors.New("plan cannot be nil")
	}

	logger := observability.FromContext(ctx)

	cost, charge := s.Charge(ctx, plan.Model, usage)
	observability.RecordSettlement(cost != nil)

	change, err := s.ledger.Debit(ctx, plan.User, charge)
	if err != nil {
		logger.Warn("settlement debit failed",
			observability.Stringer("charge", charge),
			observability.Error(err))
		return nil, err
	}

	settlement := &Settlement{
		Cost:      cost,
		Consumed:  change.Moved(),
		Remaining: change.New,
		Usage:     usage,
	}

	rec := &UsageRecord{
		ID:        uuid.New().String(),
		User:      plan.User,
		Model:     plan.Model,
		Cost:      cost,
		SessionID: plan.SessionID,
		CreatedAt: time.Now().UTC(),
	}
	if usage != nil {
		rec.PromptTokens = usage.PromptTokens
		rec.CompletionTokens = usage.CompletionTokens
		observability.RecordTokens(usage.PromptTokens, usage.CompletionTokens)
	}
	s.recorder.Record(ctx, rec)

	logger.Info("request settled",
		observability.Stringer("charge", charge),
		observability.Stringer("consumed", settlement.Consumed),
		observability.Stringer("remaining", settlement.Remaining),
		observability.Bool("priced", cost != nil))

	return settlement, nil
}
