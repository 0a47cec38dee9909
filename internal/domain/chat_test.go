package domain_test

import (
	"context"
	"errors"
	"fmt"
	"io"
	"strings"
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"github.com/davidbz/creditline/internal/domain"
	"github.com/davidbz/creditline/internal/mocks"
	"github.com/davidbz/creditline/internal/store/memory"
)

const defaultModel = "gpt-4o-mini"

type chatFixture struct {
	service    *domain.ChatService
	ledger     *domain.Ledger
	calculator *mocks.MockCostCalculator
	recorder   *mocks.MockUsageRecorder
	upstream   *mocks.MockUpstream
}

func newChatFixture(t *testing.T) *chatFixture {
	t.Helper()

	ledger := domain.NewLedger(memory.NewBalanceStore(), nil)
	calculator := mocks.NewMockCostCalculator(t)
	recorder := mocks.NewMockUsageRecorder(t)
	upstream := mocks.NewMockUpstream(t)

	service := domain.NewChatService(ledger, calculator, recorder, upstream, domain.ChatOptions{
		DefaultModel:   defaultModel,
		DefaultBalance: dec("5"),
	})

	return &chatFixture{
		service:    service,
		ledger:     ledger,
		calculator: calculator,
		recorder:   recorder,
		upstream:   upstream,
	}
}

func userIdentity() domain.Identity {
	return domain.Identity{UserID: "u-1", Email: testUser}
}

func messages(n int) []domain.Message {
	out := make([]domain.Message, n)
	for i := range out {
		out[i] = domain.Message{Role: "user", Content: fmt.Sprintf("message %d", i)}
	}
	return out
}

func TestResolveModel(t *testing.T) {
	tests := []struct {
		name     string
		hint     string
		expected string
	}{
		{name: "empty hint uses default", hint: "", expected: defaultModel},
		{name: "whitespace hint uses default", hint: "   ", expected: defaultModel},
		{name: "unnamespaced hint uses default", hint: "gpt-4o", expected: defaultModel},
		{name: "namespaced hint is kept", hint: "openai/gpt-4o", expected: "openai/gpt-4o"},
		{name: "namespaced hint is trimmed", hint: " anthropic/claude-3.5-sonnet ", expected: "anthropic/claude-3.5-sonnet"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			require.Equal(t, tt.expected, domain.ResolveModel(tt.hint, defaultModel))
		})
	}
}

func TestValidateMessages(t *testing.T) {
	t.Run("should accept the maximum", func(t *testing.T) {
		out, err := domain.ValidateMessages(messages(domain.MaxMessages))
		require.NoError(t, err)
		require.Len(t, out, domain.MaxMessages)
	})

	t.Run("should reject one over the maximum", func(t *testing.T) {
		_, err := domain.ValidateMessages(messages(domain.MaxMessages + 1))
		require.ErrorIs(t, err, domain.ErrInvalidInput)
	})

	t.Run("should reject an empty conversation", func(t *testing.T) {
		_, err := domain.ValidateMessages(nil)
		require.ErrorIs(t, err, domain.ErrInvalidInput)
	})

	t.Run("should reject a message without role", func(t *testing.T) {
		_, err := domain.ValidateMessages([]domain.Message{{Role: " ", Content: "hi"}})
		require.ErrorIs(t, err, domain.ErrInvalidInput)
	})

	t.Run("should trim without touching the input", func(t *testing.T) {
		in := []domain.Message{{Role: " user ", Content: "  hello  "}}

		out, err := domain.ValidateMessages(in)
		require.NoError(t, err)
		require.Equal(t, domain.Message{Role: "user", Content: "hello"}, out[0])
		require.Equal(t, "  hello  ", in[0].Content)
	})
}

func TestChatService_Prepare(t *testing.T) {
	ctx := context.Background()

	t.Run("should reject too many messages before any balance read", func(t *testing.T) {
		f := newChatFixture(t)

		_, err := f.service.Prepare(ctx, userIdentity(), &domain.ChatRequest{Messages: messages(51)})
		require.ErrorIs(t, err, domain.ErrInvalidInput)
	})

	t.Run("should reject a balance below the namespaced estimate", func(t *testing.T) {
		f := newChatFixture(t)
		require.NoError(t, f.ledger.Provision(ctx, testUser, dec("0.003")))

		_, err := f.service.Prepare(ctx, userIdentity(), &domain.ChatRequest{
			Messages: messages(1),
			Model:    "openai/gpt-4o",
		})
		require.ErrorIs(t, err, domain.ErrInsufficientBalance)
	})

	t.Run("should fall back to the default model with a flat estimate", func(t *testing.T) {
		f := newChatFixture(t)
		require.NoError(t, f.service.Provision(ctx, userIdentity()))

		plan, err := f.service.Prepare(ctx, userIdentity(), &domain.ChatRequest{
			Messages:  messages(2),
			Model:     "gpt-4o",
			SessionID: "s-1",
		})
		require.NoError(t, err)
		require.Equal(t, defaultModel, plan.Model)
		require.True(t, domain.FlatUnit.Equal(plan.Estimate))
		require.True(t, dec("5").Equal(plan.Balance))
		require.True(t, plan.BalanceChecked)
		require.True(t, plan.Stream)
		require.Equal(t, "s-1", plan.SessionID)
	})

	t.Run("should skip the balance check for the development identity", func(t *testing.T) {
		f := newChatFixture(t)
		noStream := false

		plan, err := f.service.Prepare(ctx, domain.Identity{Email: "dev@localhost", Development: true}, &domain.ChatRequest{
			Messages: messages(1),
			Stream:   &noStream,
		})
		require.NoError(t, err)
		require.False(t, plan.BalanceChecked)
		require.False(t, plan.Stream)
	})

	t.Run("should report an unknown user", func(t *testing.T) {
		f := newChatFixture(t)

		_, err := f.service.Prepare(ctx, userIdentity(), &domain.ChatRequest{Messages: messages(1)})
		require.ErrorIs(t, err, domain.ErrUserNotFound)
	})
}

func TestChatService_Forward(t *testing.T) {
	ctx := context.Background()
	plan := &domain.ChatPlan{User: testUser, Model: defaultModel, Messages: messages(1), Stream: true}

	t.Run("should forward the plan", func(t *testing.T) {
		f := newChatFixture(t)
		resp := &domain.UpstreamResponse{StatusCode: 200, Body: io.NopCloser(strings.NewReader("data: [DONE]\n\n"))}

		f.upstream.EXPECT().
			Forward(mock.Anything, mock.MatchedBy(func(req *domain.UpstreamRequest) bool {
				return req.Model == defaultModel && req.Stream && len(req.Messages) == 1
			})).
			Return(resp, nil).
			Once()

		got, err := f.service.Forward(ctx, plan)
		require.NoError(t, err)
		require.Same(t, resp, got)
	})

	t.Run("should keep the upstream error matchable", func(t *testing.T) {
		f := newChatFixture(t)

		f.upstream.EXPECT().
			Forward(mock.Anything, mock.Anything).
			Return(nil, &domain.UpstreamError{Status: 502, Body: "bad gateway"}).
			Once()

		_, err := f.service.Forward(ctx, plan)
		require.ErrorIs(t, err, domain.ErrUpstream)

		var upstreamErr *domain.UpstreamError
		require.True(t, errors.As(err, &upstreamErr))
		require.Equal(t, 502, upstreamErr.Status)
	})

	t.Run("should keep timeouts matchable", func(t *testing.T) {
		f := newChatFixture(t)

		f.upstream.EXPECT().
			Forward(mock.Anything, mock.Anything).
			Return(nil, fmt.Errorf("%w after 45s", domain.ErrUpstreamTimeout)).
			Once()

		_, err := f.service.Forward(ctx, plan)
		require.ErrorIs(t, err, domain.ErrUpstreamTimeout)
	})
}

func TestChatService_Settle(t *testing.T) {
	ctx := context.Background()

	t.Run("should debit the priced cost and record usage", func(t *testing.T) {
		f := newChatFixture(t)
		require.NoError(t, f.ledger.Provision(ctx, testUser, dec("1")))

		usage := &domain.Usage{PromptTokens: 1000, CompletionTokens: 2000, TotalTokens: 3000}
		plan := &domain.ChatPlan{User: testUser, Model: "vendor/test-model", SessionID: "s-9"}

		f.calculator.EXPECT().
			Calculate(mock.Anything, "vendor/test-model", *usage).
			Return(dec("0.005"), nil).
			Once()
		f.recorder.EXPECT().
			Record(mock.Anything, mock.MatchedBy(func(rec *domain.UsageRecord) bool {
				return rec.User == testUser &&
					rec.Model == "vendor/test-model" &&
					rec.PromptTokens == 1000 &&
					rec.CompletionTokens == 2000 &&
					rec.Cost != nil && rec.Cost.Equal(dec("0.005")) &&
					rec.SessionID == "s-9" &&
					rec.ID != ""
			})).
			Return().
			Once()

		settlement, err := f.service.Settle(ctx, plan, usage)
		require.NoError(t, err)
		require.NotNil(t, settlement.Cost)
		require.True(t, dec("0.005").Equal(*settlement.Cost))
		require.True(t, dec("0.995").Equal(settlement.Remaining))
		require.True(t, dec("0.005").Equal(settlement.Consumed))
	})

	t.Run("should charge the flat unit when usage is unknown", func(t *testing.T) {
		f := newChatFixture(t)
		require.NoError(t, f.ledger.Provision(ctx, testUser, dec("5")))

		plan := &domain.ChatPlan{User: testUser, Model: defaultModel}

		f.recorder.EXPECT().
			Record(mock.Anything, mock.MatchedBy(func(rec *domain.UsageRecord) bool {
				return rec.Cost == nil && rec.PromptTokens == 0 && rec.CompletionTokens == 0
			})).
			Return().
			Once()

		settlement, err := f.service.Settle(ctx, plan, nil)
		require.NoError(t, err)
		require.Nil(t, settlement.Cost)
		require.True(t, dec("4").Equal(settlement.Remaining))
	})

	t.Run("should charge the flat unit when pricing is unknown", func(t *testing.T) {
		f := newChatFixture(t)
		require.NoError(t, f.ledger.Provision(ctx, testUser, dec("0.5")))

		usage := &domain.Usage{PromptTokens: 10, CompletionTokens: 10}
		plan := &domain.ChatPlan{User: testUser, Model: defaultModel}

		f.calculator.EXPECT().
			Calculate(mock.Anything, defaultModel, *usage).
			Return(decimal.Zero, domain.ErrPricingUnknown).
			Once()
		f.recorder.EXPECT().
			Record(mock.Anything, mock.Anything).
			Return().
			Once()

		settlement, err := f.service.Settle(ctx, plan, usage)
		require.NoError(t, err)
		require.Nil(t, settlement.Cost)
		require.True(t, settlement.Remaining.IsZero())
		require.True(t, dec("0.5").Equal(settlement.Consumed))
	})

	t.Run("should fail without recording when the balance is exhausted", func(t *testing.T) {
		f := newChatFixture(t)
		require.NoError(t, f.ledger.Provision(ctx, testUser, decimal.Zero))

		plan := &domain.ChatPlan{User: testUser, Model: defaultModel}

		_, err := f.service.Settle(ctx, plan, nil)
		require.ErrorIs(t, err, domain.ErrInsufficientBalance)
	})
}
