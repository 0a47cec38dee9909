package domain_test

import (
	"context"
	"errors"
	"math/rand"
	"sync"
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"github.com/davidbz/creditline/internal/domain"
	"github.com/davidbz/creditline/internal/mocks"
	"github.com/davidbz/creditline/internal/store/memory"
)

const testUser = "user@example.com"

func dec(s string) decimal.Decimal {
	return decimal.RequireFromString(s)
}

func newLedgerWithBalance(t *testing.T, balance string) *domain.Ledger {
	t.Helper()

	ledger := domain.NewLedger(memory.NewBalanceStore(), nil)
	require.NoError(t, ledger.Provision(context.Background(), testUser, dec(balance)))
	return ledger
}

func TestLedger_Debit(t *testing.T) {
	ctx := context.Background()

	tests := []struct {
		name        string
		balance     string
		amount      string
		expected    string
		expectedErr error
	}{
		{name: "subtracts when covered", balance: "5", amount: "1", expected: "4"},
		{name: "subtracts priced cost", balance: "1", amount: "0.005", expected: "0.995"},
		{name: "clamps at zero when amount exceeds balance", balance: "0.5", amount: "1", expected: "0"},
		{name: "exact balance reaches zero", balance: "1", amount: "1", expected: "0"},
		{name: "zero balance is insufficient", balance: "0", amount: "0.01", expectedErr: domain.ErrInsufficientBalance},
		{name: "zero balance is insufficient for zero amount", balance: "0", amount: "0", expectedErr: domain.ErrInsufficientBalance},
		{name: "negative amount is invalid", balance: "5", amount: "-1", expectedErr: domain.ErrInvalidInput},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			ledger := newLedgerWithBalance(t, tt.balance)

			change, err := ledger.Debit(ctx, testUser, dec(tt.amount))

			if tt.expectedErr != nil {
				require.ErrorIs(t, err, tt.expectedErr)

				balance, peekErr := ledger.Peek(ctx, testUser)
				require.NoError(t, peekErr)
				require.True(t, dec(tt.balance).Equal(balance), "balance must be unchanged on failure")
				return
			}

			require.NoError(t, err)
			require.True(t, dec(tt.balance).Equal(change.Previous))
			require.True(t, dec(tt.expected).Equal(change.New), "expected %s, got %s", tt.expected, change.New)
		})
	}
}

func TestLedger_Debit_UnknownUser(t *testing.T) {
	ledger := domain.NewLedger(memory.NewBalanceStore(), nil)

	_, err := ledger.Debit(context.Background(), "nobody@example.com", dec("1"))
	require.ErrorIs(t, err, domain.ErrUserNotFound)
}

func TestLedger_NeverNegative(t *testing.T) {
	ctx := context.Background()
	ledger := newLedgerWithBalance(t, "3")
	rng := rand.New(rand.NewSource(42))

	for range 500 {
		amount := decimal.NewFromInt(rng.Int63n(20000)).Div(decimal.NewFromInt(10000))

		switch rng.Intn(3) {
		case 0:
			_, err := ledger.Credit(ctx, testUser, amount.Add(dec("0.0001")))
			require.NoError(t, err)
		default:
			_, err := ledger.Debit(ctx, testUser, amount)
			if err != nil {
				require.ErrorIs(t, err, domain.ErrInsufficientBalance)
			}
		}

		balance, err := ledger.Peek(ctx, testUser)
		require.NoError(t, err)
		require.False(t, balance.IsNegative(), "balance went negative: %s", balance)
	}
}

func TestLedger_ConcurrentDebits(t *testing.T) {
	ctx := context.Background()
	ledger := newLedgerWithBalance(t, "1")

	var wg sync.WaitGroup
	var mu sync.Mutex
	failures := 0

	for range 150 {
		wg.Add(1)
		go func() {
			defer wg.Done()
			if _, err := ledger.Debit(ctx, testUser, dec("0.01")); err != nil {
				mu.Lock()
				failures++
				mu.Unlock()
			}
		}()
	}
	wg.Wait()

	balance, err := ledger.Peek(ctx, testUser)
	require.NoError(t, err)
	require.True(t, balance.IsZero(), "expected 0, got %s", balance)
	require.Equal(t, 50, failures)
}

func TestLedger_EnsureSufficient(t *testing.T) {
	ctx := context.Background()

	t.Run("should reject balance below estimate", func(t *testing.T) {
		ledger := newLedgerWithBalance(t, "0.003")

		balance, err := ledger.EnsureSufficient(ctx, testUser, domain.NamespacedEstimate)
		require.ErrorIs(t, err, domain.ErrInsufficientBalance)
		require.True(t, dec("0.003").Equal(balance))
	})

	t.Run("should accept balance equal to estimate", func(t *testing.T) {
		ledger := newLedgerWithBalance(t, "1")

		balance, err := ledger.EnsureSufficient(ctx, testUser, domain.FlatUnit)
		require.NoError(t, err)
		require.True(t, dec("1").Equal(balance))
	})

	t.Run("should not change the balance", func(t *testing.T) {
		ledger := newLedgerWithBalance(t, "2")

		_, err := ledger.EnsureSufficient(ctx, testUser, domain.FlatUnit)
		require.NoError(t, err)

		balance, err := ledger.Peek(ctx, testUser)
		require.NoError(t, err)
		require.True(t, dec("2").Equal(balance))
	})
}

func TestLedger_CreditAndSet(t *testing.T) {
	ctx := context.Background()

	t.Run("should add credits", func(t *testing.T) {
		ledger := newLedgerWithBalance(t, "0")

		change, err := ledger.Credit(ctx, testUser, dec("10"))
		require.NoError(t, err)
		require.True(t, dec("10").Equal(change.New))
	})

	t.Run("should reject non-positive credits", func(t *testing.T) {
		ledger := newLedgerWithBalance(t, "0")

		_, err := ledger.Credit(ctx, testUser, dec("0"))
		require.ErrorIs(t, err, domain.ErrInvalidInput)
	})

	t.Run("should hard-set the balance", func(t *testing.T) {
		ledger := newLedgerWithBalance(t, "3")

		change, err := ledger.Set(ctx, testUser, dec("42.5"))
		require.NoError(t, err)
		require.True(t, dec("3").Equal(change.Previous))
		require.True(t, dec("42.5").Equal(change.New))
	})

	t.Run("should reject negative set", func(t *testing.T) {
		ledger := newLedgerWithBalance(t, "3")

		_, err := ledger.Set(ctx, testUser, dec("-1"))
		require.ErrorIs(t, err, domain.ErrInvalidInput)
	})
}

func TestLedger_Provision(t *testing.T) {
	ctx := context.Background()
	ledger := domain.NewLedger(memory.NewBalanceStore(), nil)

	require.NoError(t, ledger.Provision(ctx, testUser, dec("5")))
	_, err := ledger.Debit(ctx, testUser, dec("1"))
	require.NoError(t, err)

	// A second provision must not reset the balance.
	require.NoError(t, ledger.Provision(ctx, testUser, dec("5")))

	balance, err := ledger.Peek(ctx, testUser)
	require.NoError(t, err)
	require.True(t, dec("4").Equal(balance))

	require.ErrorIs(t, ledger.Provision(ctx, "", dec("5")), domain.ErrInvalidInput)
}

func TestLedger_PublishesEvents(t *testing.T) {
	ctx := context.Background()
	events := mocks.NewMockEventPublisher(t)
	ledger := domain.NewLedger(memory.NewBalanceStore(), events)

	events.EXPECT().
		Publish(mock.Anything, "balance.provisioned", mock.Anything).
		Return().
		Once()
	events.EXPECT().
		Publish(mock.Anything, "balance.debited", mock.MatchedBy(func(data map[string]interface{}) bool {
			return data["user"] == testUser && data["previous"] == "5" && data["remaining"] == "4"
		})).
		Return().
		Once()

	require.NoError(t, ledger.Provision(ctx, testUser, dec("5")))
	_, err := ledger.Debit(ctx, testUser, dec("1"))
	require.NoError(t, err)
}

func TestLedger_StoreErrorsAreWrapped(t *testing.T) {
	ctx := context.Background()
	store := mocks.NewMockBalanceStore(t)
	ledger := domain.NewLedger(store, nil)
	storeErr := errors.New("connection reset")

	store.EXPECT().
		Update(mock.Anything, testUser, mock.Anything).
		Return(domain.BalanceChange{}, storeErr).
		Once()

	_, err := ledger.Debit(ctx, testUser, dec("1"))
	require.ErrorIs(t, err, storeErr)
	require.Contains(t, err.Error(), "debit failed")
}
