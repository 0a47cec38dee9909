package memory_test

import (
	"context"
	"errors"
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/require"

	"github.com/davidbz/creditline/internal/domain"
	"github.com/davidbz/creditline/internal/store/memory"
)

func TestBalanceStore(t *testing.T) {
	ctx := context.Background()

	t.Run("should report unknown users", func(t *testing.T) {
		store := memory.NewBalanceStore()

		_, err := store.Get(ctx, "a@example.com")
		require.ErrorIs(t, err, domain.ErrUserNotFound)

		_, err = store.Update(ctx, "a@example.com", func(cur decimal.Decimal) (decimal.Decimal, error) {
			return cur, nil
		})
		require.ErrorIs(t, err, domain.ErrUserNotFound)
	})

	t.Run("should create once", func(t *testing.T) {
		store := memory.NewBalanceStore()

		created, err := store.Create(ctx, "a@example.com", decimal.NewFromInt(5))
		require.NoError(t, err)
		require.True(t, created)

		created, err = store.Create(ctx, "a@example.com", decimal.NewFromInt(9))
		require.NoError(t, err)
		require.False(t, created)

		balance, err := store.Get(ctx, "a@example.com")
		require.NoError(t, err)
		require.True(t, decimal.NewFromInt(5).Equal(balance))
	})

	t.Run("should leave the balance untouched when fn fails", func(t *testing.T) {
		store := memory.NewBalanceStore()
		_, err := store.Create(ctx, "a@example.com", decimal.NewFromInt(5))
		require.NoError(t, err)

		boom := errors.New("boom")
		_, err = store.Update(ctx, "a@example.com", func(decimal.Decimal) (decimal.Decimal, error) {
			return decimal.Zero, boom
		})
		require.ErrorIs(t, err, boom)

		balance, err := store.Get(ctx, "a@example.com")
		require.NoError(t, err)
		require.True(t, decimal.NewFromInt(5).Equal(balance))
	})
}

func TestUsageStore_Records(t *testing.T) {
	ctx := context.Background()
	store := memory.NewUsageStore()

	require.NoError(t, store.Insert(ctx, &domain.UsageRecord{ID: "1", User: "a@example.com"}))
	require.NoError(t, store.Insert(ctx, &domain.UsageRecord{ID: "2", User: "b@example.com"}))

	records := store.Records()
	require.Len(t, records, 2)
	require.Equal(t, "1", records[0].ID)
	require.Equal(t, "b@example.com", records[1].User)
}

func TestPaymentStore(t *testing.T) {
	ctx := context.Background()
	store := memory.NewPaymentStore()
	payment := &domain.Payment{SessionID: "cs_1", User: "a@example.com", Amount: decimal.NewFromInt(10)}

	inserted, err := store.InsertIfAbsent(ctx, payment)
	require.NoError(t, err)
	require.True(t, inserted)

	inserted, err = store.InsertIfAbsent(ctx, payment)
	require.NoError(t, err)
	require.False(t, inserted)

	require.NoError(t, store.Remove(ctx, "cs_1"))

	inserted, err = store.InsertIfAbsent(ctx, payment)
	require.NoError(t, err)
	require.True(t, inserted)
}
