package domain

import (
	"context"
	"fmt"

	"github.com/shopspring/decimal"

	"github.com/davidbz/creditline/internal/observability"
)

// Ledger applies balance rules on top of a BalanceStore.
//
// Every mutation is a read-modify-write executed by the store atomically per
// user, so concurrent debits for the same user serialize instead of racing.
type Ledger struct {
	store  BalanceStore
	events EventPublisher
}

// NewLedger creates a ledger (DI constructor). events may be nil.
func NewLedger(store BalanceStore, events EventPublisher) *Ledger {
	return &Ledger{
		store:  store,
		events: events,
	}
}

// Peek returns the user's balance without changing it.
func (l *Ledger) Peek(ctx context.Context, user string) (decimal.Decimal, error) {
	if user == "" {
		return decimal.Zero, InvalidInput("user cannot be empty")
	}

	balance, err := l.store.Get(ctx, user)
	if err != nil {
		return decimal.Zero, fmt.Errorf("failed to read balance: %w", err)
	}

	return balance, nil
}

// EnsureSufficient is an advisory pre-flight check: it neither locks nor
// reserves. It returns the balance it observed.
func (l *Ledger) EnsureSufficient(
	ctx context.Context,
	user string,
	estimated decimal.Decimal,
) (decimal.Decimal, error) {
	balance, err := l.Peek(ctx, user)
	if err != nil {
		return decimal.Zero, err
	}

	if balance.LessThan(estimated) {
		return balance, fmt.Errorf("%w: balance %s below estimated cost %s",
			ErrInsufficientBalance, balance, estimated)
	}

	return balance, nil
}

// Debit charges amount, clamping the result at zero. It fails only when the
// balance is already exhausted, so a user may be charged less than amount but
// never driven negative.
func (l *Ledger) Debit(ctx context.Context, user string, amount decimal.Decimal) (BalanceChange, error) {
	if amount.IsNegative() {
		return BalanceChange{}, InvalidInput("debit amount %s is negative", amount)
	}

	change, err := l.update(ctx, "debit", user, func(current decimal.Decimal) (decimal.Decimal, error) {
		if !current.IsPositive() {
			return current, ErrInsufficientBalance
		}
		return decimal.Max(decimal.Zero, current.Sub(amount)), nil
	})
	if err != nil {
		return BalanceChange{}, err
	}

	l.publish(ctx, "balance.debited", user, change, amount)
	return change, nil
}

// Credit adds amount to the balance. Used by payment reconciliation.
func (l *Ledger) Credit(ctx context.Context, user string, amount decimal.Decimal) (BalanceChange, error) {
	if !amount.IsPositive() {
		return BalanceChange{}, InvalidInput("credit amount %s must be positive", amount)
	}

	change, err := l.update(ctx, "credit", user, func(current decimal.Decimal) (decimal.Decimal, error) {
		return current.Add(amount), nil
	})
	if err != nil {
		return BalanceChange{}, err
	}

	l.publish(ctx, "balance.credited", user, change, amount)
	return change, nil
}

// Set overwrites the balance. Administrative reset only.
func (l *Ledger) Set(ctx context.Context, user string, remaining decimal.Decimal) (BalanceChange, error) {
	if remaining.IsNegative() {
		return BalanceChange{}, InvalidInput("balance %s is negative", remaining)
	}

	change, err := l.update(ctx, "set", user, func(_ decimal.Decimal) (decimal.Decimal, error) {
		return remaining, nil
	})
	if err != nil {
		return BalanceChange{}, err
	}

	l.publish(ctx, "balance.set", user, change, remaining)
	return change, nil
}

// Provision creates the user's record with initial balance unless it exists.
func (l *Ledger) Provision(ctx context.Context, user string, initial decimal.Decimal) error {
	if user == "" {
		return InvalidInput("user cannot be empty")
	}

	created, err := l.store.Create(ctx, user, initial)
	if err != nil {
		return fmt.Errorf("failed to provision balance: %w", err)
	}

	if created {
		l.publish(ctx, "balance.provisioned", user, BalanceChange{New: initial}, initial)
	}

	return nil
}

func (l *Ledger) update(ctx context.Context, operation, user string, fn UpdateFunc) (BalanceChange, error) {
	if user == "" {
		return BalanceChange{}, InvalidInput("user cannot be empty")
	}

	change, err := l.store.Update(ctx, user, fn)
	observability.RecordLedgerOperation(operation, err, change.Moved().InexactFloat64())
	if err != nil {
		return BalanceChange{}, fmt.Errorf("%s failed: %w", operation, err)
	}

	return change, nil
}

func (l *Ledger) publish(
	ctx context.Context,
	eventType, user string,
	change BalanceChange,
	requested decimal.Decimal,
) {
	if l.events == nil {
		return
	}

	l.events.Publish(ctx, eventType, map[string]interface{}{
		"user":      user,
		"requested": requested.String(),
		"previous":  change.Previous.String(),
		"remaining": change.New.String(),
	})
}
