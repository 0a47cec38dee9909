package redis

import (
	"context"
	"errors"
	"fmt"

	"github.com/redis/go-redis/v9"
	"github.com/shopspring/decimal"

	"github.com/davidbz/creditline/internal/domain"
	"github.com/davidbz/creditline/internal/observability"
)

const maxUpdateRetries = 20

// BalanceStore keeps balances as decimal strings under prefix+email.
type BalanceStore struct {
	client *redis.Client
	prefix string
}

// NewBalanceStore creates a Redis balance store adapter.
func NewBalanceStore(client *redis.Client, prefix string) *BalanceStore {
	return &BalanceStore{
		client: client,
		prefix: prefix,
	}
}

func (s *BalanceStore) key(user string) string {
	return s.prefix + user
}

// Get returns the stored balance.
func (s *BalanceStore) Get(ctx context.Context, user string) (decimal.Decimal, error) {
	raw, err := s.client.Get(ctx, s.key(user)).Result()
	if errors.Is(err, redis.Nil) {
		return decimal.Zero, domain.ErrUserNotFound
	}
	if err != nil {
		return decimal.Zero, fmt.Errorf("failed to get balance: %w", err)
	}

	return parseBalance(user, raw)
}

// Update runs fn inside WATCH/MULTI and retries when another writer
// changed the key in between.
func (s *BalanceStore) Update(
	ctx context.Context,
	user string,
	fn domain.UpdateFunc,
) (domain.BalanceChange, error) {
	key := s.key(user)
	var change domain.BalanceChange

	txf := func(tx *redis.Tx) error {
		raw, err := tx.Get(ctx, key).Result()
		if errors.Is(err, redis.Nil) {
			return domain.ErrUserNotFound
		}
		if err != nil {
			return err
		}

		current, err := parseBalance(user, raw)
		if err != nil {
			return err
		}

		next, err := fn(current)
		if err != nil {
			return err
		}

		_, err = tx.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
			pipe.Set(ctx, key, next.String(), 0)
			return nil
		})
		if err != nil {
			return err
		}

		change = domain.BalanceChange{Previous: current, New: next}
		return nil
	}

	for attempt := 0; attempt < maxUpdateRetries; attempt++ {
		err := s.client.Watch(ctx, txf, key)
		if errors.Is(err, redis.TxFailedErr) {
			observability.FromContext(ctx).Debug("balance changed concurrently, retrying",
				observability.Int("attempt", attempt+1))
			continue
		}
		if err != nil {
			return domain.BalanceChange{}, err
		}
		return change, nil
	}

	return domain.BalanceChange{}, fmt.Errorf("balance update for %s: too much contention", user)
}

// Create sets the initial balance with SETNX.
func (s *BalanceStore) Create(ctx context.Context, user string, initial decimal.Decimal) (bool, error) {
	created, err := s.client.SetNX(ctx, s.key(user), initial.String(), 0).Result()
	if err != nil {
		return false, fmt.Errorf("failed to create balance: %w", err)
	}
	return created, nil
}

func parseBalance(user, raw string) (decimal.Decimal, error) {
	balance, err := decimal.NewFromString(raw)
	if err != nil {
		return decimal.Zero, fmt.Errorf("corrupt balance for %s: %w", user, err)
	}
	return balance, nil
}
