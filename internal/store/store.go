// Package store selects the persistence adapters named by LEDGER_BACKEND.
package store

import (
	"context"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/davidbz/creditline/internal/config"
	"github.com/davidbz/creditline/internal/domain"
	"github.com/davidbz/creditline/internal/store/memory"
	redisstore "github.com/davidbz/creditline/internal/store/redis"
	"github.com/davidbz/creditline/internal/store/sqldb"
)

const (
	BackendSQL    = "sql"
	BackendRedis  = "redis"
	BackendMemory = "memory"

	redisPingTimeout = 5 * time.Second
)

// Set holds the opened stores and the connections behind them.
type Set struct {
	Balances domain.BalanceStore
	Usage    domain.UsageStore
	Payments domain.PaymentStore

	closers []func() error
}

// Open builds the stores for cfg.Backend. Balances live in Redis for the
// redis backend; usage and payments always go to SQL unless running in memory.
func Open(cfg *config.LedgerConfig) (*Set, error) {
	switch cfg.Backend {
	case BackendMemory:
		return &Set{
			Balances: memory.NewBalanceStore(),
			Usage:    memory.NewUsageStore(),
			Payments: memory.NewPaymentStore(),
		}, nil
	case BackendSQL, BackendRedis:
	default:
		return nil, fmt.Errorf("%w: unknown LEDGER_BACKEND %q", domain.ErrConfiguration, cfg.Backend)
	}

	db, err := sqldb.Open(cfg.DatabaseURL)
	if err != nil {
		return nil, err
	}

	set := &Set{
		Balances: sqldb.NewBalanceStore(db),
		Usage:    sqldb.NewUsageStore(db),
		Payments: sqldb.NewPaymentStore(db),
	}
	set.closers = append(set.closers, func() error {
		sqlDB, errDB := db.DB()
		if errDB != nil {
			return errDB
		}
		return sqlDB.Close()
	})

	if cfg.Backend == BackendRedis {
		client, errRedis := openRedis(cfg)
		if errRedis != nil {
			_ = set.Close()
			return nil, errRedis
		}
		set.Balances = redisstore.NewBalanceStore(client, cfg.RedisKeyPrefix)
		set.closers = append(set.closers, client.Close)
	}

	return set, nil
}

// Close releases every connection the set opened.
func (s *Set) Close() error {
	var firstErr error
	for i := len(s.closers) - 1; i >= 0; i-- {
		if err := s.closers[i](); err != nil && firstErr == nil {
			firstErr = err
		}
	}
	s.closers = nil
	return firstErr
}

func openRedis(cfg *config.LedgerConfig) (*redis.Client, error) {
	client := redis.NewClient(&redis.Options{
		Addr:     cfg.RedisAddr,
		Password: cfg.RedisPassword,
		DB:       cfg.RedisDB,
	})

	ctx, cancel := context.WithTimeout(context.Background(), redisPingTimeout)
	defer cancel()

	if err := client.Ping(ctx).Err(); err != nil {
		_ = client.Close()
		return nil, fmt.Errorf("failed to connect to redis: %w", err)
	}

	return client, nil
}
