package memory

import (
	"context"
	"sync"

	"github.com/shopspring/decimal"

	"github.com/davidbz/creditline/internal/domain"
)

// BalanceStore keeps balances in process memory. A single mutex serializes
// updates, which makes Update atomic per user.
type BalanceStore struct {
	mu       sync.Mutex
	balances map[string]decimal.Decimal
}

// NewBalanceStore creates an empty in-memory balance store.
func NewBalanceStore() *BalanceStore {
	return &BalanceStore{
		mu:       sync.Mutex{},
		balances: make(map[string]decimal.Decimal),
	}
}

// Get returns the stored balance.
func (s *BalanceStore) Get(_ context.Context, user string) (decimal.Decimal, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	balance, ok := s.balances[user]
	if !ok {
		return decimal.Zero, domain.ErrUserNotFound
	}
	return balance, nil
}

// Update applies fn under the store lock.
func (s *BalanceStore) Update(
	_ context.Context,
	user string,
	fn domain.UpdateFunc,
) (domain.BalanceChange, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	current, ok := s.balances[user]
	if !ok {
		return domain.BalanceChange{}, domain.ErrUserNotFound
	}

	next, err := fn(current)
	if err != nil {
		return domain.BalanceChange{}, err
	}

	s.balances[user] = next
	return domain.BalanceChange{Previous: current, New: next}, nil
}

// Create inserts the user unless present.
func (s *BalanceStore) Create(_ context.Context, user string, initial decimal.Decimal) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.balances[user]; ok {
		return false, nil
	}
	s.balances[user] = initial
	return true, nil
}

// UsageStore appends usage records to a slice.
type UsageStore struct {
	mu      sync.Mutex
	records []domain.UsageRecord
}

// NewUsageStore creates an empty in-memory usage store.
func NewUsageStore() *UsageStore {
	return &UsageStore{}
}

// Insert appends a copy of rec.
func (s *UsageStore) Insert(_ context.Context, rec *domain.UsageRecord) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.records = append(s.records, *rec)
	return nil
}

// Records returns a snapshot of everything inserted so far.
func (s *UsageStore) Records() []domain.UsageRecord {
	s.mu.Lock()
	defer s.mu.Unlock()

	out := make([]domain.UsageRecord, len(s.records))
	copy(out, s.records)
	return out
}

// PaymentStore keeps credited payments keyed by checkout session.
type PaymentStore struct {
	mu       sync.Mutex
	payments map[string]domain.Payment
}

// NewPaymentStore creates an empty in-memory payment store.
func NewPaymentStore() *PaymentStore {
	return &PaymentStore{
		mu:       sync.Mutex{},
		payments: make(map[string]domain.Payment),
	}
}

// InsertIfAbsent stores p unless its session was already recorded.
func (s *PaymentStore) InsertIfAbsent(_ context.Context, p *domain.Payment) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.payments[p.SessionID]; ok {
		return false, nil
	}
	s.payments[p.SessionID] = *p
	return true, nil
}

// Remove deletes the session's record.
func (s *PaymentStore) Remove(_ context.Context, sessionID string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	delete(s.payments, sessionID)
	return nil
}
