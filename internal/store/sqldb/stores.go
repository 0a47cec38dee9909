package sqldb

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/shopspring/decimal"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/davidbz/creditline/internal/domain"
)

// BalanceStore persists balances in the accounts table.
type BalanceStore struct {
	db *gorm.DB
}

// NewBalanceStore creates a SQL-backed balance store.
func NewBalanceStore(db *gorm.DB) *BalanceStore {
	return &BalanceStore{db: db}
}

// Get returns the stored balance.
func (s *BalanceStore) Get(ctx context.Context, user string) (decimal.Decimal, error) {
	var acct Account
	err := s.db.WithContext(ctx).Where("email = ?", user).Take(&acct).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return decimal.Zero, domain.ErrUserNotFound
	}
	if err != nil {
		return decimal.Zero, fmt.Errorf("db: get balance: %w", err)
	}
	return acct.Remaining, nil
}

// Update locks the row for the duration of fn and writes the result.
func (s *BalanceStore) Update(
	ctx context.Context,
	user string,
	fn domain.UpdateFunc,
) (domain.BalanceChange, error) {
	var change domain.BalanceChange

	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var acct Account
		errFind := tx.Clauses(clause.Locking{Strength: "UPDATE"}).
			Where("email = ?", user).
			Take(&acct).Error
		if errors.Is(errFind, gorm.ErrRecordNotFound) {
			return domain.ErrUserNotFound
		}
		if errFind != nil {
			return fmt.Errorf("db: lock balance: %w", errFind)
		}

		next, errFn := fn(acct.Remaining)
		if errFn != nil {
			return errFn
		}

		errSave := tx.Model(&Account{}).
			Where("email = ?", user).
			Updates(map[string]any{"remaining": next, "updated_at": time.Now().UTC()}).Error
		if errSave != nil {
			return fmt.Errorf("db: save balance: %w", errSave)
		}

		change = domain.BalanceChange{Previous: acct.Remaining, New: next}
		return nil
	})
	if err != nil {
		return domain.BalanceChange{}, err
	}

	return change, nil
}

// Create inserts the account unless one already exists for the email.
func (s *BalanceStore) Create(ctx context.Context, user string, initial decimal.Decimal) (bool, error) {
	acct := Account{Email: user, Remaining: initial}
	res := s.db.WithContext(ctx).
		Clauses(clause.OnConflict{Columns: []clause.Column{{Name: "email"}}, DoNothing: true}).
		Create(&acct)
	if res.Error != nil {
		return false, fmt.Errorf("db: create account: %w", res.Error)
	}
	return res.RowsAffected == 1, nil
}

// UsageStore appends usage entries.
type UsageStore struct {
	db *gorm.DB
}

// NewUsageStore creates a SQL-backed usage store.
func NewUsageStore(db *gorm.DB) *UsageStore {
	return &UsageStore{db: db}
}

// Insert writes one usage entry.
func (s *UsageStore) Insert(ctx context.Context, rec *domain.UsageRecord) error {
	entry := UsageEntry{
		ID:               rec.ID,
		UserEmail:        rec.User,
		PromptTokens:     rec.PromptTokens,
		CompletionTokens: rec.CompletionTokens,
		Model:            rec.Model,
		SessionID:        rec.SessionID,
		CreatedAt:        rec.CreatedAt,
	}
	if rec.Cost != nil {
		entry.Cost = decimal.NewNullDecimal(*rec.Cost)
	}

	if err := s.db.WithContext(ctx).Create(&entry).Error; err != nil {
		return fmt.Errorf("db: insert usage: %w", err)
	}
	return nil
}

// PaymentStore records credited checkout sessions.
type PaymentStore struct {
	db *gorm.DB
}

// NewPaymentStore creates a SQL-backed payment store.
func NewPaymentStore(db *gorm.DB) *PaymentStore {
	return &PaymentStore{db: db}
}

// InsertIfAbsent inserts p and reports false when the session already exists.
func (s *PaymentStore) InsertIfAbsent(ctx context.Context, p *domain.Payment) (bool, error) {
	entry := PaymentEntry{
		SessionID: p.SessionID,
		UserEmail: p.User,
		Amount:    p.Amount,
		Status:    p.Status,
		CreatedAt: p.CreatedAt,
	}
	res := s.db.WithContext(ctx).
		Clauses(clause.OnConflict{Columns: []clause.Column{{Name: "session_id"}}, DoNothing: true}).
		Create(&entry)
	if res.Error != nil {
		return false, fmt.Errorf("db: insert payment: %w", res.Error)
	}
	return res.RowsAffected == 1, nil
}

// Remove deletes the session's row.
func (s *PaymentStore) Remove(ctx context.Context, sessionID string) error {
	err := s.db.WithContext(ctx).Where("session_id = ?", sessionID).Delete(&PaymentEntry{}).Error
	if err != nil {
		return fmt.Errorf("db: remove payment: %w", err)
	}
	return nil
}
