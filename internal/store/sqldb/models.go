package sqldb

import (
	"time"

	"github.com/shopspring/decimal"
)

// Account is a user's balance row.
type Account struct {
	Email     string          `gorm:"primaryKey;size:320"`
	Remaining decimal.Decimal `gorm:"type:decimal(20,4);not null"`
	CreatedAt time.Time
	UpdatedAt time.Time
}

// UsageEntry is one row of the usage audit trail.
type UsageEntry struct {
	ID               string              `gorm:"primaryKey;size:36"`
	UserEmail        string              `gorm:"size:320;index;not null"`
	PromptTokens     int64               `gorm:"not null"`
	CompletionTokens int64               `gorm:"not null"`
	Model            string              `gorm:"size:255;not null"`
	Cost             decimal.NullDecimal `gorm:"type:decimal(20,4)"`
	SessionID        string              `gorm:"size:255;index"`
	CreatedAt        time.Time           `gorm:"index"`
}

// PaymentEntry is a credited checkout session.
type PaymentEntry struct {
	SessionID string          `gorm:"primaryKey;size:255"`
	UserEmail string          `gorm:"size:320;index;not null"`
	Amount    decimal.Decimal `gorm:"type:decimal(20,4);not null"`
	Status    string          `gorm:"size:32;not null"`
	CreatedAt time.Time
}
