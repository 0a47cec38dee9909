package domain

import (
	"time"

	"github.com/shopspring/decimal"
)

// MaxMessages caps the conversation length accepted by the chat endpoint.
const MaxMessages = 50

// Message represents a chat message.
type Message struct {
	Role    string `json:"role"` // user, assistant, system
	Content string `json:"content"`
}

// GenerationParams are caller-supplied sampling options carried through to the upstream.
type GenerationParams struct {
	Temperature      *float64 `json:"temperature,omitempty"`
	TopP             *float64 `json:"top_p,omitempty"`
	MaxTokens        *int     `json:"max_tokens,omitempty"`
	PresencePenalty  *float64 `json:"presence_penalty,omitempty"`
	FrequencyPenalty *float64 `json:"frequency_penalty,omitempty"`
	Stop             []string `json:"stop,omitempty"`
}

// ChatRequest is the body accepted by the chat endpoint.
type ChatRequest struct {
	Messages    []Message `json:"messages"`
	Model       string    `json:"model,omitempty"`
	Stream      *bool     `json:"stream,omitempty"`
	SessionID   string    `json:"sessionId,omitempty"`
	IsFirstCall bool      `json:"isFirstCall,omitempty"`
	GenerationParams
}

// Streaming reports whether the caller wants an event stream (the default).
func (r *ChatRequest) Streaming() bool {
	return r.Stream == nil || *r.Stream
}

// Usage tracks token consumption reported by the upstream.
type Usage struct {
	PromptTokens     int64 `json:"prompt_tokens"`
	CompletionTokens int64 `json:"completion_tokens"`
	TotalTokens      int64 `json:"total_tokens"`
}

// Identity is an authenticated caller.
type Identity struct {
	UserID string
	Email  string
	// Development is set for the fixed identity produced by the local bypass.
	Development bool
}

// BalanceChange is the outcome of a ledger mutation.
type BalanceChange struct {
	Previous decimal.Decimal `json:"previous"`
	New      decimal.Decimal `json:"remaining"`
}

// Moved returns the absolute amount the mutation moved.
func (c BalanceChange) Moved() decimal.Decimal {
	return c.New.Sub(c.Previous).Abs()
}

// UsageRecord is an append-only audit entry for one completed AI request.
type UsageRecord struct {
	ID               string
	User             string
	PromptTokens     int64
	CompletionTokens int64
	Model            string
	// Cost is nil when no price could be determined and the flat unit was charged.
	Cost      *decimal.Decimal
	SessionID string
	CreatedAt time.Time
}

// Payment is a processor checkout that was credited to a user.
type Payment struct {
	SessionID string
	User      string
	Amount    decimal.Decimal
	Status    string
	CreatedAt time.Time
}
