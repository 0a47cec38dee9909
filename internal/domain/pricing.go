package domain

import (
	"context"
	"strings"

	"github.com/shopspring/decimal"
)

// PricingConfig contains model pricing information.
type PricingConfig struct {
	InputPerMillion  decimal.Decimal // units per 1M prompt tokens
	OutputPerMillion decimal.Decimal // units per 1M completion tokens
}

// CostCalculator calculates cost based on token usage.
type CostCalculator interface {
	// Calculate returns the cost for a given model and usage, or ErrPricingUnknown.
	Calculate(ctx context.Context, model string, usage Usage) (decimal.Decimal, error)
}

// PricingRegistry maintains pricing information for models.
type PricingRegistry interface {
	// GetPricing returns pricing config for a model.
	GetPricing(ctx context.Context, model string) (PricingConfig, error)
	// RegisterPricing adds pricing for a model.
	RegisterPricing(ctx context.Context, model string, config PricingConfig) error
}

// IsNamespaced reports whether model is a "vendor/name" identifier routed to
// external per-token pricing.
func IsNamespaced(model string) bool {
	vendor, name, found := strings.Cut(model, "/")
	return found && vendor != "" && name != ""
}
