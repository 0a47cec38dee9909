package domain

import (
	"context"
	"fmt"

	"github.com/shopspring/decimal"
)

// StandardCostCalculator implements per-million token cost calculation.
type StandardCostCalculator struct {
	pricingRegistry PricingRegistry
}

// NewStandardCostCalculator creates a new cost calculator.
func NewStandardCostCalculator(registry PricingRegistry) *StandardCostCalculator {
	return &StandardCostCalculator{
		pricingRegistry: registry,
	}
}

// Calculate computes the cost based on token usage and model pricing,
// rounded half-up to four places. Unnamespaced and unpriced models yield
// ErrPricingUnknown; they are never treated as free.
func (c *StandardCostCalculator) Calculate(
	ctx context.Context,
	model string,
	usage Usage,
) (decimal.Decimal, error) {
	if !IsNamespaced(model) {
		return decimal.Zero, fmt.Errorf("%w: model %q is not namespaced", ErrPricingUnknown, model)
	}

	if usage.PromptTokens < 0 || usage.CompletionTokens < 0 {
		return decimal.Zero, InvalidInput("negative token counts")
	}

	pricing, err := c.pricingRegistry.GetPricing(ctx, model)
	if err != nil {
		return decimal.Zero, err
	}

	inputCost := decimal.NewFromInt(usage.PromptTokens).Div(tokensPerMillion).Mul(pricing.InputPerMillion)
	outputCost := decimal.NewFromInt(usage.CompletionTokens).Div(tokensPerMillion).Mul(pricing.OutputPerMillion)

	return RoundCost(inputCost.Add(outputCost)), nil
}
