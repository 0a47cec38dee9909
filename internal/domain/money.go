package domain

import (
	"github.com/shopspring/decimal"
)

// CostPrecision is the number of decimal places costs are rounded to.
const CostPrecision = 4

//nolint:gochecknoglobals // immutable decimal constants
var (
	// FlatUnit is charged when the actual cost of a request cannot be determined.
	FlatUnit = decimal.NewFromInt(1)

	// NamespacedEstimate is the pre-flight estimate for externally priced models.
	NamespacedEstimate = decimal.RequireFromString("0.01")

	tokensPerMillion = decimal.NewFromInt(1_000_000)
)

// ParseAmount parses a non-negative decimal amount.
func ParseAmount(s string) (decimal.Decimal, error) {
	amount, err := decimal.NewFromString(s)
	if err != nil {
		return decimal.Zero, InvalidInput("amount %q is not a number", s)
	}
	if amount.IsNegative() {
		return decimal.Zero, InvalidInput("amount %s is negative", amount)
	}
	return amount, nil
}

// RoundCost rounds half-up to CostPrecision places.
// decimal.Round rounds half away from zero, which is half-up for the
// non-negative values costs can take.
func RoundCost(d decimal.Decimal) decimal.Decimal {
	return d.Round(CostPrecision)
}

// EstimateCost is the nominal amount checked before an upstream call.
func EstimateCost(model string) decimal.Decimal {
	if IsNamespaced(model) {
		return NamespacedEstimate
	}
	return FlatUnit
}
