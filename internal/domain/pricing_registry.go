package domain

import (
	"context"
	"errors"
	"fmt"
	"sync"

	"github.com/shopspring/decimal"
)

// InMemoryPricingRegistry stores pricing configs in memory.
type InMemoryPricingRegistry struct {
	mu      sync.RWMutex
	pricing map[string]PricingConfig
}

// NewInMemoryPricingRegistry creates a new in-memory pricing registry.
func NewInMemoryPricingRegistry() *InMemoryPricingRegistry {
	return &InMemoryPricingRegistry{
		mu:      sync.RWMutex{},
		pricing: make(map[string]PricingConfig),
	}
}

// GetPricing retrieves pricing for a model.
func (r *InMemoryPricingRegistry) GetPricing(
	_ context.Context,
	model string,
) (PricingConfig, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	config, exists := r.pricing[model]
	if !exists {
		return PricingConfig{}, fmt.Errorf("%w for model: %s", ErrPricingUnknown, model)
	}

	return config, nil
}

// RegisterPricing adds pricing for a model.
func (r *InMemoryPricingRegistry) RegisterPricing(
	_ context.Context,
	model string,
	config PricingConfig,
) error {
	if model == "" {
		return errors.New("model cannot be empty")
	}

	if !IsNamespaced(model) {
		return fmt.Errorf("model %s is not namespaced as vendor/name", model)
	}

	if config.InputPerMillion.IsNegative() || config.OutputPerMillion.IsNegative() {
		return fmt.Errorf("negative rate for model %s", model)
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	r.pricing[model] = config
	return nil
}

// DefaultPricing returns the built-in rates (units per million tokens).
func DefaultPricing() map[string]PricingConfig {
	rate := func(in, out string) PricingConfig {
		return PricingConfig{
			InputPerMillion:  decimal.RequireFromString(in),
			OutputPerMillion: decimal.RequireFromString(out),
		}
	}

	return map[string]PricingConfig{
		"openai/gpt-4o":                     rate("2.5", "10"),
		"openai/gpt-4o-mini":                rate("0.15", "0.6"),
		"openai/gpt-4.1":                    rate("2", "8"),
		"openai/gpt-4.1-mini":               rate("0.4", "1.6"),
		"anthropic/claude-3.5-sonnet":       rate("3", "15"),
		"anthropic/claude-3.5-haiku":        rate("0.8", "4"),
		"google/gemini-2.0-flash-001":       rate("0.1", "0.4"),
		"deepseek/deepseek-chat":            rate("0.27", "1.1"),
		"meta-llama/llama-3.3-70b-instruct": rate("0.12", "0.3"),
	}
}

// RegisterDefaultPricing registers the built-in rates with the registry.
func RegisterDefaultPricing(ctx context.Context, registry PricingRegistry) error {
	for model, config := range DefaultPricing() {
		if err := registry.RegisterPricing(ctx, model, config); err != nil {
			return fmt.Errorf("failed to register pricing for model %s: %w", model, err)
		}
	}
	return nil
}
