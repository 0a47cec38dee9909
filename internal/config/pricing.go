package config

import (
	"context"
	"fmt"
	"os"

	"github.com/shopspring/decimal"
	"gopkg.in/yaml.v3"

	"github.com/davidbz/creditline/internal/domain"
)

// pricingEntry is one model in the YAML pricing file.
//
//	vendor/model-a:
//	  input: 1.0   # per million prompt tokens
//	  output: 2.0  # per million completion tokens
type pricingEntry struct {
	Input  float64 `yaml:"input"`
	Output float64 `yaml:"output"`
}

// LoadPricingFile reads model rates from a YAML file.
func LoadPricingFile(path string) (map[string]domain.PricingConfig, error) {
	raw, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read pricing file: %w", err)
	}

	var entries map[string]pricingEntry
	if err := yaml.Unmarshal(raw, &entries); err != nil {
		return nil, fmt.Errorf("failed to parse pricing file: %w", err)
	}

	pricing := make(map[string]domain.PricingConfig, len(entries))
	for model, entry := range entries {
		if entry.Input < 0 || entry.Output < 0 {
			return nil, fmt.Errorf("negative rate for model %s", model)
		}
		pricing[model] = domain.PricingConfig{
			InputPerMillion:  decimal.NewFromFloat(entry.Input),
			OutputPerMillion: decimal.NewFromFloat(entry.Output),
		}
	}

	return pricing, nil
}

// NewPricingRegistry builds the process-wide pricing table: built-in rates,
// then overrides from the configured file.
func NewPricingRegistry(cfg *PricingConfig) (domain.PricingRegistry, error) {
	ctx := context.Background()
	registry := domain.NewInMemoryPricingRegistry()

	if err := domain.RegisterDefaultPricing(ctx, registry); err != nil {
		return nil, err
	}

	if cfg == nil || cfg.File == "" {
		return registry, nil
	}

	overrides, err := LoadPricingFile(cfg.File)
	if err != nil {
		return nil, err
	}

	for model, pricing := range overrides {
		if err := registry.RegisterPricing(ctx, model, pricing); err != nil {
			return nil, fmt.Errorf("failed to register pricing for model %s: %w", model, err)
		}
	}

	return registry, nil
}
