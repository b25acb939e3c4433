// Package narrative generates the short textual insight attached to a P&L
// analysis. The numeric engine has no hard dependency on any external AI
// service: every Generator failure resolves to the rule-based fallback.
package narrative

import (
	"context"
	"fmt"
)

// Metrics is the aggregated snapshot a generator summarizes. Values are
// already at the response boundary, hence float64.
type Metrics struct {
	TotalRevenue  float64
	TotalExpenses float64
	NetProfit     float64

	// Percentage changes, month-over-month and year-over-year.
	RevenueMoM  float64
	RevenueYoY  float64
	ExpensesMoM float64
	ExpensesYoY float64
	ProfitMoM   float64
	ProfitYoY   float64

	// Per-category expense totals for the current period (positive only).
	ExpenseCategories map[string]float64
}

// Generator produces a one-sentence business insight from metrics.
type Generator interface {
	Summarize(ctx context.Context, m Metrics) (string, error)
}

// Config selects and configures a provider.
type Config struct {
	Provider    string // "anthropic" or "fallback" (default)
	APIKey      string
	Model       string
	Temperature float64
	MaxTokens   int
}

// New creates a Generator for the configured provider.
func New(cfg Config) (Generator, error) {
	switch cfg.Provider {
	case "anthropic":
		return newAnthropicGenerator(cfg)
	case "", "fallback":
		return Fallback{}, nil
	default:
		return nil, fmt.Errorf("unknown narrative provider: %s", cfg.Provider)
	}
}
