package analysis

import "github.com/shopspring/decimal"

// =============================================================================
// MARGIN CALCULATOR
// =============================================================================

// GrossMargin computes (revenue - COGS) / revenue * 100, rounded to 2 decimal
// places. A non-positive revenue yields zero; margin over no revenue is
// meaningless, not an error.
func GrossMargin(revenue, cogs decimal.Decimal) decimal.Decimal {
	if !revenue.IsPositive() {
		return decimal.Zero
	}
	return revenue.Sub(cogs).Div(revenue).Mul(hundred).Round(2)
}
