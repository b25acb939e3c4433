/*
compare.go - Comparative analyzer: shifted-period aggregation and deltas

PURPOSE:
  Recomputes the same aggregates over the requested period and over that
  period shifted back one calendar month / one calendar year, then builds a
  MetricDelta per metric.

NET PROFIT INVARIANT:
  Net profit is always derived as revenue - expenses per period, never
  aggregated independently, so

      netProfit.Change == revenue.Change - expenses.Change

  holds by construction. Tests pin this.
*/
package analysis

import "github.com/shopspring/decimal"

// =============================================================================
// P&L TOTALS
// =============================================================================

// PnLTotals are the three headline aggregates of a P&L slice.
type PnLTotals struct {
	Revenue   decimal.Decimal
	Expenses  decimal.Decimal
	NetProfit decimal.Decimal
}

// pnlTotals aggregates a filtered P&L row-set. Net profit is derived, not
// summed.
func pnlTotals(rs RowSet) PnLTotals {
	revenue := SumColumn(rs, ColRevenue)
	expenses := SumColumns(rs, ExpenseCategories)
	return PnLTotals{
		Revenue:   revenue,
		Expenses:  expenses,
		NetProfit: revenue.Sub(expenses),
	}
}

// =============================================================================
// P&L CHANGES
// =============================================================================

// PnLChanges holds the per-metric deltas for one comparison window.
type PnLChanges struct {
	Revenue   MetricDelta
	Expenses  MetricDelta
	NetProfit MetricDelta
}

// ComparePnL computes totals for the requested period and for the same-length
// period shifted back by one month or one year, and returns the deltas.
// The full (unfiltered) row-set is passed so the comparison period can be
// sliced from the same data.
func ComparePnL(rs RowSet, period Period, shift PeriodShift) (PnLChanges, error) {
	current, err := FilterByDate(rs, ColMonth, period)
	if err != nil {
		return PnLChanges{}, err
	}
	previous, err := FilterByDate(rs, ColMonth, period.Shift(shift, 1))
	if err != nil {
		return PnLChanges{}, err
	}

	cur := pnlTotals(current)
	prev := pnlTotals(previous)

	return PnLChanges{
		Revenue:   Delta(cur.Revenue, prev.Revenue),
		Expenses:  Delta(cur.Expenses, prev.Expenses),
		NetProfit: Delta(cur.NetProfit, prev.NetProfit),
	}, nil
}

// RevenueForPeriod sums the Revenue column over the period. A row-set missing
// the Month or Revenue column contributes zero rather than erroring; revenue
// tracking is best-effort over whatever the upload carries.
func RevenueForPeriod(rs RowSet, period Period) decimal.Decimal {
	if !rs.HasColumn(ColMonth) || !rs.HasColumn(ColRevenue) {
		return decimal.Zero
	}
	filtered, err := FilterByDate(rs, ColMonth, period)
	if err != nil {
		return decimal.Zero
	}
	return SumColumn(filtered, ColRevenue)
}
