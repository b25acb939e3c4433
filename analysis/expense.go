/*
expense.go - Expense category breakdown and spike detection

SPIKE HEURISTIC:
  A category is flagged as a spike when either condition holds:
  - share of total: the category is >= 3% of total expenses for the period
  - growth: prior-month amount > 0 and month-over-month growth > 20%
  The two conditions are a pure OR; share-of-total is checked first only for
  readability.

KNOWN GAP:
  The New flag (first appearance of a category) is reported but never set.
  First-appearance detection was never implemented upstream; the field is kept
  so the response shape is stable, always false.
*/
package analysis

import "github.com/shopspring/decimal"

var (
	spikeShareThreshold  = decimal.NewFromInt(3)  // percent of total expenses
	spikeGrowthThreshold = decimal.NewFromInt(20) // percent month-over-month
)

// ExpenseCategoryResult describes one expense category over the period.
type ExpenseCategoryResult struct {
	TotalAmount decimal.Decimal
	Spike       bool
	New         bool
}

// ExpenseBreakdownResult maps category name to its period result. Only
// categories present as columns in the row-set appear.
type ExpenseBreakdownResult map[string]ExpenseCategoryResult

// BreakdownExpenses analyzes each expense category of the current period
// against the period's total expenses and the prior month's amounts.
func BreakdownExpenses(current, priorMonth RowSet) ExpenseBreakdownResult {
	totalExpenses := SumColumns(current, ExpenseCategories)

	result := make(ExpenseBreakdownResult)
	for _, category := range ExpenseCategories {
		if !current.HasColumn(category) {
			continue
		}
		amount := SumColumn(current, category)
		result[category] = ExpenseCategoryResult{
			TotalAmount: amount,
			Spike:       isSpike(amount, totalExpenses, priorMonth, category),
			New:         false,
		}
	}
	return result
}

func isSpike(amount, totalExpenses decimal.Decimal, priorMonth RowSet, category string) bool {
	if totalExpenses.IsPositive() {
		share := amount.Div(totalExpenses).Mul(hundred)
		if share.GreaterThanOrEqual(spikeShareThreshold) {
			return true
		}
	}

	if !priorMonth.Empty() && priorMonth.HasColumn(category) {
		prev := SumColumn(priorMonth, category)
		if prev.IsPositive() {
			growth := amount.Sub(prev).Div(prev).Mul(hundred)
			if growth.GreaterThan(spikeGrowthThreshold) {
				return true
			}
		}
	}

	return false
}
