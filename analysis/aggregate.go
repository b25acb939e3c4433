package analysis

import "github.com/shopspring/decimal"

// =============================================================================
// AGGREGATOR - Exact decimal sums over a filtered row-set
// =============================================================================

// SumColumn sums a numeric column across the row-set. Missing and non-numeric
// cells count as zero, so a partially malformed spreadsheet still aggregates.
func SumColumn(rs RowSet, col string) decimal.Decimal {
	total := decimal.Zero
	for _, row := range rs.Rows {
		total = total.Add(row.Decimal(col))
	}
	return total
}

// SumColumns sums several columns into one total, e.g. all expense categories.
func SumColumns(rs RowSet, cols []string) decimal.Decimal {
	total := decimal.Zero
	for _, col := range cols {
		total = total.Add(SumColumn(rs, col))
	}
	return total
}

// SumByColumn sums each column independently, keyed by column name. Columns
// absent from the row-set are omitted from the result.
func SumByColumn(rs RowSet, cols []string) map[string]decimal.Decimal {
	totals := make(map[string]decimal.Decimal, len(cols))
	for _, col := range cols {
		if rs.HasColumn(col) {
			totals[col] = SumColumn(rs, col)
		}
	}
	return totals
}
