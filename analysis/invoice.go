/*
invoice.go - Invoice metrics: paid/overdue classification and aggregation

CLASSIFICATION:
  Paid:    status (case-insensitive) in {paid, completed}
  Overdue: status in {overdue, unpaid, pending} when a Status column exists.
           When the row-set has no Status column at all, fall back to the
           Due_Date column: anything due before "now" is overdue.

PERIOD FILTERING:
  Invoices carry no single canonical date column; the first present of
  Date, Invoice_Date, Created_Date, Issue_Date is used. A row-set with none
  of them is analyzed whole (upstream behavior, kept deliberately).
*/
package analysis

import (
	"strings"
	"time"

	"github.com/shopspring/decimal"
)

var (
	paidStatuses    = map[string]bool{"paid": true, "completed": true}
	overdueStatuses = map[string]bool{"overdue": true, "unpaid": true, "pending": true}
)

// =============================================================================
// BUCKETS
// =============================================================================

// InvoiceBucket is the count and summed amount of one invoice partition.
type InvoiceBucket struct {
	Count  int
	Amount decimal.Decimal
}

// InvoiceTotals are the headline metrics of an invoice slice.
type InvoiceTotals struct {
	TotalCount int
	Paid       InvoiceBucket
	Overdue    InvoiceBucket
}

// InvoiceMetrics classifies and aggregates an (already filtered) invoice
// row-set. now anchors the due-date fallback for overdue detection.
func InvoiceMetrics(rs RowSet, now time.Time) InvoiceTotals {
	totals := InvoiceTotals{TotalCount: rs.Len()}
	hasStatus := rs.HasColumn(ColStatus)

	for _, row := range rs.Rows {
		amount := row.Decimal(ColAmount)
		status := strings.ToLower(strings.TrimSpace(row[ColStatus]))

		if hasStatus && paidStatuses[status] {
			totals.Paid.Count++
			totals.Paid.Amount = totals.Paid.Amount.Add(amount)
		}

		if overdue(row, status, hasStatus, now) {
			totals.Overdue.Count++
			totals.Overdue.Amount = totals.Overdue.Amount.Add(amount)
		}
	}
	return totals
}

func overdue(row Row, status string, hasStatus bool, now time.Time) bool {
	if hasStatus {
		return overdueStatuses[status]
	}
	due, ok := row.Date(ColDueDate)
	return ok && due.Before(now)
}

// =============================================================================
// PERIOD COMPARISON
// =============================================================================

// BucketChange pairs the count and amount deltas of one bucket.
type BucketChange struct {
	Count  MetricDelta
	Amount MetricDelta
}

// InvoiceChanges holds the deltas for one comparison window.
type InvoiceChanges struct {
	TotalCount MetricDelta
	Paid       BucketChange
	Overdue    BucketChange
}

// FilterInvoices slices the invoice row-set to the period using the first
// available date column. With no date column the full row-set is returned.
func FilterInvoices(rs RowSet, period Period) RowSet {
	col, ok := rs.FirstColumn(InvoiceDateColumns)
	if !ok {
		return rs
	}
	filtered, err := FilterByDate(rs, col, period)
	if err != nil {
		return rs
	}
	return filtered
}

// CompareInvoices computes invoice metrics for the requested period and for
// the shifted comparison period, and returns the deltas.
func CompareInvoices(rs RowSet, period Period, shift PeriodShift, now time.Time) InvoiceChanges {
	cur := InvoiceMetrics(FilterInvoices(rs, period), now)
	prev := InvoiceMetrics(FilterInvoices(rs, period.Shift(shift, 1)), now)

	return InvoiceChanges{
		TotalCount: DeltaFromInts(cur.TotalCount, prev.TotalCount),
		Paid: BucketChange{
			Count:  DeltaFromInts(cur.Paid.Count, prev.Paid.Count),
			Amount: Delta(cur.Paid.Amount, prev.Paid.Amount),
		},
		Overdue: BucketChange{
			Count:  DeltaFromInts(cur.Overdue.Count, prev.Overdue.Count),
			Amount: Delta(cur.Overdue.Amount, prev.Overdue.Amount),
		},
	}
}
