/*
Package analysis provides the financial metrics analysis engine.

PURPOSE:
  This package contains the core algorithms that turn an uploaded row-set
  (monthly P&L, dated transactions, dated invoices) into comparative business
  metrics: current-vs-prior-month and current-vs-prior-year deltas, expense
  spike detection, gross margin, invoice paid/overdue buckets, and a small
  per-user bounded result cache.

KEY CONCEPTS IN THIS FILE (types.go):
  - TemplateType: Which spreadsheet schema a row-set carries
  - Family:       Cache/invalidation grouping for analysis results
  - MetricDelta:  A current-vs-previous comparison record
  - Profile:      The slice of user state the engine needs (industry, currency)

DESIGN PRINCIPLES:
  1. Precision: Currency sums use decimal.Decimal, never float64. Conversion
     to floating point happens only at the response boundary.
  2. Degradation: Missing or malformed cells aggregate as zero so partial
     spreadsheets still produce a best-effort result.
  3. Injection: File storage, benchmark data, narrative generation and the
     cache store are interfaces supplied by the caller. No hidden singletons.

SEE ALSO:
  - rowset.go:  Row-set abstraction and typed cell access
  - period.go:  Calendar-aware period shifting and date filtering
  - engine.go:  The facade tying the calculators together
*/
package analysis

import (
	"context"

	"github.com/shopspring/decimal"
)

// =============================================================================
// IDENTIFIERS & TEMPLATE TYPES
// =============================================================================

// UserID identifies the tenant an analysis belongs to. The caller is assumed
// to have authenticated the user already.
type UserID string

// TemplateType tags a RowSet with the spreadsheet schema it was uploaded as.
type TemplateType string

const (
	TemplatePnL          TemplateType = "pnl"
	TemplateTransactions TemplateType = "transactions"
	TemplateInvoices     TemplateType = "invoices"
)

// ValidTemplate reports whether t is one of the known template types.
func ValidTemplate(t TemplateType) bool {
	switch t {
	case TemplatePnL, TemplateTransactions, TemplateInvoices:
		return true
	}
	return false
}

// Family groups cached analysis results for invalidation. A new upload of the
// corresponding template type must wipe the whole family.
type Family string

const (
	FamilyPnL      Family = "pnl"
	FamilyCash     Family = "cash"
	FamilyInvoices Family = "invoices"
)

// FamilyForTemplate maps an uploaded template type to the cache family whose
// results were computed from it.
func FamilyForTemplate(t TemplateType) Family {
	switch t {
	case TemplateTransactions:
		return FamilyCash
	case TemplateInvoices:
		return FamilyInvoices
	default:
		return FamilyPnL
	}
}

// =============================================================================
// WELL-KNOWN COLUMNS
// =============================================================================

// ExpenseCategories are the named expense columns of the P&L template, in
// report order.
var ExpenseCategories = []string{"COGS", "Payroll", "Rent", "Marketing", "Other_Expenses"}

const (
	ColMonth    = "Month"
	ColRevenue  = "Revenue"
	ColCOGS     = "COGS"
	ColDate     = "Date"
	ColCategory = "Category"
	ColAmount   = "Amount"
	ColStatus   = "Status"
	ColDueDate  = "Due_Date"
)

// InvoiceDateColumns are the candidate date columns of the invoices template,
// tried in order.
var InvoiceDateColumns = []string{"Date", "Invoice_Date", "Created_Date", "Issue_Date"}

// =============================================================================
// METRIC DELTA - Current vs previous comparison
// =============================================================================

// MetricDelta compares an aggregate between two periods.
//
// Invariants:
//   Change           = Current - Previous
//   PercentageChange = Change/Previous*100 when Previous > 0,
//                      100 when Previous == 0 and Current > 0, else 0
//   IsPositive       = Change >= 0
type MetricDelta struct {
	Current          decimal.Decimal
	Previous         decimal.Decimal
	Change           decimal.Decimal
	PercentageChange decimal.Decimal
	IsPositive       bool
}

var hundred = decimal.NewFromInt(100)

// Delta builds a MetricDelta from a current and previous aggregate.
// PercentageChange is rounded to 2 decimal places.
func Delta(current, previous decimal.Decimal) MetricDelta {
	change := current.Sub(previous)

	var pct decimal.Decimal
	switch {
	case previous.IsPositive():
		pct = change.Div(previous).Mul(hundred)
	case current.IsPositive():
		pct = hundred
	default:
		pct = decimal.Zero
	}

	return MetricDelta{
		Current:          current,
		Previous:         previous,
		Change:           change,
		PercentageChange: pct.Round(2),
		IsPositive:       change.GreaterThanOrEqual(decimal.Zero),
	}
}

// DeltaFromInts builds a MetricDelta from integer counts.
func DeltaFromInts(current, previous int) MetricDelta {
	return Delta(decimal.NewFromInt(int64(current)), decimal.NewFromInt(int64(previous)))
}

// =============================================================================
// USER PROFILE - External user state the engine consumes
// =============================================================================

// Profile carries the declared attributes the engine reads from a user record.
type Profile struct {
	Industry string
	Currency string
}

// ProfileSource resolves a user's profile. The second return is false when the
// user has no stored profile.
type ProfileSource interface {
	Profile(ctx context.Context, user UserID) (Profile, bool, error)
}

// =============================================================================
// EXTERNAL COLLABORATOR INTERFACES
// =============================================================================

// FileSource supplies the latest active row-set of a template type for a user.
// Implementations return ErrNoData when the user has never uploaded one.
type FileSource interface {
	GetLatest(ctx context.Context, user UserID, template TemplateType) (RowSet, error)
}

// BenchmarkSource looks up the typical operating-margin range for an industry.
// The lookup is heuristic; false means no usable match.
type BenchmarkSource interface {
	OperatingMarginRange(industry string) (string, bool)
}
