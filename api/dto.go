/*
dto.go - Data Transfer Objects for API requests and responses

PURPOSE:
  Defines the JSON structures for API communication. These types decouple
  the internal domain model from the external API contract, allowing:
  - Field renaming without breaking clients
  - API-specific validation
  - Version evolution

NUMERIC BOUNDARY:
  Internally every money amount is a decimal. Conversion to float64 happens
  here and only here, when a result crosses into JSON. Nothing downstream of
  a DTO does arithmetic.

TYPES:
  Analysis:
    PnLResponse, CashResponse, InvoicesResponse, RevenueResponse,
    MetricDeltaDTO, PnLChangesDTO, InvoiceBucketDTO, InvoiceChangesDTO,
    ExpenseCategoryDTO

  Benchmarks:
    IndustryDTO

  Files & profiles:
    UploadResponse, FileDTO, ProfileDTO

SEE ALSO:
  - handlers.go: Uses these types
  - analysis/engine.go: Domain result types these are built from
*/
package api

import (
	"time"

	"github.com/finlens/metrics-engine/analysis"
	"github.com/finlens/metrics-engine/benchmark"
	"github.com/finlens/metrics-engine/filestore/sqlite"
)

// =============================================================================
// SHARED TYPES
// =============================================================================

// ErrorResponse is the standard error payload.
type ErrorResponse struct {
	Error   string `json:"error"`
	Details string `json:"details,omitempty"`
}

// PeriodDTO is the analyzed date range, inclusive on both ends.
type PeriodDTO struct {
	StartDate string `json:"start_date"`
	EndDate   string `json:"end_date"`
}

// MetricDeltaDTO compares a metric against a shifted period.
type MetricDeltaDTO struct {
	Current          float64 `json:"current"`
	Previous         float64 `json:"previous"`
	Change           float64 `json:"change"`
	PercentageChange float64 `json:"percentage_change"`
	IsPositive       bool    `json:"is_positive"`
}

func toPeriodDTO(p analysis.Period) PeriodDTO {
	return PeriodDTO{
		StartDate: p.Start.Format("2006-01-02"),
		EndDate:   p.End.Format("2006-01-02"),
	}
}

func toDeltaDTO(d analysis.MetricDelta) MetricDeltaDTO {
	return MetricDeltaDTO{
		Current:          d.Current.InexactFloat64(),
		Previous:         d.Previous.InexactFloat64(),
		Change:           d.Change.InexactFloat64(),
		PercentageChange: d.PercentageChange.InexactFloat64(),
		IsPositive:       d.IsPositive,
	}
}

// =============================================================================
// P&L
// =============================================================================

// PnLChangesDTO carries the three comparative deltas for one shift.
type PnLChangesDTO struct {
	Revenue   MetricDeltaDTO `json:"revenue"`
	Expenses  MetricDeltaDTO `json:"expenses"`
	NetProfit MetricDeltaDTO `json:"net_profit"`
}

// PnLResponse is the full P&L analysis payload.
type PnLResponse struct {
	TotalRevenue    float64       `json:"total_revenue"`
	TotalExpenses   float64       `json:"total_expenses"`
	NetProfit       float64       `json:"net_profit"`
	GrossMargin     float64       `json:"gross_margin"`
	OperatingMargin *string       `json:"operating_margin,omitempty"`
	MonthChange     PnLChangesDTO `json:"month_change"`
	YearChange      PnLChangesDTO `json:"year_change"`
	Period          PeriodDTO     `json:"period"`
	Insight         string        `json:"insight"`
}

func toPnLChangesDTO(c analysis.PnLChanges) PnLChangesDTO {
	return PnLChangesDTO{
		Revenue:   toDeltaDTO(c.Revenue),
		Expenses:  toDeltaDTO(c.Expenses),
		NetProfit: toDeltaDTO(c.NetProfit),
	}
}

func toPnLResponse(r analysis.PnLResult) PnLResponse {
	return PnLResponse{
		TotalRevenue:    r.TotalRevenue.InexactFloat64(),
		TotalExpenses:   r.TotalExpenses.InexactFloat64(),
		NetProfit:       r.NetProfit.InexactFloat64(),
		GrossMargin:     r.GrossMargin.InexactFloat64(),
		OperatingMargin: r.OperatingMargin,
		MonthChange:     toPnLChangesDTO(r.MonthChange),
		YearChange:      toPnLChangesDTO(r.YearChange),
		Period:          toPeriodDTO(r.Period),
		Insight:         r.Insight,
	}
}

// =============================================================================
// CASH
// =============================================================================

// CashResponse totals income and expense over the transactions row-set.
type CashResponse struct {
	TotalIncome  float64    `json:"total_income"`
	TotalExpense float64    `json:"total_expense"`
	NetCashFlow  float64    `json:"net_cash_flow"`
	Period       *PeriodDTO `json:"period,omitempty"`
}

func toCashResponse(r analysis.CashResult, period *analysis.Period) CashResponse {
	resp := CashResponse{
		TotalIncome:  r.TotalIncome.InexactFloat64(),
		TotalExpense: r.TotalExpense.InexactFloat64(),
		NetCashFlow:  r.TotalIncome.Sub(r.TotalExpense).InexactFloat64(),
	}
	if period != nil {
		p := toPeriodDTO(*period)
		resp.Period = &p
	}
	return resp
}

// =============================================================================
// INVOICES
// =============================================================================

// InvoiceBucketDTO is count and total amount for one invoice class.
type InvoiceBucketDTO struct {
	Count  int     `json:"count"`
	Amount float64 `json:"amount"`
}

// BucketChangeDTO pairs the count and amount deltas of one bucket.
type BucketChangeDTO struct {
	Count  MetricDeltaDTO `json:"count"`
	Amount MetricDeltaDTO `json:"amount"`
}

// InvoiceChangesDTO carries the comparative deltas for one shift.
type InvoiceChangesDTO struct {
	TotalCount MetricDeltaDTO  `json:"total_count"`
	Paid       BucketChangeDTO `json:"paid"`
	Overdue    BucketChangeDTO `json:"overdue"`
}

// InvoicesResponse is the invoice analysis payload.
type InvoicesResponse struct {
	TotalCount  int               `json:"total_count"`
	Paid        InvoiceBucketDTO  `json:"paid"`
	Overdue     InvoiceBucketDTO  `json:"overdue"`
	MonthChange InvoiceChangesDTO `json:"month_change"`
	YearChange  InvoiceChangesDTO `json:"year_change"`
	Period      PeriodDTO         `json:"period"`
}

func toInvoiceBucketDTO(b analysis.InvoiceBucket) InvoiceBucketDTO {
	return InvoiceBucketDTO{Count: b.Count, Amount: b.Amount.InexactFloat64()}
}

func toBucketChangeDTO(c analysis.BucketChange) BucketChangeDTO {
	return BucketChangeDTO{Count: toDeltaDTO(c.Count), Amount: toDeltaDTO(c.Amount)}
}

func toInvoiceChangesDTO(c analysis.InvoiceChanges) InvoiceChangesDTO {
	return InvoiceChangesDTO{
		TotalCount: toDeltaDTO(c.TotalCount),
		Paid:       toBucketChangeDTO(c.Paid),
		Overdue:    toBucketChangeDTO(c.Overdue),
	}
}

func toInvoicesResponse(r analysis.InvoicesResult) InvoicesResponse {
	return InvoicesResponse{
		TotalCount:  r.TotalCount,
		Paid:        toInvoiceBucketDTO(r.Paid),
		Overdue:     toInvoiceBucketDTO(r.Overdue),
		MonthChange: toInvoiceChangesDTO(r.MonthChange),
		YearChange:  toInvoiceChangesDTO(r.YearChange),
		Period:      toPeriodDTO(r.Period),
	}
}

// =============================================================================
// EXPENSES
// =============================================================================

// ExpenseCategoryDTO describes one expense category over the period.
type ExpenseCategoryDTO struct {
	TotalAmount float64 `json:"total_amount"`
	IsSpike     bool    `json:"is_spike"`
	IsNew       bool    `json:"is_new"`
}

func toExpenseBreakdownResponse(r analysis.ExpenseBreakdownResult) map[string]ExpenseCategoryDTO {
	out := make(map[string]ExpenseCategoryDTO, len(r))
	for category, c := range r {
		out[category] = ExpenseCategoryDTO{
			TotalAmount: c.TotalAmount.InexactFloat64(),
			IsSpike:     c.Spike,
			IsNew:       c.New,
		}
	}
	return out
}

// =============================================================================
// REVENUE
// =============================================================================

// RevenueResponse compares current-period revenue against the previous one.
type RevenueResponse struct {
	PeriodType string         `json:"period_type"`
	Revenue    MetricDeltaDTO `json:"revenue"`
	Currency   string         `json:"currency,omitempty"`
}

func toRevenueResponse(r analysis.RevenueResult) RevenueResponse {
	return RevenueResponse{
		PeriodType: r.PeriodType,
		Revenue:    toDeltaDTO(r.Delta),
		Currency:   r.Currency,
	}
}

// =============================================================================
// BENCHMARKS
// =============================================================================

// IndustryDTO is one industry's reference ratios.
type IndustryDTO struct {
	Industry             string `json:"industry"`
	GrossMarginRange     string `json:"gross_margin_range"`
	OperatingMarginRange string `json:"operating_margin_range"`
	CashBufferMonths     string `json:"cash_buffer_months"`
	DSORange             string `json:"dso_range"`
	ExpenseMixNotes      string `json:"expense_mix_notes"`
}

func toIndustryDTO(row benchmark.Row) IndustryDTO {
	return IndustryDTO{
		Industry:             row.Industry,
		GrossMarginRange:     row.GrossMarginRange,
		OperatingMarginRange: row.OperatingMarginRange,
		CashBufferMonths:     row.CashBufferMonths,
		DSORange:             row.DSORange,
		ExpenseMixNotes:      row.ExpenseMixNotes,
	}
}

// =============================================================================
// FILES & PROFILES
// =============================================================================

// UploadResponse confirms a stored upload.
type UploadResponse struct {
	FileID       string `json:"file_id"`
	TemplateType string `json:"template_type"`
	Filename     string `json:"filename"`
	UploadedAt   string `json:"uploaded_at"`
}

// FileDTO is one entry in a user's upload history.
type FileDTO struct {
	ID           string `json:"id"`
	TemplateType string `json:"template_type"`
	Filename     string `json:"filename"`
	IsActive     bool   `json:"is_active"`
	UploadedAt   string `json:"uploaded_at"`
}

func toFileDTO(r sqlite.FileRecord) FileDTO {
	return FileDTO{
		ID:           r.ID,
		TemplateType: string(r.Template),
		Filename:     r.Filename,
		IsActive:     r.Active,
		UploadedAt:   r.UploadedAt.Format(time.RFC3339),
	}
}

// ProfileDTO is the declared industry and currency for a user.
type ProfileDTO struct {
	Industry string `json:"industry"`
	Currency string `json:"currency"`
}
