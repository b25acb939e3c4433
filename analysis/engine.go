/*
engine.go - Analysis engine facade

PURPOSE:
  Ties the calculators together behind the operations the web layer consumes:
  P&L analysis, cash analysis, invoices analysis, expense breakdown, revenue
  analysis, and cache invalidation.

DATA FLOW:
  caller -> FileSource (latest active row-set) -> FilterByDate -> aggregation
  -> shifted-period comparison -> domain calculators -> ResultCache ->
  optional narrative insight.

CONCURRENCY:
  Every operation is synchronous, request-scoped, and side-effect-free except
  for cache reads/writes. There are no internal goroutines; the engine is safe
  under concurrent calls for different users because the only shared state is
  the injected cache store.

DEPENDENCIES (all injected):
  Files      - latest uploaded row-set per (user, template)
  Profiles   - declared industry/currency, optional
  Benchmarks - operating-margin range lookup, optional
  Narrator   - LLM insight generation, falls back to rules on any failure
  Cache      - bounded per-user result cache
  Now        - clock, swappable in tests

SEE ALSO:
  - cache.go:   TTL and eviction discipline
  - compare.go: Shifted-period aggregation
*/
package analysis

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/rs/zerolog"
	"github.com/shopspring/decimal"

	"github.com/finlens/metrics-engine/narrative"
)

// =============================================================================
// RESULT TYPES
// =============================================================================

// PnLResult is the full profit-and-loss analysis for one period.
type PnLResult struct {
	Rows            []Row
	TotalRevenue    decimal.Decimal
	TotalExpenses   decimal.Decimal
	NetProfit       decimal.Decimal
	GrossMargin     decimal.Decimal
	OperatingMargin *string
	MonthChange     PnLChanges
	YearChange      PnLChanges
	Period          Period
	Insight         string
}

// CashResult totals income and expense over the transactions row-set.
type CashResult struct {
	TotalIncome  decimal.Decimal
	TotalExpense decimal.Decimal
}

// InvoicesResult is the invoice analysis for one period.
type InvoicesResult struct {
	TotalCount  int
	Paid        InvoiceBucket
	Overdue     InvoiceBucket
	MonthChange InvoiceChanges
	YearChange  InvoiceChanges
	Period      Period
}

// RevenueResult compares the current calendar month or year against the
// previous one.
type RevenueResult struct {
	PeriodType string
	Delta      MetricDelta
	Currency   string
}

// =============================================================================
// ENGINE
// =============================================================================

// Engine executes analysis operations over injected collaborators. Optional
// fields (Profiles, Benchmarks) may stay nil; the corresponding outputs are
// simply absent.
type Engine struct {
	Files      FileSource
	Profiles   ProfileSource
	Benchmarks BenchmarkSource
	Narrator   narrative.Generator
	Cache      *ResultCache
	Now        func() time.Time
}

// NewEngine builds an engine over a file source and cache store, defaulting
// to the rule-based narrative generator and the wall clock.
func NewEngine(files FileSource, cacheStore CacheStore) *Engine {
	return &Engine{
		Files:    files,
		Cache:    NewResultCache(cacheStore),
		Narrator: narrative.Fallback{},
		Now:      time.Now,
	}
}

// =============================================================================
// P&L ANALYSIS
// =============================================================================

// PnLAnalysis computes totals, margins, comparative deltas and a narrative
// insight for the period. Results are cached per (user, period) with LRU
// tracking in the pnl family.
func (e *Engine) PnLAnalysis(ctx context.Context, user UserID, period Period) (PnLResult, error) {
	key := fmt.Sprintf("pnl_analysis_%s_%s_%s", user, period.Start.Format("2006-01-02"), period.End.Format("2006-01-02"))
	if cached, ok := e.Cache.Get(ctx, FamilyPnL, user, key); ok {
		if result, ok := cached.(PnLResult); ok {
			return result, nil
		}
	}

	rs, err := e.Files.GetLatest(ctx, user, TemplatePnL)
	if err != nil {
		return PnLResult{}, err
	}

	current, err := FilterByDate(rs, ColMonth, period)
	if err != nil {
		return PnLResult{}, err
	}

	totals := pnlTotals(current)
	grossMargin := GrossMargin(totals.Revenue, SumColumn(current, ColCOGS))

	monthChange, err := ComparePnL(rs, period, PriorMonth)
	if err != nil {
		return PnLResult{}, err
	}
	yearChange, err := ComparePnL(rs, period, PriorYear)
	if err != nil {
		return PnLResult{}, err
	}

	result := PnLResult{
		Rows:            current.Rows,
		TotalRevenue:    totals.Revenue,
		TotalExpenses:   totals.Expenses,
		NetProfit:       totals.NetProfit,
		GrossMargin:     grossMargin,
		OperatingMargin: e.operatingMargin(ctx, user),
		MonthChange:     monthChange,
		YearChange:      yearChange,
		Period:          period,
	}
	result.Insight = e.insight(ctx, result, current)

	e.Cache.Put(ctx, FamilyPnL, user, key, result)
	zerolog.Ctx(ctx).Info().Str("user", string(user)).Stringer("period", period).Msg("calculated and cached P&L analysis")
	return result, nil
}

// operatingMargin looks up the benchmark range for the user's declared
// industry. Nil when the user has no industry, no profile source or benchmark
// table is wired, or nothing matches.
func (e *Engine) operatingMargin(ctx context.Context, user UserID) *string {
	if e.Profiles == nil || e.Benchmarks == nil {
		return nil
	}
	profile, ok, err := e.Profiles.Profile(ctx, user)
	if err != nil {
		zerolog.Ctx(ctx).Warn().Err(err).Str("user", string(user)).Msg("profile lookup failed")
		return nil
	}
	industry := strings.TrimSpace(profile.Industry)
	if !ok || industry == "" {
		return nil
	}
	margin, ok := e.Benchmarks.OperatingMarginRange(industry)
	if !ok {
		zerolog.Ctx(ctx).Info().Str("industry", industry).Msg("no operating margin benchmark for industry")
		return nil
	}
	return &margin
}

// insight runs the narrative generator over the aggregated metrics, resolving
// any failure to the rule-based fallback.
func (e *Engine) insight(ctx context.Context, r PnLResult, current RowSet) string {
	metrics := narrative.Metrics{
		TotalRevenue:      r.TotalRevenue.InexactFloat64(),
		TotalExpenses:     r.TotalExpenses.InexactFloat64(),
		NetProfit:         r.NetProfit.InexactFloat64(),
		RevenueMoM:        r.MonthChange.Revenue.PercentageChange.InexactFloat64(),
		RevenueYoY:        r.YearChange.Revenue.PercentageChange.InexactFloat64(),
		ExpensesMoM:       r.MonthChange.Expenses.PercentageChange.InexactFloat64(),
		ExpensesYoY:       r.YearChange.Expenses.PercentageChange.InexactFloat64(),
		ProfitMoM:         r.MonthChange.NetProfit.PercentageChange.InexactFloat64(),
		ProfitYoY:         r.YearChange.NetProfit.PercentageChange.InexactFloat64(),
		ExpenseCategories: make(map[string]float64),
	}
	for category, total := range SumByColumn(current, ExpenseCategories) {
		if total.IsPositive() {
			metrics.ExpenseCategories[category] = total.InexactFloat64()
		}
	}

	generator := e.Narrator
	if generator == nil {
		generator = narrative.Fallback{}
	}
	insight, err := generator.Summarize(ctx, metrics)
	if err != nil {
		zerolog.Ctx(ctx).Warn().Err(err).Msg("narrative generation failed, using fallback insight")
		return narrative.FallbackInsight(metrics)
	}
	return insight
}

// =============================================================================
// CASH ANALYSIS
// =============================================================================

// CashAnalysis totals income and expense from the transactions row-set.
// With a period the rows are sliced on the Date column and the result joins
// the cash family's LRU list; without one the whole row-set is used and the
// result is cached for 24 hours under a single per-user key.
func (e *Engine) CashAnalysis(ctx context.Context, user UserID, period *Period) (CashResult, error) {
	key := fmt.Sprintf("cash_analysis_%s", user)
	if period != nil {
		key = fmt.Sprintf("cash_analysis_%s_%s_%s", user, period.Start.Format("2006-01-02"), period.End.Format("2006-01-02"))
		if cached, ok := e.Cache.Get(ctx, FamilyCash, user, key); ok {
			if result, ok := cached.(CashResult); ok {
				return result, nil
			}
		}
	} else if cached, ok := e.Cache.GetPlain(ctx, key); ok {
		if result, ok := cached.(CashResult); ok {
			return result, nil
		}
	}

	rs, err := e.Files.GetLatest(ctx, user, TemplateTransactions)
	if err != nil {
		return CashResult{}, err
	}
	for _, col := range []string{ColCategory, ColAmount} {
		if !rs.Empty() && !rs.HasColumn(col) {
			return CashResult{}, &SchemaError{Template: rs.Template, Column: col}
		}
	}

	if period != nil {
		rs, err = FilterByDate(rs, ColDate, *period)
		if err != nil {
			return CashResult{}, err
		}
	}

	var result CashResult
	for _, row := range rs.Rows {
		amount := row.Decimal(ColAmount)
		switch strings.ToLower(strings.TrimSpace(row[ColCategory])) {
		case "income":
			result.TotalIncome = result.TotalIncome.Add(amount)
		case "expense":
			result.TotalExpense = result.TotalExpense.Add(amount)
		}
	}

	if period != nil {
		e.Cache.Put(ctx, FamilyCash, user, key, result)
	} else {
		e.Cache.PutPlain(ctx, key, result, 24*time.Hour)
	}
	zerolog.Ctx(ctx).Info().Str("user", string(user)).Msg("calculated and cached cash analysis")
	return result, nil
}

// =============================================================================
// INVOICES ANALYSIS
// =============================================================================

// InvoicesAnalysis classifies and aggregates invoices for the period with
// MoM/YoY comparisons. Cached per (user, period) in the invoices family.
func (e *Engine) InvoicesAnalysis(ctx context.Context, user UserID, period Period) (InvoicesResult, error) {
	key := fmt.Sprintf("invoices_analysis_%s_%s_%s", user, period.Start.Format("2006-01-02"), period.End.Format("2006-01-02"))
	if cached, ok := e.Cache.Get(ctx, FamilyInvoices, user, key); ok {
		if result, ok := cached.(InvoicesResult); ok {
			return result, nil
		}
	}

	rs, err := e.Files.GetLatest(ctx, user, TemplateInvoices)
	if err != nil {
		return InvoicesResult{}, err
	}

	now := e.Now()
	totals := InvoiceMetrics(FilterInvoices(rs, period), now)

	result := InvoicesResult{
		TotalCount:  totals.TotalCount,
		Paid:        totals.Paid,
		Overdue:     totals.Overdue,
		MonthChange: CompareInvoices(rs, period, PriorMonth, now),
		YearChange:  CompareInvoices(rs, period, PriorYear, now),
		Period:      period,
	}

	e.Cache.Put(ctx, FamilyInvoices, user, key, result)
	zerolog.Ctx(ctx).Info().Str("user", string(user)).Stringer("period", period).Msg("calculated and cached invoices analysis")
	return result, nil
}

// =============================================================================
// EXPENSE BREAKDOWN
// =============================================================================

// ExpenseBreakdown analyzes each expense category over the period for total
// amount and spike status. Cached for one hour outside the LRU list; entries
// age out by TTL alone.
func (e *Engine) ExpenseBreakdown(ctx context.Context, user UserID, period Period) (ExpenseBreakdownResult, error) {
	key := fmt.Sprintf("expense_breakdown_%s_%s_%s", user, period.Start.Format("2006-01-02"), period.End.Format("2006-01-02"))
	if cached, ok := e.Cache.GetPlain(ctx, key); ok {
		if result, ok := cached.(ExpenseBreakdownResult); ok {
			return result, nil
		}
	}

	rs, err := e.Files.GetLatest(ctx, user, TemplatePnL)
	if err != nil {
		return nil, err
	}

	current, err := FilterByDate(rs, ColMonth, period)
	if err != nil {
		return nil, err
	}
	if current.Empty() {
		return nil, ErrEmptyPeriod
	}

	priorMonth, err := FilterByDate(rs, ColMonth, period.Shift(PriorMonth, 1))
	if err != nil {
		return nil, err
	}

	result := BreakdownExpenses(current, priorMonth)

	e.Cache.PutPlain(ctx, key, result, time.Hour)
	zerolog.Ctx(ctx).Info().Str("user", string(user)).Stringer("period", period).Msg("calculated and cached expense breakdown")
	return result, nil
}

// =============================================================================
// REVENUE ANALYSIS
// =============================================================================

// RevenueAnalysis compares revenue of the current calendar month or year
// against the previous one. periodType is "month" or "year". Cached for one
// hour under a key that includes the current date, so entries roll over at
// midnight without invalidation.
func (e *Engine) RevenueAnalysis(ctx context.Context, user UserID, periodType string) (RevenueResult, error) {
	now := e.Now()
	key := fmt.Sprintf("revenue_analysis_%s_%s_%s", user, periodType, now.Format("2006-01-02"))
	if cached, ok := e.Cache.GetPlain(ctx, key); ok {
		if result, ok := cached.(RevenueResult); ok {
			return result, nil
		}
	}

	rs, err := e.Files.GetLatest(ctx, user, TemplatePnL)
	if err != nil {
		return RevenueResult{}, err
	}

	var current, previous Period
	switch periodType {
	case "year":
		current = YearPeriod(now)
		previous = current.Shift(PriorYear, 1)
	default:
		periodType = "month"
		current = MonthPeriod(now)
		previous = current.Shift(PriorMonth, 1)
	}

	result := RevenueResult{
		PeriodType: periodType,
		Delta:      Delta(RevenueForPeriod(rs, current), RevenueForPeriod(rs, previous)),
		Currency:   e.currency(ctx, user),
	}

	e.Cache.PutPlain(ctx, key, result, time.Hour)
	zerolog.Ctx(ctx).Info().Str("user", string(user)).Str("period_type", periodType).Msg("calculated and cached revenue analysis")
	return result, nil
}

func (e *Engine) currency(ctx context.Context, user UserID) string {
	if e.Profiles == nil {
		return ""
	}
	profile, ok, err := e.Profiles.Profile(ctx, user)
	if err != nil || !ok {
		return ""
	}
	return profile.Currency
}

// =============================================================================
// INVALIDATION
// =============================================================================

// InvalidateCache wipes every cached result of the family for the user. The
// upload handler calls this after storing a new file of the corresponding
// template type; results computed from stale data must not survive.
func (e *Engine) InvalidateCache(ctx context.Context, user UserID, family Family) {
	extra := e.untrackedKeys(user, family)
	e.Cache.Invalidate(ctx, family, user, extra...)
}

// untrackedKeys enumerates the deterministic keys cached outside the family's
// LRU list. Expense-breakdown entries are period-keyed and cannot be
// enumerated; their one-hour TTL bounds staleness instead.
func (e *Engine) untrackedKeys(user UserID, family Family) []string {
	switch family {
	case FamilyCash:
		return []string{fmt.Sprintf("cash_analysis_%s", user)}
	case FamilyPnL:
		today := e.Now().Format("2006-01-02")
		return []string{
			fmt.Sprintf("revenue_analysis_%s_month_%s", user, today),
			fmt.Sprintf("revenue_analysis_%s_year_%s", user, today),
		}
	default:
		return nil
	}
}
