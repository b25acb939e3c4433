/*
period.go - Calendar-aware analysis periods and date filtering

PURPOSE:
  Defines the inclusive date range every analysis runs over and the shifted
  comparison periods (prior month, prior year) the comparative analyzer needs.

CALENDAR ARITHMETIC:
  Shifting must be calendar-correct: moving 2024-03-31 back one month lands on
  2024-02-29 (the last valid day of February), never an invalid date, and a
  two-month shift is computed in one step so 2024-03-31 lands on 2024-01-31
  rather than drifting through the short month.

SEE ALSO:
  - rowset.go: Row date parsing
  - compare.go: Shifted-period aggregation
*/
package analysis

import (
	"fmt"
	"time"
)

// =============================================================================
// PERIOD
// =============================================================================

// Period is an inclusive [Start, End] date range, normalized to UTC midnight.
type Period struct {
	Start time.Time
	End   time.Time
}

// NewPeriod builds a period, rejecting ranges where the end precedes the start.
func NewPeriod(start, end time.Time) (Period, error) {
	start = midnight(start)
	end = midnight(end)
	if end.Before(start) {
		return Period{}, ErrInvalidPeriod
	}
	return Period{Start: start, End: end}, nil
}

// Contains reports whether t falls within the period, boundaries included.
func (p Period) Contains(t time.Time) bool {
	t = midnight(t)
	return !t.Before(p.Start) && !t.After(p.End)
}

func (p Period) String() string {
	return fmt.Sprintf("[%s, %s]", p.Start.Format("2006-01-02"), p.End.Format("2006-01-02"))
}

func midnight(t time.Time) time.Time {
	return time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, time.UTC)
}

// =============================================================================
// PERIOD SHIFT - Prior-month / prior-year comparison windows
// =============================================================================

// PeriodShift selects which comparison window Shift produces.
type PeriodShift int

const (
	PriorMonth PeriodShift = iota
	PriorYear
)

func (s PeriodShift) String() string {
	if s == PriorYear {
		return "year"
	}
	return "month"
}

// Shift returns the period moved back by n months or n years, applied to both
// boundaries. The day of month is clamped to the last valid day of the target
// month, and multi-step shifts are computed in a single jump from the original
// boundary.
func (p Period) Shift(shift PeriodShift, n int) Period {
	switch shift {
	case PriorYear:
		return Period{
			Start: addMonthsClamped(p.Start, -12*n),
			End:   addMonthsClamped(p.End, -12*n),
		}
	default:
		return Period{
			Start: addMonthsClamped(p.Start, -n),
			End:   addMonthsClamped(p.End, -n),
		}
	}
}

// addMonthsClamped moves t by n calendar months, clamping the day to the last
// valid day of the target month. time.Time.AddDate is unsuitable here: it
// normalizes Feb 30 into early March.
func addMonthsClamped(t time.Time, n int) time.Time {
	year, month, day := t.Date()
	// Months since year zero, then back to (year, month).
	total := year*12 + int(month) - 1 + n
	targetYear := total / 12
	targetMonth := time.Month(total%12 + 1)

	if last := daysInMonth(targetYear, targetMonth); day > last {
		day = last
	}
	return time.Date(targetYear, targetMonth, day, 0, 0, 0, 0, time.UTC)
}

func daysInMonth(year int, month time.Month) int {
	return time.Date(year, month+1, 0, 0, 0, 0, 0, time.UTC).Day()
}

// =============================================================================
// CALENDAR HELPERS
// =============================================================================

func StartOfMonth(year int, month time.Month) time.Time {
	return time.Date(year, month, 1, 0, 0, 0, 0, time.UTC)
}

func EndOfMonth(year int, month time.Month) time.Time {
	return time.Date(year, month+1, 0, 0, 0, 0, 0, time.UTC)
}

func StartOfYear(year int) time.Time {
	return time.Date(year, time.January, 1, 0, 0, 0, 0, time.UTC)
}

func EndOfYear(year int) time.Time {
	return time.Date(year, time.December, 31, 0, 0, 0, 0, time.UTC)
}

// MonthPeriod is the full calendar month containing t.
func MonthPeriod(t time.Time) Period {
	return Period{Start: StartOfMonth(t.Year(), t.Month()), End: EndOfMonth(t.Year(), t.Month())}
}

// YearPeriod is the full calendar year containing t.
func YearPeriod(t time.Time) Period {
	return Period{Start: StartOfYear(t.Year()), End: EndOfYear(t.Year())}
}

// =============================================================================
// PERIOD FILTER
// =============================================================================

// FilterByDate returns the sub-sequence of rows whose parsed date in col falls
// within the period. A row-set that carries no such column at all is an
// incompatible template and yields a *SchemaError; rows whose date cell fails
// to parse are dropped silently.
func FilterByDate(rs RowSet, col string, p Period) (RowSet, error) {
	if !rs.Empty() && !rs.HasColumn(col) {
		return RowSet{}, &SchemaError{Template: rs.Template, Column: col}
	}

	filtered := RowSet{Template: rs.Template}
	for _, row := range rs.Rows {
		d, ok := row.Date(col)
		if !ok {
			continue
		}
		if p.Contains(d) {
			filtered.Rows = append(filtered.Rows, row)
		}
	}
	return filtered, nil
}
