/*
Package benchmark provides the static industry norms reference table.

PURPOSE:
  Maps an industry name to typical financial ratios (margin ranges, cash
  buffer, days-sales-outstanding). The table is loaded once from CSV and
  matched by name with a deliberately heuristic three-stage lookup:

    1. exact, case-sensitive match
    2. exact, case-insensitive match
    3. substring match either direction, case-insensitive

  The first row in table order wins at every stage. Substring matching can
  plausibly hit several rows for composite industry names; first-in-order is
  the pinned behavior, not "best match".

LOOKUP NEVER FAILS:
  A missing industry or empty table yields (zero, false) - benchmarks are
  advisory, so absence is a normal outcome, not an error.
*/
package benchmark

import (
	_ "embed"
	"encoding/csv"
	"fmt"
	"io"
	"os"
	"sort"
	"strings"
)

//go:embed industry_norms.csv
var defaultNorms []byte

// Row is one industry's reference ratios.
type Row struct {
	Industry             string
	GrossMarginRange     string
	OperatingMarginRange string
	CashBufferMonths     string
	DSORange             string
	ExpenseMixNotes      string
}

// Table is the loaded norms table. Immutable after load; safe for concurrent
// reads.
type Table struct {
	rows       []Row
	industries []string
}

// Load reads a norms table from a CSV file.
func Load(path string) (*Table, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("failed to open industry norms file: %w", err)
	}
	defer func() { _ = f.Close() }()
	return LoadReader(f)
}

// Default returns the table built into the binary.
func Default() *Table {
	t, err := LoadReader(strings.NewReader(string(defaultNorms)))
	if err != nil {
		// The embedded CSV is fixed at build time; a parse failure here is a
		// broken build, not a runtime condition.
		panic(fmt.Sprintf("embedded industry norms are invalid: %v", err))
	}
	return t
}

// LoadReader reads a norms table from headered CSV. Column headers are
// matched case-insensitively.
func LoadReader(r io.Reader) (*Table, error) {
	reader := csv.NewReader(r)
	reader.FieldsPerRecord = -1
	reader.TrimLeadingSpace = true

	records, err := reader.ReadAll()
	if err != nil {
		return nil, fmt.Errorf("failed to parse industry norms csv: %w", err)
	}
	if len(records) == 0 {
		return &Table{}, nil
	}

	index := make(map[string]int, len(records[0]))
	for i, col := range records[0] {
		index[strings.ToLower(strings.TrimSpace(col))] = i
	}
	if _, ok := index["industry"]; !ok {
		return nil, fmt.Errorf("industry column not found in norms csv")
	}

	cell := func(record []string, col string) string {
		i, ok := index[col]
		if !ok || i >= len(record) {
			return ""
		}
		return strings.TrimSpace(record[i])
	}

	t := &Table{}
	seen := make(map[string]bool)
	for _, record := range records[1:] {
		row := Row{
			Industry:             cell(record, "industry"),
			GrossMarginRange:     cell(record, "gross_margin_range"),
			OperatingMarginRange: cell(record, "operating_margin_range"),
			CashBufferMonths:     cell(record, "cash_buffer_months"),
			DSORange:             cell(record, "dso_range"),
			ExpenseMixNotes:      cell(record, "expense_mix_notes"),
		}
		if row.Industry == "" {
			continue
		}
		t.rows = append(t.rows, row)
		if !seen[row.Industry] {
			seen[row.Industry] = true
			t.industries = append(t.industries, row.Industry)
		}
	}
	sort.Strings(t.industries)
	return t, nil
}

// =============================================================================
// LOOKUP
// =============================================================================

// Lookup finds the row for an industry using the three-stage heuristic.
func (t *Table) Lookup(industry string) (Row, bool) {
	industry = strings.TrimSpace(industry)
	if industry == "" {
		return Row{}, false
	}

	// Stage 1: exact.
	for _, row := range t.rows {
		if row.Industry == industry {
			return row, true
		}
	}

	// Stage 2: case-insensitive exact.
	lower := strings.ToLower(industry)
	for _, row := range t.rows {
		if strings.ToLower(row.Industry) == lower {
			return row, true
		}
	}

	// Stage 3: substring either direction, first match in table order.
	for _, row := range t.rows {
		rowLower := strings.ToLower(row.Industry)
		if strings.Contains(rowLower, lower) || strings.Contains(lower, rowLower) {
			return row, true
		}
	}

	return Row{}, false
}

// OperatingMarginRange resolves the operating-margin range for an industry.
// False when nothing matches or the matched row has no range recorded.
func (t *Table) OperatingMarginRange(industry string) (string, bool) {
	row, ok := t.Lookup(industry)
	if !ok || row.OperatingMarginRange == "" {
		return "", false
	}
	return row.OperatingMarginRange, true
}

// Details returns the full row for an exact (case-insensitive) industry name.
func (t *Table) Details(industry string) (Row, bool) {
	lower := strings.ToLower(strings.TrimSpace(industry))
	for _, row := range t.rows {
		if strings.ToLower(row.Industry) == lower {
			return row, true
		}
	}
	return Row{}, false
}

// Industries lists the unique industry names, sorted alphabetically.
func (t *Table) Industries() []string {
	return append([]string(nil), t.industries...)
}
