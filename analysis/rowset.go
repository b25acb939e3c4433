package analysis

import (
	"encoding/csv"
	"fmt"
	"io"
	"strings"
	"time"

	"github.com/shopspring/decimal"
)

// =============================================================================
// ROW SET - Transient, schema-tagged view of an uploaded spreadsheet
// =============================================================================

// Row is a single spreadsheet row: column name to raw cell value. Cells stay
// strings until a typed accessor parses them; a cell that fails to parse is
// treated the same as an absent cell.
type Row map[string]string

// Has reports whether the column exists on this row with a non-empty value.
func (r Row) Has(col string) bool {
	v, ok := r[col]
	return ok && strings.TrimSpace(v) != ""
}

// Decimal parses the cell as an exact decimal. Missing or non-numeric cells
// degrade to zero rather than failing the whole analysis.
func (r Row) Decimal(col string) decimal.Decimal {
	v, ok := r[col]
	if !ok {
		return decimal.Zero
	}
	v = strings.TrimSpace(strings.ReplaceAll(v, ",", ""))
	v = strings.TrimPrefix(v, "$")
	if v == "" {
		return decimal.Zero
	}
	d, err := decimal.NewFromString(v)
	if err != nil {
		return decimal.Zero
	}
	return d
}

// dateLayouts are the accepted spreadsheet date formats, most specific first.
var dateLayouts = []string{
	"2006-01-02",
	"2006-01-02 15:04:05",
	time.RFC3339,
	"2006/01/02",
	"01/02/2006",
	"2006-01",
}

// Date parses the cell as a calendar date, normalized to UTC midnight.
// Returns false for missing or unparseable values.
func (r Row) Date(col string) (time.Time, bool) {
	v, ok := r[col]
	if !ok {
		return time.Time{}, false
	}
	v = strings.TrimSpace(v)
	if v == "" {
		return time.Time{}, false
	}
	for _, layout := range dateLayouts {
		t, err := time.Parse(layout, v)
		if err == nil {
			return time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, time.UTC), true
		}
	}
	return time.Time{}, false
}

// RowSet is an ordered sequence of rows sharing a template schema. Owned
// transiently by one analysis call; never mutated, only filtered into new
// row-sets.
type RowSet struct {
	Template TemplateType
	Rows     []Row
}

// Len returns the number of rows.
func (rs RowSet) Len() int { return len(rs.Rows) }

// Empty reports whether the row-set has no rows.
func (rs RowSet) Empty() bool { return len(rs.Rows) == 0 }

// HasColumn reports whether any row carries the column. Uploaded CSVs share a
// header, so checking the first row would normally suffice, but rows are kept
// self-describing to tolerate ragged data.
func (rs RowSet) HasColumn(col string) bool {
	for _, row := range rs.Rows {
		if _, ok := row[col]; ok {
			return true
		}
	}
	return false
}

// FirstColumn returns the first of the candidate columns present in the
// row-set, or false when none exists.
func (rs RowSet) FirstColumn(candidates []string) (string, bool) {
	for _, col := range candidates {
		if rs.HasColumn(col) {
			return col, true
		}
	}
	return "", false
}

// =============================================================================
// CSV DECODING
// =============================================================================

// RowSetFromCSV reads a headered CSV document into a RowSet tagged with the
// given template type. Short records are padded with empty cells; an empty
// document yields an empty row-set, not an error.
func RowSetFromCSV(template TemplateType, r io.Reader) (RowSet, error) {
	reader := csv.NewReader(r)
	reader.FieldsPerRecord = -1
	reader.TrimLeadingSpace = true

	records, err := reader.ReadAll()
	if err != nil {
		return RowSet{}, fmt.Errorf("failed to parse csv: %w", err)
	}
	if len(records) == 0 {
		return RowSet{Template: template}, nil
	}

	header := records[0]
	for i, col := range header {
		header[i] = strings.TrimSpace(col)
	}

	rows := make([]Row, 0, len(records)-1)
	for _, record := range records[1:] {
		row := make(Row, len(header))
		for i, col := range header {
			if col == "" {
				continue
			}
			if i < len(record) {
				row[col] = strings.TrimSpace(record[i])
			} else {
				row[col] = ""
			}
		}
		rows = append(rows, row)
	}

	return RowSet{Template: template, Rows: rows}, nil
}
