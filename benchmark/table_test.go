package benchmark_test

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/finlens/metrics-engine/benchmark"
)

const normsCSV = `industry,Gross_margin_range,Operating_margin_range,Cash_buffer_months,DSO_range,Expense_mix_notes
Retail,25-35%,2-6%,1-2,5-15,Inventory heavy
Software & SaaS,70-85%,10-25%,3-6,30-60,Payroll and hosting
Professional Services,50-70%,10-20%,2-4,30-60,Payroll dominates
Personal Services,55-75%,8-15%,1-2,1-10,Payroll and rent
`

func load(t *testing.T) *benchmark.Table {
	t.Helper()
	table, err := benchmark.LoadReader(strings.NewReader(normsCSV))
	require.NoError(t, err)
	return table
}

// =============================================================================
// LOOKUP STAGES
// =============================================================================

func TestLookup_ExactMatch(t *testing.T) {
	row, ok := load(t).Lookup("Software & SaaS")
	require.True(t, ok)
	assert.Equal(t, "70-85%", row.GrossMarginRange)
}

func TestLookup_CaseInsensitiveMatch(t *testing.T) {
	row, ok := load(t).Lookup("RETAIL")
	require.True(t, ok)
	assert.Equal(t, "Retail", row.Industry)
}

func TestLookup_SubstringMatch(t *testing.T) {
	// "SaaS" appears inside "Software & SaaS".
	row, ok := load(t).Lookup("SaaS")
	require.True(t, ok)
	assert.Equal(t, "Software & SaaS", row.Industry)
}

func TestLookup_SubstringReverseDirection(t *testing.T) {
	// The table name appears inside the queried composite name.
	row, ok := load(t).Lookup("Boutique Retail Group")
	require.True(t, ok)
	assert.Equal(t, "Retail", row.Industry)
}

func TestLookup_SubstringFirstInTableOrderWins(t *testing.T) {
	// "services" substring-matches both service rows; the earlier table row is
	// the pinned winner, not the closer name.
	row, ok := load(t).Lookup("services")
	require.True(t, ok)
	assert.Equal(t, "Professional Services", row.Industry)
}

func TestLookup_ExactBeatsSubstring(t *testing.T) {
	row, ok := load(t).Lookup("Personal Services")
	require.True(t, ok)
	assert.Equal(t, "Personal Services", row.Industry)
}

func TestLookup_NoMatch(t *testing.T) {
	_, ok := load(t).Lookup("Space Mining")
	assert.False(t, ok)
	_, ok = load(t).Lookup("   ")
	assert.False(t, ok)
}

// =============================================================================
// DERIVED ACCESSORS
// =============================================================================

func TestOperatingMarginRange(t *testing.T) {
	margin, ok := load(t).OperatingMarginRange("Retail")
	require.True(t, ok)
	assert.Equal(t, "2-6%", margin)

	_, ok = load(t).OperatingMarginRange("Space Mining")
	assert.False(t, ok)
}

func TestDetails_ExactOnly(t *testing.T) {
	_, ok := load(t).Details("SaaS")
	assert.False(t, ok, "details must not use substring matching")

	row, ok := load(t).Details("software & saas")
	require.True(t, ok)
	assert.Equal(t, "Software & SaaS", row.Industry)
}

func TestIndustries_SortedUnique(t *testing.T) {
	industries := load(t).Industries()
	assert.Equal(t, []string{
		"Personal Services", "Professional Services", "Retail", "Software & SaaS",
	}, industries)
}

// =============================================================================
// LOADING
// =============================================================================

func TestLoadReader_RequiresIndustryColumn(t *testing.T) {
	_, err := benchmark.LoadReader(strings.NewReader("name,notes\nRetail,foo\n"))
	assert.Error(t, err)
}

func TestLoadReader_HeaderCaseInsensitive(t *testing.T) {
	table, err := benchmark.LoadReader(strings.NewReader("INDUSTRY,OPERATING_MARGIN_RANGE\nRetail,2-6%\n"))
	require.NoError(t, err)

	margin, ok := table.OperatingMarginRange("Retail")
	require.True(t, ok)
	assert.Equal(t, "2-6%", margin)
}

func TestDefault_EmbeddedTableLoads(t *testing.T) {
	table := benchmark.Default()
	assert.NotEmpty(t, table.Industries())

	_, ok := table.Lookup("Retail")
	assert.True(t, ok)
}
