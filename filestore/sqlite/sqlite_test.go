package sqlite_test

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/finlens/metrics-engine/analysis"
	"github.com/finlens/metrics-engine/filestore/sqlite"
)

func newStore(t *testing.T) *sqlite.Store {
	t.Helper()
	s, err := sqlite.New(":memory:")
	require.NoError(t, err)
	t.Cleanup(func() { _ = s.Close() })
	return s
}

const pnlCSV = "Month,Revenue,COGS\n2024-03,1000,400\n"

// =============================================================================
// FILE LIFECYCLE
// =============================================================================

func TestSaveAndGetLatest(t *testing.T) {
	s := newStore(t)
	ctx := context.Background()

	record, err := s.SaveFile(ctx, "user-1", analysis.TemplatePnL, "march.csv", []byte(pnlCSV))
	require.NoError(t, err)
	assert.NotEmpty(t, record.ID)
	assert.True(t, record.Active)

	rs, err := s.GetLatest(ctx, "user-1", analysis.TemplatePnL)
	require.NoError(t, err)
	require.Equal(t, 1, rs.Len())
	assert.Equal(t, analysis.TemplatePnL, rs.Template)
	assert.Equal(t, "1000", rs.Rows[0]["Revenue"])
}

func TestSaveFile_ReplacesActiveUpload(t *testing.T) {
	// GIVEN: Two uploads of the same template
	// WHEN: Reading the latest row-set
	// THEN: Only the second upload is served; the first stays for audit

	s := newStore(t)
	ctx := context.Background()

	_, err := s.SaveFile(ctx, "user-1", analysis.TemplatePnL, "v1.csv", []byte(pnlCSV))
	require.NoError(t, err)
	_, err = s.SaveFile(ctx, "user-1", analysis.TemplatePnL, "v2.csv", []byte("Month,Revenue\n2024-04,2000\n"))
	require.NoError(t, err)

	rs, err := s.GetLatest(ctx, "user-1", analysis.TemplatePnL)
	require.NoError(t, err)
	require.Equal(t, 1, rs.Len())
	assert.Equal(t, "2000", rs.Rows[0]["Revenue"])

	records, err := s.ListFiles(ctx, "user-1")
	require.NoError(t, err)
	require.Len(t, records, 2)

	active := 0
	for _, r := range records {
		if r.Active {
			active++
			assert.Equal(t, "v2.csv", r.Filename)
		}
	}
	assert.Equal(t, 1, active, "exactly one upload per template may be active")
}

func TestGetLatest_NoUploadIsNoData(t *testing.T) {
	s := newStore(t)

	_, err := s.GetLatest(context.Background(), "user-1", analysis.TemplateInvoices)
	assert.True(t, analysis.IsNoData(err), "expected no-data error, got %v", err)
}

func TestGetLatest_TemplatesAreIndependent(t *testing.T) {
	s := newStore(t)
	ctx := context.Background()

	_, err := s.SaveFile(ctx, "user-1", analysis.TemplatePnL, "pnl.csv", []byte(pnlCSV))
	require.NoError(t, err)

	_, err = s.GetLatest(ctx, "user-1", analysis.TemplateTransactions)
	assert.True(t, analysis.IsNoData(err))
}

func TestGetLatest_UsersAreIsolated(t *testing.T) {
	s := newStore(t)
	ctx := context.Background()

	_, err := s.SaveFile(ctx, "user-1", analysis.TemplatePnL, "pnl.csv", []byte(pnlCSV))
	require.NoError(t, err)

	_, err = s.GetLatest(ctx, "user-2", analysis.TemplatePnL)
	assert.True(t, analysis.IsNoData(err))
}

// =============================================================================
// PROFILES
// =============================================================================

func TestProfile_RoundTrip(t *testing.T) {
	s := newStore(t)
	ctx := context.Background()

	_, found, err := s.Profile(ctx, "user-1")
	require.NoError(t, err)
	assert.False(t, found)

	require.NoError(t, s.SetProfile(ctx, "user-1", analysis.Profile{Industry: "Retail", Currency: "USD"}))

	p, found, err := s.Profile(ctx, "user-1")
	require.NoError(t, err)
	require.True(t, found)
	assert.Equal(t, "Retail", p.Industry)
	assert.Equal(t, "USD", p.Currency)
}

func TestProfile_Upsert(t *testing.T) {
	s := newStore(t)
	ctx := context.Background()

	require.NoError(t, s.SetProfile(ctx, "user-1", analysis.Profile{Industry: "Retail", Currency: "USD"}))
	require.NoError(t, s.SetProfile(ctx, "user-1", analysis.Profile{Industry: "E-commerce", Currency: "EUR"}))

	p, found, err := s.Profile(ctx, "user-1")
	require.NoError(t, err)
	require.True(t, found)
	assert.Equal(t, "E-commerce", p.Industry)
	assert.Equal(t, "EUR", p.Currency)
}
