package api_test

import (
	"bytes"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/finlens/metrics-engine/analysis"
	"github.com/finlens/metrics-engine/analysis/store"
	"github.com/finlens/metrics-engine/api"
	"github.com/finlens/metrics-engine/benchmark"
	"github.com/finlens/metrics-engine/filestore/sqlite"
)

const pnlCSV = "Month,Revenue,COGS,Payroll,Rent\n" +
	"2024-02,1000,350,200,100\n" +
	"2024-03,1200,400,250,100\n"

func newTestServer(t *testing.T) *httptest.Server {
	t.Helper()

	files, err := sqlite.New(":memory:")
	require.NoError(t, err)
	t.Cleanup(func() { _ = files.Close() })

	benchmarks := benchmark.Default()

	engine := analysis.NewEngine(files, store.NewMemory())
	engine.Profiles = files
	engine.Benchmarks = benchmarks

	logger := zerolog.Nop()
	router := api.NewRouter(api.NewHandler(engine, files, benchmarks), &logger, []string{"*"})

	srv := httptest.NewServer(router)
	t.Cleanup(srv.Close)
	return srv
}

func doRequest(t *testing.T, srv *httptest.Server, method, path, user string, body []byte, contentType string) *http.Response {
	t.Helper()

	req, err := http.NewRequest(method, srv.URL+path, bytes.NewReader(body))
	require.NoError(t, err)
	if user != "" {
		req.Header.Set("X-User-ID", user)
	}
	if contentType != "" {
		req.Header.Set("Content-Type", contentType)
	}

	resp, err := http.DefaultClient.Do(req)
	require.NoError(t, err)
	t.Cleanup(func() { _ = resp.Body.Close() })
	return resp
}

func decode(t *testing.T, resp *http.Response, v any) {
	t.Helper()
	require.NoError(t, json.NewDecoder(resp.Body).Decode(v))
}

func uploadCSV(t *testing.T, srv *httptest.Server, user, template, csv string) {
	t.Helper()
	resp := doRequest(t, srv, http.MethodPost, "/api/files/"+template, user, []byte(csv), "text/csv")
	require.Equal(t, http.StatusCreated, resp.StatusCode)
}

// =============================================================================
// TENANCY & VALIDATION
// =============================================================================

func TestAnalysis_RequiresUserHeader(t *testing.T) {
	srv := newTestServer(t)

	resp := doRequest(t, srv, http.MethodGet, "/api/analysis/pnl?start_date=2024-03-01&end_date=2024-03-31", "", nil, "")
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
}

func TestAnalysis_DateValidation(t *testing.T) {
	srv := newTestServer(t)

	tests := []struct {
		name  string
		query string
	}{
		{"missing start", "end_date=2024-03-31"},
		{"missing end", "start_date=2024-03-01"},
		{"malformed date", "start_date=03/01/2024&end_date=2024-03-31"},
		{"inverted range", "start_date=2024-03-31&end_date=2024-03-01"},
		{"future start", "start_date=2099-01-01&end_date=2099-01-31"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			resp := doRequest(t, srv, http.MethodGet, "/api/analysis/pnl?"+tt.query, "user-1", nil, "")
			assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
		})
	}
}

func TestAnalysis_NoUploadIs404(t *testing.T) {
	srv := newTestServer(t)

	resp := doRequest(t, srv, http.MethodGet, "/api/analysis/pnl?start_date=2024-03-01&end_date=2024-03-31", "user-1", nil, "")
	assert.Equal(t, http.StatusNotFound, resp.StatusCode)
}

// =============================================================================
// P&L FLOW
// =============================================================================

func TestPnLAnalysis_UploadThenAnalyze(t *testing.T) {
	// GIVEN: An uploaded two-month P&L
	// WHEN: Requesting the March analysis
	// THEN: Totals, margin, deltas and an insight come back as JSON

	srv := newTestServer(t)
	uploadCSV(t, srv, "user-1", "pnl", pnlCSV)

	resp := doRequest(t, srv, http.MethodGet, "/api/analysis/pnl?start_date=2024-03-01&end_date=2024-03-31", "user-1", nil, "")
	require.Equal(t, http.StatusOK, resp.StatusCode)

	var body struct {
		TotalRevenue  float64 `json:"total_revenue"`
		TotalExpenses float64 `json:"total_expenses"`
		NetProfit     float64 `json:"net_profit"`
		GrossMargin   float64 `json:"gross_margin"`
		MonthChange   struct {
			Revenue struct {
				PercentageChange float64 `json:"percentage_change"`
				IsPositive       bool    `json:"is_positive"`
			} `json:"revenue"`
		} `json:"month_change"`
		Period struct {
			StartDate string `json:"start_date"`
		} `json:"period"`
		Insight string `json:"insight"`
	}
	decode(t, resp, &body)

	assert.Equal(t, 1200.0, body.TotalRevenue)
	assert.Equal(t, 750.0, body.TotalExpenses)
	assert.Equal(t, 450.0, body.NetProfit)
	assert.InDelta(t, 66.67, body.GrossMargin, 0.001)
	assert.InDelta(t, 20.0, body.MonthChange.Revenue.PercentageChange, 0.001)
	assert.True(t, body.MonthChange.Revenue.IsPositive)
	assert.Equal(t, "2024-03-01", body.Period.StartDate)
	assert.NotEmpty(t, body.Insight)
}

func TestUpload_InvalidatesCachedAnalysis(t *testing.T) {
	// A new upload must immediately show in the next analysis even though the
	// previous result was cached seconds ago.
	srv := newTestServer(t)
	uploadCSV(t, srv, "user-1", "pnl", pnlCSV)

	path := "/api/analysis/pnl?start_date=2024-03-01&end_date=2024-03-31"
	resp := doRequest(t, srv, http.MethodGet, path, "user-1", nil, "")
	require.Equal(t, http.StatusOK, resp.StatusCode)

	uploadCSV(t, srv, "user-1", "pnl", "Month,Revenue,COGS\n2024-03,5000,1000\n")

	resp = doRequest(t, srv, http.MethodGet, path, "user-1", nil, "")
	require.Equal(t, http.StatusOK, resp.StatusCode)

	var body struct {
		TotalRevenue float64 `json:"total_revenue"`
	}
	decode(t, resp, &body)
	assert.Equal(t, 5000.0, body.TotalRevenue)
}

// =============================================================================
// CASH, INVOICES, EXPENSES, REVENUE
// =============================================================================

func TestCashAnalysis_Flow(t *testing.T) {
	srv := newTestServer(t)
	uploadCSV(t, srv, "user-1", "transactions",
		"Date,Category,Amount\n2024-03-05,income,1000\n2024-03-10,expense,300\n")

	resp := doRequest(t, srv, http.MethodGet, "/api/analysis/cash", "user-1", nil, "")
	require.Equal(t, http.StatusOK, resp.StatusCode)

	var body struct {
		TotalIncome  float64 `json:"total_income"`
		TotalExpense float64 `json:"total_expense"`
		NetCashFlow  float64 `json:"net_cash_flow"`
	}
	decode(t, resp, &body)
	assert.Equal(t, 1000.0, body.TotalIncome)
	assert.Equal(t, 300.0, body.TotalExpense)
	assert.Equal(t, 700.0, body.NetCashFlow)
}

func TestCashAnalysis_MissingColumnIs422(t *testing.T) {
	srv := newTestServer(t)
	uploadCSV(t, srv, "user-1", "transactions", "Date,Amount\n2024-03-05,1000\n")

	resp := doRequest(t, srv, http.MethodGet, "/api/analysis/cash", "user-1", nil, "")
	assert.Equal(t, http.StatusUnprocessableEntity, resp.StatusCode)
}

func TestInvoicesAnalysis_Flow(t *testing.T) {
	srv := newTestServer(t)
	uploadCSV(t, srv, "user-1", "invoices",
		"Date,Status,Amount\n2024-03-05,paid,100\n2024-03-10,overdue,50\n")

	resp := doRequest(t, srv, http.MethodGet, "/api/analysis/invoices?start_date=2024-03-01&end_date=2024-03-31", "user-1", nil, "")
	require.Equal(t, http.StatusOK, resp.StatusCode)

	var body struct {
		TotalCount int `json:"total_count"`
		Paid       struct {
			Count  int     `json:"count"`
			Amount float64 `json:"amount"`
		} `json:"paid"`
	}
	decode(t, resp, &body)
	assert.Equal(t, 2, body.TotalCount)
	assert.Equal(t, 1, body.Paid.Count)
	assert.Equal(t, 100.0, body.Paid.Amount)
}

func TestExpenseBreakdown_EmptyPeriodIs422(t *testing.T) {
	srv := newTestServer(t)
	uploadCSV(t, srv, "user-1", "pnl", pnlCSV)

	resp := doRequest(t, srv, http.MethodGet, "/api/analysis/expenses?start_date=2023-01-01&end_date=2023-01-31", "user-1", nil, "")
	assert.Equal(t, http.StatusUnprocessableEntity, resp.StatusCode)
}

func TestExpenseBreakdown_Flow(t *testing.T) {
	srv := newTestServer(t)
	uploadCSV(t, srv, "user-1", "pnl", pnlCSV)

	resp := doRequest(t, srv, http.MethodGet, "/api/analysis/expenses?start_date=2024-03-01&end_date=2024-03-31", "user-1", nil, "")
	require.Equal(t, http.StatusOK, resp.StatusCode)

	var body map[string]struct {
		TotalAmount float64 `json:"total_amount"`
		IsSpike     bool    `json:"is_spike"`
	}
	decode(t, resp, &body)
	require.Contains(t, body, "COGS")
	assert.Equal(t, 400.0, body["COGS"].TotalAmount)
}

func TestRevenueAnalysis_InvalidPeriodType(t *testing.T) {
	srv := newTestServer(t)

	resp := doRequest(t, srv, http.MethodGet, "/api/analysis/revenue?period=quarter", "user-1", nil, "")
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
}

// =============================================================================
// UPLOADS
// =============================================================================

func TestUpload_UnknownTemplateIs400(t *testing.T) {
	srv := newTestServer(t)

	resp := doRequest(t, srv, http.MethodPost, "/api/files/balance_sheet", "user-1", []byte(pnlCSV), "text/csv")
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
}

func TestUpload_EmptyBodyIs400(t *testing.T) {
	srv := newTestServer(t)

	resp := doRequest(t, srv, http.MethodPost, "/api/files/pnl", "user-1", nil, "text/csv")
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
}

func TestUpload_MalformedCSVIs422(t *testing.T) {
	srv := newTestServer(t)

	// An unterminated quote is unparseable CSV.
	resp := doRequest(t, srv, http.MethodPost, "/api/files/pnl", "user-1", []byte("Month,Revenue\n\"2024-03,100\n"), "text/csv")
	assert.Equal(t, http.StatusUnprocessableEntity, resp.StatusCode)
}

func TestListFiles_History(t *testing.T) {
	srv := newTestServer(t)
	uploadCSV(t, srv, "user-1", "pnl", pnlCSV)
	uploadCSV(t, srv, "user-1", "pnl", pnlCSV)

	resp := doRequest(t, srv, http.MethodGet, "/api/files", "user-1", nil, "")
	require.Equal(t, http.StatusOK, resp.StatusCode)

	var body []struct {
		TemplateType string `json:"template_type"`
		IsActive     bool   `json:"is_active"`
	}
	decode(t, resp, &body)
	require.Len(t, body, 2)

	active := 0
	for _, f := range body {
		assert.Equal(t, "pnl", f.TemplateType)
		if f.IsActive {
			active++
		}
	}
	assert.Equal(t, 1, active)
}

// =============================================================================
// INDUSTRIES & PROFILE
// =============================================================================

func TestIndustries_List(t *testing.T) {
	srv := newTestServer(t)

	resp := doRequest(t, srv, http.MethodGet, "/api/industries", "", nil, "")
	require.Equal(t, http.StatusOK, resp.StatusCode)

	var body struct {
		Industries []string `json:"industries"`
	}
	decode(t, resp, &body)
	assert.NotEmpty(t, body.Industries)
}

func TestIndustries_DetailsAndMiss(t *testing.T) {
	srv := newTestServer(t)

	resp := doRequest(t, srv, http.MethodGet, "/api/industries/Retail", "", nil, "")
	require.Equal(t, http.StatusOK, resp.StatusCode)

	var body struct {
		Industry         string `json:"industry"`
		GrossMarginRange string `json:"gross_margin_range"`
	}
	decode(t, resp, &body)
	assert.Equal(t, "Retail", body.Industry)
	assert.NotEmpty(t, body.GrossMarginRange)

	resp = doRequest(t, srv, http.MethodGet, "/api/industries/Space%20Mining", "", nil, "")
	assert.Equal(t, http.StatusNotFound, resp.StatusCode)
}

func TestProfile_RoundTripAndOperatingMargin(t *testing.T) {
	// GIVEN: A declared industry with a known benchmark row
	// WHEN: Running a P&L analysis
	// THEN: The operating margin range is attached to the response

	srv := newTestServer(t)
	uploadCSV(t, srv, "user-1", "pnl", pnlCSV)

	resp := doRequest(t, srv, http.MethodGet, "/api/profile", "user-1", nil, "")
	assert.Equal(t, http.StatusNotFound, resp.StatusCode)

	putBody := []byte(`{"industry":"Software & SaaS","currency":"USD"}`)
	resp = doRequest(t, srv, http.MethodPut, "/api/profile", "user-1", putBody, "application/json")
	require.Equal(t, http.StatusOK, resp.StatusCode)

	resp = doRequest(t, srv, http.MethodGet, "/api/profile", "user-1", nil, "")
	require.Equal(t, http.StatusOK, resp.StatusCode)
	var profile struct {
		Industry string `json:"industry"`
		Currency string `json:"currency"`
	}
	decode(t, resp, &profile)
	assert.Equal(t, "Software & SaaS", profile.Industry)

	resp = doRequest(t, srv, http.MethodGet, "/api/analysis/pnl?start_date=2024-03-01&end_date=2024-03-31", "user-1", nil, "")
	require.Equal(t, http.StatusOK, resp.StatusCode)
	var pnl struct {
		OperatingMargin *string `json:"operating_margin"`
	}
	decode(t, resp, &pnl)
	require.NotNil(t, pnl.OperatingMargin)
	assert.Equal(t, "10-25%", *pnl.OperatingMargin)
}

func TestHealthz(t *testing.T) {
	srv := newTestServer(t)

	resp, err := http.Get(srv.URL + "/healthz")
	require.NoError(t, err)
	defer func() { _ = resp.Body.Close() }()
	assert.Equal(t, http.StatusOK, resp.StatusCode)
}
