/*
handlers.go - HTTP API handlers for the financial metrics engine

PURPOSE:
  Exposes the analysis engine via REST API. Handles HTTP request/response,
  JSON serialization, and delegates to domain logic.

ENDPOINTS:
  Analysis:
    GET    /api/analysis/pnl       P&L analysis for a period
    GET    /api/analysis/cash      Cash totals (optional period)
    GET    /api/analysis/invoices  Invoice analysis for a period
    GET    /api/analysis/expenses  Expense category breakdown for a period
    GET    /api/analysis/revenue   Current vs previous month/year revenue

  Benchmarks:
    GET    /api/industries         List known industries
    GET    /api/industries/{name}  Reference ratios for one industry

  Files & profile:
    POST   /api/files/{template}   Upload a CSV (pnl|transactions|invoices)
    GET    /api/files              Upload history
    GET    /api/profile            Declared industry and currency
    PUT    /api/profile            Set industry and currency

TENANCY:
  Every endpoint except /api/industries requires an X-User-ID header. The
  caller is assumed to have authenticated the user already; this service only
  scopes data by the header value.

ERROR HANDLING:
  Errors are returned as JSON with appropriate HTTP status:
  - 400: Missing user header, malformed dates, invalid period or template
  - 404: User has never uploaded the required row-set
  - 422: Row-set is missing a required column, or period holds no rows
  - 500: Internal errors

SEE ALSO:
  - dto.go: Request/response data structures
  - server.go: Router setup and middleware
  - analysis/engine.go: The operations these handlers delegate to
*/
package api

import (
	"bytes"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/rs/zerolog"

	"github.com/finlens/metrics-engine/analysis"
	"github.com/finlens/metrics-engine/benchmark"
	"github.com/finlens/metrics-engine/filestore/sqlite"
)

// maxUploadBytes caps a single CSV upload at 10 MiB.
const maxUploadBytes = 10 << 20

// =============================================================================
// HANDLER CONTEXT
// =============================================================================

// Handler holds all dependencies for HTTP handlers.
type Handler struct {
	Engine     *analysis.Engine
	Store      *sqlite.Store
	Benchmarks *benchmark.Table
}

// NewHandler creates a new handler over the engine, file store and benchmark
// table.
func NewHandler(engine *analysis.Engine, store *sqlite.Store, benchmarks *benchmark.Table) *Handler {
	return &Handler{
		Engine:     engine,
		Store:      store,
		Benchmarks: benchmarks,
	}
}

// =============================================================================
// ANALYSIS HANDLERS
// =============================================================================

// GetPnLAnalysis returns the P&L analysis for the requested period.
// GET /api/analysis/pnl?start_date=...&end_date=...
func (h *Handler) GetPnLAnalysis(w http.ResponseWriter, r *http.Request) {
	user, ok := requireUser(w, r)
	if !ok {
		return
	}
	period, ok := requirePeriod(w, r)
	if !ok {
		return
	}

	result, err := h.Engine.PnLAnalysis(r.Context(), user, period)
	if err != nil {
		writeAnalysisError(w, r, "Failed to analyze P&L", err)
		return
	}
	writeJSON(w, http.StatusOK, toPnLResponse(result))
}

// GetCashAnalysis returns cash totals, over the whole row-set or a period.
// GET /api/analysis/cash[?start_date=...&end_date=...]
func (h *Handler) GetCashAnalysis(w http.ResponseWriter, r *http.Request) {
	user, ok := requireUser(w, r)
	if !ok {
		return
	}

	var period *analysis.Period
	if r.URL.Query().Get("start_date") != "" || r.URL.Query().Get("end_date") != "" {
		p, ok := requirePeriod(w, r)
		if !ok {
			return
		}
		period = &p
	}

	result, err := h.Engine.CashAnalysis(r.Context(), user, period)
	if err != nil {
		writeAnalysisError(w, r, "Failed to analyze cash flow", err)
		return
	}
	writeJSON(w, http.StatusOK, toCashResponse(result, period))
}

// GetInvoicesAnalysis returns the invoice analysis for the requested period.
// GET /api/analysis/invoices?start_date=...&end_date=...
func (h *Handler) GetInvoicesAnalysis(w http.ResponseWriter, r *http.Request) {
	user, ok := requireUser(w, r)
	if !ok {
		return
	}
	period, ok := requirePeriod(w, r)
	if !ok {
		return
	}

	result, err := h.Engine.InvoicesAnalysis(r.Context(), user, period)
	if err != nil {
		writeAnalysisError(w, r, "Failed to analyze invoices", err)
		return
	}
	writeJSON(w, http.StatusOK, toInvoicesResponse(result))
}

// GetExpenseBreakdown returns the per-category expense breakdown.
// GET /api/analysis/expenses?start_date=...&end_date=...
func (h *Handler) GetExpenseBreakdown(w http.ResponseWriter, r *http.Request) {
	user, ok := requireUser(w, r)
	if !ok {
		return
	}
	period, ok := requirePeriod(w, r)
	if !ok {
		return
	}

	result, err := h.Engine.ExpenseBreakdown(r.Context(), user, period)
	if err != nil {
		writeAnalysisError(w, r, "Failed to analyze expenses", err)
		return
	}
	writeJSON(w, http.StatusOK, toExpenseBreakdownResponse(result))
}

// GetRevenueAnalysis compares current revenue against the previous month or
// year.
// GET /api/analysis/revenue?period=month|year
func (h *Handler) GetRevenueAnalysis(w http.ResponseWriter, r *http.Request) {
	user, ok := requireUser(w, r)
	if !ok {
		return
	}

	periodType := r.URL.Query().Get("period")
	switch periodType {
	case "", "month", "year":
	default:
		writeError(w, http.StatusBadRequest, "period must be 'month' or 'year'", nil)
		return
	}

	result, err := h.Engine.RevenueAnalysis(r.Context(), user, periodType)
	if err != nil {
		writeAnalysisError(w, r, "Failed to analyze revenue", err)
		return
	}
	writeJSON(w, http.StatusOK, toRevenueResponse(result))
}

// =============================================================================
// BENCHMARK HANDLERS
// =============================================================================

// ListIndustries returns the known industry names.
// GET /api/industries
func (h *Handler) ListIndustries(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string][]string{"industries": h.Benchmarks.Industries()})
}

// GetIndustry returns the reference ratios for one industry.
// GET /api/industries/{name}
func (h *Handler) GetIndustry(w http.ResponseWriter, r *http.Request) {
	name := chi.URLParam(r, "name")
	row, ok := h.Benchmarks.Details(name)
	if !ok {
		writeError(w, http.StatusNotFound, "Industry not found", nil)
		return
	}
	writeJSON(w, http.StatusOK, toIndustryDTO(row))
}

// =============================================================================
// FILE HANDLERS
// =============================================================================

// UploadFile stores a new CSV for the template type and invalidates every
// cached result computed from the previous upload.
// POST /api/files/{template}
func (h *Handler) UploadFile(w http.ResponseWriter, r *http.Request) {
	user, ok := requireUser(w, r)
	if !ok {
		return
	}

	template := analysis.TemplateType(chi.URLParam(r, "template"))
	if !analysis.ValidTemplate(template) {
		writeError(w, http.StatusBadRequest, "Unknown template type", nil)
		return
	}

	filename, content, err := readUpload(r)
	if err != nil {
		writeError(w, http.StatusBadRequest, "Failed to read uploaded file", err)
		return
	}
	if len(content) == 0 {
		writeError(w, http.StatusBadRequest, "Uploaded file is empty", nil)
		return
	}
	// Reject files that don't parse as CSV before they reach storage.
	if _, err := analysis.RowSetFromCSV(template, bytes.NewReader(content)); err != nil {
		writeError(w, http.StatusUnprocessableEntity, "Uploaded file is not valid CSV", err)
		return
	}

	record, err := h.Store.SaveFile(r.Context(), user, template, filename, content)
	if err != nil {
		writeError(w, http.StatusInternalServerError, "Failed to store file", err)
		return
	}

	h.Engine.InvalidateCache(r.Context(), user, analysis.FamilyForTemplate(template))
	zerolog.Ctx(r.Context()).Info().
		Str("user", string(user)).
		Str("template", string(template)).
		Str("file_id", record.ID).
		Msg("stored upload and invalidated cached results")

	writeJSON(w, http.StatusCreated, UploadResponse{
		FileID:       record.ID,
		TemplateType: string(record.Template),
		Filename:     record.Filename,
		UploadedAt:   record.UploadedAt.Format(time.RFC3339),
	})
}

// readUpload extracts the CSV bytes from either a multipart "file" part or a
// raw request body.
func readUpload(r *http.Request) (string, []byte, error) {
	r.Body = http.MaxBytesReader(nil, r.Body, maxUploadBytes)

	contentType := r.Header.Get("Content-Type")
	if strings.HasPrefix(contentType, "multipart/form-data") {
		file, header, err := r.FormFile("file")
		if err != nil {
			return "", nil, err
		}
		defer func() { _ = file.Close() }()
		content, err := io.ReadAll(file)
		if err != nil {
			return "", nil, err
		}
		return header.Filename, content, nil
	}

	content, err := io.ReadAll(r.Body)
	if err != nil {
		return "", nil, err
	}
	return "upload.csv", content, nil
}

// ListFiles returns the user's upload history.
// GET /api/files
func (h *Handler) ListFiles(w http.ResponseWriter, r *http.Request) {
	user, ok := requireUser(w, r)
	if !ok {
		return
	}

	records, err := h.Store.ListFiles(r.Context(), user)
	if err != nil {
		writeError(w, http.StatusInternalServerError, "Failed to list files", err)
		return
	}

	dtos := make([]FileDTO, len(records))
	for i, record := range records {
		dtos[i] = toFileDTO(record)
	}
	writeJSON(w, http.StatusOK, dtos)
}

// =============================================================================
// PROFILE HANDLERS
// =============================================================================

// GetProfile returns the user's declared industry and currency.
// GET /api/profile
func (h *Handler) GetProfile(w http.ResponseWriter, r *http.Request) {
	user, ok := requireUser(w, r)
	if !ok {
		return
	}

	profile, found, err := h.Store.Profile(r.Context(), user)
	if err != nil {
		writeError(w, http.StatusInternalServerError, "Failed to load profile", err)
		return
	}
	if !found {
		writeError(w, http.StatusNotFound, "Profile not found", nil)
		return
	}
	writeJSON(w, http.StatusOK, ProfileDTO{Industry: profile.Industry, Currency: profile.Currency})
}

// SetProfile stores the user's declared industry and currency.
// PUT /api/profile
func (h *Handler) SetProfile(w http.ResponseWriter, r *http.Request) {
	user, ok := requireUser(w, r)
	if !ok {
		return
	}

	var req ProfileDTO
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "Invalid JSON body", err)
		return
	}

	profile := analysis.Profile{
		Industry: strings.TrimSpace(req.Industry),
		Currency: strings.TrimSpace(req.Currency),
	}
	if err := h.Store.SetProfile(r.Context(), user, profile); err != nil {
		writeError(w, http.StatusInternalServerError, "Failed to store profile", err)
		return
	}
	writeJSON(w, http.StatusOK, ProfileDTO{Industry: profile.Industry, Currency: profile.Currency})
}

// =============================================================================
// HELPERS
// =============================================================================

// requireUser extracts the tenant from the X-User-ID header, writing a 400
// when it is missing.
func requireUser(w http.ResponseWriter, r *http.Request) (analysis.UserID, bool) {
	user := strings.TrimSpace(r.Header.Get("X-User-ID"))
	if user == "" {
		writeError(w, http.StatusBadRequest, "X-User-ID header is required", nil)
		return "", false
	}
	return analysis.UserID(user), true
}

// requirePeriod parses and validates start_date/end_date query parameters.
// Both are required, must be YYYY-MM-DD, must not be inverted, and the period
// must not start in the future.
func requirePeriod(w http.ResponseWriter, r *http.Request) (analysis.Period, bool) {
	start, ok := requireDate(w, r, "start_date")
	if !ok {
		return analysis.Period{}, false
	}
	end, ok := requireDate(w, r, "end_date")
	if !ok {
		return analysis.Period{}, false
	}

	period, err := analysis.NewPeriod(start, end)
	if err != nil {
		writeError(w, http.StatusBadRequest, "start_date must not be after end_date", nil)
		return analysis.Period{}, false
	}
	if period.Start.After(time.Now().UTC()) {
		writeError(w, http.StatusBadRequest, "start_date must not be in the future", nil)
		return analysis.Period{}, false
	}
	return period, true
}

func requireDate(w http.ResponseWriter, r *http.Request, param string) (time.Time, bool) {
	raw := r.URL.Query().Get(param)
	if raw == "" {
		writeError(w, http.StatusBadRequest, param+" query parameter is required", nil)
		return time.Time{}, false
	}
	t, err := time.Parse("2006-01-02", raw)
	if err != nil {
		writeError(w, http.StatusBadRequest, param+" must be YYYY-MM-DD", nil)
		return time.Time{}, false
	}
	return t, true
}

// writeAnalysisError maps engine errors onto HTTP statuses: missing row-sets
// are 404, schema and empty-period problems are 422, everything else is 500.
func writeAnalysisError(w http.ResponseWriter, r *http.Request, message string, err error) {
	switch {
	case analysis.IsNoData(err):
		writeError(w, http.StatusNotFound, "No data uploaded for this analysis", err)
	case analysis.IsSchemaError(err), errors.Is(err, analysis.ErrEmptyPeriod):
		writeError(w, http.StatusUnprocessableEntity, "Uploaded data cannot be analyzed", err)
	default:
		zerolog.Ctx(r.Context()).Error().Err(err).Msg(message)
		writeError(w, http.StatusInternalServerError, message, err)
	}
}

func writeJSON(w http.ResponseWriter, status int, data any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(data)
}

func writeError(w http.ResponseWriter, status int, message string, err error) {
	resp := ErrorResponse{Error: message}
	if err != nil {
		resp.Details = err.Error()
	}
	writeJSON(w, status, resp)
}
