/*
handlers.go - HTTP API handlers for the portfolio engine

PURPOSE:
  Exposes the analytics engine and income workflows via REST API.
  Handles HTTP request/response, JSON serialization, and delegates to
  domain logic.

ENDPOINTS:
  Analytics (idempotent GETs over from/to/propertyIds):
    GET  /api/analytics/kpis                   KPI summary
    GET  /api/analytics/cashflow               Monthly cash-flow series
    GET  /api/analytics/expenses/breakdown     Normalized expense totals
    GET  /api/analytics/properties/comparison  Per-property net
    GET  /api/analytics/occupancy              Occupancy detail

  Records:
    GET/POST           /api/properties
    GET/POST           /api/incomes
    PATCH/DELETE       /api/incomes/{id}
    GET/POST           /api/expenses
    GET                /api/ledger

  Admin:
    POST /api/audit    Run the ledger audit sweep now
    POST /api/seed     Load the demo portfolio

RECONCILIATION:
  Income mutations trigger ledger reconciliation implicitly; there is
  no separate reconciliation write API. A reconciliation failure fails
  the mutation response (the income write itself is already durable and
  the audit sweep will heal the ledger).

ERROR HANDLING:
  Errors are returned as JSON with appropriate HTTP status:
  - 400: Validation errors, invalid input
  - 404: Record not found
  - 500: Store or reconciliation failures

SEE ALSO:
  - dto.go: Request/response data structures
  - server.go: Router setup and middleware
*/
package api

import (
	"encoding/json"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/sirupsen/logrus"
	"github.com/warp/portfolio-engine/analytics"
	"github.com/warp/portfolio-engine/ledger"
	"github.com/warp/portfolio-engine/records"
)

// =============================================================================
// HANDLER CONTEXT
// =============================================================================

// Handler holds all dependencies for HTTP handlers.
type Handler struct {
	Store      records.RecordStore
	Engine     *analytics.Engine
	Reconciler *ledger.Service
	Log        logrus.FieldLogger
}

// NewHandler creates a new handler with the given store.
func NewHandler(store records.RecordStore, log *logrus.Logger) *Handler {
	if log == nil {
		log = logrus.StandardLogger()
	}
	return &Handler{
		Store:      store,
		Engine:     analytics.NewEngine(store),
		Reconciler: ledger.NewService(store, log),
		Log:        log.WithField("component", "api"),
	}
}

// windowInput parses the shared analytics query parameters.
func windowInput(r *http.Request, span analytics.Span) analytics.WindowInput {
	q := r.URL.Query()

	var ids []records.PropertyID
	if raw := q.Get("propertyIds"); raw != "" {
		for _, part := range strings.Split(raw, ",") {
			if part = strings.TrimSpace(part); part != "" {
				ids = append(ids, records.PropertyID(part))
			}
		}
	}

	return analytics.WindowInput{
		FromRaw:         q.Get("from"),
		ToRaw:           q.Get("to"),
		PropertyIDs:     ids,
		IncludeArchived: q.Get("includeArchived") == "true",
		Span:            span,
	}
}

// =============================================================================
// ANALYTICS HANDLERS
// =============================================================================

// GetKPIs returns the KPI summary. Defaults to a six-month window.
func (h *Handler) GetKPIs(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	window, err := h.Engine.ResolveWindow(ctx, windowInput(r, analytics.SpanSixMonths))
	if err != nil {
		writeError(w, http.StatusInternalServerError, "Failed to resolve query window", err)
		return
	}

	kpis, err := h.Engine.KPISummary(ctx, window)
	if err != nil {
		writeError(w, http.StatusInternalServerError, "Failed to compute KPIs", err)
		return
	}
	writeJSON(w, http.StatusOK, toKPIResponse(kpis))
}

// GetCashflow returns the monthly cash-flow series. Defaults to
// year-to-date.
func (h *Handler) GetCashflow(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	window, err := h.Engine.ResolveWindow(ctx, windowInput(r, analytics.SpanYearToDate))
	if err != nil {
		writeError(w, http.StatusInternalServerError, "Failed to resolve query window", err)
		return
	}

	series, err := h.Engine.CashflowSeries(ctx, window)
	if err != nil {
		writeError(w, http.StatusInternalServerError, "Failed to compute cash-flow series", err)
		return
	}
	writeJSON(w, http.StatusOK, toCashflowResponse(series))
}

// GetExpenseBreakdown returns expense totals by normalized category.
func (h *Handler) GetExpenseBreakdown(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	window, err := h.Engine.ResolveWindow(ctx, windowInput(r, analytics.SpanYearToDate))
	if err != nil {
		writeError(w, http.StatusInternalServerError, "Failed to resolve query window", err)
		return
	}

	breakdown, err := h.Engine.ExpenseBreakdown(ctx, window)
	if err != nil {
		writeError(w, http.StatusInternalServerError, "Failed to compute expense breakdown", err)
		return
	}
	writeJSON(w, http.StatusOK, toBreakdownResponse(breakdown))
}

// GetPropertyComparison returns per-property net cash flow.
func (h *Handler) GetPropertyComparison(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	window, err := h.Engine.ResolveWindow(ctx, windowInput(r, analytics.SpanYearToDate))
	if err != nil {
		writeError(w, http.StatusInternalServerError, "Failed to resolve query window", err)
		return
	}

	comparison, err := h.Engine.PropertyComparison(ctx, window)
	if err != nil {
		writeError(w, http.StatusInternalServerError, "Failed to compute property comparison", err)
		return
	}
	writeJSON(w, http.StatusOK, toComparisonResponse(comparison))
}

// GetOccupancy returns per-property occupancy detail.
func (h *Handler) GetOccupancy(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	window, err := h.Engine.ResolveWindow(ctx, windowInput(r, analytics.SpanYearToDate))
	if err != nil {
		writeError(w, http.StatusInternalServerError, "Failed to resolve query window", err)
		return
	}

	occupancy, err := h.Engine.OccupancySummary(ctx, window)
	if err != nil {
		writeError(w, http.StatusInternalServerError, "Failed to compute occupancy", err)
		return
	}
	writeJSON(w, http.StatusOK, toOccupancyResponse(occupancy))
}

// =============================================================================
// PROPERTY HANDLERS
// =============================================================================

// ListProperties returns all properties, archived included.
func (h *Handler) ListProperties(w http.ResponseWriter, r *http.Request) {
	props, err := h.Store.ListProperties(r.Context())
	if err != nil {
		writeError(w, http.StatusInternalServerError, "Failed to list properties", err)
		return
	}

	dtos := make([]PropertyDTO, len(props))
	for i, p := range props {
		dtos[i] = toPropertyDTO(p)
	}
	writeJSON(w, http.StatusOK, dtos)
}

// CreateProperty creates or replaces a property.
func (h *Handler) CreateProperty(w http.ResponseWriter, r *http.Request) {
	var req CreatePropertyRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "Invalid request body", err)
		return
	}
	if req.Address == "" {
		writeError(w, http.StatusBadRequest, "address is required", nil)
		return
	}

	p := records.Property{
		ID:         records.PropertyID(req.ID),
		Address:    req.Address,
		WeeklyRent: records.NewMoney(req.WeeklyRent),
		Archived:   req.Archived,
	}
	if p.ID == "" {
		p.ID = records.PropertyID(newID("prop"))
	}
	if d, ok := records.ParseDate(req.LeaseStart); ok {
		p.LeaseStart = &d
	}
	if d, ok := records.ParseDate(req.LeaseEnd); ok {
		p.LeaseEnd = &d
	}
	if req.Valuation != nil {
		v := records.NewMoney(*req.Valuation)
		p.Valuation = &v
	}

	if err := h.Store.SaveProperty(r.Context(), p); err != nil {
		writeError(w, http.StatusInternalServerError, "Failed to save property", err)
		return
	}
	writeJSON(w, http.StatusCreated, toPropertyDTO(p))
}

// =============================================================================
// INCOME HANDLERS - Mutations trigger ledger reconciliation
// =============================================================================

// ListIncomes returns income entries, optionally bounded by
// from/to/propertyIds.
func (h *Handler) ListIncomes(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	var filter records.IncomeFilter
	if d, ok := records.ParseDate(q.Get("from")); ok {
		filter.From = &d
	}
	if d, ok := records.ParseDate(q.Get("to")); ok {
		filter.To = &d
	}
	if raw := q.Get("propertyIds"); raw != "" {
		filter.Properties = make(records.PropertySet)
		for _, part := range strings.Split(raw, ",") {
			if part = strings.TrimSpace(part); part != "" {
				filter.Properties[records.PropertyID(part)] = true
			}
		}
	}

	incomes, err := h.Store.Incomes(r.Context(), filter)
	if err != nil {
		writeError(w, http.StatusInternalServerError, "Failed to list incomes", err)
		return
	}
	dtos := make([]IncomeDTO, len(incomes))
	for i, e := range incomes {
		dtos[i] = toIncomeDTO(e)
	}
	writeJSON(w, http.StatusOK, dtos)
}

// CreateIncome records an income entry and reconciles the rent ledger.
func (h *Handler) CreateIncome(w http.ResponseWriter, r *http.Request) {
	var req CreateIncomeRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "Invalid request body", err)
		return
	}

	date, ok := records.ParseDate(req.Date)
	if !ok {
		writeError(w, http.StatusBadRequest, "Invalid date format (use YYYY-MM-DD)", nil)
		return
	}
	if req.PropertyID == "" {
		writeError(w, http.StatusBadRequest, "propertyId is required", nil)
		return
	}

	entry := records.IncomeEntry{
		ID:          records.IncomeID(req.ID),
		PropertyID:  records.PropertyID(req.PropertyID),
		Date:        date,
		Category:    req.Category,
		Amount:      records.NewMoney(req.Amount),
		TenantID:    records.TenantID(req.TenantID),
		EvidenceRef: req.EvidenceRef,
	}
	if entry.ID == "" {
		entry.ID = records.IncomeID(newID("inc"))
	}

	ctx := r.Context()
	prev, err := h.Store.GetIncome(ctx, entry.ID)
	if err != nil {
		writeError(w, http.StatusInternalServerError, "Failed to load income", err)
		return
	}
	if err := h.Store.SaveIncome(ctx, entry); err != nil {
		writeError(w, http.StatusInternalServerError, "Failed to save income", err)
		return
	}
	if err := h.Reconciler.OnIncomeSaved(ctx, prev, entry); err != nil {
		writeError(w, http.StatusInternalServerError, "Failed to reconcile rent ledger", err)
		return
	}
	writeJSON(w, http.StatusCreated, toIncomeDTO(entry))
}

// UpdateIncome applies a partial update and reconciles the rent ledger.
func (h *Handler) UpdateIncome(w http.ResponseWriter, r *http.Request) {
	id := records.IncomeID(chi.URLParam(r, "id"))
	ctx := r.Context()

	prev, err := h.Store.GetIncome(ctx, id)
	if err != nil {
		writeError(w, http.StatusInternalServerError, "Failed to load income", err)
		return
	}
	if prev == nil {
		writeError(w, http.StatusNotFound, "Income not found", nil)
		return
	}

	var req UpdateIncomeRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "Invalid request body", err)
		return
	}

	curr := *prev
	if req.PropertyID != nil {
		curr.PropertyID = records.PropertyID(*req.PropertyID)
	}
	if req.Date != nil {
		date, ok := records.ParseDate(*req.Date)
		if !ok {
			writeError(w, http.StatusBadRequest, "Invalid date format (use YYYY-MM-DD)", nil)
			return
		}
		curr.Date = date
	}
	if req.Category != nil {
		curr.Category = *req.Category
	}
	if req.Amount != nil {
		curr.Amount = records.NewMoney(*req.Amount)
	}
	if req.TenantID != nil {
		curr.TenantID = records.TenantID(*req.TenantID)
	}
	if req.EvidenceRef != nil {
		curr.EvidenceRef = *req.EvidenceRef
	}

	if err := h.Store.SaveIncome(ctx, curr); err != nil {
		writeError(w, http.StatusInternalServerError, "Failed to save income", err)
		return
	}
	if err := h.Reconciler.OnIncomeSaved(ctx, prev, curr); err != nil {
		writeError(w, http.StatusInternalServerError, "Failed to reconcile rent ledger", err)
		return
	}
	writeJSON(w, http.StatusOK, toIncomeDTO(curr))
}

// DeleteIncome removes an income entry and reconciles the rent ledger.
func (h *Handler) DeleteIncome(w http.ResponseWriter, r *http.Request) {
	id := records.IncomeID(chi.URLParam(r, "id"))
	ctx := r.Context()

	prev, err := h.Store.GetIncome(ctx, id)
	if err != nil {
		writeError(w, http.StatusInternalServerError, "Failed to load income", err)
		return
	}
	if prev == nil {
		writeError(w, http.StatusNotFound, "Income not found", nil)
		return
	}

	if err := h.Store.DeleteIncome(ctx, id); err != nil {
		writeError(w, http.StatusInternalServerError, "Failed to delete income", err)
		return
	}
	if err := h.Reconciler.OnIncomeDeleted(ctx, *prev); err != nil {
		writeError(w, http.StatusInternalServerError, "Failed to reconcile rent ledger", err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// =============================================================================
// EXPENSE HANDLERS
// =============================================================================

// ListExpenses returns expense entries, optionally bounded.
func (h *Handler) ListExpenses(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	var filter records.ExpenseFilter
	if d, ok := records.ParseDate(q.Get("from")); ok {
		filter.From = &d
	}
	if d, ok := records.ParseDate(q.Get("to")); ok {
		filter.To = &d
	}

	expenses, err := h.Store.Expenses(r.Context(), filter)
	if err != nil {
		writeError(w, http.StatusInternalServerError, "Failed to list expenses", err)
		return
	}
	dtos := make([]ExpenseDTO, len(expenses))
	for i, e := range expenses {
		dtos[i] = toExpenseDTO(e)
	}
	writeJSON(w, http.StatusOK, dtos)
}

// CreateExpense records an expense entry.
func (h *Handler) CreateExpense(w http.ResponseWriter, r *http.Request) {
	var req CreateExpenseRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "Invalid request body", err)
		return
	}

	date, ok := records.ParseDate(req.Date)
	if !ok {
		writeError(w, http.StatusBadRequest, "Invalid date format (use YYYY-MM-DD)", nil)
		return
	}
	if req.PropertyID == "" {
		writeError(w, http.StatusBadRequest, "propertyId is required", nil)
		return
	}

	entry := records.ExpenseEntry{
		ID:         records.ExpenseID(req.ID),
		PropertyID: records.PropertyID(req.PropertyID),
		Date:       date,
		Category:   req.Category,
		Vendor:     req.Vendor,
		Amount:     records.NewMoney(req.Amount),
	}
	if entry.ID == "" {
		entry.ID = records.ExpenseID(newID("exp"))
	}
	if req.GST != nil {
		g := records.NewMoney(*req.GST)
		entry.GST = &g
	}

	if err := h.Store.SaveExpense(r.Context(), entry); err != nil {
		writeError(w, http.StatusInternalServerError, "Failed to save expense", err)
		return
	}
	writeJSON(w, http.StatusCreated, toExpenseDTO(entry))
}

// =============================================================================
// LEDGER HANDLERS
// =============================================================================

// ListLedger returns rent ledger entries, optionally bounded by due
// date.
func (h *Handler) ListLedger(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	var filter records.LedgerFilter
	if d, ok := records.ParseDate(q.Get("from")); ok {
		filter.DueFrom = &d
	}
	if d, ok := records.ParseDate(q.Get("to")); ok {
		filter.DueTo = &d
	}

	entries, err := h.Store.Ledger(r.Context(), filter)
	if err != nil {
		writeError(w, http.StatusInternalServerError, "Failed to list ledger", err)
		return
	}
	dtos := make([]LedgerEntryDTO, len(entries))
	for i, e := range entries {
		dtos[i] = toLedgerEntryDTO(e)
	}
	writeJSON(w, http.StatusOK, dtos)
}

// RunAudit triggers a ledger audit sweep immediately.
func (h *Handler) RunAudit(w http.ResponseWriter, r *http.Request) {
	report, err := h.Reconciler.AuditSweep(r.Context())
	if err != nil {
		writeError(w, http.StatusInternalServerError, "Audit sweep failed", err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]int{
		"rentIncomes": report.RentIncomes,
		"repaired":    report.Repaired,
	})
}

// =============================================================================
// RESPONSE HELPERS
// =============================================================================

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, status int, message string, err error) {
	body := map[string]string{"error": message}
	if err != nil {
		body["detail"] = err.Error()
	}
	writeJSON(w, status, body)
}

func newID(prefix string) string {
	return fmt.Sprintf("%s-%d", prefix, time.Now().UnixNano())
}
