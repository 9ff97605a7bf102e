/*
server.go - HTTP router and middleware configuration

PURPOSE:
  Configures the HTTP router (chi), middleware stack, and route
  definitions. This is the wiring layer that connects URLs to handlers.

MIDDLEWARE STACK:
  1. Logger:     Request logging
  2. Recoverer:  Panic recovery (500 instead of crash)
  3. RequestID:  Unique ID per request for tracing
  4. CORS:       Cross-origin requests for frontend

ROUTE GROUPS:
  /api/analytics/*   Read-only aggregation queries
  /api/properties/*  Property registry
  /api/incomes/*     Income log (mutations reconcile the ledger)
  /api/expenses/*    Expense log
  /api/ledger        Rent ledger (read-only over HTTP)
  /api/audit         Manual audit sweep trigger
  /api/seed          Demo portfolio loader (dev only)

SECURITY NOTE:
  No authentication middleware; session handling lives in the outer
  application, not in this engine.

SEE ALSO:
  - handlers.go: Handler implementations
  - cmd/server/main.go: Server startup
*/
package api

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
)

// NewRouter creates a new router with all routes configured.
func NewRouter(h *Handler, allowedOrigins []string) *chi.Mux {
	r := chi.NewRouter()

	// Middleware
	r.Use(middleware.Logger)
	r.Use(middleware.Recoverer)
	r.Use(middleware.RequestID)
	r.Use(cors.Handler(cors.Options{
		AllowedOrigins:   allowedOrigins,
		AllowedMethods:   []string{"GET", "POST", "PATCH", "DELETE", "OPTIONS"},
		AllowedHeaders:   []string{"Accept", "Authorization", "Content-Type"},
		AllowCredentials: true,
	}))

	// API routes
	r.Route("/api", func(r chi.Router) {
		// Analytics routes (idempotent reads)
		r.Route("/analytics", func(r chi.Router) {
			r.Get("/kpis", h.GetKPIs)
			r.Get("/cashflow", h.GetCashflow)
			r.Get("/expenses/breakdown", h.GetExpenseBreakdown)
			r.Get("/properties/comparison", h.GetPropertyComparison)
			r.Get("/occupancy", h.GetOccupancy)
		})

		// Property routes
		r.Route("/properties", func(r chi.Router) {
			r.Get("/", h.ListProperties)
			r.Post("/", h.CreateProperty)
		})

		// Income routes (mutations trigger reconciliation)
		r.Route("/incomes", func(r chi.Router) {
			r.Get("/", h.ListIncomes)
			r.Post("/", h.CreateIncome)
			r.Patch("/{id}", h.UpdateIncome)
			r.Delete("/{id}", h.DeleteIncome)
		})

		// Expense routes
		r.Route("/expenses", func(r chi.Router) {
			r.Get("/", h.ListExpenses)
			r.Post("/", h.CreateExpense)
		})

		// Ledger routes
		r.Get("/ledger", h.ListLedger)
		r.Post("/audit", h.RunAudit)

		// Demo data
		r.Post("/seed", h.LoadSeed)

		r.Get("/healthz", func(w http.ResponseWriter, _ *http.Request) {
			writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
		})
	})

	return r
}
