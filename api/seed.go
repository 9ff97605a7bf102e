/*
seed.go - Demo portfolio loader

PURPOSE:
  Loads a small, fully deterministic demo dataset so the frontend and
  manual API exploration have something to aggregate. Dev-only; the
  loader overwrites records by fixed ids, so repeated loads are
  idempotent.
*/
package api

import (
	"net/http"
	"time"

	"github.com/warp/portfolio-engine/records"
)

// LoadSeed loads the demo portfolio: three properties (one archived),
// a few months of income and expenses, and a short rent schedule.
// Income entries run through the reconciler exactly like API writes.
func (h *Handler) LoadSeed(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	lease1Start := records.NewDate(2024, time.January, 15)
	lease2Start := records.NewDate(2024, time.March, 1)
	lease2End := records.NewDate(2025, time.February, 28)
	val1 := records.NewMoney(780000)
	val2 := records.NewMoney(565000)

	properties := []records.Property{
		{ID: "prop-birch", Address: "12 Birch Street, Northcote", WeeklyRent: records.NewMoney(650), LeaseStart: &lease1Start, Valuation: &val1},
		{ID: "prop-quay", Address: "704/18 Quay Lane, Docklands", WeeklyRent: records.NewMoney(540), LeaseStart: &lease2Start, LeaseEnd: &lease2End, Valuation: &val2},
		{ID: "prop-mill", Address: "3 Mill Road, Ballarat", WeeklyRent: records.NewMoney(390), Archived: true},
	}
	for _, p := range properties {
		if err := h.Store.SaveProperty(ctx, p); err != nil {
			writeError(w, http.StatusInternalServerError, "Failed to seed properties", err)
			return
		}
	}

	expenses := []records.ExpenseEntry{
		{ID: "seed-exp-1", PropertyID: "prop-birch", Date: records.NewDate(2024, time.February, 3), Category: "Plumbing repair", Vendor: "Reilly & Sons", Amount: records.NewMoney(480)},
		{ID: "seed-exp-2", PropertyID: "prop-birch", Date: records.NewDate(2024, time.April, 11), Category: "Landlord insurance", Vendor: "SureCover", Amount: records.NewMoney(1250)},
		{ID: "seed-exp-3", PropertyID: "prop-quay", Date: records.NewDate(2024, time.March, 20), Category: "Body corporate levy", Vendor: "Docklands OC", Amount: records.NewMoney(980)},
		{ID: "seed-exp-4", PropertyID: "prop-quay", Date: records.NewDate(2024, time.May, 6), Category: "Council rates", Vendor: "City of Melbourne", Amount: records.NewMoney(610)},
	}
	for _, e := range expenses {
		if err := h.Store.SaveExpense(ctx, e); err != nil {
			writeError(w, http.StatusInternalServerError, "Failed to seed expenses", err)
			return
		}
	}

	incomes := []records.IncomeEntry{
		{ID: "seed-inc-1", PropertyID: "prop-birch", Date: records.NewDate(2024, time.February, 1), Category: "Base rent", Amount: records.NewMoney(2600), TenantID: "ten-harlow"},
		{ID: "seed-inc-2", PropertyID: "prop-birch", Date: records.NewDate(2024, time.March, 1), Category: "Base rent", Amount: records.NewMoney(2600), TenantID: "ten-harlow"},
		{ID: "seed-inc-3", PropertyID: "prop-quay", Date: records.NewDate(2024, time.March, 5), Category: "Rent", Amount: records.NewMoney(2160), TenantID: "ten-ueda"},
		{ID: "seed-inc-4", PropertyID: "prop-quay", Date: records.NewDate(2024, time.April, 30), Category: "Bond interest", Amount: records.NewMoney(42)},
	}
	for _, e := range incomes {
		prev, err := h.Store.GetIncome(ctx, e.ID)
		if err != nil {
			writeError(w, http.StatusInternalServerError, "Failed to seed incomes", err)
			return
		}
		if err := h.Store.SaveIncome(ctx, e); err != nil {
			writeError(w, http.StatusInternalServerError, "Failed to seed incomes", err)
			return
		}
		if err := h.Reconciler.OnIncomeSaved(ctx, prev, e); err != nil {
			writeError(w, http.StatusInternalServerError, "Failed to reconcile seeded incomes", err)
			return
		}
	}

	writeJSON(w, http.StatusOK, map[string]int{
		"properties": len(properties),
		"expenses":   len(expenses),
		"incomes":    len(incomes),
	})
}
