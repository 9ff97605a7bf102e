package sqlite_test

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/warp/portfolio-engine/records"
	"github.com/warp/portfolio-engine/store/sqlite"
)

// =============================================================================
// TEST SETUP
// =============================================================================

func newTestStore(t *testing.T) *sqlite.Store {
	t.Helper()
	s, err := sqlite.New(":memory:")
	require.NoError(t, err)
	t.Cleanup(func() { s.Close() })
	return s
}

// =============================================================================
// PROPERTIES
// =============================================================================

func TestStore_PropertyRoundTrip(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	leaseStart := records.NewDate(2024, time.January, 15)
	leaseEnd := records.NewDate(2025, time.January, 14)
	val := records.NewMoney(780000)
	p := records.Property{
		ID: "prop-1", Address: "1 Example Street",
		WeeklyRent: records.NewMoney(650.50),
		LeaseStart: &leaseStart, LeaseEnd: &leaseEnd,
		Valuation: &val, Archived: true,
	}
	require.NoError(t, s.SaveProperty(ctx, p))

	got, err := s.GetProperty(ctx, "prop-1")
	require.NoError(t, err)
	require.NotNil(t, got)

	assert.Equal(t, p.Address, got.Address)
	assert.True(t, got.WeeklyRent.Equal(p.WeeklyRent), "weekly rent = %s", got.WeeklyRent)
	require.NotNil(t, got.LeaseStart)
	assert.True(t, got.LeaseStart.Equal(leaseStart))
	require.NotNil(t, got.LeaseEnd)
	assert.True(t, got.LeaseEnd.Equal(leaseEnd))
	require.NotNil(t, got.Valuation)
	assert.True(t, got.Valuation.Equal(val))
	assert.True(t, got.Archived)
}

func TestStore_PropertyOptionalFieldsStayNil(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	require.NoError(t, s.SaveProperty(ctx, records.Property{
		ID: "prop-1", Address: "1 Example Street", WeeklyRent: records.NewMoney(650),
	}))

	got, err := s.GetProperty(ctx, "prop-1")
	require.NoError(t, err)
	require.NotNil(t, got)
	assert.Nil(t, got.LeaseStart)
	assert.Nil(t, got.LeaseEnd)
	assert.Nil(t, got.Valuation)
}

func TestStore_GetPropertyMissingReturnsNil(t *testing.T) {
	s := newTestStore(t)

	got, err := s.GetProperty(context.Background(), "prop-none")
	require.NoError(t, err)
	assert.Nil(t, got)
}

func TestStore_SavePropertyUpserts(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	require.NoError(t, s.SaveProperty(ctx, records.Property{
		ID: "prop-1", Address: "Old Address", WeeklyRent: records.NewMoney(600),
	}))
	require.NoError(t, s.SaveProperty(ctx, records.Property{
		ID: "prop-1", Address: "New Address", WeeklyRent: records.NewMoney(650),
	}))

	all, err := s.ListProperties(ctx)
	require.NoError(t, err)
	require.Len(t, all, 1)
	assert.Equal(t, "New Address", all[0].Address)
}

// =============================================================================
// INCOMES / EXPENSES
// =============================================================================

func TestStore_IncomeScanFilteredAndOrdered(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	entries := []records.IncomeEntry{
		{ID: "inc-b", PropertyID: "prop-1", Date: records.NewDate(2024, time.March, 5), Category: "Rent", Amount: records.NewMoney(100)},
		{ID: "inc-a", PropertyID: "prop-1", Date: records.NewDate(2024, time.March, 5), Category: "Rent", Amount: records.NewMoney(100)},
		{ID: "inc-c", PropertyID: "prop-1", Date: records.NewDate(2024, time.January, 2), Category: "Rent", Amount: records.NewMoney(100)},
		{ID: "inc-d", PropertyID: "prop-2", Date: records.NewDate(2024, time.February, 1), Category: "Rent", Amount: records.NewMoney(100)},
		{ID: "inc-e", PropertyID: "prop-1", Date: records.NewDate(2023, time.December, 31), Category: "Rent", Amount: records.NewMoney(100)},
	}
	for _, e := range entries {
		require.NoError(t, s.SaveIncome(ctx, e))
	}

	from := records.NewDate(2024, time.January, 1)
	to := records.NewDate(2024, time.March, 31)
	got, err := s.Incomes(ctx, records.IncomeFilter{
		From: &from, To: &to,
		Properties: records.PropertySet{"prop-1": true},
	})
	require.NoError(t, err)

	require.Len(t, got, 3)
	assert.Equal(t, records.IncomeID("inc-c"), got[0].ID)
	assert.Equal(t, records.IncomeID("inc-a"), got[1].ID)
	assert.Equal(t, records.IncomeID("inc-b"), got[2].ID)
}

func TestStore_IncomeRoundTripAndDelete(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	e := records.IncomeEntry{
		ID: "inc-1", PropertyID: "prop-1",
		Date: records.NewDate(2024, time.March, 1), Category: "Base rent",
		Amount: records.NewMoney(2600.75), TenantID: "ten-1", EvidenceRef: "receipt-9",
	}
	require.NoError(t, s.SaveIncome(ctx, e))

	got, err := s.GetIncome(ctx, "inc-1")
	require.NoError(t, err)
	require.NotNil(t, got)
	assert.Equal(t, e.Category, got.Category)
	assert.True(t, got.Amount.Equal(e.Amount), "amount = %s", got.Amount)
	assert.Equal(t, e.TenantID, got.TenantID)
	assert.Equal(t, e.EvidenceRef, got.EvidenceRef)

	require.NoError(t, s.DeleteIncome(ctx, "inc-1"))
	got, err = s.GetIncome(ctx, "inc-1")
	require.NoError(t, err)
	assert.Nil(t, got)
}

func TestStore_ExpenseRoundTrip(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	gst := records.NewMoney(48)
	e := records.ExpenseEntry{
		ID: "exp-1", PropertyID: "prop-1",
		Date: records.NewDate(2024, time.February, 3), Category: "Plumbing repair",
		Vendor: "Reilly & Sons", Amount: records.NewMoney(480), GST: &gst,
	}
	require.NoError(t, s.SaveExpense(ctx, e))

	got, err := s.Expenses(ctx, records.ExpenseFilter{})
	require.NoError(t, err)
	require.Len(t, got, 1)
	assert.Equal(t, e.Vendor, got[0].Vendor)
	require.NotNil(t, got[0].GST)
	assert.True(t, got[0].GST.Equal(gst))
}

// =============================================================================
// RENT LEDGER
// =============================================================================

func TestStore_LedgerEntryWithLinkAndPriorRoundTrip(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	paid := records.NewDate(2024, time.April, 2)
	priorPaid := records.NewDate(2024, time.March, 30)
	e := records.RentLedgerEntry{
		ID: "rl-1", PropertyID: "prop-1", TenantID: "ten-1",
		DueDate: records.NewDate(2024, time.April, 1),
		Amount:  records.NewMoney(2600), Status: records.StatusPaid,
		PaidDate: &paid, Description: "Rent payment", EvidenceRef: "receipt-3",
		Link: &records.LedgerLink{
			SourceIncomeID: "inc-1",
			Prior: &records.PriorState{
				Status:      records.StatusLate,
				PaidDate:    &priorPaid,
				Amount:      records.NewMoney(2500),
				DueDate:     records.NewDate(2024, time.April, 1),
				Description: "April rent due",
			},
		},
	}
	require.NoError(t, s.SaveLedgerEntry(ctx, e))

	got, err := s.GetLedgerEntry(ctx, "rl-1")
	require.NoError(t, err)
	require.NotNil(t, got)

	assert.Equal(t, records.StatusPaid, got.Status)
	require.NotNil(t, got.PaidDate)
	assert.True(t, got.PaidDate.Equal(paid))
	require.NotNil(t, got.Link)
	assert.Equal(t, records.IncomeID("inc-1"), got.Link.SourceIncomeID)

	prior := got.Link.Prior
	require.NotNil(t, prior, "prior state survives the round trip")
	assert.Equal(t, records.StatusLate, prior.Status)
	require.NotNil(t, prior.PaidDate)
	assert.True(t, prior.PaidDate.Equal(priorPaid))
	assert.True(t, prior.Amount.Equal(records.NewMoney(2500)))
	assert.Equal(t, "April rent due", prior.Description)
}

func TestStore_LinkWithoutPriorRoundTrip(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	require.NoError(t, s.SaveLedgerEntry(ctx, records.RentLedgerEntry{
		ID: "rl-1", PropertyID: "prop-1",
		DueDate: records.NewDate(2024, time.April, 1),
		Amount:  records.NewMoney(2600), Status: records.StatusPaid,
		Link: &records.LedgerLink{SourceIncomeID: "inc-1"},
	}))

	got, err := s.FindLedgerBySource(ctx, "inc-1")
	require.NoError(t, err)
	require.NotNil(t, got)
	require.NotNil(t, got.Link)
	assert.Nil(t, got.Link.Prior, "synthesized entry has no prior state")
}

func TestStore_FindUnlinkedLedger(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	due := records.NewDate(2024, time.April, 1)
	require.NoError(t, s.SaveLedgerEntry(ctx, records.RentLedgerEntry{
		ID: "sched-b", PropertyID: "prop-1", DueDate: due,
		Amount: records.NewMoney(2500), Status: records.StatusLate,
	}))
	require.NoError(t, s.SaveLedgerEntry(ctx, records.RentLedgerEntry{
		ID: "sched-a", PropertyID: "prop-1", DueDate: due,
		Amount: records.NewMoney(2500), Status: records.StatusLate,
	}))
	require.NoError(t, s.SaveLedgerEntry(ctx, records.RentLedgerEntry{
		ID: "rl-linked", PropertyID: "prop-1", DueDate: due,
		Amount: records.NewMoney(2500), Status: records.StatusPaid,
		Link: &records.LedgerLink{SourceIncomeID: "inc-x"},
	}))

	got, err := s.FindUnlinkedLedger(ctx, "prop-1", due)
	require.NoError(t, err)
	require.NotNil(t, got)
	assert.Equal(t, records.EntryID("sched-a"), got.ID, "lowest id wins")

	none, err := s.FindUnlinkedLedger(ctx, "prop-2", due)
	require.NoError(t, err)
	assert.Nil(t, none)
}

func TestStore_DuplicateSourceLinkRejected(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	require.NoError(t, s.SaveLedgerEntry(ctx, records.RentLedgerEntry{
		ID: "rl-1", PropertyID: "prop-1", DueDate: records.NewDate(2024, time.March, 1),
		Amount: records.NewMoney(2600), Status: records.StatusPaid,
		Link: &records.LedgerLink{SourceIncomeID: "inc-1"},
	}))

	err := s.SaveLedgerEntry(ctx, records.RentLedgerEntry{
		ID: "rl-2", PropertyID: "prop-1", DueDate: records.NewDate(2024, time.April, 1),
		Amount: records.NewMoney(2600), Status: records.StatusPaid,
		Link: &records.LedgerLink{SourceIncomeID: "inc-1"},
	})

	require.Error(t, err)
	assert.True(t, errors.Is(err, records.ErrLedgerConflict))
	var conflict *records.LedgerConflictError
	require.True(t, errors.As(err, &conflict))
	assert.Equal(t, records.EntryID("rl-1"), conflict.EntryID)

	// Updating the already-linked entry itself is fine.
	assert.NoError(t, s.SaveLedgerEntry(ctx, records.RentLedgerEntry{
		ID: "rl-1", PropertyID: "prop-1", DueDate: records.NewDate(2024, time.March, 2),
		Amount: records.NewMoney(2700), Status: records.StatusPaid,
		Link: &records.LedgerLink{SourceIncomeID: "inc-1"},
	}))
}

func TestStore_LedgerScanBoundedByDueDate(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	entries := []records.RentLedgerEntry{
		{ID: "rl-a", PropertyID: "prop-1", DueDate: records.NewDate(2024, time.January, 1), Amount: records.NewMoney(2600), Status: records.StatusLate},
		{ID: "rl-b", PropertyID: "prop-1", DueDate: records.NewDate(2024, time.February, 1), Amount: records.NewMoney(2600), Status: records.StatusLate},
		{ID: "rl-c", PropertyID: "prop-1", DueDate: records.NewDate(2024, time.June, 1), Amount: records.NewMoney(2600), Status: records.StatusLate},
	}
	for _, e := range entries {
		require.NoError(t, s.SaveLedgerEntry(ctx, e))
	}

	from := records.NewDate(2024, time.January, 15)
	to := records.NewDate(2024, time.March, 31)
	got, err := s.Ledger(ctx, records.LedgerFilter{DueFrom: &from, DueTo: &to})
	require.NoError(t, err)
	require.Len(t, got, 1)
	assert.Equal(t, records.EntryID("rl-b"), got[0].ID)
}

func TestStore_DeleteLedgerEntry(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	require.NoError(t, s.SaveLedgerEntry(ctx, records.RentLedgerEntry{
		ID: "rl-1", PropertyID: "prop-1", DueDate: records.NewDate(2024, time.March, 1),
		Amount: records.NewMoney(2600), Status: records.StatusLate,
	}))
	require.NoError(t, s.DeleteLedgerEntry(ctx, "rl-1"))

	got, err := s.GetLedgerEntry(ctx, "rl-1")
	require.NoError(t, err)
	assert.Nil(t, got)
}
