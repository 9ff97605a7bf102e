package analytics_test

import (
	"context"
	"fmt"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/warp/portfolio-engine/analytics"
	"github.com/warp/portfolio-engine/records"
	"github.com/warp/portfolio-engine/records/store"
)

// =============================================================================
// TEST SETUP
// =============================================================================

func newTestEngine(t *testing.T) (*analytics.Engine, *store.Memory) {
	t.Helper()
	mem := store.NewMemory()
	return analytics.NewEngine(mem), mem
}

func date(y int, m time.Month, d int) records.Date {
	return records.NewDate(y, m, d)
}

func windowOver(props map[records.PropertyID]records.Property, from, to records.Date) analytics.Window {
	return analytics.Window{From: from, To: to, Properties: props}
}

func saveProperty(t *testing.T, s *store.Memory, p records.Property) {
	t.Helper()
	require.NoError(t, s.SaveProperty(context.Background(), p))
}

func propsOf(list ...records.Property) map[records.PropertyID]records.Property {
	m := make(map[records.PropertyID]records.Property, len(list))
	for _, p := range list {
		m[p.ID] = p
	}
	return m
}

// =============================================================================
// CASH-FLOW SERIES
// =============================================================================

func TestCashflowSeries_SingleMonthWorkedExample(t *testing.T) {
	// GIVEN: One rent payment of $1250 and one expense of $1000, both in January
	// WHEN: Requesting the series over Q1
	// THEN: Exactly one bucket: {2024-01, income 1250, expenses 1000, net 250}

	engine, mem := newTestEngine(t)
	ctx := context.Background()

	prop := records.Property{ID: "prop-1", Address: "1 Example Street"}
	saveProperty(t, mem, prop)

	require.NoError(t, mem.SaveIncome(ctx, records.IncomeEntry{
		ID: "inc-1", PropertyID: "prop-1",
		Date: date(2024, time.January, 12), Category: "Rent", Amount: records.NewMoney(1250),
	}))
	require.NoError(t, mem.SaveExpense(ctx, records.ExpenseEntry{
		ID: "exp-1", PropertyID: "prop-1",
		Date: date(2024, time.January, 20), Category: "Plumbing repair", Amount: records.NewMoney(1000),
	}))

	series, err := engine.CashflowSeries(ctx, windowOver(propsOf(prop), date(2024, time.January, 1), date(2024, time.March, 31)))
	require.NoError(t, err)

	require.Len(t, series.Buckets, 1, "months without activity produce no bucket")
	b := series.Buckets[0]
	assert.Equal(t, "2024-01", b.Label)
	assert.True(t, b.Income.Equal(records.NewMoney(1250)), "income = %s", b.Income)
	assert.True(t, b.Expenses.Equal(records.NewMoney(1000)), "expenses = %s", b.Expenses)
	assert.True(t, b.Net.Equal(records.NewMoney(250)), "net = %s", b.Net)
	assert.Equal(t, "month", series.Granularity)
}

func TestCashflowSeries_NetIdentityHoldsPerBucket(t *testing.T) {
	engine, mem := newTestEngine(t)
	ctx := context.Background()

	prop := records.Property{ID: "prop-1", Address: "1 Example Street"}
	saveProperty(t, mem, prop)

	amounts := []float64{2600, 130.55, 975, 42.42, 2600}
	for i, amt := range amounts {
		require.NoError(t, mem.SaveIncome(ctx, records.IncomeEntry{
			ID: records.IncomeID(fmt.Sprintf("inc-%d", i)), PropertyID: "prop-1",
			Date: date(2024, time.January, 1).AddDays(i * 17), Category: "Misc", Amount: records.NewMoney(amt),
		}))
		require.NoError(t, mem.SaveExpense(ctx, records.ExpenseEntry{
			ID: records.ExpenseID(fmt.Sprintf("exp-%d", i)), PropertyID: "prop-1",
			Date: date(2024, time.January, 1).AddDays(i * 23), Category: "Misc", Amount: records.NewMoney(amt / 3),
		}))
	}

	series, err := engine.CashflowSeries(ctx, windowOver(propsOf(prop), date(2024, time.January, 1), date(2024, time.December, 31)))
	require.NoError(t, err)
	require.NotEmpty(t, series.Buckets)

	for _, b := range series.Buckets {
		assert.True(t, b.Net.Equal(b.Income.Sub(b.Expenses)), "bucket %s: net %s != %s - %s", b.Label, b.Net, b.Income, b.Expenses)
	}
}

func TestCashflowSeries_Deterministic(t *testing.T) {
	engine, mem := newTestEngine(t)
	ctx := context.Background()

	prop := records.Property{ID: "prop-1", Address: "1 Example Street"}
	saveProperty(t, mem, prop)
	for i := 0; i < 6; i++ {
		require.NoError(t, mem.SaveIncome(ctx, records.IncomeEntry{
			ID: records.IncomeID(fmt.Sprintf("inc-%d", i)), PropertyID: "prop-1",
			Date: date(2024, time.January, 5).AddMonths(i), Category: "Rent", Amount: records.NewMoney(1000),
		}))
	}

	w := windowOver(propsOf(prop), date(2024, time.January, 1), date(2024, time.December, 31))
	first, err := engine.CashflowSeries(ctx, w)
	require.NoError(t, err)
	second, err := engine.CashflowSeries(ctx, w)
	require.NoError(t, err)

	assert.Equal(t, first, second, "same store, same window, same answer")
}

func TestCashflowSeries_DownsamplesDenseHistories(t *testing.T) {
	// GIVEN: 1000 months of activity
	// THEN: At most 400 buckets survive, spread across the whole range
	//       rather than truncated at either end

	engine, mem := newTestEngine(t)
	ctx := context.Background()

	prop := records.Property{ID: "prop-1", Address: "1 Example Street"}
	saveProperty(t, mem, prop)

	start := date(1940, time.January, 1)
	for i := 0; i < 1000; i++ {
		require.NoError(t, mem.SaveExpense(ctx, records.ExpenseEntry{
			ID: records.ExpenseID(fmt.Sprintf("exp-%04d", i)), PropertyID: "prop-1",
			Date: start.AddMonths(i), Category: "Misc", Amount: records.NewMoney(10),
		}))
	}

	series, err := engine.CashflowSeries(ctx, windowOver(propsOf(prop), start, start.AddMonths(1000)))
	require.NoError(t, err)

	assert.LessOrEqual(t, len(series.Buckets), 400)
	assert.Greater(t, len(series.Buckets), 300, "even downsampling keeps roughly every 3rd month")
	assert.Equal(t, "1940-01", series.Buckets[0].Label, "first bucket survives")

	last := series.Buckets[len(series.Buckets)-1].Label
	assert.GreaterOrEqual(t, last, "2022-01", "tail of the range is represented, not cut off")

	for i := 1; i < len(series.Buckets); i++ {
		assert.Less(t, series.Buckets[i-1].Label, series.Buckets[i].Label, "chronological order preserved")
	}
}

// =============================================================================
// INCOME DEDUPLICATION
// =============================================================================

func TestKPISummary_LedgerLinkedIncomeCountedOnce(t *testing.T) {
	// GIVEN: A rent income record and the ledger entry reconciliation
	//        synthesized from it
	// THEN: The money appears once in net cash flow, not twice

	engine, mem := newTestEngine(t)
	ctx := context.Background()

	prop := records.Property{ID: "prop-1", Address: "1 Example Street"}
	saveProperty(t, mem, prop)

	paid := date(2024, time.March, 1)
	require.NoError(t, mem.SaveIncome(ctx, records.IncomeEntry{
		ID: "inc-1", PropertyID: "prop-1", Date: paid, Category: "Base rent", Amount: records.NewMoney(2600),
	}))
	require.NoError(t, mem.SaveLedgerEntry(ctx, records.RentLedgerEntry{
		ID: "rl-inc-1", PropertyID: "prop-1", DueDate: paid, Amount: records.NewMoney(2600),
		Status: records.StatusPaid, PaidDate: &paid,
		Link: &records.LedgerLink{SourceIncomeID: "inc-1"},
	}))

	kpis, err := engine.KPISummary(ctx, windowOver(propsOf(prop), date(2024, time.January, 1), date(2024, time.March, 31)))
	require.NoError(t, err)

	assert.True(t, kpis.NetCashflow.Equal(records.NewMoney(2600)), "net = %s, want 2600.00", kpis.NetCashflow)
}

func TestIncomeEvents_PaidDateDecidesWindowMembership(t *testing.T) {
	// A linked entry due inside the window but paid after it contributes
	// nothing; one due outside but paid inside contributes fully.

	engine, mem := newTestEngine(t)
	ctx := context.Background()

	prop := records.Property{ID: "prop-1", Address: "1 Example Street"}
	saveProperty(t, mem, prop)

	paidLate := date(2024, time.April, 5)
	require.NoError(t, mem.SaveIncome(ctx, records.IncomeEntry{
		ID: "inc-late", PropertyID: "prop-1", Date: paidLate, Category: "Rent", Amount: records.NewMoney(500),
	}))
	require.NoError(t, mem.SaveLedgerEntry(ctx, records.RentLedgerEntry{
		ID: "rl-late", PropertyID: "prop-1", DueDate: date(2024, time.March, 28),
		Amount: records.NewMoney(500), Status: records.StatusPaid, PaidDate: &paidLate,
		Link: &records.LedgerLink{SourceIncomeID: "inc-late"},
	}))

	paidEarly := date(2024, time.March, 30)
	require.NoError(t, mem.SaveIncome(ctx, records.IncomeEntry{
		ID: "inc-early", PropertyID: "prop-1", Date: paidEarly, Category: "Rent", Amount: records.NewMoney(700),
	}))
	require.NoError(t, mem.SaveLedgerEntry(ctx, records.RentLedgerEntry{
		ID: "rl-early", PropertyID: "prop-1", DueDate: date(2024, time.April, 1),
		Amount: records.NewMoney(700), Status: records.StatusPaid, PaidDate: &paidEarly,
		Link: &records.LedgerLink{SourceIncomeID: "inc-early"},
	}))

	kpis, err := engine.KPISummary(ctx, windowOver(propsOf(prop), date(2024, time.January, 1), date(2024, time.March, 31)))
	require.NoError(t, err)

	assert.True(t, kpis.NetCashflow.Equal(records.NewMoney(700)), "net = %s, want 700.00", kpis.NetCashflow)
}

// =============================================================================
// KPI SUMMARY
// =============================================================================

func TestKPISummary_GrossYield(t *testing.T) {
	engine, mem := newTestEngine(t)
	ctx := context.Background()

	val := records.NewMoney(780000)
	prop := records.Property{ID: "prop-1", Address: "1 Example Street", WeeklyRent: records.NewMoney(650), Valuation: &val}
	saveProperty(t, mem, prop)

	kpis, err := engine.KPISummary(ctx, windowOver(propsOf(prop), date(2024, time.January, 1), date(2024, time.June, 30)))
	require.NoError(t, err)

	// 650 * 52 / 780000 = 4.333...%
	require.NotNil(t, kpis.GrossYield)
	assert.InDelta(t, 4.333, *kpis.GrossYield, 0.001)
}

func TestKPISummary_GrossYieldNilWithoutValuations(t *testing.T) {
	engine, mem := newTestEngine(t)
	ctx := context.Background()

	prop := records.Property{ID: "prop-1", Address: "1 Example Street", WeeklyRent: records.NewMoney(650)}
	saveProperty(t, mem, prop)

	kpis, err := engine.KPISummary(ctx, windowOver(propsOf(prop), date(2024, time.January, 1), date(2024, time.June, 30)))
	require.NoError(t, err)

	assert.Nil(t, kpis.GrossYield, "yield over an unvalued portfolio is unknown, not zero")
}

func TestKPISummary_OccupancyWorkedExample(t *testing.T) {
	// GIVEN: A single property leased Feb 1 - Feb 29 inside a Q1 window
	// THEN: 29 occupied days over a 90-day period = 32.2%

	engine, mem := newTestEngine(t)
	ctx := context.Background()

	leaseStart := date(2024, time.February, 1)
	leaseEnd := date(2024, time.February, 29)
	prop := records.Property{ID: "prop-1", Address: "1 Example Street", LeaseStart: &leaseStart, LeaseEnd: &leaseEnd}
	saveProperty(t, mem, prop)

	kpis, err := engine.KPISummary(ctx, windowOver(propsOf(prop), date(2024, time.January, 1), date(2024, time.March, 31)))
	require.NoError(t, err)

	assert.InDelta(t, 100.0*29/90, kpis.OccupancyRate, 0.001)
}

func TestKPISummary_OnTimeCollection(t *testing.T) {
	engine, mem := newTestEngine(t)
	ctx := context.Background()

	prop := records.Property{ID: "prop-1", Address: "1 Example Street"}
	saveProperty(t, mem, prop)

	due := date(2024, time.February, 1)
	onTime := due
	lateDay := due.AddDays(9)

	entries := []records.RentLedgerEntry{
		{ID: "rl-1", PropertyID: "prop-1", DueDate: due, Amount: records.NewMoney(500), Status: records.StatusPaid, PaidDate: &onTime},
		{ID: "rl-2", PropertyID: "prop-1", DueDate: due.AddDays(7), Amount: records.NewMoney(500), Status: records.StatusPaid, PaidDate: &lateDay},
		{ID: "rl-3", PropertyID: "prop-1", DueDate: due.AddDays(14), Amount: records.NewMoney(500), Status: records.StatusLate},
		// Paid with no recorded paid date counts as on-time.
		{ID: "rl-4", PropertyID: "prop-1", DueDate: due.AddDays(21), Amount: records.NewMoney(500), Status: records.StatusPaid},
	}
	for _, e := range entries {
		require.NoError(t, mem.SaveLedgerEntry(ctx, e))
	}

	kpis, err := engine.KPISummary(ctx, windowOver(propsOf(prop), date(2024, time.January, 1), date(2024, time.March, 31)))
	require.NoError(t, err)

	require.NotNil(t, kpis.OnTimeCollection)
	assert.InDelta(t, 50.0, *kpis.OnTimeCollection, 0.001)
}

func TestKPISummary_OnTimeCollectionNilWhenNothingDue(t *testing.T) {
	engine, mem := newTestEngine(t)
	ctx := context.Background()

	prop := records.Property{ID: "prop-1", Address: "1 Example Street"}
	saveProperty(t, mem, prop)

	kpis, err := engine.KPISummary(ctx, windowOver(propsOf(prop), date(2024, time.January, 1), date(2024, time.March, 31)))
	require.NoError(t, err)

	assert.Nil(t, kpis.OnTimeCollection)
}

// =============================================================================
// EXPENSE BREAKDOWN
// =============================================================================

func TestExpenseBreakdown_NormalizedAndSorted(t *testing.T) {
	engine, mem := newTestEngine(t)
	ctx := context.Background()

	prop := records.Property{ID: "prop-1", Address: "1 Example Street"}
	saveProperty(t, mem, prop)

	expenses := []records.ExpenseEntry{
		{ID: "exp-1", PropertyID: "prop-1", Date: date(2024, time.February, 1), Category: "Plumbing repair", Amount: records.NewMoney(480)},
		{ID: "exp-2", PropertyID: "prop-1", Date: date(2024, time.February, 10), Category: "Garden maintenance", Amount: records.NewMoney(220)},
		{ID: "exp-3", PropertyID: "prop-1", Date: date(2024, time.March, 1), Category: "Landlord insurance", Amount: records.NewMoney(1250)},
		{ID: "exp-4", PropertyID: "prop-1", Date: date(2024, time.March, 5), Category: "Mystery charge", Amount: records.NewMoney(60)},
	}
	for _, e := range expenses {
		require.NoError(t, mem.SaveExpense(ctx, e))
	}

	breakdown, err := engine.ExpenseBreakdown(ctx, windowOver(propsOf(prop), date(2024, time.January, 1), date(2024, time.March, 31)))
	require.NoError(t, err)

	assert.True(t, breakdown.Total.Equal(records.NewMoney(2010)), "total = %s", breakdown.Total)
	require.Len(t, breakdown.Items, 3)

	// Largest first: insurance 1250, repairs 700, other 60.
	assert.Equal(t, "Insurance", breakdown.Items[0].Category)
	assert.True(t, breakdown.Items[0].Value.Equal(records.NewMoney(1250)))
	assert.Equal(t, "Repairs & Maintenance", breakdown.Items[1].Category)
	assert.True(t, breakdown.Items[1].Value.Equal(records.NewMoney(700)))
	assert.Equal(t, analytics.CategoryOther, breakdown.Items[2].Category)
}

// =============================================================================
// PROPERTY COMPARISON
// =============================================================================

func TestPropertyComparison_IncludesInactiveProperties(t *testing.T) {
	engine, mem := newTestEngine(t)
	ctx := context.Background()

	propA := records.Property{ID: "prop-a", Address: "A Street"}
	propB := records.Property{ID: "prop-b", Address: "B Street"}
	saveProperty(t, mem, propA)
	saveProperty(t, mem, propB)

	require.NoError(t, mem.SaveIncome(ctx, records.IncomeEntry{
		ID: "inc-1", PropertyID: "prop-a", Date: date(2024, time.February, 1), Category: "Rent", Amount: records.NewMoney(2600),
	}))
	require.NoError(t, mem.SaveExpense(ctx, records.ExpenseEntry{
		ID: "exp-1", PropertyID: "prop-a", Date: date(2024, time.February, 10), Category: "Repair", Amount: records.NewMoney(600),
	}))

	comparison, err := engine.PropertyComparison(ctx, windowOver(propsOf(propA, propB), date(2024, time.January, 1), date(2024, time.March, 31)))
	require.NoError(t, err)

	require.Len(t, comparison.Items, 2)
	assert.Equal(t, records.PropertyID("prop-a"), comparison.Items[0].PropertyID)
	assert.True(t, comparison.Items[0].Net.Equal(records.NewMoney(2000)), "net = %s", comparison.Items[0].Net)
	assert.Equal(t, records.PropertyID("prop-b"), comparison.Items[1].PropertyID)
	assert.True(t, comparison.Items[1].Net.IsZero(), "inactive property appears with net 0")
}

// =============================================================================
// OCCUPANCY SUMMARY
// =============================================================================

func TestOccupancySummary_PerPropertyDetail(t *testing.T) {
	engine, mem := newTestEngine(t)
	ctx := context.Background()

	leaseStart := date(2024, time.February, 1)
	leaseEnd := date(2024, time.February, 29)
	leased := records.Property{ID: "prop-a", Address: "A Street", LeaseStart: &leaseStart, LeaseEnd: &leaseEnd}
	vacant := records.Property{ID: "prop-b", Address: "B Street"}
	openStart := date(2023, time.June, 1)
	openEnded := records.Property{ID: "prop-c", Address: "C Street", LeaseStart: &openStart}
	saveProperty(t, mem, leased)
	saveProperty(t, mem, vacant)
	saveProperty(t, mem, openEnded)

	summary, err := engine.OccupancySummary(ctx, windowOver(propsOf(leased, vacant, openEnded), date(2024, time.January, 1), date(2024, time.March, 31)))
	require.NoError(t, err)

	assert.Equal(t, 90, summary.PeriodDays)
	assert.Equal(t, 3, summary.PropertyCount)
	require.Len(t, summary.Items, 3)

	assert.Equal(t, 29, summary.Items[0].OccupiedDays, "bounded lease overlaps February only")
	assert.Equal(t, 0, summary.Items[1].OccupiedDays, "no lease dates means vacant")
	assert.Equal(t, 91, summary.Items[2].OccupiedDays, "open-ended lease clamps to the range edge")
	assert.Equal(t, 29+0+91, summary.OccupiedDays)
}

// =============================================================================
// WINDOW RESOLUTION
// =============================================================================

func TestResolveWindow_StalePropertyFilterWidens(t *testing.T) {
	// GIVEN: A filter naming only a deleted property id
	// THEN: The window covers the full active portfolio

	engine, mem := newTestEngine(t)

	saveProperty(t, mem, records.Property{ID: "prop-a", Address: "A Street"})
	saveProperty(t, mem, records.Property{ID: "prop-b", Address: "B Street"})

	w, err := engine.ResolveWindow(context.Background(), analytics.WindowInput{
		FromRaw:     "2024-01-01",
		ToRaw:       "2024-03-31",
		PropertyIDs: []records.PropertyID{"prop-deleted"},
	})
	require.NoError(t, err)

	assert.Len(t, w.Properties, 2)
}
