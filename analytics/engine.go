/*
engine.go - Aggregation core

PURPOSE:
  The five read operations of the analytics engine: KPI summary,
  cash-flow series, expense breakdown, property comparison, and
  occupancy summary. All are side-effect-free folds over filtered
  record scans and may run concurrently.

RENT DOUBLE-COUNTING:
  Rent money can appear twice in the source logs: once as an income
  entry and once as the ledger entry reconciliation synthesized from
  it. Matched income is therefore defined as income entries NOT linked
  into the ledger, plus paid ledger entries. Every operation that sums
  income uses this one definition (incomeEvents) so independent call
  sites cannot drift apart.

ERROR POLICY:
  Store failures abort the whole operation - no partial aggregate is
  returned. Missing optional fields never error: absent amounts count
  as zero, absent dates exclude the record from range matching.

SEE ALSO:
  - daterange.go: Window resolution
  - taxonomy.go: Expense category normalization
*/
package analytics

import (
	"context"
	"sort"

	"github.com/warp/portfolio-engine/records"
)

// maxSeriesBuckets caps the cash-flow series length. Denser histories
// are downsampled evenly rather than truncated.
const maxSeriesBuckets = 400

// =============================================================================
// ENGINE
// =============================================================================

// Engine computes aggregates from a RecordStore snapshot.
type Engine struct {
	Store    records.RecordStore
	Taxonomy Classifier
}

func NewEngine(store records.RecordStore) *Engine {
	return &Engine{Store: store, Taxonomy: NewKeywordTaxonomy()}
}

// Window is a resolved (range, property set) pair that every
// aggregation operation takes as input.
type Window struct {
	From       records.Date
	To         records.Date
	Properties map[records.PropertyID]records.Property
}

// WindowInput is raw caller input before normalization.
type WindowInput struct {
	FromRaw         string
	ToRaw           string
	PropertyIDs     []records.PropertyID
	IncludeArchived bool
	Span            Span
}

// ResolveWindow normalizes raw caller input into a Window.
func (e *Engine) ResolveWindow(ctx context.Context, in WindowInput) (Window, error) {
	from, to := ResolveDateRange(in.FromRaw, in.ToRaw, in.Span)

	all, err := e.Store.ListProperties(ctx)
	if err != nil {
		return Window{}, err
	}
	return Window{
		From:       from,
		To:         to,
		Properties: AllowedProperties(all, in.PropertyIDs, in.IncludeArchived),
	}, nil
}

// =============================================================================
// RESULT TYPES
// =============================================================================

type KPISummary struct {
	NetCashflow records.Money

	// GrossYield is annual rent over valuation, percent. Nil when the
	// portfolio has no recorded valuations.
	GrossYield *float64

	// OccupancyRate is leased property-days over available
	// property-days, percent.
	OccupancyRate float64

	// OnTimeCollection is the share of ledger entries due in range that
	// were paid by their due date, percent. Nil when nothing was due.
	OnTimeCollection *float64
}

// Bucket is a derived calendar-month aggregate. Net is always
// Income - Expenses.
type Bucket struct {
	Label    string
	Income   records.Money
	Expenses records.Money
	Net      records.Money
}

type CashflowSeries struct {
	Buckets     []Bucket
	Granularity string
}

type BreakdownItem struct {
	Category string
	Value    records.Money
}

type ExpenseBreakdown struct {
	Total records.Money
	Items []BreakdownItem
}

type ComparisonItem struct {
	PropertyID    records.PropertyID
	PropertyLabel string
	Net           records.Money
}

type PropertyComparison struct {
	Items []ComparisonItem
}

type OccupancyItem struct {
	PropertyID    records.PropertyID
	PropertyLabel string
	OccupiedDays  int
	Rate          float64
}

type OccupancySummary struct {
	PeriodDays    int
	PropertyCount int
	OccupiedDays  int
	Rate          float64
	Items         []OccupancyItem
}

// =============================================================================
// MATCHED INCOME - Shared by KPI, series, and comparison
// =============================================================================

type incomeEvent struct {
	PropertyID records.PropertyID
	Date       records.Date
	Amount     records.Money
}

// incomeEvents returns all income in the window under the
// double-counting policy: unlinked income entries plus paid ledger
// entries, where a paid ledger entry's effective date is its paid date
// (falling back to the due date for legacy rows without one).
func (e *Engine) incomeEvents(ctx context.Context, w Window) ([]incomeEvent, error) {
	set := propertySet(w.Properties)

	incomes, err := e.Store.Incomes(ctx, records.IncomeFilter{From: &w.From, To: &w.To, Properties: set})
	if err != nil {
		return nil, err
	}
	// Ledger is scanned without a due-date bound: the dedup set must see
	// links whose entries fall outside the window.
	ledger, err := e.Store.Ledger(ctx, records.LedgerFilter{Properties: set})
	if err != nil {
		return nil, err
	}

	linked := make(map[records.IncomeID]bool)
	for _, entry := range ledger {
		if entry.Link != nil {
			linked[entry.Link.SourceIncomeID] = true
		}
	}

	var events []incomeEvent
	for _, in := range incomes {
		if linked[in.ID] {
			continue
		}
		events = append(events, incomeEvent{PropertyID: in.PropertyID, Date: in.Date, Amount: in.Amount})
	}
	for _, entry := range ledger {
		if entry.Status != records.StatusPaid {
			continue
		}
		effective := entry.DueDate
		if entry.PaidDate != nil {
			effective = *entry.PaidDate
		}
		if effective.Before(w.From) || effective.After(w.To) {
			continue
		}
		events = append(events, incomeEvent{PropertyID: entry.PropertyID, Date: effective, Amount: entry.Amount})
	}
	return events, nil
}

// =============================================================================
// 1. KPI SUMMARY
// =============================================================================

func (e *Engine) KPISummary(ctx context.Context, w Window) (KPISummary, error) {
	set := propertySet(w.Properties)

	income, err := e.incomeEvents(ctx, w)
	if err != nil {
		return KPISummary{}, err
	}
	expenses, err := e.Store.Expenses(ctx, records.ExpenseFilter{From: &w.From, To: &w.To, Properties: set})
	if err != nil {
		return KPISummary{}, err
	}
	due, err := e.Store.Ledger(ctx, records.LedgerFilter{DueFrom: &w.From, DueTo: &w.To, Properties: set})
	if err != nil {
		return KPISummary{}, err
	}

	net := records.Zero()
	for _, ev := range income {
		net = net.Add(ev.Amount)
	}
	for _, ex := range expenses {
		net = net.Sub(ex.Amount)
	}

	return KPISummary{
		NetCashflow:      net,
		GrossYield:       grossYield(w.Properties),
		OccupancyRate:    occupancyRate(w),
		OnTimeCollection: onTimeCollection(due),
	}, nil
}

func grossYield(props map[records.PropertyID]records.Property) *float64 {
	annualRent := records.Zero()
	value := records.Zero()
	for _, p := range props {
		annualRent = annualRent.Add(p.AnnualRent())
		if p.Valuation != nil {
			value = value.Add(*p.Valuation)
		}
	}
	if value.IsZero() {
		return nil
	}
	yield := annualRent.Float64() / value.Float64() * 100
	return &yield
}

// occupancyRate divides occupied days by available property-days. The
// denominator uses the exclusive day count (a calendar quarter reads as
// 90 available days); lease overlap stays inclusive.
func occupancyRate(w Window) float64 {
	periodDays := records.DaysBetween(w.From, w.To)
	if periodDays == 0 || len(w.Properties) == 0 {
		return 0
	}
	occupied := 0
	for _, p := range w.Properties {
		occupied += occupiedDays(p, w.From, w.To)
	}
	return float64(occupied) / float64(periodDays*len(w.Properties)) * 100
}

// occupiedDays is the overlap of the property's lease with the query
// range, inclusive and clamped. An open-ended lease (only one bound
// recorded) clamps to the range edge; no lease dates at all counts as
// unoccupied.
func occupiedDays(p records.Property, from, to records.Date) int {
	if p.LeaseStart == nil && p.LeaseEnd == nil {
		return 0
	}
	start := from
	if p.LeaseStart != nil {
		start = *p.LeaseStart
	}
	end := to
	if p.LeaseEnd != nil {
		end = *p.LeaseEnd
	}
	return records.OverlapDays(start, end, from, to)
}

// onTimeCollection counts ledger entries due in range that were paid by
// their due date. A paid entry without a recorded paid date counts as
// on-time: legacy rows predate paid-date capture.
func onTimeCollection(due []records.RentLedgerEntry) *float64 {
	if len(due) == 0 {
		return nil
	}
	onTime := 0
	for _, entry := range due {
		if entry.Status != records.StatusPaid {
			continue
		}
		if entry.PaidDate == nil || entry.PaidDate.BeforeOrEqual(entry.DueDate) {
			onTime++
		}
	}
	pct := float64(onTime) / float64(len(due)) * 100
	return &pct
}

// =============================================================================
// 2. CASH-FLOW SERIES
// =============================================================================

func (e *Engine) CashflowSeries(ctx context.Context, w Window) (CashflowSeries, error) {
	income, err := e.incomeEvents(ctx, w)
	if err != nil {
		return CashflowSeries{}, err
	}
	expenses, err := e.Store.Expenses(ctx, records.ExpenseFilter{From: &w.From, To: &w.To, Properties: propertySet(w.Properties)})
	if err != nil {
		return CashflowSeries{}, err
	}

	byMonth := make(map[string]*Bucket)
	bucket := func(label string) *Bucket {
		b, ok := byMonth[label]
		if !ok {
			b = &Bucket{Label: label, Income: records.Zero(), Expenses: records.Zero()}
			byMonth[label] = b
		}
		return b
	}

	for _, ev := range income {
		b := bucket(ev.Date.MonthKey())
		b.Income = b.Income.Add(ev.Amount)
	}
	for _, ex := range expenses {
		b := bucket(ex.Date.MonthKey())
		b.Expenses = b.Expenses.Add(ex.Amount)
	}

	labels := make([]string, 0, len(byMonth))
	for label := range byMonth {
		labels = append(labels, label)
	}
	sort.Strings(labels)

	buckets := make([]Bucket, 0, len(byMonth))
	for _, label := range labels {
		b := *byMonth[label]
		b.Net = b.Income.Sub(b.Expenses)
		buckets = append(buckets, b)
	}

	return CashflowSeries{Buckets: downsample(buckets), Granularity: "month"}, nil
}

// downsample keeps every Nth bucket when the series exceeds the
// ceiling, preserving chronological spread instead of truncating.
func downsample(buckets []Bucket) []Bucket {
	if len(buckets) <= maxSeriesBuckets {
		return buckets
	}
	step := (len(buckets) + maxSeriesBuckets - 1) / maxSeriesBuckets
	kept := make([]Bucket, 0, maxSeriesBuckets)
	for i := 0; i < len(buckets); i += step {
		kept = append(kept, buckets[i])
	}
	return kept
}

// =============================================================================
// 3. EXPENSE BREAKDOWN
// =============================================================================

func (e *Engine) ExpenseBreakdown(ctx context.Context, w Window) (ExpenseBreakdown, error) {
	expenses, err := e.Store.Expenses(ctx, records.ExpenseFilter{From: &w.From, To: &w.To, Properties: propertySet(w.Properties)})
	if err != nil {
		return ExpenseBreakdown{}, err
	}

	totals := make(map[string]records.Money)
	total := records.Zero()
	for _, ex := range expenses {
		label := e.Taxonomy.Classify(ex.Category)
		totals[label] = totals[label].Add(ex.Amount)
		total = total.Add(ex.Amount)
	}

	items := make([]BreakdownItem, 0, len(totals))
	for label, value := range totals {
		items = append(items, BreakdownItem{Category: label, Value: value})
	}
	sort.Slice(items, func(i, j int) bool {
		if !items[i].Value.Equal(items[j].Value) {
			return items[i].Value.GreaterThan(items[j].Value)
		}
		return items[i].Category < items[j].Category
	})

	return ExpenseBreakdown{Total: total, Items: items}, nil
}

// =============================================================================
// 4. PROPERTY COMPARISON
// =============================================================================

// PropertyComparison reports per-property net over the window. Properties
// with zero activity are included with net 0; hiding them is the
// caller's decision.
func (e *Engine) PropertyComparison(ctx context.Context, w Window) (PropertyComparison, error) {
	income, err := e.incomeEvents(ctx, w)
	if err != nil {
		return PropertyComparison{}, err
	}
	expenses, err := e.Store.Expenses(ctx, records.ExpenseFilter{From: &w.From, To: &w.To, Properties: propertySet(w.Properties)})
	if err != nil {
		return PropertyComparison{}, err
	}

	net := make(map[records.PropertyID]records.Money, len(w.Properties))
	for id := range w.Properties {
		net[id] = records.Zero()
	}
	for _, ev := range income {
		net[ev.PropertyID] = net[ev.PropertyID].Add(ev.Amount)
	}
	for _, ex := range expenses {
		net[ex.PropertyID] = net[ex.PropertyID].Sub(ex.Amount)
	}

	items := make([]ComparisonItem, 0, len(w.Properties))
	for id, p := range w.Properties {
		items = append(items, ComparisonItem{PropertyID: id, PropertyLabel: p.Address, Net: net[id]})
	}
	sort.Slice(items, func(i, j int) bool { return items[i].PropertyID < items[j].PropertyID })

	return PropertyComparison{Items: items}, nil
}

// =============================================================================
// 5. OCCUPANCY SUMMARY
// =============================================================================

func (e *Engine) OccupancySummary(_ context.Context, w Window) (OccupancySummary, error) {
	periodDays := records.DaysBetween(w.From, w.To)

	items := make([]OccupancyItem, 0, len(w.Properties))
	totalOccupied := 0
	for id, p := range w.Properties {
		occupied := occupiedDays(p, w.From, w.To)
		totalOccupied += occupied
		rate := 0.0
		if periodDays > 0 {
			rate = float64(occupied) / float64(periodDays) * 100
		}
		items = append(items, OccupancyItem{PropertyID: id, PropertyLabel: p.Address, OccupiedDays: occupied, Rate: rate})
	}
	sort.Slice(items, func(i, j int) bool { return items[i].PropertyID < items[j].PropertyID })

	rate := 0.0
	if periodDays > 0 && len(w.Properties) > 0 {
		rate = float64(totalOccupied) / float64(periodDays*len(w.Properties)) * 100
	}

	return OccupancySummary{
		PeriodDays:    periodDays,
		PropertyCount: len(w.Properties),
		OccupiedDays:  totalOccupied,
		Rate:          rate,
		Items:         items,
	}, nil
}
