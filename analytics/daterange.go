/*
Package analytics computes portfolio KPIs and aggregates.

PURPOSE:
  Pure read-side of the engine: folds income, expense, and rent ledger
  records into KPI summaries, monthly cash-flow series, expense
  breakdowns, property comparisons, and occupancy figures. Every
  operation is a deterministic function of store content and input
  filters - aggregates are recomputed on demand, never persisted.

KEY CONCEPTS:
  - Window: A resolved (from, to, allowed properties) triple that every
    aggregation takes as input
  - Bucket: A derived calendar-month aggregate of income/expense/net
  - Classifier: Swappable mapping from free-text expense categories to
    a normalized taxonomy

INPUT LENIENCY:
  Caller-supplied ranges and property filters are normalized, never
  rejected: malformed dates fall back to defaults, inverted ranges are
  swapped, and stale property filters fall back to the full active set.

SEE ALSO:
  - daterange.go (this file): Date-range resolution
  - properties.go: Property-set resolution
  - engine.go: The aggregation operations
  - taxonomy.go: Expense category normalization
*/
package analytics

import (
	"github.com/warp/portfolio-engine/records"
)

// =============================================================================
// DATE-RANGE RESOLVER
// =============================================================================

// Span selects the fallback window applied when the caller supplies no
// usable "from" date.
type Span int

const (
	// SpanYearToDate defaults "from" to January 1 of the resolved "to"
	// year. Used by series and breakdown queries.
	SpanYearToDate Span = iota

	// SpanSixMonths defaults "from" to six months before the resolved
	// "to". Used by the KPI summary window.
	SpanSixMonths
)

// ResolveDateRange normalizes raw caller input into an ordered range.
//
// Unparsable or missing "to" defaults to today; unparsable or missing
// "from" defaults to the span's fallback before the resolved "to". An
// inverted range is swapped rather than rejected. Never fails.
func ResolveDateRange(fromRaw, toRaw string, span Span) (from, to records.Date) {
	to, ok := records.ParseDate(toRaw)
	if !ok {
		to = records.Today()
	}

	from, ok = records.ParseDate(fromRaw)
	if !ok {
		switch span {
		case SpanSixMonths:
			from = to.AddMonths(-6)
		default:
			from = records.StartOfYear(to.Year())
		}
	}

	if from.After(to) {
		from, to = to, from
	}
	return from, to
}
