package records

import (
	"time"
)

// =============================================================================
// DATE - Day-granular time point
// =============================================================================

// Date is a calendar day in UTC. All record dates in this system are
// day-granular; times of day never participate in aggregation.
type Date struct {
	Time time.Time
}

// Constructors
func NewDate(year int, month time.Month, day int) Date {
	return Date{Time: time.Date(year, month, day, 0, 0, 0, 0, time.UTC)}
}

func DateOf(t time.Time) Date {
	return NewDate(t.Year(), t.Month(), t.Day())
}

func Today() Date {
	return DateOf(time.Now().UTC())
}

// ParseDate accepts "2006-01-02" or any RFC3339 timestamp (the date part
// is kept). The second return value reports whether parsing succeeded;
// callers fall back to defaults instead of erroring on malformed input.
func ParseDate(s string) (Date, bool) {
	if s == "" {
		return Date{}, false
	}
	if t, err := time.Parse("2006-01-02", s); err == nil {
		return DateOf(t), true
	}
	if t, err := time.Parse(time.RFC3339, s); err == nil {
		return DateOf(t.UTC()), true
	}
	return Date{}, false
}

// Comparison
func (d Date) Before(o Date) bool        { return d.normalize().Before(o.normalize()) }
func (d Date) After(o Date) bool         { return d.normalize().After(o.normalize()) }
func (d Date) Equal(o Date) bool         { return d.normalize().Equal(o.normalize()) }
func (d Date) BeforeOrEqual(o Date) bool { return d.Before(o) || d.Equal(o) }
func (d Date) AfterOrEqual(o Date) bool  { return d.After(o) || d.Equal(o) }

func (d Date) normalize() time.Time {
	return time.Date(d.Time.Year(), d.Time.Month(), d.Time.Day(), 0, 0, 0, 0, time.UTC)
}

// Arithmetic
func (d Date) AddDays(n int) Date   { return Date{Time: d.normalize().AddDate(0, 0, n)} }
func (d Date) AddMonths(n int) Date { return Date{Time: d.normalize().AddDate(0, n, 0)} }
func (d Date) AddYears(n int) Date  { return Date{Time: d.normalize().AddDate(n, 0, 0)} }

// Properties
func (d Date) Year() int         { return d.Time.Year() }
func (d Date) Month() time.Month { return d.Time.Month() }
func (d Date) Day() int          { return d.Time.Day() }
func (d Date) IsZero() bool      { return d.Time.IsZero() }

// MonthKey returns the calendar-month bucket key, e.g. "2024-05".
func (d Date) MonthKey() string { return d.Time.Format("2006-01") }

func (d Date) String() string { return d.Time.Format("2006-01-02") }

func StartOfYear(year int) Date { return NewDate(year, time.January, 1) }

// =============================================================================
// CALENDAR MATH
// =============================================================================

// DaysInclusive counts the days in [from, to], inclusive on both ends.
// A single day counts as 1. Inverted ranges count as 0, never negative.
func DaysInclusive(from, to Date) int {
	days := int(to.normalize().Sub(from.normalize()).Hours()/24) + 1
	if days < 0 {
		return 0
	}
	return days
}

// DaysBetween counts whole days from one date to another, exclusive of
// the end. Inverted ranges count as 0. Used as the occupancy
// denominator, where a quarter reads as 90 available days.
func DaysBetween(from, to Date) int {
	days := int(to.normalize().Sub(from.normalize()).Hours() / 24)
	if days < 0 {
		return 0
	}
	return days
}

// OverlapDays counts the days shared by [aStart, aEnd] and [bStart, bEnd],
// inclusive. Disjoint ranges yield 0.
func OverlapDays(aStart, aEnd, bStart, bEnd Date) int {
	start := aStart
	if bStart.After(start) {
		start = bStart
	}
	end := aEnd
	if bEnd.Before(end) {
		end = bEnd
	}
	if start.After(end) {
		return 0
	}
	return DaysInclusive(start, end)
}
