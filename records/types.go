/*
Package records defines the domain model for the portfolio engine.

PURPOSE:
  This package contains the record types that the analytics and ledger
  packages operate on: properties, income entries, expense entries, and
  rent ledger entries. It also defines Money (decimal-backed amounts)
  and Date (day-granular time points).

KEY CONCEPTS IN THIS FILE (types.go):
  - Money: A currency amount backed by decimal.Decimal
  - Property: A portfolio property with rent, lease dates, and valuation
  - IncomeEntry / ExpenseEntry: The two transactional logs
  - RentLedgerEntry: A scheduled or recorded rent obligation
  - LedgerLink: Explicit linkage between a ledger entry and the income
    record that generated it, with optional prior state for reversal

DESIGN PRINCIPLES:
  1. Precision: Uses decimal.Decimal to avoid floating-point errors
  2. Type Safety: Strong typing for IDs prevents mixing record kinds
  3. Explicit linkage: Ledger reversal state is a structured sub-record,
     not a pile of ad hoc optional fields
  4. Optional fields are pointers; absence always means "not recorded"

SEE ALSO:
  - time.go: Date type and calendar math
  - store.go: Persistence contract for these records
*/
package records

import (
	"github.com/shopspring/decimal"
)

// =============================================================================
// MONEY - Currency amount
// =============================================================================

type Money struct {
	Value decimal.Decimal
}

func NewMoney(value float64) Money {
	return Money{Value: decimal.NewFromFloat(value)}
}

func NewMoneyFromInt(value int) Money {
	return Money{Value: decimal.NewFromInt(int64(value))}
}

func MustParseMoney(s string) Money {
	d, err := decimal.NewFromString(s)
	if err != nil {
		return Money{Value: decimal.Zero}
	}
	return Money{Value: d}
}

func Zero() Money { return Money{Value: decimal.Zero} }

func (m Money) Add(o Money) Money          { return Money{Value: m.Value.Add(o.Value)} }
func (m Money) Sub(o Money) Money          { return Money{Value: m.Value.Sub(o.Value)} }
func (m Money) Mul(s decimal.Decimal) Money { return Money{Value: m.Value.Mul(s)} }
func (m Money) Neg() Money                 { return Money{Value: m.Value.Neg()} }
func (m Money) IsZero() bool               { return m.Value.IsZero() }
func (m Money) IsNegative() bool           { return m.Value.IsNegative() }
func (m Money) IsPositive() bool           { return m.Value.IsPositive() }
func (m Money) Equal(o Money) bool         { return m.Value.Equal(o.Value) }
func (m Money) GreaterThan(o Money) bool   { return m.Value.GreaterThan(o.Value) }
func (m Money) Float64() float64           { f, _ := m.Value.Float64(); return f }
func (m Money) String() string             { return m.Value.StringFixed(2) }

// =============================================================================
// IDENTIFIERS
// =============================================================================

type PropertyID string
type IncomeID string
type ExpenseID string
type EntryID string
type TenantID string

// =============================================================================
// PROPERTY - Portfolio property registry record
// =============================================================================

// Property is a registry record for a rental property.
// Archived properties are excluded from default aggregation unless the
// caller explicitly asks for them.
type Property struct {
	ID         PropertyID
	Address    string
	WeeklyRent Money
	LeaseStart *Date
	LeaseEnd   *Date
	Valuation  *Money
	Archived   bool
}

// AnnualRent returns the annualized rent (52 weeks).
func (p Property) AnnualRent() Money {
	return p.WeeklyRent.Mul(weeksPerYear)
}

var weeksPerYear = decimal.NewFromInt(52)

// =============================================================================
// INCOME / EXPENSE - Transactional logs
// =============================================================================

// IncomeEntry records money received against a property. The Category is
// free text; categories that alias to a rent payment drive ledger
// reconciliation (see the ledger package).
type IncomeEntry struct {
	ID          IncomeID
	PropertyID  PropertyID
	Date        Date
	Category    string
	Amount      Money
	TenantID    TenantID // optional, empty when unknown
	EvidenceRef string   // optional pointer to an uploaded receipt
}

// ExpenseEntry records money spent against a property. Read-only to the
// analytics engine.
type ExpenseEntry struct {
	ID         ExpenseID
	PropertyID PropertyID
	Date       Date
	Category   string
	Vendor     string
	Amount     Money
	GST        *Money
}

// =============================================================================
// RENT LEDGER - Scheduled/recorded rent obligations
// =============================================================================

type LedgerStatus string

const (
	StatusPaid LedgerStatus = "paid"
	StatusLate LedgerStatus = "late"
)

// RentLedgerEntry is a single rent obligation: a due date, an amount, and
// whether it was paid on time.
//
// Link records that this entry is synchronized from an income record.
// A nil Link means the entry is unlinked (manually entered or scheduled).
type RentLedgerEntry struct {
	ID          EntryID
	PropertyID  PropertyID
	TenantID    TenantID
	DueDate     Date
	Amount      Money
	Status      LedgerStatus
	PaidDate    *Date
	Description string
	EvidenceRef string
	Link        *LedgerLink
}

// LedgerLink ties a ledger entry to the income record that generated it.
//
// Prior captures the entry's state before it was adopted by
// reconciliation. A nil Prior means the entry was synthesized outright:
// when the link is undone, a synthesized entry is deleted while an
// adopted entry is restored from Prior.
type LedgerLink struct {
	SourceIncomeID IncomeID
	Prior          *PriorState
}

// PriorState is the shadow copy of a ledger entry's fields as they were
// before reconciliation overwrote them.
type PriorState struct {
	Status      LedgerStatus
	PaidDate    *Date
	Amount      Money
	DueDate     Date
	Description string
}

// Restore writes the prior state back onto the entry.
func (ps PriorState) Restore(e *RentLedgerEntry) {
	e.Status = ps.Status
	e.PaidDate = ps.PaidDate
	e.Amount = ps.Amount
	e.DueDate = ps.DueDate
	e.Description = ps.Description
}

// CapturePrior snapshots the entry's current reconciliation-managed
// fields into a PriorState.
func CapturePrior(e RentLedgerEntry) *PriorState {
	return &PriorState{
		Status:      e.Status,
		PaidDate:    e.PaidDate,
		Amount:      e.Amount,
		DueDate:     e.DueDate,
		Description: e.Description,
	}
}
