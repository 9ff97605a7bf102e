/*
store.go - Persistence contract for portfolio records

PURPOSE:
  Defines the interface between the engine and the record store. The
  analytics engine only reads; the ledger reconciliation service also
  writes rent ledger entries. Different implementations can use SQLite
  or in-memory storage.

FILTERED SCANS:
  Read methods take filter structs. A nil date bound means unbounded on
  that side; an empty property set means "no property restriction".
  Income and expense filters apply to the record date; the ledger filter
  applies to the due date. Finer-grained matching (e.g. paid-date
  windows) is the engine's job, keeping store implementations dumb.

DETERMINISM:
  Scans return records ordered by date then ID so that aggregation over
  an unchanged store is byte-identical between calls.

IMPLEMENTATIONS:
  - store/sqlite/sqlite.go: Production SQLite
  - records/store/memory.go: In-memory for testing/dev

SEE ALSO:
  - errors.go: Sentinel errors returned by implementations
*/
package records

import "context"

// =============================================================================
// FILTERS
// =============================================================================

// PropertySet is an allowed-property filter. Empty or nil means no
// restriction.
type PropertySet map[PropertyID]bool

func (ps PropertySet) Allows(id PropertyID) bool {
	return len(ps) == 0 || ps[id]
}

// IncomeFilter bounds an income scan. From/To apply to IncomeEntry.Date,
// inclusive.
type IncomeFilter struct {
	From       *Date
	To         *Date
	Properties PropertySet
}

// ExpenseFilter bounds an expense scan. From/To apply to
// ExpenseEntry.Date, inclusive.
type ExpenseFilter struct {
	From       *Date
	To         *Date
	Properties PropertySet
}

// LedgerFilter bounds a rent ledger scan. DueFrom/DueTo apply to
// RentLedgerEntry.DueDate, inclusive.
type LedgerFilter struct {
	DueFrom    *Date
	DueTo      *Date
	Properties PropertySet
}

// =============================================================================
// RECORD STORE
// =============================================================================

// RecordStore is the persistence contract for all portfolio records.
//
// Scan methods return copies ordered by (date, id); mutating a returned
// record never mutates store state.
type RecordStore interface {
	// Properties
	ListProperties(ctx context.Context) ([]Property, error)
	GetProperty(ctx context.Context, id PropertyID) (*Property, error)
	SaveProperty(ctx context.Context, p Property) error

	// Incomes
	Incomes(ctx context.Context, f IncomeFilter) ([]IncomeEntry, error)
	GetIncome(ctx context.Context, id IncomeID) (*IncomeEntry, error)
	SaveIncome(ctx context.Context, e IncomeEntry) error
	DeleteIncome(ctx context.Context, id IncomeID) error

	// Expenses
	Expenses(ctx context.Context, f ExpenseFilter) ([]ExpenseEntry, error)
	SaveExpense(ctx context.Context, e ExpenseEntry) error

	// Rent ledger
	Ledger(ctx context.Context, f LedgerFilter) ([]RentLedgerEntry, error)
	GetLedgerEntry(ctx context.Context, id EntryID) (*RentLedgerEntry, error)

	// FindLedgerBySource returns the entry linked to the given income
	// record, or nil when no entry is linked. At most one non-reversed
	// entry may carry a given source income id.
	FindLedgerBySource(ctx context.Context, incomeID IncomeID) (*RentLedgerEntry, error)

	// FindUnlinkedLedger returns an unlinked entry for the property due
	// on the given date, or nil. Used by reconciliation to adopt an
	// existing scheduled entry instead of creating a duplicate.
	FindUnlinkedLedger(ctx context.Context, propertyID PropertyID, dueDate Date) (*RentLedgerEntry, error)

	SaveLedgerEntry(ctx context.Context, e RentLedgerEntry) error
	DeleteLedgerEntry(ctx context.Context, id EntryID) error
}
