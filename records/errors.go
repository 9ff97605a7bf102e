/*
errors.go - Centralized error types for record storage

PURPOSE:
  All sentinel errors in one place for consistency and discoverability.
  Store implementations return these; callers match with errors.Is.

SEE ALSO:
  - store.go: The interface whose implementations use these errors
*/
package records

import (
	"errors"
	"fmt"
)

// =============================================================================
// SENTINEL ERRORS - Use with errors.Is()
// =============================================================================

var (
	// ErrNotFound is returned when a referenced record does not exist.
	ErrNotFound = errors.New("record not found")

	// ErrLedgerConflict is returned when a write would leave two ledger
	// entries linked to the same income record.
	ErrLedgerConflict = errors.New("ledger entry already linked to income record")
)

// =============================================================================
// STRUCTURED ERRORS - Carry additional context
// =============================================================================

// LedgerConflictError reports which income record already has a link.
type LedgerConflictError struct {
	IncomeID IncomeID
	EntryID  EntryID
}

func (e *LedgerConflictError) Error() string {
	return fmt.Sprintf("ledger entry %s already linked to income %s", e.EntryID, e.IncomeID)
}

func (e *LedgerConflictError) Unwrap() error { return ErrLedgerConflict }
