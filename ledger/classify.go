/*
Package ledger keeps the rent ledger synchronized with income records.

PURPOSE:
  Every income record whose category denotes a rent payment must have
  exactly one ledger entry linked back to it, marked paid on the income
  date for the income amount. When the classification changes or the
  income record is deleted, the linkage is undone cleanly: an adopted
  entry is restored to its captured prior state, a synthesized entry is
  deleted.

STATE MACHINE (per income record, keyed by classification):
  not-rent -> not-rent   no-op
  not-rent -> rent       create a linked entry, or adopt an existing
                         unlinked entry for the same property+due date
                         (capturing its prior state first)
  rent     -> rent       overwrite the linked entry's fields; prior
                         state is NOT recaptured
  rent     -> not-rent   restore prior state and clear the link, or
                         delete the entry if it was purely synthetic
  delete (rent)          same as rent -> not-rent

CONCURRENCY:
  Locate-then-write runs under a per-income-id mutex so concurrent
  classification changes on the same income record cannot create
  duplicate ledger entries. Global locking is not required.

SEE ALSO:
  - classify.go (this file): Rent-category alias matching
  - reconcile.go: The reconciliation service
*/
package ledger

import (
	"strings"
)

// =============================================================================
// RENT CLASSIFICATION - Category alias matching
// =============================================================================

// rentAliases is the fixed set of category strings that denote a rent
// payment, in normalized form.
var rentAliases = map[string]bool{
	"rent":             true,
	"base rent":        true,
	"rent payment":     true,
	"rental income":    true,
	"weekly rent":      true,
	"arrears":          true,
	"rent arrears":     true,
	"arrears catch up": true,
}

// IsRentCategory reports whether a free-text income category denotes a
// rent payment. Matching is case- and punctuation-insensitive.
func IsRentCategory(category string) bool {
	return rentAliases[normalizeCategory(category)]
}

// normalizeCategory lowercases and strips punctuation, collapsing runs
// of separators to single spaces ("Base-Rent " -> "base rent").
func normalizeCategory(s string) string {
	var b strings.Builder
	b.Grow(len(s))
	lastSpace := true
	for _, r := range strings.ToLower(s) {
		switch {
		case r >= 'a' && r <= 'z' || r >= '0' && r <= '9':
			b.WriteRune(r)
			lastSpace = false
		default:
			if !lastSpace {
				b.WriteByte(' ')
				lastSpace = true
			}
		}
	}
	return strings.TrimSpace(b.String())
}
