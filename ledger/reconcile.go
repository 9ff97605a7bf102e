package ledger

import (
	"context"
	"fmt"
	"sync"

	"github.com/sirupsen/logrus"
	"github.com/warp/portfolio-engine/records"
)

// =============================================================================
// RECONCILIATION SERVICE
// =============================================================================

// Service maintains the income-to-ledger linkage invariant. It is the
// only component that writes rent ledger entries.
type Service struct {
	store records.RecordStore
	log   logrus.FieldLogger

	mu    sync.Mutex
	locks map[records.IncomeID]*sync.Mutex
}

func NewService(store records.RecordStore, log logrus.FieldLogger) *Service {
	if log == nil {
		log = logrus.StandardLogger()
	}
	return &Service{
		store: store,
		log:   log.WithField("component", "ledger"),
		locks: make(map[records.IncomeID]*sync.Mutex),
	}
}

// lockIncome serializes reconciliation per income id. Mutexes are kept
// for the life of the process; the map is bounded by the number of
// distinct income records touched.
func (s *Service) lockIncome(id records.IncomeID) func() {
	s.mu.Lock()
	l, ok := s.locks[id]
	if !ok {
		l = &sync.Mutex{}
		s.locks[id] = l
	}
	s.mu.Unlock()

	l.Lock()
	return l.Unlock
}

// =============================================================================
// TRIGGERS - Called by income create/update/delete workflows
// =============================================================================

// OnIncomeSaved reconciles the ledger after an income record was
// created or updated. prev is the record's state before the write, nil
// on create.
//
// Store write failures are returned to the caller unretried: a silent
// retry here risks duplicate ledger entries.
func (s *Service) OnIncomeSaved(ctx context.Context, prev *records.IncomeEntry, curr records.IncomeEntry) error {
	unlock := s.lockIncome(curr.ID)
	defer unlock()

	wasRent := prev != nil && IsRentCategory(prev.Category)
	isRent := IsRentCategory(curr.Category)

	switch {
	case isRent:
		return s.upsertLink(ctx, curr)
	case wasRent:
		return s.undoLink(ctx, curr.ID)
	default:
		return nil
	}
}

// OnIncomeDeleted reconciles the ledger after an income record was
// deleted. Applies the same restore-or-delete logic as a rent ->
// not-rent transition.
func (s *Service) OnIncomeDeleted(ctx context.Context, income records.IncomeEntry) error {
	unlock := s.lockIncome(income.ID)
	defer unlock()

	return s.undoLink(ctx, income.ID)
}

// =============================================================================
// STATE TRANSITIONS
// =============================================================================

// upsertLink ensures a ledger entry linked to the income record exists
// with status paid, paid on the income date, for the income amount.
func (s *Service) upsertLink(ctx context.Context, income records.IncomeEntry) error {
	entry, err := s.store.FindLedgerBySource(ctx, income.ID)
	if err != nil {
		return fmt.Errorf("locate ledger entry for income %s: %w", income.ID, err)
	}

	if entry != nil {
		// Rent -> rent update. Prior state was captured at link time and
		// must not be recaptured, or a later undo would restore the
		// intermediate state instead of the original.
		applyIncome(entry, income)
		if err := s.store.SaveLedgerEntry(ctx, *entry); err != nil {
			return fmt.Errorf("update ledger entry %s: %w", entry.ID, err)
		}
		s.log.WithFields(logrus.Fields{"income": income.ID, "entry": entry.ID}).Debug("ledger entry updated")
		return nil
	}

	candidate, err := s.store.FindUnlinkedLedger(ctx, income.PropertyID, income.Date)
	if err != nil {
		return fmt.Errorf("locate adoption candidate for income %s: %w", income.ID, err)
	}

	if candidate != nil {
		// Adopt the scheduled entry instead of creating a duplicate,
		// capturing its state first so the adoption is reversible.
		candidate.Link = &records.LedgerLink{
			SourceIncomeID: income.ID,
			Prior:          records.CapturePrior(*candidate),
		}
		applyIncome(candidate, income)
		if err := s.store.SaveLedgerEntry(ctx, *candidate); err != nil {
			return fmt.Errorf("adopt ledger entry %s: %w", candidate.ID, err)
		}
		s.log.WithFields(logrus.Fields{"income": income.ID, "entry": candidate.ID}).Info("ledger entry adopted")
		return nil
	}

	created := records.RentLedgerEntry{
		ID:          records.EntryID(fmt.Sprintf("rl-%s", income.ID)),
		PropertyID:  income.PropertyID,
		TenantID:    income.TenantID,
		DueDate:     income.Date,
		Description: "Rent payment",
		Link:        &records.LedgerLink{SourceIncomeID: income.ID},
	}
	applyIncome(&created, income)
	if err := s.store.SaveLedgerEntry(ctx, created); err != nil {
		return fmt.Errorf("create ledger entry for income %s: %w", income.ID, err)
	}
	s.log.WithFields(logrus.Fields{"income": income.ID, "entry": created.ID}).Info("ledger entry created")
	return nil
}

// undoLink reverses the linkage for an income record: restore the prior
// state on an adopted entry, delete a synthesized one. A missing entry
// is a no-op - the ledger may have been edited independently.
func (s *Service) undoLink(ctx context.Context, incomeID records.IncomeID) error {
	entry, err := s.store.FindLedgerBySource(ctx, incomeID)
	if err != nil {
		return fmt.Errorf("locate ledger entry for income %s: %w", incomeID, err)
	}
	if entry == nil {
		s.log.WithField("income", incomeID).Debug("no linked ledger entry to undo")
		return nil
	}

	if entry.Link.Prior != nil {
		entry.Link.Prior.Restore(entry)
		entry.EvidenceRef = ""
		entry.Link = nil
		if err := s.store.SaveLedgerEntry(ctx, *entry); err != nil {
			return fmt.Errorf("restore ledger entry %s: %w", entry.ID, err)
		}
		s.log.WithFields(logrus.Fields{"income": incomeID, "entry": entry.ID}).Info("ledger entry restored")
		return nil
	}

	if err := s.store.DeleteLedgerEntry(ctx, entry.ID); err != nil {
		return fmt.Errorf("delete ledger entry %s: %w", entry.ID, err)
	}
	s.log.WithFields(logrus.Fields{"income": incomeID, "entry": entry.ID}).Info("ledger entry deleted")
	return nil
}

// applyIncome overwrites the reconciliation-managed fields of a ledger
// entry from the income record.
func applyIncome(entry *records.RentLedgerEntry, income records.IncomeEntry) {
	entry.Amount = income.Amount
	entry.DueDate = income.Date
	paid := income.Date
	entry.PaidDate = &paid
	entry.Status = records.StatusPaid
	entry.EvidenceRef = income.EvidenceRef
	if income.TenantID != "" {
		entry.TenantID = income.TenantID
	}
}

// =============================================================================
// AUDIT SWEEP
// =============================================================================

// AuditReport summarizes a full-ledger consistency sweep.
type AuditReport struct {
	RentIncomes int
	Repaired    int
}

// AuditSweep re-verifies the linkage invariant over the whole store:
// every rent-classified income record must have a linked ledger entry.
// Missing links are re-created (drift can appear when the ledger is
// edited outside reconciliation). Linked entries are re-upserted, which
// also heals amount/date drift without touching captured prior state.
func (s *Service) AuditSweep(ctx context.Context) (AuditReport, error) {
	incomes, err := s.store.Incomes(ctx, records.IncomeFilter{})
	if err != nil {
		return AuditReport{}, fmt.Errorf("scan incomes: %w", err)
	}

	report := AuditReport{}
	for _, income := range incomes {
		if !IsRentCategory(income.Category) {
			continue
		}
		report.RentIncomes++

		unlock := s.lockIncome(income.ID)
		entry, err := s.store.FindLedgerBySource(ctx, income.ID)
		if err != nil {
			unlock()
			return report, fmt.Errorf("locate ledger entry for income %s: %w", income.ID, err)
		}
		missing := entry == nil
		if err := s.upsertLink(ctx, income); err != nil {
			unlock()
			return report, err
		}
		unlock()

		if missing {
			report.Repaired++
		}
	}

	s.log.WithFields(logrus.Fields{
		"rent_incomes": report.RentIncomes,
		"repaired":     report.Repaired,
	}).Info("ledger audit sweep completed")
	return report, nil
}
