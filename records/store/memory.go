// Package store provides RecordStore implementations.
package store

import (
	"context"
	"sort"
	"sync"

	"github.com/warp/portfolio-engine/records"
)

// =============================================================================
// MEMORY STORE - In-memory implementation (for testing/dev)
// =============================================================================

type Memory struct {
	mu         sync.RWMutex
	properties map[records.PropertyID]records.Property
	incomes    map[records.IncomeID]records.IncomeEntry
	expenses   map[records.ExpenseID]records.ExpenseEntry
	ledger     map[records.EntryID]records.RentLedgerEntry
}

func NewMemory() *Memory {
	return &Memory{
		properties: make(map[records.PropertyID]records.Property),
		incomes:    make(map[records.IncomeID]records.IncomeEntry),
		expenses:   make(map[records.ExpenseID]records.ExpenseEntry),
		ledger:     make(map[records.EntryID]records.RentLedgerEntry),
	}
}

// =============================================================================
// PROPERTIES
// =============================================================================

func (m *Memory) ListProperties(_ context.Context) ([]records.Property, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	result := make([]records.Property, 0, len(m.properties))
	for _, p := range m.properties {
		result = append(result, copyProperty(p))
	}
	sort.Slice(result, func(i, j int) bool { return result[i].ID < result[j].ID })
	return result, nil
}

func (m *Memory) GetProperty(_ context.Context, id records.PropertyID) (*records.Property, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	p, ok := m.properties[id]
	if !ok {
		return nil, nil
	}
	cp := copyProperty(p)
	return &cp, nil
}

func (m *Memory) SaveProperty(_ context.Context, p records.Property) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.properties[p.ID] = copyProperty(p)
	return nil
}

// =============================================================================
// INCOMES
// =============================================================================

func (m *Memory) Incomes(_ context.Context, f records.IncomeFilter) ([]records.IncomeEntry, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	var result []records.IncomeEntry
	for _, e := range m.incomes {
		if !f.Properties.Allows(e.PropertyID) {
			continue
		}
		if !inRange(e.Date, f.From, f.To) {
			continue
		}
		result = append(result, e)
	}
	sort.Slice(result, func(i, j int) bool {
		if !result[i].Date.Equal(result[j].Date) {
			return result[i].Date.Before(result[j].Date)
		}
		return result[i].ID < result[j].ID
	})
	return result, nil
}

func (m *Memory) GetIncome(_ context.Context, id records.IncomeID) (*records.IncomeEntry, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	e, ok := m.incomes[id]
	if !ok {
		return nil, nil
	}
	return &e, nil
}

func (m *Memory) SaveIncome(_ context.Context, e records.IncomeEntry) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.incomes[e.ID] = e
	return nil
}

func (m *Memory) DeleteIncome(_ context.Context, id records.IncomeID) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.incomes, id)
	return nil
}

// =============================================================================
// EXPENSES
// =============================================================================

func (m *Memory) Expenses(_ context.Context, f records.ExpenseFilter) ([]records.ExpenseEntry, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	var result []records.ExpenseEntry
	for _, e := range m.expenses {
		if !f.Properties.Allows(e.PropertyID) {
			continue
		}
		if !inRange(e.Date, f.From, f.To) {
			continue
		}
		result = append(result, copyExpense(e))
	}
	sort.Slice(result, func(i, j int) bool {
		if !result[i].Date.Equal(result[j].Date) {
			return result[i].Date.Before(result[j].Date)
		}
		return result[i].ID < result[j].ID
	})
	return result, nil
}

func (m *Memory) SaveExpense(_ context.Context, e records.ExpenseEntry) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.expenses[e.ID] = copyExpense(e)
	return nil
}

// =============================================================================
// RENT LEDGER
// =============================================================================

func (m *Memory) Ledger(_ context.Context, f records.LedgerFilter) ([]records.RentLedgerEntry, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	var result []records.RentLedgerEntry
	for _, e := range m.ledger {
		if !f.Properties.Allows(e.PropertyID) {
			continue
		}
		if !inRange(e.DueDate, f.DueFrom, f.DueTo) {
			continue
		}
		result = append(result, copyLedgerEntry(e))
	}
	sort.Slice(result, func(i, j int) bool {
		if !result[i].DueDate.Equal(result[j].DueDate) {
			return result[i].DueDate.Before(result[j].DueDate)
		}
		return result[i].ID < result[j].ID
	})
	return result, nil
}

func (m *Memory) GetLedgerEntry(_ context.Context, id records.EntryID) (*records.RentLedgerEntry, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	e, ok := m.ledger[id]
	if !ok {
		return nil, nil
	}
	cp := copyLedgerEntry(e)
	return &cp, nil
}

func (m *Memory) FindLedgerBySource(_ context.Context, incomeID records.IncomeID) (*records.RentLedgerEntry, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	for _, e := range m.ledger {
		if e.Link != nil && e.Link.SourceIncomeID == incomeID {
			cp := copyLedgerEntry(e)
			return &cp, nil
		}
	}
	return nil, nil
}

func (m *Memory) FindUnlinkedLedger(_ context.Context, propertyID records.PropertyID, dueDate records.Date) (*records.RentLedgerEntry, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	// Deterministic pick: lowest entry ID wins when several match.
	var found *records.RentLedgerEntry
	for id := range m.ledger {
		e := m.ledger[id]
		if e.Link != nil || e.PropertyID != propertyID || !e.DueDate.Equal(dueDate) {
			continue
		}
		if found == nil || e.ID < found.ID {
			cp := copyLedgerEntry(e)
			found = &cp
		}
	}
	return found, nil
}

func (m *Memory) SaveLedgerEntry(_ context.Context, e records.RentLedgerEntry) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if e.Link != nil {
		for id, other := range m.ledger {
			if id == e.ID {
				continue
			}
			if other.Link != nil && other.Link.SourceIncomeID == e.Link.SourceIncomeID {
				return &records.LedgerConflictError{IncomeID: e.Link.SourceIncomeID, EntryID: id}
			}
		}
	}
	m.ledger[e.ID] = copyLedgerEntry(e)
	return nil
}

func (m *Memory) DeleteLedgerEntry(_ context.Context, id records.EntryID) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.ledger, id)
	return nil
}

// =============================================================================
// HELPERS
// =============================================================================

func inRange(d records.Date, from, to *records.Date) bool {
	if from != nil && d.Before(*from) {
		return false
	}
	if to != nil && d.After(*to) {
		return false
	}
	return true
}

func copyProperty(p records.Property) records.Property {
	cp := p
	if p.LeaseStart != nil {
		d := *p.LeaseStart
		cp.LeaseStart = &d
	}
	if p.LeaseEnd != nil {
		d := *p.LeaseEnd
		cp.LeaseEnd = &d
	}
	if p.Valuation != nil {
		v := *p.Valuation
		cp.Valuation = &v
	}
	return cp
}

func copyExpense(e records.ExpenseEntry) records.ExpenseEntry {
	cp := e
	if e.GST != nil {
		g := *e.GST
		cp.GST = &g
	}
	return cp
}

func copyLedgerEntry(e records.RentLedgerEntry) records.RentLedgerEntry {
	cp := e
	if e.PaidDate != nil {
		d := *e.PaidDate
		cp.PaidDate = &d
	}
	if e.Link != nil {
		link := *e.Link
		if e.Link.Prior != nil {
			prior := *e.Link.Prior
			if prior.PaidDate != nil {
				pd := *prior.PaidDate
				prior.PaidDate = &pd
			}
			link.Prior = &prior
		}
		cp.Link = &link
	}
	return cp
}
