/*
Package sqlite provides a SQLite-backed implementation of the
records.RecordStore interface.

PURPOSE:
  Production persistence for the portfolio engine. In production the
  same patterns apply to PostgreSQL - only minor SQL dialect
  differences.

KEY TABLES:
  properties:   Portfolio registry
  incomes:      Income transaction log
  expenses:     Expense transaction log
  rent_ledger:  Rent obligations with reconciliation linkage

LINKAGE INVARIANT:
  A unique partial index on rent_ledger.source_income_id enforces at
  the store level that at most one entry is linked to a given income
  record. The link's reversible prior state is stored in prior_*
  columns; a non-null prior_status marks that prior state is present.

AMOUNTS AND DATES:
  Money is stored as decimal strings (never floats), dates as
  "YYYY-MM-DD" text. Both sort correctly as text, which the ordered
  scans rely on.

WAL MODE:
  SQLite is opened with WAL for better concurrency: multiple readers
  don't block and crash recovery improves.

USAGE:
  store, err := sqlite.New("./data/portfolio.db")
  if err != nil {
      log.Fatal(err)
  }
  defer store.Close()

SEE ALSO:
  - records/store.go: Interface definition
  - records/store/memory.go: In-memory implementation for testing
*/
package sqlite

import (
	"context"
	"database/sql"
	"fmt"
	"sort"
	"strings"
	"sync"

	_ "github.com/mattn/go-sqlite3"
	"github.com/warp/portfolio-engine/records"
)

// Store implements records.RecordStore using SQLite.
type Store struct {
	db *sql.DB
	mu sync.RWMutex
}

// New creates a new SQLite store with the given database path.
// Use ":memory:" for an in-memory database.
func New(dbPath string) (*Store, error) {
	db, err := sql.Open("sqlite3", dbPath+"?_foreign_keys=on&_journal_mode=WAL")
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	store := &Store{db: db}
	if err := store.migrate(); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to migrate database: %w", err)
	}
	return store, nil
}

// Close closes the database connection.
func (s *Store) Close() error {
	return s.db.Close()
}

func (s *Store) migrate() error {
	schema := `
	CREATE TABLE IF NOT EXISTS properties (
		id TEXT PRIMARY KEY,
		address TEXT NOT NULL,
		weekly_rent TEXT NOT NULL,
		lease_start TEXT,
		lease_end TEXT,
		valuation TEXT,
		archived INTEGER NOT NULL DEFAULT 0
	);

	CREATE TABLE IF NOT EXISTS incomes (
		id TEXT PRIMARY KEY,
		property_id TEXT NOT NULL,
		date TEXT NOT NULL,
		category TEXT NOT NULL,
		amount TEXT NOT NULL,
		tenant_id TEXT,
		evidence_ref TEXT
	);

	CREATE INDEX IF NOT EXISTS idx_incomes_property_date
		ON incomes(property_id, date);

	CREATE TABLE IF NOT EXISTS expenses (
		id TEXT PRIMARY KEY,
		property_id TEXT NOT NULL,
		date TEXT NOT NULL,
		category TEXT NOT NULL,
		vendor TEXT,
		amount TEXT NOT NULL,
		gst TEXT
	);

	CREATE INDEX IF NOT EXISTS idx_expenses_property_date
		ON expenses(property_id, date);

	CREATE TABLE IF NOT EXISTS rent_ledger (
		id TEXT PRIMARY KEY,
		property_id TEXT NOT NULL,
		tenant_id TEXT,
		due_date TEXT NOT NULL,
		amount TEXT NOT NULL,
		status TEXT NOT NULL,
		paid_date TEXT,
		description TEXT,
		evidence_ref TEXT,
		source_income_id TEXT,
		prior_status TEXT,
		prior_paid_date TEXT,
		prior_amount TEXT,
		prior_due_date TEXT,
		prior_description TEXT
	);

	CREATE INDEX IF NOT EXISTS idx_ledger_property_due
		ON rent_ledger(property_id, due_date);

	-- CRITICAL: at most one entry linked to a given income record
	CREATE UNIQUE INDEX IF NOT EXISTS idx_ledger_source
		ON rent_ledger(source_income_id) WHERE source_income_id IS NOT NULL;
	`
	_, err := s.db.Exec(schema)
	return err
}

// =============================================================================
// PROPERTIES
// =============================================================================

func (s *Store) ListProperties(ctx context.Context) ([]records.Property, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	rows, err := s.db.QueryContext(ctx, `
		SELECT id, address, weekly_rent, lease_start, lease_end, valuation, archived
		FROM properties ORDER BY id`)
	if err != nil {
		return nil, fmt.Errorf("list properties: %w", err)
	}
	defer rows.Close()

	var result []records.Property
	for rows.Next() {
		p, err := scanProperty(rows)
		if err != nil {
			return nil, err
		}
		result = append(result, p)
	}
	return result, rows.Err()
}

func (s *Store) GetProperty(ctx context.Context, id records.PropertyID) (*records.Property, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	row := s.db.QueryRowContext(ctx, `
		SELECT id, address, weekly_rent, lease_start, lease_end, valuation, archived
		FROM properties WHERE id = ?`, string(id))
	p, err := scanProperty(row)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &p, nil
}

func (s *Store) SaveProperty(ctx context.Context, p records.Property) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	_, err := s.db.ExecContext(ctx, `
		INSERT INTO properties (id, address, weekly_rent, lease_start, lease_end, valuation, archived)
		VALUES (?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT(id) DO UPDATE SET
			address = excluded.address,
			weekly_rent = excluded.weekly_rent,
			lease_start = excluded.lease_start,
			lease_end = excluded.lease_end,
			valuation = excluded.valuation,
			archived = excluded.archived`,
		string(p.ID), p.Address, p.WeeklyRent.Value.String(),
		nullDate(p.LeaseStart), nullDate(p.LeaseEnd), nullMoney(p.Valuation), boolInt(p.Archived))
	if err != nil {
		return fmt.Errorf("save property %s: %w", p.ID, err)
	}
	return nil
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanProperty(r rowScanner) (records.Property, error) {
	var p records.Property
	var id, address, rent string
	var leaseStart, leaseEnd, valuation sql.NullString
	var archived int

	if err := r.Scan(&id, &address, &rent, &leaseStart, &leaseEnd, &valuation, &archived); err != nil {
		return records.Property{}, err
	}
	p.ID = records.PropertyID(id)
	p.Address = address
	p.WeeklyRent = records.MustParseMoney(rent)
	p.LeaseStart = parseNullDate(leaseStart)
	p.LeaseEnd = parseNullDate(leaseEnd)
	if valuation.Valid {
		v := records.MustParseMoney(valuation.String)
		p.Valuation = &v
	}
	p.Archived = archived != 0
	return p, nil
}

// =============================================================================
// INCOMES
// =============================================================================

func (s *Store) Incomes(ctx context.Context, f records.IncomeFilter) ([]records.IncomeEntry, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	query := `SELECT id, property_id, date, category, amount, tenant_id, evidence_ref FROM incomes`
	where, args := filterClauses("date", f.From, f.To, f.Properties)
	if where != "" {
		query += " WHERE " + where
	}
	query += " ORDER BY date, id"

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("scan incomes: %w", err)
	}
	defer rows.Close()

	var result []records.IncomeEntry
	for rows.Next() {
		e, err := scanIncome(rows)
		if err != nil {
			return nil, err
		}
		result = append(result, e)
	}
	return result, rows.Err()
}

func (s *Store) GetIncome(ctx context.Context, id records.IncomeID) (*records.IncomeEntry, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	row := s.db.QueryRowContext(ctx, `
		SELECT id, property_id, date, category, amount, tenant_id, evidence_ref
		FROM incomes WHERE id = ?`, string(id))
	e, err := scanIncome(row)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &e, nil
}

func scanIncome(r rowScanner) (records.IncomeEntry, error) {
	var e records.IncomeEntry
	var id, propertyID, date, category, amount string
	var tenantID, evidenceRef sql.NullString
	if err := r.Scan(&id, &propertyID, &date, &category, &amount, &tenantID, &evidenceRef); err != nil {
		return records.IncomeEntry{}, err
	}
	e.ID = records.IncomeID(id)
	e.PropertyID = records.PropertyID(propertyID)
	e.Date = mustDate(date)
	e.Category = category
	e.Amount = records.MustParseMoney(amount)
	e.TenantID = records.TenantID(tenantID.String)
	e.EvidenceRef = evidenceRef.String
	return e, nil
}

func (s *Store) SaveIncome(ctx context.Context, e records.IncomeEntry) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	_, err := s.db.ExecContext(ctx, `
		INSERT INTO incomes (id, property_id, date, category, amount, tenant_id, evidence_ref)
		VALUES (?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT(id) DO UPDATE SET
			property_id = excluded.property_id,
			date = excluded.date,
			category = excluded.category,
			amount = excluded.amount,
			tenant_id = excluded.tenant_id,
			evidence_ref = excluded.evidence_ref`,
		string(e.ID), string(e.PropertyID), e.Date.String(), e.Category,
		e.Amount.Value.String(), nullString(string(e.TenantID)), nullString(e.EvidenceRef))
	if err != nil {
		return fmt.Errorf("save income %s: %w", e.ID, err)
	}
	return nil
}

func (s *Store) DeleteIncome(ctx context.Context, id records.IncomeID) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	_, err := s.db.ExecContext(ctx, `DELETE FROM incomes WHERE id = ?`, string(id))
	if err != nil {
		return fmt.Errorf("delete income %s: %w", id, err)
	}
	return nil
}

// =============================================================================
// EXPENSES
// =============================================================================

func (s *Store) Expenses(ctx context.Context, f records.ExpenseFilter) ([]records.ExpenseEntry, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	query := `SELECT id, property_id, date, category, vendor, amount, gst FROM expenses`
	where, args := filterClauses("date", f.From, f.To, f.Properties)
	if where != "" {
		query += " WHERE " + where
	}
	query += " ORDER BY date, id"

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("scan expenses: %w", err)
	}
	defer rows.Close()

	var result []records.ExpenseEntry
	for rows.Next() {
		var e records.ExpenseEntry
		var id, propertyID, date, category, amount string
		var vendor, gst sql.NullString
		if err := rows.Scan(&id, &propertyID, &date, &category, &vendor, &amount, &gst); err != nil {
			return nil, err
		}
		e.ID = records.ExpenseID(id)
		e.PropertyID = records.PropertyID(propertyID)
		e.Date = mustDate(date)
		e.Category = category
		e.Vendor = vendor.String
		e.Amount = records.MustParseMoney(amount)
		if gst.Valid {
			g := records.MustParseMoney(gst.String)
			e.GST = &g
		}
		result = append(result, e)
	}
	return result, rows.Err()
}

func (s *Store) SaveExpense(ctx context.Context, e records.ExpenseEntry) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	_, err := s.db.ExecContext(ctx, `
		INSERT INTO expenses (id, property_id, date, category, vendor, amount, gst)
		VALUES (?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT(id) DO UPDATE SET
			property_id = excluded.property_id,
			date = excluded.date,
			category = excluded.category,
			vendor = excluded.vendor,
			amount = excluded.amount,
			gst = excluded.gst`,
		string(e.ID), string(e.PropertyID), e.Date.String(), e.Category,
		nullString(e.Vendor), e.Amount.Value.String(), nullMoney(e.GST))
	if err != nil {
		return fmt.Errorf("save expense %s: %w", e.ID, err)
	}
	return nil
}

// =============================================================================
// RENT LEDGER
// =============================================================================

const ledgerColumns = `id, property_id, tenant_id, due_date, amount, status, paid_date,
	description, evidence_ref, source_income_id,
	prior_status, prior_paid_date, prior_amount, prior_due_date, prior_description`

func (s *Store) Ledger(ctx context.Context, f records.LedgerFilter) ([]records.RentLedgerEntry, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	query := `SELECT ` + ledgerColumns + ` FROM rent_ledger`
	where, args := filterClauses("due_date", f.DueFrom, f.DueTo, f.Properties)
	if where != "" {
		query += " WHERE " + where
	}
	query += " ORDER BY due_date, id"

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("scan ledger: %w", err)
	}
	defer rows.Close()

	var result []records.RentLedgerEntry
	for rows.Next() {
		e, err := scanLedgerEntry(rows)
		if err != nil {
			return nil, err
		}
		result = append(result, e)
	}
	return result, rows.Err()
}

func (s *Store) GetLedgerEntry(ctx context.Context, id records.EntryID) (*records.RentLedgerEntry, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.findLedgerEntry(ctx, `id = ?`, string(id))
}

func (s *Store) FindLedgerBySource(ctx context.Context, incomeID records.IncomeID) (*records.RentLedgerEntry, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.findLedgerEntry(ctx, `source_income_id = ?`, string(incomeID))
}

func (s *Store) FindUnlinkedLedger(ctx context.Context, propertyID records.PropertyID, dueDate records.Date) (*records.RentLedgerEntry, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.findLedgerEntry(ctx,
		`source_income_id IS NULL AND property_id = ? AND due_date = ?`,
		string(propertyID), dueDate.String())
}

func (s *Store) findLedgerEntry(ctx context.Context, where string, args ...any) (*records.RentLedgerEntry, error) {
	row := s.db.QueryRowContext(ctx,
		`SELECT `+ledgerColumns+` FROM rent_ledger WHERE `+where+` ORDER BY id LIMIT 1`, args...)
	e, err := scanLedgerEntry(row)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &e, nil
}

func (s *Store) SaveLedgerEntry(ctx context.Context, e records.RentLedgerEntry) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if e.Link != nil {
		var existing string
		err := s.db.QueryRowContext(ctx,
			`SELECT id FROM rent_ledger WHERE source_income_id = ? AND id != ?`,
			string(e.Link.SourceIncomeID), string(e.ID)).Scan(&existing)
		if err == nil {
			return &records.LedgerConflictError{
				IncomeID: e.Link.SourceIncomeID,
				EntryID:  records.EntryID(existing),
			}
		}
		if err != sql.ErrNoRows {
			return fmt.Errorf("check ledger link: %w", err)
		}
	}

	var sourceID, priorStatus, priorPaid, priorAmount, priorDue, priorDesc any
	if e.Link != nil {
		sourceID = string(e.Link.SourceIncomeID)
		if p := e.Link.Prior; p != nil {
			priorStatus = string(p.Status)
			priorPaid = nullDate(p.PaidDate)
			priorAmount = p.Amount.Value.String()
			priorDue = p.DueDate.String()
			priorDesc = p.Description
		}
	}

	_, err := s.db.ExecContext(ctx, `
		INSERT INTO rent_ledger (id, property_id, tenant_id, due_date, amount, status, paid_date,
			description, evidence_ref, source_income_id,
			prior_status, prior_paid_date, prior_amount, prior_due_date, prior_description)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT(id) DO UPDATE SET
			property_id = excluded.property_id,
			tenant_id = excluded.tenant_id,
			due_date = excluded.due_date,
			amount = excluded.amount,
			status = excluded.status,
			paid_date = excluded.paid_date,
			description = excluded.description,
			evidence_ref = excluded.evidence_ref,
			source_income_id = excluded.source_income_id,
			prior_status = excluded.prior_status,
			prior_paid_date = excluded.prior_paid_date,
			prior_amount = excluded.prior_amount,
			prior_due_date = excluded.prior_due_date,
			prior_description = excluded.prior_description`,
		string(e.ID), string(e.PropertyID), nullString(string(e.TenantID)),
		e.DueDate.String(), e.Amount.Value.String(), string(e.Status),
		nullDate(e.PaidDate), nullString(e.Description), nullString(e.EvidenceRef),
		sourceID, priorStatus, priorPaid, priorAmount, priorDue, priorDesc)
	if err != nil {
		return fmt.Errorf("save ledger entry %s: %w", e.ID, err)
	}
	return nil
}

func (s *Store) DeleteLedgerEntry(ctx context.Context, id records.EntryID) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	_, err := s.db.ExecContext(ctx, `DELETE FROM rent_ledger WHERE id = ?`, string(id))
	if err != nil {
		return fmt.Errorf("delete ledger entry %s: %w", id, err)
	}
	return nil
}

func scanLedgerEntry(r rowScanner) (records.RentLedgerEntry, error) {
	var e records.RentLedgerEntry
	var id, propertyID, dueDate, amount, status string
	var tenantID, paidDate, description, evidenceRef, sourceID sql.NullString
	var priorStatus, priorPaid, priorAmount, priorDue, priorDesc sql.NullString

	err := r.Scan(&id, &propertyID, &tenantID, &dueDate, &amount, &status, &paidDate,
		&description, &evidenceRef, &sourceID,
		&priorStatus, &priorPaid, &priorAmount, &priorDue, &priorDesc)
	if err != nil {
		return records.RentLedgerEntry{}, err
	}

	e.ID = records.EntryID(id)
	e.PropertyID = records.PropertyID(propertyID)
	e.TenantID = records.TenantID(tenantID.String)
	e.DueDate = mustDate(dueDate)
	e.Amount = records.MustParseMoney(amount)
	e.Status = records.LedgerStatus(status)
	e.PaidDate = parseNullDate(paidDate)
	e.Description = description.String
	e.EvidenceRef = evidenceRef.String

	if sourceID.Valid {
		link := &records.LedgerLink{SourceIncomeID: records.IncomeID(sourceID.String)}
		if priorStatus.Valid {
			link.Prior = &records.PriorState{
				Status:      records.LedgerStatus(priorStatus.String),
				PaidDate:    parseNullDate(priorPaid),
				Amount:      records.MustParseMoney(priorAmount.String),
				DueDate:     mustDate(priorDue.String),
				Description: priorDesc.String,
			}
		}
		e.Link = link
	}
	return e, nil
}

// =============================================================================
// HELPERS
// =============================================================================

// filterClauses builds WHERE fragments for date-bounded, property-bound
// scans. Args line up with '?' placeholders in order. Property ids are
// sorted so query plans and traces stay stable.
func filterClauses(dateCol string, from, to *records.Date, props records.PropertySet) (string, []any) {
	var clauses []string
	var args []any

	if from != nil {
		clauses = append(clauses, dateCol+" >= ?")
		args = append(args, from.String())
	}
	if to != nil {
		clauses = append(clauses, dateCol+" <= ?")
		args = append(args, to.String())
	}
	if len(props) > 0 {
		ids := make([]string, 0, len(props))
		for id := range props {
			ids = append(ids, string(id))
		}
		sort.Strings(ids)
		placeholders := strings.Repeat("?, ", len(ids))
		clauses = append(clauses, "property_id IN ("+placeholders[:len(placeholders)-2]+")")
		for _, id := range ids {
			args = append(args, id)
		}
	}
	return strings.Join(clauses, " AND "), args
}

func nullString(s string) any {
	if s == "" {
		return nil
	}
	return s
}

func nullDate(d *records.Date) any {
	if d == nil {
		return nil
	}
	return d.String()
}

func nullMoney(m *records.Money) any {
	if m == nil {
		return nil
	}
	return m.Value.String()
}

func parseNullDate(s sql.NullString) *records.Date {
	if !s.Valid {
		return nil
	}
	d, ok := records.ParseDate(s.String)
	if !ok {
		return nil
	}
	return &d
}

func mustDate(s string) records.Date {
	d, _ := records.ParseDate(s)
	return d
}

func boolInt(b bool) int {
	if b {
		return 1
	}
	return 0
}
