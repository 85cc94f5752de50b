/*
Package sqlite provides a SQLite-backed implementation of the storage interfaces.

PURPOSE:
  Persists contracts, priced shifts, absences, leave balances and their
  movement trail, employer holidays and accrual runs. It is the read side
  of the weekly compliance overview and the transactional side of the
  leave service.

INTERFACES IMPLEMENTED:
  compliance.Source: contracts, shifts and approved absences of an employer
  leave.Store:       WithTx over absences, balances and movements
  api.Store:         everything the HTTP layer reads and writes

KEY TABLES:
  contracts:        employment contracts (rate, weekly hours)
  shifts:           shift + guard segments (JSON) + derived values + pay (JSON)
  absences:         absence requests and their status
  leave_balances:   one row per employee and leave year
  leave_movements:  append-only audit trail, unique idempotency key
  holidays:         employer-declared holidays on top of public ones
  accrual_runs:     monthly accrual executions

STORAGE FORMATS:
  Dates are "YYYY-MM-DD", clock times "HH:MM", decimals their exact string
  form. Nothing is stored as float.

CONCURRENCY:
  Uses sync.RWMutex for thread-safety. Writes are last-write-wins: there is
  no version column on shifts or balances.

WAL MODE:
  SQLite is opened with WAL (Write-Ahead Logging) so readers don't block
  the single writer.

MIGRATION:
  Schema is auto-migrated on New().

SEE ALSO:
  - leave/service.go: the transactional leave operations
  - compliance/weekly.go: the overview reading through Source
  - store/memory: in-memory implementation for tests and demos
*/
package sqlite

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"sync"
	"time"

	"github.com/carework/shift-engine/compliance"
	"github.com/carework/shift-engine/generic"
	"github.com/carework/shift-engine/leave"
	"github.com/carework/shift-engine/payroll"
	"github.com/carework/shift-engine/shift"
	_ "github.com/mattn/go-sqlite3"
)

// Store implements all storage interfaces using SQLite.
type Store struct {
	db     *sql.DB
	mu     sync.RWMutex
	logger *slog.Logger
}

// querier is satisfied by both *sql.DB and *sql.Tx.
type querier interface {
	ExecContext(ctx context.Context, query string, args ...any) (sql.Result, error)
	QueryContext(ctx context.Context, query string, args ...any) (*sql.Rows, error)
	QueryRowContext(ctx context.Context, query string, args ...any) *sql.Row
}

type scanner interface {
	Scan(dest ...any) error
}

// New creates a new SQLite store with the given database path.
// Use ":memory:" for an in-memory database.
func New(dbPath string) (*Store, error) {
	db, err := sql.Open("sqlite3", dbPath+"?_foreign_keys=on&_journal_mode=WAL")
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}
	if dbPath == ":memory:" {
		// every connection would get its own empty database
		db.SetMaxOpenConns(1)
	}

	store := &Store{db: db, logger: slog.Default().With("component", "store.sqlite")}
	if err := store.migrate(); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to migrate database: %w", err)
	}
	store.logger.Debug("schema migrated", "path", dbPath)
	return store, nil
}

// Close closes the database connection.
func (s *Store) Close() error {
	return s.db.Close()
}

// migrate creates the database schema.
func (s *Store) migrate() error {
	schema := `
	CREATE TABLE IF NOT EXISTS contracts (
		id TEXT PRIMARY KEY,
		employer_id TEXT NOT NULL,
		employee_id TEXT NOT NULL,
		employee_name TEXT NOT NULL DEFAULT '',
		weekly_hours TEXT NOT NULL,
		hourly_rate TEXT NOT NULL,
		active BOOLEAN NOT NULL DEFAULT TRUE,
		created_at TEXT NOT NULL
	);

	CREATE INDEX IF NOT EXISTS idx_contracts_employer
		ON contracts(employer_id, active);

	CREATE TABLE IF NOT EXISTS shifts (
		id TEXT PRIMARY KEY,
		contract_id TEXT NOT NULL REFERENCES contracts(id),
		employee_id TEXT NOT NULL,
		date TEXT NOT NULL,
		start_time TEXT NOT NULL,
		end_time TEXT NOT NULL,
		break_minutes INTEGER NOT NULL DEFAULT 0,
		kind TEXT NOT NULL,
		night_interventions INTEGER NOT NULL DEFAULT 0,
		had_night_action BOOLEAN NOT NULL DEFAULT FALSE,
		segments_json TEXT,
		effective_hours TEXT NOT NULL,
		is_requalified BOOLEAN NOT NULL DEFAULT FALSE,
		computed_pay_json TEXT,
		created_at TEXT NOT NULL
	);

	CREATE INDEX IF NOT EXISTS idx_shifts_contract_date
		ON shifts(contract_id, date);
	CREATE INDEX IF NOT EXISTS idx_shifts_employee_date
		ON shifts(employee_id, date);

	CREATE TABLE IF NOT EXISTS absences (
		id TEXT PRIMARY KEY,
		employer_id TEXT NOT NULL,
		employee_id TEXT NOT NULL,
		kind TEXT NOT NULL,
		start_date TEXT NOT NULL,
		end_date TEXT NOT NULL,
		status TEXT NOT NULL,
		reason TEXT NOT NULL DEFAULT '',
		business_days INTEGER NOT NULL DEFAULT 0,
		created_at TEXT NOT NULL,
		decided_at TEXT
	);

	CREATE INDEX IF NOT EXISTS idx_absences_employee
		ON absences(employee_id, status, start_date);
	CREATE INDEX IF NOT EXISTS idx_absences_employer
		ON absences(employer_id, status, start_date);

	CREATE TABLE IF NOT EXISTS leave_balances (
		employee_id TEXT NOT NULL,
		year_start TEXT NOT NULL,
		acquired_days TEXT NOT NULL,
		taken_days TEXT NOT NULL,
		adjustment_days TEXT NOT NULL,
		updated_at TEXT NOT NULL,
		PRIMARY KEY (employee_id, year_start)
	);

	CREATE TABLE IF NOT EXISTS leave_movements (
		id TEXT PRIMARY KEY,
		employee_id TEXT NOT NULL,
		year_start TEXT NOT NULL,
		type TEXT NOT NULL,
		days TEXT NOT NULL,
		absence_id TEXT NOT NULL DEFAULT '',
		reason TEXT NOT NULL DEFAULT '',
		idempotency_key TEXT NOT NULL UNIQUE,
		created_at TEXT NOT NULL
	);

	CREATE INDEX IF NOT EXISTS idx_leave_movements_employee
		ON leave_movements(employee_id, year_start, created_at);

	CREATE TABLE IF NOT EXISTS holidays (
		id TEXT PRIMARY KEY,
		company_id TEXT NOT NULL DEFAULT '',
		date TEXT NOT NULL,
		name TEXT NOT NULL,
		recurring BOOLEAN NOT NULL DEFAULT FALSE,
		created_at TEXT NOT NULL
	);

	CREATE UNIQUE INDEX IF NOT EXISTS idx_holidays_unique
		ON holidays(company_id, date, name);

	CREATE TABLE IF NOT EXISTS accrual_runs (
		id TEXT PRIMARY KEY,
		month TEXT NOT NULL,
		status TEXT NOT NULL,
		employees INTEGER NOT NULL DEFAULT 0,
		credited INTEGER NOT NULL DEFAULT 0,
		error TEXT NOT NULL DEFAULT '',
		started_at TEXT NOT NULL,
		completed_at TEXT
	);

	CREATE INDEX IF NOT EXISTS idx_accrual_runs_month
		ON accrual_runs(month);
	`

	_, err := s.db.Exec(schema)
	return err
}

// Reset deletes all data (for demos and tests).
func (s *Store) Reset(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	tables := []string{"shifts", "contracts", "absences", "leave_movements", "leave_balances", "holidays", "accrual_runs"}
	for _, t := range tables {
		if _, err := s.db.ExecContext(ctx, "DELETE FROM "+t); err != nil {
			return fmt.Errorf("failed to reset %s: %w", t, err)
		}
	}
	return nil
}

// =============================================================================
// CONTRACTS
// =============================================================================

// SaveContract inserts or replaces a contract.
func (s *Store) SaveContract(ctx context.Context, c shift.Contract) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	query := `
		INSERT INTO contracts (id, employer_id, employee_id, employee_name, weekly_hours, hourly_rate, active, created_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT(id) DO UPDATE SET
			employer_id = excluded.employer_id,
			employee_id = excluded.employee_id,
			employee_name = excluded.employee_name,
			weekly_hours = excluded.weekly_hours,
			hourly_rate = excluded.hourly_rate,
			active = excluded.active
	`
	_, err := s.db.ExecContext(ctx, query,
		c.ID, c.EmployerID, c.EmployeeID, c.EmployeeName,
		c.WeeklyContractHours.String(), c.HourlyRate.String(), c.Active,
		time.Now().UTC().Format(time.RFC3339),
	)
	if err != nil {
		return fmt.Errorf("failed to save contract: %w", err)
	}
	return nil
}

const contractColumns = `id, employer_id, employee_id, employee_name, weekly_hours, hourly_rate, active`

func scanContract(row scanner) (shift.Contract, error) {
	var c shift.Contract
	err := row.Scan(&c.ID, &c.EmployerID, &c.EmployeeID, &c.EmployeeName,
		&c.WeeklyContractHours, &c.HourlyRate, &c.Active)
	return c, err
}

// GetContract returns a contract or generic.ErrNotFound.
func (s *Store) GetContract(ctx context.Context, id generic.ContractID) (shift.Contract, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	row := s.db.QueryRowContext(ctx, "SELECT "+contractColumns+" FROM contracts WHERE id = ?", id)
	c, err := scanContract(row)
	if errors.Is(err, sql.ErrNoRows) {
		return shift.Contract{}, fmt.Errorf("contract %s: %w", id, generic.ErrNotFound)
	}
	if err != nil {
		return shift.Contract{}, fmt.Errorf("failed to load contract: %w", err)
	}
	return c, nil
}

// ActiveContracts returns the active contracts of an employer, or of every
// employer when employerID is empty.
func (s *Store) ActiveContracts(ctx context.Context, employerID generic.EmployerID) ([]shift.Contract, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	query := "SELECT " + contractColumns + " FROM contracts WHERE active = TRUE AND (? = '' OR employer_id = ?) ORDER BY employee_name, id"
	rows, err := s.db.QueryContext(ctx, query, employerID, employerID)
	if err != nil {
		return nil, fmt.Errorf("failed to list contracts: %w", err)
	}
	defer rows.Close()

	var out []shift.Contract
	for rows.Next() {
		c, err := scanContract(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, c)
	}
	return out, rows.Err()
}

// =============================================================================
// SHIFTS
// =============================================================================

// SaveShift inserts a shift record, or overwrites the one with the same ID.
func (s *Store) SaveShift(ctx context.Context, rec payroll.Record) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	var segments, pay sql.NullString
	if len(rec.Shift.Segments) > 0 {
		b, err := json.Marshal(rec.Shift.Segments)
		if err != nil {
			return fmt.Errorf("failed to encode segments: %w", err)
		}
		segments = sql.NullString{String: string(b), Valid: true}
	}
	if rec.Pay != nil {
		b, err := json.Marshal(rec.Pay)
		if err != nil {
			return fmt.Errorf("failed to encode pay: %w", err)
		}
		pay = sql.NullString{String: string(b), Valid: true}
	}

	query := `
		INSERT INTO shifts (id, contract_id, employee_id, date, start_time, end_time, break_minutes, kind,
			night_interventions, had_night_action, segments_json, effective_hours, is_requalified,
			computed_pay_json, created_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT(id) DO UPDATE SET
			contract_id = excluded.contract_id,
			employee_id = excluded.employee_id,
			date = excluded.date,
			start_time = excluded.start_time,
			end_time = excluded.end_time,
			break_minutes = excluded.break_minutes,
			kind = excluded.kind,
			night_interventions = excluded.night_interventions,
			had_night_action = excluded.had_night_action,
			segments_json = excluded.segments_json,
			effective_hours = excluded.effective_hours,
			is_requalified = excluded.is_requalified,
			computed_pay_json = excluded.computed_pay_json
	`
	sh := rec.Shift
	_, err := s.db.ExecContext(ctx, query,
		sh.ID, sh.ContractID, sh.EmployeeID, sh.Date.String(), sh.Start.String(), sh.End.String(),
		sh.BreakMinutes, sh.Kind, sh.NightInterventions, sh.HadNightAction, segments,
		rec.EffectiveHours.String(), rec.Requalified, pay, rec.CreatedAt.UTC().Format(time.RFC3339),
	)
	if err != nil {
		return fmt.Errorf("failed to save shift: %w", err)
	}
	return nil
}

const shiftColumns = `s.id, s.contract_id, s.employee_id, s.date, s.start_time, s.end_time, s.break_minutes,
	s.kind, s.night_interventions, s.had_night_action, s.segments_json, s.effective_hours,
	s.is_requalified, s.computed_pay_json, s.created_at`

func scanShift(row scanner) (payroll.Record, error) {
	var (
		rec              payroll.Record
		date, start, end string
		createdAt        string
		segments, pay    sql.NullString
	)
	sh := &rec.Shift
	if err := row.Scan(&sh.ID, &sh.ContractID, &sh.EmployeeID, &date, &start, &end, &sh.BreakMinutes,
		&sh.Kind, &sh.NightInterventions, &sh.HadNightAction, &segments, &rec.EffectiveHours,
		&rec.Requalified, &pay, &createdAt); err != nil {
		return payroll.Record{}, err
	}

	var err error
	if sh.Date, err = generic.ParseDate(date); err != nil {
		return payroll.Record{}, err
	}
	if sh.Start, err = generic.ParseClock(start); err != nil {
		return payroll.Record{}, err
	}
	if sh.End, err = generic.ParseClock(end); err != nil {
		return payroll.Record{}, err
	}
	if segments.Valid {
		if err := json.Unmarshal([]byte(segments.String), &sh.Segments); err != nil {
			return payroll.Record{}, fmt.Errorf("corrupt segments for shift %s: %w", sh.ID, err)
		}
	}
	if pay.Valid {
		var p payroll.ComputedPay
		if err := json.Unmarshal([]byte(pay.String), &p); err != nil {
			return payroll.Record{}, fmt.Errorf("corrupt pay for shift %s: %w", sh.ID, err)
		}
		rec.Pay = &p
	}
	rec.CreatedAt, _ = time.Parse(time.RFC3339, createdAt)
	return rec, nil
}

func (s *Store) queryShifts(ctx context.Context, query string, args ...any) ([]payroll.Record, error) {
	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to query shifts: %w", err)
	}
	defer rows.Close()

	var out []payroll.Record
	for rows.Next() {
		rec, err := scanShift(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, rec)
	}
	return out, rows.Err()
}

func shiftsOf(recs []payroll.Record) []shift.Shift {
	out := make([]shift.Shift, len(recs))
	for i, r := range recs {
		out[i] = r.Shift
	}
	return out
}

// GetShift returns a shift record or generic.ErrNotFound.
func (s *Store) GetShift(ctx context.Context, id string) (payroll.Record, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	rec, err := scanShift(s.db.QueryRowContext(ctx, "SELECT "+shiftColumns+" FROM shifts s WHERE s.id = ?", id))
	if errors.Is(err, sql.ErrNoRows) {
		return payroll.Record{}, fmt.Errorf("shift %s: %w", id, generic.ErrNotFound)
	}
	return rec, err
}

// ContractShifts returns the records of a contract in [from, to].
func (s *Store) ContractShifts(ctx context.Context, contractID generic.ContractID, from, to generic.Date) ([]payroll.Record, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	return s.queryShifts(ctx, `
		SELECT `+shiftColumns+` FROM shifts s
		WHERE s.contract_id = ? AND s.date BETWEEN ? AND ?
		ORDER BY s.date, s.start_time`,
		contractID, from.String(), to.String())
}

// EmployeeShiftsBetween returns every shift of an employee, across
// contracts, in [from, to].
func (s *Store) EmployeeShiftsBetween(ctx context.Context, employeeID generic.EmployeeID, from, to generic.Date) ([]shift.Shift, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	recs, err := s.queryShifts(ctx, `
		SELECT `+shiftColumns+` FROM shifts s
		WHERE s.employee_id = ? AND s.date BETWEEN ? AND ?
		ORDER BY s.date, s.start_time`,
		employeeID, from.String(), to.String())
	return shiftsOf(recs), err
}

// ShiftsBetween returns the shifts worked under an employer's contracts in [from, to].
func (s *Store) ShiftsBetween(ctx context.Context, employerID generic.EmployerID, from, to generic.Date) ([]shift.Shift, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	recs, err := s.queryShifts(ctx, `
		SELECT `+shiftColumns+` FROM shifts s
		JOIN contracts c ON c.id = s.contract_id
		WHERE c.employer_id = ? AND s.date BETWEEN ? AND ?
		ORDER BY s.date, s.start_time`,
		employerID, from.String(), to.String())
	return shiftsOf(recs), err
}

// =============================================================================
// ABSENCES
// =============================================================================

const absenceColumns = `id, employer_id, employee_id, kind, start_date, end_date, status, reason, business_days, created_at, decided_at`

func scanAbsence(row scanner) (leave.Absence, error) {
	var (
		a                   leave.Absence
		start, end, created string
		decided             sql.NullString
	)
	if err := row.Scan(&a.ID, &a.EmployerID, &a.EmployeeID, &a.Kind, &start, &end, &a.Status,
		&a.Reason, &a.BusinessDays, &created, &decided); err != nil {
		return leave.Absence{}, err
	}
	var err error
	if a.Period.Start, err = generic.ParseDate(start); err != nil {
		return leave.Absence{}, err
	}
	if a.Period.End, err = generic.ParseDate(end); err != nil {
		return leave.Absence{}, err
	}
	a.CreatedAt, _ = time.Parse(time.RFC3339, created)
	if decided.Valid {
		t, _ := time.Parse(time.RFC3339, decided.String)
		a.DecidedAt = &t
	}
	return a, nil
}

func queryAbsences(ctx context.Context, q querier, query string, args ...any) ([]compliance.Absence, error) {
	rows, err := q.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to query absences: %w", err)
	}
	defer rows.Close()

	var out []compliance.Absence
	for rows.Next() {
		a, err := scanAbsence(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, compliance.Absence{ID: a.ID, EmployeeID: a.EmployeeID, Kind: string(a.Kind), Period: a.Period})
	}
	return out, rows.Err()
}

// ApprovedAbsencesBetween returns an employer's approved absences that
// overlap [from, to].
func (s *Store) ApprovedAbsencesBetween(ctx context.Context, employerID generic.EmployerID, from, to generic.Date) ([]compliance.Absence, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	return queryAbsences(ctx, s.db, `
		SELECT `+absenceColumns+` FROM absences
		WHERE employer_id = ? AND status = ? AND start_date <= ? AND end_date >= ?
		ORDER BY start_date`,
		employerID, leave.StatusApproved, to.String(), from.String())
}

// EmployeeAbsencesBetween returns an employee's approved absences that
// overlap [from, to].
func (s *Store) EmployeeAbsencesBetween(ctx context.Context, employeeID generic.EmployeeID, from, to generic.Date) ([]compliance.Absence, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	return queryAbsences(ctx, s.db, `
		SELECT `+absenceColumns+` FROM absences
		WHERE employee_id = ? AND status = ? AND start_date <= ? AND end_date >= ?
		ORDER BY start_date`,
		employeeID, leave.StatusApproved, to.String(), from.String())
}

// =============================================================================
// LEAVE TRANSACTIONS
// =============================================================================

// WithTx executes fn within a transaction.
func (s *Store) WithTx(ctx context.Context, fn func(tx leave.Tx) error) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	sqlTx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer sqlTx.Rollback()

	if err := fn(&txStore{q: sqlTx}); err != nil {
		return err
	}
	return sqlTx.Commit()
}

// txStore implements leave.Tx on an open transaction.
type txStore struct {
	q querier
}

func (ts *txStore) GetAbsence(ctx context.Context, id string) (leave.Absence, error) {
	a, err := scanAbsence(ts.q.QueryRowContext(ctx, "SELECT "+absenceColumns+" FROM absences WHERE id = ?", id))
	if errors.Is(err, sql.ErrNoRows) {
		return leave.Absence{}, fmt.Errorf("absence %s: %w", id, generic.ErrNotFound)
	}
	return a, err
}

func (ts *txStore) SaveAbsence(ctx context.Context, a leave.Absence) error {
	var decided *string
	if a.DecidedAt != nil {
		d := a.DecidedAt.UTC().Format(time.RFC3339)
		decided = &d
	}
	query := `
		INSERT INTO absences (` + absenceColumns + `)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT(id) DO UPDATE SET
			status = excluded.status,
			business_days = excluded.business_days,
			decided_at = excluded.decided_at
	`
	_, err := ts.q.ExecContext(ctx, query,
		a.ID, a.EmployerID, a.EmployeeID, a.Kind, a.Period.Start.String(), a.Period.End.String(),
		a.Status, a.Reason, a.BusinessDays, a.CreatedAt.UTC().Format(time.RFC3339), decided,
	)
	if err != nil {
		return fmt.Errorf("failed to save absence: %w", err)
	}
	return nil
}

func (ts *txStore) GetBalance(ctx context.Context, employeeID generic.EmployeeID, yearStart generic.Date) (leave.Balance, error) {
	b := leave.Balance{EmployeeID: employeeID, YearStart: yearStart}
	err := ts.q.QueryRowContext(ctx, `
		SELECT acquired_days, taken_days, adjustment_days FROM leave_balances
		WHERE employee_id = ? AND year_start = ?`,
		employeeID, yearStart.String(),
	).Scan(&b.AcquiredDays, &b.TakenDays, &b.AdjustmentDays)
	if errors.Is(err, sql.ErrNoRows) {
		return leave.Balance{}, generic.ErrNotFound
	}
	if err != nil {
		return leave.Balance{}, fmt.Errorf("failed to load balance: %w", err)
	}
	return b, nil
}

func (ts *txStore) SaveBalance(ctx context.Context, b leave.Balance) error {
	query := `
		INSERT INTO leave_balances (employee_id, year_start, acquired_days, taken_days, adjustment_days, updated_at)
		VALUES (?, ?, ?, ?, ?, ?)
		ON CONFLICT(employee_id, year_start) DO UPDATE SET
			acquired_days = excluded.acquired_days,
			taken_days = excluded.taken_days,
			adjustment_days = excluded.adjustment_days,
			updated_at = excluded.updated_at
	`
	_, err := ts.q.ExecContext(ctx, query,
		b.EmployeeID, b.YearStart.String(),
		b.AcquiredDays.String(), b.TakenDays.String(), b.AdjustmentDays.String(),
		time.Now().UTC().Format(time.RFC3339),
	)
	if err != nil {
		return fmt.Errorf("failed to save balance: %w", err)
	}
	return nil
}

func (ts *txStore) AppendMovement(ctx context.Context, m leave.Movement) error {
	query := `
		INSERT INTO leave_movements (id, employee_id, year_start, type, days, absence_id, reason, idempotency_key, created_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)
	`
	_, err := ts.q.ExecContext(ctx, query,
		m.ID, m.EmployeeID, m.YearStart.String(), m.Type, m.Days.String(),
		m.AbsenceID, m.Reason, m.IdempotencyKey, m.CreatedAt.UTC().Format(time.RFC3339),
	)
	if err != nil {
		if isUniqueConstraintError(err) {
			return leave.ErrDuplicateMovement
		}
		return fmt.Errorf("failed to append movement: %w", err)
	}
	return nil
}

func (ts *txStore) Movements(ctx context.Context, employeeID generic.EmployeeID, yearStart generic.Date) ([]leave.Movement, error) {
	rows, err := ts.q.QueryContext(ctx, `
		SELECT id, type, days, absence_id, reason, idempotency_key, created_at
		FROM leave_movements
		WHERE employee_id = ? AND year_start = ?
		ORDER BY created_at, id`,
		employeeID, yearStart.String())
	if err != nil {
		return nil, fmt.Errorf("failed to query movements: %w", err)
	}
	defer rows.Close()

	out := []leave.Movement{}
	for rows.Next() {
		m := leave.Movement{EmployeeID: employeeID, YearStart: yearStart}
		var created string
		if err := rows.Scan(&m.ID, &m.Type, &m.Days, &m.AbsenceID, &m.Reason, &m.IdempotencyKey, &created); err != nil {
			return nil, err
		}
		m.CreatedAt, _ = time.Parse(time.RFC3339, created)
		out = append(out, m)
	}
	return out, rows.Err()
}

// =============================================================================
// HOLIDAYS
// =============================================================================

// SaveHoliday saves an employer-declared holiday.
func (s *Store) SaveHoliday(ctx context.Context, h generic.Holiday) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	query := `
		INSERT INTO holidays (id, company_id, date, name, recurring, created_at)
		VALUES (?, ?, ?, ?, ?, ?)
		ON CONFLICT(company_id, date, name) DO UPDATE SET
			recurring = excluded.recurring
	`
	_, err := s.db.ExecContext(ctx, query,
		h.ID, h.CompanyID, h.Date.String(), h.Name, h.Recurring,
		time.Now().UTC().Format(time.RFC3339),
	)
	if err != nil {
		return fmt.Errorf("failed to save holiday: %w", err)
	}
	return nil
}

// Holidays returns the declared holidays of an employer plus the global ones.
func (s *Store) Holidays(ctx context.Context, companyID string) ([]generic.Holiday, error) {
	return s.queryHolidays(ctx, `
		SELECT id, company_id, date, name, recurring
		FROM holidays
		WHERE company_id = ? OR company_id = ''
		ORDER BY date ASC`, companyID)
}

// AllHolidays returns every declared holiday, whatever its employer.
func (s *Store) AllHolidays(ctx context.Context) ([]generic.Holiday, error) {
	return s.queryHolidays(ctx, `
		SELECT id, company_id, date, name, recurring
		FROM holidays
		ORDER BY date ASC`)
}

func (s *Store) queryHolidays(ctx context.Context, query string, args ...any) ([]generic.Holiday, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to query holidays: %w", err)
	}
	defer rows.Close()

	var holidays []generic.Holiday
	for rows.Next() {
		var h generic.Holiday
		var date string
		if err := rows.Scan(&h.ID, &h.CompanyID, &date, &h.Name, &h.Recurring); err != nil {
			return nil, err
		}
		if h.Date, err = generic.ParseDate(date); err != nil {
			return nil, err
		}
		holidays = append(holidays, h)
	}
	return holidays, rows.Err()
}

// Calendar returns the French public holidays plus the declared ones.
func (s *Store) Calendar(ctx context.Context, companyID string) (generic.HolidayCalendar, error) {
	extra, err := s.Holidays(ctx, companyID)
	if err != nil {
		return nil, err
	}
	return generic.FrenchCalendar{Extra: extra}, nil
}

// =============================================================================
// ACCRUAL RUNS
// =============================================================================

// SaveAccrualRun inserts or updates a run.
func (s *Store) SaveAccrualRun(ctx context.Context, r leave.AccrualRun) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	var completed *string
	if r.CompletedAt != nil {
		c := r.CompletedAt.UTC().Format(time.RFC3339)
		completed = &c
	}
	query := `
		INSERT INTO accrual_runs (id, month, status, employees, credited, error, started_at, completed_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT(id) DO UPDATE SET
			status = excluded.status,
			employees = excluded.employees,
			credited = excluded.credited,
			error = excluded.error,
			completed_at = excluded.completed_at
	`
	_, err := s.db.ExecContext(ctx, query,
		r.ID, r.Month.String(), r.Status, r.Employees, r.Credited, r.Error,
		r.StartedAt.UTC().Format(time.RFC3339), completed,
	)
	if err != nil {
		return fmt.Errorf("failed to save accrual run: %w", err)
	}
	return nil
}

// AccrualRuns returns the runs, most recent first.
func (s *Store) AccrualRuns(ctx context.Context, limit int) ([]leave.AccrualRun, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	if limit <= 0 {
		limit = 50
	}
	rows, err := s.db.QueryContext(ctx, `
		SELECT id, month, status, employees, credited, error, started_at, completed_at
		FROM accrual_runs
		ORDER BY started_at DESC
		LIMIT ?`, limit)
	if err != nil {
		return nil, fmt.Errorf("failed to query accrual runs: %w", err)
	}
	defer rows.Close()

	runs := []leave.AccrualRun{}
	for rows.Next() {
		var (
			r              leave.AccrualRun
			month, started string
			completed      sql.NullString
		)
		if err := rows.Scan(&r.ID, &month, &r.Status, &r.Employees, &r.Credited, &r.Error, &started, &completed); err != nil {
			return nil, err
		}
		r.Month, _ = generic.ParseDate(month)
		r.StartedAt, _ = time.Parse(time.RFC3339, started)
		if completed.Valid {
			t, _ := time.Parse(time.RFC3339, completed.String)
			r.CompletedAt = &t
		}
		runs = append(runs, r)
	}
	return runs, rows.Err()
}

// =============================================================================
// HELPERS
// =============================================================================

func isUniqueConstraintError(err error) bool {
	return err != nil && strings.Contains(err.Error(), "UNIQUE constraint failed")
}
