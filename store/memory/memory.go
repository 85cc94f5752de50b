// Package memory provides an in-memory implementation of the storage
// interfaces, for tests and demos.
package memory

import (
	"context"
	"fmt"
	"maps"
	"sort"
	"sync"

	"github.com/carework/shift-engine/compliance"
	"github.com/carework/shift-engine/generic"
	"github.com/carework/shift-engine/leave"
	"github.com/carework/shift-engine/payroll"
	"github.com/carework/shift-engine/shift"
)

// =============================================================================
// MEMORY STORE
// =============================================================================

type Store struct {
	mu        sync.RWMutex
	contracts map[generic.ContractID]shift.Contract
	shifts    map[string]payroll.Record
	holidays  []generic.Holiday
	runs      []leave.AccrualRun

	leaveState
}

// leaveState is everything a leave transaction may write; it is
// snapshotted for rollback.
type leaveState struct {
	absences  map[string]leave.Absence
	balances  map[balanceKey]leave.Balance
	movements []leave.Movement
	keys      map[string]bool
}

type balanceKey struct {
	employee  generic.EmployeeID
	yearStart generic.Date
}

func New() *Store {
	s := &Store{}
	s.clear()
	return s
}

func (s *Store) clear() {
	s.contracts = map[generic.ContractID]shift.Contract{}
	s.shifts = map[string]payroll.Record{}
	s.holidays = nil
	s.runs = nil
	s.leaveState = leaveState{
		absences: map[string]leave.Absence{},
		balances: map[balanceKey]leave.Balance{},
		keys:     map[string]bool{},
	}
}

func (s *Store) Close() error { return nil }

func (s *Store) Reset(context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.clear()
	return nil
}

// =============================================================================
// CONTRACTS AND SHIFTS
// =============================================================================

func (s *Store) SaveContract(_ context.Context, c shift.Contract) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.contracts[c.ID] = c
	return nil
}

func (s *Store) GetContract(_ context.Context, id generic.ContractID) (shift.Contract, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	c, ok := s.contracts[id]
	if !ok {
		return shift.Contract{}, fmt.Errorf("contract %s: %w", id, generic.ErrNotFound)
	}
	return c, nil
}

// ActiveContracts returns the active contracts of an employer, or of every
// employer when employerID is empty.
func (s *Store) ActiveContracts(_ context.Context, employerID generic.EmployerID) ([]shift.Contract, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	var out []shift.Contract
	for _, c := range s.contracts {
		if c.Active && (employerID == "" || c.EmployerID == employerID) {
			out = append(out, c)
		}
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].EmployeeName != out[j].EmployeeName {
			return out[i].EmployeeName < out[j].EmployeeName
		}
		return out[i].ID < out[j].ID
	})
	return out, nil
}

func (s *Store) SaveShift(_ context.Context, rec payroll.Record) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.contracts[rec.Shift.ContractID]; !ok {
		return fmt.Errorf("contract %s: %w", rec.Shift.ContractID, generic.ErrNotFound)
	}
	s.shifts[rec.Shift.ID] = rec
	return nil
}

func (s *Store) GetShift(_ context.Context, id string) (payroll.Record, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	rec, ok := s.shifts[id]
	if !ok {
		return payroll.Record{}, fmt.Errorf("shift %s: %w", id, generic.ErrNotFound)
	}
	return rec, nil
}

// records returns the shift records matching keep, ordered by start.
func (s *Store) records(keep func(payroll.Record) bool) []payroll.Record {
	var out []payroll.Record
	for _, r := range s.shifts {
		if keep(r) {
			out = append(out, r)
		}
	}
	sort.Slice(out, func(i, j int) bool {
		return out[i].Shift.Span().Start.Before(out[j].Shift.Span().Start)
	})
	return out
}

func within(d, from, to generic.Date) bool {
	return d.AfterOrEqual(from) && d.BeforeOrEqual(to)
}

func shiftsOf(recs []payroll.Record) []shift.Shift {
	out := make([]shift.Shift, len(recs))
	for i, r := range recs {
		out[i] = r.Shift
	}
	return out
}

func (s *Store) ContractShifts(_ context.Context, contractID generic.ContractID, from, to generic.Date) ([]payroll.Record, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.records(func(r payroll.Record) bool {
		return r.Shift.ContractID == contractID && within(r.Shift.Date, from, to)
	}), nil
}

func (s *Store) EmployeeShiftsBetween(_ context.Context, employeeID generic.EmployeeID, from, to generic.Date) ([]shift.Shift, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return shiftsOf(s.records(func(r payroll.Record) bool {
		return r.Shift.EmployeeID == employeeID && within(r.Shift.Date, from, to)
	})), nil
}

func (s *Store) ShiftsBetween(_ context.Context, employerID generic.EmployerID, from, to generic.Date) ([]shift.Shift, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return shiftsOf(s.records(func(r payroll.Record) bool {
		c, ok := s.contracts[r.Shift.ContractID]
		return ok && c.EmployerID == employerID && within(r.Shift.Date, from, to)
	})), nil
}

// =============================================================================
// ABSENCES
// =============================================================================

func (s *Store) approvedAbsences(keep func(leave.Absence) bool, from, to generic.Date) []compliance.Absence {
	out := []compliance.Absence{}
	for _, a := range s.absences {
		if a.Status != leave.StatusApproved || !keep(a) {
			continue
		}
		if a.Period.Start.After(to) || a.Period.End.Before(from) {
			continue
		}
		out = append(out, compliance.Absence{ID: a.ID, EmployeeID: a.EmployeeID, Kind: string(a.Kind), Period: a.Period})
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Period.Start.Before(out[j].Period.Start) })
	return out
}

func (s *Store) ApprovedAbsencesBetween(_ context.Context, employerID generic.EmployerID, from, to generic.Date) ([]compliance.Absence, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.approvedAbsences(func(a leave.Absence) bool { return a.EmployerID == employerID }, from, to), nil
}

func (s *Store) EmployeeAbsencesBetween(_ context.Context, employeeID generic.EmployeeID, from, to generic.Date) ([]compliance.Absence, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.approvedAbsences(func(a leave.Absence) bool { return a.EmployeeID == employeeID }, from, to), nil
}

// =============================================================================
// LEAVE TRANSACTIONS
// =============================================================================

// WithTx executes fn within a transaction, simulated with a snapshot of
// the leave state and a rollback on error.
func (s *Store) WithTx(_ context.Context, fn func(tx leave.Tx) error) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	snapshot := s.leaveState.clone()
	if err := fn(&txView{parent: s}); err != nil {
		s.leaveState = snapshot
		return err
	}
	return nil
}

func (ls leaveState) clone() leaveState {
	return leaveState{
		absences:  maps.Clone(ls.absences),
		balances:  maps.Clone(ls.balances),
		movements: append([]leave.Movement(nil), ls.movements...),
		keys:      maps.Clone(ls.keys),
	}
}

// txView implements leave.Tx; the parent lock is held by WithTx.
type txView struct {
	parent *Store
}

func (tv *txView) GetAbsence(_ context.Context, id string) (leave.Absence, error) {
	a, ok := tv.parent.absences[id]
	if !ok {
		return leave.Absence{}, fmt.Errorf("absence %s: %w", id, generic.ErrNotFound)
	}
	return a, nil
}

func (tv *txView) SaveAbsence(_ context.Context, a leave.Absence) error {
	tv.parent.absences[a.ID] = a
	return nil
}

func (tv *txView) GetBalance(_ context.Context, employeeID generic.EmployeeID, yearStart generic.Date) (leave.Balance, error) {
	b, ok := tv.parent.balances[balanceKey{employeeID, yearStart}]
	if !ok {
		return leave.Balance{}, generic.ErrNotFound
	}
	return b, nil
}

func (tv *txView) SaveBalance(_ context.Context, b leave.Balance) error {
	tv.parent.balances[balanceKey{b.EmployeeID, b.YearStart}] = b
	return nil
}

func (tv *txView) AppendMovement(_ context.Context, m leave.Movement) error {
	if tv.parent.keys[m.IdempotencyKey] {
		return leave.ErrDuplicateMovement
	}
	tv.parent.keys[m.IdempotencyKey] = true
	tv.parent.movements = append(tv.parent.movements, m)
	return nil
}

func (tv *txView) Movements(_ context.Context, employeeID generic.EmployeeID, yearStart generic.Date) ([]leave.Movement, error) {
	out := []leave.Movement{}
	for _, m := range tv.parent.movements {
		if m.EmployeeID == employeeID && m.YearStart.Equal(yearStart) {
			out = append(out, m)
		}
	}
	return out, nil
}

// =============================================================================
// HOLIDAYS AND ACCRUAL RUNS
// =============================================================================

func (s *Store) SaveHoliday(_ context.Context, h generic.Holiday) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	for i, existing := range s.holidays {
		if existing.CompanyID == h.CompanyID && existing.Date.Equal(h.Date) && existing.Name == h.Name {
			s.holidays[i].Recurring = h.Recurring
			return nil
		}
	}
	s.holidays = append(s.holidays, h)
	return nil
}

func (s *Store) Holidays(_ context.Context, companyID string) ([]generic.Holiday, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	var out []generic.Holiday
	for _, h := range s.holidays {
		if h.CompanyID == "" || h.CompanyID == companyID {
			out = append(out, h)
		}
	}
	return out, nil
}

func (s *Store) AllHolidays(context.Context) ([]generic.Holiday, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return append([]generic.Holiday(nil), s.holidays...), nil
}

func (s *Store) Calendar(ctx context.Context, companyID string) (generic.HolidayCalendar, error) {
	extra, err := s.Holidays(ctx, companyID)
	if err != nil {
		return nil, err
	}
	return generic.FrenchCalendar{Extra: extra}, nil
}

func (s *Store) SaveAccrualRun(_ context.Context, r leave.AccrualRun) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	for i := range s.runs {
		if s.runs[i].ID == r.ID {
			s.runs[i] = r
			return nil
		}
	}
	s.runs = append(s.runs, r)
	return nil
}

// AccrualRuns returns the runs, most recent first.
func (s *Store) AccrualRuns(_ context.Context, limit int) ([]leave.AccrualRun, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]leave.AccrualRun, 0, len(s.runs))
	for i := len(s.runs) - 1; i >= 0; i-- {
		out = append(out, s.runs[i])
	}
	if limit > 0 && len(out) > limit {
		out = out[:limit]
	}
	return out, nil
}
