package api

import (
	"context"

	"github.com/carework/shift-engine/compliance"
	"github.com/carework/shift-engine/generic"
	"github.com/carework/shift-engine/leave"
	"github.com/carework/shift-engine/payroll"
	"github.com/carework/shift-engine/shift"
)

// Store is the persistence the handlers need. Both store/sqlite and
// store/memory implement it.
type Store interface {
	compliance.Source
	leave.Store

	SaveContract(ctx context.Context, c shift.Contract) error
	GetContract(ctx context.Context, id generic.ContractID) (shift.Contract, error)

	SaveShift(ctx context.Context, rec payroll.Record) error
	GetShift(ctx context.Context, id string) (payroll.Record, error)
	ContractShifts(ctx context.Context, contractID generic.ContractID, from, to generic.Date) ([]payroll.Record, error)
	EmployeeShiftsBetween(ctx context.Context, employeeID generic.EmployeeID, from, to generic.Date) ([]shift.Shift, error)
	EmployeeAbsencesBetween(ctx context.Context, employeeID generic.EmployeeID, from, to generic.Date) ([]compliance.Absence, error)

	SaveHoliday(ctx context.Context, h generic.Holiday) error
	AllHolidays(ctx context.Context) ([]generic.Holiday, error)
	Calendar(ctx context.Context, companyID string) (generic.HolidayCalendar, error)

	SaveAccrualRun(ctx context.Context, r leave.AccrualRun) error
	AccrualRuns(ctx context.Context, limit int) ([]leave.AccrualRun, error)

	Reset(ctx context.Context) error
}

// holidayCalendar returns the public holidays plus every declared one,
// read once up front. Leave transactions hold the store, so nothing may
// query it lazily while they run. A failed load falls back to the public
// holidays alone.
func (h *Handler) holidayCalendar(ctx context.Context) generic.HolidayCalendar {
	extra, err := h.Store.AllHolidays(ctx)
	if err != nil {
		h.logger.Warn("declared holidays unavailable, using public holidays only", "error", err)
		return generic.FrenchCalendar{}
	}
	return generic.FrenchCalendar{Extra: extra}
}
