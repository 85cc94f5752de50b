package leave

import (
	"github.com/carework/shift-engine/agreement"
	"github.com/carework/shift-engine/generic"
	"github.com/shopspring/decimal"
)

// =============================================================================
// ENGINE - Pure balance arithmetic and lifecycle decisions
// =============================================================================

// Engine applies the agreement's paid-leave rules. It holds no state and
// performs no I/O.
type Engine struct {
	agreement agreement.Agreement
	calendar  generic.HolidayCalendar
}

// NewEngine returns an engine; a nil calendar means no public holidays.
func NewEngine(a agreement.Agreement, calendar generic.HolidayCalendar) *Engine {
	if calendar == nil {
		calendar = generic.NoHolidays{}
	}
	return &Engine{agreement: a, calendar: calendar}
}

// LeaveYear returns the leave year containing d.
func (e *Engine) LeaveYear(d generic.Date) generic.Period {
	return e.agreement.LeavePeriods().PeriodFor(d)
}

// AcquiredFromMonths is the days acquired after the given number of worked
// months, capped at the yearly maximum.
func (e *Engine) AcquiredFromMonths(months int) decimal.Decimal {
	if months <= 0 {
		return decimal.Zero
	}
	acquired := e.agreement.LeaveDaysPerMonth.Mul(decimal.NewFromInt(int64(months)))
	return decimal.Min(acquired, e.agreement.LeaveMaxDaysPerYear)
}

// MonthlyAccrual is the credit one more month brings to b: the monthly
// rate, reduced so acquired days never pass the yearly cap.
func (e *Engine) MonthlyAccrual(b Balance) decimal.Decimal {
	room := e.agreement.LeaveMaxDaysPerYear.Sub(b.AcquiredDays)
	if !room.IsPositive() {
		return decimal.Zero
	}
	return decimal.Min(e.agreement.LeaveDaysPerMonth, room)
}

// BusinessDays counts the days of [from, to] an absence is charged for:
// weekdays, minus public holidays when the agreement excludes them.
func (e *Engine) BusinessDays(employerID generic.EmployerID, from, to generic.Date) int {
	var cal generic.HolidayCalendar
	if e.agreement.LeaveExcludesHolidays {
		cal = e.calendar
	}
	return generic.BusinessDays(from, to, cal, string(employerID))
}

// ValidateRequest checks an absence request against a balance. Only kinds
// that consume the balance can be refused for lack of days.
func (e *Engine) ValidateRequest(a Absence, b Balance) error {
	if !a.Kind.Valid() {
		return invalidRequest("unknown absence kind " + string(a.Kind))
	}
	if a.Period.Start.IsZero() || a.Period.End.Before(a.Period.Start) {
		return invalidRequest("absence must end on or after its first day")
	}
	if !a.Kind.ConsumesBalance() {
		return nil
	}
	requested := e.BusinessDays(a.EmployerID, a.Period.Start, a.Period.End)
	remaining := b.Remaining()
	if decimal.NewFromInt(int64(requested)).GreaterThan(remaining) {
		return &InsufficientBalanceError{Requested: requested, Remaining: remaining}
	}
	return nil
}

// =============================================================================
// DECISIONS
// =============================================================================

// Decision is the outcome of approving or rejecting an absence: the absence
// in its new status and the days to add to the balance's taken days.
type Decision struct {
	Absence    Absence
	TakenDelta decimal.Decimal
}

// Approve moves a pending absence to approved. A paid-leave absence is
// re-checked against b and charges its business days.
func (e *Engine) Approve(a Absence, b Balance) (Decision, error) {
	if !CanTransition(a.Status, StatusApproved) {
		return Decision{}, &TransitionError{From: a.Status, To: StatusApproved}
	}
	if err := e.ValidateRequest(a, b); err != nil {
		return Decision{}, err
	}
	a.BusinessDays = e.BusinessDays(a.EmployerID, a.Period.Start, a.Period.End)
	a.Status = StatusApproved
	delta := decimal.Zero
	if a.Kind.ConsumesBalance() {
		delta = decimal.NewFromInt(int64(a.BusinessDays))
	}
	return Decision{Absence: a, TakenDelta: delta}, nil
}

// Reject moves a pending absence to rejected; the balance is untouched.
func (e *Engine) Reject(a Absence) (Decision, error) {
	if !CanTransition(a.Status, StatusRejected) {
		return Decision{}, &TransitionError{From: a.Status, To: StatusRejected}
	}
	a.Status = StatusRejected
	return Decision{Absence: a, TakenDelta: decimal.Zero}, nil
}
