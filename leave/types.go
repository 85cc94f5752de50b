/*
Package leave manages paid-leave balances and the absence lifecycle.

PURPOSE:
  An employee acquires paid-leave days month after month within a leave
  year (June 1 - May 31 by default) and consumes them by taking approved
  paid-leave absences. Other absence kinds (sickness, family events,
  unpaid, emergencies) are recorded through the same lifecycle but never
  touch the balance.

BALANCE:
  One row per employee and leave year:

    remaining = acquired + adjustment - taken

  acquired grows by the monthly accrual up to the yearly cap, taken grows
  when a paid-leave absence is approved, adjustment is a manual
  correction (positive or negative).

ABSENCE LIFECYCLE:
  pending ──approve──▶ approved    consumes business days (paid leave)
  pending ──reject───▶ rejected    balance untouched

  Both outcomes are terminal.

MOVEMENTS:
  Every change to a balance is also appended to an audit trail of
  movements. Each movement carries an idempotency key so a retried
  accrual or approval is recorded once.

SEE ALSO:
  - engine.go: accrual, business days, request validation, transitions
  - service.go: transactional application on a Store
  - generic/calendar.go: holidays and business days
*/
package leave

import (
	"time"

	"github.com/carework/shift-engine/generic"
	"github.com/shopspring/decimal"
)

// =============================================================================
// ABSENCE KIND
// =============================================================================

type Kind string

const (
	KindPaidLeave   Kind = "paid_leave"
	KindSick        Kind = "sick"
	KindFamilyEvent Kind = "family_event"
	KindUnpaid      Kind = "unpaid"
	KindEmergency   Kind = "emergency"
)

func (k Kind) Valid() bool {
	switch k {
	case KindPaidLeave, KindSick, KindFamilyEvent, KindUnpaid, KindEmergency:
		return true
	}
	return false
}

// ConsumesBalance reports whether an absence of this kind draws on the
// paid-leave balance.
func (k Kind) ConsumesBalance() bool {
	return k == KindPaidLeave
}

// =============================================================================
// STATUS
// =============================================================================

type Status string

const (
	StatusPending  Status = "pending"
	StatusApproved Status = "approved"
	StatusRejected Status = "rejected"
)

// CanTransition reports whether an absence may move from one status to
// another. Only pending absences move.
func CanTransition(from, to Status) bool {
	return from == StatusPending && (to == StatusApproved || to == StatusRejected)
}

// =============================================================================
// ABSENCE
// =============================================================================

// Absence is a request to be away over an inclusive range of days.
type Absence struct {
	ID         string             `json:"id"`
	EmployerID generic.EmployerID `json:"employer_id"`
	EmployeeID generic.EmployeeID `json:"employee_id"`
	Kind       Kind               `json:"kind"`
	Period     generic.Period     `json:"period"`
	Status     Status             `json:"status"`
	Reason     string             `json:"reason,omitempty"`

	// BusinessDays is computed at submission and charged on approval.
	BusinessDays int `json:"business_days"`

	CreatedAt time.Time  `json:"created_at"`
	DecidedAt *time.Time `json:"decided_at,omitempty"`
}

// =============================================================================
// BALANCE
// =============================================================================

// Balance is an employee's paid-leave position for one leave year.
type Balance struct {
	EmployeeID     generic.EmployeeID `json:"employee_id"`
	YearStart      generic.Date       `json:"year_start"`
	AcquiredDays   decimal.Decimal    `json:"acquired_days"`
	TakenDays      decimal.Decimal    `json:"taken_days"`
	AdjustmentDays decimal.Decimal    `json:"adjustment_days"`
}

// NewBalance returns an empty balance for the leave year starting at yearStart.
func NewBalance(employeeID generic.EmployeeID, yearStart generic.Date) Balance {
	return Balance{
		EmployeeID:     employeeID,
		YearStart:      yearStart,
		AcquiredDays:   decimal.Zero,
		TakenDays:      decimal.Zero,
		AdjustmentDays: decimal.Zero,
	}
}

// Remaining is acquired + adjustment - taken.
func (b Balance) Remaining() decimal.Decimal {
	return b.AcquiredDays.Add(b.AdjustmentDays).Sub(b.TakenDays)
}

// Remaining is the function form of Balance.Remaining.
func Remaining(b Balance) decimal.Decimal { return b.Remaining() }

// View is a balance as shown to callers.
type View struct {
	Balance
	YearEnd       generic.Date    `json:"year_end"`
	RemainingDays decimal.Decimal `json:"remaining_days"`
}

func (b Balance) View(year generic.Period) View {
	return View{Balance: b, YearEnd: year.End, RemainingDays: b.Remaining()}
}

// =============================================================================
// MOVEMENTS
// =============================================================================

type MovementType string

const (
	MovementAcquired MovementType = "acquired"
	MovementTaken    MovementType = "taken"
	MovementAdjusted MovementType = "adjusted"
)

// Movement is one audited change to a balance. Days is signed as applied
// to the field the type names.
type Movement struct {
	ID             string             `json:"id"`
	EmployeeID     generic.EmployeeID `json:"employee_id"`
	YearStart      generic.Date       `json:"year_start"`
	Type           MovementType       `json:"type"`
	Days           decimal.Decimal    `json:"days"`
	AbsenceID      string             `json:"absence_id,omitempty"`
	Reason         string             `json:"reason,omitempty"`
	IdempotencyKey string             `json:"idempotency_key"`
	CreatedAt      time.Time          `json:"created_at"`
}

// Apply returns b with the movement applied.
func (m Movement) Apply(b Balance) Balance {
	switch m.Type {
	case MovementAcquired:
		b.AcquiredDays = b.AcquiredDays.Add(m.Days)
	case MovementTaken:
		b.TakenDays = b.TakenDays.Add(m.Days)
	case MovementAdjusted:
		b.AdjustmentDays = b.AdjustmentDays.Add(m.Days)
	}
	return b
}
