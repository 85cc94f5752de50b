/*
Package payroll turns a shift into an itemized pay line.

PURPOSE:
  ComputePay prices one shift at the contract's hourly rate. Every field
  of ComputedPay is an independent amount and totalPay is their exact sum.

FIELDS:
  base_pay                   work minutes (effective work, requalified
                             night presence) x rate
  presence_responsible_pay   day presence at its 2/3 equivalent x rate
  night_presence_allowance   unconverted night presence:
                             max(raw hours x rate x 1/4, rate x 1/4)
  night_majoration           +20% on work minutes inside the night window
  sunday_majoration          +25% on effective minutes falling on a Sunday
  holiday_majoration         +10% on effective minutes falling on a holiday
  overtime_majoration        +25% on effective hours past the contract's
                             weekly hours

  A guard shift may carry base pay, presence pay and the allowance at the
  same time; each of its segments feeds exactly one of them, so no minute
  is paid twice.

PRORATION:
  Majorations apply to effective minutes, not raw ones. A piece whose raw
  span partly qualifies (night window, a Sunday after midnight) contributes
  qualifying raw minutes x (effective / raw). Overnight shifts are split at
  midnight, each side judged on its own calendar day.

ROUNDING:
  Each field is rounded half-up to the cent; total_pay is the sum of the
  rounded fields, so it always matches what is displayed.

SEE ALSO:
  - shift/effective.go: pieces and effective minutes
  - benefit.go: benefit envelope rates
*/
package payroll

import (
	"errors"
	"fmt"

	"github.com/carework/shift-engine/agreement"
	"github.com/carework/shift-engine/generic"
	"github.com/carework/shift-engine/shift"
	"github.com/shopspring/decimal"
)

// MoneyPlaces is the rounding applied to every amount.
const MoneyPlaces = 2

// ErrPayInvariant is returned when a total does not match its fields.
var ErrPayInvariant = errors.New("pay invariant violated")

// InvariantError reports a total that differs from the sum of its fields.
type InvariantError struct {
	Total decimal.Decimal
	Sum   decimal.Decimal
}

func (e *InvariantError) Error() string {
	return fmt.Sprintf("total pay %s differs from the sum of its fields %s", e.Total, e.Sum)
}

func (e *InvariantError) Unwrap() error { return ErrPayInvariant }

// ComputedPay is the itemized pay of one shift. Fields that do not apply
// to the shift are zero, never omitted.
type ComputedPay struct {
	BasePay                decimal.Decimal `json:"base_pay"`
	SundayMajoration       decimal.Decimal `json:"sunday_majoration"`
	HolidayMajoration      decimal.Decimal `json:"holiday_majoration"`
	NightMajoration        decimal.Decimal `json:"night_majoration"`
	OvertimeMajoration     decimal.Decimal `json:"overtime_majoration"`
	PresenceResponsiblePay decimal.Decimal `json:"presence_responsible_pay"`
	NightPresenceAllowance decimal.Decimal `json:"night_presence_allowance"`
	TotalPay               decimal.Decimal `json:"total_pay"`
}

func (p ComputedPay) fields() []decimal.Decimal {
	return []decimal.Decimal{
		p.BasePay,
		p.SundayMajoration,
		p.HolidayMajoration,
		p.NightMajoration,
		p.OvertimeMajoration,
		p.PresenceResponsiblePay,
		p.NightPresenceAllowance,
	}
}

// Sum adds every field except the total.
func (p ComputedPay) Sum() decimal.Decimal {
	sum := decimal.Zero
	for _, f := range p.fields() {
		sum = sum.Add(f)
	}
	return sum
}

// Verify checks that TotalPay is the sum of the other fields.
func (p ComputedPay) Verify() error {
	if sum := p.Sum(); !sum.Equal(p.TotalPay) {
		return &InvariantError{Total: p.TotalPay, Sum: sum}
	}
	return nil
}

// =============================================================================
// CALCULATOR
// =============================================================================

// PayInput is what pricing a shift needs besides the shift itself.
type PayInput struct {
	Shift    shift.Shift
	Contract shift.Contract

	// HoursBefore is the effective hours already worked in the shift's
	// week before this shift; it decides where overtime starts.
	HoursBefore decimal.Decimal
}

// Calculator prices shifts under one agreement and holiday calendar.
type Calculator struct {
	agreement agreement.Agreement
	calendar  generic.HolidayCalendar
}

// NewCalculator returns a calculator; a nil calendar means no holidays.
func NewCalculator(a agreement.Agreement, calendar generic.HolidayCalendar) *Calculator {
	if calendar == nil {
		calendar = generic.NoHolidays{}
	}
	return &Calculator{agreement: a, calendar: calendar}
}

// minutesByCategory accumulates exact (unrounded) minute quantities.
type minutesByCategory struct {
	work          decimal.Decimal
	dayPresence   decimal.Decimal
	nightPresence int // raw minutes of unconverted night presence
	night         decimal.Decimal
	sunday        decimal.Decimal
	holiday       decimal.Decimal
}

// ComputePay prices in.Shift at in.Contract.HourlyRate.
func (c *Calculator) ComputePay(in PayInput) (ComputedPay, error) {
	a := c.agreement
	s := in.Shift
	rate := in.Contract.HourlyRate
	if rate.IsNegative() {
		return ComputedPay{}, fmt.Errorf("hourly rate %s is negative", rate)
	}

	pieces, err := s.Pieces(a)
	if err != nil {
		return ComputedPay{}, err
	}

	m := minutesByCategory{
		work:        decimal.Zero,
		dayPresence: decimal.Zero,
		night:       decimal.Zero,
		sunday:      decimal.Zero,
		holiday:     decimal.Zero,
	}
	companyID := string(in.Contract.EmployerID)
	nextDay := s.Date.AddDays(1)

	for _, p := range pieces {
		switch p.Category {
		case shift.CategoryWork:
			m.work = m.work.Add(p.Effective)
			if nightEligible(s) {
				m.night = m.night.Add(prorate(p.NightMinutes(a.NightWindow), p))
			}
		case shift.CategoryDayPresence:
			m.dayPresence = m.dayPresence.Add(p.Effective)
		case shift.CategoryNightPresence:
			m.nightPresence += p.Raw
		}

		today, tomorrow := p.SplitAtMidnight()
		if s.Date.IsSunday() {
			m.sunday = m.sunday.Add(prorate(today, p))
		}
		if nextDay.IsSunday() {
			m.sunday = m.sunday.Add(prorate(tomorrow, p))
		}
		if c.calendar.IsHoliday(companyID, s.Date) {
			m.holiday = m.holiday.Add(prorate(today, p))
		}
		if c.calendar.IsHoliday(companyID, nextDay) {
			m.holiday = m.holiday.Add(prorate(tomorrow, p))
		}
	}

	hourly := func(minutes decimal.Decimal) decimal.Decimal {
		return generic.MinutesToHours(minutes).Mul(rate)
	}

	pay := ComputedPay{
		BasePay:                money(hourly(m.work)),
		PresenceResponsiblePay: money(hourly(m.dayPresence)),
		NightPresenceAllowance: money(c.nightAllowance(m.nightPresence, rate)),
		NightMajoration:        money(hourly(m.night).Mul(a.NightRate)),
		SundayMajoration:       money(hourly(m.sunday).Mul(a.SundayRate)),
		HolidayMajoration:      money(hourly(m.holiday).Mul(a.HolidayRate)),
		OvertimeMajoration:     money(c.overtime(m.work.Add(m.dayPresence), in).Mul(rate).Mul(a.OvertimeRate)),
	}
	pay.TotalPay = pay.Sum()
	return pay, pay.Verify()
}

// nightEligible says whether a work piece earns the night majoration.
// A plain effective shift earns it only when night work was declared;
// requalified presence and guard work inside the window always do.
func nightEligible(s shift.Shift) bool {
	if s.Kind == shift.KindEffective {
		return s.HadNightAction
	}
	return true
}

// nightAllowance is the floor-protected allowance for unconverted presence.
func (c *Calculator) nightAllowance(rawMinutes int, rate decimal.Decimal) decimal.Decimal {
	if rawMinutes == 0 {
		return decimal.Zero
	}
	perHour := rate.Mul(c.agreement.NightAllowanceRatio)
	computed := generic.MinutesToHours(decimal.NewFromInt(int64(rawMinutes))).Mul(perHour)
	return decimal.Max(computed, perHour)
}

// overtime returns the hours of this shift past the contract's weekly hours.
func (c *Calculator) overtime(effectiveMinutes decimal.Decimal, in PayInput) decimal.Decimal {
	contracted := in.Contract.WeeklyContractHours
	if contracted.IsZero() {
		return decimal.Zero
	}
	shiftHours := generic.MinutesToHours(effectiveMinutes)
	after := in.HoursBefore.Add(shiftHours)
	if !after.GreaterThan(contracted) {
		return decimal.Zero
	}
	over := after.Sub(decimal.Max(in.HoursBefore, contracted))
	return decimal.Min(over, shiftHours)
}

func prorate(rawMinutes int, p shift.Piece) decimal.Decimal {
	if rawMinutes == 0 {
		return decimal.Zero
	}
	return decimal.NewFromInt(int64(rawMinutes)).Mul(p.Ratio())
}

func money(d decimal.Decimal) decimal.Decimal { return d.Round(MoneyPlaces) }
