/*
Package generic provides the domain-agnostic time and quantity primitives.

PURPOSE:
  Everything in the engine is a function of calendar days, wall-clock
  times and exact decimal quantities. This package owns those primitives
  so the domain packages (shift, compliance, payroll, leave) never juggle
  raw time.Time or float64.

KEY CONCEPTS:
  - Date: a calendar day ("2025-03-10"), no zone, no time of day
  - Clock: a wall-clock time ("21:30") as minutes since midnight
  - Interval: an absolute half-open [start, end) span
  - Period: an inclusive range of days (week, leave year, absence)
  - HolidayCalendar: public holidays and business-day counting
  - Typed identifiers for employers, employees and contracts

DESIGN PRINCIPLES:
  1. Precision: hours, money and leave days use decimal.Decimal
  2. Type Safety: typed IDs prevent mixing employee and contract IDs
  3. Wall-clock only: shifts are naive local times, no DST arithmetic

SEE ALSO:
  - time.go: Date, Clock, Interval
  - period.go: Period, weeks, leave years
  - calendar.go: holidays, business days
*/
package generic

import "github.com/shopspring/decimal"

// =============================================================================
// IDENTIFIERS
// =============================================================================

type EmployerID string
type EmployeeID string
type ContractID string

// =============================================================================
// DECIMAL HELPERS
// =============================================================================

var (
	sixty   = decimal.NewFromInt(60)
	hundred = decimal.NewFromInt(100)
)

// MinutesToHours converts a (possibly fractional) minute count to hours.
func MinutesToHours(minutes decimal.Decimal) decimal.Decimal {
	return minutes.Div(sixty)
}

// HoursToMinutes converts hours to minutes.
func HoursToMinutes(hours decimal.Decimal) decimal.Decimal {
	return hours.Mul(sixty)
}

// Percent turns 25 into 0.25.
func Percent(p int64) decimal.Decimal {
	return decimal.NewFromInt(p).Div(hundred)
}

// MustDecimal parses a literal; for constants and fixtures.
func MustDecimal(s string) decimal.Decimal {
	return decimal.RequireFromString(s)
}
