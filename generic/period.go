package generic

import "time"

// =============================================================================
// PERIOD - An inclusive range of calendar days
// =============================================================================

// Period is an inclusive [Start, End] range of days.
//
// Examples:
//   - ISO week: Monday - Sunday
//   - Leave year: Jun 1 - May 31
//   - Absence: first day off - last day off
type Period struct {
	Start Date `json:"start"`
	End   Date `json:"end"`
}

func NewPeriod(start, end Date) (Period, error) {
	if end.Before(start) {
		return Period{}, ErrInvalidPeriod
	}
	return Period{Start: start, End: end}, nil
}

// Contains returns true if the day is within [Start, End].
func (p Period) Contains(d Date) bool {
	return d.AfterOrEqual(p.Start) && d.BeforeOrEqual(p.End)
}

func (p Period) String() string {
	return "[" + p.Start.String() + ", " + p.End.String() + "]"
}

// =============================================================================
// WEEKS - Monday is the first day of the week
// =============================================================================

// WeekOf returns the Monday-Sunday week containing d.
func WeekOf(d Date) Period {
	offset := (int(d.Weekday()) + 6) % 7 // Monday=0 ... Sunday=6
	start := d.AddDays(-offset)
	return Period{Start: start, End: start.AddDays(6)}
}

// =============================================================================
// PERIOD CONFIG - Which yearly period a date falls into
// =============================================================================

type PeriodType string

const (
	PeriodCalendarYear PeriodType = "calendar_year" // Jan 1 - Dec 31
	PeriodFiscalYear   PeriodType = "fiscal_year"   // custom start month (leave year: June)
)

// PeriodConfig defines how yearly periods are cut.
type PeriodConfig struct {
	Type PeriodType

	// For fiscal year: which month starts the year (1-12)
	FiscalYearStartMonth time.Month
}

// PeriodFor returns the period that contains the given date.
func (pc PeriodConfig) PeriodFor(date Date) Period {
	switch pc.Type {
	case PeriodFiscalYear:
		return pc.fiscalYearPeriod(date)
	default:
		return Period{Start: StartOfYear(date.Year()), End: EndOfYear(date.Year())}
	}
}

func (pc PeriodConfig) fiscalYearPeriod(date Date) Period {
	startMonth := pc.FiscalYearStartMonth
	if startMonth < time.January || startMonth > time.December {
		startMonth = time.January
	}
	start := NewDate(date.Year(), startMonth, 1)
	if date.Before(start) {
		start = NewDate(date.Year()-1, startMonth, 1)
	}
	return Period{Start: start, End: start.AddYears(1).AddDays(-1)}
}

func StartOfYear(year int) Date { return NewDate(year, time.January, 1) }
func EndOfYear(year int) Date   { return NewDate(year, time.December, 31) }
func StartOfMonth(year int, month time.Month) Date {
	return NewDate(year, month, 1)
}
