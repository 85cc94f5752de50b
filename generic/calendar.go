package generic

import "time"

// =============================================================================
// HOLIDAY CALENDAR - Public holidays
// =============================================================================

// Holiday is a public (or employer-declared) holiday.
type Holiday struct {
	ID        string
	CompanyID string // empty = applies to everyone
	Date      Date
	Name      string
	Recurring bool // same month/day every year
}

// HolidayCalendar provides holiday lookup.
type HolidayCalendar interface {
	// IsHoliday checks if a date is a holiday for the given company.
	IsHoliday(companyID string, date Date) bool

	// GetHolidays returns all holidays for a company in a given year.
	GetHolidays(companyID string, year int) []Holiday
}

// NoHolidays is a calendar for when holidays are disabled.
type NoHolidays struct{}

func (NoHolidays) IsHoliday(string, Date) bool       { return false }
func (NoHolidays) GetHolidays(string, int) []Holiday { return nil }

// FrenchCalendar knows the eleven French public holidays, including the
// movable ones derived from Easter. Extra holds employer-declared days.
type FrenchCalendar struct {
	Extra []Holiday
}

func (fc FrenchCalendar) IsHoliday(companyID string, date Date) bool {
	for _, h := range fc.GetHolidays(companyID, date.Year()) {
		if h.Date.Equal(date) {
			return true
		}
	}
	return false
}

func (fc FrenchCalendar) GetHolidays(companyID string, year int) []Holiday {
	easter := EasterSunday(year)
	holidays := []Holiday{
		{Date: NewDate(year, time.January, 1), Name: "Jour de l'an", Recurring: true},
		{Date: easter.AddDays(1), Name: "Lundi de Pâques"},
		{Date: NewDate(year, time.May, 1), Name: "Fête du Travail", Recurring: true},
		{Date: NewDate(year, time.May, 8), Name: "Victoire 1945", Recurring: true},
		{Date: easter.AddDays(39), Name: "Ascension"},
		{Date: easter.AddDays(50), Name: "Lundi de Pentecôte"},
		{Date: NewDate(year, time.July, 14), Name: "Fête nationale", Recurring: true},
		{Date: NewDate(year, time.August, 15), Name: "Assomption", Recurring: true},
		{Date: NewDate(year, time.November, 1), Name: "Toussaint", Recurring: true},
		{Date: NewDate(year, time.November, 11), Name: "Armistice 1918", Recurring: true},
		{Date: NewDate(year, time.December, 25), Name: "Noël", Recurring: true},
	}
	for _, h := range fc.Extra {
		if h.CompanyID != "" && h.CompanyID != companyID {
			continue
		}
		switch {
		case h.Recurring:
			h.Date = NewDate(year, h.Date.Month(), h.Date.Day())
			holidays = append(holidays, h)
		case h.Date.Year() == year:
			holidays = append(holidays, h)
		}
	}
	return holidays
}

// EasterSunday computes Gregorian Easter (anonymous Gregorian algorithm).
func EasterSunday(year int) Date {
	a := year % 19
	b := year / 100
	c := year % 100
	d := b / 4
	e := b % 4
	f := (b + 8) / 25
	g := (b - f + 1) / 3
	h := (19*a + b - d - g + 15) % 30
	i := c / 4
	k := c % 4
	l := (32 + 2*e + 2*i - h - k) % 7
	m := (a + 11*h + 22*l) / 451
	month := (h + l - 7*m + 114) / 31
	day := (h+l-7*m+114)%31 + 1
	return NewDate(year, time.Month(month), day)
}

// =============================================================================
// BUSINESS DAYS
// =============================================================================

// IsBusinessDay reports whether d is a weekday and, when a calendar is
// given, not a holiday.
func IsBusinessDay(d Date, calendar HolidayCalendar, companyID string) bool {
	if d.IsWeekend() {
		return false
	}
	if calendar != nil && calendar.IsHoliday(companyID, d) {
		return false
	}
	return true
}

// BusinessDays counts business days in [from, to], both inclusive.
// A nil calendar counts weekdays only.
func BusinessDays(from, to Date, calendar HolidayCalendar, companyID string) int {
	n := 0
	for d := from; d.BeforeOrEqual(to); d = d.AddDays(1) {
		if IsBusinessDay(d, calendar, companyID) {
			n++
		}
	}
	return n
}
