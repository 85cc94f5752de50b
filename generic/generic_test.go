/*
generic_test.go - Tests for the time and calendar primitives

ORGANIZATION:
 1. Dates and clock times - parsing, JSON, wrapping
 2. Periods - weeks, leave years
 3. Calendar - Easter, public and declared holidays, business days
*/
package generic_test

import (
	"encoding/json"
	"testing"
	"time"

	"github.com/carework/shift-engine/generic"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// =============================================================================
// DATES AND CLOCK TIMES
// =============================================================================

func TestParseDate(t *testing.T) {
	d, err := generic.ParseDate("2025-03-10")
	require.NoError(t, err)
	assert.Equal(t, time.Monday, d.Weekday())
	assert.Equal(t, "2025-03-10", d.String())

	_, err = generic.ParseDate("10/03/2025")
	assert.ErrorIs(t, err, generic.ErrInvalidDate)
	assert.True(t, generic.IsClientError(err))
}

func TestParseClock(t *testing.T) {
	tests := []struct {
		in   string
		want generic.Clock
		ok   bool
	}{
		{"00:00", 0, true},
		{"07:30", 450, true},
		{"23:59", 1439, true},
		{"24:00", 0, false},
		{"7:30", 0, false},
		{"07:60", 0, false},
		{"ab:cd", 0, false},
	}
	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			got, err := generic.ParseClock(tt.in)
			if !tt.ok {
				assert.ErrorIs(t, err, generic.ErrInvalidClock)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
			assert.Equal(t, tt.in, got.String())
		})
	}
}

func TestClockAddWrapsAtMidnight(t *testing.T) {
	assert.Equal(t, "01:00", generic.MustParseClock("23:00").Add(120).String())
	assert.Equal(t, "23:00", generic.MustParseClock("01:00").Add(-120).String())
}

func TestDateAndClockJSON(t *testing.T) {
	// GIVEN: A payload with a date and a clock time
	type payload struct {
		Date  generic.Date  `json:"date"`
		Start generic.Clock `json:"start"`
	}
	in := payload{Date: generic.MustParseDate("2025-03-16"), Start: generic.NewClock(21, 30)}

	// WHEN: Round-tripping it through JSON
	data, err := json.Marshal(in)
	require.NoError(t, err)
	var out payload
	require.NoError(t, json.Unmarshal(data, &out))

	// THEN: Both travel as strings
	assert.JSONEq(t, `{"date":"2025-03-16","start":"21:30"}`, string(data))
	assert.True(t, out.Date.Equal(in.Date))
	assert.Equal(t, in.Start, out.Start)

	assert.Error(t, json.Unmarshal([]byte(`{"start":"25:00"}`), &out))
}

func TestDateAt(t *testing.T) {
	d := generic.MustParseDate("2025-03-10")
	at := d.At(generic.NewClock(21, 0))
	assert.True(t, at.Equal(time.Date(2025, 3, 10, 21, 0, 0, 0, time.UTC)), at)
}

// =============================================================================
// PERIODS
// =============================================================================

func TestWeekOf(t *testing.T) {
	tests := []struct {
		date  string
		start string
	}{
		{"2025-03-10", "2025-03-10"}, // Monday
		{"2025-03-12", "2025-03-10"},
		{"2025-03-16", "2025-03-10"}, // Sunday
		{"2025-03-17", "2025-03-17"},
	}
	for _, tt := range tests {
		week := generic.WeekOf(generic.MustParseDate(tt.date))
		assert.Equal(t, tt.start, week.Start.String(), tt.date)
		assert.Equal(t, time.Sunday, week.End.Weekday(), tt.date)
		assert.True(t, week.Contains(generic.MustParseDate(tt.date)))
	}
}

func TestNewPeriod_RejectsReversedBounds(t *testing.T) {
	_, err := generic.NewPeriod(generic.MustParseDate("2025-03-14"), generic.MustParseDate("2025-03-13"))
	assert.ErrorIs(t, err, generic.ErrInvalidPeriod)

	p, err := generic.NewPeriod(generic.MustParseDate("2025-03-14"), generic.MustParseDate("2025-03-14"))
	require.NoError(t, err)
	assert.True(t, p.Contains(generic.MustParseDate("2025-03-14")))
}

func TestPeriodConfig_LeaveYear(t *testing.T) {
	leaveYear := generic.PeriodConfig{Type: generic.PeriodFiscalYear, FiscalYearStartMonth: time.June}

	// GIVEN: Dates on both sides of June 1st
	before := leaveYear.PeriodFor(generic.MustParseDate("2025-05-31"))
	after := leaveYear.PeriodFor(generic.MustParseDate("2025-06-01"))

	// THEN: They fall in consecutive June-May years
	assert.Equal(t, "2024-06-01", before.Start.String())
	assert.Equal(t, "2025-05-31", before.End.String())
	assert.Equal(t, "2025-06-01", after.Start.String())
	assert.Equal(t, "2026-05-31", after.End.String())

	calendar := generic.PeriodConfig{Type: generic.PeriodCalendarYear}
	year := calendar.PeriodFor(generic.MustParseDate("2025-05-31"))
	assert.Equal(t, "2025-01-01", year.Start.String())
	assert.Equal(t, "2025-12-31", year.End.String())
}

// =============================================================================
// CALENDAR
// =============================================================================

func TestEasterSunday(t *testing.T) {
	tests := map[int]string{
		2024: "2024-03-31",
		2025: "2025-04-20",
		2026: "2026-04-05",
		2038: "2038-04-25",
	}
	for year, want := range tests {
		assert.Equal(t, want, generic.EasterSunday(year).String(), year)
	}
}

func TestFrenchCalendar(t *testing.T) {
	cal := generic.FrenchCalendar{Extra: []generic.Holiday{
		{CompanyID: "employer-1", Date: generic.MustParseDate("2025-03-14"), Name: "Fête locale"},
		{CompanyID: "", Date: generic.MustParseDate("2020-12-26"), Name: "Saint-Étienne", Recurring: true},
	}}

	// Public holidays, movable ones included
	assert.True(t, cal.IsHoliday("", generic.MustParseDate("2025-07-14")))
	assert.True(t, cal.IsHoliday("", generic.MustParseDate("2025-04-21")), "Easter Monday")
	assert.True(t, cal.IsHoliday("", generic.MustParseDate("2025-06-09")), "Whit Monday")
	assert.False(t, cal.IsHoliday("", generic.MustParseDate("2025-04-20")), "Easter Sunday itself")

	// Declared holidays apply to their employer only; recurring ones every year
	assert.True(t, cal.IsHoliday("employer-1", generic.MustParseDate("2025-03-14")))
	assert.False(t, cal.IsHoliday("employer-2", generic.MustParseDate("2025-03-14")))
	assert.True(t, cal.IsHoliday("employer-2", generic.MustParseDate("2025-12-26")))

	assert.Len(t, cal.GetHolidays("employer-1", 2025), 13)
	assert.Len(t, cal.GetHolidays("employer-1", 2026), 12)
}

func TestBusinessDays(t *testing.T) {
	from := generic.MustParseDate("2025-04-14") // Monday before Easter
	to := generic.MustParseDate("2025-04-27")   // Sunday after

	// Weekdays only
	assert.Equal(t, 10, generic.BusinessDays(from, to, nil, ""))

	// Easter Monday excluded
	assert.Equal(t, 9, generic.BusinessDays(from, to, generic.FrenchCalendar{}, ""))

	assert.Equal(t, 0, generic.BusinessDays(to, from, nil, ""))
	assert.False(t, generic.IsBusinessDay(generic.MustParseDate("2025-04-19"), nil, ""))
}
