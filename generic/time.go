package generic

import (
	"encoding/json"
	"fmt"
	"strconv"
	"time"
)

// =============================================================================
// DATE - A calendar day with no time-of-day or zone
// =============================================================================

// Date is a calendar day. Internally it is midnight UTC; wall-clock shift
// times are combined with it through At, so no DST shifts ever apply.
type Date struct {
	t time.Time
}

const dateLayout = "2006-01-02"

func NewDate(year int, month time.Month, day int) Date {
	return Date{t: time.Date(year, month, day, 0, 0, 0, 0, time.UTC)}
}

// DateOf truncates a time to its calendar day (in the time's own location).
func DateOf(t time.Time) Date {
	return NewDate(t.Year(), t.Month(), t.Day())
}

// ParseDate parses "YYYY-MM-DD".
func ParseDate(s string) (Date, error) {
	t, err := time.Parse(dateLayout, s)
	if err != nil {
		return Date{}, fmt.Errorf("%w: %q", ErrInvalidDate, s)
	}
	return Date{t: t}, nil
}

// MustParseDate is for fixtures and tests.
func MustParseDate(s string) Date {
	d, err := ParseDate(s)
	if err != nil {
		panic(err)
	}
	return d
}

// Comparison
func (d Date) Before(o Date) bool        { return d.t.Before(o.t) }
func (d Date) After(o Date) bool         { return d.t.After(o.t) }
func (d Date) Equal(o Date) bool         { return d.t.Equal(o.t) }
func (d Date) BeforeOrEqual(o Date) bool { return !d.t.After(o.t) }
func (d Date) AfterOrEqual(o Date) bool  { return !d.t.Before(o.t) }

// Arithmetic
func (d Date) AddDays(n int) Date   { return Date{t: d.t.AddDate(0, 0, n)} }
func (d Date) AddMonths(n int) Date { return Date{t: d.t.AddDate(0, n, 0)} }
func (d Date) AddYears(n int) Date  { return Date{t: d.t.AddDate(n, 0, 0)} }

// Properties
func (d Date) Year() int              { return d.t.Year() }
func (d Date) Month() time.Month      { return d.t.Month() }
func (d Date) Day() int               { return d.t.Day() }
func (d Date) Weekday() time.Weekday  { return d.t.Weekday() }
func (d Date) IsZero() bool           { return d.t.IsZero() }
func (d Date) IsSunday() bool         { return d.t.Weekday() == time.Sunday }
func (d Date) IsWeekend() bool        { wd := d.Weekday(); return wd == time.Saturday || wd == time.Sunday }
func (d Date) Time() time.Time        { return d.t }
func (d Date) String() string         { return d.t.Format(dateLayout) }

// At returns the absolute instant of the wall-clock time c on this day.
func (d Date) At(c Clock) time.Time {
	return d.t.Add(time.Duration(c) * time.Minute)
}

func (d Date) MarshalJSON() ([]byte, error) {
	return json.Marshal(d.String())
}

func (d *Date) UnmarshalJSON(b []byte) error {
	var s string
	if err := json.Unmarshal(b, &s); err != nil {
		return err
	}
	parsed, err := ParseDate(s)
	if err != nil {
		return err
	}
	*d = parsed
	return nil
}

// =============================================================================
// CLOCK - A wall-clock time of day, "HH:MM"
// =============================================================================

// Clock is minutes since midnight, in [0, 1440).
type Clock int

const MinutesPerDay = 24 * 60

func NewClock(hour, minute int) Clock { return Clock(hour*60 + minute) }

// ParseClock parses "HH:MM" (24h). "24:00" is rejected: a full day is
// expressed as end == start on a guard shift.
func ParseClock(s string) (Clock, error) {
	if len(s) != 5 || s[2] != ':' || !isDigits(s[:2]) || !isDigits(s[3:]) {
		return 0, fmt.Errorf("%w: %q", ErrInvalidClock, s)
	}
	h, _ := strconv.Atoi(s[:2])
	m, _ := strconv.Atoi(s[3:])
	if h > 23 || m > 59 {
		return 0, fmt.Errorf("%w: %q", ErrInvalidClock, s)
	}
	return NewClock(h, m), nil
}

func isDigits(s string) bool {
	for _, r := range s {
		if r < '0' || r > '9' {
			return false
		}
	}
	return true
}

// MustParseClock is for fixtures and tests.
func MustParseClock(s string) Clock {
	c, err := ParseClock(s)
	if err != nil {
		panic(err)
	}
	return c
}

func (c Clock) Hour() int   { return int(c) / 60 }
func (c Clock) Minute() int { return int(c) % 60 }

// Add returns the clock time n minutes later, wrapping at midnight.
func (c Clock) Add(n int) Clock {
	v := (int(c) + n) % MinutesPerDay
	if v < 0 {
		v += MinutesPerDay
	}
	return Clock(v)
}

func (c Clock) Valid() bool { return c >= 0 && int(c) < MinutesPerDay }

func (c Clock) String() string { return fmt.Sprintf("%02d:%02d", c.Hour(), c.Minute()) }

func (c Clock) MarshalJSON() ([]byte, error) { return json.Marshal(c.String()) }

func (c *Clock) UnmarshalJSON(b []byte) error {
	var s string
	if err := json.Unmarshal(b, &s); err != nil {
		return err
	}
	parsed, err := ParseClock(s)
	if err != nil {
		return err
	}
	*c = parsed
	return nil
}

// MarshalYAML / UnmarshalYAML keep agreement files human-readable.
func (c Clock) MarshalYAML() (any, error) { return c.String(), nil }

func (c *Clock) UnmarshalYAML(unmarshal func(any) error) error {
	var s string
	if err := unmarshal(&s); err != nil {
		return err
	}
	parsed, err := ParseClock(s)
	if err != nil {
		return err
	}
	*c = parsed
	return nil
}

// =============================================================================
// INTERVAL - An absolute half-open [Start, End) span
// =============================================================================

type Interval struct {
	Start time.Time
	End   time.Time
}

func (iv Interval) Minutes() int { return int(iv.End.Sub(iv.Start) / time.Minute) }

// Overlaps reports whether two half-open intervals share at least a minute.
func (iv Interval) Overlaps(o Interval) bool {
	return iv.Start.Before(o.End) && o.Start.Before(iv.End)
}
