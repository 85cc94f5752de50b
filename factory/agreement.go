/*
Package factory converts agreement files into agreement.Agreement values.

PURPOSE:
  Deployments tune the collective-agreement parameters without code
  changes: a YAML (or JSON, which is valid YAML) file lists the values
  that differ from agreement.Default(); every omitted key keeps its
  default.

FILE SCHEMA:
  name: "CCN IDCC 3239"
  night_window: {start: "21:00", end: "06:00"}
  daily:
    max_hours: 10
    warning_margin_minutes: 60
    rest_hours: 11
  weekly:
    max_hours: 48
    warning_hours: 44
    rest_hours: 35
  break:
    after_hours: 6
    minimum_minutes: 20
  presence:
    day_ratio: "2/3"
    requalification_threshold: 2
    night_allowance_ratio: 0.25
  majorations:
    night: 0.20
    sunday: 0.25
    holiday: 0.10
    overtime: 0.25
  leave:
    days_per_month: 2.5
    max_days_per_year: 30
    year_start_month: 6
    exclude_holidays: true
  citations:
    DAILY_HOURS_EXCEEDED: "Code du travail, art. L3121-18"

  Ratios accept a decimal ("0.25", 0.25), a percentage ("25%") or a
  fraction ("2/3"), divided at full decimal precision.

USAGE:
  a, err := factory.LoadAgreementFile("agreement.yaml")
  a, err := factory.ParseAgreement(data)

SEE ALSO:
  - agreement/agreement.go: defaults and field meanings
*/
package factory

import (
	"errors"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/carework/shift-engine/agreement"
	"github.com/carework/shift-engine/generic"
	"github.com/shopspring/decimal"
	"gopkg.in/yaml.v3"
)

// ErrInvalidAgreement is returned for files that parse but hold values the
// engine cannot run on.
var ErrInvalidAgreement = errors.New("invalid agreement")

// =============================================================================
// FILE SCHEMA TYPES
// =============================================================================

// AgreementFile is the file representation. Pointer fields distinguish an
// omitted key from an explicit zero.
type AgreementFile struct {
	Name        string                    `yaml:"name"`
	NightWindow *NightWindowFile          `yaml:"night_window"`
	Daily       *DailyFile                `yaml:"daily"`
	Weekly      *WeeklyFile               `yaml:"weekly"`
	Break       *BreakFile                `yaml:"break"`
	Presence    *PresenceFile             `yaml:"presence"`
	Majorations *MajorationsFile          `yaml:"majorations"`
	Leave       *LeaveFile                `yaml:"leave"`
	Citations   map[agreement.Code]string `yaml:"citations"`
}

type NightWindowFile struct {
	Start *generic.Clock `yaml:"start"`
	End   *generic.Clock `yaml:"end"`
}

type DailyFile struct {
	MaxHours             *Ratio `yaml:"max_hours"`
	WarningMarginMinutes *int   `yaml:"warning_margin_minutes"`
	RestHours            *Ratio `yaml:"rest_hours"`
}

type WeeklyFile struct {
	MaxHours     *Ratio `yaml:"max_hours"`
	WarningHours *Ratio `yaml:"warning_hours"`
	RestHours    *Ratio `yaml:"rest_hours"`
}

type BreakFile struct {
	AfterHours     *Ratio `yaml:"after_hours"`
	MinimumMinutes *int   `yaml:"minimum_minutes"`
}

type PresenceFile struct {
	DayRatio                 *Ratio `yaml:"day_ratio"`
	RequalificationThreshold *int   `yaml:"requalification_threshold"`
	NightAllowanceRatio      *Ratio `yaml:"night_allowance_ratio"`
}

type MajorationsFile struct {
	Night    *Ratio `yaml:"night"`
	Sunday   *Ratio `yaml:"sunday"`
	Holiday  *Ratio `yaml:"holiday"`
	Overtime *Ratio `yaml:"overtime"`
}

type LeaveFile struct {
	DaysPerMonth    *Ratio `yaml:"days_per_month"`
	MaxDaysPerYear  *Ratio `yaml:"max_days_per_year"`
	YearStartMonth  *int   `yaml:"year_start_month"`
	ExcludeHolidays *bool  `yaml:"exclude_holidays"`
}

// Ratio is a decimal written either as a number or as "a/b".
type Ratio struct {
	decimal.Decimal
}

func (r *Ratio) UnmarshalYAML(node *yaml.Node) error {
	d, err := ParseRatio(node.Value)
	if err != nil {
		return fmt.Errorf("line %d: %w", node.Line, err)
	}
	r.Decimal = d
	return nil
}

// ParseRatio parses "0.25", "25%" or "2/3".
func ParseRatio(s string) (decimal.Decimal, error) {
	s = strings.TrimSpace(s)
	if p, ok := strings.CutSuffix(s, "%"); ok {
		d, err := decimal.NewFromString(strings.TrimSpace(p))
		if err != nil {
			return decimal.Decimal{}, fmt.Errorf("invalid percentage %q", s)
		}
		return d.Div(decimal.NewFromInt(100)), nil
	}
	if num, den, ok := strings.Cut(s, "/"); ok {
		n, err1 := decimal.NewFromString(strings.TrimSpace(num))
		m, err2 := decimal.NewFromString(strings.TrimSpace(den))
		if err1 != nil || err2 != nil || m.IsZero() {
			return decimal.Decimal{}, fmt.Errorf("invalid fraction %q", s)
		}
		return n.Div(m), nil
	}
	d, err := decimal.NewFromString(s)
	if err != nil {
		return decimal.Decimal{}, fmt.Errorf("invalid number %q", s)
	}
	return d, nil
}

// =============================================================================
// LOADING
// =============================================================================

// LoadAgreementFile reads and parses an agreement file. An empty path
// returns the defaults.
func LoadAgreementFile(path string) (agreement.Agreement, error) {
	if path == "" {
		return agreement.Default(), nil
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return agreement.Agreement{}, fmt.Errorf("failed to read agreement file: %w", err)
	}
	return ParseAgreement(data)
}

// ParseAgreement parses YAML or JSON into an agreement, on top of the defaults.
func ParseAgreement(data []byte) (agreement.Agreement, error) {
	var f AgreementFile
	if err := yaml.Unmarshal(data, &f); err != nil {
		return agreement.Agreement{}, fmt.Errorf("failed to parse agreement: %w", err)
	}
	return FromFile(f)
}

// FromFile applies the file's values on top of agreement.Default().
func FromFile(f AgreementFile) (agreement.Agreement, error) {
	a := agreement.Default()
	if f.Name != "" {
		a.Name = f.Name
	}

	if w := f.NightWindow; w != nil {
		setClock(&a.NightWindow.Start, w.Start)
		setClock(&a.NightWindow.End, w.End)
	}
	if d := f.Daily; d != nil {
		setHours(&a.DailyMaxMinutes, d.MaxHours)
		setInt(&a.DailyWarningMarginMinutes, d.WarningMarginMinutes)
		setHours(&a.DailyRestMinutes, d.RestHours)
	}
	if w := f.Weekly; w != nil {
		setHours(&a.WeeklyMaxMinutes, w.MaxHours)
		setHours(&a.WeeklyWarningMinutes, w.WarningHours)
		setHours(&a.WeeklyRestMinutes, w.RestHours)
	}
	if b := f.Break; b != nil {
		setHours(&a.BreakAfterMinutes, b.AfterHours)
		setInt(&a.MinBreakMinutes, b.MinimumMinutes)
	}
	if p := f.Presence; p != nil {
		setDecimal(&a.DayPresenceRatio, p.DayRatio)
		setInt(&a.RequalificationThreshold, p.RequalificationThreshold)
		setDecimal(&a.NightAllowanceRatio, p.NightAllowanceRatio)
	}
	if m := f.Majorations; m != nil {
		setDecimal(&a.NightRate, m.Night)
		setDecimal(&a.SundayRate, m.Sunday)
		setDecimal(&a.HolidayRate, m.Holiday)
		setDecimal(&a.OvertimeRate, m.Overtime)
	}
	if l := f.Leave; l != nil {
		setDecimal(&a.LeaveDaysPerMonth, l.DaysPerMonth)
		setDecimal(&a.LeaveMaxDaysPerYear, l.MaxDaysPerYear)
		if l.YearStartMonth != nil {
			a.LeaveYearStartMonth = time.Month(*l.YearStartMonth)
		}
		if l.ExcludeHolidays != nil {
			a.LeaveExcludesHolidays = *l.ExcludeHolidays
		}
	}
	for code, text := range f.Citations {
		a.Citations[code] = text
	}

	if err := Validate(a); err != nil {
		return agreement.Agreement{}, err
	}
	return a, nil
}

// Validate rejects agreements the rules cannot be evaluated with.
func Validate(a agreement.Agreement) error {
	var problems []string
	check := func(ok bool, msg string) {
		if !ok {
			problems = append(problems, msg)
		}
	}
	check(a.NightWindow.Start.Valid() && a.NightWindow.End.Valid(), "night window times out of range")
	check(a.DailyMaxMinutes > 0, "daily.max_hours must be positive")
	check(a.DailyWarningMarginMinutes >= 0 && a.DailyWarningMarginMinutes < a.DailyMaxMinutes, "daily.warning_margin_minutes must be below the daily maximum")
	check(a.WeeklyMaxMinutes > 0, "weekly.max_hours must be positive")
	check(a.WeeklyWarningMinutes > 0 && a.WeeklyWarningMinutes <= a.WeeklyMaxMinutes, "weekly.warning_hours must not exceed weekly.max_hours")
	check(a.WeeklyRestMinutes >= 0 && a.DailyRestMinutes >= 0, "rest durations cannot be negative")
	check(a.BreakAfterMinutes > 0 && a.MinBreakMinutes >= 0, "break thresholds must be positive")
	check(a.DayPresenceRatio.IsPositive() && a.DayPresenceRatio.LessThanOrEqual(decimal.NewFromInt(1)), "presence.day_ratio must be in (0, 1]")
	check(a.RequalificationThreshold > 0, "presence.requalification_threshold must be positive")
	check(!a.NightAllowanceRatio.IsNegative(), "presence.night_allowance_ratio cannot be negative")
	negative := false
	for _, r := range []decimal.Decimal{a.NightRate, a.SundayRate, a.HolidayRate, a.OvertimeRate} {
		negative = negative || r.IsNegative()
	}
	check(!negative, "majorations cannot be negative")
	check(a.LeaveDaysPerMonth.IsPositive() && a.LeaveMaxDaysPerYear.IsPositive(), "leave accrual must be positive")
	check(a.LeaveYearStartMonth >= time.January && a.LeaveYearStartMonth <= time.December, "leave.year_start_month must be 1-12")

	if len(problems) > 0 {
		return fmt.Errorf("%w: %s", ErrInvalidAgreement, strings.Join(problems, "; "))
	}
	return nil
}

func setClock(dst *generic.Clock, v *generic.Clock) {
	if v != nil {
		*dst = *v
	}
}

func setInt(dst *int, v *int) {
	if v != nil {
		*dst = *v
	}
}

func setDecimal(dst *decimal.Decimal, v *Ratio) {
	if v != nil {
		*dst = v.Decimal
	}
}

// setHours stores a (possibly fractional) hour count as whole minutes.
func setHours(dst *int, v *Ratio) {
	if v != nil {
		*dst = int(generic.HoursToMinutes(v.Decimal).Round(0).IntPart())
	}
}
