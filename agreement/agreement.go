/*
Package agreement holds the collective-agreement constants the engine applies.

PURPOSE:
  Every threshold that decides whether a shift is admissible or how it is
  paid comes from the governing collective agreement for home-care workers
  or from the labour code it defers to. None of these numbers is a literal
  in the rule code: rules read them from an Agreement value, and findings
  quote the Citation text next to the number.

DEFAULTS:
  Default() returns the values in force for French home employment
  (particulier employeur). They are defaults, not truths: deployments load
  their own file through factory.LoadAgreementFile and any omitted key
  falls back to the value here.

  Night window             21:00 - 06:00
  Daily effective work     10h max, warning 1h below
  Weekly hours             48h max, warning above 44h
  Weekly rest              35h
  Daily rest               11h
  Break                    20 min once effective work exceeds 6h
  Day presence             2/3 of an hour of effective work per hour
  Night presence           requalified at 2 interventions, allowance 1/4
  Majorations              night +20%, Sunday +25%, holiday +10%, overtime +25%
  Paid leave               2.5 days per month, 30 days per leave year (June)

SEE ALSO:
  - factory/agreement.go: file format and loading
  - compliance/validator.go: rule evaluation
  - payroll/pay.go: majorations
*/
package agreement

import (
	"time"

	"github.com/carework/shift-engine/generic"
	"github.com/shopspring/decimal"
)

// DefaultRequalificationThreshold is the number of night interventions from
// which night presence is paid as effective work.
const DefaultRequalificationThreshold = 2

// DefaultMinBreakMinutes is the statutory break once a stretch of effective
// work exceeds DefaultBreakAfterMinutes.
const (
	DefaultMinBreakMinutes   = 20
	DefaultBreakAfterMinutes = 6 * 60
)

// Code identifies a rule; the same codes label compliance findings.
type Code string

const (
	CodeOverlap                  Code = "OVERLAP"
	CodeDailyHoursExceeded       Code = "DAILY_HOURS_EXCEEDED"
	CodeDailyHoursNearLimit      Code = "DAILY_HOURS_NEAR_LIMIT"
	CodeWeeklyHoursExceeded      Code = "WEEKLY_HOURS_EXCEEDED"
	CodeWeeklyHoursNearLimit     Code = "WEEKLY_HOURS_NEAR_LIMIT"
	CodeWeeklyRestInsufficient   Code = "WEEKLY_REST_INSUFFICIENT"
	CodeDailyRestInsufficient    Code = "DAILY_REST_INSUFFICIENT"
	CodeAbsenceConflict          Code = "ABSENCE_CONFLICT"
	CodeBreakTooShort            Code = "BREAK_TOO_SHORT"
	CodeNightPresenceRequalified Code = "NIGHT_PRESENCE_REQUALIFIED"
	CodeValidationError          Code = "VALIDATION_ERROR"
)

// NightWindow is the legal night range; it may cross midnight.
type NightWindow struct {
	Start generic.Clock
	End   generic.Clock
}

// Agreement is the full set of collective-agreement parameters.
type Agreement struct {
	Name string

	NightWindow NightWindow

	// Working time, in minutes
	DailyMaxMinutes           int
	DailyWarningMarginMinutes int
	WeeklyMaxMinutes          int
	WeeklyWarningMinutes      int
	WeeklyRestMinutes         int
	DailyRestMinutes          int
	BreakAfterMinutes         int
	MinBreakMinutes           int

	// Presence
	DayPresenceRatio         decimal.Decimal // effective hours per hour of day presence
	RequalificationThreshold int
	NightAllowanceRatio      decimal.Decimal // fraction of the hourly rate per presence hour

	// Majorations, as fractions (0.20 = +20%)
	NightRate    decimal.Decimal
	SundayRate   decimal.Decimal
	HolidayRate  decimal.Decimal
	OvertimeRate decimal.Decimal

	// Paid leave
	LeaveDaysPerMonth     decimal.Decimal
	LeaveMaxDaysPerYear   decimal.Decimal
	LeaveYearStartMonth   time.Month
	LeaveExcludesHolidays bool

	// Citations quoted in findings, by rule code.
	Citations map[Code]string
}

// Default returns the agreement values described in the package doc.
func Default() Agreement {
	return Agreement{
		Name: "CCN particulier employeur et emploi à domicile (IDCC 3239)",
		NightWindow: NightWindow{
			Start: generic.NewClock(21, 0),
			End:   generic.NewClock(6, 0),
		},
		DailyMaxMinutes:           10 * 60,
		DailyWarningMarginMinutes: 60,
		WeeklyMaxMinutes:          48 * 60,
		WeeklyWarningMinutes:      44 * 60,
		WeeklyRestMinutes:         35 * 60,
		DailyRestMinutes:          11 * 60,
		BreakAfterMinutes:         DefaultBreakAfterMinutes,
		MinBreakMinutes:           DefaultMinBreakMinutes,

		DayPresenceRatio:         decimal.NewFromInt(2).Div(decimal.NewFromInt(3)),
		RequalificationThreshold: DefaultRequalificationThreshold,
		NightAllowanceRatio:      generic.Percent(25),

		NightRate:    generic.Percent(20),
		SundayRate:   generic.Percent(25),
		HolidayRate:  generic.Percent(10),
		OvertimeRate: generic.Percent(25),

		LeaveDaysPerMonth:     generic.MustDecimal("2.5"),
		LeaveMaxDaysPerYear:   decimal.NewFromInt(30),
		LeaveYearStartMonth:   time.June,
		LeaveExcludesHolidays: true,

		Citations: DefaultCitations(),
	}
}

// DefaultCitations maps each rule to the article it enforces.
func DefaultCitations() map[Code]string {
	return map[Code]string{
		CodeOverlap:                  "Code du travail, art. L3121-1 (temps de travail effectif)",
		CodeDailyHoursExceeded:       "Code du travail, art. L3121-18 (durée quotidienne maximale)",
		CodeDailyHoursNearLimit:      "Code du travail, art. L3121-18 (durée quotidienne maximale)",
		CodeWeeklyHoursExceeded:      "Code du travail, art. L3121-20 (durée hebdomadaire maximale)",
		CodeWeeklyHoursNearLimit:     "Code du travail, art. L3121-20 (durée hebdomadaire maximale)",
		CodeWeeklyRestInsufficient:   "Code du travail, art. L3132-2 (repos hebdomadaire)",
		CodeDailyRestInsufficient:    "Code du travail, art. L3131-1 (repos quotidien)",
		CodeAbsenceConflict:          "CCN IDCC 3239, congés et absences",
		CodeBreakTooShort:            "Code du travail, art. L3121-16 (temps de pause)",
		CodeNightPresenceRequalified: "CCN IDCC 3239, présence responsable de nuit",
		CodeValidationError:          "",
	}
}

// Cite returns the citation for a rule code, "" if unknown.
func (a Agreement) Cite(code Code) string {
	if a.Citations == nil {
		return ""
	}
	return a.Citations[code]
}

// LeavePeriods returns the period config for the leave year.
func (a Agreement) LeavePeriods() generic.PeriodConfig {
	return generic.PeriodConfig{
		Type:                 generic.PeriodFiscalYear,
		FiscalYearStartMonth: a.LeaveYearStartMonth,
	}
}

// DailyWarningMinutes is the daily total above which an advisory is raised.
func (a Agreement) DailyWarningMinutes() int {
	return a.DailyMaxMinutes - a.DailyWarningMarginMinutes
}
