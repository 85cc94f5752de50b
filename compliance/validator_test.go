package compliance_test

import (
	"testing"

	"github.com/carework/shift-engine/agreement"
	"github.com/carework/shift-engine/compliance"
	"github.com/carework/shift-engine/generic"
	"github.com/carework/shift-engine/shift"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// =============================================================================
// TEST SETUP
// =============================================================================

// Week of Monday 2025-03-10.
const (
	monday    = "2025-03-10"
	tuesday   = "2025-03-11"
	wednesday = "2025-03-12"
	thursday  = "2025-03-13"
	friday    = "2025-03-14"
	saturday  = "2025-03-15"
	sunday    = "2025-03-16"
	nextMon   = "2025-03-17"
)

func newValidator() *compliance.Validator {
	return compliance.NewValidator(agreement.Default())
}

func work(id, date, start, end string, breakMinutes int) shift.Shift {
	return shift.Shift{
		ID:           id,
		ContractID:   "contract-1",
		EmployeeID:   "emp-1",
		Date:         generic.MustParseDate(date),
		Start:        generic.MustParseClock(start),
		End:          generic.MustParseClock(end),
		BreakMinutes: breakMinutes,
		Kind:         shift.KindEffective,
	}
}

func codes(fs []compliance.Finding) []agreement.Code {
	out := []agreement.Code{}
	for _, f := range fs {
		out = append(out, f.Code)
	}
	return out
}

// =============================================================================
// OVERLAP
// =============================================================================

func TestValidate_OverlapIsTheOnlyError_OtherRulesStillWarn(t *testing.T) {
	// GIVEN: a busy week (47h) with a 12:00-13:00 shift on Monday
	// WHEN: validating a Monday 09:00-15:00 candidate on the same contract
	// THEN: exactly one blocking OVERLAP, and the weekly warning still appears

	existing := []shift.Shift{
		work("s-mon", monday, "12:00", "13:00", 0),
		work("s-tue", tuesday, "08:00", "18:00", 60),
		work("s-wed", wednesday, "08:00", "18:00", 60),
		work("s-thu", thursday, "08:00", "18:00", 60),
		work("s-fri", friday, "08:00", "18:00", 60),
		work("s-sat", saturday, "08:00", "12:00", 0),
	}
	candidate := work("", monday, "09:00", "15:00", 0)

	res, err := newValidator().Validate(candidate, existing, nil)

	require.NoError(t, err)
	assert.False(t, res.Valid)
	assert.Equal(t, []agreement.Code{agreement.CodeOverlap}, codes(res.Errors))
	assert.Equal(t, []agreement.Code{agreement.CodeWeeklyHoursNearLimit}, codes(res.Warnings))
	assert.True(t, res.Errors[0].Blocking)
	assert.NotEmpty(t, res.Errors[0].Citation)
}

func TestValidate_EditDoesNotConflictWithItself(t *testing.T) {
	existing := []shift.Shift{work("s-1", monday, "09:00", "15:00", 0)}
	candidate := work("s-1", monday, "09:30", "15:30", 0)

	res, err := newValidator().Validate(candidate, existing, nil)

	require.NoError(t, err)
	assert.True(t, res.Valid)
	assert.Empty(t, res.Errors)
}

func TestValidate_OverlapIgnoresOtherContracts(t *testing.T) {
	other := work("s-1", monday, "09:00", "11:00", 0)
	other.ContractID = "contract-2"
	other.EmployeeID = "emp-2"

	res, err := newValidator().Validate(work("", monday, "10:00", "12:00", 0), []shift.Shift{other}, nil)

	require.NoError(t, err)
	assert.True(t, res.Valid)
}

// =============================================================================
// WORKING TIME
// =============================================================================

func TestValidate_DailyHours(t *testing.T) {
	t.Run("above the ceiling blocks", func(t *testing.T) {
		res, err := newValidator().Validate(work("", monday, "08:00", "19:00", 30), nil, nil)

		require.NoError(t, err)
		assert.Equal(t, []agreement.Code{agreement.CodeDailyHoursExceeded}, codes(res.Errors))
	})

	t.Run("within the margin warns", func(t *testing.T) {
		res, err := newValidator().Validate(work("", monday, "08:00", "17:45", 15), nil, nil)

		require.NoError(t, err)
		assert.True(t, res.Valid)
		assert.True(t, res.Has(agreement.CodeDailyHoursNearLimit))
		assert.True(t, res.Has(agreement.CodeBreakTooShort), "9.5h with a 15 minute break")
	})

	t.Run("exactly at the ceiling passes with a warning", func(t *testing.T) {
		res, err := newValidator().Validate(work("", monday, "08:00", "18:30", 30), nil, nil)

		require.NoError(t, err)
		assert.True(t, res.Valid)
		assert.True(t, res.Has(agreement.CodeDailyHoursNearLimit))
	})

	t.Run("same-day shifts add up", func(t *testing.T) {
		existing := []shift.Shift{work("s-1", monday, "07:00", "12:00", 0)}

		res, err := newValidator().Validate(work("", monday, "14:00", "20:00", 0), existing, nil)

		require.NoError(t, err)
		assert.True(t, res.Has(agreement.CodeDailyHoursExceeded))
	})
}

func TestValidate_WeeklyHoursExceeded(t *testing.T) {
	// GIVEN: Monday-Thursday at 9h and Saturday at 4h (40h)
	// WHEN: adding Friday at 9h (49h)
	// THEN: the weekly maximum of 48h blocks

	existing := []shift.Shift{
		work("s-mon", monday, "08:00", "18:00", 60),
		work("s-tue", tuesday, "08:00", "18:00", 60),
		work("s-wed", wednesday, "08:00", "18:00", 60),
		work("s-thu", thursday, "08:00", "18:00", 60),
		work("s-sat", saturday, "08:00", "12:00", 0),
	}

	res, err := newValidator().Validate(work("", friday, "08:00", "18:00", 60), existing, nil)

	require.NoError(t, err)
	assert.Equal(t, []agreement.Code{agreement.CodeWeeklyHoursExceeded}, codes(res.Errors))
	assert.Contains(t, res.Errors[0].Message, "49.00h")
}

func TestValidate_WeeklyHoursIgnoresOtherWeeks(t *testing.T) {
	existing := []shift.Shift{
		work("s-1", "2025-03-03", "08:00", "18:00", 60),
		work("s-2", "2025-03-04", "08:00", "18:00", 60),
		work("s-3", "2025-03-05", "08:00", "18:00", 60),
		work("s-4", "2025-03-06", "08:00", "18:00", 60),
		work("s-5", "2025-03-07", "08:00", "18:00", 60),
	}

	res, err := newValidator().Validate(work("", monday, "08:00", "12:00", 0), existing, nil)

	require.NoError(t, err)
	assert.False(t, res.Has(agreement.CodeWeeklyHoursNearLimit))
	assert.False(t, res.Has(agreement.CodeWeeklyHoursExceeded))
}

// =============================================================================
// REST
// =============================================================================

func everyDay(start, end string) []shift.Shift {
	days := []string{monday, tuesday, wednesday, thursday, friday, saturday}
	out := make([]shift.Shift, len(days))
	for i, d := range days {
		out[i] = work("s-"+d, d, start, end, 0)
	}
	return out
}

func TestValidate_WeeklyRestInsufficient(t *testing.T) {
	// GIVEN: 10:00-14:00 every day Monday to Saturday
	// WHEN: adding Sunday 10:00-14:00
	// THEN: the longest rest inside the week is 20h, below 35h

	res, err := newValidator().Validate(work("", sunday, "10:00", "14:00", 0), everyDay("10:00", "14:00"), nil)

	require.NoError(t, err)
	assert.Equal(t, []agreement.Code{agreement.CodeWeeklyRestInsufficient}, codes(res.Errors))
}

func TestValidate_WeeklyRestWithFreeWeekend(t *testing.T) {
	// GIVEN: 10:00-14:00 Monday to Thursday
	existing := everyDay("10:00", "14:00")[:4]

	// WHEN: adding Friday 10:00-14:00
	res, err := newValidator().Validate(work("", friday, "10:00", "14:00", 0), existing, nil)

	// THEN: Friday 14:00 to the end of Sunday is 58h of rest
	require.NoError(t, err)
	assert.False(t, res.Has(agreement.CodeWeeklyRestInsufficient))
}

func TestValidate_WeeklyRestIgnoresShiftsOutsideTheWeek(t *testing.T) {
	// GIVEN: the failing week of TestValidate_WeeklyRestInsufficient, with
	// the employee's next shift only on Tuesday of the following week
	existing := append(everyDay("10:00", "14:00"), work("s-next", "2025-03-18", "12:00", "16:00", 0))

	// WHEN: adding Sunday 10:00-14:00
	res, err := newValidator().Validate(work("", sunday, "10:00", "14:00", 0), existing, nil)

	// THEN: the 46h after Sunday 14:00 mostly lies in the next week and
	// does not count; the verdict is unchanged
	require.NoError(t, err)
	assert.True(t, res.Has(agreement.CodeWeeklyRestInsufficient))

	// AND: a long rest before Monday does not count either
	prior := []shift.Shift{work("s-prev", "2025-03-07", "10:00", "14:00", 0)}
	prior = append(prior, everyDay("10:00", "14:00")...)
	res, err = newValidator().Validate(work("", sunday, "10:00", "14:00", 0), prior, nil)
	require.NoError(t, err)
	assert.True(t, res.Has(agreement.CodeWeeklyRestInsufficient))
}

func TestValidate_DailyRestInsufficient(t *testing.T) {
	existing := []shift.Shift{work("s-1", monday, "14:00", "22:00", 0)}

	res, err := newValidator().Validate(work("", tuesday, "06:00", "12:00", 0), existing, nil)

	require.NoError(t, err)
	assert.Equal(t, []agreement.Code{agreement.CodeDailyRestInsufficient}, codes(res.Errors))
	assert.Contains(t, res.Errors[0].Message, "8.00h")
}

func TestValidate_SplitShiftSameDayIsNotDailyRest(t *testing.T) {
	existing := []shift.Shift{work("s-1", monday, "08:00", "11:00", 0)}

	res, err := newValidator().Validate(work("", monday, "17:00", "20:00", 0), existing, nil)

	require.NoError(t, err)
	assert.True(t, res.Valid)
}

// =============================================================================
// ABSENCES AND ADVISORIES
// =============================================================================

func TestValidate_AbsenceConflict(t *testing.T) {
	absences := []compliance.Absence{{
		ID:         "abs-1",
		EmployeeID: "emp-1",
		Kind:       "paid_leave",
		Period:     generic.Period{Start: generic.MustParseDate(monday), End: generic.MustParseDate(wednesday)},
	}}

	res, err := newValidator().Validate(work("", tuesday, "09:00", "12:00", 0), nil, absences)

	require.NoError(t, err)
	assert.Equal(t, []agreement.Code{agreement.CodeAbsenceConflict}, codes(res.Errors))
}

func TestValidate_AbsenceOfAnotherEmployee(t *testing.T) {
	absences := []compliance.Absence{{
		EmployeeID: "emp-2",
		Period:     generic.Period{Start: generic.MustParseDate(monday), End: generic.MustParseDate(wednesday)},
	}}

	res, err := newValidator().Validate(work("", tuesday, "09:00", "12:00", 0), nil, absences)

	require.NoError(t, err)
	assert.True(t, res.Valid)
}

func TestValidate_NightPresenceRequalifiedWarns(t *testing.T) {
	candidate := work("", monday, "21:00", "07:00", 0)
	candidate.Kind = shift.KindNightPresence
	candidate.NightInterventions = agreement.DefaultRequalificationThreshold

	res, err := newValidator().Validate(candidate, nil, nil)

	require.NoError(t, err)
	assert.True(t, res.Valid)
	assert.True(t, res.Has(agreement.CodeNightPresenceRequalified))
}

func TestValidate_GuardSegmentWithoutBreakWarns(t *testing.T) {
	candidate := work("", monday, "08:00", "08:00", 0)
	candidate.Kind = shift.KindGuard24h
	candidate.Segments = []shift.Segment{
		{Start: generic.MustParseClock("08:00"), Kind: shift.KindEffective},
		{Start: generic.MustParseClock("15:00"), Kind: shift.KindDayPresence},
		{Start: generic.MustParseClock("21:00"), Kind: shift.KindNightPresence},
	}

	res, err := newValidator().Validate(candidate, nil, nil)

	require.NoError(t, err)
	assert.True(t, res.Has(agreement.CodeBreakTooShort))
}

// =============================================================================
// FAILURE POLICY
// =============================================================================

func TestValidate_MalformedGuardReportsAndStillChecksOverlap(t *testing.T) {
	// GIVEN: a guard whose segments do not start at the shift start
	// WHEN: validating it against an overlapping shift
	// THEN: one non-blocking VALIDATION_ERROR, the overlap still reported,
	//       and the structural cause returned on the error channel

	existing := []shift.Shift{work("s-1", monday, "09:00", "12:00", 0)}
	candidate := work("", monday, "08:00", "08:00", 0)
	candidate.Kind = shift.KindGuard24h
	candidate.Segments = []shift.Segment{
		{Start: generic.MustParseClock("09:00"), Kind: shift.KindDayPresence},
		{Start: generic.MustParseClock("21:00"), Kind: shift.KindNightPresence},
	}

	res, err := newValidator().Validate(candidate, existing, nil)

	require.Error(t, err)
	assert.ErrorIs(t, err, shift.ErrSegmentsNotTiling)
	var verr *compliance.ValidationError
	assert.ErrorAs(t, err, &verr)

	assert.True(t, res.Has(agreement.CodeOverlap))
	validationWarnings := 0
	for _, w := range res.Warnings {
		if w.Code == agreement.CodeValidationError {
			validationWarnings++
			assert.False(t, w.Blocking)
		}
	}
	assert.Equal(t, 1, validationWarnings)
}

func TestValidate_ResultSlicesNeverNil(t *testing.T) {
	res, err := newValidator().Validate(work("", monday, "09:00", "12:00", 0), nil, nil)

	require.NoError(t, err)
	assert.NotNil(t, res.Errors)
	assert.NotNil(t, res.Warnings)
}
