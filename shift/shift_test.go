package shift_test

import (
	"testing"

	"github.com/carework/shift-engine/agreement"
	"github.com/carework/shift-engine/generic"
	"github.com/carework/shift-engine/shift"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// =============================================================================
// TEST HELPERS
// =============================================================================

func clock(s string) generic.Clock { return generic.MustParseClock(s) }

func hours(s string) decimal.Decimal { return generic.MustDecimal(s) }

func newShift(kind shift.Kind, start, end string, breakMinutes int) shift.Shift {
	return shift.Shift{
		ContractID:   "contract-1",
		EmployeeID:   "emp-1",
		Date:         generic.MustParseDate("2025-03-10"),
		Start:        clock(start),
		End:          clock(end),
		BreakMinutes: breakMinutes,
		Kind:         kind,
	}
}

func guardShift(interventions int) shift.Shift {
	s := newShift(shift.KindGuard24h, "08:00", "08:00", 0)
	s.NightInterventions = interventions
	s.Segments = []shift.Segment{
		{Start: clock("08:00"), Kind: shift.KindEffective, BreakMinutes: 30},
		{Start: clock("12:00"), Kind: shift.KindDayPresence},
		{Start: clock("20:00"), Kind: shift.KindNightPresence},
	}
	return s
}

// =============================================================================
// DURATION TESTS
// =============================================================================

func TestNetMinutes(t *testing.T) {
	tests := []struct {
		name  string
		start string
		end   string
		brk   int
		want  int
	}{
		{"day shift with break", "09:00", "17:00", 30, 450},
		{"overnight", "22:00", "06:00", 0, 480},
		{"end equals start is a full day", "09:00", "09:00", 0, 1440},
		{"ends at midnight", "18:00", "00:00", 0, 360},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := shift.NetMinutes(clock(tt.start), clock(tt.end), tt.brk)
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestNetMinutes_BreakLongerThanShift(t *testing.T) {
	// GIVEN: a one-hour interval with a 90 minute break
	// WHEN: computing the net duration
	// THEN: the negative value comes back with a NegativeDurationError

	net, err := shift.NetMinutes(clock("10:00"), clock("11:00"), 90)

	assert.Equal(t, -30, net)
	assert.ErrorIs(t, err, shift.ErrNegativeDuration)
	var negErr *shift.NegativeDurationError
	require.ErrorAs(t, err, &negErr)
	assert.Equal(t, -30, negErr.Minutes)
	assert.Equal(t, 0, shift.DisplayMinutes(net))
}

// =============================================================================
// NIGHT WINDOW TESTS
// =============================================================================

func TestNightOverlap(t *testing.T) {
	w := agreement.Default().NightWindow

	tests := []struct {
		name    string
		start   string
		end     string
		want    int
		touches bool
	}{
		{"evening into the window", "20:00", "23:00", 120, true},
		{"overnight inside window", "22:00", "07:00", 480, true},
		{"day shift", "08:00", "17:00", 0, false},
		{"early morning tail of previous night", "05:00", "08:00", 60, true},
		{"ends exactly when the window opens", "15:00", "21:00", 0, false},
		{"full day from 21:00", "21:00", "21:00", 540, true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, touches := shift.NightOverlap(clock(tt.start), clock(tt.end), w)
			assert.Equal(t, tt.want, got)
			assert.Equal(t, tt.touches, touches)
		})
	}
}

func TestNightOverlap_WindowNotCrossingMidnight(t *testing.T) {
	w := agreement.NightWindow{Start: clock("00:00"), End: clock("05:00")}

	got, touches := shift.NightOverlap(clock("22:00"), clock("02:00"), w)

	assert.True(t, touches)
	assert.Equal(t, 120, got)
}

// =============================================================================
// REQUALIFICATION TESTS
// =============================================================================

func TestIsRequalified(t *testing.T) {
	threshold := agreement.DefaultRequalificationThreshold

	assert.False(t, shift.IsRequalified(shift.KindNightPresence, threshold-1, threshold))
	assert.True(t, shift.IsRequalified(shift.KindNightPresence, threshold, threshold))
	assert.True(t, shift.IsRequalified(shift.KindGuard24h, threshold+3, threshold))
	assert.False(t, shift.IsRequalified(shift.KindEffective, 10, threshold), "only presence kinds requalify")
	assert.False(t, shift.IsRequalified(shift.KindDayPresence, 10, threshold))
}

// =============================================================================
// EFFECTIVE HOURS TESTS
// =============================================================================

func TestEffectiveHours_ByKind(t *testing.T) {
	a := agreement.Default()

	nightOnce := newShift(shift.KindNightPresence, "21:00", "07:00", 0)
	nightOnce.NightInterventions = 1
	nightTwice := nightOnce
	nightTwice.NightInterventions = 2

	tests := []struct {
		name string
		s    shift.Shift
		want decimal.Decimal
	}{
		{"effective minus break", newShift(shift.KindEffective, "08:00", "18:00", 60), hours("9")},
		{"day presence at two thirds", newShift(shift.KindDayPresence, "08:00", "17:00", 0), hours("6")},
		{"day presence rounded half-up", newShift(shift.KindDayPresence, "08:00", "09:10", 0), hours("0.78")},
		{"night presence below threshold", nightOnce, decimal.Zero},
		{"night presence requalified", nightTwice, hours("10")},
		{"guard not requalified", guardShift(1), hours("8.83")},
		{"guard requalified", guardShift(2), hours("20.83")},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := tt.s.EffectiveHours(a)
			require.NoError(t, err)
			assert.True(t, tt.want.Equal(got), "want %s, got %s", tt.want, got)
		})
	}
}

func TestEffectiveHours_DayPresenceIgnoresBreak(t *testing.T) {
	a := agreement.Default()
	s := newShift(shift.KindDayPresence, "08:00", "17:00", 45)

	got, err := shift.EffectiveHours(s, a)

	require.NoError(t, err)
	assert.True(t, hours("6").Equal(got))
}

func TestPieces_GuardSegmentsCarryOffsets(t *testing.T) {
	a := agreement.Default()

	pieces, err := guardShift(0).Pieces(a)

	require.NoError(t, err)
	require.Len(t, pieces, 3)
	assert.Equal(t, 8*60, pieces[0].Offset)
	assert.Equal(t, 20*60, pieces[2].Offset)
	assert.Equal(t, 720, pieces[2].Raw)
	assert.Equal(t, shift.CategoryNightPresence, pieces[2].Category)

	sameDay, nextDay := pieces[2].SplitAtMidnight()
	assert.Equal(t, 240, sameDay)
	assert.Equal(t, 480, nextDay)
	assert.Equal(t, 540, pieces[2].NightMinutes(a.NightWindow))
}

// =============================================================================
// STRUCTURAL VALIDATION TESTS
// =============================================================================

func TestValidate_EndEqualsStartOnlyForGuard(t *testing.T) {
	err := newShift(shift.KindEffective, "09:00", "09:00", 0).Validate()

	var se *shift.StructuralError
	require.ErrorAs(t, err, &se)
	assert.Equal(t, "end_time", se.Field)
}

func TestValidate_UnknownKind(t *testing.T) {
	err := newShift("standby", "09:00", "17:00", 0).Validate()

	assert.ErrorIs(t, err, shift.ErrInvalidKind)
	assert.True(t, shift.IsStructural(err))
}

func TestValidate_GuardSegmentsMustStartAtShiftStart(t *testing.T) {
	s := guardShift(0)
	s.Segments[0].Start = clock("09:00")

	err := s.Validate()

	assert.ErrorIs(t, err, shift.ErrSegmentsNotTiling)
}

func TestValidate_GuardMustEndAtStart(t *testing.T) {
	s := guardShift(0)
	s.End = clock("07:00")

	assert.ErrorIs(t, s.Validate(), shift.ErrSegmentsNotTiling)
}

func TestValidate_EffectiveBreakLongerThanShift(t *testing.T) {
	err := newShift(shift.KindEffective, "10:00", "11:00", 90).Validate()

	assert.ErrorIs(t, err, shift.ErrNegativeDuration)
}

func TestSpan_Overnight(t *testing.T) {
	s := newShift(shift.KindEffective, "22:00", "06:00", 0)

	iv := s.Span()

	assert.Equal(t, 480, iv.Minutes())
	assert.Equal(t, "2025-03-11", generic.DateOf(iv.End).String())
}
