package api

import (
	"net/http"
	"testing"

	"github.com/carework/shift-engine/agreement"
	"github.com/carework/shift-engine/generic"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func dateStrings(dates []generic.Date) []string {
	out := make([]string, len(dates))
	for i, d := range dates {
		out[i] = d.String()
	}
	return out
}

func TestExpandRRule(t *testing.T) {
	monday := generic.MustParseDate("2025-03-10")

	tests := []struct {
		name string
		rule string
		want []string
	}{
		{
			name: "weekly on two days",
			rule: "FREQ=WEEKLY;BYDAY=MO,WE;COUNT=4",
			want: []string{"2025-03-10", "2025-03-12", "2025-03-17", "2025-03-19"},
		},
		{
			name: "prefix accepted",
			rule: "RRULE:FREQ=DAILY;COUNT=3",
			want: []string{"2025-03-10", "2025-03-11", "2025-03-12"},
		},
		{
			name: "first occurrence after the start date",
			rule: "FREQ=WEEKLY;BYDAY=FR;COUNT=2",
			want: []string{"2025-03-14", "2025-03-21"},
		},
		{
			name: "until is inclusive",
			rule: "FREQ=WEEKLY;UNTIL=20250324T000000Z",
			want: []string{"2025-03-10", "2025-03-17", "2025-03-24"},
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			dates, err := expandRRule(tt.rule, monday)
			require.NoError(t, err)
			assert.Equal(t, tt.want, dateStrings(dates))
		})
	}
}

func TestExpandRRule_Bounds(t *testing.T) {
	monday := generic.MustParseDate("2025-03-10")

	// GIVEN: An endless daily rule
	dates, err := expandRRule("FREQ=DAILY", monday)

	// THEN: It is cut at the occurrence cap
	require.NoError(t, err)
	assert.Len(t, dates, maxPlanOccurrences)

	// GIVEN: An endless yearly rule
	dates, err = expandRRule("FREQ=YEARLY", monday)

	// THEN: It is cut at the planning horizon
	require.NoError(t, err)
	assert.Equal(t, []string{"2025-03-10", "2026-03-10"}, dateStrings(dates))

	_, err = expandRRule("FREQ=SOMETIMES", monday)
	assert.Error(t, err)
}

func TestPlanShifts_RefusesPastTheWeeklyMaximum(t *testing.T) {
	// GIVEN: A 10h day repeated five days in a row from Monday
	_, router := setupTestHandler(t)
	createContract(t, router, "c1", "employer-1", "emp-1")
	s := effectiveShift("c1", "2025-03-10", "08:00", "18:30")
	s.BreakMinutes = 30
	s.AcknowledgeWarnings = true

	// WHEN: Previewing the plan
	rec := doRequest(t, router, http.MethodPost, "/api/shifts/plan", PlanRequest{
		Shift: s,
		RRule: "FREQ=DAILY;COUNT=5",
	})

	// THEN: Four days fit, the fifth would reach 50h
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	plan := decodeBody[PlanResponse](t, rec)
	require.Len(t, plan.Occurrences, 5)
	assert.Equal(t, 4, plan.Accepted)
	assert.Equal(t, 1, plan.Refused)
	assert.False(t, plan.Committed)

	last := plan.Occurrences[4]
	assert.Equal(t, "2025-03-14", last.Date.String())
	assert.False(t, last.Accepted)
	assert.Nil(t, last.Shift)
	assert.True(t, last.Validation.Has(agreement.CodeWeeklyHoursExceeded))

	first := plan.Occurrences[0]
	require.NotNil(t, first.Shift)
	assert.True(t, first.Validation.Has(agreement.CodeDailyHoursNearLimit))
	assert.NotNil(t, first.Shift.ComputedPay)

	// AND: A preview stores nothing
	list := doRequest(t, router, http.MethodGet, "/api/contracts/c1/shifts", nil)
	assert.Empty(t, decodeBody[map[string][]ShiftDTO](t, list)["shifts"])
}

func TestPlanShifts_CommitStoresAcceptedOccurrences(t *testing.T) {
	_, router := setupTestHandler(t)
	createContract(t, router, "c1", "employer-1", "emp-1")

	rec := doRequest(t, router, http.MethodPost, "/api/shifts/plan", PlanRequest{
		Shift:  effectiveShift("c1", "2025-03-10", "08:00", "12:00"),
		RRule:  "FREQ=WEEKLY;BYDAY=MO,WE,FR;COUNT=3",
		Commit: true,
	})

	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())
	plan := decodeBody[PlanResponse](t, rec)
	assert.Equal(t, 3, plan.Accepted)
	assert.True(t, plan.Committed)

	list := doRequest(t, router, http.MethodGet, "/api/contracts/c1/shifts", nil)
	assert.Len(t, decodeBody[map[string][]ShiftDTO](t, list)["shifts"], 3)
}

func TestPlanShifts_UnacknowledgedWarningsAreRefused(t *testing.T) {
	_, router := setupTestHandler(t)
	createContract(t, router, "c1", "employer-1", "emp-1")

	// 7h without a break every day
	rec := doRequest(t, router, http.MethodPost, "/api/shifts/plan", PlanRequest{
		Shift: effectiveShift("c1", "2025-03-10", "08:00", "15:00"),
		RRule: "FREQ=DAILY;COUNT=2",
	})

	require.Equal(t, http.StatusOK, rec.Code)
	plan := decodeBody[PlanResponse](t, rec)
	assert.Equal(t, 0, plan.Accepted)
	assert.Equal(t, 2, plan.Refused)
}

func TestPlanShifts_BadRequests(t *testing.T) {
	_, router := setupTestHandler(t)
	createContract(t, router, "c1", "employer-1", "emp-1")

	rec := doRequest(t, router, http.MethodPost, "/api/shifts/plan", PlanRequest{
		Shift: effectiveShift("c1", "2025-03-10", "08:00", "12:00"),
		RRule: "FREQ=NEVER",
	})
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	rec = doRequest(t, router, http.MethodPost, "/api/shifts/plan", PlanRequest{
		Shift: effectiveShift("c1", "2025-03-10", "08:00", "12:00"),
	})
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	rec = doRequest(t, router, http.MethodPost, "/api/shifts/plan", PlanRequest{
		Shift: effectiveShift("missing", "2025-03-10", "08:00", "12:00"),
		RRule: "FREQ=DAILY;COUNT=1",
	})
	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestPlanShifts_MalformedShiftIsRefused(t *testing.T) {
	_, router := setupTestHandler(t)
	createContract(t, router, "c1", "employer-1", "emp-1")
	s := effectiveShift("c1", "2025-03-10", "06:00", "07:00")
	s.BreakMinutes = 120
	s.AcknowledgeWarnings = true

	rec := doRequest(t, router, http.MethodPost, "/api/shifts/plan", PlanRequest{
		Shift:  s,
		RRule:  "FREQ=DAILY;COUNT=3",
		Commit: true,
	})

	assert.Equal(t, http.StatusBadRequest, rec.Code, rec.Body.String())
	list := doRequest(t, router, http.MethodGet, "/api/contracts/c1/shifts", nil)
	assert.Empty(t, decodeBody[map[string][]ShiftDTO](t, list)["shifts"])
}
