/*
scenarios_test.go - Tests for demo scenarios and the accrual scheduler

Each scenario is loaded through the API and checked against the weekly
compliance overview of the demo employer.
*/
package api

import (
	"bytes"
	"context"
	"net/http"
	"testing"
	"time"

	"github.com/carework/shift-engine/compliance"
	"github.com/carework/shift-engine/generic"
	"github.com/carework/shift-engine/leave"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func loadScenario(t *testing.T, router http.Handler, id string) {
	t.Helper()
	rec := doRequest(t, router, http.MethodPost, "/api/scenarios/load", LoadScenarioRequest{ScenarioID: id})
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
}

func overview(t *testing.T, router http.Handler) compliance.Overview {
	t.Helper()
	rec := doRequest(t, router, http.MethodGet, "/api/employers/"+string(demoEmployer)+"/compliance", nil)
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	return decodeBody[compliance.Overview](t, rec)
}

func employeeLine(t *testing.T, ov compliance.Overview, employeeID string) compliance.EmployeeWeek {
	t.Helper()
	for _, e := range ov.Employees {
		if string(e.EmployeeID) == employeeID {
			return e
		}
	}
	t.Fatalf("employee %s not in overview", employeeID)
	return compliance.EmployeeWeek{}
}

func TestScenario_AllScenariosLoadWithoutError(t *testing.T) {
	_, router := setupTestHandler(t)

	for _, s := range scenarios {
		t.Run(s.ID, func(t *testing.T) {
			loadScenario(t, router, s.ID)

			rec := doRequest(t, router, http.MethodGet, "/api/scenarios/current", nil)
			require.Equal(t, http.StatusOK, rec.Code)
			assert.Equal(t, s.ID, decodeBody[ScenarioDTO](t, rec).ID)
		})
	}
}

func TestScenario_UnknownAndReset(t *testing.T) {
	_, router := setupTestHandler(t)

	rec := doRequest(t, router, http.MethodPost, "/api/scenarios/load", LoadScenarioRequest{ScenarioID: "nope"})
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	loadScenario(t, router, "regular-week")
	rec = doRequest(t, router, http.MethodPost, "/api/scenarios/reset", nil)
	require.Equal(t, http.StatusOK, rec.Code)

	rec = doRequest(t, router, http.MethodGet, "/api/scenarios/current", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "null", string(bytes.TrimSpace(rec.Body.Bytes())))
	assert.Empty(t, overview(t, router).Employees)
}

func TestScenario_RegularWeek(t *testing.T) {
	// GIVEN: The regular week
	_, router := setupTestHandler(t)
	loadScenario(t, router, "regular-week")

	// WHEN: Reading this week's overview
	ov := overview(t, router)

	// THEN: Both carers are compliant
	assert.Equal(t, "2025-03-10", ov.WeekStart.String())
	assert.Equal(t, 2, ov.Summary.Employees)
	assert.Equal(t, 0, ov.Summary.Critical)

	marie := employeeLine(t, ov, "emp-marie")
	assert.Equal(t, 4, marie.ShiftCount)
	assert.True(t, marie.WorkedHours.Equal(decimal.NewFromInt(24)), marie.WorkedHours.String())
}

func TestScenario_OverLimit(t *testing.T) {
	// GIVEN: A 50h week and a short night's rest
	_, router := setupTestHandler(t)
	loadScenario(t, router, "over-limit")

	// WHEN: Reading this week's overview
	ov := overview(t, router)

	// THEN: Both employees are critical, each for its own reason
	assert.Equal(t, 2, ov.Summary.Critical)

	paul := employeeLine(t, ov, "emp-paul")
	assert.Equal(t, compliance.StatusCritical, paul.Status)
	assert.True(t, hasCode(paul.Findings, "WEEKLY_HOURS_EXCEEDED"))

	sofia := employeeLine(t, ov, "emp-sofia")
	assert.Equal(t, compliance.StatusCritical, sofia.Status)
	assert.True(t, hasCode(sofia.Findings, "DAILY_REST_INSUFFICIENT"))
}

func hasCode(findings []compliance.Finding, code string) bool {
	for _, f := range findings {
		if string(f.Code) == code {
			return true
		}
	}
	return false
}

func TestScenario_NightCare(t *testing.T) {
	// GIVEN: The night care scenario
	_, router := setupTestHandler(t)
	loadScenario(t, router, "night-care")

	// WHEN: Listing Léa's shifts
	rec := doRequest(t, router, http.MethodGet, "/api/contracts/contract-lea/shifts", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	shifts := decodeBody[map[string][]ShiftDTO](t, rec)["shifts"]

	// THEN: Only the busy night is requalified, and every shift is priced
	require.Len(t, shifts, 4)
	requalified := 0
	for _, s := range shifts {
		require.NotNil(t, s.ComputedPay, s.ID)
		if s.IsRequalified {
			requalified++
			assert.Equal(t, 3, s.NightInterventions)
		}
	}
	assert.Equal(t, 1, requalified)
}

func TestScenario_PaidLeave(t *testing.T) {
	// GIVEN: The paid leave scenario
	h, router := setupTestHandler(t)
	loadScenario(t, router, "paid-leave")

	// THEN: October to February were accrued, plus the opening
	// adjustment, and the sick leave took nothing
	view, err := h.leaveService(context.Background()).Balance(context.Background(), "emp-nora", h.today())
	require.NoError(t, err)
	assert.True(t, view.AcquiredDays.Equal(generic.MustDecimal("12.5")), view.AcquiredDays.String())
	assert.True(t, view.RemainingDays.Equal(generic.MustDecimal("17.5")), view.RemainingDays.String())
	assert.True(t, view.TakenDays.IsZero())

	// AND: The Thursday shift conflicts with the approved sick leave
	ov := overview(t, router)
	nora := employeeLine(t, ov, "emp-nora")
	assert.True(t, hasCode(nora.Findings, "ABSENCE_CONFLICT"))
}

// =============================================================================
// ACCRUAL SCHEDULER
// =============================================================================

func TestAccrualScheduler_RunNow(t *testing.T) {
	// GIVEN: An active contract
	h, router := setupTestHandler(t)
	createContract(t, router, "c1", "employer-1", "emp-1")
	s := NewAccrualScheduler(h)

	// WHEN: Running twice
	s.RunNow()
	s.RunNow()

	// THEN: The last complete month is credited once and one run is kept
	runs, err := h.Store.AccrualRuns(context.Background(), 10)
	require.NoError(t, err)
	require.Len(t, runs, 1)
	assert.Equal(t, "2025-02-01", runs[0].Month.String())
	assert.Equal(t, leave.RunCompleted, runs[0].Status)
	assert.Equal(t, 1, runs[0].Credited)
}

func TestAccrualScheduler_StartStop(t *testing.T) {
	h, _ := setupTestHandler(t)

	disabled := NewAccrualScheduler(h)
	disabled.Enabled = false
	disabled.Start()
	disabled.Stop()

	s := NewAccrualScheduler(h)
	s.CheckInterval = time.Hour
	s.Start()
	s.Start()
	s.Stop()
	s.Stop()

	assert.WithinDuration(t, time.Now().Add(time.Hour), s.GetNextRunTime(), time.Minute)
}
