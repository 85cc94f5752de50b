package compliance_test

import (
	"context"
	"errors"
	"testing"

	"github.com/carework/shift-engine/compliance"
	"github.com/carework/shift-engine/generic"
	"github.com/carework/shift-engine/shift"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeSource struct {
	contracts []shift.Contract
	shifts    []shift.Shift
	absences  []compliance.Absence
	err       error

	lastFrom, lastTo generic.Date
}

func (f *fakeSource) ActiveContracts(context.Context, generic.EmployerID) ([]shift.Contract, error) {
	return f.contracts, f.err
}

func (f *fakeSource) ShiftsBetween(_ context.Context, _ generic.EmployerID, from, to generic.Date) ([]shift.Shift, error) {
	f.lastFrom, f.lastTo = from, to
	var out []shift.Shift
	for _, s := range f.shifts {
		if s.Date.AfterOrEqual(from) && s.Date.BeforeOrEqual(to) {
			out = append(out, s)
		}
	}
	return out, nil
}

func (f *fakeSource) ApprovedAbsencesBetween(context.Context, generic.EmployerID, generic.Date, generic.Date) ([]compliance.Absence, error) {
	return f.absences, nil
}

func twoEmployees() *fakeSource {
	bob := work("b-1", tuesday, "09:00", "13:00", 0)
	bob.ContractID, bob.EmployeeID = "contract-2", "emp-2"

	return &fakeSource{
		contracts: []shift.Contract{
			{ID: "contract-1", EmployerID: "employer-1", EmployeeID: "emp-1", EmployeeName: "Alice", WeeklyContractHours: decimal.NewFromInt(35), Active: true},
			{ID: "contract-2", EmployerID: "employer-1", EmployeeID: "emp-2", EmployeeName: "Bob", WeeklyContractHours: decimal.NewFromInt(20), Active: true},
		},
		shifts: []shift.Shift{
			work("a-1", monday, "08:00", "12:00", 0),
			work("a-2", monday, "11:00", "14:00", 0),
			bob,
		},
	}
}

func TestWeekBounds(t *testing.T) {
	start, end := compliance.WeekBounds(generic.MustParseDate(thursday))

	assert.Equal(t, monday, start.String())
	assert.Equal(t, sunday, end.String())
}

func TestAggregator_Overview(t *testing.T) {
	// GIVEN: Alice has two overlapping shifts, Bob one clean shift
	// WHEN: computing the overview from a Thursday
	// THEN: Alice is critical, Bob is ok, hours are summed

	src := twoEmployees()
	ag := compliance.NewAggregator(src, newValidator())

	ov := ag.Overview(context.Background(), "employer-1", generic.MustParseDate(thursday))

	assert.False(t, ov.Degraded)
	assert.Equal(t, monday, ov.WeekStart.String())
	assert.Equal(t, "2025-03-03", src.lastFrom.String(), "fetch starts one week earlier")
	assert.Equal(t, nextMon, src.lastTo.String(), "fetch ends one day later")

	require.Len(t, ov.Employees, 2)
	alice, bob := ov.Employees[0], ov.Employees[1]
	assert.Equal(t, "Alice", alice.EmployeeName)
	assert.Equal(t, compliance.StatusCritical, alice.Status)
	assert.Equal(t, 2, alice.ShiftCount)
	assert.True(t, decimal.NewFromInt(7).Equal(alice.WorkedHours))
	assert.Len(t, alice.Findings, 1, "the overlap is reported once")

	assert.Equal(t, compliance.StatusOK, bob.Status)
	assert.True(t, decimal.NewFromInt(4).Equal(bob.WorkedHours))

	assert.Equal(t, 2, ov.Summary.Employees)
	assert.Equal(t, 1, ov.Summary.Critical)
	assert.Equal(t, 1, ov.Summary.OK)
	assert.True(t, decimal.NewFromInt(11).Equal(ov.Summary.TotalHours))
}

func TestAggregator_FetchFailureDegradesToEmpty(t *testing.T) {
	src := twoEmployees()
	src.err = errors.New("connection reset")
	ag := compliance.NewAggregator(src, newValidator())

	ov := ag.Overview(context.Background(), "employer-1", generic.MustParseDate(thursday))

	assert.True(t, ov.Degraded)
	assert.Empty(t, ov.Employees)
	assert.Equal(t, 0, ov.Summary.Employees)
	assert.True(t, ov.Summary.TotalHours.IsZero())
}

func TestAggregator_HistoryOldestFirst(t *testing.T) {
	ag := compliance.NewAggregator(twoEmployees(), newValidator())

	weeks := ag.History(context.Background(), "employer-1", generic.MustParseDate(thursday), 3)

	require.Len(t, weeks, 3)
	assert.Equal(t, "2025-02-24", weeks[0].WeekStart.String())
	assert.Equal(t, "2025-03-03", weeks[1].WeekStart.String())
	assert.Equal(t, monday, weeks[2].WeekStart.String())
	assert.Equal(t, 0, weeks[0].Employees[0].ShiftCount)
	assert.Equal(t, 2, weeks[2].Employees[0].ShiftCount)
}
