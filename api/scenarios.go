/*
scenarios.go - Demo scenario loaders for testing and demonstrations

PURPOSE:

	Provides pre-built scenarios that populate the database with realistic
	data for demos. Each scenario creates contracts, shifts and absences
	placed in the current week, so the compliance overview shows them
	without choosing a date.

AVAILABLE SCENARIOS:

	regular-week:    Two part-time employees, compliant day shifts
	night-care:      Night presence (one requalified) and a 24h guard
	over-limit:      Weekly ceiling breached, rest periods too short
	paid-leave:      Leave balance, an approved sick leave overlapping a
	                 shift, a pending paid-leave request

HOW SCENARIOS WORK:
 1. Reset database (clear all data)
 2. Create contracts
 3. Seed shifts directly, priced like created ones but never refused:
    they stand for history imported from elsewhere, compliant or not
 4. Optionally credit leave and record absences through leave.Service

USAGE VIA API:

	POST /api/scenarios/load
	{"scenario_id": "over-limit"}

ADDING NEW SCENARIOS:
 1. Add to 'scenarios' slice with ID, name, description
 2. Create loader function: loadXxxScenario(ctx)
 3. Add it to the loaders map

NOTE:

	Scenarios reset the database. Only use in development/demo environments.

SEE ALSO:
  - handlers.go: ResetDatabase
  - payroll/record.go: NewRecord
*/
package api

import (
	"context"
	"fmt"
	"net/http"

	"github.com/carework/shift-engine/generic"
	"github.com/carework/shift-engine/leave"
	"github.com/carework/shift-engine/payroll"
	"github.com/carework/shift-engine/shift"
	"github.com/shopspring/decimal"
)

// =============================================================================
// SCENARIO DEFINITIONS
// =============================================================================

const demoEmployer generic.EmployerID = "employer-demo"

var scenarios = []ScenarioDTO{
	{
		ID:          "regular-week",
		Name:        "Regular Week",
		Description: "Two part-time carers with compliant day shifts",
		Category:    "compliance",
	},
	{
		ID:          "night-care",
		Name:        "Night Care",
		Description: "Night presence, a requalified night and a Sunday 24h guard",
		Category:    "payroll",
	},
	{
		ID:          "over-limit",
		Name:        "Over Limit",
		Description: "A 50h week and a night followed by an early start",
		Category:    "compliance",
	},
	{
		ID:          "paid-leave",
		Name:        "Paid Leave",
		Description: "Accrued balance, sick leave overlapping a shift, pending paid leave",
		Category:    "leave",
	},
}

func (h *Handler) scenarioLoaders() map[string]func(context.Context) error {
	return map[string]func(context.Context) error{
		"regular-week": h.loadRegularWeekScenario,
		"night-care":   h.loadNightCareScenario,
		"over-limit":   h.loadOverLimitScenario,
		"paid-leave":   h.loadPaidLeaveScenario,
	}
}

// ListScenarios returns available scenarios.
// GET /api/scenarios
func (h *Handler) ListScenarios(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, scenarios)
}

// GetCurrentScenario returns the currently loaded scenario, if any.
// GET /api/scenarios/current
func (h *Handler) GetCurrentScenario(w http.ResponseWriter, r *http.Request) {
	h.mu.Lock()
	current := h.currentScenario
	h.mu.Unlock()

	if current == "" {
		writeJSON(w, http.StatusOK, nil)
		return
	}
	for _, s := range scenarios {
		if s.ID == current {
			writeJSON(w, http.StatusOK, s)
			return
		}
	}
	writeJSON(w, http.StatusOK, ScenarioDTO{ID: current, Name: current})
}

// LoadScenario resets the database and loads a predefined scenario.
// POST /api/scenarios/load
func (h *Handler) LoadScenario(w http.ResponseWriter, r *http.Request) {
	var req LoadScenarioRequest
	if !h.decodeAndValidate(w, r, &req) {
		return
	}
	load, ok := h.scenarioLoaders()[req.ScenarioID]
	if !ok {
		writeError(w, http.StatusBadRequest, "Unknown scenario", nil)
		return
	}

	ctx := r.Context()
	h.mu.Lock()
	defer h.mu.Unlock()

	if err := h.Store.Reset(ctx); err != nil {
		writeError(w, http.StatusInternalServerError, "Failed to reset database", err)
		return
	}
	h.currentScenario = ""

	if err := load(ctx); err != nil {
		writeError(w, http.StatusInternalServerError, fmt.Sprintf("Failed to load scenario: %v", err), err)
		return
	}
	h.currentScenario = req.ScenarioID
	h.logger.Info("scenario loaded", "scenario", req.ScenarioID)

	writeJSON(w, http.StatusOK, map[string]string{"status": "loaded", "scenario": req.ScenarioID})
}

// =============================================================================
// SEEDING HELPERS
// =============================================================================

func demoContract(id, employee, name string, weeklyHours, rate string) shift.Contract {
	return shift.Contract{
		ID:                  generic.ContractID(id),
		EmployerID:          demoEmployer,
		EmployeeID:          generic.EmployeeID(employee),
		EmployeeName:        name,
		WeeklyContractHours: generic.MustDecimal(weeklyHours),
		HourlyRate:          generic.MustDecimal(rate),
		Active:              true,
	}
}

// demoShift is a shift of c on day offset of the current week (0 = Monday).
func (h *Handler) demoShift(c shift.Contract, offset int, start, end string, kind shift.Kind) shift.Shift {
	return shift.Shift{
		ID:         fmt.Sprintf("%s-d%d-%s", c.ID, offset, start),
		ContractID: c.ID,
		EmployeeID: c.EmployeeID,
		Date:       generic.WeekOf(h.today()).Start.AddDays(offset),
		Start:      generic.MustParseClock(start),
		End:        generic.MustParseClock(end),
		Kind:       kind,
	}
}

// seed stores the contract and its shifts, in order, priced against the
// shifts seeded before them.
func (h *Handler) seed(ctx context.Context, c shift.Contract, shifts ...shift.Shift) error {
	if err := h.Store.SaveContract(ctx, c); err != nil {
		return err
	}
	calc := h.calculator(ctx)
	var before []shift.Shift
	for _, s := range shifts {
		rec, err := calc.NewRecord(payroll.PayInput{
			Shift:       s,
			Contract:    c,
			HoursBefore: payroll.HoursBefore(h.Agreement, s, before),
		}, h.now())
		if err != nil {
			h.logger.Warn("seeded shift has no pay", "shift_id", s.ID, "error", err)
		}
		if err := h.Store.SaveShift(ctx, rec); err != nil {
			return fmt.Errorf("seed shift %s: %w", s.ID, err)
		}
		before = append(before, s)
	}
	return nil
}

// =============================================================================
// SCENARIO LOADERS
// =============================================================================

func (h *Handler) loadRegularWeekScenario(ctx context.Context) error {
	marie := demoContract("contract-marie", "emp-marie", "Marie Dupont", "24", "13.50")
	karim := demoContract("contract-karim", "emp-karim", "Karim Benali", "20", "14.00")

	var marieShifts []shift.Shift
	for day := 0; day < 4; day++ {
		marieShifts = append(marieShifts, h.demoShift(marie, day, "08:00", "14:00", shift.KindEffective))
	}
	if err := h.seed(ctx, marie, marieShifts...); err != nil {
		return err
	}

	afternoon := h.demoShift(karim, 1, "14:00", "19:00", shift.KindEffective)
	presence := h.demoShift(karim, 3, "09:00", "18:00", shift.KindDayPresence)
	saturday := h.demoShift(karim, 5, "09:00", "13:00", shift.KindEffective)
	return h.seed(ctx, karim, afternoon, presence, saturday)
}

func (h *Handler) loadNightCareScenario(ctx context.Context) error {
	lea := demoContract("contract-lea", "emp-lea", "Léa Martin", "35", "13.20")

	quiet := h.demoShift(lea, 0, "21:00", "07:00", shift.KindNightPresence)
	quiet.NightInterventions = 1

	busy := h.demoShift(lea, 2, "21:00", "07:00", shift.KindNightPresence)
	busy.NightInterventions = 3

	evening := h.demoShift(lea, 4, "18:00", "23:30", shift.KindEffective)
	evening.HadNightAction = true

	guard := h.demoShift(lea, 6, "08:00", "08:00", shift.KindGuard24h)
	shift.DefaultGuardPlan(guard.Start, h.Agreement.NightWindow).ApplyTo(&guard)

	return h.seed(ctx, lea, quiet, busy, evening, guard)
}

func (h *Handler) loadOverLimitScenario(ctx context.Context) error {
	paul := demoContract("contract-paul", "emp-paul", "Paul Leroy", "35", "12.80")
	sofia := demoContract("contract-sofia", "emp-sofia", "Sofia Rossi", "30", "13.00")

	// 5 x 10h = 50h
	var paulShifts []shift.Shift
	for day := 0; day < 5; day++ {
		s := h.demoShift(paul, day, "07:00", "17:30", shift.KindEffective)
		s.BreakMinutes = 30
		paulShifts = append(paulShifts, s)
	}
	if err := h.seed(ctx, paul, paulShifts...); err != nil {
		return err
	}

	// 8h of rest between the late shift and the next morning
	late := h.demoShift(sofia, 1, "14:00", "23:00", shift.KindEffective)
	late.BreakMinutes = 30
	early := h.demoShift(sofia, 2, "07:00", "12:00", shift.KindEffective)
	return h.seed(ctx, sofia, late, early)
}

func (h *Handler) loadPaidLeaveScenario(ctx context.Context) error {
	nora := demoContract("contract-nora", "emp-nora", "Nora Haddad", "28", "13.80")
	monday := generic.WeekOf(h.today()).Start

	thursday := h.demoShift(nora, 3, "09:00", "15:00", shift.KindEffective)
	if err := h.seed(ctx, nora, h.demoShift(nora, 0, "09:00", "15:00", shift.KindEffective), thursday); err != nil {
		return err
	}

	svc := h.leaveService(ctx)
	month := leave.AccruedMonth(h.today())
	for i := 0; i < 5; i++ {
		if _, err := svc.Accrue(ctx, nora.EmployeeID, month.AddMonths(-i)); err != nil {
			return err
		}
	}

	sick, err := svc.Submit(ctx, leave.Absence{
		EmployerID: demoEmployer,
		EmployeeID: nora.EmployeeID,
		Kind:       leave.KindSick,
		Period:     generic.Period{Start: monday.AddDays(3), End: monday.AddDays(4)},
		Reason:     "medical certificate",
	})
	if err != nil {
		return err
	}
	if _, err := svc.Approve(ctx, sick.ID); err != nil {
		return err
	}

	// the request falls in next week; make sure its leave year has room
	next := generic.Period{Start: monday.AddDays(7), End: monday.AddDays(11)}
	if _, err := svc.Adjust(ctx, nora.EmployeeID, next.Start, decimal.NewFromInt(5), "opening balance"); err != nil {
		return err
	}
	_, err = svc.Submit(ctx, leave.Absence{
		EmployerID: demoEmployer,
		EmployeeID: nora.EmployeeID,
		Kind:       leave.KindPaidLeave,
		Period:     next,
	})
	return err
}
