/*
handlers.go - HTTP API handlers for the shift compliance and payroll engine

PURPOSE:
  Exposes the engine via REST API. Handles HTTP request/response, JSON
  serialization, and delegates to the domain packages (compliance,
  payroll, leave). Handlers hold no domain rules of their own.

ENDPOINTS:
  Contracts:
    POST   /api/contracts                     Create or replace a contract
    GET    /api/contracts/{id}                Get contract
    GET    /api/contracts/{id}/shifts         Stored shifts (?from=&to=)

  Shifts:
    POST   /api/shifts/validate               Full validation
    POST   /api/shifts/quick-validate         Overlap + daily ceiling only
    POST   /api/shifts/price                  Validation + computed pay, nothing stored
    POST   /api/shifts                        Create (acknowledgment flow)
    GET    /api/shifts/{id}                   Get stored shift
    PUT    /api/shifts/{id}                   Edit (same flow, last write wins)
    POST   /api/shifts/plan                   Recurring planning (planning.go)

  Compliance:
    GET    /api/employers/{id}/compliance          Weekly overview (?date=)
    GET    /api/employers/{id}/compliance/history  Past weeks (?date=&weeks=)

  Leave:
    GET    /api/employees/{id}/leave-balance       Balance (?date=)
    GET    /api/employees/{id}/leave-movements     Audit trail (?date=)
    POST   /api/employees/{id}/leave-adjustments   Manual correction
    POST   /api/employees/{id}/absences            Submit absence (pending)
    POST   /api/absences/{id}/approve
    POST   /api/absences/{id}/reject
    GET    /api/leave/accrual-runs                 Run history
    POST   /api/leave/accrual-runs                 Credit a month now

  Reference:
    GET    /api/benefits/envelope             ?mode=&hours=
    GET    /api/holidays                      ?year=&company_id=
    POST   /api/holidays                      Declare a holiday
    GET    /api/agreement                     Effective agreement values

SHIFT CREATION FLOW:
  1. Validate the candidate against the employee's history
  2. Any blocking error: 422 with the validation result
  3. Warnings without acknowledge_warnings: 409 with the validation result
  4. Price the shift; a pricing failure stores computed_pay = null
  5. Persist the shift with its effective hours and requalification flag

ERROR HANDLING:
  Errors are returned as JSON with appropriate HTTP status:
  - 400: Validation errors, invalid input
  - 404: Resource not found
  - 409: Unacknowledged warnings, invalid absence transition
  - 422: Blocking compliance errors, insufficient leave balance
  - 500: Internal errors

SECURITY NOTE:
  No authentication or authorization. Identity is the caller's concern.

SEE ALSO:
  - dto.go: Request/response data structures
  - planning.go: Recurring shift planning
  - scenarios.go: Demo scenario loaders
  - server.go: Router setup and middleware
*/
package api

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/carework/shift-engine/agreement"
	"github.com/carework/shift-engine/compliance"
	"github.com/carework/shift-engine/generic"
	"github.com/carework/shift-engine/leave"
	"github.com/carework/shift-engine/payroll"
	"github.com/carework/shift-engine/shift"
	"github.com/go-chi/chi/v5"
	"github.com/go-playground/validator/v10"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// =============================================================================
// HANDLER CONTEXT
// =============================================================================

// Handler holds all dependencies for HTTP handlers.
type Handler struct {
	Store     Store
	Agreement agreement.Agreement
	Benefits  payroll.BenefitRates

	validator  *compliance.Validator
	aggregator *compliance.Aggregator
	validate   *validator.Validate
	logger     *slog.Logger
	now        func() time.Time

	// Track currently loaded scenario
	mu              sync.Mutex
	currentScenario string
}

// NewHandler creates a handler over store, applying agreement a.
func NewHandler(store Store, a agreement.Agreement) *Handler {
	v := compliance.NewValidator(a)
	return &Handler{
		Store:      store,
		Agreement:  a,
		Benefits:   payroll.DefaultBenefitRates(),
		validator:  v,
		aggregator: compliance.NewAggregator(store, v),
		validate:   newValidator(),
		logger:     slog.Default().With("component", "api"),
		now:        time.Now,
	}
}

// calculator prices under the agreement and the holidays of the store.
func (h *Handler) calculator(ctx context.Context) *payroll.Calculator {
	return payroll.NewCalculator(h.Agreement, h.holidayCalendar(ctx))
}

func (h *Handler) leaveService(ctx context.Context) *leave.Service {
	engine := leave.NewEngine(h.Agreement, h.holidayCalendar(ctx))
	return leave.NewService(h.Store, engine)
}

func (h *Handler) today() generic.Date { return generic.DateOf(h.now()) }

// loadHistory is the compliance.HistoryLoader of the API: every shift and
// approved absence of the contract's employee inside window.
func (h *Handler) loadHistory(ctx context.Context, contractID generic.ContractID, window generic.Period) (compliance.History, error) {
	c, err := h.Store.GetContract(ctx, contractID)
	if err != nil {
		return compliance.History{}, err
	}
	shifts, err := h.Store.EmployeeShiftsBetween(ctx, c.EmployeeID, window.Start, window.End)
	if err != nil {
		return compliance.History{}, err
	}
	absences, err := h.Store.EmployeeAbsencesBetween(ctx, c.EmployeeID, window.Start, window.End)
	if err != nil {
		return compliance.History{}, err
	}
	return compliance.History{Shifts: shifts, Absences: absences}, nil
}

// =============================================================================
// CONTRACT HANDLERS
// =============================================================================

// CreateContract creates or replaces a contract.
// POST /api/contracts
func (h *Handler) CreateContract(w http.ResponseWriter, r *http.Request) {
	var req ContractRequest
	if !h.decodeAndValidate(w, r, &req) {
		return
	}
	if req.WeeklyContractHours.IsNegative() || req.HourlyRate.IsNegative() {
		writeError(w, http.StatusBadRequest, "Hours and rate cannot be negative", nil)
		return
	}

	c := shift.Contract{
		ID:                  generic.ContractID(req.ID),
		EmployerID:          generic.EmployerID(req.EmployerID),
		EmployeeID:          generic.EmployeeID(req.EmployeeID),
		EmployeeName:        req.EmployeeName,
		WeeklyContractHours: req.WeeklyContractHours,
		HourlyRate:          req.HourlyRate,
		Active:              req.Active == nil || *req.Active,
	}
	if c.ID == "" {
		c.ID = generic.ContractID(uuid.New().String())
	}

	if err := h.Store.SaveContract(r.Context(), c); err != nil {
		writeError(w, http.StatusInternalServerError, "Failed to save contract", err)
		return
	}
	writeJSON(w, http.StatusCreated, toContractDTO(c))
}

// GetContract returns a contract.
// GET /api/contracts/{id}
func (h *Handler) GetContract(w http.ResponseWriter, r *http.Request) {
	c, err := h.Store.GetContract(r.Context(), generic.ContractID(chi.URLParam(r, "id")))
	if err != nil {
		writeStoreError(w, "Contract", err)
		return
	}
	writeJSON(w, http.StatusOK, toContractDTO(c))
}

// ListContractShifts returns the stored shifts of a contract, by default
// those of the current week.
// GET /api/contracts/{id}/shifts?from=&to=
func (h *Handler) ListContractShifts(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	id := generic.ContractID(chi.URLParam(r, "id"))

	week := generic.WeekOf(h.today())
	from, err := dateParam(r, "from", week.Start)
	if err != nil {
		writeError(w, http.StatusBadRequest, "Invalid from date (use YYYY-MM-DD)", err)
		return
	}
	to, err := dateParam(r, "to", week.End)
	if err != nil {
		writeError(w, http.StatusBadRequest, "Invalid to date (use YYYY-MM-DD)", err)
		return
	}
	if to.Before(from) {
		writeError(w, http.StatusBadRequest, "to must not be before from", generic.ErrInvalidPeriod)
		return
	}

	if _, err := h.Store.GetContract(ctx, id); err != nil {
		writeStoreError(w, "Contract", err)
		return
	}
	recs, err := h.Store.ContractShifts(ctx, id, from, to)
	if err != nil {
		writeError(w, http.StatusInternalServerError, "Failed to list shifts", err)
		return
	}
	dtos := make([]ShiftDTO, len(recs))
	for i, rec := range recs {
		dtos[i] = toShiftDTO(rec)
	}
	writeJSON(w, http.StatusOK, map[string]any{"shifts": dtos})
}

// =============================================================================
// SHIFT EVALUATION
// =============================================================================

// evaluation is a candidate shift checked against its history.
type evaluation struct {
	contract  shift.Contract
	candidate shift.Shift
	history   compliance.History
	result    compliance.Result
}

// evaluate resolves the contract, builds the candidate and validates it.
// Rule failures are part of the result (VALIDATION_ERROR) and only logged.
func (h *Handler) evaluate(ctx context.Context, session *compliance.EditSession, req ShiftRequest) (evaluation, error) {
	c, err := h.Store.GetContract(ctx, generic.ContractID(req.ContractID))
	if err != nil {
		if generic.IsNotFound(err) {
			return evaluation{}, &requestError{Status: http.StatusNotFound, Message: "Contract not found", Err: err}
		}
		return evaluation{}, err
	}
	candidate, err := req.toShift(c)
	if err != nil {
		return evaluation{}, &requestError{Status: http.StatusBadRequest, Message: "Invalid shift", Err: err}
	}

	result, verr := session.Validate(ctx, h.validator, candidate)
	if verr != nil && !errors.As(verr, new(*compliance.ValidationError)) {
		return evaluation{}, fmt.Errorf("failed to load shift history: %w", verr)
	}
	if verr != nil {
		h.logger.Warn("shift validated with errors", "contract_id", c.ID, "date", candidate.Date, "error", verr)
	}

	// cached by the session: same contract, same window
	hist, err := session.History(ctx, c.ID, compliance.WindowFor(candidate.Date))
	if err != nil {
		return evaluation{}, fmt.Errorf("failed to load shift history: %w", err)
	}
	return evaluation{contract: c, candidate: candidate, history: hist, result: result}, nil
}

// price derives the record of an evaluated candidate.
func (h *Handler) price(calc *payroll.Calculator, ev evaluation) (payroll.Record, error) {
	week := generic.WeekOf(ev.candidate.Date)
	var weekShifts []shift.Shift
	for _, s := range ev.history.Shifts {
		if week.Contains(s.Date) {
			weekShifts = append(weekShifts, s)
		}
	}
	return calc.NewRecord(payroll.PayInput{
		Shift:       ev.candidate,
		Contract:    ev.contract,
		HoursBefore: payroll.HoursBefore(h.Agreement, ev.candidate, weekShifts),
	}, h.now())
}

// =============================================================================
// SHIFT HANDLERS
// =============================================================================

// ValidateShift runs the full rule set.
// POST /api/shifts/validate
func (h *Handler) ValidateShift(w http.ResponseWriter, r *http.Request) {
	var req ShiftRequest
	if !h.decodeAndValidate(w, r, &req) {
		return
	}
	session := compliance.NewEditSession(h.loadHistory)
	defer session.Close()

	ev, err := h.evaluate(r.Context(), session, req)
	if err != nil {
		writeFailure(w, err)
		return
	}
	writeJSON(w, http.StatusOK, ev.result)
}

// QuickValidateShift runs the lightweight pre-check.
// POST /api/shifts/quick-validate
func (h *Handler) QuickValidateShift(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	var req ShiftRequest
	if !h.decodeAndValidate(w, r, &req) {
		return
	}
	c, err := h.Store.GetContract(ctx, generic.ContractID(req.ContractID))
	if err != nil {
		writeStoreError(w, "Contract", err)
		return
	}
	candidate, err := req.toShift(c)
	if err != nil {
		writeError(w, http.StatusBadRequest, "Invalid shift", err)
		return
	}
	existing, err := h.Store.EmployeeShiftsBetween(ctx, c.EmployeeID, candidate.Date.AddDays(-1), candidate.Date.AddDays(1))
	if err != nil {
		writeError(w, http.StatusInternalServerError, "Failed to load shifts", err)
		return
	}
	writeJSON(w, http.StatusOK, h.validator.QuickValidate(candidate, existing))
}

// PriceShift validates and prices a candidate without storing it.
// POST /api/shifts/price
func (h *Handler) PriceShift(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	var req ShiftRequest
	if !h.decodeAndValidate(w, r, &req) {
		return
	}
	session := compliance.NewEditSession(h.loadHistory)
	defer session.Close()

	ev, err := h.evaluate(ctx, session, req)
	if err != nil {
		writeFailure(w, err)
		return
	}
	rec, perr := h.price(h.calculator(ctx), ev)
	resp := PriceResponse{
		Validation:     ev.result,
		EffectiveHours: rec.EffectiveHours,
		IsRequalified:  rec.Requalified,
		ComputedPay:    rec.Pay,
	}
	if perr != nil {
		resp.PricingError = perr.Error()
	}
	writeJSON(w, http.StatusOK, resp)
}

// CreateShift stores a new shift.
// POST /api/shifts
func (h *Handler) CreateShift(w http.ResponseWriter, r *http.Request) {
	var req ShiftRequest
	if !h.decodeAndValidate(w, r, &req) {
		return
	}
	req.ID = ""
	h.saveShift(w, r, req, http.StatusCreated)
}

// UpdateShift replaces a stored shift. Concurrent edits are last write wins.
// PUT /api/shifts/{id}
func (h *Handler) UpdateShift(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	var req ShiftRequest
	if !h.decodeAndValidate(w, r, &req) {
		return
	}
	existing, err := h.Store.GetShift(r.Context(), id)
	if err != nil {
		writeStoreError(w, "Shift", err)
		return
	}
	if string(existing.Shift.ContractID) != req.ContractID {
		writeError(w, http.StatusBadRequest, "A shift cannot move to another contract", nil)
		return
	}
	req.ID = id
	h.saveShift(w, r, req, http.StatusOK)
}

func (h *Handler) saveShift(w http.ResponseWriter, r *http.Request, req ShiftRequest, status int) {
	ctx := r.Context()
	session := compliance.NewEditSession(h.loadHistory)
	defer session.Close()

	ev, err := h.evaluate(ctx, session, req)
	if err != nil {
		writeFailure(w, err)
		return
	}
	if !ev.result.Valid {
		writeJSON(w, http.StatusUnprocessableEntity, ShiftRejectedResponse{
			Error:      "Shift violates blocking rules",
			Validation: ev.result,
		})
		return
	}
	if ev.result.HasWarnings() && !req.AcknowledgeWarnings {
		writeJSON(w, http.StatusConflict, ShiftRejectedResponse{
			Error:      "Warnings must be acknowledged",
			Validation: ev.result,
		})
		return
	}

	rec, perr := h.price(h.calculator(ctx), ev)
	if rec.Shift.ID == "" {
		rec.Shift.ID = uuid.New().String()
	}
	resp := SavedShiftResponse{Validation: ev.result}
	if perr != nil {
		h.logger.Warn("pricing failed, storing shift without pay", "shift_id", rec.Shift.ID, "error", perr)
		resp.PricingError = perr.Error()
	}

	if err := h.Store.SaveShift(ctx, rec); err != nil {
		writeError(w, http.StatusInternalServerError, "Failed to save shift", err)
		return
	}
	h.logger.Info("shift saved", "shift_id", rec.Shift.ID, "contract_id", rec.Shift.ContractID,
		"date", rec.Shift.Date, "kind", rec.Shift.Kind, "warnings", len(ev.result.Warnings))

	resp.Shift = toShiftDTO(rec)
	writeJSON(w, status, resp)
}

// GetShift returns a stored shift.
// GET /api/shifts/{id}
func (h *Handler) GetShift(w http.ResponseWriter, r *http.Request) {
	rec, err := h.Store.GetShift(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		writeStoreError(w, "Shift", err)
		return
	}
	writeJSON(w, http.StatusOK, toShiftDTO(rec))
}

// =============================================================================
// COMPLIANCE HANDLERS
// =============================================================================

// maxHistoryWeeks bounds the history endpoint.
const maxHistoryWeeks = 52

// GetComplianceOverview returns the weekly overview of an employer.
// GET /api/employers/{id}/compliance?date=
func (h *Handler) GetComplianceOverview(w http.ResponseWriter, r *http.Request) {
	ref, err := dateParam(r, "date", h.today())
	if err != nil {
		writeError(w, http.StatusBadRequest, "Invalid date (use YYYY-MM-DD)", err)
		return
	}
	employerID := generic.EmployerID(chi.URLParam(r, "id"))
	writeJSON(w, http.StatusOK, h.aggregator.Overview(r.Context(), employerID, ref))
}

// GetComplianceHistory returns past weekly overviews, oldest first.
// GET /api/employers/{id}/compliance/history?date=&weeks=
func (h *Handler) GetComplianceHistory(w http.ResponseWriter, r *http.Request) {
	ref, err := dateParam(r, "date", h.today())
	if err != nil {
		writeError(w, http.StatusBadRequest, "Invalid date (use YYYY-MM-DD)", err)
		return
	}
	weeks := 4
	if s := r.URL.Query().Get("weeks"); s != "" {
		weeks, err = strconv.Atoi(s)
		if err != nil || weeks < 1 || weeks > maxHistoryWeeks {
			writeError(w, http.StatusBadRequest, fmt.Sprintf("weeks must be between 1 and %d", maxHistoryWeeks), err)
			return
		}
	}
	employerID := generic.EmployerID(chi.URLParam(r, "id"))
	writeJSON(w, http.StatusOK, map[string]any{
		"weeks": h.aggregator.History(r.Context(), employerID, ref, weeks),
	})
}

// =============================================================================
// LEAVE HANDLERS
// =============================================================================

// GetLeaveBalance returns the balance of the leave year containing date.
// GET /api/employees/{id}/leave-balance?date=
func (h *Handler) GetLeaveBalance(w http.ResponseWriter, r *http.Request) {
	asOf, err := dateParam(r, "date", h.today())
	if err != nil {
		writeError(w, http.StatusBadRequest, "Invalid date (use YYYY-MM-DD)", err)
		return
	}
	view, err := h.leaveService(r.Context()).Balance(r.Context(), generic.EmployeeID(chi.URLParam(r, "id")), asOf)
	if err != nil {
		writeError(w, http.StatusInternalServerError, "Failed to load leave balance", err)
		return
	}
	writeJSON(w, http.StatusOK, view)
}

// GetLeaveMovements returns the audit trail of a leave year.
// GET /api/employees/{id}/leave-movements?date=
func (h *Handler) GetLeaveMovements(w http.ResponseWriter, r *http.Request) {
	asOf, err := dateParam(r, "date", h.today())
	if err != nil {
		writeError(w, http.StatusBadRequest, "Invalid date (use YYYY-MM-DD)", err)
		return
	}
	movements, err := h.leaveService(r.Context()).Movements(r.Context(), generic.EmployeeID(chi.URLParam(r, "id")), asOf)
	if err != nil {
		writeError(w, http.StatusInternalServerError, "Failed to load leave movements", err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"movements": movements})
}

// AdjustLeave records a signed correction.
// POST /api/employees/{id}/leave-adjustments
func (h *Handler) AdjustLeave(w http.ResponseWriter, r *http.Request) {
	var req AdjustmentRequest
	if !h.decodeAndValidate(w, r, &req) {
		return
	}
	asOf := h.today()
	if req.Date != "" {
		asOf = generic.MustParseDate(req.Date) // format checked by the validator
	}
	view, err := h.leaveService(r.Context()).Adjust(r.Context(), generic.EmployeeID(chi.URLParam(r, "id")), asOf, req.Days, req.Reason)
	if err != nil {
		writeLeaveError(w, "Failed to adjust leave balance", err)
		return
	}
	writeJSON(w, http.StatusCreated, view)
}

// SubmitAbsence records a pending absence.
// POST /api/employees/{id}/absences
func (h *Handler) SubmitAbsence(w http.ResponseWriter, r *http.Request) {
	var req AbsenceRequest
	if !h.decodeAndValidate(w, r, &req) {
		return
	}
	a, err := req.toAbsence(generic.EmployeeID(chi.URLParam(r, "id")))
	if err != nil {
		writeError(w, http.StatusBadRequest, "Invalid absence period", err)
		return
	}
	a, err = h.leaveService(r.Context()).Submit(r.Context(), a)
	if err != nil {
		writeLeaveError(w, "Failed to submit absence", err)
		return
	}
	writeJSON(w, http.StatusCreated, a)
}

// ApproveAbsence approves a pending absence and charges its balance.
// POST /api/absences/{id}/approve
func (h *Handler) ApproveAbsence(w http.ResponseWriter, r *http.Request) {
	dec, err := h.leaveService(r.Context()).Approve(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		writeLeaveError(w, "Failed to approve absence", err)
		return
	}
	h.logger.Info("absence approved", "absence_id", dec.Absence.ID, "employee_id", dec.Absence.EmployeeID, "taken", dec.TakenDelta)
	writeJSON(w, http.StatusOK, DecisionDTO{Absence: dec.Absence, TakenDelta: dec.TakenDelta})
}

// RejectAbsence rejects a pending absence.
// POST /api/absences/{id}/reject
func (h *Handler) RejectAbsence(w http.ResponseWriter, r *http.Request) {
	dec, err := h.leaveService(r.Context()).Reject(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		writeLeaveError(w, "Failed to reject absence", err)
		return
	}
	writeJSON(w, http.StatusOK, DecisionDTO{Absence: dec.Absence, TakenDelta: dec.TakenDelta})
}

// ListAccrualRuns returns the most recent accrual runs.
// GET /api/leave/accrual-runs?limit=
func (h *Handler) ListAccrualRuns(w http.ResponseWriter, r *http.Request) {
	limit := 20
	if s := r.URL.Query().Get("limit"); s != "" {
		n, err := strconv.Atoi(s)
		if err != nil || n < 1 {
			writeError(w, http.StatusBadRequest, "limit must be a positive integer", err)
			return
		}
		limit = n
	}
	runs, err := h.Store.AccrualRuns(r.Context(), limit)
	if err != nil {
		writeError(w, http.StatusInternalServerError, "Failed to get accrual runs", err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"runs": runs})
}

// TriggerAccrual credits a month to every active employee. The month
// defaults to the last complete one.
// POST /api/leave/accrual-runs
func (h *Handler) TriggerAccrual(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Month string `json:"month" validate:"omitempty,datetime=2006-01-02"`
	}
	if r.ContentLength != 0 && !h.decodeAndValidate(w, r, &req) {
		return
	}
	month := leave.AccruedMonth(h.today())
	if req.Month != "" {
		month = generic.MustParseDate(req.Month)
	}
	run, err := h.runAccrual(r.Context(), month)
	if err != nil {
		writeError(w, http.StatusInternalServerError, "Failed to run accrual", err)
		return
	}
	writeJSON(w, http.StatusOK, run)
}

// =============================================================================
// REFERENCE HANDLERS
// =============================================================================

// GetBenefitEnvelope returns the monthly benefit envelope for a mode.
// GET /api/benefits/envelope?mode=&hours=
func (h *Handler) GetBenefitEnvelope(w http.ResponseWriter, r *http.Request) {
	mode := payroll.BenefitMode(r.URL.Query().Get("mode"))
	hours, err := decimal.NewFromString(r.URL.Query().Get("hours"))
	if err != nil {
		writeError(w, http.StatusBadRequest, "hours must be a number", err)
		return
	}
	rate, err := h.Benefits.Rate(mode)
	if err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]any{
			"error":   "Unknown benefit mode",
			"details": err.Error(),
			"modes":   h.Benefits.Modes(),
		})
		return
	}
	envelope, err := h.Benefits.Envelope(mode, hours)
	if err != nil {
		writeError(w, http.StatusBadRequest, "Invalid hours", err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"mode":        mode,
		"hours":       hours,
		"hourly_rate": rate,
		"envelope":    envelope,
	})
}

// ListHolidays returns the public and declared holidays of a year.
// GET /api/holidays?year=&company_id=
func (h *Handler) ListHolidays(w http.ResponseWriter, r *http.Request) {
	year := h.today().Year()
	if s := r.URL.Query().Get("year"); s != "" {
		y, err := strconv.Atoi(s)
		if err != nil || y < 1900 || y > 2200 {
			writeError(w, http.StatusBadRequest, "Invalid year", err)
			return
		}
		year = y
	}
	companyID := r.URL.Query().Get("company_id")

	cal, err := h.Store.Calendar(r.Context(), companyID)
	if err != nil {
		writeError(w, http.StatusInternalServerError, "Failed to get holidays", err)
		return
	}
	holidays := cal.GetHolidays(companyID, year)
	dtos := make([]HolidayDTO, len(holidays))
	for i, hol := range holidays {
		dtos[i] = toHolidayDTO(hol)
	}
	writeJSON(w, http.StatusOK, map[string]any{"year": year, "holidays": dtos})
}

// CreateHoliday declares an extra holiday, for one employer or everyone.
// POST /api/holidays
func (h *Handler) CreateHoliday(w http.ResponseWriter, r *http.Request) {
	var req HolidayRequest
	if !h.decodeAndValidate(w, r, &req) {
		return
	}
	hol := generic.Holiday{
		ID:        uuid.New().String(),
		CompanyID: req.CompanyID,
		Date:      generic.MustParseDate(req.Date),
		Name:      req.Name,
		Recurring: req.Recurring,
	}
	if err := h.Store.SaveHoliday(r.Context(), hol); err != nil {
		writeError(w, http.StatusInternalServerError, "Failed to create holiday", err)
		return
	}
	writeJSON(w, http.StatusCreated, toHolidayDTO(hol))
}

// AgreementDTO exposes the effective agreement in hours and fractions.
type AgreementDTO struct {
	Name                     string                    `json:"name"`
	NightWindowStart         generic.Clock             `json:"night_window_start"`
	NightWindowEnd           generic.Clock             `json:"night_window_end"`
	DailyMaxHours            decimal.Decimal           `json:"daily_max_hours"`
	DailyWarningHours        decimal.Decimal           `json:"daily_warning_hours"`
	WeeklyMaxHours           decimal.Decimal           `json:"weekly_max_hours"`
	WeeklyWarningHours       decimal.Decimal           `json:"weekly_warning_hours"`
	WeeklyRestHours          decimal.Decimal           `json:"weekly_rest_hours"`
	DailyRestHours           decimal.Decimal           `json:"daily_rest_hours"`
	BreakAfterHours          decimal.Decimal           `json:"break_after_hours"`
	MinBreakMinutes          int                       `json:"min_break_minutes"`
	DayPresenceRatio         decimal.Decimal           `json:"day_presence_ratio"`
	RequalificationThreshold int                       `json:"requalification_threshold"`
	NightAllowanceRatio      decimal.Decimal           `json:"night_allowance_ratio"`
	Majorations              map[string]string         `json:"majorations"`
	LeaveDaysPerMonth        decimal.Decimal           `json:"leave_days_per_month"`
	LeaveMaxDaysPerYear      decimal.Decimal           `json:"leave_max_days_per_year"`
	LeaveYearStartMonth      int                       `json:"leave_year_start_month"`
	LeaveExcludesHolidays    bool                      `json:"leave_excludes_holidays"`
	Citations                map[agreement.Code]string `json:"citations"`
}

func hoursOf(minutes int) decimal.Decimal {
	return generic.MinutesToHours(decimal.NewFromInt(int64(minutes)))
}

// GetAgreement returns the agreement the engine runs with.
// GET /api/agreement
func (h *Handler) GetAgreement(w http.ResponseWriter, r *http.Request) {
	a := h.Agreement
	writeJSON(w, http.StatusOK, AgreementDTO{
		Name:                     a.Name,
		NightWindowStart:         a.NightWindow.Start,
		NightWindowEnd:           a.NightWindow.End,
		DailyMaxHours:            hoursOf(a.DailyMaxMinutes),
		DailyWarningHours:        hoursOf(a.DailyWarningMinutes()),
		WeeklyMaxHours:           hoursOf(a.WeeklyMaxMinutes),
		WeeklyWarningHours:       hoursOf(a.WeeklyWarningMinutes),
		WeeklyRestHours:          hoursOf(a.WeeklyRestMinutes),
		DailyRestHours:           hoursOf(a.DailyRestMinutes),
		BreakAfterHours:          hoursOf(a.BreakAfterMinutes),
		MinBreakMinutes:          a.MinBreakMinutes,
		DayPresenceRatio:         a.DayPresenceRatio.Round(4),
		RequalificationThreshold: a.RequalificationThreshold,
		NightAllowanceRatio:      a.NightAllowanceRatio,
		Majorations: map[string]string{
			"night":    a.NightRate.String(),
			"sunday":   a.SundayRate.String(),
			"holiday":  a.HolidayRate.String(),
			"overtime": a.OvertimeRate.String(),
		},
		LeaveDaysPerMonth:     a.LeaveDaysPerMonth,
		LeaveMaxDaysPerYear:   a.LeaveMaxDaysPerYear,
		LeaveYearStartMonth:   int(a.LeaveYearStartMonth),
		LeaveExcludesHolidays: a.LeaveExcludesHolidays,
		Citations:             a.Citations,
	})
}

// ResetDatabase clears all data.
// POST /api/scenarios/reset
func (h *Handler) ResetDatabase(w http.ResponseWriter, r *http.Request) {
	if err := h.Store.Reset(r.Context()); err != nil {
		writeError(w, http.StatusInternalServerError, "Failed to reset database", err)
		return
	}
	h.mu.Lock()
	h.currentScenario = ""
	h.mu.Unlock()
	writeJSON(w, http.StatusOK, map[string]any{"status": "reset"})
}

// =============================================================================
// HELPERS
// =============================================================================

func writeJSON(w http.ResponseWriter, status int, data any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(data)
}

func writeError(w http.ResponseWriter, status int, message string, err error) {
	resp := ErrorResponse{Error: message}
	if err != nil {
		resp.Details = err.Error()
	}
	writeJSON(w, status, resp)
}

// requestError carries the status a failure should be reported with.
type requestError struct {
	Status  int
	Message string
	Err     error
}

func (e *requestError) Error() string {
	if e.Err == nil {
		return e.Message
	}
	return e.Message + ": " + e.Err.Error()
}

func (e *requestError) Unwrap() error { return e.Err }

// writeFailure reports a requestError with its status, anything else as 500.
func writeFailure(w http.ResponseWriter, err error) {
	var re *requestError
	if errors.As(err, &re) {
		writeError(w, re.Status, re.Message, re.Err)
		return
	}
	writeError(w, http.StatusInternalServerError, "Internal error", err)
}

// writeStoreError maps a failed lookup of what ("Contract", "Shift").
func writeStoreError(w http.ResponseWriter, what string, err error) {
	if generic.IsNotFound(err) {
		writeError(w, http.StatusNotFound, what+" not found", nil)
		return
	}
	writeError(w, http.StatusInternalServerError, "Failed to get "+strings.ToLower(what), err)
}

func writeLeaveError(w http.ResponseWriter, message string, err error) {
	switch {
	case generic.IsNotFound(err):
		writeError(w, http.StatusNotFound, "Absence not found", err)
	case errors.Is(err, leave.ErrInsufficientBalance):
		writeError(w, http.StatusUnprocessableEntity, "Insufficient leave balance", err)
	case errors.Is(err, leave.ErrInvalidTransition):
		writeError(w, http.StatusConflict, "Absence is not pending", err)
	case errors.Is(err, leave.ErrInvalidRequest), generic.IsClientError(err):
		writeError(w, http.StatusBadRequest, "Invalid leave request", err)
	default:
		writeError(w, http.StatusInternalServerError, message, err)
	}
}

// dateParam reads a YYYY-MM-DD query parameter, or returns def when absent.
func dateParam(r *http.Request, name string, def generic.Date) (generic.Date, error) {
	s := r.URL.Query().Get(name)
	if s == "" {
		return def, nil
	}
	return generic.ParseDate(s)
}
