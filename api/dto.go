/*
dto.go - Data Transfer Objects for API requests and responses

PURPOSE:
  Defines the JSON structures for API communication. These types decouple
  the domain model (shift.Shift, leave.Absence) from the wire format:
  clock times and dates travel as strings, and the derived values of a
  stored shift sit next to its input fields.

NAMING CONVENTION:
  - *DTO: Response types returned to clients
  - *Request: Request body types from clients
  - *Response: Complex response wrappers

TYPES:
  Contract:   ContractRequest, ContractDTO
  Shift:      ShiftRequest, ShiftDTO, PriceResponse, ShiftRejectedResponse
  Planning:   PlanRequest, PlanResponse, PlannedOccurrenceDTO
  Leave:      AbsenceRequest, AdjustmentRequest
  Holidays:   HolidayRequest, HolidayDTO

VALIDATION:
  Request types carry go-playground/validator tags; decodeAndValidate
  rejects a body before any domain code sees it. Domain rules (segment
  tiling, breaks, balances) are still checked by the domain packages.

SEE ALSO:
  - handlers.go: Uses these types
  - shift/types.go: Shift, Segment
*/
package api

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"reflect"
	"strings"
	"time"

	"github.com/carework/shift-engine/compliance"
	"github.com/carework/shift-engine/generic"
	"github.com/carework/shift-engine/leave"
	"github.com/carework/shift-engine/payroll"
	"github.com/carework/shift-engine/shift"
	"github.com/go-playground/validator/v10"
	"github.com/shopspring/decimal"
)

// =============================================================================
// CONTRACTS
// =============================================================================

// ContractRequest creates or replaces a contract.
type ContractRequest struct {
	ID                  string          `json:"id"`
	EmployerID          string          `json:"employer_id" validate:"required"`
	EmployeeID          string          `json:"employee_id" validate:"required"`
	EmployeeName        string          `json:"employee_name" validate:"required"`
	WeeklyContractHours decimal.Decimal `json:"weekly_contract_hours"`
	HourlyRate          decimal.Decimal `json:"hourly_rate"`
	Active              *bool           `json:"active"`
}

type ContractDTO struct {
	ID                  string          `json:"id"`
	EmployerID          string          `json:"employer_id"`
	EmployeeID          string          `json:"employee_id"`
	EmployeeName        string          `json:"employee_name"`
	WeeklyContractHours decimal.Decimal `json:"weekly_contract_hours"`
	HourlyRate          decimal.Decimal `json:"hourly_rate"`
	Active              bool            `json:"active"`
}

func toContractDTO(c shift.Contract) ContractDTO {
	return ContractDTO{
		ID:                  string(c.ID),
		EmployerID:          string(c.EmployerID),
		EmployeeID:          string(c.EmployeeID),
		EmployeeName:        c.EmployeeName,
		WeeklyContractHours: c.WeeklyContractHours,
		HourlyRate:          c.HourlyRate,
		Active:              c.Active,
	}
}

// =============================================================================
// SHIFTS
// =============================================================================

// ShiftRequest is a candidate shift. ID is set when an existing shift is
// being edited, so that it is not compared against itself.
type ShiftRequest struct {
	ID                  string          `json:"id"`
	ContractID          string          `json:"contract_id" validate:"required"`
	Date                string          `json:"date" validate:"required,datetime=2006-01-02"`
	StartTime           string          `json:"start_time" validate:"required,datetime=15:04"`
	EndTime             string          `json:"end_time" validate:"required,datetime=15:04"`
	BreakMinutes        int             `json:"break_minutes" validate:"gte=0,lte=1440"`
	Kind                string          `json:"kind" validate:"required,oneof=effective day_presence night_presence guard_24h"`
	NightInterventions  int             `json:"night_interventions" validate:"gte=0"`
	HadNightAction      bool            `json:"had_night_action"`
	Segments            []shift.Segment `json:"segments"`
	AcknowledgeWarnings bool            `json:"acknowledge_warnings"`
}

// toShift builds the domain shift; the employee comes from the contract.
func (req ShiftRequest) toShift(c shift.Contract) (shift.Shift, error) {
	date, err := generic.ParseDate(req.Date)
	if err != nil {
		return shift.Shift{}, err
	}
	start, err := generic.ParseClock(req.StartTime)
	if err != nil {
		return shift.Shift{}, fmt.Errorf("start_time: %w", err)
	}
	end, err := generic.ParseClock(req.EndTime)
	if err != nil {
		return shift.Shift{}, fmt.Errorf("end_time: %w", err)
	}
	s := shift.Shift{
		ID:                 req.ID,
		ContractID:         c.ID,
		EmployeeID:         c.EmployeeID,
		Date:               date,
		Start:              start,
		End:                end,
		BreakMinutes:       req.BreakMinutes,
		Kind:               shift.Kind(req.Kind),
		NightInterventions: req.NightInterventions,
		HadNightAction:     req.HadNightAction,
		Segments:           req.Segments,
	}
	// Malformed shifts are refused before any rule runs.
	if err := s.Validate(); err != nil {
		return shift.Shift{}, err
	}
	return s, nil
}

// ShiftDTO is a stored shift with its derived values.
type ShiftDTO struct {
	ID                 string               `json:"id"`
	ContractID         string               `json:"contract_id"`
	EmployeeID         string               `json:"employee_id"`
	Date               generic.Date         `json:"date"`
	StartTime          generic.Clock        `json:"start_time"`
	EndTime            generic.Clock        `json:"end_time"`
	BreakMinutes       int                  `json:"break_minutes"`
	Kind               shift.Kind           `json:"kind"`
	NightInterventions int                  `json:"night_interventions"`
	HadNightAction     bool                 `json:"had_night_action"`
	Segments           []shift.Segment      `json:"segments,omitempty"`
	EffectiveHours     decimal.Decimal      `json:"effective_hours"`
	IsRequalified      bool                 `json:"is_requalified"`
	ComputedPay        *payroll.ComputedPay `json:"computed_pay"`
	CreatedAt          string               `json:"created_at"`
}

func toShiftDTO(rec payroll.Record) ShiftDTO {
	s := rec.Shift
	return ShiftDTO{
		ID:                 s.ID,
		ContractID:         string(s.ContractID),
		EmployeeID:         string(s.EmployeeID),
		Date:               s.Date,
		StartTime:          s.Start,
		EndTime:            s.End,
		BreakMinutes:       s.BreakMinutes,
		Kind:               s.Kind,
		NightInterventions: s.NightInterventions,
		HadNightAction:     s.HadNightAction,
		Segments:           s.Segments,
		EffectiveHours:     rec.EffectiveHours,
		IsRequalified:      rec.Requalified,
		ComputedPay:        rec.Pay,
		CreatedAt:          rec.CreatedAt.Format(time.RFC3339),
	}
}

// SavedShiftResponse is returned by shift creation and edits.
type SavedShiftResponse struct {
	Shift        ShiftDTO          `json:"shift"`
	Validation   compliance.Result `json:"validation"`
	PricingError string            `json:"pricing_error,omitempty"`
}

// ShiftRejectedResponse explains a 422 (blocking errors) or a 409
// (warnings not acknowledged).
type ShiftRejectedResponse struct {
	Error      string            `json:"error"`
	Validation compliance.Result `json:"validation"`
}

// PriceResponse is a dry run of shift creation.
type PriceResponse struct {
	Validation     compliance.Result    `json:"validation"`
	EffectiveHours decimal.Decimal      `json:"effective_hours"`
	IsRequalified  bool                 `json:"is_requalified"`
	ComputedPay    *payroll.ComputedPay `json:"computed_pay"`
	PricingError   string               `json:"pricing_error,omitempty"`
}

// =============================================================================
// PLANNING
// =============================================================================

// PlanRequest repeats one shift along an RRULE ("FREQ=WEEKLY;BYDAY=MO,WE;COUNT=6"),
// counted from the shift's date.
type PlanRequest struct {
	Shift  ShiftRequest `json:"shift"`
	RRule  string       `json:"rrule" validate:"required"`
	Commit bool         `json:"commit"`
}

type PlannedOccurrenceDTO struct {
	Date       generic.Date      `json:"date"`
	Accepted   bool              `json:"accepted"`
	Validation compliance.Result `json:"validation"`
	Shift      *ShiftDTO         `json:"shift,omitempty"`
}

type PlanResponse struct {
	Occurrences []PlannedOccurrenceDTO `json:"occurrences"`
	Accepted    int                    `json:"accepted"`
	Refused     int                    `json:"refused"`
	Committed   bool                   `json:"committed"`
}

// =============================================================================
// LEAVE
// =============================================================================

type AbsenceRequest struct {
	EmployerID string `json:"employer_id" validate:"required"`
	Kind       string `json:"kind" validate:"required,oneof=paid_leave sick family_event unpaid emergency"`
	StartDate  string `json:"start_date" validate:"required,datetime=2006-01-02"`
	EndDate    string `json:"end_date" validate:"required,datetime=2006-01-02"`
	Reason     string `json:"reason" validate:"max=500"`
}

func (req AbsenceRequest) toAbsence(employeeID generic.EmployeeID) (leave.Absence, error) {
	start, err := generic.ParseDate(req.StartDate)
	if err != nil {
		return leave.Absence{}, err
	}
	end, err := generic.ParseDate(req.EndDate)
	if err != nil {
		return leave.Absence{}, err
	}
	period, err := generic.NewPeriod(start, end)
	if err != nil {
		return leave.Absence{}, err
	}
	return leave.Absence{
		EmployerID: generic.EmployerID(req.EmployerID),
		EmployeeID: employeeID,
		Kind:       leave.Kind(req.Kind),
		Period:     period,
		Reason:     req.Reason,
	}, nil
}

// AdjustmentRequest is a signed manual correction of a leave balance.
type AdjustmentRequest struct {
	Days   decimal.Decimal `json:"days"`
	Date   string          `json:"date" validate:"omitempty,datetime=2006-01-02"`
	Reason string          `json:"reason" validate:"required,max=500"`
}

// DecisionDTO is the outcome of an approval or rejection.
type DecisionDTO struct {
	Absence    leave.Absence   `json:"absence"`
	TakenDelta decimal.Decimal `json:"taken_delta"`
}

// =============================================================================
// HOLIDAYS
// =============================================================================

type HolidayRequest struct {
	CompanyID string `json:"company_id"`
	Date      string `json:"date" validate:"required,datetime=2006-01-02"`
	Name      string `json:"name" validate:"required"`
	Recurring bool   `json:"recurring"`
}

type HolidayDTO struct {
	ID        string       `json:"id,omitempty"`
	CompanyID string       `json:"company_id"`
	Date      generic.Date `json:"date"`
	Name      string       `json:"name"`
	Recurring bool         `json:"recurring"`
}

func toHolidayDTO(h generic.Holiday) HolidayDTO {
	return HolidayDTO{ID: h.ID, CompanyID: h.CompanyID, Date: h.Date, Name: h.Name, Recurring: h.Recurring}
}

// =============================================================================
// SCENARIOS
// =============================================================================

// ScenarioDTO describes a demo scenario.
type ScenarioDTO struct {
	ID          string `json:"id"`
	Name        string `json:"name"`
	Description string `json:"description"`
	Category    string `json:"category"`
}

// LoadScenarioRequest is the request to load a scenario.
type LoadScenarioRequest struct {
	ScenarioID string `json:"scenario_id" validate:"required"`
}

// =============================================================================
// ERRORS
// =============================================================================

// ErrorResponse represents an API error.
type ErrorResponse struct {
	Error   string       `json:"error"`
	Details string       `json:"details,omitempty"`
	Fields  []FieldError `json:"fields,omitempty"`
}

// FieldError names one field that failed validation.
type FieldError struct {
	Field   string `json:"field"`
	Tag     string `json:"tag"`
	Message string `json:"message"`
}

// newValidator returns a validator reporting JSON field names.
func newValidator() *validator.Validate {
	v := validator.New()
	v.RegisterTagNameFunc(func(f reflect.StructField) string {
		name, _, _ := strings.Cut(f.Tag.Get("json"), ",")
		if name == "-" {
			return ""
		}
		return name
	})
	return v
}

func fieldErrors(err error) []FieldError {
	var ves validator.ValidationErrors
	if !errors.As(err, &ves) {
		return nil
	}
	out := make([]FieldError, 0, len(ves))
	for _, fe := range ves {
		e := FieldError{Field: fe.Namespace(), Tag: fe.Tag()}
		if i := strings.Index(e.Field, "."); i >= 0 {
			e.Field = e.Field[i+1:]
		}
		switch fe.Tag() {
		case "required":
			e.Message = fmt.Sprintf("%s is required", e.Field)
		case "datetime":
			e.Message = fmt.Sprintf("%s must match %s", e.Field, fe.Param())
		case "oneof":
			e.Message = fmt.Sprintf("%s must be one of: %s", e.Field, fe.Param())
		case "gte", "lte", "max":
			e.Message = fmt.Sprintf("%s fails %s=%s", e.Field, fe.Tag(), fe.Param())
		default:
			e.Message = fmt.Sprintf("%s failed %s validation", e.Field, fe.Tag())
		}
		out = append(out, e)
	}
	return out
}

// decodeAndValidate reads a JSON body into dst and validates it. On failure
// it writes a 400 and returns false.
func (h *Handler) decodeAndValidate(w http.ResponseWriter, r *http.Request, dst any) bool {
	if err := json.NewDecoder(r.Body).Decode(dst); err != nil {
		writeError(w, http.StatusBadRequest, "Invalid request body", err)
		return false
	}
	if err := h.validate.Struct(dst); err != nil {
		writeJSON(w, http.StatusBadRequest, ErrorResponse{
			Error:   "Validation failed",
			Details: err.Error(),
			Fields:  fieldErrors(err),
		})
		return false
	}
	return true
}
