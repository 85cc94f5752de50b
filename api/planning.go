package api

import (
	"fmt"
	"net/http"
	"strings"

	"github.com/carework/shift-engine/compliance"
	"github.com/carework/shift-engine/generic"
	"github.com/carework/shift-engine/payroll"
	"github.com/carework/shift-engine/shift"
	"github.com/google/uuid"
	"github.com/teambition/rrule-go"
)

// =============================================================================
// RECURRING PLANNING
// =============================================================================

const (
	maxPlanOccurrences = 100
	planHorizonDays    = 366
)

// expandRRule returns the dates produced by rule, starting at from. Rules
// without COUNT or UNTIL stop at the planning horizon.
func expandRRule(rule string, from generic.Date) ([]generic.Date, error) {
	rule = strings.TrimPrefix(strings.TrimSpace(rule), "RRULE:")
	opt, err := rrule.StrToROption(rule)
	if err != nil {
		return nil, fmt.Errorf("invalid rrule: %w", err)
	}
	opt.Dtstart = from.Time()
	rr, err := rrule.NewRRule(*opt)
	if err != nil {
		return nil, fmt.Errorf("invalid rrule: %w", err)
	}

	horizon := from.Time().AddDate(0, 0, planHorizonDays)
	set := rrule.Set{}
	set.RRule(rr)
	instances := set.Between(from.Time(), horizon, true)

	dates := make([]generic.Date, 0, len(instances))
	for _, t := range instances {
		if len(dates) == maxPlanOccurrences {
			break
		}
		dates = append(dates, generic.DateOf(t.UTC()))
	}
	return dates, nil
}

// PlanShifts repeats a shift along an RRULE. Each occurrence is validated
// against the stored history plus the occurrences accepted before it, so a
// plan that would break the weekly limit is refused from the first
// offending date. With commit, accepted occurrences are stored.
// POST /api/shifts/plan
func (h *Handler) PlanShifts(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	var req PlanRequest
	if !h.decodeAndValidate(w, r, &req) {
		return
	}

	c, err := h.Store.GetContract(ctx, generic.ContractID(req.Shift.ContractID))
	if err != nil {
		writeStoreError(w, "Contract", err)
		return
	}
	template, err := req.Shift.toShift(c)
	if err != nil {
		writeError(w, http.StatusBadRequest, "Invalid shift", err)
		return
	}
	template.ID = ""
	dates, err := expandRRule(req.RRule, template.Date)
	if err != nil {
		writeError(w, http.StatusBadRequest, "Invalid recurrence rule", err)
		return
	}
	if len(dates) == 0 {
		writeError(w, http.StatusBadRequest, "Recurrence rule produces no dates", nil)
		return
	}

	session := compliance.NewEditSession(h.loadHistory)
	defer session.Close()
	calc := h.calculator(ctx)

	resp := PlanResponse{Occurrences: make([]PlannedOccurrenceDTO, 0, len(dates))}
	var accepted []shift.Shift
	var records []payroll.Record

	for _, d := range dates {
		candidate := template
		candidate.Date = d

		hist, err := session.History(ctx, c.ID, compliance.WindowFor(d))
		if err != nil {
			writeError(w, http.StatusInternalServerError, "Failed to load shift history", err)
			return
		}
		existing := make([]shift.Shift, 0, len(hist.Shifts)+len(accepted))
		existing = append(existing, hist.Shifts...)
		existing = append(existing, accepted...)

		result, verr := h.validator.Validate(candidate, existing, hist.Absences)
		if verr != nil {
			h.logger.Warn("planned occurrence validated with errors", "contract_id", c.ID, "date", d, "error", verr)
		}
		occ := PlannedOccurrenceDTO{Date: d, Validation: result}
		occ.Accepted = result.Valid && (!result.HasWarnings() || req.Shift.AcknowledgeWarnings)
		if !occ.Accepted {
			resp.Refused++
			resp.Occurrences = append(resp.Occurrences, occ)
			continue
		}

		candidate.ID = uuid.New().String()
		rec, perr := h.price(calc, evaluation{
			contract:  c,
			candidate: candidate,
			history:   compliance.History{Shifts: existing, Absences: hist.Absences},
			result:    result,
		})
		if perr != nil {
			h.logger.Warn("pricing failed for planned occurrence", "date", d, "error", perr)
		}
		dto := toShiftDTO(rec)
		occ.Shift = &dto
		accepted = append(accepted, candidate)
		records = append(records, rec)
		resp.Accepted++
		resp.Occurrences = append(resp.Occurrences, occ)
	}

	if !req.Commit {
		writeJSON(w, http.StatusOK, resp)
		return
	}
	for _, rec := range records {
		if err := h.Store.SaveShift(ctx, rec); err != nil {
			writeError(w, http.StatusInternalServerError, "Failed to save planned shift", err)
			return
		}
	}
	resp.Committed = true
	h.logger.Info("shift plan committed", "contract_id", c.ID, "accepted", resp.Accepted, "refused", resp.Refused)
	writeJSON(w, http.StatusCreated, resp)
}
