package compliance

import (
	"context"
	"log/slog"
	"sort"

	"github.com/carework/shift-engine/agreement"
	"github.com/carework/shift-engine/generic"
	"github.com/carework/shift-engine/shift"
	"github.com/shopspring/decimal"
)

// =============================================================================
// WEEKLY OVERVIEW - Employer-wide compliance dashboard
// =============================================================================

// Source is the read side the aggregator needs from persistence.
type Source interface {
	ActiveContracts(ctx context.Context, employerID generic.EmployerID) ([]shift.Contract, error)
	ShiftsBetween(ctx context.Context, employerID generic.EmployerID, from, to generic.Date) ([]shift.Shift, error)
	ApprovedAbsencesBetween(ctx context.Context, employerID generic.EmployerID, from, to generic.Date) ([]Absence, error)
}

// EmployeeWeek is one employee's line in the overview.
type EmployeeWeek struct {
	EmployeeID      generic.EmployeeID `json:"employee_id"`
	EmployeeName    string             `json:"employee_name"`
	ContractedHours decimal.Decimal    `json:"contracted_hours"`
	WorkedHours     decimal.Decimal    `json:"worked_hours"`
	ShiftCount      int                `json:"shift_count"`
	Status          Status             `json:"status"`
	Findings        []Finding          `json:"findings"`
}

// Summary aggregates the employee lines.
type Summary struct {
	Employees   int             `json:"employees"`
	OK          int             `json:"ok"`
	Warning     int             `json:"warning"`
	Critical    int             `json:"critical"`
	TotalHours  decimal.Decimal `json:"total_hours"`
	AlertsCount int             `json:"alerts_count"`
}

// Overview is the compliance state of one employer for one week.
type Overview struct {
	EmployerID generic.EmployerID `json:"employer_id"`
	WeekStart  generic.Date       `json:"week_start"`
	WeekEnd    generic.Date       `json:"week_end"`
	Employees  []EmployeeWeek     `json:"employees"`
	Summary    Summary            `json:"summary"`

	// Degraded is set when a fetch failed and the overview is empty.
	Degraded bool `json:"degraded"`
}

// Aggregator builds weekly overviews by running the validator over every
// shift of the week.
type Aggregator struct {
	source    Source
	validator *Validator
	logger    *slog.Logger
}

func NewAggregator(source Source, validator *Validator) *Aggregator {
	return &Aggregator{
		source:    source,
		validator: validator,
		logger:    slog.Default().With("component", "compliance.aggregator"),
	}
}

// WeekBounds returns the Monday-Sunday week containing d.
func WeekBounds(d generic.Date) (generic.Date, generic.Date) {
	w := generic.WeekOf(d)
	return w.Start, w.End
}

// Overview computes the week containing ref. Shifts are loaded from one
// week before to one day after, so rest spans across the week boundaries
// are measured against real neighbours. A failed fetch yields an empty,
// Degraded overview instead of an error.
func (ag *Aggregator) Overview(ctx context.Context, employerID generic.EmployerID, ref generic.Date) Overview {
	week := generic.WeekOf(ref)
	out := Overview{
		EmployerID: employerID,
		WeekStart:  week.Start,
		WeekEnd:    week.End,
		Employees:  []EmployeeWeek{},
		Summary:    Summary{TotalHours: decimal.Zero},
	}

	contracts, err := ag.source.ActiveContracts(ctx, employerID)
	if err != nil {
		ag.logger.Warn("loading contracts failed, returning empty overview", "employer_id", employerID, "error", err)
		out.Degraded = true
		return out
	}
	from, to := week.Start.AddDays(-7), week.End.AddDays(1)
	shifts, err := ag.source.ShiftsBetween(ctx, employerID, from, to)
	if err != nil {
		ag.logger.Warn("loading shifts failed, returning empty overview", "employer_id", employerID, "error", err)
		out.Degraded = true
		return out
	}
	absences, err := ag.source.ApprovedAbsencesBetween(ctx, employerID, week.Start, week.End)
	if err != nil {
		ag.logger.Warn("loading absences failed, returning empty overview", "employer_id", employerID, "error", err)
		out.Degraded = true
		return out
	}

	for _, emp := range groupByEmployee(contracts) {
		line := ag.employeeWeek(emp, week, shifts, absences)
		out.Employees = append(out.Employees, line)
		out.Summary.Employees++
		out.Summary.TotalHours = out.Summary.TotalHours.Add(line.WorkedHours)
		out.Summary.AlertsCount += len(line.Findings)
		switch line.Status {
		case StatusCritical:
			out.Summary.Critical++
		case StatusWarning:
			out.Summary.Warning++
		default:
			out.Summary.OK++
		}
	}
	return out
}

// History returns weeks overviews ending with the week of ref, oldest first.
func (ag *Aggregator) History(ctx context.Context, employerID generic.EmployerID, ref generic.Date, weeks int) []Overview {
	if weeks < 1 {
		weeks = 1
	}
	out := make([]Overview, 0, weeks)
	for i := weeks - 1; i >= 0; i-- {
		if ctx.Err() != nil {
			break
		}
		out = append(out, ag.Overview(ctx, employerID, ref.AddDays(-7*i)))
	}
	return out
}

type employee struct {
	id        generic.EmployeeID
	name      string
	contracts map[generic.ContractID]bool
	hours     decimal.Decimal
}

func groupByEmployee(contracts []shift.Contract) []*employee {
	byID := map[generic.EmployeeID]*employee{}
	var order []*employee
	for _, c := range contracts {
		e, ok := byID[c.EmployeeID]
		if !ok {
			e = &employee{id: c.EmployeeID, name: c.EmployeeName, contracts: map[generic.ContractID]bool{}, hours: decimal.Zero}
			byID[c.EmployeeID] = e
			order = append(order, e)
		}
		e.contracts[c.ID] = true
		e.hours = e.hours.Add(c.WeeklyContractHours)
	}
	sort.SliceStable(order, func(i, j int) bool { return order[i].name < order[j].name })
	return order
}

func (ag *Aggregator) employeeWeek(emp *employee, week generic.Period, all []shift.Shift, absences []Absence) EmployeeWeek {
	line := EmployeeWeek{
		EmployeeID:      emp.id,
		EmployeeName:    emp.name,
		ContractedHours: emp.hours,
		WorkedHours:     decimal.Zero,
		Findings:        []Finding{},
	}

	var mine []shift.Shift
	for _, s := range all {
		if emp.contracts[s.ContractID] || (s.EmployeeID != "" && s.EmployeeID == emp.id) {
			mine = append(mine, s)
		}
	}
	var empAbsences []Absence
	for _, a := range absences {
		if a.EmployeeID == emp.id {
			empAbsences = append(empAbsences, a)
		}
	}

	minutes := decimal.Zero
	seen := map[agreement.Code]bool{}
	for _, s := range mine {
		if !week.Contains(s.Date) {
			continue
		}
		line.ShiftCount++
		if m, err := s.EffectiveMinutes(ag.validator.agreement); err == nil {
			minutes = minutes.Add(m)
		}
		res, err := ag.validator.Validate(s, mine, empAbsences)
		if err != nil {
			ag.logger.Debug("shift could not be fully validated", "shift_id", s.ID, "error", err)
		}
		for _, f := range append(res.Errors, res.Warnings...) {
			if seen[f.Code] {
				continue
			}
			seen[f.Code] = true
			line.Findings = append(line.Findings, f)
		}
	}
	line.WorkedHours = shift.RoundHours(generic.MinutesToHours(minutes))
	line.Status = StatusOf(line.Findings)
	return line
}
