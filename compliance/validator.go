package compliance

import (
	"errors"
	"fmt"
	"strings"

	"github.com/carework/shift-engine/agreement"
	"github.com/carework/shift-engine/shift"
	"github.com/shopspring/decimal"
)

// ErrRuleFailed wraps a panic recovered while evaluating a rule.
var ErrRuleFailed = errors.New("rule evaluation failed")

// ValidationError collects everything that kept rules from evaluating.
// It unwraps to each cause, so errors.Is works on shift sentinels.
type ValidationError struct {
	Causes []error
}

func (e *ValidationError) Error() string {
	msgs := make([]string, len(e.Causes))
	for i, c := range e.Causes {
		msgs[i] = c.Error()
	}
	return "validation incomplete: " + strings.Join(msgs, "; ")
}

func (e *ValidationError) Unwrap() []error { return e.Causes }

// =============================================================================
// VALIDATOR
// =============================================================================

type ruleFunc func(v *Validator, in *input) ([]Finding, error)

type rule struct {
	name  string
	check ruleFunc
}

// Validator evaluates the rule set. It holds no state besides the
// agreement and is safe for concurrent use.
type Validator struct {
	agreement agreement.Agreement
	rules     []rule
}

func NewValidator(a agreement.Agreement) *Validator {
	return &Validator{
		agreement: a,
		rules: []rule{
			{"overlap", checkOverlap},
			{"daily hours", checkDailyHours},
			{"weekly hours", checkWeeklyHours},
			{"weekly rest", checkWeeklyRest},
			{"daily rest", checkDailyRest},
			{"absence", checkAbsence},
			{"break", checkBreak},
			{"night requalification", checkRequalification},
		},
	}
}

// Agreement returns the agreement the validator applies.
func (v *Validator) Agreement() agreement.Agreement { return v.agreement }

// input is what every rule sees: the candidate and the other shifts, the
// candidate's own prior version removed.
type input struct {
	candidate shift.Shift
	others    []shift.Shift
	absences  []Absence
}

func newInput(candidate shift.Shift, existing []shift.Shift, absences []Absence) *input {
	others := make([]shift.Shift, 0, len(existing))
	for _, s := range existing {
		if candidate.IsEditOf(s) {
			continue
		}
		others = append(others, s)
	}
	return &input{candidate: candidate, others: others, absences: absences}
}

// colleagues returns the other shifts worked by the candidate's employee.
func (in *input) colleagues() []shift.Shift {
	var out []shift.Shift
	for _, s := range in.others {
		if shift.SameWorker(in.candidate, s) {
			out = append(out, s)
		}
	}
	return out
}

// Validate runs every rule against candidate. The returned error is non-nil
// when the result carries a VALIDATION_ERROR finding.
func (v *Validator) Validate(candidate shift.Shift, existing []shift.Shift, absences []Absence) (Result, error) {
	in := newInput(candidate, existing, absences)

	var causes []error
	if err := candidate.Validate(); err != nil {
		causes = append(causes, err)
	}

	var findings []Finding
	for _, r := range v.rules {
		fs, err := v.run(r.check, in)
		if err != nil {
			causes = append(causes, fmt.Errorf("%s: %w", r.name, err))
			continue
		}
		findings = append(findings, fs...)
	}

	if len(causes) == 0 {
		return newResult(findings), nil
	}
	verr := &ValidationError{Causes: causes}
	findings = append(findings, Finding{
		Code:     agreement.CodeValidationError,
		Message:  "Some rules could not be evaluated: " + verr.Error(),
		Citation: v.agreement.Cite(agreement.CodeValidationError),
	})
	return newResult(findings), verr
}

func (v *Validator) run(check ruleFunc, in *input) (fs []Finding, err error) {
	defer func() {
		if p := recover(); p != nil {
			fs = nil
			err = fmt.Errorf("%w: %v", ErrRuleFailed, p)
		}
	}()
	return check(v, in)
}

func (v *Validator) blocking(code agreement.Code, format string, args ...any) Finding {
	return Finding{Code: code, Message: fmt.Sprintf(format, args...), Citation: v.agreement.Cite(code), Blocking: true}
}

func (v *Validator) warning(code agreement.Code, format string, args ...any) Finding {
	return Finding{Code: code, Message: fmt.Sprintf(format, args...), Citation: v.agreement.Cite(code)}
}

func (v *Validator) effectiveMinutes(s shift.Shift) (decimal.Decimal, error) {
	m, err := s.EffectiveMinutes(v.agreement)
	if err != nil {
		return decimal.Zero, fmt.Errorf("shift %s on %s: %w", s.ID, s.Date, err)
	}
	return m, nil
}

// hoursText renders minutes as "7.50h".
func hoursText(minutes decimal.Decimal) string {
	return shift.RoundHours(minutes.Div(decimal.NewFromInt(60))).StringFixed(shift.HoursPlaces) + "h"
}

func limitText(minutes int) string {
	return hoursText(decimal.NewFromInt(int64(minutes)))
}
