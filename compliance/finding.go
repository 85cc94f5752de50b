/*
Package compliance decides whether a shift is admissible under the agreement.

PURPOSE:
  The validator applies every working-time rule to a candidate shift given
  the shifts already scheduled and the approved absences. Each rule can
  produce a blocking error or an advisory warning; a warning may be saved
  once the user acknowledges it, an error never.

RULES:
  OVERLAP                    same contract, same day, intervals intersect
  DAILY_HOURS_*              effective hours of the day vs. the daily ceiling
  WEEKLY_HOURS_*             effective hours of the Monday-Sunday week
  WEEKLY_REST_INSUFFICIENT   longest rest span touching the week
  DAILY_REST_INSUFFICIENT    rest between the candidate and the shifts of
                             neighbouring days
  ABSENCE_CONFLICT           candidate inside an approved absence
  BREAK_TOO_SHORT            advisory, effective stretch without its break
  NIGHT_PRESENCE_REQUALIFIED advisory, presence paid as work

FAILURE POLICY:
  Validate never panics and never drops a rule's verdict because another
  rule failed. A rule that errors (or panics) on malformed input becomes a
  single non-blocking VALIDATION_ERROR finding, and the error is also
  returned so the caller does not price a shift on broken input.

SEE ALSO:
  - quick.go: the lightweight pre-check
  - weekly.go: employer-wide weekly overview
  - revalidate.go: caller-side debounced re-validation
*/
package compliance

import (
	"github.com/carework/shift-engine/agreement"
	"github.com/carework/shift-engine/generic"
)

// Finding is one rule verdict.
type Finding struct {
	Code     agreement.Code `json:"code"`
	Message  string         `json:"message"`
	Citation string         `json:"citation"`
	Blocking bool           `json:"blocking"`
}

// Result is the outcome of a full validation.
type Result struct {
	Valid    bool      `json:"valid"`
	Errors   []Finding `json:"errors"`
	Warnings []Finding `json:"warnings"`
}

// HasWarnings reports whether the result needs an acknowledgment.
func (r Result) HasWarnings() bool { return len(r.Warnings) > 0 }

// Has reports whether a finding with the given code was produced.
func (r Result) Has(code agreement.Code) bool {
	for _, f := range r.Errors {
		if f.Code == code {
			return true
		}
	}
	for _, f := range r.Warnings {
		if f.Code == code {
			return true
		}
	}
	return false
}

func newResult(findings []Finding) Result {
	r := Result{Errors: []Finding{}, Warnings: []Finding{}}
	for _, f := range findings {
		if f.Blocking {
			r.Errors = append(r.Errors, f)
		} else {
			r.Warnings = append(r.Warnings, f)
		}
	}
	r.Valid = len(r.Errors) == 0
	return r
}

// Absence is an approved absence of an employee.
type Absence struct {
	ID         string
	EmployeeID generic.EmployeeID
	Kind       string
	Period     generic.Period
}

// =============================================================================
// SEVERITY
// =============================================================================

// Status is the worst severity among an employee's findings.
type Status string

const (
	StatusOK       Status = "ok"
	StatusWarning  Status = "warning"
	StatusCritical Status = "critical"
)

// StatusOf returns critical for any error, warning for any warning.
func StatusOf(findings []Finding) Status {
	status := StatusOK
	for _, f := range findings {
		if f.Blocking {
			return StatusCritical
		}
		status = StatusWarning
	}
	return status
}
