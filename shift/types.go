/*
Package shift models a home-care shift and derives its time quantities.

PURPOSE:
  A shift is a wall-clock interval on a calendar day, of one of four kinds.
  This package answers the questions every other component asks about it:
  how many minutes it spans, how many of them fall in the legal night
  window, whether its night presence is requalified as work, and how many
  hours of it legally count as effective work.

SHIFT KINDS:
  effective        active work, counted minute for minute (minus break)
  day_presence     responsible presence by day, counted at 2/3
  night_presence   presence at night, counted 0 unless requalified
  guard_24h        a full day split into ordered segments of the kinds above

OVERNIGHT POLICY:
  end <= start means the shift ends the next day. This is applied in one
  place (RawMinutes) and every other computation goes through it. end ==
  start is only legal for guard_24h, where it means exactly 1440 minutes.

PIECES:
  Pieces() flattens any shift into uniform slices (one for simple kinds,
  one per segment for guards), each carrying its offset from the shift's
  day, raw span, effective minutes and pay category. Effective hours,
  night overlap and pay are all sums over pieces, so the four kinds meet
  in a single code path.

SEE ALSO:
  - guard.go: GuardPlan, the segment editing model
  - effective.go: EffectiveHours
  - compliance/validator.go: rules evaluated on shifts
*/
package shift

import (
	"github.com/carework/shift-engine/generic"
)

// =============================================================================
// KIND
// =============================================================================

type Kind string

const (
	KindEffective     Kind = "effective"
	KindDayPresence   Kind = "day_presence"
	KindNightPresence Kind = "night_presence"
	KindGuard24h      Kind = "guard_24h"
)

func (k Kind) Valid() bool {
	switch k {
	case KindEffective, KindDayPresence, KindNightPresence, KindGuard24h:
		return true
	}
	return false
}

// ValidSegmentKind reports whether k may be used inside a guard shift.
func (k Kind) ValidSegmentKind() bool {
	return k == KindEffective || k == KindDayPresence || k == KindNightPresence
}

// =============================================================================
// SHIFT
// =============================================================================

// Shift is both a candidate being validated and a shift already on record.
// For a candidate being edited, ID carries its prior identity so that it
// is not compared against itself.
type Shift struct {
	ID           string
	ContractID   generic.ContractID
	EmployeeID   generic.EmployeeID
	Date         generic.Date
	Start        generic.Clock
	End          generic.Clock
	BreakMinutes int
	Kind         Kind

	// NightInterventions counts night interventions (night_presence, guard_24h).
	NightInterventions int

	// HadNightAction declares actual work inside the night window; it is
	// what makes an effective shift eligible for the night majoration.
	HadNightAction bool

	// Segments tile the 24 hours of a guard_24h shift.
	Segments []Segment
}

// Segment is one slice of a guard shift. Its end is the next segment's
// start; the last one ends at the first one's start, a day later.
type Segment struct {
	Start        generic.Clock `json:"start"`
	Kind         Kind          `json:"kind"`
	BreakMinutes int           `json:"break_minutes"` // effective segments only
}

// Span returns the absolute interval of the shift.
func (s Shift) Span() generic.Interval {
	start := s.Date.At(s.Start)
	return generic.Interval{
		Start: start,
		End:   start.Add(minutes(RawMinutes(s.Start, s.End))),
	}
}

// SameDayAs reports whether two shifts start on the same calendar day.
func (s Shift) SameDayAs(o Shift) bool { return s.Date.Equal(o.Date) }

// IsEditOf reports whether o is the persisted version of candidate s.
func (s Shift) IsEditOf(o Shift) bool { return s.ID != "" && s.ID == o.ID }

// =============================================================================
// STRUCTURAL VALIDATION
// =============================================================================

// Validate checks the structural invariants of a shift. It says nothing
// about legal compliance; it rejects input no rule can be evaluated on.
func (s Shift) Validate() error {
	if !s.Kind.Valid() {
		return &StructuralError{Field: "kind", Reason: "unknown shift kind " + string(s.Kind), Err: ErrInvalidKind}
	}
	if s.Date.IsZero() {
		return &StructuralError{Field: "date", Reason: "date is required"}
	}
	if !s.Start.Valid() || !s.End.Valid() {
		return &StructuralError{Field: "start_time", Reason: "time out of range", Err: generic.ErrInvalidClock}
	}
	if s.BreakMinutes < 0 {
		return &StructuralError{Field: "break_minutes", Reason: "break cannot be negative"}
	}
	if s.NightInterventions < 0 {
		return &StructuralError{Field: "night_interventions", Reason: "intervention count cannot be negative"}
	}
	if s.Kind == KindGuard24h {
		if s.End != s.Start {
			return &StructuralError{Field: "end_time", Reason: "a 24h guard ends at its start time", Err: ErrSegmentsNotTiling}
		}
		if _, err := NewGuardPlan(s.Start, s.Segments); err != nil {
			return err
		}
		return nil
	}
	if s.End == s.Start {
		return &StructuralError{Field: "end_time", Reason: "end equals start; only a 24h guard may span a full day"}
	}
	if s.Kind == KindEffective {
		if _, err := NetMinutes(s.Start, s.End, s.BreakMinutes); err != nil {
			return &StructuralError{Field: "break_minutes", Reason: "break longer than the shift", Err: err}
		}
	}
	return nil
}
