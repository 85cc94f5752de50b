package shift

import (
	"fmt"

	"github.com/carework/shift-engine/agreement"
	"github.com/carework/shift-engine/generic"
)

// =============================================================================
// GUARD PLAN - Editing model of a 24h guard's segments
// =============================================================================

// GuardPlan holds the segments of a 24h guard. Every mutator builds the
// new segment list, checks it, and only then commits it: a rejected edit
// returns ErrSegmentRejected and leaves the plan as it was.
//
// Invariants (checked by checkTiling):
//   - at least two segments
//   - segment 0 starts at the shift start
//   - segment starts are strictly increasing, measured from the shift start
//   - the last segment ends at the shift start, one day later
type GuardPlan struct {
	start    generic.Clock
	segments []Segment
}

// NewGuardPlan validates segments against start.
func NewGuardPlan(start generic.Clock, segments []Segment) (*GuardPlan, error) {
	segs := append([]Segment(nil), segments...)
	if err := checkTiling(start, segs); err != nil {
		return nil, err
	}
	return &GuardPlan{start: start, segments: segs}, nil
}

// DefaultGuardPlan is the usual layout: responsible day presence until the
// night window opens, then night presence until the next start.
func DefaultGuardPlan(start generic.Clock, w agreement.NightWindow) *GuardPlan {
	second := w.Start
	if second == start {
		second = start.Add(generic.MinutesPerDay / 2)
	}
	return &GuardPlan{
		start: start,
		segments: []Segment{
			{Start: start, Kind: KindDayPresence},
			{Start: second, Kind: KindNightPresence},
		},
	}
}

// PlanOf returns the editing model of a guard shift.
func PlanOf(s Shift) (*GuardPlan, error) {
	if s.Kind != KindGuard24h {
		return nil, &StructuralError{Field: "kind", Reason: "only guard_24h shifts have segments", Err: ErrInvalidKind}
	}
	return NewGuardPlan(s.Start, s.Segments)
}

func (p *GuardPlan) Start() generic.Clock { return p.start }

func (p *GuardPlan) Len() int { return len(p.segments) }

// Segments returns a copy of the segment list.
func (p *GuardPlan) Segments() []Segment {
	return append([]Segment(nil), p.segments...)
}

// ApplyTo writes the plan into a guard shift; start and end follow the plan.
func (p *GuardPlan) ApplyTo(s *Shift) {
	s.Kind = KindGuard24h
	s.Start = p.start
	s.End = p.start
	s.Segments = p.Segments()
}

// Durations returns each segment's length in minutes; they sum to 1440.
func (p *GuardPlan) Durations() []int {
	return segmentDurations(p.start, p.segments)
}

// =============================================================================
// MUTATORS
// =============================================================================

// AddSegment splits segment after into two halves of equal length (the
// first gets the extra minute), both of its kind. Its break stays on the
// first half, capped at that half's length.
func (p *GuardPlan) AddSegment(after int) error {
	if err := p.checkIndex(after); err != nil {
		return err
	}
	dur := p.Durations()[after]
	if dur < 2 {
		return rejected("segment %d is too short to split", after)
	}
	first := p.segments[after]
	half := dur - dur/2
	second := Segment{Start: first.Start.Add(half), Kind: first.Kind}
	first.BreakMinutes = min(first.BreakMinutes, half)

	segs := make([]Segment, 0, len(p.segments)+1)
	segs = append(segs, p.segments[:after]...)
	segs = append(segs, first, second)
	segs = append(segs, p.segments[after+1:]...)
	return p.commit(p.start, segs)
}

// RemoveSegment merges segment index into its predecessor. Segment 0 is
// merged into its successor, which then starts at the shift start.
func (p *GuardPlan) RemoveSegment(index int) error {
	if err := p.checkIndex(index); err != nil {
		return err
	}
	if len(p.segments) <= 2 {
		return rejected("a guard keeps at least 2 segments")
	}
	segs := make([]Segment, 0, len(p.segments)-1)
	segs = append(segs, p.segments[:index]...)
	segs = append(segs, p.segments[index+1:]...)
	if index == 0 {
		segs[0].Start = p.start
	}
	return p.commit(p.start, segs)
}

// SetSegmentEnd moves the boundary between segment index and index+1.
// The last segment's end is the shift start; use SetShiftStart for it.
func (p *GuardPlan) SetSegmentEnd(index int, end generic.Clock) error {
	if err := p.checkIndex(index); err != nil {
		return err
	}
	if index == len(p.segments)-1 {
		return rejected("the last segment ends at the shift start")
	}
	if !end.Valid() {
		return rejected("invalid time %d", int(end))
	}
	segs := p.Segments()
	segs[index+1].Start = end
	return p.commit(p.start, segs)
}

// SetSegmentKind changes one segment's kind.
func (p *GuardPlan) SetSegmentKind(index int, kind Kind) error {
	if err := p.checkIndex(index); err != nil {
		return err
	}
	if !kind.ValidSegmentKind() {
		return rejected("kind %q is not allowed in a guard", kind)
	}
	segs := p.Segments()
	segs[index].Kind = kind
	if kind != KindEffective {
		segs[index].BreakMinutes = 0
	}
	return p.commit(p.start, segs)
}

// SetSegmentBreak sets the break of an effective segment.
func (p *GuardPlan) SetSegmentBreak(index, breakMinutes int) error {
	if err := p.checkIndex(index); err != nil {
		return err
	}
	if p.segments[index].Kind != KindEffective && breakMinutes != 0 {
		return rejected("only effective segments take a break")
	}
	segs := p.Segments()
	segs[index].BreakMinutes = breakMinutes
	return p.commit(p.start, segs)
}

// SetShiftStart moves the shift start, which is also segment 0's start and
// the last segment's end. The new start must stay strictly inside the arc
// formed by the last segment and segment 0.
func (p *GuardPlan) SetShiftStart(start generic.Clock) error {
	if !start.Valid() {
		return rejected("invalid time %d", int(start))
	}
	segs := p.Segments()
	segs[0].Start = start
	return p.commit(start, segs)
}

func (p *GuardPlan) commit(start generic.Clock, segs []Segment) error {
	if err := checkTiling(start, segs); err != nil {
		return fmt.Errorf("%w: %v", ErrSegmentRejected, err)
	}
	p.start = start
	p.segments = segs
	return nil
}

func (p *GuardPlan) checkIndex(i int) error {
	if i < 0 || i >= len(p.segments) {
		return rejected("segment %d out of range", i)
	}
	return nil
}

func rejected(format string, args ...any) error {
	return fmt.Errorf("%w: %s", ErrSegmentRejected, fmt.Sprintf(format, args...))
}

// =============================================================================
// BREAKS
// =============================================================================

// MinBreakRequired is the statutory break for segment index: MinBreakMinutes
// when it is an effective segment longer than BreakAfterMinutes, else 0.
// Advisory only.
func (p *GuardPlan) MinBreakRequired(index int, a agreement.Agreement) int {
	return MinBreakRequired(p.start, p.segments, index, a)
}

// MinBreakRequired is the package-level form of GuardPlan.MinBreakRequired.
func MinBreakRequired(start generic.Clock, segments []Segment, index int, a agreement.Agreement) int {
	if index < 0 || index >= len(segments) || segments[index].Kind != KindEffective {
		return 0
	}
	if segmentDurations(start, segments)[index] > a.BreakAfterMinutes {
		return a.MinBreakMinutes
	}
	return 0
}

// =============================================================================
// TILING
// =============================================================================

// offset is c measured forward from start, in [0, 1440).
func offset(start, c generic.Clock) int {
	return (int(c) - int(start) + generic.MinutesPerDay) % generic.MinutesPerDay
}

func segmentDurations(start generic.Clock, segs []Segment) []int {
	out := make([]int, len(segs))
	for i := range segs {
		end := generic.MinutesPerDay
		if i+1 < len(segs) {
			end = offset(start, segs[i+1].Start)
		}
		out[i] = end - offset(start, segs[i].Start)
	}
	return out
}

func checkTiling(start generic.Clock, segs []Segment) error {
	fail := func(reason string) error {
		return &StructuralError{Field: "segments", Reason: reason, Err: ErrSegmentsNotTiling}
	}
	if len(segs) < 2 {
		return fail("a guard needs at least 2 segments")
	}
	if segs[0].Start != start {
		return fail("first segment must start at the shift start")
	}
	prev := 0
	for i, seg := range segs {
		if !seg.Start.Valid() {
			return fail(fmt.Sprintf("segment %d has an invalid start", i))
		}
		if !seg.Kind.ValidSegmentKind() {
			return &StructuralError{Field: "segments", Reason: fmt.Sprintf("segment %d has kind %q", i, seg.Kind), Err: ErrInvalidKind}
		}
		if seg.BreakMinutes < 0 {
			return fail(fmt.Sprintf("segment %d has a negative break", i))
		}
		if i > 0 {
			off := offset(start, seg.Start)
			if off <= prev {
				return fail(fmt.Sprintf("segment %d does not start after segment %d", i, i-1))
			}
			prev = off
		}
	}
	for i, d := range segmentDurations(start, segs) {
		if segs[i].Kind == KindEffective && segs[i].BreakMinutes > d {
			return fail(fmt.Sprintf("segment %d break exceeds its %d minutes", i, d))
		}
	}
	return nil
}
