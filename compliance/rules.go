package compliance

import (
	"sort"
	"time"

	"github.com/carework/shift-engine/agreement"
	"github.com/carework/shift-engine/generic"
	"github.com/carework/shift-engine/shift"
	"github.com/shopspring/decimal"
)

// =============================================================================
// OVERLAP
// =============================================================================

// checkOverlap reports at most one overlap: the first conflicting shift of
// the same contract on the same day.
func checkOverlap(v *Validator, in *input) ([]Finding, error) {
	c := in.candidate
	span := c.Span()
	for _, o := range in.others {
		if o.ContractID != c.ContractID || !o.SameDayAs(c) {
			continue
		}
		if span.Overlaps(o.Span()) {
			return []Finding{v.blocking(agreement.CodeOverlap,
				"Overlaps the %s-%s shift already planned on %s", o.Start, o.End, o.Date)}, nil
		}
	}
	return nil, nil
}

// =============================================================================
// WORKING TIME
// =============================================================================

// sumEffective adds the candidate's effective minutes to those of the
// employee's other shifts accepted by keep.
func sumEffective(v *Validator, in *input, keep func(shift.Shift) bool) (decimal.Decimal, error) {
	total, err := v.effectiveMinutes(in.candidate)
	if err != nil {
		return decimal.Zero, err
	}
	for _, o := range in.colleagues() {
		if !keep(o) {
			continue
		}
		m, err := v.effectiveMinutes(o)
		if err != nil {
			return decimal.Zero, err
		}
		total = total.Add(m)
	}
	return total, nil
}

func checkDailyHours(v *Validator, in *input) ([]Finding, error) {
	a := v.agreement
	total, err := sumEffective(v, in, in.candidate.SameDayAs)
	if err != nil {
		return nil, err
	}
	switch {
	case total.GreaterThan(decimal.NewFromInt(int64(a.DailyMaxMinutes))):
		return []Finding{v.blocking(agreement.CodeDailyHoursExceeded,
			"%s of effective work on %s exceeds the daily maximum of %s",
			hoursText(total), in.candidate.Date, limitText(a.DailyMaxMinutes))}, nil
	case total.GreaterThan(decimal.NewFromInt(int64(a.DailyWarningMinutes()))):
		return []Finding{v.warning(agreement.CodeDailyHoursNearLimit,
			"%s of effective work on %s is close to the daily maximum of %s",
			hoursText(total), in.candidate.Date, limitText(a.DailyMaxMinutes))}, nil
	}
	return nil, nil
}

func checkWeeklyHours(v *Validator, in *input) ([]Finding, error) {
	a := v.agreement
	week := generic.WeekOf(in.candidate.Date)
	total, err := sumEffective(v, in, func(o shift.Shift) bool { return week.Contains(o.Date) })
	if err != nil {
		return nil, err
	}
	switch {
	case total.GreaterThan(decimal.NewFromInt(int64(a.WeeklyMaxMinutes))):
		return []Finding{v.blocking(agreement.CodeWeeklyHoursExceeded,
			"%s of effective work in the week of %s exceeds the weekly maximum of %s",
			hoursText(total), week.Start, limitText(a.WeeklyMaxMinutes))}, nil
	case total.GreaterThan(decimal.NewFromInt(int64(a.WeeklyWarningMinutes))):
		return []Finding{v.warning(agreement.CodeWeeklyHoursNearLimit,
			"%s of effective work in the week of %s is above %s, close to the weekly maximum of %s",
			hoursText(total), week.Start, limitText(a.WeeklyWarningMinutes), limitText(a.WeeklyMaxMinutes))}, nil
	}
	return nil, nil
}

// =============================================================================
// REST
// =============================================================================

// busyIntervals returns the employee's shifts, candidate included, as
// sorted merged intervals.
func busyIntervals(in *input) []generic.Interval {
	spans := []generic.Interval{in.candidate.Span()}
	for _, o := range in.colleagues() {
		spans = append(spans, o.Span())
	}
	sort.Slice(spans, func(i, j int) bool { return spans[i].Start.Before(spans[j].Start) })

	merged := []generic.Interval{spans[0]}
	for _, s := range spans[1:] {
		last := &merged[len(merged)-1]
		if !s.Start.After(last.End) {
			if s.End.After(last.End) {
				last.End = s.End
			}
			continue
		}
		merged = append(merged, s)
	}
	return merged
}

// checkWeeklyRest finds the longest rest span inside the candidate's week.
// Busy intervals are clipped to the week and both week boundaries bound a
// span, so shifts outside the week never change the verdict.
func checkWeeklyRest(v *Validator, in *input) ([]Finding, error) {
	week := generic.WeekOf(in.candidate.Date)
	lo := week.Start.Time()
	hi := week.End.AddDays(1).Time()

	busy := []generic.Interval{{Start: lo, End: lo}}
	for _, iv := range busyIntervals(in) {
		if !iv.End.After(lo) || !iv.Start.Before(hi) {
			continue
		}
		if iv.Start.Before(lo) {
			iv.Start = lo
		}
		if iv.End.After(hi) {
			iv.End = hi
		}
		busy = append(busy, iv)
	}
	busy = append(busy, generic.Interval{Start: hi, End: hi})

	var longest time.Duration
	for i := 1; i < len(busy); i++ {
		if d := busy[i].Start.Sub(busy[i-1].End); d > longest {
			longest = d
		}
	}

	required := time.Duration(v.agreement.WeeklyRestMinutes) * time.Minute
	if longest < required {
		return []Finding{v.blocking(agreement.CodeWeeklyRestInsufficient,
			"The longest rest in the week of %s is %s; at least %s in a row is required",
			week.Start, hoursText(decimal.NewFromInt(int64(longest/time.Minute))), limitText(v.agreement.WeeklyRestMinutes))}, nil
	}
	return nil, nil
}

// checkDailyRest measures the rest between the candidate and the nearest
// shifts on other days. Shifts of the same day are split shifts and are
// bounded by the daily hours rule instead.
func checkDailyRest(v *Validator, in *input) ([]Finding, error) {
	c := in.candidate
	span := c.Span()
	required := time.Duration(v.agreement.DailyRestMinutes) * time.Minute

	shortest := time.Duration(-1)
	for _, o := range in.colleagues() {
		if o.SameDayAs(c) {
			continue
		}
		other := o.Span()
		var gap time.Duration
		switch {
		case !other.End.After(span.Start):
			gap = span.Start.Sub(other.End)
		case !other.Start.Before(span.End):
			gap = other.Start.Sub(span.End)
		default:
			// intervals intersect across midnight: no rest at all
			gap = 0
		}
		if shortest < 0 || gap < shortest {
			shortest = gap
		}
	}

	if shortest >= 0 && shortest < required {
		return []Finding{v.blocking(agreement.CodeDailyRestInsufficient,
			"Only %s of rest between this shift and the neighbouring one; at least %s is required",
			hoursText(decimal.NewFromInt(int64(shortest/time.Minute))), limitText(v.agreement.DailyRestMinutes))}, nil
	}
	return nil, nil
}

// =============================================================================
// ABSENCES
// =============================================================================

func checkAbsence(v *Validator, in *input) ([]Finding, error) {
	c := in.candidate
	for _, abs := range in.absences {
		if abs.EmployeeID != c.EmployeeID {
			continue
		}
		if abs.Period.Contains(c.Date) {
			return []Finding{v.blocking(agreement.CodeAbsenceConflict,
				"The employee has an approved %s absence from %s to %s", abs.Kind, abs.Period.Start, abs.Period.End)}, nil
		}
	}
	return nil, nil
}

// =============================================================================
// ADVISORIES
// =============================================================================

func checkBreak(v *Validator, in *input) ([]Finding, error) {
	a := v.agreement
	c := in.candidate
	switch c.Kind {
	case shift.KindEffective:
		net, err := shift.NetMinutes(c.Start, c.End, c.BreakMinutes)
		if err != nil {
			return nil, err
		}
		if net > a.BreakAfterMinutes && c.BreakMinutes < a.MinBreakMinutes {
			return []Finding{v.warning(agreement.CodeBreakTooShort,
				"%s of effective work with a %d minute break; %d minutes are required beyond %s",
				limitText(net), c.BreakMinutes, a.MinBreakMinutes, limitText(a.BreakAfterMinutes))}, nil
		}
	case shift.KindGuard24h:
		for i, seg := range c.Segments {
			if req := shift.MinBreakRequired(c.Start, c.Segments, i, a); seg.BreakMinutes < req {
				return []Finding{v.warning(agreement.CodeBreakTooShort,
					"Effective segment starting at %s needs a %d minute break, %d planned",
					seg.Start, req, seg.BreakMinutes)}, nil
			}
		}
	}
	return nil, nil
}

func checkRequalification(v *Validator, in *input) ([]Finding, error) {
	c := in.candidate
	threshold := v.agreement.RequalificationThreshold
	if c.Requalified(threshold) {
		return []Finding{v.warning(agreement.CodeNightPresenceRequalified,
			"%d night interventions reach the threshold of %d: night presence is paid as effective work",
			c.NightInterventions, threshold)}, nil
	}
	return nil, nil
}
