package shift_test

import (
	"sort"
	"testing"

	"github.com/carework/shift-engine/agreement"
	"github.com/carework/shift-engine/generic"
	"github.com/carework/shift-engine/shift"
	"github.com/leanovate/gopter"
	"github.com/leanovate/gopter/gen"
	"github.com/leanovate/gopter/prop"
	"github.com/shopspring/decimal"
)

func properties(minSuccess int) *gopter.Properties {
	parameters := gopter.DefaultTestParameters()
	parameters.MinSuccessfulTests = minSuccess
	return gopter.NewProperties(parameters)
}

// segmentsFrom builds a valid tiling from a start and arbitrary offsets.
func segmentsFrom(start int, offsets []int) []shift.Segment {
	seen := map[int]bool{0: true}
	uniq := []int{0}
	for _, o := range offsets {
		o = o % generic.MinutesPerDay
		if o < 0 {
			o = -o
		}
		if !seen[o] {
			seen[o] = true
			uniq = append(uniq, o)
		}
	}
	if len(uniq) < 2 {
		uniq = append(uniq, generic.MinutesPerDay/2)
	}
	sort.Ints(uniq)

	kinds := []shift.Kind{shift.KindEffective, shift.KindDayPresence, shift.KindNightPresence}
	segs := make([]shift.Segment, len(uniq))
	for i, o := range uniq {
		segs[i] = shift.Segment{
			Start: generic.Clock(start).Add(o),
			Kind:  kinds[i%len(kinds)],
		}
	}
	return segs
}

func total(xs []int) int {
	n := 0
	for _, x := range xs {
		n += x
	}
	return n
}

// Property: end <= start is treated as next day, so raw minutes are in (0, 1440].
func TestProperty_RawMinutesWrapsOvernight(t *testing.T) {
	properties := properties(200)

	properties.Property("raw span is positive and at most a day", prop.ForAll(
		func(start, end int) bool {
			raw := shift.RawMinutes(generic.Clock(start), generic.Clock(end))
			if raw <= 0 || raw > generic.MinutesPerDay {
				return false
			}
			return (start+raw)%generic.MinutesPerDay == end
		},
		gen.IntRange(0, generic.MinutesPerDay-1),
		gen.IntRange(0, generic.MinutesPerDay-1),
	))

	properties.TestingRun(t)
}

// Property: any valid segment list tiles exactly 1440 minutes.
func TestProperty_SegmentsTileADay(t *testing.T) {
	properties := properties(200)

	properties.Property("durations sum to 1440", prop.ForAll(
		func(start int, offsets []int) bool {
			p, err := shift.NewGuardPlan(generic.Clock(start), segmentsFrom(start, offsets))
			if err != nil {
				return false
			}
			return total(p.Durations()) == generic.MinutesPerDay
		},
		gen.IntRange(0, generic.MinutesPerDay-1),
		gen.SliceOfN(6, gen.IntRange(1, generic.MinutesPerDay-1)),
	))

	properties.Property("edits never change the total", prop.ForAll(
		func(start int, offsets []int, ops []int) bool {
			p, err := shift.NewGuardPlan(generic.Clock(start), segmentsFrom(start, offsets))
			if err != nil {
				return false
			}
			for i, op := range ops {
				idx := op % p.Len()
				switch i % 4 {
				case 0:
					_ = p.AddSegment(idx)
				case 1:
					_ = p.RemoveSegment(idx)
				case 2:
					_ = p.SetSegmentEnd(idx, generic.Clock(op%generic.MinutesPerDay))
				case 3:
					_ = p.SetShiftStart(generic.Clock(op % generic.MinutesPerDay))
				}
				if p.Len() < 2 || total(p.Durations()) != generic.MinutesPerDay {
					return false
				}
				if p.Segments()[0].Start != p.Start() {
					return false
				}
			}
			return true
		},
		gen.IntRange(0, generic.MinutesPerDay-1),
		gen.SliceOfN(4, gen.IntRange(1, generic.MinutesPerDay-1)),
		gen.SliceOfN(12, gen.IntRange(0, 10000)),
	))

	properties.TestingRun(t)
}

// Property: requalification is monotonic in the intervention count.
func TestProperty_RequalificationMonotonic(t *testing.T) {
	properties := properties(100)
	threshold := agreement.DefaultRequalificationThreshold

	properties.Property("false below threshold, true at and above", prop.ForAll(
		func(n int) bool {
			for _, kind := range []shift.Kind{shift.KindNightPresence, shift.KindGuard24h} {
				if shift.IsRequalified(kind, n, threshold) != (n >= threshold) {
					return false
				}
			}
			return true
		},
		gen.IntRange(0, 20),
	))

	properties.TestingRun(t)
}

// Property: a day-presence shift of D minutes counts D * 2/3, rounded to cents of an hour.
func TestProperty_DayPresenceTwoThirds(t *testing.T) {
	properties := properties(200)
	a := agreement.Default()

	properties.Property("effective hours = D * 2/3", prop.ForAll(
		func(start, length int) bool {
			s := shift.Shift{
				Date:  generic.MustParseDate("2025-03-10"),
				Start: generic.Clock(start),
				End:   generic.Clock(start).Add(length),
				Kind:  shift.KindDayPresence,
			}
			got, err := s.EffectiveHours(a)
			if err != nil {
				return false
			}
			want := decimal.NewFromInt(int64(length)).
				Mul(a.DayPresenceRatio).
				Div(decimal.NewFromInt(60)).
				Round(shift.HoursPlaces)
			return got.Equal(want)
		},
		gen.IntRange(0, generic.MinutesPerDay-1),
		gen.IntRange(1, generic.MinutesPerDay-1),
	))

	properties.TestingRun(t)
}
