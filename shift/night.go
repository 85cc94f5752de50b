package shift

import (
	"github.com/carework/shift-engine/agreement"
	"github.com/carework/shift-engine/generic"
)

// nightSpans lays the window out on the days around the shift's date.
// A shift or segment can start at most one day after its date and a
// window can begin on the previous evening, so days -1..2 cover every case.
func nightSpans(w agreement.NightWindow) []span {
	if w.Start == w.End {
		return nil
	}
	length := RawMinutes(w.Start, w.End)
	spans := make([]span, 0, 4)
	for day := -1; day <= 2; day++ {
		from := day*generic.MinutesPerDay + int(w.Start)
		spans = append(spans, span{from: from, to: from + length})
	}
	return spans
}

func nightMinutesIn(s span, w agreement.NightWindow) int {
	total := 0
	for _, n := range nightSpans(w) {
		total += s.intersect(n)
	}
	return total
}

// NightOverlap returns how many minutes of start..end fall inside the
// night window, and whether the interval touches it at all. Both the
// interval and the window may cross midnight.
func NightOverlap(start, end generic.Clock, w agreement.NightWindow) (int, bool) {
	n := nightMinutesIn(span{from: int(start), to: int(start) + RawMinutes(start, end)}, w)
	return n, n > 0
}

// NightMinutes is NightOverlap for a whole shift.
func (s Shift) NightMinutes(w agreement.NightWindow) int {
	n, _ := NightOverlap(s.Start, s.End, w)
	return n
}
