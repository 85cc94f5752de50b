package shift

import (
	"time"

	"github.com/carework/shift-engine/generic"
)

// RawMinutes is the span from start to end with no break deducted.
// end <= start means the shift ends the next day, so end == start is a
// full day.
func RawMinutes(start, end generic.Clock) int {
	raw := int(end) - int(start)
	if raw <= 0 {
		raw += generic.MinutesPerDay
	}
	return raw
}

// NetMinutes is RawMinutes minus the break. A break longer than the span
// returns the negative net together with a *NegativeDurationError.
func NetMinutes(start, end generic.Clock, breakMinutes int) (int, error) {
	net := RawMinutes(start, end) - breakMinutes
	if net < 0 {
		return net, &NegativeDurationError{Minutes: net}
	}
	return net, nil
}

// DisplayMinutes floors a net duration at zero. Only for rendering a value
// whose error has already been handled.
func DisplayMinutes(net int) int {
	if net < 0 {
		return 0
	}
	return net
}

func minutes(n int) time.Duration { return time.Duration(n) * time.Minute }

// span is a half-open range of minutes measured from midnight of the
// shift's date; values past 1440 fall on the next day.
type span struct {
	from, to int
}

func (s span) len() int { return s.to - s.from }

func (s span) intersect(o span) int {
	from, to := max(s.from, o.from), min(s.to, o.to)
	if to <= from {
		return 0
	}
	return to - from
}
