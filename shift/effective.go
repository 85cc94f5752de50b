package shift

import (
	"github.com/carework/shift-engine/agreement"
	"github.com/carework/shift-engine/generic"
	"github.com/shopspring/decimal"
)

// HoursPlaces is the rounding applied to reported effective hours.
const HoursPlaces = 2

// Category says how a piece of a shift is paid.
type Category string

const (
	// CategoryWork is paid at the hourly rate: effective work, and night
	// presence once requalified.
	CategoryWork Category = "work"

	// CategoryDayPresence is paid as responsible presence at its 2/3 equivalent.
	CategoryDayPresence Category = "day_presence"

	// CategoryNightPresence is night presence that was not requalified.
	// It counts 0 effective minutes and earns the night allowance.
	CategoryNightPresence Category = "night_presence"
)

// Piece is a uniform slice of a shift: the whole shift for simple kinds,
// one segment for a guard.
type Piece struct {
	Offset    int // minutes from midnight of the shift's date
	Raw       int
	Break     int
	Kind      Kind
	Category  Category
	Effective decimal.Decimal // minutes
}

func (p Piece) span() span { return span{from: p.Offset, to: p.Offset + p.Raw} }

// Ratio is the share of each raw minute that is effective.
func (p Piece) Ratio() decimal.Decimal {
	if p.Raw == 0 {
		return decimal.Zero
	}
	return p.Effective.Div(decimal.NewFromInt(int64(p.Raw)))
}

// NightMinutes is the raw overlap of the piece with the night window.
func (p Piece) NightMinutes(w agreement.NightWindow) int {
	return nightMinutesIn(p.span(), w)
}

// SplitAtMidnight returns the raw minutes on the shift's date and on the
// following day.
func (p Piece) SplitAtMidnight() (sameDay, nextDay int) {
	s := p.span()
	sameDay = s.intersect(span{from: 0, to: generic.MinutesPerDay})
	nextDay = s.intersect(span{from: generic.MinutesPerDay, to: 2 * generic.MinutesPerDay})
	return sameDay, nextDay
}

// Pieces decomposes the shift after validating its structure.
func (s Shift) Pieces(a agreement.Agreement) ([]Piece, error) {
	if err := s.Validate(); err != nil {
		return nil, err
	}
	requalified := s.Requalified(a.RequalificationThreshold)

	if s.Kind != KindGuard24h {
		p, err := piece(s.Kind, int(s.Start), RawMinutes(s.Start, s.End), s.BreakMinutes, requalified, a)
		if err != nil {
			return nil, err
		}
		return []Piece{p}, nil
	}

	durations := segmentDurations(s.Start, s.Segments)
	pieces := make([]Piece, 0, len(s.Segments))
	for i, seg := range s.Segments {
		p, err := piece(seg.Kind, int(s.Start)+offset(s.Start, seg.Start), durations[i], seg.BreakMinutes, requalified, a)
		if err != nil {
			return nil, err
		}
		pieces = append(pieces, p)
	}
	return pieces, nil
}

func piece(kind Kind, off, raw, brk int, requalified bool, a agreement.Agreement) (Piece, error) {
	p := Piece{Offset: off, Raw: raw, Kind: kind}
	switch kind {
	case KindEffective:
		net := raw - brk
		if net < 0 {
			return Piece{}, &NegativeDurationError{Minutes: net}
		}
		p.Break = brk
		p.Category = CategoryWork
		p.Effective = decimal.NewFromInt(int64(net))
	case KindDayPresence:
		p.Category = CategoryDayPresence
		p.Effective = decimal.NewFromInt(int64(raw)).Mul(a.DayPresenceRatio)
	case KindNightPresence:
		if requalified {
			p.Category = CategoryWork
			p.Effective = decimal.NewFromInt(int64(raw))
		} else {
			p.Category = CategoryNightPresence
			p.Effective = decimal.Zero
		}
	default:
		return Piece{}, &StructuralError{Field: "kind", Reason: "cannot decompose kind " + string(kind), Err: ErrInvalidKind}
	}
	return p, nil
}

// =============================================================================
// EFFECTIVE HOURS
// =============================================================================

// EffectiveMinutes is the exact sum of effective minutes over all pieces:
//
//	effective       raw - break
//	day_presence    raw * DayPresenceRatio
//	night_presence  raw if the shift is requalified, else 0
//	guard_24h       the above per segment, requalification taken shift-wide
func (s Shift) EffectiveMinutes(a agreement.Agreement) (decimal.Decimal, error) {
	pieces, err := s.Pieces(a)
	if err != nil {
		return decimal.Zero, err
	}
	total := decimal.Zero
	for _, p := range pieces {
		total = total.Add(p.Effective)
	}
	return total, nil
}

// EffectiveHours is EffectiveMinutes in hours, rounded half-up to
// HoursPlaces decimals.
func (s Shift) EffectiveHours(a agreement.Agreement) (decimal.Decimal, error) {
	m, err := s.EffectiveMinutes(a)
	if err != nil {
		return decimal.Zero, err
	}
	return RoundHours(generic.MinutesToHours(m)), nil
}

// EffectiveHours is the function form of Shift.EffectiveHours.
func EffectiveHours(s Shift, a agreement.Agreement) (decimal.Decimal, error) {
	return s.EffectiveHours(a)
}

// RoundHours applies the reporting precision.
func RoundHours(h decimal.Decimal) decimal.Decimal { return h.Round(HoursPlaces) }
