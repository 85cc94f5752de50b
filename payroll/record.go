package payroll

import (
	"time"

	"github.com/carework/shift-engine/agreement"
	"github.com/carework/shift-engine/generic"
	"github.com/carework/shift-engine/shift"
	"github.com/shopspring/decimal"
)

// Record is a shift as persisted: the shift itself plus the values derived
// from it at creation. Pay is nil when pricing failed; the shift is kept.
type Record struct {
	Shift          shift.Shift
	EffectiveHours decimal.Decimal
	Requalified    bool
	Pay            *ComputedPay
	CreatedAt      time.Time
}

// NewRecord derives the stored values of s. A pricing error leaves Pay nil
// and is returned alongside the record.
func (c *Calculator) NewRecord(in PayInput, now time.Time) (Record, error) {
	s := in.Shift
	rec := Record{
		Shift:       s,
		Requalified: s.Requalified(c.agreement.RequalificationThreshold),
		CreatedAt:   now.UTC(),
	}
	hours, err := s.EffectiveHours(c.agreement)
	if err != nil {
		return rec, err
	}
	rec.EffectiveHours = hours
	pay, err := c.ComputePay(in)
	if err != nil {
		return rec, err
	}
	rec.Pay = &pay
	return rec, nil
}

// Agreement returns the agreement the calculator prices under.
func (c *Calculator) Agreement() agreement.Agreement { return c.agreement }

// HoursBefore sums the effective hours of the shifts in week that precede s
// (earlier start, same worker). Shifts that cannot be measured count zero.
func HoursBefore(a agreement.Agreement, s shift.Shift, week []shift.Shift) decimal.Decimal {
	start := s.Span().Start
	total := decimal.Zero
	for _, o := range week {
		if s.IsEditOf(o) || !shift.SameWorker(s, o) || !o.Span().Start.Before(start) {
			continue
		}
		m, err := o.EffectiveMinutes(a)
		if err != nil {
			continue
		}
		total = total.Add(m)
	}
	return generic.MinutesToHours(total)
}
