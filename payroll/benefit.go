package payroll

import (
	"errors"
	"fmt"
	"sort"

	"github.com/carework/shift-engine/generic"
	"github.com/shopspring/decimal"
)

// ErrUnknownBenefitMode is returned for a mode missing from the rate table.
var ErrUnknownBenefitMode = errors.New("unknown benefit mode")

// BenefitMode is how care funded by a disability benefit is delivered.
type BenefitMode string

const (
	ModeDirectEmployment        BenefitMode = "direct_employment"
	ModeMandatedService         BenefitMode = "mandated_service"
	ModeFamilyCaregiver         BenefitMode = "family_caregiver"
	ModeFamilyCaregiverFullTime BenefitMode = "family_caregiver_full_time"
)

// BenefitRates maps each mode to its hourly rate.
type BenefitRates map[BenefitMode]decimal.Decimal

// DefaultBenefitRates are the hourly rates of the human-assistance benefit.
func DefaultBenefitRates() BenefitRates {
	return BenefitRates{
		ModeDirectEmployment:        generic.MustDecimal("19.34"),
		ModeMandatedService:         generic.MustDecimal("21.27"),
		ModeFamilyCaregiver:         generic.MustDecimal("4.59"),
		ModeFamilyCaregiverFullTime: generic.MustDecimal("6.89"),
	}
}

// Rate returns the hourly rate of mode.
func (r BenefitRates) Rate(mode BenefitMode) (decimal.Decimal, error) {
	rate, ok := r[mode]
	if !ok {
		return decimal.Zero, fmt.Errorf("%w: %q", ErrUnknownBenefitMode, mode)
	}
	return rate, nil
}

// Envelope is rate x hours, rounded to the cent.
func (r BenefitRates) Envelope(mode BenefitMode, hours decimal.Decimal) (decimal.Decimal, error) {
	rate, err := r.Rate(mode)
	if err != nil {
		return decimal.Zero, err
	}
	if hours.IsNegative() {
		return decimal.Zero, fmt.Errorf("benefit hours %s cannot be negative", hours)
	}
	return money(rate.Mul(hours)), nil
}

// Modes lists the known modes in a stable order.
func (r BenefitRates) Modes() []BenefitMode {
	modes := make([]BenefitMode, 0, len(r))
	for m := range r {
		modes = append(modes, m)
	}
	sort.Slice(modes, func(i, j int) bool { return modes[i] < modes[j] })
	return modes
}
