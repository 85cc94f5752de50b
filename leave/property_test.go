package leave_test

import (
	"errors"
	"testing"

	"github.com/carework/shift-engine/leave"
	"github.com/leanovate/gopter"
	"github.com/leanovate/gopter/gen"
	"github.com/leanovate/gopter/prop"
	"github.com/shopspring/decimal"
)

// Property: a paid-leave request is refused exactly when its business days
// exceed acquired + adjustment - taken, and the refusal names both numbers.
func TestProperty_RequestRefusedIffExceedingRemaining(t *testing.T) {
	parameters := gopter.DefaultTestParameters()
	parameters.MinSuccessfulTests = 300
	properties := gopter.NewProperties(parameters)

	e := engine()
	monday := date("2025-03-03")

	properties.Property("refused iff requested > remaining", prop.ForAll(
		func(acquiredHalves, takenHalves, adjustHalves, offset, length int) bool {
			b := leave.Balance{
				AcquiredDays:   decimal.New(int64(acquiredHalves*5), -1),
				TakenDays:      decimal.New(int64(takenHalves*5), -1),
				AdjustmentDays: decimal.New(int64(adjustHalves*5), -1),
			}
			from := monday.AddDays(offset)
			a := absence(leave.KindPaidLeave, from.String(), from.AddDays(length).String())

			requested := e.BusinessDays(a.EmployerID, a.Period.Start, a.Period.End)
			remaining := b.AcquiredDays.Add(b.AdjustmentDays).Sub(b.TakenDays)
			if !b.Remaining().Equal(remaining) {
				return false
			}

			err := e.ValidateRequest(a, b)
			exceeds := decimal.NewFromInt(int64(requested)).GreaterThan(remaining)
			if !exceeds {
				return err == nil
			}
			var ib *leave.InsufficientBalanceError
			return errors.As(err, &ib) && ib.Requested == requested && ib.Remaining.Equal(remaining)
		},
		gen.IntRange(0, 60),
		gen.IntRange(0, 60),
		gen.IntRange(-10, 10),
		gen.IntRange(0, 120),
		gen.IntRange(0, 30),
	))

	// Property: absences that do not consume the balance are never refused
	// for lack of days.
	properties.Property("non-consuming kinds always pass", prop.ForAll(
		func(kindIdx, takenHalves, length int) bool {
			kinds := []leave.Kind{leave.KindSick, leave.KindFamilyEvent, leave.KindUnpaid, leave.KindEmergency}
			b := leave.NewBalance("emp-1", date("2025-06-01"))
			b.TakenDays = decimal.New(int64(takenHalves*5), -1)
			a := absence(kinds[kindIdx], monday.String(), monday.AddDays(length).String())
			return e.ValidateRequest(a, b) == nil
		},
		gen.IntRange(0, 3),
		gen.IntRange(0, 60),
		gen.IntRange(0, 60),
	))

	properties.TestingRun(t)
}
