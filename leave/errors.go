package leave

import (
	"errors"
	"fmt"

	"github.com/shopspring/decimal"
)

// =============================================================================
// SENTINEL ERRORS
// =============================================================================

var (
	// ErrInsufficientBalance is returned when a paid-leave request asks for
	// more business days than remain.
	ErrInsufficientBalance = errors.New("insufficient leave balance")

	// ErrInvalidTransition is returned when a non-pending absence is decided.
	ErrInvalidTransition = errors.New("invalid absence status transition")

	// ErrInvalidRequest is returned for malformed absence requests.
	ErrInvalidRequest = errors.New("invalid absence request")

	// ErrDuplicateMovement is returned by stores when a movement with the
	// same idempotency key was already recorded.
	ErrDuplicateMovement = errors.New("duplicate leave movement")
)

// =============================================================================
// STRUCTURED ERRORS
// =============================================================================

// InsufficientBalanceError names both the requested and the remaining days.
type InsufficientBalanceError struct {
	Requested int
	Remaining decimal.Decimal
}

func (e *InsufficientBalanceError) Error() string {
	return fmt.Sprintf("insufficient leave balance: requested %d business days, %s remaining",
		e.Requested, e.Remaining.String())
}

func (e *InsufficientBalanceError) Unwrap() error { return ErrInsufficientBalance }

// TransitionError reports a refused status change.
type TransitionError struct {
	From Status
	To   Status
}

func (e *TransitionError) Error() string {
	return fmt.Sprintf("absence cannot move from %s to %s", e.From, e.To)
}

func (e *TransitionError) Unwrap() error { return ErrInvalidTransition }

func invalidRequest(reason string) error {
	return fmt.Errorf("%w: %s", ErrInvalidRequest, reason)
}
