package shift

import (
	"errors"
	"fmt"
)

// =============================================================================
// SENTINEL ERRORS - Use with errors.Is()
// =============================================================================

var (
	// ErrNegativeDuration is returned when a break exceeds the interval it is
	// taken from. The caller decides whether to floor for display.
	ErrNegativeDuration = errors.New("negative duration")

	// ErrInvalidKind is returned for an unknown shift or segment kind.
	ErrInvalidKind = errors.New("invalid shift kind")

	// ErrSegmentsNotTiling is returned when guard segments don't cover
	// exactly one day starting at the shift start.
	ErrSegmentsNotTiling = errors.New("guard segments do not tile 24 hours")

	// ErrSegmentRejected is returned when a guard edit would break an
	// invariant; the plan is left unchanged.
	ErrSegmentRejected = errors.New("segment edit rejected")
)

// =============================================================================
// STRUCTURED ERRORS - Carry additional context
// =============================================================================

// NegativeDurationError carries the (negative) net minutes computed.
type NegativeDurationError struct {
	Minutes int
}

func (e *NegativeDurationError) Error() string {
	return fmt.Sprintf("negative duration: %d minutes after break", e.Minutes)
}

func (e *NegativeDurationError) Unwrap() error { return ErrNegativeDuration }

// StructuralError reports a malformed shift (structural input error).
type StructuralError struct {
	Field  string
	Reason string
	Err    error
}

func (e *StructuralError) Error() string {
	return fmt.Sprintf("invalid shift %s: %s", e.Field, e.Reason)
}

func (e *StructuralError) Unwrap() error { return e.Err }

// IsStructural returns true if err reports malformed shift input.
func IsStructural(err error) bool {
	var se *StructuralError
	return errors.As(err, &se) || errors.Is(err, ErrSegmentsNotTiling) || errors.Is(err, ErrInvalidKind)
}
