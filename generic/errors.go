/*
errors.go - Centralized error types for the generic primitives

PURPOSE:
  Sentinel errors for malformed dates, clock times and periods. Domain
  packages wrap these with field context so callers can still use
  errors.Is() to classify input errors.

SEE ALSO:
  - shift/errors.go: structural errors on shifts and guard segments
  - leave/errors.go: balance errors
*/
package generic

import "errors"

// =============================================================================
// SENTINEL ERRORS - Use with errors.Is()
// =============================================================================

var (
	// ErrInvalidDate is returned when a date is not "YYYY-MM-DD".
	ErrInvalidDate = errors.New("invalid date")

	// ErrInvalidClock is returned when a time of day is not "HH:MM".
	ErrInvalidClock = errors.New("invalid clock time")

	// ErrInvalidPeriod is returned when a period is malformed (end before start).
	ErrInvalidPeriod = errors.New("invalid period: end before start")

	// ErrNotFound is returned by stores when a referenced row doesn't exist.
	ErrNotFound = errors.New("not found")
)

// =============================================================================
// ERROR HELPERS
// =============================================================================

// IsClientError returns true if the error is due to invalid client input.
func IsClientError(err error) bool {
	return errors.Is(err, ErrInvalidDate) ||
		errors.Is(err, ErrInvalidClock) ||
		errors.Is(err, ErrInvalidPeriod)
}

// IsNotFound returns true if the error indicates a missing resource.
func IsNotFound(err error) bool {
	return errors.Is(err, ErrNotFound)
}
