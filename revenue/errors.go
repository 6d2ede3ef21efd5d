package revenue

import (
	"errors"
	"fmt"
)

// =============================================================================
// SENTINEL ERRORS - Use with errors.Is()
// =============================================================================

var (
	// ErrUnknownMethod is returned for an allocation method name that is not supported.
	ErrUnknownMethod = errors.New("unknown allocation method")

	// ErrMissingDate is returned when a monthly method is given a zero start or end date.
	ErrMissingDate = errors.New("missing recognition date")

	// ErrInvalidPeriod is returned when the start date falls after the end date.
	ErrInvalidPeriod = errors.New("invalid period: end before start")

	// ErrRangeTooLong is returned when a date range spans more than MaxScheduleMonths.
	ErrRangeTooLong = errors.New("date range exceeds maximum schedule length")
)

// =============================================================================
// STRUCTURED ERRORS
// =============================================================================

// ParamError identifies the offending parameter.
type ParamError struct {
	Field string
	Value string
	Err   error
}

func (e *ParamError) Error() string {
	if e.Value == "" {
		return fmt.Sprintf("%s: %v", e.Field, e.Err)
	}
	return fmt.Sprintf("%s %q: %v", e.Field, e.Value, e.Err)
}

func (e *ParamError) Unwrap() error {
	return e.Err
}

// IsClientError returns true if the error is due to invalid caller input.
func IsClientError(err error) bool {
	return errors.Is(err, ErrUnknownMethod) ||
		errors.Is(err, ErrMissingDate) ||
		errors.Is(err, ErrInvalidPeriod) ||
		errors.Is(err, ErrRangeTooLong)
}
