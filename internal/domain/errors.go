package domain

import (
	"errors"
	"fmt"
)

// ErrValidation is the root of every domain validation error. Callers that
// do not care which field failed can match on it alone; the field-specific
// errors in this package all wrap it.
var ErrValidation = errors.New("validation failed")

var (
	// ErrInvalidRecurrence is returned when a recurrence kind is not one of
	// the supported values.
	ErrInvalidRecurrence = fmt.Errorf("%w: invalid recurrence kind", ErrValidation)

	// ErrInvalidClockTime is returned when a wall-clock time of day is
	// malformed or out of range.
	ErrInvalidClockTime = fmt.Errorf("%w: invalid clock time", ErrValidation)
)
