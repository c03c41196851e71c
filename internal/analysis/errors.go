package analysis

import (
	"errors"
	"fmt"
)

// ErrInvalidInput is matched by every ValidationError via errors.Is
var ErrInvalidInput = errors.New("invalid input")

// ValidationError reports an out-of-domain numeric input.
// All validation runs before any numeric work starts.
type ValidationError struct {
	Field  string
	Reason string
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("invalid %s: %s", e.Field, e.Reason)
}

// Is reports whether target is ErrInvalidInput
func (e *ValidationError) Is(target error) bool {
	return target == ErrInvalidInput
}

func invalid(field, format string, args ...any) error {
	return &ValidationError{Field: field, Reason: fmt.Sprintf(format, args...)}
}

func requirePositive(field string, v float64) error {
	if !(v > 0) {
		return invalid(field, "must be positive, got %v", v)
	}
	return nil
}
