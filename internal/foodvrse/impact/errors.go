package impact

import (
	"errors"
	"fmt"
)

// ErrValidation is matched by every *ValidationError
var ErrValidation = errors.New("invalid purchase")

// ValidationError reports a malformed purchase record
type ValidationError struct {
	Field  string
	Reason string
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("invalid purchase: %s: %s", e.Field, e.Reason)
}

func (e *ValidationError) Is(target error) bool {
	return target == ErrValidation
}

func invalid(field, format string, args ...any) error {
	return &ValidationError{Field: field, Reason: fmt.Sprintf(format, args...)}
}
