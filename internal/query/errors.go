package query

import (
	"errors"
	"fmt"
)

// UsageError reports an invalid argument to a builder operation.
// It is always returned synchronously by the mutator that received it.
type UsageError struct {
	// Op is the builder operation, e.g. "Take".
	Op string

	// Arg is the offending argument name.
	Arg string

	// Message describes the problem.
	Message string
}

// Error implements the error interface.
func (e *UsageError) Error() string {
	return fmt.Sprintf("%s: invalid %s: %s", e.Op, e.Arg, e.Message)
}

// IsUsageError returns true if err is or wraps a *UsageError.
func IsUsageError(err error) bool {
	var ue *UsageError
	return errors.As(err, &ue)
}

func usage(op, arg, format string, args ...any) *UsageError {
	return &UsageError{Op: op, Arg: arg, Message: fmt.Sprintf(format, args...)}
}
