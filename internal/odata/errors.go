package odata

import (
	"errors"
	"fmt"
)

// TranslationError reports a node the compiler cannot render.
//
// It is raised at compile time only; building an unsupported tree always
// succeeds.
type TranslationError struct {
	// Reason is a human-readable description.
	Reason string

	// Construct names the offending construct (e.g. "call tolower",
	// "negate", "member ReleaseDate.UtcDateTime").
	Construct string
}

// Error implements the error interface.
func (e *TranslationError) Error() string {
	if e.Construct != "" {
		return fmt.Sprintf("unsupported query construct %s: %s", e.Construct, e.Reason)
	}
	return fmt.Sprintf("unsupported query construct: %s", e.Reason)
}

// IsTranslationError returns true if err is or wraps a *TranslationError.
func IsTranslationError(err error) bool {
	var te *TranslationError
	return errors.As(err, &te)
}

func unsupported(construct, format string, args ...any) *TranslationError {
	return &TranslationError{
		Reason:    fmt.Sprintf(format, args...),
		Construct: construct,
	}
}
