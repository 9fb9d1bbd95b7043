package scoring

import (
	"errors"
	"fmt"

	"github.com/liamcoop/ivfsuccess/checks"
)

// ErrInvalidInput matches any InvalidInputError via errors.Is
var ErrInvalidInput = errors.New("invalid input")

// InvalidInputError reports a covariate outside its domain.
// Field and Reason describe the first failure; Violations lists every
// failed plausibility check when the error came from the checker.
type InvalidInputError struct {
	Field      string
	Reason     string
	Violations []checks.Violation
}

func (e *InvalidInputError) Error() string {
	msg := fmt.Sprintf("invalid %s: %s", e.Field, e.Reason)
	if n := len(e.Violations); n > 1 {
		msg += fmt.Sprintf(" (and %d more)", n-1)
	}
	return msg
}

func (e *InvalidInputError) Is(target error) bool { return target == ErrInvalidInput }

func invalid(field, format string, args ...any) *InvalidInputError {
	return &InvalidInputError{Field: field, Reason: fmt.Sprintf(format, args...)}
}
