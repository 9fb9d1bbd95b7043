package formulas

import (
	"errors"
	"fmt"
)

var (
	// ErrDataIntegrity matches any DataIntegrityError via errors.Is
	ErrDataIntegrity = errors.New("formula table data integrity error")

	// ErrFormulaNotFound matches any FormulaNotFoundError via errors.Is
	ErrFormulaNotFound = errors.New("formula not found")
)

// DataIntegrityError reports a malformed, duplicate or missing table entry.
// Row is the 1-based data row, zero when the problem is not tied to one row.
type DataIntegrityError struct {
	Row    int
	Key    *SelectorKey
	Field  string
	Reason string
	Err    error
}

func (e *DataIntegrityError) Error() string {
	msg := "formula table"
	if e.Row > 0 {
		msg += fmt.Sprintf(" row %d", e.Row)
	}
	if e.Key != nil {
		msg += fmt.Sprintf(" [%s]", e.Key)
	}
	if e.Field != "" {
		msg += fmt.Sprintf(" field %q", e.Field)
	}
	msg += ": " + e.Reason
	if e.Err != nil {
		msg += ": " + e.Err.Error()
	}
	return msg
}

func (e *DataIntegrityError) Unwrap() error { return e.Err }

func (e *DataIntegrityError) Is(target error) bool { return target == ErrDataIntegrity }

// FormulaNotFoundError reports a selector key with no coefficient record
type FormulaNotFoundError struct {
	Key SelectorKey
}

func (e *FormulaNotFoundError) Error() string {
	if !e.Key.Valid() {
		return fmt.Sprintf("no formula for %s: not a valid selector combination", e.Key)
	}
	return fmt.Sprintf("no formula for %s", e.Key)
}

func (e *FormulaNotFoundError) Is(target error) bool { return target == ErrFormulaNotFound }
