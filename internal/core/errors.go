package core

import (
	"errors"
	"fmt"
)

// ValidationError reports a rejected command. Nothing was mutated.
type ValidationError struct {
	Field string
	Err   error
}

func (e *ValidationError) Error() string {
	if e.Field == "" {
		return "validation failed: " + e.Err.Error()
	}
	return fmt.Sprintf("validation failed on %s: %v", e.Field, e.Err)
}

func (e *ValidationError) Unwrap() error { return e.Err }

// ParseError rejects a whole import batch. Line is 1-based; zero when not line specific.
type ParseError struct {
	Line int
	Err  error
}

func (e *ParseError) Error() string {
	if e.Line > 0 {
		return fmt.Sprintf("parse error on line %d: %v", e.Line, e.Err)
	}
	return "parse error: " + e.Err.Error()
}

func (e *ParseError) Unwrap() error { return e.Err }

// PersistenceError wraps a failed remote save. It is logged, never returned to command callers.
type PersistenceError struct {
	Op    string
	Year  int
	Month int
	Err   error
}

func (e *PersistenceError) Error() string {
	if e.Year == 0 {
		return fmt.Sprintf("persistence %s: %v", e.Op, e.Err)
	}
	return fmt.Sprintf("persistence %s %04d-%02d: %v", e.Op, e.Year, e.Month, e.Err)
}

func (e *PersistenceError) Unwrap() error { return e.Err }

func IsValidation(err error) bool {
	var ve *ValidationError
	return errors.As(err, &ve)
}

func IsParse(err error) bool {
	var pe *ParseError
	return errors.As(err, &pe)
}
