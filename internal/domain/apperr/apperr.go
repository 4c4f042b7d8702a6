// Package apperr holds the error kinds shared by every engine component.
// Domain packages wrap these kinds in their own sentinels so callers can
// match either the precise failure or its category with errors.Is.
package apperr

import (
	"errors"
	"fmt"
	"strings"
)

var (
	ErrValidation        = errors.New("validation failed")
	ErrInvariant         = errors.New("invariant violation")
	ErrIllegalTransition = errors.New("illegal transition")
	ErrConfig            = errors.New("configuration error")
	ErrNotFound          = errors.New("not found")
	ErrConflict          = errors.New("conflict")
)

// Violation is one failed input rule.
type Violation struct {
	Field   string `json:"field"`
	Message string `json:"message"`
}

// Violations is the structured result of a validation function.
// A nil or empty list means the input is acceptable.
type Violations []Violation

func (v Violations) Error() string {
	parts := make([]string, 0, len(v))
	for _, x := range v {
		parts = append(parts, x.Field+": "+x.Message)
	}
	return "validation failed: " + strings.Join(parts, "; ")
}

func (v Violations) Unwrap() error { return ErrValidation }

// Add appends a violation and returns the list for chaining.
func (v Violations) Add(field, msg string) Violations {
	return append(v, Violation{Field: field, Message: msg})
}

// Err returns nil for an empty list so callers can `return v.Err()`.
func (v Violations) Err() error {
	if len(v) == 0 {
		return nil
	}
	return v
}

// Merge concatenates violation lists from independent validators.
func Merge(lists ...Violations) Violations {
	var out Violations
	for _, l := range lists {
		out = append(out, l...)
	}
	return out
}

// TransitionError names the entity plus the current and attempted state.
type TransitionError struct {
	Entity string
	From   string
	To     string
}

func (e *TransitionError) Error() string {
	return fmt.Sprintf("illegal %s transition %s -> %s", e.Entity, e.From, e.To)
}

func (e *TransitionError) Unwrap() error { return ErrIllegalTransition }

// Invariant wraps msg as an ErrInvariant.
func Invariant(msg string) error { return fmt.Errorf("%w: %s", ErrInvariant, msg) }

// NotFound wraps what as an ErrNotFound.
func NotFound(what string) error { return fmt.Errorf("%s %w", what, ErrNotFound) }
