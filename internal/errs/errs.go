// Package errs defines the typed failures reported by the sharing engine.
//
// Every error type matches its sentinel through errors.Is, so callers can
// branch on the category without caring about the concrete context:
//
//	if errors.Is(err, errs.ErrNotFound) { ... }
//
// Use errors.As to recover the offending item, share or percentage.
package errs

import (
	"errors"
	"fmt"
)

var (
	// ErrValidation is matched by every ValidationError.
	ErrValidation = errors.New("validation failed")
	// ErrNotFound is matched by every NotFoundError.
	ErrNotFound = errors.New("not found")
	// ErrUnauthorized is matched by every UnauthorizedError.
	ErrUnauthorized = errors.New("unauthorized")
	// ErrConflict is matched by every ConflictError.
	ErrConflict = errors.New("conflict")
)

// ValidationError reports a malformed split request.
type ValidationError struct {
	ItemID string
	Field  string
	Value  string
	Reason string
}

func (e *ValidationError) Error() string {
	msg := "invalid " + e.Field
	if e.Value != "" {
		msg += fmt.Sprintf(" %q", e.Value)
	}
	if e.ItemID != "" {
		msg += " for item " + e.ItemID
	}
	return msg + ": " + e.Reason
}

func (e *ValidationError) Is(target error) bool { return target == ErrValidation }

// NotFoundError reports a missing item, share, invoice or participant.
type NotFoundError struct {
	Kind string
	ID   string
}

func (e *NotFoundError) Error() string {
	return fmt.Sprintf("%s not found: %s", e.Kind, e.ID)
}

func (e *NotFoundError) Is(target error) bool { return target == ErrNotFound }

// UnauthorizedError reports an acting user that may not change a share or
// another owned record.
type UnauthorizedError struct {
	Kind   string
	ID     string
	UserID string
	Action string
}

func (e *UnauthorizedError) Error() string {
	if e.UserID == "" {
		return fmt.Sprintf("anonymous user may not %s %s %s", e.Action, e.Kind, e.ID)
	}
	return fmt.Sprintf("user %s may not %s %s %s", e.UserID, e.Action, e.Kind, e.ID)
}

func (e *UnauthorizedError) Is(target error) bool { return target == ErrUnauthorized }

// ConflictError reports a concurrent writer holding the same rows.
type ConflictError struct {
	Op  string
	Err error
}

func (e *ConflictError) Error() string {
	if e.Err == nil {
		return "conflict during " + e.Op
	}
	return fmt.Sprintf("conflict during %s: %v", e.Op, e.Err)
}

func (e *ConflictError) Is(target error) bool { return target == ErrConflict }

func (e *ConflictError) Unwrap() error { return e.Err }

// Invalid is a shorthand for building a ValidationError.
func Invalid(itemID, field, value, reason string) error {
	return &ValidationError{ItemID: itemID, Field: field, Value: value, Reason: reason}
}

// NotFound is a shorthand for building a NotFoundError.
func NotFound(kind, id string) error {
	return &NotFoundError{Kind: kind, ID: id}
}
