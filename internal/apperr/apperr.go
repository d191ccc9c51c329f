// Package apperr defines the error taxonomy shared by the library services.
//
// Services return *Error values (or wrap them); the HTTP layer inspects them
// with errors.Is against ErrValidation, ErrNotFound and ErrConflict. Any other
// error is treated as an unexpected store failure.
package apperr

import (
	"errors"
	"maps"
)

var (
	ErrValidation = errors.New("validation failed")
	ErrNotFound   = errors.New("not found")
	ErrConflict   = errors.New("conflict")
)

// Error is a classified failure with a user-facing message and, for
// validation and uniqueness failures, per-field messages.
type Error struct {
	kind    error
	Message string
	Fields  map[string]string
}

func (e *Error) Error() string { return e.Message }

// Is reports whether target is the sentinel for this error's kind, or the
// very same *Error value.
func (e *Error) Is(target error) bool {
	if t, ok := target.(*Error); ok {
		return e == t
	}
	return target == e.kind
}

// Kind returns the sentinel the error belongs to.
func (e *Error) Kind() error { return e.kind }

func NotFound(message string) *Error {
	return &Error{kind: ErrNotFound, Message: message}
}

func Conflict(message string) *Error {
	return &Error{kind: ErrConflict, Message: message}
}

// ConflictFields is a conflict tied to specific input fields, e.g. a
// duplicate unique value.
func ConflictFields(message string, fields map[string]string) *Error {
	return &Error{kind: ErrConflict, Message: message, Fields: maps.Clone(fields)}
}

func Validation(fields map[string]string) *Error {
	return &Error{kind: ErrValidation, Message: "Validation failed", Fields: maps.Clone(fields)}
}

// FieldsOf returns the field messages carried by err, if any.
func FieldsOf(err error) map[string]string {
	var e *Error
	if errors.As(err, &e) {
		return e.Fields
	}
	return nil
}

// MessageOf returns the user-facing message carried by err, or "" when err is
// not classified.
func MessageOf(err error) string {
	var e *Error
	if errors.As(err, &e) {
		return e.Message
	}
	return ""
}
