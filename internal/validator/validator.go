// Package validator collects per-field validation messages for library
// entities. A Validator accumulates every failure of a request instead of
// stopping at the first one; Engine runs the declarative struct-tag rules.
package validator

import (
	"regexp"
	"slices"
	"strings"

	"libraryapi/internal/apperr"
)

var (
	ISBNRX       = regexp.MustCompile(`(?i)^978-\d{3}-\d{2}-\d{4}-\d$`)
	CardNumberRX = regexp.MustCompile(`(?i)^RD\d{6}$`)
)

// Validator holds field -> message pairs for a single request.
type Validator struct {
	Errors    map[string]string
	conflicts map[string]bool
}

func New() *Validator {
	return &Validator{
		Errors:    make(map[string]string),
		conflicts: make(map[string]bool),
	}
}

// Valid reports whether no errors have been recorded.
func (v *Validator) Valid() bool {
	return len(v.Errors) == 0
}

// FieldValid reports whether key has no recorded error. Uniqueness checks use
// it to skip lookups for values that already failed their format rule.
func (v *Validator) FieldValid(key string) bool {
	_, exists := v.Errors[key]
	return !exists
}

// AddError keeps the first message recorded for key.
func (v *Validator) AddError(key, message string) {
	if _, exists := v.Errors[key]; !exists {
		v.Errors[key] = message
	}
}

// AddConflict records a uniqueness failure for key.
func (v *Validator) AddConflict(key, message string) {
	if _, exists := v.Errors[key]; !exists {
		v.Errors[key] = message
		v.conflicts[key] = true
	}
}

// Check adds an error message for key only if ok is false.
func (v *Validator) Check(ok bool, key, message string) {
	if !ok {
		v.AddError(key, message)
	}
}

// Err turns the collected messages into a classified error. When the only
// failures are uniqueness conflicts the result is a conflict, otherwise a
// validation error carrying every message.
func (v *Validator) Err() error {
	if v.Valid() {
		return nil
	}
	if len(v.conflicts) == len(v.Errors) {
		message := "Conflict"
		if len(v.Errors) == 1 {
			for _, m := range v.Errors {
				message = m
			}
		}
		return apperr.ConflictFields(message, v.Errors)
	}
	return apperr.Validation(v.Errors)
}

func In[T comparable](value T, list ...T) bool {
	return slices.Contains(list, value)
}

func Matches(value string, rx *regexp.Regexp) bool {
	return rx.MatchString(value)
}

// TrimPtr returns a trimmed copy of *s, or nil when s is nil.
func TrimPtr(s *string) *string {
	if s == nil {
		return nil
	}
	t := strings.TrimSpace(*s)
	return &t
}

// Optional trims an optional text value and maps blank input to nil.
func Optional(s *string) *string {
	t := TrimPtr(s)
	if t == nil || *t == "" {
		return nil
	}
	return t
}
