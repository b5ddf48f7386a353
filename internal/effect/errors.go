package effect

import (
	"errors"
	"fmt"
	"strings"
)

// ConflictError reports two concurrent effects that cannot both hold.
//
// Resource names the addressed resource or instance when the algebra knows it.
// Lifts such as Map prefix the key they were combining, so a conflict deep in
// a nested algebra still names its full path (e.g. "mode" or "cells.mode").
type ConflictError struct {
	// Resource identifies what both sides addressed. May be empty when the
	// algebra has no notion of identity; callers that do (the timeline) fill it.
	Resource string

	// Values are the incompatible outcomes, rendered with %v.
	Values []string
}

// Error implements the error interface.
func (e *ConflictError) Error() string {
	if e.Resource == "" {
		return fmt.Sprintf("conflicting concurrent effects: %s", strings.Join(e.Values, " vs "))
	}
	return fmt.Sprintf("conflicting concurrent effects on %s: %s", e.Resource, strings.Join(e.Values, " vs "))
}

// Within returns a copy of the conflict with scope prepended to Resource.
func (e *ConflictError) Within(scope string) *ConflictError {
	out := &ConflictError{Values: e.Values}
	switch {
	case scope == "":
		out.Resource = e.Resource
	case e.Resource == "":
		out.Resource = scope
	default:
		out.Resource = scope + "." + e.Resource
	}
	return out
}

// NewConflict creates a ConflictError for the given resource and values.
func NewConflict(resource string, values ...any) *ConflictError {
	rendered := make([]string, len(values))
	for i, v := range values {
		rendered[i] = fmt.Sprintf("%v", v)
	}
	return &ConflictError{Resource: resource, Values: rendered}
}

// IsConflict returns true if err is or wraps a ConflictError.
// Uses errors.As to handle wrapped errors.
func IsConflict(err error) bool {
	var ce *ConflictError
	return errors.As(err, &ce)
}

// AsConflict extracts the ConflictError from err, if any.
func AsConflict(err error) (*ConflictError, bool) {
	var ce *ConflictError
	if errors.As(err, &ce) {
		return ce, true
	}
	return nil, false
}

// scoped wraps a conflict in err with scope, leaving other errors untouched.
func scoped(err error, scope string) error {
	if ce, ok := AsConflict(err); ok {
		return ce.Within(scope)
	}
	return fmt.Errorf("%s: %w", scope, err)
}
