package engine

import (
	"errors"
	"fmt"
	"time"

	"github.com/roach88/strata/internal/task"
	"github.com/roach88/strata/internal/timeline"
)

// ErrHalted is returned by every operation on an engine that has already
// failed. The original failure is wrapped alongside it.
var ErrHalted = errors.New("engine halted")

// RuntimeError represents an error detected by the engine itself, as
// opposed to an error returned by a task.
//
// RuntimeError includes structured fields for diagnostics.
type RuntimeError struct {
	// Code identifies the error category.
	Code RuntimeErrorCode

	// Message is a human-readable description.
	Message string

	// Task identifies the affected task, if any.
	Task task.ID

	// At is the simulated time of the failure.
	At time.Duration

	// Err is the underlying cause, if any.
	Err error
}

// RuntimeErrorCode categorizes runtime errors.
type RuntimeErrorCode string

const (
	// ErrCodeConflict indicates concurrent events that cannot both be applied.
	ErrCodeConflict RuntimeErrorCode = "CONFLICT"

	// ErrCodeQuotaExceeded indicates an instant exceeded the max steps.
	ErrCodeQuotaExceeded RuntimeErrorCode = "QUOTA_EXCEEDED"

	// ErrCodeAwaitCycle indicates tasks awaiting each other.
	ErrCodeAwaitCycle RuntimeErrorCode = "AWAIT_CYCLE"

	// ErrCodeUnknownTask indicates an await on a task that was never created.
	ErrCodeUnknownTask RuntimeErrorCode = "UNKNOWN_TASK"

	// ErrCodeInvalidStatus indicates a step returned an unusable status.
	ErrCodeInvalidStatus RuntimeErrorCode = "INVALID_STATUS"
)

// Error implements the error interface.
func (e *RuntimeError) Error() string {
	msg := fmt.Sprintf("%s: %s", e.Code, e.Message)
	if e.Task != 0 {
		msg = fmt.Sprintf("%s (task=%s, at=%s)", msg, e.Task, e.At)
	} else {
		msg = fmt.Sprintf("%s (at=%s)", msg, e.At)
	}
	if e.Err != nil {
		msg += ": " + e.Err.Error()
	}
	return msg
}

// Unwrap returns the underlying cause.
func (e *RuntimeError) Unwrap() error {
	return e.Err
}

// TaskError wraps an error returned by a task's step.
type TaskError struct {
	Task task.ID
	Name string
	At   time.Duration
	Err  error
}

// Error implements the error interface.
func (e *TaskError) Error() string {
	return fmt.Sprintf("task %s (%s) failed at %s: %v", e.Task, e.Name, e.At, e.Err)
}

// Unwrap returns the task's error.
func (e *TaskError) Unwrap() error {
	return e.Err
}

// IsConflictError returns true if err is a conflict detected at commit.
// Uses errors.As to handle wrapped errors.
func IsConflictError(err error) bool {
	var re *RuntimeError
	if errors.As(err, &re) {
		return re.Code == ErrCodeConflict
	}
	return timeline.IsConflict(err)
}

// IsQuotaError returns true if the error is a quota exceeded error.
// Matches both RuntimeError with ErrCodeQuotaExceeded and StepsExceededError.
func IsQuotaError(err error) bool {
	var re *RuntimeError
	if errors.As(err, &re) && re.Code == ErrCodeQuotaExceeded {
		return true
	}
	var se *StepsExceededError
	return errors.As(err, &se)
}

// IsAwaitCycleError returns true if the error reports tasks awaiting each
// other.
func IsAwaitCycleError(err error) bool {
	var re *RuntimeError
	return errors.As(err, &re) && re.Code == ErrCodeAwaitCycle
}

// AsTaskError extracts the TaskError from err, if any.
func AsTaskError(err error) (*TaskError, bool) {
	var te *TaskError
	if errors.As(err, &te) {
		return te, true
	}
	return nil, false
}

// NewConflictError creates a RuntimeError for a conflict found at commit.
func NewConflictError(at time.Duration, err error) *RuntimeError {
	return &RuntimeError{
		Code:    ErrCodeConflict,
		Message: "concurrent events cannot be applied together",
		At:      at,
		Err:     err,
	}
}

// NewAwaitCycleError creates a RuntimeError for a waits-for cycle.
func NewAwaitCycleError(waiter task.ID, path []task.ID, at time.Duration) *RuntimeError {
	return &RuntimeError{
		Code:    ErrCodeAwaitCycle,
		Message: fmt.Sprintf("await would deadlock: %v", path),
		Task:    waiter,
		At:      at,
	}
}
