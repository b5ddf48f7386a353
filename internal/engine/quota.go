package engine

import (
	"errors"
	"fmt"
	"time"
)

// QuotaEnforcer counts task steps within one simulated instant and enforces
// a maximum.
//
// Simulated time only advances when every task at the current instant has
// yielded with a delay, so a task that keeps resuming at the same instant
// (re-awaiting a condition that already holds, deferring with zero delay)
// would spin forever. The quota turns that into a StepsExceededError.
type QuotaEnforcer struct {
	maxSteps int
	instant  time.Duration
	current  int
}

// NewQuotaEnforcer creates a new quota enforcer with the given limit.
// Typical default: DefaultMaxSteps (configurable via WithMaxSteps).
func NewQuotaEnforcer(maxSteps int) *QuotaEnforcer {
	return &QuotaEnforcer{maxSteps: maxSteps}
}

// Check counts one step at instant at. The count restarts whenever the
// instant changes.
func (q *QuotaEnforcer) Check(at time.Duration) error {
	if at != q.instant {
		q.instant = at
		q.current = 0
	}
	q.current++
	if q.current > q.maxSteps {
		return &StepsExceededError{At: at, Steps: q.current, Limit: q.maxSteps}
	}
	return nil
}

// Current returns the step count at the current instant.
func (q *QuotaEnforcer) Current() int {
	return q.current
}

// MaxSteps returns the maximum steps limit.
func (q *QuotaEnforcer) MaxSteps() int {
	return q.maxSteps
}

// StepsExceededError is returned when one instant runs more task steps than
// the quota allows.
type StepsExceededError struct {
	At    time.Duration
	Steps int
	Limit int
}

// Error implements the error interface.
func (e *StepsExceededError) Error() string {
	return fmt.Sprintf("instant %s exceeded max steps quota: %d steps > %d limit", e.At, e.Steps, e.Limit)
}

// IsStepsExceededError returns true if the error is a StepsExceededError.
func IsStepsExceededError(err error) bool {
	var se *StepsExceededError
	return errors.As(err, &se)
}
