package task

import (
	"time"

	"github.com/roach88/strata/internal/timeline"
)

// Status is the outcome of one Step.
// The only implementations are Completed, Delayed, AwaitingTask and
// AwaitingCondition.
type Status interface {
	isStatus()
}

// Completed retires the task.
type Completed struct{}

// Delayed resumes the task after Duration.
type Delayed struct {
	Duration time.Duration
}

// AwaitingTask resumes the task once Task has completed.
type AwaitingTask struct {
	Task ID
}

// AwaitingCondition resumes the task at the first instant Condition holds.
type AwaitingCondition struct {
	Condition Condition
}

func (Completed) isStatus()         {}
func (Delayed) isStatus()           {}
func (AwaitingTask) isStatus()      {}
func (AwaitingCondition) isStatus() {}

// Condition reports the earliest offset within horizon, measured from the
// view's current time, at which the condition holds.
//
// ok is false when the condition does not hold anywhere in the horizon
// assuming no further events. Conditions must only read state through v:
// the engine re-evaluates a pending condition only when a cell it read
// changes.
type Condition func(v timeline.View, horizon time.Duration) (offset time.Duration, ok bool, err error)

// When returns a Condition over discrete state: it holds immediately when
// pred is true and never otherwise (until the state it read changes).
func When(pred func(v timeline.View) (bool, error)) Condition {
	return func(v timeline.View, _ time.Duration) (time.Duration, bool, error) {
		ok, err := pred(v)
		if err != nil || !ok {
			return 0, false, err
		}
		return 0, true, nil
	}
}

// Any holds at the earliest offset any of conds holds.
func Any(conds ...Condition) Condition {
	return func(v timeline.View, horizon time.Duration) (time.Duration, bool, error) {
		var (
			best  time.Duration
			found bool
		)
		for _, c := range conds {
			off, ok, err := c(v, horizon)
			if err != nil {
				return 0, false, err
			}
			if ok && (!found || off < best) {
				best, found = off, true
			}
		}
		return best, found, nil
	}
}
