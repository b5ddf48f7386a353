// Package task defines the cooperative task protocol run by the engine.
//
// A Task is a resumable computation. Each call to Step runs it until it
// yields: finished, sleeping, or awaiting another task or a condition. The
// engine never preempts a step, so everything a task emits during one step
// is ordered sequentially on that task's branch of the timeline.
package task

import (
	"fmt"
	"time"

	"github.com/roach88/strata/internal/timeline"
)

// ID identifies a task instance within one engine. IDs are assigned from a
// monotonic clock, so they also order tasks by creation.
type ID int64

// String renders the ID as "task-N".
func (id ID) String() string {
	return fmt.Sprintf("task-%d", int64(id))
}

// Task is a unit of cooperatively scheduled work.
type Task interface {
	// Step runs the task until it yields. A returned error halts the engine.
	Step(s Scheduler) (Status, error)
}

// Func adapts a function to Task. The function is called on every step, so
// it must carry its own program counter if it yields more than once.
type Func func(s Scheduler) (Status, error)

// Step calls f.
func (f Func) Step(s Scheduler) (Status, error) {
	return f(s)
}

// Factory creates fresh task instances. Name labels spans and logs.
type Factory struct {
	Name string
	New  func() Task
}

// Of returns a Factory whose New builds a task from step.
// Step closures that hold state must be created inside newStep so each
// instance gets its own.
func Of(name string, newStep func() Func) Factory {
	return Factory{
		Name: name,
		New:  func() Task { return newStep() },
	}
}

// Once returns a Factory for a task that runs fn and completes.
func Once(name string, fn func(s Scheduler) error) Factory {
	return Factory{
		Name: name,
		New: func() Task {
			return Func(func(s Scheduler) (Status, error) {
				if err := fn(s); err != nil {
					return nil, err
				}
				return Completed{}, nil
			})
		},
	}
}

// Scheduler is the engine's interface as seen from inside a step.
type Scheduler interface {
	// Self returns the ID of the running task.
	Self() ID

	// Now returns the running task's view of the timeline, including
	// everything it has emitted during this step.
	Now() timeline.History

	// Elapsed returns the current simulated time.
	Elapsed() time.Duration

	// Emit records ev after everything the task has emitted so far.
	Emit(ev timeline.Event) error

	// Spawn starts a child task at the current instant. The child runs
	// concurrently with the rest of this step; its events are unordered with
	// respect to the parent's subsequent events.
	Spawn(f Factory) ID

	// Defer schedules a task to start after delay.
	Defer(delay time.Duration, f Factory) (ID, error)
}
