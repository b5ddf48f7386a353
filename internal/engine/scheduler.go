package engine

import (
	"fmt"
	"time"

	"github.com/roach88/strata/internal/task"
	"github.com/roach88/strata/internal/timeline"
)

// branch is a task waiting to run on its own side of a fork.
type branch struct {
	base timeline.History
	task task.ID
}

// frame is one level of the batch's task stack. tip is the frame's running
// history; pending holds branches forked from it that have not run yet.
type frame struct {
	tip     timeline.History
	pending []branch
}

// fork splits the tip, keeping the left side and queueing the right for id.
func (f *frame) fork(id task.ID) {
	left, right := f.tip.Fork()
	f.tip = left
	f.pending = append(f.pending, branch{base: right, task: id})
}

// pop removes the most recently forked branch.
func (f *frame) pop() (branch, bool) {
	n := len(f.pending)
	if n == 0 {
		return branch{}, false
	}
	br := f.pending[n-1]
	f.pending = f.pending[:n-1]
	return br, true
}

// stepContext is the task.Scheduler handed to one step.
type stepContext struct {
	e     *Engine
	frame *frame
	self  task.ID
	at    time.Duration
}

var _ task.Scheduler = (*stepContext)(nil)

func (s *stepContext) Self() task.ID {
	return s.self
}

func (s *stepContext) Now() timeline.History {
	return s.frame.tip
}

func (s *stepContext) Elapsed() time.Duration {
	return s.at
}

func (s *stepContext) Emit(ev timeline.Event) error {
	tip, err := s.frame.tip.Emit(ev)
	if err != nil {
		return fmt.Errorf("emit %s: %w", ev, err)
	}
	s.frame.tip = tip
	return nil
}

// Spawn forks the running task's tip. The child runs on the right side
// before the spawning frame is joined back.
func (s *stepContext) Spawn(f task.Factory) task.ID {
	id := s.e.newTask(f, s.self, s.at)
	s.frame.fork(id)
	s.e.logger.Debug("task spawned", "task", id, "name", f.Name, "parent", s.self, "at", s.at)
	return id
}

// Defer schedules a child for a later instant. A zero delay runs it in the
// next batch at the same instant, after this one commits.
func (s *stepContext) Defer(delay time.Duration, f task.Factory) (task.ID, error) {
	if delay < 0 {
		return 0, fmt.Errorf("defer %q: %w: %s", f.Name, ErrNegativeDelay, delay)
	}
	at := s.at + delay
	id := s.e.newTask(f, s.self, at)
	s.e.push(at, id)
	return id, nil
}
