package engine

import "github.com/roach88/strata/internal/task"

// CycleDetector tracks which task each suspended task is awaiting and
// rejects an await that would close a cycle.
//
// Example cycle:
//
//	task-1 awaits task-2 → task-2 awaits task-3 → task-3 awaits task-1
//
// None of the three can ever complete, so the engine would silently stall
// with them pending. WouldCycle catches the last await instead.
type CycleDetector struct {
	waitsFor map[task.ID]task.ID
}

// NewCycleDetector creates a new cycle detector.
func NewCycleDetector() *CycleDetector {
	return &CycleDetector{waitsFor: make(map[task.ID]task.ID)}
}

// WouldCycle reports whether waiter awaiting target closes a cycle, and if
// so returns the cycle starting and ending at waiter.
func (c *CycleDetector) WouldCycle(waiter, target task.ID) ([]task.ID, bool) {
	path := []task.ID{waiter}
	seen := map[task.ID]bool{waiter: true}
	for cur := target; ; {
		path = append(path, cur)
		if cur == waiter {
			return path, true
		}
		if seen[cur] {
			return nil, false
		}
		seen[cur] = true
		next, ok := c.waitsFor[cur]
		if !ok {
			return nil, false
		}
		cur = next
	}
}

// Record marks waiter as awaiting target.
func (c *CycleDetector) Record(waiter, target task.ID) {
	c.waitsFor[waiter] = target
}

// Clear removes waiter's edge once it resumes.
func (c *CycleDetector) Clear(waiter task.ID) {
	delete(c.waitsFor, waiter)
}

// Size returns the number of tracked waits.
func (c *CycleDetector) Size() int {
	return len(c.waitsFor)
}
