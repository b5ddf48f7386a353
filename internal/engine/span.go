package engine

import (
	"cmp"
	"slices"
	"time"

	"github.com/roach88/strata/internal/task"
)

// SpanStatus is the lifecycle state of a task.
type SpanStatus string

const (
	SpanScheduled SpanStatus = "scheduled"
	SpanRunning   SpanStatus = "running"
	SpanCompleted SpanStatus = "completed"
	SpanFailed    SpanStatus = "failed"
)

// Span records when a task ran. Parent is zero for tasks deferred from
// outside the engine and for daemons. End is only meaningful once the span
// is completed or failed.
type Span struct {
	ID        task.ID
	Parent    task.ID
	Name      string
	Scheduled time.Duration
	Start     time.Duration
	End       time.Duration
	Status    SpanStatus
}

// Duration returns End-Start for a finished span and zero otherwise.
func (s Span) Duration() time.Duration {
	if s.Status != SpanCompleted && s.Status != SpanFailed {
		return 0
	}
	return s.End - s.Start
}

// Spans returns every task's span in ID order.
func (e *Engine) Spans() []Span {
	out := make([]Span, 0, len(e.tasks))
	for _, st := range e.tasks {
		out = append(out, st.span)
	}
	slices.SortFunc(out, func(a, b Span) int {
		return cmp.Compare(a.ID, b.ID)
	})
	return out
}

// Span returns the span of task id.
func (e *Engine) Span(id task.ID) (Span, bool) {
	st, ok := e.tasks[id]
	if !ok {
		return Span{}, false
	}
	return st.span, true
}
