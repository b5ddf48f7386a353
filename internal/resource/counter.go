package resource

import (
	"github.com/roach88/strata/internal/effect"
	"github.com/roach88/strata/internal/task"
	"github.com/roach88/strata/internal/timeline"
)

// Counter is an integer resource. All increments commute, so concurrent
// adds never conflict.
type Counter struct {
	Topic timeline.Topic[int64]
	Cell  timeline.CellID[int64]
}

// NewCounter allocates a counter named name starting at initial.
func NewCounter(b *timeline.Builder, name string, initial int64) (Counter, error) {
	topic, err := timeline.NewTopic[int64](b, name)
	if err != nil {
		return Counter{}, err
	}
	cell, err := timeline.Allocate(b, name, initial, timeline.CellType[int64, int64]{
		Effects: effect.Sum[int64]{},
		Apply:   func(s, d int64) (int64, error) { return s + d, nil },
	}, timeline.Select(topic, func(n int64) int64 { return n }))
	if err != nil {
		return Counter{}, err
	}
	if err := b.Resource(name, cell); err != nil {
		return Counter{}, err
	}
	return Counter{Topic: topic, Cell: cell}, nil
}

// Add adds n (which may be negative).
func (c Counter) Add(s task.Scheduler, n int64) error {
	return s.Emit(c.Topic.Event(n))
}

// Get reads the current count.
func (c Counter) Get(v timeline.View) (int64, error) {
	return timeline.Get(v, c.Cell)
}

// Compare holds once the count compares to n under op.
func (c Counter) Compare(op Op, n int64) task.Condition {
	return task.When(func(v timeline.View) (bool, error) {
		got, err := c.Get(v)
		if err != nil {
			return false, err
		}
		return op.compare(float64(got), float64(n)), nil
	})
}
