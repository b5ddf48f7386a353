package resource

import (
	"github.com/roach88/strata/internal/effect"
	"github.com/roach88/strata/internal/task"
	"github.com/roach88/strata/internal/timeline"
)

// Register is a discrete resource. Sequential sets overwrite; concurrent sets
// of different values conflict.
type Register[V comparable] struct {
	Topic timeline.Topic[V]
	Cell  timeline.CellID[V]
}

// NewRegister allocates a register named name holding initial.
func NewRegister[V comparable](b *timeline.Builder, name string, initial V) (Register[V], error) {
	topic, err := timeline.NewTopic[V](b, name)
	if err != nil {
		return Register[V]{}, err
	}
	cell, err := timeline.Allocate(b, name, initial, timeline.CellType[effect.Set[V], V]{
		Effects: effect.Setting[V]{},
		Apply:   applySet[V],
	}, timeline.Select(topic, effect.Write[V]))
	if err != nil {
		return Register[V]{}, err
	}
	if err := b.Resource(name, cell); err != nil {
		return Register[V]{}, err
	}
	return Register[V]{Topic: topic, Cell: cell}, nil
}

func applySet[V comparable](state V, eff effect.Set[V]) (V, error) {
	if eff.Present {
		return eff.Value, nil
	}
	return state, nil
}

// Set writes v.
func (r Register[V]) Set(s task.Scheduler, v V) error {
	return s.Emit(r.Topic.Event(v))
}

// Get reads the current value.
func (r Register[V]) Get(v timeline.View) (V, error) {
	return timeline.Get(v, r.Cell)
}

// Is holds once the register equals want.
func (r Register[V]) Is(want V) task.Condition {
	return task.When(func(v timeline.View) (bool, error) {
		got, err := r.Get(v)
		return got == want, err
	})
}
