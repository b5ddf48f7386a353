package resource

import (
	"math"
	"time"

	"github.com/roach88/strata/internal/effect"
	"github.com/roach88/strata/internal/task"
	"github.com/roach88/strata/internal/timeline"
)

// Linear is the state of an accumulator: a value changing at Rate units per
// second between events.
type Linear struct {
	Value float64
	Rate  float64
}

// Sample returns the value.
func (l Linear) Sample() any { return l.Value }

// At returns the state after d with no intervening events.
func (l Linear) At(d time.Duration) Linear {
	l.Value += l.Rate * d.Seconds()
	return l
}

// Adjust is an accumulator event: deltas added to the value and the rate.
type Adjust struct {
	Value float64
	Rate  float64
}

// Accumulator is a continuous resource. Value and rate deltas add, so
// concurrent adjustments never conflict; the value is integrated across
// waits.
type Accumulator struct {
	Topic timeline.Topic[Adjust]
	Cell  timeline.CellID[Linear]
}

// NewAccumulator allocates an accumulator named name.
func NewAccumulator(b *timeline.Builder, name string, initial Linear) (Accumulator, error) {
	topic, err := timeline.NewTopic[Adjust](b, name)
	if err != nil {
		return Accumulator{}, err
	}
	algebra := effect.NewPair[float64, float64](effect.Sum[float64]{}, effect.Sum[float64]{})
	cell, err := timeline.Allocate(b, name, initial, timeline.CellType[effect.Both[float64, float64], Linear]{
		Effects: algebra,
		Apply: func(s Linear, d effect.Both[float64, float64]) (Linear, error) {
			s.Value += d.First
			s.Rate += d.Second
			return s, nil
		},
		Step: Linear.At,
	}, timeline.Select(topic, func(a Adjust) effect.Both[float64, float64] {
		return effect.Both[float64, float64]{First: a.Value, Second: a.Rate}
	}))
	if err != nil {
		return Accumulator{}, err
	}
	if err := b.Resource(name, cell); err != nil {
		return Accumulator{}, err
	}
	return Accumulator{Topic: topic, Cell: cell}, nil
}

// Add adds dv to the value.
func (a Accumulator) Add(s task.Scheduler, dv float64) error {
	return s.Emit(a.Topic.Event(Adjust{Value: dv}))
}

// AddRate adds dr to the rate.
func (a Accumulator) AddRate(s task.Scheduler, dr float64) error {
	return s.Emit(a.Topic.Event(Adjust{Rate: dr}))
}

// Get reads the current state.
func (a Accumulator) Get(v timeline.View) (Linear, error) {
	return timeline.Get(v, a.Cell)
}

// Compare holds at the first instant the value compares to threshold under
// op, assuming the rate stays as it is. The crossing time is solved
// analytically, so a pending wait is re-polled only when the accumulator is
// adjusted.
func (a Accumulator) Compare(op Op, threshold float64) task.Condition {
	return func(v timeline.View, horizon time.Duration) (time.Duration, bool, error) {
		s, err := a.Get(v)
		if err != nil {
			return 0, false, err
		}
		if op.compare(s.Value, threshold) {
			return 0, true, nil
		}
		off, ok := crossing(s, op, threshold)
		if !ok || off > horizon {
			return 0, false, nil
		}
		return off, true, nil
	}
}

// crossing returns the earliest offset at which s satisfies op against x,
// given that it does not now. It reports false when no such offset fits in
// a time.Duration.
func crossing(s Linear, op Op, x float64) (time.Duration, bool) {
	switch {
	case s.Rate == 0:
		return 0, false
	case op == OpNe:
		return time.Nanosecond, true
	case (op == OpLt || op == OpLe) && s.Rate > 0:
		return 0, false
	case (op == OpGt || op == OpGe) && s.Rate < 0:
		return 0, false
	}
	secs := (x - s.Value) / s.Rate
	if secs < 0 {
		return 0, false
	}
	// Crossings past the largest Duration never happen within a horizon.
	ns := math.Ceil(secs * float64(time.Second))
	if !(ns < math.MaxInt64) {
		return 0, false
	}
	off := time.Duration(ns)
	// Strict comparisons hold just past the crossing.
	if op != OpEq && !op.compare(s.At(off).Value, x) {
		off += time.Nanosecond
	}
	return off, true
}
