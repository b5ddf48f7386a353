package task

import (
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/roach88/strata/internal/effect"
	"github.com/roach88/strata/internal/timeline"
)

func TestOf_FreshInstances(t *testing.T) {
	f := Of("counter", func() Func {
		n := 0
		return func(Scheduler) (Status, error) {
			n++
			if n < 2 {
				return Delayed{Duration: time.Second}, nil
			}
			return Completed{}, nil
		}
	})

	a, b := f.New(), f.New()
	st, err := a.Step(nil)
	require.NoError(t, err)
	assert.Equal(t, Delayed{Duration: time.Second}, st)

	st, err = a.Step(nil)
	require.NoError(t, err)
	assert.Equal(t, Completed{}, st)

	st, err = b.Step(nil)
	require.NoError(t, err)
	assert.Equal(t, Delayed{Duration: time.Second}, st, "instances must not share state")
}

func TestOnce_PropagatesError(t *testing.T) {
	boom := errors.New("boom")
	task := Once("failing", func(Scheduler) error { return boom }).New()

	_, err := task.Step(nil)
	assert.ErrorIs(t, err, boom)
}

func TestID_String(t *testing.T) {
	assert.Equal(t, "task-7", ID(7).String())
}

func newFlag(t *testing.T) (*timeline.Timeline, timeline.Topic[bool], timeline.CellID[bool]) {
	t.Helper()
	b := timeline.NewBuilder()
	topic, err := timeline.NewTopic[bool](b, "flag")
	require.NoError(t, err)
	cell, err := timeline.Allocate(b, "flag", false, timeline.CellType[effect.Set[bool], bool]{
		Effects: effect.Setting[bool]{},
		Apply: func(s bool, e effect.Set[bool]) (bool, error) {
			if e.Present {
				return e.Value, nil
			}
			return s, nil
		},
	}, timeline.Select(topic, effect.Write[bool]))
	require.NoError(t, err)
	tl, err := b.Build()
	require.NoError(t, err)
	return tl, topic, cell
}

func TestWhen(t *testing.T) {
	tl, topic, cell := newFlag(t)
	cond := When(func(v timeline.View) (bool, error) {
		return timeline.Get(v, cell)
	})

	_, ok, err := cond(tl.Start(), time.Hour)
	require.NoError(t, err)
	assert.False(t, ok)

	h, err := tl.Start().Emit(topic.Event(true))
	require.NoError(t, err)
	off, ok, err := cond(h, time.Hour)
	require.NoError(t, err)
	assert.True(t, ok)
	assert.Equal(t, time.Duration(0), off)
}

func TestAny_EarliestOffset(t *testing.T) {
	at := func(d time.Duration) Condition {
		return func(timeline.View, time.Duration) (time.Duration, bool, error) { return d, true, nil }
	}
	never := func(timeline.View, time.Duration) (time.Duration, bool, error) { return 0, false, nil }

	tl, _, _ := newFlag(t)
	off, ok, err := Any(at(5*time.Second), never, at(2*time.Second))(tl.Start(), time.Hour)
	require.NoError(t, err)
	assert.True(t, ok)
	assert.Equal(t, 2*time.Second, off)

	_, ok, err = Any(never)(tl.Start(), time.Hour)
	require.NoError(t, err)
	assert.False(t, ok)
}
