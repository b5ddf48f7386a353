package resource

import (
	"context"
	"io"
	"log/slog"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/roach88/strata/internal/engine"
	"github.com/roach88/strata/internal/ir"
	"github.com/roach88/strata/internal/mission"
	"github.com/roach88/strata/internal/task"
	"github.com/roach88/strata/internal/timeline"
)

type rig struct {
	model   *mission.Model
	mode    Register[string]
	count   Counter
	battery Accumulator
	log     Log
}

func newRig(t *testing.T) rig {
	t.Helper()
	b := mission.NewBuilder()
	var r rig
	var err error
	r.mode, err = NewRegister(b.Builder, "mode", "idle")
	require.NoError(t, err)
	r.count, err = NewCounter(b.Builder, "images", 0)
	require.NoError(t, err)
	r.battery, err = NewAccumulator(b.Builder, "battery", Linear{Value: 100})
	require.NoError(t, err)
	r.log, err = NewLog(b.Builder, "activities")
	require.NoError(t, err)
	r.model, err = b.Build()
	require.NoError(t, err)
	return r
}

func (r rig) engine() *engine.Engine {
	return engine.New(r.model,
		engine.WithRunID("resource-test"),
		engine.WithLogger(slog.New(slog.NewTextHandler(io.Discard, nil))))
}

func once(name string, fn func(s task.Scheduler) error) task.Factory {
	return task.Once(name, fn)
}

func TestResources_Exported(t *testing.T) {
	r := newRig(t)
	var names []string
	for _, res := range r.model.Resources() {
		names = append(names, res.Name)
	}
	assert.Equal(t, []string{"mode", "images", "battery", "activities"}, names)
}

func TestRegister_ConcurrentSetsConflict(t *testing.T) {
	r := newRig(t)
	e := r.engine()
	_, err := e.Defer(0, once("a", func(s task.Scheduler) error { return r.mode.Set(s, "science") }))
	require.NoError(t, err)
	_, err = e.Defer(0, once("b", func(s task.Scheduler) error { return r.mode.Set(s, "downlink") }))
	require.NoError(t, err)

	err = e.RunFor(context.Background(), time.Second)
	ce, ok := timeline.AsConflict(err)
	require.True(t, ok, "got %v", err)
	assert.Equal(t, "mode", ce.Cell)
}

func TestRegister_IsCondition(t *testing.T) {
	r := newRig(t)
	e := r.engine()

	waiter, err := e.Defer(0, task.Of("waiter", func() task.Func {
		waited := false
		return func(task.Scheduler) (task.Status, error) {
			if waited {
				return task.Completed{}, nil
			}
			waited = true
			return task.AwaitingCondition{Condition: r.mode.Is("science")}, nil
		}
	}))
	require.NoError(t, err)
	_, err = e.Defer(4*time.Second, once("set", func(s task.Scheduler) error { return r.mode.Set(s, "science") }))
	require.NoError(t, err)

	require.NoError(t, e.RunFor(context.Background(), 10*time.Second))
	sp, ok := e.Span(waiter)
	require.True(t, ok)
	assert.Equal(t, 4*time.Second, sp.End)

	mode, err := r.mode.Get(e.History())
	require.NoError(t, err)
	assert.Equal(t, "science", mode)
}

func TestCounter_ConcurrentAddsCommute(t *testing.T) {
	r := newRig(t)
	e := r.engine()
	for _, n := range []int64{1, 2, 3} {
		_, err := e.Defer(0, once("shoot", func(s task.Scheduler) error { return r.count.Add(s, n) }))
		require.NoError(t, err)
	}
	require.NoError(t, e.RunFor(context.Background(), time.Second))

	n, err := r.count.Get(e.History())
	require.NoError(t, err)
	assert.Equal(t, int64(6), n)
}

func TestAccumulator_IntegratesRate(t *testing.T) {
	r := newRig(t)
	e := r.engine()
	_, err := e.Defer(0, once("drain", func(s task.Scheduler) error { return r.battery.AddRate(s, -2) }))
	require.NoError(t, err)
	_, err = e.Defer(0, once("load", func(s task.Scheduler) error { return r.battery.AddRate(s, -1) }))
	require.NoError(t, err)

	require.NoError(t, e.RunFor(context.Background(), 10*time.Second))
	got, err := r.battery.Get(e.History())
	require.NoError(t, err)
	assert.Equal(t, Linear{Value: 70, Rate: -3}, got)
}

func TestAccumulator_CompareResumesAtCrossing(t *testing.T) {
	r := newRig(t)
	e := r.engine()

	_, err := e.Defer(0, once("drain", func(s task.Scheduler) error { return r.battery.AddRate(s, -2) }))
	require.NoError(t, err)
	waiter, err := e.Defer(0, task.Of("low-power", func() task.Func {
		waited := false
		return func(task.Scheduler) (task.Status, error) {
			if waited {
				return task.Completed{}, nil
			}
			waited = true
			return task.AwaitingCondition{Condition: r.battery.Compare(OpLe, 50)}, nil
		}
	}))
	require.NoError(t, err)

	require.NoError(t, e.RunFor(context.Background(), time.Minute))
	sp, ok := e.Span(waiter)
	require.True(t, ok)
	assert.Equal(t, engine.SpanCompleted, sp.Status)
	assert.Equal(t, 25*time.Second, sp.End)
}

func TestAccumulator_CompareReplansWhenRateChanges(t *testing.T) {
	r := newRig(t)
	e := r.engine()

	_, err := e.Defer(0, once("drain", func(s task.Scheduler) error { return r.battery.AddRate(s, -1) }))
	require.NoError(t, err)
	// Doubles the drain at 10s: 90 left at 2/s reaches 50 at 30s instead of 50s.
	_, err = e.Defer(10*time.Second, once("heater", func(s task.Scheduler) error { return r.battery.AddRate(s, -1) }))
	require.NoError(t, err)
	waiter, err := e.Defer(0, task.Of("low-power", func() task.Func {
		waited := false
		return func(task.Scheduler) (task.Status, error) {
			if waited {
				return task.Completed{}, nil
			}
			waited = true
			return task.AwaitingCondition{Condition: r.battery.Compare(OpLe, 50)}, nil
		}
	}))
	require.NoError(t, err)

	require.NoError(t, e.RunFor(context.Background(), time.Minute))
	sp, _ := e.Span(waiter)
	assert.Equal(t, 30*time.Second, sp.End)
}

func TestAccumulator_CompareDistantCrossingStaysPending(t *testing.T) {
	r := newRig(t)
	e := r.engine()

	_, err := e.Defer(0, once("trickle", func(s task.Scheduler) error { return r.battery.AddRate(s, 1e-9) }))
	require.NoError(t, err)
	waiter, err := e.Defer(0, task.Of("full", func() task.Func {
		waited := false
		return func(task.Scheduler) (task.Status, error) {
			if waited {
				return task.Completed{}, nil
			}
			waited = true
			return task.AwaitingCondition{Condition: r.battery.Compare(OpGe, 1e12)}, nil
		}
	}))
	require.NoError(t, err)

	require.NoError(t, e.RunFor(context.Background(), time.Minute))
	sp, ok := e.Span(waiter)
	require.True(t, ok)
	assert.NotEqual(t, engine.SpanCompleted, sp.Status)
	assert.Equal(t, 1, e.Pending())
}

func TestCrossing(t *testing.T) {
	rising := Linear{Value: 0, Rate: 1}
	tests := []struct {
		name string
		s    Linear
		op   Op
		x    float64
		want time.Duration
		ok   bool
	}{
		{"ge", rising, OpGe, 10, 10 * time.Second, true},
		{"gt just past", rising, OpGt, 10, 10*time.Second + time.Nanosecond, true},
		{"eq", rising, OpEq, 10, 10 * time.Second, true},
		{"ne", Linear{Value: 10, Rate: 1}, OpNe, 10, time.Nanosecond, true},
		{"le moving away", rising, OpLe, -5, 0, false},
		{"ge falling", Linear{Value: 0, Rate: -1}, OpGe, 10, 0, false},
		{"eq behind", rising, OpEq, -1, 0, false},
		{"constant", Linear{Value: 0}, OpGe, 10, 0, false},
		{"beyond max duration", Linear{Value: 100, Rate: 1e-9}, OpGe, 1e12, 0, false},
		{"beyond max duration falling", Linear{Value: 0, Rate: -1e-9}, OpLe, -1e12, 0, false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, ok := crossing(tt.s, tt.op, tt.x)
			assert.Equal(t, tt.ok, ok)
			if tt.ok {
				assert.Equal(t, tt.want, got)
			}
		})
	}
}

func TestAccumulator_CompareZeroValue(t *testing.T) {
	cond := Accumulator{}.Compare(OpGe, 0)
	_, _, err := cond(timeline.Track(newRig(t).model.Timeline.Start()), time.Second)
	assert.ErrorIs(t, err, timeline.ErrForeignToken)
}

func TestLog_SameInstanceConflicts(t *testing.T) {
	r := newRig(t)
	e := r.engine()
	_, err := e.Defer(0, once("a", func(s task.Scheduler) error { return r.log.Record(s, "dl-1", "start") }))
	require.NoError(t, err)
	_, err = e.Defer(0, once("b", func(s task.Scheduler) error { return r.log.Record(s, "dl-1", "start") }))
	require.NoError(t, err)

	err = e.RunFor(context.Background(), time.Second)
	ce, ok := timeline.AsConflict(err)
	require.True(t, ok, "got %v", err)
	assert.Equal(t, "activities", ce.Cell)
}

func TestLog_SequentialPhases(t *testing.T) {
	r := newRig(t)
	e := r.engine()
	_, err := e.Defer(0, once("a", func(s task.Scheduler) error {
		if err := r.log.Record(s, "dl-1", "start"); err != nil {
			return err
		}
		return r.log.Record(s, "dl-1", "end")
	}))
	require.NoError(t, err)
	_, err = e.Defer(0, once("b", func(s task.Scheduler) error { return r.log.Record(s, "img-1", "start") }))
	require.NoError(t, err)
	require.NoError(t, e.RunFor(context.Background(), time.Second))

	phase, ok, err := r.log.Phase(e.History(), "dl-1")
	require.NoError(t, err)
	assert.True(t, ok)
	assert.Equal(t, "end", phase)
	phase, _, _ = r.log.Phase(e.History(), "img-1")
	assert.Equal(t, "start", phase)
}

func TestSample(t *testing.T) {
	v, err := Sample(Linear{Value: 12.5, Rate: -1})
	require.NoError(t, err)
	assert.Equal(t, ir.Real(12.5), v)

	v, err = Sample(int64(3))
	require.NoError(t, err)
	assert.Equal(t, ir.Int(3), v)

	v, err = Sample(Entries{"dl-1": "end"})
	require.NoError(t, err)
	assert.Equal(t, ir.Object{"dl-1": ir.String("end")}, v)

	_, err = Sample(struct{}{})
	assert.Error(t, err)
}
