package mission

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/roach88/strata/internal/effect"
	"github.com/roach88/strata/internal/ir"
	"github.com/roach88/strata/internal/task"
	"github.com/roach88/strata/internal/timeline"
)

func noop(name string) task.Factory {
	return task.Once(name, func(task.Scheduler) error { return nil })
}

func TestBuilder_Lifecycle(t *testing.T) {
	b := NewBuilder()

	topic, err := timeline.NewTopic[int64](b.Builder, "power")
	require.NoError(t, err)
	cell, err := timeline.Allocate(b.Builder, "power", int64(0), timeline.CellType[int64, int64]{
		Effects: effect.Sum[int64]{},
		Apply:   func(s, d int64) (int64, error) { return s + d, nil },
	}, timeline.Select(topic, func(n int64) int64 { return n }))
	require.NoError(t, err)
	require.NoError(t, b.Resource("power", cell))
	require.NoError(t, b.Daemon("heater", noop("heater")))
	require.NoError(t, b.Activity(ActivityType{
		Name:        "Warmup",
		Instantiate: func(ir.Object) (task.Factory, error) { return noop("Warmup"), nil },
	}))

	m, err := b.Build()
	require.NoError(t, err)

	require.Len(t, m.Daemons(), 1)
	assert.Equal(t, "heater", m.Daemons()[0].Name)
	_, ok := m.ActivityType("Warmup")
	assert.True(t, ok)
	_, ok = m.Resource("power")
	assert.True(t, ok)

	// Every mutator is sealed after Build.
	assert.ErrorIs(t, b.Daemon("late", noop("late")), timeline.ErrBuilt)
	assert.ErrorIs(t, b.Activity(ActivityType{Name: "Late", Instantiate: func(ir.Object) (task.Factory, error) { return noop("Late"), nil }}), timeline.ErrBuilt)
	assert.ErrorIs(t, b.Resource("again", cell), timeline.ErrBuilt)
	_, err = timeline.NewTopic[int](b.Builder, "late")
	assert.ErrorIs(t, err, timeline.ErrBuilt)
	_, err = b.Build()
	assert.ErrorIs(t, err, timeline.ErrBuilt)
}

func TestBuilder_DuplicateDaemon(t *testing.T) {
	b := NewBuilder()
	require.NoError(t, b.Daemon("d", noop("d")))
	assert.ErrorIs(t, b.Daemon("d", noop("d")), timeline.ErrDuplicateName)
}

func TestBuilder_DaemonOrderPreserved(t *testing.T) {
	b := NewBuilder()
	for _, n := range []string{"c", "a", "b"} {
		require.NoError(t, b.Daemon(n, noop(n)))
	}
	m, err := b.Build()
	require.NoError(t, err)

	var names []string
	for _, d := range m.Daemons() {
		names = append(names, d.Name)
	}
	assert.Equal(t, []string{"c", "a", "b"}, names)
}
