// Package mission assembles a simulation model: the timeline registry plus
// the activity types and daemons that act on it.
package mission

import (
	"fmt"

	"github.com/roach88/strata/internal/ir"
	"github.com/roach88/strata/internal/task"
	"github.com/roach88/strata/internal/timeline"
)

// ActivityType instantiates activity tasks from directive arguments.
type ActivityType struct {
	Name        string
	Instantiate func(args ir.Object) (task.Factory, error)
}

// Daemon is a task started when the simulation begins.
type Daemon struct {
	Name    string
	Factory task.Factory
}

// Builder extends the timeline builder with activity types and daemons.
// It has the same lifecycle: after Build, every mutator returns
// timeline.ErrBuilt.
type Builder struct {
	*timeline.Builder

	activities []ActivityType
	daemons    []Daemon
	names      map[string]struct{}
}

// NewBuilder returns an unbuilt Builder.
func NewBuilder() *Builder {
	return &Builder{
		Builder: timeline.NewBuilder(),
		names:   make(map[string]struct{}),
	}
}

// Activity registers an activity type.
func (b *Builder) Activity(t ActivityType) error {
	if b.Built() {
		return timeline.ErrBuilt
	}
	if t.Instantiate == nil {
		return fmt.Errorf("activity %q: missing Instantiate", t.Name)
	}
	for _, a := range b.activities {
		if a.Name == t.Name {
			return fmt.Errorf("activity %q: %w", t.Name, timeline.ErrDuplicateName)
		}
	}
	b.activities = append(b.activities, t)
	return nil
}

// Daemon registers a task started at time zero, before any planned
// activity.
func (b *Builder) Daemon(name string, f task.Factory) error {
	if b.Built() {
		return timeline.ErrBuilt
	}
	if _, ok := b.names[name]; ok {
		return fmt.Errorf("daemon %q: %w", name, timeline.ErrDuplicateName)
	}
	if f.New == nil {
		return fmt.Errorf("daemon %q: missing task factory", name)
	}
	b.names[name] = struct{}{}
	b.daemons = append(b.daemons, Daemon{Name: name, Factory: f})
	return nil
}

// Build seals the builder and returns the model.
func (b *Builder) Build() (*Model, error) {
	tl, err := b.Builder.Build()
	if err != nil {
		return nil, err
	}
	return &Model{
		Timeline:   tl,
		activities: append([]ActivityType(nil), b.activities...),
		daemons:    append([]Daemon(nil), b.daemons...),
	}, nil
}

// Model is a built mission model. It is immutable and may be shared by
// concurrent simulations.
type Model struct {
	Timeline *timeline.Timeline

	activities []ActivityType
	daemons    []Daemon
}

// Daemons returns the daemons in registration order.
func (m *Model) Daemons() []Daemon {
	return append([]Daemon(nil), m.daemons...)
}

// ActivityTypes returns the activity types in registration order.
func (m *Model) ActivityTypes() []ActivityType {
	return append([]ActivityType(nil), m.activities...)
}

// ActivityType returns the activity type named name.
func (m *Model) ActivityType(name string) (ActivityType, bool) {
	for _, a := range m.activities {
		if a.Name == name {
			return a, true
		}
	}
	return ActivityType{}, false
}

// Resource returns the exported resource named name.
func (m *Model) Resource(name string) (timeline.Resource, bool) {
	return m.Timeline.Resource(name)
}

// Resources returns the exported resources in registration order.
func (m *Model) Resources() []timeline.Resource {
	return m.Timeline.Resources()
}
