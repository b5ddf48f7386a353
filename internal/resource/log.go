package resource

import (
	"maps"

	"github.com/roach88/strata/internal/effect"
	"github.com/roach88/strata/internal/task"
	"github.com/roach88/strata/internal/timeline"
)

// Entry records that an activity instance entered a phase.
type Entry struct {
	Instance string
	Phase    string
}

// Entries maps each activity instance to its latest phase.
type Entries map[string]string

// Sample returns the entries as a plain map.
func (e Entries) Sample() any {
	out := make(map[string]any, len(e))
	for k, v := range e {
		out[k] = v
	}
	return out
}

// Log tracks the phase of every activity instance. Two events on the same
// instance at the same instant without an ordering between them conflict.
type Log struct {
	Topic timeline.Topic[Entry]
	Cell  timeline.CellID[Entries]
}

// NewLog allocates an activity log named name.
func NewLog(b *timeline.Builder, name string) (Log, error) {
	topic, err := timeline.NewTopic[Entry](b, name)
	if err != nil {
		return Log{}, err
	}
	cell, err := timeline.Allocate(b, name, Entries{}, timeline.CellType[map[string]string, Entries]{
		Effects: effect.Instances[string, string]{},
		Apply: func(s Entries, eff map[string]string) (Entries, error) {
			if len(eff) == 0 {
				return s, nil
			}
			out := maps.Clone(s)
			if out == nil {
				out = make(Entries, len(eff))
			}
			maps.Copy(out, eff)
			return out, nil
		},
	}, timeline.Select(topic, func(e Entry) map[string]string {
		return map[string]string{e.Instance: e.Phase}
	}))
	if err != nil {
		return Log{}, err
	}
	if err := b.Resource(name, cell); err != nil {
		return Log{}, err
	}
	return Log{Topic: topic, Cell: cell}, nil
}

// Record marks instance as having entered phase.
func (l Log) Record(s task.Scheduler, instance, phase string) error {
	return s.Emit(l.Topic.Event(Entry{Instance: instance, Phase: phase}))
}

// Phase returns the latest phase of instance.
func (l Log) Phase(v timeline.View, instance string) (string, bool, error) {
	entries, err := timeline.Get(v, l.Cell)
	if err != nil {
		return "", false, err
	}
	phase, ok := entries[instance]
	return phase, ok, nil
}
