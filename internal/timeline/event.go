package timeline

import "fmt"

// Event is a value emitted on a topic. Events are created by Topic.Event and
// are opaque to everything but the cells that select their topic.
type Event struct {
	owner   *Timeline
	topic   int
	payload any
}

// Topic returns the name of the event's topic.
func (e Event) Topic() string {
	if e.owner == nil {
		return ""
	}
	return e.owner.topics[e.topic]
}

// Payload returns the value carried by the event.
func (e Event) Payload() any {
	return e.payload
}

// String renders the event as topic(payload).
func (e Event) String() string {
	return fmt.Sprintf("%s(%v)", e.Topic(), e.payload)
}

// Topic is a typed event stream registered on a Builder.
type Topic[E any] struct {
	owner *Timeline
	index int
}

// NewTopic registers a topic named name.
func NewTopic[E any](b *Builder, name string) (Topic[E], error) {
	if b.built {
		return Topic[E]{}, ErrBuilt
	}
	if _, ok := b.topicNames[name]; ok {
		return Topic[E]{}, fmt.Errorf("topic %q: %w", name, ErrDuplicateName)
	}
	tl := b.tl
	idx := len(tl.topics)
	tl.topics = append(tl.topics, name)
	tl.topicCells = append(tl.topicCells, nil)
	b.topicNames[name] = idx
	return Topic[E]{owner: tl, index: idx}, nil
}

// Event returns an event carrying e on this topic.
func (t Topic[E]) Event(e E) Event {
	return Event{owner: t.owner, topic: t.index, payload: e}
}

// Name returns the topic's registered name.
func (t Topic[E]) Name() string {
	if t.owner == nil {
		return ""
	}
	return t.owner.topics[t.index]
}
