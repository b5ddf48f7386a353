package timeline

import "fmt"

// Builder registers the topics and cells of a timeline.
//
// A Builder is used once: topics, cells and resources are registered while
// it is unbuilt, Build seals it, and every mutator afterwards returns
// ErrBuilt. NewTopic and Allocate are package functions because they are
// generic over the event and state types.
type Builder struct {
	tl    *Timeline
	built bool

	topicNames    map[string]int
	cellNames     map[string]int
	resourceNames map[string]struct{}
}

// NewBuilder returns an unbuilt Builder.
func NewBuilder() *Builder {
	return &Builder{
		tl:            &Timeline{},
		topicNames:    make(map[string]int),
		cellNames:     make(map[string]int),
		resourceNames: make(map[string]struct{}),
	}
}

// Built reports whether Build has been called.
func (b *Builder) Built() bool {
	return b.built
}

// Resource exports cell under name. Exported resources are what results
// profile and what plans and scenarios refer to.
func (b *Builder) Resource(name string, cell AnyCell) error {
	if b.built {
		return ErrBuilt
	}
	if cell == nil || cell.timelineOf() != b.tl {
		return fmt.Errorf("resource %q: %w", name, ErrForeignToken)
	}
	if idx := cell.Index(); idx < 0 || idx >= len(b.tl.cells) {
		return fmt.Errorf("resource %q: %w", name, ErrUnknownCell)
	}
	if _, ok := b.resourceNames[name]; ok {
		return fmt.Errorf("resource %q: %w", name, ErrDuplicateName)
	}
	b.resourceNames[name] = struct{}{}
	b.tl.resources = append(b.tl.resources, Resource{Name: name, Cell: cell})
	return nil
}

// Build seals the registry and returns the timeline.
func (b *Builder) Build() (*Timeline, error) {
	if b.built {
		return nil, ErrBuilt
	}
	b.built = true

	tl := b.tl
	tl.initial = make([]any, len(tl.cells))
	for i, c := range tl.cells {
		tl.initial[i] = c.start()
	}
	return tl, nil
}

// Resource is a cell exported under a name.
type Resource struct {
	Name string
	Cell AnyCell
}

// Timeline is a sealed registry of topics and cells. It is immutable after
// Build and safe to share between goroutines; each simulation starts its own
// History from it.
type Timeline struct {
	topics     []string
	topicCells [][]int // topic index -> cells that select it
	cells      []cellOps
	resources  []Resource
	initial    []any
}

// Start returns the empty history at time zero.
func (t *Timeline) Start() History {
	return History{tl: t, local: emptyGraph()}
}

// Resources returns the exported resources in registration order.
func (t *Timeline) Resources() []Resource {
	out := make([]Resource, len(t.resources))
	copy(out, t.resources)
	return out
}

// Resource returns the exported resource named name.
func (t *Timeline) Resource(name string) (Resource, bool) {
	for _, r := range t.resources {
		if r.Name == name {
			return r, true
		}
	}
	return Resource{}, false
}

// NumCells returns the number of allocated cells.
func (t *Timeline) NumCells() int {
	return len(t.cells)
}

// CellName returns the name of the cell at index, or "" if there is none.
func (t *Timeline) CellName(index int) string {
	if index < 0 || index >= len(t.cells) {
		return ""
	}
	return t.cells[index].cellName()
}

// Topics returns the registered topic names in registration order.
func (t *Timeline) Topics() []string {
	out := make([]string, len(t.topics))
	copy(out, t.topics)
	return out
}
