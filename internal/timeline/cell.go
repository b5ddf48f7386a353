package timeline

import (
	"fmt"
	"time"

	"github.com/roach88/strata/internal/effect"
	"github.com/roach88/strata/internal/graph"
)

// CellType describes how a cell's state of type S evolves.
//
// Effects combines the effects of concurrent and sequential events. Apply
// folds one combined effect into the state. Step, when set, advances the
// state across a wait of the given duration (continuous dynamics); a nil
// Step leaves the state unchanged.
type CellType[F, S any] struct {
	Effects effect.Trait[F]
	Apply   func(state S, eff F) (S, error)
	Step    func(state S, d time.Duration) S
}

// Selector maps the events of one topic into a cell's effect type.
type Selector[F any] struct {
	owner  *Timeline
	topic  int
	interp func(any) F
}

// Select returns a selector that interprets events of topic with interp.
func Select[E, F any](topic Topic[E], interp func(E) F) Selector[F] {
	return Selector[F]{
		owner: topic.owner,
		topic: topic.index,
		interp: func(payload any) F {
			return interp(payload.(E))
		},
	}
}

// AnyCell is implemented by every CellID regardless of state type.
type AnyCell interface {
	Index() int
	timelineOf() *Timeline
}

// CellID is the capability to read a cell of state type S. It is valid only
// on the timeline that allocated it.
type CellID[S any] struct {
	owner *Timeline
	index int
}

// Index returns the cell's position in allocation order.
func (c CellID[S]) Index() int { return c.index }

func (c CellID[S]) timelineOf() *Timeline { return c.owner }

// Allocate registers a cell named name with the given initial state and
// type. The cell reacts only to the topics named by selectors.
func Allocate[F, S any](b *Builder, name string, initial S, typ CellType[F, S], selectors ...Selector[F]) (CellID[S], error) {
	if b.built {
		return CellID[S]{}, ErrBuilt
	}
	if _, ok := b.cellNames[name]; ok {
		return CellID[S]{}, fmt.Errorf("cell %q: %w", name, ErrDuplicateName)
	}

	c := &cell[F, S]{
		name:    name,
		initial: initial,
		typ:     typ,
		interp:  make(map[int]func(any) F, len(selectors)),
	}
	tl := b.tl
	idx := len(tl.cells)
	for _, sel := range selectors {
		if sel.owner != tl {
			return CellID[S]{}, fmt.Errorf("cell %q: %w", name, ErrForeignToken)
		}
		c.interp[sel.topic] = sel.interp
	}
	for topic := range c.interp {
		tl.topicCells[topic] = append(tl.topicCells[topic], idx)
	}

	tl.cells = append(tl.cells, c)
	b.cellNames[name] = idx
	return CellID[S]{owner: tl, index: idx}, nil
}

// cellOps is the type-erased view of a cell used by histories.
type cellOps interface {
	cellName() string
	start() any
	// apply folds the events of g into state. Events on topics the cell does
	// not select contribute the empty effect.
	apply(state any, g graph.EventGraph[Event]) (any, error)
	step(state any, d time.Duration) any
}

type cell[F, S any] struct {
	name    string
	initial S
	typ     CellType[F, S]
	interp  map[int]func(any) F
}

func (c *cell[F, S]) cellName() string { return c.name }

func (c *cell[F, S]) start() any { return c.initial }

func (c *cell[F, S]) apply(state any, g graph.EventGraph[Event]) (any, error) {
	if !c.selects(g) {
		return state, nil
	}
	eff, err := graph.Evaluate(g, c.typ.Effects, func(e Event) F {
		if f, ok := c.interp[e.topic]; ok {
			return f(e.payload)
		}
		return c.typ.Effects.Empty()
	})
	if err != nil {
		return state, err
	}
	return c.typ.Apply(state.(S), eff)
}

func (c *cell[F, S]) step(state any, d time.Duration) any {
	if c.typ.Step == nil || d == 0 {
		return state
	}
	return c.typ.Step(state.(S), d)
}

func (c *cell[F, S]) selects(g graph.EventGraph[Event]) bool {
	found := false
	graph.Walk(g, func(e Event) bool {
		_, found = c.interp[e.topic]
		return !found
	})
	return found
}
