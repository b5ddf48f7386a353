package timeline

import (
	"fmt"
	"sort"
	"time"
)

// View is read access to cell values at one instant of one branch.
// History and *Tracker are the only implementations.
type View interface {
	Elapsed() time.Duration
	Timeline() *Timeline
	read(index int) (any, error)
}

// Get returns the value of cell as seen from v.
func Get[S any](v View, cell CellID[S]) (S, error) {
	var zero S
	val, err := GetAny(v, cell)
	if err != nil {
		return zero, err
	}
	s, ok := val.(S)
	if !ok {
		return zero, fmt.Errorf("cell %q holds %T: %w", v.Timeline().CellName(cell.index), val, ErrUnknownCell)
	}
	return s, nil
}

// GetAny returns the value of cell as seen from v without a static type.
func GetAny(v View, cell AnyCell) (any, error) {
	idx, err := v.Timeline().index(cell)
	if err != nil {
		return nil, err
	}
	return v.read(idx)
}

func (t *Timeline) index(cell AnyCell) (int, error) {
	if t == nil || cell == nil || cell.timelineOf() != t {
		return 0, ErrForeignToken
	}
	idx := cell.Index()
	if idx < 0 || idx >= len(t.cells) {
		return 0, ErrUnknownCell
	}
	return idx, nil
}

// Tracker is a View that records which cells are read through it.
// Conditions are evaluated through a Tracker so the engine knows which cells
// can change their outcome.
type Tracker struct {
	view  View
	reads map[int]struct{}
}

// Track returns a Tracker reading through v.
func Track(v View) *Tracker {
	return &Tracker{view: v, reads: make(map[int]struct{})}
}

// Elapsed returns the underlying view's current time.
func (t *Tracker) Elapsed() time.Duration { return t.view.Elapsed() }

// Timeline returns the underlying view's timeline.
func (t *Tracker) Timeline() *Timeline { return t.view.Timeline() }

func (t *Tracker) read(index int) (any, error) {
	t.reads[index] = struct{}{}
	return t.view.read(index)
}

// Reads returns the indices of the cells read so far, ascending.
func (t *Tracker) Reads() []int {
	out := make([]int, 0, len(t.reads))
	for i := range t.reads {
		out = append(out, i)
	}
	sort.Ints(out)
	return out
}
