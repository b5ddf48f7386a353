package timeline

import (
	"sort"
	"time"

	"github.com/roach88/strata/internal/graph"
)

type side uint8

const (
	trunk side = iota
	leftSide
	rightSide
)

// forkPoint is shared by the two branches of one Fork. Join requires both
// operands to carry the same forkPoint.
type forkPoint struct {
	parent History
}

// segment is one committed instant: the events recorded at At, followed by
// a wait. Cell states are computed when the segment is committed.
type segment struct {
	prev   *segment
	at     time.Duration
	wait   time.Duration
	events graph.EventGraph[Event]

	settled []any // states after the events, at `at`
	end     []any // states after stepping across the wait
	touched []int // cells whose topics had events, ascending
}

func (s *segment) endTime() time.Duration {
	return s.at + s.wait
}

// History is a persistent view of the timeline at one point of one branch.
//
// The zero History is not usable; obtain one from Timeline.Start.
type History struct {
	tl    *Timeline
	past  *segment
	fork  *forkPoint
	side  side
	local graph.EventGraph[Event] // uncommitted events since the fork (or the last commit on the trunk)
}

func emptyGraph() graph.EventGraph[Event] {
	return graph.Empty[Event]()
}

// Timeline returns the timeline this history belongs to.
func (h History) Timeline() *Timeline {
	return h.tl
}

// Elapsed returns the simulated time of the current instant.
func (h History) Elapsed() time.Duration {
	if h.past == nil {
		return 0
	}
	return h.past.endTime()
}

// IsBranch reports whether h is one side of an unjoined fork.
func (h History) IsBranch() bool {
	return h.fork != nil
}

// Emit records ev at the current instant, after every event already
// recorded on this branch.
func (h History) Emit(ev Event) (History, error) {
	if ev.owner != h.tl || h.tl == nil {
		return h, ErrForeignToken
	}
	h.local = graph.Sequentially(h.local, graph.Atom(ev))
	return h, nil
}

// Fork returns two continuations of h. Events emitted on one are invisible
// to the other until they are joined.
func (h History) Fork() (History, History) {
	fp := &forkPoint{parent: h}
	left := History{tl: h.tl, past: h.past, fork: fp, side: leftSide, local: emptyGraph()}
	right := History{tl: h.tl, past: h.past, fork: fp, side: rightSide, local: emptyGraph()}
	return left, right
}

// Join merges the two sides of one Fork. The events of both branches are
// recorded as concurrent with each other and sequentially after everything
// the forked history had recorded.
//
// Join is a pure function of its operands, so joining the same pair twice
// yields the same history. It does not evaluate cells: a conflict between
// the branches is reported by Check, Commit or Wait on the joined history.
func Join(left, right History) (History, error) {
	if left.fork == nil || left.fork != right.fork || left.side == right.side {
		return History{}, ErrUnrelatedBranches
	}
	if left.side == rightSide {
		left, right = right, left
	}
	parent := left.fork.parent
	parent.local = graph.Sequentially(parent.local, graph.Concurrently(left.local, right.local))
	return parent, nil
}

// Wait commits the current instant and advances time by d.
//
// Every cell touched by the instant's events is evaluated; a concurrency
// conflict or a failing update is returned and the receiver is left as it
// was. Only the trunk can wait.
func (h History) Wait(d time.Duration) (History, error) {
	if h.fork != nil {
		return h, ErrWaitOnBranch
	}
	if d < 0 {
		return h, ErrNegativeWait
	}
	seg, err := h.tl.commit(h.past, h.local, h.Elapsed(), d)
	if err != nil {
		return h, err
	}
	return History{tl: h.tl, past: seg, local: emptyGraph()}, nil
}

// Commit closes the current batch of events without advancing time.
// Committing with no pending events is a no-op.
func (h History) Commit() (History, error) {
	if h.fork != nil {
		return h, ErrWaitOnBranch
	}
	if graph.IsEmpty(h.local) {
		return h, nil
	}
	return h.Wait(0)
}

// Check evaluates every cell against the events not yet committed and
// returns the first conflict, in cell allocation order.
func (h History) Check() error {
	g := h.pending()
	if graph.IsEmpty(g) {
		return nil
	}
	base := h.tl.stateAfter(h.past)
	for i, c := range h.tl.cells {
		if _, err := c.apply(base[i], g); err != nil {
			return cellError(c.cellName(), h.Elapsed(), err)
		}
	}
	return nil
}

// Pending returns the uncommitted events visible from h: those of every
// enclosing fork up to the point of forking, followed by h's own.
func (h History) Pending() graph.EventGraph[Event] {
	return h.pending()
}

func (h History) pending() graph.EventGraph[Event] {
	g := h.local
	for fp := h.fork; fp != nil; fp = fp.parent.fork {
		g = graph.Sequentially(fp.parent.local, g)
	}
	return g
}

// Touched returns the cells affected by the most recently committed
// instant, in ascending index order.
func (h History) Touched() []int {
	if h.past == nil {
		return nil
	}
	out := make([]int, len(h.past.touched))
	copy(out, h.past.touched)
	return out
}

// Segments returns the committed instants, oldest first.
func (h History) Segments() []Snapshot {
	var out []Snapshot
	for s := h.past; s != nil; s = s.prev {
		out = append(out, Snapshot{tl: h.tl, seg: s})
	}
	for i, j := 0, len(out)-1; i < j; i, j = i+1, j-1 {
		out[i], out[j] = out[j], out[i]
	}
	return out
}

func (h History) read(index int) (any, error) {
	base := h.tl.stateAfter(h.past)
	c := h.tl.cells[index]
	state, err := c.apply(base[index], h.pending())
	if err != nil {
		return nil, cellError(c.cellName(), h.Elapsed(), err)
	}
	return state, nil
}

// stateAfter returns the cell states at the end of s.
func (t *Timeline) stateAfter(s *segment) []any {
	if s == nil {
		return t.initial
	}
	return s.end
}

// commit evaluates events on top of prev and returns the new segment.
func (t *Timeline) commit(prev *segment, events graph.EventGraph[Event], at, wait time.Duration) (*segment, error) {
	base := t.stateAfter(prev)
	touched := t.touchedBy(events)

	settled := base
	if len(touched) > 0 {
		settled = make([]any, len(base))
		copy(settled, base)
		for _, i := range touched {
			c := t.cells[i]
			state, err := c.apply(base[i], events)
			if err != nil {
				return nil, cellError(c.cellName(), at, err)
			}
			settled[i] = state
		}
	}

	end := settled
	if wait > 0 {
		end = make([]any, len(settled))
		for i, c := range t.cells {
			end[i] = c.step(settled[i], wait)
		}
	}

	return &segment{
		prev:    prev,
		at:      at,
		wait:    wait,
		events:  events,
		settled: settled,
		end:     end,
		touched: touched,
	}, nil
}

func (t *Timeline) touchedBy(events graph.EventGraph[Event]) []int {
	seen := make(map[int]struct{})
	graph.Walk(events, func(e Event) bool {
		for _, c := range t.topicCells[e.topic] {
			seen[c] = struct{}{}
		}
		return true
	})
	if len(seen) == 0 {
		return nil
	}
	out := make([]int, 0, len(seen))
	for c := range seen {
		out = append(out, c)
	}
	sort.Ints(out)
	return out
}

// Snapshot is a committed instant of a history.
type Snapshot struct {
	tl  *Timeline
	seg *segment
}

// At returns the instant the snapshot's events happened.
func (s Snapshot) At() time.Duration { return s.seg.at }

// Wait returns the time that passed after the instant.
func (s Snapshot) Wait() time.Duration { return s.seg.wait }

// Events returns the events committed at the instant.
func (s Snapshot) Events() graph.EventGraph[Event] { return s.seg.events }

// Touched returns the cells the instant's events affected.
func (s Snapshot) Touched() []int {
	out := make([]int, len(s.seg.touched))
	copy(out, s.seg.touched)
	return out
}

// Value returns the state of cell right after the instant's events.
func (s Snapshot) Value(cell AnyCell) (any, error) {
	idx, err := s.tl.index(cell)
	if err != nil {
		return nil, err
	}
	return s.seg.settled[idx], nil
}

// ValueAtEnd returns the state of cell at the end of the wait that followed
// the instant.
func (s Snapshot) ValueAtEnd(cell AnyCell) (any, error) {
	idx, err := s.tl.index(cell)
	if err != nil {
		return nil, err
	}
	return s.seg.end[idx], nil
}
