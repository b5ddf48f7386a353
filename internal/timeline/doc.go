// Package timeline holds simulation state as a branching history of events.
//
// A Timeline is built once by a Builder: topics (typed event streams) and
// cells (typed state derived from events) are registered, then Build seals
// the registry. Running a simulation threads a History value through the
// scheduler:
//
//	h := tl.Start()
//	h, _ = h.Emit(topic.Event(e))   // record an event at the current instant
//	l, r := h.Fork()                // two concurrent continuations
//	h, _ = timeline.Join(l, r)      // merge them back; their events are unordered
//	h, _ = h.Wait(10 * time.Second) // commit the instant, check conflicts, advance time
//
// Histories are persistent: every operation returns a new value and leaves
// its receiver usable. Cell values are never stored on a shared object; Get
// derives them by folding the causally prior events through the cell's
// effect algebra.
package timeline
