// Package graph implements the event graph: a series-parallel record of
// every event emitted during one simulated instant, and the evaluators that
// fold it through an effect algebra.
//
// A graph is one of four shapes:
//
//	Empty                 no events
//	Atom(e)               one event
//	Sequentially(p, s)    every event of p happens-before every event of s
//	Concurrently(l, r)    l and r are unordered with respect to each other
//
// Graphs are immutable values. The smart constructors elide Empty operands,
// so a graph never contains Empty below its root.
package graph
