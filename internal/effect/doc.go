// Package effect defines the algebra by which simulation effects combine.
//
// A Trait describes three operations over an effect type E:
//
//	Empty()                 the identity effect
//	Sequentially(p, s)      p happens-before s
//	Concurrently(l, r)      l and r are unordered
//
// Every implementation must satisfy the following laws for all effects:
//
//   - Empty() is a two-sided identity for Sequentially and Concurrently
//   - Sequentially is associative
//   - Concurrently is associative
//
// Concurrently may fail. Algebras that model true concurrency (register
// writes, activity instances) return a *ConflictError when both sides address
// the same resource with incompatible outcomes. A conflict is never resolved
// by choosing an order: the caller must surface it.
//
// The structure-preserving lifts (Map, Pair, Indexed, Lazy) let a single
// evaluation of an event graph drive many independent resources at once.
package effect
