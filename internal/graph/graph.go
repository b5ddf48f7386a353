package graph

import (
	"fmt"
	"reflect"
)

// EventGraph is a series-parallel graph of events of type E.
// The only implementations are the node types in this package.
type EventGraph[E any] interface {
	isEventGraph(E)
}

// EmptyNode is the graph with no events. It is zero-sized, so every empty
// graph is the same value.
type EmptyNode[E any] struct{}

// AtomNode holds a single event.
type AtomNode[E any] struct {
	Event E
}

// SequentiallyNode orders every event of Prefix before every event of Suffix.
type SequentiallyNode[E any] struct {
	Prefix EventGraph[E]
	Suffix EventGraph[E]
}

// ConcurrentlyNode leaves Left and Right unordered.
type ConcurrentlyNode[E any] struct {
	Left  EventGraph[E]
	Right EventGraph[E]
}

func (EmptyNode[E]) isEventGraph(E)        {}
func (AtomNode[E]) isEventGraph(E)         {}
func (SequentiallyNode[E]) isEventGraph(E) {}
func (ConcurrentlyNode[E]) isEventGraph(E) {}

// Empty returns the empty graph.
func Empty[E any]() EventGraph[E] {
	return EmptyNode[E]{}
}

// IsEmpty reports whether g has no events. A nil graph is empty.
func IsEmpty[E any](g EventGraph[E]) bool {
	switch g.(type) {
	case nil, EmptyNode[E]:
		return true
	default:
		return false
	}
}

// Atom returns the graph holding the single event e.
//
// Panics if e is nil: a missing event is a programming error, not an
// empty graph.
func Atom[E any](e E) EventGraph[E] {
	if isNil(e) {
		panic(fmt.Sprintf("graph: Atom called with nil %T event", &e))
	}
	return AtomNode[E]{Event: e}
}

// Sequentially returns prefix followed by suffix. Empty operands are elided.
func Sequentially[E any](prefix, suffix EventGraph[E]) EventGraph[E] {
	switch {
	case IsEmpty(prefix) && IsEmpty(suffix):
		return Empty[E]()
	case IsEmpty(prefix):
		return suffix
	case IsEmpty(suffix):
		return prefix
	}
	return SequentiallyNode[E]{Prefix: prefix, Suffix: suffix}
}

// Concurrently returns left and right unordered. Empty operands are elided.
func Concurrently[E any](left, right EventGraph[E]) EventGraph[E] {
	switch {
	case IsEmpty(left) && IsEmpty(right):
		return Empty[E]()
	case IsEmpty(left):
		return right
	case IsEmpty(right):
		return left
	}
	return ConcurrentlyNode[E]{Left: left, Right: right}
}

// SequentiallyAll chains graphs left to right.
func SequentiallyAll[E any](graphs ...EventGraph[E]) EventGraph[E] {
	acc := Empty[E]()
	for _, g := range graphs {
		acc = Sequentially(acc, g)
	}
	return acc
}

// ConcurrentlyAll combines graphs as mutually unordered.
func ConcurrentlyAll[E any](graphs ...EventGraph[E]) EventGraph[E] {
	acc := Empty[E]()
	for _, g := range graphs {
		acc = Concurrently(acc, g)
	}
	return acc
}

func isNil[E any](e E) bool {
	v := reflect.ValueOf(&e).Elem()
	switch v.Kind() {
	case reflect.Interface, reflect.Pointer, reflect.Map, reflect.Slice, reflect.Func, reflect.Chan:
		return v.IsNil()
	default:
		return false
	}
}
