package graph

import (
	"fmt"
	"strings"
)

// Free is the effect algebra of event graphs themselves: Sequentially and
// Concurrently build nodes and never conflict. Folding a graph through Free
// rebuilds it, which is how Map and Filter transform graphs without
// recursion.
type Free[E any] struct{}

// Empty returns the empty graph.
func (Free[E]) Empty() EventGraph[E] { return Empty[E]() }

// Sequentially returns Sequentially(prefix, suffix).
func (Free[E]) Sequentially(prefix, suffix EventGraph[E]) EventGraph[E] {
	return Sequentially(prefix, suffix)
}

// Concurrently returns Concurrently(left, right). Never fails.
func (Free[E]) Concurrently(left, right EventGraph[E]) (EventGraph[E], error) {
	return Concurrently(left, right), nil
}

// Map returns g with every event replaced by f(event).
func Map[E, F any](g EventGraph[E], f func(E) F) EventGraph[F] {
	out, _ := Evaluate(g, Free[F]{}, func(e E) EventGraph[F] { return Atom(f(e)) })
	return out
}

// Filter returns g restricted to the events keep accepts. Removed events
// leave no trace in the structure.
func Filter[E any](g EventGraph[E], keep func(E) bool) EventGraph[E] {
	out, _ := Evaluate(g, Free[E]{}, func(e E) EventGraph[E] {
		if keep(e) {
			return Atom(e)
		}
		return Empty[E]()
	})
	return out
}

// Walk visits every event of g in structural order (prefix before suffix,
// left before right) until visit returns false.
func Walk[E any](g EventGraph[E], visit func(E) bool) {
	stack := []EventGraph[E]{g}
	for len(stack) > 0 {
		node := stack[len(stack)-1]
		stack = stack[:len(stack)-1]

		switch n := node.(type) {
		case AtomNode[E]:
			if !visit(n.Event) {
				return
			}
		case SequentiallyNode[E]:
			stack = append(stack, n.Suffix, n.Prefix)
		case ConcurrentlyNode[E]:
			stack = append(stack, n.Right, n.Left)
		}
	}
}

// Events returns the events of g in structural order.
func Events[E any](g EventGraph[E]) []E {
	var out []E
	Walk(g, func(e E) bool {
		out = append(out, e)
		return true
	})
	return out
}

// Size returns the number of events in g.
func Size[E any](g EventGraph[E]) int {
	n := 0
	Walk(g, func(E) bool {
		n++
		return true
	})
	return n
}

// Depth returns the height of g: 0 for Empty, 1 for an atom.
func Depth[E any](g EventGraph[E]) int {
	type item struct {
		node  EventGraph[E]
		depth int
	}
	deepest := 0
	stack := []item{{g, 1}}
	for len(stack) > 0 {
		it := stack[len(stack)-1]
		stack = stack[:len(stack)-1]

		switch n := it.node.(type) {
		case AtomNode[E]:
			if it.depth > deepest {
				deepest = it.depth
			}
		case SequentiallyNode[E]:
			stack = append(stack, item{n.Prefix, it.depth + 1}, item{n.Suffix, it.depth + 1})
		case ConcurrentlyNode[E]:
			stack = append(stack, item{n.Left, it.depth + 1}, item{n.Right, it.depth + 1})
		}
	}
	return deepest
}

// String renders g as "(a; b)" for sequential and "(a | b)" for concurrent
// composition; the empty graph renders as "{}".
func String[E any](g EventGraph[E]) string {
	if IsEmpty(g) {
		return "{}"
	}
	out, _ := Evaluate(g, render{}, func(e E) string { return fmt.Sprintf("%v", e) })
	return out
}

type render struct{}

func (render) Empty() string { return "" }

func (render) Sequentially(prefix, suffix string) string {
	return join(prefix, suffix, "; ")
}

func (render) Concurrently(left, right string) (string, error) {
	return join(left, right, " | "), nil
}

func join(a, b, sep string) string {
	if a == "" {
		return b
	}
	if b == "" {
		return a
	}
	var sb strings.Builder
	sb.WriteByte('(')
	sb.WriteString(a)
	sb.WriteString(sep)
	sb.WriteString(b)
	sb.WriteByte(')')
	return sb.String()
}
