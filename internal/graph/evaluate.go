package graph

import "github.com/roach88/strata/internal/effect"

type combiner uint8

const (
	sequential combiner = iota
	concurrent
)

type contKind uint8

const (
	// contRight: the left operand is being evaluated; the right one is pending.
	contRight contKind = iota
	// contCombine: the left operand's effect is known; the right one is being
	// evaluated.
	contCombine
)

// continuation is one pending frame of Evaluate. An empty stack is the
// terminal continuation.
type continuation[E, F any] struct {
	kind  contKind
	op    combiner
	right EventGraph[E]
	left  F
}

// Evaluate folds g into a single effect: every atom is substituted, then
// combined with trait.Sequentially or trait.Concurrently following the shape
// of the graph.
//
// Evaluation is iterative, so arbitrarily deep graphs are bounded by heap
// rather than by the goroutine stack. The first concurrency conflict aborts
// the fold and is returned.
func Evaluate[E, F any](g EventGraph[E], trait effect.Trait[F], substitute func(E) F) (F, error) {
	var stack []continuation[E, F]
	node := g

	for {
		var acc F

	descend:
		for {
			switch n := node.(type) {
			case nil, EmptyNode[E]:
				acc = trait.Empty()
				break descend
			case AtomNode[E]:
				acc = substitute(n.Event)
				break descend
			case SequentiallyNode[E]:
				stack = append(stack, continuation[E, F]{kind: contRight, op: sequential, right: n.Suffix})
				node = n.Prefix
			case ConcurrentlyNode[E]:
				stack = append(stack, continuation[E, F]{kind: contRight, op: concurrent, right: n.Right})
				node = n.Left
			default:
				panic("graph: unknown node type")
			}
		}

	unwind:
		for {
			if len(stack) == 0 {
				return acc, nil
			}
			top := stack[len(stack)-1]
			stack = stack[:len(stack)-1]

			switch top.kind {
			case contRight:
				stack = append(stack, continuation[E, F]{kind: contCombine, op: top.op, left: acc})
				node = top.right
				break unwind
			case contCombine:
				if top.op == sequential {
					acc = trait.Sequentially(top.left, acc)
					continue
				}
				var err error
				acc, err = trait.Concurrently(top.left, acc)
				if err != nil {
					var zero F
					return zero, err
				}
			}
		}
	}
}

// EvaluateRecursive is the direct recursive fold of g. It agrees with
// Evaluate on every graph but uses stack proportional to the graph's depth.
func EvaluateRecursive[E, F any](g EventGraph[E], trait effect.Trait[F], substitute func(E) F) (F, error) {
	switch n := g.(type) {
	case nil, EmptyNode[E]:
		return trait.Empty(), nil
	case AtomNode[E]:
		return substitute(n.Event), nil
	case SequentiallyNode[E]:
		p, err := EvaluateRecursive(n.Prefix, trait, substitute)
		if err != nil {
			return p, err
		}
		s, err := EvaluateRecursive(n.Suffix, trait, substitute)
		if err != nil {
			return s, err
		}
		return trait.Sequentially(p, s), nil
	case ConcurrentlyNode[E]:
		l, err := EvaluateRecursive(n.Left, trait, substitute)
		if err != nil {
			return l, err
		}
		r, err := EvaluateRecursive(n.Right, trait, substitute)
		if err != nil {
			return r, err
		}
		return trait.Concurrently(l, r)
	default:
		panic("graph: unknown node type")
	}
}
