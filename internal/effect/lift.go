package effect

import "fmt"

// Map lifts an inner algebra key-wise over maps.
//
// An absent key is treated as Inner.Empty(), so independent keys never
// interact and shared keys combine through Inner. This is how many resources
// are evaluated in one pass without interfering with one another.
type Map[K comparable, E any] struct {
	Inner Trait[E]
}

// NewMap returns a Map lift over inner.
func NewMap[K comparable, E any](inner Trait[E]) Map[K, E] {
	return Map[K, E]{Inner: inner}
}

// Empty returns the empty map (nil).
func (m Map[K, E]) Empty() map[K]E { return nil }

// Sequentially combines the maps key-wise with Inner.Sequentially.
func (m Map[K, E]) Sequentially(prefix, suffix map[K]E) map[K]E {
	if len(prefix) == 0 {
		return suffix
	}
	if len(suffix) == 0 {
		return prefix
	}
	out := make(map[K]E, len(prefix)+len(suffix))
	for k, p := range prefix {
		if s, ok := suffix[k]; ok {
			out[k] = m.Inner.Sequentially(p, s)
		} else {
			out[k] = p
		}
	}
	for k, s := range suffix {
		if _, ok := prefix[k]; !ok {
			out[k] = s
		}
	}
	return out
}

// Concurrently combines the maps key-wise with Inner.Concurrently.
// Shared keys are combined in a deterministic order so the reported conflict
// is stable; the conflict is scoped with the offending key.
func (m Map[K, E]) Concurrently(left, right map[K]E) (map[K]E, error) {
	if len(left) == 0 {
		return right, nil
	}
	if len(right) == 0 {
		return left, nil
	}

	out := make(map[K]E, len(left)+len(right))
	var shared []K
	for k, l := range left {
		if _, ok := right[k]; ok {
			shared = append(shared, k)
			continue
		}
		out[k] = l
	}
	for k, r := range right {
		if _, ok := left[k]; !ok {
			out[k] = r
		}
	}

	sortKeys(shared)
	for _, k := range shared {
		combined, err := m.Inner.Concurrently(left[k], right[k])
		if err != nil {
			return nil, scoped(err, fmt.Sprintf("%v", k))
		}
		out[k] = combined
	}
	return out, nil
}

// Both is an effect on two independent components.
type Both[A, B any] struct {
	First  A
	Second B
}

// Pair lifts two algebras component-wise.
type Pair[A, B any] struct {
	First  Trait[A]
	Second Trait[B]
}

// NewPair returns a Pair lift over first and second.
func NewPair[A, B any](first Trait[A], second Trait[B]) Pair[A, B] {
	return Pair[A, B]{First: first, Second: second}
}

// Empty returns the pair of empty effects.
func (p Pair[A, B]) Empty() Both[A, B] {
	return Both[A, B]{First: p.First.Empty(), Second: p.Second.Empty()}
}

// Sequentially combines each component with its own algebra.
func (p Pair[A, B]) Sequentially(prefix, suffix Both[A, B]) Both[A, B] {
	return Both[A, B]{
		First:  p.First.Sequentially(prefix.First, suffix.First),
		Second: p.Second.Sequentially(prefix.Second, suffix.Second),
	}
}

// Concurrently combines each component with its own algebra.
// The first component is checked first.
func (p Pair[A, B]) Concurrently(left, right Both[A, B]) (Both[A, B], error) {
	first, err := p.First.Concurrently(left.First, right.First)
	if err != nil {
		return Both[A, B]{}, scoped(err, "first")
	}
	second, err := p.Second.Concurrently(left.Second, right.Second)
	if err != nil {
		return Both[A, B]{}, scoped(err, "second")
	}
	return Both[A, B]{First: first, Second: second}, nil
}

// Family is an effect indexed by I: one inner effect per index, computed on
// demand. A nil Family is the empty family.
type Family[I comparable, E any] func(index I) (E, error)

// Indexed lifts an inner algebra point-wise over families.
//
// Combination builds a new family and never evaluates the operands, so a
// conflict at some index surfaces only when that index is looked up.
type Indexed[I comparable, E any] struct {
	Inner Trait[E]
}

// NewIndexed returns an Indexed lift over inner.
func NewIndexed[I comparable, E any](inner Trait[E]) Indexed[I, E] {
	return Indexed[I, E]{Inner: inner}
}

// Empty returns the empty family (nil).
func (x Indexed[I, E]) Empty() Family[I, E] { return nil }

// At evaluates family f at index, treating nil as the empty family.
func (x Indexed[I, E]) At(f Family[I, E], index I) (E, error) {
	if f == nil {
		return x.Inner.Empty(), nil
	}
	return f(index)
}

// Sequentially returns the point-wise sequential composition.
func (x Indexed[I, E]) Sequentially(prefix, suffix Family[I, E]) Family[I, E] {
	if prefix == nil {
		return suffix
	}
	if suffix == nil {
		return prefix
	}
	return func(index I) (E, error) {
		p, err := prefix(index)
		if err != nil {
			var zero E
			return zero, err
		}
		s, err := suffix(index)
		if err != nil {
			var zero E
			return zero, err
		}
		return x.Inner.Sequentially(p, s), nil
	}
}

// Concurrently returns the point-wise concurrent composition.
// Never fails eagerly; conflicts are reported by At.
func (x Indexed[I, E]) Concurrently(left, right Family[I, E]) (Family[I, E], error) {
	if left == nil {
		return right, nil
	}
	if right == nil {
		return left, nil
	}
	return func(index I) (E, error) {
		var zero E
		l, err := left(index)
		if err != nil {
			return zero, err
		}
		r, err := right(index)
		if err != nil {
			return zero, err
		}
		out, err := x.Inner.Concurrently(l, r)
		if err != nil {
			return zero, scoped(err, fmt.Sprintf("%v", index))
		}
		return out, nil
	}, nil
}
