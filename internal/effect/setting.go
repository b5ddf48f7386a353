package effect

// Set is the effect of writing a discrete value.
// The zero Set is "no write".
type Set[V comparable] struct {
	Present bool
	Value   V
}

// Write returns the effect of writing v.
func Write[V comparable](v V) Set[V] {
	return Set[V]{Present: true, Value: v}
}

// Setting is the algebra of discrete register writes.
//
//   - Sequentially: the suffix write wins when present.
//   - Concurrently: writes of equal values agree; writes of different values
//     conflict.
type Setting[V comparable] struct{}

// Empty returns the absent write.
func (Setting[V]) Empty() Set[V] { return Set[V]{} }

// Sequentially returns suffix if it writes, otherwise prefix.
func (Setting[V]) Sequentially(prefix, suffix Set[V]) Set[V] {
	if suffix.Present {
		return suffix
	}
	return prefix
}

// Concurrently returns the single agreed write, or a ConflictError when the
// two sides write different values.
func (Setting[V]) Concurrently(left, right Set[V]) (Set[V], error) {
	switch {
	case !left.Present:
		return right, nil
	case !right.Present:
		return left, nil
	case left.Value == right.Value:
		return left, nil
	default:
		return Set[V]{}, NewConflict("", left.Value, right.Value)
	}
}
