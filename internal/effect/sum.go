package effect

// Sum is the commutative algebra of numeric deltas.
//
// Sequentially and Concurrently both add, so concurrent increments never
// conflict and the result equals applying both deltas in either order.
type Sum[N Number] struct{}

// Empty returns 0.
func (Sum[N]) Empty() N { return 0 }

// Sequentially returns prefix + suffix.
func (Sum[N]) Sequentially(prefix, suffix N) N { return prefix + suffix }

// Concurrently returns left + right. Never fails.
func (Sum[N]) Concurrently(left, right N) (N, error) { return left + right, nil }
