package effect

import "fmt"

// Trait is the effect algebra for effects of type E.
//
// Implementations must be pure: no operation may mutate its arguments.
type Trait[E any] interface {
	// Empty returns the identity effect.
	Empty() E

	// Sequentially combines prefix and suffix where prefix happens-before suffix.
	Sequentially(prefix, suffix E) E

	// Concurrently combines two unordered effects.
	// Returns a *ConflictError if the two effects cannot both hold.
	Concurrently(left, right E) (E, error)
}

// Number is the set of numeric types supported by Sum.
type Number interface {
	~int | ~int8 | ~int16 | ~int32 | ~int64 |
		~uint | ~uint8 | ~uint16 | ~uint32 | ~uint64 |
		~float32 | ~float64
}

// SequentiallyAll folds effects left to right with Sequentially.
// Returns Empty() for no effects.
func SequentiallyAll[E any](t Trait[E], effects ...E) E {
	acc := t.Empty()
	for _, e := range effects {
		acc = t.Sequentially(acc, e)
	}
	return acc
}

// ConcurrentlyAll folds effects left to right with Concurrently.
// Stops at the first conflict.
func ConcurrentlyAll[E any](t Trait[E], effects ...E) (E, error) {
	acc := t.Empty()
	for i, e := range effects {
		next, err := t.Concurrently(acc, e)
		if err != nil {
			var zero E
			return zero, fmt.Errorf("effect %d: %w", i, err)
		}
		acc = next
	}
	return acc, nil
}
