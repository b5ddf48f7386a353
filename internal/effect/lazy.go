package effect

import "sync"

// Thunk is a deferred effect. A nil Thunk is the empty effect.
type Thunk[E any] func() (E, error)

// Suspend memoises f so it runs at most once, however often it is forced.
func Suspend[E any](f func() (E, error)) Thunk[E] {
	var (
		once sync.Once
		val  E
		err  error
	)
	return func() (E, error) {
		once.Do(func() { val, err = f() })
		return val, err
	}
}

// Ready returns a Thunk that yields e without deferred work.
func Ready[E any](e E) Thunk[E] {
	return func() (E, error) { return e, nil }
}

// Lazy is the supplier algebra: it lifts Inner over thunks and defers every
// combination until the result is forced. Costly effects that are never
// observed are never computed.
type Lazy[E any] struct {
	Inner Trait[E]
}

// NewLazy returns a Lazy lift over inner.
func NewLazy[E any](inner Trait[E]) Lazy[E] {
	return Lazy[E]{Inner: inner}
}

// Empty returns the empty thunk (nil).
func (l Lazy[E]) Empty() Thunk[E] { return nil }

// Force evaluates t, treating nil as Inner.Empty().
func (l Lazy[E]) Force(t Thunk[E]) (E, error) {
	if t == nil {
		return l.Inner.Empty(), nil
	}
	return t()
}

// Sequentially defers Inner.Sequentially until forced.
func (l Lazy[E]) Sequentially(prefix, suffix Thunk[E]) Thunk[E] {
	if prefix == nil {
		return suffix
	}
	if suffix == nil {
		return prefix
	}
	return Suspend(func() (E, error) {
		var zero E
		p, err := prefix()
		if err != nil {
			return zero, err
		}
		s, err := suffix()
		if err != nil {
			return zero, err
		}
		return l.Inner.Sequentially(p, s), nil
	})
}

// Concurrently defers Inner.Concurrently until forced. Never fails eagerly.
func (l Lazy[E]) Concurrently(left, right Thunk[E]) (Thunk[E], error) {
	if left == nil {
		return right, nil
	}
	if right == nil {
		return left, nil
	}
	return Suspend(func() (E, error) {
		var zero E
		a, err := left()
		if err != nil {
			return zero, err
		}
		b, err := right()
		if err != nil {
			return zero, err
		}
		return l.Inner.Concurrently(a, b)
	}), nil
}
