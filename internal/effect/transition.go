package effect

// Delta is a state-transition effect. A nil Delta is the identity transition.
type Delta[S any] func(state S) (S, error)

// ReconcileFunc merges two transitions that were applied to the same start
// state. It receives the start state and both outcomes and must produce the
// combined state, or fail when the outcomes cannot be reconciled.
type ReconcileFunc[S any] func(start, left, right S) (S, error)

// Transition models effects as state-transition functions.
//
//   - Sequentially feeds the prefix's output state into the suffix.
//   - Concurrently applies both transitions to the same start state and asks
//     Reconcile to merge the two outcomes.
type Transition[S any] struct {
	Reconcile ReconcileFunc[S]
}

// NewTransition returns a Transition algebra with the given reconcile action.
func NewTransition[S any](reconcile ReconcileFunc[S]) Transition[S] {
	return Transition[S]{Reconcile: reconcile}
}

// Empty returns the identity transition (nil).
func (t Transition[S]) Empty() Delta[S] { return nil }

// Apply runs d against state, treating nil as the identity.
func (t Transition[S]) Apply(d Delta[S], state S) (S, error) {
	if d == nil {
		return state, nil
	}
	return d(state)
}

// Sequentially composes suffix after prefix.
func (t Transition[S]) Sequentially(prefix, suffix Delta[S]) Delta[S] {
	if prefix == nil {
		return suffix
	}
	if suffix == nil {
		return prefix
	}
	return func(state S) (S, error) {
		mid, err := prefix(state)
		if err != nil {
			return mid, err
		}
		return suffix(mid)
	}
}

// Concurrently applies both transitions to the same start state and
// reconciles the outcomes.
func (t Transition[S]) Concurrently(left, right Delta[S]) (Delta[S], error) {
	if left == nil {
		return right, nil
	}
	if right == nil {
		return left, nil
	}
	return func(state S) (S, error) {
		l, err := left(state)
		if err != nil {
			return l, err
		}
		r, err := right(state)
		if err != nil {
			return r, err
		}
		return t.Reconcile(state, l, r)
	}, nil
}
