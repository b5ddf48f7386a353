package effect

import (
	"fmt"
	"sort"
)

// Instances is the activity-effect algebra: an effect maps addressable
// instance keys to the action recorded against that instance.
//
// Any instance named on both sides of Concurrently is a conflict, even when
// both sides record the same action: two simultaneous events on one instance
// have no defined order. Sequentially lets the suffix override the prefix
// per key.
//
// Effects are never mutated; every combination allocates a fresh map.
type Instances[K comparable, V any] struct{}

// Empty returns the empty instance map (nil).
func (Instances[K, V]) Empty() map[K]V { return nil }

// Sequentially merges suffix over prefix.
func (Instances[K, V]) Sequentially(prefix, suffix map[K]V) map[K]V {
	if len(prefix) == 0 {
		return suffix
	}
	if len(suffix) == 0 {
		return prefix
	}
	out := make(map[K]V, len(prefix)+len(suffix))
	for k, v := range prefix {
		out[k] = v
	}
	for k, v := range suffix {
		out[k] = v
	}
	return out
}

// Concurrently merges disjoint maps, failing on the first shared instance in
// a deterministic (rendered key) order.
func (Instances[K, V]) Concurrently(left, right map[K]V) (map[K]V, error) {
	if len(left) == 0 {
		return right, nil
	}
	if len(right) == 0 {
		return left, nil
	}

	var shared []K
	for k := range right {
		if _, ok := left[k]; ok {
			shared = append(shared, k)
		}
	}
	if len(shared) > 0 {
		sortKeys(shared)
		k := shared[0]
		return nil, NewConflict(fmt.Sprintf("%v", k), left[k], right[k])
	}

	out := make(map[K]V, len(left)+len(right))
	for k, v := range left {
		out[k] = v
	}
	for k, v := range right {
		out[k] = v
	}
	return out, nil
}

// sortKeys orders keys by their %v rendering so error reporting does not
// depend on map iteration order.
func sortKeys[K comparable](keys []K) {
	sort.Slice(keys, func(i, j int) bool {
		return fmt.Sprintf("%v", keys[i]) < fmt.Sprintf("%v", keys[j])
	})
}
