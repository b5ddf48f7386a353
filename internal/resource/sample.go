package resource

import "github.com/roach88/strata/internal/ir"

// Sampler is implemented by resource states that are reported as a
// different value than themselves.
type Sampler interface {
	Sample() any
}

// Sample converts a resource state into an IR value for results.
func Sample(state any) (ir.Value, error) {
	if s, ok := state.(Sampler); ok {
		state = s.Sample()
	}
	return ir.FromAny(state)
}
