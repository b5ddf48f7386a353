package store

import (
	"fmt"

	"github.com/roach88/strata/internal/ir"
)

// marshalValue serializes a profile value to canonical JSON so equal values
// are stored as identical text.
func marshalValue(v ir.Value) (string, error) {
	b, err := ir.MarshalCanonical(v)
	if err != nil {
		return "", fmt.Errorf("marshal value: %w", err)
	}
	return string(b), nil
}

func unmarshalValue(s string) (ir.Value, error) {
	v, err := ir.UnmarshalValue([]byte(s))
	if err != nil {
		return nil, fmt.Errorf("unmarshal value: %w", err)
	}
	return v, nil
}

// marshalSpec serializes a model or plan to canonical JSON.
func marshalSpec(v any) (string, error) {
	b, err := ir.Canonicalize(v)
	if err != nil {
		return "", fmt.Errorf("marshal spec: %w", err)
	}
	return string(b), nil
}
