package ir

import (
	"encoding/json"
	"fmt"
)

// decodeOptional decodes a Value field that may be absent.
func decodeOptional(raw json.RawMessage) (Value, error) {
	if len(raw) == 0 {
		return nil, nil
	}
	return UnmarshalValue(raw)
}

// UnmarshalJSON implements json.Unmarshaler, restoring Initial as a Value.
func (r *ResourceSpec) UnmarshalJSON(data []byte) error {
	type plain ResourceSpec
	var aux struct {
		plain
		Initial json.RawMessage `json:"initial"`
	}
	if err := json.Unmarshal(data, &aux); err != nil {
		return err
	}
	v, err := decodeOptional(aux.Initial)
	if err != nil {
		return fmt.Errorf("resource %q initial: %w", aux.Name, err)
	}
	*r = ResourceSpec(aux.plain)
	r.Initial = v
	return nil
}

// UnmarshalJSON implements json.Unmarshaler, restoring Default as a Value.
func (p *ParamSpec) UnmarshalJSON(data []byte) error {
	type plain ParamSpec
	var aux struct {
		plain
		Default json.RawMessage `json:"default"`
	}
	if err := json.Unmarshal(data, &aux); err != nil {
		return err
	}
	v, err := decodeOptional(aux.Default)
	if err != nil {
		return fmt.Errorf("param %q default: %w", aux.Name, err)
	}
	*p = ParamSpec(aux.plain)
	p.Default = v
	return nil
}

// UnmarshalJSON implements json.Unmarshaler, restoring Value as a Value.
func (s *StepSpec) UnmarshalJSON(data []byte) error {
	type plain StepSpec
	var aux struct {
		plain
		Value json.RawMessage `json:"value"`
	}
	if err := json.Unmarshal(data, &aux); err != nil {
		return err
	}
	v, err := decodeOptional(aux.Value)
	if err != nil {
		return fmt.Errorf("step %s value: %w", aux.Op, err)
	}
	*s = StepSpec(aux.plain)
	s.Value = v
	return nil
}

// UnmarshalJSON implements json.Unmarshaler, restoring Value as a Value.
func (c *ConditionSpec) UnmarshalJSON(data []byte) error {
	type plain ConditionSpec
	var aux struct {
		plain
		Value json.RawMessage `json:"value"`
	}
	if err := json.Unmarshal(data, &aux); err != nil {
		return err
	}
	v, err := decodeOptional(aux.Value)
	if err != nil {
		return fmt.Errorf("condition on %q: %w", aux.Resource, err)
	}
	*c = ConditionSpec(aux.plain)
	c.Value = v
	return nil
}
