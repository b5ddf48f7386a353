// Package plan loads activity plans and runs them against a model.
//
// A plan is a YAML file naming a horizon and the activities to start:
//
//	name: day-1
//	horizon: 2h
//	directives:
//	  - id: img-1
//	    type: Image
//	    start: 10m
//	    args:
//	      exposure: 30s
package plan

import (
	"bytes"
	"fmt"
	"os"

	"gopkg.in/yaml.v3"

	"github.com/roach88/strata/internal/ir"
)

type planFile struct {
	Name       string          `yaml:"name"`
	Horizon    string          `yaml:"horizon"`
	Directives []directiveFile `yaml:"directives"`
}

type directiveFile struct {
	ID    string         `yaml:"id"`
	Type  string         `yaml:"type"`
	Start string         `yaml:"start"`
	Args  map[string]any `yaml:"args,omitempty"`
}

// Load reads and parses a plan YAML file.
func Load(path string) (*ir.PlanSpec, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read plan file: %w", err)
	}
	p, err := Parse(data)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	return p, nil
}

// Parse decodes a plan. Unknown fields are rejected so typos such as
// "directive:" do not silently produce an empty plan. Semantic checks
// against a model are done by compiler.ValidatePlan.
func Parse(data []byte) (*ir.PlanSpec, error) {
	var pf planFile
	decoder := yaml.NewDecoder(bytes.NewReader(data))
	decoder.KnownFields(true)
	if err := decoder.Decode(&pf); err != nil {
		return nil, fmt.Errorf("failed to parse YAML: %w", err)
	}

	spec := &ir.PlanSpec{
		Name:       pf.Name,
		Horizon:    pf.Horizon,
		Directives: make([]ir.DirectiveSpec, 0, len(pf.Directives)),
	}
	for i, d := range pf.Directives {
		args, err := convertArgs(d.Args)
		if err != nil {
			return nil, fmt.Errorf("directives[%d].args: %w", i, err)
		}
		spec.Directives = append(spec.Directives, ir.DirectiveSpec{
			ID:    d.ID,
			Type:  d.Type,
			Start: d.Start,
			Args:  args,
		})
	}
	return spec, nil
}

// convertArgs converts YAML-decoded arguments to IR values.
func convertArgs(args map[string]any) (ir.Object, error) {
	if len(args) == 0 {
		return nil, nil
	}
	obj := make(ir.Object, len(args))
	for k, v := range args {
		val, err := ir.FromAny(normalizeYAML(v))
		if err != nil {
			return nil, fmt.Errorf("%s: %w", k, err)
		}
		obj[k] = val
	}
	return obj, nil
}

// normalizeYAML rewrites the map[any]any nodes yaml may produce for
// non-string keys into map[string]any.
func normalizeYAML(v any) any {
	switch val := v.(type) {
	case map[any]any:
		out := make(map[string]any, len(val))
		for k, elem := range val {
			out[fmt.Sprint(k)] = normalizeYAML(elem)
		}
		return out
	case map[string]any:
		out := make(map[string]any, len(val))
		for k, elem := range val {
			out[k] = normalizeYAML(elem)
		}
		return out
	case []any:
		out := make([]any, len(val))
		for i, elem := range val {
			out[i] = normalizeYAML(elem)
		}
		return out
	default:
		return v
	}
}
