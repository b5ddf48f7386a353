package harness

import (
	"bytes"
	"fmt"
	"os"
	"path/filepath"

	"gopkg.in/yaml.v3"

	"github.com/roach88/strata/internal/compiler"
	"github.com/roach88/strata/internal/ir"
	"github.com/roach88/strata/internal/plan"
)

// Scenario defines a simulation test: a model, a plan, and assertions on the
// results of simulating the plan.
type Scenario struct {
	// Name uniquely identifies this scenario and names its golden file.
	Name string `yaml:"name"`

	// Description explains what this scenario validates.
	Description string `yaml:"description"`

	// Model is the directory of CUE files declaring the model.
	// Relative paths are resolved against the scenario file.
	Model string `yaml:"model"`

	// ModelName selects a model when the directory declares several.
	ModelName string `yaml:"model_name,omitempty"`

	// Plan is the plan to simulate, written inline in plan file format.
	Plan yaml.Node `yaml:"plan"`

	// Horizon overrides the plan's horizon.
	Horizon string `yaml:"horizon,omitempty"`

	// RunID is a fixed run ID. Defaults to "scenario-<name>".
	RunID string `yaml:"run_id,omitempty"`

	// Assertions validate the results.
	Assertions []Assertion `yaml:"assertions"`

	plan *ir.PlanSpec
}

// Assertion validates one aspect of the results.
type Assertion struct {
	// Type is one of the Assert* constants.
	Type string `yaml:"type"`

	// Directive selects the task started by a plan directive (task_span).
	Directive string `yaml:"directive,omitempty"`

	// Activity selects tasks by activity type (task_span, task_count).
	Activity string `yaml:"activity,omitempty"`

	// Start, End and Status are the expected span fields (task_span).
	Start  string `yaml:"start,omitempty"`
	End    string `yaml:"end,omitempty"`
	Status string `yaml:"status,omitempty"`

	// Count is the expected number of tasks (task_count).
	Count int `yaml:"count,omitempty"`

	// Resource and At select a resource value; an empty At means the value
	// at the end of the run (resource_value).
	Resource string `yaml:"resource,omitempty"`
	At       string `yaml:"at,omitempty"`

	// Value is the expected resource value (resource_value).
	Value any `yaml:"value,omitempty"`

	// Contains is a substring the run error must contain (conflict, error).
	Contains string `yaml:"contains,omitempty"`
}

// Assertion type constants.
const (
	AssertTaskSpan      = "task_span"
	AssertTaskCount     = "task_count"
	AssertResourceValue = "resource_value"
	AssertConflict      = "conflict"
	AssertError         = "error"
	AssertDeterministic = "deterministic"
)

// PlanSpec returns the scenario's plan, with the horizon override applied.
func (s *Scenario) PlanSpec() *ir.PlanSpec {
	return s.plan
}

// LoadScenario reads and parses a scenario YAML file.
// Returns an error if the file doesn't exist, is malformed,
// contains unknown fields (typos), or is missing required fields.
func LoadScenario(path string) (*Scenario, error) {
	return LoadScenarioWithBasePath(path, filepath.Dir(path))
}

// LoadScenarioWithBasePath reads and parses a scenario YAML file,
// resolving the model path relative to basePath.
func LoadScenarioWithBasePath(path, basePath string) (*Scenario, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read scenario file: %w", err)
	}

	scenario, err := ParseScenario(data)
	if err != nil {
		return nil, err
	}

	if !filepath.IsAbs(scenario.Model) && basePath != "" {
		scenario.Model = filepath.Join(basePath, scenario.Model)
	}
	if _, err := os.Stat(scenario.Model); os.IsNotExist(err) {
		return nil, fmt.Errorf("invalid scenario: model directory not found: %s", scenario.Model)
	}

	return scenario, nil
}

// ParseScenario parses scenario YAML. The model path is left as written.
func ParseScenario(data []byte) (*Scenario, error) {
	var scenario Scenario
	decoder := yaml.NewDecoder(bytes.NewReader(data))
	decoder.KnownFields(true)
	if err := decoder.Decode(&scenario); err != nil {
		return nil, fmt.Errorf("failed to parse YAML: %w", err)
	}

	if err := validateScenario(&scenario); err != nil {
		return nil, fmt.Errorf("invalid scenario: %w", err)
	}
	return &scenario, nil
}

// validateScenario checks that required fields are present and decodes the
// inline plan.
func validateScenario(s *Scenario) error {
	if s.Name == "" {
		return fmt.Errorf("name is required")
	}
	if s.Description == "" {
		return fmt.Errorf("description is required")
	}
	if s.Model == "" {
		return fmt.Errorf("model is required")
	}
	if s.Plan.Kind == 0 {
		return fmt.Errorf("plan is required")
	}
	if len(s.Assertions) == 0 {
		return fmt.Errorf("assertions list is required and must be non-empty")
	}

	raw, err := yaml.Marshal(&s.Plan)
	if err != nil {
		return fmt.Errorf("plan: %w", err)
	}
	p, err := plan.Parse(raw)
	if err != nil {
		return fmt.Errorf("plan: %w", err)
	}
	if s.Horizon != "" {
		if _, err := compiler.ParseDuration(s.Horizon); err != nil {
			return fmt.Errorf("horizon: %w", err)
		}
		p.Horizon = s.Horizon
	}
	s.plan = p

	if s.RunID == "" {
		s.RunID = "scenario-" + s.Name
	}

	for i, assertion := range s.Assertions {
		if err := validateAssertion(i, &assertion); err != nil {
			return err
		}
	}
	return nil
}

// validateAssertion validates a single assertion based on its type.
func validateAssertion(index int, a *Assertion) error {
	if a.Type == "" {
		return fmt.Errorf("assertions[%d]: type is required", index)
	}

	switch a.Type {
	case AssertTaskSpan:
		if a.Directive == "" && a.Activity == "" {
			return fmt.Errorf("assertions[%d]: directive or activity is required for task_span", index)
		}
		if a.Start == "" && a.End == "" && a.Status == "" {
			return fmt.Errorf("assertions[%d]: one of start, end or status is required for task_span", index)
		}
	case AssertTaskCount:
		if a.Activity == "" {
			return fmt.Errorf("assertions[%d]: activity is required for task_count", index)
		}
		if a.Count < 0 {
			return fmt.Errorf("assertions[%d]: count must be non-negative for task_count", index)
		}
	case AssertResourceValue:
		if a.Resource == "" {
			return fmt.Errorf("assertions[%d]: resource is required for resource_value", index)
		}
		if a.Value == nil {
			return fmt.Errorf("assertions[%d]: value is required for resource_value", index)
		}
		if a.At != "" {
			if _, err := compiler.ParseDuration(a.At); err != nil {
				return fmt.Errorf("assertions[%d]: at: %w", index, err)
			}
		}
	case AssertConflict, AssertError, AssertDeterministic:
	default:
		return fmt.Errorf("assertions[%d]: unknown assertion type %q", index, a.Type)
	}

	return nil
}
