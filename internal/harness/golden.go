package harness

import (
	"context"
	"testing"

	"github.com/sebdah/goldie/v2"

	"github.com/roach88/strata/internal/ir"
	"github.com/roach88/strata/internal/results"
)

// Snapshot is the part of a scenario's results compared against its golden
// file. Hashes and the run ID are left out so the file is readable and does
// not change when unrelated inputs are reformatted.
type Snapshot struct {
	Scenario string            `json:"scenario"`
	Status   string            `json:"status"`
	Error    string            `json:"error,omitempty"`
	Elapsed  string            `json:"elapsed"`
	Spans    []results.Span    `json:"spans"`
	Profiles []results.Profile `json:"profiles"`
}

// NewSnapshot extracts the snapshot of r.
func NewSnapshot(name string, r *results.Results) Snapshot {
	return Snapshot{
		Scenario: name,
		Status:   r.Status,
		Error:    r.Error,
		Elapsed:  r.Elapsed,
		Spans:    r.Spans,
		Profiles: r.Profiles,
	}
}

// RunWithGolden executes a scenario and compares its results against a
// golden file. The golden file is stored in testdata/golden/{scenario.Name}.golden
//
// To regenerate golden files, run:
//
//	go test ./internal/harness -update
//
// Returns error if scenario execution fails.
// Test failure (via goldie) occurs if the results don't match the golden file.
func RunWithGolden(t *testing.T, scenario *Scenario) (*Result, error) {
	t.Helper()

	result, err := Run(context.Background(), scenario)
	if err != nil {
		return nil, err
	}
	if err := AssertGolden(t, scenario.Name, result); err != nil {
		return nil, err
	}
	return result, nil
}

// AssertGolden compares the given result against a golden file without
// re-running the scenario.
func AssertGolden(t *testing.T, scenarioName string, result *Result) error {
	t.Helper()

	snapshot := NewSnapshot(scenarioName, result.Results)
	data, err := ir.Canonicalize(snapshot)
	if err != nil {
		return err
	}

	g := goldie.New(t,
		goldie.WithFixtureDir("testdata/golden"),
		goldie.WithNameSuffix(".golden"),
	)
	g.Assert(t, scenarioName, data)

	return nil
}
