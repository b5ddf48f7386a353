package harness

import "github.com/roach88/strata/internal/results"

// Result is the outcome of running one scenario.
type Result struct {
	Scenario string `json:"scenario"`
	Pass     bool   `json:"pass"`

	// Hash is the results hash of the stored run.
	Hash    string           `json:"hash"`
	Results *results.Results `json:"results"`

	// Errors holds one message per failed assertion, plus one for a run that
	// halted unexpectedly.
	Errors []string `json:"errors,omitempty"`
}

// newResult evaluates the scenario's assertions against res.
func newResult(scenario *Scenario, res *results.Results, hash string, actx *AssertionContext) *Result {
	errs := EvaluateAssertions(res, scenario.Assertions, actx)
	return &Result{
		Scenario: scenario.Name,
		Pass:     len(errs) == 0,
		Hash:     hash,
		Results:  res,
		Errors:   errs,
	}
}
