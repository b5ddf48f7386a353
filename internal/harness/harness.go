package harness

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/roach88/strata/internal/compiler"
	"github.com/roach88/strata/internal/engine"
	"github.com/roach88/strata/internal/ir"
	"github.com/roach88/strata/internal/plan"
	"github.com/roach88/strata/internal/results"
	"github.com/roach88/strata/internal/store"
	"github.com/roach88/strata/internal/testutil"
)

// Harness runs scenarios against the engine.
type Harness struct {
	logger   *slog.Logger
	maxSteps int
}

// Option configures a Harness.
type Option func(*Harness)

// WithLogger sets the logger handed to every engine. Logs are discarded by
// default.
func WithLogger(l *slog.Logger) Option {
	return func(h *Harness) { h.logger = l }
}

// WithMaxSteps sets the engine step quota for every scenario.
func WithMaxSteps(n int) Option {
	return func(h *Harness) { h.maxSteps = n }
}

// New creates a Harness.
func New(opts ...Option) *Harness {
	h := &Harness{
		logger:   testutil.DiscardLogger(),
		maxSteps: engine.DefaultMaxSteps,
	}
	for _, opt := range opts {
		opt(h)
	}
	return h
}

// Run executes a scenario with default options.
func Run(ctx context.Context, scenario *Scenario) (*Result, error) {
	return New().Run(ctx, scenario)
}

// Run executes a test scenario and returns the result.
//
// Execution flow:
//  1. Load and validate the scenario's model
//  2. Simulate the plan under the scenario's fixed run ID
//  3. Store the run in a fresh in-memory database
//  4. Evaluate assertions against the results
//
// An error is returned only when the scenario cannot be run at all: a model
// that does not load or a plan that does not validate. A simulation that
// halts is reported through the conflict and error assertions.
func (h *Harness) Run(ctx context.Context, scenario *Scenario) (*Result, error) {
	model, err := compiler.LoadModel(scenario.Model, scenario.ModelName)
	if err != nil {
		return nil, fmt.Errorf("scenario %s: %w", scenario.Name, err)
	}
	return h.RunModel(ctx, scenario, model)
}

// RunModel executes scenario against an already loaded model.
func (h *Harness) RunModel(ctx context.Context, scenario *Scenario, model *ir.ModelSpec) (*Result, error) {
	st, err := store.Open(":memory:")
	if err != nil {
		return nil, fmt.Errorf("failed to create in-memory store: %w", err)
	}
	defer st.Close()

	p := scenario.PlanSpec()
	run, simErr := plan.Simulate(ctx, model, p, h.engineOptions(scenario)...)
	if run == nil {
		return nil, fmt.Errorf("scenario %s: %w", scenario.Name, simErr)
	}

	res, err := results.FromRun(run)
	if err != nil {
		return nil, fmt.Errorf("scenario %s: %w", scenario.Name, err)
	}
	if err := st.WriteRun(ctx, res, model, p); err != nil {
		return nil, fmt.Errorf("scenario %s: %w", scenario.Name, err)
	}

	h.logger.Info("scenario simulated",
		"scenario", scenario.Name,
		"run_id", res.RunID,
		"status", res.Status,
		"elapsed", res.Elapsed,
		"tasks", len(res.Spans))

	hash, err := res.Hash()
	if err != nil {
		return nil, fmt.Errorf("scenario %s: %w", scenario.Name, err)
	}

	actx := &AssertionContext{
		Ctx:     ctx,
		Store:   st,
		Options: h.engineOptions(scenario),
	}
	return newResult(scenario, res, hash, actx), nil
}

func (h *Harness) engineOptions(scenario *Scenario) []engine.EngineOption {
	return []engine.EngineOption{
		engine.WithRunIDGenerator(testutil.NewFixedRunIDGenerator(scenario.RunID)),
		engine.WithLogger(h.logger),
		engine.WithMaxSteps(h.maxSteps),
	}
}
