package store

import (
	"context"
	"io"
	"log/slog"
	"path/filepath"
	"testing"

	"github.com/roach88/strata/internal/engine"
	"github.com/roach88/strata/internal/ir"
	"github.com/roach88/strata/internal/plan"
	"github.com/roach88/strata/internal/results"
)

// createTestStore opens a fresh store in a temporary directory.
func createTestStore(t *testing.T) *Store {
	t.Helper()
	path := filepath.Join(t.TempDir(), "test.db")
	s, err := Open(path)
	if err != nil {
		t.Fatalf("Open() failed: %v", err)
	}
	t.Cleanup(func() { s.Close() })
	return s
}

func testModel() *ir.ModelSpec {
	return &ir.ModelSpec{
		Name: "Orbiter",
		Resources: []ir.ResourceSpec{
			{Name: "mode", Kind: ir.ResourceRegister, Initial: ir.String("idle")},
			{Name: "images", Kind: ir.ResourceCounter},
			{Name: "battery", Kind: ir.ResourceAccumulator, Initial: ir.Real(50), Rate: 0.5},
		},
		Activities: []ir.ActivitySpec{
			{
				Name:   "Image",
				Params: []ir.ParamSpec{{Name: "exposure", Type: ir.ParamDuration, Default: ir.String("30s")}},
				Steps: []ir.StepSpec{
					{Op: ir.OpSet, Resource: "mode", Value: ir.String("imaging")},
					{Op: ir.OpSpawn, Activity: "Drain", Args: ir.Object{"amount": ir.Real(-2.5)}},
					{Op: ir.OpDelay, Duration: "$exposure"},
					{Op: ir.OpAdd, Resource: "images", Value: ir.Int(1)},
					{Op: ir.OpSet, Resource: "mode", Value: ir.String("idle")},
				},
			},
			{
				Name:   "Drain",
				Params: []ir.ParamSpec{{Name: "amount", Type: ir.ParamReal}},
				Steps: []ir.StepSpec{
					{Op: ir.OpAdd, Resource: "battery", Value: ir.String("$amount")},
				},
			},
			{
				Name: "Safe",
				Steps: []ir.StepSpec{
					{Op: ir.OpSet, Resource: "mode", Value: ir.String("safe")},
				},
			},
		},
	}
}

func testPlan() *ir.PlanSpec {
	return &ir.PlanSpec{
		Name:    "day-1",
		Horizon: "2m",
		Directives: []ir.DirectiveSpec{
			{ID: "img-1", Type: "Image", Start: "10s"},
			{ID: "img-2", Type: "Image", Start: "1m", Args: ir.Object{"exposure": ir.String("15s")}},
		},
	}
}

func quiet() engine.EngineOption {
	return engine.WithLogger(slog.New(slog.NewTextHandler(io.Discard, nil)))
}

// simulateRun runs model and p under runID and collects the results.
func simulateRun(t *testing.T, runID string, model *ir.ModelSpec, p *ir.PlanSpec) *results.Results {
	t.Helper()
	run, _ := plan.Simulate(context.Background(), model, p, engine.WithRunID(runID), quiet())
	if run == nil {
		t.Fatalf("Simulate() returned no run")
	}
	r, err := results.FromRun(run)
	if err != nil {
		t.Fatalf("FromRun() failed: %v", err)
	}
	return r
}
