package plan

import (
	"context"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/roach88/strata/internal/compiler"
	"github.com/roach88/strata/internal/engine"
	"github.com/roach88/strata/internal/ir"
)

const dayPlan = `
name: day-1
horizon: 2m
directives:
  - id: img-1
    type: Image
    start: 10s
    args:
      exposure: 30s
  - id: img-2
    type: Image
    start: 1m
    args:
      exposure: 20s
      tags: [a, 1, 2.5, true]
`

func model() *ir.ModelSpec {
	return &ir.ModelSpec{
		Name: "Orbiter",
		Resources: []ir.ResourceSpec{
			{Name: "mode", Kind: ir.ResourceRegister, Initial: ir.String("idle")},
			{Name: "images", Kind: ir.ResourceCounter},
		},
		Activities: []ir.ActivitySpec{
			{
				Name: "Image",
				Params: []ir.ParamSpec{
					{Name: "exposure", Type: ir.ParamDuration},
					{Name: "tags", Type: ir.ParamString, Default: ir.String("")},
				},
				Steps: []ir.StepSpec{
					{Op: ir.OpSet, Resource: "mode", Value: ir.String("imaging")},
					{Op: ir.OpDelay, Duration: "$exposure"},
					{Op: ir.OpAdd, Resource: "images", Value: ir.Int(1)},
					{Op: ir.OpSet, Resource: "mode", Value: ir.String("idle")},
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

func quiet() engine.EngineOption {
	return engine.WithLogger(slog.New(slog.NewTextHandler(io.Discard, nil)))
}

func TestParse(t *testing.T) {
	p, err := Parse([]byte(dayPlan))
	require.NoError(t, err)

	assert.Equal(t, "day-1", p.Name)
	assert.Equal(t, "2m", p.Horizon)
	require.Len(t, p.Directives, 2)
	assert.Equal(t, ir.DirectiveSpec{
		ID:    "img-1",
		Type:  "Image",
		Start: "10s",
		Args:  ir.Object{"exposure": ir.String("30s")},
	}, p.Directives[0])
	assert.Equal(t, ir.Array{ir.String("a"), ir.Int(1), ir.Real(2.5), ir.Bool(true)}, p.Directives[1].Args["tags"])
}

func TestParse_RejectsUnknownFields(t *testing.T) {
	_, err := Parse([]byte("name: x\nhorizon: 1h\ndirective: []\n"))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "directive")
}

func TestParse_NoArgs(t *testing.T) {
	p, err := Parse([]byte("name: x\nhorizon: 1h\ndirectives:\n  - {id: a, type: Safe, start: 0s}\n"))
	require.NoError(t, err)
	assert.Nil(t, p.Directives[0].Args)
}

func TestLoad(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "day.yaml")
	require.NoError(t, os.WriteFile(path, []byte(dayPlan), 0o644))

	p, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, "day-1", p.Name)

	_, err = Load(filepath.Join(dir, "missing.yaml"))
	assert.Error(t, err)
}

func TestNormalizeYAML(t *testing.T) {
	got := normalizeYAML(map[any]any{1: []any{map[any]any{"k": "v"}}})
	assert.Equal(t, map[string]any{"1": []any{map[string]any{"k": "v"}}}, got)
}

func TestSimulate(t *testing.T) {
	p, err := Parse([]byte(dayPlan))
	require.NoError(t, err)
	// tags is a string parameter; the list form is for Parse only.
	delete(p.Directives[1].Args, "tags")

	run, err := Simulate(context.Background(), model(), p, engine.WithRunID("plan-test"), quiet())
	require.NoError(t, err)
	require.NoError(t, run.Err)

	assert.Equal(t, 2*time.Minute, run.Horizon)
	assert.Equal(t, 2*time.Minute, run.Engine.Elapsed())
	assert.Equal(t, "plan-test", run.Engine.RunID())

	spans := run.Engine.Spans()
	require.Len(t, spans, 2)
	assert.Equal(t, "img-1", run.Directives[spans[0].ID])
	assert.Equal(t, 10*time.Second, spans[0].Start)
	assert.Equal(t, 40*time.Second, spans[0].End)
	assert.Equal(t, "img-2", run.Directives[spans[1].ID])
	assert.Equal(t, 80*time.Second, spans[1].End)
}

func TestSimulate_InvalidPlan(t *testing.T) {
	p := &ir.PlanSpec{
		Name:    "bad",
		Horizon: "1h",
		Directives: []ir.DirectiveSpec{
			{ID: "x", Type: "Slew", Start: "0s"},
		},
	}

	run, err := Simulate(context.Background(), model(), p, quiet())
	assert.Nil(t, run)
	var invalid *InvalidPlanError
	require.ErrorAs(t, err, &invalid)
	assert.Equal(t, compiler.ErrUnknownDirectiveType, invalid.Errors[0].Code)
	assert.Contains(t, err.Error(), "E123")
}

func TestSimulate_ConflictKeepsRun(t *testing.T) {
	p := &ir.PlanSpec{
		Name:    "clash",
		Horizon: "1m",
		Directives: []ir.DirectiveSpec{
			{ID: "img", Type: "Image", Start: "5s", Args: ir.Object{"exposure": ir.String("10s")}},
			{ID: "safe", Type: "Safe", Start: "5s"},
		},
	}

	run, err := Simulate(context.Background(), model(), p, quiet())
	require.Error(t, err)
	require.NotNil(t, run)
	assert.Equal(t, err, run.Err)
	assert.True(t, engine.IsConflictError(err))
	assert.Equal(t, 5*time.Second, run.Engine.Elapsed())
}
