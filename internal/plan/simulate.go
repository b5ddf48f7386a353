package plan

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/roach88/strata/internal/activity"
	"github.com/roach88/strata/internal/compiler"
	"github.com/roach88/strata/internal/engine"
	"github.com/roach88/strata/internal/ir"
	"github.com/roach88/strata/internal/task"
)

// InvalidPlanError reports a plan that does not fit its model.
type InvalidPlanError struct {
	Plan   string
	Errors []compiler.ValidationError
}

func (e *InvalidPlanError) Error() string {
	errs := make([]error, len(e.Errors))
	for i, ve := range e.Errors {
		errs[i] = ve
	}
	return fmt.Sprintf("plan %q is invalid: %v", e.Plan, errors.Join(errs...))
}

// Run is a finished simulation of a plan.
type Run struct {
	Model   *ir.ModelSpec
	Plan    *ir.PlanSpec
	Engine  *engine.Engine
	Horizon time.Duration

	// Directives maps the task started for each directive to its ID.
	Directives map[task.ID]string

	// Err is the error that halted the engine, if any.
	Err error
}

// Simulate builds model, schedules every directive of p at its start time
// and runs the engine to the plan's horizon.
//
// Setup failures (an invalid model or plan) return a nil Run. A simulation
// that halts returns the Run, with Err set, together with the same error, so
// callers can still report the spans and profiles up to the failure.
func Simulate(ctx context.Context, model *ir.ModelSpec, p *ir.PlanSpec, opts ...engine.EngineOption) (*Run, error) {
	if errs := compiler.ValidatePlan(model, p); len(errs) > 0 {
		return nil, &InvalidPlanError{Plan: p.Name, Errors: errs}
	}
	horizon, err := compiler.ParseDuration(p.Horizon)
	if err != nil {
		return nil, fmt.Errorf("plan %q: %w", p.Name, err)
	}

	m, err := activity.Build(model)
	if err != nil {
		return nil, err
	}
	e := engine.New(m, opts...)

	run := &Run{
		Model:      model,
		Plan:       p,
		Engine:     e,
		Horizon:    horizon,
		Directives: make(map[task.ID]string, len(p.Directives)),
	}

	for _, d := range p.Directives {
		typ, _ := m.ActivityType(d.Type)
		f, err := typ.Instantiate(d.Args)
		if err != nil {
			return nil, fmt.Errorf("directive %q: %w", d.ID, err)
		}
		start, err := compiler.ParseDuration(d.Start)
		if err != nil {
			return nil, fmt.Errorf("directive %q: %w", d.ID, err)
		}
		id, err := e.Defer(start, f)
		if err != nil {
			return nil, fmt.Errorf("directive %q: %w", d.ID, err)
		}
		run.Directives[id] = d.ID
	}

	if err := e.RunFor(ctx, horizon); err != nil {
		run.Err = err
		return run, err
	}
	return run, nil
}
