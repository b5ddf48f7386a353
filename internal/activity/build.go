// Package activity interprets declarative mission models.
//
// Build allocates a cell for every resource a model declares and registers
// one activity type per declared activity. Each activity instance is a task
// with a program counter over the activity's steps: it emits resource events
// until a step yields (delay, call or wait_until), then resumes at the next
// step when the engine steps it again.
package activity

import (
	"errors"
	"fmt"

	"github.com/roach88/strata/internal/compiler"
	"github.com/roach88/strata/internal/ir"
	"github.com/roach88/strata/internal/mission"
	"github.com/roach88/strata/internal/resource"
	"github.com/roach88/strata/internal/task"
)

// LogResource is the name of the activity log every built model exports.
// It maps each activity instance to "running" or "finished".
const LogResource = "activity_log"

// Activity phases recorded in the activity log.
const (
	PhaseRunning  = "running"
	PhaseFinished = "finished"
)

// InvalidModelError reports a model spec that failed validation.
type InvalidModelError struct {
	Model  string
	Errors []compiler.ValidationError
}

func (e *InvalidModelError) Error() string {
	errs := make([]error, len(e.Errors))
	for i, ve := range e.Errors {
		errs[i] = ve
	}
	return fmt.Sprintf("model %q is invalid: %v", e.Model, errors.Join(errs...))
}

// binding is the allocated resource behind a declared name.
type binding struct {
	kind        ir.ResourceKind
	register    resource.Register[ir.Value]
	counter     resource.Counter
	accumulator resource.Accumulator
}

// interp holds everything activity programs need at run time. It is
// immutable once Build returns.
type interp struct {
	spec      *ir.ModelSpec
	resources map[string]binding
	log       resource.Log
}

// Build validates spec and assembles a runnable mission model from it.
func Build(spec *ir.ModelSpec) (*mission.Model, error) {
	if errs := compiler.Validate(spec); len(errs) > 0 {
		return nil, &InvalidModelError{Model: spec.Name, Errors: errs}
	}

	b := mission.NewBuilder()
	in := &interp{
		spec:      spec,
		resources: make(map[string]binding, len(spec.Resources)),
	}

	for _, rs := range spec.Resources {
		bd, err := allocate(b, rs)
		if err != nil {
			return nil, fmt.Errorf("resource %q: %w", rs.Name, err)
		}
		in.resources[rs.Name] = bd
	}

	log, err := resource.NewLog(b.Builder, LogResource)
	if err != nil {
		return nil, fmt.Errorf("activity log: %w", err)
	}
	in.log = log

	for i := range spec.Activities {
		act := &spec.Activities[i]
		if err := b.Activity(mission.ActivityType{
			Name: act.Name,
			Instantiate: func(args ir.Object) (task.Factory, error) {
				return in.instantiate(act, args)
			},
		}); err != nil {
			return nil, err
		}
	}

	for _, d := range spec.Daemons {
		act, _ := spec.Activity(d.Activity)
		f, err := in.instantiate(act, d.Args)
		if err != nil {
			return nil, fmt.Errorf("daemon %q: %w", d.Name, err)
		}
		if err := b.Daemon(d.Name, f); err != nil {
			return nil, err
		}
	}

	return b.Build()
}

func allocate(b *mission.Builder, rs ir.ResourceSpec) (binding, error) {
	bd := binding{kind: rs.Kind}
	var err error
	switch rs.Kind {
	case ir.ResourceRegister:
		bd.register, err = resource.NewRegister(b.Builder, rs.Name, ir.Normalize(rs.Initial))
	case ir.ResourceCounter:
		var n ir.Int
		if rs.Initial != nil {
			n = rs.Initial.(ir.Int)
		}
		bd.counter, err = resource.NewCounter(b.Builder, rs.Name, int64(n))
	case ir.ResourceAccumulator:
		var v float64
		if rs.Initial != nil {
			v, _ = ir.AsFloat(rs.Initial)
		}
		bd.accumulator, err = resource.NewAccumulator(b.Builder, rs.Name, resource.Linear{Value: v, Rate: rs.Rate})
	default:
		err = fmt.Errorf("unknown kind %q", rs.Kind)
	}
	return bd, err
}

// instantiate binds args to act's parameters and returns a factory for its
// program.
func (in *interp) instantiate(act *ir.ActivitySpec, args ir.Object) (task.Factory, error) {
	params, err := bindParams(act, args)
	if err != nil {
		return task.Factory{}, fmt.Errorf("activity %q: %w", act.Name, err)
	}
	return task.Factory{
		Name: act.Name,
		New: func() task.Task {
			return &program{in: in, act: act, params: params}
		},
	}, nil
}

// bindParams checks args against act's parameters and fills in defaults.
func bindParams(act *ir.ActivitySpec, args ir.Object) (ir.Object, error) {
	for _, key := range args.SortedKeys() {
		if _, ok := act.Param(key); !ok {
			return nil, fmt.Errorf("unknown parameter %q", key)
		}
	}
	params := make(ir.Object, len(act.Params))
	for _, p := range act.Params {
		v, ok := args[p.Name]
		if !ok {
			if p.Default == nil {
				return nil, fmt.Errorf("missing required parameter %q", p.Name)
			}
			v = p.Default
		}
		if err := compiler.CheckParamValue(p.Type, v); err != nil {
			return nil, fmt.Errorf("parameter %q: %w", p.Name, err)
		}
		params[p.Name] = v
	}
	return params, nil
}
