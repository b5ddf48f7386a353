package activity

import (
	"errors"
	"fmt"
	"time"

	"github.com/roach88/strata/internal/compiler"
	"github.com/roach88/strata/internal/ir"
	"github.com/roach88/strata/internal/resource"
	"github.com/roach88/strata/internal/task"
	"github.com/roach88/strata/internal/timeline"
)

// ErrNoYield is returned when a repeating activity runs through its whole
// program without yielding.
var ErrNoYield = errors.New("repeating activity never yields")

// program is one running activity instance.
type program struct {
	in     *interp
	act    *ir.ActivitySpec
	params ir.Object

	pc      int
	started bool
}

// Step runs steps until one yields or the program ends.
func (p *program) Step(s task.Scheduler) (task.Status, error) {
	instance := p.act.Name + "/" + s.Self().String()
	if !p.started {
		p.started = true
		if err := p.in.log.Record(s, instance, PhaseRunning); err != nil {
			return nil, err
		}
	}

	ran := 0
	for {
		if p.pc == len(p.act.Steps) {
			if !p.act.Repeat {
				if err := p.in.log.Record(s, instance, PhaseFinished); err != nil {
					return nil, err
				}
				return task.Completed{}, nil
			}
			if ran >= len(p.act.Steps) {
				return nil, fmt.Errorf("%s: %w", p.act.Name, ErrNoYield)
			}
			p.pc = 0
		}

		step := &p.act.Steps[p.pc]
		p.pc++
		ran++

		status, err := p.exec(s, step)
		if err != nil {
			return nil, fmt.Errorf("%s step %d (%s): %w", p.act.Name, p.pc-1, step.Op, err)
		}
		if status != nil {
			return status, nil
		}
	}
}

// exec runs one step. A nil status means the program continues at the same
// instant.
func (p *program) exec(s task.Scheduler, step *ir.StepSpec) (task.Status, error) {
	switch step.Op {
	case ir.OpSet:
		bd := p.in.resources[step.Resource]
		v := ir.Normalize(p.resolve(step.Value))
		if !scalar(v) {
			return nil, fmt.Errorf("register %q holds scalars, got %s", step.Resource, ir.Format(v))
		}
		return nil, bd.register.Set(s, v)

	case ir.OpAdd:
		bd := p.in.resources[step.Resource]
		v := p.resolve(step.Value)
		if bd.kind == ir.ResourceCounter {
			n, ok := v.(ir.Int)
			if !ok {
				return nil, fmt.Errorf("counter %q adds integers, got %s", step.Resource, ir.Format(v))
			}
			return nil, bd.counter.Add(s, int64(n))
		}
		f, ok := ir.AsFloat(v)
		if !ok {
			return nil, fmt.Errorf("accumulator %q adds numbers, got %s", step.Resource, ir.Format(v))
		}
		return nil, bd.accumulator.Add(s, f)

	case ir.OpRate:
		bd := p.in.resources[step.Resource]
		v := p.resolve(step.Value)
		f, ok := ir.AsFloat(v)
		if !ok {
			return nil, fmt.Errorf("accumulator %q rate must be a number, got %s", step.Resource, ir.Format(v))
		}
		return nil, bd.accumulator.AddRate(s, f)

	case ir.OpDelay:
		d, err := p.duration(step.Duration)
		if err != nil {
			return nil, err
		}
		return task.Delayed{Duration: d}, nil

	case ir.OpSpawn, ir.OpCall:
		f, err := p.child(step)
		if err != nil {
			return nil, err
		}
		id := s.Spawn(f)
		if step.Op == ir.OpCall {
			return task.AwaitingTask{Task: id}, nil
		}
		return nil, nil

	case ir.OpWaitUntil:
		cond, err := p.condition(step.Until)
		if err != nil {
			return nil, err
		}
		return task.AwaitingCondition{Condition: cond}, nil

	default:
		return nil, fmt.Errorf("unknown op %q", step.Op)
	}
}

// resolve substitutes a "$name" reference with the bound parameter.
func (p *program) resolve(v ir.Value) ir.Value {
	if name, ok := ir.ParamRef(v); ok {
		if bound, ok := p.params[name]; ok {
			return bound
		}
	}
	return v
}

func (p *program) duration(s string) (time.Duration, error) {
	if name, ok := ir.ParamRefString(s); ok {
		v, ok := p.params[name].(ir.String)
		if !ok {
			return 0, fmt.Errorf("parameter %q is not a duration", name)
		}
		s = string(v)
	}
	return compiler.ParseDuration(s)
}

// child instantiates the activity a spawn or call step starts, with the
// caller's parameter references resolved.
func (p *program) child(step *ir.StepSpec) (task.Factory, error) {
	act, ok := p.in.spec.Activity(step.Activity)
	if !ok {
		return task.Factory{}, fmt.Errorf("unknown activity %q", step.Activity)
	}
	args := make(ir.Object, len(step.Args))
	for k, v := range step.Args {
		args[k] = p.resolve(v)
	}
	return p.in.instantiate(act, args)
}

// condition builds the task condition for a wait_until step.
func (p *program) condition(c *ir.ConditionSpec) (task.Condition, error) {
	bd, ok := p.in.resources[c.Resource]
	if !ok {
		return nil, fmt.Errorf("unknown resource %q", c.Resource)
	}
	op, err := resource.ParseOp(c.Op)
	if err != nil {
		return nil, err
	}
	v := p.resolve(c.Value)

	switch bd.kind {
	case ir.ResourceRegister:
		v = ir.Normalize(v)
		if !scalar(v) {
			return nil, fmt.Errorf("register %q compares against scalars, got %s", c.Resource, ir.Format(v))
		}
		switch op {
		case resource.OpEq:
			return bd.register.Is(v), nil
		case resource.OpNe:
			return task.When(func(view timeline.View) (bool, error) {
				got, err := bd.register.Get(view)
				return err == nil && got != v, err
			}), nil
		default:
			return nil, fmt.Errorf("register %q supports == and != only", c.Resource)
		}

	case ir.ResourceCounter:
		n, ok := v.(ir.Int)
		if !ok {
			return nil, fmt.Errorf("counter %q compares against integers, got %s", c.Resource, ir.Format(v))
		}
		return bd.counter.Compare(op, int64(n)), nil

	default:
		f, ok := ir.AsFloat(v)
		if !ok {
			return nil, fmt.Errorf("accumulator %q compares against numbers, got %s", c.Resource, ir.Format(v))
		}
		return bd.accumulator.Compare(op, f), nil
	}
}

// scalar reports whether v can be held by a register. Registers compare
// values with ==, which arrays and objects do not support. Numbers must be
// normalized first so 1 and 1.0 compare equal.
func scalar(v ir.Value) bool {
	switch v.(type) {
	case ir.String, ir.Int, ir.Real, ir.Bool:
		return true
	default:
		return false
	}
}
