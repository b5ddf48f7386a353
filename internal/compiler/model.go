package compiler

import (
	"fmt"

	"cuelang.org/go/cue"
	"cuelang.org/go/cue/errors"
	"cuelang.org/go/cue/token"

	"github.com/roach88/strata/internal/ir"
)

// CompileModel parses a CUE value into a ModelSpec.
// Uses CUE SDK's Go API directly (not CLI subprocess).
//
// The CUE value should be the model struct itself, e.g.:
//
//	ctx := cuecontext.New()
//	v := ctx.CompileString(`model: Orbiter: { ... }`)
//	spec, err := CompileModel(v.LookupPath(cue.ParsePath("model.Orbiter")))
//
// Struct fields are read in declaration order, so resources, activities and
// daemons keep the order they were written in.
func CompileModel(v cue.Value) (*ir.ModelSpec, error) {
	if err := v.Err(); err != nil {
		return nil, formatCUEError(err)
	}

	spec := &ir.ModelSpec{}

	// Model name from the struct label, overridden by an explicit name field.
	labels := v.Path().Selectors()
	if len(labels) > 0 {
		spec.Name = labels[len(labels)-1].String()
	}
	if nameVal := v.LookupPath(cue.ParsePath("name")); nameVal.Exists() {
		name, err := nameVal.String()
		if err != nil {
			return nil, formatCUEError(err)
		}
		spec.Name = name
	}

	var err error
	spec.Resources, err = parseResources(v)
	if err != nil {
		return nil, err
	}

	spec.Activities, err = parseActivities(v)
	if err != nil {
		return nil, err
	}
	if len(spec.Activities) == 0 {
		return nil, &CompileError{
			Field:   "activities",
			Message: "at least one activity is required",
			Pos:     v.Pos(),
		}
	}

	spec.Daemons, err = parseDaemons(v)
	if err != nil {
		return nil, err
	}

	return spec, nil
}

// parseResources extracts resource declarations.
func parseResources(v cue.Value) ([]ir.ResourceSpec, error) {
	var resources []ir.ResourceSpec

	resVal := v.LookupPath(cue.ParsePath("resources"))
	if !resVal.Exists() {
		return resources, nil // a model may only have activities
	}

	iter, err := resVal.Fields()
	if err != nil {
		return nil, formatCUEError(err)
	}

	for iter.Next() {
		name := iter.Selector().Unquoted()
		rv := iter.Value()

		kind, err := requiredString(rv, "kind", fmt.Sprintf("resources.%s.kind", name))
		if err != nil {
			return nil, err
		}
		res := ir.ResourceSpec{Name: name, Kind: ir.ResourceKind(kind)}

		if initVal := rv.LookupPath(cue.ParsePath("initial")); initVal.Exists() {
			res.Initial, err = decodeValue(initVal)
			if err != nil {
				return nil, err
			}
		}
		if rateVal := rv.LookupPath(cue.ParsePath("rate")); rateVal.Exists() {
			res.Rate, err = rateVal.Float64()
			if err != nil {
				return nil, formatCUEError(err)
			}
		}

		resources = append(resources, res)
	}

	return resources, nil
}

// parseActivities extracts activity type declarations.
func parseActivities(v cue.Value) ([]ir.ActivitySpec, error) {
	var activities []ir.ActivitySpec

	actVal := v.LookupPath(cue.ParsePath("activities"))
	if !actVal.Exists() {
		return activities, nil
	}

	iter, err := actVal.Fields()
	if err != nil {
		return nil, formatCUEError(err)
	}

	for iter.Next() {
		name := iter.Selector().Unquoted()
		av := iter.Value()
		act := ir.ActivitySpec{Name: name}

		act.Params, err = parseParams(av, name)
		if err != nil {
			return nil, err
		}

		if repVal := av.LookupPath(cue.ParsePath("repeat")); repVal.Exists() {
			act.Repeat, err = repVal.Bool()
			if err != nil {
				return nil, formatCUEError(err)
			}
		}

		stepsVal := av.LookupPath(cue.ParsePath("steps"))
		if !stepsVal.Exists() {
			return nil, &CompileError{
				Field:   fmt.Sprintf("activities.%s.steps", name),
				Message: "activity steps are required",
				Pos:     av.Pos(),
			}
		}
		stepIter, err := stepsVal.List()
		if err != nil {
			return nil, formatCUEError(err)
		}
		for i := 0; stepIter.Next(); i++ {
			step, err := parseStep(stepIter.Value(), fmt.Sprintf("activities.%s.steps[%d]", name, i))
			if err != nil {
				return nil, err
			}
			act.Steps = append(act.Steps, step)
		}

		activities = append(activities, act)
	}

	return activities, nil
}

// parseParams extracts the parameters of one activity.
func parseParams(av cue.Value, activity string) ([]ir.ParamSpec, error) {
	var params []ir.ParamSpec

	paramsVal := av.LookupPath(cue.ParsePath("params"))
	if !paramsVal.Exists() {
		return params, nil
	}

	iter, err := paramsVal.Fields()
	if err != nil {
		return nil, formatCUEError(err)
	}
	for iter.Next() {
		name := iter.Selector().Unquoted()
		pv := iter.Value()

		typ, err := requiredString(pv, "type", fmt.Sprintf("activities.%s.params.%s.type", activity, name))
		if err != nil {
			return nil, err
		}
		param := ir.ParamSpec{Name: name, Type: ir.ParamType(typ)}
		if defVal := pv.LookupPath(cue.ParsePath("default")); defVal.Exists() {
			param.Default, err = decodeValue(defVal)
			if err != nil {
				return nil, err
			}
		}
		params = append(params, param)
	}
	return params, nil
}

// parseStep extracts one program instruction.
func parseStep(sv cue.Value, field string) (ir.StepSpec, error) {
	var step ir.StepSpec

	op, err := requiredString(sv, "op", field+".op")
	if err != nil {
		return step, err
	}
	step.Op = ir.StepOp(op)

	if step.Resource, err = optionalString(sv, "resource"); err != nil {
		return step, err
	}
	if step.Duration, err = optionalString(sv, "duration"); err != nil {
		return step, err
	}
	if step.Activity, err = optionalString(sv, "activity"); err != nil {
		return step, err
	}

	if valVal := sv.LookupPath(cue.ParsePath("value")); valVal.Exists() {
		step.Value, err = decodeValue(valVal)
		if err != nil {
			return step, err
		}
	}

	if argsVal := sv.LookupPath(cue.ParsePath("args")); argsVal.Exists() {
		step.Args, err = decodeObject(argsVal, field+".args")
		if err != nil {
			return step, err
		}
	}

	if untilVal := sv.LookupPath(cue.ParsePath("until")); untilVal.Exists() {
		cond := &ir.ConditionSpec{}
		if cond.Resource, err = requiredString(untilVal, "resource", field+".until.resource"); err != nil {
			return step, err
		}
		if cond.Op, err = requiredString(untilVal, "op", field+".until.op"); err != nil {
			return step, err
		}
		valVal := untilVal.LookupPath(cue.ParsePath("value"))
		if !valVal.Exists() {
			return step, &CompileError{
				Field:   field + ".until.value",
				Message: "condition value is required",
				Pos:     untilVal.Pos(),
			}
		}
		if cond.Value, err = decodeValue(valVal); err != nil {
			return step, err
		}
		step.Until = cond
	}

	return step, nil
}

// parseDaemons extracts daemon declarations.
func parseDaemons(v cue.Value) ([]ir.DaemonSpec, error) {
	var daemons []ir.DaemonSpec

	daemonsVal := v.LookupPath(cue.ParsePath("daemons"))
	if !daemonsVal.Exists() {
		return daemons, nil
	}

	iter, err := daemonsVal.Fields()
	if err != nil {
		return nil, formatCUEError(err)
	}
	for iter.Next() {
		name := iter.Selector().Unquoted()
		dv := iter.Value()

		activity, err := requiredString(dv, "activity", fmt.Sprintf("daemons.%s.activity", name))
		if err != nil {
			return nil, err
		}
		d := ir.DaemonSpec{Name: name, Activity: activity}
		if argsVal := dv.LookupPath(cue.ParsePath("args")); argsVal.Exists() {
			d.Args, err = decodeObject(argsVal, fmt.Sprintf("daemons.%s.args", name))
			if err != nil {
				return nil, err
			}
		}
		daemons = append(daemons, d)
	}
	return daemons, nil
}

func requiredString(v cue.Value, key, field string) (string, error) {
	sv := v.LookupPath(cue.ParsePath(key))
	if !sv.Exists() {
		return "", &CompileError{
			Field:   field,
			Message: key + " is required",
			Pos:     v.Pos(),
		}
	}
	s, err := sv.String()
	if err != nil {
		return "", formatCUEError(err)
	}
	return s, nil
}

func optionalString(v cue.Value, key string) (string, error) {
	sv := v.LookupPath(cue.ParsePath(key))
	if !sv.Exists() {
		return "", nil
	}
	s, err := sv.String()
	if err != nil {
		return "", formatCUEError(err)
	}
	return s, nil
}

// decodeValue converts a concrete CUE value to an IR value.
func decodeValue(v cue.Value) (ir.Value, error) {
	switch v.IncompleteKind() {
	case cue.NullKind:
		return ir.Null{}, nil
	case cue.BoolKind:
		b, err := v.Bool()
		if err != nil {
			return nil, formatCUEError(err)
		}
		return ir.Bool(b), nil
	case cue.StringKind:
		s, err := v.String()
		if err != nil {
			return nil, formatCUEError(err)
		}
		return ir.String(s), nil
	case cue.IntKind:
		n, err := v.Int64()
		if err != nil {
			return nil, formatCUEError(err)
		}
		return ir.Int(n), nil
	case cue.FloatKind, cue.NumberKind:
		f, err := v.Float64()
		if err != nil {
			return nil, formatCUEError(err)
		}
		return ir.Real(f), nil
	case cue.ListKind:
		iter, err := v.List()
		if err != nil {
			return nil, formatCUEError(err)
		}
		arr := ir.Array{}
		for iter.Next() {
			elem, err := decodeValue(iter.Value())
			if err != nil {
				return nil, err
			}
			arr = append(arr, elem)
		}
		return arr, nil
	case cue.StructKind:
		return decodeObject(v, "value")
	default:
		return nil, &CompileError{
			Field:   "value",
			Message: fmt.Sprintf("unsupported value kind: %v", v.IncompleteKind()),
			Pos:     v.Pos(),
		}
	}
}

func decodeObject(v cue.Value, field string) (ir.Object, error) {
	iter, err := v.Fields()
	if err != nil {
		return nil, &CompileError{
			Field:   field,
			Message: "must be a struct",
			Pos:     v.Pos(),
		}
	}
	obj := ir.Object{}
	for iter.Next() {
		elem, err := decodeValue(iter.Value())
		if err != nil {
			return nil, err
		}
		obj[iter.Selector().Unquoted()] = elem
	}
	return obj, nil
}

// CompileError represents a compilation error with source position.
type CompileError struct {
	Field   string
	Message string
	Pos     token.Pos
}

func (e *CompileError) Error() string {
	if e.Pos.IsValid() {
		return fmt.Sprintf("%s:%d:%d: %s: %s",
			e.Pos.Filename(), e.Pos.Line(), e.Pos.Column(),
			e.Field, e.Message)
	}
	return fmt.Sprintf("%s: %s", e.Field, e.Message)
}

// formatCUEError extracts position info from CUE errors.
func formatCUEError(err error) error {
	if err == nil {
		return nil
	}

	// CUE errors may contain multiple errors
	errs := errors.Errors(err)
	if len(errs) == 0 {
		return err
	}

	// Return first error with position info
	firstErr := errs[0]
	positions := errors.Positions(firstErr)
	if len(positions) > 0 {
		return &CompileError{
			Field:   "cue",
			Message: firstErr.Error(),
			Pos:     positions[0],
		}
	}

	return err
}
