package compiler

import (
	"fmt"
	"math"
	"strconv"
	"strings"
	"time"

	"github.com/roach88/strata/internal/ir"
)

// Validation error codes (E100-E199)
const (
	// General validation errors (E100)
	ErrUnsupportedIRType = "E100" // unsupported IR type for validation

	// ModelSpec errors (E101-E119)
	ErrModelNameEmpty       = "E101" // model name is required
	ErrModelNoActivities    = "E102" // at least one activity required
	ErrInvalidResourceKind  = "E103" // unknown resource kind
	ErrInvalidInitial       = "E104" // initial value does not fit the kind
	ErrDuplicateName        = "E105" // duplicate resource/activity/param/daemon name
	ErrInvalidParam         = "E106" // unknown param type or mistyped default
	ErrInvalidStepOp        = "E107" // unknown step op
	ErrUnknownResource      = "E108" // step or condition names no resource
	ErrOpKindMismatch       = "E109" // op cannot be applied to the resource kind
	ErrUnknownActivity      = "E110" // spawn/call/daemon names no activity
	ErrUndefinedParam       = "E111" // "$name" refers to no parameter
	ErrInvalidDuration      = "E112" // unparsable or negative duration
	ErrInvalidCondition     = "E113" // bad wait_until condition
	ErrMissingStepField     = "E114" // required step field missing
	ErrInvalidArgs          = "E115" // arguments do not match the callee's params
	ErrRepeatWithoutDelay   = "E116" // repeating activity never yields time
	ErrEmptyActivityProgram = "E117" // activity has no steps

	// PlanSpec errors (E120-E129)
	ErrPlanNameEmpty         = "E120" // plan name is required
	ErrInvalidHorizon        = "E121" // horizon missing or invalid
	ErrInvalidDirectiveID    = "E122" // empty or duplicate directive id
	ErrUnknownDirectiveType  = "E123" // directive names no activity
	ErrInvalidDirectiveStart = "E124" // start missing, invalid or past the horizon
)

// ValidationError represents a schema validation error.
type ValidationError struct {
	Field   string `json:"field"`
	Message string `json:"message"`
	Code    string `json:"code"`
	Line    int    `json:"line,omitempty"`
}

// Error implements the error interface.
func (e ValidationError) Error() string {
	if e.Line > 0 {
		return fmt.Sprintf("[%s] line %d: %s: %s", e.Code, e.Line, e.Field, e.Message)
	}
	return fmt.Sprintf("[%s] %s: %s", e.Code, e.Field, e.Message)
}

// Validate validates compiled IR against schema rules.
// Returns all errors found (does not fail-fast).
// Supports ModelSpec; plans are checked against a model with ValidatePlan.
func Validate(v any) []ValidationError {
	switch spec := v.(type) {
	case *ir.ModelSpec:
		return validateModelSpec(spec)
	case ir.ModelSpec:
		return validateModelSpec(&spec)
	default:
		return []ValidationError{{
			Field:   "type",
			Message: fmt.Sprintf("unsupported IR type: %T", v),
			Code:    ErrUnsupportedIRType,
		}}
	}
}

// validateModelSpec validates a model specification.
func validateModelSpec(spec *ir.ModelSpec) []ValidationError {
	var errs []ValidationError
	add := func(field, code, format string, args ...any) {
		errs = append(errs, ValidationError{
			Field:   field,
			Message: fmt.Sprintf(format, args...),
			Code:    code,
		})
	}

	// E101: name is required
	if strings.TrimSpace(spec.Name) == "" {
		add("name", ErrModelNameEmpty, "model name is required and must be non-empty")
	}

	// E102: at least one activity required
	if len(spec.Activities) == 0 {
		add("activities", ErrModelNoActivities, "at least one activity is required")
	}

	resourceNames := make(map[string]bool)
	for i, res := range spec.Resources {
		field := fmt.Sprintf("resources[%d]", i)
		if resourceNames[res.Name] {
			add(field+".name", ErrDuplicateName, "duplicate resource name: %q", res.Name)
		}
		resourceNames[res.Name] = true

		if !ir.ValidResourceKinds[res.Kind] {
			add(field+".kind", ErrInvalidResourceKind,
				"invalid resource kind %q, must be \"register\", \"counter\", or \"accumulator\"", res.Kind)
			continue
		}
		if msg := checkInitial(res); msg != "" {
			add(field+".initial", ErrInvalidInitial, "resource %q: %s", res.Name, msg)
		}
	}

	activityNames := make(map[string]bool)
	for i, act := range spec.Activities {
		if activityNames[act.Name] {
			add(fmt.Sprintf("activities[%d].name", i), ErrDuplicateName, "duplicate activity name: %q", act.Name)
		}
		activityNames[act.Name] = true
	}

	for i := range spec.Activities {
		errs = append(errs, validateActivity(spec, &spec.Activities[i], fmt.Sprintf("activities[%d]", i))...)
	}

	daemonNames := make(map[string]bool)
	for i, d := range spec.Daemons {
		field := fmt.Sprintf("daemons[%d]", i)
		if daemonNames[d.Name] {
			add(field+".name", ErrDuplicateName, "duplicate daemon name: %q", d.Name)
		}
		daemonNames[d.Name] = true

		callee, ok := spec.Activity(d.Activity)
		if !ok {
			add(field+".activity", ErrUnknownActivity, "daemon %q runs undefined activity %q", d.Name, d.Activity)
			continue
		}
		errs = append(errs, checkArgs(callee, d.Args, nil, field+".args")...)
	}

	return errs
}

// checkInitial returns a message if res.Initial does not fit res.Kind.
func checkInitial(res ir.ResourceSpec) string {
	switch res.Kind {
	case ir.ResourceRegister:
		switch res.Initial.(type) {
		case ir.String, ir.Int, ir.Real, ir.Bool:
			return ""
		case nil:
			return "register requires an initial value"
		default:
			return fmt.Sprintf("register value must be a scalar, got %s", ir.Format(res.Initial))
		}
	case ir.ResourceCounter:
		if res.Rate != 0 {
			return "only accumulators have a rate"
		}
		switch res.Initial.(type) {
		case nil, ir.Int:
			return ""
		default:
			return fmt.Sprintf("counter value must be an integer, got %s", ir.Format(res.Initial))
		}
	case ir.ResourceAccumulator:
		if res.Initial == nil {
			return ""
		}
		if _, ok := ir.AsFloat(res.Initial); !ok {
			return fmt.Sprintf("accumulator value must be a number, got %s", ir.Format(res.Initial))
		}
	}
	return ""
}

// validateActivity validates one activity's params and program.
func validateActivity(spec *ir.ModelSpec, act *ir.ActivitySpec, field string) []ValidationError {
	var errs []ValidationError
	add := func(f, code, format string, args ...any) {
		errs = append(errs, ValidationError{
			Field:   f,
			Message: fmt.Sprintf(format, args...),
			Code:    code,
		})
	}

	paramNames := make(map[string]bool)
	for j, p := range act.Params {
		pf := fmt.Sprintf("%s.params[%d]", field, j)
		if paramNames[p.Name] {
			add(pf+".name", ErrDuplicateName, "duplicate parameter name: %q", p.Name)
		}
		paramNames[p.Name] = true

		if !ir.ValidParamTypes[p.Type] {
			add(pf+".type", ErrInvalidParam, "invalid parameter type %q for %q", p.Type, p.Name)
			continue
		}
		if p.Default != nil {
			if err := CheckParamValue(p.Type, p.Default); err != nil {
				add(pf+".default", ErrInvalidParam, "parameter %q: %v", p.Name, err)
			}
		}
	}

	if len(act.Steps) == 0 {
		add(field+".steps", ErrEmptyActivityProgram, "activity %q has no steps", act.Name)
	}

	yields := false
	for k, step := range act.Steps {
		sf := fmt.Sprintf("%s.steps[%d]", field, k)
		if !ir.ValidStepOps[step.Op] {
			add(sf+".op", ErrInvalidStepOp, "invalid step op %q", step.Op)
			continue
		}

		switch step.Op {
		case ir.OpSet, ir.OpAdd, ir.OpRate:
			res, ok := lookupResource(spec, step.Resource)
			if !ok {
				add(sf+".resource", ErrUnknownResource, "undefined resource %q", step.Resource)
				break
			}
			if !opFitsKind(step.Op, res.Kind) {
				add(sf+".op", ErrOpKindMismatch, "cannot %s %s resource %q", step.Op, res.Kind, res.Name)
			}
			if step.Value == nil {
				add(sf+".value", ErrMissingStepField, "%s requires a value", step.Op)
				break
			}
			errs = append(errs, checkRef(act, step.Value, sf+".value")...)

		case ir.OpDelay:
			yields = true
			if step.Duration == "" {
				add(sf+".duration", ErrMissingStepField, "delay requires a duration")
				break
			}
			errs = append(errs, checkDuration(act, step.Duration, sf+".duration")...)

		case ir.OpSpawn, ir.OpCall:
			if step.Op == ir.OpCall {
				yields = true
			}
			callee, ok := spec.Activity(step.Activity)
			if !ok {
				add(sf+".activity", ErrUnknownActivity, "undefined activity %q", step.Activity)
				break
			}
			errs = append(errs, checkArgs(callee, step.Args, act, sf+".args")...)

		case ir.OpWaitUntil:
			yields = true
			if step.Until == nil {
				add(sf+".until", ErrMissingStepField, "wait_until requires a condition")
				break
			}
			res, ok := lookupResource(spec, step.Until.Resource)
			if !ok {
				add(sf+".until.resource", ErrUnknownResource, "undefined resource %q", step.Until.Resource)
				break
			}
			if !ir.ValidConditionOps[step.Until.Op] {
				add(sf+".until.op", ErrInvalidCondition, "invalid comparison operator %q", step.Until.Op)
			}
			if res.Kind != ir.ResourceRegister && !isNumericOrRef(step.Until.Value) {
				add(sf+".until.value", ErrInvalidCondition, "%s resource %q compares against numbers only", res.Kind, res.Name)
			}
			if res.Kind == ir.ResourceRegister && step.Until.Op != "==" && step.Until.Op != "!=" {
				add(sf+".until.op", ErrInvalidCondition, "register %q supports == and != only", res.Name)
			}
			errs = append(errs, checkRef(act, step.Until.Value, sf+".until.value")...)
		}
	}

	// A repeating program with no delay, call or wait would spin at one instant.
	if act.Repeat && !yields {
		add(field+".repeat", ErrRepeatWithoutDelay, "repeating activity %q never advances time", act.Name)
	}

	return errs
}

func lookupResource(spec *ir.ModelSpec, name string) (*ir.ResourceSpec, bool) {
	if name == "" {
		return nil, false
	}
	return spec.Resource(name)
}

// opFitsKind reports whether op applies to a resource of kind.
func opFitsKind(op ir.StepOp, kind ir.ResourceKind) bool {
	switch op {
	case ir.OpSet:
		return kind == ir.ResourceRegister
	case ir.OpAdd:
		return kind == ir.ResourceCounter || kind == ir.ResourceAccumulator
	case ir.OpRate:
		return kind == ir.ResourceAccumulator
	default:
		return false
	}
}

func isNumericOrRef(v ir.Value) bool {
	if _, ok := ir.AsFloat(v); ok {
		return true
	}
	_, ok := ir.ParamRef(v)
	return ok
}

// checkRef reports a "$name" value that names no parameter of act.
func checkRef(act *ir.ActivitySpec, v ir.Value, field string) []ValidationError {
	name, ok := ir.ParamRef(v)
	if !ok {
		return nil
	}
	if _, ok := act.Param(name); ok {
		return nil
	}
	return []ValidationError{{
		Field:   field,
		Message: fmt.Sprintf("undefined parameter %q in activity %q", name, act.Name),
		Code:    ErrUndefinedParam,
	}}
}

// checkDuration validates a literal duration or a reference to a duration
// parameter.
func checkDuration(act *ir.ActivitySpec, s, field string) []ValidationError {
	if name, ok := ir.ParamRefString(s); ok {
		p, ok := act.Param(name)
		if !ok {
			return []ValidationError{{
				Field:   field,
				Message: fmt.Sprintf("undefined parameter %q in activity %q", name, act.Name),
				Code:    ErrUndefinedParam,
			}}
		}
		if p.Type != ir.ParamDuration {
			return []ValidationError{{
				Field:   field,
				Message: fmt.Sprintf("parameter %q is %s, not duration", name, p.Type),
				Code:    ErrInvalidDuration,
			}}
		}
		return nil
	}
	if _, err := ParseDuration(s); err != nil {
		return []ValidationError{{
			Field:   field,
			Message: err.Error(),
			Code:    ErrInvalidDuration,
		}}
	}
	return nil
}

// checkArgs validates arguments passed to callee. caller is nil for daemons
// and directives, which cannot use parameter references.
func checkArgs(callee *ir.ActivitySpec, args ir.Object, caller *ir.ActivitySpec, field string) []ValidationError {
	var errs []ValidationError
	for _, key := range args.SortedKeys() {
		v := args[key]
		p, ok := callee.Param(key)
		if !ok {
			errs = append(errs, ValidationError{
				Field:   field + "." + key,
				Message: fmt.Sprintf("activity %q has no parameter %q", callee.Name, key),
				Code:    ErrInvalidArgs,
			})
			continue
		}
		if _, isRef := ir.ParamRef(v); isRef && caller != nil {
			errs = append(errs, checkRef(caller, v, field+"."+key)...)
			continue
		}
		if err := CheckParamValue(p.Type, v); err != nil {
			errs = append(errs, ValidationError{
				Field:   field + "." + key,
				Message: fmt.Sprintf("parameter %q: %v", key, err),
				Code:    ErrInvalidArgs,
			})
		}
	}
	for _, p := range callee.Params {
		if p.Default != nil {
			continue
		}
		if _, ok := args[p.Name]; !ok {
			errs = append(errs, ValidationError{
				Field:   field,
				Message: fmt.Sprintf("missing required parameter %q of activity %q", p.Name, callee.Name),
				Code:    ErrInvalidArgs,
			})
		}
	}
	return errs
}

// CheckParamValue reports whether v is a valid value for a parameter of
// type t.
func CheckParamValue(t ir.ParamType, v ir.Value) error {
	switch t {
	case ir.ParamString:
		if _, ok := v.(ir.String); ok {
			return nil
		}
	case ir.ParamInt:
		if _, ok := v.(ir.Int); ok {
			return nil
		}
	case ir.ParamReal:
		if _, ok := ir.AsFloat(v); ok {
			return nil
		}
	case ir.ParamBool:
		if _, ok := v.(ir.Bool); ok {
			return nil
		}
	case ir.ParamDuration:
		s, ok := v.(ir.String)
		if !ok {
			break
		}
		_, err := ParseDuration(string(s))
		return err
	}
	return fmt.Errorf("expected %s, got %s", t, ir.Format(v))
}

// ParseDuration parses a non-negative Go duration string ("90s", "1h30m").
// Days are accepted as a "d" suffix on a whole number ("2d").
func ParseDuration(s string) (time.Duration, error) {
	if n, ok := strings.CutSuffix(s, "d"); ok {
		days, err := strconv.ParseInt(n, 10, 64)
		if err == nil && days >= 0 && days <= math.MaxInt64/int64(24*time.Hour) {
			return time.Duration(days) * 24 * time.Hour, nil
		}
	}
	d, err := time.ParseDuration(s)
	if err != nil {
		return 0, fmt.Errorf("invalid duration %q", s)
	}
	if d < 0 {
		return 0, fmt.Errorf("negative duration %q", s)
	}
	return d, nil
}
