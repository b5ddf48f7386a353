package compiler

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/roach88/strata/internal/ir"
)

// =============================================================================
// ModelSpec Validation Tests
// =============================================================================

func validModel() *ir.ModelSpec {
	return &ir.ModelSpec{
		Name: "Orbiter",
		Resources: []ir.ResourceSpec{
			{Name: "mode", Kind: ir.ResourceRegister, Initial: ir.String("idle")},
			{Name: "images", Kind: ir.ResourceCounter},
			{Name: "battery", Kind: ir.ResourceAccumulator, Initial: ir.Int(100)},
		},
		Activities: []ir.ActivitySpec{
			{
				Name:   "Image",
				Params: []ir.ParamSpec{{Name: "exposure", Type: ir.ParamDuration}},
				Steps: []ir.StepSpec{
					{Op: ir.OpSet, Resource: "mode", Value: ir.String("imaging")},
					{Op: ir.OpDelay, Duration: "$exposure"},
					{Op: ir.OpAdd, Resource: "images", Value: ir.Int(1)},
				},
			},
		},
	}
}

func codes(errs []ValidationError) []string {
	out := make([]string, 0, len(errs))
	for _, e := range errs {
		out = append(out, e.Code)
	}
	return out
}

func TestValidateModelSpecValid(t *testing.T) {
	errs := Validate(validModel())
	assert.Empty(t, errs, "valid spec should have no errors")
}

func TestValidateModelSpecByValue(t *testing.T) {
	errs := Validate(*validModel())
	assert.Empty(t, errs)
}

func TestValidateUnsupportedType(t *testing.T) {
	errs := Validate("nope")
	require.Len(t, errs, 1)
	assert.Equal(t, ErrUnsupportedIRType, errs[0].Code)
}

func TestValidateModelSpecMissingName(t *testing.T) {
	spec := validModel()
	spec.Name = "  "
	errs := Validate(spec)
	require.Len(t, errs, 1)
	assert.Equal(t, ErrModelNameEmpty, errs[0].Code)
	assert.Equal(t, "name", errs[0].Field)
}

func TestValidateModelSpecNoActivities(t *testing.T) {
	spec := validModel()
	spec.Activities = nil
	assert.Equal(t, []string{ErrModelNoActivities}, codes(Validate(spec)))
}

func TestValidateModelSpecResources(t *testing.T) {
	tests := []struct {
		name string
		res  ir.ResourceSpec
		code string
	}{
		{"unknown kind", ir.ResourceSpec{Name: "x", Kind: "queue"}, ErrInvalidResourceKind},
		{"register without initial", ir.ResourceSpec{Name: "x", Kind: ir.ResourceRegister}, ErrInvalidInitial},
		{"register object", ir.ResourceSpec{Name: "x", Kind: ir.ResourceRegister, Initial: ir.Object{}}, ErrInvalidInitial},
		{"counter real", ir.ResourceSpec{Name: "x", Kind: ir.ResourceCounter, Initial: ir.Real(1.5)}, ErrInvalidInitial},
		{"counter rate", ir.ResourceSpec{Name: "x", Kind: ir.ResourceCounter, Rate: 1}, ErrInvalidInitial},
		{"accumulator string", ir.ResourceSpec{Name: "x", Kind: ir.ResourceAccumulator, Initial: ir.String("full")}, ErrInvalidInitial},
		{"duplicate", ir.ResourceSpec{Name: "mode", Kind: ir.ResourceRegister, Initial: ir.Bool(true)}, ErrDuplicateName},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			spec := validModel()
			spec.Resources = append(spec.Resources, tt.res)
			assert.Equal(t, []string{tt.code}, codes(Validate(spec)))
		})
	}
}

func TestValidateModelSpecSteps(t *testing.T) {
	tests := []struct {
		name string
		step ir.StepSpec
		code string
	}{
		{"unknown op", ir.StepSpec{Op: "jump"}, ErrInvalidStepOp},
		{"unknown resource", ir.StepSpec{Op: ir.OpSet, Resource: "heater", Value: ir.Bool(true)}, ErrUnknownResource},
		{"set counter", ir.StepSpec{Op: ir.OpSet, Resource: "images", Value: ir.Int(3)}, ErrOpKindMismatch},
		{"add register", ir.StepSpec{Op: ir.OpAdd, Resource: "mode", Value: ir.Int(3)}, ErrOpKindMismatch},
		{"rate counter", ir.StepSpec{Op: ir.OpRate, Resource: "images", Value: ir.Int(3)}, ErrOpKindMismatch},
		{"set without value", ir.StepSpec{Op: ir.OpSet, Resource: "mode"}, ErrMissingStepField},
		{"undefined param", ir.StepSpec{Op: ir.OpAdd, Resource: "battery", Value: ir.String("$power")}, ErrUndefinedParam},
		{"delay without duration", ir.StepSpec{Op: ir.OpDelay}, ErrMissingStepField},
		{"bad duration", ir.StepSpec{Op: ir.OpDelay, Duration: "soon"}, ErrInvalidDuration},
		{"negative duration", ir.StepSpec{Op: ir.OpDelay, Duration: "-1s"}, ErrInvalidDuration},
		{"unknown activity", ir.StepSpec{Op: ir.OpSpawn, Activity: "Slew"}, ErrUnknownActivity},
		{"bad call args", ir.StepSpec{Op: ir.OpCall, Activity: "Image", Args: ir.Object{"exposure": ir.Int(5)}}, ErrInvalidArgs},
		{"unknown arg", ir.StepSpec{Op: ir.OpCall, Activity: "Image", Args: ir.Object{"exposure": ir.String("1s"), "gain": ir.Int(2)}}, ErrInvalidArgs},
		{"missing required arg", ir.StepSpec{Op: ir.OpSpawn, Activity: "Image"}, ErrInvalidArgs},
		{"wait without until", ir.StepSpec{Op: ir.OpWaitUntil}, ErrMissingStepField},
		{"wait bad op", ir.StepSpec{Op: ir.OpWaitUntil, Until: &ir.ConditionSpec{Resource: "battery", Op: "~", Value: ir.Int(1)}}, ErrInvalidCondition},
		{"wait numeric vs string", ir.StepSpec{Op: ir.OpWaitUntil, Until: &ir.ConditionSpec{Resource: "battery", Op: ">", Value: ir.String("full")}}, ErrInvalidCondition},
		{"wait register ordering", ir.StepSpec{Op: ir.OpWaitUntil, Until: &ir.ConditionSpec{Resource: "mode", Op: "<", Value: ir.String("idle")}}, ErrInvalidCondition},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			spec := validModel()
			spec.Activities[0].Steps = append(spec.Activities[0].Steps, tt.step)
			assert.Equal(t, []string{tt.code}, codes(Validate(spec)))
		})
	}
}

func TestValidateModelSpecDurationParamRef(t *testing.T) {
	spec := validModel()
	spec.Activities[0].Params = append(spec.Activities[0].Params, ir.ParamSpec{Name: "n", Type: ir.ParamInt, Default: ir.Int(1)})
	spec.Activities[0].Steps = append(spec.Activities[0].Steps, ir.StepSpec{Op: ir.OpDelay, Duration: "$n"})

	errs := Validate(spec)
	require.Len(t, errs, 1)
	assert.Equal(t, ErrInvalidDuration, errs[0].Code)
	assert.Contains(t, errs[0].Message, "not duration")
}

func TestValidateModelSpecParams(t *testing.T) {
	spec := validModel()
	spec.Activities[0].Params = append(spec.Activities[0].Params,
		ir.ParamSpec{Name: "exposure", Type: ir.ParamDuration},
		ir.ParamSpec{Name: "gain", Type: "complex"},
		ir.ParamSpec{Name: "rate", Type: ir.ParamReal, Default: ir.String("fast")},
	)

	assert.Equal(t, []string{ErrDuplicateName, ErrInvalidParam, ErrInvalidParam}, codes(Validate(spec)))
}

func TestValidateModelSpecActivities(t *testing.T) {
	spec := validModel()
	spec.Activities = append(spec.Activities,
		ir.ActivitySpec{Name: "Image", Steps: []ir.StepSpec{{Op: ir.OpDelay, Duration: "1s"}}},
		ir.ActivitySpec{Name: "Nothing"},
		ir.ActivitySpec{Name: "Spin", Repeat: true, Steps: []ir.StepSpec{{Op: ir.OpAdd, Resource: "images", Value: ir.Int(1)}}},
	)

	assert.Equal(t, []string{ErrDuplicateName, ErrEmptyActivityProgram, ErrRepeatWithoutDelay}, codes(Validate(spec)))
}

func TestValidateModelSpecDaemons(t *testing.T) {
	spec := validModel()
	spec.Daemons = []ir.DaemonSpec{
		{Name: "imager", Activity: "Image", Args: ir.Object{"exposure": ir.String("10s")}},
		{Name: "imager", Activity: "Image", Args: ir.Object{"exposure": ir.String("10s")}},
		{Name: "ghost", Activity: "Haunt"},
		{Name: "lazy", Activity: "Image"},
	}

	assert.Equal(t, []string{ErrDuplicateName, ErrUnknownActivity, ErrInvalidArgs}, codes(Validate(spec)))
}

func TestValidateModelSpecCollectsAll(t *testing.T) {
	spec := &ir.ModelSpec{
		Resources: []ir.ResourceSpec{{Name: "x", Kind: "queue"}},
	}
	// Does not fail fast.
	assert.Equal(t, []string{ErrModelNameEmpty, ErrModelNoActivities, ErrInvalidResourceKind}, codes(Validate(spec)))
}

func TestValidationErrorFormat(t *testing.T) {
	err := ValidationError{Field: "name", Message: "required", Code: ErrModelNameEmpty}
	assert.Equal(t, "[E101] name: required", err.Error())

	err.Line = 7
	assert.Equal(t, "[E101] line 7: name: required", err.Error())
}

func TestCheckParamValue(t *testing.T) {
	assert.NoError(t, CheckParamValue(ir.ParamString, ir.String("a")))
	assert.NoError(t, CheckParamValue(ir.ParamInt, ir.Int(1)))
	assert.NoError(t, CheckParamValue(ir.ParamReal, ir.Int(1)))
	assert.NoError(t, CheckParamValue(ir.ParamReal, ir.Real(1.5)))
	assert.NoError(t, CheckParamValue(ir.ParamBool, ir.Bool(false)))
	assert.NoError(t, CheckParamValue(ir.ParamDuration, ir.String("90s")))

	assert.Error(t, CheckParamValue(ir.ParamInt, ir.Real(1.5)))
	assert.Error(t, CheckParamValue(ir.ParamDuration, ir.Int(90)))
	assert.Error(t, CheckParamValue(ir.ParamDuration, ir.String("later")))
	assert.Error(t, CheckParamValue(ir.ParamBool, ir.String("true")))
}

func TestParseDuration(t *testing.T) {
	tests := []struct {
		in   string
		want time.Duration
		ok   bool
	}{
		{"90s", 90 * time.Second, true},
		{"1h30m", 90 * time.Minute, true},
		{"0s", 0, true},
		{"2d", 48 * time.Hour, true},
		{"2xd", 0, false},
		{"d", 0, false},
		{"-5m", 0, false},
		{"", 0, false},
	}
	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			got, err := ParseDuration(tt.in)
			if !tt.ok {
				assert.Error(t, err)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

// =============================================================================
// PlanSpec Validation Tests
// =============================================================================

func validPlan() *ir.PlanSpec {
	return &ir.PlanSpec{
		Name:    "day-1",
		Horizon: "1h",
		Directives: []ir.DirectiveSpec{
			{ID: "img-1", Type: "Image", Start: "10m", Args: ir.Object{"exposure": ir.String("30s")}},
			{ID: "img-2", Type: "Image", Start: "20m", Args: ir.Object{"exposure": ir.String("45s")}},
		},
	}
}

func TestValidatePlanValid(t *testing.T) {
	assert.Empty(t, ValidatePlan(validModel(), validPlan()))
}

func TestValidatePlanHeader(t *testing.T) {
	plan := validPlan()
	plan.Name = ""
	plan.Horizon = "0s"
	assert.Equal(t, []string{ErrPlanNameEmpty, ErrInvalidHorizon}, codes(ValidatePlan(validModel(), plan)))

	plan = validPlan()
	plan.Horizon = ""
	assert.Equal(t, []string{ErrInvalidHorizon}, codes(ValidatePlan(validModel(), plan)))
}

func TestValidatePlanDirectives(t *testing.T) {
	tests := []struct {
		name string
		dir  ir.DirectiveSpec
		code string
	}{
		{"empty id", ir.DirectiveSpec{Type: "Image", Start: "0s", Args: ir.Object{"exposure": ir.String("1s")}}, ErrInvalidDirectiveID},
		{"duplicate id", ir.DirectiveSpec{ID: "img-1", Type: "Image", Start: "0s", Args: ir.Object{"exposure": ir.String("1s")}}, ErrInvalidDirectiveID},
		{"missing start", ir.DirectiveSpec{ID: "x", Type: "Image", Args: ir.Object{"exposure": ir.String("1s")}}, ErrInvalidDirectiveStart},
		{"past horizon", ir.DirectiveSpec{ID: "x", Type: "Image", Start: "2h", Args: ir.Object{"exposure": ir.String("1s")}}, ErrInvalidDirectiveStart},
		{"unknown type", ir.DirectiveSpec{ID: "x", Type: "Slew", Start: "0s"}, ErrUnknownDirectiveType},
		{"bad args", ir.DirectiveSpec{ID: "x", Type: "Image", Start: "0s"}, ErrInvalidArgs},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			plan := validPlan()
			plan.Directives = append(plan.Directives, tt.dir)
			assert.Equal(t, []string{tt.code}, codes(ValidatePlan(validModel(), plan)))
		})
	}
}
