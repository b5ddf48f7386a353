package ir

// ResourceKind selects the effect algebra of a resource.
type ResourceKind string

// Resource kinds.
const (
	// ResourceRegister holds a discrete value. Concurrent writes of different
	// values conflict.
	ResourceRegister ResourceKind = "register"

	// ResourceCounter holds an integer. Concurrent increments add.
	ResourceCounter ResourceKind = "counter"

	// ResourceAccumulator holds a real value that changes linearly at a rate
	// between events. Concurrent deltas add.
	ResourceAccumulator ResourceKind = "accumulator"
)

// ValidResourceKinds defines allowed resource kinds.
var ValidResourceKinds = map[ResourceKind]bool{
	ResourceRegister:    true,
	ResourceCounter:     true,
	ResourceAccumulator: true,
}

// ModelSpec is a compiled mission model.
type ModelSpec struct {
	Name       string         `json:"name"`
	Resources  []ResourceSpec `json:"resources"`
	Activities []ActivitySpec `json:"activities"`
	Daemons    []DaemonSpec   `json:"daemons,omitempty"`
}

// Activity returns the activity type named name.
func (m *ModelSpec) Activity(name string) (*ActivitySpec, bool) {
	for i := range m.Activities {
		if m.Activities[i].Name == name {
			return &m.Activities[i], true
		}
	}
	return nil, false
}

// Resource returns the resource named name.
func (m *ModelSpec) Resource(name string) (*ResourceSpec, bool) {
	for i := range m.Resources {
		if m.Resources[i].Name == name {
			return &m.Resources[i], true
		}
	}
	return nil, false
}

// ResourceSpec declares one resource.
type ResourceSpec struct {
	Name    string       `json:"name"`
	Kind    ResourceKind `json:"kind"`
	Initial Value        `json:"initial,omitempty"`
	Rate    float64      `json:"rate,omitempty"` // accumulators only
}

// ParamType names the type of an activity parameter.
type ParamType string

// Parameter types.
const (
	ParamString   ParamType = "string"
	ParamInt      ParamType = "int"
	ParamReal     ParamType = "real"
	ParamBool     ParamType = "bool"
	ParamDuration ParamType = "duration"
)

// ValidParamTypes defines allowed parameter types.
var ValidParamTypes = map[ParamType]bool{
	ParamString:   true,
	ParamInt:      true,
	ParamReal:     true,
	ParamBool:     true,
	ParamDuration: true,
}

// ActivitySpec declares an activity type: its parameters and the program
// each instance runs.
type ActivitySpec struct {
	Name   string      `json:"name"`
	Params []ParamSpec `json:"params,omitempty"`
	Repeat bool        `json:"repeat,omitempty"` // loop forever (daemons)
	Steps  []StepSpec  `json:"steps"`
}

// Param returns the parameter named name.
func (a *ActivitySpec) Param(name string) (*ParamSpec, bool) {
	for i := range a.Params {
		if a.Params[i].Name == name {
			return &a.Params[i], true
		}
	}
	return nil, false
}

// ParamSpec declares one activity parameter. A nil Default makes the
// parameter required.
type ParamSpec struct {
	Name    string    `json:"name"`
	Type    ParamType `json:"type"`
	Default Value     `json:"default,omitempty"`
}

// StepOp names an activity program instruction.
type StepOp string

// Step operations.
const (
	OpSet       StepOp = "set"        // write Value to a register
	OpAdd       StepOp = "add"        // add Value to a counter or accumulator
	OpRate      StepOp = "rate"       // add Value to an accumulator's rate
	OpDelay     StepOp = "delay"      // wait Duration
	OpSpawn     StepOp = "spawn"      // start Activity concurrently
	OpCall      StepOp = "call"       // start Activity and await it
	OpWaitUntil StepOp = "wait_until" // await Until
)

// ValidStepOps defines allowed step operations.
var ValidStepOps = map[StepOp]bool{
	OpSet:       true,
	OpAdd:       true,
	OpRate:      true,
	OpDelay:     true,
	OpSpawn:     true,
	OpCall:      true,
	OpWaitUntil: true,
}

// StepSpec is one instruction of an activity program.
//
// String values of the form "$name" (Value, Duration, Args values) refer to
// the activity's parameter name.
type StepSpec struct {
	Op       StepOp         `json:"op"`
	Resource string         `json:"resource,omitempty"`
	Value    Value          `json:"value,omitempty"`
	Duration string         `json:"duration,omitempty"`
	Activity string         `json:"activity,omitempty"`
	Args     Object         `json:"args,omitempty"`
	Until    *ConditionSpec `json:"until,omitempty"`
}

// ConditionSpec compares a resource against a value.
type ConditionSpec struct {
	Resource string `json:"resource"`
	Op       string `json:"op"` // ==, !=, <, <=, >, >=
	Value    Value  `json:"value"`
}

// ValidConditionOps defines allowed comparison operators.
var ValidConditionOps = map[string]bool{
	"==": true, "!=": true, "<": true, "<=": true, ">": true, ">=": true,
}

// DaemonSpec starts an activity when the simulation begins.
type DaemonSpec struct {
	Name     string `json:"name"`
	Activity string `json:"activity"`
	Args     Object `json:"args,omitempty"`
}

// PlanSpec is a set of scheduled activity directives.
type PlanSpec struct {
	Name       string          `json:"name"`
	Horizon    string          `json:"horizon"`
	Directives []DirectiveSpec `json:"directives"`
}

// DirectiveSpec schedules one activity instance at Start.
type DirectiveSpec struct {
	ID    string `json:"id"`
	Type  string `json:"type"`
	Start string `json:"start"`
	Args  Object `json:"args,omitempty"`
}

// ParamRef returns the parameter name if v is a "$name" reference.
func ParamRef(v Value) (string, bool) {
	s, ok := v.(String)
	if !ok {
		return "", false
	}
	return ParamRefString(string(s))
}

// ParamRefString returns the parameter name if s is a "$name" reference.
func ParamRefString(s string) (string, bool) {
	if len(s) < 2 || s[0] != '$' {
		return "", false
	}
	return s[1:], true
}
