package harness

import (
	"context"
	"fmt"
	"strings"

	"github.com/roach88/strata/internal/compiler"
	"github.com/roach88/strata/internal/engine"
	"github.com/roach88/strata/internal/ir"
	"github.com/roach88/strata/internal/results"
	"github.com/roach88/strata/internal/store"
)

// AssertionError is returned when an assertion fails.
// It includes detailed context to help debug the failure.
type AssertionError struct {
	Type     string
	Expected string
	Actual   string
	Spans    []results.Span
}

// Error implements the error interface.
func (e *AssertionError) Error() string {
	var buf strings.Builder

	fmt.Fprintf(&buf, "Assertion failed: %s\n", e.Type)
	fmt.Fprintf(&buf, "  Expected: %s\n", e.Expected)
	fmt.Fprintf(&buf, "  Actual: %s\n", e.Actual)

	if len(e.Spans) > 0 {
		fmt.Fprintf(&buf, "\nTasks:\n")
		for _, sp := range e.Spans {
			fmt.Fprintf(&buf, "  [%d] %s", sp.Task, sp.Activity)
			if sp.Directive != "" {
				fmt.Fprintf(&buf, " (%s)", sp.Directive)
			}
			fmt.Fprintf(&buf, " %s %s..%s\n", sp.Status, sp.Start, sp.End)
		}
	}

	return buf.String()
}

// findSpan returns the span of the directive's task, or the first span of
// the activity.
func findSpan(r *results.Results, a Assertion) (results.Span, bool) {
	for _, sp := range r.Spans {
		if a.Directive != "" && sp.Directive != a.Directive {
			continue
		}
		if a.Activity != "" && sp.Activity != a.Activity {
			continue
		}
		return sp, true
	}
	return results.Span{}, false
}

func describeSpan(a Assertion) string {
	if a.Directive != "" {
		return "directive " + a.Directive
	}
	return "activity " + a.Activity
}

// assertTaskSpan checks the start, end and status of one task. Fields left
// empty in the assertion are not checked.
func assertTaskSpan(r *results.Results, a Assertion) error {
	sp, ok := findSpan(r, a)
	if !ok {
		return &AssertionError{
			Type:     AssertTaskSpan,
			Expected: fmt.Sprintf("a task for %s", describeSpan(a)),
			Actual:   "no such task",
			Spans:    r.Spans,
		}
	}

	check := func(field, want, got string) error {
		if want == "" || sameDuration(want, got) {
			return nil
		}
		return &AssertionError{
			Type:     AssertTaskSpan,
			Expected: fmt.Sprintf("%s %s = %s", describeSpan(a), field, want),
			Actual:   fmt.Sprintf("%s = %q", field, got),
			Spans:    r.Spans,
		}
	}
	if err := check("start", a.Start, sp.Start); err != nil {
		return err
	}
	if err := check("end", a.End, sp.End); err != nil {
		return err
	}
	if a.Status != "" && a.Status != sp.Status {
		return &AssertionError{
			Type:     AssertTaskSpan,
			Expected: fmt.Sprintf("%s status = %s", describeSpan(a), a.Status),
			Actual:   fmt.Sprintf("status = %s", sp.Status),
			Spans:    r.Spans,
		}
	}
	return nil
}

// sameDuration compares durations written in any accepted form, so "1m"
// matches the rendered "1m0s".
func sameDuration(want, got string) bool {
	if want == got {
		return true
	}
	w, err := compiler.ParseDuration(want)
	if err != nil {
		return false
	}
	g, err := compiler.ParseDuration(got)
	if err != nil {
		return false
	}
	return w == g
}

// assertTaskCount checks how many tasks of an activity type were created.
func assertTaskCount(r *results.Results, a Assertion) error {
	count := 0
	for _, sp := range r.Spans {
		if sp.Activity == a.Activity {
			count++
		}
	}

	if count != a.Count {
		return &AssertionError{
			Type:     AssertTaskCount,
			Expected: fmt.Sprintf("%d tasks of %s", a.Count, a.Activity),
			Actual:   fmt.Sprintf("%d tasks", count),
			Spans:    r.Spans,
		}
	}
	return nil
}

// assertResourceValue checks a resource's profiled value at an instant, or
// at the end of the run when no instant is given.
func assertResourceValue(r *results.Results, a Assertion) error {
	want, err := ir.FromAny(a.Value)
	if err != nil {
		return fmt.Errorf("resource_value %s: %w", a.Resource, err)
	}

	var (
		got ir.Value
		ok  bool
		at  = "end"
	)
	if a.At == "" {
		got, ok = r.Final(a.Resource)
	} else {
		d, _ := compiler.ParseDuration(a.At)
		got, ok = r.Value(a.Resource, d)
		at = a.At
	}
	if !ok {
		return &AssertionError{
			Type:     AssertResourceValue,
			Expected: fmt.Sprintf("resource %s at %s = %s", a.Resource, at, ir.Format(want)),
			Actual:   "resource not profiled",
		}
	}
	if !ir.Equal(want, got) {
		return &AssertionError{
			Type:     AssertResourceValue,
			Expected: fmt.Sprintf("resource %s at %s = %s", a.Resource, at, ir.Format(want)),
			Actual:   ir.Format(got),
		}
	}
	return nil
}

// assertFailed checks that the run halted with an error containing each of
// the given substrings.
func assertFailed(r *results.Results, typ string, contains ...string) error {
	if r.Status != results.StatusFailed {
		return &AssertionError{
			Type:     typ,
			Expected: "run to fail",
			Actual:   fmt.Sprintf("run finished with status %s at %s", r.Status, r.Elapsed),
			Spans:    r.Spans,
		}
	}
	for _, s := range contains {
		if s != "" && !strings.Contains(r.Error, s) {
			return &AssertionError{
				Type:     typ,
				Expected: fmt.Sprintf("error containing %q", s),
				Actual:   r.Error,
				Spans:    r.Spans,
			}
		}
	}
	return nil
}

// assertDeterministic replays the stored run and checks the results hash is
// unchanged.
func assertDeterministic(actx *AssertionContext, r *results.Results) error {
	if actx == nil || actx.Store == nil {
		return fmt.Errorf("deterministic assertion requires a store")
	}
	res, err := actx.Store.Replay(actx.Ctx, r.RunID, actx.Options...)
	if err != nil {
		return fmt.Errorf("deterministic: %w", err)
	}
	if !res.Match {
		return &AssertionError{
			Type:     AssertDeterministic,
			Expected: fmt.Sprintf("replay hash %s", res.StoredHash),
			Actual:   fmt.Sprintf("replay hash %s", res.ReplayHash),
		}
	}
	return nil
}

// AssertionContext provides the store and engine options for assertions
// that re-run the simulation.
type AssertionContext struct {
	Ctx     context.Context
	Store   *store.Store
	Options []engine.EngineOption
}

// EvaluateAssertions evaluates all assertions against the results.
// Returns a slice of error messages for failed assertions.
//
// A run that halted fails the scenario unless a conflict or error assertion
// expects it.
func EvaluateAssertions(r *results.Results, assertions []Assertion, actx *AssertionContext) []string {
	var errs []string

	expectsFailure := false
	for i, assertion := range assertions {
		var err error

		switch assertion.Type {
		case AssertTaskSpan:
			err = assertTaskSpan(r, assertion)
		case AssertTaskCount:
			err = assertTaskCount(r, assertion)
		case AssertResourceValue:
			err = assertResourceValue(r, assertion)
		case AssertConflict:
			expectsFailure = true
			err = assertFailed(r, AssertConflict, string(engine.ErrCodeConflict), assertion.Contains)
		case AssertError:
			expectsFailure = true
			err = assertFailed(r, AssertError, assertion.Contains)
		case AssertDeterministic:
			err = assertDeterministic(actx, r)
		default:
			err = fmt.Errorf("assertion[%d]: unknown assertion type %q", i, assertion.Type)
		}

		if err != nil {
			errs = append(errs, err.Error())
		}
	}

	if r.Status == results.StatusFailed && !expectsFailure {
		errs = append(errs, fmt.Sprintf("run failed at %s: %s", r.Elapsed, r.Error))
	}
	return errs
}
