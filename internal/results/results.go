// Package results turns a finished simulation into a stable, serializable
// report: the task spans and the value profile of every exported resource.
//
// Results are identified by a content hash over their canonical JSON. The
// run ID is excluded from the hash, so two runs of the same model and plan
// hash identically.
package results

import (
	"encoding/json"
	"fmt"
	"slices"
	"time"

	"github.com/roach88/strata/internal/engine"
	"github.com/roach88/strata/internal/ir"
	"github.com/roach88/strata/internal/plan"
	"github.com/roach88/strata/internal/resource"
	"github.com/roach88/strata/internal/timeline"
)

// Run statuses.
const (
	StatusOK     = "ok"
	StatusFailed = "failed"
)

// Results is the report of one simulation run.
type Results struct {
	RunID     string    `json:"run_id"`
	Model     string    `json:"model"`
	ModelHash string    `json:"model_hash"`
	Plan      string    `json:"plan"`
	PlanHash  string    `json:"plan_hash"`
	Horizon   string    `json:"horizon"`
	Elapsed   string    `json:"elapsed"`
	Status    string    `json:"status"`
	Error     string    `json:"error,omitempty"`
	Spans     []Span    `json:"spans"`
	Profiles  []Profile `json:"profiles"`
}

// Span is one task's lifetime. Directive is set for tasks started directly
// by a plan directive; Parent is set for spawned tasks.
type Span struct {
	Task      int64  `json:"task"`
	Parent    int64  `json:"parent,omitempty"`
	Directive string `json:"directive,omitempty"`
	Activity  string `json:"activity"`
	Start     string `json:"start"`
	End       string `json:"end,omitempty"`
	Status    string `json:"status"`
}

// Profile is the value history of one resource.
type Profile struct {
	Resource string  `json:"resource"`
	Points   []Point `json:"points"`
}

// Point is a resource value from At onwards. Accumulator values change
// continuously between points at the rate in effect.
type Point struct {
	At    string   `json:"at"`
	Value ir.Value `json:"value"`
}

// UnmarshalJSON decodes a point, restoring the IR type of its value.
func (p *Point) UnmarshalJSON(data []byte) error {
	var raw struct {
		At    string          `json:"at"`
		Value json.RawMessage `json:"value"`
	}
	if err := json.Unmarshal(data, &raw); err != nil {
		return err
	}
	v, err := ir.UnmarshalValue(raw.Value)
	if err != nil {
		return fmt.Errorf("point at %s: %w", raw.At, err)
	}
	p.At, p.Value = raw.At, v
	return nil
}

// FromRun collects the results of run.
func FromRun(run *plan.Run) (*Results, error) {
	modelHash, err := ir.ModelHash(run.Model)
	if err != nil {
		return nil, err
	}
	planHash, err := ir.PlanHash(run.Plan)
	if err != nil {
		return nil, err
	}

	e := run.Engine
	r := &Results{
		RunID:     e.RunID(),
		Model:     run.Model.Name,
		ModelHash: modelHash,
		Plan:      run.Plan.Name,
		PlanHash:  planHash,
		Horizon:   run.Horizon.String(),
		Elapsed:   e.Elapsed().String(),
		Status:    StatusOK,
		Spans:     []Span{},
		Profiles:  []Profile{},
	}
	if run.Err != nil {
		r.Status = StatusFailed
		r.Error = run.Err.Error()
	}

	for _, sp := range e.Spans() {
		s := Span{
			Task:      int64(sp.ID),
			Parent:    int64(sp.Parent),
			Directive: run.Directives[sp.ID],
			Activity:  sp.Name,
			Status:    string(sp.Status),
		}
		if sp.Status != engine.SpanScheduled {
			s.Start = sp.Start.String()
		}
		if sp.Status == engine.SpanCompleted || sp.Status == engine.SpanFailed {
			s.End = sp.End.String()
		}
		r.Spans = append(r.Spans, s)
	}

	profiles, err := Profiles(e.History())
	if err != nil {
		return nil, err
	}
	r.Profiles = profiles
	return r, nil
}

// Profiles samples every exported resource of h's timeline: its initial
// value, its value after every instant that changed it, and its value at
// the end of h.
func Profiles(h timeline.History) ([]Profile, error) {
	tl := h.Timeline()
	start := tl.Start()
	segments := h.Segments()

	out := make([]Profile, 0, len(tl.Resources()))
	for _, res := range tl.Resources() {
		p := Profile{Resource: res.Name}

		add := func(at time.Duration, state any) error {
			v, err := resource.Sample(state)
			if err != nil {
				return fmt.Errorf("resource %q at %s: %w", res.Name, at, err)
			}
			p.Points = append(p.Points, Point{At: at.String(), Value: v})
			return nil
		}

		initial, err := timeline.GetAny(start, res.Cell)
		if err != nil {
			return nil, err
		}
		if err := add(0, initial); err != nil {
			return nil, err
		}

		idx := res.Cell.Index()
		for _, seg := range segments {
			if !slices.Contains(seg.Touched(), idx) {
				continue
			}
			state, err := seg.Value(res.Cell)
			if err != nil {
				return nil, err
			}
			if err := add(seg.At(), state); err != nil {
				return nil, err
			}
		}

		final, err := timeline.GetAny(h, res.Cell)
		if err != nil {
			return nil, err
		}
		if err := add(h.Elapsed(), final); err != nil {
			return nil, err
		}

		out = append(out, p)
	}
	return out, nil
}

// Hash returns the content hash of r, ignoring the run ID.
func (r *Results) Hash() (string, error) {
	c := *r
	c.RunID = ""
	return ir.Hash(ir.DomainResults, &c)
}

// Canonical returns r as canonical JSON.
func (r *Results) Canonical() ([]byte, error) {
	return ir.Canonicalize(r)
}

// Value returns the last profiled value of resource at or before at.
func (r *Results) Value(resourceName string, at time.Duration) (ir.Value, bool) {
	for _, p := range r.Profiles {
		if p.Resource != resourceName {
			continue
		}
		var found ir.Value
		for _, pt := range p.Points {
			d, err := time.ParseDuration(pt.At)
			if err != nil || d > at {
				break
			}
			found = pt.Value
		}
		return found, found != nil
	}
	return nil, false
}

// Final returns the value of resource at the end of the run.
func (r *Results) Final(resourceName string) (ir.Value, bool) {
	for _, p := range r.Profiles {
		if p.Resource == resourceName && len(p.Points) > 0 {
			return p.Points[len(p.Points)-1].Value, true
		}
	}
	return nil, false
}
