package store

import (
	"context"
	"fmt"
	"strconv"

	"github.com/roach88/strata/internal/ir"
	"github.com/roach88/strata/internal/queryir"
	"github.com/roach88/strata/internal/querysql"
	"github.com/roach88/strata/internal/results"
)

// Catalog describes the queryable tables of the store. The JSON columns of
// runs are left out.
var Catalog = queryir.Catalog{
	"runs": {
		Columns: []string{"seq", "id", "model_name", "model_hash", "plan_name", "plan_hash",
			"horizon", "elapsed", "status", "error", "results_hash", "engine_version", "ir_version"},
		Key: []string{"seq"},
	},
	"task_spans": {
		Columns: []string{"run_id", "task", "parent", "directive", "activity", "start", "end_at", "status"},
		Key:     []string{"run_id", "task"},
	},
	"profile_points": {
		Columns: []string{"run_id", "resource", "resource_idx", "idx", "at", "value"},
		Key:     []string{"run_id", "resource_idx", "idx"},
	},
}

// spanFields maps the names accepted by SpanFilter to columns.
var spanFields = map[string]string{
	"run":       "task_spans.run_id",
	"model":     "runs.model_name",
	"plan":      "runs.plan_name",
	"task":      "task_spans.task",
	"parent":    "task_spans.parent",
	"directive": "task_spans.directive",
	"activity":  "task_spans.activity",
	"start":     "task_spans.start",
	"end":       "task_spans.end_at",
	"status":    "task_spans.status",
}

// SpanFilter builds the predicate field = value for FindSpans. Fields are
// run, model, plan, task, parent, directive, activity, start, end and
// status; task and parent take integers.
func SpanFilter(field, value string) (queryir.Predicate, error) {
	col, ok := spanFields[field]
	if !ok {
		return nil, fmt.Errorf("unknown span field %q", field)
	}
	switch field {
	case "task", "parent":
		n, err := strconv.ParseInt(value, 10, 64)
		if err != nil {
			return nil, fmt.Errorf("%s: %q is not an integer", field, value)
		}
		return queryir.Equals{Field: col, Value: ir.Int(n)}, nil
	}
	return queryir.Equals{Field: col, Value: ir.String(value)}, nil
}

// SpanMatch is a task span found by FindSpans, with the run it belongs to.
type SpanMatch struct {
	RunID string       `json:"run_id"`
	Model string       `json:"model"`
	Plan  string       `json:"plan"`
	Span  results.Span `json:"span"`
}

// FindSpans returns the task spans of every stored run that satisfy filter,
// in run insertion order then task order. A nil filter matches every span.
func (s *Store) FindSpans(ctx context.Context, filter queryir.Predicate) ([]SpanMatch, error) {
	q := queryir.Join{
		Left:  "runs",
		Right: "task_spans",
		On:    queryir.FieldEquals{Left: "runs.id", Right: "task_spans.run_id"},
		Fields: []string{
			"runs.id", "runs.model_name", "runs.plan_name",
			"task_spans.task", "task_spans.parent", "task_spans.directive", "task_spans.activity",
			"task_spans.start", "task_spans.end_at", "task_spans.status",
		},
		Filter: filter,
	}
	query, params, err := querysql.NewCompiler(Catalog).Compile(q)
	if err != nil {
		return nil, err
	}

	rows, err := s.db.QueryContext(ctx, query, params...)
	if err != nil {
		return nil, fmt.Errorf("query spans: %w", err)
	}
	defer rows.Close()

	matches := []SpanMatch{}
	for rows.Next() {
		var m SpanMatch
		sp := &m.Span
		if err := rows.Scan(&m.RunID, &m.Model, &m.Plan,
			&sp.Task, &sp.Parent, &sp.Directive, &sp.Activity, &sp.Start, &sp.End, &sp.Status); err != nil {
			return nil, fmt.Errorf("scan span: %w", err)
		}
		matches = append(matches, m)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate spans: %w", err)
	}
	return matches, nil
}
