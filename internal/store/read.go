package store

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/roach88/strata/internal/ir"
	"github.com/roach88/strata/internal/results"
)

// ErrRunNotFound is returned when no run has the requested ID.
var ErrRunNotFound = errors.New("run not found")

// RunRecord is the summary row of a stored run.
type RunRecord struct {
	Seq           int64
	ID            string
	Model         string
	ModelHash     string
	Plan          string
	PlanHash      string
	Horizon       string
	Elapsed       string
	Status        string
	Error         string
	ResultsHash   string
	EngineVersion string
	IRVersion     string
}

const runColumns = `seq, id, model_name, model_hash, plan_name, plan_hash, horizon, elapsed,
	status, error, results_hash, engine_version, ir_version`

func scanRun(row interface{ Scan(...any) error }) (RunRecord, error) {
	var rec RunRecord
	err := row.Scan(
		&rec.Seq, &rec.ID, &rec.Model, &rec.ModelHash, &rec.Plan, &rec.PlanHash,
		&rec.Horizon, &rec.Elapsed, &rec.Status, &rec.Error, &rec.ResultsHash,
		&rec.EngineVersion, &rec.IRVersion,
	)
	return rec, err
}

// ListRuns returns every stored run in insertion order.
// Returns an empty slice (not nil) if the store has no runs.
func (s *Store) ListRuns(ctx context.Context) ([]RunRecord, error) {
	rows, err := s.db.QueryContext(ctx, `SELECT `+runColumns+` FROM runs ORDER BY seq ASC`)
	if err != nil {
		return nil, fmt.Errorf("query runs: %w", err)
	}
	defer rows.Close()

	runs := []RunRecord{}
	for rows.Next() {
		rec, err := scanRun(rows)
		if err != nil {
			return nil, fmt.Errorf("scan run: %w", err)
		}
		runs = append(runs, rec)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate runs: %w", err)
	}
	return runs, nil
}

// ReadRunRecord returns the summary row of run id.
func (s *Store) ReadRunRecord(ctx context.Context, id string) (RunRecord, error) {
	row := s.db.QueryRowContext(ctx, `SELECT `+runColumns+` FROM runs WHERE id = ?`, id)
	rec, err := scanRun(row)
	if errors.Is(err, sql.ErrNoRows) {
		return RunRecord{}, fmt.Errorf("%w: %s", ErrRunNotFound, id)
	}
	if err != nil {
		return RunRecord{}, fmt.Errorf("read run %s: %w", id, err)
	}
	return rec, nil
}

// ReadRun reassembles the stored results of run id.
func (s *Store) ReadRun(ctx context.Context, id string) (*results.Results, error) {
	rec, err := s.ReadRunRecord(ctx, id)
	if err != nil {
		return nil, err
	}

	r := &results.Results{
		RunID:     rec.ID,
		Model:     rec.Model,
		ModelHash: rec.ModelHash,
		Plan:      rec.Plan,
		PlanHash:  rec.PlanHash,
		Horizon:   rec.Horizon,
		Elapsed:   rec.Elapsed,
		Status:    rec.Status,
		Error:     rec.Error,
	}

	if r.Spans, err = s.readSpans(ctx, `WHERE run_id = ?`, id); err != nil {
		return nil, fmt.Errorf("read run %s: %w", id, err)
	}
	if r.Profiles, err = s.readProfiles(ctx, id); err != nil {
		return nil, fmt.Errorf("read run %s: %w", id, err)
	}
	return r, nil
}

// ReadDirectiveSpans returns the spans of the tasks a plan directive started
// in run id.
func (s *Store) ReadDirectiveSpans(ctx context.Context, id, directive string) ([]results.Span, error) {
	spans, err := s.readSpans(ctx, `WHERE run_id = ? AND directive = ?`, id, directive)
	if err != nil {
		return nil, fmt.Errorf("read run %s directive %q: %w", id, directive, err)
	}
	return spans, nil
}

func (s *Store) readSpans(ctx context.Context, where string, args ...any) ([]results.Span, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT task, parent, directive, activity, start, end_at, status
		FROM task_spans `+where+`
		ORDER BY task ASC
	`, args...)
	if err != nil {
		return nil, fmt.Errorf("query spans: %w", err)
	}
	defer rows.Close()

	spans := []results.Span{}
	for rows.Next() {
		var sp results.Span
		if err := rows.Scan(&sp.Task, &sp.Parent, &sp.Directive, &sp.Activity, &sp.Start, &sp.End, &sp.Status); err != nil {
			return nil, fmt.Errorf("scan span: %w", err)
		}
		spans = append(spans, sp)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate spans: %w", err)
	}
	return spans, nil
}

func (s *Store) readProfiles(ctx context.Context, id string) ([]results.Profile, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT resource, resource_idx, at, value
		FROM profile_points
		WHERE run_id = ?
		ORDER BY resource_idx ASC, idx ASC
	`, id)
	if err != nil {
		return nil, fmt.Errorf("query profile points: %w", err)
	}
	defer rows.Close()

	profiles := []results.Profile{}
	last := -1
	for rows.Next() {
		var (
			name  string
			idx   int
			at    string
			value string
		)
		if err := rows.Scan(&name, &idx, &at, &value); err != nil {
			return nil, fmt.Errorf("scan profile point: %w", err)
		}
		v, err := unmarshalValue(value)
		if err != nil {
			return nil, fmt.Errorf("resource %q at %s: %w", name, at, err)
		}
		if idx != last {
			profiles = append(profiles, results.Profile{Resource: name})
			last = idx
		}
		p := &profiles[len(profiles)-1]
		p.Points = append(p.Points, results.Point{At: at, Value: v})
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate profile points: %w", err)
	}
	return profiles, nil
}

// ReadRunInputs returns the model and plan run id was simulated from.
func (s *Store) ReadRunInputs(ctx context.Context, id string) (*ir.ModelSpec, *ir.PlanSpec, error) {
	var modelJSON, planJSON string
	err := s.db.QueryRowContext(ctx, `SELECT model_json, plan_json FROM runs WHERE id = ?`, id).
		Scan(&modelJSON, &planJSON)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil, fmt.Errorf("%w: %s", ErrRunNotFound, id)
	}
	if err != nil {
		return nil, nil, fmt.Errorf("read run %s inputs: %w", id, err)
	}

	var model ir.ModelSpec
	if err := json.Unmarshal([]byte(modelJSON), &model); err != nil {
		return nil, nil, fmt.Errorf("read run %s model: %w", id, err)
	}
	var plan ir.PlanSpec
	if err := json.Unmarshal([]byte(planJSON), &plan); err != nil {
		return nil, nil, fmt.Errorf("read run %s plan: %w", id, err)
	}
	return &model, &plan, nil
}
