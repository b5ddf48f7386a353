package store

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/roach88/strata/internal/ir"
	"github.com/roach88/strata/internal/results"
)

// WriteRun stores a finished run together with the model and plan that
// produced it. Uses ON CONFLICT(id) DO NOTHING for idempotency: writing a run
// ID that is already stored leaves the stored run untouched and returns nil.
//
// The run row, its spans and its profile points are written in a single
// transaction.
func (s *Store) WriteRun(ctx context.Context, r *results.Results, model *ir.ModelSpec, plan *ir.PlanSpec) error {
	if r.RunID == "" {
		return fmt.Errorf("write run: empty run ID")
	}

	resultsHash, err := r.Hash()
	if err != nil {
		return fmt.Errorf("write run %s: %w", r.RunID, err)
	}
	modelJSON, err := marshalSpec(model)
	if err != nil {
		return fmt.Errorf("write run %s: %w", r.RunID, err)
	}
	planJSON, err := marshalSpec(plan)
	if err != nil {
		return fmt.Errorf("write run %s: %w", r.RunID, err)
	}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("write run %s: begin: %w", r.RunID, err)
	}
	defer tx.Rollback()

	res, err := tx.ExecContext(ctx, `
		INSERT INTO runs
		(id, model_name, model_hash, model_json, plan_name, plan_hash, plan_json,
		 horizon, elapsed, status, error, results_hash, engine_version, ir_version)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT(id) DO NOTHING
	`,
		r.RunID,
		r.Model,
		r.ModelHash,
		modelJSON,
		r.Plan,
		r.PlanHash,
		planJSON,
		r.Horizon,
		r.Elapsed,
		r.Status,
		r.Error,
		resultsHash,
		ir.EngineVersion,
		ir.IRVersion,
	)
	if err != nil {
		return fmt.Errorf("write run %s: %w", r.RunID, err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("write run %s: %w", r.RunID, err)
	}
	if n == 0 {
		// Already stored.
		return nil
	}

	if err := writeSpans(ctx, tx, r); err != nil {
		return fmt.Errorf("write run %s: %w", r.RunID, err)
	}
	if err := writeProfiles(ctx, tx, r); err != nil {
		return fmt.Errorf("write run %s: %w", r.RunID, err)
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("write run %s: commit: %w", r.RunID, err)
	}
	return nil
}

func writeSpans(ctx context.Context, tx *sql.Tx, r *results.Results) error {
	stmt, err := tx.PrepareContext(ctx, `
		INSERT INTO task_spans (run_id, task, parent, directive, activity, start, end_at, status)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?)
	`)
	if err != nil {
		return fmt.Errorf("prepare spans: %w", err)
	}
	defer stmt.Close()

	for _, sp := range r.Spans {
		if _, err := stmt.ExecContext(ctx,
			r.RunID, sp.Task, sp.Parent, sp.Directive, sp.Activity, sp.Start, sp.End, sp.Status,
		); err != nil {
			return fmt.Errorf("span %d: %w", sp.Task, err)
		}
	}
	return nil
}

func writeProfiles(ctx context.Context, tx *sql.Tx, r *results.Results) error {
	stmt, err := tx.PrepareContext(ctx, `
		INSERT INTO profile_points (run_id, resource, resource_idx, idx, at, value)
		VALUES (?, ?, ?, ?, ?, ?)
	`)
	if err != nil {
		return fmt.Errorf("prepare profile points: %w", err)
	}
	defer stmt.Close()

	for ri, p := range r.Profiles {
		for i, pt := range p.Points {
			value, err := marshalValue(pt.Value)
			if err != nil {
				return fmt.Errorf("resource %q point %d: %w", p.Resource, i, err)
			}
			if _, err := stmt.ExecContext(ctx, r.RunID, p.Resource, ri, i, pt.At, value); err != nil {
				return fmt.Errorf("resource %q point %d: %w", p.Resource, i, err)
			}
		}
	}
	return nil
}
