package store

import (
	"context"
	"fmt"

	"github.com/roach88/strata/internal/engine"
	"github.com/roach88/strata/internal/plan"
	"github.com/roach88/strata/internal/results"
)

// ReplayResult compares a stored run against a fresh simulation of the same
// model and plan.
type ReplayResult struct {
	RunID        string
	StoredHash   string
	ReplayHash   string
	StoredEngine string
	Match        bool
	Results      *results.Results
}

// Replay re-simulates run id from its stored inputs under the same run ID
// and reports whether the results hash is unchanged. A run that failed when
// stored is expected to fail the same way; its error is not returned.
func (s *Store) Replay(ctx context.Context, id string, opts ...engine.EngineOption) (ReplayResult, error) {
	rec, err := s.ReadRunRecord(ctx, id)
	if err != nil {
		return ReplayResult{}, err
	}
	model, p, err := s.ReadRunInputs(ctx, id)
	if err != nil {
		return ReplayResult{}, err
	}

	opts = append(opts, engine.WithRunID(id))
	run, err := plan.Simulate(ctx, model, p, opts...)
	if run == nil {
		return ReplayResult{}, fmt.Errorf("replay %s: %w", id, err)
	}

	r, err := results.FromRun(run)
	if err != nil {
		return ReplayResult{}, fmt.Errorf("replay %s: %w", id, err)
	}
	hash, err := r.Hash()
	if err != nil {
		return ReplayResult{}, fmt.Errorf("replay %s: %w", id, err)
	}

	return ReplayResult{
		RunID:        id,
		StoredHash:   rec.ResultsHash,
		ReplayHash:   hash,
		StoredEngine: rec.EngineVersion,
		Match:        hash == rec.ResultsHash,
		Results:      r,
	}, nil
}
