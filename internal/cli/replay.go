package cli

import (
	"errors"
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/roach88/strata/internal/engine"
	"github.com/roach88/strata/internal/store"
)

// ReplayOptions holds flags for the replay command.
type ReplayOptions struct {
	*RootOptions
	Database string
	MaxSteps int
}

// ReplayRunResult holds the replay result for a single run.
type ReplayRunResult struct {
	RunID         string `json:"run_id"`
	StoredHash    string `json:"stored_hash"`
	ReplayHash    string `json:"replay_hash"`
	StoredEngine  string `json:"stored_engine"`
	Deterministic bool   `json:"deterministic"`
}

// ReplayResult holds the overall replay result.
type ReplayResult struct {
	Runs             []ReplayRunResult `json:"runs"`
	TotalRuns        int               `json:"total_runs"`
	AllDeterministic bool              `json:"all_deterministic"`
}

// NewReplayCommand creates the replay command.
func NewReplayCommand(rootOpts *RootOptions) *cobra.Command {
	opts := &ReplayOptions{RootOptions: rootOpts}

	cmd := &cobra.Command{
		Use:   "replay [run-id]...",
		Short: "Re-simulate stored runs and verify determinism",
		Long: `Re-simulate stored runs from their recorded model and plan, and check
that each replay reproduces the stored results hash.

With no run IDs every stored run is replayed.

Exit codes:
  0 - All runs are deterministic
  1 - A replay produced a different results hash
  2 - Command error (database not found, unknown run, etc.)

Examples:
  strata replay --db runs.db
  strata replay --db runs.db 0190f3c2-7d1e-7c3a-9b1e-4f2a8c6d5e10
  strata replay --db runs.db --format json`,
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runReplay(opts, args, cmd)
		},
	}

	cfg := rootOpts.Config
	cmd.Flags().StringVar(&opts.Database, "db", cfg.Database, "path to SQLite database (required) [$STRATA_DB]")
	cmd.Flags().IntVar(&opts.MaxSteps, "max-steps", cfg.MaxSteps, "task steps allowed per instant [$STRATA_MAX_STEPS]")

	return cmd
}

func runReplay(opts *ReplayOptions, ids []string, cmd *cobra.Command) error {
	formatter := newFormatter(opts.RootOptions, cmd)
	ctx := commandContext(cmd)

	st, err := openExistingStore(opts.Database)
	if err != nil {
		return err
	}
	defer st.Close()

	if len(ids) == 0 {
		runs, err := st.ListRuns(ctx)
		if err != nil {
			return WrapExitError(ExitCommandError, "failed to list runs", err)
		}
		for _, r := range runs {
			ids = append(ids, r.ID)
		}
	}

	result := ReplayResult{
		Runs:             make([]ReplayRunResult, 0, len(ids)),
		TotalRuns:        len(ids),
		AllDeterministic: true,
	}
	engineOpts := []engine.EngineOption{
		engine.WithLogger(opts.Logger(cmd)),
		engine.WithMaxSteps(opts.MaxSteps),
	}
	for _, id := range ids {
		formatter.VerboseLog("Replaying run: %s", id)
		rr, err := st.Replay(ctx, id, engineOpts...)
		if errors.Is(err, store.ErrRunNotFound) {
			_ = formatter.Error(ErrCodeRunNotFound, fmt.Sprintf("run %s not found", id), nil)
			return WrapExitError(ExitCommandError, fmt.Sprintf("run %s not found", id), err)
		}
		if err != nil {
			return WrapExitError(ExitCommandError, fmt.Sprintf("failed to replay run %s", id), err)
		}
		result.Runs = append(result.Runs, ReplayRunResult{
			RunID:         rr.RunID,
			StoredHash:    rr.StoredHash,
			ReplayHash:    rr.ReplayHash,
			StoredEngine:  rr.StoredEngine,
			Deterministic: rr.Match,
		})
		if !rr.Match {
			result.AllDeterministic = false
		}
	}

	if formatter.JSON() {
		if result.AllDeterministic {
			return formatter.Success(result)
		}
		if err := formatter.Failure(ErrCodeReplay, "determinism verification failed", result); err != nil {
			return err
		}
		return NewExitError(ExitFailure, "determinism verification failed")
	}

	w := formatter.Writer
	if result.TotalRuns == 0 {
		fmt.Fprintln(w, "No runs found in database.")
		return nil
	}
	fmt.Fprintf(w, "Replayed %d run(s):\n\n", result.TotalRuns)
	for _, r := range result.Runs {
		if r.Deterministic {
			fmt.Fprintf(w, "✓ %s\n", r.RunID)
			if opts.Verbose {
				fmt.Fprintf(w, "  hash: %s\n", r.ReplayHash)
			}
			continue
		}
		fmt.Fprintf(w, "✗ %s\n", r.RunID)
		fmt.Fprintf(w, "  stored: %s (engine %s)\n", r.StoredHash, r.StoredEngine)
		fmt.Fprintf(w, "  replay: %s\n", r.ReplayHash)
	}
	fmt.Fprintln(w)

	if !result.AllDeterministic {
		fmt.Fprintln(w, "✗ Determinism verification failed")
		return NewExitError(ExitFailure, "determinism verification failed")
	}
	fmt.Fprintln(w, "✓ All runs deterministic")
	return nil
}

// openExistingStore opens a database that must already exist; store.Open
// would otherwise create an empty one.
func openExistingStore(path string) (*store.Store, error) {
	if path == "" {
		return nil, NewExitError(ExitCommandError, "--db is required (or set STRATA_DB)")
	}
	if _, err := os.Stat(path); err != nil {
		return nil, WrapExitError(ExitCommandError, "database not found", err)
	}
	st, err := store.Open(path)
	if err != nil {
		return nil, WrapExitError(ExitCommandError, "failed to open database", err)
	}
	return st, nil
}
