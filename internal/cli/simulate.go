package cli

import (
	"context"
	"fmt"
	"io"
	"os"

	"github.com/spf13/cobra"

	"github.com/roach88/strata/internal/compiler"
	"github.com/roach88/strata/internal/engine"
	"github.com/roach88/strata/internal/ir"
	"github.com/roach88/strata/internal/plan"
	"github.com/roach88/strata/internal/results"
	"github.com/roach88/strata/internal/store"
)

// SimulateOptions holds flags for the simulate command.
type SimulateOptions struct {
	*RootOptions
	Model    string
	Horizon  string
	Database string
	MaxSteps int
	RunID    string
	Output   string

	// RunIDs overrides the run ID generator (for testing). RunID takes
	// precedence.
	RunIDs engine.RunIDGenerator
}

// SimulateResult is the output of the simulate command.
type SimulateResult struct {
	Hash    string           `json:"hash"`
	Stored  bool             `json:"stored"`
	Results *results.Results `json:"results"`
}

// NewSimulateCommand creates the simulate command.
func NewSimulateCommand(rootOpts *RootOptions) *cobra.Command {
	opts := &SimulateOptions{RootOptions: rootOpts}

	cmd := &cobra.Command{
		Use:   "simulate <model-dir> <plan-file>",
		Short: "Simulate a plan against a model",
		Long: `Simulate a plan against a CUE model and report the results.

Each directive of the plan starts its activity at the directive's start
time; the simulation runs to the plan's horizon. The results list the
span of every task and the value profile of every resource.

A simulation that halts on a conflict or error still reports the
results up to that point and exits with code 1.

Examples:
  strata simulate ./models/orbiter day-1.yaml
  strata simulate ./models/orbiter day-1.yaml --horizon 6h --db runs.db
  strata simulate ./models/orbiter day-1.yaml --format json -o results.json`,
		Args:          cobra.ExactArgs(2),
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runSimulate(opts, args[0], args[1], cmd)
		},
	}

	cfg := rootOpts.Config
	cmd.Flags().StringVar(&opts.Model, "model", "", "model name when the directory declares several")
	cmd.Flags().StringVar(&opts.Horizon, "horizon", cfg.Horizon, "override the plan horizon [$STRATA_HORIZON]")
	cmd.Flags().StringVar(&opts.Database, "db", cfg.Database, "store the run in this SQLite database [$STRATA_DB]")
	cmd.Flags().IntVar(&opts.MaxSteps, "max-steps", cfg.MaxSteps, "task steps allowed per instant [$STRATA_MAX_STEPS]")
	cmd.Flags().StringVar(&opts.RunID, "run-id", "", "run ID (default: a new UUIDv7)")
	cmd.Flags().StringVarP(&opts.Output, "output", "o", "", "write canonical results JSON to this file")

	return cmd
}

func runSimulate(opts *SimulateOptions, modelDir, planFile string, cmd *cobra.Command) error {
	formatter := newFormatter(opts.RootOptions, cmd)
	logger := opts.Logger(cmd)

	model, err := compiler.LoadModel(modelDir, opts.Model)
	if err != nil {
		_ = formatter.Error(compiler.ErrCodeLoadFailed, err.Error(), nil)
		return WrapExitError(ExitCommandError, "loading model", err)
	}
	p, err := plan.Load(planFile)
	if err != nil {
		_ = formatter.Error(compiler.ErrCodeLoadFailed, err.Error(), nil)
		return WrapExitError(ExitCommandError, "loading plan", err)
	}
	if opts.Horizon != "" {
		p.Horizon = opts.Horizon
	}

	ctx := commandContext(cmd)

	engineOpts := []engine.EngineOption{
		engine.WithLogger(logger),
		engine.WithMaxSteps(opts.MaxSteps),
	}
	if opts.RunIDs != nil {
		engineOpts = append(engineOpts, engine.WithRunIDGenerator(opts.RunIDs))
	}
	if opts.RunID != "" {
		engineOpts = append(engineOpts, engine.WithRunID(opts.RunID))
	}

	logger.Info("simulating", "model", model.Name, "plan", p.Name, "horizon", p.Horizon)
	run, simErr := plan.Simulate(ctx, model, p, engineOpts...)
	if run == nil {
		_ = formatter.Error(compiler.ErrCodeLoadFailed, simErr.Error(), nil)
		return WrapExitError(ExitCommandError, "invalid plan", simErr)
	}

	res, err := results.FromRun(run)
	if err != nil {
		return WrapExitError(ExitCommandError, "collecting results", err)
	}
	hash, err := res.Hash()
	if err != nil {
		return WrapExitError(ExitCommandError, "hashing results", err)
	}
	out := SimulateResult{Hash: hash, Results: res}

	if opts.Database != "" {
		if err := storeRun(ctx, opts.Database, res, model, p); err != nil {
			return WrapExitError(ExitCommandError, "storing run", err)
		}
		out.Stored = true
		logger.Info("run stored", "run_id", res.RunID, "db", opts.Database)
	}

	if opts.Output != "" {
		data, err := res.Canonical()
		if err != nil {
			return WrapExitError(ExitCommandError, "encoding results", err)
		}
		if err := os.WriteFile(opts.Output, data, 0o644); err != nil {
			return WrapExitError(ExitCommandError, "writing results", err)
		}
	}

	if simErr != nil {
		logger.Warn("simulation halted", "run_id", res.RunID, "at", res.Elapsed, "error", simErr)
		if formatter.JSON() {
			if err := formatter.Failure(ErrCodeSimulation, simErr.Error(), out); err != nil {
				return err
			}
		} else {
			writeResultsText(formatter.Writer, out)
		}
		return WrapExitError(ExitFailure, "simulation halted", simErr)
	}

	if formatter.JSON() {
		return formatter.Success(out)
	}
	writeResultsText(formatter.Writer, out)
	return nil
}

func storeRun(ctx context.Context, path string, res *results.Results, model *ir.ModelSpec, p *ir.PlanSpec) error {
	st, err := store.Open(path)
	if err != nil {
		return err
	}
	defer st.Close()
	return st.WriteRun(ctx, res, model, p)
}

func commandContext(cmd *cobra.Command) context.Context {
	if ctx := cmd.Context(); ctx != nil {
		return ctx
	}
	return context.Background()
}

// writeResultsText prints a run summary, its task spans and the final value
// of every resource.
func writeResultsText(w io.Writer, out SimulateResult) {
	r := out.Results
	mark := "✓"
	if r.Status == results.StatusFailed {
		mark = "✗"
	}
	fmt.Fprintf(w, "%s %s: model %s, plan %s, %s of %s\n", mark, r.RunID, r.Model, r.Plan, r.Elapsed, r.Horizon)
	if r.Error != "" {
		fmt.Fprintf(w, "  error: %s\n", r.Error)
	}
	if out.Hash != "" {
		fmt.Fprintf(w, "  hash: %s\n", out.Hash)
	}
	if out.Stored {
		fmt.Fprintln(w, "  stored")
	}

	fmt.Fprintf(w, "\nTasks (%d):\n", len(r.Spans))
	for _, sp := range r.Spans {
		label := sp.Activity
		if sp.Directive != "" {
			label += " (" + sp.Directive + ")"
		}
		fmt.Fprintf(w, "  [%d] %-28s %-10s %s..%s\n", sp.Task, label, sp.Status, sp.Start, sp.End)
	}

	fmt.Fprintf(w, "\nResources (%d):\n", len(r.Profiles))
	for _, p := range r.Profiles {
		final, _ := r.Final(p.Resource)
		fmt.Fprintf(w, "  %-16s %s (%d point(s))\n", p.Resource, ir.Format(final), len(p.Points))
	}
}
