package cli

import (
	"errors"
	"fmt"
	"io"

	"github.com/spf13/cobra"

	"github.com/roach88/strata/internal/ir"
	"github.com/roach88/strata/internal/results"
	"github.com/roach88/strata/internal/store"
)

// ResultsOptions holds flags for the results command.
type ResultsOptions struct {
	*RootOptions
	Database  string
	Directive string // show only the tasks of this directive
	Resource  string // show the full profile of this resource
}

// RunSummary is one row of the run list.
type RunSummary struct {
	ID          string `json:"id"`
	Model       string `json:"model"`
	Plan        string `json:"plan"`
	Horizon     string `json:"horizon"`
	Elapsed     string `json:"elapsed"`
	Status      string `json:"status"`
	ResultsHash string `json:"results_hash"`
}

// ProfileResult is the output of results --resource.
type ProfileResult struct {
	RunID   string          `json:"run_id"`
	Profile results.Profile `json:"profile"`
}

// NewResultsCommand creates the results command.
func NewResultsCommand(rootOpts *RootOptions) *cobra.Command {
	opts := &ResultsOptions{RootOptions: rootOpts}

	cmd := &cobra.Command{
		Use:   "results [run-id]",
		Short: "List stored runs or show one run's results",
		Long: `List the runs stored in a database, or show the results of one run.

With a run ID, --directive narrows the output to the tasks a plan
directive started, and --resource prints every point of one resource's
profile.

Examples:
  strata results --db runs.db
  strata results --db runs.db <run-id>
  strata results --db runs.db <run-id> --directive img-1
  strata results --db runs.db <run-id> --resource battery --format json`,
		Args:          cobra.MaximumNArgs(1),
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			if len(args) == 0 {
				return runListRuns(opts, cmd)
			}
			return runShowRun(opts, args[0], cmd)
		},
	}

	cmd.Flags().StringVar(&opts.Database, "db", rootOpts.Config.Database, "path to SQLite database (required) [$STRATA_DB]")
	cmd.Flags().StringVar(&opts.Directive, "directive", "", "show only the tasks of this directive")
	cmd.Flags().StringVar(&opts.Resource, "resource", "", "show the profile of this resource")

	return cmd
}

func runListRuns(opts *ResultsOptions, cmd *cobra.Command) error {
	formatter := newFormatter(opts.RootOptions, cmd)

	st, err := openExistingStore(opts.Database)
	if err != nil {
		return err
	}
	defer st.Close()

	runs, err := st.ListRuns(commandContext(cmd))
	if err != nil {
		return WrapExitError(ExitCommandError, "failed to list runs", err)
	}
	summaries := make([]RunSummary, len(runs))
	for i, r := range runs {
		summaries[i] = RunSummary{
			ID:          r.ID,
			Model:       r.Model,
			Plan:        r.Plan,
			Horizon:     r.Horizon,
			Elapsed:     r.Elapsed,
			Status:      r.Status,
			ResultsHash: r.ResultsHash,
		}
	}

	if formatter.JSON() {
		return formatter.Success(summaries)
	}
	w := formatter.Writer
	if len(summaries) == 0 {
		fmt.Fprintln(w, "No runs found in database.")
		return nil
	}
	for _, s := range summaries {
		fmt.Fprintf(w, "%s  %-6s  %s/%s  %s of %s\n", s.ID, s.Status, s.Model, s.Plan, s.Elapsed, s.Horizon)
	}
	return nil
}

func runShowRun(opts *ResultsOptions, id string, cmd *cobra.Command) error {
	formatter := newFormatter(opts.RootOptions, cmd)
	ctx := commandContext(cmd)

	st, err := openExistingStore(opts.Database)
	if err != nil {
		return err
	}
	defer st.Close()

	res, err := st.ReadRun(ctx, id)
	if errors.Is(err, store.ErrRunNotFound) {
		_ = formatter.Error(ErrCodeRunNotFound, fmt.Sprintf("run %s not found", id), nil)
		return WrapExitError(ExitCommandError, fmt.Sprintf("run %s not found", id), err)
	}
	if err != nil {
		return WrapExitError(ExitCommandError, "failed to read run", err)
	}

	if opts.Resource != "" {
		for _, p := range res.Profiles {
			if p.Resource != opts.Resource {
				continue
			}
			out := ProfileResult{RunID: res.RunID, Profile: p}
			if formatter.JSON() {
				return formatter.Success(out)
			}
			writeProfileText(formatter.Writer, out)
			return nil
		}
		_ = formatter.Error(ErrCodeRunNotFound, fmt.Sprintf("resource %q not profiled in run %s", opts.Resource, id), nil)
		return NewExitError(ExitCommandError, fmt.Sprintf("resource %q not profiled", opts.Resource))
	}

	if opts.Directive != "" {
		spans, err := st.ReadDirectiveSpans(ctx, id, opts.Directive)
		if err != nil {
			return WrapExitError(ExitCommandError, "failed to read spans", err)
		}
		res.Spans = spans
	}

	rec, err := st.ReadRunRecord(ctx, id)
	if err != nil {
		return WrapExitError(ExitCommandError, "failed to read run", err)
	}
	out := SimulateResult{Hash: rec.ResultsHash, Stored: true, Results: res}
	if formatter.JSON() {
		return formatter.Success(out)
	}
	writeResultsText(formatter.Writer, out)
	return nil
}

func writeProfileText(w io.Writer, out ProfileResult) {
	fmt.Fprintf(w, "%s %s:\n", out.RunID, out.Profile.Resource)
	for _, pt := range out.Profile.Points {
		fmt.Fprintf(w, "  %-10s %s\n", pt.At, ir.Format(pt.Value))
	}
}
