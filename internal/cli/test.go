package cli

import (
	"fmt"
	"path/filepath"
	"strings"

	"github.com/spf13/cobra"

	"github.com/roach88/strata/internal/harness"
)

// TestOptions holds flags for the test command.
type TestOptions struct {
	*RootOptions
	Filter   string // scenario file name filter (glob pattern)
	Parallel int
	MaxSteps int
}

// NewTestCommand creates the test command.
func NewTestCommand(rootOpts *RootOptions) *cobra.Command {
	opts := &TestOptions{RootOptions: rootOpts}

	cmd := &cobra.Command{
		Use:   "test <scenario-path>...",
		Short: "Run simulation scenarios",
		Long: `Run YAML simulation scenarios and check their assertions.

Each path is a scenario file or a directory searched for .yaml and .yml
files. Scenarios name their model directory relative to the scenario
file, carry their plan inline, and run under a fixed run ID.

Exit codes:
  0 - All scenarios passed
  1 - One or more scenarios failed
  2 - Command error (invalid paths, etc.)

Examples:
  strata test ./scenarios
  strata test ./scenarios --filter "mode_*" --parallel 4
  strata test ./scenarios/single_image.yaml --format json`,
		Args:          cobra.MinimumNArgs(1),
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runTests(opts, args, cmd)
		},
	}

	cfg := rootOpts.Config
	cmd.Flags().StringVar(&opts.Filter, "filter", "", "filter scenario files by glob pattern on the file name without extension")
	cmd.Flags().IntVarP(&opts.Parallel, "parallel", "p", cfg.Parallel, "scenarios run at once [$STRATA_PARALLEL]")
	cmd.Flags().IntVar(&opts.MaxSteps, "max-steps", cfg.MaxSteps, "task steps allowed per instant [$STRATA_MAX_STEPS]")

	return cmd
}

func runTests(opts *TestOptions, paths []string, cmd *cobra.Command) error {
	formatter := newFormatter(opts.RootOptions, cmd)

	files, err := harness.FindScenarios(paths...)
	if err != nil {
		_ = formatter.Error(ErrCodeTestFailed, err.Error(), nil)
		return WrapExitError(ExitCommandError, "finding scenarios", err)
	}
	files, err = filterScenarios(files, opts.Filter)
	if err != nil {
		return WrapExitError(ExitCommandError, "invalid filter pattern", err)
	}
	formatter.VerboseLog("Found %d scenario file(s)", len(files))

	h := harness.New(
		harness.WithLogger(opts.Logger(cmd)),
		harness.WithMaxSteps(opts.MaxSteps),
	)
	result, err := h.RunSuite(commandContext(cmd), files, opts.Parallel)
	if err != nil {
		return WrapExitError(ExitCommandError, "running scenarios", err)
	}

	if formatter.JSON() {
		if result.Failed == 0 {
			return formatter.Success(result)
		}
		if err := formatter.Failure(ErrCodeTestFailed, fmt.Sprintf("%d scenario(s) failed", result.Failed), result); err != nil {
			return err
		}
		return NewExitError(ExitFailure, fmt.Sprintf("%d scenario(s) failed", result.Failed))
	}

	w := formatter.Writer
	if result.Total == 0 {
		fmt.Fprintln(w, "No scenarios found.")
		return nil
	}
	for _, o := range result.Outcomes {
		name := o.Scenario
		if name == "" {
			name = filepath.Base(o.Path)
		}
		if o.Pass {
			fmt.Fprintf(w, "✓ %s\n", name)
			continue
		}
		fmt.Fprintf(w, "✗ %s\n", name)
		for _, e := range o.Errors {
			for _, line := range strings.Split(strings.TrimRight(e, "\n"), "\n") {
				fmt.Fprintf(w, "  %s\n", line)
			}
		}
	}

	fmt.Fprintln(w)
	fmt.Fprintf(w, "Test Summary: %d passed, %d failed, %d total\n", result.Passed, result.Failed, result.Total)
	if result.Failed > 0 {
		return NewExitError(ExitFailure, fmt.Sprintf("%d scenario(s) failed", result.Failed))
	}
	fmt.Fprintln(w, "✓ All scenarios passed")
	return nil
}

// filterScenarios keeps the files whose name, without extension, matches
// pattern. An empty pattern keeps every file.
func filterScenarios(files []string, pattern string) ([]string, error) {
	if pattern == "" {
		return files, nil
	}
	var out []string
	for _, f := range files {
		base := filepath.Base(f)
		name := strings.TrimSuffix(base, filepath.Ext(base))
		matched, err := filepath.Match(pattern, name)
		if err != nil {
			return nil, err
		}
		if matched {
			out = append(out, f)
		}
	}
	return out, nil
}
