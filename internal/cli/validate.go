package cli

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/roach88/strata/internal/compiler"
	"github.com/roach88/strata/internal/plan"
)

// ValidateOptions holds flags for the validate command.
type ValidateOptions struct {
	*RootOptions
	Plans []string
	Model string
}

// ValidationResult holds validation results.
type ValidationResult struct {
	Valid    bool                       `json:"valid"`
	Models   []string                   `json:"models"`
	Errors   []compiler.ValidationError `json:"errors,omitempty"`
	Warnings []compiler.CycleWarning    `json:"warnings,omitempty"`
}

// NewValidateCommand creates the validate command.
func NewValidateCommand(rootOpts *RootOptions) *cobra.Command {
	opts := &ValidateOptions{RootOptions: rootOpts}

	cmd := &cobra.Command{
		Use:   "validate <model-dir>",
		Short: "Validate models and plans without simulating",
		Long: `Validate the CUE models in a directory, and optionally plans against them.

Checks resource and activity references, parameter use and step
operands, and reports activities that spawn or call each other in a
cycle. Cycles are warnings: a wait_until in the loop may break them.

Examples:
  strata validate ./models/orbiter
  strata validate ./models/orbiter --plan day-1.yaml --plan day-2.yaml`,
		Args:          cobra.ExactArgs(1),
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runValidate(opts, args[0], cmd)
		},
	}

	cmd.Flags().StringArrayVar(&opts.Plans, "plan", nil, "plan file to validate against the model (repeatable)")
	cmd.Flags().StringVar(&opts.Model, "model", "", "model to validate plans against when the directory declares several")

	return cmd
}

func runValidate(opts *ValidateOptions, dir string, cmd *cobra.Command) error {
	formatter := newFormatter(opts.RootOptions, cmd)

	loaded, errs := compiler.LoadModels(dir, compiler.LoadModeCollectAll)
	if loaded == nil || len(errs) > 0 {
		return outputLoadErrors(formatter, "validation", errs)
	}

	result := ValidationResult{Valid: true}
	for _, m := range loaded.Models {
		formatter.VerboseLog("Validating model: %s", m.Name)
		result.Models = append(result.Models, m.Name)
		result.Errors = append(result.Errors, compiler.Validate(m)...)
		result.Warnings = append(result.Warnings, compiler.AnalyzeCycles(m)...)
	}

	if len(opts.Plans) > 0 && len(result.Errors) == 0 {
		model, err := loaded.Model(opts.Model)
		if err != nil {
			_ = formatter.Error(compiler.ErrCodeNoModel, err.Error(), nil)
			return WrapExitError(ExitCommandError, "selecting model", err)
		}
		for _, path := range opts.Plans {
			formatter.VerboseLog("Validating plan: %s", path)
			p, err := plan.Load(path)
			if err != nil {
				_ = formatter.Error(compiler.ErrCodeLoadFailed, err.Error(), nil)
				return WrapExitError(ExitCommandError, "loading plan", err)
			}
			for _, ve := range compiler.ValidatePlan(model, p) {
				ve.Field = path + ": " + ve.Field
				result.Errors = append(result.Errors, ve)
			}
		}
	}
	result.Valid = len(result.Errors) == 0

	if formatter.JSON() {
		if result.Valid {
			return formatter.Success(result)
		}
		if err := formatter.Failure(result.Errors[0].Code, result.Errors[0].Message, result); err != nil {
			return err
		}
		return NewExitError(ExitFailure, fmt.Sprintf("validation failed with %d error(s)", len(result.Errors)))
	}

	w := formatter.Writer
	for _, warn := range result.Warnings {
		fmt.Fprintf(w, "%s: %s\n", warn.Level, warn.Message)
	}
	if result.Valid {
		fmt.Fprintf(w, "✓ %d model(s) valid\n", len(result.Models))
		return nil
	}

	fmt.Fprintln(w, "✗ Validation failed")
	fmt.Fprintln(w)
	for _, ve := range result.Errors {
		if ve.Line > 0 {
			fmt.Fprintf(w, "line %d\n", ve.Line)
		}
		fmt.Fprintf(w, "  %s: %s: %s\n\n", ve.Code, ve.Field, ve.Message)
	}
	return NewExitError(ExitFailure, fmt.Sprintf("validation failed with %d error(s)", len(result.Errors)))
}
