package cli

import (
	"errors"
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/roach88/strata/internal/compiler"
	"github.com/roach88/strata/internal/ir"
)

// CompileOptions holds flags for the compile command.
type CompileOptions struct {
	*RootOptions
	Output string // output file path
}

// CompiledModel is one model in canonical IR with its content hash.
type CompiledModel struct {
	Hash  string        `json:"hash"`
	Model *ir.ModelSpec `json:"model"`
}

// CompilationResult holds the compiled models.
type CompilationResult struct {
	IRVersion string          `json:"ir_version"`
	Models    []CompiledModel `json:"models"`
}

// NewCompileCommand creates the compile command.
func NewCompileCommand(rootOpts *RootOptions) *cobra.Command {
	opts := &CompileOptions{RootOptions: rootOpts}

	cmd := &cobra.Command{
		Use:   "compile <model-dir>",
		Short: "Compile CUE models to canonical IR",
		Long: `Compile the CUE models in a directory to canonical IR.

Every struct under the top-level "model" field is compiled and hashed.
The model hash is the one recorded with every stored run.

Examples:
  strata compile ./models/orbiter
  strata compile ./models/orbiter -o orbiter.json`,
		Args:          cobra.ExactArgs(1),
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runCompile(opts, args[0], cmd)
		},
	}

	cmd.Flags().StringVarP(&opts.Output, "output", "o", "", "write canonical IR to this file")

	return cmd
}

func runCompile(opts *CompileOptions, dir string, cmd *cobra.Command) error {
	formatter := newFormatter(opts.RootOptions, cmd)

	loaded, errs := compiler.LoadModels(dir, compiler.LoadModeCollectAll)
	if loaded == nil || len(errs) > 0 {
		return outputLoadErrors(formatter, "compilation", errs)
	}
	formatter.VerboseLog("Found %d CUE file(s) in %s", loaded.FileCount, dir)

	result := CompilationResult{IRVersion: ir.IRVersion}
	for _, m := range loaded.Models {
		formatter.VerboseLog("Compiled model: %s", m.Name)
		hash, err := ir.ModelHash(m)
		if err != nil {
			return WrapExitError(ExitCommandError, "hashing model "+m.Name, err)
		}
		result.Models = append(result.Models, CompiledModel{Hash: hash, Model: m})
	}

	if opts.Output != "" {
		data, err := ir.Canonicalize(result)
		if err != nil {
			return WrapExitError(ExitCommandError, "encoding IR", err)
		}
		if err := os.WriteFile(opts.Output, data, 0o644); err != nil {
			_ = formatter.Error(compiler.ErrCodeGeneric, fmt.Sprintf("writing output file: %v", err), nil)
			return WrapExitError(ExitCommandError, "writing output file", err)
		}
	}

	if formatter.JSON() {
		return formatter.Success(result)
	}

	w := formatter.Writer
	fmt.Fprintf(w, "✓ Compiled %d model(s)\n\n", len(result.Models))
	for _, cm := range result.Models {
		fmt.Fprintf(w, "  %s: %d resource(s), %d activit(ies), %d daemon(s)\n",
			cm.Model.Name, len(cm.Model.Resources), len(cm.Model.Activities), len(cm.Model.Daemons))
		fmt.Fprintf(w, "    %s\n", cm.Hash)
	}
	if opts.Output != "" {
		fmt.Fprintf(w, "\nWrote canonical IR to %s\n", opts.Output)
	}
	return nil
}

// outputLoadErrors reports errors from compiler.LoadModels. A directory that
// cannot be read is a command error; a model that does not compile is a
// failure.
func outputLoadErrors(formatter *OutputFormatter, what string, errs []error) error {
	if len(errs) == 0 {
		errs = []error{errors.New("no models loaded")}
	}

	cliErrs := make([]CLIError, len(errs))
	code := ExitFailure
	for i, err := range errs {
		cliErrs[i] = CLIError{Code: compiler.ErrCodeGeneric, Message: err.Error()}
		var loadErr *compiler.LoadError
		if errors.As(err, &loadErr) {
			cliErrs[i] = CLIError{Code: loadErr.Code, Message: loadErr.Error()}
			switch loadErr.Code {
			case compiler.ErrCodeNotFound, compiler.ErrCodeScanError, compiler.ErrCodeNoFiles:
				code = ExitCommandError
			}
		}
	}

	if formatter.JSON() {
		if err := formatter.encode(CLIResponse{Status: "error", Data: cliErrs, Error: &cliErrs[0]}); err != nil {
			return err
		}
	} else {
		fmt.Fprintf(formatter.Writer, "✗ %s failed\n\n", what)
		for _, e := range cliErrs {
			fmt.Fprintf(formatter.Writer, "  %s\n", e.Message)
		}
	}
	return NewExitError(code, fmt.Sprintf("%s failed with %d error(s)", what, len(errs)))
}
