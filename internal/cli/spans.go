package cli

import (
	"fmt"
	"io"
	"strings"

	"github.com/spf13/cobra"

	"github.com/roach88/strata/internal/queryir"
	"github.com/roach88/strata/internal/store"
)

// SpansOptions holds flags for the spans command.
type SpansOptions struct {
	*RootOptions
	Database string
	Where    []string // field=value filters, all of which must hold
}

// NewSpansCommand creates the spans command.
func NewSpansCommand(rootOpts *RootOptions) *cobra.Command {
	opts := &SpansOptions{RootOptions: rootOpts}

	cmd := &cobra.Command{
		Use:   "spans",
		Short: "Search task spans across stored runs",
		Long: `Search the task spans of every run stored in a database.

Each --where flag takes field=value. Fields are run, model, plan, task,
parent, directive, activity, start, end and status. Matches are listed in
the order runs were stored, then by task.

Examples:
  strata spans --db runs.db --where activity=Image
  strata spans --db runs.db --where plan=day-1 --where status=failed
  strata spans --db runs.db --where parent=1 --format json`,
		Args:          cobra.NoArgs,
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runSpans(opts, cmd)
		},
	}

	cmd.Flags().StringVar(&opts.Database, "db", rootOpts.Config.Database, "path to SQLite database (required) [$STRATA_DB]")
	cmd.Flags().StringArrayVar(&opts.Where, "where", nil, "filter as field=value (repeatable)")

	return cmd
}

// parseWhere turns field=value flags into a single predicate. No flags
// means no filter.
func parseWhere(where []string) (queryir.Predicate, error) {
	var preds []queryir.Predicate
	for _, w := range where {
		field, value, ok := strings.Cut(w, "=")
		if !ok || field == "" {
			return nil, fmt.Errorf("invalid filter %q: expected field=value", w)
		}
		p, err := store.SpanFilter(field, value)
		if err != nil {
			return nil, err
		}
		preds = append(preds, p)
	}
	switch len(preds) {
	case 0:
		return nil, nil
	case 1:
		return preds[0], nil
	}
	return queryir.And{Predicates: preds}, nil
}

func runSpans(opts *SpansOptions, cmd *cobra.Command) error {
	formatter := newFormatter(opts.RootOptions, cmd)

	filter, err := parseWhere(opts.Where)
	if err != nil {
		_ = formatter.Error(ErrCodeInvalidFilter, err.Error(), nil)
		return WrapExitError(ExitCommandError, "invalid filter", err)
	}

	st, err := openExistingStore(opts.Database)
	if err != nil {
		return err
	}
	defer st.Close()

	matches, err := st.FindSpans(commandContext(cmd), filter)
	if err != nil {
		return WrapExitError(ExitCommandError, "failed to search spans", err)
	}

	if formatter.JSON() {
		return formatter.Success(matches)
	}
	writeSpansText(formatter.Writer, matches)
	return nil
}

func writeSpansText(w io.Writer, matches []store.SpanMatch) {
	if len(matches) == 0 {
		fmt.Fprintln(w, "No matching spans.")
		return
	}
	for _, m := range matches {
		sp := m.Span
		label := sp.Activity
		if sp.Directive != "" {
			label += " (" + sp.Directive + ")"
		}
		fmt.Fprintf(w, "%s  [%d] %-28s %-10s %s..%s\n", m.RunID, sp.Task, label, sp.Status, sp.Start, sp.End)
	}
}
