package cli

import (
	"errors"
	"fmt"
	"io"
	"strings"

	"github.com/spf13/cobra"

	"github.com/pan-ssds/ptest/internal/store"
)

// HistoryOptions holds flags for the history command.
type HistoryOptions struct {
	*RootOptions
	Database string
	Limit    int
	Case     string
}

// NewHistoryCommand creates the history command.
func NewHistoryCommand(rootOpts *RootOptions) *cobra.Command {
	opts := &HistoryOptions{RootOptions: rootOpts}

	cmd := &cobra.Command{
		Use:   "history [run-id]",
		Short: "Show recorded runs",
		Long: `Show runs recorded with "ptest run --db", newest first.

With a run ID, show that run's soft assertions.

Examples:
  ptest history --db ./history.db
  ptest history --db ./history.db --case spin_motors --limit 5
  ptest history --db ./history.db 0192f3a4-...`,
		Args:          cobra.MaximumNArgs(1),
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return showHistory(opts, args, cmd)
		},
	}

	cmd.Flags().StringVar(&opts.Database, "db", "", "path to SQLite database (required)")
	cmd.Flags().IntVar(&opts.Limit, "limit", 20, "maximum runs to list (0 for all)")
	cmd.Flags().StringVar(&opts.Case, "case", "", "only list runs of this case")
	_ = cmd.MarkFlagRequired("db")

	return cmd
}

func showHistory(opts *HistoryOptions, args []string, cmd *cobra.Command) error {
	st, err := store.Open(opts.Database)
	if err != nil {
		return WrapExitError(ExitCommandError, "failed to open database", err)
	}
	defer st.Close()

	ctx := cmd.Context()
	out := opts.formatter(cmd)

	if len(args) == 1 {
		rec, err := st.ReadRun(ctx, args[0])
		if errors.Is(err, store.ErrNotFound) {
			return WrapExitError(ExitCommandError, "no such run", err)
		}
		if err != nil {
			return WrapExitError(ExitCommandError, "read run", err)
		}
		if out.IsJSON() {
			return out.Success(rec)
		}
		return writeRunRecord(out.Writer, rec)
	}

	var runs []store.RunRecord
	if opts.Case != "" {
		runs, err = st.ListCaseRuns(ctx, opts.Case, opts.Limit)
	} else {
		runs, err = st.ListRuns(ctx, opts.Limit)
	}
	if err != nil {
		return WrapExitError(ExitCommandError, "list runs", err)
	}

	if out.IsJSON() {
		return out.Success(runs)
	}
	if len(runs) == 0 {
		fmt.Fprintln(out.Writer, "No runs recorded.")
		return nil
	}

	w := out.Writer
	fmt.Fprintf(w, "%5s  %-36s  %-20s  %-7s  %s\n", "SEQ", "RUN", "CASE", "VERDICT", "FAILED")
	for _, r := range runs {
		fmt.Fprintf(w, "%5d  %-36s  %-20s  %-7s  %d/%d\n", r.Seq, r.ID, r.Case, r.Verdict, r.Failed, r.Assertions)
	}
	return nil
}

func writeRunRecord(w io.Writer, r store.RunRecord) error {
	var b strings.Builder

	fmt.Fprintf(&b, "case: %s\n", r.Case)
	fmt.Fprintf(&b, "run: %s (seq %d)\n", r.ID, r.Seq)
	fmt.Fprintf(&b, "satellites: %s\n", strings.Join(r.Satellites, ", "))
	fmt.Fprintf(&b, "state: %s\n", r.State)
	fmt.Fprintf(&b, "verdict: %s\n", r.Verdict)
	if len(r.Records) > 0 {
		b.WriteString("assertions:\n")
		for i, a := range r.Records {
			mark := "ok"
			if !a.Passed {
				mark = "FAIL"
			}
			where := fmt.Sprintf("cycle %d", a.Cycle)
			if a.Satellite != "" {
				where = a.Satellite + " " + where
			}
			fmt.Fprintf(&b, "  %3d %-4s [%s] %s\n", i+1, mark, where, a.Message)
		}
	}
	if r.ErrorKind != "" {
		fmt.Fprintf(&b, "error: %s: %s (cycle=%d)\n", r.ErrorKind, r.ErrorMessage, r.ErrorCycle)
	}

	_, err := io.WriteString(w, b.String())
	return err
}
