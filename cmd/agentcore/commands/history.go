package commands

import (
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"github.com/openfroyo/agentcore/pkg/engine"
	"github.com/openfroyo/agentcore/pkg/stores"
)

func newHistoryCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "history",
		Short: "Inspect the sync journal and audit trail",
		Long: `Inspect the local journal database.

Every push, pull, status and auto sync run is recorded with the states it
went through, and every committed mutation leaves an audit entry.`,
	}

	cmd.AddCommand(newHistoryRunsCommand())
	cmd.AddCommand(newHistoryShowCommand())
	cmd.AddCommand(newHistoryAuditCommand())
	cmd.AddCommand(newHistoryPruneCommand())

	return cmd
}

// requireJournal returns the journal or a precondition error when it is off.
func requireJournal(a *app) (*stores.SQLiteStore, error) {
	if a.journal == nil {
		return nil, engine.NewPreconditionError(engine.ErrCodeNotFound,
			"the sync journal is disabled or unavailable (see journal.enabled in the settings)")
	}
	return a.journal, nil
}

func optional(s string) *string {
	if s == "" {
		return nil
	}
	return &s
}

func newHistoryRunsCommand() *cobra.Command {
	var (
		operation string
		limit     int
		offset    int
	)

	cmd := &cobra.Command{
		Use:   "runs",
		Short: "List sync runs, newest first",
		Example: `  agentcore history runs --operation push --limit 5`,
		Args:    cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return withApp(cmd.Context(), func(a *app) error {
				journal, err := requireJournal(a)
				if err != nil {
					return err
				}
				runs, err := journal.ListSyncRuns(cmd.Context(), optional(operation), limit, offset)
				if err != nil {
					return err
				}
				if jsonOutput {
					return printJSON(cmd.OutOrStdout(), runs)
				}
				tw := newTable(cmd.OutOrStdout())
				fmt.Fprintln(tw, "ID\tOPERATION\tSTATE\tDRIFT\tSTARTED\tDURATION")
				for _, r := range runs {
					fmt.Fprintf(tw, "%s\t%s\t%s\t+%d -%d ~%d\t%s\t%s\n", r.ID, r.Operation, r.FinalState,
						r.Added, r.Removed, r.Changed, r.StartedAt.Local().Format("2006-01-02 15:04:05"), r.Duration())
				}
				return tw.Flush()
			})
		},
	}

	cmd.Flags().StringVar(&operation, "operation", "", "filter by operation (push, pull, status, auto)")
	cmd.Flags().IntVar(&limit, "limit", 20, "maximum number of runs")
	cmd.Flags().IntVar(&offset, "offset", 0, "number of runs to skip")

	return cmd
}

func newHistoryShowCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "show <run-id>",
		Short: "Show one sync run",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return withApp(cmd.Context(), func(a *app) error {
				journal, err := requireJournal(a)
				if err != nil {
					return err
				}
				run, err := journal.GetSyncRun(cmd.Context(), args[0])
				if err != nil {
					return err
				}
				if jsonOutput {
					return printJSON(cmd.OutOrStdout(), run)
				}
				w := cmd.OutOrStdout()
				fmt.Fprintf(w, "Run:        %s\n", run.ID)
				fmt.Fprintf(w, "Operation:  %s\n", run.Operation)
				fmt.Fprintf(w, "Backend:    %s\n", run.Backend)
				fmt.Fprintf(w, "Remote key: %s\n", orDash(run.RemoteKey))
				fmt.Fprintf(w, "States:     %s\n", strings.Join(run.States, " -> "))
				fmt.Fprintf(w, "Drift:      %d added, %d removed, %d changed\n", run.Added, run.Removed, run.Changed)
				fmt.Fprintf(w, "Forced:     %t\n", run.Forced)
				fmt.Fprintf(w, "Started:    %s\n", run.StartedAt.Local().Format("2006-01-02 15:04:05"))
				fmt.Fprintf(w, "Duration:   %s\n", run.Duration())
				if run.Error != nil {
					fmt.Fprintf(w, "Error:      %s\n", *run.Error)
				}
				return nil
			})
		},
	}
}

func newHistoryAuditCommand() *cobra.Command {
	var (
		action string
		actor  string
		limit  int
		offset int
	)

	cmd := &cobra.Command{
		Use:   "audit",
		Short: "List audit entries, newest first",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return withApp(cmd.Context(), func(a *app) error {
				journal, err := requireJournal(a)
				if err != nil {
					return err
				}
				entries, err := journal.ListAuditEntries(cmd.Context(), optional(action), optional(actor), limit, offset)
				if err != nil {
					return err
				}
				if jsonOutput {
					return printJSON(cmd.OutOrStdout(), entries)
				}
				tw := newTable(cmd.OutOrStdout())
				fmt.Fprintln(tw, "TIME\tACTOR\tACTION\tRESOURCE")
				for _, e := range entries {
					resource := ""
					if e.Resource != nil {
						resource = *e.Resource
					}
					fmt.Fprintf(tw, "%s\t%s\t%s\t%s\n", e.Timestamp.Local().Format("2006-01-02 15:04:05"),
						e.Actor, e.Action, orDash(resource))
				}
				return tw.Flush()
			})
		},
	}

	cmd.Flags().StringVar(&action, "action", "", "filter by action (e.g. CreateVersion)")
	cmd.Flags().StringVar(&actor, "actor", "", "filter by actor")
	cmd.Flags().IntVar(&limit, "limit", 50, "maximum number of entries")
	cmd.Flags().IntVar(&offset, "offset", 0, "number of entries to skip")

	return cmd
}

func newHistoryPruneCommand() *cobra.Command {
	var keep int

	cmd := &cobra.Command{
		Use:   "prune",
		Short: "Delete old sync runs",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return withApp(cmd.Context(), func(a *app) error {
				journal, err := requireJournal(a)
				if err != nil {
					return err
				}
				n, err := journal.PruneSyncRuns(cmd.Context(), keep)
				if err != nil {
					return err
				}
				if jsonOutput {
					return printJSON(cmd.OutOrStdout(), map[string]int64{"deleted": n})
				}
				fmt.Fprintf(cmd.OutOrStdout(), "✓ Deleted %d runs, kept the newest %d\n", n, keep)
				return nil
			})
		},
	}

	cmd.Flags().IntVar(&keep, "keep", 100, "number of newest runs to keep")

	return cmd
}
