package commands

import (
	"fmt"
	"io"

	"github.com/spf13/cobra"

	"github.com/openfroyo/agentcore/pkg/drift"
	"github.com/openfroyo/agentcore/pkg/engine"
	"github.com/openfroyo/agentcore/pkg/localstore"
	"github.com/openfroyo/agentcore/pkg/syncer"
)

func newSyncCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "sync",
		Short: "Synchronize the document with its remote copy",
		Long: `Synchronize the configuration document with its remote copy.

The remote copy lives in the configured backend (SSM Parameter Store by
default) under "<parameter_store_prefix>/config". Push refuses to discard
entities that exist only remotely unless --force is given; pull replaces the
local document with a validated remote copy.`,
	}

	cmd.AddCommand(newSyncStatusCommand())
	cmd.AddCommand(newSyncPushCommand())
	cmd.AddCommand(newSyncPullCommand())
	cmd.AddCommand(newSyncEnableCommand())
	cmd.AddCommand(newSyncDisableCommand())
	cmd.AddCommand(newSyncIntervalCommand())
	cmd.AddCommand(newSyncPrefixCommand())
	cmd.AddCommand(newSyncWatchCommand())

	return cmd
}

func printReport(w io.Writer, report *drift.Report) {
	if report.Empty() {
		fmt.Fprintln(w, "No drift")
		return
	}
	fmt.Fprintf(w, "Drift: %s\n", report.Summary())
	for _, c := range report.Changes {
		switch c.Kind {
		case drift.ChangeAdded:
			fmt.Fprintf(w, "  + %s (remote only)\n", c.Path)
		case drift.ChangeRemoved:
			fmt.Fprintf(w, "  - %s (local only)\n", c.Path)
		default:
			fmt.Fprintf(w, "  ~ %s: %v -> %v\n", c.Path, c.Old, c.New)
		}
	}
}

func newSyncStatusCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "status",
		Short: "Compare the local document with the remote copy",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return withApp(cmd.Context(), func(a *app) error {
				e, err := a.syncEngine(cmd.Context())
				if err != nil {
					return err
				}
				status, err := e.Status(cmd.Context())
				if err != nil {
					return err
				}
				if jsonOutput {
					return printJSON(cmd.OutOrStdout(), status)
				}
				w := cmd.OutOrStdout()
				fmt.Fprintf(w, "Cloud sync:  %t (auto: %t, every %d minutes)\n", status.CloudEnabled, status.AutoSync, status.Interval)
				fmt.Fprintf(w, "Remote key:  %s\n", status.Run.RemoteKey)
				fmt.Fprintf(w, "Last push:   %s\n", formatTime(status.LastPush))
				fmt.Fprintf(w, "Last pull:   %s\n", formatTime(status.LastPull))
				if !status.RemoteExists {
					fmt.Fprintln(w, "Remote copy does not exist yet; run \"agentcore sync push\"")
					return nil
				}
				if status.InSync {
					fmt.Fprintln(w, "✓ In sync")
					return nil
				}
				printReport(w, status.Report)
				return nil
			})
		},
	}
}

func newSyncPushCommand() *cobra.Command {
	var force bool

	cmd := &cobra.Command{
		Use:   "push",
		Short: "Write the local document to the remote copy",
		Example: `  agentcore sync push
  agentcore sync push --force`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return withApp(cmd.Context(), func(a *app) error {
				e, err := a.syncEngine(cmd.Context())
				if err != nil {
					return err
				}
				run, err := e.Push(cmd.Context(), syncer.PushOptions{Force: force})
				if err != nil {
					if engine.IsSyncConflict(err) && run != nil && !jsonOutput {
						printReport(cmd.ErrOrStderr(), run.Report)
						fmt.Fprintln(cmd.ErrOrStderr(), "Run \"agentcore sync pull\" first, or push with --force to discard the remote-only entries.")
					}
					return err
				}
				if jsonOutput {
					return printJSON(cmd.OutOrStdout(), run)
				}
				printReport(cmd.OutOrStdout(), run.Report)
				fmt.Fprintf(cmd.OutOrStdout(), "✓ Pushed to %s\n", run.RemoteKey)
				return nil
			})
		},
	}

	cmd.Flags().BoolVar(&force, "force", false, "overwrite remote-only changes")

	return cmd
}

func newSyncPullCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "pull",
		Short: "Replace the local document with the remote copy",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return withApp(cmd.Context(), func(a *app) error {
				e, err := a.syncEngine(cmd.Context())
				if err != nil {
					return err
				}
				run, err := e.Pull(cmd.Context())
				if err != nil {
					return err
				}
				if jsonOutput {
					return printJSON(cmd.OutOrStdout(), run)
				}
				printReport(cmd.OutOrStdout(), run.Report)
				fmt.Fprintf(cmd.OutOrStdout(), "✓ Pulled from %s\n", run.RemoteKey)
				return nil
			})
		},
	}
}

// reportCommit prints a settings change made directly through the store.
func reportCommit(cmd *cobra.Command, commit *localstore.Commit, msg string) error {
	if jsonOutput {
		return printJSON(cmd.OutOrStdout(), commit)
	}
	w := cmd.OutOrStdout()
	if commit.Changed {
		fmt.Fprintf(w, "✓ %s\n", msg)
	} else {
		fmt.Fprintf(w, "• %s (no change)\n", msg)
	}
	printWarnings(w, commit.Warnings)
	return nil
}

func newSyncEnableCommand() *cobra.Command {
	var auto bool

	cmd := &cobra.Command{
		Use:   "enable",
		Short: "Enable cloud sync",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return withApp(cmd.Context(), func(a *app) error {
				e, err := a.syncEngine(cmd.Context())
				if err != nil {
					return err
				}
				commit, err := e.Enable(cmd.Context(), auto)
				if err != nil {
					return err
				}
				if auto {
					return reportCommit(cmd, commit, "Cloud sync enabled with auto sync")
				}
				return reportCommit(cmd, commit, "Cloud sync enabled")
			})
		},
	}

	cmd.Flags().BoolVar(&auto, "auto", false, "push automatically after mutations")

	return cmd
}

func newSyncDisableCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "disable",
		Short: "Disable cloud sync and auto sync",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return withApp(cmd.Context(), func(a *app) error {
				e, err := a.syncEngine(cmd.Context())
				if err != nil {
					return err
				}
				commit, err := e.Disable(cmd.Context())
				if err != nil {
					return err
				}
				return reportCommit(cmd, commit, "Cloud sync disabled")
			})
		},
	}
}

func newSyncIntervalCommand() *cobra.Command {
	var minutes int

	cmd := &cobra.Command{
		Use:   "interval",
		Short: "Set the auto sync interval",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return withApp(cmd.Context(), func(a *app) error {
				e, err := a.syncEngine(cmd.Context())
				if err != nil {
					return err
				}
				commit, err := e.SetInterval(cmd.Context(), minutes)
				if err != nil {
					return err
				}
				return reportCommit(cmd, commit, fmt.Sprintf("Auto sync interval is %d minutes", minutes))
			})
		},
	}

	cmd.Flags().IntVar(&minutes, "minutes", 0, "interval in minutes")
	_ = cmd.MarkFlagRequired("minutes")

	return cmd
}

func newSyncPrefixCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "prefix <prefix>",
		Short: "Set the remote key prefix",
		Example: `  agentcore sync prefix /teams/support/agentcore`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return withApp(cmd.Context(), func(a *app) error {
				e, err := a.syncEngine(cmd.Context())
				if err != nil {
					return err
				}
				commit, err := e.SetPrefix(cmd.Context(), args[0])
				if err != nil {
					return err
				}
				return reportCommit(cmd, commit, "Remote prefix is "+args[0])
			})
		},
	}
}

func newSyncWatchCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "watch",
		Short: "Auto sync whenever the local document changes",
		Long: `Watch the local document and run auto sync after each change.

A push happens only when cloud sync and auto sync are enabled and the
interval has elapsed since the last full sync. Metrics are served while
watching when telemetry.metrics.enabled is set.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			return withApp(ctx, func(a *app) error {
				e, err := a.syncEngine(ctx)
				if err != nil {
					return err
				}
				a.tel.Metrics.StartMetricsServer(ctx, a.logger)
				fmt.Fprintf(cmd.OutOrStdout(), "Watching %s (Ctrl+C to stop)\n", a.store.Path())
				return e.Watch(ctx, a.settings.Watch.Debounce)
			})
		},
	}
}
