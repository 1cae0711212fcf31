package commands

import (
	"fmt"
	"io"
	"strings"

	"github.com/spf13/cobra"

	"github.com/openfroyo/agentcore/pkg/engine"
	"github.com/openfroyo/agentcore/pkg/manager"
	"github.com/openfroyo/agentcore/pkg/model"
	"github.com/openfroyo/agentcore/pkg/versions"
)

func newVersionCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "version",
		Short: "Manage immutable agent runtime versions",
		Long: `Manage immutable agent runtime versions.

Every deployment creates a new version (V1, V2, ...). Versions are never
edited; endpoints are repointed to promote or roll back. Subcommands act on
the default runtime of the environment unless --agent is given.`,
	}

	cmd.PersistentFlags().String("env", "", "environment (default: current)")
	cmd.PersistentFlags().String("agent", "", "agent runtime (default: the environment default)")

	cmd.AddCommand(newVersionListCommand())
	cmd.AddCommand(newVersionCreateCommand())
	cmd.AddCommand(newVersionOutcomeCommand("ready", "Mark a CREATING version as READY", engine.ProvisionReady))
	cmd.AddCommand(newVersionOutcomeCommand("fail", "Mark a CREATING version as FAILED", engine.ProvisionFailed))
	cmd.AddCommand(newVersionRefreshCommand())
	cmd.AddCommand(newVersionMarkDeletingCommand())
	cmd.AddCommand(newVersionDeleteCommand())

	return cmd
}

func agentFlag(cmd *cobra.Command) string {
	name, _ := cmd.Flags().GetString("agent")
	return name
}

// versionLabel names the version a result refers to.
func versionLabel(res *manager.MutationResult, fallback string) string {
	if res.Version != nil {
		return res.Version.VersionID
	}
	return fallback
}

func printVersions(w io.Writer, rt *model.AgentRuntime) {
	if len(rt.Versions) == 0 {
		fmt.Fprintln(w, "No versions")
		return
	}
	tw := newTable(w)
	fmt.Fprintln(tw, "VERSION\tSTATUS\tIMAGE\tENDPOINTS\tCREATED")
	for _, id := range rt.VersionIDs() {
		v := rt.Versions[id]
		image := v.ECRRepositoryName + ":" + v.ImageTag
		fmt.Fprintf(tw, "%s\t%s\t%s\t%s\t%s\n", id, v.Status, image,
			orDash(strings.Join(rt.EndpointsFor(id), ",")), v.CreatedAt.Format("2006-01-02 15:04:05"))
		if v.FailureReason != "" {
			fmt.Fprintf(tw, "\t\treason: %s\t\t\n", v.FailureReason)
		}
	}
	_ = tw.Flush()
}

func newVersionListCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "list",
		Short: "List versions of an agent runtime",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return withApp(cmd.Context(), func(a *app) error {
				mgr, err := a.newManager(cmd.Context(), false)
				if err != nil {
					return err
				}
				rt, err := mgr.GetAgentRuntime(cmd.Context(), envFlag(cmd), agentFlag(cmd))
				if err != nil {
					return err
				}
				if jsonOutput {
					return printJSON(cmd.OutOrStdout(), rt.Versions)
				}
				printVersions(cmd.OutOrStdout(), rt)
				return nil
			})
		},
	}
}

func newVersionCreateCommand() *cobra.Command {
	var (
		spec     versions.DeploymentSpec
		protocol string
	)

	cmd := &cobra.Command{
		Use:   "create",
		Short: "Create a new version in CREATING status",
		Long: `Create a new version of an agent runtime.

The version starts in CREATING status and becomes the latest version.
Endpoints are not moved, except that a runtime's first version becomes the
target of the DEFAULT endpoint. Environment variables of the environment are
merged under the ones given here.`,
		Example: `  agentcore version create --tag v2
  agentcore version create --agent support-bot --tag v3 --env-var MODEL=large`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			if protocol != "" {
				spec.Protocol = model.ServerProtocol(strings.ToUpper(protocol))
			}
			return withApp(cmd.Context(), func(a *app) error {
				mgr, err := a.newManager(cmd.Context(), false)
				if err != nil {
					return err
				}
				res, err := mgr.CreateVersion(cmd.Context(), envFlag(cmd), agentFlag(cmd), spec)
				if err != nil {
					return err
				}
				return report(cmd, res, "Created version %s (CREATING)", versionLabel(res, "?"))
			})
		},
	}

	cmd.Flags().StringVar(&spec.ImageTag, "tag", "", "container image tag")
	cmd.Flags().StringVar(&spec.ECRRepositoryName, "repo", "", "ECR repository (default: the runtime's primary repository)")
	cmd.Flags().StringVar(&spec.ExecutionRoleARN, "role-arn", "", "execution role ARN")
	cmd.Flags().StringVar(&protocol, "protocol", "", "server protocol (HTTP or MCP)")
	cmd.Flags().StringVar(&spec.Description, "description", "", "free-form description")
	cmd.Flags().StringToStringVar(&spec.EnvironmentVariables, "env-var", nil, "environment variables as KEY=VALUE")
	_ = cmd.MarkFlagRequired("tag")

	return cmd
}

func newVersionOutcomeCommand(use, short string, status engine.ProvisionStatus) *cobra.Command {
	var (
		remoteID  string
		remoteARN string
		reason    string
	)

	cmd := &cobra.Command{
		Use:   use + " <version>",
		Short: short,
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			outcome := engine.ProvisionOutcome{
				Status:        status,
				RemoteID:      remoteID,
				RemoteARN:     remoteARN,
				FailureReason: reason,
			}
			return withApp(cmd.Context(), func(a *app) error {
				mgr, err := a.newManager(cmd.Context(), false)
				if err != nil {
					return err
				}
				res, err := mgr.RecordOutcome(cmd.Context(), envFlag(cmd), agentFlag(cmd), args[0], outcome)
				if err != nil {
					return err
				}
				return report(cmd, res, "Version %s is %s", args[0], status)
			})
		},
	}

	cmd.Flags().StringVar(&remoteID, "runtime-id", "", "remote agent runtime id")
	cmd.Flags().StringVar(&remoteARN, "runtime-arn", "", "remote agent runtime ARN")
	if status == engine.ProvisionFailed {
		cmd.Flags().StringVar(&reason, "reason", "", "failure reason")
	}

	return cmd
}

func newVersionRefreshCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "refresh [version]",
		Short: "Poll the control plane and record a CREATING version's outcome",
		Long: `Ask the AgentCore control plane how a version's deployment went.

A version still CREATING is updated to READY or FAILED when the control plane
reports a terminal status. Versions in any other status are left alone. The
version defaults to the latest one.`,
		Args: cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			id := ""
			if len(args) > 0 {
				id = args[0]
			}
			return withApp(cmd.Context(), func(a *app) error {
				mgr, err := a.newManager(cmd.Context(), true)
				if err != nil {
					return err
				}
				res, err := mgr.RefreshVersionStatus(cmd.Context(), envFlag(cmd), agentFlag(cmd), id)
				if err != nil {
					return err
				}
				status := "unknown"
				if res.Version != nil {
					status = string(res.Version.Status)
				}
				return report(cmd, res, "Version %s is %s", versionLabel(res, id), status)
			})
		},
	}
}

func newVersionMarkDeletingCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "mark-deleting <version>",
		Short: "Flag an unreferenced version for removal",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return withApp(cmd.Context(), func(a *app) error {
				mgr, err := a.newManager(cmd.Context(), false)
				if err != nil {
					return err
				}
				res, err := mgr.MarkVersionDeleting(cmd.Context(), envFlag(cmd), agentFlag(cmd), args[0])
				if err != nil {
					return err
				}
				return report(cmd, res, "Version %s is DELETING", args[0])
			})
		},
	}
}

func newVersionDeleteCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "delete <version>",
		Short: "Delete a version no endpoint targets",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return withApp(cmd.Context(), func(a *app) error {
				mgr, err := a.newManager(cmd.Context(), false)
				if err != nil {
					return err
				}
				res, err := mgr.DeleteVersion(cmd.Context(), envFlag(cmd), agentFlag(cmd), args[0])
				if err != nil {
					return err
				}
				return report(cmd, res, "Deleted version %s", args[0])
			})
		},
	}
}
