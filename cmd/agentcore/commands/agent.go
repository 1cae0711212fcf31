package commands

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/openfroyo/agentcore/pkg/manager"
)

func newAgentCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:     "agent",
		Aliases: []string{"runtime"},
		Short:   "Manage agent runtimes",
	}

	cmd.PersistentFlags().String("env", "", "environment (default: current)")

	cmd.AddCommand(newAgentListCommand())
	cmd.AddCommand(newAgentShowCommand())
	cmd.AddCommand(newAgentAddCommand())
	cmd.AddCommand(newAgentRemoveCommand())
	cmd.AddCommand(newAgentDefaultCommand())

	return cmd
}

// envFlag reads the --env flag inherited from a parent command.
func envFlag(cmd *cobra.Command) string {
	env, _ := cmd.Flags().GetString("env")
	return env
}

func newAgentListCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "list",
		Short: "List agent runtimes",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return withApp(cmd.Context(), func(a *app) error {
				mgr, err := a.newManager(cmd.Context(), false)
				if err != nil {
					return err
				}
				env, err := mgr.GetEnvironment(cmd.Context(), envFlag(cmd))
				if err != nil {
					return err
				}
				runtimes, err := mgr.ListAgentRuntimes(cmd.Context(), env.Name)
				if err != nil {
					return err
				}
				if jsonOutput {
					return printJSON(cmd.OutOrStdout(), runtimes)
				}
				tw := newTable(cmd.OutOrStdout())
				fmt.Fprintln(tw, "\tNAME\tREPOSITORY\tLATEST\tVERSIONS\tRUNTIME ID")
				for _, rt := range runtimes {
					marker := ""
					if rt.Name == env.DefaultAgentRuntime {
						marker = "*"
					}
					fmt.Fprintf(tw, "%s\t%s\t%s\t%s\t%d\t%s\n", marker, rt.Name, rt.PrimaryECRRepository,
						orDash(rt.LatestVersion), len(rt.Versions), orDash(rt.AgentRuntimeID))
				}
				return tw.Flush()
			})
		},
	}
}

func newAgentShowCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "show [name]",
		Short: "Show an agent runtime (default: the environment default)",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			name := ""
			if len(args) > 0 {
				name = args[0]
			}
			return withApp(cmd.Context(), func(a *app) error {
				mgr, err := a.newManager(cmd.Context(), false)
				if err != nil {
					return err
				}
				rt, err := mgr.GetAgentRuntime(cmd.Context(), envFlag(cmd), name)
				if err != nil {
					return err
				}
				if jsonOutput {
					return printJSON(cmd.OutOrStdout(), rt)
				}
				w := cmd.OutOrStdout()
				fmt.Fprintf(w, "Agent runtime: %s\n", rt.Name)
				fmt.Fprintf(w, "Region:        %s\n", rt.Region)
				fmt.Fprintf(w, "Repository:    %s\n", rt.PrimaryECRRepository)
				fmt.Fprintf(w, "Runtime ID:    %s\n", orDash(rt.AgentRuntimeID))
				fmt.Fprintf(w, "Runtime ARN:   %s\n", orDash(rt.AgentRuntimeARN))
				fmt.Fprintf(w, "Latest:        %s\n", orDash(rt.LatestVersion))
				if rt.Description != "" {
					fmt.Fprintf(w, "Description:   %s\n", rt.Description)
				}
				printVersions(w, rt)
				return nil
			})
		},
	}
}

func newAgentAddCommand() *cobra.Command {
	var spec manager.RuntimeSpec

	cmd := &cobra.Command{
		Use:   "add <name>",
		Short: "Add an agent runtime",
		Long: `Add an agent runtime to an environment.

The repository must name an entry added with "agentcore repo add". The first
runtime of an environment becomes its default.`,
		Example: `  agentcore agent add support-bot --repo bot-repo --description "Support agent"`,
		Args:    cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			spec.Name = args[0]
			return withApp(cmd.Context(), func(a *app) error {
				mgr, err := a.newManager(cmd.Context(), false)
				if err != nil {
					return err
				}
				res, err := mgr.AddAgentRuntime(cmd.Context(), envFlag(cmd), spec)
				if err != nil {
					return err
				}
				return report(cmd, res, "Added agent runtime %s", spec.Name)
			})
		},
	}

	cmd.Flags().StringVar(&spec.PrimaryECRRepository, "repo", "", "primary ECR repository name")
	cmd.Flags().StringVar(&spec.Region, "region", "", "runtime region (default: the environment region)")
	cmd.Flags().StringVar(&spec.Description, "description", "", "free-form description")
	cmd.Flags().StringToStringVar(&spec.Tags, "tag", nil, "tags as key=value")
	_ = cmd.MarkFlagRequired("repo")

	return cmd
}

func newAgentRemoveCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "remove <name>",
		Short: "Remove an agent runtime and all its versions",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return withApp(cmd.Context(), func(a *app) error {
				mgr, err := a.newManager(cmd.Context(), false)
				if err != nil {
					return err
				}
				res, err := mgr.RemoveAgentRuntime(cmd.Context(), envFlag(cmd), args[0])
				if err != nil {
					return err
				}
				return report(cmd, res, "Removed agent runtime %s", args[0])
			})
		},
	}
}

func newAgentDefaultCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "default <name>",
		Short: "Set the default agent runtime of an environment",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return withApp(cmd.Context(), func(a *app) error {
				mgr, err := a.newManager(cmd.Context(), false)
				if err != nil {
					return err
				}
				res, err := mgr.SetDefaultAgentRuntime(cmd.Context(), envFlag(cmd), args[0])
				if err != nil {
					return err
				}
				return report(cmd, res, "Default agent runtime is %s", args[0])
			})
		},
	}
}
