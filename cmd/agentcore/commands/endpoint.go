package commands

import (
	"fmt"

	"github.com/spf13/cobra"
)

func newEndpointCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "endpoint",
		Short: "Manage named endpoints of an agent runtime",
		Long: `Manage named endpoints of an agent runtime.

An endpoint is a stable name pointing at one version. Repointing an endpoint
is how a version is promoted or rolled back. The DEFAULT endpoint exists once
a runtime has a version and cannot be removed.`,
	}

	cmd.PersistentFlags().String("env", "", "environment (default: current)")
	cmd.PersistentFlags().String("agent", "", "agent runtime (default: the environment default)")

	cmd.AddCommand(newEndpointListCommand())
	cmd.AddCommand(newEndpointSetCommand())
	cmd.AddCommand(newEndpointRemoveCommand())
	cmd.AddCommand(newEndpointResolveCommand())

	return cmd
}

func newEndpointListCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "list",
		Short: "List endpoints and the versions they target",
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
					return printJSON(cmd.OutOrStdout(), rt.Endpoints)
				}
				tw := newTable(cmd.OutOrStdout())
				fmt.Fprintln(tw, "ENDPOINT\tVERSION\tSTATUS")
				for _, name := range sortedNames(rt.Endpoints) {
					target := rt.Endpoints[name]
					status := "missing"
					if v, ok := rt.Versions[target]; ok {
						status = string(v.Status)
					}
					fmt.Fprintf(tw, "%s\t%s\t%s\n", name, target, status)
				}
				return tw.Flush()
			})
		},
	}
}

func newEndpointSetCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "set <endpoint> <version>",
		Short: "Point an endpoint at a version, creating it if needed",
		Example: `  # Promote V3 to production
  agentcore endpoint set prod V3

  # Roll DEFAULT back
  agentcore endpoint set DEFAULT V1`,
		Args: cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			return withApp(cmd.Context(), func(a *app) error {
				mgr, err := a.newManager(cmd.Context(), false)
				if err != nil {
					return err
				}
				res, err := mgr.RepointEndpoint(cmd.Context(), envFlag(cmd), agentFlag(cmd), args[0], args[1])
				if err != nil {
					return err
				}
				return report(cmd, res, "Endpoint %s -> %s", args[0], args[1])
			})
		},
	}
}

func newEndpointRemoveCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "remove <endpoint>",
		Short: "Remove a named endpoint",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return withApp(cmd.Context(), func(a *app) error {
				mgr, err := a.newManager(cmd.Context(), false)
				if err != nil {
					return err
				}
				res, err := mgr.RemoveEndpoint(cmd.Context(), envFlag(cmd), agentFlag(cmd), args[0])
				if err != nil {
					return err
				}
				return report(cmd, res, "Removed endpoint %s", args[0])
			})
		},
	}
}

func newEndpointResolveCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "resolve [endpoint]",
		Short: "Print the container image an endpoint serves",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			endpoint := ""
			if len(args) > 0 {
				endpoint = args[0]
			}
			return withApp(cmd.Context(), func(a *app) error {
				mgr, err := a.newManager(cmd.Context(), false)
				if err != nil {
					return err
				}
				v, err := mgr.ResolveEndpoint(cmd.Context(), envFlag(cmd), agentFlag(cmd), endpoint)
				if err != nil {
					return err
				}
				uri, err := mgr.ContainerURI(cmd.Context(), envFlag(cmd), agentFlag(cmd), endpoint)
				if err != nil {
					return err
				}
				if jsonOutput {
					return printJSON(cmd.OutOrStdout(), map[string]interface{}{
						"version":       v,
						"container_uri": uri,
					})
				}
				fmt.Fprintf(cmd.OutOrStdout(), "%s\t%s\t%s\n", v.VersionID, v.Status, uri)
				return nil
			})
		},
	}
}
