package commands

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/openfroyo/agentcore/pkg/model"
)

func newRoleCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "role",
		Short: "Manage shared IAM execution roles",
	}

	cmd.AddCommand(newRoleListCommand())
	cmd.AddCommand(newRoleAddCommand())
	cmd.AddCommand(newRoleRemoveCommand())

	return cmd
}

func newRoleListCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "list",
		Short: "List IAM roles",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return withApp(cmd.Context(), func(a *app) error {
				mgr, err := a.newManager(cmd.Context(), false)
				if err != nil {
					return err
				}
				doc, _, err := mgr.GetDocument(cmd.Context())
				if doc == nil {
					return err
				}
				roles := doc.GlobalResources.IAMRoles
				if jsonOutput {
					return printJSON(cmd.OutOrStdout(), roles)
				}
				tw := newTable(cmd.OutOrStdout())
				fmt.Fprintln(tw, "NAME\tARN\tDESCRIPTION")
				for _, name := range sortedNames(roles) {
					r := roles[name]
					fmt.Fprintf(tw, "%s\t%s\t%s\n", r.Name, orDash(r.ARN), orDash(r.Description))
				}
				return tw.Flush()
			})
		},
	}
}

func newRoleAddCommand() *cobra.Command {
	var role model.IAMRoleConfig

	cmd := &cobra.Command{
		Use:     "add <name>",
		Short:   "Register an IAM role",
		Example: `  agentcore role add runtime-exec --arn arn:aws:iam::123456789012:role/runtime-exec`,
		Args:    cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			role.Name = args[0]
			return withApp(cmd.Context(), func(a *app) error {
				mgr, err := a.newManager(cmd.Context(), false)
				if err != nil {
					return err
				}
				res, err := mgr.AddIAMRole(cmd.Context(), role)
				if err != nil {
					return err
				}
				return report(cmd, res, "Added IAM role %s", role.Name)
			})
		},
	}

	cmd.Flags().StringVar(&role.ARN, "arn", "", "role ARN")
	cmd.Flags().StringVar(&role.Path, "path", "", "role path")
	cmd.Flags().StringVar(&role.Region, "region", "", "region the role is used from")
	cmd.Flags().StringVar(&role.Description, "description", "", "free-form description")

	return cmd
}

func newRoleRemoveCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "remove <name>",
		Short: "Unregister an IAM role",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return withApp(cmd.Context(), func(a *app) error {
				mgr, err := a.newManager(cmd.Context(), false)
				if err != nil {
					return err
				}
				res, err := mgr.RemoveIAMRole(cmd.Context(), args[0])
				if err != nil {
					return err
				}
				return report(cmd, res, "Removed IAM role %s", args[0])
			})
		},
	}
}
