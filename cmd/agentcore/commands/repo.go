package commands

import (
	"fmt"
	"sort"
	"strings"

	"github.com/spf13/cobra"

	"github.com/openfroyo/agentcore/pkg/model"
)

func newRepoCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "repo",
		Short: "Manage shared ECR repositories",
	}

	cmd.AddCommand(newRepoListCommand())
	cmd.AddCommand(newRepoAddCommand())
	cmd.AddCommand(newRepoRemoveCommand())

	return cmd
}

func newRepoListCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "list",
		Short: "List ECR repositories",
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
				repos := doc.GlobalResources.ECRRepositories
				if jsonOutput {
					return printJSON(cmd.OutOrStdout(), repos)
				}
				tw := newTable(cmd.OutOrStdout())
				fmt.Fprintln(tw, "NAME\tREGION\tURI\tTAGS")
				for _, name := range sortedNames(repos) {
					r := repos[name]
					fmt.Fprintf(tw, "%s\t%s\t%s\t%s\n", r.Name, orDash(r.Region), orDash(r.RepositoryURI),
						orDash(strings.Join(r.AvailableTags, ",")))
				}
				return tw.Flush()
			})
		},
	}
}

func newRepoAddCommand() *cobra.Command {
	var repo model.ECRRepository

	cmd := &cobra.Command{
		Use:     "add <name>",
		Short:   "Register an ECR repository",
		Example: `  agentcore repo add bot-repo --uri 123456789012.dkr.ecr.us-west-2.amazonaws.com/bot-repo`,
		Args:    cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			repo.Name = args[0]
			if repo.ImageTagMutability != "" {
				repo.ImageTagMutability = strings.ToUpper(repo.ImageTagMutability)
			}
			return withApp(cmd.Context(), func(a *app) error {
				mgr, err := a.newManager(cmd.Context(), false)
				if err != nil {
					return err
				}
				res, err := mgr.AddECRRepository(cmd.Context(), repo)
				if err != nil {
					return err
				}
				return report(cmd, res, "Added ECR repository %s", repo.Name)
			})
		},
	}

	cmd.Flags().StringVar(&repo.RepositoryURI, "uri", "", "repository URI")
	cmd.Flags().StringVar(&repo.Region, "region", "", "repository region")
	cmd.Flags().StringVar(&repo.RegistryID, "registry-id", "", "registry (account) id")
	cmd.Flags().BoolVar(&repo.ImageScanOnPush, "scan-on-push", false, "scan images on push")
	cmd.Flags().StringVar(&repo.ImageTagMutability, "tag-mutability", "", "MUTABLE or IMMUTABLE")
	cmd.Flags().StringSliceVar(&repo.AvailableTags, "tags", nil, "known image tags")

	return cmd
}

func newRepoRemoveCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "remove <name>",
		Short: "Unregister an ECR repository",
		Long: `Unregister an ECR repository.

Runtimes and versions that still name the repository are reported as
warnings; the removal is committed anyway.`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return withApp(cmd.Context(), func(a *app) error {
				mgr, err := a.newManager(cmd.Context(), false)
				if err != nil {
					return err
				}
				res, err := mgr.RemoveECRRepository(cmd.Context(), args[0])
				if err != nil {
					return err
				}
				return report(cmd, res, "Removed ECR repository %s", args[0])
			})
		},
	}
}

func sortedNames[V any](m map[string]V) []string {
	names := make([]string, 0, len(m))
	for name := range m {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}
