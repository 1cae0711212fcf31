package commands

import (
	"context"
	"fmt"

	"github.com/spf13/cobra"
)

var (
	// Global flags
	settingsPath string
	verbose      bool
	jsonOutput   bool
)

// Execute runs the root command
func Execute(ctx context.Context, version, commit, buildDate string) error {
	rootCmd := newRootCommand(version, commit, buildDate)
	return rootCmd.ExecuteContext(ctx)
}

func newRootCommand(version, commit, buildDate string) *cobra.Command {
	rootCmd := &cobra.Command{
		Use:   "agentcore",
		Short: "Environment-scoped agent runtime configuration with cloud sync",
		Long: `agentcore manages the configuration of agent runtimes across environments.

Features:
  - Environments bound to a region, each with its own agent runtimes
  - Immutable runtime versions addressed through movable endpoints
  - Shared ECR repositories and IAM roles referenced by name
  - Drift detection and push/pull sync with a remote mirror
    (SSM Parameter Store, S3 or Redis, optionally age-encrypted)
  - Policy guardrails evaluated before every push`,
		Version:       fmt.Sprintf("%s (commit: %s, built: %s)", version, commit, buildDate),
		SilenceUsage:  true,
		SilenceErrors: true,
	}

	rootCmd.PersistentFlags().StringVar(&settingsPath, "settings", "", "settings file path (default ~/.agentcore/settings.yaml)")
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "enable verbose output")
	rootCmd.PersistentFlags().BoolVar(&jsonOutput, "json", false, "output in JSON format")

	rootCmd.AddCommand(newInitCommand())
	rootCmd.AddCommand(newEnvCommand())
	rootCmd.AddCommand(newAgentCommand())
	rootCmd.AddCommand(newVersionCommand())
	rootCmd.AddCommand(newEndpointCommand())
	rootCmd.AddCommand(newRepoCommand())
	rootCmd.AddCommand(newRoleCommand())
	rootCmd.AddCommand(newSyncCommand())
	rootCmd.AddCommand(newValidateCommand())
	rootCmd.AddCommand(newHistoryCommand())
	rootCmd.AddCommand(newExportCommand())
	rootCmd.AddCommand(newImportCommand())

	return rootCmd
}
