package commands

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/openfroyo/agentcore/pkg/model"
)

func newEnvCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "env",
		Short: "Manage environments",
		Long: `Manage environments.

An environment is bound to one region and owns its agent runtimes and
environment variables. Commands that take --env default to the current
environment.`,
	}

	cmd.AddCommand(newEnvListCommand())
	cmd.AddCommand(newEnvShowCommand())
	cmd.AddCommand(newEnvAddCommand())
	cmd.AddCommand(newEnvRemoveCommand())
	cmd.AddCommand(newEnvUseCommand())
	cmd.AddCommand(newEnvSetVarCommand())
	cmd.AddCommand(newEnvUnsetVarCommand())
	cmd.AddCommand(newEnvCognitoCommand())

	return cmd
}

func newEnvListCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "list",
		Short: "List environments",
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
				if jsonOutput {
					return printJSON(cmd.OutOrStdout(), doc.Environments)
				}
				tw := newTable(cmd.OutOrStdout())
				fmt.Fprintln(tw, "\tNAME\tREGION\tRUNTIMES\tDEFAULT RUNTIME")
				for _, name := range doc.EnvironmentNames() {
					env := doc.Environments[name]
					marker := ""
					if name == doc.CurrentEnvironment {
						marker = "*"
					}
					fmt.Fprintf(tw, "%s\t%s\t%s\t%d\t%s\n", marker, name, env.Region, len(env.AgentRuntimes), orDash(env.DefaultAgentRuntime))
				}
				return tw.Flush()
			})
		},
	}
}

func newEnvShowCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "show [name]",
		Short: "Show an environment (default: current)",
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
				env, err := mgr.GetEnvironment(cmd.Context(), name)
				if err != nil {
					return err
				}
				if jsonOutput {
					return printJSON(cmd.OutOrStdout(), env)
				}
				w := cmd.OutOrStdout()
				fmt.Fprintf(w, "Environment: %s\n", env.Name)
				fmt.Fprintf(w, "Region:      %s\n", env.Region)
				fmt.Fprintf(w, "Default:     %s\n", orDash(env.DefaultAgentRuntime))
				fmt.Fprintf(w, "Runtimes:    %v\n", env.RuntimeNames())
				if len(env.EnvironmentVariables) > 0 {
					fmt.Fprintln(w, "Variables:")
					for _, k := range sortedNames(env.EnvironmentVariables) {
						fmt.Fprintf(w, "  %s=%s\n", k, env.EnvironmentVariables[k])
					}
				}
				if env.Cognito != nil {
					fmt.Fprintf(w, "Cognito:     user pool %s\n", orDash(env.Cognito.UserPoolID))
				}
				return nil
			})
		},
	}
}

func newEnvAddCommand() *cobra.Command {
	var region string

	cmd := &cobra.Command{
		Use:   "add <name>",
		Short: "Add an environment",
		Example: `  agentcore env add staging --region eu-west-1`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return withApp(cmd.Context(), func(a *app) error {
				mgr, err := a.newManager(cmd.Context(), false)
				if err != nil {
					return err
				}
				res, err := mgr.AddEnvironment(cmd.Context(), args[0], region)
				if err != nil {
					return err
				}
				return report(cmd, res, "Added environment %s (%s)", args[0], region)
			})
		},
	}

	cmd.Flags().StringVar(&region, "region", "", "AWS region of the environment")
	_ = cmd.MarkFlagRequired("region")

	return cmd
}

func newEnvRemoveCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "remove <name>",
		Short: "Remove an environment and its runtimes",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return withApp(cmd.Context(), func(a *app) error {
				mgr, err := a.newManager(cmd.Context(), false)
				if err != nil {
					return err
				}
				res, err := mgr.RemoveEnvironment(cmd.Context(), args[0])
				if err != nil {
					return err
				}
				return report(cmd, res, "Removed environment %s", args[0])
			})
		},
	}
}

func newEnvUseCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "use <name>",
		Short: "Switch the current environment",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return withApp(cmd.Context(), func(a *app) error {
				mgr, err := a.newManager(cmd.Context(), false)
				if err != nil {
					return err
				}
				res, err := mgr.SetCurrentEnvironment(cmd.Context(), args[0])
				if err != nil {
					return err
				}
				return report(cmd, res, "Current environment is %s", args[0])
			})
		},
	}
}

func newEnvSetVarCommand() *cobra.Command {
	var envName string

	cmd := &cobra.Command{
		Use:   "set-var <key> <value>",
		Short: "Set an environment variable",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			return withApp(cmd.Context(), func(a *app) error {
				mgr, err := a.newManager(cmd.Context(), false)
				if err != nil {
					return err
				}
				res, err := mgr.SetEnvVar(cmd.Context(), envName, args[0], args[1])
				if err != nil {
					return err
				}
				return report(cmd, res, "Set %s", args[0])
			})
		},
	}

	cmd.Flags().StringVar(&envName, "env", "", "environment (default: current)")

	return cmd
}

func newEnvUnsetVarCommand() *cobra.Command {
	var envName string

	cmd := &cobra.Command{
		Use:   "unset-var <key>",
		Short: "Remove an environment variable",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return withApp(cmd.Context(), func(a *app) error {
				mgr, err := a.newManager(cmd.Context(), false)
				if err != nil {
					return err
				}
				res, err := mgr.UnsetEnvVar(cmd.Context(), envName, args[0])
				if err != nil {
					return err
				}
				return report(cmd, res, "Unset %s", args[0])
			})
		},
	}

	cmd.Flags().StringVar(&envName, "env", "", "environment (default: current)")

	return cmd
}

func newEnvCognitoCommand() *cobra.Command {
	var (
		envName string
		cfg     model.CognitoConfig
		clear   bool
	)

	cmd := &cobra.Command{
		Use:   "cognito",
		Short: "Record the Cognito configuration of an environment",
		Long: `Record the Cognito identifiers an environment authenticates with.

The values are stored as given; the user pool itself is created elsewhere.`,
		Example: `  agentcore env cognito --user-pool-id us-west-2_abc --client-id 123 --domain auth.example.com
  agentcore env cognito --clear`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return withApp(cmd.Context(), func(a *app) error {
				mgr, err := a.newManager(cmd.Context(), false)
				if err != nil {
					return err
				}
				var in *model.CognitoConfig
				if !clear {
					in = &cfg
				}
				res, err := mgr.SetCognito(cmd.Context(), envName, in)
				if err != nil {
					return err
				}
				if clear {
					return report(cmd, res, "Cleared Cognito configuration")
				}
				return report(cmd, res, "Updated Cognito configuration")
			})
		},
	}

	cmd.Flags().StringVar(&envName, "env", "", "environment (default: current)")
	cmd.Flags().StringVar(&cfg.UserPoolID, "user-pool-id", "", "user pool id")
	cmd.Flags().StringVar(&cfg.UserPoolARN, "user-pool-arn", "", "user pool ARN")
	cmd.Flags().StringVar(&cfg.UserPoolClientID, "client-id", "", "user pool client id")
	cmd.Flags().StringVar(&cfg.Domain, "domain", "", "hosted UI domain")
	cmd.Flags().StringVar(&cfg.DiscoveryURL, "discovery-url", "", "OIDC discovery URL")
	cmd.Flags().StringVar(&cfg.IdentityPoolID, "identity-pool-id", "", "identity pool id")
	cmd.Flags().BoolVar(&clear, "clear", false, "remove the Cognito configuration")

	return cmd
}
