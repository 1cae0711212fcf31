package commands

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/rs/zerolog/log"
	"github.com/spf13/cobra"

	"github.com/openfroyo/agentcore/pkg/config"
	"github.com/openfroyo/agentcore/pkg/model"
)

func newInitCommand() *cobra.Command {
	var (
		envName string
		region  string
		force   bool
	)

	cmd := &cobra.Command{
		Use:   "init",
		Short: "Initialize the settings file and configuration document",
		Long: `Initialize agentcore in the current project.

This command:
  - Writes a default settings file if none exists
  - Creates an empty configuration document
  - Optionally adds a first environment, which becomes current
  - Creates the sync journal database`,
		Example: `  # Initialize with a dev environment
  agentcore init --env dev --region us-west-2

  # Use a custom settings file
  agentcore init --settings ./agentcore.yaml`,
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			w := cmd.OutOrStdout()

			path := settingsPath
			if path == "" {
				path = config.DefaultPath()
			}
			if _, err := os.Stat(path); os.IsNotExist(err) {
				data, err := config.DefaultSettings().Encode()
				if err != nil {
					return err
				}
				if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
					return fmt.Errorf("failed to create directory for %s: %w", path, err)
				}
				if err := os.WriteFile(path, data, 0o644); err != nil {
					return fmt.Errorf("failed to write settings: %w", err)
				}
				fmt.Fprintf(w, "✓ Created settings file: %s\n", path)
			} else {
				fmt.Fprintf(w, "✓ Settings file already exists: %s\n", path)
			}

			return withApp(ctx, func(a *app) error {
				log.Debug().Str("document", a.store.Path()).Bool("force", force).Msg("Initializing document")

				if a.store.Exists() && !force {
					fmt.Fprintf(w, "✓ Document already exists: %s\n", a.store.Path())
				} else {
					if _, err := a.store.Replace(ctx, model.NewDocument()); err != nil {
						return err
					}
					fmt.Fprintf(w, "✓ Created document: %s\n", a.store.Path())
				}
				if a.journal != nil {
					fmt.Fprintf(w, "✓ Sync journal: %s\n", a.settings.Journal.Path)
				}

				if envName != "" {
					mgr, err := a.newManager(ctx, false)
					if err != nil {
						return err
					}
					res, err := mgr.AddEnvironment(ctx, envName, region)
					if err != nil {
						return err
					}
					if err := report(cmd, res, "Added environment %s (%s)", envName, region); err != nil {
						return err
					}
				}

				fmt.Fprintf(w, "\nNext steps:\n")
				fmt.Fprintf(w, "  agentcore repo add <name> --uri <repository-uri>\n")
				fmt.Fprintf(w, "  agentcore agent add <name> --repo <name>\n")
				fmt.Fprintf(w, "  agentcore sync enable --auto\n")
				return nil
			})
		},
	}

	cmd.Flags().StringVar(&envName, "env", "", "create a first environment")
	cmd.Flags().StringVar(&region, "region", "us-east-1", "region of the first environment")
	cmd.Flags().BoolVar(&force, "force", false, "overwrite an existing document with an empty one")

	return cmd
}
