package commands

import (
	"fmt"
	"io"
	"os"

	"github.com/rs/zerolog/log"
	"github.com/spf13/cobra"

	"github.com/openfroyo/agentcore/pkg/model"
)

// resolveFormat picks the explicit format, else the one implied by path.
func resolveFormat(explicit, path string) (model.Format, error) {
	if explicit != "" {
		return model.ParseFormat(explicit)
	}
	if path == "" || path == "-" {
		return model.FormatYAML, nil
	}
	return model.FormatFromPath(path), nil
}

func newExportCommand() *cobra.Command {
	var (
		outFile string
		format  string
	)

	cmd := &cobra.Command{
		Use:   "export",
		Short: "Export the configuration document",
		Long: `Export the configuration document as YAML or JSON.

The document must be valid. The format defaults to the extension of --out,
or YAML when writing to stdout.`,
		Example: `  # Backup as JSON
  agentcore export --out backup.json

  # Print as YAML
  agentcore export`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			f, err := resolveFormat(format, outFile)
			if err != nil {
				return err
			}
			return withApp(cmd.Context(), func(a *app) error {
				log.Debug().Str("out", outFile).Str("format", string(f)).Msg("Exporting document")

				var w io.Writer = cmd.OutOrStdout()
				if outFile != "" && outFile != "-" {
					file, err := os.Create(outFile)
					if err != nil {
						return fmt.Errorf("failed to create %s: %w", outFile, err)
					}
					defer file.Close()
					w = file
				}
				if err := a.store.Export(cmd.Context(), w, f); err != nil {
					return err
				}
				if outFile != "" && outFile != "-" {
					fmt.Fprintf(cmd.ErrOrStderr(), "✓ Exported %s to %s\n", a.store.Path(), outFile)
				}
				return nil
			})
		},
	}

	cmd.Flags().StringVarP(&outFile, "out", "o", "", "output file (default: stdout)")
	cmd.Flags().StringVar(&format, "format", "", "yaml or json")

	return cmd
}

func newImportCommand() *cobra.Command {
	var format string

	cmd := &cobra.Command{
		Use:   "import <file>",
		Short: "Replace the configuration document with an exported copy",
		Long: `Replace the configuration document with one read from a file ("-" for stdin).

The imported document is validated before it is written; an invalid import
leaves the current document untouched.`,
		Example: `  agentcore import backup.json
  cat backup.yaml | agentcore import -`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			path := args[0]
			f, err := resolveFormat(format, path)
			if err != nil {
				return err
			}
			return withApp(cmd.Context(), func(a *app) error {
				var r io.Reader = cmd.InOrStdin()
				if path != "-" {
					file, err := os.Open(path)
					if err != nil {
						return fmt.Errorf("failed to open %s: %w", path, err)
					}
					defer file.Close()
					r = file
				}
				commit, err := a.store.Import(cmd.Context(), r, f)
				if err != nil {
					return err
				}
				return reportCommit(cmd, commit, "Imported "+path)
			})
		},
	}

	cmd.Flags().StringVar(&format, "format", "", "yaml or json (default: from the file extension)")

	return cmd
}
