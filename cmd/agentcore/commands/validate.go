package commands

import (
	"errors"
	"fmt"
	"os"

	"github.com/rs/zerolog/log"
	"github.com/spf13/cobra"

	"github.com/openfroyo/agentcore/pkg/engine"
	"github.com/openfroyo/agentcore/pkg/model"
)

// validationReport is the --json output of validate.
type validationReport struct {
	Path       string             `json:"path"`
	Valid      bool               `json:"valid"`
	Violations []engine.Violation `json:"violations,omitempty"`
	Warnings   []engine.Violation `json:"warnings,omitempty"`
}

func newValidateCommand() *cobra.Command {
	var (
		strict   bool
		noPolicy bool
	)

	cmd := &cobra.Command{
		Use:   "validate [path]",
		Short: "Validate a configuration document",
		Long: `Validate a configuration document against the schema, the model rules
and the policy guardrails.

This command checks:
  - Document syntax (YAML or JSON, by extension)
  - Schema conformance (CUE)
  - Model rules: region consistency, references, endpoints and versions
  - Policy compliance (OPA/rego)

Without a path the local document is validated.`,
		Example: `  # Validate the local document
  agentcore validate

  # Validate an exported copy, failing on warnings too
  agentcore validate --strict ./backup.json`,
		Args: cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			return withApp(ctx, func(a *app) error {
				path := a.store.Path()
				if len(args) > 0 {
					path = args[0]
				}

				log.Debug().
					Str("path", path).
					Bool("strict", strict).
					Bool("policy", !noPolicy && a.guard != nil).
					Msg("Validating configuration")

				data, err := os.ReadFile(path)
				if err != nil {
					return fmt.Errorf("failed to read %s: %w", path, err)
				}
				out := validationReport{Path: path}

				doc, err := model.Decode(data, model.FormatFromPath(path))
				if err != nil {
					out.Violations = append(out.Violations, engine.Violation{
						Code:     engine.ErrCodeSchemaViolation,
						Message:  err.Error(),
						Severity: engine.SeverityError,
					})
					return finishValidation(cmd, out, strict)
				}

				out.Violations = append(out.Violations, a.schema.Check(doc)...)
				res := a.validator.Validate(doc)
				out.Violations = append(out.Violations, res.Violations...)
				out.Warnings = append(out.Warnings, res.Warnings...)

				if !noPolicy && a.guard != nil {
					result, err := a.guard.Evaluate(ctx, doc, "validate")
					if err != nil {
						return err
					}
					if perr := result.Err(); perr != nil {
						var ee *engine.EngineError
						if errors.As(perr, &ee) {
							out.Violations = append(out.Violations, ee.Violations...)
						}
					}
					out.Warnings = append(out.Warnings, result.WarningViolations()...)
				}
				return finishValidation(cmd, out, strict)
			})
		},
	}

	cmd.Flags().BoolVar(&strict, "strict", false, "treat warnings as errors")
	cmd.Flags().BoolVar(&noPolicy, "no-policy", false, "skip policy guardrails")

	return cmd
}

func finishValidation(cmd *cobra.Command, out validationReport, strict bool) error {
	out.Valid = len(out.Violations) == 0 && (!strict || len(out.Warnings) == 0)

	w := cmd.OutOrStdout()
	if jsonOutput {
		if err := printJSON(w, out); err != nil {
			return err
		}
	} else {
		for _, v := range out.Violations {
			fmt.Fprintf(w, "  ✗ %s\n", v.String())
		}
		printWarnings(w, out.Warnings)
		if out.Valid {
			fmt.Fprintf(w, "✓ %s is valid\n", out.Path)
		}
	}

	if !out.Valid {
		return engine.NewValidationError(
			fmt.Sprintf("%s: %d violations, %d warnings", out.Path, len(out.Violations), len(out.Warnings)),
			out.Violations).WithOperation("validate")
	}
	return nil
}
