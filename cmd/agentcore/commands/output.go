package commands

import (
	"encoding/json"
	"fmt"
	"io"
	"text/tabwriter"
	"time"

	"github.com/spf13/cobra"

	"github.com/openfroyo/agentcore/pkg/engine"
	"github.com/openfroyo/agentcore/pkg/manager"
)

func printJSON(w io.Writer, v interface{}) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}

// report prints a committed mutation: JSON when requested, otherwise msg and
// any validation warnings.
func report(cmd *cobra.Command, res *manager.MutationResult, format string, args ...interface{}) error {
	w := cmd.OutOrStdout()
	if jsonOutput {
		return printJSON(w, res)
	}
	if res.Changed {
		fmt.Fprintf(w, "✓ "+format+"\n", args...)
	} else {
		fmt.Fprintf(w, "• "+format+" (no change)\n", args...)
	}
	printWarnings(w, res.Warnings)
	return nil
}

func printWarnings(w io.Writer, warnings []engine.Violation) {
	for _, v := range warnings {
		fmt.Fprintf(w, "  ! %s\n", v.String())
	}
}

func newTable(w io.Writer) *tabwriter.Writer {
	return tabwriter.NewWriter(w, 0, 4, 2, ' ', 0)
}

func orDash(s string) string {
	if s == "" {
		return "-"
	}
	return s
}

func formatTime(t *time.Time) string {
	if t == nil || t.IsZero() {
		return "never"
	}
	return t.Local().Format("2006-01-02 15:04:05")
}
