// Package suggest resolves raw labels from the command line
package suggest

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"strings"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"fjacquet/donor-mapper/cmd/root"
	"fjacquet/donor-mapper/internal/mapping"
	"fjacquet/donor-mapper/internal/models"
)

// JSONOutput prints the raw result instead of a table
var JSONOutput bool

// Cmd represents the suggest command
var Cmd = &cobra.Command{
	Use:   "suggest <label>...",
	Short: "Suggest mappings for raw spreadsheet labels",
	Long: `Resolve each raw label through the rule engine, the learned mapping store,
the cache and, when a provider is configured, bulk AI classification.`,
	Args: cobra.MinimumNArgs(1),
	RunE: suggestFunc,
}

func init() {
	Cmd.Flags().BoolVar(&JSONOutput, "json", false, "Print the result as JSON")
}

func suggestFunc(cmd *cobra.Command, args []string) error {
	c, err := root.NewContainer(cmd.Context())
	if err != nil {
		return err
	}
	defer c.Close()

	return run(cmd.Context(), c.GetSuggester(), args, cmd.OutOrStdout(), JSONOutput)
}

func run(ctx context.Context, s *mapping.Suggester, labels []string, w io.Writer, asJSON bool) error {
	result, err := s.Suggest(ctx, labels)
	if err != nil {
		return fmt.Errorf("failed to suggest mappings: %w", err)
	}

	if asJSON {
		enc := json.NewEncoder(w)
		enc.SetIndent("", "  ")
		return enc.Encode(result)
	}
	return writeTable(w, result)
}

func writeTable(w io.Writer, result models.SuggestResult) error {
	tw := tabwriter.NewWriter(w, 0, 0, 2, ' ', 0)

	fmt.Fprintf(tw, "%s\t%s\t%s\t%s\t%s\n",
		root.HeaderStyle.Render("LABEL"),
		root.HeaderStyle.Render("MAPPED TO"),
		root.HeaderStyle.Render("KEY"),
		root.HeaderStyle.Render("CONFIDENCE"),
		root.HeaderStyle.Render("SOURCE"))
	for _, sg := range result.Suggestions {
		key := sg.MappedKey
		if key == "" {
			key = "-"
		}
		fmt.Fprintf(tw, "%s\t%s\t%s\t%.3f\t%s\n", sg.RawValue, sg.MappedTo, key, sg.Confidence, sg.Source)
	}
	if err := tw.Flush(); err != nil {
		return err
	}

	if len(result.Unknown) > 0 {
		raws := make([]string, len(result.Unknown))
		for i, u := range result.Unknown {
			raws[i] = u.RawValue
		}
		_, err := fmt.Fprintln(w, root.SubtleStyle.Render("Unresolved: "+strings.Join(raws, ", ")))
		return err
	}
	return nil
}
