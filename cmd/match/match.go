// Package match aligns NGO field names with donor field names
package match

import (
	"context"
	"io"

	"github.com/spf13/cobra"

	"fjacquet/donor-mapper/cmd/root"
	"fjacquet/donor-mapper/internal/fileutils"
	"fjacquet/donor-mapper/internal/logging"
	"fjacquet/donor-mapper/internal/mapping"
	"fjacquet/donor-mapper/internal/mappingerror"
	"fjacquet/donor-mapper/internal/store"
)

var (
	// NgoFields are the NGO-side labels to align
	NgoFields []string
	// DonorFields are the candidate donor labels
	DonorFields []string
	// TemplateID loads the donor labels from a stored template
	TemplateID uint
	// Output is the CSV destination, stdout when empty
	Output string
)

// Cmd represents the match command
var Cmd = &cobra.Command{
	Use:   "match",
	Short: "Suggest NGO to donor field alignments",
	Long: `Pick the closest donor field for every NGO field using the configured
matcher (embeddings when a provider is configured, lexical ratio otherwise).
The result is written as CSV.`,
	Args: cobra.NoArgs,
	RunE: matchFunc,
}

func init() {
	Cmd.Flags().StringSliceVarP(&NgoFields, "ngo", "n", nil, "NGO field names (repeat or comma separate)")
	Cmd.Flags().StringSliceVarP(&DonorFields, "donor", "d", nil, "Donor field names (repeat or comma separate)")
	Cmd.Flags().UintVarP(&TemplateID, "template", "t", 0, "Load donor field names from this template")
	Cmd.Flags().StringVarP(&Output, "output", "o", "", "CSV output file (default stdout)")
	_ = Cmd.MarkFlagRequired("ngo")
}

func matchFunc(cmd *cobra.Command, _ []string) error {
	c, err := root.NewContainer(cmd.Context())
	if err != nil {
		return err
	}
	defer c.Close()

	w, closeOutput, err := fileutils.OutputWriter(Output, cmd.OutOrStdout())
	if err != nil {
		return err
	}
	if err := run(cmd.Context(), c.GetSuggester(), c.GetStore(), NgoFields, DonorFields, TemplateID, w); err != nil {
		_ = closeOutput()
		return err
	}
	return closeOutput()
}

func run(ctx context.Context, s *mapping.Suggester, st *store.Store, ngo, donor []string, templateID uint, w io.Writer) error {
	if len(donor) == 0 {
		if templateID == 0 {
			return &mappingerror.ValidationError{Field: "donor", Reason: "either --donor or --template is required"}
		}
		names, err := st.FieldNames(ctx, templateID)
		if err != nil {
			return err
		}
		donor = names
	}

	suggestions, err := s.SuggestMapping(ctx, ngo, donor)
	if err != nil {
		return err
	}
	root.Log.Debug("Matched fields",
		logging.Field{Key: "matcher", Value: s.MatcherName()},
		logging.Field{Key: logging.FieldCount, Value: len(suggestions)})
	return store.WriteSuggestionsCSV(w, suggestions)
}
