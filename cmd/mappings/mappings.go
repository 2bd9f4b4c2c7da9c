// Package mappings imports and exports learned semantic mappings
package mappings

import (
	"context"
	"fmt"
	"io"
	"strings"

	"github.com/spf13/cobra"

	"fjacquet/donor-mapper/cmd/root"
	"fjacquet/donor-mapper/internal/fileutils"
	"fjacquet/donor-mapper/internal/logging"
	"fjacquet/donor-mapper/internal/store"
)

// Supported export formats
const (
	FormatYAML = "yaml"
	FormatCSV  = "csv"
)

var (
	// Format is the export format
	Format string
	// Output is the export destination, stdout when empty
	Output string
)

// Cmd represents the mappings command
var Cmd = &cobra.Command{
	Use:   "mappings",
	Short: "Import or export learned mappings",
	Long:  `Import learned mappings from a YAML file or export them as YAML or CSV.`,
}

var importCmd = &cobra.Command{
	Use:   "import <file>",
	Short: "Import mappings from a YAML file",
	Long: `Import mappings from a YAML file. Imported mappings get source "imported"
and merge into existing mappings with the same normalized value.`,
	Args: cobra.ExactArgs(1),
	RunE: importFunc,
}

var exportCmd = &cobra.Command{
	Use:   "export",
	Short: "Export mappings as YAML or CSV",
	Args:  cobra.NoArgs,
	RunE:  exportFunc,
}

func init() {
	exportCmd.Flags().StringVarP(&Format, "format", "f", FormatYAML, "Export format (yaml or csv)")
	exportCmd.Flags().StringVarP(&Output, "output", "o", "", "Output file (default stdout)")
	Cmd.AddCommand(importCmd, exportCmd)
}

func openStore() (*store.Store, error) {
	if root.AppConfig == nil {
		return nil, fmt.Errorf("configuration not initialized")
	}
	return store.Open(root.AppConfig.Database.Path, root.Log)
}

func importFunc(cmd *cobra.Command, args []string) error {
	st, err := openStore()
	if err != nil {
		return err
	}
	defer st.Close()

	f, err := fileutils.OpenFile(args[0])
	if err != nil {
		return err
	}
	defer f.Close()

	n, err := st.ImportYAML(cmd.Context(), f)
	if err != nil {
		return err
	}
	fmt.Fprintln(cmd.OutOrStdout(), root.SuccessStyle.Render(fmt.Sprintf("Imported %d mappings from %s", n, args[0])))
	return nil
}

func exportFunc(cmd *cobra.Command, _ []string) error {
	st, err := openStore()
	if err != nil {
		return err
	}
	defer st.Close()

	w, closeOutput, err := fileutils.OutputWriter(Output, cmd.OutOrStdout())
	if err != nil {
		return err
	}
	if _, err := exportMappings(cmd.Context(), st, Format, w); err != nil {
		_ = closeOutput()
		return err
	}
	return closeOutput()
}

func exportMappings(ctx context.Context, st *store.Store, format string, w io.Writer) (int, error) {
	var (
		n   int
		err error
	)
	switch strings.ToLower(format) {
	case FormatYAML:
		n, err = st.ExportYAML(ctx, w)
	case FormatCSV:
		n, err = st.ExportCSV(ctx, w)
	default:
		return 0, fmt.Errorf("unsupported export format: %s (must be 'yaml' or 'csv')", format)
	}
	if err != nil {
		return 0, err
	}
	root.Log.Info("Exported mappings",
		logging.Field{Key: logging.FieldCount, Value: n},
		logging.Field{Key: "format", Value: format})
	return n, nil
}
