package mappings

import (
	"bytes"
	"context"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"fjacquet/donor-mapper/internal/models"
	"fjacquet/donor-mapper/internal/store"
)

func TestMappingsCommand_Structure(t *testing.T) {
	assert.Equal(t, "mappings", Cmd.Use)

	names := make([]string, 0, len(Cmd.Commands()))
	for _, sub := range Cmd.Commands() {
		names = append(names, sub.Name())
	}
	assert.ElementsMatch(t, []string{"import", "export"}, names)

	formatFlag := exportCmd.Flags().Lookup("format")
	require.NotNil(t, formatFlag)
	assert.Equal(t, FormatYAML, formatFlag.DefValue)
}

func TestImportExport(t *testing.T) {
	ctx := context.Background()
	st, err := store.Open(":memory:", nil)
	require.NoError(t, err)
	defer st.Close()

	n, err := st.ImportYAML(ctx, strings.NewReader(`
mappings:
  - raw_value: Staff Costs
    mapped_to: budget_category
    mapped_key: staff_costs
    confidence: 0.9
`))
	require.NoError(t, err)
	assert.Equal(t, 1, n)

	var yamlOut bytes.Buffer
	n, err = exportMappings(ctx, st, "YAML", &yamlOut)
	require.NoError(t, err)
	assert.Equal(t, 1, n)
	assert.Contains(t, yamlOut.String(), "normalized_value: staff costs")
	assert.Contains(t, yamlOut.String(), "source: "+string(models.SourceImported))

	var csvOut bytes.Buffer
	_, err = exportMappings(ctx, st, FormatCSV, &csvOut)
	require.NoError(t, err)
	lines := strings.Split(strings.TrimSpace(csvOut.String()), "\n")
	require.Len(t, lines, 2)
	assert.Contains(t, lines[1], "staff costs")

	_, err = exportMappings(ctx, st, "xml", &csvOut)
	assert.ErrorContains(t, err, "unsupported export format")
}
