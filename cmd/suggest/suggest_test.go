package suggest

import (
	"bytes"
	"context"
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"fjacquet/donor-mapper/internal/mapping"
	"fjacquet/donor-mapper/internal/models"
	"fjacquet/donor-mapper/internal/store"
)

func TestSuggestCommand_Metadata(t *testing.T) {
	assert.Equal(t, "suggest <label>...", Cmd.Use)
	assert.Contains(t, Cmd.Short, "Suggest mappings")
	assert.NotNil(t, Cmd.RunE)
	assert.Error(t, Cmd.Args(Cmd, nil), "at least one label is required")

	jsonFlag := Cmd.Flags().Lookup("json")
	require.NotNil(t, jsonFlag)
	assert.Equal(t, "false", jsonFlag.DefValue)
}

func newSuggester() *mapping.Suggester {
	return mapping.NewSuggester(mapping.SuggesterConfig{
		Store: store.NewMockMappingStore(models.SemanticFieldMapping{
			RawValue: "Staff costs", NormalizedValue: "staff costs",
			MappedTo: models.MappedToBudgetCategory, MappedKey: "staff_costs",
			Confidence: 1, Source: models.SourceHuman,
		}),
	})
}

func TestRun_Table(t *testing.T) {
	var out bytes.Buffer
	require.NoError(t, run(context.Background(), newSuggester(), []string{"STAFF costs", "Zebra"}, &out, false))

	text := out.String()
	assert.Contains(t, text, "LABEL")
	assert.Contains(t, text, "STAFF costs")
	assert.Contains(t, text, "staff_costs")
	assert.Contains(t, text, "1.000")
	assert.Contains(t, text, "human")
	assert.Contains(t, text, "Unresolved: Zebra")
}

func TestRun_JSON(t *testing.T) {
	var out bytes.Buffer
	require.NoError(t, run(context.Background(), newSuggester(), []string{"Staff costs", "Zebra"}, &out, true))

	var result models.SuggestResult
	require.NoError(t, json.Unmarshal(out.Bytes(), &result))
	require.Len(t, result.Suggestions, 1)
	assert.Equal(t, "staff_costs", result.Suggestions[0].MappedKey)
	assert.Equal(t, []models.UnknownValue{{RawValue: "Zebra", NormalizedValue: "zebra"}}, result.Unknown)
}
