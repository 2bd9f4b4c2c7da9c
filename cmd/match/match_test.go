package match

import (
	"bytes"
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"fjacquet/donor-mapper/internal/mapping"
	"fjacquet/donor-mapper/internal/mappingerror"
	"fjacquet/donor-mapper/internal/store"
)

func TestMatchCommand_Flags(t *testing.T) {
	assert.Equal(t, "match", Cmd.Use)
	assert.NotNil(t, Cmd.RunE)

	for name, shorthand := range map[string]string{"ngo": "n", "donor": "d", "template": "t", "output": "o"} {
		flag := Cmd.Flags().Lookup(name)
		require.NotNil(t, flag, name)
		assert.Equal(t, shorthand, flag.Shorthand)
	}
}

func TestRun(t *testing.T) {
	ctx := context.Background()
	st, err := store.Open(":memory:", nil)
	require.NoError(t, err)
	defer st.Close()

	tpl, err := st.CreateTemplate(ctx, "EU Grant")
	require.NoError(t, err)
	_, err = st.BulkCreateFields(ctx, tpl.ID, []string{"Office Costs", "Staff Costs"})
	require.NoError(t, err)

	s := mapping.NewSuggester(mapping.SuggesterConfig{})

	var out bytes.Buffer
	require.NoError(t, run(ctx, s, st, []string{"Staff Cost"}, nil, tpl.ID, &out))
	assert.Equal(t, "ngo_field,ngo_key,donor_field,confidence\nStaff Cost,staff_cost,Staff Costs,0.952\n", out.String())

	out.Reset()
	require.NoError(t, run(ctx, s, st, []string{"cat"}, []string{"bat", "hat"}, 0, &out))
	assert.Contains(t, out.String(), "cat,hat,0.667")

	err = run(ctx, s, st, []string{"x"}, nil, 0, &out)
	assert.True(t, mappingerror.IsValidation(err))

	err = run(ctx, s, st, []string{"x"}, nil, 99, &out)
	assert.ErrorIs(t, err, mappingerror.ErrNotFound)
}
