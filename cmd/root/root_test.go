package root_test

import (
	"bytes"
	"context"
	"os"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"fjacquet/donor-mapper/cmd/root"
)

func clearEnv(t *testing.T) {
	t.Helper()
	for _, envVar := range []string{
		"OPENAI_API_KEY", "GEMINI_API_KEY", "REDIS_URL", "RULE_BASED_MAPPING_ENABLED",
		"DONOR_MAPPER_AI_PROVIDER", "DONOR_MAPPER_DATABASE_PATH", "DONOR_MAPPER_LOG_LEVEL",
	} {
		t.Setenv(envVar, "")
		require.NoError(t, os.Unsetenv(envVar))
	}
}

func TestRootCommand_Metadata(t *testing.T) {
	assert.Equal(t, "donor-mapper", root.Cmd.Use)
	assert.Contains(t, root.Cmd.Short, "map spreadsheet budget labels")
	assert.NotNil(t, root.Cmd.RunE)
	assert.NotNil(t, root.Cmd.PersistentPreRunE)
}

func TestRootCommand_Flags(t *testing.T) {
	root.Init()
	root.Init()

	for _, name := range []string{"log-level", "log-format", "database", "rule-based"} {
		assert.NotNil(t, root.Cmd.PersistentFlags().Lookup(name), name)
	}
	assert.Equal(t, "false", root.Cmd.PersistentFlags().Lookup("rule-based").DefValue)
}

func TestRootCommand_InitializesConfig(t *testing.T) {
	clearEnv(t)
	t.Chdir(t.TempDir())
	root.Init()

	var out bytes.Buffer
	root.Cmd.SetOut(&out)
	root.Cmd.SetArgs([]string{"--log-level", "debug", "--database", ":memory:", "--rule-based"})
	t.Cleanup(func() { root.Cmd.SetArgs(nil) })

	require.NoError(t, root.Cmd.Execute())

	require.NotNil(t, root.AppConfig)
	assert.Equal(t, "debug", root.AppConfig.Log.Level)
	assert.Equal(t, ":memory:", root.AppConfig.Database.Path)
	assert.True(t, root.AppConfig.Mapping.RuleBased)
	assert.Contains(t, out.String(), "donor-mapper")

	c, err := root.NewContainer(context.Background())
	require.NoError(t, err)
	defer c.Close()
	assert.True(t, c.GetSuggester().RuleBased())
}
