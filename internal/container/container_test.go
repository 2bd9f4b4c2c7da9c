package container

import (
	"context"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/goleak"

	"fjacquet/donor-mapper/internal/ai"
	"fjacquet/donor-mapper/internal/cache"
	"fjacquet/donor-mapper/internal/config"
	"fjacquet/donor-mapper/internal/logging"
	"fjacquet/donor-mapper/internal/mappingerror"
	"fjacquet/donor-mapper/internal/models"
)

func testConfig() *config.Config {
	cfg := &config.Config{}
	cfg.Log.Level = "info"
	cfg.Log.Format = "text"
	cfg.Server.TimeoutSeconds = 5
	cfg.Database.Path = ":memory:"
	cfg.Cache.EmbeddingTTLHours = 24
	cfg.Cache.ClassificationTTLDays = 7
	cfg.AI.TimeoutSeconds = 5
	cfg.AI.BatchSize = 25
	cfg.Mapping.AutoLearn = true
	cfg.Mapping.ClampNegativeConfidence = true
	return cfg
}

func newTestContainer(t *testing.T, cfg *config.Config, opts ...Option) *Container {
	t.Helper()
	opts = append([]Option{WithLogger(logging.NewMockLogger()), WithCache(cache.NewMemoryCache(0))}, opts...)
	c, err := NewContainer(context.Background(), cfg, opts...)
	require.NoError(t, err)
	t.Cleanup(func() { _ = c.Close() })
	return c
}

func TestNewContainer_NilConfig(t *testing.T) {
	c, err := NewContainer(context.Background(), nil)
	assert.Nil(t, c)
	assert.EqualError(t, err, "configuration cannot be nil")
}

func TestNewContainer_WithoutAI(t *testing.T) {
	c := newTestContainer(t, testConfig())

	assert.Nil(t, c.GetAIClient())
	assert.Equal(t, "lexical", c.GetMatcher().Name())
	assert.NotNil(t, c.GetStore())
	assert.NotNil(t, c.GetMetrics())
	assert.NotNil(t, c.GetConfig())
	assert.NotNil(t, c.GetLogger())

	got, err := c.GetSuggester().Suggest(context.Background(), []string{"Staff costs"})
	require.NoError(t, err)
	assert.Empty(t, got.Suggestions)
	assert.Equal(t, []models.UnknownValue{{RawValue: "Staff costs", NormalizedValue: "staff costs"}}, got.Unknown)
}

func TestNewContainer_DefaultCacheIsInProcess(t *testing.T) {
	defer goleak.VerifyNone(t, goleak.IgnoreCurrent())

	c, err := NewContainer(context.Background(), testConfig(), WithLogger(logging.NewMockLogger()))
	require.NoError(t, err)

	_, ok := c.GetCache().(*cache.MemoryCache)
	assert.True(t, ok, "no redis url selects the in-process cache")
	require.NoError(t, c.Close(), "closing stops the cache purge goroutine")
}

func TestNewContainer_WithAIClient(t *testing.T) {
	client := &ai.MockClient{
		ProviderName: "mock",
		CompleteFunc: func(context.Context, string, string) (string, error) {
			return `[{"raw_value":"Vehicle hire","mapped_to":"budget_category","suggested_key":"travel_costs","confidence":0.9}]`, nil
		},
	}
	c := newTestContainer(t, testConfig(), WithAIClient(client))

	assert.Equal(t, "embedding", c.GetMatcher().Name())

	got, err := c.GetSuggester().Suggest(context.Background(), []string{"Vehicle hire"})
	require.NoError(t, err)
	require.Len(t, got.Suggestions, 1)
	assert.Equal(t, models.SourceAI, got.Suggestions[0].Source)
	assert.Equal(t, "travel_costs", got.Suggestions[0].MappedKey)

	learned, err := c.GetStore().Lookup(context.Background(), "vehicle hire")
	require.NoError(t, err)
	require.NotNil(t, learned, "auto-learn persists classifier results")
	assert.Equal(t, models.SourceAI, learned.Source)
}

func TestNewContainer_Providers(t *testing.T) {
	cfg := testConfig()
	cfg.AI.Provider = config.ProviderOpenAI
	cfg.AI.OpenAIAPIKey = "sk-test"
	c := newTestContainer(t, cfg)
	require.NotNil(t, c.GetAIClient())
	assert.Equal(t, ai.ProviderOpenAI, c.GetAIClient().Name())

	cfg = testConfig()
	cfg.AI.Provider = "anthropic"
	_, err := NewContainer(context.Background(), cfg, WithLogger(logging.NewMockLogger()), WithCache(cache.NewMemoryCache(0)))
	assert.ErrorIs(t, err, mappingerror.ErrNoProvider)
}

func TestNewContainer_RulesFile(t *testing.T) {
	rulesFile := filepath.Join(t.TempDir(), "rules.yaml")
	require.NoError(t, os.WriteFile(rulesFile, []byte(`
category_keywords:
  - pattern: vehicle
    key: fleet_costs
`), 0o600))

	cfg := testConfig()
	cfg.Mapping.RuleBased = true
	cfg.Mapping.RulesFile = rulesFile
	c := newTestContainer(t, cfg)

	got, err := c.GetSuggester().Suggest(context.Background(), []string{"Vehicle rental"})
	require.NoError(t, err)
	require.Len(t, got.Suggestions, 1)
	assert.Equal(t, "fleet_costs", got.Suggestions[0].MappedKey, "file rules take precedence over built-in ones")
	assert.Equal(t, models.SourceRule, got.Suggestions[0].Source)

	cfg.Mapping.RulesFile = filepath.Join(t.TempDir(), "broken.yaml")
	require.NoError(t, os.WriteFile(cfg.Mapping.RulesFile, []byte("category_keywords: [\n"), 0o600))
	_, err = NewContainer(context.Background(), cfg, WithLogger(logging.NewMockLogger()), WithCache(cache.NewMemoryCache(0)))
	assert.Error(t, err)
}

func TestNewServer(t *testing.T) {
	c := newTestContainer(t, testConfig())
	srv := c.NewServer()

	rec := httptest.NewRecorder()
	srv.Echo.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/healthz", http.NoBody))
	assert.Equal(t, http.StatusOK, rec.Code)
}

func TestClose(t *testing.T) {
	logger := logging.NewMockLogger()
	c, err := NewContainer(context.Background(), testConfig(), WithLogger(logger), WithCache(cache.NewMemoryCache(0)))
	require.NoError(t, err)

	require.NoError(t, c.Close())
	assert.True(t, logger.HasEntry("INFO", "Container closed"))
	assert.NoError(t, c.Close(), "closing twice is harmless")
}
