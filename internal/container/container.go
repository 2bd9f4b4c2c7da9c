// Package container provides dependency injection for the donor-mapper
// application. It centralizes the creation and wiring of all application
// dependencies, making them explicit and testable.
package container

import (
	"context"
	"fmt"
	"time"

	"fjacquet/donor-mapper/internal/ai"
	"fjacquet/donor-mapper/internal/api"
	"fjacquet/donor-mapper/internal/cache"
	"fjacquet/donor-mapper/internal/config"
	"fjacquet/donor-mapper/internal/logging"
	"fjacquet/donor-mapper/internal/mapping"
	"fjacquet/donor-mapper/internal/mappingerror"
	"fjacquet/donor-mapper/internal/metrics"
	"fjacquet/donor-mapper/internal/store"
)

// memoryCacheCleanupInterval is how often expired in-process cache entries are purged.
const memoryCacheCleanupInterval = 10 * time.Minute

// Container holds all application dependencies and provides methods to access them.
//
// Container is immutable after creation: all fields are private and can only
// be accessed through getter methods.
type Container struct {
	logger    logging.Logger
	config    *config.Config
	metrics   *metrics.MappingMetrics
	cache     cache.Cache
	store     *store.Store
	aiClient  ai.Client
	matcher   mapping.Matcher
	suggester *mapping.Suggester

	closers []func() error
}

// Option overrides a dependency before wiring.
type Option func(*Container)

// WithLogger replaces the logger built from the configuration.
func WithLogger(logger logging.Logger) Option {
	return func(c *Container) {
		c.logger = logger
	}
}

// WithAIClient replaces the provider client built from the configuration.
func WithAIClient(client ai.Client) Option {
	return func(c *Container) {
		c.aiClient = client
	}
}

// WithCache replaces the cache built from the configuration.
func WithCache(kv cache.Cache) Option {
	return func(c *Container) {
		c.cache = kv
	}
}

// NewContainer creates and wires all application dependencies.
// This is the main entry point for dependency injection in the application.
func NewContainer(ctx context.Context, cfg *config.Config, opts ...Option) (*Container, error) {
	if cfg == nil {
		return nil, fmt.Errorf("configuration cannot be nil")
	}

	c := &Container{config: cfg}
	for _, opt := range opts {
		opt(c)
	}

	// Create logger first as it's needed by other components
	if c.logger == nil {
		c.logger = logging.NewLogrusAdapter(cfg.Log.Level, cfg.Log.Format)
	}

	m, err := metrics.NewDefault()
	if err != nil {
		return nil, fmt.Errorf("failed to create metrics: %w", err)
	}
	c.metrics = m

	if c.cache == nil {
		c.cache, err = c.newCache(ctx)
		if err != nil {
			return nil, err
		}
	}

	st, err := store.Open(cfg.Database.Path, c.logger)
	if err != nil {
		_ = c.Close()
		return nil, err
	}
	c.store = st
	c.closers = append(c.closers, st.Close)

	rules, err := store.LoadRules(cfg.Mapping.RulesFile, c.logger)
	if err != nil {
		_ = c.Close()
		return nil, err
	}

	if c.aiClient == nil && cfg.AIEnabled() {
		c.aiClient, err = c.newAIClient(ctx)
		if err != nil {
			_ = c.Close()
			return nil, err
		}
	}
	if c.aiClient != nil {
		c.closers = append(c.closers, c.aiClient.Close)
	}

	var classifier mapping.Classifier
	if c.aiClient != nil {
		c.matcher = mapping.NewEmbeddingMatcher(mapping.EmbeddingMatcherConfig{
			Embedder:      c.aiClient,
			Cache:         c.cache,
			TTL:           cfg.EmbeddingTTL(),
			ClampNegative: cfg.Mapping.ClampNegativeConfidence,
			Logger:        c.logger,
			Metrics:       c.metrics,
		})
		classifier = mapping.NewBulkClassifier(mapping.BulkClassifierConfig{
			Completer: c.aiClient,
			Provider:  c.aiClient.Name(),
			Cache:     c.cache,
			TTL:       cfg.ClassificationTTL(),
			BatchSize: cfg.AI.BatchSize,
			Logger:    c.logger,
			Metrics:   c.metrics,
		})
		c.logger.Info("AI classification enabled", logging.Field{Key: logging.FieldProvider, Value: c.aiClient.Name()})
	} else {
		c.matcher = mapping.NewLexicalMatcher()
		c.logger.Info("AI classification disabled, unresolved labels are returned as unknown")
	}

	c.suggester = mapping.NewSuggester(mapping.SuggesterConfig{
		Rules:      mapping.NewRuleEngine(rules),
		Store:      c.store,
		Cache:      c.cache,
		Classifier: classifier,
		Matcher:    c.matcher,
		RuleBased:  cfg.Mapping.RuleBased,
		AutoLearn:  cfg.Mapping.AutoLearn,
		Logger:     c.logger,
		Metrics:    c.metrics,
	})

	c.logger.Info("Container initialized successfully",
		logging.Field{Key: "matcher", Value: c.matcher.Name()},
		logging.Field{Key: "rule_based", Value: cfg.Mapping.RuleBased},
		logging.Field{Key: "auto_learn", Value: cfg.Mapping.AutoLearn})

	return c, nil
}

func (c *Container) newCache(ctx context.Context) (cache.Cache, error) {
	if c.config.Cache.RedisURL == "" {
		c.logger.Debug("No Redis URL configured, using in-process cache")
		memCache := cache.NewMemoryCache(memoryCacheCleanupInterval)
		c.closers = append(c.closers, memCache.Close)
		return memCache, nil
	}
	redisCache, err := cache.NewRedisCache(ctx, c.config.Cache.RedisURL, c.logger)
	if err != nil {
		return nil, fmt.Errorf("failed to create redis cache: %w", err)
	}
	c.closers = append(c.closers, redisCache.Close)
	return redisCache, nil
}

func (c *Container) newAIClient(ctx context.Context) (ai.Client, error) {
	cfg := c.config
	aiCfg := ai.Config{
		BaseURL:        cfg.AI.BaseURL,
		ChatModel:      cfg.AI.ChatModel,
		EmbeddingModel: cfg.AI.EmbeddingModel,
		Timeout:        cfg.AITimeout(),
	}

	switch provider := cfg.ResolvedProvider(); provider {
	case config.ProviderOpenAI:
		aiCfg.APIKey = cfg.AI.OpenAIAPIKey
		return ai.NewOpenAIClient(aiCfg, c.logger, ai.WithRecorder(c.metrics))
	case config.ProviderGemini:
		aiCfg.APIKey = cfg.AI.GeminiAPIKey
		return ai.NewGeminiClient(ctx, aiCfg, c.logger, c.metrics)
	default:
		return nil, fmt.Errorf("%w: %q", mappingerror.ErrNoProvider, provider)
	}
}

// NewServer returns the HTTP API wired to the container's dependencies.
func (c *Container) NewServer() *api.Controller {
	timeout := time.Duration(c.config.Server.TimeoutSeconds) * time.Second
	return api.New(c.store, c.suggester, timeout, api.WithLogger(c.logger), api.WithMetrics(c.metrics))
}

// GetLogger returns the container's logger instance.
func (c *Container) GetLogger() logging.Logger {
	return c.logger
}

// GetConfig returns the container's configuration instance.
func (c *Container) GetConfig() *config.Config {
	return c.config
}

// GetStore returns the container's mapping store.
func (c *Container) GetStore() *store.Store {
	return c.store
}

// GetCache returns the container's cache.
func (c *Container) GetCache() cache.Cache {
	return c.cache
}

// GetAIClient returns the container's AI client instance.
// Returns nil if AI is not enabled.
func (c *Container) GetAIClient() ai.Client {
	return c.aiClient
}

// GetMatcher returns the field matcher selected at startup.
func (c *Container) GetMatcher() mapping.Matcher {
	return c.matcher
}

// GetSuggester returns the container's suggestion orchestrator.
func (c *Container) GetSuggester() *mapping.Suggester {
	return c.suggester
}

// GetMetrics returns the container's metrics.
func (c *Container) GetMetrics() *metrics.MappingMetrics {
	return c.metrics
}

// Close releases the store, provider and cache connections in reverse order
// of creation.
func (c *Container) Close() error {
	var firstErr error
	for i := len(c.closers) - 1; i >= 0; i-- {
		if err := c.closers[i](); err != nil && firstErr == nil {
			firstErr = err
		}
	}
	c.closers = nil
	if c.logger != nil {
		c.logger.Info("Container closed")
	}
	return firstErr
}
