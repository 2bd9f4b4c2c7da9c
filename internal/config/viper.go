package config

import (
	"fmt"
	"strings"
	"time"

	"github.com/sirupsen/logrus"
	"github.com/spf13/viper"
)

// Supported AI providers.
const (
	ProviderNone   = ""
	ProviderOpenAI = "openai"
	ProviderGemini = "gemini"
)

// Config represents the complete application configuration
type Config struct {
	Log struct {
		Level  string `mapstructure:"level" yaml:"level"`
		Format string `mapstructure:"format" yaml:"format"`
	} `mapstructure:"log" yaml:"log"`

	Server struct {
		Address        string `mapstructure:"address" yaml:"address"`
		TimeoutSeconds int    `mapstructure:"timeout_seconds" yaml:"timeout_seconds"`
	} `mapstructure:"server" yaml:"server"`

	Database struct {
		Path string `mapstructure:"path" yaml:"path"`
	} `mapstructure:"database" yaml:"database"`

	Cache struct {
		RedisURL              string `mapstructure:"redis_url" yaml:"redis_url"`
		EmbeddingTTLHours     int    `mapstructure:"embedding_ttl_hours" yaml:"embedding_ttl_hours"`
		ClassificationTTLDays int    `mapstructure:"classification_ttl_days" yaml:"classification_ttl_days"`
	} `mapstructure:"cache" yaml:"cache"`

	AI struct {
		Provider       string `mapstructure:"provider" yaml:"provider"`
		BaseURL        string `mapstructure:"base_url" yaml:"base_url"`
		ChatModel      string `mapstructure:"chat_model" yaml:"chat_model"`
		EmbeddingModel string `mapstructure:"embedding_model" yaml:"embedding_model"`
		TimeoutSeconds int    `mapstructure:"timeout_seconds" yaml:"timeout_seconds"`
		BatchSize      int    `mapstructure:"batch_size" yaml:"batch_size"`
		OpenAIAPIKey   string `mapstructure:"openai_api_key" yaml:"-"` // Never serialize API keys
		GeminiAPIKey   string `mapstructure:"gemini_api_key" yaml:"-"`
	} `mapstructure:"ai" yaml:"ai"`

	Mapping struct {
		RuleBased               bool   `mapstructure:"rule_based" yaml:"rule_based"`
		AutoLearn               bool   `mapstructure:"auto_learn" yaml:"auto_learn"`
		RulesFile               string `mapstructure:"rules_file" yaml:"rules_file"`
		ClampNegativeConfidence bool   `mapstructure:"clamp_negative_confidence" yaml:"clamp_negative_confidence"`
	} `mapstructure:"mapping" yaml:"mapping"`
}

// InitializeConfig initializes Viper configuration with hierarchical loading:
// defaults, then config.yaml, then DONOR_MAPPER_* environment variables.
func InitializeConfig() (*Config, error) {
	v := viper.New()

	setDefaults(v)

	v.SetConfigName("config")
	v.SetConfigType("yaml")
	v.AddConfigPath("$HOME/.donor-mapper")
	v.AddConfigPath(".donor-mapper")
	v.AddConfigPath(".")

	v.SetEnvPrefix("DONOR_MAPPER")
	v.AutomaticEnv()
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))

	if err := v.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			return nil, fmt.Errorf("failed to read config file %s: %w", v.ConfigFileUsed(), err)
		}
	}

	// The budget service has always read these from unprefixed variables.
	for key, env := range map[string]string{
		"ai.openai_api_key":  "OPENAI_API_KEY",
		"ai.gemini_api_key":  "GEMINI_API_KEY",
		"cache.redis_url":    "REDIS_URL",
		"mapping.rule_based": "RULE_BASED_MAPPING_ENABLED",
	} {
		if err := v.BindEnv(key, "DONOR_MAPPER_"+strings.ToUpper(strings.ReplaceAll(key, ".", "_")), env); err != nil {
			return nil, fmt.Errorf("failed to bind %s: %w", env, err)
		}
	}

	var config Config
	if err := v.Unmarshal(&config); err != nil {
		return nil, fmt.Errorf("failed to unmarshal config: %w", err)
	}

	config.AI.Provider = config.ResolvedProvider()

	if err := validateConfig(&config); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}

	return &config, nil
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("log.level", "info")
	v.SetDefault("log.format", "text")

	v.SetDefault("server.address", ":8080")
	v.SetDefault("server.timeout_seconds", 60)

	v.SetDefault("database.path", "donor-mapper.db")

	v.SetDefault("cache.redis_url", "")
	v.SetDefault("cache.embedding_ttl_hours", 24)
	v.SetDefault("cache.classification_ttl_days", 7)

	v.SetDefault("ai.provider", "")
	v.SetDefault("ai.base_url", "")
	v.SetDefault("ai.chat_model", "")
	v.SetDefault("ai.embedding_model", "")
	v.SetDefault("ai.timeout_seconds", 30)
	v.SetDefault("ai.batch_size", 25)
	v.SetDefault("ai.openai_api_key", "")
	v.SetDefault("ai.gemini_api_key", "")

	v.SetDefault("mapping.rule_based", false)
	v.SetDefault("mapping.auto_learn", true)
	v.SetDefault("mapping.rules_file", "")
	v.SetDefault("mapping.clamp_negative_confidence", true)
}

func validateConfig(config *Config) error {
	if _, err := logrus.ParseLevel(config.Log.Level); err != nil {
		return fmt.Errorf("invalid log level: %s", config.Log.Level)
	}

	if config.Log.Format != "text" && config.Log.Format != "json" {
		return fmt.Errorf("invalid log format: %s (must be 'text' or 'json')", config.Log.Format)
	}

	if config.Database.Path == "" {
		return fmt.Errorf("database.path must not be empty")
	}

	if config.Cache.EmbeddingTTLHours < 1 {
		return fmt.Errorf("cache.embedding_ttl_hours must be positive, got: %d", config.Cache.EmbeddingTTLHours)
	}
	if config.Cache.ClassificationTTLDays < 1 {
		return fmt.Errorf("cache.classification_ttl_days must be positive, got: %d", config.Cache.ClassificationTTLDays)
	}

	switch config.AI.Provider {
	case ProviderNone:
	case ProviderOpenAI:
		if config.AI.OpenAIAPIKey == "" {
			return fmt.Errorf("OPENAI_API_KEY required when ai.provider is openai")
		}
	case ProviderGemini:
		if config.AI.GeminiAPIKey == "" {
			return fmt.Errorf("GEMINI_API_KEY required when ai.provider is gemini")
		}
	default:
		return fmt.Errorf("unknown ai.provider: %s (must be 'openai' or 'gemini')", config.AI.Provider)
	}

	if config.AI.TimeoutSeconds < 1 || config.AI.TimeoutSeconds > 300 {
		return fmt.Errorf("ai.timeout_seconds must be between 1 and 300, got: %d", config.AI.TimeoutSeconds)
	}

	if config.AI.BatchSize < 1 || config.AI.BatchSize > 200 {
		return fmt.Errorf("ai.batch_size must be between 1 and 200, got: %d", config.AI.BatchSize)
	}

	return nil
}

// ResolvedProvider returns the configured provider, inferring it from the
// available API keys when none was set explicitly. OpenAI wins when both keys
// are present.
func (c *Config) ResolvedProvider() string {
	if c.AI.Provider != ProviderNone {
		return strings.ToLower(c.AI.Provider)
	}
	switch {
	case c.AI.OpenAIAPIKey != "":
		return ProviderOpenAI
	case c.AI.GeminiAPIKey != "":
		return ProviderGemini
	}
	return ProviderNone
}

// AIEnabled reports whether an embedding/classification provider is configured.
func (c *Config) AIEnabled() bool {
	return c.ResolvedProvider() != ProviderNone
}

// EmbeddingTTL is the lifetime of cached embedding vectors.
func (c *Config) EmbeddingTTL() time.Duration {
	return time.Duration(c.Cache.EmbeddingTTLHours) * time.Hour
}

// ClassificationTTL is the lifetime of cached classification results.
func (c *Config) ClassificationTTL() time.Duration {
	return time.Duration(c.Cache.ClassificationTTLDays) * 24 * time.Hour
}

// AITimeout bounds a single provider call.
func (c *Config) AITimeout() time.Duration {
	return time.Duration(c.AI.TimeoutSeconds) * time.Second
}
