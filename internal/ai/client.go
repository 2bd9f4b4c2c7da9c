// Package ai provides the embedding and chat-completion providers used to
// resolve labels the rule engine and the mapping store cannot.
package ai

import (
	"context"
	"time"
)

// Default models per provider.
const (
	DefaultOpenAIChatModel      = "gpt-4o-mini"
	DefaultOpenAIEmbeddingModel = "text-embedding-3-small"
	DefaultGeminiChatModel      = "gemini-1.5-flash"
	DefaultGeminiEmbeddingModel = "text-embedding-004"
	DefaultTimeout              = 30 * time.Second
)

// Operation names used in logs and metrics.
const (
	OperationEmbed    = "embed"
	OperationComplete = "complete"
)

// Embedder turns a text into a dense vector.
type Embedder interface {
	Embed(ctx context.Context, text string) ([]float32, error)
}

// Completer runs a single-turn chat completion and returns the raw text of
// the first answer.
type Completer interface {
	Complete(ctx context.Context, system, prompt string) (string, error)
}

// Client is a provider offering both capabilities.
type Client interface {
	Embedder
	Completer
	Name() string
	Close() error
}

// CallRecorder observes provider calls. *metrics.MappingMetrics satisfies it.
type CallRecorder interface {
	RecordProviderCall(provider, operation string, err error, duration time.Duration)
}

// Config holds provider settings.
type Config struct {
	APIKey         string
	BaseURL        string
	ChatModel      string
	EmbeddingModel string
	Timeout        time.Duration
}

func withTimeout(ctx context.Context, timeout time.Duration) (context.Context, context.CancelFunc) {
	if timeout <= 0 {
		timeout = DefaultTimeout
	}
	return context.WithTimeout(ctx, timeout)
}
