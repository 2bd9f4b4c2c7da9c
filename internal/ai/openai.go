package ai

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/sashabaranov/go-openai"

	"fjacquet/donor-mapper/internal/logging"
	"fjacquet/donor-mapper/internal/mappingerror"
)

// ProviderOpenAI names the OpenAI provider in logs, errors and metrics.
const ProviderOpenAI = "openai"

// OpenAIClient talks to OpenAI or any OpenAI-compatible endpoint.
type OpenAIClient struct {
	client         *openai.Client
	chatModel      string
	embeddingModel string
	timeout        time.Duration
	logger         logging.Logger
	recorder       CallRecorder
}

// OpenAIOption customizes an OpenAIClient.
type OpenAIOption func(*openai.ClientConfig, *OpenAIClient)

// WithHTTPClient sets the HTTP client used for API calls.
func WithHTTPClient(doer openai.HTTPDoer) OpenAIOption {
	return func(cc *openai.ClientConfig, _ *OpenAIClient) {
		cc.HTTPClient = doer
	}
}

// WithRecorder sets the recorder notified of every call.
func WithRecorder(r CallRecorder) OpenAIOption {
	return func(_ *openai.ClientConfig, c *OpenAIClient) {
		c.recorder = r
	}
}

// NewOpenAIClient creates an OpenAI client from cfg.
func NewOpenAIClient(cfg Config, logger logging.Logger, opts ...OpenAIOption) (*OpenAIClient, error) {
	if cfg.APIKey == "" && cfg.BaseURL == "" {
		return nil, fmt.Errorf("openai: API key is required")
	}

	clientConfig := openai.DefaultConfig(cfg.APIKey)
	if cfg.BaseURL != "" {
		clientConfig.BaseURL = strings.TrimSuffix(cfg.BaseURL, "/")
	}

	c := &OpenAIClient{
		chatModel:      cfg.ChatModel,
		embeddingModel: cfg.EmbeddingModel,
		timeout:        cfg.Timeout,
		logger:         logging.OrDiscard(logger).WithField(logging.FieldProvider, ProviderOpenAI),
	}
	if c.chatModel == "" {
		c.chatModel = DefaultOpenAIChatModel
	}
	if c.embeddingModel == "" {
		c.embeddingModel = DefaultOpenAIEmbeddingModel
	}
	for _, opt := range opts {
		opt(&clientConfig, c)
	}
	c.client = openai.NewClientWithConfig(clientConfig)
	return c, nil
}

// Name implements Client.
func (c *OpenAIClient) Name() string { return ProviderOpenAI }

// Close implements Client.
func (c *OpenAIClient) Close() error { return nil }

// Embed implements Embedder.
func (c *OpenAIClient) Embed(ctx context.Context, text string) ([]float32, error) {
	ctx, cancel := withTimeout(ctx, c.timeout)
	defer cancel()

	start := time.Now()
	resp, err := c.client.CreateEmbeddings(ctx, openai.EmbeddingRequest{
		Model: openai.EmbeddingModel(c.embeddingModel),
		Input: []string{text},
	})
	if err == nil && (len(resp.Data) == 0 || len(resp.Data[0].Embedding) == 0) {
		err = errors.New("no embedding in response")
	}
	c.record(OperationEmbed, err, start)
	if err != nil {
		return nil, &mappingerror.ProviderError{Provider: ProviderOpenAI, Operation: OperationEmbed, Err: err}
	}
	return resp.Data[0].Embedding, nil
}

// Complete implements Completer.
func (c *OpenAIClient) Complete(ctx context.Context, system, prompt string) (string, error) {
	ctx, cancel := withTimeout(ctx, c.timeout)
	defer cancel()

	c.logger.Debug("LLM request",
		logging.Field{Key: logging.FieldModel, Value: c.chatModel},
		logging.Field{Key: "prompt_len", Value: len(prompt)})

	start := time.Now()
	resp, err := c.client.CreateChatCompletion(ctx, openai.ChatCompletionRequest{
		Model: c.chatModel,
		Messages: []openai.ChatCompletionMessage{
			{Role: openai.ChatMessageRoleSystem, Content: system},
			{Role: openai.ChatMessageRoleUser, Content: prompt},
		},
		Temperature: 0,
	})
	if err == nil && len(resp.Choices) == 0 {
		err = errors.New("no choices in response")
	}
	c.record(OperationComplete, err, start)
	if err != nil {
		c.logger.WithError(err).Warn("LLM request failed",
			logging.Field{Key: logging.FieldDuration, Value: time.Since(start)})
		return "", &mappingerror.ProviderError{Provider: ProviderOpenAI, Operation: OperationComplete, Err: err}
	}

	c.logger.Debug("LLM request completed",
		logging.Field{Key: "prompt_tokens", Value: resp.Usage.PromptTokens},
		logging.Field{Key: "completion_tokens", Value: resp.Usage.CompletionTokens},
		logging.Field{Key: logging.FieldDuration, Value: time.Since(start)})
	return resp.Choices[0].Message.Content, nil
}

func (c *OpenAIClient) record(operation string, err error, start time.Time) {
	if c.recorder != nil {
		c.recorder.RecordProviderCall(ProviderOpenAI, operation, err, time.Since(start))
	}
}
