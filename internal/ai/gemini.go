package ai

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/generative-ai-go/genai"
	"google.golang.org/api/option"

	"fjacquet/donor-mapper/internal/logging"
	"fjacquet/donor-mapper/internal/mappingerror"
)

// ProviderGemini names the Gemini provider in logs, errors and metrics.
const ProviderGemini = "gemini"

// GeminiClient talks to the Google Gemini API.
type GeminiClient struct {
	client         *genai.Client
	chatModel      string
	embeddingModel string
	timeout        time.Duration
	logger         logging.Logger
	recorder       CallRecorder
}

// NewGeminiClient creates a Gemini client from cfg. Extra client options
// (endpoint, HTTP client) are passed through to genai.NewClient.
func NewGeminiClient(ctx context.Context, cfg Config, logger logging.Logger, recorder CallRecorder, opts ...option.ClientOption) (*GeminiClient, error) {
	if cfg.APIKey == "" {
		return nil, fmt.Errorf("gemini: API key is required")
	}

	clientOpts := append([]option.ClientOption{option.WithAPIKey(cfg.APIKey)}, opts...)
	if cfg.BaseURL != "" {
		clientOpts = append(clientOpts, option.WithEndpoint(cfg.BaseURL))
	}
	client, err := genai.NewClient(ctx, clientOpts...)
	if err != nil {
		return nil, fmt.Errorf("failed to create Gemini client: %w", err)
	}

	c := &GeminiClient{
		client:         client,
		chatModel:      cfg.ChatModel,
		embeddingModel: cfg.EmbeddingModel,
		timeout:        cfg.Timeout,
		logger:         logging.OrDiscard(logger).WithField(logging.FieldProvider, ProviderGemini),
		recorder:       recorder,
	}
	if c.chatModel == "" {
		c.chatModel = DefaultGeminiChatModel
	}
	if c.embeddingModel == "" {
		c.embeddingModel = DefaultGeminiEmbeddingModel
	}
	return c, nil
}

// Name implements Client.
func (c *GeminiClient) Name() string { return ProviderGemini }

// Close implements Client.
func (c *GeminiClient) Close() error {
	return c.client.Close()
}

// Embed implements Embedder.
func (c *GeminiClient) Embed(ctx context.Context, text string) ([]float32, error) {
	ctx, cancel := withTimeout(ctx, c.timeout)
	defer cancel()

	start := time.Now()
	res, err := c.client.EmbeddingModel(c.embeddingModel).EmbedContent(ctx, genai.Text(text))
	if err == nil && (res == nil || res.Embedding == nil || len(res.Embedding.Values) == 0) {
		err = errors.New("no embedding in response")
	}
	c.record(OperationEmbed, err, start)
	if err != nil {
		return nil, &mappingerror.ProviderError{Provider: ProviderGemini, Operation: OperationEmbed, Err: err}
	}
	return res.Embedding.Values, nil
}

// Complete implements Completer.
func (c *GeminiClient) Complete(ctx context.Context, system, prompt string) (string, error) {
	ctx, cancel := withTimeout(ctx, c.timeout)
	defer cancel()

	model := c.client.GenerativeModel(c.chatModel)
	model.SetTemperature(0)

	parts := []genai.Part{genai.Text(prompt)}
	if system != "" {
		parts = []genai.Part{genai.Text(system), genai.Text(prompt)}
	}

	c.logger.Debug("LLM request",
		logging.Field{Key: logging.FieldModel, Value: c.chatModel},
		logging.Field{Key: "prompt_len", Value: len(prompt)})

	start := time.Now()
	resp, err := model.GenerateContent(ctx, parts...)
	var text string
	if err == nil {
		text, err = responseText(resp)
	}
	c.record(OperationComplete, err, start)
	if err != nil {
		c.logger.WithError(err).Warn("LLM request failed",
			logging.Field{Key: logging.FieldDuration, Value: time.Since(start)})
		return "", &mappingerror.ProviderError{Provider: ProviderGemini, Operation: OperationComplete, Err: err}
	}
	return text, nil
}

// responseText concatenates the text parts of the first candidate.
func responseText(resp *genai.GenerateContentResponse) (string, error) {
	if resp == nil || len(resp.Candidates) == 0 || resp.Candidates[0].Content == nil {
		return "", errors.New("no response from Gemini API")
	}
	var b strings.Builder
	for _, part := range resp.Candidates[0].Content.Parts {
		if t, ok := part.(genai.Text); ok {
			b.WriteString(string(t))
		}
	}
	if b.Len() == 0 {
		return "", errors.New("no text in Gemini response")
	}
	return b.String(), nil
}

func (c *GeminiClient) record(operation string, err error, start time.Time) {
	if c.recorder != nil {
		c.recorder.RecordProviderCall(ProviderGemini, operation, err, time.Since(start))
	}
}
