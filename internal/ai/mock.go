package ai

import (
	"context"
	"sync"
)

// MockClient is a Client whose behavior is supplied by function fields.
// Calls are counted and the texts passed to Embed and the prompts passed to
// Complete are kept for assertions.
type MockClient struct {
	EmbedFunc    func(ctx context.Context, text string) ([]float32, error)
	CompleteFunc func(ctx context.Context, system, prompt string) (string, error)
	ProviderName string

	mu       sync.Mutex
	embedded []string
	prompts  []string
}

// Name implements Client.
func (m *MockClient) Name() string {
	if m.ProviderName == "" {
		return "mock"
	}
	return m.ProviderName
}

// Close implements Client.
func (m *MockClient) Close() error { return nil }

// Embed implements Embedder.
func (m *MockClient) Embed(ctx context.Context, text string) ([]float32, error) {
	m.mu.Lock()
	m.embedded = append(m.embedded, text)
	m.mu.Unlock()
	if m.EmbedFunc == nil {
		return []float32{1, 0}, nil
	}
	return m.EmbedFunc(ctx, text)
}

// Complete implements Completer.
func (m *MockClient) Complete(ctx context.Context, system, prompt string) (string, error) {
	m.mu.Lock()
	m.prompts = append(m.prompts, prompt)
	m.mu.Unlock()
	if m.CompleteFunc == nil {
		return "[]", nil
	}
	return m.CompleteFunc(ctx, system, prompt)
}

// EmbedCalls returns the texts passed to Embed, in call order.
func (m *MockClient) EmbedCalls() []string {
	m.mu.Lock()
	defer m.mu.Unlock()
	return append([]string(nil), m.embedded...)
}

// CompleteCalls returns the prompts passed to Complete, in call order.
func (m *MockClient) CompleteCalls() []string {
	m.mu.Lock()
	defer m.mu.Unlock()
	return append([]string(nil), m.prompts...)
}
