// Package cache provides the best-effort key-value layer used for embedding
// vectors and classification results. Backend failures never surface to
// callers: a failed read is a miss and a failed write is dropped.
package cache

import (
	"context"
	"encoding/json"
	"time"

	"fjacquet/donor-mapper/internal/logging"
)

// Key namespaces
const (
	EmbeddingPrefix      = "emb:"
	ClassificationPrefix = "template_mapping:"
)

// Default lifetimes of cached entries.
const (
	DefaultEmbeddingTTL      = 24 * time.Hour
	DefaultClassificationTTL = 7 * 24 * time.Hour
)

// Cache is a byte-oriented key-value store with per-entry expiry.
type Cache interface {
	Get(ctx context.Context, key string) ([]byte, bool)
	Set(ctx context.Context, key string, value []byte, ttl time.Duration)
	Delete(ctx context.Context, key string)
}

// EmbeddingKey returns the cache key for the embedding of a normalized label.
func EmbeddingKey(normalized string) string {
	return EmbeddingPrefix + normalized
}

// ClassificationKey returns the cache key for the classification of a
// normalized label.
func ClassificationKey(normalized string) string {
	return ClassificationPrefix + normalized
}

// GetJSON reads key and decodes it into out. A missing or malformed entry
// reports false.
func GetJSON(ctx context.Context, c Cache, key string, out any) bool {
	if c == nil {
		return false
	}
	data, ok := c.Get(ctx, key)
	if !ok {
		return false
	}
	return json.Unmarshal(data, out) == nil
}

// SetJSON encodes value and stores it under key.
func SetJSON(ctx context.Context, c Cache, key string, value any, ttl time.Duration, logger logging.Logger) {
	if c == nil {
		return
	}
	data, err := json.Marshal(value)
	if err != nil {
		logging.OrDiscard(logger).WithError(err).Debug("Skipping cache write for unencodable value",
			logging.Field{Key: logging.FieldCacheKey, Value: key})
		return
	}
	c.Set(ctx, key, data, ttl)
}

// Noop is a Cache that stores nothing.
type Noop struct{}

func (Noop) Get(context.Context, string) ([]byte, bool) { return nil, false }

func (Noop) Set(context.Context, string, []byte, time.Duration) {}

func (Noop) Delete(context.Context, string) {}
