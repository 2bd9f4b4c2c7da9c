package mapping

import (
	"context"
	"encoding/json"
	"strings"
	"time"

	"fjacquet/donor-mapper/internal/ai"
	"fjacquet/donor-mapper/internal/cache"
	"fjacquet/donor-mapper/internal/logging"
	"fjacquet/donor-mapper/internal/mappingerror"
	"fjacquet/donor-mapper/internal/metrics"
	"fjacquet/donor-mapper/internal/models"
)

// DefaultBatchSize is the number of labels sent per classification call.
const DefaultBatchSize = 25

// DefaultMalformedTTL is how long labels from an unparseable batch stay
// cached as ignored.
const DefaultMalformedTTL = 10 * time.Minute

// Batch outcomes reported to metrics.
const (
	batchSuccess   = "success"
	batchMalformed = "malformed"
	batchError     = "error"
)

const classificationSystemPrompt = `You map header labels taken from NGO budget spreadsheets to a canonical budget schema.
For every input label return an object with these keys:
  "raw_value": the input label, unchanged
  "mapped_to": exactly one of "budget_category", "budget_field", "currency", "header_metadata", "ignored"
  "suggested_key": a snake_case canonical key such as "staff_costs" or "project_name", or null
  "confidence": a number between 0 and 1
Use "header_metadata" for titles, signatures and boilerplate, and "ignored" for anything else you cannot place.
Respond with a JSON array only, one object per input label, in the same order as the input.`

// Classifier resolves labels that neither the rules, the store nor the cache
// could resolve.
type Classifier interface {
	Classify(ctx context.Context, values []models.UnknownValue) ([]models.Suggestion, error)
}

// cachedClassification is the value stored under a template_mapping: key.
type cachedClassification struct {
	MappedTo   string  `json:"mapped_to"`
	MappedKey  string  `json:"mapped_key"`
	Confidence float64 `json:"confidence"`
}

type classificationItem struct {
	RawValue     string   `json:"raw_value"`
	MappedTo     string   `json:"mapped_to"`
	SuggestedKey *string  `json:"suggested_key"`
	Confidence   *float64 `json:"confidence"`
}

// BulkClassifier sends unresolved labels to a chat model in fixed-size
// batches, one batch at a time.
type BulkClassifier struct {
	completer ai.Completer
	provider  string
	cache     cache.Cache
	ttl          time.Duration
	malformedTTL time.Duration
	batchSize    int
	logger       logging.Logger
	metrics      *metrics.MappingMetrics
}

// BulkClassifierConfig configures a BulkClassifier.
type BulkClassifierConfig struct {
	Completer ai.Completer
	// Provider names the backend in errors and logs.
	Provider  string
	Cache     cache.Cache
	TTL       time.Duration

	// MalformedTTL bounds the cache lifetime of labels whose batch response
	// could not be parsed.
	MalformedTTL time.Duration
	BatchSize    int
	Logger       logging.Logger
	Metrics      *metrics.MappingMetrics
}

// NewBulkClassifier creates a BulkClassifier.
func NewBulkClassifier(cfg BulkClassifierConfig) *BulkClassifier {
	if cfg.Cache == nil {
		cfg.Cache = cache.Noop{}
	}
	if cfg.TTL <= 0 {
		cfg.TTL = cache.DefaultClassificationTTL
	}
	if cfg.MalformedTTL <= 0 {
		cfg.MalformedTTL = DefaultMalformedTTL
	}
	if cfg.BatchSize <= 0 {
		cfg.BatchSize = DefaultBatchSize
	}
	return &BulkClassifier{
		completer:    cfg.Completer,
		provider:     cfg.Provider,
		cache:        cfg.Cache,
		ttl:          cfg.TTL,
		malformedTTL: cfg.MalformedTTL,
		batchSize:    cfg.BatchSize,
		logger:       logging.OrDiscard(cfg.Logger).WithField(logging.FieldComponent, "classifier"),
		metrics:      cfg.Metrics,
	}
}

// Classify returns one suggestion per value, in input order, with source
// "ai". A transport failure aborts the remaining batches and is returned as
// a *mappingerror.ClassificationError; batches already classified stay
// cached.
func (c *BulkClassifier) Classify(ctx context.Context, values []models.UnknownValue) ([]models.Suggestion, error) {
	out := make([]models.Suggestion, 0, len(values))
	for start, batch := 0, 0; start < len(values); start, batch = start+c.batchSize, batch+1 {
		end := start + c.batchSize
		if end > len(values) {
			end = len(values)
		}

		results, err := c.classifyBatch(ctx, batch, values[start:end])
		if err != nil {
			return nil, err
		}
		out = append(out, results...)
	}
	return out, nil
}

func (c *BulkClassifier) classifyBatch(ctx context.Context, batch int, values []models.UnknownValue) ([]models.Suggestion, error) {
	raws := make([]string, len(values))
	for i, v := range values {
		raws[i] = v.RawValue
	}
	prompt, err := json.Marshal(raws)
	if err != nil {
		return nil, &mappingerror.ClassificationError{Provider: c.provider, Batch: batch, Size: len(values), Err: err}
	}

	start := time.Now()
	response, err := c.completer.Complete(ctx, classificationSystemPrompt, string(prompt))
	if err != nil {
		c.metrics.RecordClassifierBatch(batchError)
		return nil, &mappingerror.ClassificationError{Provider: c.provider, Batch: batch, Size: len(values), Err: err}
	}

	items, ok := parseClassification(response)
	if !ok {
		c.metrics.RecordClassifierBatch(batchMalformed)
		c.logger.Warn("Unparseable classification response, ignoring batch",
			logging.Field{Key: logging.FieldBatch, Value: batch},
			logging.Field{Key: logging.FieldCount, Value: len(values)})
		out := make([]models.Suggestion, len(values))
		for i, v := range values {
			out[i] = ignoredSuggestion(v, 0)
			c.store(ctx, out[i], c.malformedTTL)
		}
		return out, nil
	}

	c.metrics.RecordClassifierBatch(batchSuccess)
	c.logger.Debug("Classified batch",
		logging.Field{Key: logging.FieldBatch, Value: batch},
		logging.Field{Key: logging.FieldCount, Value: len(values)},
		logging.Field{Key: logging.FieldDuration, Value: time.Since(start)})

	out := make([]models.Suggestion, len(values))
	for i, v := range values {
		if i < len(items) {
			out[i] = toSuggestion(v, items[i])
		} else {
			out[i] = ignoredSuggestion(v, 0)
		}
		c.store(ctx, out[i], c.ttl)
	}
	return out, nil
}

func (c *BulkClassifier) store(ctx context.Context, sg models.Suggestion, ttl time.Duration) {
	cache.SetJSON(ctx, c.cache, cache.ClassificationKey(sg.NormalizedValue), cachedClassification{
		MappedTo:   sg.MappedTo,
		MappedKey:  sg.MappedKey,
		Confidence: sg.Confidence,
	}, ttl, c.logger)
}

// parseClassification decodes a JSON array, tolerating a surrounding
// markdown code fence.
func parseClassification(response string) ([]classificationItem, bool) {
	text := strings.TrimSpace(response)
	if strings.HasPrefix(text, "```") {
		text = strings.TrimPrefix(text, "```json")
		text = strings.TrimPrefix(text, "```JSON")
		text = strings.TrimPrefix(text, "```")
		text = strings.TrimSuffix(strings.TrimSpace(text), "```")
		text = strings.TrimSpace(text)
	}

	var items []classificationItem
	if err := json.Unmarshal([]byte(text), &items); err != nil {
		return nil, false
	}
	return items, true
}

func toSuggestion(v models.UnknownValue, item classificationItem) models.Suggestion {
	mappedTo := strings.ToLower(strings.TrimSpace(item.MappedTo))
	if !models.ValidMappedTo(mappedTo) {
		return ignoredSuggestion(v, 0)
	}

	confidence := 0.0
	if item.Confidence != nil {
		confidence = RoundConfidence(clampUnit(*item.Confidence))
	}

	key := ""
	if item.SuggestedKey != nil {
		key = strings.TrimSpace(*item.SuggestedKey)
	}
	switch mappedTo {
	case models.MappedToCurrency:
		key = "currency"
	case models.MappedToHeaderMetadata, models.MappedToIgnored:
		key = ""
	}

	return models.Suggestion{
		RawValue:        v.RawValue,
		NormalizedValue: v.NormalizedValue,
		MappedTo:        mappedTo,
		MappedKey:       key,
		Confidence:      confidence,
		Source:          models.SourceAI,
	}
}

func ignoredSuggestion(v models.UnknownValue, confidence float64) models.Suggestion {
	return models.Suggestion{
		RawValue:        v.RawValue,
		NormalizedValue: v.NormalizedValue,
		MappedTo:        models.MappedToIgnored,
		Confidence:      confidence,
		Source:          models.SourceAI,
	}
}
