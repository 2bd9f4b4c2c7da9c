package mapping

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/pmezard/go-difflib/difflib"

	"fjacquet/donor-mapper/internal/ai"
	"fjacquet/donor-mapper/internal/cache"
	"fjacquet/donor-mapper/internal/logging"
	"fjacquet/donor-mapper/internal/metrics"
	"fjacquet/donor-mapper/internal/models"
	"fjacquet/donor-mapper/internal/textutils"
)

// Matcher aligns NGO field labels with donor field labels. The result holds
// one entry per NGO label, in input order. An empty donor list yields an
// empty result.
type Matcher interface {
	Match(ctx context.Context, ngoFields, donorFields []string) ([]models.MappingSuggestion, error)
	Name() string
}

// EmbeddingMatcher picks, for every NGO label, the donor label with the
// highest cosine similarity between provider embeddings.
type EmbeddingMatcher struct {
	embedder      ai.Embedder
	cache         cache.Cache
	ttl           time.Duration
	clampNegative bool
	logger        logging.Logger
	metrics       *metrics.MappingMetrics
}

// EmbeddingMatcherConfig configures an EmbeddingMatcher.
type EmbeddingMatcherConfig struct {
	Embedder ai.Embedder
	Cache    cache.Cache
	TTL      time.Duration
	// ClampNegative reports negative similarities as confidence 0.
	ClampNegative bool
	Logger        logging.Logger
	Metrics       *metrics.MappingMetrics
}

// NewEmbeddingMatcher creates an EmbeddingMatcher.
func NewEmbeddingMatcher(cfg EmbeddingMatcherConfig) *EmbeddingMatcher {
	if cfg.Cache == nil {
		cfg.Cache = cache.Noop{}
	}
	if cfg.TTL <= 0 {
		cfg.TTL = cache.DefaultEmbeddingTTL
	}
	return &EmbeddingMatcher{
		embedder:      cfg.Embedder,
		cache:         cfg.Cache,
		ttl:           cfg.TTL,
		clampNegative: cfg.ClampNegative,
		logger:        logging.OrDiscard(cfg.Logger).WithField(logging.FieldComponent, "embedding_matcher"),
		metrics:       cfg.Metrics,
	}
}

// Name implements Matcher.
func (m *EmbeddingMatcher) Name() string { return "embedding" }

// Match implements Matcher. Ties keep the first donor label encountered.
func (m *EmbeddingMatcher) Match(ctx context.Context, ngoFields, donorFields []string) ([]models.MappingSuggestion, error) {
	if len(donorFields) == 0 {
		return []models.MappingSuggestion{}, nil
	}

	memo := make(map[string][]float32)
	donorVecs := make([][]float32, len(donorFields))
	for i, d := range donorFields {
		v, err := m.embedding(ctx, d, memo)
		if err != nil {
			return nil, err
		}
		donorVecs[i] = v
	}

	out := make([]models.MappingSuggestion, 0, len(ngoFields))
	for _, ngo := range ngoFields {
		v, err := m.embedding(ctx, ngo, memo)
		if err != nil {
			return nil, err
		}

		best, bestScore := 0, CosineSimilarity(v, donorVecs[0])
		for i := 1; i < len(donorVecs); i++ {
			if score := CosineSimilarity(v, donorVecs[i]); score > bestScore {
				best, bestScore = i, score
			}
		}

		if m.clampNegative {
			bestScore = clampUnit(bestScore)
		}
		out = append(out, models.MappingSuggestion{
			NgoField:   ngo,
			NgoKey:     textutils.NormalizeLabel(ngo),
			DonorField: donorFields[best],
			Confidence: RoundConfidence(bestScore),
		})
	}
	return out, nil
}

// embedding returns the vector of label, from memo, the cache or the provider.
func (m *EmbeddingMatcher) embedding(ctx context.Context, label string, memo map[string][]float32) ([]float32, error) {
	normalized := textutils.Normalize(label)
	if v, ok := memo[normalized]; ok {
		return v, nil
	}

	key := cache.EmbeddingKey(normalized)
	var v []float32
	hit := cache.GetJSON(ctx, m.cache, key, &v) && len(v) > 0
	m.metrics.RecordCacheLookup(strings.TrimSuffix(cache.EmbeddingPrefix, ":"), hit)
	if !hit {
		var err error
		v, err = m.embedder.Embed(ctx, normalized)
		if err != nil {
			return nil, fmt.Errorf("failed to embed %q: %w", label, err)
		}
		cache.SetJSON(ctx, m.cache, key, v, m.ttl, m.logger)
	}

	memo[normalized] = v
	return v, nil
}

// LexicalMatcher picks, for every NGO label, the donor label with the highest
// Ratcliff/Obershelp similarity ratio. It needs no external provider.
type LexicalMatcher struct{}

// NewLexicalMatcher creates a LexicalMatcher.
func NewLexicalMatcher() *LexicalMatcher {
	return &LexicalMatcher{}
}

// Name implements Matcher.
func (m *LexicalMatcher) Name() string { return "lexical" }

// Match implements Matcher. Candidates are compared case-sensitively and ties
// resolve to the lexicographically greatest donor label; the reported
// confidence is the case-insensitive ratio of the chosen pair.
func (m *LexicalMatcher) Match(_ context.Context, ngoFields, donorFields []string) ([]models.MappingSuggestion, error) {
	if len(donorFields) == 0 {
		return []models.MappingSuggestion{}, nil
	}

	out := make([]models.MappingSuggestion, 0, len(ngoFields))
	for _, ngo := range ngoFields {
		best := closestMatch(ngo, donorFields)
		out = append(out, models.MappingSuggestion{
			NgoField:   ngo,
			NgoKey:     textutils.NormalizeLabel(ngo),
			DonorField: best,
			Confidence: RoundConfidence(SequenceRatio(strings.ToLower(ngo), strings.ToLower(best))),
		})
	}
	return out, nil
}

func closestMatch(word string, candidates []string) string {
	best := candidates[0]
	bestRatio := -1.0
	for _, c := range candidates {
		r := SequenceRatio(c, word)
		if r > bestRatio || (r == bestRatio && c > best) {
			best, bestRatio = c, r
		}
	}
	return best
}

// SequenceRatio returns the Ratcliff/Obershelp similarity of a and b
// computed over their characters, in [0, 1].
func SequenceRatio(a, b string) float64 {
	return difflib.NewMatcher(splitChars(a), splitChars(b)).Ratio()
}

func splitChars(s string) []string {
	out := make([]string, 0, len(s))
	for _, r := range s {
		out = append(out, string(r))
	}
	return out
}
