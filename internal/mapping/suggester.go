package mapping

import (
	"context"
	"fmt"
	"strings"

	"fjacquet/donor-mapper/internal/cache"
	"fjacquet/donor-mapper/internal/logging"
	"fjacquet/donor-mapper/internal/mappingerror"
	"fjacquet/donor-mapper/internal/metrics"
	"fjacquet/donor-mapper/internal/models"
	"fjacquet/donor-mapper/internal/textutils"
)

// MappingStore is the part of the persistent store the suggester needs.
type MappingStore interface {
	Lookup(ctx context.Context, normalized string) (*models.SemanticFieldMapping, error)
	Record(ctx context.Context, rec models.MappingRecord) (*models.SemanticFieldMapping, error)
	Touch(ctx context.Context, id string) error
}

// SuggesterConfig wires a Suggester. Classifier and Matcher may be nil:
// without a classifier unresolved labels are returned as unknown, and
// without a matcher SuggestMapping falls back to lexical matching.
type SuggesterConfig struct {
	Rules      *RuleEngine
	Store      MappingStore
	Cache      cache.Cache
	Classifier Classifier
	Matcher    Matcher

	// RuleBased resolves labels with the rule engine only.
	RuleBased bool
	// AutoLearn persists non-ignored classifier results with source "ai".
	AutoLearn bool

	Logger  logging.Logger
	Metrics *metrics.MappingMetrics
}

// Suggester orchestrates label resolution across the mapping layers.
type Suggester struct {
	rules      *RuleEngine
	store      MappingStore
	cache      cache.Cache
	classifier Classifier
	matcher    Matcher
	ruleBased  bool
	autoLearn  bool
	logger     logging.Logger
	metrics    *metrics.MappingMetrics
}

// NewSuggester creates a Suggester.
func NewSuggester(cfg SuggesterConfig) *Suggester {
	if cfg.Rules == nil {
		cfg.Rules = NewRuleEngine(models.RulesConfig{})
	}
	if cfg.Cache == nil {
		cfg.Cache = cache.Noop{}
	}
	if cfg.Matcher == nil {
		cfg.Matcher = NewLexicalMatcher()
	}
	return &Suggester{
		rules:      cfg.Rules,
		store:      cfg.Store,
		cache:      cfg.Cache,
		classifier: cfg.Classifier,
		matcher:    cfg.Matcher,
		ruleBased:  cfg.RuleBased,
		autoLearn:  cfg.AutoLearn,
		logger:     logging.OrDiscard(cfg.Logger).WithField(logging.FieldComponent, "suggester"),
		metrics:    cfg.Metrics,
	}
}

// RuleBased reports whether the suggester runs in rule-only mode.
func (s *Suggester) RuleBased() bool { return s.ruleBased }

// MatcherName returns the name of the configured field matcher.
func (s *Suggester) MatcherName() string { return s.matcher.Name() }

// Suggest resolves every raw label. Suggestions are returned in input order;
// labels left unresolved (no classifier configured) are listed in Unknown.
func (s *Suggester) Suggest(ctx context.Context, raws []string) (models.SuggestResult, error) {
	slots := make([]*models.Suggestion, len(raws))
	var unknownIdx []int

	for i, raw := range raws {
		normalized := textutils.Normalize(raw)

		if s.ruleBased {
			slots[i] = s.ruleSuggestion(raw, normalized)
			continue
		}

		if normalized == "" {
			slots[i] = &models.Suggestion{RawValue: raw, MappedTo: models.MappedToIgnored, Source: models.SourceRule}
			continue
		}

		found, err := s.fromStore(ctx, raw, normalized)
		if err != nil {
			return models.SuggestResult{}, err
		}
		if found != nil {
			slots[i] = found
			continue
		}

		if cached := s.fromCache(ctx, raw, normalized); cached != nil {
			slots[i] = cached
			continue
		}

		unknownIdx = append(unknownIdx, i)
	}

	result := models.SuggestResult{Suggestions: []models.Suggestion{}, Unknown: []models.UnknownValue{}}

	if len(unknownIdx) > 0 {
		if s.classifier == nil {
			for _, i := range unknownIdx {
				result.Unknown = append(result.Unknown, models.UnknownValue{
					RawValue:        raws[i],
					NormalizedValue: textutils.Normalize(raws[i]),
				})
			}
			s.metrics.RecordUnknown(len(unknownIdx))
		} else if err := s.classifyUnknown(ctx, raws, unknownIdx, slots); err != nil {
			return models.SuggestResult{}, err
		}
	}

	for _, sg := range slots {
		if sg == nil {
			continue
		}
		result.Suggestions = append(result.Suggestions, *sg)
		s.metrics.RecordSuggestion(string(sg.Source), sg.MappedTo)
	}
	return result, nil
}

func (s *Suggester) ruleSuggestion(raw, normalized string) *models.Suggestion {
	sg := &models.Suggestion{
		RawValue:        raw,
		NormalizedValue: normalized,
		MappedTo:        models.MappedToIgnored,
		Confidence:      ConfidenceRuleUnmatched,
		Source:          models.SourceRule,
	}
	if match, ok := s.rules.Classify(normalized); ok {
		sg.MappedTo = match.MappedTo
		sg.MappedKey = match.MappedKey
		sg.Confidence = match.Confidence
	}
	return sg
}

func (s *Suggester) fromStore(ctx context.Context, raw, normalized string) (*models.Suggestion, error) {
	if s.store == nil {
		return nil, nil
	}
	record, err := s.store.Lookup(ctx, normalized)
	if err != nil {
		return nil, fmt.Errorf("store lookup failed: %w", err)
	}
	if record == nil {
		return nil, nil
	}

	if err := s.store.Touch(ctx, record.ID); err != nil {
		s.logger.WithError(err).Warn("Failed to update mapping usage",
			logging.Field{Key: logging.FieldNormalized, Value: normalized})
	}

	return &models.Suggestion{
		RawValue:        raw,
		NormalizedValue: normalized,
		MappedTo:        record.MappedTo,
		MappedKey:       record.MappedKey,
		Confidence:      record.Confidence,
		Source:          record.Source,
	}, nil
}

func (s *Suggester) fromCache(ctx context.Context, raw, normalized string) *models.Suggestion {
	var entry cachedClassification
	hit := cache.GetJSON(ctx, s.cache, cache.ClassificationKey(normalized), &entry) && models.ValidMappedTo(entry.MappedTo)
	s.metrics.RecordCacheLookup(strings.TrimSuffix(cache.ClassificationPrefix, ":"), hit)
	if !hit {
		return nil
	}
	return &models.Suggestion{
		RawValue:        raw,
		NormalizedValue: normalized,
		MappedTo:        entry.MappedTo,
		MappedKey:       entry.MappedKey,
		Confidence:      entry.Confidence,
		Source:          models.SourceCache,
	}
}

// classifyUnknown classifies each distinct normalized value once and fills
// the matching slots.
func (s *Suggester) classifyUnknown(ctx context.Context, raws []string, unknownIdx []int, slots []*models.Suggestion) error {
	positions := make(map[string][]int)
	var values []models.UnknownValue
	for _, i := range unknownIdx {
		normalized := textutils.Normalize(raws[i])
		if _, seen := positions[normalized]; !seen {
			values = append(values, models.UnknownValue{RawValue: raws[i], NormalizedValue: normalized})
		}
		positions[normalized] = append(positions[normalized], i)
	}

	s.logger.Debug("Classifying unresolved labels", logging.Field{Key: logging.FieldCount, Value: len(values)})
	results, err := s.classifier.Classify(ctx, values)
	if err != nil {
		return fmt.Errorf("classification failed: %w", err)
	}

	for _, res := range results {
		for _, i := range positions[res.NormalizedValue] {
			sg := res
			sg.RawValue = raws[i]
			slots[i] = &sg
		}
		if s.autoLearn && !res.Ignored() {
			s.learn(ctx, res)
		}
	}
	return nil
}

func (s *Suggester) learn(ctx context.Context, sg models.Suggestion) {
	if s.store == nil {
		return
	}
	_, err := s.store.Record(ctx, models.MappingRecord{
		RawValue:        sg.RawValue,
		NormalizedValue: sg.NormalizedValue,
		MappedTo:        sg.MappedTo,
		MappedKey:       sg.MappedKey,
		Confidence:      sg.Confidence,
		Source:          models.SourceAI,
	})
	if err != nil {
		s.logger.WithError(err).Warn("Failed to persist learned mapping",
			logging.Field{Key: logging.FieldNormalized, Value: sg.NormalizedValue})
		return
	}
	s.metrics.RecordLearnedMapping()
}

// Confirm records sg as a human-approved mapping and drops any cached
// classification for its label. A zero confidence is stored as 1.
func (s *Suggester) Confirm(ctx context.Context, sg models.Suggestion) (*models.SemanticFieldMapping, error) {
	if s.store == nil {
		return nil, fmt.Errorf("no mapping store configured")
	}
	if strings.TrimSpace(sg.RawValue) == "" {
		return nil, &mappingerror.ValidationError{Field: "raw_value", Reason: "must not be empty"}
	}

	normalized := textutils.Normalize(sg.RawValue)
	confidence := sg.Confidence
	if confidence == 0 {
		confidence = 1
	}

	record, err := s.store.Record(ctx, models.MappingRecord{
		RawValue:        sg.RawValue,
		NormalizedValue: normalized,
		MappedTo:        sg.MappedTo,
		MappedKey:       sg.MappedKey,
		Confidence:      confidence,
		Source:          models.SourceHuman,
		Approved:        true,
	})
	if err != nil {
		return nil, err
	}
	s.cache.Delete(ctx, cache.ClassificationKey(normalized))

	s.logger.Info("Confirmed mapping",
		logging.Field{Key: logging.FieldRawValue, Value: sg.RawValue},
		logging.Field{Key: logging.FieldMappedTo, Value: record.MappedTo},
		logging.Field{Key: logging.FieldMappedKey, Value: record.MappedKey})
	return record, nil
}

// SuggestMapping aligns ngoFields with donorFields using the configured
// matcher. No rules, store or cache lookups are involved.
func (s *Suggester) SuggestMapping(ctx context.Context, ngoFields, donorFields []string) ([]models.MappingSuggestion, error) {
	out, err := s.matcher.Match(ctx, ngoFields, donorFields)
	if err != nil {
		return nil, fmt.Errorf("%s matching failed: %w", s.matcher.Name(), err)
	}
	return out, nil
}
