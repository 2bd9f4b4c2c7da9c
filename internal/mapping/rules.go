// Package mapping resolves raw spreadsheet header labels to canonical budget
// targets. Resolution is layered: a deterministic rule engine, the learned
// mapping store, the classification cache and finally an AI classifier.
package mapping

import (
	"strings"

	"fjacquet/donor-mapper/internal/models"
	"fjacquet/donor-mapper/internal/textutils"
)

// Fixed confidences per rule stage.
const (
	ConfidenceCurrency       = 0.99
	ConfidenceHeaderMetadata = 0.95
	ConfidenceBudgetField    = 0.96
	ConfidenceBudgetCategory = 0.94

	// ConfidenceRuleUnmatched is reported in rule-only mode for labels no rule matches.
	ConfidenceRuleUnmatched = 0.5
)

// RuleMatch is the outcome of a successful rule classification.
type RuleMatch struct {
	MappedTo   string
	MappedKey  string
	Confidence float64
}

var defaultCurrencies = []string{
	"eur", "usd", "gbp", "nok", "chf", "sek", "dkk", "cad", "aud", "jpy",
	"xof", "xaf", "kes", "ugx", "tzs", "etb", "ngn", "zar", "inr", "ghs",
}

var defaultHeaderPhrases = []string{
	"budget summary",
	"budget overview",
	"summary budget",
	"detailed budget",
	"prepared by",
	"approved by",
	"signature",
	"date of submission",
	"submitted on",
	"exchange rate",
	"in local currency",
}

var defaultFieldPatterns = []models.RulePattern{
	{Pattern: "project name", Key: "project_name"},
	{Pattern: "project title", Key: "project_name"},
	{Pattern: "project code", Key: "project_code"},
	{Pattern: "organisation name", Key: "organization_name"},
	{Pattern: "organization name", Key: "organization_name"},
	{Pattern: "grant number", Key: "grant_reference"},
	{Pattern: "grant reference", Key: "grant_reference"},
	{Pattern: "reporting period", Key: "reporting_period"},
	{Pattern: "start date", Key: "start_date"},
	{Pattern: "end date", Key: "end_date"},
	{Pattern: "budget line", Key: "budget_line"},
	{Pattern: "unit cost", Key: "unit_cost"},
	{Pattern: "unit price", Key: "unit_cost"},
	{Pattern: "quantity", Key: "quantity"},
	{Pattern: "total cost", Key: "total_cost"},
	{Pattern: "donor contribution", Key: "donor_contribution"},
	{Pattern: "co-funding", Key: "co_funding"},
	{Pattern: "cofunding", Key: "co_funding"},
	{Pattern: "description", Key: "description"},
	{Pattern: "frequency", Key: "frequency"},
	{Pattern: "comments", Key: "notes"},
}

var defaultCategoryKeywords = []models.RulePattern{
	{Pattern: "staff", Key: "staff_costs"},
	{Pattern: "salar", Key: "staff_costs"},
	{Pattern: "personnel", Key: "staff_costs"},
	{Pattern: "travel", Key: "travel_costs"},
	{Pattern: "per diem", Key: "travel_costs"},
	{Pattern: "accommodation", Key: "travel_costs"},
	{Pattern: "office", Key: "office_costs"},
	{Pattern: "utilities", Key: "office_costs"},
	{Pattern: "equipment", Key: "equipment"},
	{Pattern: "supplies", Key: "supplies"},
	{Pattern: "vehicle", Key: "transport_costs"},
	{Pattern: "fuel", Key: "transport_costs"},
	{Pattern: "transport", Key: "transport_costs"},
	{Pattern: "training", Key: "training"},
	{Pattern: "workshop", Key: "training"},
	{Pattern: "consult", Key: "consultancy"},
	{Pattern: "audit", Key: "audit"},
	{Pattern: "monitoring", Key: "monitoring_evaluation"},
	{Pattern: "evaluation", Key: "monitoring_evaluation"},
	{Pattern: "communication", Key: "communication"},
	{Pattern: "overhead", Key: "indirect_costs"},
	{Pattern: "indirect", Key: "indirect_costs"},
	{Pattern: "contingenc", Key: "contingency"},
	{Pattern: "miscellaneous", Key: "miscellaneous"},
}

// RuleEngine classifies normalized labels using ordered pattern tables.
// Stages run in a fixed order (currency, header, field, category) and the
// first match wins, both across and within stages.
type RuleEngine struct {
	currencies       map[string]struct{}
	headerPhrases    []string
	fieldPatterns    []models.RulePattern
	categoryKeywords []models.RulePattern
}

// NewRuleEngine builds the engine from the built-in tables. Entries of extra
// are normalized and take precedence over the built-in entries of their stage.
func NewRuleEngine(extra models.RulesConfig) *RuleEngine {
	e := &RuleEngine{currencies: make(map[string]struct{})}

	for _, c := range append(append([]string{}, extra.Currencies...), defaultCurrencies...) {
		if n := textutils.Normalize(c); n != "" {
			e.currencies[n] = struct{}{}
		}
	}
	e.headerPhrases = normalizePhrases(append(append([]string{}, extra.HeaderPhrases...), defaultHeaderPhrases...))
	e.fieldPatterns = normalizePatterns(append(append([]models.RulePattern{}, extra.FieldPatterns...), defaultFieldPatterns...))
	e.categoryKeywords = normalizePatterns(append(append([]models.RulePattern{}, extra.CategoryKeywords...), defaultCategoryKeywords...))
	return e
}

// Classify returns the first rule matching normalized.
func (e *RuleEngine) Classify(normalized string) (RuleMatch, bool) {
	if normalized == "" {
		return RuleMatch{}, false
	}

	if _, ok := e.currencies[normalized]; ok {
		return RuleMatch{MappedTo: models.MappedToCurrency, MappedKey: "currency", Confidence: ConfidenceCurrency}, true
	}

	for _, phrase := range e.headerPhrases {
		if strings.Contains(normalized, phrase) {
			return RuleMatch{MappedTo: models.MappedToHeaderMetadata, Confidence: ConfidenceHeaderMetadata}, true
		}
	}

	for _, p := range e.fieldPatterns {
		if strings.Contains(normalized, p.Pattern) {
			return RuleMatch{MappedTo: models.MappedToBudgetField, MappedKey: p.Key, Confidence: ConfidenceBudgetField}, true
		}
	}

	for _, p := range e.categoryKeywords {
		if strings.Contains(normalized, p.Pattern) {
			return RuleMatch{MappedTo: models.MappedToBudgetCategory, MappedKey: p.Key, Confidence: ConfidenceBudgetCategory}, true
		}
	}

	return RuleMatch{}, false
}

func normalizePhrases(phrases []string) []string {
	out := make([]string, 0, len(phrases))
	for _, p := range phrases {
		if n := textutils.Normalize(p); n != "" {
			out = append(out, n)
		}
	}
	return out
}

func normalizePatterns(patterns []models.RulePattern) []models.RulePattern {
	out := make([]models.RulePattern, 0, len(patterns))
	for _, p := range patterns {
		n := textutils.Normalize(p.Pattern)
		if n == "" || p.Key == "" {
			continue
		}
		out = append(out, models.RulePattern{Pattern: n, Key: p.Key})
	}
	return out
}
