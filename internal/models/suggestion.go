package models

// Suggestion is the transient outcome of resolving one raw label.
type Suggestion struct {
	RawValue        string  `json:"raw_value" yaml:"raw_value"`
	NormalizedValue string  `json:"normalized_value" yaml:"normalized_value"`
	MappedTo        string  `json:"mapped_to" yaml:"mapped_to"`
	MappedKey       string  `json:"mapped_key" yaml:"mapped_key"`
	Confidence      float64 `json:"confidence" yaml:"confidence"`
	Source          Source  `json:"source" yaml:"source"`
}

// Ignored reports whether the suggestion maps to nothing.
func (s Suggestion) Ignored() bool {
	return s.MappedTo == MappedToIgnored
}

// UnknownValue is a label no layer could resolve.
type UnknownValue struct {
	RawValue        string `json:"raw_value"`
	NormalizedValue string `json:"normalized_value"`
}

// SuggestResult is returned by a suggestion request. Suggestions follow the
// order of the input labels.
type SuggestResult struct {
	Suggestions []Suggestion   `json:"suggestions"`
	Unknown     []UnknownValue `json:"unknown"`
}

// MappingSuggestion pairs an NGO field with its closest donor field. NgoKey
// is the snake_case key of NgoField.
type MappingSuggestion struct {
	NgoField   string  `json:"ngo_field" csv:"ngo_field"`
	NgoKey     string  `json:"ngo_key" csv:"ngo_key"`
	DonorField string  `json:"donor_field" csv:"donor_field"`
	Confidence float64 `json:"confidence" csv:"confidence"`
}

// RulePattern maps a substring pattern to a canonical key.
type RulePattern struct {
	Pattern string `yaml:"pattern"`
	Key     string `yaml:"key"`
}

// RulesConfig is the YAML document that extends the built-in rule tables.
type RulesConfig struct {
	Currencies       []string      `yaml:"currencies"`
	HeaderPhrases    []string      `yaml:"header_phrases"`
	FieldPatterns    []RulePattern `yaml:"field_patterns"`
	CategoryKeywords []RulePattern `yaml:"category_keywords"`
}
