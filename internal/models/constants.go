package models

// Source records where a mapping decision came from.
type Source string

// Mapping sources
const (
	SourceRule     Source = "rule"
	SourceHuman    Source = "human"
	SourceAI       Source = "ai"
	SourceImported Source = "imported"
	SourceCache    Source = "cache"
)

// Valid reports whether s is one of the known sources.
func (s Source) Valid() bool {
	switch s {
	case SourceRule, SourceHuman, SourceAI, SourceImported, SourceCache:
		return true
	}
	return false
}

// Mapping targets
const (
	MappedToCurrency       = "currency"
	MappedToHeaderMetadata = "header_metadata"
	MappedToBudgetField    = "budget_field"
	MappedToBudgetCategory = "budget_category"
	MappedToIgnored        = "ignored"
)

// MappedToVocabulary is the closed set of targets a classification may yield.
var MappedToVocabulary = []string{
	MappedToCurrency,
	MappedToHeaderMetadata,
	MappedToBudgetField,
	MappedToBudgetCategory,
	MappedToIgnored,
}

// ValidMappedTo reports whether target belongs to MappedToVocabulary.
func ValidMappedTo(target string) bool {
	for _, v := range MappedToVocabulary {
		if v == target {
			return true
		}
	}
	return false
}

// MiscellaneousCategory is the name of the fallback budget category.
const MiscellaneousCategory = "Miscellaneous"

// File permissions
const (
	PermissionExportFile = 0644
	PermissionDirectory  = 0750
)
