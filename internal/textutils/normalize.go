// Package textutils provides the text normalization used to key learned
// mappings and cache entries.
package textutils

import (
	"regexp"
	"strings"
)

// quoteReplacer drops straight and typographic quote characters.
var quoteReplacer = strings.NewReplacer(
	`"`, "",
	`'`, "",
	"‘", "", // ‘
	"’", "", // ’
	"“", "", // “
	"”", "", // ”
	"‚", "", // ‚
	"„", "", // „
	"`", "",
	"´", "", // ´
)

// Normalize lower-cases raw, strips quote characters, trims it and collapses
// every whitespace run to a single space. It is total and idempotent, so
// Normalize(Normalize(x)) == Normalize(x).
func Normalize(raw string) string {
	if raw == "" {
		return ""
	}
	s := quoteReplacer.Replace(strings.ToLower(raw))
	return strings.Join(strings.Fields(s), " ")
}

var (
	nonWordPattern    = regexp.MustCompile(`[^\p{L}\p{N}_\s]`)
	whitespacePattern = regexp.MustCompile(`\s+`)
)

// NormalizeLabel turns a spreadsheet header into a snake_case field key:
// "Staff Costs (EUR)" becomes "staff_costs_eur".
func NormalizeLabel(label string) string {
	label = strings.TrimSpace(strings.ToLower(label))
	if label == "" {
		return ""
	}
	label = nonWordPattern.ReplaceAllString(label, "")
	label = strings.TrimSpace(label)
	return whitespacePattern.ReplaceAllString(label, "_")
}
