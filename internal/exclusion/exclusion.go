// Package exclusion drops transactions at ingestion time based on
// configured category and tag lists.
package exclusion

import (
	"strings"

	"github.com/outbank-dev/outbank-mcp/internal/model"
)

// Rules holds normalized (lowercased, trimmed) exclusion terms.
type Rules struct {
	Categories []string
	Tags       []string
}

// ParseList splits a comma-separated exclusion list into normalized terms.
// Empty and whitespace-only entries are dropped.
func ParseList(value string) []string {
	return parseList(value, true)
}

// ParseListDisplay splits a comma-separated exclusion list preserving the
// original case, for startup output.
func ParseListDisplay(value string) []string {
	return parseList(value, false)
}

func parseList(value string, lower bool) []string {
	var items []string
	for _, item := range strings.Split(value, ",") {
		item = strings.TrimSpace(item)
		if item == "" {
			continue
		}
		if lower {
			item = strings.ToLower(item)
		}
		items = append(items, item)
	}
	return items
}

// NewRules builds Rules from raw comma-separated configuration values.
func NewRules(categories, tags string) Rules {
	return Rules{
		Categories: ParseList(categories),
		Tags:       ParseList(tags),
	}
}

// Empty reports whether no exclusions are configured.
func (r Rules) Empty() bool {
	return len(r.Categories) == 0 && len(r.Tags) == 0
}

// matchesAny reports whether value contains any exclusion term. Matching is
// case-insensitive and substring-based: the term "transfer" matches
// "internal-transfer" and "Finances & Insurances / Transfer".
func matchesAny(value string, exclusions []string) bool {
	if value == "" || len(exclusions) == 0 {
		return false
	}
	normalized := strings.ToLower(value)
	for _, exclusion := range exclusions {
		if strings.Contains(normalized, exclusion) {
			return true
		}
	}
	return false
}

// ShouldExclude reports whether a transaction matches the configured
// exclusions: any of category, subcategory or category path against the
// category terms, or any tag against the tag terms.
func (r Rules) ShouldExclude(t *model.Transaction) bool {
	if matchesAny(t.Category, r.Categories) {
		return true
	}
	if matchesAny(t.Subcategory, r.Categories) {
		return true
	}
	if matchesAny(t.CategoryPath, r.Categories) {
		return true
	}
	for _, tag := range t.Tags {
		if matchesAny(tag, r.Tags) {
			return true
		}
	}
	return false
}
