package analytics

import (
	"strings"
)

// =============================================================================
// EXPENSE TAXONOMY - Free text to normalized categories
// =============================================================================

// Classifier maps a free-text expense category onto a normalized
// taxonomy label. It is an interface so the keyword table can be
// swapped or tested independently of the aggregation logic.
type Classifier interface {
	Classify(category string) string
}

// CategoryOther is the fallback label when no keyword matches.
const CategoryOther = "Other"

// KeywordTaxonomy classifies by case-insensitive keyword containment.
// Rules are checked in order; the first match wins.
type KeywordTaxonomy struct {
	rules []taxonomyRule
}

type taxonomyRule struct {
	label    string
	keywords []string
}

// NewKeywordTaxonomy returns the default property-expense taxonomy.
func NewKeywordTaxonomy() *KeywordTaxonomy {
	return &KeywordTaxonomy{rules: []taxonomyRule{
		{"Repairs & Maintenance", []string{"repair", "maintenance", "plumb", "electric", "paint", "pest", "garden", "clean"}},
		{"Utilities", []string{"water", "gas", "power", "electricity", "utility", "utilities"}},
		{"Insurance", []string{"insurance", "landlord policy"}},
		{"Rates & Taxes", []string{"rates", "council", "land tax"}},
		{"Strata", []string{"strata", "body corporate", "owners corp"}},
		{"Management Fees", []string{"management", "agent", "letting fee", "advertising"}},
		{"Mortgage Interest", []string{"interest", "mortgage", "loan"}},
	}}
}

func (t *KeywordTaxonomy) Classify(category string) string {
	c := strings.ToLower(strings.TrimSpace(category))
	if c == "" {
		return CategoryOther
	}
	for _, rule := range t.rules {
		for _, kw := range rule.keywords {
			if strings.Contains(c, kw) {
				return rule.label
			}
		}
	}
	return CategoryOther
}
