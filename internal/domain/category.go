package domain

import (
	"regexp"
	"strings"
)

// Category tags a knowledge entry with a support topic.
type Category string

const CategoryGeneral Category = "general"

// KnownCategories lists the topics the knowledge base is organised by.
var KnownCategories = []Category{
	"shipping", "returns", "payment", "account", "orders", "products",
	"promo", "tech_support", "warranty", "subscription", "laptop", "phone",
	"headphones", "smartwatch", "tv", "gaming", "smart_home", "fitness",
	"camera", "tablet",
}

var categoryAliases = map[string]Category{
	"product":   "products",
	"order":     "orders",
	"return":    "returns",
	"refund":    "returns",
	"refunds":   "returns",
	"tech":      "tech_support",
	"support":   "tech_support",
	"promotion": "promo",
	"smarthome": "smart_home",
}

var categoryPattern = regexp.MustCompile(`^[a-z][a-z0-9_]{0,39}$`)

func canonicalCategory(s string) string {
	s = strings.ToLower(strings.TrimSpace(s))
	s = strings.ReplaceAll(s, "-", "_")
	return strings.ReplaceAll(s, " ", "_")
}

// IsKnown reports whether c is one of KnownCategories or general.
func (c Category) IsKnown() bool {
	if c == CategoryGeneral {
		return true
	}
	for _, k := range KnownCategories {
		if k == c {
			return true
		}
	}
	return false
}

// NormalizeCategory maps free-form input to a known category. Anything
// unrecognised is tagged general.
func NormalizeCategory(s string) Category {
	c := canonicalCategory(s)
	if alias, ok := categoryAliases[c]; ok {
		return alias
	}
	if Category(c).IsKnown() {
		return Category(c)
	}
	return CategoryGeneral
}

// ParseCategoryFilter validates a search filter. An empty filter means no
// filtering. Well-formed but unknown categories are accepted and simply match
// nothing; malformed ones are invalid input.
func ParseCategoryFilter(s string) (Category, error) {
	if strings.TrimSpace(s) == "" {
		return "", nil
	}
	c := canonicalCategory(s)
	if !categoryPattern.MatchString(c) {
		return "", InvalidInput("parse category", "malformed category filter %q", s)
	}
	if alias, ok := categoryAliases[c]; ok {
		return alias, nil
	}
	return Category(c), nil
}
