package chat

import (
	"regexp"
	"strings"
)

// Category is a hair or scalp concern the responder recognises.
type Category string

const (
	CategoryBaldness Category = "baldness"
	CategoryHairline Category = "hairline"
	CategoryCrown    Category = "crown"
	CategoryDiffuse  Category = "diffuse"
	CategoryDandruff Category = "dandruff"
	CategoryOily     Category = "oily"
	CategoryGeneral  Category = "general"
)

type keywordRule struct {
	category Category
	pattern  *regexp.Regexp
}

// newKeywordRule builds a pattern that matches any lowercase term at a word
// start, so "bald" also catches "balding" and "baldness".
func newKeywordRule(category Category, terms ...string) keywordRule {
	quoted := make([]string, len(terms))
	for i, t := range terms {
		quoted[i] = regexp.QuoteMeta(t)
	}
	return keywordRule{
		category: category,
		pattern:  regexp.MustCompile(`\b(?:` + strings.Join(quoted, "|") + `)`),
	}
}

// rules are evaluated in order; the first match wins.
var rules = []keywordRule{
	newKeywordRule(CategoryBaldness, "bald", "male pattern", "mpb", "androgenetic", "alopecia", "norwood"),
	newKeywordRule(CategoryHairline, "hairline", "receding", "recession", "temples", "widow's peak", "forehead"),
	newKeywordRule(CategoryCrown, "crown", "vertex", "top of my head", "back of my head", "swirl"),
	newKeywordRule(CategoryDiffuse, "diffuse", "overall", "all over", "thinning", "thinner", "shedding", "falling out", "density"),
	newKeywordRule(CategoryDandruff, "dandruff", "flak", "itch", "dry scalp", "seborrheic"),
	newKeywordRule(CategoryOily, "oily", "oil", "greasy", "grease", "sebum"),
}

// Priority returns the categories in match order.
func Priority() []Category {
	out := make([]Category, len(rules))
	for i, r := range rules {
		out[i] = r.category
	}
	return out
}

// Classify lowercases input and returns the first category whose keywords
// appear in it.
func Classify(input string) (Category, bool) {
	normalized := strings.ToLower(input)
	for _, r := range rules {
		if r.pattern.MatchString(normalized) {
			return r.category, true
		}
	}
	return CategoryGeneral, false
}
