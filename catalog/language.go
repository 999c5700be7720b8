package catalog

import (
	"strings"

	levenshtein "github.com/ka-weihe/fast-levenshtein"
	"github.com/lithammer/fuzzysearch/fuzzy"
	"github.com/samber/lo"
)

// MatchLanguage maps a free-form preference such as "English" onto one of
// the catalog's languages. Exact matches win; otherwise the closest fuzzy
// match is returned, preferring prefixes and then the smallest edit
// distance.
func (c *Catalog) MatchLanguage(preference string) (string, bool) {
	preference = strings.ToLower(strings.TrimSpace(preference))
	if preference == "" || c.Len() == 0 {
		return "", false
	}

	if exact, ok := lo.Find(c.languages, func(lang string) bool {
		return strings.EqualFold(lang, preference)
	}); ok {
		return exact, true
	}

	candidates := lo.Filter(c.languages, func(lang string, _ int) bool {
		lower := strings.ToLower(lang)
		return fuzzy.Match(lower, preference) || fuzzy.Match(preference, lower)
	})
	if len(candidates) == 0 {
		return "", false
	}

	return lo.MinBy(candidates, func(a, b string) bool {
		if pa, pb := prefixed(a, preference), prefixed(b, preference); pa != pb {
			return pa
		}
		return distance(a, preference) < distance(b, preference)
	}), true
}

func prefixed(lang, preference string) bool {
	lower := strings.ToLower(lang)
	return strings.HasPrefix(preference, lower) || strings.HasPrefix(lower, preference)
}

func distance(lang, preference string) int {
	return levenshtein.Distance(strings.ToLower(lang), preference)
}
