package forms

import (
	"strings"

	"github.com/formvn/formbot/common"
)

// searchSimilarityThreshold is the minimum fuzzy ratio for a query to match
// a title or alias that does not contain it as a substring.
const searchSimilarityThreshold = 0.6

// AliasesFor derives the searchable name variants of a title: the lowercase
// form and the diacritics-stripped form. Users type queries without tone
// marks far more often than with them.
func AliasesFor(title string) []string {
	title = common.CollapseWhitespace(title)
	if title == "" {
		return nil
	}

	var aliases []string
	seen := map[string]bool{title: true}
	add := func(s string) {
		if s != "" && !seen[s] {
			seen[s] = true
			aliases = append(aliases, s)
		}
	}
	lower := strings.ToLower(title)
	add(lower)
	add(common.StripDiacritics(lower))
	return aliases
}

// MatchesQuery reports whether the schema matches a free-text search query.
// The query and every candidate name are folded to lowercase ASCII before
// comparison; a match is a substring hit or a close fuzzy ratio. An empty
// query matches everything.
func (s *FormSchema) MatchesQuery(query string) bool {
	q := fold(query)
	if q == "" {
		return true
	}

	candidates := make([]string, 0, len(s.Aliases)+2)
	candidates = append(candidates, s.Title, s.FormID)
	candidates = append(candidates, s.Aliases...)

	for _, candidate := range candidates {
		folded := fold(candidate)
		if folded == "" {
			continue
		}
		if strings.Contains(folded, q) {
			return true
		}
		if common.Similarity(folded, q) >= searchSimilarityThreshold {
			return true
		}
	}
	return false
}

func fold(s string) string {
	return common.StripDiacritics(strings.ToLower(common.CollapseWhitespace(s)))
}
