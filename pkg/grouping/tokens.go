package grouping

import (
	"strings"
	"unicode"
)

// stopwords are common English words dropped before vectorizing.
var stopwords = map[string]bool{
	"a": true, "an": true, "the": true, "and": true, "or": true,
	"but": true, "in": true, "on": true, "at": true, "to": true,
	"for": true, "of": true, "with": true, "by": true, "from": true,
	"is": true, "are": true, "was": true, "were": true, "be": true,
	"been": true, "being": true, "have": true, "has": true, "had": true,
	"do": true, "does": true, "did": true, "will": true, "would": true,
	"could": true, "should": true, "may": true, "might": true,
	"this": true, "that": true, "these": true, "those": true,
	"it": true, "its": true, "i": true, "we": true, "you": true,
	"he": true, "she": true, "they": true, "my": true, "your": true,
	"our": true, "us": true, "their": true, "them": true, "his": true, "her": true,
	"how": true, "what": true, "when": true, "where": true, "why": true, "which": true, "who": true,
	"not": true, "no": true, "just": true, "about": true, "into": true, "through": true,
	"up": true, "out": true, "if": true, "so": true, "can": true, "as": true,
	"all": true, "more": true, "also": true, "than": true, "very": true, "other": true,
	"such": true, "each": true, "both": true, "only": true, "own": true, "same": true,
}

// significantTokens splits text into lowercased alphanumeric words of two or
// more characters, without stop words.
func significantTokens(text string) []string {
	words := strings.FieldsFunc(strings.ToLower(text), func(r rune) bool {
		return !unicode.IsLetter(r) && !unicode.IsDigit(r)
	})

	var tokens []string
	for _, w := range words {
		if len([]rune(w)) >= 2 && !stopwords[w] {
			tokens = append(tokens, w)
		}
	}
	return tokens
}

// lowerSet returns the set of lowercased, trimmed values.
func lowerSet(values []string) map[string]bool {
	set := make(map[string]bool, len(values))
	for _, v := range values {
		if v = strings.ToLower(strings.TrimSpace(v)); v != "" {
			set[v] = true
		}
	}
	return set
}

// jaccardSimilarity returns the Jaccard index of two sets.
func jaccardSimilarity(setA, setB map[string]bool) float64 {
	if len(setA) == 0 || len(setB) == 0 {
		return 0
	}

	intersection := 0
	for t := range setA {
		if setB[t] {
			intersection++
		}
	}

	unionSize := len(setA) + len(setB) - intersection
	if unionSize == 0 {
		return 0
	}
	return float64(intersection) / float64(unionSize)
}
