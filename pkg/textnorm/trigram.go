package textnorm

import (
	"strings"
	"unicode"
)

// DefaultSimilarityThreshold mirrors pg_trgm.similarity_threshold so in-process
// fuzzy matching agrees with the Postgres `%` operator.
const DefaultSimilarityThreshold = 0.3

// Trigrams returns the set of padded three-rune substrings of s using pg_trgm
// word rules: each alphanumeric word is prefixed by two spaces and suffixed by
// one before slicing.
func Trigrams(s string) map[string]struct{} {
	set := make(map[string]struct{})
	words := strings.FieldsFunc(s, func(r rune) bool {
		return !unicode.IsLetter(r) && !unicode.IsDigit(r)
	})
	for _, word := range words {
		padded := []rune("  " + word + " ")
		for i := 0; i+3 <= len(padded); i++ {
			set[string(padded[i:i+3])] = struct{}{}
		}
	}
	return set
}

// Similarity is the Jaccard ratio of the trigram sets of a and b, in [0, 1].
func Similarity(a, b string) float64 {
	ta, tb := Trigrams(a), Trigrams(b)
	if len(ta) == 0 || len(tb) == 0 {
		return 0
	}
	shared := 0
	for g := range ta {
		if _, ok := tb[g]; ok {
			shared++
		}
	}
	return float64(shared) / float64(len(ta)+len(tb)-shared)
}

// Match reports whether a normalized shadow value satisfies a normalized query.
// An empty query matches every non-nil value. Fuzzy matching accepts values
// whose trigram similarity reaches DefaultSimilarityThreshold.
func Match(shadow *string, query string, fuzzy bool) bool {
	if shadow == nil {
		return false
	}
	if query == "" || strings.Contains(*shadow, query) {
		return true
	}
	return fuzzy && Similarity(*shadow, query) >= DefaultSimilarityThreshold
}
