package resolver

import (
	"strings"

	"github.com/hbollon/go-edlib"
	"github.com/surgebase/porter2"
)

// suggestionFloor is the minimum similarity a candidate must clear before
// Resolver attaches it as a "did you mean" hint on a stub-constant
// diagnostic; below it a wrong guess is worse than no guess.
const suggestionFloor = 0.75

// bestSuggestion ranks candidates against unresolved and returns the
// closest one, or "" if candidates is empty or nothing clears
// suggestionFloor. Each name is Porter2-stemmed before ranking so that
// plural/verb-form variants (Users vs User, Handler vs Handle) still score
// as close, then compared by Jaro-Winkler similarity on the stemmed form.
func bestSuggestion(unresolved string, candidates []string) string {
	stemmedTarget := porter2.Stem(strings.ToLower(unresolved))
	best := ""
	var bestScore float32
	for _, c := range candidates {
		score, err := edlib.StringsSimilarity(stemmedTarget, porter2.Stem(strings.ToLower(c)), edlib.JaroWinkler)
		if err != nil {
			continue
		}
		if score > bestScore {
			bestScore = score
			best = c
		}
	}
	if bestScore < suggestionFloor {
		return ""
	}
	return best
}
