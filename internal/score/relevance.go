// Package score ranks resolved sources against claim text. Scoring is
// pure and deterministic so card generation is reproducible.
package score

import (
	"math"
	"regexp"
	"strings"

	"github.com/ppiankov/claimforge/internal/model"
)

var wordBoundary = regexp.MustCompile(`\W+`)

// Tokenize splits s on word boundaries, lowercases, and discards tokens
// of length <= 2 (stopword-ish filter).
func Tokenize(s string) []string {
	parts := wordBoundary.Split(strings.ToLower(s), -1)
	tokens := make([]string, 0, len(parts))
	for _, t := range parts {
		if len(t) > 2 {
			tokens = append(tokens, t)
		}
	}
	return tokens
}

// Relevance scores textual overlap between a claim and a source's
// title+abstract, in [0,1].
//
// The denominator is max(8, floor(0.75 * tokenCount)): the floor of 8
// keeps very short claims from scoring 1.0 on a single shared token, and
// the 0.75 factor scales sub-linearly so long claims aren't penalized for
// not matching every token.
func Relevance(claim string, source model.SourceDetails) float64 {
	tokens := Tokenize(claim)
	if len(tokens) == 0 {
		return 0
	}

	text := strings.ToLower(source.Title + " " + source.Abstract)
	hits := 0
	for _, t := range tokens {
		if strings.Contains(text, t) {
			hits++
		}
	}

	denom := math.Max(8, math.Floor(float64(len(tokens))*0.75))
	return math.Min(1, float64(hits)/denom)
}
