package extract

import (
	"context"
	"strings"

	"github.com/ppiankov/claimforge/internal/model"
)

// KeywordExtractor proposes claims by keyword-matching sentences in
// source abstracts. It trades claim quality for zero dependencies: the
// pipeline stays runnable with no LLM configured.
type KeywordExtractor struct {
	keywords []string
}

// NewKeywordExtractor creates the heuristic extractor.
func NewKeywordExtractor() *KeywordExtractor {
	return &KeywordExtractor{
		keywords: []string{
			"found that", "showed", "shows", "demonstrated", "suggests",
			"associated with", "increased", "decreased", "reduced",
			"improved", "no significant", "correlated", "effect of",
			"compared to", "larger", "smaller", "higher", "lower",
		},
	}
}

// Name identifies the extractor for provenance.
func (e *KeywordExtractor) Name() string {
	return "keyword-extractor:v1"
}

// Extract scans abstracts for result-bearing sentences and returns them
// as claims anchored to their source title.
func (e *KeywordExtractor) Extract(_ context.Context, _ model.ParentItemMeta, sources []model.SourceDetails, maxClaims int) ([]model.ExtractedClaim, error) {
	seen := make(map[string]bool)
	var claims []model.ExtractedClaim

	for _, s := range sources {
		if s.Abstract == "" {
			continue
		}
		for _, sentence := range splitSentences(s.Abstract) {
			lower := strings.ToLower(sentence)
			matched := false
			for _, kw := range e.keywords {
				if strings.Contains(lower, kw) {
					matched = true
					break
				}
			}
			if !matched {
				continue
			}

			key := strings.ToLower(strings.TrimSpace(sentence))
			if seen[key] {
				continue
			}
			seen[key] = true

			claims = append(claims, model.ExtractedClaim{
				Claim:   strings.TrimSpace(sentence),
				Anchors: []string{s.Title},
			})
			if maxClaims > 0 && len(claims) >= maxClaims {
				return sanitizeClaims(claims, maxClaims), nil
			}
		}
	}

	return sanitizeClaims(claims, maxClaims), nil
}

// splitSentences splits text into sentences (simple heuristic). Fragments
// shorter than 30 or longer than 500 characters are discarded.
func splitSentences(text string) []string {
	text = strings.ReplaceAll(text, "\n", " ")

	var sentences []string
	var current strings.Builder

	flush := func() {
		sentence := strings.TrimSpace(current.String())
		if len(sentence) >= 30 && len(sentence) <= 500 {
			sentences = append(sentences, sentence)
		}
		current.Reset()
	}

	for i, r := range text {
		current.WriteRune(r)
		if r == '.' || r == '!' || r == '?' {
			// Look ahead to avoid splitting on abbreviations.
			if i+1 < len(text) && (text[i+1] == ' ' || text[i+1] == '\t') {
				flush()
			}
		}
	}
	if current.Len() > 0 {
		flush()
	}

	return sentences
}
