// Package resolve turns loose source references (title/DOI/URL) into
// canonical source metadata with abstract text. Resolvers are pluggable;
// this package ships providers for Crossref, OpenAlex, Semantic Scholar,
// and PubMed, plus chaining and caching wrappers.
package resolve

import (
	"context"
	"strings"

	"github.com/ppiankov/claimforge/internal/model"
)

// Options carries pass-through resolution hints.
type Options struct {
	MaxSources  int
	Concurrency int

	// Hints are provider-specific (e.g. a preferred source list).
	Hints map[string]any
}

// Resolver turns a loose reference into canonical source metadata.
//
// Implementations return (nil, nil) when the reference cannot be resolved
// confidently. The pipeline treats a returned error the same as a nil
// result: the ref is dropped and the run continues.
type Resolver interface {
	// Name identifies the resolver for provenance, e.g. "crossref".
	Name() string

	Resolve(ctx context.Context, ref model.LinkedSourceRef, opts Options) (*model.SourceDetails, error)
}

// DedupeSources removes duplicates, preferring DOI as the identity key
// and falling back to the lowercased title. Input order is preserved.
func DedupeSources(sources []model.SourceDetails) []model.SourceDetails {
	seen := make(map[string]bool)
	unique := make([]model.SourceDetails, 0, len(sources))

	for _, s := range sources {
		key := s.DOI
		if key == "" {
			key = strings.ToLower(strings.TrimSpace(s.Title))
		}
		if !seen[key] {
			seen[key] = true
			unique = append(unique, s)
		}
	}

	return unique
}

// titleMatches reports whether a candidate title confidently matches the
// requested one: equal after normalization, or one contains the other.
func titleMatches(want, got string) bool {
	w := normalizeTitle(want)
	g := normalizeTitle(got)
	if w == "" || g == "" {
		return false
	}
	return w == g || strings.Contains(g, w) || strings.Contains(w, g)
}

func normalizeTitle(s string) string {
	return strings.Join(strings.Fields(strings.ToLower(s)), " ")
}
