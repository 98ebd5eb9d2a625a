// Package extract proposes candidate claims from a parent item and its
// resolved sources. The Extractor contract is pluggable: the LLM-backed
// implementation lives here next to a keyword heuristic that needs no
// credentials, and callers may substitute their own.
package extract

import (
	"context"

	"github.com/ppiankov/claimforge/internal/model"
)

// Extractor proposes a bounded list of atomic, falsifiable claims.
// Implementations should return at most 2*maxClaims; the pipeline
// truncates to maxClaims defensively either way.
type Extractor interface {
	// Name identifies the extractor for provenance.
	Name() string

	Extract(ctx context.Context, item model.ParentItemMeta, sources []model.SourceDetails, maxClaims int) ([]model.ExtractedClaim, error)
}

const maxAnchors = 5

// sanitizeClaims drops malformed entries and clamps list sizes: claims
// shorter than 8 characters are too vague to be falsifiable, anchors are
// capped at 5, and the list is capped at 2*maxClaims.
func sanitizeClaims(claims []model.ExtractedClaim, maxClaims int) []model.ExtractedClaim {
	out := make([]model.ExtractedClaim, 0, len(claims))
	for _, c := range claims {
		if len(c.Claim) < 8 {
			continue
		}
		if len(c.Anchors) > maxAnchors {
			c.Anchors = c.Anchors[:maxAnchors]
		}
		out = append(out, c)
		if maxClaims > 0 && len(out) >= maxClaims*2 {
			break
		}
	}
	return out
}
