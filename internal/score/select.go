package score

import (
	"math"
	"sort"
	"strings"

	"github.com/ppiankov/claimforge/internal/model"
)

// AnchorBoost is added to a candidate's score when its title contains one
// of the claim's anchor substrings. Anchors are a precision aid, not a
// filter: non-anchored sources stay eligible.
const AnchorBoost = 0.12

// RankedSource pairs a source with its (possibly boosted) relevance score.
type RankedSource struct {
	Source model.SourceDetails
	Score  float64
}

// RankSources scores every source against the claim, applies the anchor
// boost, and returns the top k candidates in descending score order. The
// sort is stable, so ties keep their input order.
func RankSources(claim string, anchors []string, sources []model.SourceDetails, k int) []RankedSource {
	ranked := make([]RankedSource, len(sources))
	for i, s := range sources {
		ranked[i] = RankedSource{Source: s, Score: Relevance(claim, s)}
	}

	lowered := make([]string, 0, len(anchors))
	for _, a := range anchors {
		if a = strings.ToLower(strings.TrimSpace(a)); a != "" {
			lowered = append(lowered, a)
		}
	}
	for i := range ranked {
		title := strings.ToLower(ranked[i].Source.Title)
		for _, a := range lowered {
			if strings.Contains(title, a) {
				ranked[i].Score = math.Min(1, ranked[i].Score+AnchorBoost)
				break
			}
		}
	}

	sort.SliceStable(ranked, func(i, j int) bool { return ranked[i].Score > ranked[j].Score })

	if k > 0 && len(ranked) > k {
		ranked = ranked[:k]
	}
	return ranked
}
