package score

import (
	"math"
	"testing"

	"github.com/ppiankov/claimforge/internal/model"
)

func TestRankSources_TopK(t *testing.T) {
	claim := "fermented cabbage soups spread across eastern europe"
	sources := []model.SourceDetails{
		{ID: "s1", Title: "Quantum computing advances", Abstract: "qubits and gates"},
		{ID: "s2", Title: "Fermented cabbage soups", Abstract: "spread across eastern europe"},
		{ID: "s3", Title: "Cabbage fermentation", Abstract: "eastern european soups"},
	}

	ranked := RankSources(claim, nil, sources, 2)
	if len(ranked) != 2 {
		t.Fatalf("expected 2 ranked sources, got %d", len(ranked))
	}
	if ranked[0].Source.ID != "s2" {
		t.Errorf("expected s2 first, got %s", ranked[0].Source.ID)
	}
	for _, r := range ranked {
		if r.Source.ID == "s1" {
			t.Error("irrelevant source survived top-k truncation")
		}
	}
}

func TestRankSources_AnchorBoostReorders(t *testing.T) {
	claim := "grain storage practices in medieval settlements"
	sources := []model.SourceDetails{
		{ID: "plain", Title: "Storage practices overview", Abstract: "grain storage practices in medieval settlements"},
		{ID: "anchored", Title: "Novgorod granary excavations", Abstract: "grain storage practices in medieval settlements"},
	}

	// Identical base relevance; the anchor pushes the second source ahead.
	ranked := RankSources(claim, []string{"Novgorod"}, sources, 0)
	if ranked[0].Source.ID != "anchored" {
		t.Errorf("expected anchored source first, got %s", ranked[0].Source.ID)
	}
	delta := ranked[0].Score - ranked[1].Score
	if math.Abs(delta-AnchorBoost) > 1e-9 {
		t.Errorf("score delta = %v, want %v", delta, AnchorBoost)
	}
}

func TestRankSources_BoostCappedAtOne(t *testing.T) {
	claim := "alpha beta gamma delta epsilon zeta theta iota kappa lambda omicron sigma"
	src := model.SourceDetails{ID: "max", Title: claim, Abstract: claim}

	ranked := RankSources(claim, []string{"alpha"}, []model.SourceDetails{src}, 0)
	if ranked[0].Score > 1 {
		t.Errorf("boosted score %v exceeds 1.0", ranked[0].Score)
	}
}

func TestRankSources_StableOnTies(t *testing.T) {
	claim := "unmatched claim text entirely"
	sources := []model.SourceDetails{
		{ID: "a", Title: "one"},
		{ID: "b", Title: "two"},
		{ID: "c", Title: "three"},
	}

	ranked := RankSources(claim, nil, sources, 0)
	for i, want := range []string{"a", "b", "c"} {
		if ranked[i].Source.ID != want {
			t.Errorf("position %d: got %s, want %s (ties must keep input order)", i, ranked[i].Source.ID, want)
		}
	}
}

func TestRankSources_EmptyAnchorsIgnored(t *testing.T) {
	claim := "soil composition analysis methods"
	src := model.SourceDetails{ID: "s", Title: "Soil composition", Abstract: "analysis methods"}

	plain := RankSources(claim, nil, []model.SourceDetails{src}, 0)
	blank := RankSources(claim, []string{"", "  "}, []model.SourceDetails{src}, 0)
	if plain[0].Score != blank[0].Score {
		t.Errorf("blank anchors changed the score: %v vs %v", plain[0].Score, blank[0].Score)
	}
}
