package pipeline

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/ppiankov/claimforge/internal/judge"
	"github.com/ppiankov/claimforge/internal/model"
	"github.com/ppiankov/claimforge/internal/resolve"
)

// stubResolver resolves every ref into a source whose abstract echoes the
// title, and records how many calls it received. Refs whose title appears
// in failTitles resolve to nil.
type stubResolver struct {
	calls      atomic.Int64
	failTitles map[string]bool
}

func (r *stubResolver) Name() string { return "stub" }

func (r *stubResolver) Resolve(_ context.Context, ref model.LinkedSourceRef, _ resolve.Options) (*model.SourceDetails, error) {
	r.calls.Add(1)
	if r.failTitles[ref.Title] {
		return nil, errors.New("provider unavailable")
	}
	return &model.SourceDetails{
		ID:       "src-" + ref.Title,
		Title:    ref.Title,
		Abstract: "detailed abstract about " + ref.Title,
		URL:      "https://example.org/" + ref.Title,
		Provider: "stub",
	}, nil
}

type stubExtractor struct {
	claims []model.ExtractedClaim
	err    error
}

func (e *stubExtractor) Name() string { return "stub-extractor" }

func (e *stubExtractor) Extract(_ context.Context, _ model.ParentItemMeta, _ []model.SourceDetails, _ int) ([]model.ExtractedClaim, error) {
	return e.claims, e.err
}

type stubJudge struct {
	result judge.Result
	err    error
	calls  atomic.Int64
}

func (j *stubJudge) Name() string { return "stub-judge" }

func (j *stubJudge) Judge(_ context.Context, _ string, _ model.SourceDetails) (judge.Result, error) {
	j.calls.Add(1)
	return j.result, j.err
}

// recordingStorage counts per-card and bulk saves.
type recordingStorage struct {
	mu        sync.Mutex
	saved     []string
	bulkCalls int
	bulkSize  int
}

func (s *recordingStorage) Name() string { return "recording" }

func (s *recordingStorage) SaveCard(_ context.Context, card model.ClaimCard, _ string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.saved = append(s.saved, card.ID)
	return nil
}

func (s *recordingStorage) SaveCardsForItem(_ context.Context, cards []model.ClaimCard, _ string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.bulkCalls++
	s.bulkSize = len(cards)
	return nil
}

func refs(titles ...string) []model.LinkedSourceRef {
	out := make([]model.LinkedSourceRef, len(titles))
	for i, t := range titles {
		out[i] = model.LinkedSourceRef{Title: t}
	}
	return out
}

func TestResolveLinkedSources_DropsFailedRefs(t *testing.T) {
	resolver := &stubResolver{failTitles: map[string]bool{"bad": true}}
	linked := refs("one", "bad", "two", "three", "four")

	resolved := ResolveLinkedSources(context.Background(), linked, resolver, 0, 2, nil)
	if len(resolved) != 4 {
		t.Fatalf("expected 4 resolved sources, got %d", len(resolved))
	}
	// Output order follows input order with the failure removed.
	for i, want := range []string{"one", "two", "three", "four"} {
		if resolved[i].Title != want {
			t.Errorf("resolved[%d].Title = %s, want %s", i, resolved[i].Title, want)
		}
	}
}

func TestResolveLinkedSources_TruncatesToMax(t *testing.T) {
	resolver := &stubResolver{}
	linked := refs("a", "b", "c", "d", "e")

	resolved := ResolveLinkedSources(context.Background(), linked, resolver, 3, 2, nil)
	if len(resolved) != 3 {
		t.Errorf("expected 3 resolved sources, got %d", len(resolved))
	}
	if got := resolver.calls.Load(); got != 3 {
		t.Errorf("resolver called %d times, want 3 (refs beyond max must not be attempted)", got)
	}
}

func TestResolveLinkedSources_CollapsesDuplicates(t *testing.T) {
	// Two refs pointing at the same work resolve to one source.
	resolver := &stubResolver{}
	linked := refs("shared paper", "shared paper", "distinct paper")

	resolved := ResolveLinkedSources(context.Background(), linked, resolver, 0, 2, nil)
	if len(resolved) != 2 {
		t.Fatalf("expected 2 deduplicated sources, got %d", len(resolved))
	}
	if resolved[0].Title != "shared paper" || resolved[1].Title != "distinct paper" {
		t.Errorf("resolved = %v, %v", resolved[0].Title, resolved[1].Title)
	}
}

func TestBuildClaimCards_JudgeRequiredBeforeResolution(t *testing.T) {
	resolver := &stubResolver{}
	_, err := BuildClaimCardsFromItem(context.Background(), model.ParentItemMeta{Title: "t"}, refs("a"), Options{
		Resolver:  resolver,
		Extractor: &stubExtractor{},
		UseJudge:  true,
		Judge:     nil,
	})
	if !errors.Is(err, ErrJudgeRequired) {
		t.Fatalf("err = %v, want ErrJudgeRequired", err)
	}
	if resolver.calls.Load() != 0 {
		t.Error("resolver was called despite the precondition failure")
	}
}

func TestBuildClaimCards_HeuristicEndToEnd(t *testing.T) {
	resolver := &stubResolver{failTitles: map[string]bool{"missing": true}}
	extractor := &stubExtractor{claims: []model.ExtractedClaim{
		{Claim: "fermentation preserves nutrients in cabbage", Topic: "nutrition", Anchors: []string{"cabbage"}},
		{Claim: "salt concentration controls fermentation speed", Topic: "chemistry"},
	}}

	item := model.ParentItemMeta{ID: "item-1", Title: "Fermentation notes", Tags: []string{"food"}}
	linked := refs("cabbage fermentation", "missing", "salt brines")

	store := &recordingStorage{}
	cards, err := BuildClaimCardsFromItem(context.Background(), item, linked, Options{
		Resolver:     resolver,
		Extractor:    extractor,
		EvidenceTopK: 3,
		ExtraQueries: []string{"pickling"},
		Storage:      store,
	})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(cards) != 2 {
		t.Fatalf("expected 2 cards, got %d", len(cards))
	}

	for _, card := range cards {
		if card.ID == "" || !strings.HasPrefix(card.ID, "claim_") {
			t.Errorf("card id %q malformed", card.ID)
		}
		if len(card.Evidence) > 3 {
			t.Errorf("evidence exceeds top-k: %d", len(card.Evidence))
		}
		// Heuristic grading cannot produce decisive verdicts.
		if card.Verdict != model.VerdictMixed && card.Verdict != model.VerdictInsufficient {
			t.Errorf("heuristic verdict = %v, want mixed or insufficient", card.Verdict)
		}
		for _, e := range card.Evidence {
			if e.Polarity != model.PolarityMixed {
				t.Errorf("heuristic polarity = %v, want mixed", e.Polarity)
			}
			if e.Rationale != heuristicRationale {
				t.Errorf("rationale = %q", e.Rationale)
			}
		}
		if card.CreatedAt.IsZero() || !card.CreatedAt.Equal(card.UpdatedAt) {
			t.Error("fresh card must have CreatedAt == UpdatedAt, non-zero")
		}
	}

	first := cards[0]
	if first.Queries[0] != first.Claim {
		t.Errorf("queries[0] = %q, want the claim text", first.Queries[0])
	}
	if first.Queries[1] != "pickling" {
		t.Errorf("queries[1] = %q, want extra query", first.Queries[1])
	}
	if want := item.Title + ": " + first.Claim; first.Queries[2] != want {
		t.Errorf("queries[2] = %q, want %q", first.Queries[2], want)
	}

	prov := first.Provenance
	if prov.GeneratedBy != generatedBy {
		t.Errorf("generatedBy = %q", prov.GeneratedBy)
	}
	if len(prov.Resolvers) != 1 || prov.Resolvers[0] != "stub" {
		t.Errorf("resolvers = %v", prov.Resolvers)
	}
	if prov.Judge != "" || prov.Model != "" {
		t.Errorf("judge-free run must leave model/judge empty: %q/%q", prov.Model, prov.Judge)
	}
	ds := prov.Dataset
	if ds.LinkedCount != 3 || ds.ResolvedCount != 2 || ds.UsedForSynthesisCount != 2 {
		t.Errorf("dataset counters = %+v, want 3/2/2", ds)
	}
	if prov.Item.ID != "item-1" || prov.Item.Title != "Fermentation notes" {
		t.Errorf("item snapshot = %+v", prov.Item)
	}

	if len(store.saved) != 2 {
		t.Errorf("per-card saves = %d, want 2", len(store.saved))
	}
	if store.bulkCalls != 1 || store.bulkSize != 2 {
		t.Errorf("bulk save calls/size = %d/%d, want 1/2", store.bulkCalls, store.bulkSize)
	}
}

func TestBuildClaimCards_DeterministicIDs(t *testing.T) {
	extractor := &stubExtractor{claims: []model.ExtractedClaim{
		{Claim: "the claim under test", Topic: "t"},
	}}
	opts := Options{Resolver: &stubResolver{}, Extractor: extractor}
	item := model.ParentItemMeta{Title: "item"}

	a, err := BuildClaimCardsFromItem(context.Background(), item, refs("src"), opts)
	if err != nil {
		t.Fatal(err)
	}
	b, err := BuildClaimCardsFromItem(context.Background(), item, refs("src"), opts)
	if err != nil {
		t.Fatal(err)
	}
	if a[0].ID != b[0].ID {
		t.Errorf("ids differ across identical runs: %s != %s", a[0].ID, b[0].ID)
	}
}

func TestBuildClaimCards_ExtractionErrorAborts(t *testing.T) {
	_, err := BuildClaimCardsFromItem(context.Background(), model.ParentItemMeta{Title: "t"}, refs("a"), Options{
		Resolver:  &stubResolver{},
		Extractor: &stubExtractor{err: errors.New("llm unavailable")},
	})
	if err == nil || !strings.Contains(err.Error(), "extract claims") {
		t.Errorf("err = %v, want wrapped extraction error", err)
	}
}

func TestBuildClaimCards_TruncatesExcessClaims(t *testing.T) {
	var many []model.ExtractedClaim
	for i := 0; i < 10; i++ {
		many = append(many, model.ExtractedClaim{Claim: fmt.Sprintf("claim number %d stands alone", i)})
	}
	cards, err := BuildClaimCardsFromItem(context.Background(), model.ParentItemMeta{Title: "t"}, refs("a"), Options{
		Resolver:  &stubResolver{},
		Extractor: &stubExtractor{claims: many},
		MaxClaims: 4,
	})
	if err != nil {
		t.Fatal(err)
	}
	if len(cards) != 4 {
		t.Errorf("expected 4 cards after truncation, got %d", len(cards))
	}
}

func TestBuildClaimCards_NoSourcesNoClaims(t *testing.T) {
	cards, err := BuildClaimCardsFromItem(context.Background(), model.ParentItemMeta{Title: "t"}, nil, Options{
		Resolver:  &stubResolver{},
		Extractor: &stubExtractor{},
	})
	if err != nil {
		t.Fatalf("empty input must not error: %v", err)
	}
	if len(cards) != 0 {
		t.Errorf("expected no cards, got %d", len(cards))
	}
}

func TestBuildClaimCards_SkipsStorageWithoutItemID(t *testing.T) {
	store := &recordingStorage{}
	_, err := BuildClaimCardsFromItem(context.Background(), model.ParentItemMeta{Title: "no id"}, refs("a"), Options{
		Resolver:  &stubResolver{},
		Extractor: &stubExtractor{claims: []model.ExtractedClaim{{Claim: "a claim long enough"}}},
		Storage:   store,
	})
	if err != nil {
		t.Fatal(err)
	}
	if len(store.saved) != 0 || store.bulkCalls != 0 {
		t.Error("storage was called for an item without an id")
	}
}

func TestBuildClaimCards_JudgedVerdicts(t *testing.T) {
	j := &stubJudge{result: judge.Result{
		Polarity:  model.PolaritySupports,
		Rationale: "abstract directly confirms the claim",
		Score:     0.9,
	}}
	cards, err := BuildClaimCardsFromItem(context.Background(), model.ParentItemMeta{Title: "t"},
		refs("alpha", "beta", "gamma"), Options{
			Resolver:  &stubResolver{},
			Extractor: &stubExtractor{claims: []model.ExtractedClaim{{Claim: "alpha beta gamma relate somehow"}}},
			UseJudge:  true,
			Judge:     j,
		})
	if err != nil {
		t.Fatal(err)
	}
	card := cards[0]
	if card.Verdict != model.VerdictSupported {
		t.Errorf("verdict = %v, want supported", card.Verdict)
	}
	for _, e := range card.Evidence {
		if e.Polarity != model.PolaritySupports || e.Score != 0.9 {
			t.Errorf("evidence = %v/%v, want supports/0.9", e.Polarity, e.Score)
		}
	}
	if card.Provenance.Judge != "stub-judge" || card.Provenance.Model != "stub-judge" {
		t.Errorf("provenance judge/model = %q/%q", card.Provenance.Judge, card.Provenance.Model)
	}
	if j.calls.Load() == 0 {
		t.Error("judge was never called")
	}
}

func TestBuildClaimCards_FailedJudgeCallsDropEvidence(t *testing.T) {
	j := &stubJudge{err: errors.New("rate limited")}
	cards, err := BuildClaimCardsFromItem(context.Background(), model.ParentItemMeta{Title: "t"},
		refs("alpha", "beta"), Options{
			Resolver:  &stubResolver{},
			Extractor: &stubExtractor{claims: []model.ExtractedClaim{{Claim: "alpha and beta interact"}}},
			UseJudge:  true,
			Judge:     j,
		})
	if err != nil {
		t.Fatal(err)
	}
	if len(cards[0].Evidence) != 0 {
		t.Errorf("evidence = %d items, want 0 when every judge call fails", len(cards[0].Evidence))
	}
	if cards[0].Verdict != model.VerdictInsufficient {
		t.Errorf("verdict = %v, want insufficient", cards[0].Verdict)
	}
}

func TestRefreshClaimCard_PreservesIdentityFields(t *testing.T) {
	extractor := &stubExtractor{claims: []model.ExtractedClaim{
		{Claim: "original claim about fermentation", Topic: "food", Scope: &model.ClaimScope{Setting: "home"}},
	}}
	item := model.ParentItemMeta{ID: "item-9", Title: "Notes"}
	opts := Options{Resolver: &stubResolver{}, Extractor: extractor}

	cards, err := BuildClaimCardsFromItem(context.Background(), item, refs("one", "two"), opts)
	if err != nil {
		t.Fatal(err)
	}
	original := cards[0]

	time.Sleep(time.Millisecond)

	// Refresh against a grown source list.
	store := &recordingStorage{}
	refreshOpts := Options{Resolver: &stubResolver{}, Extractor: extractor, Storage: store}
	refreshed, err := RefreshClaimCardForItem(context.Background(), item,
		refs("one", "two", "three"), original, refreshOpts)
	if err != nil {
		t.Fatal(err)
	}

	if refreshed.ID != original.ID {
		t.Errorf("id changed on refresh: %s != %s", refreshed.ID, original.ID)
	}
	if refreshed.Claim != original.Claim || refreshed.Topic != original.Topic {
		t.Error("claim text or topic changed on refresh")
	}
	if refreshed.Scope == nil || refreshed.Scope.Setting != "home" {
		t.Errorf("scope changed on refresh: %+v", refreshed.Scope)
	}
	if !refreshed.CreatedAt.Equal(original.CreatedAt) {
		t.Error("CreatedAt changed on refresh")
	}
	if !refreshed.UpdatedAt.After(original.UpdatedAt) {
		t.Error("UpdatedAt did not advance on refresh")
	}

	ds := refreshed.Provenance.Dataset
	if ds.LinkedCount != 3 || ds.ResolvedCount != 3 {
		t.Errorf("refreshed dataset = %+v, want linked/resolved 3/3", ds)
	}

	if len(store.saved) != 1 {
		t.Errorf("refresh saves = %d, want 1", len(store.saved))
	}
}

func TestRefreshClaimCard_JudgePrecondition(t *testing.T) {
	resolver := &stubResolver{}
	_, err := RefreshClaimCardForItem(context.Background(), model.ParentItemMeta{ID: "i"}, refs("a"),
		model.ClaimCard{ID: "claim_x", Claim: "c"}, Options{
			Resolver: resolver,
			UseJudge: true,
		})
	if !errors.Is(err, ErrJudgeRequired) {
		t.Fatalf("err = %v, want ErrJudgeRequired", err)
	}
	if resolver.calls.Load() != 0 {
		t.Error("resolver was called despite the precondition failure")
	}
}

func TestBestExcerpt_Truncates(t *testing.T) {
	long := strings.Repeat("й", 300)
	got := bestExcerpt(model.SourceDetails{Abstract: "  " + long + "  "})
	runes := []rune(got)
	if len(runes) != excerptMaxRunes+1 {
		t.Errorf("excerpt length = %d runes, want %d + ellipsis", len(runes), excerptMaxRunes+1)
	}
	if runes[len(runes)-1] != '…' {
		t.Error("excerpt missing ellipsis")
	}

	if got := bestExcerpt(model.SourceDetails{Abstract: " short "}); got != "short" {
		t.Errorf("short abstract = %q, want trimmed verbatim", got)
	}
}
