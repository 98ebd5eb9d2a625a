// Package pipeline orchestrates claim-card synthesis: resolve linked
// references, extract claims, rank and grade evidence per claim,
// aggregate verdicts, and assemble auditable cards. All I/O is delegated
// to the injected Resolver/Extractor/Judge/Storage collaborators.
package pipeline

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/ppiankov/claimforge/internal/extract"
	"github.com/ppiankov/claimforge/internal/judge"
	"github.com/ppiankov/claimforge/internal/model"
	"github.com/ppiankov/claimforge/internal/resolve"
	"github.com/ppiankov/claimforge/internal/score"
	"github.com/ppiankov/claimforge/internal/storage"
	"github.com/ppiankov/claimforge/internal/verdict"
	"github.com/ppiankov/claimforge/internal/worker"
)

// ErrJudgeRequired is returned when UseJudge is set without a Judge. It
// is a precondition failure: no resolution work starts before the check.
var ErrJudgeRequired = errors.New("UseJudge=true requires a Judge")

// Tunable defaults. Zero-valued Options fields fall back to these.
const (
	DefaultMaxSourcesToResolve    = 120
	DefaultResolutionConcurrency  = 6
	DefaultMaxClaims              = 12
	DefaultMaxSourcesForSynthesis = 60
	DefaultEvidenceTopK           = 8
	DefaultJudgeConcurrency       = 6
)

const (
	generatedBy        = "claimforge:cards@1"
	heuristicRationale = "Auto-mapped from title/abstract match (heuristic)"
	excerptMaxRunes    = 260
)

// Options configures a pipeline run. Resolver and Extractor are required;
// everything else has a default or is optional.
type Options struct {
	Resolver  resolve.Resolver
	Extractor extract.Extractor

	// UseJudge enables per-evidence LLM judging. Without it every
	// evidence item gets polarity mixed and a relevance score, so
	// verdicts stay within {mixed, insufficient}.
	UseJudge bool
	Judge    judge.Judge

	MaxSourcesToResolve   int
	ResolutionConcurrency int

	MaxClaims              int
	MaxSourcesForSynthesis int

	EvidenceTopK     int
	JudgeConcurrency int

	// ExtraQueries are stored on each card alongside the synthesized
	// ones, for later search/refresh.
	ExtraQueries []string

	// ResolutionHints pass through to the resolver untouched.
	ResolutionHints map[string]any

	// Storage, when set and the item has an id, receives each card as
	// it is produced and a bulk call at the end. Both happen; adapters
	// must upsert idempotently.
	Storage storage.Adapter
}

func (o Options) withDefaults() Options {
	if o.MaxSourcesToResolve <= 0 {
		o.MaxSourcesToResolve = DefaultMaxSourcesToResolve
	}
	if o.ResolutionConcurrency <= 0 {
		o.ResolutionConcurrency = DefaultResolutionConcurrency
	}
	if o.MaxClaims <= 0 {
		o.MaxClaims = DefaultMaxClaims
	}
	if o.MaxSourcesForSynthesis <= 0 {
		o.MaxSourcesForSynthesis = DefaultMaxSourcesForSynthesis
	}
	if o.EvidenceTopK <= 0 {
		o.EvidenceTopK = DefaultEvidenceTopK
	}
	if o.JudgeConcurrency <= 0 {
		o.JudgeConcurrency = DefaultJudgeConcurrency
	}
	return o
}

// ResolveLinkedSources resolves up to maxSources refs with a bounded
// worker pool, preserving input order in the output. Individual resolver
// failures (error or nil result) drop that ref and the run continues: a
// single bad reference must never abort the whole run. Refs that resolve
// to the same source (by DOI, else title) collapse to one entry.
func ResolveLinkedSources(ctx context.Context, refs []model.LinkedSourceRef, resolver resolve.Resolver, maxSources, concurrency int, hints map[string]any) []model.SourceDetails {
	if maxSources > 0 && len(refs) > maxSources {
		refs = refs[:maxSources]
	}

	opts := resolve.Options{MaxSources: maxSources, Concurrency: concurrency, Hints: hints}
	results := worker.Map(ctx, refs, concurrency, func(ctx context.Context, _ int, ref model.LinkedSourceRef) *model.SourceDetails {
		details, err := resolver.Resolve(ctx, ref, opts)
		if err != nil {
			return nil
		}
		return details
	})

	resolved := make([]model.SourceDetails, 0, len(results))
	for _, r := range results {
		if r != nil {
			resolved = append(resolved, *r)
		}
	}
	return resolve.DedupeSources(resolved)
}

// BuildClaimCardsFromItem runs the full pipeline for one parent item and
// its linked references. Zero linked sources, zero resolved sources, or
// zero extracted claims yield an empty card list, not an error; only a
// failed extraction (or storage failure) aborts the run.
func BuildClaimCardsFromItem(ctx context.Context, item model.ParentItemMeta, linked []model.LinkedSourceRef, opts Options) ([]model.ClaimCard, error) {
	opts = opts.withDefaults()

	if opts.UseJudge && opts.Judge == nil {
		return nil, ErrJudgeRequired
	}

	now := time.Now().UTC()

	resolved := ResolveLinkedSources(ctx, linked, opts.Resolver,
		opts.MaxSourcesToResolve, opts.ResolutionConcurrency, opts.ResolutionHints)

	synthesis := resolved
	if len(synthesis) > opts.MaxSourcesForSynthesis {
		synthesis = synthesis[:opts.MaxSourcesForSynthesis]
	}

	extracted, err := opts.Extractor.Extract(ctx, item, synthesis, opts.MaxClaims)
	if err != nil {
		return nil, fmt.Errorf("extract claims: %w", err)
	}
	if len(extracted) > opts.MaxClaims {
		extracted = extracted[:opts.MaxClaims]
	}

	dataset := model.DatasetCounters{
		LinkedCount:           len(linked),
		ResolvedCount:         len(resolved),
		UsedForSynthesisCount: len(synthesis),
	}

	cards := make([]model.ClaimCard, 0, len(extracted))
	for _, c := range extracted {
		queries := make([]string, 0, len(opts.ExtraQueries)+2)
		queries = append(queries, c.Claim)
		queries = append(queries, opts.ExtraQueries...)
		queries = append(queries, item.Title+": "+c.Claim)

		ranked := score.RankSources(c.Claim, c.Anchors, resolved, opts.EvidenceTopK)
		evidence := gradeEvidence(ctx, c.Claim, ranked, opts)
		outcome := verdict.Aggregate(evidence)

		card := model.ClaimCard{
			ID:         model.StableClaimID(c.Claim, c.Scope, c.Topic),
			Claim:      c.Claim,
			Scope:      c.Scope,
			Topic:      c.Topic,
			Verdict:    outcome.Verdict,
			Confidence: outcome.Confidence,
			Evidence:   evidence,
			Queries:    queries,
			CreatedAt:  now,
			UpdatedAt:  now,
			Provenance: provenanceFor(item, dataset, opts),
		}

		cards = append(cards, card)

		if opts.Storage != nil && item.ID != "" {
			if err := opts.Storage.SaveCard(ctx, card, item.ID); err != nil {
				return nil, fmt.Errorf("save card %s: %w", card.ID, err)
			}
		}
	}

	if opts.Storage != nil && item.ID != "" {
		if err := opts.Storage.SaveCardsForItem(ctx, cards, item.ID); err != nil {
			return nil, fmt.Errorf("save cards for item %s: %w", item.ID, err)
		}
	}

	return cards, nil
}

// RefreshClaimCardForItem re-resolves the (possibly changed) linked
// source list and re-grades evidence for the card's existing claim text,
// without re-extraction. Verdict, confidence, evidence, UpdatedAt, and
// the provenance dataset change; id, claim, scope, topic, and CreatedAt
// are preserved.
func RefreshClaimCardForItem(ctx context.Context, item model.ParentItemMeta, linked []model.LinkedSourceRef, card model.ClaimCard, opts Options) (model.ClaimCard, error) {
	opts = opts.withDefaults()

	if opts.UseJudge && opts.Judge == nil {
		return model.ClaimCard{}, ErrJudgeRequired
	}

	resolved := ResolveLinkedSources(ctx, linked, opts.Resolver,
		opts.MaxSourcesToResolve, opts.ResolutionConcurrency, opts.ResolutionHints)

	ranked := score.RankSources(card.Claim, nil, resolved, opts.EvidenceTopK)
	evidence := gradeEvidence(ctx, card.Claim, ranked, opts)
	outcome := verdict.Aggregate(evidence)

	refreshed := card
	refreshed.Verdict = outcome.Verdict
	refreshed.Confidence = outcome.Confidence
	refreshed.Evidence = evidence
	refreshed.UpdatedAt = time.Now().UTC()

	refreshed.Provenance.Resolvers = []string{opts.Resolver.Name()}
	refreshed.Provenance.Model = ""
	refreshed.Provenance.Judge = ""
	if opts.UseJudge {
		refreshed.Provenance.Model = opts.Judge.Name()
		refreshed.Provenance.Judge = opts.Judge.Name()
	}
	refreshed.Provenance.Dataset = model.DatasetCounters{
		LinkedCount:           len(linked),
		ResolvedCount:         len(resolved),
		UsedForSynthesisCount: min(opts.MaxSourcesForSynthesis, len(resolved)),
	}

	if opts.Storage != nil && item.ID != "" {
		if err := opts.Storage.SaveCard(ctx, refreshed, item.ID); err != nil {
			return model.ClaimCard{}, fmt.Errorf("save card %s: %w", refreshed.ID, err)
		}
	}

	return refreshed, nil
}

// gradeEvidence turns the ranked candidate set into graded evidence
// items, judged concurrently when a judge is enabled and mapped
// heuristically otherwise. Rank order is preserved either way; failed
// judge calls drop their item from the set.
func gradeEvidence(ctx context.Context, claim string, ranked []score.RankedSource, opts Options) []model.EvidenceItem {
	if !opts.UseJudge {
		evidence := make([]model.EvidenceItem, len(ranked))
		for i, r := range ranked {
			evidence[i] = model.EvidenceItem{
				Source:    r.Source,
				Polarity:  model.PolarityMixed,
				Excerpt:   bestExcerpt(r.Source),
				Rationale: heuristicRationale,
				Score:     score.Relevance(claim, r.Source),
				Locator:   locatorFor(r.Source),
			}
		}
		return evidence
	}

	judged := worker.Map(ctx, ranked, opts.JudgeConcurrency, func(ctx context.Context, _ int, r score.RankedSource) *model.EvidenceItem {
		result, err := opts.Judge.Judge(ctx, claim, r.Source)
		if err != nil {
			return nil
		}
		return &model.EvidenceItem{
			Source:    r.Source,
			Polarity:  result.Polarity,
			Excerpt:   bestExcerpt(r.Source),
			Rationale: result.Rationale,
			Score:     result.Score,
			Locator:   locatorFor(r.Source),
		}
	})

	evidence := make([]model.EvidenceItem, 0, len(judged))
	for _, e := range judged {
		if e != nil {
			evidence = append(evidence, *e)
		}
	}
	return evidence
}

func provenanceFor(item model.ParentItemMeta, dataset model.DatasetCounters, opts Options) model.Provenance {
	p := model.Provenance{
		GeneratedBy: generatedBy,
		Resolvers:   []string{opts.Resolver.Name()},
		Item: model.ItemSnapshot{
			ID:        item.ID,
			Title:     item.Title,
			Tags:      item.Tags,
			CreatedAt: item.CreatedAt,
		},
		Dataset: dataset,
	}
	if opts.UseJudge {
		p.Model = opts.Judge.Name()
		p.Judge = opts.Judge.Name()
	}
	return p
}

// bestExcerpt returns the source abstract truncated to 260 runes with an
// ellipsis, or empty when there is no abstract.
func bestExcerpt(s model.SourceDetails) string {
	abstract := []rune(strings.TrimSpace(s.Abstract))
	if len(abstract) > excerptMaxRunes {
		return string(abstract[:excerptMaxRunes]) + "…"
	}
	return string(abstract)
}

func locatorFor(s model.SourceDetails) *model.Locator {
	if s.URL == "" {
		return nil
	}
	return &model.Locator{URL: s.URL}
}
