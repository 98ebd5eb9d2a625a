package cli

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/spf13/cobra"
	"go.uber.org/zap"
	"gopkg.in/yaml.v3"

	"github.com/ppiankov/claimforge/internal/cache"
	"github.com/ppiankov/claimforge/internal/extract"
	"github.com/ppiankov/claimforge/internal/judge"
	"github.com/ppiankov/claimforge/internal/llm"
	"github.com/ppiankov/claimforge/internal/model"
	"github.com/ppiankov/claimforge/internal/pipeline"
	"github.com/ppiankov/claimforge/internal/resolve"
	"github.com/ppiankov/claimforge/internal/storage"
)

var (
	refsFile      string
	itemID        string
	itemTags      []string
	itemSummary   string
	outJSON       string
	resolverNames []string
	extractorName string
	useJudge      bool
	maxClaims     int
	maxResolve    int
	maxSynthesis  int
	topK          int
	concurrency   int
	extraQueries  []string
	dbPath        string
	buildTimeout  time.Duration

	judgeConcurrency int
)

// buildCmd represents the build command
var buildCmd = &cobra.Command{
	Use:   "build <item title>",
	Short: "Build claim cards for an item from a linked source list",
	Long: `Build resolves the item's linked source references, extracts atomic
cross-source claims, grades the evidence for each claim, and writes
auditable claim cards.

The references file is a YAML (or JSON) list of loose refs; only the
title is required:

  - title: "Remote work and productivity: a meta-analysis"
    doi: 10.1234/example
  - title: "Working from home and employee performance"

Example:
  claimforge build "Remote work productivity" --refs refs.yaml
  claimforge build "Remote work productivity" --refs refs.yaml --use-judge --extractor llm
  claimforge build "Remote work productivity" --refs refs.yaml --id note-42 --db cards.db`,
	Args: cobra.ExactArgs(1),
	RunE: runBuild,
}

func init() {
	rootCmd.AddCommand(buildCmd)

	buildCmd.Flags().StringVar(&refsFile, "refs", "", "path to YAML/JSON list of linked source refs (required)")
	buildCmd.Flags().StringVar(&itemID, "id", "", "item id (enables persistence)")
	buildCmd.Flags().StringSliceVar(&itemTags, "tag", nil, "item tags (repeatable)")
	buildCmd.Flags().StringVar(&itemSummary, "summary", "", "short item summary shown to the extractor")
	buildCmd.Flags().StringVar(&outJSON, "json", "cards.json", "output JSON path")
	buildCmd.Flags().StringSliceVar(&resolverNames, "resolver", []string{"crossref", "openalex", "semantic_scholar"}, "resolvers to chain, in order")
	buildCmd.Flags().StringVar(&extractorName, "extractor", "keyword", "claim extractor (keyword, llm)")
	buildCmd.Flags().BoolVar(&useJudge, "use-judge", false, "grade evidence with the configured LLM judge")
	buildCmd.Flags().IntVar(&maxClaims, "max-claims", pipeline.DefaultMaxClaims, "maximum claims to extract")
	buildCmd.Flags().IntVar(&maxResolve, "max-resolve", pipeline.DefaultMaxSourcesToResolve, "maximum refs to resolve")
	buildCmd.Flags().IntVar(&maxSynthesis, "max-synthesis", pipeline.DefaultMaxSourcesForSynthesis, "maximum sources fed to the extractor")
	buildCmd.Flags().IntVar(&topK, "top-k", pipeline.DefaultEvidenceTopK, "evidence items per card")
	buildCmd.Flags().IntVar(&concurrency, "concurrency", pipeline.DefaultResolutionConcurrency, "concurrent resolution/judging calls")
	buildCmd.Flags().StringSliceVar(&extraQueries, "query", nil, "extra refresh/search queries stored on each card")
	buildCmd.Flags().StringVar(&dbPath, "db", "", "SQLite database path (default: in-memory only)")
	buildCmd.Flags().DurationVar(&buildTimeout, "timeout", 5*time.Minute, "overall run timeout")

	_ = buildCmd.MarkFlagRequired("refs")
}

// applyConfigDefaults overlays file/env configuration onto flags the
// user did not set, preserving the flags > env > file > defaults order.
func applyConfigDefaults(cmd *cobra.Command, cfg model.Config) {
	f := cmd.Flags()
	if !f.Changed("max-claims") {
		maxClaims = cfg.Synthesis.MaxClaims
	}
	if !f.Changed("max-synthesis") {
		maxSynthesis = cfg.Synthesis.MaxSources
	}
	if !f.Changed("max-resolve") {
		maxResolve = cfg.Resolution.MaxSources
	}
	if !f.Changed("concurrency") {
		concurrency = cfg.Resolution.Concurrency
	}
	if !f.Changed("top-k") {
		topK = cfg.Evidence.TopK
	}
	if !f.Changed("use-judge") {
		useJudge = cfg.Evidence.UseJudge
	}
	if !f.Changed("db") && cfg.Storage.Driver == "sqlite" {
		dbPath = cfg.Storage.Path
	}

	// The --concurrency flag governs judging too when given explicitly.
	judgeConcurrency = cfg.Evidence.JudgeConcurrency
	if f.Changed("concurrency") {
		judgeConcurrency = concurrency
	}
}

func runBuild(cmd *cobra.Command, args []string) error {
	title := args[0]
	cfg := loadConfig()
	applyConfigDefaults(cmd, cfg)

	ctx, cancel := context.WithTimeout(context.Background(), buildTimeout)
	defer cancel()

	refs, err := loadRefs(refsFile)
	if err != nil {
		return err
	}

	log := newLogger()
	defer func() { _ = log.Sync() }()

	resolver, err := newResolver(resolverNames, cfg, log)
	if err != nil {
		return err
	}

	extractor, err := newExtractor(extractorName, cfg)
	if err != nil {
		return err
	}

	var evidenceJudge judge.Judge
	if useJudge {
		client, err := llm.NewClient(llmConfig(cfg))
		if err != nil {
			return fmt.Errorf("configure judge: %w", err)
		}
		evidenceJudge = judge.NewLLMJudge(client)
	}

	var store storage.Adapter
	if dbPath != "" {
		db, err := storage.OpenSQLite(dbPath)
		if err != nil {
			return err
		}
		defer func() { _ = db.Close() }()
		store = db
	} else if cfg.Storage.Driver == "memory" {
		store = storage.NewMemory()
	}

	item := model.ParentItemMeta{
		ID:        itemID,
		Title:     title,
		Tags:      itemTags,
		Summary:   itemSummary,
		CreatedAt: time.Now().UTC().Format(time.RFC3339),
	}

	if verbose {
		fmt.Fprintf(os.Stderr, "Building claim cards: %s\n", title)
		fmt.Fprintf(os.Stderr, "Linked refs: %d\n", len(refs))
		fmt.Fprintf(os.Stderr, "Resolvers: %s\n", strings.Join(resolverNames, ", "))
		fmt.Fprintf(os.Stderr, "Extractor: %s\n", extractor.Name())
		fmt.Fprintln(os.Stderr)
	}

	cards, err := pipeline.BuildClaimCardsFromItem(ctx, item, refs, pipeline.Options{
		Resolver:               resolver,
		Extractor:              extractor,
		UseJudge:               useJudge,
		Judge:                  evidenceJudge,
		MaxSourcesToResolve:    maxResolve,
		ResolutionConcurrency:  concurrency,
		MaxClaims:              maxClaims,
		MaxSourcesForSynthesis: maxSynthesis,
		EvidenceTopK:           topK,
		JudgeConcurrency:       judgeConcurrency,
		ExtraQueries:           extraQueries,
		Storage:                store,
	})
	if err != nil {
		return err
	}

	if err := writeCards(outJSON, cards); err != nil {
		return err
	}

	renderSummary(cards)
	if verbose {
		fmt.Fprintf(os.Stderr, "✓ Wrote JSON: %s\n", outJSON)
	}
	return nil
}

func loadRefs(path string) ([]model.LinkedSourceRef, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read refs file: %w", err)
	}

	var refs []model.LinkedSourceRef
	if err := yaml.Unmarshal(data, &refs); err != nil {
		return nil, fmt.Errorf("parse refs file: %w", err)
	}
	return refs, nil
}

func newLogger() *zap.Logger {
	if verbose {
		log, err := zap.NewDevelopment()
		if err == nil {
			return log
		}
	}
	return zap.NewNop()
}

func newResolver(names []string, cfg model.Config, log *zap.Logger) (resolve.Resolver, error) {
	client := resolve.NewClient(cfg.Resolution.Timeout, cfg.Resolution.RequestsPerSecond, cfg.Resolution.UserAgent, log)

	providers := make([]resolve.Resolver, 0, len(names))
	for _, name := range names {
		switch strings.ToLower(strings.TrimSpace(name)) {
		case "crossref":
			providers = append(providers, resolve.NewCrossref(client))
		case "openalex":
			providers = append(providers, resolve.NewOpenAlex(client))
		case "semantic_scholar", "semanticscholar":
			providers = append(providers, resolve.NewSemanticScholar(client))
		case "pubmed":
			providers = append(providers, resolve.NewPubMed(client))
		default:
			return nil, fmt.Errorf("unknown resolver: %s (supported: crossref, openalex, semantic_scholar, pubmed)", name)
		}
	}
	if len(providers) == 0 {
		return nil, fmt.Errorf("at least one resolver is required")
	}

	ttl := cfg.Resolution.CacheTTL
	return resolve.NewCached(resolve.NewMulti(providers...), cache.NewMemory(ttl, 2*ttl), ttl), nil
}

func newExtractor(name string, cfg model.Config) (extract.Extractor, error) {
	switch strings.ToLower(name) {
	case "keyword":
		return extract.NewKeywordExtractor(), nil
	case "llm":
		client, err := llm.NewClient(llmConfig(cfg))
		if err != nil {
			return nil, fmt.Errorf("configure extractor: %w", err)
		}
		return extract.NewLLMExtractor(client), nil
	default:
		return nil, fmt.Errorf("unknown extractor: %s (supported: keyword, llm)", name)
	}
}

func llmConfig(cfg model.Config) llm.Config {
	return llm.Config{
		Provider:  cfg.LLM.Provider,
		Model:     cfg.LLM.Model,
		APIKey:    cfg.LLM.APIKey,
		BaseURL:   cfg.LLM.BaseURL,
		Timeout:   cfg.LLM.Timeout,
		MaxTokens: cfg.LLM.MaxTokens,
	}
}

func writeCards(path string, cards []model.ClaimCard) error {
	data, err := json.MarshalIndent(cards, "", "  ")
	if err != nil {
		return fmt.Errorf("serialize cards: %w", err)
	}
	if err := os.WriteFile(path, data, 0644); err != nil {
		return fmt.Errorf("write cards: %w", err)
	}
	return nil
}

func renderSummary(cards []model.ClaimCard) {
	if len(cards) == 0 {
		fmt.Println("No claim cards produced (no resolvable sources or no extractable claims).")
		return
	}

	fmt.Printf("Produced %d claim card(s):\n\n", len(cards))
	for _, card := range cards {
		fmt.Printf("  %s\n", card.ID)
		fmt.Printf("    claim:      %s\n", card.Claim)
		fmt.Printf("    verdict:    %s (confidence %.2f)\n", card.Verdict, card.Confidence)
		fmt.Printf("    evidence:   %d item(s)\n", len(card.Evidence))
		fmt.Printf("    dataset:    %d linked / %d resolved / %d for synthesis\n\n",
			card.Provenance.Dataset.LinkedCount,
			card.Provenance.Dataset.ResolvedCount,
			card.Provenance.Dataset.UsedForSynthesisCount)
	}
}
