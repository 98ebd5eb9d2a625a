package cli

import (
	"context"
	"fmt"
	"time"

	"github.com/spf13/cobra"

	"github.com/ppiankov/claimforge/internal/judge"
	"github.com/ppiankov/claimforge/internal/llm"
	"github.com/ppiankov/claimforge/internal/model"
	"github.com/ppiankov/claimforge/internal/pipeline"
	"github.com/ppiankov/claimforge/internal/storage"
)

var (
	refreshRefsFile string
	refreshDBPath   string
	refreshItemID   string
	refreshTitle    string
	refreshUseJudge bool
	refreshTimeout  time.Duration
)

// refreshCmd represents the refresh command
var refreshCmd = &cobra.Command{
	Use:   "refresh <card-id>",
	Short: "Re-grade a stored claim card against the current source list",
	Long: `Refresh re-resolves the item's linked sources and re-grades the
evidence for an existing card's claim, without re-running extraction.
The card keeps its id, claim, scope, topic, and creation time; verdict,
confidence, evidence, and the update time change.

Example:
  claimforge refresh claim_1a2b3c4d5e6f7a8b --db cards.db --item note-42 --title "Remote work productivity" --refs refs.yaml`,
	Args: cobra.ExactArgs(1),
	RunE: runRefresh,
}

func init() {
	rootCmd.AddCommand(refreshCmd)

	refreshCmd.Flags().StringVar(&refreshDBPath, "db", "", "SQLite database path (required)")
	refreshCmd.Flags().StringVar(&refreshItemID, "item", "", "item id the card belongs to (required)")
	refreshCmd.Flags().StringVar(&refreshTitle, "title", "", "item title (required)")
	refreshCmd.Flags().StringVar(&refreshRefsFile, "refs", "", "path to YAML/JSON list of linked source refs (required)")
	refreshCmd.Flags().StringSliceVar(&resolverNames, "resolver", []string{"crossref", "openalex", "semantic_scholar"}, "resolvers to chain, in order")
	refreshCmd.Flags().BoolVar(&refreshUseJudge, "use-judge", false, "grade evidence with the configured LLM judge")
	refreshCmd.Flags().DurationVar(&refreshTimeout, "timeout", 5*time.Minute, "overall run timeout")

	_ = refreshCmd.MarkFlagRequired("db")
	_ = refreshCmd.MarkFlagRequired("item")
	_ = refreshCmd.MarkFlagRequired("title")
	_ = refreshCmd.MarkFlagRequired("refs")
}

func runRefresh(cmd *cobra.Command, args []string) error {
	cardID := args[0]
	cfg := loadConfig()
	if !cmd.Flags().Changed("use-judge") {
		refreshUseJudge = cfg.Evidence.UseJudge
	}

	ctx, cancel := context.WithTimeout(context.Background(), refreshTimeout)
	defer cancel()

	refs, err := loadRefs(refreshRefsFile)
	if err != nil {
		return err
	}

	db, err := storage.OpenSQLite(refreshDBPath)
	if err != nil {
		return err
	}
	defer func() { _ = db.Close() }()

	card, err := db.GetCard(ctx, cardID)
	if err != nil {
		return fmt.Errorf("load card: %w", err)
	}
	if card == nil {
		return fmt.Errorf("card not found: %s", cardID)
	}

	log := newLogger()
	defer func() { _ = log.Sync() }()

	resolver, err := newResolver(resolverNames, cfg, log)
	if err != nil {
		return err
	}

	var evidenceJudge judge.Judge
	if refreshUseJudge {
		client, err := llm.NewClient(llmConfig(cfg))
		if err != nil {
			return fmt.Errorf("configure judge: %w", err)
		}
		evidenceJudge = judge.NewLLMJudge(client)
	}

	item := model.ParentItemMeta{ID: refreshItemID, Title: refreshTitle}

	refreshed, err := pipeline.RefreshClaimCardForItem(ctx, item, refs, *card, pipeline.Options{
		Resolver:               resolver,
		UseJudge:               refreshUseJudge,
		Judge:                  evidenceJudge,
		MaxSourcesToResolve:    cfg.Resolution.MaxSources,
		ResolutionConcurrency:  cfg.Resolution.Concurrency,
		MaxSourcesForSynthesis: cfg.Synthesis.MaxSources,
		EvidenceTopK:           cfg.Evidence.TopK,
		JudgeConcurrency:       cfg.Evidence.JudgeConcurrency,
		Storage:                db,
	})
	if err != nil {
		return err
	}

	fmt.Printf("Refreshed %s\n", refreshed.ID)
	fmt.Printf("  verdict:    %s -> %s\n", card.Verdict, refreshed.Verdict)
	fmt.Printf("  confidence: %.2f -> %.2f\n", card.Confidence, refreshed.Confidence)
	fmt.Printf("  evidence:   %d -> %d item(s)\n", len(card.Evidence), len(refreshed.Evidence))
	return nil
}
