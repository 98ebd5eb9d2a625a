package judge

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"

	"github.com/ppiankov/claimforge/internal/llm"
	"github.com/ppiankov/claimforge/internal/model"
)

const judgeSystemPrompt = "You evaluate whether a research source supports, contradicts, or is irrelevant to a claim. Respond with strict JSON only, no prose."

// LLMJudge grades evidence via an OpenAI-compatible chat model.
type LLMJudge struct {
	client *llm.Client
}

// NewLLMJudge creates a judge on top of the given client.
func NewLLMJudge(client *llm.Client) *LLMJudge {
	return &LLMJudge{client: client}
}

// Name identifies the judge for provenance.
func (j *LLMJudge) Name() string {
	return j.client.Name()
}

// Judge asks the model to classify one (claim, source) pair.
func (j *LLMJudge) Judge(ctx context.Context, claim string, source model.SourceDetails) (Result, error) {
	prompt := buildJudgePrompt(claim, source)

	reply, err := j.client.Complete(ctx, judgeSystemPrompt, prompt)
	if err != nil {
		return Result{}, fmt.Errorf("judge evidence: %w", err)
	}

	raw := llm.ExtractJSON(reply)
	if raw == "" {
		return Result{}, fmt.Errorf("judge evidence: no JSON in model reply")
	}

	var payload Result
	if err := json.Unmarshal([]byte(raw), &payload); err != nil {
		return Result{}, fmt.Errorf("judge evidence: parse reply: %w", err)
	}

	if !model.ValidPolarity(payload.Polarity) {
		return Result{}, fmt.Errorf("judge evidence: invalid polarity %q", payload.Polarity)
	}
	if payload.Score < 0 {
		payload.Score = 0
	}
	if payload.Score > 1 {
		payload.Score = 1
	}

	return payload, nil
}

func buildJudgePrompt(claim string, source model.SourceDetails) string {
	authors := strings.Join(source.Authors, ", ")
	if authors == "" {
		authors = "N/A"
	}
	year := "N/A"
	if source.Year != 0 {
		year = fmt.Sprintf("%d", source.Year)
	}
	abstract := source.Abstract
	if abstract == "" {
		abstract = "No abstract available"
	}

	return fmt.Sprintf(`Evaluate whether this research source supports, contradicts, or is irrelevant to the claim.

Claim: %q

Source:
Title: %s
Authors: %s
Year: %s
Abstract: %s

Instructions:
- Respond with JSON: {"polarity": ..., "rationale": ..., "score": ...}
- polarity: one of "supports", "contradicts", "mixed", "irrelevant"
- rationale: brief 1-2 sentence explanation of the judgment
- score: confidence in this judgment (0-1)

Focus on whether the abstract directly addresses the claim, not just topical relevance.`,
		claim, source.Title, authors, year, abstract)
}
