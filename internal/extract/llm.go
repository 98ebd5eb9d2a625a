package extract

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/ppiankov/claimforge/internal/llm"
	"github.com/ppiankov/claimforge/internal/model"
)

const extractSystemPrompt = "You extract atomic, falsifiable claims from research source metadata. Respond with strict JSON only, no prose."

// LLMExtractor extracts claims via an OpenAI-compatible chat model.
type LLMExtractor struct {
	client *llm.Client
}

// NewLLMExtractor creates an extractor on top of the given client.
func NewLLMExtractor(client *llm.Client) *LLMExtractor {
	return &LLMExtractor{client: client}
}

// Name identifies the extractor for provenance.
func (e *LLMExtractor) Name() string {
	return "llm-extractor:" + e.client.Name()
}

// Extract asks the model for claims and parses its JSON reply.
func (e *LLMExtractor) Extract(ctx context.Context, item model.ParentItemMeta, sources []model.SourceDetails, maxClaims int) ([]model.ExtractedClaim, error) {
	prompt := BuildPrompt(item, sources, maxClaims)

	reply, err := e.client.Complete(ctx, extractSystemPrompt, prompt)
	if err != nil {
		return nil, fmt.Errorf("extract claims: %w", err)
	}

	raw := llm.ExtractJSON(reply)
	if raw == "" {
		return nil, fmt.Errorf("extract claims: no JSON in model reply")
	}

	var payload struct {
		Claims []model.ExtractedClaim `json:"claims"`
	}
	if err := json.Unmarshal([]byte(raw), &payload); err != nil {
		return nil, fmt.Errorf("extract claims: parse reply: %w", err)
	}

	return sanitizeClaims(payload.Claims, maxClaims), nil
}
