package extract

import (
	"fmt"
	"regexp"
	"strings"

	"github.com/ppiankov/claimforge/internal/model"
)

// Prompt packing limits. Extraction reads many abstracts at once, so the
// packed corpus is bounded to keep context size under control.
const (
	promptMaxChars         = 14000
	promptMaxAbstractChars = 420
	promptMaxAuthors       = 8
)

var whitespace = regexp.MustCompile(`\s+`)

// PackSources renders sources as a text block suitable for an LLM prompt
// (or a heuristic extractor). Abstracts are collapsed and truncated, and
// sources that would push the block past maxChars are dropped.
func PackSources(sources []model.SourceDetails, maxChars, maxAbstractChars int) string {
	var lines []string
	used := 0

	for _, s := range sources {
		year := ""
		if s.Year != 0 {
			year = fmt.Sprintf(" (%d)", s.Year)
		}

		abs := strings.TrimSpace(whitespace.ReplaceAllString(s.Abstract, " "))
		if runes := []rune(abs); len(runes) > maxAbstractChars {
			abs = string(runes[:maxAbstractChars]) + "…"
		}
		if abs == "" {
			abs = "N/A"
		}

		authors := s.Authors
		if len(authors) > promptMaxAuthors {
			authors = authors[:promptMaxAuthors]
		}

		line := fmt.Sprintf("- Title: %s%s\n  Authors: %s\n  Abstract: %s\n",
			s.Title, year, strings.Join(authors, ", "), abs)

		if used+len(line) > maxChars {
			break
		}
		lines = append(lines, line)
		used += len(line)
	}

	return strings.Join(lines, "\n")
}

// BuildPrompt constructs the claim extraction prompt for an item and its
// synthesis corpus.
func BuildPrompt(item model.ParentItemMeta, sources []model.SourceDetails, maxClaims int) string {
	tags := strings.Join(item.Tags, ", ")
	if tags == "" {
		tags = "N/A"
	}
	summary := item.Summary
	if summary == "" {
		summary = "N/A"
	}

	packed := PackSources(sources, promptMaxChars, promptMaxAbstractChars)

	return fmt.Sprintf(`You are building auditable "claim cards" for a parent item (note/document/project).

Item title: %q
Tags: %s
Item summary: %s

Task:
Extract up to %d atomic, testable, cross-source claims that summarize the *state of evidence* across the linked sources.
Rules:
- Each claim must be falsifiable and specific (include population/setting/timeframe/outcome when possible).
- Avoid universal claims ("always", "proves").
- Prefer claims that can be audited against titles/abstracts.
- If evidence appears mixed across sources, still extract the claim but keep it narrow and testable.
- Add 0-5 anchors (source titles/substrings) most directly related.

Linked sources (titles + abstract snippets):
%s

Return JSON with a "claims" array. Each entry has:
- "claim": the atomic statement (required)
- "topic": free-form topic label, e.g. "policy", "metrics" (optional)
- "scope": object with optional population/intervention/comparator/outcome/timeframe/setting (optional)
- "anchors": 0-5 source titles or distinctive substrings (optional)`,
		item.Title, tags, summary, maxClaims, packed)
}
