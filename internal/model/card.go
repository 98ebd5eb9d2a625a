package model

import (
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"strings"
	"time"
)

// Verdict is the aggregator's categorical conclusion about a claim.
type Verdict string

const (
	VerdictUnverified   Verdict = "unverified"
	VerdictSupported    Verdict = "supported"
	VerdictContradicted Verdict = "contradicted"
	VerdictMixed        Verdict = "mixed"
	VerdictInsufficient Verdict = "insufficient"
)

// Polarity classifies the evidential relationship between one claim and
// one source. The heuristic (judge-free) path always assigns
// PolarityMixed, meaning "present but unclassified" rather than an actual
// polarity judgment.
type Polarity string

const (
	PolaritySupports    Polarity = "supports"
	PolarityContradicts Polarity = "contradicts"
	PolarityMixed       Polarity = "mixed"
	PolarityIrrelevant  Polarity = "irrelevant"
)

// ValidPolarity reports whether p is one of the four defined values.
func ValidPolarity(p Polarity) bool {
	switch p {
	case PolaritySupports, PolarityContradicts, PolarityMixed, PolarityIrrelevant:
		return true
	}
	return false
}

// Locator points into a source (section, page, or URL).
type Locator struct {
	Section string `json:"section,omitempty"`
	Page    int    `json:"page,omitempty"`
	URL     string `json:"url,omitempty"`
}

// EvidenceItem grades one (claim, source) relationship.
type EvidenceItem struct {
	Source    SourceDetails `json:"source"`
	Polarity  Polarity      `json:"polarity"`
	Excerpt   string        `json:"excerpt,omitempty"` // truncated abstract
	Rationale string        `json:"rationale,omitempty"`
	Score     float64       `json:"score"` // relevance/confidence in [0,1]
	Locator   *Locator      `json:"locator,omitempty"`
}

// ItemSnapshot records the parent item as it was at generation time.
type ItemSnapshot struct {
	ID        string   `json:"id,omitempty"`
	Title     string   `json:"title"`
	Tags      []string `json:"tags,omitempty"`
	CreatedAt string   `json:"createdAt,omitempty"`
}

// DatasetCounters records how much source material fed a card.
type DatasetCounters struct {
	LinkedCount           int `json:"linkedCount"`
	ResolvedCount         int `json:"resolvedCount"`
	UsedForSynthesisCount int `json:"usedForSynthesisCount"`
}

// Provenance records how a card was generated. Required on every card.
type Provenance struct {
	GeneratedBy string          `json:"generatedBy"`
	Model       string          `json:"model,omitempty"`
	Resolvers   []string        `json:"resolvers"`
	Judge       string          `json:"judge,omitempty"`
	Item        ItemSnapshot    `json:"item"`
	Dataset     DatasetCounters `json:"dataset"`
}

// ClaimCard is the persisted unit of output: one atomic claim paired with
// graded evidence, a verdict, and full provenance.
//
// The id is a deterministic hash of (claim, scope, topic); identical
// inputs always yield the same id, giving upsert semantics across
// re-extraction. Verdict and confidence are derived solely from the
// evidence list. CreatedAt is fixed at first creation; UpdatedAt advances
// on every refresh.
type ClaimCard struct {
	ID    string      `json:"id"`
	Claim string      `json:"claim"`
	Scope *ClaimScope `json:"scope,omitempty"`
	Topic string      `json:"topic,omitempty"`

	Verdict    Verdict `json:"verdict"`
	Confidence float64 `json:"confidence"` // 0..1

	Evidence []EvidenceItem `json:"evidence"`
	Queries  []string       `json:"queries"`

	CreatedAt time.Time `json:"createdAt"`
	UpdatedAt time.Time `json:"updatedAt"`

	Provenance Provenance `json:"provenance"`

	Notes string `json:"notes,omitempty"`
}

// StableClaimID derives a deterministic card id from claim text, scope,
// and topic. Claim text is trimmed and lowercased before hashing, so
// whitespace and case variations map to the same card; any change to
// scope or topic produces a new id.
func StableClaimID(claim string, scope *ClaimScope, topic string) string {
	normalized := strings.ToLower(strings.TrimSpace(claim))

	scopeStr := ""
	if scope != nil {
		// Struct field order fixes the key order, keeping the hash stable.
		b, _ := json.Marshal(scope)
		scopeStr = string(b)
	}

	sum := sha256.Sum256([]byte(normalized + scopeStr + topic))
	return "claim_" + hex.EncodeToString(sum[:8])
}
