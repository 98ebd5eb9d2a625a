package model

// ClaimScope disambiguates otherwise-identical claim text. All fields are
// optional; field order matters for stable id hashing (see StableClaimID).
type ClaimScope struct {
	Population   string `json:"population,omitempty"`
	Intervention string `json:"intervention,omitempty"`
	Comparator   string `json:"comparator,omitempty"`
	Outcome      string `json:"outcome,omitempty"`
	Timeframe    string `json:"timeframe,omitempty"`
	Setting      string `json:"setting,omitempty"`
}

// ExtractedClaim is an atomic, falsifiable statement proposed by an
// extractor. Anchors are 0-5 source titles (or distinctive substrings)
// hinting which sources most directly relate to the claim.
type ExtractedClaim struct {
	Claim   string      `json:"claim"`
	Scope   *ClaimScope `json:"scope,omitempty"`
	Topic   string      `json:"topic,omitempty"` // free-form label, e.g. "policy", "metrics"
	Anchors []string    `json:"anchors,omitempty"`
}
