package model

// ParentItemMeta is the subject being annotated: a note, document, or
// project. Immutable input to a pipeline run.
type ParentItemMeta struct {
	ID        string   `json:"id,omitempty"` // empty means "no id" (cards are not persisted per-item)
	Title     string   `json:"title"`
	Tags      []string `json:"tags,omitempty"`
	CreatedAt string   `json:"createdAt,omitempty"` // opaque timestamp supplied by the caller
	Summary   string   `json:"summary,omitempty"`
}

// LinkedSourceRef is a loosely specified reference to evidence. Only the
// title is required; identifiers improve resolution precision.
type LinkedSourceRef struct {
	Title   string   `json:"title"`
	Year    int      `json:"year,omitempty"`
	Authors []string `json:"authors,omitempty"`
	URL     string   `json:"url,omitempty"`

	DOI               string `json:"doi,omitempty"`
	ArxivID           string `json:"arxivId,omitempty"`
	OpenAlexID        string `json:"openAlexId,omitempty"`
	SemanticScholarID string `json:"semanticScholarId,omitempty"`
	PMID              string `json:"pmid,omitempty"`
	ISBN              string `json:"isbn,omitempty"`

	// Extra carries any custom fields the caller's application uses.
	Extra map[string]any `json:"extra,omitempty"`
}

// SourceDetails is a canonical resolved source. The abstract is the
// primary substrate for extraction and judging.
type SourceDetails struct {
	ID       string   `json:"id,omitempty"` // provider-specific stable id
	Title    string   `json:"title"`
	Authors  []string `json:"authors,omitempty"`
	Year     int      `json:"year,omitempty"`
	URL      string   `json:"url,omitempty"`
	Abstract string   `json:"abstract,omitempty"`

	Venue          string   `json:"venue,omitempty"`
	DOI            string   `json:"doi,omitempty"`
	FieldsOfStudy  []string `json:"fieldsOfStudy,omitempty"`
	CitationsCount int      `json:"citationsCount,omitempty"`

	// Provider names the resolver that produced this record, for provenance.
	Provider string `json:"provider,omitempty"`
}
