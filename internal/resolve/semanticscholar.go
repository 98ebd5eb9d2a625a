package resolve

import (
	"context"
	"net/url"

	"github.com/ppiankov/claimforge/internal/model"
)

const semanticScholarBase = "https://api.semanticscholar.org/graph/v1"

const semanticScholarFields = "title,abstract,year,authors,externalIds,venue,url,citationCount,fieldsOfStudy"

// SemanticScholar resolves references against the Semantic Scholar
// Academic Graph API.
type SemanticScholar struct {
	client  *Client
	baseURL string
}

// NewSemanticScholar creates a Semantic Scholar resolver.
func NewSemanticScholar(client *Client) *SemanticScholar {
	return &SemanticScholar{client: client, baseURL: semanticScholarBase}
}

// Name identifies the resolver for provenance.
func (r *SemanticScholar) Name() string {
	return "semantic_scholar"
}

type semanticScholarPaper struct {
	PaperID  string `json:"paperId"`
	Title    string `json:"title"`
	Abstract string `json:"abstract"`
	Year     int    `json:"year"`
	Authors  []struct {
		Name string `json:"name"`
	} `json:"authors"`
	ExternalIDs struct {
		DOI string `json:"DOI"`
	} `json:"externalIds"`
	Venue         string   `json:"venue"`
	URL           string   `json:"url"`
	CitationCount int      `json:"citationCount"`
	FieldsOfStudy []string `json:"fieldsOfStudy"`
}

// Resolve looks the reference up by Semantic Scholar id, arXiv id, or
// DOI, falling back to relevance search over titles.
func (r *SemanticScholar) Resolve(ctx context.Context, ref model.LinkedSourceRef, _ Options) (*model.SourceDetails, error) {
	if id := semanticScholarLookupID(ref); id != "" {
		var paper semanticScholarPaper
		u := r.baseURL + "/paper/" + url.PathEscape(id) + "?fields=" + semanticScholarFields
		if err := r.client.GetJSON(ctx, u, &paper); err != nil {
			return nil, err
		}
		return r.toDetails(paper), nil
	}

	if ref.Title == "" {
		return nil, nil
	}

	q := url.Values{}
	q.Set("query", ref.Title)
	q.Set("limit", "5")
	q.Set("fields", semanticScholarFields)

	var payload struct {
		Data []semanticScholarPaper `json:"data"`
	}
	if err := r.client.GetJSON(ctx, r.baseURL+"/paper/search?"+q.Encode(), &payload); err != nil {
		return nil, err
	}

	for _, paper := range payload.Data {
		if titleMatches(ref.Title, paper.Title) {
			return r.toDetails(paper), nil
		}
	}
	return nil, nil
}

func semanticScholarLookupID(ref model.LinkedSourceRef) string {
	switch {
	case ref.SemanticScholarID != "":
		return ref.SemanticScholarID
	case ref.ArxivID != "":
		return "arXiv:" + ref.ArxivID
	case ref.DOI != "":
		return "DOI:" + ref.DOI
	}
	return ""
}

func (r *SemanticScholar) toDetails(p semanticScholarPaper) *model.SourceDetails {
	if p.Title == "" {
		return nil
	}

	authors := make([]string, 0, len(p.Authors))
	for _, a := range p.Authors {
		if a.Name != "" {
			authors = append(authors, a.Name)
		}
	}

	u := p.URL
	if u == "" && p.ExternalIDs.DOI != "" {
		u = "https://doi.org/" + p.ExternalIDs.DOI
	}

	return &model.SourceDetails{
		ID:             p.PaperID,
		Title:          p.Title,
		Authors:        authors,
		Year:           p.Year,
		URL:            u,
		Abstract:       p.Abstract,
		Venue:          p.Venue,
		DOI:            p.ExternalIDs.DOI,
		FieldsOfStudy:  p.FieldsOfStudy,
		CitationsCount: p.CitationCount,
		Provider:       r.Name(),
	}
}
