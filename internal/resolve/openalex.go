package resolve

import (
	"context"
	"net/url"
	"sort"
	"strings"

	"github.com/ppiankov/claimforge/internal/model"
)

const openAlexBase = "https://api.openalex.org"

// OpenAlex resolves references against the OpenAlex works API.
type OpenAlex struct {
	client  *Client
	baseURL string
}

// NewOpenAlex creates an OpenAlex resolver.
func NewOpenAlex(client *Client) *OpenAlex {
	return &OpenAlex{client: client, baseURL: openAlexBase}
}

// Name identifies the resolver for provenance.
func (r *OpenAlex) Name() string {
	return "openalex"
}

type openAlexWork struct {
	ID          string `json:"id"`
	DisplayName string `json:"display_name"`
	DOI         string `json:"doi"` // URL form, e.g. https://doi.org/10.1234/x
	Authorships []struct {
		Author struct {
			DisplayName string `json:"display_name"`
		} `json:"author"`
	} `json:"authorships"`
	PublicationYear int `json:"publication_year"`
	PrimaryLocation struct {
		LandingPageURL string `json:"landing_page_url"`
		Source         struct {
			DisplayName string `json:"display_name"`
		} `json:"source"`
	} `json:"primary_location"`
	CitedByCount int `json:"cited_by_count"`
	Concepts     []struct {
		DisplayName string `json:"display_name"`
	} `json:"concepts"`
	AbstractInvertedIndex map[string][]int `json:"abstract_inverted_index"`
}

// Resolve looks the reference up by OpenAlex id or DOI, falling back to
// full-text search over titles.
func (r *OpenAlex) Resolve(ctx context.Context, ref model.LinkedSourceRef, _ Options) (*model.SourceDetails, error) {
	if id := openAlexLookupID(ref); id != "" {
		var work openAlexWork
		if err := r.client.GetJSON(ctx, r.baseURL+"/works/"+url.PathEscape(id), &work); err != nil {
			return nil, err
		}
		return r.toDetails(work), nil
	}

	if ref.Title == "" {
		return nil, nil
	}

	q := url.Values{}
	q.Set("search", ref.Title)
	q.Set("per-page", "5")

	var payload struct {
		Results []openAlexWork `json:"results"`
	}
	if err := r.client.GetJSON(ctx, r.baseURL+"/works?"+q.Encode(), &payload); err != nil {
		return nil, err
	}

	for _, work := range payload.Results {
		if titleMatches(ref.Title, work.DisplayName) {
			return r.toDetails(work), nil
		}
	}
	return nil, nil
}

func openAlexLookupID(ref model.LinkedSourceRef) string {
	if ref.OpenAlexID != "" {
		return ref.OpenAlexID
	}
	if ref.DOI != "" {
		return "https://doi.org/" + ref.DOI
	}
	return ""
}

func (r *OpenAlex) toDetails(w openAlexWork) *model.SourceDetails {
	if w.DisplayName == "" {
		return nil
	}

	authors := make([]string, 0, len(w.Authorships))
	for _, a := range w.Authorships {
		if a.Author.DisplayName != "" {
			authors = append(authors, a.Author.DisplayName)
		}
	}

	fields := make([]string, 0, len(w.Concepts))
	for _, c := range w.Concepts {
		if c.DisplayName != "" {
			fields = append(fields, c.DisplayName)
		}
	}

	doi := strings.TrimPrefix(w.DOI, "https://doi.org/")

	u := w.PrimaryLocation.LandingPageURL
	if u == "" && w.DOI != "" {
		u = w.DOI
	}

	return &model.SourceDetails{
		ID:             w.ID,
		Title:          w.DisplayName,
		Authors:        authors,
		Year:           w.PublicationYear,
		URL:            u,
		Abstract:       reconstructAbstract(w.AbstractInvertedIndex),
		Venue:          w.PrimaryLocation.Source.DisplayName,
		DOI:            doi,
		FieldsOfStudy:  fields,
		CitationsCount: w.CitedByCount,
		Provider:       r.Name(),
	}
}

// reconstructAbstract rebuilds abstract text from OpenAlex's inverted
// index (word -> positions).
func reconstructAbstract(index map[string][]int) string {
	if len(index) == 0 {
		return ""
	}

	type posWord struct {
		pos  int
		word string
	}
	var words []posWord
	for word, positions := range index {
		for _, p := range positions {
			words = append(words, posWord{pos: p, word: word})
		}
	}
	sort.Slice(words, func(i, j int) bool { return words[i].pos < words[j].pos })

	parts := make([]string, len(words))
	for i, w := range words {
		parts[i] = w.word
	}
	return strings.Join(parts, " ")
}
