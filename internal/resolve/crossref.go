package resolve

import (
	"context"
	"fmt"
	"net/url"
	"strings"

	"golang.org/x/net/html"

	"github.com/ppiankov/claimforge/internal/model"
)

const crossrefBase = "https://api.crossref.org"

const crossrefFields = "DOI,title,author,published,container-title,abstract,URL,is-referenced-by-count,subject"

// Crossref resolves references against the Crossref works API. DOI
// lookups are exact; title lookups use bibliographic search and accept
// only a confident title match.
type Crossref struct {
	client  *Client
	baseURL string
}

// NewCrossref creates a Crossref resolver.
func NewCrossref(client *Client) *Crossref {
	return &Crossref{client: client, baseURL: crossrefBase}
}

// Name identifies the resolver for provenance.
func (r *Crossref) Name() string {
	return "crossref"
}

type crossrefWork struct {
	DOI    string   `json:"DOI"`
	Title  []string `json:"title"`
	Author []struct {
		Given  string `json:"given"`
		Family string `json:"family"`
	} `json:"author"`
	Published struct {
		DateParts [][]int `json:"date-parts"`
	} `json:"published"`
	ContainerTitle      []string `json:"container-title"`
	Abstract            string   `json:"abstract"`
	URL                 string   `json:"URL"`
	IsReferencedByCount int      `json:"is-referenced-by-count"`
	Subject             []string `json:"subject"`
}

// Resolve looks the reference up by DOI, falling back to a bibliographic
// title search.
func (r *Crossref) Resolve(ctx context.Context, ref model.LinkedSourceRef, _ Options) (*model.SourceDetails, error) {
	if ref.DOI != "" {
		var payload struct {
			Message crossrefWork `json:"message"`
		}
		u := fmt.Sprintf("%s/works/%s", r.baseURL, url.PathEscape(ref.DOI))
		if err := r.client.GetJSON(ctx, u, &payload); err != nil {
			return nil, err
		}
		return r.toDetails(payload.Message), nil
	}

	if ref.Title == "" {
		return nil, nil
	}

	q := url.Values{}
	q.Set("query.bibliographic", ref.Title)
	q.Set("rows", "5")
	q.Set("select", crossrefFields)

	var payload struct {
		Message struct {
			Items []crossrefWork `json:"items"`
		} `json:"message"`
	}
	if err := r.client.GetJSON(ctx, r.baseURL+"/works?"+q.Encode(), &payload); err != nil {
		return nil, err
	}

	for _, item := range payload.Message.Items {
		if len(item.Title) > 0 && titleMatches(ref.Title, item.Title[0]) {
			return r.toDetails(item), nil
		}
	}
	return nil, nil
}

func (r *Crossref) toDetails(w crossrefWork) *model.SourceDetails {
	title := ""
	if len(w.Title) > 0 {
		title = w.Title[0]
	}
	if title == "" {
		return nil
	}

	authors := make([]string, 0, len(w.Author))
	for _, a := range w.Author {
		name := strings.TrimSpace(a.Given + " " + a.Family)
		if name != "" {
			authors = append(authors, name)
		}
	}

	year := 0
	if len(w.Published.DateParts) > 0 && len(w.Published.DateParts[0]) > 0 {
		year = w.Published.DateParts[0][0]
	}

	venue := ""
	if len(w.ContainerTitle) > 0 {
		venue = w.ContainerTitle[0]
	}

	u := w.URL
	if u == "" && w.DOI != "" {
		u = "https://doi.org/" + w.DOI
	}

	return &model.SourceDetails{
		ID:             w.DOI,
		Title:          title,
		Authors:        authors,
		Year:           year,
		URL:            u,
		Abstract:       stripMarkup(w.Abstract), // Crossref serves abstracts as JATS XML
		Venue:          venue,
		DOI:            w.DOI,
		FieldsOfStudy:  w.Subject,
		CitationsCount: w.IsReferencedByCount,
		Provider:       r.Name(),
	}
}

// stripMarkup extracts the text content of an XML/HTML fragment.
func stripMarkup(s string) string {
	if s == "" || !strings.Contains(s, "<") {
		return strings.TrimSpace(s)
	}

	doc, err := html.Parse(strings.NewReader(s))
	if err != nil {
		return strings.TrimSpace(s)
	}

	var buf strings.Builder
	var walk func(*html.Node)
	walk = func(n *html.Node) {
		if n.Type == html.TextNode {
			text := strings.TrimSpace(n.Data)
			if text != "" {
				if buf.Len() > 0 {
					buf.WriteString(" ")
				}
				buf.WriteString(text)
			}
		}
		for c := n.FirstChild; c != nil; c = c.NextSibling {
			walk(c)
		}
	}
	walk(doc)

	return buf.String()
}
