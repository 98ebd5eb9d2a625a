package resolve

import (
	"context"
	"encoding/json"
	"fmt"
	"net/url"
	"regexp"
	"strconv"
	"strings"

	"github.com/ppiankov/claimforge/internal/model"
)

const pubmedBase = "https://eutils.ncbi.nlm.nih.gov/entrez/eutils"

var abstractTextPattern = regexp.MustCompile(`(?s)<AbstractText[^>]*>(.*?)</AbstractText>`)

// PubMed resolves references against the NCBI E-utilities: esearch for
// PMIDs, esummary for metadata, efetch for abstract text.
type PubMed struct {
	client  *Client
	baseURL string
}

// NewPubMed creates a PubMed resolver.
func NewPubMed(client *Client) *PubMed {
	return &PubMed{client: client, baseURL: pubmedBase}
}

// Name identifies the resolver for provenance.
func (r *PubMed) Name() string {
	return "pubmed"
}

type pubmedSummary struct {
	Title   string `json:"title"`
	PubDate string `json:"pubdate"`
	Authors []struct {
		Name string `json:"name"`
	} `json:"authors"`
	ElocationID     string `json:"elocationid"`
	FullJournalName string `json:"fulljournalname"`
	Source          string `json:"source"`
}

// Resolve looks the reference up by PMID, falling back to a term search
// over the title.
func (r *PubMed) Resolve(ctx context.Context, ref model.LinkedSourceRef, _ Options) (*model.SourceDetails, error) {
	pmid := ref.PMID
	if pmid == "" {
		if ref.Title == "" {
			return nil, nil
		}
		ids, err := r.search(ctx, ref.Title)
		if err != nil {
			return nil, err
		}
		for _, id := range ids {
			summary, err := r.summary(ctx, id)
			if err != nil || summary == nil {
				continue
			}
			if titleMatches(ref.Title, summary.Title) {
				pmid = id
				break
			}
		}
		if pmid == "" {
			return nil, nil
		}
	}

	summary, err := r.summary(ctx, pmid)
	if err != nil {
		return nil, err
	}
	if summary == nil || summary.Title == "" {
		return nil, nil
	}

	details := r.toDetails(pmid, *summary)

	// Abstracts live behind a separate efetch call; a failure here only
	// degrades the record.
	if abstract, err := r.abstract(ctx, pmid); err == nil {
		details.Abstract = abstract
	}

	return details, nil
}

func (r *PubMed) search(ctx context.Context, term string) ([]string, error) {
	q := url.Values{}
	q.Set("db", "pubmed")
	q.Set("term", term)
	q.Set("retmax", "5")
	q.Set("retmode", "json")

	var payload struct {
		ESearchResult struct {
			IDList []string `json:"idlist"`
		} `json:"esearchresult"`
	}
	if err := r.client.GetJSON(ctx, r.baseURL+"/esearch.fcgi?"+q.Encode(), &payload); err != nil {
		return nil, err
	}
	return payload.ESearchResult.IDList, nil
}

func (r *PubMed) summary(ctx context.Context, pmid string) (*pubmedSummary, error) {
	q := url.Values{}
	q.Set("db", "pubmed")
	q.Set("id", pmid)
	q.Set("retmode", "json")

	// The result object mixes per-PMID summaries with a "uids" array, so
	// it cannot decode into one value type directly.
	var payload struct {
		Result map[string]json.RawMessage `json:"result"`
	}
	if err := r.client.GetJSON(ctx, r.baseURL+"/esummary.fcgi?"+q.Encode(), &payload); err != nil {
		return nil, err
	}

	raw, ok := payload.Result[pmid]
	if !ok {
		return nil, nil
	}
	var summary pubmedSummary
	if err := json.Unmarshal(raw, &summary); err != nil {
		return nil, fmt.Errorf("parse esummary for %s: %w", pmid, err)
	}
	return &summary, nil
}

func (r *PubMed) abstract(ctx context.Context, pmid string) (string, error) {
	q := url.Values{}
	q.Set("db", "pubmed")
	q.Set("id", pmid)
	q.Set("retmode", "xml")

	xml, err := r.client.GetText(ctx, r.baseURL+"/efetch.fcgi?"+q.Encode())
	if err != nil {
		return "", err
	}

	matches := abstractTextPattern.FindAllStringSubmatch(xml, -1)
	parts := make([]string, 0, len(matches))
	for _, m := range matches {
		if text := stripMarkup(m[1]); text != "" {
			parts = append(parts, text)
		}
	}
	return strings.Join(parts, " "), nil
}

func (r *PubMed) toDetails(pmid string, s pubmedSummary) *model.SourceDetails {
	authors := make([]string, 0, len(s.Authors))
	for _, a := range s.Authors {
		if a.Name != "" {
			authors = append(authors, a.Name)
		}
	}

	year := 0
	if fields := strings.Fields(s.PubDate); len(fields) > 0 {
		year, _ = strconv.Atoi(fields[0])
	}

	// elocationid appears both as "doi:10.x/y" and "doi: 10.x/y".
	doi := ""
	fields := strings.Fields(s.ElocationID)
	for i, part := range fields {
		switch {
		case part == "doi:" && i+1 < len(fields):
			doi = fields[i+1]
		case strings.HasPrefix(part, "doi:"):
			doi = strings.TrimPrefix(part, "doi:")
		}
	}

	venue := s.FullJournalName
	if venue == "" {
		venue = s.Source
	}

	return &model.SourceDetails{
		ID:       pmid,
		Title:    s.Title,
		Authors:  authors,
		Year:     year,
		URL:      "https://pubmed.ncbi.nlm.nih.gov/" + pmid + "/",
		Venue:    venue,
		DOI:      doi,
		Provider: r.Name(),
	}
}
