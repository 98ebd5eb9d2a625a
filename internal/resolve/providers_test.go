package resolve

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/ppiankov/claimforge/internal/model"
)

func testClient() *Client {
	return NewClient(5*time.Second, 1000, "claimforge-test", nil)
}

func TestCrossref_ResolveByDOI(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/works/10.1234/ferment" {
			t.Errorf("unexpected path %s", r.URL.Path)
		}
		w.Write([]byte(`{"message": {
			"DOI": "10.1234/ferment",
			"title": ["Fermentation and vitamin retention"],
			"author": [{"given": "Anna", "family": "Ivanova"}, {"given": "P.", "family": "Petrov"}],
			"published": {"date-parts": [[2021, 3]]},
			"container-title": ["Journal of Food Science"],
			"abstract": "<jats:p>Lactic fermentation <jats:italic>increased</jats:italic> retention.</jats:p>",
			"is-referenced-by-count": 42,
			"subject": ["Food Science"]
		}}`))
	}))
	defer srv.Close()

	r := NewCrossref(testClient())
	r.baseURL = srv.URL

	got, err := r.Resolve(context.Background(), model.LinkedSourceRef{DOI: "10.1234/ferment"}, Options{})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if got == nil {
		t.Fatal("expected a resolved source")
	}
	if got.Title != "Fermentation and vitamin retention" {
		t.Errorf("title = %q", got.Title)
	}
	if got.Abstract != "Lactic fermentation increased retention." {
		t.Errorf("abstract = %q (markup must be stripped)", got.Abstract)
	}
	if got.Year != 2021 {
		t.Errorf("year = %d", got.Year)
	}
	if len(got.Authors) != 2 || got.Authors[0] != "Anna Ivanova" {
		t.Errorf("authors = %v", got.Authors)
	}
	if got.Venue != "Journal of Food Science" {
		t.Errorf("venue = %q", got.Venue)
	}
	if got.URL != "https://doi.org/10.1234/ferment" {
		t.Errorf("url = %q, want DOI fallback", got.URL)
	}
	if got.CitationsCount != 42 || got.Provider != "crossref" {
		t.Errorf("citations/provider = %d/%q", got.CitationsCount, got.Provider)
	}
}

func TestCrossref_SearchRejectsUnrelatedTitles(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`{"message": {"items": [
			{"DOI": "10.1/other", "title": ["Completely unrelated work"]}
		]}}`))
	}))
	defer srv.Close()

	r := NewCrossref(testClient())
	r.baseURL = srv.URL

	got, err := r.Resolve(context.Background(), model.LinkedSourceRef{Title: "Fermentation and vitamin retention"}, Options{})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if got != nil {
		t.Errorf("got %+v, want nil for a non-matching search", got)
	}
}

func TestOpenAlex_SearchReconstructsAbstract(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Query().Get("search") == "" {
			t.Error("expected a search query parameter")
		}
		w.Write([]byte(`{"results": [{
			"id": "https://openalex.org/W123",
			"display_name": "Grain storage in medieval settlements",
			"doi": "https://doi.org/10.5/grain",
			"authorships": [{"author": {"display_name": "B. Author"}}],
			"publication_year": 2019,
			"primary_location": {"landing_page_url": "https://example.org/grain", "source": {"display_name": "Archaeology"}},
			"cited_by_count": 7,
			"concepts": [{"display_name": "History"}],
			"abstract_inverted_index": {"storage": [1], "Grain": [0], "practices": [2]}
		}]}`))
	}))
	defer srv.Close()

	r := NewOpenAlex(testClient())
	r.baseURL = srv.URL

	got, err := r.Resolve(context.Background(), model.LinkedSourceRef{Title: "Grain storage in medieval settlements"}, Options{})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if got == nil {
		t.Fatal("expected a resolved source")
	}
	if got.Abstract != "Grain storage practices" {
		t.Errorf("abstract = %q, want inverted index rebuilt in position order", got.Abstract)
	}
	if got.DOI != "10.5/grain" {
		t.Errorf("doi = %q, want URL prefix stripped", got.DOI)
	}
	if got.URL != "https://example.org/grain" || got.Venue != "Archaeology" {
		t.Errorf("url/venue = %q/%q", got.URL, got.Venue)
	}
}

func TestSemanticScholar_ResolveByArxivID(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/paper/arXiv:2101.00001" {
			t.Errorf("unexpected path %s", r.URL.Path)
		}
		w.Write([]byte(`{
			"paperId": "abc123",
			"title": "Attention networks revisited",
			"abstract": "We revisit attention.",
			"year": 2021,
			"authors": [{"name": "C. Dee"}],
			"externalIds": {"DOI": "10.9/attn"},
			"venue": "NeurIPS",
			"citationCount": 900,
			"fieldsOfStudy": ["Computer Science"]
		}`))
	}))
	defer srv.Close()

	r := NewSemanticScholar(testClient())
	r.baseURL = srv.URL

	got, err := r.Resolve(context.Background(), model.LinkedSourceRef{ArxivID: "2101.00001"}, Options{})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if got == nil {
		t.Fatal("expected a resolved source")
	}
	if got.ID != "abc123" || got.DOI != "10.9/attn" {
		t.Errorf("id/doi = %q/%q", got.ID, got.DOI)
	}
	if got.URL != "https://doi.org/10.9/attn" {
		t.Errorf("url = %q, want DOI fallback", got.URL)
	}
	if got.Abstract != "We revisit attention." || got.CitationsCount != 900 {
		t.Errorf("abstract/citations = %q/%d", got.Abstract, got.CitationsCount)
	}
}

func TestPubMed_ResolveByPMID(t *testing.T) {
	// esummary's result object mixes a "uids" array with per-PMID
	// entries; decoding must tolerate both.
	mux := http.NewServeMux()
	mux.HandleFunc("/esummary.fcgi", func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`{"result": {
			"uids": ["12345"],
			"12345": {
				"title": "Vitamin D and fracture risk",
				"pubdate": "2020 Jan 15",
				"authors": [{"name": "Smith J"}, {"name": "Lee K"}],
				"elocationid": "doi: 10.7/vitd",
				"fulljournalname": "BMJ"
			}
		}}`))
	})
	mux.HandleFunc("/efetch.fcgi", func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`<PubmedArticle><Abstract>
			<AbstractText Label="RESULTS">Supplementation reduced fracture incidence.</AbstractText>
		</Abstract></PubmedArticle>`))
	})
	srv := httptest.NewServer(mux)
	defer srv.Close()

	r := NewPubMed(testClient())
	r.baseURL = srv.URL

	got, err := r.Resolve(context.Background(), model.LinkedSourceRef{PMID: "12345"}, Options{})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if got == nil {
		t.Fatal("expected a resolved source")
	}
	if got.Title != "Vitamin D and fracture risk" {
		t.Errorf("title = %q", got.Title)
	}
	if got.Year != 2020 {
		t.Errorf("year = %d", got.Year)
	}
	if got.DOI != "10.7/vitd" {
		t.Errorf("doi = %q", got.DOI)
	}
	if got.Abstract != "Supplementation reduced fracture incidence." {
		t.Errorf("abstract = %q", got.Abstract)
	}
	if got.URL != "https://pubmed.ncbi.nlm.nih.gov/12345/" || got.Venue != "BMJ" {
		t.Errorf("url/venue = %q/%q", got.URL, got.Venue)
	}
}

func TestPubMed_SearchChain(t *testing.T) {
	mux := http.NewServeMux()
	mux.HandleFunc("/esearch.fcgi", func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`{"esearchresult": {"idlist": ["777"]}}`))
	})
	mux.HandleFunc("/esummary.fcgi", func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`{"result": {
			"uids": ["777"],
			"777": {"title": "Gut microbiome diversity in athletes", "pubdate": "2018", "source": "Gut"}
		}}`))
	})
	mux.HandleFunc("/efetch.fcgi", func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`<AbstractText>Athletes showed higher diversity.</AbstractText>`))
	})
	srv := httptest.NewServer(mux)
	defer srv.Close()

	r := NewPubMed(testClient())
	r.baseURL = srv.URL

	got, err := r.Resolve(context.Background(), model.LinkedSourceRef{Title: "Gut microbiome diversity in athletes"}, Options{})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if got == nil {
		t.Fatal("expected a resolved source")
	}
	if got.ID != "777" || got.Venue != "Gut" {
		t.Errorf("id/venue = %q/%q", got.ID, got.Venue)
	}
	if got.Abstract != "Athletes showed higher diversity." {
		t.Errorf("abstract = %q", got.Abstract)
	}
}

func TestPubMed_MissingSummaryEntry(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`{"result": {"uids": []}}`))
	}))
	defer srv.Close()

	r := NewPubMed(testClient())
	r.baseURL = srv.URL

	got, err := r.Resolve(context.Background(), model.LinkedSourceRef{PMID: "999"}, Options{})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if got != nil {
		t.Errorf("got %+v, want nil for an absent PMID", got)
	}
}
