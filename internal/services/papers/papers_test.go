package papers

import (
	"context"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/ternarybob/arbor"

	"github.com/scentlab/essentia/internal/common"
)

const atomSample = `<?xml version="1.0" encoding="UTF-8"?>
<feed xmlns="http://www.w3.org/2005/Atom">
  <entry>
    <id>http://arxiv.org/abs/1706.03762v5</id>
    <title>Attention Is All
  You Need</title>
    <summary>The dominant sequence transduction models are based on complex recurrent networks.</summary>
    <published>2017-06-12T17:57:34Z</published>
    <author><name>Ashish Vaswani</name></author>
    <author><name>Noam Shazeer</name></author>
    <author><name>Niki Parmar</name></author>
    <author><name>Jakob Uszkoreit</name></author>
    <link href="http://arxiv.org/abs/1706.03762v5" rel="alternate" type="text/html"/>
    <link title="pdf" href="http://arxiv.org/pdf/1706.03762v5" rel="related" type="application/pdf"/>
  </entry>
</feed>`

func papersConfig(arxivURL, semanticURL string) *common.PapersConfig {
	return &common.PapersConfig{
		ArxivURL:        arxivURL,
		SemanticURL:     semanticURL,
		RateLimit:       "1ms",
		DownloadTimeout: "5s",
		DownloadRetries: 2,
		UserAgent:       "essentia-test",
	}
}

func TestArxivSearchParsesFeed(t *testing.T) {
	var gotQuery string
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotQuery = r.URL.Query().Get("search_query")
		w.Write([]byte(atomSample))
	}))
	defer server.Close()

	client := NewArxivClient(papersConfig(server.URL, ""), arbor.NewLogger())
	results, err := client.Search(context.Background(), "transformers", 5, 0)
	require.NoError(t, err)
	require.Len(t, results, 1)

	paper := results[0]
	assert.Equal(t, "Attention Is All You Need", paper.Title)
	assert.Equal(t, "Ashish Vaswani, Noam Shazeer, Niki Parmar", paper.Authors) // capped at three
	assert.Equal(t, 2017, paper.Year)
	assert.Equal(t, "1706.03762v5", paper.ArxivID)
	assert.Equal(t, "http://arxiv.org/pdf/1706.03762v5", paper.PDFURL)
	assert.Equal(t, "all:transformers", gotQuery)
}

func TestArxivSearchAppliesYearFilter(t *testing.T) {
	var gotQuery string
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotQuery = r.URL.Query().Get("search_query")
		w.Write([]byte(atomSample))
	}))
	defer server.Close()

	client := NewArxivClient(papersConfig(server.URL, ""), arbor.NewLogger())
	_, err := client.Search(context.Background(), "transformers", 5, 2020)
	require.NoError(t, err)
	assert.Contains(t, gotQuery, "submittedDate:[202001010000 TO *]")
}

func TestSemanticScholarCitationCount(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Contains(t, r.URL.Path, "arXiv:1706.03762")
		w.Write([]byte(`{"citationCount": 10000}`))
	}))
	defer server.Close()

	client := NewSemanticScholarClient(papersConfig("", server.URL), arbor.NewLogger())
	assert.Equal(t, 10000, client.CitationCount(context.Background(), "1706.03762v5"))
}

func TestCitationLookupFailureIsZero(t *testing.T) {
	client := NewSemanticScholarClient(papersConfig("", "http://127.0.0.1:1"), arbor.NewLogger())
	assert.Equal(t, 0, client.CitationCount(context.Background(), "1706.03762"))
}

func TestSearchServiceFetchesTripleForCitationFilter(t *testing.T) {
	var gotMax string
	arxiv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotMax = r.URL.Query().Get("max_results")
		w.Write([]byte(atomSample))
	}))
	defer arxiv.Close()

	semantic := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`{"citationCount": 50}`))
	}))
	defer semantic.Close()

	svc := NewSearchService(papersConfig(arxiv.URL, semantic.URL), arbor.NewLogger())

	results := svc.Search(context.Background(), "transformers", 2, 0, 10)
	assert.Equal(t, "6", gotMax)
	require.Len(t, results, 1)
	assert.Equal(t, 50, results[0].CitationCount)

	// A stricter filter removes the paper but never errors
	results = svc.Search(context.Background(), "transformers", 2, 0, 100)
	assert.Empty(t, results)
}

func TestSearchServiceFallsBackWhenArxivDown(t *testing.T) {
	svc := NewSearchService(papersConfig("http://127.0.0.1:1", "http://127.0.0.1:1"), arbor.NewLogger())

	results := svc.Search(context.Background(), "machine learning basics", 3, 0, 0)
	require.NotEmpty(t, results)
	assert.Equal(t, "Attention Is All You Need", results[0].Title)
}

func TestDownloaderRetriesThenSucceeds(t *testing.T) {
	attempt := 0
	payload := strings.Repeat("x", 600)
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		attempt++
		if attempt == 1 {
			http.Error(w, "flaky", http.StatusInternalServerError)
			return
		}
		w.Header().Set("Content-Type", "application/pdf")
		fmt.Fprint(w, payload)
	}))
	defer server.Close()

	d := NewDownloader(papersConfig("", ""), arbor.NewLogger())
	data, err := d.Download(context.Background(), server.URL+"/paper.pdf")
	require.NoError(t, err)
	assert.Len(t, data, 600)
	assert.Equal(t, 2, attempt)
}

func TestDownloaderRejectsTinyResponses(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/pdf")
		fmt.Fprint(w, "not a real pdf")
	}))
	defer server.Close()

	d := NewDownloader(papersConfig("", ""), arbor.NewLogger())
	_, err := d.Download(context.Background(), server.URL+"/paper.pdf")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "too small")
}

func TestDownloaderRejectsNonPDFContent(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "text/html")
		fmt.Fprint(w, strings.Repeat("<html>", 200))
	}))
	defer server.Close()

	d := NewDownloader(papersConfig("", ""), arbor.NewLogger())
	_, err := d.Download(context.Background(), server.URL+"/paper")
	require.Error(t, err)
}
