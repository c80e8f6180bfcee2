package fetch

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/topicworks/digest-cli/internal/config"
)

func TestOrchestrator_FallbackToNextMethod(t *testing.T) {
	mux := http.NewServeMux()
	mux.HandleFunc("/rss", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusNotFound)
	})
	mux.HandleFunc("/page", func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`<a class="post" href="/fallback-item">Fallback Item</a>`))
	})
	srv := httptest.NewServer(mux)
	defer srv.Close()

	src := config.SourceConfig{
		ID:   "fallback",
		Name: "Fallback Source",
		Methods: []config.FetchMethod{
			{Kind: config.KindFeed, Priority: 1, Feed: &config.FeedMethod{URL: srv.URL + "/rss"}},
			{Kind: config.KindPageScrape, Priority: 2, PageScrape: &config.PageScrapeMethod{URL: srv.URL + "/page", Links: "a.post"}},
		},
	}

	o := NewOrchestrator(NewClient(ClientOptions{}), Limits{})
	res := o.FetchSource(context.Background(), src)

	require.True(t, res.Success())
	assert.Equal(t, "page-scrape", res.MethodUsed)
	require.Len(t, res.Items, 1)
	assert.Equal(t, "Fallback Item", res.Items[0].Title)
}

func TestOrchestrator_EmptyResultTriggersFallback(t *testing.T) {
	mux := http.NewServeMux()
	mux.HandleFunc("/empty", func(w http.ResponseWriter, r *http.Request) {
		// Parses fine but yields nothing.
		w.Write([]byte(`<html><body>no matching anchors</body></html>`))
	})
	mux.HandleFunc("/page", func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`<a class="post" href="/item">Real Item</a>`))
	})
	srv := httptest.NewServer(mux)
	defer srv.Close()

	src := config.SourceConfig{
		ID:   "empty-first",
		Name: "Empty First",
		Methods: []config.FetchMethod{
			{Kind: config.KindPageScrape, Priority: 1, PageScrape: &config.PageScrapeMethod{URL: srv.URL + "/empty", Links: "a.post"}},
			{Kind: config.KindPageScrape, Priority: 2, PageScrape: &config.PageScrapeMethod{URL: srv.URL + "/page", Links: "a.post"}},
		},
	}

	o := NewOrchestrator(NewClient(ClientOptions{}), Limits{})
	res := o.FetchSource(context.Background(), src)

	require.True(t, res.Success())
	require.Len(t, res.Items, 1)
	assert.Equal(t, "Real Item", res.Items[0].Title)
}

func TestOrchestrator_AllMethodsFail(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusNotFound)
	}))
	defer srv.Close()

	src := config.SourceConfig{
		ID:   "doomed",
		Name: "Doomed",
		Methods: []config.FetchMethod{
			{Kind: config.KindFeed, Priority: 1, Feed: &config.FeedMethod{URL: srv.URL + "/rss"}},
		},
	}

	o := NewOrchestrator(NewClient(ClientOptions{}), Limits{})
	res := o.FetchSource(context.Background(), src)

	require.False(t, res.Success())
	assert.Contains(t, res.Err.Error(), "doomed")
}

func TestOrchestrator_AllMethodsEmpty(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`<html><body></body></html>`))
	}))
	defer srv.Close()

	src := config.SourceConfig{
		ID:   "barren",
		Name: "Barren",
		Methods: []config.FetchMethod{
			{Kind: config.KindPageScrape, Priority: 1, PageScrape: &config.PageScrapeMethod{URL: srv.URL, Links: "a.post"}},
		},
	}

	o := NewOrchestrator(NewClient(ClientOptions{}), Limits{})
	res := o.FetchSource(context.Background(), src)

	require.False(t, res.Success())
	assert.Contains(t, res.Err.Error(), "all fetch methods failed")
}

func TestOrchestrator_FetchAll_KeepsSourceOrder(t *testing.T) {
	mux := http.NewServeMux()
	mux.HandleFunc("/a", func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`<a class="post" href="/a1">Alpha Item</a>`))
	})
	mux.HandleFunc("/b", func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`<a class="post" href="/b1">Beta Item</a>`))
	})
	srv := httptest.NewServer(mux)
	defer srv.Close()

	scrape := func(path string) []config.FetchMethod {
		return []config.FetchMethod{
			{Kind: config.KindPageScrape, Priority: 1, PageScrape: &config.PageScrapeMethod{URL: srv.URL + path, Links: "a.post"}},
		}
	}
	sources := []config.SourceConfig{
		{ID: "alpha", Name: "Alpha", Methods: scrape("/a")},
		{ID: "beta", Name: "Beta", Methods: scrape("/b")},
	}

	o := NewOrchestrator(NewClient(ClientOptions{}), Limits{})
	results := o.FetchAll(context.Background(), sources, 2)

	require.Len(t, results, 2)
	assert.Equal(t, "alpha", results[0].SourceID)
	assert.Equal(t, "beta", results[1].SourceID)
	assert.True(t, results[0].Success())
	assert.True(t, results[1].Success())
}
