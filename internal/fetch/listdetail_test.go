package fetch

import (
	"context"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/topicworks/digest-cli/internal/config"
)

func newListDetailServer(t *testing.T) *httptest.Server {
	t.Helper()
	mux := http.NewServeMux()
	mux.HandleFunc("/top.json", func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`[30, 10, 20, 40]`))
	})
	mux.HandleFunc("/item/30.json", func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`{"id":30,"type":"story","title":"Third Story","url":"https://example.com/30","by":"carol","time":1767225600,"score":120,"descendants":45}`))
	})
	mux.HandleFunc("/item/10.json", func(w http.ResponseWriter, r *http.Request) {
		// Self-post without an external URL.
		w.Write([]byte(`{"id":10,"type":"story","title":"Ask: something","by":"alice","time":1767225600,"score":50,"descendants":10}`))
	})
	mux.HandleFunc("/item/20.json", func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`{"id":20,"type":"job","title":"Hiring","url":"https://example.com/20"}`))
	})
	mux.HandleFunc("/item/40.json", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusNotFound)
	})
	return httptest.NewServer(mux)
}

func TestListDetailFetcher_Fetch(t *testing.T) {
	srv := newListDetailServer(t)
	defer srv.Close()

	cfg := config.ListDetailMethod{
		ListURL:               srv.URL + "/top.json",
		ItemURLTemplate:       srv.URL + "/item/{id}.json",
		DiscussionURLTemplate: "https://news.example.com/item?id={id}",
	}
	f := newListDetailFetcher(cfg, NewClient(ClientOptions{}), testBuilder(), Limits{Concurrency: 4})

	res, err := f.Fetch(context.Background())
	require.NoError(t, err)

	assert.Equal(t, 4, res.RawCount)
	// The job entry and the 404 are skipped; survivors keep list order.
	require.Len(t, res.Items, 2)
	assert.Equal(t, "Third Story", res.Items[0].Title)
	assert.Equal(t, "Ask: something", res.Items[1].Title)

	third := res.Items[0]
	assert.Equal(t, "https://example.com/30", third.URL)
	assert.Equal(t, "carol", third.Author)
	assert.Equal(t, 120, third.Raw["points"])
	assert.Equal(t, 45, third.Raw["comments"])
	require.NotNil(t, third.PublishedAt)

	// The self-post falls back to the discussion URL.
	assert.Equal(t, "https://news.example.com/item?id=10", res.Items[1].URL)
}

func TestListDetailFetcher_PerSourceLimit(t *testing.T) {
	srv := newListDetailServer(t)
	defer srv.Close()

	cfg := config.ListDetailMethod{
		ListURL:         srv.URL + "/top.json",
		ItemURLTemplate: srv.URL + "/item/{id}.json",
	}
	f := newListDetailFetcher(cfg, NewClient(ClientOptions{}), testBuilder(), Limits{PerSource: 1})

	res, err := f.Fetch(context.Background())
	require.NoError(t, err)

	assert.Equal(t, 1, res.RawCount)
	require.Len(t, res.Items, 1)
	assert.Equal(t, "Third Story", res.Items[0].Title)
}

func TestListDetailFetcher_ListError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusNotFound)
	}))
	defer srv.Close()

	cfg := config.ListDetailMethod{
		ListURL:         srv.URL + "/top.json",
		ItemURLTemplate: srv.URL + "/item/{id}.json",
	}
	f := newListDetailFetcher(cfg, NewClient(ClientOptions{}), testBuilder(), Limits{})

	_, err := f.Fetch(context.Background())
	assert.Error(t, err)
}

func TestExpandID(t *testing.T) {
	assert.Equal(t, "https://api.example.com/item/42.json",
		expandID("https://api.example.com/item/{id}.json", 42))
	assert.Equal(t, fmt.Sprintf("x%dx", 7), expandID("x{id}x", 7))
}
