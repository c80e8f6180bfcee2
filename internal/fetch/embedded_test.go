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

const archiveHTML = `<html><script>window.__DATA__ = {"campaigns": [
  {"date": "2026-08-20"},
  {"date": "2026-08-13"},
  {"date": "2026-08-06"},
  {"date": "2026-07-30"}
]};</script></html>`

const issueHTML = `<script>
{"href": "https://external.example/articles/cool-post.html", "children": "A deep dive into schedulers"}
{"href": "https://newsletter.example/unsubscribe", "children": "Unsubscribe from this list"}
{"href": "https://external.example/articles/cool-post.html?utm_source=mail", "children": "Duplicate of the first link"}
{"href": "https://other.example/notes/fast_parsers"}
</script>`

func newEmbeddedServer(t *testing.T) (*httptest.Server, *int) {
	t.Helper()
	issueCalls := 0
	mux := http.NewServeMux()
	mux.HandleFunc("/archive", func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(archiveHTML))
	})
	mux.HandleFunc("/issues/", func(w http.ResponseWriter, r *http.Request) {
		issueCalls++
		if r.URL.Path == "/issues/2026-08-13" {
			w.WriteHeader(http.StatusInternalServerError)
			return
		}
		if r.URL.Path == "/issues/2026-08-20" {
			w.Write([]byte(issueHTML))
			return
		}
		w.Write([]byte(`<html>no links here</html>`))
	})
	return httptest.NewServer(mux), &issueCalls
}

func TestEmbeddedFetcher_Fetch(t *testing.T) {
	srv, _ := newEmbeddedServer(t)
	defer srv.Close()

	cfg := config.EmbeddedMethod{
		ArchiveURL:       srv.URL + "/archive",
		IssueURLTemplate: srv.URL + "/issues/{date}",
		SkipDomain:       "newsletter.example",
		IssueLimit:       3,
	}
	f, err := newEmbeddedFetcher(cfg, NewClient(ClientOptions{MaxRetries: 0}), testBuilder())
	require.NoError(t, err)

	res, err := f.Fetch(context.Background())
	require.NoError(t, err)

	// Skip-domain link and the normalized duplicate are discarded; the
	// failed 2026-08-13 issue is skipped without aborting.
	require.Len(t, res.Items, 2)

	first := res.Items[0]
	assert.Equal(t, "A deep dive into schedulers", first.Title)
	assert.Equal(t, "https://external.example/articles/cool-post.html", first.URL)
	assert.Equal(t, "2026-08-20", first.Raw["issue_date"])
	require.NotNil(t, first.PublishedAt)

	// No paired text block at that position: the title comes from the slug.
	second := res.Items[1]
	assert.Equal(t, "Fast Parsers", second.Title)
}

func TestEmbeddedFetcher_IssueLimit(t *testing.T) {
	srv, issueCalls := newEmbeddedServer(t)
	defer srv.Close()

	cfg := config.EmbeddedMethod{
		ArchiveURL:       srv.URL + "/archive",
		IssueURLTemplate: srv.URL + "/issues/{date}",
		IssueLimit:       2,
	}
	f, err := newEmbeddedFetcher(cfg, NewClient(ClientOptions{MaxRetries: 0}), testBuilder())
	require.NoError(t, err)

	_, err = f.Fetch(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 2, *issueCalls)
}

func TestEmbeddedFetcher_NoEmbeddedData(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`<html>plain page</html>`))
	}))
	defer srv.Close()

	cfg := config.EmbeddedMethod{
		ArchiveURL:       srv.URL,
		IssueURLTemplate: srv.URL + "/issues/{date}",
	}
	f, err := newEmbeddedFetcher(cfg, NewClient(ClientOptions{}), testBuilder())
	require.NoError(t, err)

	_, err = f.Fetch(context.Background())
	assert.Error(t, err)
}

func TestTitleFromURL(t *testing.T) {
	assert.Equal(t, "Cool Post", titleFromURL("https://example.com/articles/cool-post.html"))
	assert.Equal(t, "Fast Parsers", titleFromURL("https://example.com/notes/fast_parsers"))
	assert.Equal(t, "", titleFromURL("https://example.com/"))
}

func TestCleanText(t *testing.T) {
	assert.Equal(t, `He said "hi"`, cleanText(`He said \"hi\"`))
	assert.Equal(t, "spaced out", cleanText("spaced\n   out"))
}
