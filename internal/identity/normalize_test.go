package identity

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestNormalizeURL_CanonicalForm(t *testing.T) {
	got := NormalizeURL("http://Example.COM/Article/?utm_source=x&ref=y&id=1#s")
	assert.Equal(t, "https://example.com/Article?id=1", got)
}

func TestNormalizeURL_Idempotent(t *testing.T) {
	once := NormalizeURL("http://Example.COM/Article/?utm_source=x&ref=y&id=1#s")
	assert.Equal(t, once, NormalizeURL(once))
}

func TestNormalizeURL_SortsQueryParams(t *testing.T) {
	a := NormalizeURL("https://example.com/page?b=2&a=1")
	b := NormalizeURL("https://example.com/page?a=1&b=2")
	assert.Equal(t, a, b)
}

func TestNormalizeURL_RootSlashKept(t *testing.T) {
	assert.Equal(t, "https://example.com/", NormalizeURL("http://example.com/"))
}

func TestNormalizeURL_TrailingSlashStripped(t *testing.T) {
	assert.Equal(t, "https://example.com/blog", NormalizeURL("https://example.com/blog/"))
}

func TestNormalizeURL_UTMPrefixStripped(t *testing.T) {
	got := NormalizeURL("https://example.com/p?utm_whatever=1&keep=yes")
	assert.Equal(t, "https://example.com/p?keep=yes", got)
}

func TestNormalizeURL_PathCasePreserved(t *testing.T) {
	got := NormalizeURL("https://Example.com/Mixed/Case")
	assert.Equal(t, "https://example.com/Mixed/Case", got)
}
