package identity

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestStableID_SameURLDifferentTracking(t *testing.T) {
	a := StableID("https://example.com/post?utm_source=mail", "src", "Title A", nil)
	b := StableID("http://Example.com/post/", "other", "Title B", nil)

	assert.Equal(t, a, b)
	assert.Len(t, a, 32)
}

func TestStableID_DifferentURLsDiffer(t *testing.T) {
	a := StableID("https://example.com/one", "src", "t", nil)
	b := StableID("https://example.com/two", "src", "t", nil)
	assert.NotEqual(t, a, b)
}

func TestStableID_FallbackWithoutURL(t *testing.T) {
	published := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)

	a := StableID("", "hn", "Show HN: thing", &published)
	b := StableID("", "hn", "Show HN: thing", &published)
	c := StableID("", "hn", "Show HN: other", &published)

	assert.Equal(t, a, b)
	assert.NotEqual(t, a, c)
	assert.Len(t, a, 32)
}

func TestStableID_Deterministic(t *testing.T) {
	url := "https://example.com/stable"
	for range 3 {
		assert.Equal(t, StableID(url, "s", "t", nil), StableID(url, "s", "t", nil))
	}
}
