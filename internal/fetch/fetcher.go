package fetch

import (
	"context"
	"regexp"
	"strings"
	"time"
	"unicode/utf8"

	"github.com/PuerkitoBio/goquery"
	"github.com/rotisserie/eris"

	"github.com/topicworks/digest-cli/internal/config"
	"github.com/topicworks/digest-cli/internal/identity"
	"github.com/topicworks/digest-cli/internal/model"
)

// maxSummaryLen caps stored summaries, in runes, after HTML stripping.
const maxSummaryLen = 500

// Result is the output of one strategy attempt: the canonical items plus
// the raw pre-filter entry count.
type Result struct {
	Items    []model.ContentItem
	RawCount int
}

// Fetcher is one extraction strategy bound to a source's method config.
type Fetcher interface {
	Fetch(ctx context.Context) (*Result, error)
	Kind() config.MethodKind
}

// Limits carries the global per-run fetch limits into each strategy.
type Limits struct {
	PerSource   int
	Concurrency int
}

// NewFetcher builds the strategy for method, keyed on its kind. Method
// configs were validated at load time, so a nil block here is a programming
// error and rejected defensively.
func NewFetcher(src config.SourceConfig, method config.FetchMethod, client *Client, limits Limits) (Fetcher, error) {
	base := itemBuilder{
		sourceID:    src.ID,
		sourceName:  src.Name,
		defaultTags: src.DefaultTags,
	}

	switch method.Kind {
	case config.KindFeed:
		if method.Feed == nil {
			return nil, eris.New("fetch: feed config missing")
		}
		return newFeedFetcher(*method.Feed, client, base), nil
	case config.KindListDetailAPI:
		if method.ListDetail == nil {
			return nil, eris.New("fetch: list_detail config missing")
		}
		return newListDetailFetcher(*method.ListDetail, client, base, limits), nil
	case config.KindPageScrape:
		if method.PageScrape == nil {
			return nil, eris.New("fetch: page_scrape config missing")
		}
		return newPageFetcher(*method.PageScrape, client, base)
	case config.KindEmbeddedData:
		if method.Embedded == nil {
			return nil, eris.New("fetch: embedded config missing")
		}
		return newEmbeddedFetcher(*method.Embedded, client, base)
	default:
		return nil, eris.Errorf("fetch: unknown method kind %q", method.Kind)
	}
}

// itemBuilder normalizes raw extractions into canonical items: stable id,
// merged tags, stripped and capped summary, UTC fetch timestamp.
type itemBuilder struct {
	sourceID    string
	sourceName  string
	defaultTags []string
}

func (b itemBuilder) build(title, url string, published *time.Time, author, summary string, tags []string, raw map[string]any) model.ContentItem {
	merged := make([]string, 0, len(b.defaultTags)+len(tags))
	merged = append(merged, b.defaultTags...)
	for _, tag := range tags {
		if tag == "" {
			continue
		}
		dup := false
		for _, have := range merged {
			if have == tag {
				dup = true
				break
			}
		}
		if !dup {
			merged = append(merged, tag)
		}
	}

	return model.ContentItem{
		ID:          identity.StableID(url, b.sourceID, title, published),
		SourceID:    b.sourceID,
		Source:      b.sourceName,
		Title:       title,
		URL:         url,
		PublishedAt: published,
		FetchedAt:   time.Now().UTC(),
		Author:      author,
		Summary:     truncateSummary(summary),
		Tags:        merged,
		IsNew:       true,
		Raw:         raw,
	}
}

// valid reports whether an extraction produced both a title and a URL.
// Entries missing either are dropped rather than failing the batch.
func (b itemBuilder) valid(item model.ContentItem) bool {
	return item.Title != "" && item.URL != ""
}

var whitespaceRe = regexp.MustCompile(`\s+`)

// truncateSummary strips HTML tags and caps the result.
func truncateSummary(summary string) string {
	if summary == "" {
		return ""
	}

	clean := summary
	if strings.ContainsRune(summary, '<') {
		if doc, err := goquery.NewDocumentFromReader(strings.NewReader(summary)); err == nil {
			clean = doc.Text()
		}
	}
	clean = strings.TrimSpace(whitespaceRe.ReplaceAllString(clean, " "))

	if utf8.RuneCountInString(clean) > maxSummaryLen {
		return string([]rune(clean)[:maxSummaryLen]) + "..."
	}
	return clean
}
