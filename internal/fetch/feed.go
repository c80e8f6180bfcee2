package fetch

import (
	"context"
	"strconv"
	"strings"
	"time"

	"github.com/mmcdole/gofeed"
	"github.com/rotisserie/eris"

	"github.com/topicworks/digest-cli/internal/config"
	"github.com/topicworks/digest-cli/internal/model"
	"github.com/topicworks/digest-cli/internal/timeutil"
)

// feedFetcher parses RSS/Atom documents via gofeed.
type feedFetcher struct {
	cfg    config.FeedMethod
	client *Client
	base   itemBuilder
	parser *gofeed.Parser
}

func newFeedFetcher(cfg config.FeedMethod, client *Client, base itemBuilder) *feedFetcher {
	return &feedFetcher{
		cfg:    cfg,
		client: client,
		base:   base,
		parser: gofeed.NewParser(),
	}
}

func (f *feedFetcher) Kind() config.MethodKind { return config.KindFeed }

func (f *feedFetcher) Fetch(ctx context.Context) (*Result, error) {
	body, err := f.client.Get(ctx, f.cfg.URL)
	if err != nil {
		return nil, err
	}

	feed, err := f.parser.ParseString(string(body))
	if err != nil {
		return nil, eris.Wrapf(err, "fetch: parse feed %s", f.cfg.URL)
	}

	result := &Result{RawCount: len(feed.Items)}
	for _, entry := range feed.Items {
		item, ok := f.parseEntry(entry)
		if !ok {
			continue
		}
		result.Items = append(result.Items, item)
	}
	return result, nil
}

func (f *feedFetcher) parseEntry(entry *gofeed.Item) (model.ContentItem, bool) {
	title := strings.TrimSpace(entry.Title)

	link := entry.Link
	if link == "" && len(entry.Links) > 0 {
		link = entry.Links[0]
	}

	published := entryTimestamp(entry)

	author := entryAuthor(entry)

	summary := entry.Description
	if summary == "" {
		summary = entry.Content
	}

	raw := make(map[string]any)
	if entry.Content != "" {
		raw["full_content"] = entry.Content
	}
	if entry.GUID != "" {
		raw["feed_id"] = entry.GUID
	}
	if comments, ok := slashComments(entry); ok {
		raw["comments"] = comments
	}
	if published == nil {
		raw["missing_published_at"] = true
	}

	item := f.base.build(title, link, published, author, summary, entry.Categories, raw)
	if !f.base.valid(item) {
		return model.ContentItem{}, false
	}
	return item, true
}

// entryTimestamp resolves the publish time with the precedence: structured
// published, structured updated, textual published, textual updated. A
// missing timestamp stays nil; the caller flags it instead of inventing one.
func entryTimestamp(entry *gofeed.Item) *time.Time {
	if entry.PublishedParsed != nil {
		t := entry.PublishedParsed.UTC()
		return &t
	}
	if entry.UpdatedParsed != nil {
		t := entry.UpdatedParsed.UTC()
		return &t
	}
	if t, ok := timeutil.Parse(entry.Published); ok {
		return &t
	}
	if t, ok := timeutil.Parse(entry.Updated); ok {
		return &t
	}
	return nil
}

// entryAuthor prefers the primary author, then the author list, then the
// Dublin Core creator extension.
func entryAuthor(entry *gofeed.Item) string {
	if entry.Author != nil && entry.Author.Name != "" {
		return entry.Author.Name
	}
	if len(entry.Authors) > 0 && entry.Authors[0] != nil {
		return entry.Authors[0].Name
	}
	if entry.DublinCoreExt != nil && len(entry.DublinCoreExt.Creator) > 0 {
		return entry.DublinCoreExt.Creator[0]
	}
	return ""
}

// slashComments reads the slash:comments extension carried by some feeds.
func slashComments(entry *gofeed.Item) (int, bool) {
	slash, ok := entry.Extensions["slash"]
	if !ok {
		return 0, false
	}
	exts, ok := slash["comments"]
	if !ok || len(exts) == 0 {
		return 0, false
	}
	n, err := strconv.Atoi(strings.TrimSpace(exts[0].Value))
	if err != nil {
		return 0, false
	}
	return n, true
}
