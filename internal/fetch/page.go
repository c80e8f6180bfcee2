package fetch

import (
	"bytes"
	"context"
	"net/url"
	"regexp"
	"strconv"
	"strings"
	"time"

	"github.com/PuerkitoBio/goquery"
	"github.com/rotisserie/eris"

	"github.com/topicworks/digest-cli/internal/config"
	"github.com/topicworks/digest-cli/internal/model"
	"github.com/topicworks/digest-cli/internal/timeutil"
)

// pageFetcher extracts items from an HTML page using CSS selectors. Two
// modes, selected by configuration shape: a single link-list selector, or
// separate title/link/date selectors paired positionally.
type pageFetcher struct {
	cfg     config.PageScrapeMethod
	client  *Client
	base    itemBuilder
	dateRe  *regexp.Regexp
	baseURL *url.URL
}

func newPageFetcher(cfg config.PageScrapeMethod, client *Client, base itemBuilder) (*pageFetcher, error) {
	parsed, err := url.Parse(cfg.URL)
	if err != nil {
		return nil, eris.Wrapf(err, "fetch: parse page url %s", cfg.URL)
	}

	f := &pageFetcher{cfg: cfg, client: client, base: base, baseURL: parsed}
	if cfg.DateFromURL != nil {
		// Pattern validity was checked at config load.
		f.dateRe, err = regexp.Compile(cfg.DateFromURL.Pattern)
		if err != nil {
			return nil, eris.Wrap(err, "fetch: date_from_url pattern")
		}
	}
	return f, nil
}

func (f *pageFetcher) Kind() config.MethodKind { return config.KindPageScrape }

func (f *pageFetcher) Fetch(ctx context.Context) (*Result, error) {
	body, err := f.client.Get(ctx, f.cfg.URL)
	if err != nil {
		return nil, err
	}

	doc, err := goquery.NewDocumentFromReader(bytes.NewReader(body))
	if err != nil {
		return nil, eris.Wrapf(err, "fetch: parse html from %s", f.cfg.URL)
	}

	var items []model.ContentItem
	if f.cfg.Links != "" {
		items = f.extractLinkList(doc)
	} else {
		items = f.extractPaired(doc)
	}

	return &Result{Items: items, RawCount: len(items)}, nil
}

// extractLinkList treats every matched element as an anchor: its text is
// the title, its resolved href the URL.
func (f *pageFetcher) extractLinkList(doc *goquery.Document) []model.ContentItem {
	var items []model.ContentItem

	doc.Find(f.cfg.Links).Each(func(_ int, sel *goquery.Selection) {
		href, ok := sel.Attr("href")
		if !ok || href == "" {
			return
		}
		title := strings.TrimSpace(sel.Text())
		if title == "" {
			return
		}

		var published *time.Time
		if f.dateRe != nil {
			published = f.dateFromURL(href)
		}

		item := f.base.build(title, f.resolve(href), published, "", "", nil, nil)
		if f.base.valid(item) {
			items = append(items, item)
		}
	})

	return items
}

// extractPaired pairs title[i] with link[i] and date[i]. A title element
// that is itself an anchor supplies its own href when no separate link
// selector matched at that position.
func (f *pageFetcher) extractPaired(doc *goquery.Document) []model.ContentItem {
	titles := doc.Find(f.cfg.Title)
	var links, dates *goquery.Selection
	if f.cfg.Link != "" {
		links = doc.Find(f.cfg.Link)
	}
	if f.cfg.Date != "" {
		dates = doc.Find(f.cfg.Date)
	}

	var items []model.ContentItem
	titles.Each(func(i int, titleSel *goquery.Selection) {
		title := strings.TrimSpace(titleSel.Text())

		var link string
		if links != nil && i < links.Length() {
			link, _ = links.Eq(i).Attr("href")
		} else if goquery.NodeName(titleSel) == "a" {
			link, _ = titleSel.Attr("href")
		}
		if title == "" || link == "" {
			return
		}

		var published *time.Time
		if dates != nil && i < dates.Length() {
			if t, ok := timeutil.Parse(strings.TrimSpace(dates.Eq(i).Text())); ok {
				published = &t
			}
		}

		item := f.base.build(title, f.resolve(link), published, "", "", nil, nil)
		if f.base.valid(item) {
			items = append(items, item)
		}
	})

	return items
}

// dateFromURL extracts a publish date from an href per the configured
// sub-format. Unmatched or unparsable hrefs yield no date.
func (f *pageFetcher) dateFromURL(href string) *time.Time {
	m := f.dateRe.FindStringSubmatch(href)
	if m == nil || len(m) < 2 {
		return nil
	}
	groups := m[1:]

	switch f.cfg.DateFromURL.Format {
	case "date":
		if t, ok := timeutil.Parse(groups[0]); ok {
			return &t
		}
	case "month-name-day-year":
		if len(groups) >= 3 {
			month, ok := timeutil.MonthByName(groups[0])
			if !ok {
				return nil
			}
			day, errD := strconv.Atoi(groups[1])
			year, errY := strconv.Atoi(groups[2])
			if errD != nil || errY != nil {
				return nil
			}
			t := time.Date(year, month, day, 0, 0, 0, 0, time.UTC)
			return &t
		}
	case "year-month":
		if len(groups) >= 2 {
			year, errY := strconv.Atoi(groups[0])
			month, errM := strconv.Atoi(groups[1])
			if errY != nil || errM != nil || month < 1 || month > 12 {
				return nil
			}
			t := time.Date(year, time.Month(month), 1, 0, 0, 0, 0, time.UTC)
			return &t
		}
	}
	return nil
}

func (f *pageFetcher) resolve(href string) string {
	ref, err := url.Parse(href)
	if err != nil {
		return href
	}
	return f.baseURL.ResolveReference(ref).String()
}
