package fetch

import (
	"context"
	"encoding/json"
	"net/url"
	"regexp"
	"strconv"
	"strings"
	"time"

	"github.com/rotisserie/eris"
	"go.uber.org/zap"
	"golang.org/x/text/cases"
	"golang.org/x/text/language"

	"github.com/topicworks/digest-cli/internal/config"
	"github.com/topicworks/digest-cli/internal/identity"
	"github.com/topicworks/digest-cli/internal/model"
	"github.com/topicworks/digest-cli/internal/timeutil"
)

const defaultIssueLimit = 3

// defaultIssuePattern captures the embedded issue array on newsletter
// archive pages rendered by JS frameworks.
const defaultIssuePattern = `(?s)"campaigns":\s*(\[.*?\])`

var (
	hrefRe      = regexp.MustCompile(`"href":\s*"(https?://[^"]+)"`)
	textBlockRe = regexp.MustCompile(`"children":\s*"([^"]{10,200})"`)
	extensionRe = regexp.MustCompile(`\.(html?|php|aspx?)$`)
	titleCaser  = cases.Title(language.English)
)

// issueDescriptor is one entry of the embedded issue array. Only the date
// matters; it keys the per-issue URL.
type issueDescriptor struct {
	Date string `json:"date"`
}

// embeddedFetcher runs the two-stage crawl: extract issue descriptors from
// an index page, then scan each recent issue page for external article
// links.
type embeddedFetcher struct {
	cfg     config.EmbeddedMethod
	client  *Client
	base    itemBuilder
	issueRe *regexp.Regexp
}

func newEmbeddedFetcher(cfg config.EmbeddedMethod, client *Client, base itemBuilder) (*embeddedFetcher, error) {
	pattern := cfg.IssuePattern
	if pattern == "" {
		pattern = defaultIssuePattern
	}
	re, err := regexp.Compile(pattern)
	if err != nil {
		return nil, eris.Wrap(err, "fetch: issue pattern")
	}
	if cfg.IssueLimit <= 0 {
		cfg.IssueLimit = defaultIssueLimit
	}
	return &embeddedFetcher{cfg: cfg, client: client, base: base, issueRe: re}, nil
}

func (f *embeddedFetcher) Kind() config.MethodKind { return config.KindEmbeddedData }

func (f *embeddedFetcher) Fetch(ctx context.Context) (*Result, error) {
	body, err := f.client.Get(ctx, f.cfg.ArchiveURL)
	if err != nil {
		return nil, err
	}

	issues, err := f.extractIssues(string(body))
	if err != nil {
		return nil, err
	}

	if len(issues) > f.cfg.IssueLimit {
		issues = issues[:f.cfg.IssueLimit]
	}

	var items []model.ContentItem
	for _, issue := range issues {
		if issue.Date == "" {
			continue
		}
		issueURL := strings.ReplaceAll(f.cfg.IssueURLTemplate, "{date}", issue.Date)

		issueBody, err := f.client.Get(ctx, issueURL)
		if err != nil {
			// One failed issue never aborts the stage-2 loop.
			zap.L().Warn("issue page fetch failed, continuing",
				zap.String("url", issueURL),
				zap.Error(err),
			)
			continue
		}

		items = append(items, f.extractArticles(string(issueBody), issue.Date)...)
	}

	return &Result{Items: items, RawCount: len(items)}, nil
}

// extractIssues pulls the embedded issue array out of the index page. A
// missing or unparsable array fails the whole strategy attempt.
func (f *embeddedFetcher) extractIssues(html string) ([]issueDescriptor, error) {
	m := f.issueRe.FindStringSubmatch(html)
	if m == nil || len(m) < 2 {
		return nil, eris.Errorf("fetch: no embedded issue data at %s", f.cfg.ArchiveURL)
	}

	var issues []issueDescriptor
	if err := json.Unmarshal([]byte(m[1]), &issues); err != nil {
		return nil, eris.Wrap(err, "fetch: decode embedded issue data")
	}
	if len(issues) == 0 {
		return nil, eris.Errorf("fetch: empty embedded issue data at %s", f.cfg.ArchiveURL)
	}
	return issues, nil
}

// extractArticles scans one issue page for external hrefs, paired
// positionally with nearby text blocks. Links back to the issuing domain
// and URLs already seen within this issue are discarded.
func (f *embeddedFetcher) extractArticles(html, date string) []model.ContentItem {
	hrefs := hrefRe.FindAllStringSubmatch(html, -1)
	titles := textBlockRe.FindAllStringSubmatch(html, -1)

	var published *time.Time
	if t, ok := timeutil.Parse(date); ok {
		published = &t
	}

	seen := make(map[string]struct{})
	var items []model.ContentItem
	for i, m := range hrefs {
		rawURL := m[1]
		if f.cfg.SkipDomain != "" && strings.Contains(rawURL, f.cfg.SkipDomain) {
			continue
		}

		clean := identity.NormalizeURL(rawURL)
		if _, dup := seen[clean]; dup {
			continue
		}
		seen[clean] = struct{}{}

		var title string
		if i < len(titles) {
			title = cleanText(titles[i][1])
		}
		if title == "" {
			title = titleFromURL(rawURL)
		}
		if title == "" {
			continue
		}

		raw := map[string]any{
			"original_url": rawURL,
			"issue_date":   date,
		}

		item := f.base.build(title, clean, published, "", "", nil, raw)
		if f.base.valid(item) {
			items = append(items, item)
		}
	}
	return items
}

// cleanText decodes JSON string escapes and collapses whitespace.
func cleanText(text string) string {
	if unquoted, err := strconv.Unquote(`"` + text + `"`); err == nil {
		text = unquoted
	}
	return strings.TrimSpace(whitespaceRe.ReplaceAllString(text, " "))
}

// titleFromURL synthesizes a title from the URL's last path segment.
func titleFromURL(rawURL string) string {
	u, err := url.Parse(rawURL)
	if err != nil {
		return ""
	}
	path := strings.Trim(u.Path, "/")
	if path == "" {
		return ""
	}
	segments := strings.Split(path, "/")
	slug := extensionRe.ReplaceAllString(segments[len(segments)-1], "")
	slug = strings.NewReplacer("-", " ", "_", " ").Replace(slug)
	return titleCaser.String(slug)
}
