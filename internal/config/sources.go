package config

import (
	"os"
	"regexp"
	"sort"
	"strings"

	"github.com/rotisserie/eris"
	"gopkg.in/yaml.v3"
)

// MethodKind identifies a fetch strategy. The set is closed; the fetch
// factory rejects anything else.
type MethodKind string

const (
	KindFeed          MethodKind = "feed"
	KindListDetailAPI MethodKind = "list-detail-api"
	KindPageScrape    MethodKind = "page-scrape"
	KindEmbeddedData  MethodKind = "embedded-data"
)

// SourcesFile is the top-level shape of sources.yaml.
type SourcesFile struct {
	Version string         `yaml:"version"`
	Sources []SourceConfig `yaml:"sources"`
}

// SourceConfig describes one content source: its fallback chain of fetch
// methods, default tags, and scoring policy. Built once at load time and
// immutable during a run.
type SourceConfig struct {
	ID          string        `yaml:"id"`
	Enabled     bool          `yaml:"enabled"`
	Name        string        `yaml:"name"`
	Description string        `yaml:"description,omitempty"`
	DefaultTags []string      `yaml:"default_tags,omitempty"`
	Methods     []FetchMethod `yaml:"fetch_methods"`
	Scoring     ScoringPolicy `yaml:"scoring"`
}

// FetchMethod is one entry in a source's strategy fallback chain. Exactly
// one of the kind-specific blocks must be set, matching Kind.
type FetchMethod struct {
	Kind        MethodKind        `yaml:"kind"`
	Priority    int               `yaml:"priority"`
	Feed        *FeedMethod       `yaml:"feed,omitempty"`
	ListDetail  *ListDetailMethod `yaml:"list_detail,omitempty"`
	PageScrape  *PageScrapeMethod `yaml:"page_scrape,omitempty"`
	Embedded    *EmbeddedMethod   `yaml:"embedded,omitempty"`
	Limitations []string          `yaml:"limitations,omitempty"`
	Warnings    []string          `yaml:"warnings,omitempty"`
}

// FeedMethod configures the syndication-feed strategy.
type FeedMethod struct {
	URL string `yaml:"url"`
}

// ListDetailMethod configures the list+detail API strategy. URL templates
// use a literal "{id}" placeholder.
type ListDetailMethod struct {
	ListURL               string `yaml:"list_url"`
	ItemURLTemplate       string `yaml:"item_url_template"`
	DiscussionURLTemplate string `yaml:"discussion_url_template,omitempty"`
	ItemType              string `yaml:"item_type,omitempty"`
}

// PageScrapeMethod configures the HTML page strategy. Links selects a list
// of anchors; alternatively Title/Link/Date selectors are paired by index.
type PageScrapeMethod struct {
	URL         string       `yaml:"url"`
	Links       string       `yaml:"links,omitempty"`
	Title       string       `yaml:"title,omitempty"`
	Link        string       `yaml:"link,omitempty"`
	Date        string       `yaml:"date,omitempty"`
	DateFromURL *DateFromURL `yaml:"date_from_url,omitempty"`
}

// DateFromURL extracts a publish date from hrefs via a regex. Format is one
// of "date" (a literal date substring), "month-name-day-year", or
// "year-month" (resolved to the first of that month).
type DateFromURL struct {
	Pattern string `yaml:"pattern"`
	Format  string `yaml:"format"`
}

// EmbeddedMethod configures the embedded-data strategy: an index page whose
// markup embeds an array of issue descriptors, plus a per-issue URL template
// with a "{date}" placeholder.
type EmbeddedMethod struct {
	ArchiveURL       string `yaml:"archive_url"`
	IssueURLTemplate string `yaml:"issue_url_template"`
	IssuePattern     string `yaml:"issue_pattern,omitempty"`
	SkipDomain       string `yaml:"skip_domain,omitempty"`
	IssueLimit       int    `yaml:"issue_limit,omitempty"`
}

// ScoringPolicy holds the per-source scoring parameters.
type ScoringPolicy struct {
	BaseScore          float64             `yaml:"base_score"`
	KeywordBonus       []KeywordGroup      `yaml:"keyword_bonus,omitempty"`
	Engagement         *EngagementFormula  `yaml:"engagement,omitempty"`
	ContentLengthBonus *ContentLengthBonus `yaml:"content_length_bonus,omitempty"`
}

// KeywordGroup awards Bonus at most once, on the first matching keyword.
type KeywordGroup struct {
	Keywords []string `yaml:"keywords"`
	Bonus    float64  `yaml:"bonus"`
}

// EngagementFormula combines two counters, each optionally transformed,
// into a weighted sum multiplied by Scale. Transform is one of "",
// "log1p", or "sqrt".
type EngagementFormula struct {
	PointsWeight   float64 `yaml:"points_weight"`
	CommentsWeight float64 `yaml:"comments_weight"`
	Transform      string  `yaml:"transform,omitempty"`
	Scale          float64 `yaml:"scale,omitempty"`
}

// ContentLengthBonus awards a flat bonus when the longest available text
// reaches Threshold characters.
type ContentLengthBonus struct {
	Threshold int     `yaml:"threshold"`
	Bonus     float64 `yaml:"bonus"`
}

// LoadSources reads and validates a sources file. Validation is eager:
// malformed method configs fail here, not mid-fetch.
func LoadSources(path string) (*SourcesFile, error) {
	raw, err := os.ReadFile(path)
	if err != nil {
		return nil, eris.Wrapf(err, "config: read sources file %s", path)
	}

	var sf SourcesFile
	if err := yaml.Unmarshal(raw, &sf); err != nil {
		return nil, eris.Wrapf(err, "config: parse sources file %s", path)
	}

	for i := range sf.Sources {
		if err := sf.Sources[i].Validate(); err != nil {
			return nil, eris.Wrapf(err, "config: source %q", sf.Sources[i].ID)
		}
	}

	return &sf, nil
}

// MergeSources overlays user sources onto base by source id. User entries
// replace same-id base entries wholesale; new user entries are appended.
func MergeSources(base, user []SourceConfig) []SourceConfig {
	merged := make([]SourceConfig, len(base))
	copy(merged, base)

	index := make(map[string]int, len(merged))
	for i, src := range merged {
		index[src.ID] = i
	}

	for _, src := range user {
		if i, ok := index[src.ID]; ok {
			merged[i] = src
		} else {
			merged = append(merged, src)
		}
	}
	return merged
}

// EnabledSources filters to enabled sources, optionally restricted to the
// given ids, preserving file order.
func EnabledSources(sources []SourceConfig, only []string) []SourceConfig {
	var want map[string]struct{}
	if len(only) > 0 {
		want = make(map[string]struct{}, len(only))
		for _, id := range only {
			want[strings.TrimSpace(id)] = struct{}{}
		}
	}

	var out []SourceConfig
	for _, src := range sources {
		if !src.Enabled {
			continue
		}
		if want != nil {
			if _, ok := want[src.ID]; !ok {
				continue
			}
		}
		out = append(out, src)
	}
	return out
}

// Validate checks required fields and per-method configuration.
func (s *SourceConfig) Validate() error {
	if s.ID == "" {
		return eris.New("missing id")
	}
	if s.Name == "" {
		return eris.New("missing name")
	}
	if len(s.Methods) == 0 {
		return eris.New("no fetch methods configured")
	}
	for i := range s.Methods {
		if err := s.Methods[i].Validate(); err != nil {
			return eris.Wrapf(err, "fetch method %d (%s)", i, s.Methods[i].Kind)
		}
	}
	sort.SliceStable(s.Methods, func(a, b int) bool {
		return s.Methods[a].Priority < s.Methods[b].Priority
	})
	if s.Scoring.Engagement != nil {
		if err := s.Scoring.Engagement.Validate(); err != nil {
			return eris.Wrap(err, "engagement formula")
		}
	}
	return nil
}

// Validate checks that the kind-specific block matching Kind is present and
// well-formed.
func (m *FetchMethod) Validate() error {
	switch m.Kind {
	case KindFeed:
		if m.Feed == nil || m.Feed.URL == "" {
			return eris.New("feed url is required")
		}
	case KindListDetailAPI:
		if m.ListDetail == nil {
			return eris.New("list_detail configuration is required")
		}
		if m.ListDetail.ListURL == "" {
			return eris.New("list_url is required")
		}
		if m.ListDetail.ItemURLTemplate == "" {
			return eris.New("item_url_template is required")
		}
		if !strings.Contains(m.ListDetail.ItemURLTemplate, "{id}") {
			return eris.New("item_url_template must contain {id}")
		}
	case KindPageScrape:
		if m.PageScrape == nil || m.PageScrape.URL == "" {
			return eris.New("page url is required")
		}
		if m.PageScrape.Links == "" && m.PageScrape.Title == "" {
			return eris.New("either links or title selector is required")
		}
		if d := m.PageScrape.DateFromURL; d != nil {
			if _, err := regexp.Compile(d.Pattern); err != nil {
				return eris.Wrap(err, "date_from_url pattern")
			}
			switch d.Format {
			case "date", "month-name-day-year", "year-month":
			default:
				return eris.Errorf("unknown date_from_url format %q", d.Format)
			}
		}
	case KindEmbeddedData:
		if m.Embedded == nil {
			return eris.New("embedded configuration is required")
		}
		if m.Embedded.ArchiveURL == "" {
			return eris.New("archive_url is required")
		}
		if m.Embedded.IssueURLTemplate == "" {
			return eris.New("issue_url_template is required")
		}
		if !strings.Contains(m.Embedded.IssueURLTemplate, "{date}") {
			return eris.New("issue_url_template must contain {date}")
		}
		if m.Embedded.IssuePattern != "" {
			if _, err := regexp.Compile(m.Embedded.IssuePattern); err != nil {
				return eris.Wrap(err, "issue_pattern")
			}
		}
	default:
		return eris.Errorf("unknown fetch method kind %q", m.Kind)
	}
	return nil
}

// Validate checks the transform name.
func (e *EngagementFormula) Validate() error {
	switch e.Transform {
	case "", "log1p", "sqrt":
		return nil
	default:
		return eris.Errorf("unknown transform %q", e.Transform)
	}
}
