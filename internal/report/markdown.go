// Package report renders the run's final item set into Markdown and JSON
// artifacts.
package report

import (
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"time"
	"unicode/utf8"

	"github.com/rotisserie/eris"

	"github.com/topicworks/digest-cli/internal/model"
)

const summaryDisplayLimit = 300

// WriteMarkdown renders the human-readable digest and writes it to path.
// Items are grouped by source and sorted by score within each group; only
// new items appear.
func WriteMarkdown(path string, items []model.ContentItem, summary model.RunSummary) error {
	content := Markdown(items, summary)
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return eris.Wrap(err, "report: create output directory")
	}
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		return eris.Wrapf(err, "report: write markdown %s", path)
	}
	return nil
}

// Markdown renders the digest document.
func Markdown(items []model.ContentItem, summary model.RunSummary) string {
	var b strings.Builder

	fmt.Fprintf(&b, "# Daily Topic Candidates (%s)\n\n", time.Now().UTC().Format("2006-01-02"))
	fmt.Fprintf(&b, "**Window**: since %s\n", summary.Since.Format(time.RFC3339))
	fmt.Fprintf(&b, "**Totals**: raw %d | filtered %d | deduped %d | new %d\n\n",
		summary.Totals.RawCount,
		summary.Totals.FilteredCount,
		summary.Totals.DedupedCount,
		summary.Totals.NewCount,
	)

	if len(summary.SourceStats) > 0 {
		b.WriteString("**Sources**:\n")
		for _, st := range summary.SourceStats {
			marker := "ok"
			if !st.Success {
				marker = "failed"
			}
			fmt.Fprintf(&b, "- %s (%s): %d items\n", st.SourceName, marker, st.FilteredCount)
		}
		b.WriteString("\n")
	}

	if picks := topPicks(items, 5); len(picks) > 0 {
		b.WriteString("**Top picks**:\n")
		for _, item := range picks {
			fmt.Fprintf(&b, "- [%s](%s) (%.1f, %s)\n", item.Title, item.URL, item.Score, item.Source)
		}
		b.WriteString("\n")
	}

	b.WriteString("---\n\n")

	for _, group := range groupBySource(items) {
		newItems := make([]model.ContentItem, 0, len(group.items))
		for _, item := range group.items {
			if item.IsNew {
				newItems = append(newItems, item)
			}
		}
		if len(newItems) == 0 {
			continue
		}

		fmt.Fprintf(&b, "## %s (%d items)\n\n", group.name, len(newItems))
		for i, item := range newItems {
			writeItem(&b, item, i+1)
			b.WriteString("\n")
		}
		b.WriteString("---\n\n")
	}

	return b.String()
}

// topPicks returns the n highest-scoring new items across all sources.
func topPicks(items []model.ContentItem, n int) []model.ContentItem {
	var picks []model.ContentItem
	for _, item := range items {
		if item.IsNew {
			picks = append(picks, item)
		}
	}
	sort.SliceStable(picks, func(a, b int) bool {
		return picks[a].Score > picks[b].Score
	})
	if len(picks) > n {
		picks = picks[:n]
	}
	return picks
}

type sourceGroup struct {
	name  string
	items []model.ContentItem
}

// groupBySource buckets items by source display name, preserving the order
// sources first appear, and sorts each bucket by score descending.
func groupBySource(items []model.ContentItem) []sourceGroup {
	index := make(map[string]int)
	var groups []sourceGroup
	for _, item := range items {
		i, ok := index[item.Source]
		if !ok {
			i = len(groups)
			index[item.Source] = i
			groups = append(groups, sourceGroup{name: item.Source})
		}
		groups[i].items = append(groups[i].items, item)
	}
	for i := range groups {
		sort.SliceStable(groups[i].items, func(a, b int) bool {
			return groups[i].items[a].Score > groups[i].items[b].Score
		})
	}
	return groups
}

func writeItem(b *strings.Builder, item model.ContentItem, index int) {
	fmt.Fprintf(b, "### %d. [%s](%s)\n", index, item.Title, item.URL)

	published := "unknown"
	if item.PublishedAt != nil {
		published = item.PublishedAt.Format("2006-01-02 15:04")
	}
	fmt.Fprintf(b, "- **Published**: %s | **Score**: %.1f\n", published, item.Score)

	points, hasPoints := item.Raw["points"]
	comments, hasComments := item.Raw["comments"]
	if hasPoints || hasComments {
		fmt.Fprintf(b, "- **Points**: %v | **Comments**: %v\n", orZero(points), orZero(comments))
	}

	if item.Summary != "" {
		summary := item.Summary
		if utf8.RuneCountInString(summary) > summaryDisplayLimit {
			summary = string([]rune(summary)[:summaryDisplayLimit]) + "..."
		}
		fmt.Fprintf(b, "- **Summary**: %s\n", summary)
	}

	if len(item.Tags) > 0 {
		tags := item.Tags
		if len(tags) > 5 {
			tags = tags[:5]
		}
		quoted := make([]string, len(tags))
		for i, tag := range tags {
			quoted[i] = "`" + tag + "`"
		}
		fmt.Fprintf(b, "- **Tags**: %s\n", strings.Join(quoted, ", "))
	}
}

func orZero(v any) any {
	if v == nil {
		return 0
	}
	return v
}
