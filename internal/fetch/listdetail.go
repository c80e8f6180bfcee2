package fetch

import (
	"context"
	"strconv"
	"strings"
	"time"

	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/topicworks/digest-cli/internal/config"
	"github.com/topicworks/digest-cli/internal/model"
	"github.com/topicworks/digest-cli/internal/timeutil"
)

const (
	defaultItemType    = "story"
	defaultConcurrency = 10
)

// detailRecord is the detail-endpoint payload shape (Hacker News item API).
type detailRecord struct {
	ID          int64  `json:"id"`
	Type        string `json:"type"`
	Title       string `json:"title"`
	URL         string `json:"url"`
	By          string `json:"by"`
	Time        int64  `json:"time"`
	Score       int    `json:"score"`
	Descendants int    `json:"descendants"`
}

// listDetailFetcher reads an ordered ID list from a list endpoint and fans
// out detail fetches over a bounded worker pool.
type listDetailFetcher struct {
	cfg    config.ListDetailMethod
	client *Client
	base   itemBuilder
	limits Limits
}

func newListDetailFetcher(cfg config.ListDetailMethod, client *Client, base itemBuilder, limits Limits) *listDetailFetcher {
	if cfg.ItemType == "" {
		cfg.ItemType = defaultItemType
	}
	return &listDetailFetcher{cfg: cfg, client: client, base: base, limits: limits}
}

func (f *listDetailFetcher) Kind() config.MethodKind { return config.KindListDetailAPI }

func (f *listDetailFetcher) Fetch(ctx context.Context) (*Result, error) {
	var ids []int64
	if err := f.client.GetJSON(ctx, f.cfg.ListURL, &ids); err != nil {
		return nil, err
	}

	if limit := f.limits.PerSource; limit > 0 && len(ids) > limit {
		ids = ids[:limit]
	}

	concurrency := f.limits.Concurrency
	if concurrency <= 0 {
		concurrency = defaultConcurrency
	}

	// Results land in their list position so the output order is
	// deterministic regardless of fetch completion order.
	slots := make([]*model.ContentItem, len(ids))

	g, gCtx := errgroup.WithContext(ctx)
	g.SetLimit(concurrency)
	for i, id := range ids {
		g.Go(func() error {
			item, ok := f.fetchDetail(gCtx, id)
			if ok {
				slots[i] = &item
			}
			return nil
		})
	}
	_ = g.Wait()

	result := &Result{RawCount: len(ids)}
	for _, slot := range slots {
		if slot != nil {
			result.Items = append(result.Items, *slot)
		}
	}
	return result, nil
}

// fetchDetail retrieves one record. Failures and type mismatches yield no
// item rather than failing the batch.
func (f *listDetailFetcher) fetchDetail(ctx context.Context, id int64) (model.ContentItem, bool) {
	url := expandID(f.cfg.ItemURLTemplate, id)

	var rec detailRecord
	if err := f.client.GetJSON(ctx, url, &rec); err != nil {
		zap.L().Debug("detail fetch failed, skipping item",
			zap.String("url", url),
			zap.Error(err),
		)
		return model.ContentItem{}, false
	}

	if rec.Type != f.cfg.ItemType {
		return model.ContentItem{}, false
	}

	title := strings.TrimSpace(rec.Title)

	// Self-posts carry no external URL; fall back to the discussion page.
	link := rec.URL
	if link == "" && f.cfg.DiscussionURLTemplate != "" {
		link = expandID(f.cfg.DiscussionURLTemplate, rec.ID)
	}

	var published *time.Time
	if rec.Time > 0 {
		t := timeutil.FromUnix(rec.Time)
		published = &t
	}

	raw := map[string]any{
		"item_id":  rec.ID,
		"points":   rec.Score,
		"comments": rec.Descendants,
		"type":     rec.Type,
	}

	item := f.base.build(title, link, published, rec.By, "", nil, raw)
	if !f.base.valid(item) {
		return model.ContentItem{}, false
	}
	return item, true
}

func expandID(template string, id int64) string {
	return strings.ReplaceAll(template, "{id}", strconv.FormatInt(id, 10))
}
