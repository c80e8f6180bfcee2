package fetch

import (
	"context"

	"github.com/rotisserie/eris"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/topicworks/digest-cli/internal/config"
	"github.com/topicworks/digest-cli/internal/model"
)

// SourceResult is the outcome of one source's fallback chain.
type SourceResult struct {
	SourceID   string
	SourceName string
	MethodUsed string
	Items      []model.ContentItem
	RawCount   int
	Err        error
}

// Success reports whether any strategy yielded items for this source.
func (r *SourceResult) Success() bool { return r.Err == nil }

// Orchestrator runs each source's strategy fallback chain against the
// shared HTTP client. Source failures are isolated: one source failing
// never aborts the run for the others.
type Orchestrator struct {
	client *Client
	limits Limits
}

// NewOrchestrator creates an Orchestrator bound to one run's client and
// limits.
func NewOrchestrator(client *Client, limits Limits) *Orchestrator {
	return &Orchestrator{client: client, limits: limits}
}

// FetchSource tries the source's methods in ascending priority order. An
// attempt counts as success only when it returns without error AND yields a
// non-empty item list; anything else discards the attempt's output and
// moves on. When every method fails the result carries the last specific
// error, or a generic one if no method produced any.
func (o *Orchestrator) FetchSource(ctx context.Context, src config.SourceConfig) *SourceResult {
	result := &SourceResult{SourceID: src.ID, SourceName: src.Name}

	var lastErr error
	for _, method := range src.Methods {
		fetcher, err := NewFetcher(src, method, o.client, o.limits)
		if err != nil {
			lastErr = err
			continue
		}

		attempt, err := fetcher.Fetch(ctx)
		if err != nil {
			zap.L().Debug("fetch method failed, trying next",
				zap.String("source", src.ID),
				zap.String("method", string(method.Kind)),
				zap.Error(err),
			)
			lastErr = err
			continue
		}
		if len(attempt.Items) == 0 {
			zap.L().Debug("fetch method returned no items, trying next",
				zap.String("source", src.ID),
				zap.String("method", string(method.Kind)),
			)
			continue
		}

		result.MethodUsed = string(method.Kind)
		result.Items = attempt.Items
		result.RawCount = attempt.RawCount
		return result
	}

	if lastErr != nil {
		result.Err = eris.Wrapf(lastErr, "fetch: source %s", src.ID)
	} else {
		result.Err = eris.Errorf("fetch: source %s: all fetch methods failed", src.ID)
	}
	return result
}

// FetchAll fetches every source, fanning out up to concurrency sources at a
// time. Results keep the configured source order so the aggregated batch
// is deterministic for a given input ordering.
func (o *Orchestrator) FetchAll(ctx context.Context, sources []config.SourceConfig, concurrency int) []*SourceResult {
	if concurrency <= 0 {
		concurrency = 1
	}

	results := make([]*SourceResult, len(sources))

	g, gCtx := errgroup.WithContext(ctx)
	g.SetLimit(concurrency)
	for i, src := range sources {
		g.Go(func() error {
			zap.L().Info("fetching source", zap.String("source", src.ID))
			results[i] = o.FetchSource(gCtx, src)
			return nil
		})
	}
	_ = g.Wait()

	return results
}
