package main

import (
	"context"
	"fmt"
	"path/filepath"
	"sort"
	"time"

	"github.com/google/uuid"
	"github.com/rotisserie/eris"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/topicworks/digest-cli/internal/config"
	"github.com/topicworks/digest-cli/internal/fetch"
	"github.com/topicworks/digest-cli/internal/identity"
	"github.com/topicworks/digest-cli/internal/model"
	"github.com/topicworks/digest-cli/internal/report"
	"github.com/topicworks/digest-cli/internal/score"
	"github.com/topicworks/digest-cli/internal/store"
	"github.com/topicworks/digest-cli/internal/timeutil"
)

var (
	runDays          int
	runSince         string
	runLimit         int
	runOnlySources   []string
	runOutputDir     string
	runHistoryFile   string
	runNoIncremental bool
	runTimeout       int
	runRetries       int
	runConcurrency   int
	runDelay         int
)

var runCmd = &cobra.Command{
	Use:   "run",
	Short: "Fetch, score, and deduplicate all enabled sources",
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := cmd.Context()
		applyRunFlags(cmd)

		since, err := resolveSince()
		if err != nil {
			return err
		}

		sources, err := loadEnabledSources()
		if err != nil {
			return err
		}
		if len(sources) == 0 {
			return eris.New("no enabled sources matched")
		}

		client := fetch.NewClient(fetch.ClientOptions{
			UserAgent:    cfg.Fetch.UserAgent,
			Timeout:      cfg.Fetch.Timeout(),
			MaxRetries:   cfg.Fetch.Retries,
			RequestDelay: cfg.Fetch.Delay(),
		})
		orch := fetch.NewOrchestrator(client, fetch.Limits{
			PerSource:   cfg.Fetch.LimitPerSource,
			Concurrency: cfg.Fetch.Concurrency,
		})

		startedAt := time.Now().UTC()
		zap.L().Info("run started",
			zap.Int("sources", len(sources)),
			zap.Time("since", since),
		)

		results := orch.FetchAll(ctx, sources, cfg.Fetch.Concurrency)

		scorer := score.New(cfg.Scoring)
		var (
			all        []model.ContentItem
			stats      []model.SourceStats
			errs       []model.SourceError
			totals     model.RunTotals
			anySuccess bool
		)
		for i, res := range results {
			st := model.SourceStats{
				SourceID:   res.SourceID,
				SourceName: res.SourceName,
				Success:    res.Success(),
				MethodUsed: res.MethodUsed,
				RawCount:   res.RawCount,
			}
			if !res.Success() {
				st.Error = res.Err.Error()
				errs = append(errs, model.SourceError{Source: res.SourceID, Error: st.Error})
				stats = append(stats, st)
				continue
			}
			anySuccess = true

			filtered := make([]model.ContentItem, 0, len(res.Items))
			for _, item := range res.Items {
				if timeutil.WithinWindow(item.PublishedAt, since) {
					filtered = append(filtered, item)
				}
			}
			st.FilteredCount = len(filtered)

			scored := scorer.ScoreBatch(filtered, sources[i].Scoring)
			all = append(all, scored...)

			totals.RawCount += res.RawCount
			totals.FilteredCount += len(filtered)
			stats = append(stats, st)
		}

		if !anySuccess {
			return eris.New("run: all sources failed")
		}

		var ledger *identity.Ledger
		if !runNoIncremental {
			ledger = identity.OpenLedger(filepath.Join(cfg.Output.Dir, cfg.Output.HistoryFile))
		}
		deduper := identity.NewDeduplicator(ledger)
		deduped := deduper.Dedupe(all)
		totals.DedupedCount = len(deduped)
		for _, item := range deduped {
			if item.IsNew {
				totals.NewCount++
			}
		}
		for i := range stats {
			for _, item := range deduped {
				if item.SourceID == stats[i].SourceID {
					stats[i].KeptCount++
				}
			}
		}

		sort.SliceStable(deduped, func(a, b int) bool {
			return deduped[a].Score > deduped[b].Score
		})

		finishedAt := time.Now().UTC()
		summary := model.RunSummary{
			RunID:       uuid.New().String(),
			StartedAt:   startedAt,
			FinishedAt:  finishedAt,
			Since:       since,
			Totals:      totals,
			SourceStats: stats,
			Errors:      errs,
		}

		outputs, reportErr := writeReports(deduped, summary)

		if ledger != nil {
			var entries []identity.LedgerEntry
			for _, item := range deduped {
				if item.IsNew {
					entries = append(entries, identity.NewEntry(item.ID, item.URL, finishedAt))
				}
			}
			// Persistence degradation is recoverable: the reports are
			// already written, the items just stay new next run.
			if err := ledger.Append(entries); err != nil {
				zap.L().Warn("history ledger append failed", zap.Error(err))
			}
		}

		if cfg.Store.Path != "" {
			if err := archiveRun(ctx, summary, deduped); err != nil {
				zap.L().Warn("run archive failed", zap.Error(err))
			}
		}

		zap.L().Info("run complete",
			zap.String("run_id", summary.RunID),
			zap.Int("raw", totals.RawCount),
			zap.Int("filtered", totals.FilteredCount),
			zap.Int("deduped", totals.DedupedCount),
			zap.Int("new", totals.NewCount),
			zap.Strings("outputs", outputs),
		)
		return reportErr
	},
}

// applyRunFlags lets explicit flags override the loaded config.
func applyRunFlags(cmd *cobra.Command) {
	if cmd.Flags().Changed("limit-per-source") {
		cfg.Fetch.LimitPerSource = runLimit
	}
	if cmd.Flags().Changed("timeout") {
		cfg.Fetch.TimeoutSecs = runTimeout
	}
	if cmd.Flags().Changed("retries") {
		cfg.Fetch.Retries = runRetries
	}
	if cmd.Flags().Changed("concurrency") {
		cfg.Fetch.Concurrency = runConcurrency
	}
	if cmd.Flags().Changed("delay") {
		cfg.Fetch.DelayMillis = runDelay
	}
	if cmd.Flags().Changed("output-dir") {
		cfg.Output.Dir = runOutputDir
	}
	if cmd.Flags().Changed("history-file") {
		cfg.Output.HistoryFile = runHistoryFile
	}
}

func resolveSince() (time.Time, error) {
	if runSince != "" {
		t, ok := timeutil.Parse(runSince)
		if !ok {
			return time.Time{}, eris.Errorf("unparseable --since value %q", runSince)
		}
		return t.UTC(), nil
	}
	return timeutil.Since(runDays), nil
}

func loadEnabledSources() ([]config.SourceConfig, error) {
	base, err := config.LoadSources(cfg.Sources.File)
	if err != nil {
		return nil, eris.Wrap(err, "load sources")
	}
	merged := base.Sources
	if cfg.Sources.UserFile != "" {
		user, err := config.LoadSources(cfg.Sources.UserFile)
		if err != nil {
			return nil, eris.Wrap(err, "load user sources")
		}
		merged = config.MergeSources(merged, user.Sources)
	}
	return config.EnabledSources(merged, runOnlySources), nil
}

func writeReports(items []model.ContentItem, summary model.RunSummary) ([]string, error) {
	day := summary.StartedAt.Format("2006-01-02")
	mdPath := filepath.Join(cfg.Output.Dir, fmt.Sprintf("digest-%s.md", day))
	itemsPath := filepath.Join(cfg.Output.Dir, fmt.Sprintf("items-%s.json", day))
	metaPath := filepath.Join(cfg.Output.Dir, "run_meta.json")

	// One failed artifact does not block the others.
	var outputs []string
	var firstErr error
	record := func(path string, err error) {
		if err != nil {
			zap.L().Warn("report write failed", zap.String("path", path), zap.Error(err))
			if firstErr == nil {
				firstErr = err
			}
			return
		}
		outputs = append(outputs, path)
	}

	record(mdPath, report.WriteMarkdown(mdPath, items, summary))
	record(itemsPath, report.WriteItems(itemsPath, items))
	record(metaPath, report.WriteMeta(metaPath, summary, outputs))
	return outputs, firstErr
}

func archiveRun(ctx context.Context, summary model.RunSummary, items []model.ContentItem) error {
	st, err := store.NewSQLite(cfg.Store.Path)
	if err != nil {
		return err
	}
	defer st.Close()
	if err := st.Migrate(ctx); err != nil {
		return err
	}
	return st.RecordRun(ctx, summary, items)
}

func init() {
	runCmd.Flags().IntVar(&runDays, "days", 1, "look-back window in days")
	runCmd.Flags().StringVar(&runSince, "since", "", "explicit window start (overrides --days)")
	runCmd.Flags().IntVar(&runLimit, "limit-per-source", 0, "max items fetched per source")
	runCmd.Flags().StringSliceVar(&runOnlySources, "only-sources", nil, "restrict the run to these source ids")
	runCmd.Flags().StringVar(&runOutputDir, "output-dir", "", "directory for digest artifacts")
	runCmd.Flags().StringVar(&runHistoryFile, "history-file", "", "history ledger filename")
	runCmd.Flags().BoolVar(&runNoIncremental, "no-incremental", false, "ignore the history ledger; treat every item as new")
	runCmd.Flags().IntVar(&runTimeout, "timeout", 0, "per-request timeout in seconds")
	runCmd.Flags().IntVar(&runRetries, "retries", 0, "max retries per request")
	runCmd.Flags().IntVar(&runConcurrency, "concurrency", 0, "concurrent source fetches")
	runCmd.Flags().IntVar(&runDelay, "delay", 0, "inter-request delay in milliseconds")
	rootCmd.AddCommand(runCmd)
}
