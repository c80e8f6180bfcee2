package report

import (
	"encoding/json"
	"os"
	"path/filepath"

	"github.com/rotisserie/eris"

	"github.com/topicworks/digest-cli/internal/model"
)

// RunMeta is the machine-readable record of a single pipeline run.
type RunMeta struct {
	RunID       string              `json:"run_id"`
	StartedAt   string              `json:"started_at"`
	FinishedAt  string              `json:"finished_at"`
	Since       string              `json:"since"`
	Totals      model.RunTotals     `json:"totals"`
	SourceStats []model.SourceStats `json:"source_stats"`
	OutputFiles []string            `json:"output_files"`
	Errors      []model.SourceError `json:"errors,omitempty"`
}

// WriteItems writes the full item set as a JSON array.
func WriteItems(path string, items []model.ContentItem) error {
	return writeJSON(path, items)
}

// WriteMeta writes the run metadata document.
func WriteMeta(path string, summary model.RunSummary, outputFiles []string) error {
	meta := RunMeta{
		RunID:       summary.RunID,
		StartedAt:   summary.StartedAt.Format("2006-01-02T15:04:05Z07:00"),
		FinishedAt:  summary.FinishedAt.Format("2006-01-02T15:04:05Z07:00"),
		Since:       summary.Since.Format("2006-01-02T15:04:05Z07:00"),
		Totals:      summary.Totals,
		SourceStats: summary.SourceStats,
		OutputFiles: outputFiles,
		Errors:      summary.Errors,
	}
	return writeJSON(path, meta)
}

func writeJSON(path string, v any) error {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return eris.Wrap(err, "report: create output directory")
	}
	data, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return eris.Wrapf(err, "report: marshal %s", path)
	}
	if err := os.WriteFile(path, data, 0o644); err != nil {
		return eris.Wrapf(err, "report: write %s", path)
	}
	return nil
}
