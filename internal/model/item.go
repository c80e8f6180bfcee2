// Package model defines the canonical data structures shared across the
// fetch, scoring, and deduplication stages.
package model

import "time"

// ContentItem is the canonical, source-agnostic representation of one piece
// of fetched content. ID is a stable fingerprint derived from the normalized
// URL (or source+title+published when no URL exists); recomputing it from the
// same inputs always yields the same value.
type ContentItem struct {
	ID          string         `json:"id"`
	SourceID    string         `json:"source_id"`
	Source      string         `json:"source"`
	Title       string         `json:"title"`
	URL         string         `json:"url"`
	PublishedAt *time.Time     `json:"published_at,omitempty"`
	FetchedAt   time.Time      `json:"fetched_at"`
	Author      string         `json:"author,omitempty"`
	Summary     string         `json:"summary,omitempty"`
	Tags        []string       `json:"tags,omitempty"`
	Score       float64        `json:"score"`
	IsNew       bool           `json:"is_new"`
	Raw         map[string]any `json:"raw,omitempty"`
}

// SourceStats records the per-source outcome of a run.
type SourceStats struct {
	SourceID      string `json:"source_id"`
	SourceName    string `json:"source_name"`
	Success       bool   `json:"success"`
	MethodUsed    string `json:"method_used,omitempty"`
	RawCount      int    `json:"raw_count"`
	FilteredCount int    `json:"filtered_count"`
	KeptCount     int    `json:"kept_count"`
	Error         string `json:"error,omitempty"`
}

// RunTotals aggregates counts across all sources in one run.
type RunTotals struct {
	RawCount      int `json:"raw_count"`
	FilteredCount int `json:"filtered_count"`
	DedupedCount  int `json:"deduped_count"`
	NewCount      int `json:"new_count"`
}

// RunSummary is the produced artifact handed to report generators and the
// run archive.
type RunSummary struct {
	RunID       string        `json:"run_id"`
	StartedAt   time.Time     `json:"started_at"`
	FinishedAt  time.Time     `json:"finished_at"`
	Since       time.Time     `json:"since"`
	Totals      RunTotals     `json:"totals"`
	SourceStats []SourceStats `json:"source_stats"`
	Errors      []SourceError `json:"errors,omitempty"`
}

// SourceError pairs a failed source with its aggregated error message.
type SourceError struct {
	Source string `json:"source"`
	Error  string `json:"error"`
}
