// Package store archives completed runs and their items in SQLite.
package store

import (
	"context"
	"database/sql"
	"encoding/json"

	"github.com/rotisserie/eris"
	_ "modernc.org/sqlite"

	"github.com/topicworks/digest-cli/internal/model"
)

// SQLiteStore persists run history using modernc.org/sqlite.
type SQLiteStore struct {
	db *sql.DB
}

// NewSQLite opens a SQLite database at the given path and configures WAL mode.
func NewSQLite(dsn string) (*SQLiteStore, error) {
	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, eris.Wrap(err, "sqlite: open")
	}
	for _, pragma := range []string{
		"PRAGMA journal_mode=WAL",
		"PRAGMA busy_timeout=5000",
		"PRAGMA synchronous=NORMAL",
	} {
		if _, err := db.Exec(pragma); err != nil {
			db.Close()
			return nil, eris.Wrapf(err, "sqlite: exec %s", pragma)
		}
	}
	return &SQLiteStore{db: db}, nil
}

const sqliteMigration = `
CREATE TABLE IF NOT EXISTS runs (
	id          TEXT PRIMARY KEY,
	started_at  DATETIME NOT NULL,
	finished_at DATETIME NOT NULL,
	since       DATETIME NOT NULL,
	stats       TEXT NOT NULL
);

CREATE TABLE IF NOT EXISTS items (
	identity   TEXT NOT NULL,
	run_id     TEXT NOT NULL REFERENCES runs(id),
	source     TEXT NOT NULL,
	title      TEXT NOT NULL,
	url        TEXT NOT NULL,
	score      REAL NOT NULL,
	is_new     INTEGER NOT NULL,
	payload    TEXT NOT NULL,
	PRIMARY KEY (identity, run_id)
);

CREATE INDEX IF NOT EXISTS idx_runs_started_at ON runs(started_at);
CREATE INDEX IF NOT EXISTS idx_items_run_id ON items(run_id);
CREATE INDEX IF NOT EXISTS idx_items_source ON items(source);
`

func (s *SQLiteStore) Migrate(ctx context.Context) error {
	_, err := s.db.ExecContext(ctx, sqliteMigration)
	return eris.Wrap(err, "sqlite: migrate")
}

func (s *SQLiteStore) Close() error {
	return s.db.Close()
}

// RecordRun writes the run summary and its item set in one transaction.
func (s *SQLiteStore) RecordRun(ctx context.Context, summary model.RunSummary, items []model.ContentItem) error {
	statsJSON, err := json.Marshal(summary)
	if err != nil {
		return eris.Wrap(err, "sqlite: marshal run summary")
	}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return eris.Wrap(err, "sqlite: begin")
	}
	defer tx.Rollback()

	_, err = tx.ExecContext(ctx,
		`INSERT INTO runs (id, started_at, finished_at, since, stats) VALUES (?, ?, ?, ?, ?)`,
		summary.RunID, summary.StartedAt, summary.FinishedAt, summary.Since, string(statsJSON),
	)
	if err != nil {
		return eris.Wrapf(err, "sqlite: insert run %s", summary.RunID)
	}

	for _, item := range items {
		payload, err := json.Marshal(item)
		if err != nil {
			return eris.Wrapf(err, "sqlite: marshal item %s", item.ID)
		}
		_, err = tx.ExecContext(ctx,
			`INSERT OR REPLACE INTO items (identity, run_id, source, title, url, score, is_new, payload)
			 VALUES (?, ?, ?, ?, ?, ?, ?, ?)`,
			item.ID, summary.RunID, item.Source, item.Title, item.URL, item.Score, boolToInt(item.IsNew), string(payload),
		)
		if err != nil {
			return eris.Wrapf(err, "sqlite: insert item %s", item.ID)
		}
	}

	return eris.Wrap(tx.Commit(), "sqlite: commit run")
}

// GetRun returns an archived run summary by id.
func (s *SQLiteStore) GetRun(ctx context.Context, runID string) (*model.RunSummary, error) {
	row := s.db.QueryRowContext(ctx, `SELECT stats FROM runs WHERE id = ?`, runID)

	var statsJSON string
	err := row.Scan(&statsJSON)
	if err == sql.ErrNoRows {
		return nil, eris.Errorf("run not found: %s", runID)
	}
	if err != nil {
		return nil, eris.Wrap(err, "sqlite: get run")
	}

	var summary model.RunSummary
	if err := json.Unmarshal([]byte(statsJSON), &summary); err != nil {
		return nil, eris.Wrap(err, "sqlite: unmarshal run summary")
	}
	return &summary, nil
}

// ListRuns returns the most recent runs, newest first.
func (s *SQLiteStore) ListRuns(ctx context.Context, limit int) ([]model.RunSummary, error) {
	if limit <= 0 {
		limit = 20
	}
	rows, err := s.db.QueryContext(ctx,
		`SELECT stats FROM runs ORDER BY started_at DESC LIMIT ?`, limit,
	)
	if err != nil {
		return nil, eris.Wrap(err, "sqlite: list runs")
	}
	defer rows.Close()

	var runs []model.RunSummary
	for rows.Next() {
		var statsJSON string
		if err := rows.Scan(&statsJSON); err != nil {
			return nil, eris.Wrap(err, "sqlite: scan run")
		}
		var summary model.RunSummary
		if err := json.Unmarshal([]byte(statsJSON), &summary); err != nil {
			return nil, eris.Wrap(err, "sqlite: unmarshal run summary")
		}
		runs = append(runs, summary)
	}
	return runs, eris.Wrap(rows.Err(), "sqlite: list runs iterate")
}

// ListRunItems returns the archived items of a run, highest score first.
func (s *SQLiteStore) ListRunItems(ctx context.Context, runID string) ([]model.ContentItem, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT payload FROM items WHERE run_id = ? ORDER BY score DESC`, runID,
	)
	if err != nil {
		return nil, eris.Wrapf(err, "sqlite: list items for run %s", runID)
	}
	defer rows.Close()

	var items []model.ContentItem
	for rows.Next() {
		var payload string
		if err := rows.Scan(&payload); err != nil {
			return nil, eris.Wrap(err, "sqlite: scan item")
		}
		var item model.ContentItem
		if err := json.Unmarshal([]byte(payload), &item); err != nil {
			return nil, eris.Wrap(err, "sqlite: unmarshal item")
		}
		items = append(items, item)
	}
	return items, eris.Wrap(rows.Err(), "sqlite: list items iterate")
}

func boolToInt(b bool) int {
	if b {
		return 1
	}
	return 0
}
