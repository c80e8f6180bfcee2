package store

import (
	"context"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/topicworks/digest-cli/internal/model"
)

func newTestStore(t *testing.T) *SQLiteStore {
	t.Helper()
	st, err := NewSQLite(filepath.Join(t.TempDir(), "digest.db"))
	require.NoError(t, err)
	t.Cleanup(func() { st.Close() }) //nolint:errcheck
	require.NoError(t, st.Migrate(context.Background()))
	return st
}

func sampleRun(id string, started time.Time) (model.RunSummary, []model.ContentItem) {
	summary := model.RunSummary{
		RunID:      id,
		StartedAt:  started,
		FinishedAt: started.Add(time.Minute),
		Since:      started.AddDate(0, 0, -1),
		Totals:     model.RunTotals{RawCount: 5, FilteredCount: 3, DedupedCount: 2, NewCount: 2},
	}
	items := []model.ContentItem{
		{ID: "item-a", Source: "Blog", Title: "First", URL: "https://example.com/a", Score: 80, IsNew: true},
		{ID: "item-b", Source: "Blog", Title: "Second", URL: "https://example.com/b", Score: 40, IsNew: false},
	}
	return summary, items
}

func TestSQLite_RecordAndGetRun(t *testing.T) {
	st := newTestStore(t)
	ctx := context.Background()

	summary, items := sampleRun("run-1", time.Date(2026, 8, 26, 6, 0, 0, 0, time.UTC))
	require.NoError(t, st.RecordRun(ctx, summary, items))

	got, err := st.GetRun(ctx, "run-1")
	require.NoError(t, err)
	assert.Equal(t, "run-1", got.RunID)
	assert.Equal(t, 5, got.Totals.RawCount)
}

func TestSQLite_GetRun_Missing(t *testing.T) {
	st := newTestStore(t)

	_, err := st.GetRun(context.Background(), "nope")
	assert.Error(t, err)
}

func TestSQLite_ListRuns_NewestFirst(t *testing.T) {
	st := newTestStore(t)
	ctx := context.Background()

	older, items := sampleRun("run-old", time.Date(2026, 8, 24, 6, 0, 0, 0, time.UTC))
	newer, _ := sampleRun("run-new", time.Date(2026, 8, 26, 6, 0, 0, 0, time.UTC))
	require.NoError(t, st.RecordRun(ctx, older, items))
	require.NoError(t, st.RecordRun(ctx, newer, nil))

	runs, err := st.ListRuns(ctx, 10)
	require.NoError(t, err)
	require.Len(t, runs, 2)
	assert.Equal(t, "run-new", runs[0].RunID)
	assert.Equal(t, "run-old", runs[1].RunID)

	limited, err := st.ListRuns(ctx, 1)
	require.NoError(t, err)
	require.Len(t, limited, 1)
	assert.Equal(t, "run-new", limited[0].RunID)
}

func TestSQLite_ListRunItems(t *testing.T) {
	st := newTestStore(t)
	ctx := context.Background()

	summary, items := sampleRun("run-1", time.Date(2026, 8, 26, 6, 0, 0, 0, time.UTC))
	require.NoError(t, st.RecordRun(ctx, summary, items))

	got, err := st.ListRunItems(ctx, "run-1")
	require.NoError(t, err)
	require.Len(t, got, 2)
	assert.Equal(t, "First", got[0].Title, "highest score first")
	assert.Equal(t, "Second", got[1].Title)
	assert.True(t, got[0].IsNew)
}

func TestSQLite_ListRunItems_Empty(t *testing.T) {
	st := newTestStore(t)

	got, err := st.ListRunItems(context.Background(), "absent")
	require.NoError(t, err)
	assert.Empty(t, got)
}
