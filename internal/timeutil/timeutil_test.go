package timeutil

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParse_Formats(t *testing.T) {
	tests := []struct {
		name  string
		input string
		want  time.Time
	}{
		{"rfc3339", "2026-03-01T12:30:00Z", time.Date(2026, 3, 1, 12, 30, 0, 0, time.UTC)},
		{"rfc1123z", "Sun, 01 Mar 2026 12:30:00 +0000", time.Date(2026, 3, 1, 12, 30, 0, 0, time.UTC)},
		{"date only", "2026-03-01", time.Date(2026, 3, 1, 0, 0, 0, 0, time.UTC)},
		{"month name slug", "january-9-2026", time.Date(2026, 1, 9, 0, 0, 0, 0, time.UTC)},
		{"abbreviated month slug", "Sep-5-2025-extra", time.Date(2025, 9, 5, 0, 0, 0, 0, time.UTC)},
		{"human date", "Mar 1, 2026", time.Date(2026, 3, 1, 0, 0, 0, 0, time.UTC)},
		{"unix seconds", "1767225600", time.Unix(1767225600, 0).UTC()},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, ok := Parse(tt.input)
			require.True(t, ok)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestParse_Rejects(t *testing.T) {
	for _, input := range []string{"", "   ", "not a date", "noon yesterday"} {
		_, ok := Parse(input)
		assert.False(t, ok, "input %q", input)
	}
}

func TestMonthByName(t *testing.T) {
	m, ok := MonthByName("December")
	require.True(t, ok)
	assert.Equal(t, time.December, m)

	m, ok = MonthByName("sept")
	require.True(t, ok)
	assert.Equal(t, time.September, m)

	_, ok = MonthByName("smarch")
	assert.False(t, ok)
}

func TestWithinWindow(t *testing.T) {
	since := time.Date(2026, 8, 25, 0, 0, 0, 0, time.UTC)

	inside := since.Add(time.Hour)
	outside := since.Add(-time.Hour)
	exact := since

	assert.True(t, WithinWindow(&inside, since))
	assert.False(t, WithinWindow(&outside, since))
	assert.True(t, WithinWindow(&exact, since))
	assert.True(t, WithinWindow(nil, since))
}

func TestISO(t *testing.T) {
	loc := time.FixedZone("UTC+2", 2*3600)
	ts := time.Date(2026, 8, 26, 14, 0, 0, 0, loc)
	assert.Equal(t, "2026-08-26T12:00:00Z", ISO(ts))
}
