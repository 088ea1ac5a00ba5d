package archive

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/sells-group/pricing-cli/internal/model"
)

func TestWeekStart(t *testing.T) {
	day := func(s string) time.Time {
		d, err := time.Parse("2006-01-02", s)
		require.NoError(t, err)
		return d
	}

	tests := []struct {
		name   string
		in     string
		anchor time.Weekday
		want   string
	}{
		{"wednesday rolls back to sunday", "2023-06-14", time.Sunday, "2023-06-11"},
		{"sunday is its own anchor", "2023-06-11", time.Sunday, "2023-06-11"},
		{"saturday rolls back six days", "2023-06-17", time.Sunday, "2023-06-11"},
		{"monday anchor", "2023-06-14", time.Monday, "2023-06-12"},
		{"monday anchor on monday", "2023-06-12", time.Monday, "2023-06-12"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := WeekStart(day(tt.in), tt.anchor)
			assert.Equal(t, day(tt.want), got)
			assert.Equal(t, tt.anchor, got.Weekday())
		})
	}
}

func TestWeekStart_TruncatesTime(t *testing.T) {
	ts, err := time.Parse("20060102150405", "20230614183045")
	require.NoError(t, err)

	got := WeekStart(ts, time.Sunday)
	assert.Equal(t, 0, got.Hour())
	assert.Equal(t, 0, got.Minute())
	assert.Equal(t, time.Sunday, got.Weekday())
}

func TestGroupByWeek(t *testing.T) {
	mk := func(ts string) model.Snapshot {
		s, err := model.NewSnapshot(ts)
		require.NoError(t, err)
		return s
	}

	snaps := []model.Snapshot{
		mk("20230614120000"), // wed, week of jun 11
		mk("20230612080000"), // mon, week of jun 11
		mk("20230620090000"), // tue, week of jun 18
	}

	byWeek := GroupByWeek(snaps, time.Sunday)
	require.Len(t, byWeek, 2)

	weeks := SortedWeeks(byWeek)
	require.Len(t, weeks, 2)
	assert.True(t, weeks[0].Before(weeks[1]))

	first := byWeek[weeks[0]]
	require.Len(t, first, 2)
	// Earliest capture first within the bucket.
	assert.Equal(t, "20230612080000", first[0].Timestamp)
	assert.Equal(t, "20230614120000", first[1].Timestamp)

	require.Len(t, byWeek[weeks[1]], 1)
}
