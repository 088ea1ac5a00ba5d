package archive

import (
	"sort"
	"time"

	"github.com/sells-group/pricing-cli/internal/model"
)

// WeekStart returns the bucket anchor for t: the most recent occurrence of
// the anchor weekday at or before t's date, at midnight UTC.
func WeekStart(t time.Time, anchor time.Weekday) time.Time {
	t = t.UTC()
	d := time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, time.UTC)
	offset := (int(d.Weekday()) - int(anchor) + 7) % 7
	return d.AddDate(0, 0, -offset)
}

// GroupByWeek partitions snapshots into weekly buckets keyed by week start.
// Within each bucket, snapshots stay ordered by capture time ascending, so
// the earliest capture is tried first.
func GroupByWeek(snaps []model.Snapshot, anchor time.Weekday) map[time.Time][]model.Snapshot {
	byWeek := make(map[time.Time][]model.Snapshot)
	for _, s := range snaps {
		wk := WeekStart(s.CapturedAt, anchor)
		byWeek[wk] = append(byWeek[wk], s)
	}
	for wk := range byWeek {
		sortSnapshots(byWeek[wk])
	}
	return byWeek
}

// SortedWeeks returns bucket keys ascending.
func SortedWeeks(byWeek map[time.Time][]model.Snapshot) []time.Time {
	weeks := make([]time.Time, 0, len(byWeek))
	for wk := range byWeek {
		weeks = append(weeks, wk)
	}
	sort.Slice(weeks, func(i, j int) bool { return weeks[i].Before(weeks[j]) })
	return weeks
}

func sortSnapshots(snaps []model.Snapshot) {
	sort.Slice(snaps, func(i, j int) bool {
		return snaps[i].CapturedAt.Before(snaps[j].CapturedAt)
	})
}
