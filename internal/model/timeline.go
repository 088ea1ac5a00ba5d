package model

import "time"

// Reason codes for sentinel timeline rows. ReasonCode is empty exactly when a
// real price observation is present.
const (
	ReasonNoSnapshots   = "no_snapshots_in_range"
	ReasonWeekAllFailed = "week_all_failed" // always suffixed ":<detail>"
	ReasonNoPrices      = "no_prices_visible_static"
)

// TimelineColumns is the persisted CSV column order. Consumers depend on it;
// do not reorder.
var TimelineColumns = []string{
	"domain",
	"pricing_page_url",
	"week_start",
	"snapshot_date",
	"snapshot_timestamp",
	"pricing_type",
	"price_shown",
	"reason_code",
	"archive_url",
}

// TimelineRow is one (week, observation) entry in a domain's pricing history,
// or a sentinel explaining why no observation was possible that week. Every
// week in the configured range is represented; rows are never dropped.
type TimelineRow struct {
	Domain            string        `json:"domain"`
	PricingURL        string        `json:"pricing_page_url"`
	WeekStart         time.Time     `json:"week_start"`
	SnapshotDate      time.Time     `json:"snapshot_date"`
	SnapshotTimestamp string        `json:"snapshot_timestamp"`
	Period            BillingPeriod `json:"pricing_type"`
	PriceShown        string        `json:"price_shown"`
	ReasonCode        string        `json:"reason_code"`
	ArchiveURL        string        `json:"archive_url"`
}

// IsSentinel reports whether the row records a non-observation.
func (r TimelineRow) IsSentinel() bool {
	return r.ReasonCode != ""
}

// CSVRecord renders the row in TimelineColumns order. Zero dates render
// empty; the snapshot timestamp carries a trailing "Z" to mark UTC.
func (r TimelineRow) CSVRecord() []string {
	ts := r.SnapshotTimestamp
	if ts != "" {
		ts += "Z"
	}
	return []string{
		r.Domain,
		r.PricingURL,
		formatDate(r.WeekStart),
		formatDate(r.SnapshotDate),
		ts,
		string(r.Period),
		r.PriceShown,
		r.ReasonCode,
		r.ArchiveURL,
	}
}

func formatDate(t time.Time) string {
	if t.IsZero() {
		return ""
	}
	return t.Format("2006-01-02")
}
