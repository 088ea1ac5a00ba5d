package model

import (
	"time"

	"github.com/rotisserie/eris"
)

// BillingPeriod is the recurrence cadence a displayed price applies to.
type BillingPeriod string

const (
	PeriodMonthly BillingPeriod = "monthly"
	PeriodAnnual  BillingPeriod = "annual"
	PeriodWeekly  BillingPeriod = "weekly"
	PeriodDaily   BillingPeriod = "daily"
	PeriodUnknown BillingPeriod = "unknown"
)

// PriceObservation is one deduplicated (period, displayed price) pair found
// in a single document. PriceShown keeps the unit suffix when the unit was
// attached to the amount in markup, and omits it when the period was resolved
// by proximity; the two formats encode different certainty levels and are
// deliberately never merged.
type PriceObservation struct {
	Period     BillingPeriod `json:"pricing_type"`
	PriceShown string        `json:"price_shown"`
}

// snapshotTimestampLayout is the 14-digit Wayback capture timestamp format.
const snapshotTimestampLayout = "20060102150405"

// Snapshot is one archived capture of a page. Immutable once listed.
type Snapshot struct {
	// Timestamp is the raw capture timestamp, format YYYYMMDDHHMMSS.
	Timestamp string `json:"timestamp"`
	// CapturedAt is Timestamp parsed as UTC.
	CapturedAt time.Time `json:"captured_at"`
}

// NewSnapshot parses a raw 14-digit capture timestamp.
func NewSnapshot(ts string) (Snapshot, error) {
	t, err := time.ParseInLocation(snapshotTimestampLayout, ts, time.UTC)
	if err != nil {
		return Snapshot{}, eris.Wrapf(err, "model: parse capture timestamp %q", ts)
	}
	return Snapshot{Timestamp: ts, CapturedAt: t}, nil
}
