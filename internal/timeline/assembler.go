// Package timeline reconstructs a weekly series of advertised prices for one
// domain by driving the snapshot selector and the price extractor across the
// configured date range.
package timeline

import (
	"context"
	"time"

	"go.uber.org/zap"

	"github.com/sells-group/pricing-cli/internal/archive"
	"github.com/sells-group/pricing-cli/internal/model"
	"github.com/sells-group/pricing-cli/internal/pricing"
)

// Assembler builds the timeline for one domain. Weeks are processed
// sequentially: archive fetch load must stay bounded, so there is no fan-out
// below the domain level.
type Assembler struct {
	archive    *archive.Client
	extractor  *pricing.Extractor
	from, to   time.Time
	weekAnchor time.Weekday
}

// NewAssembler wires an assembler over an archive client and extraction
// rules for the given global date range.
func NewAssembler(client *archive.Client, rules pricing.Rules, from, to time.Time, weekAnchor time.Weekday) *Assembler {
	return &Assembler{
		archive:    client,
		extractor:  pricing.NewExtractor(rules),
		from:       from,
		to:         to,
		weekAnchor: weekAnchor,
	}
}

// BuildTimeline returns one row per (week, observation) for every week that
// has captures in range, plus sentinel rows for weeks where no observation
// was possible. Failures are captured as reason codes, never returned as
// errors; an empty pricing URL yields no rows.
func (a *Assembler) BuildTimeline(ctx context.Context, domain, pricingURL string) []model.TimelineRow {
	d := model.NormalizeDomain(domain)
	if pricingURL == "" {
		return nil
	}

	snaps := a.archive.ListSnapshots(ctx, pricingURL, a.from, a.to)
	if len(snaps) == 0 {
		return []model.TimelineRow{{
			Domain:     d,
			PricingURL: pricingURL,
			ReasonCode: model.ReasonNoSnapshots,
		}}
	}

	byWeek := archive.GroupByWeek(snaps, a.weekAnchor)
	var rows []model.TimelineRow

	for _, wk := range archive.SortedWeeks(byWeek) {
		rows = append(rows, a.buildWeek(ctx, d, pricingURL, wk, byWeek[wk])...)
	}
	return rows
}

// buildWeek tries the bucket's snapshots in capture order; the first one
// that loads is chosen and the rest are skipped. At most one snapshot is
// consumed per week.
func (a *Assembler) buildWeek(ctx context.Context, domain, pricingURL string, week time.Time, snaps []model.Snapshot) []model.TimelineRow {
	var chosen *model.Snapshot
	var html, lastReason string

	for i := range snaps {
		doc, reason, ok := a.archive.FetchSnapshot(ctx, snaps[i].Timestamp, pricingURL)
		if ok {
			chosen = &snaps[i]
			html = doc
			break
		}
		lastReason = reason
	}

	if chosen == nil {
		if lastReason == "" {
			lastReason = "unknown"
		}
		return []model.TimelineRow{{
			Domain:     domain,
			PricingURL: pricingURL,
			WeekStart:  week,
			ReasonCode: model.ReasonWeekAllFailed + ":" + lastReason,
		}}
	}

	archiveURL := a.archive.SnapshotURL(chosen.Timestamp, pricingURL)
	observations := mustExtract(a.extractor, html, domain)

	if len(observations) == 0 {
		return []model.TimelineRow{{
			Domain:            domain,
			PricingURL:        pricingURL,
			WeekStart:         week,
			SnapshotDate:      chosen.CapturedAt,
			SnapshotTimestamp: chosen.Timestamp,
			ReasonCode:        model.ReasonNoPrices,
			ArchiveURL:        archiveURL,
		}}
	}

	rows := make([]model.TimelineRow, 0, len(observations))
	for _, obs := range observations {
		rows = append(rows, model.TimelineRow{
			Domain:            domain,
			PricingURL:        pricingURL,
			WeekStart:         week,
			SnapshotDate:      chosen.CapturedAt,
			SnapshotTimestamp: chosen.Timestamp,
			Period:            obs.Period,
			PriceShown:        obs.PriceShown,
			ArchiveURL:        archiveURL,
		})
	}
	return rows
}

// mustExtract treats unparseable archived HTML as a page with no prices:
// extraction finding nothing is data, not an error.
func mustExtract(ex *pricing.Extractor, html, domain string) []model.PriceObservation {
	obs, err := ex.ExtractHTML(html)
	if err != nil {
		zap.L().Debug("timeline: snapshot html unparseable", zap.String("domain", domain), zap.Error(err))
		return nil
	}
	return obs
}
