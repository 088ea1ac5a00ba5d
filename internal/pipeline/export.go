package pipeline

import (
	"encoding/csv"
	"os"
	"sort"
	"strings"

	"github.com/rotisserie/eris"

	"github.com/sells-group/pricing-cli/internal/model"
)

// SortTimeline collates worker output: ascending by (domain, week, price).
// Workers finish in arbitrary order; the file contract is deterministic.
func SortTimeline(rows []model.TimelineRow) {
	sort.SliceStable(rows, func(i, j int) bool {
		if rows[i].Domain != rows[j].Domain {
			return rows[i].Domain < rows[j].Domain
		}
		if !rows[i].WeekStart.Equal(rows[j].WeekStart) {
			return rows[i].WeekStart.Before(rows[j].WeekStart)
		}
		return rows[i].PriceShown < rows[j].PriceShown
	})
}

// WriteTimelineCSV writes rows in the fixed TimelineColumns order.
func WriteTimelineCSV(rows []model.TimelineRow, path string) error {
	f, err := os.Create(path)
	if err != nil {
		return eris.Wrap(err, "pipeline: create timeline csv")
	}
	defer f.Close()

	w := csv.NewWriter(f)
	if err := w.Write(model.TimelineColumns); err != nil {
		return eris.Wrap(err, "pipeline: write header")
	}
	for _, row := range rows {
		if err := w.Write(row.CSVRecord()); err != nil {
			return eris.Wrap(err, "pipeline: write row")
		}
	}
	w.Flush()
	if err := w.Error(); err != nil {
		return eris.Wrap(err, "pipeline: flush timeline csv")
	}
	return nil
}

// WriteStatusCSV writes subscription classification results.
func WriteStatusCSV(statuses []model.SubscriptionStatus, path string) error {
	f, err := os.Create(path)
	if err != nil {
		return eris.Wrap(err, "pipeline: create status csv")
	}
	defer f.Close()

	w := csv.NewWriter(f)
	if err := w.Write([]string{"domain", "subscription_status", "evidence_url"}); err != nil {
		return eris.Wrap(err, "pipeline: write header")
	}
	for _, s := range statuses {
		if err := w.Write([]string{s.Domain, s.Status, s.EvidenceURL}); err != nil {
			return eris.Wrap(err, "pipeline: write row")
		}
	}
	w.Flush()
	if err := w.Error(); err != nil {
		return eris.Wrap(err, "pipeline: flush status csv")
	}
	return nil
}

// WriteReportCSV writes pricing-page discovery reports.
func WriteReportCSV(reports []model.PricingPageReport, path string) error {
	f, err := os.Create(path)
	if err != nil {
		return eris.Wrap(err, "pipeline: create report csv")
	}
	defer f.Close()

	w := csv.NewWriter(f)
	header := []string{
		"domain", "pricing_url", "pricing_url_method", "pricing_page_ok",
		"dynamic_components", "popup_overlay", "detected_prices",
		"wayback_available", "wayback_url", "notes",
	}
	if err := w.Write(header); err != nil {
		return eris.Wrap(err, "pipeline: write header")
	}
	for _, r := range reports {
		record := []string{
			r.Domain,
			r.PricingURL,
			r.Method,
			yesNo(r.PageOK),
			yesNo(r.Dynamic),
			yesNo(r.Popup),
			joinDetected(r.DetectedPrices),
			yesNo(r.WaybackAvailable),
			r.WaybackURL,
			r.Notes,
		}
		if err := w.Write(record); err != nil {
			return eris.Wrap(err, "pipeline: write row")
		}
	}
	w.Flush()
	if err := w.Error(); err != nil {
		return eris.Wrap(err, "pipeline: flush report csv")
	}
	return nil
}

func yesNo(b bool) string {
	if b {
		return "yes"
	}
	return "no"
}

func joinDetected(prices []string) string {
	return strings.Join(prices, "; ")
}
