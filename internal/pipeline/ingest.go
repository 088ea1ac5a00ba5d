// Package pipeline handles domain-list ingestion, result collation and CSV
// export.
package pipeline

import (
	"encoding/csv"
	"os"
	"strings"

	"github.com/rotisserie/eris"

	"github.com/sells-group/pricing-cli/internal/model"
)

// IngestOptions controls which input columns are mandatory. A missing
// required column is the run's only fatal condition and aborts before any
// network activity.
type IngestOptions struct {
	RequirePricingURL bool
}

// ParseDomainsCSV reads the publisher list from a CSV with a header row.
// The "domain" column is always required; "pricing_url" additionally when
// opts say so. Rows are deduplicated by normalized domain.
func ParseDomainsCSV(path string, opts IngestOptions) ([]model.DomainRecord, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, eris.Wrap(err, "pipeline: open csv")
	}
	defer f.Close()

	reader := csv.NewReader(f)
	reader.LazyQuotes = true
	records, err := reader.ReadAll()
	if err != nil {
		return nil, eris.Wrap(err, "pipeline: read csv")
	}

	return parseDomainRows(records, opts)
}

func parseDomainRows(records [][]string, opts IngestOptions) ([]model.DomainRecord, error) {
	if len(records) < 2 {
		return nil, eris.New("pipeline: input has no data rows")
	}

	colIdx := make(map[string]int, len(records[0]))
	for i, col := range records[0] {
		colIdx[strings.ToLower(strings.TrimSpace(col))] = i
	}

	required := []string{"domain"}
	if opts.RequirePricingURL {
		required = append(required, "pricing_url")
	}
	for _, col := range required {
		if _, ok := colIdx[col]; !ok {
			return nil, eris.Errorf("pipeline: missing required column %q", col)
		}
	}

	seen := make(map[string]bool)
	var out []model.DomainRecord
	for _, row := range records[1:] {
		domain := model.NormalizeDomain(getCol(row, colIdx, "domain"))
		if domain == "" || seen[domain] {
			continue
		}
		seen[domain] = true
		out = append(out, model.DomainRecord{
			Domain:     domain,
			PricingURL: getCol(row, colIdx, "pricing_url"),
		})
	}

	if len(out) == 0 {
		return nil, eris.New("pipeline: no valid domains in input")
	}
	return out, nil
}

func getCol(row []string, colIdx map[string]int, col string) string {
	idx, ok := colIdx[col]
	if !ok || idx >= len(row) {
		return ""
	}
	return strings.TrimSpace(row[idx])
}
