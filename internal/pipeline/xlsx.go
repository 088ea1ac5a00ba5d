package pipeline

import (
	"github.com/rotisserie/eris"
	"github.com/tealeg/xlsx/v2"

	"github.com/sells-group/pricing-cli/internal/model"
)

// ParseDomainsXLSX reads the publisher list from the first sheet of an xlsx
// workbook, with the same header contract as ParseDomainsCSV.
func ParseDomainsXLSX(path string, opts IngestOptions) ([]model.DomainRecord, error) {
	f, err := xlsx.OpenFile(path)
	if err != nil {
		return nil, eris.Wrap(err, "pipeline: open xlsx")
	}
	if len(f.Sheets) == 0 {
		return nil, eris.New("pipeline: xlsx has no sheets")
	}

	var records [][]string
	for _, row := range f.Sheets[0].Rows {
		cells := make([]string, len(row.Cells))
		for i, c := range row.Cells {
			cells[i] = c.String()
		}
		records = append(records, cells)
	}

	return parseDomainRows(records, opts)
}
