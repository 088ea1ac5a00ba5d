package pipeline

import (
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/tealeg/xlsx/v2"
)

func writeTempXLSX(t *testing.T, rows [][]string) string {
	t.Helper()
	f := xlsx.NewFile()
	sheet, err := f.AddSheet("Domains")
	require.NoError(t, err)
	for _, row := range rows {
		r := sheet.AddRow()
		for _, cell := range row {
			r.AddCell().SetString(cell)
		}
	}
	path := filepath.Join(t.TempDir(), "domains.xlsx")
	require.NoError(t, f.Save(path))
	return path
}

func TestParseDomainsXLSX(t *testing.T) {
	path := writeTempXLSX(t, [][]string{
		{"domain", "pricing_url"},
		{"Example.com", "https://example.com/subscribe"},
		{"example.com", "dup"},
		{"news.org", ""},
	})

	recs, err := ParseDomainsXLSX(path, IngestOptions{RequirePricingURL: true})
	require.NoError(t, err)
	require.Len(t, recs, 2)
	assert.Equal(t, "example.com", recs[0].Domain)
	assert.Equal(t, "https://example.com/subscribe", recs[0].PricingURL)
	assert.Equal(t, "news.org", recs[1].Domain)
}

func TestParseDomainsXLSX_MissingColumn(t *testing.T) {
	path := writeTempXLSX(t, [][]string{
		{"domain"},
		{"example.com"},
	})

	_, err := ParseDomainsXLSX(path, IngestOptions{RequirePricingURL: true})
	require.Error(t, err)
	assert.Contains(t, err.Error(), `"pricing_url"`)
}

func TestParseDomainsXLSX_OpenError(t *testing.T) {
	_, err := ParseDomainsXLSX(filepath.Join(t.TempDir(), "missing.xlsx"), IngestOptions{})
	assert.Error(t, err)
}
