package csvio

import (
	"encoding/csv"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/sells-group/company-sift/internal/model"
)

var fixedTime = time.Date(2024, 3, 5, 14, 30, 0, 0, time.UTC)

func sampleResults(t *testing.T) []model.ScoredResult {
	t.Helper()
	acme := model.Company{Number: "01234567", Name: "ACME SOFTWARE LIMITED", Postcode: "SW1A 1AA", SICCodes: "62012"}
	sr, err := model.NewSearchResult("https://acmesoftware.co.uk", "Acme Software, home", "We build software", 1)
	require.NoError(t, err)
	scored, err := model.NewScoredResult(acme, sr, 93, model.Breakdown{DomainMatch: 0.95, TLDRelevance: 1, SearchPosition: 1, TitleMatch: 0.5})
	require.NoError(t, err)

	failed := model.NewErrorResult(model.Company{Number: "07654321", Name: "WIDGET WORKS LTD", Postcode: "M1 1AE"}, "search failed: rate limited")
	return []model.ScoredResult{scored, failed}
}

func newTestWriter(t *testing.T, path string) *Writer {
	t.Helper()
	w, err := NewWriter(path)
	require.NoError(t, err)
	w.now = func() time.Time { return fixedTime }
	return w
}

func readAll(t *testing.T, path string) [][]string {
	t.Helper()
	f, err := os.Open(path)
	require.NoError(t, err)
	defer f.Close() //nolint:errcheck
	records, err := csv.NewReader(f).ReadAll()
	require.NoError(t, err)
	return records
}

func TestWriter_Write(t *testing.T) {
	t.Parallel()

	path := filepath.Join(t.TempDir(), "out", "results.csv")
	w := newTestWriter(t, path)
	require.NoError(t, w.Write(sampleResults(t)))

	records := readAll(t, path)
	require.Len(t, records, 3)
	assert.Equal(t, []string{
		"CompanyNumber", "CompanyName", "Postcode", "SICCodes", "DiscoveredURL",
		"ConfidenceScore", "SearchPosition", "PageTitle", "PageSnippet",
		"DomainMatchScore", "TLDRelevanceScore", "SearchPositionScore", "TitleMatchScore",
		"ErrorFlag", "ErrorMessage", "ProcessingTimestamp",
	}, records[0])

	assert.Equal(t, []string{
		"01234567", "ACME SOFTWARE LIMITED", "SW1A 1AA", "62012", "https://acmesoftware.co.uk",
		"93", "1", "Acme Software, home", "We build software",
		"0.95", "1", "1", "0.5",
		"false", "", "2024-03-05T14:30:00Z",
	}, records[1])

	errRow := records[2]
	assert.Equal(t, "07654321", errRow[0])
	assert.Empty(t, errRow[4], "error rows carry no URL")
	assert.Equal(t, "0", errRow[5])
	for i := 6; i <= 12; i++ {
		assert.Empty(t, errRow[i], "column %s", records[0][i])
	}
	assert.Equal(t, "true", errRow[13])
	assert.Equal(t, "search failed: rate limited", errRow[14])
}

func TestWriter_AppendsWithoutHeader(t *testing.T) {
	t.Parallel()

	path := filepath.Join(t.TempDir(), "results.csv")
	w := newTestWriter(t, path)
	results := sampleResults(t)

	require.NoError(t, w.Write(results[:1]))
	require.NoError(t, w.Write(results[1:]))

	records := readAll(t, path)
	require.Len(t, records, 3)
	assert.Equal(t, "CompanyNumber", records[0][0])
	assert.Equal(t, "01234567", records[1][0])
	assert.Equal(t, "07654321", records[2][0])
}

func TestWriter_WriteEmpty(t *testing.T) {
	t.Parallel()

	path := filepath.Join(t.TempDir(), "results.csv")
	w := newTestWriter(t, path)
	require.NoError(t, w.Write(nil))

	_, err := os.Stat(path)
	assert.True(t, os.IsNotExist(err))
}

func TestWriter_WriteBatch(t *testing.T) {
	t.Parallel()

	dir := t.TempDir()
	w := newTestWriter(t, filepath.Join(dir, "results.csv"))

	path, err := w.WriteBatch(3, sampleResults(t))
	require.NoError(t, err)
	assert.Equal(t, filepath.Join(dir, "batch_3_20240305_143000.csv"), path)

	records := readAll(t, path)
	require.Len(t, records, 3)
	assert.Equal(t, "CompanyNumber", records[0][0])

	path, err = w.WriteBatch(4, nil)
	require.NoError(t, err)
	assert.Empty(t, path)
}

func TestNewRow_MissingBreakdown(t *testing.T) {
	t.Parallel()

	sr := model.SearchResult{URL: "https://acme.com", Position: 2}
	row := NewRow(model.ScoredResult{Company: model.Company{Number: "1"}, Result: &sr, Score: 55.5}, fixedTime)

	assert.Equal(t, "https://acme.com", row.DiscoveredURL)
	assert.Equal(t, "2", row.SearchPosition)
	assert.Equal(t, "55.5", row.ConfidenceScore)
	assert.Empty(t, strings.Join([]string{row.DomainMatchScore, row.TitleMatchScore}, ""))
}
