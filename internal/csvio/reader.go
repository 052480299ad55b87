// Package csvio reads company registers from CSV or XLSX and writes scored
// candidate URLs back out as CSV.
package csvio

import (
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/jszwec/csvutil"
	"github.com/rotisserie/eris"
	"github.com/tealeg/xlsx/v2"
	"go.uber.org/zap"

	"github.com/sells-group/company-sift/internal/model"
)

const utf8BOM = "\ufeff"

// ErrMissingColumns is returned when the header lacks a required column.
var ErrMissingColumns = eris.New("csvio: missing required columns")

// canonicalColumns maps lowercased header spellings to the csv tag used by
// model.Company.
var canonicalColumns = map[string]string{
	"companynumber":  "CompanyNumber",
	"company_number": "CompanyNumber",
	"companyname":    "CompanyName",
	"company_name":   "CompanyName",
	"postcode":       "Postcode",
	"siccodes":       "SICCodes",
	"sic_codes":      "SICCodes",
}

var requiredColumns = []string{"CompanyNumber", "CompanyName", "Postcode"}

// ReadStats counts what happened to each input data row.
type ReadStats struct {
	TotalRows int `json:"total_rows"`
	Valid     int `json:"valid"`
	Skipped   int `json:"skipped"`
}

// ReadCompanies loads every valid company from a .csv or .xlsx file. Rows
// missing a company number, name or postcode are skipped and counted.
func ReadCompanies(path string) ([]model.Company, ReadStats, error) {
	var (
		rows recordReader
		err  error
	)
	switch strings.ToLower(filepath.Ext(path)) {
	case ".xlsx":
		rows, err = openXLSX(path)
	default:
		var f *os.File
		f, err = os.Open(path)
		if err != nil {
			return nil, ReadStats{}, eris.Wrapf(err, "csvio: open %s", path)
		}
		defer f.Close() //nolint:errcheck
		r := csv.NewReader(f)
		r.FieldsPerRecord = -1
		r.LazyQuotes = true
		rows = r
	}
	if err != nil {
		return nil, ReadStats{}, err
	}
	return decodeCompanies(rows)
}

// recordReader is the subset of csv.Reader shared with the XLSX adapter.
type recordReader interface {
	Read() ([]string, error)
}

func decodeCompanies(rows recordReader) ([]model.Company, ReadStats, error) {
	var stats ReadStats

	raw, err := rows.Read()
	if errors.Is(err, io.EOF) {
		zap.L().Warn("csvio: input is empty")
		return []model.Company{}, stats, nil
	}
	if err != nil {
		return nil, stats, eris.Wrap(err, "csvio: read header")
	}

	header, original := canonicalHeader(raw)
	if missing := missingColumns(header); len(missing) > 0 {
		return nil, stats, eris.Wrapf(ErrMissingColumns, "csvio: missing %s", strings.Join(missing, ", "))
	}

	dec, err := csvutil.NewDecoder(&paddedReader{r: rows, width: len(header)}, header...)
	if err != nil {
		return nil, stats, eris.Wrap(err, "csvio: create decoder")
	}

	companies := make([]model.Company, 0, 64)
	for line := 2; ; line++ {
		var c model.Company
		err := dec.Decode(&c)
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			return nil, stats, eris.Wrapf(err, "csvio: decode row %d", line)
		}
		stats.TotalRows++

		c.Number = strings.TrimSpace(c.Number)
		c.Name = strings.TrimSpace(c.Name)
		c.Postcode = strings.TrimSpace(c.Postcode)
		c.SICCodes = strings.TrimSpace(c.SICCodes)
		if !c.Valid() {
			stats.Skipped++
			zap.L().Warn("csvio: skipping row with missing required fields",
				zap.Int("row", line),
				zap.String("company_number", c.Number),
			)
			continue
		}

		if unused := dec.Unused(); len(unused) > 0 {
			record := dec.Record()
			c.Extra = make(map[string]string, len(unused))
			for _, i := range unused {
				c.Extra[original[i]] = strings.TrimSpace(record[i])
			}
		}

		companies = append(companies, c)
		stats.Valid++
	}

	zap.L().Info("csvio: companies loaded",
		zap.Int("rows", stats.TotalRows),
		zap.Int("valid", stats.Valid),
		zap.Int("skipped", stats.Skipped),
	)
	return companies, stats, nil
}

// canonicalHeader rewrites recognized column names to their canonical form.
// Unrecognized or repeated columns keep a unique placeholder so the decoder
// reports them as unused; original holds the names as written.
func canonicalHeader(raw []string) (header, original []string) {
	header = make([]string, len(raw))
	original = make([]string, len(raw))
	seen := make(map[string]bool, len(raw))
	for i, name := range raw {
		if i == 0 {
			name = strings.TrimPrefix(name, utf8BOM)
		}
		name = strings.TrimSpace(name)
		original[i] = name

		canon, ok := canonicalColumns[strings.ToLower(name)]
		if ok && !seen[canon] {
			seen[canon] = true
			header[i] = canon
			continue
		}
		header[i] = fmt.Sprintf("\x00extra_%d", i)
	}
	return header, original
}

func missingColumns(header []string) []string {
	present := make(map[string]bool, len(header))
	for _, h := range header {
		present[h] = true
	}
	var missing []string
	for _, req := range requiredColumns {
		if !present[req] {
			missing = append(missing, req)
		}
	}
	return missing
}

// paddedReader normalizes every record to the header width.
type paddedReader struct {
	r     recordReader
	width int
}

func (p *paddedReader) Read() ([]string, error) {
	rec, err := p.r.Read()
	if err != nil {
		return nil, err
	}
	switch {
	case len(rec) < p.width:
		rec = append(rec, make([]string, p.width-len(rec))...)
	case len(rec) > p.width:
		rec = rec[:p.width]
	}
	return rec, nil
}

// xlsxRows serves the rows of the first worksheet.
type xlsxRows struct {
	rows [][]string
	next int
}

func openXLSX(path string) (*xlsxRows, error) {
	f, err := xlsx.OpenFile(path)
	if err != nil {
		return nil, eris.Wrapf(err, "csvio: open xlsx %s", path)
	}
	if len(f.Sheets) == 0 {
		return nil, eris.Errorf("csvio: %s has no sheets", path)
	}

	sheet := f.Sheets[0]
	rows := make([][]string, 0, len(sheet.Rows))
	for _, row := range sheet.Rows {
		if row == nil {
			rows = append(rows, nil)
			continue
		}
		cells := make([]string, len(row.Cells))
		for j, cell := range row.Cells {
			cells[j] = cell.String()
		}
		rows = append(rows, cells)
	}
	return &xlsxRows{rows: rows}, nil
}

func (x *xlsxRows) Read() ([]string, error) {
	if x.next >= len(x.rows) {
		return nil, io.EOF
	}
	row := x.rows[x.next]
	x.next++
	return row, nil
}
