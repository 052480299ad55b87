package csvio

import (
	"encoding/csv"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"time"

	"github.com/jszwec/csvutil"
	"github.com/rotisserie/eris"
	"go.uber.org/zap"

	"github.com/sells-group/company-sift/internal/model"
)

// Row is one line of the results file. Error placeholders leave the URL,
// position, page and sub-score columns empty.
type Row struct {
	CompanyNumber       string `csv:"CompanyNumber"`
	CompanyName         string `csv:"CompanyName"`
	Postcode            string `csv:"Postcode"`
	SICCodes            string `csv:"SICCodes"`
	DiscoveredURL       string `csv:"DiscoveredURL"`
	ConfidenceScore     string `csv:"ConfidenceScore"`
	SearchPosition      string `csv:"SearchPosition"`
	PageTitle           string `csv:"PageTitle"`
	PageSnippet         string `csv:"PageSnippet"`
	DomainMatchScore    string `csv:"DomainMatchScore"`
	TLDRelevanceScore   string `csv:"TLDRelevanceScore"`
	SearchPositionScore string `csv:"SearchPositionScore"`
	TitleMatchScore     string `csv:"TitleMatchScore"`
	ErrorFlag           bool   `csv:"ErrorFlag"`
	ErrorMessage        string `csv:"ErrorMessage"`
	ProcessingTimestamp string `csv:"ProcessingTimestamp"`
}

// NewRow flattens a scored result into an output row stamped with ts.
func NewRow(r model.ScoredResult, ts time.Time) Row {
	row := Row{
		CompanyNumber:       r.Company.Number,
		CompanyName:         r.Company.Name,
		Postcode:            r.Company.Postcode,
		SICCodes:            r.Company.SICCodes,
		ConfidenceScore:     formatFloat(r.Score),
		ErrorFlag:           r.ErrorFlag,
		ErrorMessage:        r.ErrorMessage,
		ProcessingTimestamp: ts.Format(time.RFC3339),
	}
	if r.ErrorFlag || r.Result == nil {
		return row
	}

	row.DiscoveredURL = r.Result.URL
	row.SearchPosition = strconv.Itoa(r.Result.Position)
	row.PageTitle = r.Result.Title
	row.PageSnippet = r.Result.Snippet
	if b := r.Breakdown; b != nil {
		row.DomainMatchScore = formatFloat(b.DomainMatch)
		row.TLDRelevanceScore = formatFloat(b.TLDRelevance)
		row.SearchPositionScore = formatFloat(b.SearchPosition)
		row.TitleMatchScore = formatFloat(b.TitleMatch)
	}
	return row
}

func formatFloat(v float64) string {
	return strconv.FormatFloat(v, 'f', -1, 64)
}

// Writer appends scored results to an output CSV.
type Writer struct {
	path string
	now  func() time.Time
}

// NewWriter creates a writer for path, creating its parent directory.
func NewWriter(path string) (*Writer, error) {
	if dir := filepath.Dir(path); dir != "" {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return nil, eris.Wrapf(err, "csvio: create output dir %s", dir)
		}
	}
	return &Writer{path: path, now: time.Now}, nil
}

// Path returns the main output file path.
func (w *Writer) Path() string { return w.path }

// Write appends results to the output file. The header is written only
// when the file is new or empty.
func (w *Writer) Write(results []model.ScoredResult) error {
	if len(results) == 0 {
		zap.L().Warn("csvio: no results to write")
		return nil
	}

	header := true
	if info, err := os.Stat(w.path); err == nil && info.Size() > 0 {
		header = false
	}

	f, err := os.OpenFile(w.path, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0o644)
	if err != nil {
		return eris.Wrapf(err, "csvio: open %s", w.path)
	}
	if err := w.encode(f, results, header); err != nil {
		_ = f.Close()
		return err
	}
	if err := f.Close(); err != nil {
		return eris.Wrapf(err, "csvio: close %s", w.path)
	}

	zap.L().Debug("csvio: results written",
		zap.String("path", w.path),
		zap.Int("rows", len(results)),
		zap.Bool("appended", !header),
	)
	return nil
}

// WriteBatch writes results to a standalone batch_<n>_<timestamp>.csv next
// to the main output and returns its path.
func (w *Writer) WriteBatch(batch int, results []model.ScoredResult) (string, error) {
	if len(results) == 0 {
		zap.L().Warn("csvio: empty batch", zap.Int("batch", batch))
		return "", nil
	}

	name := fmt.Sprintf("batch_%d_%s.csv", batch, w.now().Format("20060102_150405"))
	path := filepath.Join(filepath.Dir(w.path), name)

	f, err := os.Create(path)
	if err != nil {
		return "", eris.Wrapf(err, "csvio: create %s", path)
	}
	if err := w.encode(f, results, true); err != nil {
		_ = f.Close()
		return "", err
	}
	if err := f.Close(); err != nil {
		return "", eris.Wrapf(err, "csvio: close %s", path)
	}
	return path, nil
}

func (w *Writer) encode(f *os.File, results []model.ScoredResult, header bool) error {
	cw := csv.NewWriter(f)
	enc := csvutil.NewEncoder(cw)
	enc.AutoHeader = header

	ts := w.now()
	for _, r := range results {
		if err := enc.Encode(NewRow(r, ts)); err != nil {
			return eris.Wrap(err, "csvio: encode row")
		}
	}
	cw.Flush()
	if err := cw.Error(); err != nil {
		return eris.Wrap(err, "csvio: flush")
	}
	return nil
}
