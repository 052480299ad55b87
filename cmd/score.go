package main

import (
	"io"
	"os"

	"github.com/rotisserie/eris"
	"github.com/spf13/cobra"

	"github.com/sells-group/company-sift/internal/config"
	"github.com/sells-group/company-sift/internal/model"
	"github.com/sells-group/company-sift/internal/scorer"
)

var scoreCmd = &cobra.Command{
	Use:   "score",
	Short: "Score one URL against a company without searching",
	Long: `Prints the confidence and URL-quality breakdowns for a single candidate.
Useful for tuning weights and thresholds.

Example:
  company-sift score --name "ACME SOFTWARE LIMITED" --postcode "SW1A 1AA" \
    --url https://www.acmesoftware.co.uk --title "Acme Software Ltd" --position 1`,
	RunE: func(cmd *cobra.Command, _ []string) error {
		f := cmd.Flags()
		name, _ := f.GetString("name")
		postcode, _ := f.GetString("postcode")
		url, _ := f.GetString("url")
		title, _ := f.GetString("title")
		position, _ := f.GetInt("position")

		if err := cfg.Validate("offline"); err != nil {
			return err
		}
		company := model.Company{Name: name, Postcode: postcode}
		return printScore(os.Stdout, cfg, company, url, title, position)
	},
}

func init() {
	f := scoreCmd.Flags()
	f.String("name", "", "company name (required)")
	f.String("postcode", "", "registered office postcode")
	f.String("url", "", "candidate URL (required)")
	f.String("title", "", "search result title")
	f.Int("position", 1, "search result position (1-based)")
	_ = scoreCmd.MarkFlagRequired("name")
	_ = scoreCmd.MarkFlagRequired("url")

	rootCmd.AddCommand(scoreCmd)
}

// scoreReport is what the score command prints.
type scoreReport struct {
	Company       model.Company           `json:"company"`
	Result        model.SearchResult      `json:"result"`
	Confidence    scorer.Result           `json:"confidence"`
	MeetsMinimum  bool                    `json:"meets_min_confidence"`
	Weights       scorer.Weights          `json:"weights"`
	URLQuality    scorer.QualityBreakdown `json:"url_quality"`
	UKPostcode    bool                    `json:"uk_postcode"`
	MinConfidence float64                 `json:"min_confidence"`
}

func printScore(out io.Writer, c *config.Config, company model.Company, url, title string, position int) error {
	r, err := model.NewSearchResult(url, title, "", position)
	if err != nil {
		return eris.Wrap(err, "score")
	}
	sc := scorer.NewConfidenceScorer(c.Scoring.Weights)
	conf := sc.Score(company, r)

	return writeJSON(out, scoreReport{
		Company:       company,
		Result:        r,
		Confidence:    conf,
		MeetsMinimum:  conf.Score >= c.Scoring.MinConfidence,
		Weights:       sc.Weights(),
		URLQuality:    initQualityAnalyzer(c).Breakdown(company.Name, url),
		UKPostcode:    scorer.IsUKPostcode(company.Postcode),
		MinConfidence: c.Scoring.MinConfidence,
	})
}
