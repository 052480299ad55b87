package main

import (
	"fmt"
	"io"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/rotisserie/eris"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/sells-group/company-sift/internal/config"
	"github.com/sells-group/company-sift/internal/csvio"
	"github.com/sells-group/company-sift/internal/model"
	"github.com/sells-group/company-sift/internal/pipeline"
	"github.com/sells-group/company-sift/internal/scorer"
)

var processCmd = &cobra.Command{
	Use:   "process",
	Short: "Find websites for every company in a register file",
	Long: `Reads companies from a CSV or XLSX file, searches for each one by name,
drops aggregator and directory sites, scores the remaining candidates and
appends every candidate at or above the confidence threshold to the output
CSV. Progress is checkpointed per batch, so an interrupted run resumes where
it stopped unless --restart is given.

Examples:
  # Validate the input and show the effective settings
  company-sift process --input companies.csv --output results.csv --dry-run

  # Full run with the keyless HTML provider
  company-sift process --input companies.xlsx --output results.csv --provider html

  # Start over with stricter matching
  company-sift process --input companies.csv --output results.csv --restart --min-confidence 70`,
	RunE: runProcess,
}

func init() {
	f := processCmd.Flags()
	f.String("input", "", "path to the company CSV or XLSX file (required)")
	f.String("output", "", "path to the results CSV (required)")
	f.Int("batch-size", 0, "companies per checkpointed batch (overrides config)")
	f.Float64("min-confidence", -1, "minimum confidence score 0-100 (overrides config)")
	f.Int("max-candidates", -1, "maximum candidates written per company, 0 = all (overrides config)")
	f.Int("concurrency", 0, "companies searched concurrently (overrides config)")
	f.String("provider", "", "search provider: rapidapi or html (overrides config)")
	f.Bool("restart", false, "ignore existing checkpoints and start from the first company")
	f.Bool("dry-run", false, "read and validate the input, print the plan, skip searching")
	f.Bool("batch-files", false, "also write each batch to its own CSV next to the output")
	_ = processCmd.MarkFlagRequired("input")
	_ = processCmd.MarkFlagRequired("output")

	rootCmd.AddCommand(processCmd)
}

// applyProcessFlags copies explicitly set flags over the loaded config.
func applyProcessFlags(cmd *cobra.Command, c *config.Config) {
	f := cmd.Flags()
	if f.Changed("batch-size") {
		c.Processing.BatchSize, _ = f.GetInt("batch-size")
	}
	if f.Changed("min-confidence") {
		c.Scoring.MinConfidence, _ = f.GetFloat64("min-confidence")
	}
	if f.Changed("max-candidates") {
		c.Processing.MaxCandidates, _ = f.GetInt("max-candidates")
	}
	if f.Changed("concurrency") {
		c.Processing.Concurrency, _ = f.GetInt("concurrency")
	}
	if f.Changed("provider") {
		c.Search.Provider, _ = f.GetString("provider")
	}
	if f.Changed("batch-files") {
		c.Processing.WriteBatchFiles, _ = f.GetBool("batch-files")
	}
}

func runProcess(cmd *cobra.Command, _ []string) error {
	ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	applyProcessFlags(cmd, cfg)
	input, _ := cmd.Flags().GetString("input")
	output, _ := cmd.Flags().GetString("output")
	restart, _ := cmd.Flags().GetBool("restart")
	dryRun, _ := cmd.Flags().GetBool("dry-run")

	mode := "process"
	if dryRun {
		mode = "offline"
	}
	if err := cfg.Validate(mode); err != nil {
		return err
	}

	log := zap.L().With(zap.String("command", "process"))

	companies, stats, err := csvio.ReadCompanies(input)
	if err != nil {
		return eris.Wrap(err, "process: read input")
	}
	if len(companies) == 0 {
		return eris.Errorf("process: no valid companies in %s", input)
	}

	if dryRun {
		return printPlan(os.Stdout, input, output, stats, companies, cfg)
	}

	client, err := initSearchClient(cfg, cfg.Search.Provider)
	if err != nil {
		return err
	}
	f, err := initFilter(cfg)
	if err != nil {
		return err
	}
	st, err := initStore(ctx)
	if err != nil {
		return err
	}
	defer st.Close() //nolint:errcheck

	w, err := csvio.NewWriter(output)
	if err != nil {
		return err
	}

	searcher := pipeline.NewSearcher(client)
	if cfg.Search.BreakerThreshold > 0 {
		searcher = pipeline.WithCircuitBreaker(searcher,
			pipeline.NewSearchBreaker(cfg.Search.BreakerThreshold, cfg.Search.BreakerCooldownSecs))
	}

	enricher := pipeline.NewEnricher(
		searcher,
		f,
		scorer.NewConfidenceScorer(cfg.Scoring.Weights),
		scorer.NewQualityCache(initQualityAnalyzer(cfg)),
		pipeline.EnricherConfig{
			MaxResults:        cfg.Search.MaxResults,
			MinConfidence:     cfg.Scoring.MinConfidence,
			MaxCandidates:     cfg.Processing.MaxCandidates,
			RequireURLQuality: cfg.Scoring.RequireURLQuality,
		},
	)
	runner := pipeline.NewRunner(enricher, st, w, pipeline.RunnerConfig{
		BatchSize:       cfg.Processing.BatchSize,
		Concurrency:     cfg.Processing.Concurrency,
		Restart:         restart,
		WriteBatchFiles: cfg.Processing.WriteBatchFiles,
	})

	log.Info("process: starting",
		zap.String("input", input),
		zap.String("output", output),
		zap.String("provider", cfg.Search.Provider),
		zap.Int("companies", len(companies)),
		zap.Int("skipped_rows", stats.Skipped),
	)

	sum, runErr := runner.Run(ctx, companies)
	if sum != nil {
		printRunSummary(os.Stdout, sum, len(f.Aggregators()))
	}
	if runErr != nil {
		if sum != nil && sum.Status == model.StatusInterrupted {
			fmt.Fprintln(os.Stderr, "Interrupted; rerun the same command to resume.")
		}
		return runErr
	}
	return nil
}

// processPlan is what a dry run prints.
type processPlan struct {
	Input         string          `json:"input"`
	Output        string          `json:"output"`
	Rows          csvio.ReadStats `json:"rows"`
	Batches       int             `json:"batches"`
	Provider      string          `json:"provider"`
	MinConfidence float64         `json:"min_confidence"`
	MaxCandidates int             `json:"max_candidates"`
	Concurrency   int             `json:"concurrency"`
	StoreDriver   string          `json:"store_driver"`
	Weights       scorer.Weights  `json:"weights"`
	Sample        []model.Company `json:"sample"`
}

func printPlan(out io.Writer, input, output string, stats csvio.ReadStats, companies []model.Company, c *config.Config) error {
	sample := companies
	if len(sample) > 5 {
		sample = sample[:5]
	}
	plan := processPlan{
		Input:         input,
		Output:        output,
		Rows:          stats,
		Batches:       (len(companies) + c.Processing.BatchSize - 1) / c.Processing.BatchSize,
		Provider:      c.Search.Provider,
		MinConfidence: c.Scoring.MinConfidence,
		MaxCandidates: c.Processing.MaxCandidates,
		Concurrency:   c.Processing.Concurrency,
		StoreDriver:   c.Store.Driver,
		Weights:       c.Scoring.Weights.Normalize(),
		Sample:        sample,
	}
	return writeJSON(out, plan)
}

func printRunSummary(out io.Writer, sum *pipeline.RunSummary, aggregators int) {
	_, _ = fmt.Fprintf(out, "Session:     %s (%s)\n", sum.SessionID, sum.Status)
	_, _ = fmt.Fprintf(out, "Batches:     %d (starting at %d, %d companies skipped)\n", sum.BatchesProcessed, sum.StartBatch, sum.Skipped)
	_, _ = fmt.Fprintf(out, "Companies:   %d processed, %d matched, %d without match\n", sum.CompaniesProcessed, sum.Matched, sum.Errored)
	_, _ = fmt.Fprintf(out, "Candidates:  %d written\n", sum.CandidatesWritten)
	if sum.CompaniesProcessed > 0 {
		_, _ = fmt.Fprintf(out, "Match rate:  %.1f%%\n", float64(sum.Matched)/float64(sum.CompaniesProcessed)*100)
	}
	_, _ = fmt.Fprintf(out, "Aggregators: %d detected\n", aggregators)
	_, _ = fmt.Fprintf(out, "Duration:    %s\n", sum.Duration.Round(time.Millisecond))
}
