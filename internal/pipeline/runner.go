package pipeline

import (
	"context"
	"sync/atomic"
	"time"

	"github.com/google/uuid"
	"github.com/rotisserie/eris"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/sells-group/company-sift/internal/model"
	"github.com/sells-group/company-sift/internal/store"
)

const progressEvery = 10

// ResultWriter persists scored rows. csvio.Writer satisfies it.
type ResultWriter interface {
	Write(results []model.ScoredResult) error
	WriteBatch(batch int, results []model.ScoredResult) (string, error)
}

// RunnerConfig controls batching and concurrency.
type RunnerConfig struct {
	BatchSize       int
	Concurrency     int
	Restart         bool // ignore existing checkpoints and start from the first company
	WriteBatchFiles bool // also write each batch to its own file
}

// RunSummary describes one Run call.
type RunSummary struct {
	SessionID          string                 `json:"session_id"`
	Status             model.ProcessingStatus `json:"status"`
	StartBatch         int                    `json:"start_batch"`
	Skipped            int                    `json:"skipped"`
	BatchesProcessed   int                    `json:"batches_processed"`
	CompaniesProcessed int                    `json:"companies_processed"`
	Matched            int                    `json:"matched"`
	Errored            int                    `json:"errored"`
	CandidatesWritten  int                    `json:"candidates_written"`
	Batches            []model.BatchResult    `json:"batches"`
	Duration           time.Duration          `json:"duration"`
}

// Runner drives an Enricher over a company list in checkpointed batches.
type Runner struct {
	enricher *Enricher
	store    store.Store
	writer   ResultWriter
	cfg      RunnerConfig
}

// NewRunner creates a Runner. Batch size and concurrency default to 100
// and 1.
func NewRunner(e *Enricher, st store.Store, w ResultWriter, cfg RunnerConfig) *Runner {
	if cfg.BatchSize <= 0 {
		cfg.BatchSize = 100
	}
	if cfg.Concurrency <= 0 {
		cfg.Concurrency = 1
	}
	return &Runner{enricher: e, store: st, writer: w, cfg: cfg}
}

// Run processes companies from the resume position onward. Companies in a
// batch are enriched concurrently but written in input order. After each
// batch a checkpoint is recorded and the domain tracker is saved, so a
// later Run picks up after the last completed batch with the tracker state
// it left behind.
func (r *Runner) Run(ctx context.Context, companies []model.Company) (*RunSummary, error) {
	start := time.Now()
	sum := &RunSummary{SessionID: uuid.New().String(), Status: model.StatusRunning}
	log := zap.L().With(zap.String("session_id", sum.SessionID))

	if r.cfg.Restart {
		if err := r.store.ClearCheckpoints(ctx); err != nil {
			return nil, eris.Wrap(err, "pipeline: clear checkpoints")
		}
		log.Info("pipeline: checkpoints cleared, starting from the beginning")
	}

	pos, err := r.store.ResumePosition(ctx)
	if err != nil {
		return nil, eris.Wrap(err, "pipeline: resume position")
	}
	sum.StartBatch = pos.NextBatch
	sum.Skipped = min(pos.CompaniesProcessed, len(companies))

	state, err := r.store.LoadDomainState(ctx)
	if err != nil {
		return nil, eris.Wrap(err, "pipeline: load domain state")
	}
	r.enricher.filter.Restore(*state)

	remaining := companies[sum.Skipped:]
	log.Info("pipeline: starting run",
		zap.Int("companies", len(companies)),
		zap.Int("skipped", sum.Skipped),
		zap.Int("start_batch", sum.StartBatch),
		zap.Int("batch_size", r.cfg.BatchSize),
		zap.Int("concurrency", r.cfg.Concurrency),
		zap.Int("tracked_searches", state.TotalSearches),
	)

	processed := sum.Skipped
	batchNum := pos.NextBatch
	for off := 0; off < len(remaining); off += r.cfg.BatchSize {
		batch := remaining[off:min(off+r.cfg.BatchSize, len(remaining))]

		br, err := r.processBatch(ctx, batchNum, batch, processed)
		if err != nil {
			sum.Duration = time.Since(start)
			if ctx.Err() != nil {
				sum.Status = model.StatusInterrupted
				r.saveState(context.WithoutCancel(ctx), log)
				log.Warn("pipeline: run interrupted", zap.Int("batch", batchNum), zap.Int("companies_processed", processed))
				return sum, eris.Wrapf(ctx.Err(), "pipeline: interrupted in batch %d", batchNum)
			}
			sum.Status = model.StatusFailed
			r.checkpoint(context.WithoutCancel(ctx), sum.SessionID, batchNum, processed, model.StatusFailed, log)
			r.saveState(context.WithoutCancel(ctx), log)
			return sum, err
		}

		processed += len(batch)
		sum.Batches = append(sum.Batches, br)
		sum.BatchesProcessed++
		sum.CompaniesProcessed += br.CompaniesTotal
		sum.Matched += br.CompaniesMatched
		sum.Errored += br.CompaniesErrored
		sum.CandidatesWritten += br.CandidatesWritten

		if err := r.checkpoint(ctx, sum.SessionID, batchNum, processed, model.StatusCompleted, log); err != nil {
			sum.Status = model.StatusFailed
			sum.Duration = time.Since(start)
			return sum, err
		}
		if err := r.store.SaveDomainState(ctx, r.enricher.filter.Snapshot()); err != nil {
			sum.Status = model.StatusFailed
			sum.Duration = time.Since(start)
			return sum, eris.Wrapf(err, "pipeline: save domain state after batch %d", batchNum)
		}

		log.Info("pipeline: batch complete",
			zap.Int("batch", batchNum),
			zap.Int("companies", br.CompaniesTotal),
			zap.Int("matched", br.CompaniesMatched),
			zap.Int("errored", br.CompaniesErrored),
			zap.Float64("success_rate", br.SuccessRate()),
			zap.Duration("duration", br.Duration),
		)
		batchNum++
	}

	sum.Status = model.StatusCompleted
	sum.Duration = time.Since(start)
	log.Info("pipeline: run complete",
		zap.Int("batches", sum.BatchesProcessed),
		zap.Int("companies", sum.CompaniesProcessed),
		zap.Int("matched", sum.Matched),
		zap.Int("candidates", sum.CandidatesWritten),
		zap.Duration("duration", sum.Duration),
	)
	return sum, nil
}

// processBatch enriches one batch and writes its rows. offset is the number
// of companies handled before this batch, used for progress logging.
func (r *Runner) processBatch(ctx context.Context, batchNum int, batch []model.Company, offset int) (model.BatchResult, error) {
	started := time.Now()
	br := model.BatchResult{BatchNumber: batchNum, CompaniesTotal: len(batch)}

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(r.cfg.Concurrency)

	var done atomic.Int64
	perCompany := make([][]model.ScoredResult, len(batch))
	for i, company := range batch {
		g.Go(func() error {
			rows, err := r.enricher.Enrich(gctx, company)
			if err != nil {
				return err
			}
			perCompany[i] = rows
			if n := done.Add(1); n%progressEvery == 0 {
				zap.L().Info("pipeline: progress",
					zap.Int("batch", batchNum),
					zap.Int64("batch_done", n),
					zap.Int("total_done", offset+int(n)),
				)
			}
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return br, eris.Wrapf(err, "batch %d processing", batchNum)
	}

	var rows []model.ScoredResult
	for _, cr := range perCompany {
		if len(cr) == 1 && cr[0].ErrorFlag {
			br.CompaniesErrored++
		} else {
			br.CompaniesMatched++
			br.CandidatesWritten += len(cr)
		}
		rows = append(rows, cr...)
	}

	if err := r.writer.Write(rows); err != nil {
		return br, eris.Wrapf(err, "pipeline: write batch %d", batchNum)
	}
	if r.cfg.WriteBatchFiles {
		path, err := r.writer.WriteBatch(batchNum, rows)
		if err != nil {
			return br, eris.Wrapf(err, "pipeline: write batch file %d", batchNum)
		}
		zap.L().Debug("pipeline: batch file written", zap.String("path", path))
	}

	br.Duration = time.Since(started)
	return br, nil
}

func (r *Runner) checkpoint(ctx context.Context, sessionID string, batchNum, processed int, status model.ProcessingStatus, log *zap.Logger) error {
	_, err := r.store.CreateCheckpoint(ctx, model.Checkpoint{
		SessionID:          sessionID,
		BatchNumber:        batchNum,
		CompaniesProcessed: processed,
		Status:             status,
	})
	if err != nil {
		log.Error("pipeline: checkpoint failed", zap.Int("batch", batchNum), zap.Error(err))
		return eris.Wrapf(err, "pipeline: checkpoint batch %d", batchNum)
	}
	return nil
}

func (r *Runner) saveState(ctx context.Context, log *zap.Logger) {
	if err := r.store.SaveDomainState(ctx, r.enricher.filter.Snapshot()); err != nil {
		log.Error("pipeline: save domain state failed", zap.Error(err))
	}
}
