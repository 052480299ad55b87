// Package store persists batch checkpoints and domain frequency state.
package store

import (
	"context"

	"github.com/rotisserie/eris"

	"github.com/sells-group/company-sift/internal/model"
)

// Store defines the persistence interface for resumable batch processing.
type Store interface {
	// Checkpoints
	CreateCheckpoint(ctx context.Context, cp model.Checkpoint) (*model.Checkpoint, error)
	LatestCheckpoint(ctx context.Context) (*model.Checkpoint, error)
	ListCheckpoints(ctx context.Context) ([]model.Checkpoint, error)
	ResumePosition(ctx context.Context) (model.ResumePosition, error)
	ClearCheckpoints(ctx context.Context) error
	ProcessingStats(ctx context.Context) (model.ProcessingStats, error)

	// Domain frequency state
	LoadDomainState(ctx context.Context) (*model.DomainState, error)
	SaveDomainState(ctx context.Context, state model.DomainState) error
	ClearDomainState(ctx context.Context) error

	// Lifecycle
	Migrate(ctx context.Context) error
	Close() error
}

// Open returns a store for driver ("sqlite" or "postgres"). The schema is
// not migrated.
func Open(ctx context.Context, driver, dsn string) (Store, error) {
	switch driver {
	case "", "sqlite":
		if dsn == "" {
			dsn = "company-sift.db"
		}
		return NewSQLite(dsn)
	case "postgres":
		return NewPostgres(ctx, dsn, nil)
	default:
		return nil, eris.Errorf("store: unsupported driver %q", driver)
	}
}

// resumeFrom turns the latest completed checkpoint into a resume position.
func resumeFrom(cp *model.Checkpoint) model.ResumePosition {
	if cp == nil {
		return model.ResumePosition{NextBatch: 1}
	}
	return model.ResumePosition{
		NextBatch:          cp.BatchNumber + 1,
		CompaniesProcessed: cp.CompaniesProcessed,
	}
}

// domainStateRows flattens state into COPY/INSERT-ready rows, dropping
// repeated (domain, company) pairs.
func domainStateRows(state model.DomainState) (counts, companies [][]any) {
	counts = make([][]any, 0, len(state.DomainCounts))
	for d, n := range state.DomainCounts {
		counts = append(counts, []any{d, n})
	}
	for d, names := range state.CompanyDomains {
		seen := make(map[string]bool, len(names))
		for _, name := range names {
			if seen[name] {
				continue
			}
			seen[name] = true
			companies = append(companies, []any{d, name})
		}
	}
	return counts, companies
}

func emptyDomainState() *model.DomainState {
	return &model.DomainState{
		DomainCounts:   map[string]int{},
		CompanyDomains: map[string][]string{},
	}
}
