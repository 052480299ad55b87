package store

import (
	"context"
	"errors"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/rotisserie/eris"

	"github.com/sells-group/company-sift/internal/db"
	"github.com/sells-group/company-sift/internal/model"
)

// PostgresStore implements Store using pgxpool.
type PostgresStore struct {
	pool    db.Pool
	closeFn func()
}

// PoolConfig holds optional connection pool tuning parameters.
type PoolConfig struct {
	MaxConns int32 `yaml:"max_conns" mapstructure:"max_conns"`
	MinConns int32 `yaml:"min_conns" mapstructure:"min_conns"`
}

// NewPostgres creates a PostgresStore with a connection pool.
func NewPostgres(ctx context.Context, connString string, poolCfg *PoolConfig) (*PostgresStore, error) {
	pgxCfg, err := pgxpool.ParseConfig(connString)
	if err != nil {
		return nil, eris.Wrap(err, "postgres: parse config")
	}

	maxConns := int32(4)
	minConns := int32(1)
	if poolCfg != nil {
		if poolCfg.MaxConns > 0 {
			maxConns = poolCfg.MaxConns
		}
		if poolCfg.MinConns > 0 {
			minConns = poolCfg.MinConns
		}
	}
	pgxCfg.MaxConns = maxConns
	pgxCfg.MinConns = minConns
	pgxCfg.MaxConnLifetime = 30 * time.Minute
	pgxCfg.MaxConnIdleTime = 5 * time.Minute

	pool, err := pgxpool.NewWithConfig(ctx, pgxCfg)
	if err != nil {
		return nil, eris.Wrap(err, "postgres: create pool")
	}
	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, eris.Wrap(err, "postgres: ping")
	}
	return &PostgresStore{pool: pool, closeFn: pool.Close}, nil
}

const postgresMigration = `
CREATE TABLE IF NOT EXISTS checkpoints (
	id                  TEXT PRIMARY KEY,
	session_id          TEXT NOT NULL,
	batch_number        INTEGER NOT NULL,
	companies_processed INTEGER NOT NULL,
	status              TEXT NOT NULL,
	completed_at        TIMESTAMPTZ NOT NULL DEFAULT now()
);

CREATE TABLE IF NOT EXISTS domain_counts (
	domain TEXT PRIMARY KEY,
	count  INTEGER NOT NULL
);

CREATE TABLE IF NOT EXISTS domain_companies (
	domain  TEXT NOT NULL,
	company TEXT NOT NULL,
	PRIMARY KEY (domain, company)
);

CREATE TABLE IF NOT EXISTS tracker_meta (
	key   TEXT PRIMARY KEY,
	value INTEGER NOT NULL
);

CREATE INDEX IF NOT EXISTS idx_checkpoints_batch ON checkpoints(batch_number);
CREATE INDEX IF NOT EXISTS idx_checkpoints_status ON checkpoints(status);
`

func (s *PostgresStore) Migrate(ctx context.Context) error {
	_, err := s.pool.Exec(ctx, postgresMigration)
	return eris.Wrap(err, "postgres: migrate")
}

func (s *PostgresStore) Close() error {
	if s.closeFn != nil {
		s.closeFn()
	}
	return nil
}

func (s *PostgresStore) CreateCheckpoint(ctx context.Context, cp model.Checkpoint) (*model.Checkpoint, error) {
	if err := prepareCheckpoint(&cp); err != nil {
		return nil, err
	}
	_, err := s.pool.Exec(ctx,
		`INSERT INTO checkpoints (id, session_id, batch_number, companies_processed, status, completed_at)
		 VALUES ($1, $2, $3, $4, $5, $6)`,
		cp.ID, cp.SessionID, cp.BatchNumber, cp.CompaniesProcessed, string(cp.Status), cp.CompletedAt,
	)
	if err != nil {
		return nil, eris.Wrapf(err, "postgres: insert checkpoint batch %d", cp.BatchNumber)
	}
	return &cp, nil
}

func (s *PostgresStore) LatestCheckpoint(ctx context.Context) (*model.Checkpoint, error) {
	row := s.pool.QueryRow(ctx,
		`SELECT `+checkpointColumns+` FROM checkpoints
		 ORDER BY batch_number DESC, completed_at DESC LIMIT 1`)
	return scanOptionalPgCheckpoint(row)
}

func (s *PostgresStore) ListCheckpoints(ctx context.Context) ([]model.Checkpoint, error) {
	rows, err := s.pool.Query(ctx,
		`SELECT `+checkpointColumns+` FROM checkpoints ORDER BY batch_number ASC, completed_at ASC`)
	if err != nil {
		return nil, eris.Wrap(err, "postgres: list checkpoints")
	}
	defer rows.Close()

	out := []model.Checkpoint{}
	for rows.Next() {
		cp, err := scanCheckpoint(rows)
		if err != nil {
			return nil, eris.Wrap(err, "postgres: scan checkpoint")
		}
		out = append(out, *cp)
	}
	return out, eris.Wrap(rows.Err(), "postgres: iterate checkpoints")
}

func (s *PostgresStore) ResumePosition(ctx context.Context) (model.ResumePosition, error) {
	row := s.pool.QueryRow(ctx,
		`SELECT `+checkpointColumns+` FROM checkpoints WHERE status = $1
		 ORDER BY batch_number DESC, completed_at DESC LIMIT 1`,
		string(model.StatusCompleted),
	)
	cp, err := scanOptionalPgCheckpoint(row)
	if err != nil {
		return model.ResumePosition{}, err
	}
	return resumeFrom(cp), nil
}

func (s *PostgresStore) ClearCheckpoints(ctx context.Context) error {
	_, err := s.pool.Exec(ctx, `DELETE FROM checkpoints`)
	return eris.Wrap(err, "postgres: clear checkpoints")
}

func (s *PostgresStore) ProcessingStats(ctx context.Context) (model.ProcessingStats, error) {
	var stats model.ProcessingStats
	var last *time.Time
	err := s.pool.QueryRow(ctx,
		`SELECT COUNT(*),
		        COUNT(*) FILTER (WHERE status = 'completed'),
		        COUNT(*) FILTER (WHERE status = 'failed'),
		        COALESCE(MAX(companies_processed), 0),
		        MAX(completed_at)
		 FROM checkpoints`,
	).Scan(&stats.TotalBatches, &stats.CompletedBatches, &stats.FailedBatches, &stats.TotalCompanies, &last)
	if err != nil {
		return stats, eris.Wrap(err, "postgres: processing stats")
	}
	stats.LastCheckpoint = last
	return stats, nil
}

func (s *PostgresStore) LoadDomainState(ctx context.Context) (*model.DomainState, error) {
	state := emptyDomainState()

	rows, err := s.pool.Query(ctx, `SELECT domain, count FROM domain_counts`)
	if err != nil {
		return nil, eris.Wrap(err, "postgres: load domain counts")
	}
	for rows.Next() {
		var d string
		var n int
		if err := rows.Scan(&d, &n); err != nil {
			rows.Close()
			return nil, eris.Wrap(err, "postgres: scan domain count")
		}
		state.DomainCounts[d] = n
	}
	rows.Close()
	if err := rows.Err(); err != nil {
		return nil, eris.Wrap(err, "postgres: iterate domain counts")
	}

	rows, err = s.pool.Query(ctx, `SELECT domain, company FROM domain_companies ORDER BY domain, company`)
	if err != nil {
		return nil, eris.Wrap(err, "postgres: load company domains")
	}
	for rows.Next() {
		var d, company string
		if err := rows.Scan(&d, &company); err != nil {
			rows.Close()
			return nil, eris.Wrap(err, "postgres: scan company domain")
		}
		state.CompanyDomains[d] = append(state.CompanyDomains[d], company)
	}
	rows.Close()
	if err := rows.Err(); err != nil {
		return nil, eris.Wrap(err, "postgres: iterate company domains")
	}

	err = s.pool.QueryRow(ctx,
		`SELECT value FROM tracker_meta WHERE key = 'total_searches'`,
	).Scan(&state.TotalSearches)
	if err != nil && !errors.Is(err, pgx.ErrNoRows) {
		return nil, eris.Wrap(err, "postgres: load total searches")
	}
	return state, nil
}

// SaveDomainState replaces the persisted tracker state in one transaction,
// bulk loading the rows with COPY.
func (s *PostgresStore) SaveDomainState(ctx context.Context, state model.DomainState) error {
	tx, err := s.pool.Begin(ctx)
	if err != nil {
		return eris.Wrap(err, "postgres: begin save domain state")
	}
	defer tx.Rollback(ctx) //nolint:errcheck

	if err := clearPgDomainTables(ctx, tx); err != nil {
		return err
	}

	counts, companies := domainStateRows(state)
	if _, err := db.CopyFrom(ctx, tx, "domain_counts", []string{"domain", "count"}, counts); err != nil {
		return eris.Wrap(err, "postgres: save domain counts")
	}
	if _, err := db.CopyFrom(ctx, tx, "domain_companies", []string{"domain", "company"}, companies); err != nil {
		return eris.Wrap(err, "postgres: save company domains")
	}
	if _, err := tx.Exec(ctx,
		`INSERT INTO tracker_meta (key, value) VALUES ('total_searches', $1)`, state.TotalSearches,
	); err != nil {
		return eris.Wrap(err, "postgres: save total searches")
	}

	return eris.Wrap(tx.Commit(ctx), "postgres: commit domain state")
}

func (s *PostgresStore) ClearDomainState(ctx context.Context) error {
	tx, err := s.pool.Begin(ctx)
	if err != nil {
		return eris.Wrap(err, "postgres: begin clear domain state")
	}
	defer tx.Rollback(ctx) //nolint:errcheck

	if err := clearPgDomainTables(ctx, tx); err != nil {
		return err
	}
	return eris.Wrap(tx.Commit(ctx), "postgres: commit clear domain state")
}

func clearPgDomainTables(ctx context.Context, tx pgx.Tx) error {
	if _, err := tx.Exec(ctx, `TRUNCATE domain_counts, domain_companies, tracker_meta`); err != nil {
		return eris.Wrap(err, "postgres: clear domain state")
	}
	return nil
}

func scanOptionalPgCheckpoint(row pgx.Row) (*model.Checkpoint, error) {
	cp, err := scanCheckpoint(row)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, eris.Wrap(err, "postgres: scan checkpoint")
	}
	return cp, nil
}
