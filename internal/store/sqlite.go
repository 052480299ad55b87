package store

import (
	"context"
	"database/sql"
	"errors"
	"time"

	"github.com/google/uuid"
	"github.com/rotisserie/eris"
	_ "modernc.org/sqlite"

	"github.com/sells-group/company-sift/internal/model"
)

// SQLiteStore implements Store using modernc.org/sqlite.
type SQLiteStore struct {
	db *sql.DB
}

// NewSQLite opens a SQLite database at the given path and configures WAL mode.
func NewSQLite(dsn string) (*SQLiteStore, error) {
	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, eris.Wrap(err, "sqlite: open")
	}
	for _, pragma := range []string{
		"PRAGMA journal_mode=WAL",
		"PRAGMA busy_timeout=5000",
		"PRAGMA synchronous=NORMAL",
	} {
		if _, err := db.Exec(pragma); err != nil {
			db.Close() //nolint:errcheck
			return nil, eris.Wrapf(err, "sqlite: exec %s", pragma)
		}
	}
	return &SQLiteStore{db: db}, nil
}

const sqliteMigration = `
CREATE TABLE IF NOT EXISTS checkpoints (
	id                  TEXT PRIMARY KEY,
	session_id          TEXT NOT NULL,
	batch_number        INTEGER NOT NULL,
	companies_processed INTEGER NOT NULL,
	status              TEXT NOT NULL,
	completed_at        DATETIME NOT NULL
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

func (s *SQLiteStore) Migrate(ctx context.Context) error {
	_, err := s.db.ExecContext(ctx, sqliteMigration)
	return eris.Wrap(err, "sqlite: migrate")
}

func (s *SQLiteStore) Close() error {
	return s.db.Close()
}

func (s *SQLiteStore) CreateCheckpoint(ctx context.Context, cp model.Checkpoint) (*model.Checkpoint, error) {
	if err := prepareCheckpoint(&cp); err != nil {
		return nil, err
	}
	_, err := s.db.ExecContext(ctx,
		`INSERT INTO checkpoints (id, session_id, batch_number, companies_processed, status, completed_at)
		 VALUES (?, ?, ?, ?, ?, ?)`,
		cp.ID, cp.SessionID, cp.BatchNumber, cp.CompaniesProcessed, string(cp.Status), cp.CompletedAt,
	)
	if err != nil {
		return nil, eris.Wrapf(err, "sqlite: insert checkpoint batch %d", cp.BatchNumber)
	}
	return &cp, nil
}

const checkpointColumns = `id, session_id, batch_number, companies_processed, status, completed_at`

func (s *SQLiteStore) LatestCheckpoint(ctx context.Context) (*model.Checkpoint, error) {
	row := s.db.QueryRowContext(ctx,
		`SELECT `+checkpointColumns+` FROM checkpoints
		 ORDER BY batch_number DESC, completed_at DESC LIMIT 1`)
	return scanOptionalCheckpoint(row)
}

func (s *SQLiteStore) ListCheckpoints(ctx context.Context) ([]model.Checkpoint, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT `+checkpointColumns+` FROM checkpoints ORDER BY batch_number ASC, completed_at ASC`)
	if err != nil {
		return nil, eris.Wrap(err, "sqlite: list checkpoints")
	}
	defer rows.Close() //nolint:errcheck

	out := []model.Checkpoint{}
	for rows.Next() {
		cp, err := scanCheckpoint(rows)
		if err != nil {
			return nil, eris.Wrap(err, "sqlite: scan checkpoint")
		}
		out = append(out, *cp)
	}
	return out, eris.Wrap(rows.Err(), "sqlite: iterate checkpoints")
}

func (s *SQLiteStore) ResumePosition(ctx context.Context) (model.ResumePosition, error) {
	row := s.db.QueryRowContext(ctx,
		`SELECT `+checkpointColumns+` FROM checkpoints WHERE status = ?
		 ORDER BY batch_number DESC, completed_at DESC LIMIT 1`,
		string(model.StatusCompleted),
	)
	cp, err := scanOptionalCheckpoint(row)
	if err != nil {
		return model.ResumePosition{}, err
	}
	return resumeFrom(cp), nil
}

func (s *SQLiteStore) ClearCheckpoints(ctx context.Context) error {
	_, err := s.db.ExecContext(ctx, `DELETE FROM checkpoints`)
	return eris.Wrap(err, "sqlite: clear checkpoints")
}

func (s *SQLiteStore) ProcessingStats(ctx context.Context) (model.ProcessingStats, error) {
	var stats model.ProcessingStats
	err := s.db.QueryRowContext(ctx,
		`SELECT COUNT(*),
		        COALESCE(SUM(CASE WHEN status = 'completed' THEN 1 ELSE 0 END), 0),
		        COALESCE(SUM(CASE WHEN status = 'failed' THEN 1 ELSE 0 END), 0),
		        COALESCE(MAX(companies_processed), 0)
		 FROM checkpoints`,
	).Scan(&stats.TotalBatches, &stats.CompletedBatches, &stats.FailedBatches, &stats.TotalCompanies)
	if err != nil {
		return stats, eris.Wrap(err, "sqlite: processing stats")
	}
	if stats.TotalBatches == 0 {
		return stats, nil
	}

	var last time.Time
	err = s.db.QueryRowContext(ctx,
		`SELECT completed_at FROM checkpoints ORDER BY completed_at DESC LIMIT 1`,
	).Scan(&last)
	if err != nil {
		return stats, eris.Wrap(err, "sqlite: last checkpoint time")
	}
	stats.LastCheckpoint = &last
	return stats, nil
}

func (s *SQLiteStore) LoadDomainState(ctx context.Context) (*model.DomainState, error) {
	state := emptyDomainState()

	rows, err := s.db.QueryContext(ctx, `SELECT domain, count FROM domain_counts`)
	if err != nil {
		return nil, eris.Wrap(err, "sqlite: load domain counts")
	}
	for rows.Next() {
		var d string
		var n int
		if err := rows.Scan(&d, &n); err != nil {
			rows.Close() //nolint:errcheck
			return nil, eris.Wrap(err, "sqlite: scan domain count")
		}
		state.DomainCounts[d] = n
	}
	rows.Close() //nolint:errcheck
	if err := rows.Err(); err != nil {
		return nil, eris.Wrap(err, "sqlite: iterate domain counts")
	}

	rows, err = s.db.QueryContext(ctx, `SELECT domain, company FROM domain_companies ORDER BY domain, company`)
	if err != nil {
		return nil, eris.Wrap(err, "sqlite: load company domains")
	}
	for rows.Next() {
		var d, company string
		if err := rows.Scan(&d, &company); err != nil {
			rows.Close() //nolint:errcheck
			return nil, eris.Wrap(err, "sqlite: scan company domain")
		}
		state.CompanyDomains[d] = append(state.CompanyDomains[d], company)
	}
	rows.Close() //nolint:errcheck
	if err := rows.Err(); err != nil {
		return nil, eris.Wrap(err, "sqlite: iterate company domains")
	}

	err = s.db.QueryRowContext(ctx,
		`SELECT value FROM tracker_meta WHERE key = 'total_searches'`,
	).Scan(&state.TotalSearches)
	if err != nil && !errors.Is(err, sql.ErrNoRows) {
		return nil, eris.Wrap(err, "sqlite: load total searches")
	}
	return state, nil
}

func (s *SQLiteStore) SaveDomainState(ctx context.Context, state model.DomainState) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return eris.Wrap(err, "sqlite: begin save domain state")
	}
	defer tx.Rollback() //nolint:errcheck

	if err := clearDomainTables(ctx, tx); err != nil {
		return err
	}

	counts, companies := domainStateRows(state)
	if err := insertRows(ctx, tx, `INSERT INTO domain_counts (domain, count) VALUES (?, ?)`, counts); err != nil {
		return eris.Wrap(err, "sqlite: save domain counts")
	}
	if err := insertRows(ctx, tx, `INSERT OR IGNORE INTO domain_companies (domain, company) VALUES (?, ?)`, companies); err != nil {
		return eris.Wrap(err, "sqlite: save company domains")
	}
	if _, err := tx.ExecContext(ctx,
		`INSERT INTO tracker_meta (key, value) VALUES ('total_searches', ?)`, state.TotalSearches,
	); err != nil {
		return eris.Wrap(err, "sqlite: save total searches")
	}

	return eris.Wrap(tx.Commit(), "sqlite: commit domain state")
}

func (s *SQLiteStore) ClearDomainState(ctx context.Context) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return eris.Wrap(err, "sqlite: begin clear domain state")
	}
	defer tx.Rollback() //nolint:errcheck

	if err := clearDomainTables(ctx, tx); err != nil {
		return err
	}
	return eris.Wrap(tx.Commit(), "sqlite: commit clear domain state")
}

func clearDomainTables(ctx context.Context, tx *sql.Tx) error {
	for _, table := range []string{"domain_counts", "domain_companies", "tracker_meta"} {
		if _, err := tx.ExecContext(ctx, `DELETE FROM `+table); err != nil {
			return eris.Wrapf(err, "sqlite: clear %s", table)
		}
	}
	return nil
}

func insertRows(ctx context.Context, tx *sql.Tx, query string, rows [][]any) error {
	if len(rows) == 0 {
		return nil
	}
	stmt, err := tx.PrepareContext(ctx, query)
	if err != nil {
		return err
	}
	defer stmt.Close() //nolint:errcheck
	for _, r := range rows {
		if _, err := stmt.ExecContext(ctx, r...); err != nil {
			return err
		}
	}
	return nil
}

// prepareCheckpoint validates cp and fills in its id, status and timestamp.
func prepareCheckpoint(cp *model.Checkpoint) error {
	if cp.BatchNumber < 1 {
		return eris.Errorf("store: checkpoint batch number must be >= 1, got %d", cp.BatchNumber)
	}
	if cp.CompaniesProcessed < 0 {
		return eris.Errorf("store: companies processed must be >= 0, got %d", cp.CompaniesProcessed)
	}
	if cp.ID == "" {
		cp.ID = uuid.New().String()
	}
	if cp.Status == "" {
		cp.Status = model.StatusCompleted
	}
	if cp.CompletedAt.IsZero() {
		cp.CompletedAt = time.Now().UTC()
	}
	cp.CompletedAt = cp.CompletedAt.UTC()
	return nil
}

type scannable interface {
	Scan(dest ...any) error
}

func scanCheckpoint(row scannable) (*model.Checkpoint, error) {
	var cp model.Checkpoint
	var status string
	if err := row.Scan(&cp.ID, &cp.SessionID, &cp.BatchNumber, &cp.CompaniesProcessed, &status, &cp.CompletedAt); err != nil {
		return nil, err
	}
	cp.Status = model.ProcessingStatus(status)
	return &cp, nil
}

func scanOptionalCheckpoint(row scannable) (*model.Checkpoint, error) {
	cp, err := scanCheckpoint(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, eris.Wrap(err, "sqlite: scan checkpoint")
	}
	return cp, nil
}
