package store

import (
	"context"
	"fmt"
	"testing"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/pashagolub/pgxmock/v4"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/sells-group/company-sift/internal/model"
)

// newMockPostgresStore creates a PostgresStore backed by pgxmock for unit testing.
func newMockPostgresStore(t *testing.T) (*PostgresStore, pgxmock.PgxPoolIface) {
	t.Helper()
	mock, err := pgxmock.NewPool(pgxmock.QueryMatcherOption(pgxmock.QueryMatcherRegexp))
	require.NoError(t, err)
	t.Cleanup(func() { mock.Close() })

	s := &PostgresStore{pool: mock}
	return s, mock
}

var checkpointCols = []string{"id", "session_id", "batch_number", "companies_processed", "status", "completed_at"}

func TestPostgresStore_Migrate(t *testing.T) {
	s, mock := newMockPostgresStore(t)

	mock.ExpectExec(`CREATE TABLE IF NOT EXISTS checkpoints`).
		WillReturnResult(pgxmock.NewResult("CREATE", 0))

	require.NoError(t, s.Migrate(context.Background()))
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestPostgresStore_CreateCheckpoint(t *testing.T) {
	s, mock := newMockPostgresStore(t)

	mock.ExpectExec(`INSERT INTO checkpoints`).
		WithArgs(pgxmock.AnyArg(), "sess", 4, 200, "completed", pgxmock.AnyArg()).
		WillReturnResult(pgxmock.NewResult("INSERT", 1))

	cp, err := s.CreateCheckpoint(context.Background(), model.Checkpoint{SessionID: "sess", BatchNumber: 4, CompaniesProcessed: 200})
	require.NoError(t, err)
	assert.NotEmpty(t, cp.ID)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestPostgresStore_CreateCheckpoint_Error(t *testing.T) {
	s, mock := newMockPostgresStore(t)

	mock.ExpectExec(`INSERT INTO checkpoints`).
		WillReturnError(fmt.Errorf("connection reset"))

	_, err := s.CreateCheckpoint(context.Background(), model.Checkpoint{BatchNumber: 1})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "insert checkpoint batch 1")
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestPostgresStore_LatestCheckpoint_None(t *testing.T) {
	s, mock := newMockPostgresStore(t)

	mock.ExpectQuery(`SELECT id, session_id, batch_number, companies_processed, status, completed_at FROM checkpoints`).
		WillReturnError(pgx.ErrNoRows)

	cp, err := s.LatestCheckpoint(context.Background())
	require.NoError(t, err)
	assert.Nil(t, cp)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestPostgresStore_ResumePosition(t *testing.T) {
	s, mock := newMockPostgresStore(t)
	now := time.Now().UTC()

	mock.ExpectQuery(`FROM checkpoints WHERE status = \$1`).
		WithArgs("completed").
		WillReturnRows(pgxmock.NewRows(checkpointCols).AddRow("id-1", "sess", 7, 350, "completed", now))

	pos, err := s.ResumePosition(context.Background())
	require.NoError(t, err)
	assert.Equal(t, model.ResumePosition{NextBatch: 8, CompaniesProcessed: 350}, pos)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestPostgresStore_ListCheckpoints(t *testing.T) {
	s, mock := newMockPostgresStore(t)
	now := time.Now().UTC()

	mock.ExpectQuery(`ORDER BY batch_number ASC`).
		WillReturnRows(pgxmock.NewRows(checkpointCols).
			AddRow("id-1", "sess", 1, 50, "completed", now).
			AddRow("id-2", "sess", 2, 80, "failed", now))

	list, err := s.ListCheckpoints(context.Background())
	require.NoError(t, err)
	require.Len(t, list, 2)
	assert.Equal(t, model.StatusFailed, list[1].Status)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestPostgresStore_ProcessingStats(t *testing.T) {
	s, mock := newMockPostgresStore(t)
	last := time.Date(2024, 6, 1, 12, 0, 0, 0, time.UTC)

	mock.ExpectQuery(`SELECT COUNT\(\*\)`).
		WillReturnRows(pgxmock.NewRows([]string{"total", "completed", "failed", "companies", "last"}).
			AddRow(3, 2, 1, 150, &last))

	stats, err := s.ProcessingStats(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 3, stats.TotalBatches)
	assert.Equal(t, 2, stats.CompletedBatches)
	assert.Equal(t, 1, stats.FailedBatches)
	assert.Equal(t, 150, stats.TotalCompanies)
	require.NotNil(t, stats.LastCheckpoint)
	assert.True(t, stats.LastCheckpoint.Equal(last))
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestPostgresStore_ClearCheckpoints(t *testing.T) {
	s, mock := newMockPostgresStore(t)

	mock.ExpectExec(`DELETE FROM checkpoints`).WillReturnResult(pgxmock.NewResult("DELETE", 5))

	require.NoError(t, s.ClearCheckpoints(context.Background()))
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestPostgresStore_LoadDomainState(t *testing.T) {
	s, mock := newMockPostgresStore(t)

	mock.ExpectQuery(`SELECT domain, count FROM domain_counts`).
		WillReturnRows(pgxmock.NewRows([]string{"domain", "count"}).
			AddRow("endole.co.uk", 7).
			AddRow("acme.com", 1))
	mock.ExpectQuery(`SELECT domain, company FROM domain_companies`).
		WillReturnRows(pgxmock.NewRows([]string{"domain", "company"}).
			AddRow("acme.com", "ACME LTD").
			AddRow("endole.co.uk", "ACME LTD").
			AddRow("endole.co.uk", "BETA LTD"))
	mock.ExpectQuery(`SELECT value FROM tracker_meta`).
		WillReturnRows(pgxmock.NewRows([]string{"value"}).AddRow(9))

	state, err := s.LoadDomainState(context.Background())
	require.NoError(t, err)
	assert.Equal(t, map[string]int{"endole.co.uk": 7, "acme.com": 1}, state.DomainCounts)
	assert.Equal(t, []string{"ACME LTD", "BETA LTD"}, state.CompanyDomains["endole.co.uk"])
	assert.Equal(t, 9, state.TotalSearches)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestPostgresStore_LoadDomainState_NoMeta(t *testing.T) {
	s, mock := newMockPostgresStore(t)

	mock.ExpectQuery(`FROM domain_counts`).WillReturnRows(pgxmock.NewRows([]string{"domain", "count"}))
	mock.ExpectQuery(`FROM domain_companies`).WillReturnRows(pgxmock.NewRows([]string{"domain", "company"}))
	mock.ExpectQuery(`FROM tracker_meta`).WillReturnError(pgx.ErrNoRows)

	state, err := s.LoadDomainState(context.Background())
	require.NoError(t, err)
	assert.Empty(t, state.DomainCounts)
	assert.Zero(t, state.TotalSearches)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestPostgresStore_SaveDomainState(t *testing.T) {
	s, mock := newMockPostgresStore(t)

	mock.ExpectBegin()
	mock.ExpectExec(`TRUNCATE domain_counts, domain_companies, tracker_meta`).
		WillReturnResult(pgxmock.NewResult("TRUNCATE", 0))
	mock.ExpectCopyFrom(pgx.Identifier{"domain_counts"}, []string{"domain", "count"}).WillReturnResult(2)
	mock.ExpectCopyFrom(pgx.Identifier{"domain_companies"}, []string{"domain", "company"}).WillReturnResult(2)
	mock.ExpectExec(`INSERT INTO tracker_meta`).
		WithArgs(4).
		WillReturnResult(pgxmock.NewResult("INSERT", 1))
	mock.ExpectCommit()

	err := s.SaveDomainState(context.Background(), model.DomainState{
		DomainCounts:   map[string]int{"endole.co.uk": 3, "acme.com": 1},
		CompanyDomains: map[string][]string{"endole.co.uk": {"ACME LTD", "BETA LTD", "ACME LTD"}},
		TotalSearches:  4,
	})
	require.NoError(t, err)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestPostgresStore_SaveDomainState_CopyError(t *testing.T) {
	s, mock := newMockPostgresStore(t)

	mock.ExpectBegin()
	mock.ExpectExec(`TRUNCATE`).WillReturnResult(pgxmock.NewResult("TRUNCATE", 0))
	mock.ExpectCopyFrom(pgx.Identifier{"domain_counts"}, []string{"domain", "count"}).
		WillReturnError(fmt.Errorf("disk full"))
	mock.ExpectRollback()

	err := s.SaveDomainState(context.Background(), model.DomainState{DomainCounts: map[string]int{"acme.com": 1}})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "save domain counts")
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestPostgresStore_ClearDomainState(t *testing.T) {
	s, mock := newMockPostgresStore(t)

	mock.ExpectBegin()
	mock.ExpectExec(`TRUNCATE`).WillReturnResult(pgxmock.NewResult("TRUNCATE", 0))
	mock.ExpectCommit()

	require.NoError(t, s.ClearDomainState(context.Background()))
	assert.NoError(t, mock.ExpectationsWereMet())
}
