package store

import (
	"context"
	"fmt"
	"testing"

	"github.com/jackc/pgx/v5"
	"github.com/pashagolub/pgxmock/v4"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/sells-group/odds-cli/internal/model"
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

func TestPostgresStore_Migrate(t *testing.T) {
	s, mock := newMockPostgresStore(t)

	mock.ExpectExec(`CREATE TABLE IF NOT EXISTS match_name_mapping`).
		WillReturnResult(pgxmock.NewResult("CREATE", 0))

	require.NoError(t, s.Migrate(context.Background()))
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestPostgresStore_GetMatchMapping_NotFound(t *testing.T) {
	s, mock := newMockPostgresStore(t)

	mock.ExpectQuery(`SELECT clean_match_name FROM match_name_mapping WHERE noisy_match_name = \$1 AND game_name = \$2`).
		WithArgs("IEMBO3", "CS2").
		WillReturnError(pgx.ErrNoRows)

	got, ok, err := s.GetMatchMapping(context.Background(), "IEMBO3", "CS2")
	require.NoError(t, err)
	assert.False(t, ok)
	assert.Empty(t, got)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestPostgresStore_GetTeamMapping_Found(t *testing.T) {
	s, mock := newMockPostgresStore(t)

	mock.ExpectQuery(`SELECT clean_team FROM team_mapping`).
		WithArgs("T1", "CS2").
		WillReturnRows(pgxmock.NewRows([]string{"clean_team"}).AddRow("Team One"))

	got, ok, err := s.GetTeamMapping(context.Background(), "T1", "CS2")
	require.NoError(t, err)
	assert.True(t, ok)
	assert.Equal(t, "Team One", got)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestPostgresStore_GetTeamMapping_Error(t *testing.T) {
	s, mock := newMockPostgresStore(t)

	mock.ExpectQuery(`SELECT clean_team FROM team_mapping`).
		WithArgs("T1", "CS2").
		WillReturnError(fmt.Errorf("connection refused"))

	_, _, err := s.GetTeamMapping(context.Background(), "T1", "CS2")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "postgres: lookup")
}

func TestPostgresStore_PutTeamMapping_Upsert(t *testing.T) {
	s, mock := newMockPostgresStore(t)

	mock.ExpectExec(`INSERT INTO team_mapping .* ON CONFLICT \(noisy_team, game_name\)`).
		WithArgs("T1", "Team One", "CS2", ts).
		WillReturnResult(pgxmock.NewResult("INSERT", 1))

	require.NoError(t, s.PutTeamMapping(context.Background(), "T1", "Team One", "CS2", ts))
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestPostgresStore_PutMatchMapping_Error(t *testing.T) {
	s, mock := newMockPostgresStore(t)

	mock.ExpectExec(`INSERT INTO match_name_mapping`).
		WithArgs("M1", "2025_major", "CS2", ts).
		WillReturnError(fmt.Errorf("disk full"))

	err := s.PutMatchMapping(context.Background(), "M1", "2025_major", "CS2", ts)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "put match mapping M1")
}

func TestPostgresStore_ListTeamMappings(t *testing.T) {
	s, mock := newMockPostgresStore(t)

	mock.ExpectQuery(`SELECT noisy_team, clean_team, game_name, last_updated FROM team_mapping`).
		WithArgs("CS2").
		WillReturnRows(pgxmock.NewRows([]string{"noisy_team", "clean_team", "game_name", "last_updated"}).
			AddRow("T1", "Team One", "CS2", ts).
			AddRow("T2", "Team Two", "CS2", ts))

	got, err := s.ListTeamMappings(context.Background(), "CS2")
	require.NoError(t, err)
	require.Len(t, got, 2)
	assert.Equal(t, model.TeamMapping{NoisyTeam: "T2", CleanTeam: "Team Two", Competition: "CS2", LastUpdated: ts}, got[1])
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestPostgresStore_UpsertMatches(t *testing.T) {
	s, mock := newMockPostgresStore(t)

	mock.ExpectBegin()
	mock.ExpectExec(`CREATE TEMP TABLE`).WillReturnResult(pgxmock.NewResult("CREATE", 0))
	mock.ExpectCopyFrom(pgx.Identifier{"_tmp_upsert_matches"}, matchColumns).WillReturnResult(1)
	mock.ExpectExec(`INSERT INTO "matches" .* ON CONFLICT \("match_id", "game_name"\) DO UPDATE`).
		WillReturnResult(pgxmock.NewResult("INSERT", 1))
	mock.ExpectCommit()

	rec := model.MatchRecord{MatchID: "1", Competition: "CS2", MatchName: "m", TeamA: "a", TeamB: "b", OddsA: 1.5, OddsB: 2.5, MatchTime: ts, UpdatedAt: ts}
	n, err := s.UpsertMatches(context.Background(), []model.MatchRecord{rec, rec})
	require.NoError(t, err)
	assert.Equal(t, int64(1), n)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestPostgresStore_ListMatches(t *testing.T) {
	s, mock := newMockPostgresStore(t)

	mock.ExpectQuery(`SELECT match_id, game_name, match_name, match_time`).
		WithArgs("CS2", 100).
		WillReturnRows(pgxmock.NewRows([]string{"match_id", "game_name", "match_name", "match_time", "team_a", "team_b", "odds_a", "odds_b", "updated_at"}).
			AddRow("1", "CS2", "m", ts, "a", "b", 1.5, 2.5, ts))

	got, err := s.ListMatches(context.Background(), "CS2", 0)
	require.NoError(t, err)
	require.Len(t, got, 1)
	assert.Equal(t, "1", got[0].MatchID)
	assert.Equal(t, 2.5, got[0].OddsB)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestPostgresStore_Ping(t *testing.T) {
	s, mock := newMockPostgresStore(t)
	mock.ExpectExec(`SELECT 1`).WillReturnResult(pgxmock.NewResult("SELECT", 1))
	require.NoError(t, s.Ping(context.Background()))
	assert.NoError(t, mock.ExpectationsWereMet())
}
