package db

import (
	"context"
	"fmt"
	"testing"

	"github.com/jackc/pgx/v5"
	"github.com/pashagolub/pgxmock/v4"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var matchCfg = UpsertConfig{
	Table:        "matches",
	Columns:      []string{"match_id", "game_name", "odds_a"},
	ConflictKeys: []string{"match_id", "game_name"},
}

func newMock(t *testing.T) pgxmock.PgxPoolIface {
	t.Helper()
	mock, err := pgxmock.NewPool(pgxmock.QueryMatcherOption(pgxmock.QueryMatcherRegexp))
	require.NoError(t, err)
	t.Cleanup(func() { mock.Close() })
	return mock
}

func TestBulkUpsert_EmptyRows(t *testing.T) {
	n, err := BulkUpsert(context.Background(), nil, matchCfg, nil)
	assert.NoError(t, err)
	assert.Equal(t, int64(0), n)
}

func TestBulkUpsert_NoColumns(t *testing.T) {
	_, err := BulkUpsert(context.Background(), nil, UpsertConfig{
		Table:        "matches",
		ConflictKeys: []string{"match_id"},
	}, [][]any{{1}})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "no columns specified")
}

func TestBulkUpsert_NoConflictKeys(t *testing.T) {
	_, err := BulkUpsert(context.Background(), nil, UpsertConfig{
		Table:   "matches",
		Columns: []string{"match_id"},
	}, [][]any{{1}})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "no conflict keys specified")
}

func TestBulkUpsert_Success(t *testing.T) {
	mock := newMock(t)

	mock.ExpectBegin()
	mock.ExpectExec(`CREATE TEMP TABLE "_tmp_upsert_matches" \(LIKE "matches" INCLUDING DEFAULTS\)`).
		WillReturnResult(pgxmock.NewResult("CREATE", 0))
	mock.ExpectCopyFrom(pgx.Identifier{"_tmp_upsert_matches"}, matchCfg.Columns).WillReturnResult(2)
	mock.ExpectExec(`INSERT INTO "matches" .* ON CONFLICT \("match_id", "game_name"\) DO UPDATE SET "odds_a" = EXCLUDED."odds_a"`).
		WillReturnResult(pgxmock.NewResult("INSERT", 2))
	mock.ExpectCommit()

	n, err := BulkUpsert(context.Background(), mock, matchCfg, [][]any{{"1", "CS2", 1.5}, {"2", "CS2", 2.5}})
	require.NoError(t, err)
	assert.Equal(t, int64(2), n)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestBulkUpsert_CopyErrorRollsBack(t *testing.T) {
	mock := newMock(t)

	mock.ExpectBegin()
	mock.ExpectExec(`CREATE TEMP TABLE`).WillReturnResult(pgxmock.NewResult("CREATE", 0))
	mock.ExpectCopyFrom(pgx.Identifier{"_tmp_upsert_matches"}, matchCfg.Columns).WillReturnError(fmt.Errorf("copy failed"))
	mock.ExpectRollback()

	_, err := BulkUpsert(context.Background(), mock, matchCfg, [][]any{{"1", "CS2", 1.5}})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "copy into temp table for matches")
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestMergeSQL_DoNothingWhenOnlyKeys(t *testing.T) {
	sql := mergeSQL("_tmp", UpsertConfig{Table: "t", Columns: []string{"id"}, ConflictKeys: []string{"id"}})
	assert.Equal(t, `INSERT INTO "t" ("id") SELECT "id" FROM "_tmp" ON CONFLICT ("id") DO NOTHING`, sql)
}

func TestMergeSQL_ExplicitUpdateCols(t *testing.T) {
	sql := mergeSQL("_tmp", UpsertConfig{
		Table:        "odds.matches",
		Columns:      []string{"id", "a", "b"},
		ConflictKeys: []string{"id"},
		UpdateCols:   []string{"b"},
	})
	assert.Equal(t, `INSERT INTO "odds"."matches" ("id", "a", "b") SELECT "id", "a", "b" FROM "_tmp" ON CONFLICT ("id") DO UPDATE SET "b" = EXCLUDED."b"`, sql)
}

func TestSanitizeTable(t *testing.T) {
	assert.Equal(t, `"simple"`, sanitizeTable("simple"))
	assert.Equal(t, `"odds"."matches"`, sanitizeTable("odds.matches"))
}
