package store

import (
	"context"
	"errors"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/rotisserie/eris"

	"github.com/sells-group/odds-cli/internal/db"
	"github.com/sells-group/odds-cli/internal/model"
)

// PostgresStore implements Store using pgxpool. All competitions share
// one database; game_name carries the scope.
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

	pgxCfg.MaxConns = 4
	pgxCfg.MinConns = 1
	if poolCfg != nil {
		if poolCfg.MaxConns > 0 {
			pgxCfg.MaxConns = poolCfg.MaxConns
		}
		if poolCfg.MinConns > 0 {
			pgxCfg.MinConns = poolCfg.MinConns
		}
	}
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
CREATE TABLE IF NOT EXISTS match_name_mapping (
	noisy_match_name TEXT NOT NULL,
	clean_match_name TEXT NOT NULL,
	game_name        TEXT NOT NULL,
	last_updated     TIMESTAMPTZ NOT NULL DEFAULT now(),
	PRIMARY KEY (noisy_match_name, game_name)
);

CREATE TABLE IF NOT EXISTS team_mapping (
	noisy_team   TEXT NOT NULL,
	clean_team   TEXT NOT NULL,
	game_name    TEXT NOT NULL,
	last_updated TIMESTAMPTZ NOT NULL DEFAULT now(),
	PRIMARY KEY (noisy_team, game_name)
);

CREATE TABLE IF NOT EXISTS matches (
	match_id   TEXT NOT NULL,
	game_name  TEXT NOT NULL,
	match_name TEXT NOT NULL,
	match_time TIMESTAMPTZ NOT NULL,
	team_a     TEXT NOT NULL,
	team_b     TEXT NOT NULL,
	odds_a     DOUBLE PRECISION NOT NULL,
	odds_b     DOUBLE PRECISION NOT NULL,
	updated_at TIMESTAMPTZ NOT NULL DEFAULT now(),
	PRIMARY KEY (match_id, game_name)
);

CREATE INDEX IF NOT EXISTS idx_matches_game_time ON matches(game_name, match_time DESC);
`

var matchColumns = []string{
	"match_id", "game_name", "match_name", "match_time",
	"team_a", "team_b", "odds_a", "odds_b", "updated_at",
}

func (s *PostgresStore) Ping(ctx context.Context) error {
	_, err := s.pool.Exec(ctx, "SELECT 1")
	return eris.Wrap(err, "postgres: ping")
}

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

func (s *PostgresStore) GetMatchMapping(ctx context.Context, noisyMatchName, competition string) (string, bool, error) {
	return s.lookup(ctx,
		`SELECT clean_match_name FROM match_name_mapping WHERE noisy_match_name = $1 AND game_name = $2`,
		noisyMatchName, competition)
}

func (s *PostgresStore) PutMatchMapping(ctx context.Context, noisyMatchName, cleanMatchName, competition string, ts time.Time) error {
	_, err := s.pool.Exec(ctx,
		`INSERT INTO match_name_mapping (noisy_match_name, clean_match_name, game_name, last_updated)
		 VALUES ($1, $2, $3, $4)
		 ON CONFLICT (noisy_match_name, game_name)
		 DO UPDATE SET clean_match_name = EXCLUDED.clean_match_name, last_updated = EXCLUDED.last_updated`,
		noisyMatchName, cleanMatchName, competition, ts.UTC(),
	)
	return eris.Wrapf(err, "postgres: put match mapping %s", noisyMatchName)
}

func (s *PostgresStore) ListMatchMappings(ctx context.Context, competition string) ([]model.MatchNameMapping, error) {
	rows, err := s.pool.Query(ctx,
		`SELECT noisy_match_name, clean_match_name, game_name, last_updated
		 FROM match_name_mapping WHERE game_name = $1 ORDER BY noisy_match_name`,
		competition,
	)
	if err != nil {
		return nil, eris.Wrap(err, "postgres: list match mappings")
	}
	defer rows.Close()

	var out []model.MatchNameMapping
	for rows.Next() {
		var m model.MatchNameMapping
		if err := rows.Scan(&m.NoisyMatchName, &m.CleanMatchName, &m.Competition, &m.LastUpdated); err != nil {
			return nil, eris.Wrap(err, "postgres: scan match mapping")
		}
		out = append(out, m)
	}
	return out, eris.Wrap(rows.Err(), "postgres: iterate match mappings")
}

func (s *PostgresStore) GetTeamMapping(ctx context.Context, noisyTeam, competition string) (string, bool, error) {
	return s.lookup(ctx,
		`SELECT clean_team FROM team_mapping WHERE noisy_team = $1 AND game_name = $2`,
		noisyTeam, competition)
}

func (s *PostgresStore) PutTeamMapping(ctx context.Context, noisyTeam, cleanTeam, competition string, ts time.Time) error {
	_, err := s.pool.Exec(ctx,
		`INSERT INTO team_mapping (noisy_team, clean_team, game_name, last_updated)
		 VALUES ($1, $2, $3, $4)
		 ON CONFLICT (noisy_team, game_name)
		 DO UPDATE SET clean_team = EXCLUDED.clean_team, last_updated = EXCLUDED.last_updated`,
		noisyTeam, cleanTeam, competition, ts.UTC(),
	)
	return eris.Wrapf(err, "postgres: put team mapping %s", noisyTeam)
}

func (s *PostgresStore) ListTeamMappings(ctx context.Context, competition string) ([]model.TeamMapping, error) {
	rows, err := s.pool.Query(ctx,
		`SELECT noisy_team, clean_team, game_name, last_updated
		 FROM team_mapping WHERE game_name = $1 ORDER BY noisy_team`,
		competition,
	)
	if err != nil {
		return nil, eris.Wrap(err, "postgres: list team mappings")
	}
	defer rows.Close()

	var out []model.TeamMapping
	for rows.Next() {
		var m model.TeamMapping
		if err := rows.Scan(&m.NoisyTeam, &m.CleanTeam, &m.Competition, &m.LastUpdated); err != nil {
			return nil, eris.Wrap(err, "postgres: scan team mapping")
		}
		out = append(out, m)
	}
	return out, eris.Wrap(rows.Err(), "postgres: iterate team mappings")
}

// UpsertMatches writes records with a single bulk upsert keyed by
// (match_id, game_name).
func (s *PostgresStore) UpsertMatches(ctx context.Context, records []model.MatchRecord) (int64, error) {
	records = dedupeRecords(records)
	rows := make([][]any, len(records))
	for i, r := range records {
		rows[i] = []any{
			r.MatchID, r.Competition, r.MatchName, r.MatchTime.UTC(),
			r.TeamA, r.TeamB, r.OddsA, r.OddsB, r.UpdatedAt.UTC(),
		}
	}

	n, err := db.BulkUpsert(ctx, s.pool, db.UpsertConfig{
		Table:        "matches",
		Columns:      matchColumns,
		ConflictKeys: []string{"match_id", "game_name"},
	}, rows)
	return n, eris.Wrap(err, "postgres: upsert matches")
}

func (s *PostgresStore) ListMatches(ctx context.Context, competition string, limit int) ([]model.MatchRecord, error) {
	if limit <= 0 {
		limit = 100
	}
	rows, err := s.pool.Query(ctx,
		`SELECT match_id, game_name, match_name, match_time, team_a, team_b, odds_a, odds_b, updated_at
		 FROM matches WHERE game_name = $1 ORDER BY match_time DESC, match_id LIMIT $2`,
		competition, limit,
	)
	if err != nil {
		return nil, eris.Wrap(err, "postgres: list matches")
	}
	defer rows.Close()

	var out []model.MatchRecord
	for rows.Next() {
		var r model.MatchRecord
		if err := rows.Scan(&r.MatchID, &r.Competition, &r.MatchName, &r.MatchTime,
			&r.TeamA, &r.TeamB, &r.OddsA, &r.OddsB, &r.UpdatedAt); err != nil {
			return nil, eris.Wrap(err, "postgres: scan match")
		}
		out = append(out, r)
	}
	return out, eris.Wrap(rows.Err(), "postgres: iterate matches")
}

func (s *PostgresStore) lookup(ctx context.Context, query string, args ...any) (string, bool, error) {
	var v string
	err := s.pool.QueryRow(ctx, query, args...).Scan(&v)
	if errors.Is(err, pgx.ErrNoRows) {
		return "", false, nil
	}
	if err != nil {
		return "", false, eris.Wrap(err, "postgres: lookup")
	}
	return v, true, nil
}
