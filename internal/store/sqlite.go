package store

import (
	"context"
	"database/sql"
	"errors"
	"time"

	"github.com/rotisserie/eris"
	_ "modernc.org/sqlite"

	"github.com/sells-group/odds-cli/internal/model"
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
			db.Close()
			return nil, eris.Wrapf(err, "sqlite: exec %s", pragma)
		}
	}
	return &SQLiteStore{db: db}, nil
}

const sqliteMigration = `
CREATE TABLE IF NOT EXISTS match_name_mapping (
	noisy_match_name TEXT NOT NULL,
	clean_match_name TEXT NOT NULL,
	game_name        TEXT NOT NULL,
	last_updated     DATETIME NOT NULL,
	PRIMARY KEY (noisy_match_name, game_name)
);

CREATE TABLE IF NOT EXISTS team_mapping (
	noisy_team   TEXT NOT NULL,
	clean_team   TEXT NOT NULL,
	game_name    TEXT NOT NULL,
	last_updated DATETIME NOT NULL,
	PRIMARY KEY (noisy_team, game_name)
);

CREATE TABLE IF NOT EXISTS matches (
	match_id   TEXT NOT NULL,
	game_name  TEXT NOT NULL,
	match_name TEXT NOT NULL,
	match_time DATETIME NOT NULL,
	team_a     TEXT NOT NULL,
	team_b     TEXT NOT NULL,
	odds_a     REAL NOT NULL,
	odds_b     REAL NOT NULL,
	updated_at DATETIME NOT NULL,
	PRIMARY KEY (match_id, game_name)
);

CREATE INDEX IF NOT EXISTS idx_matches_game_time ON matches(game_name, match_time);
`

func (s *SQLiteStore) Migrate(ctx context.Context) error {
	_, err := s.db.ExecContext(ctx, sqliteMigration)
	return eris.Wrap(err, "sqlite: migrate")
}

func (s *SQLiteStore) Ping(ctx context.Context) error {
	return eris.Wrap(s.db.PingContext(ctx), "sqlite: ping")
}

func (s *SQLiteStore) Close() error {
	return s.db.Close()
}

func (s *SQLiteStore) GetMatchMapping(ctx context.Context, noisyMatchName, competition string) (string, bool, error) {
	return s.lookup(ctx,
		`SELECT clean_match_name FROM match_name_mapping WHERE noisy_match_name = ? AND game_name = ?`,
		noisyMatchName, competition)
}

func (s *SQLiteStore) PutMatchMapping(ctx context.Context, noisyMatchName, cleanMatchName, competition string, ts time.Time) error {
	_, err := s.db.ExecContext(ctx,
		`INSERT INTO match_name_mapping (noisy_match_name, clean_match_name, game_name, last_updated)
		 VALUES (?, ?, ?, ?)
		 ON CONFLICT (noisy_match_name, game_name)
		 DO UPDATE SET clean_match_name = excluded.clean_match_name, last_updated = excluded.last_updated`,
		noisyMatchName, cleanMatchName, competition, ts.UTC(),
	)
	return eris.Wrapf(err, "sqlite: put match mapping %s", noisyMatchName)
}

func (s *SQLiteStore) ListMatchMappings(ctx context.Context, competition string) ([]model.MatchNameMapping, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT noisy_match_name, clean_match_name, game_name, last_updated
		 FROM match_name_mapping WHERE game_name = ? ORDER BY noisy_match_name`,
		competition,
	)
	if err != nil {
		return nil, eris.Wrap(err, "sqlite: list match mappings")
	}
	defer rows.Close()

	var out []model.MatchNameMapping
	for rows.Next() {
		var m model.MatchNameMapping
		if err := rows.Scan(&m.NoisyMatchName, &m.CleanMatchName, &m.Competition, &m.LastUpdated); err != nil {
			return nil, eris.Wrap(err, "sqlite: scan match mapping")
		}
		m.LastUpdated = m.LastUpdated.UTC()
		out = append(out, m)
	}
	return out, eris.Wrap(rows.Err(), "sqlite: iterate match mappings")
}

func (s *SQLiteStore) GetTeamMapping(ctx context.Context, noisyTeam, competition string) (string, bool, error) {
	return s.lookup(ctx,
		`SELECT clean_team FROM team_mapping WHERE noisy_team = ? AND game_name = ?`,
		noisyTeam, competition)
}

func (s *SQLiteStore) PutTeamMapping(ctx context.Context, noisyTeam, cleanTeam, competition string, ts time.Time) error {
	_, err := s.db.ExecContext(ctx,
		`INSERT INTO team_mapping (noisy_team, clean_team, game_name, last_updated)
		 VALUES (?, ?, ?, ?)
		 ON CONFLICT (noisy_team, game_name)
		 DO UPDATE SET clean_team = excluded.clean_team, last_updated = excluded.last_updated`,
		noisyTeam, cleanTeam, competition, ts.UTC(),
	)
	return eris.Wrapf(err, "sqlite: put team mapping %s", noisyTeam)
}

func (s *SQLiteStore) ListTeamMappings(ctx context.Context, competition string) ([]model.TeamMapping, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT noisy_team, clean_team, game_name, last_updated
		 FROM team_mapping WHERE game_name = ? ORDER BY noisy_team`,
		competition,
	)
	if err != nil {
		return nil, eris.Wrap(err, "sqlite: list team mappings")
	}
	defer rows.Close()

	var out []model.TeamMapping
	for rows.Next() {
		var m model.TeamMapping
		if err := rows.Scan(&m.NoisyTeam, &m.CleanTeam, &m.Competition, &m.LastUpdated); err != nil {
			return nil, eris.Wrap(err, "sqlite: scan team mapping")
		}
		m.LastUpdated = m.LastUpdated.UTC()
		out = append(out, m)
	}
	return out, eris.Wrap(rows.Err(), "sqlite: iterate team mappings")
}

func (s *SQLiteStore) UpsertMatches(ctx context.Context, records []model.MatchRecord) (int64, error) {
	if len(records) == 0 {
		return 0, nil
	}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return 0, eris.Wrap(err, "sqlite: begin upsert matches")
	}
	defer tx.Rollback() //nolint:errcheck

	stmt, err := tx.PrepareContext(ctx,
		`INSERT INTO matches (match_id, game_name, match_name, match_time, team_a, team_b, odds_a, odds_b, updated_at)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)
		 ON CONFLICT (match_id, game_name) DO UPDATE SET
			match_name = excluded.match_name,
			match_time = excluded.match_time,
			team_a     = excluded.team_a,
			team_b     = excluded.team_b,
			odds_a     = excluded.odds_a,
			odds_b     = excluded.odds_b,
			updated_at = excluded.updated_at`,
	)
	if err != nil {
		return 0, eris.Wrap(err, "sqlite: prepare upsert matches")
	}
	defer stmt.Close()

	var n int64
	for _, r := range records {
		res, err := stmt.ExecContext(ctx,
			r.MatchID, r.Competition, r.MatchName, r.MatchTime.UTC(),
			r.TeamA, r.TeamB, r.OddsA, r.OddsB, r.UpdatedAt.UTC(),
		)
		if err != nil {
			return 0, eris.Wrapf(err, "sqlite: upsert match %s", r.MatchID)
		}
		affected, _ := res.RowsAffected()
		n += affected
	}

	if err := tx.Commit(); err != nil {
		return 0, eris.Wrap(err, "sqlite: commit upsert matches")
	}
	return n, nil
}

func (s *SQLiteStore) ListMatches(ctx context.Context, competition string, limit int) ([]model.MatchRecord, error) {
	if limit <= 0 {
		limit = 100
	}
	rows, err := s.db.QueryContext(ctx,
		`SELECT match_id, game_name, match_name, match_time, team_a, team_b, odds_a, odds_b, updated_at
		 FROM matches WHERE game_name = ? ORDER BY match_time DESC, match_id LIMIT ?`,
		competition, limit,
	)
	if err != nil {
		return nil, eris.Wrap(err, "sqlite: list matches")
	}
	defer rows.Close()

	var out []model.MatchRecord
	for rows.Next() {
		var r model.MatchRecord
		if err := rows.Scan(&r.MatchID, &r.Competition, &r.MatchName, &r.MatchTime,
			&r.TeamA, &r.TeamB, &r.OddsA, &r.OddsB, &r.UpdatedAt); err != nil {
			return nil, eris.Wrap(err, "sqlite: scan match")
		}
		r.MatchTime = r.MatchTime.UTC()
		r.UpdatedAt = r.UpdatedAt.UTC()
		out = append(out, r)
	}
	return out, eris.Wrap(rows.Err(), "sqlite: iterate matches")
}

// lookup returns the single string column selected by query, with found
// false on no rows.
func (s *SQLiteStore) lookup(ctx context.Context, query string, args ...any) (string, bool, error) {
	var v string
	err := s.db.QueryRowContext(ctx, query, args...).Scan(&v)
	if errors.Is(err, sql.ErrNoRows) {
		return "", false, nil
	}
	if err != nil {
		return "", false, eris.Wrap(err, "sqlite: lookup")
	}
	return v, true, nil
}
