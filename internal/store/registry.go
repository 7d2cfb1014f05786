package store

import (
	"context"
	"os"
	"path/filepath"
	"sort"
	"sync"
	"time"

	"github.com/rotisserie/eris"
	"go.uber.org/zap"

	"github.com/sells-group/odds-cli/internal/model"
)

// SQLiteRegistry implements Store over one SQLite file per competition,
// laid out as <dataDir>/<competition>/mappings.db. Files are opened and
// migrated on first use.
type SQLiteRegistry struct {
	dataDir string

	mu     sync.Mutex
	stores map[string]*SQLiteStore
}

// NewSQLiteRegistry creates a registry rooted at dataDir.
func NewSQLiteRegistry(dataDir string) *SQLiteRegistry {
	return &SQLiteRegistry{dataDir: dataDir, stores: make(map[string]*SQLiteStore)}
}

// Path returns the database file used for competition.
func (r *SQLiteRegistry) Path(competition string) string {
	return filepath.Join(r.dataDir, model.SafeName(competition), "mappings.db")
}

// For returns the migrated store for competition, opening it if needed.
func (r *SQLiteRegistry) For(ctx context.Context, competition string) (*SQLiteStore, error) {
	if competition == "" {
		return nil, eris.New("sqlite: empty competition")
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	if s, ok := r.stores[competition]; ok {
		return s, nil
	}

	path := r.Path(competition)
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return nil, eris.Wrapf(err, "sqlite: create dir for %s", competition)
	}
	s, err := NewSQLite(path)
	if err != nil {
		return nil, err
	}
	if err := s.Migrate(ctx); err != nil {
		s.Close()
		return nil, err
	}

	zap.L().Debug("opened competition store",
		zap.String("component", "store"),
		zap.String("competition", competition),
		zap.String("path", path),
	)
	r.stores[competition] = s
	return s, nil
}

func (r *SQLiteRegistry) GetMatchMapping(ctx context.Context, noisyMatchName, competition string) (string, bool, error) {
	s, err := r.For(ctx, competition)
	if err != nil {
		return "", false, err
	}
	return s.GetMatchMapping(ctx, noisyMatchName, competition)
}

func (r *SQLiteRegistry) PutMatchMapping(ctx context.Context, noisyMatchName, cleanMatchName, competition string, ts time.Time) error {
	s, err := r.For(ctx, competition)
	if err != nil {
		return err
	}
	return s.PutMatchMapping(ctx, noisyMatchName, cleanMatchName, competition, ts)
}

func (r *SQLiteRegistry) ListMatchMappings(ctx context.Context, competition string) ([]model.MatchNameMapping, error) {
	s, err := r.For(ctx, competition)
	if err != nil {
		return nil, err
	}
	return s.ListMatchMappings(ctx, competition)
}

func (r *SQLiteRegistry) GetTeamMapping(ctx context.Context, noisyTeam, competition string) (string, bool, error) {
	s, err := r.For(ctx, competition)
	if err != nil {
		return "", false, err
	}
	return s.GetTeamMapping(ctx, noisyTeam, competition)
}

func (r *SQLiteRegistry) PutTeamMapping(ctx context.Context, noisyTeam, cleanTeam, competition string, ts time.Time) error {
	s, err := r.For(ctx, competition)
	if err != nil {
		return err
	}
	return s.PutTeamMapping(ctx, noisyTeam, cleanTeam, competition, ts)
}

func (r *SQLiteRegistry) ListTeamMappings(ctx context.Context, competition string) ([]model.TeamMapping, error) {
	s, err := r.For(ctx, competition)
	if err != nil {
		return nil, err
	}
	return s.ListTeamMappings(ctx, competition)
}

// UpsertMatches routes each record to its competition's file.
func (r *SQLiteRegistry) UpsertMatches(ctx context.Context, records []model.MatchRecord) (int64, error) {
	byComp := make(map[string][]model.MatchRecord)
	for _, rec := range records {
		byComp[rec.Competition] = append(byComp[rec.Competition], rec)
	}

	comps := make([]string, 0, len(byComp))
	for c := range byComp {
		comps = append(comps, c)
	}
	sort.Strings(comps)

	var total int64
	for _, c := range comps {
		s, err := r.For(ctx, c)
		if err != nil {
			return total, err
		}
		n, err := s.UpsertMatches(ctx, byComp[c])
		if err != nil {
			return total, err
		}
		total += n
	}
	return total, nil
}

func (r *SQLiteRegistry) ListMatches(ctx context.Context, competition string, limit int) ([]model.MatchRecord, error) {
	s, err := r.For(ctx, competition)
	if err != nil {
		return nil, err
	}
	return s.ListMatches(ctx, competition, limit)
}

// Ping pings every open competition store.
func (r *SQLiteRegistry) Ping(ctx context.Context) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	for comp, s := range r.stores {
		if err := s.Ping(ctx); err != nil {
			return eris.Wrapf(err, "sqlite: ping %s", comp)
		}
	}
	return nil
}

// Migrate migrates every open competition store. Stores opened later are
// migrated by For.
func (r *SQLiteRegistry) Migrate(ctx context.Context) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, s := range r.stores {
		if err := s.Migrate(ctx); err != nil {
			return err
		}
	}
	return nil
}

// Close closes every open competition store.
func (r *SQLiteRegistry) Close() error {
	r.mu.Lock()
	defer r.mu.Unlock()

	var first error
	for comp, s := range r.stores {
		if err := s.Close(); err != nil && first == nil {
			first = eris.Wrapf(err, "sqlite: close %s", comp)
		}
		delete(r.stores, comp)
	}
	return first
}
