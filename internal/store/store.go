package store

import (
	"context"
	"time"

	"github.com/sells-group/odds-cli/internal/model"
)

// Store defines persistence for name mappings and reconciled matches.
// Every mapping is scoped to a competition.
type Store interface {
	// Match-name mappings
	GetMatchMapping(ctx context.Context, noisyMatchName, competition string) (string, bool, error)
	PutMatchMapping(ctx context.Context, noisyMatchName, cleanMatchName, competition string, ts time.Time) error
	ListMatchMappings(ctx context.Context, competition string) ([]model.MatchNameMapping, error)

	// Team mappings
	GetTeamMapping(ctx context.Context, noisyTeam, competition string) (string, bool, error)
	PutTeamMapping(ctx context.Context, noisyTeam, cleanTeam, competition string, ts time.Time) error
	ListTeamMappings(ctx context.Context, competition string) ([]model.TeamMapping, error)

	// Reconciled matches
	UpsertMatches(ctx context.Context, records []model.MatchRecord) (int64, error)
	ListMatches(ctx context.Context, competition string, limit int) ([]model.MatchRecord, error)

	// Lifecycle
	Ping(ctx context.Context) error
	Migrate(ctx context.Context) error
	Close() error
}

// dedupeRecords keeps the last record for each (competition, match id).
func dedupeRecords(records []model.MatchRecord) []model.MatchRecord {
	type k struct{ id, comp string }
	idx := make(map[k]int, len(records))
	out := make([]model.MatchRecord, 0, len(records))
	for _, r := range records {
		key := k{r.MatchID, r.Competition}
		if i, ok := idx[key]; ok {
			out[i] = r
			continue
		}
		idx[key] = len(out)
		out = append(out, r)
	}
	return out
}
