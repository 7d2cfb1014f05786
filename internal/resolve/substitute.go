package resolve

import (
	"context"

	"github.com/rotisserie/eris"
	"go.uber.org/zap"

	"github.com/sells-group/odds-cli/internal/model"
)

// MappingReader is the read side of the mapping store.
type MappingReader interface {
	GetMatchMapping(ctx context.Context, noisyMatchName, competition string) (string, bool, error)
	GetTeamMapping(ctx context.Context, noisyTeam, competition string) (string, bool, error)
}

// SubstituteStats counts what the substitution pass did.
type SubstituteStats struct {
	Kept          int
	Dropped       int
	TeamsReplaced int
}

// Substitute rewrites observations using established mappings only.
// Observations whose match name has no mapping are dropped; team names
// are replaced independently when a mapping exists. The input slice is
// not modified.
func Substitute(ctx context.Context, store MappingReader, competition string, observations []model.RawObservation) ([]model.RawObservation, SubstituteStats, error) {
	log := zap.L().With(zap.String("component", "substitute"), zap.String("competition", competition))

	var stats SubstituteStats
	out := make([]model.RawObservation, 0, len(observations))

	for _, obs := range observations {
		clean, found, err := store.GetMatchMapping(ctx, obs.MatchName, competition)
		if err != nil {
			return nil, stats, eris.Wrapf(err, "substitute: get match mapping %q", obs.MatchName)
		}
		if !found {
			stats.Dropped++
			log.Info("dropping unmapped match", zap.String("noisy_match", obs.MatchName))
			continue
		}

		log.Debug("substituted match name", zap.String("noisy_match", obs.MatchName), zap.String("clean_match", clean))
		obs.MatchName = clean

		for _, team := range []*string{&obs.TeamA, &obs.TeamB} {
			mapped, ok, err := store.GetTeamMapping(ctx, *team, competition)
			if err != nil {
				return nil, stats, eris.Wrapf(err, "substitute: get team mapping %q", *team)
			}
			if !ok {
				continue
			}
			log.Debug("substituted team", zap.String("noisy_team", *team), zap.String("clean_team", mapped))
			*team = mapped
			stats.TeamsReplaced++
		}

		out = append(out, obs)
		stats.Kept++
	}
	return out, stats, nil
}
