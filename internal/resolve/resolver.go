package resolve

import (
	"context"
	"time"

	"github.com/rotisserie/eris"
	"go.uber.org/zap"

	"github.com/sells-group/odds-cli/internal/model"
)

// MappingStore is the subset of the store the resolver reads and writes.
type MappingStore interface {
	GetMatchMapping(ctx context.Context, noisyMatchName, competition string) (string, bool, error)
	PutMatchMapping(ctx context.Context, noisyMatchName, cleanMatchName, competition string, ts time.Time) error
	GetTeamMapping(ctx context.Context, noisyTeam, competition string) (string, bool, error)
	PutTeamMapping(ctx context.Context, noisyTeam, cleanTeam, competition string, ts time.Time) error
}

// Kind is the outcome of resolving one noisy match name.
type Kind string

const (
	// KindMapped means a mapping already existed and was left untouched.
	KindMapped Kind = "mapped"
	// KindCreated means a new mapping to a clean match name was written.
	KindCreated Kind = "created"
	// KindUngrounded means no clean data existed; the name maps to itself.
	KindUngrounded Kind = "ungrounded"
)

// Resolution describes what Resolve decided for one observation.
type Resolution struct {
	Kind           Kind
	CleanMatchName string
	MatchID        string // clean-source id, set only when both teams matched
	TeamsMapped    int
	Swapped        bool
}

// Options tunes a Resolver. Zero values select the defaults.
type Options struct {
	Threshold float64
	MaxSkew   time.Duration
	Clock     func() time.Time
}

// Resolver establishes match-name and team mappings for noisy observations.
type Resolver struct {
	store     MappingStore
	threshold float64
	maxSkew   time.Duration
	now       func() time.Time
	log       *zap.Logger
}

// NewResolver creates a Resolver backed by the given store.
func NewResolver(store MappingStore, opts Options) *Resolver {
	r := &Resolver{
		store:     store,
		threshold: opts.Threshold,
		maxSkew:   opts.MaxSkew,
		now:       opts.Clock,
		log:       zap.L().With(zap.String("component", "resolve")),
	}
	if r.threshold <= 0 {
		r.threshold = DefaultThreshold
	}
	if r.maxSkew <= 0 {
		r.maxSkew = DefaultMaxSkew
	}
	if r.now == nil {
		r.now = time.Now
	}
	return r
}

// Resolve maps obs.MatchName within competition. An existing mapping is
// ground truth and is never re-derived. On first sight the name is mapped
// to the most recent clean match name, and the teams of the temporally
// closest clean match are mapped when they fuzzy-match. When both teams
// match, the clean match id is attached to obs.
func (r *Resolver) Resolve(ctx context.Context, competition string, obs *model.RawObservation, clean []model.CleanObservation) (Resolution, error) {
	log := r.log.With(zap.String("competition", competition), zap.String("noisy_match", obs.MatchName))

	existing, found, err := r.store.GetMatchMapping(ctx, obs.MatchName, competition)
	if err != nil {
		return Resolution{}, eris.Wrapf(err, "resolve: get match mapping %q", obs.MatchName)
	}
	if found {
		log.Debug("match mapping exists", zap.String("clean_match", existing))
		return Resolution{Kind: KindMapped, CleanMatchName: existing}, nil
	}

	ts := r.now()

	head, ok := latest(clean)
	if !ok {
		if err := r.store.PutMatchMapping(ctx, obs.MatchName, obs.MatchName, competition, ts); err != nil {
			return Resolution{}, eris.Wrapf(err, "resolve: put self mapping %q", obs.MatchName)
		}
		log.Warn("no clean observations, mapped match name to itself")
		return Resolution{Kind: KindUngrounded, CleanMatchName: obs.MatchName}, nil
	}

	if err := r.store.PutMatchMapping(ctx, obs.MatchName, head.MatchName, competition, ts); err != nil {
		return Resolution{}, eris.Wrapf(err, "resolve: put match mapping %q", obs.MatchName)
	}
	log.Info("created match mapping", zap.String("clean_match", head.MatchName))

	res := Resolution{Kind: KindCreated, CleanMatchName: head.MatchName}

	closest, ok := SelectClosest(obs.Time, clean, r.maxSkew)
	if !ok {
		log.Info("no clean match within skew, skipping team mapping",
			zap.Time("noisy_time", obs.Time),
			zap.Duration("max_skew", r.maxSkew),
		)
		return res, nil
	}

	a := PairTeams(obs.TeamA, obs.TeamB, closest.TeamA, closest.TeamB, r.threshold)
	res.Swapped = a.Swapped
	for _, p := range a.Pairs {
		if !p.Matched {
			log.Debug("team did not match",
				zap.String("noisy_team", p.Noisy),
				zap.String("clean_team", p.Clean),
				zap.Float64("score", p.Score),
			)
			continue
		}
		if err := r.store.PutTeamMapping(ctx, p.Noisy, p.Clean, competition, ts); err != nil {
			return Resolution{}, eris.Wrapf(err, "resolve: put team mapping %q", p.Noisy)
		}
		res.TeamsMapped++
		log.Info("mapped team",
			zap.String("noisy_team", p.Noisy),
			zap.String("clean_team", p.Clean),
			zap.Float64("score", p.Score),
			zap.Bool("swapped", a.Swapped),
		)
	}

	if a.Complete() && closest.MatchID != "" {
		obs.MatchID = closest.MatchID
		res.MatchID = closest.MatchID
		log.Info("attached clean match id", zap.String("match_id", closest.MatchID))
	}
	return res, nil
}

// BatchStats counts resolution outcomes for one batch.
type BatchStats struct {
	Mapped      int
	Created     int
	Ungrounded  int
	TeamsMapped int
	IDsAttached int
}

// ResolveBatch resolves every observation in order, mutating observations
// in place to attach clean match ids. Only an observation that created its
// mapping gets an id here: noisy match names are tournament labels shared
// by many matches, so a later observation under the same name is left for
// id attachment by teams and time. The first store error aborts the batch.
func (r *Resolver) ResolveBatch(ctx context.Context, competition string, observations []model.RawObservation, clean []model.CleanObservation) (BatchStats, error) {
	var stats BatchStats

	for i := range observations {
		obs := &observations[i]
		res, err := r.Resolve(ctx, competition, obs, clean)
		if err != nil {
			return stats, err
		}

		switch res.Kind {
		case KindMapped:
			stats.Mapped++
		case KindCreated:
			stats.Created++
		case KindUngrounded:
			stats.Ungrounded++
		}
		stats.TeamsMapped += res.TeamsMapped
		if res.MatchID != "" {
			stats.IDsAttached++
		}
	}
	return stats, nil
}
