// Package pipeline runs reconciliation cycles: fetch both sources, resolve
// identities, substitute names, persist and publish.
package pipeline

import (
	"context"
	"errors"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/rotisserie/eris"
	"go.uber.org/zap"

	"github.com/sells-group/odds-cli/internal/config"
	"github.com/sells-group/odds-cli/internal/metrics"
	"github.com/sells-group/odds-cli/internal/model"
	"github.com/sells-group/odds-cli/internal/publisher"
	"github.com/sells-group/odds-cli/internal/resolve"
	"github.com/sells-group/odds-cli/internal/store"
)

// ErrNoNoisyData means the noisy source produced nothing before the
// polling deadline. The competition is skipped for this cycle.
var ErrNoNoisyData = eris.New("pipeline: no noisy data")

// StatusSkipped marks a competition excluded by the skip list.
const StatusSkipped = "skipped"

// CleanSource supplies clean observations for a competition's pages.
type CleanSource interface {
	FetchCompetition(ctx context.Context, competition string, urls []string, force bool) ([]model.CleanObservation, error)
}

// NoisySource supplies OCR observations for a competition.
type NoisySource interface {
	Fetch(ctx context.Context, competition string) ([]model.RawObservation, error)
}

// Options tunes a Pipeline.
type Options struct {
	Force bool // bypass the clean page cache
	Clock func() time.Time
}

// Result summarises one competition's cycle.
type Result struct {
	RunID        string                  `json:"run_id"`
	Competition  string                  `json:"competition"`
	Status       string                  `json:"status"`
	Clean        int                     `json:"clean"`
	Noisy        int                     `json:"noisy"`
	Invalid      int                     `json:"invalid"`
	Resolution   resolve.BatchStats      `json:"resolution"`
	Substitution resolve.SubstituteStats `json:"substitution"`
	Attached     int                     `json:"attached"`
	Persisted    int64                   `json:"persisted"`
	Duration     time.Duration           `json:"duration"`
	Error        string                  `json:"error,omitempty"`
}

// Pipeline owns every dependency of a reconciliation cycle.
type Pipeline struct {
	cfg       *config.Config
	store     store.Store
	clean     CleanSource
	noisy     NoisySource
	resolver  *resolve.Resolver
	publisher publisher.Publisher
	metrics   *metrics.Manager
	force     bool
	now       func() time.Time

	// Cycles never overlap, whether started by the loop or on demand.
	mu sync.Mutex
}

// New creates a Pipeline. A nil publisher publishes nothing and a nil
// metrics manager records nothing.
func New(
	cfg *config.Config,
	st store.Store,
	clean CleanSource,
	noisy NoisySource,
	pub publisher.Publisher,
	m *metrics.Manager,
	opts Options,
) *Pipeline {
	if pub == nil {
		pub = publisher.Nop{}
	}
	if opts.Clock == nil {
		opts.Clock = time.Now
	}
	return &Pipeline{
		cfg:   cfg,
		store: st,
		clean: clean,
		noisy: noisy,
		resolver: resolve.NewResolver(st, resolve.Options{
			Threshold: cfg.Reconcile.SimilarityThreshold,
			MaxSkew:   cfg.Reconcile.MaxSkew,
			Clock:     opts.Clock,
		}),
		publisher: pub,
		metrics:   m,
		force:     opts.Force,
		now:       opts.Clock,
	}
}

// RunCompetition runs one reconciliation cycle for competition.
func (p *Pipeline) RunCompetition(ctx context.Context, competition string) (*Result, error) {
	p.mu.Lock()
	defer p.mu.Unlock()

	start := time.Now()
	res := &Result{RunID: uuid.NewString(), Competition: competition}
	log := zap.L().With(
		zap.String("component", "pipeline"),
		zap.String("competition", competition),
		zap.String("run_id", res.RunID),
	)
	log.Info("pipeline: starting cycle")

	err := p.run(ctx, log, res)
	res.Duration = time.Since(start)

	switch {
	case err == nil:
		res.Status = metrics.StatusOK
	case errors.Is(err, ErrNoNoisyData):
		res.Status = metrics.StatusNoNoisy
	default:
		res.Status = metrics.StatusError
	}
	if err != nil {
		res.Error = err.Error()
	}
	p.metrics.RecordCycle(competition, res.Status, res.Duration)

	log.Info("pipeline: cycle finished",
		zap.String("status", res.Status),
		zap.Int("clean", res.Clean),
		zap.Int("noisy", res.Noisy),
		zap.Int64("persisted", res.Persisted),
		zap.Duration("duration", res.Duration),
	)
	return res, err
}

func (p *Pipeline) run(ctx context.Context, log *zap.Logger, res *Result) error {
	comp := res.Competition

	clean := p.fetchClean(ctx, log, comp)
	res.Clean = len(clean)

	raw, err := p.pollNoisy(ctx, log, comp)
	if err != nil {
		return err
	}
	res.Noisy = len(raw)

	valid := make([]model.RawObservation, 0, len(raw))
	for _, o := range raw {
		if !o.Valid() {
			res.Invalid++
			continue
		}
		valid = append(valid, o)
	}
	p.metrics.RecordDropped(comp, metrics.ReasonInvalid, res.Invalid)
	if res.Invalid > 0 {
		log.Debug("pipeline: filtered malformed observations", zap.Int("invalid", res.Invalid))
	}
	if len(valid) == 0 {
		return eris.Wrapf(ErrNoNoisyData, "pipeline: %s has no valid observations", comp)
	}

	stats, err := p.resolver.ResolveBatch(ctx, comp, valid, clean)
	res.Resolution = stats
	if err != nil {
		return eris.Wrap(err, "pipeline: resolve")
	}
	p.metrics.RecordResolutions(comp, string(resolve.KindMapped), stats.Mapped)
	p.metrics.RecordResolutions(comp, string(resolve.KindCreated), stats.Created)
	p.metrics.RecordResolutions(comp, string(resolve.KindUngrounded), stats.Ungrounded)

	substituted, subStats, err := resolve.Substitute(ctx, p.store, comp, valid)
	res.Substitution = subStats
	if err != nil {
		return eris.Wrap(err, "pipeline: substitute")
	}
	p.metrics.RecordDropped(comp, metrics.ReasonUnmapped, subStats.Dropped)

	res.Attached = p.attachCleanIDs(substituted, clean)

	now := p.now()
	records := make([]model.MatchRecord, 0, len(substituted))
	for _, o := range substituted {
		records = append(records, model.RecordFromObservation(comp, o, now))
	}

	n, err := p.store.UpsertMatches(ctx, records)
	if err != nil {
		return eris.Wrap(err, "pipeline: persist matches")
	}
	res.Persisted = n
	p.metrics.RecordPersisted(comp, int(n))

	if err := p.publisher.Publish(ctx, res.RunID, comp, records); err != nil {
		log.Warn("pipeline: publish failed", zap.Error(err))
	}
	return nil
}

// attachCleanIDs gives substituted observations that still lack a clean
// match id the id of the closest clean match with the same two teams. The
// resolver only attaches ids on first sight, so without this a mapped
// match would be persisted under its fallback id on later cycles.
func (p *Pipeline) attachCleanIDs(observations []model.RawObservation, clean []model.CleanObservation) int {
	var n int
	for i := range observations {
		obs := &observations[i]
		if obs.MatchID != "" {
			continue
		}
		var candidates []model.CleanObservation
		for _, c := range clean {
			if (c.TeamA == obs.TeamA && c.TeamB == obs.TeamB) || (c.TeamA == obs.TeamB && c.TeamB == obs.TeamA) {
				candidates = append(candidates, c)
			}
		}
		if match, ok := resolve.SelectClosest(obs.Time, candidates, p.cfg.Reconcile.MaxSkew); ok {
			obs.MatchID = match.MatchID
			n++
		}
	}
	return n
}

// fetchClean never fails the cycle. Without clean data every new noisy
// name resolves as ungrounded.
func (p *Pipeline) fetchClean(ctx context.Context, log *zap.Logger, competition string) []model.CleanObservation {
	if p.clean == nil {
		return nil
	}
	comp, ok := p.cfg.Competition(competition)
	if !ok || len(comp.URLs) == 0 {
		log.Debug("pipeline: no clean source urls configured")
		return nil
	}

	clean, err := p.clean.FetchCompetition(ctx, competition, comp.URLs, p.force)
	if err != nil {
		log.Warn("pipeline: clean fetch failed, continuing with noisy data only", zap.Error(err))
		return nil
	}
	return clean
}

// pollNoisy asks the noisy source for data every poll interval until it
// returns something or the noisy timeout passes.
func (p *Pipeline) pollNoisy(ctx context.Context, log *zap.Logger, competition string) ([]model.RawObservation, error) {
	timeout := p.cfg.Reconcile.NoisyTimeout
	if timeout <= 0 {
		timeout = 60 * time.Second
	}
	interval := p.cfg.Reconcile.PollInterval
	if interval <= 0 {
		interval = time.Second
	}

	deadline := time.NewTimer(timeout)
	defer deadline.Stop()
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		obs, err := p.noisy.Fetch(ctx, competition)
		switch {
		case err != nil:
			log.Warn("pipeline: noisy fetch failed", zap.Error(err))
		case len(obs) > 0:
			return obs, nil
		}

		select {
		case <-ctx.Done():
			return nil, ctx.Err()
		case <-deadline.C:
			log.Warn("pipeline: no noisy data before timeout", zap.Duration("timeout", timeout))
			return nil, eris.Wrapf(ErrNoNoisyData, "pipeline: %s after %s", competition, timeout)
		case <-ticker.C:
		}
	}
}
