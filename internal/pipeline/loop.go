package pipeline

import (
	"context"
	"errors"
	"slices"
	"time"

	"go.uber.org/zap"
)

// RunAll runs competitions one after another. Competitions named in skip
// are reported as skipped. A failing competition is logged and does not
// stop the others; only cancellation of ctx ends the run early.
func (p *Pipeline) RunAll(ctx context.Context, competitions, skip []string) []*Result {
	log := zap.L().With(zap.String("component", "pipeline"))
	results := make([]*Result, 0, len(competitions))

	for _, comp := range competitions {
		if ctx.Err() != nil {
			break
		}
		if slices.Contains(skip, comp) {
			log.Info("pipeline: skipping competition", zap.String("competition", comp))
			results = append(results, &Result{Competition: comp, Status: StatusSkipped})
			continue
		}

		res, err := p.RunCompetition(ctx, comp)
		if err != nil && !errors.Is(err, ErrNoNoisyData) && !errors.Is(err, context.Canceled) {
			log.Error("pipeline: competition failed", zap.String("competition", comp), zap.Error(err))
		}
		results = append(results, res)
	}
	return results
}

// Loop runs every configured competition, then again every interval, until
// ctx is cancelled.
func (p *Pipeline) Loop(ctx context.Context, interval time.Duration) error {
	if interval <= 0 {
		interval = p.cfg.Reconcile.LoopInterval
	}
	if interval <= 0 {
		interval = 5 * time.Minute
	}

	log := zap.L().With(zap.String("component", "pipeline.loop"))
	log.Info("starting reconcile loop",
		zap.Duration("interval", interval),
		zap.Strings("competitions", p.cfg.CompetitionNames()),
	)

	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		p.RunAll(ctx, p.cfg.CompetitionNames(), p.cfg.Fetch.Skip)

		select {
		case <-ctx.Done():
			log.Info("reconcile loop stopped")
			return nil
		case <-ticker.C:
		}
	}
}
