// Package scrape collects clean odds from the reference website.
package scrape

import (
	"context"
	"errors"
	"sync"
	"time"

	"github.com/rotisserie/eris"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"
	"golang.org/x/time/rate"

	"github.com/sells-group/odds-cli/internal/cache"
	"github.com/sells-group/odds-cli/internal/model"
	"github.com/sells-group/odds-cli/internal/resilience"
)

// ClientConfig tunes a Client.
type ClientConfig struct {
	RatePerMinute int
	Concurrency   int
	Retry         resilience.RetryConfig
	Clock         func() time.Time
}

// Client fetches and parses tournament pages. Parsed pages are cached per
// URL so repeated cycles inside the TTL skip the browser.
type Client struct {
	fetcher     Fetcher
	cache       cache.Cache[[]model.CleanObservation]
	limiter     *rate.Limiter
	retry       resilience.RetryConfig
	concurrency int
	now         func() time.Time
	log         *zap.Logger
}

// NewClient wires a Fetcher to a cache. A nil cache disables caching.
func NewClient(f Fetcher, c cache.Cache[[]model.CleanObservation], cfg ClientConfig) *Client {
	limit := rate.Inf
	if cfg.RatePerMinute > 0 {
		limit = rate.Every(time.Minute / time.Duration(cfg.RatePerMinute))
	}
	if cfg.Concurrency <= 0 {
		cfg.Concurrency = 1
	}
	if cfg.Clock == nil {
		cfg.Clock = time.Now
	}
	return &Client{
		fetcher:     f,
		cache:       c,
		limiter:     rate.NewLimiter(limit, 1),
		retry:       cfg.Retry,
		concurrency: cfg.Concurrency,
		now:         cfg.Clock,
		log:         zap.L().With(zap.String("component", "scrape"), zap.String("fetcher", f.Name())),
	}
}

// FetchURL returns the clean observations on one tournament page. Cached
// results are served unless force is set.
func (c *Client) FetchURL(ctx context.Context, competition, url string, force bool) ([]model.CleanObservation, error) {
	if c.cache != nil && !force {
		cached, ok, err := c.cache.Get(ctx, url)
		if err != nil {
			c.log.Warn("cache read failed", zap.String("url", url), zap.Error(err))
		} else if ok {
			c.log.Debug("serving cached page", zap.String("url", url), zap.Int("matches", len(cached)))
			return cached, nil
		}
	}

	matchName := TournamentName(url, c.now())
	retry := c.retry
	if retry.OnRetry == nil {
		retry.OnRetry = resilience.RetryLogger(competition, url)
	}

	obs, err := resilience.DoVal(ctx, retry, func(ctx context.Context) ([]model.CleanObservation, error) {
		if err := c.limiter.Wait(ctx); err != nil {
			return nil, err
		}
		html, err := c.fetcher.Fetch(ctx, url)
		if err != nil {
			var se *StatusError
			if errors.As(err, &se) && !se.Temporary() {
				return nil, resilience.Permanent(err)
			}
			return nil, err
		}
		parsed, err := ParseOddsPage(html, matchName, c.now())
		if errors.Is(err, ErrBlocked) {
			return nil, resilience.Permanent(err)
		}
		return parsed, err
	})
	if err != nil {
		return nil, eris.Wrapf(err, "scrape: fetch %s", url)
	}

	if c.cache != nil {
		if err := c.cache.Set(ctx, url, obs); err != nil {
			c.log.Warn("cache write failed", zap.String("url", url), zap.Error(err))
		}
	}
	c.log.Info("page scraped",
		zap.String("competition", competition),
		zap.String("url", url),
		zap.String("match_name", matchName),
		zap.Int("matches", len(obs)),
	)
	return obs, nil
}

// FetchCompetition fetches every URL for a competition concurrently and
// concatenates the results in URL order. Failed URLs are logged and
// skipped; an error is returned only when every URL failed.
func (c *Client) FetchCompetition(ctx context.Context, competition string, urls []string, force bool) ([]model.CleanObservation, error) {
	if len(urls) == 0 {
		return nil, nil
	}

	var (
		mu      sync.Mutex
		results = make([][]model.CleanObservation, len(urls))
		errs    []error
	)

	g, gCtx := errgroup.WithContext(ctx)
	g.SetLimit(c.concurrency)
	for i, u := range urls {
		g.Go(func() error {
			obs, err := c.FetchURL(gCtx, competition, u, force)
			if err != nil {
				c.log.Warn("page failed",
					zap.String("competition", competition),
					zap.String("url", u),
					zap.Bool("network", resilience.IsNetwork(err)),
					zap.Error(err),
				)
				mu.Lock()
				errs = append(errs, err)
				mu.Unlock()
				return nil
			}
			results[i] = obs
			return nil
		})
	}
	_ = g.Wait()

	if err := ctx.Err(); err != nil {
		return nil, err
	}
	if len(errs) == len(urls) {
		return nil, eris.Wrapf(errors.Join(errs...), "scrape: all %d pages failed for %s", len(urls), competition)
	}

	var out []model.CleanObservation
	for _, r := range results {
		out = append(out, r...)
	}
	return out, nil
}
