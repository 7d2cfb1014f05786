package main

import (
	"context"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/rotisserie/eris"
	"go.uber.org/zap"

	"github.com/sells-group/odds-cli/internal/cache"
	"github.com/sells-group/odds-cli/internal/metrics"
	"github.com/sells-group/odds-cli/internal/model"
	"github.com/sells-group/odds-cli/internal/ocr"
	"github.com/sells-group/odds-cli/internal/pipeline"
	"github.com/sells-group/odds-cli/internal/publisher"
	"github.com/sells-group/odds-cli/internal/resilience"
	"github.com/sells-group/odds-cli/internal/scrape"
	"github.com/sells-group/odds-cli/internal/store"
)

// initStore opens the configured mapping store and applies its schema.
func initStore(ctx context.Context) (store.Store, error) {
	var (
		st  store.Store
		err error
	)
	switch cfg.Store.Driver {
	case "sqlite":
		st = store.NewSQLiteRegistry(cfg.Store.DataDir)
	case "postgres":
		st, err = store.NewPostgres(ctx, cfg.Store.DatabaseURL, &store.PoolConfig{MaxConns: cfg.Store.MaxConns})
		if err != nil {
			return nil, err
		}
	default:
		return nil, eris.Errorf("unsupported store driver: %s", cfg.Store.Driver)
	}

	if err := st.Migrate(ctx); err != nil {
		_ = st.Close()
		return nil, eris.Wrap(err, "migrate store")
	}
	return st, nil
}

// reconcileEnv holds everything a reconcile cycle needs. Close releases
// the store, the browser and the Redis connection.
type reconcileEnv struct {
	Store    store.Store
	Inbox    *ocr.Inbox
	Metrics  *metrics.Manager
	Pipeline *pipeline.Pipeline

	closers []func() error
}

func (e *reconcileEnv) Close() {
	for i := len(e.closers) - 1; i >= 0; i-- {
		if err := e.closers[i](); err != nil {
			zap.L().Warn("close failed", zap.Error(err))
		}
	}
}

// initReconcile wires the store, clean and noisy sources, publisher and
// metrics into a Pipeline. Callers should defer env.Close().
func initReconcile(ctx context.Context, force bool) (*reconcileEnv, error) {
	st, err := initStore(ctx)
	if err != nil {
		return nil, err
	}
	env := &reconcileEnv{
		Store:   st,
		Inbox:   ocr.NewInbox(nil),
		Metrics: metrics.NewManager(),
		closers: []func() error{st.Close},
	}

	rdb, err := connectRedis(ctx)
	if err != nil {
		env.Close()
		return nil, err
	}
	if rdb != nil {
		env.closers = append(env.closers, rdb.Close)
	}

	clean, closeClean, err := newCleanClient(rdb)
	if err != nil {
		env.Close()
		return nil, err
	}
	env.closers = append(env.closers, closeClean)

	noisy, err := ocr.NewSource(cfg.OCR, env.Inbox)
	if err != nil {
		env.Close()
		return nil, err
	}

	var pub publisher.Publisher = publisher.Nop{}
	if rdb != nil {
		pub = publisher.NewRedisStream(rdb, cfg.Redis.StreamPrefix, cfg.Redis.MaxLen)
		zap.L().Info("publishing reconciled matches to redis streams", zap.String("prefix", cfg.Redis.StreamPrefix))
	}

	env.Pipeline = pipeline.New(cfg, st, clean, noisy, pub, env.Metrics, pipeline.Options{Force: force})
	return env, nil
}

// connectRedis returns nil when no Redis URL is configured.
func connectRedis(ctx context.Context) (*redis.Client, error) {
	if cfg.Redis.URL == "" {
		return nil, nil
	}
	return cache.Connect(ctx, cfg.Redis.URL)
}

// newCleanClient builds the scrape client for the configured fetcher and
// page cache. The returned func releases the browser.
func newCleanClient(rdb *redis.Client) (*scrape.Client, func() error, error) {
	var pageCache cache.Cache[[]model.CleanObservation]
	switch cfg.Cache.Backend {
	case "redis":
		if rdb == nil {
			return nil, nil, eris.New("cache.backend=redis requires redis.url")
		}
		pageCache = cache.NewRedis[[]model.CleanObservation](rdb, "odds:pages", cfg.Cache.TTL)
	default:
		pageCache = cache.NewTTL[[]model.CleanObservation](cfg.Cache.Capacity, cfg.Cache.TTL, nil)
	}

	closeFn := func() error { return nil }
	var fetcher scrape.Fetcher
	switch cfg.Fetch.Fetcher {
	case "http":
		fetcher = scrape.NewHTTPFetcher(cfg.Fetch.UserAgent, cfg.Fetch.PageTimeout)
	default:
		b := scrape.NewBrowser(scrape.BrowserConfig{
			UserAgent:   cfg.Fetch.UserAgent,
			PageTimeout: cfg.Fetch.PageTimeout,
			Settle:      cfg.Fetch.Settle,
		})
		closeFn = func() error { b.Close(); return nil }
		fetcher = b
	}

	retry := resilience.DefaultRetryConfig()
	if cfg.Fetch.MaxAttempts > 0 {
		retry.MaxAttempts = cfg.Fetch.MaxAttempts
	}
	if cfg.Fetch.RetryBackoff > 0 {
		retry.Backoff = cfg.Fetch.RetryBackoff
	}
	client := scrape.NewClient(fetcher, pageCache, scrape.ClientConfig{
		RatePerMinute: cfg.Fetch.RatePerMinute,
		Concurrency:   cfg.Fetch.Concurrency,
		Retry:         retry,
	})
	return client, closeFn, nil
}

// shutdownTimeout bounds graceful HTTP shutdown.
const shutdownTimeout = 10 * time.Second
