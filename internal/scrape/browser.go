package scrape

import (
	"context"
	"time"

	"github.com/chromedp/chromedp"
	"github.com/rotisserie/eris"
)

// Fetcher returns the rendered HTML of a page.
type Fetcher interface {
	Fetch(ctx context.Context, url string) (string, error)
	Name() string
}

// BrowserConfig tunes the headless browser.
type BrowserConfig struct {
	UserAgent   string
	PageTimeout time.Duration // wait for <body>
	Settle      time.Duration // extra wait for scripts to render odds
}

// Browser renders pages in headless Chrome. One Chrome process is shared by
// all fetches; each fetch opens its own tab.
type Browser struct {
	cfg      BrowserConfig
	allocCtx context.Context
	cancel   context.CancelFunc
}

// NewBrowser starts a Chrome allocator. Close releases it.
func NewBrowser(cfg BrowserConfig) *Browser {
	if cfg.PageTimeout <= 0 {
		cfg.PageTimeout = 60 * time.Second
	}
	if cfg.Settle < 0 {
		cfg.Settle = 0
	}

	opts := append(chromedp.DefaultExecAllocatorOptions[:],
		chromedp.Flag("headless", true),
		chromedp.Flag("disable-gpu", true),
		chromedp.Flag("no-sandbox", true),
		chromedp.Flag("disable-dev-shm-usage", true),
		chromedp.Flag("ignore-certificate-errors", true),
	)
	if cfg.UserAgent != "" {
		opts = append(opts, chromedp.UserAgent(cfg.UserAgent))
	}

	allocCtx, cancel := chromedp.NewExecAllocator(context.Background(), opts...)
	return &Browser{cfg: cfg, allocCtx: allocCtx, cancel: cancel}
}

func (b *Browser) Name() string { return "chromedp" }

// Close shuts down Chrome.
func (b *Browser) Close() {
	if b.cancel != nil {
		b.cancel()
	}
}

// Fetch navigates to url, waits for the body, lets scripts settle and
// returns the page's outer HTML.
func (b *Browser) Fetch(ctx context.Context, url string) (string, error) {
	tabCtx, cancelTab := chromedp.NewContext(b.allocCtx)
	defer cancelTab()
	// Tabs hang off the allocator, so tie them to the caller explicitly.
	stop := context.AfterFunc(ctx, cancelTab)
	defer stop()

	tabCtx, cancelTimeout := context.WithTimeout(tabCtx, b.cfg.PageTimeout+b.cfg.Settle)
	defer cancelTimeout()

	var html string
	err := chromedp.Run(tabCtx,
		chromedp.Navigate(url),
		chromedp.WaitReady("body", chromedp.ByQuery),
		chromedp.Sleep(b.cfg.Settle),
		chromedp.OuterHTML("html", &html, chromedp.ByQuery),
	)
	if err != nil {
		return "", eris.Wrapf(err, "scrape: render %s", url)
	}
	if html == "" {
		return "", eris.Errorf("scrape: empty page %s", url)
	}
	return html, nil
}
