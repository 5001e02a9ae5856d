package cli

import (
	"fmt"

	"go.uber.org/zap"

	"github.com/ppiankov/hevcstat/internal/cache"
	"github.com/ppiankov/hevcstat/internal/crawl"
	"github.com/ppiankov/hevcstat/internal/ledger"
	"github.com/ppiankov/hevcstat/internal/metrics"
	"github.com/ppiankov/hevcstat/internal/model"
	"github.com/ppiankov/hevcstat/internal/scrape"
	"github.com/ppiankov/hevcstat/internal/util"
)

// crawlSetup is a wired crawler plus the resources it holds open
type crawlSetup struct {
	crawler *crawl.Crawler
	ledger  ledger.Ledger
	browser *scrape.BrowserFetcher
}

func (s *crawlSetup) Close() error {
	if s.browser != nil {
		s.browser.Close()
	}
	return s.ledger.Close()
}

// newCrawler wires the crawler described by cfg. m may be nil.
func newCrawler(cfg *model.Config, logger *zap.Logger, m *metrics.Metrics, retryExhausted bool) (*crawlSetup, error) {
	for _, p := range []string{cfg.HTTP.HTTPProxy, cfg.HTTP.HTTPSProxy} {
		if err := util.ValidateProxyURL(p); err != nil {
			return nil, err
		}
	}

	fetcher := scrape.NewFetcher(
		cfg.HTTP.Timeout,
		cfg.HTTP.UserAgent,
		cfg.HTTP.MaxBodyBytes,
		cfg.HTTP.InsecureTLS,
		cfg.HTTP.HTTPProxy,
		cfg.HTTP.HTTPSProxy,
		cfg.HTTP.NoProxy,
	)

	setup := &crawlSetup{}
	var pages scrape.PageFetcher = fetcher
	if cfg.Crawl.Browser {
		setup.browser = scrape.NewBrowserFetcher(cfg.Crawl.ChromePath, cfg.HTTP.UserAgent, cfg.HTTP.Timeout)
		pages = setup.browser
	}

	led, err := ledger.Open(cfg.Data.LedgerDB)
	if err != nil {
		if setup.browser != nil {
			setup.browser.Close()
		}
		return nil, fmt.Errorf("open ledger: %w", err)
	}
	setup.ledger = led

	opts := crawl.Options{
		Workers:           cfg.Crawl.Workers,
		FlushEvery:        cfg.Crawl.FlushEvery,
		RequestsPerSecond: cfg.RateLimiting.RequestsPerSecond,
		Burst:             cfg.RateLimiting.BurstSize,
		Retry: ledger.RetryPolicy{
			MaxAttempts: cfg.Crawl.MaxAttempts,
			Base:        cfg.Crawl.BackoffBase,
			Max:         cfg.Crawl.BackoffMax,
		},
		RetryExhausted:  retryExhausted,
		SecondaryLookup: cfg.Crawl.SecondaryLookup,
		ExtraMetadata:   cfg.Data.MetadataExtra,
	}

	source := scrape.NewGooglePatents(pages, cfg.Crawl.BaseURL)
	setup.crawler = crawl.New(source, cache.NewMetadataFile(cfg.Data.MetadataJSON), led, opts, logger)
	if cfg.Crawl.RespectRobots {
		setup.crawler.SetRobots(util.NewRobotsChecker(fetcher.Client(), cfg.HTTP.UserAgent, cfg.HTTP.Timeout))
	}
	if m != nil {
		setup.crawler.SetMetrics(m)
	}
	return setup, nil
}
