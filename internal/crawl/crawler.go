// Package crawl fills the metadata cache with inventor data for patent IDs
// that are not cached yet.
package crawl

import (
	"context"
	"fmt"
	"time"

	"go.uber.org/zap"

	"github.com/ppiankov/hevcstat/internal/cache"
	"github.com/ppiankov/hevcstat/internal/ledger"
	"github.com/ppiankov/hevcstat/internal/metrics"
	"github.com/ppiankov/hevcstat/internal/model"
	"github.com/ppiankov/hevcstat/internal/patentid"
	"github.com/ppiankov/hevcstat/internal/worker"
)

// Options tunes a crawl run
type Options struct {
	Workers           int
	FlushEvery        int // Persist after this many new entries; 0 persists only at the end
	RequestsPerSecond float64
	Burst             int
	Retry             ledger.RetryPolicy
	RetryExhausted    bool // Admit IDs that used up their attempts
	SecondaryLookup   bool // Retry empty results with the raw patent number

	// ExtraMetadata lists read-only cache files. IDs found there are not
	// fetched again, but only the primary cache file is written.
	ExtraMetadata []string
}

// Crawler fetches metadata for missing IDs and persists it to the cache file
type Crawler struct {
	source  worker.Source
	file    *cache.MetadataFile
	ledger  ledger.Ledger
	robots  worker.RobotsGate
	metrics *metrics.Metrics
	logger  *zap.Logger
	opts    Options
	now     func() time.Time
}

// New creates a crawler
func New(source worker.Source, file *cache.MetadataFile, led ledger.Ledger, opts Options, logger *zap.Logger) *Crawler {
	if logger == nil {
		logger = zap.NewNop()
	}
	if led == nil {
		led = ledger.NewMemory()
	}
	return &Crawler{
		source: source,
		file:   file,
		ledger: led,
		logger: logger,
		opts:   opts,
		now:    time.Now,
	}
}

// SetRobots enables robots.txt checks
func (c *Crawler) SetRobots(robots worker.RobotsGate) {
	c.robots = robots
}

// SetMetrics enables fetch metrics
func (c *Crawler) SetMetrics(m *metrics.Metrics) {
	c.metrics = m
}

// target is one canonical ID and the keys to look it up by
type target struct {
	id   string
	keys []string
}

func (c *Crawler) targets(ids []string) []target {
	var out []target
	seen := make(map[string]bool, len(ids))
	for _, raw := range ids {
		keys := patentid.LookupKeys(raw)
		if len(keys) == 0 || seen[keys[0]] {
			continue
		}
		seen[keys[0]] = true
		if !c.opts.SecondaryLookup {
			keys = keys[:1]
		}
		out = append(out, target{id: keys[0], keys: keys})
	}
	return out
}

// Run fetches every ID in ids that the cache lacks and the retry policy
// admits. Failed fetches are left out of the cache and recorded in the
// ledger. When ctx ends, finished entries are persisted and ctx.Err() is
// returned with the partial report.
func (c *Crawler) Run(ctx context.Context, ids []string) (*model.RunReport, error) {
	start := c.now()
	report := &model.RunReport{RunID: ledger.NewRunID()}
	logger := c.logger.With(zap.String("run_id", report.RunID))

	targets := c.targets(ids)
	report.Requested = len(targets)

	meta, err := c.file.Load()
	if err != nil {
		return nil, fmt.Errorf("load metadata: %w", err)
	}

	canonical := make([]string, len(targets))
	keys := make(map[string][]string, len(targets))
	for i, t := range targets {
		canonical[i] = t.id
		keys[t.id] = t.keys
	}

	known := meta
	if len(c.opts.ExtraMetadata) > 0 {
		extra, err := cache.LoadAll(c.opts.ExtraMetadata...)
		if err != nil {
			return nil, fmt.Errorf("load extra metadata: %w", err)
		}
		known = cache.Merge(extra, meta)
	}

	missing := cache.Missing(canonical, known)
	report.Cached = len(canonical) - len(missing)

	elig, err := ledger.Eligible(ctx, c.ledger, missing, c.opts.Retry, start, c.opts.RetryExhausted)
	if err != nil {
		return nil, fmt.Errorf("check ledger: %w", err)
	}
	report.Deferred = len(elig.Deferred) + len(elig.Exhausted)

	logger.Info("crawl started",
		zap.Int("requested", report.Requested),
		zap.Int("cached", report.Cached),
		zap.Int("deferred", report.Deferred),
		zap.Int("to_fetch", len(elig.Admitted)),
	)

	if len(elig.Admitted) == 0 {
		report.Duration = c.now().Sub(start)
		return report, nil
	}

	if err := ledger.MarkQueued(ctx, c.ledger, elig.Admitted, report.RunID, start); err != nil {
		return nil, fmt.Errorf("queue ids: %w", err)
	}

	batch := worker.NewBatchProcessor(c.source, c.opts.Workers, c.opts.RequestsPerSecond, c.opts.Burst)
	if c.robots != nil {
		batch.SetRobots(c.robots)
	}

	jobs := make([]*worker.LookupJob, 0, len(elig.Admitted))
	for _, id := range elig.Admitted {
		jobs = append(jobs, batch.NewJob(id, keys[id]))
	}

	pending := make(cache.Metadata)
	var persistErr error
	flush := func() {
		if len(pending) == 0 {
			return
		}
		merged := cache.Merge(meta, pending)
		if err := c.file.Persist(merged); err != nil {
			logger.Error("persist metadata", zap.Error(err))
			persistErr = err
			return
		}
		meta = merged
		pending = make(cache.Metadata)
		if c.metrics != nil {
			c.metrics.CachedMetadata.Set(float64(len(meta)))
		}
	}

	runErr := batch.Run(ctx, jobs, func(res *worker.LookupResult) {
		c.record(ctx, logger, report, res, pending)
		if c.opts.FlushEvery > 0 && len(pending) >= c.opts.FlushEvery {
			flush()
		}
	})
	flush()

	report.Duration = c.now().Sub(start)
	logger.Info("crawl finished",
		zap.Int("fetched", report.Fetched),
		zap.Int("empty", report.Empty),
		zap.Int("failed", report.Failed),
		zap.Duration("duration", report.Duration),
	)

	if runErr != nil {
		return report, runErr
	}
	if persistErr != nil {
		return report, fmt.Errorf("persist metadata: %w", persistErr)
	}
	return report, nil
}

// record applies one lookup result to the report, ledger and pending entries
func (c *Crawler) record(ctx context.Context, logger *zap.Logger, report *model.RunReport, res *worker.LookupResult, pending cache.Metadata) {
	now := c.now()
	lctx := context.WithoutCancel(ctx)

	if res.Error != nil {
		if ctx.Err() != nil {
			// Interrupted, not failed; the ID stays queued and is retried next run
			return
		}
		report.Failed++
		c.metrics.ObserveFetch(metrics.ResultFailed, res.Elapsed)

		st, err := ledger.MarkFailed(lctx, c.ledger, res.ID, report.RunID, res.Error, c.opts.Retry, now)
		if err != nil {
			logger.Error("record failure", zap.String("id", res.ID), zap.Error(err))
		}
		logger.Warn("fetch failed",
			zap.String("id", res.ID),
			zap.Int("attempts", st.Attempts),
			zap.Time("next_attempt", st.NextAttemptAt),
			zap.Error(res.Error),
		)
		return
	}

	entry := res.Entry
	if entry.Inventors == nil {
		entry.Inventors = []string{}
	}
	pending[res.ID] = entry

	empty := res.Empty()
	if empty {
		report.Empty++
		c.metrics.ObserveFetch(metrics.ResultEmpty, res.Elapsed)
	} else {
		report.Fetched++
		c.metrics.ObserveFetch(metrics.ResultOK, res.Elapsed)
	}

	if err := ledger.MarkFetched(lctx, c.ledger, res.ID, report.RunID, empty, now); err != nil {
		logger.Error("record fetch", zap.String("id", res.ID), zap.Error(err))
	}
	logger.Debug("fetched",
		zap.String("id", res.ID),
		zap.String("key", res.Key),
		zap.Int("inventors", len(entry.Inventors)),
	)
}

// TableIDs returns the raw patent numbers of table in record order
func TableIDs(table model.Table) []string {
	ids := make([]string, 0, len(table))
	for _, rec := range table {
		ids = append(ids, rec.RawNumber)
	}
	return ids
}
