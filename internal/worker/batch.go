package worker

import (
	"bufio"
	"context"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/ppiankov/hevcstat/internal/model"
	"github.com/ppiankov/hevcstat/internal/util"
)

// Source looks patents up by ID
type Source interface {
	URL(id string) string
	Lookup(ctx context.Context, id string) (model.MetadataEntry, error)
}

// RobotsGate reports whether a URL may be fetched and the crawl delay to honor
type RobotsGate interface {
	CanFetch(ctx context.Context, rawURL string) (bool, time.Duration, error)
}

// LookupJob fetches one canonical patent ID, trying Keys in order while the
// result lists no inventors
type LookupJob struct {
	ID   string
	Keys []string

	batch *BatchProcessor
}

// LookupResult is the outcome of a LookupJob
type LookupResult struct {
	ID      string
	Key     string // Lookup key that produced Entry
	Entry   model.MetadataEntry
	Tries   int // Lookup keys attempted
	Elapsed time.Duration
	Error   error
}

// GetError returns the error from the lookup
func (r *LookupResult) GetError() error {
	return r.Error
}

// Empty reports whether the lookup succeeded without finding inventors
func (r *LookupResult) Empty() bool {
	return r.Error == nil && len(r.Entry.Inventors) == 0
}

// Execute runs the lookup
func (j *LookupJob) Execute(ctx context.Context) Result {
	start := time.Now()
	res := &LookupResult{ID: j.ID}

	keys := j.Keys
	if len(keys) == 0 {
		keys = []string{j.ID}
	}

	for i, key := range keys {
		entry, err := j.batch.lookup(ctx, key)
		res.Tries++
		if err != nil {
			// A failed fallback keeps the empty primary result
			if i == 0 {
				res.Key = key
				res.Error = err
			}
			break
		}
		res.Key = key
		res.Entry = entry
		if len(entry.Inventors) > 0 {
			break
		}
	}

	res.Elapsed = time.Since(start)
	return res
}

// BatchProcessor looks up patent IDs concurrently under a per-host rate limit
type BatchProcessor struct {
	source      Source
	concurrency int
	limiter     *Limiter
	robots      RobotsGate
}

// NewBatchProcessor creates a new batch processor. A non-positive
// requestsPerSecond disables rate limiting.
func NewBatchProcessor(source Source, concurrency int, requestsPerSecond float64, burst int) *BatchProcessor {
	var limiter *Limiter
	if requestsPerSecond > 0 {
		limiter = NewLimiter(requestsPerSecond, burst)
	}
	return &BatchProcessor{
		source:      source,
		concurrency: concurrency,
		limiter:     limiter,
	}
}

// SetRobots enables robots.txt checks before each lookup
func (b *BatchProcessor) SetRobots(robots RobotsGate) {
	b.robots = robots
}

func (b *BatchProcessor) lookup(ctx context.Context, key string) (model.MetadataEntry, error) {
	pageURL := b.source.URL(key)

	if b.robots != nil {
		allowed, delay, err := b.robots.CanFetch(ctx, pageURL)
		if err != nil {
			return model.MetadataEntry{}, err
		}
		if !allowed {
			return model.MetadataEntry{}, fmt.Errorf("%s: %w", pageURL, util.ErrDisallowed)
		}
		if b.limiter != nil {
			b.limiter.SlowDown(pageURL, delay)
		}
	}

	if b.limiter != nil {
		if err := b.limiter.Wait(ctx, pageURL); err != nil {
			return model.MetadataEntry{}, err
		}
	}

	return b.source.Lookup(ctx, key)
}

// NewJob builds a job for id with the given lookup keys
func (b *BatchProcessor) NewJob(id string, keys []string) *LookupJob {
	return &LookupJob{ID: id, Keys: keys, batch: b}
}

// Run executes jobs and calls handle for each result as it arrives.
// handle runs on the calling goroutine. Run returns ctx.Err() if the
// context ends before every job was handled.
func (b *BatchProcessor) Run(ctx context.Context, jobs []*LookupJob, handle func(*LookupResult)) error {
	if len(jobs) == 0 {
		return ctx.Err()
	}

	pool := NewPool(ctx, b.concurrency)
	pool.Start()

	go func() {
		defer pool.Close()
		for _, job := range jobs {
			if !pool.Submit(job) {
				return
			}
		}
	}()

	for result := range pool.Results() {
		handle(result.(*LookupResult))
	}
	return ctx.Err()
}

// ReadIDsFromFile reads patent IDs from a file (one per line)
func ReadIDsFromFile(filePath string) ([]string, error) {
	file, err := os.Open(filePath)
	if err != nil {
		return nil, fmt.Errorf("open file: %w", err)
	}
	defer func() { _ = file.Close() }()

	var ids []string
	seen := make(map[string]bool)

	scanner := bufio.NewScanner(file)
	for scanner.Scan() {
		line := strings.TrimSpace(scanner.Text())

		// Skip empty lines and comments
		if line == "" || strings.HasPrefix(line, "#") {
			continue
		}

		if !seen[line] {
			seen[line] = true
			ids = append(ids, line)
		}
	}

	if err := scanner.Err(); err != nil {
		return nil, fmt.Errorf("scan file: %w", err)
	}

	return ids, nil
}
