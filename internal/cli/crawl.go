package cli

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"github.com/ppiankov/hevcstat/internal/crawl"
	"github.com/ppiankov/hevcstat/internal/dataset"
	"github.com/ppiankov/hevcstat/internal/ledger"
	"github.com/ppiankov/hevcstat/internal/model"
	"github.com/ppiankov/hevcstat/internal/worker"
)

var (
	idsFile        string
	crawlTimeout   time.Duration
	retryExhausted bool
	reportJSON     string
)

// crawlCmd represents the crawl command
var crawlCmd = &cobra.Command{
	Use:   "crawl",
	Short: "Fetch inventor data for patents missing from the metadata cache",
	Long: `Crawl looks up every patent of the dataset that is not yet in the
metadata cache and records its inventors, title and assignees.

Entries already cached are never fetched again. Failed lookups are
retried on later runs with exponential backoff until max_attempts is
reached. Progress is flushed to the cache file as the crawl goes, so an
interrupted run keeps what it fetched.

Example:
  hevcstat crawl
  hevcstat crawl --ids-file ids.txt --workers 2
  hevcstat crawl --retry-exhausted --browser`,
	Args: cobra.NoArgs,
	RunE: runCrawl,
}

var crawlStatusCmd = &cobra.Command{
	Use:   "status",
	Short: "Show crawl ledger counts per state",
	Args:  cobra.NoArgs,
	RunE:  runCrawlStatus,
}

func init() {
	rootCmd.AddCommand(crawlCmd)
	crawlCmd.AddCommand(crawlStatusCmd)

	crawlCmd.Flags().StringVar(&idsFile, "ids-file", "", "crawl patent IDs from this file (one per line) instead of the dataset")
	crawlCmd.Flags().DurationVar(&crawlTimeout, "timeout", 0, "overall crawl timeout (0 means none)")
	crawlCmd.Flags().BoolVar(&retryExhausted, "retry-exhausted", false, "also retry IDs that used up max_attempts")
	crawlCmd.Flags().StringVar(&reportJSON, "json", "", "write the run report as JSON to this path")

	crawlCmd.Flags().Int("workers", 0, "concurrent lookups (default from config)")
	crawlCmd.Flags().Bool("browser", false, "render pages with headless Chrome")
	crawlCmd.Flags().Float64("rps", 0, "requests per second per host (default from config)")
	crawlCmd.PersistentFlags().String("ledger", "", "crawl ledger database (default from config)")

	bindFlag("crawl.workers", crawlCmd.Flags().Lookup("workers"))
	bindFlag("crawl.browser", crawlCmd.Flags().Lookup("browser"))
	bindFlag("rate_limiting.requests_per_second", crawlCmd.Flags().Lookup("rps"))
	bindFlag("data.ledger_db", crawlCmd.PersistentFlags().Lookup("ledger"))
}

func runCrawl(cmd *cobra.Command, args []string) error {
	cfg, err := loadConfig()
	if err != nil {
		return err
	}
	logger, err := newLogger(cfg)
	if err != nil {
		return err
	}
	defer func() { _ = logger.Sync() }()

	ids, source, err := crawlIDs(cfg)
	if err != nil {
		return err
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()
	if crawlTimeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, crawlTimeout)
		defer cancel()
	}

	setup, err := newCrawler(cfg, logger, nil, retryExhausted)
	if err != nil {
		return err
	}
	defer func() { _ = setup.Close() }()

	fmt.Fprintf(os.Stderr, "\n")
	fmt.Fprintf(os.Stderr, "═══════════════════════════════════════════════════════════\n")
	fmt.Fprintf(os.Stderr, "  hevcstat Crawl\n")
	fmt.Fprintf(os.Stderr, "═══════════════════════════════════════════════════════════\n")
	fmt.Fprintf(os.Stderr, "\n")
	fmt.Fprintf(os.Stderr, "  IDs from:     %s (%d)\n", source, len(ids))
	fmt.Fprintf(os.Stderr, "  Cache:        %s\n", cfg.Data.MetadataJSON)
	fmt.Fprintf(os.Stderr, "  Ledger:       %s\n", ledgerName(cfg.Data.LedgerDB))
	fmt.Fprintf(os.Stderr, "  Workers:      %d\n", cfg.Crawl.Workers)
	fmt.Fprintf(os.Stderr, "  Rate:         %.2f req/s\n", cfg.RateLimiting.RequestsPerSecond)
	fmt.Fprintf(os.Stderr, "  Browser:      %v\n", cfg.Crawl.Browser)
	fmt.Fprintf(os.Stderr, "\n")

	report, runErr := setup.crawler.Run(ctx, ids)
	if report != nil {
		printRunReport(report)
		if reportJSON != "" {
			if err := writeJSON(reportJSON, report); err != nil {
				return err
			}
		}
	}

	switch {
	case runErr == nil:
		return nil
	case errors.Is(runErr, context.Canceled):
		fmt.Fprintf(os.Stderr, "Crawl interrupted; fetched entries were saved\n")
		return nil
	default:
		return fmt.Errorf("crawl failed: %w", runErr)
	}
}

// crawlIDs returns the IDs to crawl and where they came from
func crawlIDs(cfg *model.Config) ([]string, string, error) {
	if idsFile != "" {
		ids, err := worker.ReadIDsFromFile(idsFile)
		if err != nil {
			return nil, "", err
		}
		return ids, idsFile, nil
	}

	table, err := dataset.LoadTable(cfg.Data.PatentCSV)
	if err != nil {
		if errors.Is(err, dataset.ErrMissingDataset) {
			return nil, "", fmt.Errorf("%w (run 'hevcstat prepare' first)", err)
		}
		return nil, "", err
	}
	return crawl.TableIDs(table), cfg.Data.PatentCSV, nil
}

func printRunReport(report *model.RunReport) {
	fmt.Fprintf(os.Stderr, "\n")
	fmt.Fprintf(os.Stderr, "═══════════════════════════════════════════════════════════\n")
	fmt.Fprintf(os.Stderr, "  Crawl Complete\n")
	fmt.Fprintf(os.Stderr, "═══════════════════════════════════════════════════════════\n")
	fmt.Fprintf(os.Stderr, "\n")
	fmt.Fprintf(os.Stderr, "  Run:        %s\n", report.RunID)
	fmt.Fprintf(os.Stderr, "  Requested:  %d\n", report.Requested)
	fmt.Fprintf(os.Stderr, "  Cached:     %d\n", report.Cached)
	fmt.Fprintf(os.Stderr, "  Deferred:   %d\n", report.Deferred)
	fmt.Fprintf(os.Stderr, "  Fetched:    %d\n", report.Fetched)
	fmt.Fprintf(os.Stderr, "  Empty:      %d\n", report.Empty)
	fmt.Fprintf(os.Stderr, "  Failed:     %d\n", report.Failed)
	fmt.Fprintf(os.Stderr, "  Duration:   %v\n", report.Duration.Round(time.Millisecond))
	fmt.Fprintf(os.Stderr, "\n")
}

func runCrawlStatus(cmd *cobra.Command, args []string) error {
	cfg, err := loadConfig()
	if err != nil {
		return err
	}
	if cfg.Data.LedgerDB == "" {
		return fmt.Errorf("no ledger database configured (data.ledger_db)")
	}

	led, err := ledger.Open(cfg.Data.LedgerDB)
	if err != nil {
		return fmt.Errorf("open ledger: %w", err)
	}
	defer func() { _ = led.Close() }()

	counts, err := led.Counts(cmd.Context())
	if err != nil {
		return err
	}

	fmt.Printf("Ledger: %s\n", cfg.Data.LedgerDB)
	for _, st := range []model.CrawlStatus{model.CrawlQueued, model.CrawlFetched, model.CrawlFailed} {
		fmt.Printf("  %-8s %d\n", st, counts[st])
	}
	return nil
}

func ledgerName(path string) string {
	if path == "" {
		return "(in memory)"
	}
	return path
}

func writeJSON(path string, v any) error {
	data, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return fmt.Errorf("encode %s: %w", path, err)
	}
	if err := os.WriteFile(path, append(data, '\n'), 0644); err != nil {
		return fmt.Errorf("write %s: %w", path, err)
	}
	return nil
}
