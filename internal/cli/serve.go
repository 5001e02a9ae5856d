package cli

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/ppiankov/hevcstat/internal/cache"
	"github.com/ppiankov/hevcstat/internal/crawl"
	"github.com/ppiankov/hevcstat/internal/dataset"
	"github.com/ppiankov/hevcstat/internal/metrics"
	"github.com/ppiankov/hevcstat/internal/model"
	"github.com/ppiankov/hevcstat/internal/news"
	"github.com/ppiankov/hevcstat/internal/server"
)

// serveCmd represents the serve command
var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Run the statistics dashboard",
	Long: `Serve starts the web dashboard and JSON API over the joined patent table.

With server.recrawl_cron set, missing inventors are crawled on that
schedule and the table is reloaded afterwards.

Example:
  hevcstat serve
  hevcstat serve --addr :8080 --recrawl "0 3 * * *"`,
	Args: cobra.NoArgs,
	RunE: runServe,
}

func init() {
	rootCmd.AddCommand(serveCmd)

	serveCmd.Flags().String("addr", "", "listen address (default from config)")
	serveCmd.Flags().String("recrawl", "", "cron schedule for background recrawls")
	bindFlag("server.addr", serveCmd.Flags().Lookup("addr"))
	bindFlag("server.recrawl_cron", serveCmd.Flags().Lookup("recrawl"))
}

// newNewsSource returns nil when no feed is configured
func newNewsSource(cfg *model.Config, logger *zap.Logger) server.NewsSource {
	if cfg.News.FeedURL == "" {
		return nil
	}
	return news.NewClient(news.Options{
		FeedURL:   cfg.News.FeedURL,
		UserAgent: cfg.HTTP.UserAgent,
		Timeout:   cfg.News.Timeout,
		Limit:     cfg.News.Limit,
		Cache:     cache.NewMemoryCache(cfg.News.CacheTTL, 2*cfg.News.CacheTTL),
		CacheTTL:  cfg.News.CacheTTL,
	}, logger.Named("news"))
}

func runServe(cmd *cobra.Command, args []string) error {
	cfg, err := loadConfig()
	if err != nil {
		return err
	}
	logger, err := newLogger(cfg)
	if err != nil {
		return err
	}
	defer func() { _ = logger.Sync() }()

	m := metrics.New()
	store := server.NewStore(func() (model.Table, error) {
		table, missing, err := dataset.LoadJoined(cfg.Data.PatentCSV, cfg.Data.MetadataFiles()...)
		if err != nil {
			return nil, err
		}
		logger.Debug("joined metadata", zap.Int("without_inventors", missing))
		return table, nil
	})

	srv := server.New(server.Options{
		Addr:        cfg.Server.Addr,
		CacheTTL:    cfg.Server.CacheTTL,
		CORSOrigins: cfg.Server.CORSOrigins,
		NewsQuery:   cfg.News.Query,
		Version:     Version,
	}, store, newNewsSource(cfg, logger), m, logger)

	if _, err := srv.Reload(); err != nil {
		return fmt.Errorf("load dataset: %w", err)
	}

	if cfg.Server.RecrawlCron != "" {
		setup, err := newCrawler(cfg, logger.Named("crawl"), m, false)
		if err != nil {
			return err
		}
		defer func() { _ = setup.Close() }()

		recrawl := func(ctx context.Context) error {
			_, err := setup.crawler.Run(ctx, crawl.TableIDs(store.Table()))
			return err
		}
		srv.SetScheduler(server.NewScheduler(cfg.Server.RecrawlCron, recrawl, srv.Reload, logger.Named("scheduler")))
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	fmt.Fprintf(os.Stderr, "Dashboard: http://%s/\n", cfg.Server.Addr)
	return srv.ListenAndServe(ctx)
}
