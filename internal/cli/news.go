package cli

import (
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"github.com/ppiankov/hevcstat/internal/news"
)

var newsLimit int

// newsCmd represents the news command
var newsCmd = &cobra.Command{
	Use:   "news [query]",
	Short: "List recent news headlines about the pool",
	Long: `News prints the latest headlines from the configured RSS search feed.
The query defaults to news.query from the config.

Example:
  hevcstat news
  hevcstat news "HEVC Advance royalty"`,
	Args: cobra.MaximumNArgs(1),
	RunE: runNews,
}

func init() {
	rootCmd.AddCommand(newsCmd)
	newsCmd.Flags().IntVar(&newsLimit, "limit", 0, "maximum headlines (default from config)")
}

func runNews(cmd *cobra.Command, args []string) error {
	cfg, err := loadConfig()
	if err != nil {
		return err
	}
	if cfg.News.FeedURL == "" {
		return fmt.Errorf("no news feed configured (news.feed_url)")
	}
	logger, err := newLogger(cfg)
	if err != nil {
		return err
	}
	defer func() { _ = logger.Sync() }()

	query := cfg.News.Query
	if len(args) == 1 {
		query = args[0]
	}
	limit := cfg.News.Limit
	if newsLimit > 0 {
		limit = newsLimit
	}

	client := news.NewClient(news.Options{
		FeedURL:   cfg.News.FeedURL,
		UserAgent: cfg.HTTP.UserAgent,
		Timeout:   cfg.News.Timeout,
		Limit:     limit,
	}, logger.Named("news"))

	entries, err := client.Latest(cmd.Context(), query)
	if err != nil {
		return fmt.Errorf("fetch news: %w", err)
	}

	out := cmd.OutOrStdout()
	for _, e := range entries {
		date := ""
		if !e.Published.IsZero() {
			date = e.Published.Format("2006-01-02") + "  "
		}
		source := ""
		if e.Source != "" {
			source = " (" + strings.TrimSpace(e.Source) + ")"
		}
		fmt.Fprintf(out, "%s%s%s\n    %s\n", date, e.Title, source, e.Link)
	}
	if len(entries) == 0 {
		fmt.Fprintln(out, "No headlines.")
	}
	return nil
}
