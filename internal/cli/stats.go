package cli

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"os"
	"strconv"
	"strings"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"github.com/ppiankov/hevcstat/internal/dataset"
	"github.com/ppiankov/hevcstat/internal/model"
	"github.com/ppiankov/hevcstat/internal/stats"
)

var (
	statsQuery  model.Query
	statsTop    int
	statsFormat string
)

// statsCmd represents the stats command
var statsCmd = &cobra.Command{
	Use:   "stats <country|licensor|inventor>",
	Short: "Print patent counts grouped by one dimension",
	Long: `Stats filters the joined patent table and prints how many patents
fall into each country, licensor or inventor, most frequent first.

Example:
  hevcstat stats country
  hevcstat stats inventor --licensor "Dolby Laboratories" --top 10
  hevcstat stats licensor --profile Main/Main10 --format csv > licensors.csv`,
	Args:      cobra.ExactArgs(1),
	ValidArgs: []string{string(model.DimensionCountry), string(model.DimensionLicensor), string(model.DimensionInventor)},
	RunE:      runStats,
}

func init() {
	rootCmd.AddCommand(statsCmd)

	addQueryFlags(statsCmd, &statsQuery)
	statsCmd.Flags().IntVar(&statsTop, "top", 0, "show only the first N groups (0 means all)")
	statsCmd.Flags().StringVar(&statsFormat, "format", "table", "output format: table, csv or json")
}

// addQueryFlags registers the subset selectors shared by stats and report
func addQueryFlags(cmd *cobra.Command, q *model.Query) {
	cmd.Flags().StringVar(&q.Profile, "profile", "", "profile filter (All or empty means any)")
	cmd.Flags().StringVar(&q.Country, "country", "", "country filter")
	cmd.Flags().StringVar(&q.Licensor, "licensor", "", "licensor filter")
	cmd.Flags().StringVar(&q.Inventor, "inventor", "", "inventor name substring (case-sensitive)")
}

// loadTable loads the joined table and warns about records without inventors
func loadTable(cfg *model.Config) (model.Table, error) {
	table, missing, err := dataset.LoadJoined(cfg.Data.PatentCSV, cfg.Data.MetadataFiles()...)
	if err != nil {
		if errors.Is(err, dataset.ErrMissingDataset) {
			return nil, fmt.Errorf("%w (run 'hevcstat prepare' first)", err)
		}
		return nil, err
	}
	if missing > 0 && verbose {
		fmt.Fprintf(os.Stderr, "%d of %d patents have no cached inventors (run 'hevcstat crawl')\n", missing, len(table))
	}
	return table, nil
}

func runStats(cmd *cobra.Command, args []string) error {
	dim, ok := model.ParseDimension(args[0])
	if !ok {
		return fmt.Errorf("unknown dimension %q (want country, licensor or inventor)", args[0])
	}

	cfg, err := loadConfig()
	if err != nil {
		return err
	}
	table, err := loadTable(cfg)
	if err != nil {
		return err
	}

	subset := stats.Filter(table, statsQuery)
	rows := stats.Aggregate(subset, dim)
	summary := model.Summary{Dimension: dim, Total: len(subset), Unique: len(rows)}
	rows = stats.Top(rows, statsTop)

	return writeStats(cmd.OutOrStdout(), statsFormat, summary, rows)
}

func writeStats(w io.Writer, format string, summary model.Summary, rows []model.AggregationRow) error {
	switch strings.ToLower(format) {
	case "csv":
		return stats.WriteCSV(w, summary.Dimension, rows)
	case "json":
		enc := json.NewEncoder(w)
		enc.SetIndent("", "  ")
		return enc.Encode(struct {
			Summary model.Summary          `json:"summary"`
			Rows    []model.AggregationRow `json:"rows"`
		}{summary, rows})
	case "table", "":
		return writeStatsTable(w, summary, rows)
	default:
		return fmt.Errorf("unknown format %q (want table, csv or json)", format)
	}
}

func writeStatsTable(w io.Writer, summary model.Summary, rows []model.AggregationRow) error {
	dim := summary.Dimension
	if _, err := fmt.Fprintf(w, "Total number: patents (%d) unique %s (%d)\n\n", summary.Total, dim.Plural(), summary.Unique); err != nil {
		return err
	}
	if len(rows) == 0 {
		_, err := fmt.Fprintln(w, "No patents match.")
		return err
	}

	tw := tabwriter.NewWriter(w, 0, 0, 2, ' ', 0)
	fmt.Fprintln(tw, strings.Join(stats.Header(dim), "\t"))
	for _, row := range rows {
		rec := []string{row.Value, strconv.Itoa(row.Count), stats.FormatRatio(row.Ratio)}
		if dim == model.DimensionInventor {
			rec = append(rec, stats.FormatRatio(row.NormalizedRatio))
		}
		fmt.Fprintln(tw, strings.Join(rec, "\t"))
	}
	return tw.Flush()
}
