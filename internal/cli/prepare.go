package cli

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/ppiankov/hevcstat/internal/dataset"
)

// prepareCmd represents the prepare command
var prepareCmd = &cobra.Command{
	Use:   "prepare",
	Short: "Clean the published patent list into the working dataset",
	Long: `Prepare reads the pool list as published, skips its banner line,
drops the claim and expiry columns and removes duplicate patent numbers.

Example:
  hevcstat prepare --source 2022.02.04-Website-Patent-List.csv --patent-csv patent.csv`,
	Args: cobra.NoArgs,
	RunE: runPrepare,
}

func init() {
	rootCmd.AddCommand(prepareCmd)

	prepareCmd.Flags().String("source", "", "raw patent list CSV (default from config)")
	bindFlag("data.source_csv", prepareCmd.Flags().Lookup("source"))
}

func runPrepare(cmd *cobra.Command, args []string) error {
	cfg, err := loadConfig()
	if err != nil {
		return err
	}
	logger, err := newLogger(cfg)
	if err != nil {
		return err
	}
	defer func() { _ = logger.Sync() }()

	report, err := dataset.Prepare(cfg.Data.SourceCSV, cfg.Data.PatentCSV, logger)
	if err != nil {
		return fmt.Errorf("prepare failed: %w", err)
	}

	fmt.Fprintf(os.Stderr, "\n")
	fmt.Fprintf(os.Stderr, "═══════════════════════════════════════════════════════════\n")
	fmt.Fprintf(os.Stderr, "  Dataset Prepared\n")
	fmt.Fprintf(os.Stderr, "═══════════════════════════════════════════════════════════\n")
	fmt.Fprintf(os.Stderr, "\n")
	fmt.Fprintf(os.Stderr, "  Source:      %s\n", cfg.Data.SourceCSV)
	fmt.Fprintf(os.Stderr, "  Rows:        %d\n", report.Rows)
	fmt.Fprintf(os.Stderr, "  Duplicates:  %d\n", report.Duplicates)
	fmt.Fprintf(os.Stderr, "  Written:     %d\n", report.Written)
	fmt.Fprintf(os.Stderr, "  Output:      %s\n", cfg.Data.PatentCSV)
	fmt.Fprintf(os.Stderr, "\n")
	return nil
}
