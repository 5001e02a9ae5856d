package cli

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/spf13/cobra"

	"github.com/ppiankov/hevcstat/internal/model"
	"github.com/ppiankov/hevcstat/internal/report"
	"github.com/ppiankov/hevcstat/internal/scrape"
)

var (
	reportQuery  model.Query
	reportOut    string
	reportFormat string
	reportTop    int
	reportTitle  string
)

// reportCmd represents the report command
var reportCmd = &cobra.Command{
	Use:   "report",
	Short: "Render all three breakdowns as a Markdown, HTML or PDF report",
	Long: `Report filters the joined patent table and renders the country,
licensor and inventor breakdowns in one document.

The format follows the output extension (.md, .html, .pdf) unless --format
is given. PDF output needs Chrome or Chromium.

Example:
  hevcstat report --out report.md
  hevcstat report --out dolby.html --licensor "Dolby Laboratories"
  hevcstat report --out pool.pdf --top 50`,
	Args: cobra.NoArgs,
	RunE: runReport,
}

func init() {
	rootCmd.AddCommand(reportCmd)

	addQueryFlags(reportCmd, &reportQuery)
	reportCmd.Flags().StringVarP(&reportOut, "out", "o", "", "output path (stdout when empty)")
	reportCmd.Flags().StringVar(&reportFormat, "format", "", "output format: md, html or pdf")
	reportCmd.Flags().IntVar(&reportTop, "top", report.DefaultTop, "rows per breakdown (negative means all)")
	reportCmd.Flags().StringVar(&reportTitle, "title", "", "report title")
}

// reportFormatFor picks the format from the flag or the output extension
func reportFormatFor(format, out string) (string, error) {
	if format == "" {
		switch strings.ToLower(filepath.Ext(out)) {
		case ".html", ".htm":
			format = "html"
		case ".pdf":
			format = "pdf"
		default:
			format = "md"
		}
	}
	switch format {
	case "md", "markdown":
		return "md", nil
	case "html", "pdf":
		return format, nil
	default:
		return "", fmt.Errorf("unknown format %q (want md, html or pdf)", format)
	}
}

func runReport(cmd *cobra.Command, args []string) error {
	format, err := reportFormatFor(reportFormat, reportOut)
	if err != nil {
		return err
	}
	if format == "pdf" && reportOut == "" {
		return fmt.Errorf("pdf output needs --out")
	}

	cfg, err := loadConfig()
	if err != nil {
		return err
	}
	table, err := loadTable(cfg)
	if err != nil {
		return err
	}

	opts := report.Options{Title: reportTitle, Top: reportTop, GeneratedAt: time.Now()}
	md := report.Markdown(table, reportQuery, opts)

	var out []byte
	switch format {
	case "md":
		out = []byte(md)
	default:
		body, err := report.HTML(md)
		if err != nil {
			return err
		}
		title := reportTitle
		if title == "" {
			title = "HEVC Advance patent statistics"
		}
		out = report.Document(title, body)
		if format == "pdf" {
			chrome := cfg.Crawl.ChromePath
			if chrome == "" {
				chrome = scrape.DetectChromePath()
			}
			if out, err = report.PDF(cmd.Context(), out, chrome); err != nil {
				return err
			}
		}
	}

	if reportOut == "" {
		_, err := cmd.OutOrStdout().Write(out)
		return err
	}
	if err := os.WriteFile(reportOut, out, 0644); err != nil {
		return fmt.Errorf("write report: %w", err)
	}
	fmt.Fprintf(os.Stderr, "✓ Wrote %s report: %s\n", format, reportOut)
	return nil
}
