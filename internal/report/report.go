// Package report renders filtered patent statistics as Markdown and HTML.
package report

import (
	"bytes"
	"fmt"
	"html"
	"strconv"
	"strings"
	"time"

	"github.com/yuin/goldmark"
	"github.com/yuin/goldmark/extension"

	"github.com/ppiankov/hevcstat/internal/model"
	"github.com/ppiankov/hevcstat/internal/stats"
)

// DefaultTop is the number of rows shown per dimension
const DefaultTop = 20

// Options controls report rendering
type Options struct {
	Title       string
	Top         int // Rows per dimension; 0 means DefaultTop, negative means all
	GeneratedAt time.Time
}

// Markdown renders the statistics of table filtered by q
func Markdown(table model.Table, q model.Query, opts Options) string {
	if opts.Title == "" {
		opts.Title = "HEVC Advance patent statistics"
	}
	top := opts.Top
	if top == 0 {
		top = DefaultTop
	}

	subset := stats.Filter(table, q)

	var b strings.Builder
	fmt.Fprintf(&b, "# %s\n\n", opts.Title)
	if !opts.GeneratedAt.IsZero() {
		fmt.Fprintf(&b, "Generated %s.\n\n", opts.GeneratedAt.UTC().Format(time.RFC3339))
	}

	b.WriteString("| Filter | Value |\n|---|---|\n")
	for _, f := range []struct{ name, value string }{
		{"Profile", q.Profile},
		{"Country", q.Country},
		{"Licensor", q.Licensor},
		{"Inventor", q.Inventor},
	} {
		v := f.value
		if v == "" {
			v = model.All
		}
		fmt.Fprintf(&b, "| %s | %s |\n", f.name, cell(v))
	}
	b.WriteString("\n")

	for _, dim := range model.Dimensions {
		sum := stats.Summarize(subset, dim)
		rows := stats.Aggregate(subset, dim)
		if top > 0 {
			rows = stats.Top(rows, top)
		}

		fmt.Fprintf(&b, "## %s\n\n", dim.Label())
		fmt.Fprintf(&b, "Total number: patents (%d) unique %s (%d)\n\n", sum.Total, dim.Plural(), sum.Unique)
		if len(rows) == 0 {
			b.WriteString("_No patents match._\n\n")
			continue
		}
		writeTable(&b, dim, rows)
		b.WriteString("\n")
	}
	return b.String()
}

func writeTable(b *strings.Builder, dim model.Dimension, rows []model.AggregationRow) {
	header := stats.Header(dim)
	b.WriteString("| " + strings.Join(header, " | ") + " |\n")
	b.WriteString("|---")
	for range header[1:] {
		b.WriteString("|---:")
	}
	b.WriteString("|\n")

	for _, r := range rows {
		fmt.Fprintf(b, "| %s | %s | %s", cell(r.Value), strconv.Itoa(r.Count), stats.FormatRatio(r.Ratio))
		if dim == model.DimensionInventor {
			fmt.Fprintf(b, " | %s", stats.FormatRatio(r.NormalizedRatio))
		}
		b.WriteString(" |\n")
	}
}

// cell escapes a value for a Markdown table cell
func cell(s string) string {
	return strings.ReplaceAll(s, "|", `\|`)
}

// HTML converts Markdown to an HTML fragment with GitHub-flavored tables
func HTML(md string) ([]byte, error) {
	var buf bytes.Buffer
	conv := goldmark.New(goldmark.WithExtensions(extension.GFM))
	if err := conv.Convert([]byte(md), &buf); err != nil {
		return nil, fmt.Errorf("markdown convert: %w", err)
	}
	return buf.Bytes(), nil
}

// Document wraps an HTML fragment in a standalone page
func Document(title string, body []byte) []byte {
	var buf bytes.Buffer
	buf.WriteString("<!DOCTYPE html>\n<html lang=\"en\">\n<head>\n<meta charset=\"utf-8\">\n")
	fmt.Fprintf(&buf, "<title>%s</title>\n", html.EscapeString(title))
	buf.WriteString("<style>body{font-family:sans-serif;max-width:60rem;margin:2rem auto}" +
		"table{border-collapse:collapse}th,td{border:1px solid #ccc;padding:.25rem .5rem}</style>\n")
	buf.WriteString("</head>\n<body>\n")
	buf.Write(body)
	buf.WriteString("</body>\n</html>\n")
	return buf.Bytes()
}
