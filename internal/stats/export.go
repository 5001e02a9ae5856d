package stats

import (
	"encoding/csv"
	"fmt"
	"io"
	"strconv"

	"github.com/ppiankov/hevcstat/internal/model"
)

// Header returns the CSV/table columns for an aggregation by dim
func Header(dim model.Dimension) []string {
	header := []string{dim.Label(), "NumberOfPatents", "Ratio(%)"}
	if dim == model.DimensionInventor {
		header = append(header, "Ratio/N(%)")
	}
	return header
}

// FormatRatio renders a percentage with two decimals
func FormatRatio(v float64) string {
	return strconv.FormatFloat(v, 'f', 2, 64)
}

// WriteCSV writes rows in the given order with the columns from Header
func WriteCSV(w io.Writer, dim model.Dimension, rows []model.AggregationRow) error {
	writer := csv.NewWriter(w)
	if err := writer.Write(Header(dim)); err != nil {
		return fmt.Errorf("write header: %w", err)
	}
	for _, row := range rows {
		rec := []string{row.Value, strconv.Itoa(row.Count), FormatRatio(row.Ratio)}
		if dim == model.DimensionInventor {
			rec = append(rec, FormatRatio(row.NormalizedRatio))
		}
		if err := writer.Write(rec); err != nil {
			return fmt.Errorf("write row %q: %w", row.Value, err)
		}
	}
	writer.Flush()
	return writer.Error()
}
