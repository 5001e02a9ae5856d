package dataset

import (
	"fmt"

	"go.uber.org/zap"
)

// PrepareReport describes what Prepare changed
type PrepareReport struct {
	Rows       int      `json:"rows"`       // Rows read from the source
	Duplicates int      `json:"duplicates"` // Rows removed by patent number
	Dropped    []string `json:"dropped"`    // Columns removed
	Written    int      `json:"written"`    // Rows written to the cleaned file
}

// Prepare cleans the published pool list: the banner line is skipped,
// unused columns are removed and rows are deduplicated by patent number.
func Prepare(src, dst string, logger *zap.Logger) (*PrepareReport, error) {
	frame, err := ReadFrameFile(src, 1)
	if err != nil {
		return nil, err
	}

	report := &PrepareReport{Rows: len(frame.Rows)}
	report.Dropped = frame.Drop(droppedColumns...)

	dups, err := frame.DedupBy(ColPatentNumber)
	if err != nil {
		return nil, fmt.Errorf("dedup %s: %w", src, err)
	}
	report.Duplicates = dups
	report.Written = len(frame.Rows)

	if err := frame.WriteFile(dst); err != nil {
		return nil, err
	}

	logger.Info("dataset prepared",
		zap.String("source", src),
		zap.String("output", dst),
		zap.Int("rows", report.Rows),
		zap.Int("duplicates", report.Duplicates),
		zap.Strings("dropped", report.Dropped),
	)
	return report, nil
}
