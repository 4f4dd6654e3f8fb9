package results

import (
	"encoding/csv"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strconv"

	"github.com/lehigh-university-libraries/report-comparator/internal/comparison"
	"github.com/lehigh-university-libraries/report-comparator/internal/report"
)

// AbsentMarker is written wherever one side of a comparison has no value.
const AbsentMarker = "N/A"

// Header is the column layout of every comparison CSV.
var Header = []string{
	"metric",
	"country",
	"provider",
	"product",
	"sample_size",
	"existing_value",
	"new_value",
	"comparison_value",
}

// CSVWriter writes one <metric>_comparison.csv per metric into a directory.
type CSVWriter struct {
	outputDir string
	precision int
}

// NewCSVWriter creates a writer. precision is the number of decimals, -1 for
// the shortest representation that round-trips.
func NewCSVWriter(outputDir string, precision int) *CSVWriter {
	return &CSVWriter{outputDir: outputDir, precision: precision}
}

// FileName returns the output file name for kind.
func FileName(kind report.MetricKind) string {
	return fmt.Sprintf("%s_comparison.csv", kind)
}

// Write replaces the metric's comparison file with rows and returns its path.
func (w *CSVWriter) Write(kind report.MetricKind, rows []comparison.Row) (string, error) {
	path := filepath.Join(w.outputDir, FileName(kind))

	file, err := os.Create(path)
	if err != nil {
		return "", fmt.Errorf("failed to create CSV file: %w", err)
	}

	if err := w.writeRows(file, rows); err != nil {
		file.Close()
		return "", err
	}
	if err := file.Close(); err != nil {
		return "", fmt.Errorf("failed to close CSV file: %w", err)
	}

	return path, nil
}

// Remove deletes the metric's comparison file if one exists.
func (w *CSVWriter) Remove(kind report.MetricKind) (bool, error) {
	err := os.Remove(filepath.Join(w.outputDir, FileName(kind)))
	if errors.Is(err, fs.ErrNotExist) {
		return false, nil
	}
	if err != nil {
		return false, fmt.Errorf("failed to remove CSV file: %w", err)
	}
	return true, nil
}

func (w *CSVWriter) writeRows(file *os.File, rows []comparison.Row) error {
	writer := csv.NewWriter(file)

	if err := writer.Write(Header); err != nil {
		return fmt.Errorf("failed to write CSV header: %w", err)
	}

	for _, r := range rows {
		record := []string{
			r.Metric.String(),
			r.Country,
			r.Provider,
			r.Product,
			formatInt(r.SampleSize),
			w.formatFloat(r.Existing),
			w.formatFloat(r.New),
			w.formatFloat(r.Delta),
		}
		if err := writer.Write(record); err != nil {
			return fmt.Errorf("failed to write CSV row: %w", err)
		}
	}

	writer.Flush()
	if err := writer.Error(); err != nil {
		return fmt.Errorf("failed to flush CSV: %w", err)
	}
	return nil
}

func (w *CSVWriter) formatFloat(v *float64) string {
	if v == nil {
		return AbsentMarker
	}
	return strconv.FormatFloat(*v, 'f', w.precision, 64)
}

func formatInt(v *int) string {
	if v == nil {
		return AbsentMarker
	}
	return strconv.Itoa(*v)
}
