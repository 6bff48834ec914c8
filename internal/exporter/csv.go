package exporter

import (
	"bytes"
	"encoding/csv"
	"fmt"
	"log/slog"

	"anemiatrack/internal/dataprocessing"
)

// CSVWriter renders flat reports as CSV for clients that skip the
// workbook formatting.
type CSVWriter struct {
	logger *slog.Logger
}

// NewCSVWriter creates a new CSV writer instance.
func NewCSVWriter(logger *slog.Logger) *CSVWriter {
	return &CSVWriter{logger: logger.With(slog.String("component", "csv_writer"))}
}

// Write renders the report with a UTF-8 BOM so Excel opens it cleanly.
// Null cells render as empty fields.
func (w *CSVWriter) Write(report *dataprocessing.FlatReport) ([]byte, error) {
	var buf bytes.Buffer
	buf.Write([]byte{0xEF, 0xBB, 0xBF})

	writer := csv.NewWriter(&buf)
	if err := writer.Write(report.Columns); err != nil {
		return nil, fmt.Errorf("failed to write headers: %w", err)
	}

	record := make([]string, len(report.Columns))
	for i, row := range report.Rows {
		for j := range record {
			record[j] = ""
			if j < len(row) {
				record[j] = cellText(row[j])
			}
		}
		if err := writer.Write(record); err != nil {
			return nil, fmt.Errorf("failed to write record %d: %w", i, err)
		}
	}

	writer.Flush()
	if err := writer.Error(); err != nil {
		return nil, fmt.Errorf("failed to flush csv: %w", err)
	}

	w.logger.Debug("rendered csv report", slog.Int("rows", len(report.Rows)))

	return buf.Bytes(), nil
}
