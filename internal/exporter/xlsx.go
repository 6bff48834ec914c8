// Package exporter renders a denormalized flat report as a spreadsheet
// payload for download.
package exporter

import (
	"bytes"
	"fmt"
	"log/slog"
	"strconv"

	"github.com/xuri/excelize/v2"

	"anemiatrack/internal/config"
	"anemiatrack/internal/dataprocessing"
)

// XLSXWriter renders flat reports as xlsx workbooks.
type XLSXWriter struct {
	logger *slog.Logger
}

// NewXLSXWriter creates a new xlsx writer instance.
func NewXLSXWriter(logger *slog.Logger) *XLSXWriter {
	return &XLSXWriter{logger: logger.With(slog.String("component", "xlsx_writer"))}
}

// Write renders the report into a workbook: one sheet with a named table
// over the full data range, centered cells, and column widths fit to the
// longest value or header in each column.
func (w *XLSXWriter) Write(report *dataprocessing.FlatReport) ([]byte, error) {
	f := excelize.NewFile()
	defer f.Close()

	sheet := f.GetSheetName(0)
	if sheet != config.ExportSheetName {
		f.SetSheetName(sheet, config.ExportSheetName)
		sheet = config.ExportSheetName
	}

	header := make([]interface{}, len(report.Columns))
	for i, col := range report.Columns {
		header[i] = col
	}
	if err := f.SetSheetRow(sheet, "A1", &header); err != nil {
		return nil, fmt.Errorf("failed to write header row: %w", err)
	}

	for i, row := range report.Rows {
		cell := fmt.Sprintf("A%d", i+2)
		rowCopy := row
		if err := f.SetSheetRow(sheet, cell, &rowCopy); err != nil {
			return nil, fmt.Errorf("failed to write row %d: %w", i, err)
		}
	}

	lastCol, err := excelize.ColumnNumberToName(len(report.Columns))
	if err != nil {
		return nil, fmt.Errorf("failed to resolve last column: %w", err)
	}
	dataRange := fmt.Sprintf("A1:%s%d", lastCol, len(report.Rows)+1)

	// A table needs at least one data row under the header.
	if len(report.Rows) > 0 {
		if err := f.AddTable(sheet, &excelize.Table{
			Range: dataRange,
			Name:  config.ExportTableName,
		}); err != nil {
			return nil, fmt.Errorf("failed to add table: %w", err)
		}
	}

	centered, err := f.NewStyle(&excelize.Style{
		Alignment: &excelize.Alignment{Horizontal: "center", Vertical: "center"},
	})
	if err != nil {
		return nil, fmt.Errorf("failed to create cell style: %w", err)
	}
	if err := f.SetCellStyle(sheet, "A1", fmt.Sprintf("%s%d", lastCol, len(report.Rows)+1), centered); err != nil {
		return nil, fmt.Errorf("failed to apply cell style: %w", err)
	}

	if err := w.fitColumnWidths(f, sheet, report); err != nil {
		return nil, err
	}

	var buf bytes.Buffer
	if err := f.Write(&buf); err != nil {
		return nil, fmt.Errorf("failed to serialize workbook: %w", err)
	}

	w.logger.Debug("rendered xlsx report",
		slog.Int("rows", len(report.Rows)),
		slog.Int("columns", len(report.Columns)))

	return buf.Bytes(), nil
}

// fitColumnWidths sizes each column to its longest rendered value or
// header, padded for the table filter button.
func (w *XLSXWriter) fitColumnWidths(f *excelize.File, sheet string, report *dataprocessing.FlatReport) error {
	for j, col := range report.Columns {
		width := len(col)
		for _, row := range report.Rows {
			if j >= len(row) {
				continue
			}
			if n := len(cellText(row[j])); n > width {
				width = n
			}
		}
		name, err := excelize.ColumnNumberToName(j + 1)
		if err != nil {
			return fmt.Errorf("failed to resolve column %d: %w", j, err)
		}
		if err := f.SetColWidth(sheet, name, name, float64(width)+4); err != nil {
			return fmt.Errorf("failed to set width of column %s: %w", name, err)
		}
	}
	return nil
}

func cellText(v interface{}) string {
	switch x := v.(type) {
	case nil:
		return ""
	case string:
		return x
	case int:
		return strconv.Itoa(x)
	case float64:
		return strconv.FormatFloat(x, 'f', -1, 64)
	default:
		return fmt.Sprintf("%v", x)
	}
}
