package exporter

import (
	"bytes"
	"io"
	"log/slog"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/xuri/excelize/v2"

	"anemiatrack/internal/config"
	"anemiatrack/internal/dataprocessing"
)

func testLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func sampleReport() *dataprocessing.FlatReport {
	return &dataprocessing.FlatReport{
		Columns: dataprocessing.ReportColumns,
		Rows: [][]interface{}{
			{"Jan", 2021, "Rajasthan", "Jaipur", 2.0, 48.1, nil, nil, nil, nil, 10.0},
			{"Feb", 2021, "Rajasthan", "Jaipur", 1.0, 47.9, nil, nil, nil, nil, 11.0},
		},
	}
}

func TestXLSXWriter_RoundTrip(t *testing.T) {
	w := NewXLSXWriter(testLogger())

	payload, err := w.Write(sampleReport())
	require.NoError(t, err)
	require.NotEmpty(t, payload)

	f, err := excelize.OpenReader(bytes.NewReader(payload))
	require.NoError(t, err)
	defer f.Close()

	rows, err := f.GetRows(config.ExportSheetName)
	require.NoError(t, err)
	require.Len(t, rows, 3)
	assert.Equal(t, dataprocessing.ReportColumns, rows[0])
	assert.Equal(t, "Jan", rows[1][0])
	assert.Equal(t, "Jaipur", rows[1][3])
	assert.Equal(t, "48.1", rows[1][5])

	// The full data range is covered by a named table.
	tables, err := f.GetTables(config.ExportSheetName)
	require.NoError(t, err)
	require.Len(t, tables, 1)
	assert.Equal(t, config.ExportTableName, tables[0].Name)
	assert.Equal(t, "A1:K3", tables[0].Range)
}

func TestXLSXWriter_ColumnWidthsFitContent(t *testing.T) {
	w := NewXLSXWriter(testLogger())
	report := sampleReport()
	report.Rows[0][3] = "A District With A Very Long Name Indeed"

	payload, err := w.Write(report)
	require.NoError(t, err)

	f, err := excelize.OpenReader(bytes.NewReader(payload))
	require.NoError(t, err)
	defer f.Close()

	narrow, err := f.GetColWidth(config.ExportSheetName, "A")
	require.NoError(t, err)
	wide, err := f.GetColWidth(config.ExportSheetName, "D")
	require.NoError(t, err)
	assert.Greater(t, wide, narrow)
}

func TestXLSXWriter_EmptyReport(t *testing.T) {
	w := NewXLSXWriter(testLogger())

	payload, err := w.Write(&dataprocessing.FlatReport{Columns: dataprocessing.ReportColumns})
	require.NoError(t, err)

	f, err := excelize.OpenReader(bytes.NewReader(payload))
	require.NoError(t, err)
	defer f.Close()

	rows, err := f.GetRows(config.ExportSheetName)
	require.NoError(t, err)
	require.Len(t, rows, 1)
}

func TestCSVWriter_NullCellsRenderEmpty(t *testing.T) {
	w := NewCSVWriter(testLogger())

	payload, err := w.Write(sampleReport())
	require.NoError(t, err)

	// Strip the BOM before inspecting.
	text := string(bytes.TrimPrefix(payload, []byte{0xEF, 0xBB, 0xBF}))
	assert.Contains(t, text, "Month,Year,State,District")
	assert.Contains(t, text, "Jan,2021,Rajasthan,Jaipur,2,48.1,,,,,10")
}
