package dataprocessing

import (
	"bytes"
	"encoding/csv"
	"fmt"
	"io"
	"log/slog"
	"strconv"
	"strings"

	"github.com/xuri/excelize/v2"

	"anemiatrack/pkg/contracts/domain"
)

// Normalizer parses a raw report spreadsheet, slices out the district
// data block, and renames columns to canonical field names.
type Normalizer struct {
	revisions map[domain.ReportType]FormatRevision
	logger    *slog.Logger
}

// NewNormalizer creates a normalizer using the default format revisions.
func NewNormalizer(logger *slog.Logger) *Normalizer {
	return &Normalizer{
		revisions: DefaultRevisions(),
		logger:    logger.With(slog.String("component", "normalizer")),
	}
}

// NewNormalizerWithRevisions creates a normalizer with custom format
// revisions, used when a new report template era ships.
func NewNormalizerWithRevisions(logger *slog.Logger, revisions map[domain.ReportType]FormatRevision) *Normalizer {
	return &Normalizer{
		revisions: revisions,
		logger:    logger.With(slog.String("component", "normalizer")),
	}
}

var canonicalFields = func() map[string]bool {
	m := map[string]bool{domain.FieldDistrict: true}
	for _, c := range domain.Categories {
		m[c] = true
	}
	return m
}()

// Normalize parses raw spreadsheet bytes into normalized district records.
// The report type is validated before the file is touched.
func (n *Normalizer) Normalize(data []byte, reportType domain.ReportType) ([]domain.NormalizedRecord, error) {
	if !reportType.Valid() {
		return nil, &domain.ErrUnknownReportType{Type: string(reportType)}
	}
	rev, ok := n.revisions[reportType]
	if !ok {
		return nil, &domain.ErrUnknownReportType{Type: string(reportType)}
	}

	rows, err := parseRows(data)
	if err != nil {
		return nil, &ProcessingError{Stage: "normalize", Err: err}
	}
	if len(rows) == 0 {
		return nil, newProcessingError("normalize", "file has no header row")
	}

	header := rows[0]
	dataRows := rows[1:]
	if len(dataRows) < rev.EndRow {
		return nil, newProcessingError("normalize", "row window [%d,%d) exceeds %d data rows", rev.StartRow, rev.EndRow, len(dataRows))
	}

	columns, err := rev.resolveColumns(header)
	if err != nil {
		return nil, &ProcessingError{Stage: "normalize", Err: err}
	}

	records := make([]domain.NormalizedRecord, 0, rev.EndRow-rev.StartRow)
	for i, row := range dataRows[rev.StartRow:rev.EndRow] {
		rec, err := buildRecord(row, columns)
		if err != nil {
			return nil, newProcessingError("normalize", "data row %d: %v", rev.StartRow+i, err)
		}
		records = append(records, rec)
	}

	n.logger.Debug("normalized upload",
		slog.String("type", string(reportType)),
		slog.Int("records", len(records)))

	return records, nil
}

// resolveColumns maps column index to canonical field name using the
// rename table first and the positional table for unlabeled columns.
func (rev FormatRevision) resolveColumns(header []string) (map[int]string, error) {
	columns := make(map[int]string, len(header))
	for j, raw := range header {
		name := strings.TrimSpace(raw)
		canon, ok := rev.HeaderMap[name]
		if !ok && canonicalFields[name] {
			canon = name
			ok = true
		}
		if !ok {
			// Only unlabeled columns ("Unnamed: N" era or an empty header
			// cell) may fall back to position. A labeled header this
			// revision does not know is a different template, not a gap.
			if name != "" && !strings.HasPrefix(name, "Unnamed:") {
				return nil, fmt.Errorf("column rename failed: unrecognized header %q at column %d", name, j)
			}
			canon = rev.Positional[j]
		}
		if canon != "" {
			columns[j] = canon
		}
	}

	hasDistrict := false
	for _, canon := range columns {
		if canon == domain.FieldDistrict {
			hasDistrict = true
			break
		}
	}
	if !hasDistrict {
		return nil, fmt.Errorf("column rename failed: no %s column in header", domain.FieldDistrict)
	}
	return columns, nil
}

func buildRecord(row []string, columns map[int]string) (domain.NormalizedRecord, error) {
	rec := domain.NormalizedRecord{Values: make(map[string]float64, len(domain.Categories))}
	for j, canon := range columns {
		if j >= len(row) {
			continue
		}
		cell := strings.TrimSpace(row[j])
		if canon == domain.FieldDistrict {
			rec.District = cell
			continue
		}
		if cell == "" {
			continue
		}
		v, err := parseNumeric(cell)
		if err != nil {
			return domain.NormalizedRecord{}, fmt.Errorf("column %q: %w", canon, err)
		}
		rec.Values[canon] = v
	}
	if rec.District == "" {
		return domain.NormalizedRecord{}, fmt.Errorf("empty %s cell", domain.FieldDistrict)
	}
	return rec, nil
}

// parseNumeric accepts percentages and rank values as they appear in the
// source report ("48.1", "48.1%", "1,234").
func parseNumeric(cell string) (float64, error) {
	cleaned := strings.TrimSuffix(cell, "%")
	cleaned = strings.ReplaceAll(cleaned, ",", "")
	cleaned = strings.TrimSpace(cleaned)
	v, err := strconv.ParseFloat(cleaned, 64)
	if err != nil {
		return 0, fmt.Errorf("bad numeric value %q: %w", cell, err)
	}
	return v, nil
}

// parseRows reads the upload as xlsx when it carries the zip magic,
// otherwise as delimited text.
func parseRows(data []byte) ([][]string, error) {
	if len(data) == 0 {
		return nil, fmt.Errorf("empty file")
	}
	if bytes.HasPrefix(data, []byte("PK\x03\x04")) {
		return parseXLSX(data)
	}
	return parseCSV(data)
}

func parseXLSX(data []byte) ([][]string, error) {
	f, err := excelize.OpenReader(bytes.NewReader(data))
	if err != nil {
		return nil, fmt.Errorf("failed to open workbook: %w", err)
	}
	defer f.Close()

	sheets := f.GetSheetList()
	if len(sheets) == 0 {
		return nil, fmt.Errorf("workbook has no sheets")
	}
	rows, err := f.GetRows(sheets[0])
	if err != nil {
		return nil, fmt.Errorf("failed to read sheet %q: %w", sheets[0], err)
	}
	return rows, nil
}

func parseCSV(data []byte) ([][]string, error) {
	reader := csv.NewReader(bytes.NewReader(data))
	reader.FieldsPerRecord = -1 // the template's trailing columns vary by era

	var rows [][]string
	for {
		row, err := reader.Read()
		if err == io.EOF {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("failed to parse csv: %w", err)
		}
		rows = append(rows, row)
	}
	return rows, nil
}
