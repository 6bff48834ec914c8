package services

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"

	"anemiatrack/internal/config"
	"anemiatrack/internal/dataprocessing"
	"anemiatrack/internal/infrastructure"
	"anemiatrack/pkg/contracts/domain"
)

// SurveyRepository is the store surface the survey service needs.
type SurveyRepository interface {
	dataprocessing.StateRepository
	AllStates(ctx context.Context, reportType domain.ReportType) ([]domain.StateDocument, error)
	Ping(ctx context.Context) error
}

// ReportRenderer renders a flat report into a download payload.
type ReportRenderer interface {
	Write(report *dataprocessing.FlatReport) ([]byte, error)
}

// UploadStatus is the structured outcome of an upload request.
type UploadStatus string

const (
	UploadSuccess    UploadStatus = "SUCCESS"
	UploadNoOp       UploadStatus = "NO_OP"
	UploadStoreError UploadStatus = "STORE_ERROR"
)

// ExportFormat selects the export payload encoding.
type ExportFormat string

const (
	ExportXLSX ExportFormat = "xlsx"
	ExportCSV  ExportFormat = "csv"
)

// Export is a rendered report payload ready for download.
type Export struct {
	Filename string
	MIMEType string
	Data     []byte
}

// SurveyService runs the upload, query, and export pipelines.
type SurveyService struct {
	normalizer *dataprocessing.Normalizer
	merger     *dataprocessing.Merger
	repo       SurveyRepository
	xlsx       ReportRenderer
	csv        ReportRenderer
	telemetry  *infrastructure.Telemetry
	logger     *slog.Logger
}

// NewSurveyService wires the pipeline stages together.
func NewSurveyService(
	normalizer *dataprocessing.Normalizer,
	merger *dataprocessing.Merger,
	repo SurveyRepository,
	xlsx, csv ReportRenderer,
	telemetry *infrastructure.Telemetry,
	logger *slog.Logger,
) *SurveyService {
	return &SurveyService{
		normalizer: normalizer,
		merger:     merger,
		repo:       repo,
		xlsx:       xlsx,
		csv:        csv,
		telemetry:  telemetry,
		logger:     logger.With(slog.String("component", "survey_service")),
	}
}

// Upload normalizes raw spreadsheet bytes and merges them into the named
// state's document. The state name is required upload context; it is
// never inferred from the file contents.
func (s *SurveyService) Upload(ctx context.Context, reportType domain.ReportType, state string, file []byte) (UploadStatus, error) {
	if !reportType.Valid() {
		return "", &domain.ErrUnknownReportType{Type: string(reportType)}
	}
	if state == "" {
		return "", ErrMissingState
	}
	if len(file) == 0 {
		return "", ErrEmptyUpload
	}

	records, err := s.normalizer.Normalize(file, reportType)
	if err != nil {
		s.countUpload(ctx, reportType, "normalize_failed")
		return "", err
	}

	start := time.Now()
	status, err := s.merger.Merge(ctx, reportType, state, records)
	s.telemetry.MergeDuration.Record(ctx, time.Since(start).Seconds(),
		metric.WithAttributes(attribute.String("type", string(reportType))))

	switch status {
	case dataprocessing.MergeSuccess:
		s.countUpload(ctx, reportType, "success")
		return UploadSuccess, nil
	case dataprocessing.MergeNoOp:
		s.countUpload(ctx, reportType, "noop")
		return UploadNoOp, nil
	case dataprocessing.MergeStoreError:
		// Soft failure: reported to the caller, who decides on retry.
		s.countUpload(ctx, reportType, "store_error")
		return UploadStoreError, err
	default:
		s.countUpload(ctx, reportType, "merge_failed")
		return "", err
	}
}

// Query returns the full nested-document collection in the client shape.
func (s *SurveyService) Query(ctx context.Context, reportType domain.ReportType) ([]dataprocessing.StateView, error) {
	if !reportType.Valid() {
		return nil, &domain.ErrUnknownReportType{Type: string(reportType)}
	}

	states, err := s.repo.AllStates(ctx, reportType)
	if err != nil {
		return nil, err
	}
	return dataprocessing.FormatStates(states), nil
}

// ExportReport flattens the full collection and renders it for download.
func (s *SurveyService) ExportReport(ctx context.Context, reportType domain.ReportType, format ExportFormat) (*Export, error) {
	if !reportType.Valid() {
		return nil, &domain.ErrUnknownReportType{Type: string(reportType)}
	}

	var renderer ReportRenderer
	var filename, mimeType string
	switch format {
	case ExportXLSX, "":
		renderer = s.xlsx
		filename = config.ExportFileName
		mimeType = config.ExportMIMEType
	case ExportCSV:
		renderer = s.csv
		filename = "output.csv"
		mimeType = "text/csv"
	default:
		return nil, fmt.Errorf("%w: %q", ErrUnknownExportFormat, format)
	}

	states, err := s.repo.AllStates(ctx, reportType)
	if err != nil {
		return nil, err
	}

	report, err := dataprocessing.Flatten(states)
	if err != nil {
		return nil, err
	}

	data, err := renderer.Write(report)
	if err != nil {
		return nil, fmt.Errorf("failed to render export: %w", err)
	}

	s.telemetry.ExportsTotal.Add(ctx, 1,
		metric.WithAttributes(
			attribute.String("type", string(reportType)),
			attribute.String("format", string(format)),
		))

	s.logger.InfoContext(ctx, "rendered export",
		slog.String("type", string(reportType)),
		slog.String("format", string(format)),
		slog.Int("rows", len(report.Rows)))

	return &Export{Filename: filename, MIMEType: mimeType, Data: data}, nil
}

// Healthy reports store connectivity.
func (s *SurveyService) Healthy(ctx context.Context) error {
	return s.repo.Ping(ctx)
}

func (s *SurveyService) countUpload(ctx context.Context, reportType domain.ReportType, outcome string) {
	s.telemetry.UploadsTotal.Add(ctx, 1,
		metric.WithAttributes(
			attribute.String("type", string(reportType)),
			attribute.String("outcome", outcome),
		))
}
