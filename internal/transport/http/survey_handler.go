package http

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/render"

	"anemiatrack/internal/dataprocessing"
	apierrors "anemiatrack/internal/errors"
	"anemiatrack/internal/services"
	"anemiatrack/internal/validation"
	"anemiatrack/pkg/contracts/domain"
)

// SurveyServiceInterface is the service surface the survey handler needs.
type SurveyServiceInterface interface {
	Upload(ctx context.Context, reportType domain.ReportType, state string, file []byte) (services.UploadStatus, error)
	Query(ctx context.Context, reportType domain.ReportType) ([]dataprocessing.StateView, error)
	ExportReport(ctx context.Context, reportType domain.ReportType, format services.ExportFormat) (*services.Export, error)
}

// SurveyHandler handles survey data requests: query, upload, export.
type SurveyHandler struct {
	service        SurveyServiceInterface
	validator      *validation.UploadValidator
	logger         *slog.Logger
	errorHandler   *apierrors.ErrorHandler
	maxUploadBytes int64
}

// NewSurveyHandler creates a survey handler.
func NewSurveyHandler(service SurveyServiceInterface, maxUploadBytes int64, logger *slog.Logger, errorHandler *apierrors.ErrorHandler) *SurveyHandler {
	return &SurveyHandler{
		service:        service,
		validator:      validation.NewUploadValidator(maxUploadBytes, logger),
		logger:         logger.With(slog.String("component", "survey_handler")),
		errorHandler:   errorHandler,
		maxUploadBytes: maxUploadBytes,
	}
}

// Routes returns the survey routes. The caller wires auth around the
// upload route.
func (h *SurveyHandler) Routes(uploadGuard func(http.Handler) http.Handler) chi.Router {
	r := chi.NewRouter()

	r.Get("/", h.QueryData)
	r.Get("/export", h.ExportData)

	r.Group(func(r chi.Router) {
		if uploadGuard != nil {
			r.Use(uploadGuard)
		}
		r.Post("/upload", h.UploadData)
	})

	return r
}

// QueryData handles GET /api/data?type={monthly|quarterly}.
func (h *SurveyHandler) QueryData(w http.ResponseWriter, r *http.Request) {
	reportType := domain.ReportType(r.URL.Query().Get("type"))

	views, err := h.service.Query(r.Context(), reportType)
	if err != nil {
		h.logger.ErrorContext(r.Context(), "query failed",
			slog.String("type", string(reportType)),
			slog.String("error", err.Error()),
		)
		h.errorHandler.HandleError(w, r, err)
		return
	}

	render.JSON(w, r, views)
}

// UploadData handles POST /api/data/upload. The request is a multipart
// form carrying the spreadsheet under "csvFile" plus "type" and
// "state" fields.
func (h *SurveyHandler) UploadData(w http.ResponseWriter, r *http.Request) {
	r.Body = http.MaxBytesReader(w, r.Body, h.maxUploadBytes)
	if err := r.ParseMultipartForm(h.maxUploadBytes); err != nil {
		h.errorHandler.HandleError(w, r, apierrors.ErrValidation("csvFile", "Request must be a multipart form with a file"))
		return
	}

	reportType := domain.ReportType(r.FormValue("type"))
	state := r.FormValue("state")

	file, header, err := r.FormFile("csvFile")
	if err != nil {
		h.errorHandler.HandleError(w, r, apierrors.ErrValidation("csvFile", "A survey file is required"))
		return
	}
	defer file.Close()

	data, err := io.ReadAll(file)
	if err != nil {
		h.errorHandler.HandleError(w, r, apierrors.InvalidRequestWithError(fmt.Errorf("failed to read upload: %w", err)))
		return
	}

	if err := h.validator.Validate(header.Filename, data); err != nil {
		h.errorHandler.HandleError(w, r, apierrors.ErrValidation("csvFile", err.Error()))
		return
	}

	h.logger.InfoContext(r.Context(), "processing upload",
		slog.String("type", string(reportType)),
		slog.String("state", state),
		slog.String("filename", header.Filename),
		slog.Int("bytes", len(data)),
	)

	status, err := h.service.Upload(r.Context(), reportType, state, data)
	switch {
	case err == nil:
		// Success or no-op.
	case status == services.UploadStoreError:
		// Soft failure: the document store is down, the upload can be
		// retried. Report the outcome alongside the problem status.
		h.logger.WarnContext(r.Context(), "upload hit store outage",
			slog.String("state", state),
			slog.String("error", err.Error()),
		)
		w.Header().Set("Retry-After", "30")
		render.Status(r, http.StatusServiceUnavailable)
		render.JSON(w, r, map[string]interface{}{
			"status": string(status),
			"detail": "Document store temporarily unavailable, retry the upload",
		})
		return
	case errors.Is(err, services.ErrMissingState):
		h.errorHandler.HandleError(w, r, apierrors.ErrValidation("state", "State name is required"))
		return
	case errors.Is(err, services.ErrEmptyUpload):
		h.errorHandler.HandleError(w, r, apierrors.ErrValidation("csvFile", "Uploaded file is empty"))
		return
	default:
		h.logger.ErrorContext(r.Context(), "upload failed",
			slog.String("type", string(reportType)),
			slog.String("state", state),
			slog.String("error", err.Error()),
		)
		h.errorHandler.HandleError(w, r, err)
		return
	}

	render.JSON(w, r, map[string]interface{}{
		"status": string(status),
		"state":  state,
		"type":   string(reportType),
	})
}

// ExportData handles GET /api/data/export?type=&format=. The response
// is a file download.
func (h *SurveyHandler) ExportData(w http.ResponseWriter, r *http.Request) {
	reportType := domain.ReportType(r.URL.Query().Get("type"))
	format := services.ExportFormat(r.URL.Query().Get("format"))

	export, err := h.service.ExportReport(r.Context(), reportType, format)
	if err != nil {
		if errors.Is(err, services.ErrUnknownExportFormat) {
			h.errorHandler.HandleError(w, r, apierrors.ErrValidation("format", fmt.Sprintf("Unknown export format %q", format)))
			return
		}
		h.logger.ErrorContext(r.Context(), "export failed",
			slog.String("type", string(reportType)),
			slog.String("error", err.Error()),
		)
		h.errorHandler.HandleError(w, r, err)
		return
	}

	w.Header().Set("Content-Type", export.MIMEType)
	w.Header().Set("Content-Disposition", fmt.Sprintf("attachment; filename=%q", export.Filename))
	w.WriteHeader(http.StatusOK)
	w.Write(export.Data)
}
