package http

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"log/slog"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"anemiatrack/internal/dataprocessing"
	apierrors "anemiatrack/internal/errors"
	"anemiatrack/internal/services"
	"anemiatrack/internal/store"
	"anemiatrack/pkg/contracts/domain"
)

type fakeSurveyService struct {
	uploadStatus services.UploadStatus
	uploadErr    error
	views        []dataprocessing.StateView
	queryErr     error
	export       *services.Export
	exportErr    error

	gotType  domain.ReportType
	gotState string
	gotFile  []byte
}

func (f *fakeSurveyService) Upload(_ context.Context, reportType domain.ReportType, state string, file []byte) (services.UploadStatus, error) {
	f.gotType = reportType
	f.gotState = state
	f.gotFile = file
	return f.uploadStatus, f.uploadErr
}

func (f *fakeSurveyService) Query(_ context.Context, reportType domain.ReportType) ([]dataprocessing.StateView, error) {
	f.gotType = reportType
	if !reportType.Valid() {
		return nil, &domain.ErrUnknownReportType{Type: string(reportType)}
	}
	return f.views, f.queryErr
}

func (f *fakeSurveyService) ExportReport(_ context.Context, reportType domain.ReportType, _ services.ExportFormat) (*services.Export, error) {
	f.gotType = reportType
	return f.export, f.exportErr
}

func newTestSurveyHandler(svc SurveyServiceInterface) *SurveyHandler {
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	return NewSurveyHandler(svc, 1<<20, logger, apierrors.NewErrorHandler(logger, false))
}

func multipartUpload(t *testing.T, reportType, state string, file []byte) (*bytes.Buffer, string) {
	t.Helper()
	body := &bytes.Buffer{}
	writer := multipart.NewWriter(body)
	require.NoError(t, writer.WriteField("type", reportType))
	require.NoError(t, writer.WriteField("state", state))
	part, err := writer.CreateFormFile("csvFile", "upload.csv")
	require.NoError(t, err)
	_, err = part.Write(file)
	require.NoError(t, err)
	require.NoError(t, writer.Close())
	return body, writer.FormDataContentType()
}

func TestSurveyHandler_Query(t *testing.T) {
	svc := &fakeSurveyService{
		views: []dataprocessing.StateView{{State: "Rajasthan"}},
	}
	handler := newTestSurveyHandler(svc)

	rec := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodGet, "/?type=monthly", nil)
	handler.Routes(nil).ServeHTTP(rec, req)

	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, domain.ReportTypeMonthly, svc.gotType)

	var views []dataprocessing.StateView
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &views))
	require.Len(t, views, 1)
	assert.Equal(t, "Rajasthan", views[0].State)
}

func TestSurveyHandler_QueryUnknownType(t *testing.T) {
	handler := newTestSurveyHandler(&fakeSurveyService{})

	rec := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodGet, "/?type=weekly", nil)
	handler.Routes(nil).ServeHTTP(rec, req)

	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Contains(t, rec.Header().Get("Content-Type"), "application/problem+json")
}

func TestSurveyHandler_Upload(t *testing.T) {
	svc := &fakeSurveyService{uploadStatus: services.UploadSuccess}
	handler := newTestSurveyHandler(svc)

	body, contentType := multipartUpload(t, "quarterly", "Rajasthan", []byte("District,Rank\n"))
	req := httptest.NewRequest(http.MethodPost, "/upload", body)
	req.Header.Set("Content-Type", contentType)

	rec := httptest.NewRecorder()
	handler.Routes(nil).ServeHTTP(rec, req)

	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, domain.ReportTypeQuarterly, svc.gotType)
	assert.Equal(t, "Rajasthan", svc.gotState)
	assert.Equal(t, []byte("District,Rank\n"), svc.gotFile)

	var resp map[string]string
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	assert.Equal(t, "SUCCESS", resp["status"])
}

func TestSurveyHandler_UploadMissingFile(t *testing.T) {
	handler := newTestSurveyHandler(&fakeSurveyService{})

	body := &bytes.Buffer{}
	writer := multipart.NewWriter(body)
	require.NoError(t, writer.WriteField("type", "monthly"))
	require.NoError(t, writer.WriteField("state", "Rajasthan"))
	require.NoError(t, writer.Close())

	req := httptest.NewRequest(http.MethodPost, "/upload", body)
	req.Header.Set("Content-Type", writer.FormDataContentType())

	rec := httptest.NewRecorder()
	handler.Routes(nil).ServeHTTP(rec, req)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestSurveyHandler_UploadMissingState(t *testing.T) {
	svc := &fakeSurveyService{uploadErr: services.ErrMissingState}
	handler := newTestSurveyHandler(svc)

	body, contentType := multipartUpload(t, "monthly", "", []byte("x"))
	req := httptest.NewRequest(http.MethodPost, "/upload", body)
	req.Header.Set("Content-Type", contentType)

	rec := httptest.NewRecorder()
	handler.Routes(nil).ServeHTTP(rec, req)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestSurveyHandler_UploadStoreOutage(t *testing.T) {
	svc := &fakeSurveyService{
		uploadStatus: services.UploadStoreError,
		uploadErr:    &store.StoreError{Op: "replace state", Err: context.DeadlineExceeded},
	}
	handler := newTestSurveyHandler(svc)

	body, contentType := multipartUpload(t, "monthly", "Rajasthan", []byte("x"))
	req := httptest.NewRequest(http.MethodPost, "/upload", body)
	req.Header.Set("Content-Type", contentType)

	rec := httptest.NewRecorder()
	handler.Routes(nil).ServeHTTP(rec, req)

	require.Equal(t, http.StatusServiceUnavailable, rec.Code)
	assert.Equal(t, "30", rec.Header().Get("Retry-After"))

	var resp map[string]string
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	assert.Equal(t, "STORE_ERROR", resp["status"])
}

func TestSurveyHandler_UploadMalformedFile(t *testing.T) {
	svc := &fakeSurveyService{
		uploadErr: &dataprocessing.ProcessingError{Stage: "normalize", Err: assert.AnError},
	}
	handler := newTestSurveyHandler(svc)

	body, contentType := multipartUpload(t, "monthly", "Rajasthan", []byte("x"))
	req := httptest.NewRequest(http.MethodPost, "/upload", body)
	req.Header.Set("Content-Type", contentType)

	rec := httptest.NewRecorder()
	handler.Routes(nil).ServeHTTP(rec, req)
	assert.Equal(t, http.StatusUnprocessableEntity, rec.Code)
}

func TestSurveyHandler_UploadRejectsBinaryJunk(t *testing.T) {
	svc := &fakeSurveyService{uploadStatus: services.UploadSuccess}
	handler := newTestSurveyHandler(svc)

	body, contentType := multipartUpload(t, "monthly", "Rajasthan", []byte{0x7f, 'E', 'L', 'F', 0x00})
	req := httptest.NewRequest(http.MethodPost, "/upload", body)
	req.Header.Set("Content-Type", contentType)

	rec := httptest.NewRecorder()
	handler.Routes(nil).ServeHTTP(rec, req)

	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Empty(t, svc.gotFile, "service must not see a rejected upload")
}

func TestSurveyHandler_UploadGuard(t *testing.T) {
	guard := func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			w.WriteHeader(http.StatusUnauthorized)
		})
	}
	handler := newTestSurveyHandler(&fakeSurveyService{uploadStatus: services.UploadSuccess})

	body, contentType := multipartUpload(t, "monthly", "Rajasthan", []byte("x"))
	req := httptest.NewRequest(http.MethodPost, "/upload", body)
	req.Header.Set("Content-Type", contentType)

	rec := httptest.NewRecorder()
	handler.Routes(guard).ServeHTTP(rec, req)
	assert.Equal(t, http.StatusUnauthorized, rec.Code)

	// The guard applies only to the upload route.
	queryRec := httptest.NewRecorder()
	handler.Routes(guard).ServeHTTP(queryRec, httptest.NewRequest(http.MethodGet, "/?type=monthly", nil))
	assert.Equal(t, http.StatusOK, queryRec.Code)
}

func TestSurveyHandler_Export(t *testing.T) {
	svc := &fakeSurveyService{
		export: &services.Export{
			Filename: "output.xlsx",
			MIMEType: "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet",
			Data:     []byte("PK\x03\x04fake"),
		},
	}
	handler := newTestSurveyHandler(svc)

	rec := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodGet, "/export?type=monthly&format=xlsx", nil)
	handler.Routes(nil).ServeHTTP(rec, req)

	require.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Header().Get("Content-Disposition"), `attachment; filename="output.xlsx"`)
	assert.Contains(t, rec.Header().Get("Content-Type"), "spreadsheetml")
	assert.Equal(t, []byte("PK\x03\x04fake"), rec.Body.Bytes())
}

func TestSurveyHandler_ExportUnknownFormat(t *testing.T) {
	svc := &fakeSurveyService{exportErr: services.ErrUnknownExportFormat}
	handler := newTestSurveyHandler(svc)

	rec := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodGet, "/export?type=monthly&format=pdf", nil)
	handler.Routes(nil).ServeHTTP(rec, req)

	assert.Equal(t, http.StatusBadRequest, rec.Code)
}
