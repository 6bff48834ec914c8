package services

import (
	"bytes"
	"context"
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"strconv"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/xuri/excelize/v2"

	"anemiatrack/internal/config"
	"anemiatrack/internal/dataprocessing"
	"anemiatrack/internal/exporter"
	"anemiatrack/internal/infrastructure"
	"anemiatrack/pkg/contracts/domain"
)

type fakeRepo struct {
	docs    map[string]*domain.StateDocument
	pingErr error
	findErr error
}

func newFakeRepo() *fakeRepo {
	return &fakeRepo{docs: make(map[string]*domain.StateDocument)}
}

func (r *fakeRepo) key(rt domain.ReportType, state string) string {
	return string(rt) + "/" + state
}

func (r *fakeRepo) StateByName(_ context.Context, rt domain.ReportType, state string) (*domain.StateDocument, error) {
	if r.findErr != nil {
		return nil, r.findErr
	}
	doc, ok := r.docs[r.key(rt, state)]
	if !ok {
		return nil, dataprocessing.ErrStateNotFound
	}
	return doc, nil
}

func (r *fakeRepo) UpsertState(_ context.Context, rt domain.ReportType, doc *domain.StateDocument) error {
	r.docs[r.key(rt, doc.State)] = doc
	return nil
}

func (r *fakeRepo) AllStates(_ context.Context, rt domain.ReportType) ([]domain.StateDocument, error) {
	var out []domain.StateDocument
	for key, doc := range r.docs {
		if len(key) >= len(rt) && key[:len(rt)] == string(rt) {
			out = append(out, *doc)
		}
	}
	return out, nil
}

func (r *fakeRepo) Ping(context.Context) error { return r.pingErr }

func testLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func newService(t *testing.T) (*SurveyService, *fakeRepo) {
	t.Helper()
	logger := testLogger()
	repo := newFakeRepo()
	svc := NewSurveyService(
		dataprocessing.NewNormalizer(logger),
		dataprocessing.NewMerger(repo, 2021, logger),
		repo,
		exporter.NewXLSXWriter(logger),
		exporter.NewCSVWriter(logger),
		infrastructure.NewNoopTelemetry(),
		logger,
	)
	return svc, repo
}

// quarterlyCSV builds a synthetic quarterly report upload covering the
// full 33-district window.
func quarterlyCSV(t *testing.T) []byte {
	t.Helper()

	var buf bytes.Buffer
	w := csv.NewWriter(&buf)
	require.NoError(t, w.Write([]string{"Location", "Index Value (%)", "District Rank", "HMIS: 6.3- Percentage of mothers"}))
	for i := 0; i < 14; i++ {
		require.NoError(t, w.Write([]string{"metadata"}))
	}
	for i := 0; i < 33; i++ {
		require.NoError(t, w.Write([]string{fmt.Sprintf("X%d", i+1), "50", "3", "10"}))
	}
	w.Flush()
	require.NoError(t, w.Error())
	return buf.Bytes()
}

func TestSurveyService_UploadQuarterlyThreeTimes(t *testing.T) {
	svc, repo := newService(t)
	ctx := context.Background()
	file := quarterlyCSV(t)

	for i := 0; i < 3; i++ {
		status, err := svc.Upload(ctx, domain.ReportTypeQuarterly, "Rajasthan", file)
		require.NoError(t, err)
		assert.Equal(t, UploadSuccess, status)
	}

	doc := repo.docs["quarterly/Rajasthan"]
	require.NotNil(t, doc)
	assert.Equal(t, []string{"2021_I", "2021_II", "2021_III"}, doc.Quarters)

	district := doc.FindDistrict("X1")
	require.NotNil(t, district)
	series := district.Series(domain.CategoryIndexValue)
	require.Len(t, series, 1)
	assert.Equal(t, []float64{50, 50, 50}, series[0].Data)
}

func TestSurveyService_UploadValidation(t *testing.T) {
	svc, _ := newService(t)
	ctx := context.Background()
	file := quarterlyCSV(t)

	tests := []struct {
		name    string
		rt      domain.ReportType
		state   string
		file    []byte
		wantErr error
	}{
		{"unknown type", "weekly", "Rajasthan", file, nil},
		{"missing state", domain.ReportTypeQuarterly, "", file, ErrMissingState},
		{"empty file", domain.ReportTypeQuarterly, "Rajasthan", nil, ErrEmptyUpload},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := svc.Upload(ctx, tt.rt, tt.state, tt.file)
			require.Error(t, err)
			if tt.wantErr != nil {
				assert.ErrorIs(t, err, tt.wantErr)
			}
		})
	}
}

func TestSurveyService_UploadStoreError(t *testing.T) {
	svc, repo := newService(t)
	repo.findErr = errors.New("connection refused")

	status, err := svc.Upload(context.Background(), domain.ReportTypeQuarterly, "Rajasthan", quarterlyCSV(t))
	assert.Equal(t, UploadStoreError, status)
	assert.Error(t, err)
}

func TestSurveyService_QueryShape(t *testing.T) {
	svc, _ := newService(t)
	ctx := context.Background()

	_, err := svc.Upload(ctx, domain.ReportTypeQuarterly, "Rajasthan", quarterlyCSV(t))
	require.NoError(t, err)

	views, err := svc.Query(ctx, domain.ReportTypeQuarterly)
	require.NoError(t, err)
	require.Len(t, views, 1)
	assert.Equal(t, "Rajasthan", views[0].State)
	require.NotEmpty(t, views[0].DistrictsData)
	assert.Equal(t, "X1", views[0].DistrictsData[0].District)
	require.Len(t, views[0].DistrictsData[0].IndexValues, 1)
}

func TestSurveyService_ExportXLSX(t *testing.T) {
	svc, _ := newService(t)
	ctx := context.Background()

	_, err := svc.Upload(ctx, domain.ReportTypeQuarterly, "Rajasthan", quarterlyCSV(t))
	require.NoError(t, err)

	export, err := svc.ExportReport(ctx, domain.ReportTypeQuarterly, ExportXLSX)
	require.NoError(t, err)
	assert.Equal(t, config.ExportFileName, export.Filename)
	assert.Equal(t, config.ExportMIMEType, export.MIMEType)

	f, err := excelize.OpenReader(bytes.NewReader(export.Data))
	require.NoError(t, err)
	defer f.Close()
	rows, err := f.GetRows(config.ExportSheetName)
	require.NoError(t, err)
	require.Len(t, rows, 34) // header + 33 districts, one quarter each
	assert.Equal(t, "2021_I", rows[1][0])
	assert.Equal(t, strconv.Itoa(2021), rows[1][1])
}

func TestSurveyService_ExportCSV(t *testing.T) {
	svc, _ := newService(t)
	ctx := context.Background()

	_, err := svc.Upload(ctx, domain.ReportTypeQuarterly, "Rajasthan", quarterlyCSV(t))
	require.NoError(t, err)

	export, err := svc.ExportReport(ctx, domain.ReportTypeQuarterly, ExportCSV)
	require.NoError(t, err)
	assert.Equal(t, "output.csv", export.Filename)
	assert.Contains(t, string(export.Data), "Month,Year,State,District")
}

func TestSurveyService_ExportUnknownFormat(t *testing.T) {
	svc, _ := newService(t)

	_, err := svc.ExportReport(context.Background(), domain.ReportTypeQuarterly, "pdf")
	assert.ErrorIs(t, err, ErrUnknownExportFormat)
}

func TestSurveyService_Healthy(t *testing.T) {
	svc, repo := newService(t)
	assert.NoError(t, svc.Healthy(context.Background()))

	repo.pingErr = errors.New("down")
	assert.Error(t, svc.Healthy(context.Background()))
}
