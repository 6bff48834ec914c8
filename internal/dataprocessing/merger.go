package dataprocessing

import (
	"context"
	"errors"
	"log/slog"
	"sync"

	"anemiatrack/pkg/contracts/domain"
)

// MergeStatus is the outcome signal of one merge call.
type MergeStatus string

const (
	MergeSuccess    MergeStatus = "success"
	MergeNoOp       MergeStatus = "noop"
	MergeStoreError MergeStatus = "store_error"
)

// ErrStateNotFound is returned by a StateRepository when no document
// exists yet for the requested state.
var ErrStateNotFound = errors.New("state document not found")

// StateRepository is the narrow document-store surface the merger needs.
type StateRepository interface {
	StateByName(ctx context.Context, reportType domain.ReportType, state string) (*domain.StateDocument, error)
	UpsertState(ctx context.Context, reportType domain.ReportType, doc *domain.StateDocument) error
}

// Merger folds normalized upload records into per-state nested documents.
// One call covers one reporting period of one state: every record appends
// exactly one period entry to its district, and in quarterly mode the
// state's quarter-label sequence advances by exactly one.
//
// The store's read-modify-write cycle is not transactional, so merges for
// the same state and collection are serialized with a per-state mutex.
type Merger struct {
	repo      StateRepository
	startYear int
	logger    *slog.Logger

	mu         sync.Mutex
	stateLocks map[string]*sync.Mutex
}

// NewMerger creates a merger. startYear seeds brand-new series and the
// first quarter label.
func NewMerger(repo StateRepository, startYear int, logger *slog.Logger) *Merger {
	return &Merger{
		repo:       repo,
		startYear:  startYear,
		logger:     logger.With(slog.String("component", "merger")),
		stateLocks: make(map[string]*sync.Mutex),
	}
}

// Merge applies one upload's records to the named state's document.
// The state name is an explicit required input; it is never inferred
// from the records.
//
// Store failures return MergeStoreError along with the cause: they are
// soft, loggable outcomes the caller may retry. Any other failure is a
// fatal processing error with no partial write.
func (m *Merger) Merge(ctx context.Context, reportType domain.ReportType, state string, records []domain.NormalizedRecord) (MergeStatus, error) {
	if !reportType.Valid() {
		return "", &domain.ErrUnknownReportType{Type: string(reportType)}
	}
	if state == "" {
		return "", newProcessingError("merge", "state name is required")
	}
	if len(records) == 0 {
		return MergeNoOp, nil
	}
	for _, rec := range records {
		if rec.District == "" {
			return "", newProcessingError("merge", "record with empty %s field", domain.FieldDistrict)
		}
	}

	lock := m.stateLock(string(reportType) + "/" + state)
	lock.Lock()
	defer lock.Unlock()

	doc, err := m.repo.StateByName(ctx, reportType, state)
	switch {
	case errors.Is(err, ErrStateNotFound):
		doc = &domain.StateDocument{State: state}
	case err != nil:
		m.logger.WarnContext(ctx, "state fetch failed",
			slog.String("state", state),
			slog.String("error", err.Error()))
		return MergeStoreError, err
	}

	if err := m.apply(doc, reportType, records); err != nil {
		return "", err
	}

	if err := m.repo.UpsertState(ctx, reportType, doc); err != nil {
		m.logger.WarnContext(ctx, "state upsert failed",
			slog.String("state", state),
			slog.String("error", err.Error()))
		return MergeStoreError, err
	}

	m.logger.InfoContext(ctx, "merged upload",
		slog.String("type", string(reportType)),
		slog.String("state", state),
		slog.Int("records", len(records)))

	return MergeSuccess, nil
}

// apply mutates doc in memory; nothing is persisted until the caller
// upserts, so a failure here leaves the store untouched.
func (m *Merger) apply(doc *domain.StateDocument, reportType domain.ReportType, records []domain.NormalizedRecord) error {
	var quarterLabel string
	if reportType == domain.ReportTypeQuarterly {
		last := ""
		if n := len(doc.Quarters); n > 0 {
			last = doc.Quarters[n-1]
		}
		next, err := domain.NextQuarterLabel(last, m.startYear)
		if err != nil {
			return newProcessingError("merge", "corrupt quarter sequence for state %q: %v", doc.State, err)
		}
		quarterLabel = next
		doc.Quarters = append(doc.Quarters, next)
	}

	for _, rec := range records {
		district := doc.FindDistrict(rec.District)
		if district == nil {
			doc.Data = append(doc.Data, domain.DistrictDocument{District: rec.District})
			district = &doc.Data[len(doc.Data)-1]
		}

		period := domain.PeriodRecord{Values: make(map[string]*float64, len(rec.Values))}
		for category, value := range rec.Values {
			v := value
			period.Values[category] = &v
		}

		switch reportType {
		case domain.ReportTypeQuarterly:
			year, _, err := domain.ParseQuarterLabel(quarterLabel)
			if err != nil {
				return newProcessingError("merge", "corrupt quarter label %q: %v", quarterLabel, err)
			}
			period.Year = year
			period.Quarter = quarterLabel
		default:
			period.Year, period.Month = nextMonthlyPeriod(district, m.startYear)
		}

		district.Periods = append(district.Periods, period)
	}
	return nil
}

// nextMonthlyPeriod returns the (year, month) slot following the
// district's latest period. Month 12 rolls into month 1 of year+1; a
// district with no history starts at month 1 of the configured year.
func nextMonthlyPeriod(district *domain.DistrictDocument, startYear int) (year, month int) {
	n := len(district.Periods)
	if n == 0 {
		return startYear, 1
	}
	last := district.Periods[n-1]
	if last.Month >= domain.MonthsPerYear {
		return last.Year + 1, 1
	}
	return last.Year, last.Month + 1
}

func (m *Merger) stateLock(key string) *sync.Mutex {
	m.mu.Lock()
	defer m.mu.Unlock()
	lock, ok := m.stateLocks[key]
	if !ok {
		lock = &sync.Mutex{}
		m.stateLocks[key] = lock
	}
	return lock
}
