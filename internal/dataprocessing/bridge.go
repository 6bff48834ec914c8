package dataprocessing

import (
	"fmt"

	"anemiatrack/internal/config"
	"anemiatrack/pkg/contracts/domain"
)

// Read-side bridge: reshapes persisted state documents into the nested
// JSON view the client application consumes.

// PeriodEntry is one labeled period value, rendered as a single-key
// object ({"Jan": 48.1} or {"2021_I": 50}). A null value means the
// period exists but the category was not reported.
type PeriodEntry map[string]*float64

// YearSeriesView is one year of labeled values for one category.
type YearSeriesView struct {
	Year           int           `json:"year"`
	SingleYearData []PeriodEntry `json:"singleYearData"`
}

// DistrictView is the client-facing district shape. IndexValues mirrors
// the legacy top-level field; Categories carries every indicator keyed
// by canonical name.
type DistrictView struct {
	District    string                      `json:"district"`
	IndexValues []YearSeriesView            `json:"indexValues"`
	Categories  map[string][]YearSeriesView `json:"categories"`
}

// StateView is the client-facing state shape.
type StateView struct {
	State         string         `json:"state"`
	DistrictsData []DistrictView `json:"districtsData"`
}

// FormatStates reshapes persisted documents into the client view.
func FormatStates(states []domain.StateDocument) []StateView {
	out := make([]StateView, 0, len(states))
	for _, state := range states {
		view := StateView{
			State:         state.State,
			DistrictsData: make([]DistrictView, 0, len(state.Data)),
		}
		for _, district := range state.Data {
			view.DistrictsData = append(view.DistrictsData, formatDistrict(district))
		}
		out = append(out, view)
	}
	return out
}

func formatDistrict(district domain.DistrictDocument) DistrictView {
	dv := DistrictView{
		District:   district.District,
		Categories: make(map[string][]YearSeriesView, len(domain.Categories)),
	}
	for _, category := range domain.Categories {
		dv.Categories[category] = formatCategory(district.Periods, category)
	}
	dv.IndexValues = dv.Categories[domain.CategoryIndexValue]
	return dv
}

func formatCategory(periods []domain.PeriodRecord, category string) []YearSeriesView {
	out := []YearSeriesView{}
	for _, p := range periods {
		if n := len(out); n == 0 || out[n-1].Year != p.Year {
			out = append(out, YearSeriesView{Year: p.Year})
		}
		entry := PeriodEntry{periodLabel(p): p.Values[category]}
		out[len(out)-1].SingleYearData = append(out[len(out)-1].SingleYearData, entry)
	}
	return out
}

// periodLabel labels a period for display: the quarter label for
// quarterly data, a calendar month name for monthly data, and a
// synthetic Month_<n> for anything past December. The synthetic label
// is defensive against malformed data, not an expected case.
func periodLabel(p domain.PeriodRecord) string {
	if p.Quarter != "" {
		return p.Quarter
	}
	if p.Month >= 1 && p.Month <= len(config.MonthNames) {
		return config.MonthNames[p.Month-1]
	}
	return fmt.Sprintf("Month_%d", p.Month)
}
