package dataprocessing

import (
	"anemiatrack/pkg/contracts/domain"
)

// Report builder: flattens the nested documents back into one row per
// (district, year, month) for spreadsheet rendering.

// ReportColumns is the exact output column order. It is a presentation
// contract for downstream spreadsheet consumers; do not reorder.
var ReportColumns = []string{
	"Month",
	"Year",
	"State",
	"District",
	"Rank",
	"Index Value",
	"Children (6-59 months)",
	"Children (6-9 years)",
	"Adolescents",
	"Pregnant Women",
	"Mothers",
}

// displayColumns maps canonical category names to their export headers,
// in ReportColumns order.
var displayColumns = []struct {
	header   string
	category string
}{
	{"Rank", domain.CategoryRank},
	{"Index Value", domain.CategoryIndexValue},
	{"Children (6-59 months)", domain.CategoryChildrenUnderFive},
	{"Children (6-9 years)", domain.CategoryChildrenSixToNine},
	{"Adolescents", domain.CategoryAdolescents},
	{"Pregnant Women", domain.CategoryPregnantWomen},
	{"Mothers", domain.CategoryMothers},
}

// FlatReport is a denormalized report ready for spreadsheet rendering.
// Cells are string, int, float64, or nil; nil renders as an empty cell
// and means "period exists, category not reported".
type FlatReport struct {
	Columns []string
	Rows    [][]interface{}
}

// Flatten denormalizes the full document collection. Rows stay
// contiguous by district and by state, with a blank separator row at
// every state boundary. Any malformed document fails the whole export;
// partial reports are never produced.
func Flatten(states []domain.StateDocument) (*FlatReport, error) {
	report := &FlatReport{Columns: ReportColumns}

	for si, state := range states {
		if si > 0 {
			report.Rows = append(report.Rows, make([]interface{}, len(ReportColumns)))
		}
		for _, district := range state.Data {
			if err := validateDistrict(state, district); err != nil {
				return nil, err
			}
			for _, period := range district.Periods {
				report.Rows = append(report.Rows, flattenPeriod(state.State, district.District, period))
			}
		}
	}
	return report, nil
}

func flattenPeriod(state, district string, period domain.PeriodRecord) []interface{} {
	row := make([]interface{}, 0, len(ReportColumns))
	row = append(row, periodLabel(period), period.Year, state, district)
	for _, col := range displayColumns {
		if v, ok := period.Value(col.category); ok {
			row = append(row, v)
		} else {
			row = append(row, nil)
		}
	}
	return row
}

// validateDistrict rejects documents the merger could not have written:
// a quarterly district with more periods than the state has quarter
// labels, or a period carrying neither a month nor a quarter.
func validateDistrict(state domain.StateDocument, district domain.DistrictDocument) error {
	if len(state.Quarters) > 0 && len(district.Periods) > len(state.Quarters) {
		return newProcessingError("flatten",
			"district %q has %d periods but state %q has only %d quarters",
			district.District, len(district.Periods), state.State, len(state.Quarters))
	}
	for i, p := range district.Periods {
		if p.Quarter == "" && p.Month < 1 {
			return newProcessingError("flatten",
				"district %q period %d has neither month nor quarter", district.District, i)
		}
		if p.Quarter != "" {
			if _, _, err := domain.ParseQuarterLabel(p.Quarter); err != nil {
				return newProcessingError("flatten", "district %q period %d: %v", district.District, i, err)
			}
		}
	}
	return nil
}
