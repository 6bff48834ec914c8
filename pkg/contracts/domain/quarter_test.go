package domain

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNextQuarterLabel_Sequence(t *testing.T) {
	want := []string{
		"2021_I", "2021_II", "2021_III", "2021_IV",
		"2022_I", "2022_II", "2022_III", "2022_IV",
		"2023_I",
	}

	prev := ""
	for i, expected := range want {
		label, err := NextQuarterLabel(prev, 2021)
		require.NoError(t, err, "step %d", i)
		assert.Equal(t, expected, label, "step %d", i)
		prev = label
	}
}

func TestNextQuarterLabel_Malformed(t *testing.T) {
	tests := []struct {
		name  string
		label string
	}{
		{"no separator", "2021IV"},
		{"bad numeral", "2021_V"},
		{"bad year", "twenty_I"},
		{"lowercase numeral", "2021_i"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := NextQuarterLabel(tt.label, 2021)
			assert.Error(t, err)
		})
	}
}

func TestParseQuarterLabel(t *testing.T) {
	year, quarter, err := ParseQuarterLabel("2024_III")
	require.NoError(t, err)
	assert.Equal(t, 2024, year)
	assert.Equal(t, 3, quarter)
}

func TestDistrictDocument_Series(t *testing.T) {
	f := func(v float64) *float64 { return &v }

	d := DistrictDocument{
		District: "Jaipur",
		Periods: []PeriodRecord{
			{Year: 2021, Month: 11, Values: map[string]*float64{CategoryIndexValue: f(40)}},
			{Year: 2021, Month: 12, Values: map[string]*float64{CategoryIndexValue: f(42)}},
			{Year: 2022, Month: 1, Values: map[string]*float64{CategoryIndexValue: f(44), CategoryRank: f(3)}},
		},
	}

	series := d.Series(CategoryIndexValue)
	require.Len(t, series, 2)
	assert.Equal(t, 2021, series[0].Year)
	assert.Equal(t, []float64{40, 42}, series[0].Data)
	assert.Equal(t, 2022, series[1].Year)
	assert.Equal(t, []float64{44}, series[1].Data)

	// Categories never reported project as zeros, keeping series aligned.
	ranks := d.Series(CategoryRank)
	require.Len(t, ranks, 2)
	assert.Equal(t, []float64{0, 0}, ranks[0].Data)
	assert.Equal(t, []float64{3}, ranks[1].Data)
}

func TestReportTypeValid(t *testing.T) {
	assert.True(t, ReportTypeMonthly.Valid())
	assert.True(t, ReportTypeQuarterly.Valid())
	assert.False(t, ReportType("weekly").Valid())
	assert.False(t, ReportType("").Valid())
}
