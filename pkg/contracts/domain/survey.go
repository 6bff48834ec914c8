package domain

import "fmt"

// ReportType selects which persisted collection an upload or report targets.
type ReportType string

const (
	ReportTypeMonthly   ReportType = "monthly"
	ReportTypeQuarterly ReportType = "quarterly"
)

// Valid reports whether the type is one of the recognized discriminators.
func (t ReportType) Valid() bool {
	return t == ReportTypeMonthly || t == ReportTypeQuarterly
}

// Canonical field names for the anemia indicator report. These are the
// post-rename column names and double as category keys inside persisted
// district documents, so changing them is a schema migration.
const (
	FieldDistrict = "District"

	CategoryChildrenUnderFive = "Children (6 - 59 months)"
	CategoryChildrenSixToNine = "Children (6 - 9 years)"
	CategoryAdolescents       = "Adolescents (10 - 19 years)"
	CategoryPregnantWomen     = "Pregnant Women"
	CategoryMothers           = "Mothers"
	CategoryIndexValue        = "Index Value"
	CategoryRank              = "Rank"
)

// Categories lists the tracked indicator categories in canonical order.
// The order is a presentation contract for exports.
var Categories = []string{
	CategoryChildrenUnderFive,
	CategoryChildrenSixToNine,
	CategoryAdolescents,
	CategoryPregnantWomen,
	CategoryMothers,
	CategoryIndexValue,
	CategoryRank,
}

// NormalizedRecord is one district row of an upload after column renaming.
// Values is keyed by canonical category name; absent keys mean the source
// column was empty for that district.
type NormalizedRecord struct {
	District string             `json:"district"`
	Values   map[string]float64 `json:"values"`
}

// PeriodRecord holds every indicator value for one district and one
// reporting period. Storing the categories together per period (rather
// than as seven parallel arrays) makes positional misalignment between
// categories unrepresentable.
type PeriodRecord struct {
	Year    int    `bson:"year" json:"year"`
	Month   int    `bson:"month,omitempty" json:"month,omitempty"`     // 1-12, monthly collections only
	Quarter string `bson:"quarter,omitempty" json:"quarter,omitempty"` // quarter label, quarterly collections only

	// Values is keyed by canonical category name. Pointer values let an
	// export distinguish "not reported" from zero.
	Values map[string]*float64 `bson:"values" json:"values"`
}

// Value returns the recorded value for a category and whether it was reported.
func (p PeriodRecord) Value(category string) (float64, bool) {
	v, ok := p.Values[category]
	if !ok || v == nil {
		return 0, false
	}
	return *v, true
}

// DistrictDocument is one district's full time series, nested inside a
// StateDocument. Identity is the district name, unique within its state.
type DistrictDocument struct {
	District string         `bson:"District" json:"District"`
	Periods  []PeriodRecord `bson:"periods" json:"periods"`
}

// PeriodSeries is one year of values for a single category. It is a
// read-side projection of the per-period records, kept because clients
// and exports consume the data grouped by year.
type PeriodSeries struct {
	Year int       `json:"year"`
	Data []float64 `json:"data"`
}

// MonthsPerYear caps a monthly PeriodSeries; the 13th append rolls into a
// new year.
const MonthsPerYear = 12

// Series projects the district's periods into per-year series for one
// category. Months missing a reported value carry zero; use the raw
// Periods when absence must be distinguished.
func (d *DistrictDocument) Series(category string) []PeriodSeries {
	var out []PeriodSeries
	for _, p := range d.Periods {
		v, _ := p.Value(category)
		if n := len(out); n == 0 || out[n-1].Year != p.Year {
			out = append(out, PeriodSeries{Year: p.Year})
		}
		out[len(out)-1].Data = append(out[len(out)-1].Data, v)
	}
	return out
}

// FindDistrict returns the district document with the given name, or nil.
func (s *StateDocument) FindDistrict(name string) *DistrictDocument {
	for i := range s.Data {
		if s.Data[i].District == name {
			return &s.Data[i]
		}
	}
	return nil
}

// StateDocument is the persisted unit: one state's districts plus, for
// quarterly collections, the rolling quarter-label sequence. The Nth
// quarter label corresponds to the Nth period of every district that has
// been present since the first upload.
type StateDocument struct {
	State    string             `bson:"state" json:"state"`
	Data     []DistrictDocument `bson:"data" json:"data"`
	Quarters []string           `bson:"quarters,omitempty" json:"quarters,omitempty"`
}

// User is a credential record for the upload boundary.
type User struct {
	Username     string `bson:"username" json:"username"`
	PasswordHash string `bson:"passwordHash" json:"-"`
}

// ErrUnknownReportType is returned before any file processing when the
// type discriminator is not a recognized value.
type ErrUnknownReportType struct {
	Type string
}

func (e *ErrUnknownReportType) Error() string {
	return fmt.Sprintf("unknown report type %q (want %q or %q)", e.Type, ReportTypeMonthly, ReportTypeQuarterly)
}
