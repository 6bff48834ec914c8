package dataprocessing

import "anemiatrack/pkg/contracts/domain"

// FormatRevision describes one revision of the source report template:
// which data rows hold the district block and how raw headers map to
// canonical field names. The row window is a fixed offset into the known
// template, NOT derived from content; row-count drift in the source file
// silently produces wrong data. That brittleness is a property of the
// format itself and is kept explicit here instead of being "fixed" by
// content inference.
type FormatRevision struct {
	Type domain.ReportType

	// StartRow and EndRow bound the district data block within the data
	// rows (header excluded), 0-based, half-open.
	StartRow int
	EndRow   int

	// HeaderMap renames raw header text to canonical field names. Headers
	// already carrying a canonical name pass through unchanged.
	HeaderMap map[string]string

	// Positional maps column index to canonical field name for template
	// eras that shipped unlabeled columns.
	Positional map[int]string
}

// hmisHeaderMap covers the HMIS header era of the report template plus
// the older "Location"/"District Rank" names.
var hmisHeaderMap = map[string]string{
	"HMIS: 9.9- Percentage of children (6-59 months)":                  domain.CategoryChildrenUnderFive,
	"HMIS: 23.1 & 23.3- Percentage of Children (6-9 yrs)":              domain.CategoryChildrenSixToNine,
	"HMIS: 22.1.1 & 22.1.3- Percentage of adolescents (10-19 years)":   domain.CategoryAdolescents,
	"HMIS: 1.2.4- Percentage of Pregnant Women":                        domain.CategoryPregnantWomen,
	"HMIS: 6.3- Percentage of mothers":                                 domain.CategoryMothers,
	"Index Value (%)":                                                  domain.CategoryIndexValue,
	"District Rank":                                                    domain.CategoryRank,
	"Location":                                                         domain.FieldDistrict,
}

// canonicalPositions is the column order of the template eras that
// shipped unlabeled ("Unnamed: N") columns.
var canonicalPositions = map[int]string{
	0: domain.FieldDistrict,
	1: domain.CategoryChildrenUnderFive,
	2: domain.CategoryChildrenSixToNine,
	3: domain.CategoryAdolescents,
	4: domain.CategoryPregnantWomen,
	5: domain.CategoryMothers,
	6: domain.CategoryIndexValue,
	7: domain.CategoryRank,
}

// DefaultRevisions returns the format revisions currently in circulation,
// keyed by report type.
func DefaultRevisions() map[domain.ReportType]FormatRevision {
	return map[domain.ReportType]FormatRevision{
		domain.ReportTypeMonthly: {
			Type:       domain.ReportTypeMonthly,
			StartRow:   13,
			EndRow:     46,
			HeaderMap:  hmisHeaderMap,
			Positional: canonicalPositions,
		},
		domain.ReportTypeQuarterly: {
			Type:       domain.ReportTypeQuarterly,
			StartRow:   14,
			EndRow:     47,
			HeaderMap:  hmisHeaderMap,
			Positional: canonicalPositions,
		},
	}
}
