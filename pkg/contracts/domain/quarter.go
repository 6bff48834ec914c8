package domain

import (
	"fmt"
	"strconv"
	"strings"
)

// Quarter labels identify one quarterly reporting cycle as
// "<year>_<roman numeral I-IV>". The sequence is strictly increasing:
// after IV the year increments and the numeral resets to I.

var romanQuarters = []string{"I", "II", "III", "IV"}

// FormatQuarterLabel renders a quarter label for a year and quarter index 1-4.
func FormatQuarterLabel(year, quarter int) string {
	return fmt.Sprintf("%d_%s", year, romanQuarters[quarter-1])
}

// ParseQuarterLabel splits a quarter label into year and quarter index 1-4.
func ParseQuarterLabel(label string) (year, quarter int, err error) {
	yearPart, roman, ok := strings.Cut(label, "_")
	if !ok {
		return 0, 0, fmt.Errorf("malformed quarter label %q", label)
	}
	year, err = strconv.Atoi(yearPart)
	if err != nil {
		return 0, 0, fmt.Errorf("malformed quarter label %q: %w", label, err)
	}
	for i, r := range romanQuarters {
		if r == roman {
			return year, i + 1, nil
		}
	}
	return 0, 0, fmt.Errorf("malformed quarter label %q: bad numeral %q", label, roman)
}

// NextQuarterLabel returns the label following prev. An empty prev starts
// the sequence at the first quarter of startYear.
func NextQuarterLabel(prev string, startYear int) (string, error) {
	if prev == "" {
		return FormatQuarterLabel(startYear, 1), nil
	}
	year, quarter, err := ParseQuarterLabel(prev)
	if err != nil {
		return "", err
	}
	if quarter == len(romanQuarters) {
		return FormatQuarterLabel(year+1, 1), nil
	}
	return FormatQuarterLabel(year, quarter+1), nil
}
