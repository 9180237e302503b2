package extract

import (
	"fmt"
	"regexp"
	"strconv"
	"strings"
)

var (
	numberRe = regexp.MustCompile(`\d[\d.,]*`)
	ratingRe = regexp.MustCompile(`\d+(?:[.,]\d+)?`)
)

// Price normalizes locale-formatted price text to a decimal magnitude.
// It accepts "1.234,56" (pt-BR), "1,234.56" (en), and bare "1234"
// forms and returns an error when no parseable number is present.
func Price(text string) (float64, error) {
	cleaned := strings.NewReplacer(" ", " ", " ", " ").Replace(text)
	m := numberRe.FindString(cleaned)
	if m == "" {
		return 0, fmt.Errorf("no number in price text %q", text)
	}

	dot := strings.LastIndex(m, ".")
	comma := strings.LastIndex(m, ",")

	switch {
	case dot >= 0 && comma >= 0:
		// The later separator is the decimal mark.
		if comma > dot {
			m = strings.ReplaceAll(m, ".", "")
			m = strings.Replace(m, ",", ".", 1)
		} else {
			m = strings.ReplaceAll(m, ",", "")
		}
	case comma >= 0:
		// A single comma with 1-2 trailing digits is a decimal mark;
		// anything else is a thousands separator.
		if strings.Count(m, ",") == 1 && len(m)-comma-1 <= 2 {
			m = strings.Replace(m, ",", ".", 1)
		} else {
			m = strings.ReplaceAll(m, ",", "")
		}
	case dot >= 0:
		// Dots with 3-digit groups are thousands separators ("1.234");
		// a single dot with another width is a decimal mark ("150.5").
		if strings.Count(m, ".") > 1 || len(m)-dot-1 == 3 {
			m = strings.ReplaceAll(m, ".", "")
		}
	}

	v, err := strconv.ParseFloat(m, 64)
	if err != nil {
		return 0, fmt.Errorf("unparseable price %q: %w", text, err)
	}
	return v, nil
}

// Count extracts an integer from text like "+500 vendidos" or
// "(1.234)", tolerating grouping separators. Returns ok=false when
// the text carries no number.
func Count(text string) (int, bool) {
	cleaned := strings.NewReplacer(" ", " ", " ", " ").Replace(text)
	m := numberRe.FindString(cleaned)
	if m == "" {
		return 0, false
	}
	m = strings.NewReplacer(".", "", ",", "").Replace(m)
	n, err := strconv.Atoi(m)
	if err != nil {
		return 0, false
	}
	return n, true
}

// ratingValue extracts a 0-5 star rating from text like "4,8".
func ratingValue(text string) (float64, bool) {
	m := ratingRe.FindString(text)
	if m == "" {
		return 0, false
	}
	v, err := strconv.ParseFloat(strings.Replace(m, ",", ".", 1), 64)
	if err != nil || v < 0 || v > 5 {
		return 0, false
	}
	return v, true
}
