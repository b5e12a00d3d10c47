package normalize

import (
	"regexp"
	"strconv"
	"strings"
)

var (
	// groupedRegex matches European-style thousands grouping, e.g. "2.585".
	groupedRegex = regexp.MustCompile(`^\d{1,3}(\.\d{3})+$`)
	digitsRegex  = regexp.MustCompile(`\d+`)
)

// Area parses a display area like "·86 m²" or "85,5 m²" into square
// meters.
//
// Decimal convention: a comma is always the decimal separator. A dot is
// treated as a thousands separator when the literal looks like grouped
// digits ("2.585" -> 2585), otherwise as a decimal point ("85.5" -> 85.5).
func Area(raw string) *float64 {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return nil
	}

	cleaned := strings.NewReplacer("·", "", "m²", "", "m2", "").Replace(raw)
	cleaned = strings.TrimSpace(cleaned)

	literal := numberRegex.FindString(cleaned)
	if literal == "" {
		return nil
	}

	if strings.Contains(literal, ",") {
		// Comma decimal: any dots left of it are grouping.
		literal = strings.ReplaceAll(literal, ".", "")
		literal = strings.ReplaceAll(literal, ",", ".")
	} else if groupedRegex.MatchString(literal) {
		literal = strings.ReplaceAll(literal, ".", "")
	}

	v, err := strconv.ParseFloat(literal, 64)
	if err != nil {
		return nil
	}
	return &v
}

// Meters parses a frontage or road-width value like "4,5 m" into meters.
func Meters(raw string) *float64 {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return nil
	}

	literal := numberRegex.FindString(raw)
	if literal == "" {
		return nil
	}
	literal = strings.ReplaceAll(literal, ",", ".")

	v, err := strconv.ParseFloat(literal, 64)
	if err != nil {
		return nil
	}
	return &v
}

// Count parses a small integer field like "3 phòng" into its count.
func Count(raw string) *int {
	digits := digitsRegex.FindString(raw)
	if digits == "" {
		return nil
	}
	n, err := strconv.Atoi(digits)
	if err != nil {
		return nil
	}
	return &n
}
