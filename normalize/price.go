// Package normalize converts the portal's raw field strings into typed
// values. Every parser is total: bad input yields nil/empty, never an
// error or a panic.
package normalize

import (
	"regexp"
	"strconv"
	"strings"
)

// negotiableSentinel is the portal's "price on request" placeholder.
const negotiableSentinel = "giá thỏa thuận"

var (
	currencyWordRegex = regexp.MustCompile(`(?i)vnđ|vnd|đồng`)
	numberRegex       = regexp.MustCompile(`[\d,\.]+`)
)

// Price parses a display price like "6,8 tỷ" or "950 triệu" into VND.
// Comma is the decimal separator. Returns nil for the negotiable
// sentinel and for anything that does not contain a number.
func Price(raw string) *float64 {
	raw = strings.TrimSpace(raw)
	if raw == "" || strings.EqualFold(raw, negotiableSentinel) {
		return nil
	}

	lower := strings.ToLower(raw)
	lower = currencyWordRegex.ReplaceAllString(lower, "")

	literal := numberRegex.FindString(lower)
	if literal == "" {
		return nil
	}

	literal = strings.ReplaceAll(literal, ",", ".")
	// "1.234.5" style leftovers: keep only the last dot as decimal point.
	if strings.Count(literal, ".") > 1 {
		last := strings.LastIndex(literal, ".")
		literal = strings.ReplaceAll(literal[:last], ".", "") + literal[last:]
	}

	base, err := strconv.ParseFloat(literal, 64)
	if err != nil {
		return nil
	}

	v := base * magnitude(lower)
	return &v
}

// magnitude resolves Vietnamese price suffixes, with and without
// diacritics as both appear in scraped text.
func magnitude(lower string) float64 {
	switch {
	case strings.Contains(lower, "tỷ") || strings.Contains(lower, " ty"):
		return 1e9
	case strings.Contains(lower, "triệu") || strings.Contains(lower, "trieu"):
		return 1e6
	case strings.Contains(lower, "nghìn") || strings.Contains(lower, "nghin"):
		return 1e3
	default:
		return 1
	}
}
