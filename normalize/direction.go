package normalize

import "strings"

// DirectionUnknown is the backfill default when no compass value is found.
const DirectionUnknown = "Không xác định"

// directionTokens maps lowercase compass tokens to their canonical form.
// Two-word directions are listed first so "đông bắc" is not shortened to
// "Đông".
var directionTokens = []struct {
	token     string
	canonical string
}{
	{"đông bắc", "Đông Bắc"},
	{"đông nam", "Đông Nam"},
	{"tây bắc", "Tây Bắc"},
	{"tây nam", "Tây Nam"},
	{"đông", "Đông"},
	{"tây", "Tây"},
	{"nam", "Nam"},
	{"bắc", "Bắc"},
}

// Direction matches raw text against the eight compass points and
// returns the canonical value, or "" when nothing matches.
func Direction(raw string) string {
	lower := strings.ToLower(raw)
	for _, d := range directionTokens {
		if strings.Contains(lower, d.token) {
			return d.canonical
		}
	}
	return ""
}
