package normalize

import "strings"

// Canonical legal status values.
const (
	LegalRedBook  = "Sổ hồng/Sổ đỏ"
	LegalContract = "Hợp đồng mua bán"
)

// LegalStatus canonicalizes ownership-paper text. Mentions of a pink or
// red book map to LegalRedBook, purchase contracts to LegalContract, and
// anything else passes through trimmed so uncommon statuses survive.
func LegalStatus(raw string) string {
	lower := strings.ToLower(raw)
	switch {
	case strings.Contains(lower, "sổ hồng") || strings.Contains(lower, "sổ đỏ"):
		return LegalRedBook
	case strings.Contains(lower, "hợp đồng"):
		return LegalContract
	}
	return strings.TrimSpace(raw)
}
