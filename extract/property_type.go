package extract

import (
	"strings"

	"github.com/PuerkitoBio/goquery"
)

// titleTypes maps title keywords to canonical property types, most
// specific first so "căn hộ chung cư" is not claimed by "căn hộ".
var titleTypes = []struct {
	keyword  string
	propType string
}{
	{"nhà riêng", "Nhà riêng"},
	{"nhà phố", "Nhà phố"},
	{"biệt thự", "Biệt thự"},
	{"liền kề", "Nhà liền kề"},
	{"mặt phố", "Nhà mặt phố"},
	{"shophouse", "Shophouse"},
	{"chung cư", "Căn hộ chung cư"},
	{"căn hộ", "Căn hộ"},
	{"đất nền", "Đất nền"},
	{"đất", "Đất"},
}

// urlTypes maps detail-URL path fragments to property types.
var urlTypes = []struct {
	fragment string
	propType string
}{
	{"nha-rieng", "Nhà riêng"},
	{"biet-thu", "Biệt thự/Liền kề"},
	{"lien-ke", "Biệt thự/Liền kề"},
	{"can-ho", "Căn hộ chung cư"},
	{"chung-cu", "Căn hộ chung cư"},
	{"mat-pho", "Nhà mặt phố"},
	{"shophouse", "Shophouse"},
	{"dat-nen", "Đất nền"},
}

// PropertyType classifies a listing by falling through three page-side
// strategies: title keywords, URL path segments, then the labeled specs
// row. The site's filter menu is a fourth tier only a live browser
// session can read; see the browser handler.
func PropertyType(title, link string, doc *goquery.Document) string {
	if t := typeFromTitle(title); t != "" {
		return t
	}
	if t := typeFromURL(link); t != "" {
		return t
	}
	if doc != nil {
		if t := typeFromSpecs(doc); t != "" {
			return t
		}
	}
	return ""
}

// cardPropertyType classifies from a result card: an explicit type
// element when present, otherwise title keywords.
func cardPropertyType(sel *goquery.Selection, title string) string {
	if t := strings.TrimSpace(sel.Find(".re__card-config-type").First().Text()); t != "" {
		return t
	}
	return typeFromTitle(title)
}

func typeFromTitle(title string) string {
	lower := strings.ToLower(title)
	for _, t := range titleTypes {
		if strings.Contains(lower, t.keyword) {
			return t.propType
		}
	}
	return ""
}

func typeFromURL(link string) string {
	for _, part := range strings.Split(link, "/") {
		for _, t := range urlTypes {
			if strings.Contains(part, t.fragment) {
				return t.propType
			}
		}
		if strings.HasPrefix(part, "dat-") {
			return "Đất"
		}
	}
	return ""
}

func typeFromSpecs(doc *goquery.Document) string {
	var found string
	doc.Find(".re__pr-specs-content-item").EachWithBreak(func(_ int, row *goquery.Selection) bool {
		label := strings.ToLower(strings.TrimSpace(row.Find(".re__pr-specs-content-item-title").Text()))
		if strings.Contains(label, "loại") {
			found = strings.TrimSpace(row.Find(".re__pr-specs-content-item-value").Text())
			return false
		}
		return true
	})
	return found
}
