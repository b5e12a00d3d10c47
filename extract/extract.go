// Package extract pulls listing fields out of batdongsan.com.vn markup.
// Each field has a chain of selectors tried in order; a field no
// strategy can find is left absent rather than reported as an error.
package extract

import (
	"errors"
	"fmt"
	"net/url"
	"regexp"
	"strconv"
	"strings"

	"github.com/PuerkitoBio/goquery"

	"bds_scraper/models"
	"bds_scraper/normalize"
)

// ErrNoStructure means the document carries none of the markers we
// recognize, usually a block page or a site redesign. Callers count a
// skip and move on.
var ErrNoStructure = errors.New("extract: no recognizable listing structure")

// CardLinks returns the detail-page URLs of every result card in a
// search page, resolved against base.
func CardLinks(doc *goquery.Document, base string) []string {
	var links []string
	doc.Find("a.js__product-link-for-product-id, .re__card-full a.js__card-title").Each(func(_ int, s *goquery.Selection) {
		href, ok := s.Attr("href")
		if !ok || href == "" {
			return
		}
		links = append(links, resolveURL(base, href))
	})
	return links
}

// Card extracts the summary fields a search-results card exposes:
// title, link, price, area, location and the derived price per m².
func Card(sel *goquery.Selection, base string) (*models.ListingRecord, error) {
	rec := &models.ListingRecord{}

	title := sel.Find(".js__card-title, .re__card-title, h3 a").First()
	if title.Length() > 0 {
		rec.Title = strings.TrimSpace(title.Text())
		if href, ok := title.Attr("href"); ok {
			rec.Link = resolveURL(base, href)
		}
	}
	if rec.Link == "" || rec.Title == "" {
		return nil, ErrNoStructure
	}

	rec.PriceRaw = strings.TrimSpace(sel.Find(".re__card-config-price, .js__card-price").First().Text())
	rec.PriceVND = normalize.Price(rec.PriceRaw)

	rec.AreaRaw = strings.TrimSpace(sel.Find(".re__card-config-area").First().Text())
	rec.AreaM2 = normalize.Area(rec.AreaRaw)

	if loc := strings.TrimSpace(sel.Find(".re__card-location").First().Text()); loc != "" {
		rec.Address = loc
		rec.District = normalize.District(loc)
	}

	if rec.PriceVND != nil && rec.AreaM2 != nil && *rec.AreaM2 > 0 {
		rec.PricePerM2 = fmt.Sprintf("%.0f VNĐ/m²", *rec.PriceVND / *rec.AreaM2)
	}

	rec.PropertyType = cardPropertyType(sel, rec.Title)
	return rec, nil
}

// Detail fills rec from a listing detail page: title, address,
// price block, specs rows, description, coordinates and image URLs.
// Fields already present on rec are kept when the page yields nothing.
func Detail(doc *goquery.Document, rec *models.ListingRecord) error {
	if doc.Find(".re__pr-title, .re__pr-specs-content-item, .js__pr-description").Length() == 0 {
		return ErrNoStructure
	}

	if t := strings.TrimSpace(doc.Find(".re__pr-title").First().Text()); t != "" {
		rec.Title = t
	}
	if addr := strings.TrimSpace(doc.Find(".re__pr-short-description").First().Text()); addr != "" {
		rec.Address = addr
	}

	if p := strings.TrimSpace(doc.Find(".re__pr-short-info-item .value").First().Text()); p != "" && rec.PriceRaw == "" {
		rec.PriceRaw = p
		rec.PriceVND = normalize.Price(p)
	}
	if ext := strings.TrimSpace(doc.Find(".re__pr-short-info-item .ext").First().Text()); ext != "" && rec.PricePerM2 == "" {
		rec.PricePerM2 = ext
	}

	rec.Description = strings.TrimSpace(doc.Find(".re__detail-content, .js__pr-description").First().Text())

	applySpecs(doc, rec)
	applyBreadcrumb(doc, rec)

	if rec.PropertyType == "" {
		rec.PropertyType = PropertyType(rec.Title, rec.Link, doc)
	}
	if rec.District == "" {
		rec.District = normalize.District(rec.Address)
	}

	if lat, lng, ok := Coordinates(doc); ok {
		rec.Latitude, rec.Longitude = &lat, &lng
	}

	rec.Images = ImageURLs(doc, rec.Link)
	return nil
}

// specs rows are "label / value" pairs; labels vary between portal
// revisions so matching is keyword-based.
func applySpecs(doc *goquery.Document, rec *models.ListingRecord) {
	rows := doc.Find(".re__pr-specs-content-item")
	if rows.Length() == 0 {
		rows = doc.Find(".js__pr-config-item, .pr-config-item, .re__detail-feature li")
	}

	rows.Each(func(_ int, row *goquery.Selection) {
		label := strings.ToLower(strings.TrimSpace(row.Find(".re__pr-specs-content-item-title").Text()))
		value := strings.TrimSpace(row.Find(".re__pr-specs-content-item-value").Text())
		if label == "" {
			// Older markup keeps label and value in one text node.
			label = strings.ToLower(strings.TrimSpace(row.Text()))
			value = strings.TrimSpace(row.Text())
		}
		if value == "" {
			return
		}

		switch {
		case strings.Contains(label, "diện tích"):
			if rec.AreaM2 == nil {
				rec.AreaRaw = value
				rec.AreaM2 = normalize.Area(value)
			}
		case strings.Contains(label, "mức giá") || strings.Contains(label, "giá"):
			if rec.PriceVND == nil {
				rec.PriceRaw = value
				rec.PriceVND = normalize.Price(value)
			}
		case strings.Contains(label, "phòng ngủ") || strings.Contains(label, "bedroom"):
			if rec.Bedrooms == nil {
				rec.Bedrooms = normalize.Count(value)
			}
		case strings.Contains(label, "toilet") || strings.Contains(label, "wc") || strings.Contains(label, "phòng tắm"):
			if rec.Toilets == nil {
				rec.Toilets = normalize.Count(value)
			}
		case strings.Contains(label, "tầng") || strings.Contains(label, "lầu"):
			if rec.Floors == nil {
				rec.Floors = normalize.Count(value)
			}
		case strings.Contains(label, "mặt tiền"):
			if rec.Frontage == nil {
				rec.Frontage = normalize.Meters(value)
			}
		case strings.Contains(label, "đường vào") || strings.Contains(label, "đường"):
			if rec.RoadWidth == nil {
				rec.RoadWidth = normalize.Meters(value)
			}
		case strings.Contains(label, "ban công"):
			if rec.BalconyDirection == "" {
				rec.BalconyDirection = normalize.Direction(value)
			}
		case strings.Contains(label, "hướng"):
			if rec.HouseDirection == "" {
				rec.HouseDirection = normalize.Direction(value)
			}
		case strings.Contains(label, "pháp lý") || strings.Contains(label, "sổ"):
			if rec.LegalStatus == "" {
				rec.LegalStatus = normalize.LegalStatus(value)
			}
		}
	})
}

func applyBreadcrumb(doc *goquery.Document, rec *models.ListingRecord) {
	if rec.District != "" {
		return
	}
	doc.Find(".re__breadcrumb a").EachWithBreak(func(_ int, s *goquery.Selection) bool {
		if d := normalize.District(s.Text()); d != "" {
			rec.District = d
			return false
		}
		return true
	})
}

var (
	scriptLatRegex = regexp.MustCompile(`(?i)lat[a-z]*["']?\s*[:=]\s*["']?(-?\d+\.?\d*)`)
	scriptLngRegex = regexp.MustCompile(`(?i)(?:lng|lon[a-z]*)["']?\s*[:=]\s*["']?(-?\d+\.?\d*)`)
)

// Coordinates locates the listing's position, first from the lazy map
// iframe's "q=lat,lng" query, then from inline script variables.
func Coordinates(doc *goquery.Document) (lat, lng float64, ok bool) {
	if src, exists := doc.Find("iframe.lazyload").Attr("data-src"); exists {
		if lat, lng, ok = parseMapQuery(src); ok {
			return lat, lng, true
		}
	}

	doc.Find("script").EachWithBreak(func(_ int, s *goquery.Selection) bool {
		text := s.Text()
		latM := scriptLatRegex.FindStringSubmatch(text)
		lngM := scriptLngRegex.FindStringSubmatch(text)
		if latM == nil || lngM == nil {
			return true
		}
		la, errLa := parseFloat(latM[1])
		ln, errLn := parseFloat(lngM[1])
		if errLa != nil || errLn != nil {
			return true
		}
		lat, lng, ok = la, ln, true
		return false
	})
	return lat, lng, ok
}

func parseMapQuery(src string) (float64, float64, bool) {
	_, query, found := strings.Cut(src, "q=")
	if !found {
		return 0, 0, false
	}
	if amp := strings.IndexByte(query, '&'); amp >= 0 {
		query = query[:amp]
	}
	latS, lngS, found := strings.Cut(query, ",")
	if !found {
		return 0, 0, false
	}
	lat, errLa := parseFloat(strings.TrimSpace(latS))
	lng, errLn := parseFloat(strings.TrimSpace(lngS))
	if errLa != nil || errLn != nil {
		return 0, 0, false
	}
	return lat, lng, true
}

func parseFloat(s string) (float64, error) {
	return strconv.ParseFloat(s, 64)
}

func resolveURL(base, href string) string {
	b, err := url.Parse(base)
	if err != nil {
		return href
	}
	h, err := url.Parse(href)
	if err != nil {
		return href
	}
	return b.ResolveReference(h).String()
}
