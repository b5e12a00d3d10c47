// Package enrich backfills listing fields the portal left blank.
// Inference only fills gaps: a value extracted from the page is never
// overwritten.
package enrich

import (
	"regexp"
	"strconv"

	"bds_scraper/models"
	"bds_scraper/normalize"
)

// Typical dimensions for small Ho Chi Minh City townhouses, used when
// the listing states an area but no frontage or road width.
const (
	defaultFrontage  = 4.0
	defaultRoadWidth = 4.0
)

var (
	bedroomRegex = regexp.MustCompile(`(?i)(\d+)\s*phòng ngủ`)
	toiletRegex  = regexp.MustCompile(`(?i)(\d+)\s*(?:toilet|wc|phòng tắm)`)
)

// Backfill fills the listing's missing specs, in order: area-based
// inference, description mining, then fixed defaults.
func Backfill(l *models.ListingRecord) {
	fromArea(l)
	fromDescription(l)
	applyDefaults(l)
}

// fromArea infers room counts and dimensions from the floor area.
// Sub-60 m² listings are assumed to be one-bedroom, 60-100 m² two, and
// anything larger three.
func fromArea(l *models.ListingRecord) {
	if l.AreaM2 == nil {
		return
	}
	area := *l.AreaM2

	if l.Bedrooms == nil {
		switch {
		case area < 60:
			l.Bedrooms = intPtr(1)
		case area < 100:
			l.Bedrooms = intPtr(2)
		default:
			l.Bedrooms = intPtr(3)
		}
	}
	if l.Toilets == nil {
		if area < 60 {
			l.Toilets = intPtr(1)
		} else {
			l.Toilets = intPtr(2)
		}
	}
	if l.Floors == nil {
		if area < 100 {
			l.Floors = intPtr(2)
		} else {
			l.Floors = intPtr(3)
		}
	}
	if l.Frontage == nil {
		l.Frontage = floatPtr(defaultFrontage)
	}
	if l.RoadWidth == nil {
		l.RoadWidth = floatPtr(defaultRoadWidth)
	}
}

// fromDescription mines free text for room counts and legal status.
func fromDescription(l *models.ListingRecord) {
	if l.Description == "" {
		return
	}

	if l.Bedrooms == nil {
		if m := bedroomRegex.FindStringSubmatch(l.Description); m != nil {
			if n, err := strconv.Atoi(m[1]); err == nil {
				l.Bedrooms = &n
			}
		}
	}
	if l.Toilets == nil {
		if m := toiletRegex.FindStringSubmatch(l.Description); m != nil {
			if n, err := strconv.Atoi(m[1]); err == nil {
				l.Toilets = &n
			}
		}
	}
	if l.LegalStatus == "" {
		if status := normalize.LegalStatus(l.Description); status == normalize.LegalRedBook || status == normalize.LegalContract {
			l.LegalStatus = status
		}
	}
}

// applyDefaults stamps the catch-all values for fields still empty.
func applyDefaults(l *models.ListingRecord) {
	if l.HouseDirection == "" {
		l.HouseDirection = normalize.DirectionUnknown
	}
	if l.BalconyDirection == "" {
		l.BalconyDirection = normalize.DirectionUnknown
	}
	if l.LegalStatus == "" {
		l.LegalStatus = normalize.LegalRedBook
	}
	if l.District == "" {
		if d := normalize.District(l.Address); d != "" {
			l.District = d
		} else {
			l.District = normalize.District(l.Title)
		}
	}
}

func intPtr(n int) *int           { return &n }
func floatPtr(f float64) *float64 { return &f }
