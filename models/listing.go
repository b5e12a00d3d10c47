package models

import (
	"math"
	"time"
)

// ListingRecord is one scraped property advertisement, flattened to the
// fields the portal exposes. Link is the only required field; numeric
// fields are nil when the page gave us nothing parseable.
type ListingRecord struct {
	Link         string `json:"link" bson:"link"`
	Title        string `json:"title,omitempty" bson:"title,omitempty"`
	Address      string `json:"address,omitempty" bson:"address,omitempty"`
	Description  string `json:"description,omitempty" bson:"description,omitempty"`
	PropertyType string `json:"property_type,omitempty" bson:"property_type,omitempty"`
	District     string `json:"district,omitempty" bson:"district,omitempty"`

	PriceRaw   string   `json:"price_raw,omitempty" bson:"price_raw,omitempty"`
	PriceVND   *float64 `json:"price_vnd" bson:"price_vnd"`
	PricePerM2 string   `json:"price_per_m2,omitempty" bson:"price_per_m2,omitempty"`
	AreaRaw    string   `json:"area_raw,omitempty" bson:"area_raw,omitempty"`
	AreaM2     *float64 `json:"area_m2" bson:"area_m2"`

	Bedrooms  *int     `json:"bedrooms" bson:"bedrooms"`
	Toilets   *int     `json:"toilets" bson:"toilets"`
	Floors    *int     `json:"floors" bson:"floors"`
	Frontage  *float64 `json:"frontage_m" bson:"frontage_m"`
	RoadWidth *float64 `json:"road_width_m" bson:"road_width_m"`

	HouseDirection   string `json:"house_direction,omitempty" bson:"house_direction,omitempty"`
	BalconyDirection string `json:"balcony_direction,omitempty" bson:"balcony_direction,omitempty"`
	LegalStatus      string `json:"legal_status,omitempty" bson:"legal_status,omitempty"`

	Latitude  *float64 `json:"latitude" bson:"latitude"`
	Longitude *float64 `json:"longitude" bson:"longitude"`

	Images []string `json:"images,omitempty" bson:"images,omitempty"`

	UniqueID  string    `json:"unique_id,omitempty" bson:"unique_id,omitempty"`
	UpdatedAt time.Time `json:"updated_at,omitempty" bson:"updated_at,omitempty"`
}

// Scrub nils out any non-finite numeric field so that what goes to the
// store is always a valid number or an explicit null.
func (r *ListingRecord) Scrub() {
	for _, f := range []**float64{
		&r.PriceVND, &r.AreaM2, &r.Frontage, &r.RoadWidth, &r.Latitude, &r.Longitude,
	} {
		if *f != nil && (math.IsNaN(**f) || math.IsInf(**f, 0)) {
			*f = nil
		}
	}
}

// Dataset is the JSON file shape for a full scrape export.
type Dataset struct {
	Metadata DatasetMetadata `json:"metadata"`
	Listings []ListingRecord `json:"listings"`
}

type DatasetMetadata struct {
	ScrapedAt     time.Time `json:"scraped_at"`
	TotalListings int       `json:"total_listings"`
	Source        string    `json:"source"`
	Location      string    `json:"location,omitempty"`
	Fields        []string  `json:"fields"`
}

// DatasetFields lists the record attributes included in exports, in a
// stable order for the metadata block.
func DatasetFields() []string {
	return []string{
		"link", "title", "address", "description", "property_type", "district",
		"price_raw", "price_vnd", "price_per_m2", "area_raw", "area_m2",
		"bedrooms", "toilets", "floors", "frontage_m", "road_width_m",
		"house_direction", "balcony_direction", "legal_status",
		"latitude", "longitude", "images", "unique_id", "updated_at",
	}
}
