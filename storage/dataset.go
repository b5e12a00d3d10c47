package storage

import (
	"encoding/json"
	"fmt"
	"os"
	"time"

	"bds_scraper/models"
)

const datasetSource = "batdongsan.com.vn"

// WriteDataset exports the listings as a JSON dataset file with a
// metadata block, the shape other tools in the pipeline read back.
func WriteDataset(path string, listings []*models.ListingRecord) error {
	ds := models.Dataset{
		Metadata: models.DatasetMetadata{
			ScrapedAt:     time.Now(),
			TotalListings: len(listings),
			Source:        datasetSource,
			Location:      "Ho Chi Minh City, Vietnam",
			Fields:        models.DatasetFields(),
		},
		Listings: make([]models.ListingRecord, 0, len(listings)),
	}
	for _, l := range listings {
		l.Scrub()
		ds.Listings = append(ds.Listings, *l)
	}

	data, err := json.MarshalIndent(ds, "", "  ")
	if err != nil {
		return fmt.Errorf("marshal dataset: %w", err)
	}
	if err := os.WriteFile(path, data, 0o644); err != nil {
		return fmt.Errorf("write dataset: %w", err)
	}
	return nil
}

// ReadDataset loads a previously exported dataset.
func ReadDataset(path string) (*models.Dataset, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read dataset: %w", err)
	}
	var ds models.Dataset
	if err := json.Unmarshal(data, &ds); err != nil {
		return nil, fmt.Errorf("parse dataset: %w", err)
	}
	return &ds, nil
}
