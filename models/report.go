package models

import "time"

// ImageResult is the outcome of scraping images for one property URL.
type ImageResult struct {
	URL        string       `json:"url"`
	PropertyID string       `json:"property_id"`
	Title      string       `json:"property_title,omitempty"`
	Success    bool         `json:"success"`
	ImageCount int          `json:"image_count"`
	Error      string       `json:"error,omitempty"`
	Images     []SavedImage `json:"images,omitempty"`
}

// SavedImage maps a source image URL to the file it was saved as.
type SavedImage struct {
	URL       string `json:"url"`
	SavedPath string `json:"saved_path"`
	Index     int    `json:"index"`
}

// ImageReport summarizes an image scraping run.
type ImageReport struct {
	Success     int           `json:"success"`
	Failed      int           `json:"failed"`
	TotalImages int           `json:"total_images"`
	Details     []ImageResult `json:"details"`
	Timestamp   time.Time     `json:"timestamp"`
}

// Add records one property result into the report totals.
func (r *ImageReport) Add(res ImageResult) {
	if res.Success {
		r.Success++
		r.TotalImages += res.ImageCount
	} else {
		r.Failed++
	}
	r.Details = append(r.Details, res)
}
