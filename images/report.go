package images

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"bds_scraper/models"
)

// WriteReport drops two files into the output directory: the full JSON
// report and a human-readable summary.
func WriteReport(outputDir string, report *models.ImageReport) error {
	data, err := json.MarshalIndent(report, "", "  ")
	if err != nil {
		return fmt.Errorf("marshal report: %w", err)
	}
	if err := os.WriteFile(filepath.Join(outputDir, "scraping_report.json"), data, 0o644); err != nil {
		return fmt.Errorf("write report: %w", err)
	}

	var b strings.Builder
	b.WriteString("Property Image Scraping Summary\n")
	b.WriteString("==============================\n\n")
	fmt.Fprintf(&b, "Date: %s\n", report.Timestamp.Format("2006-01-02 15:04:05"))
	fmt.Fprintf(&b, "Total URLs processed: %d\n", report.Success+report.Failed)
	fmt.Fprintf(&b, "Successful: %d\n", report.Success)
	fmt.Fprintf(&b, "Failed: %d\n", report.Failed)
	fmt.Fprintf(&b, "Total images downloaded: %d\n\n", report.TotalImages)

	b.WriteString("Successful Properties:\n")
	for _, res := range report.Details {
		if res.Success {
			fmt.Fprintf(&b, "- %s: %d images\n", res.PropertyID, res.ImageCount)
		}
	}

	b.WriteString("\nFailed Properties:\n")
	for _, res := range report.Details {
		if !res.Success {
			fmt.Fprintf(&b, "- %s: %s\n", res.PropertyID, res.Error)
		}
	}

	if err := os.WriteFile(filepath.Join(outputDir, "summary.txt"), []byte(b.String()), 0o644); err != nil {
		return fmt.Errorf("write summary: %w", err)
	}
	return nil
}
