// Package input reads listing URLs from the supported source files: a
// plain URL list, a CSV export with a Link column, or a previously
// written JSON dataset.
package input

import (
	"bufio"
	"encoding/csv"
	"encoding/json"
	"fmt"
	"os"
	"strings"

	"bds_scraper/models"
)

// Target is one listing to process. ID and Title are best-effort; URL
// is always set.
type Target struct {
	ID    string
	URL   string
	Title string
}

// URLFile reads one URL per line, skipping blanks and # comments.
func URLFile(path string) ([]Target, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open url file: %w", err)
	}
	defer f.Close()

	var targets []Target
	scanner := bufio.NewScanner(f)
	for scanner.Scan() {
		line := strings.TrimSpace(scanner.Text())
		if line == "" || strings.HasPrefix(line, "#") {
			continue
		}
		targets = append(targets, Target{ID: PropertyID(line, len(targets)), URL: line})
	}
	if err := scanner.Err(); err != nil {
		return nil, fmt.Errorf("read url file: %w", err)
	}
	return targets, nil
}

// CSVFile reads a listing export. The Link column is required; a
// "Tiêu đề" column supplies titles when present.
func CSVFile(path string) ([]Target, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open csv: %w", err)
	}
	defer f.Close()

	r := csv.NewReader(f)
	r.FieldsPerRecord = -1

	header, err := r.Read()
	if err != nil {
		return nil, fmt.Errorf("read csv header: %w", err)
	}

	linkCol, titleCol := -1, -1
	for i, name := range header {
		switch strings.TrimSpace(strings.TrimPrefix(name, "\uFEFF")) {
		case "Link":
			linkCol = i
		case "Tiêu đề":
			titleCol = i
		}
	}
	if linkCol < 0 {
		return nil, fmt.Errorf("csv %s has no Link column", path)
	}

	var targets []Target
	for {
		row, err := r.Read()
		if err != nil {
			break
		}
		if linkCol >= len(row) {
			continue
		}
		link := strings.TrimSpace(row[linkCol])
		if link == "" {
			continue
		}
		t := Target{ID: PropertyID(link, len(targets)), URL: link}
		if titleCol >= 0 && titleCol < len(row) {
			t.Title = strings.TrimSpace(row[titleCol])
		}
		targets = append(targets, t)
	}
	return targets, nil
}

// JSONDataset reads the links out of a previously exported dataset.
func JSONDataset(path string) ([]Target, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("open dataset: %w", err)
	}

	var ds models.Dataset
	if err := json.Unmarshal(data, &ds); err != nil {
		return nil, fmt.Errorf("parse dataset: %w", err)
	}

	targets := make([]Target, 0, len(ds.Listings))
	for _, l := range ds.Listings {
		if l.Link == "" {
			continue
		}
		targets = append(targets, Target{
			ID:    PropertyID(l.Link, len(targets)),
			URL:   l.Link,
			Title: l.Title,
		})
	}
	return targets, nil
}

// PropertyID derives a stable directory-safe ID from a listing URL:
// the portal's post ID after the final "pr" marker, or a positional
// fallback.
func PropertyID(url string, index int) string {
	if i := strings.LastIndex(url, "pr"); i >= 0 {
		if id := strings.Trim(url[i+2:], "/"); id != "" && isIDSafe(id) {
			return id
		}
	}
	return fmt.Sprintf("property_%d", index)
}

func isIDSafe(s string) bool {
	for _, r := range s {
		switch {
		case r >= '0' && r <= '9':
		case r >= 'a' && r <= 'z':
		case r >= 'A' && r <= 'Z':
		case r == '-' || r == '_':
		default:
			return false
		}
	}
	return true
}

// Limit truncates targets to at most n entries; n <= 0 means no limit.
func Limit(targets []Target, n int) []Target {
	if n > 0 && len(targets) > n {
		return targets[:n]
	}
	return targets
}
