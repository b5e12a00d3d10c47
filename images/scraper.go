// Package images downloads the photo galleries of scraped listings
// into per-property directories and writes a run report.
package images

import (
	"context"
	"fmt"
	"io"
	"log"
	"math/rand"
	"net/http"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/PuerkitoBio/goquery"

	"bds_scraper/extract"
	"bds_scraper/httputil"
	"bds_scraper/input"
	"bds_scraper/models"
	"bds_scraper/storage"
)

// Scraper fetches listing pages and saves their property photos.
type Scraper struct {
	client    *http.Client
	outputDir string
	retries   int
	delay     time.Duration
	referer   string

	// uploader mirrors saved images to object storage when set.
	uploader *storage.S3Uploader
}

type Option func(*Scraper)

// WithUploader mirrors every saved image to S3-compatible storage.
func WithUploader(u *storage.S3Uploader) Option {
	return func(s *Scraper) { s.uploader = u }
}

// WithDelay sets the politeness pause between properties.
func WithDelay(d time.Duration) Option {
	return func(s *Scraper) { s.delay = d }
}

// WithRetries sets how many times a failed page fetch is retried.
func WithRetries(n int) Option {
	return func(s *Scraper) { s.retries = n }
}

func NewScraper(client *http.Client, outputDir string, opts ...Option) *Scraper {
	s := &Scraper{
		client:    client,
		outputDir: outputDir,
		retries:   3,
		delay:     3 * time.Second,
		referer:   "https://batdongsan.com.vn/",
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Run processes every target sequentially and writes the report files
// into the output directory.
func (s *Scraper) Run(ctx context.Context, targets []input.Target) (*models.ImageReport, error) {
	if err := os.MkdirAll(s.outputDir, 0o755); err != nil {
		return nil, fmt.Errorf("create output dir: %w", err)
	}

	report := &models.ImageReport{Timestamp: time.Now()}
	for i, target := range targets {
		if err := ctx.Err(); err != nil {
			return report, err
		}

		log.Printf("Images: property %d/%d %s", i+1, len(targets), target.URL)
		res := s.ScrapeProperty(ctx, target)
		if !res.Success {
			log.Printf("Images: %s failed: %s", target.ID, res.Error)
		}
		report.Add(res)

		if i < len(targets)-1 {
			sleepCtx(ctx, s.delay)
		}
	}

	if err := WriteReport(s.outputDir, report); err != nil {
		return report, err
	}
	return report, nil
}

// ScrapeProperty downloads all photos of one listing into
// <outputDir>/<propertyID>/ and writes the directory's metadata file.
func (s *Scraper) ScrapeProperty(ctx context.Context, target input.Target) models.ImageResult {
	result := models.ImageResult{
		URL:        target.URL,
		PropertyID: target.ID,
		Title:      target.Title,
	}

	propertyDir := filepath.Join(s.outputDir, target.ID)
	if err := os.MkdirAll(propertyDir, 0o755); err != nil {
		result.Error = fmt.Sprintf("create property dir: %v", err)
		return result
	}

	doc, err := s.fetchDocument(ctx, target.URL)
	if err != nil {
		result.Error = err.Error()
		return result
	}

	urls := extract.ImageURLs(doc, target.URL)
	for i, imgURL := range urls {
		filename := fmt.Sprintf("%s_%d%s", target.ID, i+1, imageExt(imgURL))
		savePath := filepath.Join(propertyDir, filename)

		if err := s.downloadImage(ctx, imgURL, target.URL, savePath); err != nil {
			log.Printf("Images: download %s: %v", imgURL, err)
			continue
		}

		result.Images = append(result.Images, models.SavedImage{
			URL:       imgURL,
			SavedPath: savePath,
			Index:     i + 1,
		})
		result.ImageCount++

		if s.uploader != nil {
			s.mirror(ctx, target.ID, filename, savePath)
		}
	}

	if result.ImageCount > 0 {
		result.Success = true
		if err := writeMetadata(propertyDir, target, result); err != nil {
			log.Printf("Images: metadata for %s: %v", target.ID, err)
		}
	} else {
		result.Error = "no images found"
	}
	return result
}

// fetchDocument gets the listing page with retries and randomized
// backoff; short bodies and "Access denied" responses count as blocks.
func (s *Scraper) fetchDocument(ctx context.Context, url string) (*goquery.Document, error) {
	var lastErr error
	for attempt := 0; attempt <= s.retries; attempt++ {
		if attempt > 0 {
			backoff := time.Duration(float64(attempt+1)*(2+3*rand.Float64())) * time.Second
			sleepCtx(ctx, backoff)
		}

		req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
		if err != nil {
			return nil, fmt.Errorf("create request: %w", err)
		}
		httputil.BrowserHeaders(req.Header)
		req.Header.Set("User-Agent", httputil.RandomUserAgent())
		req.Header.Set("Referer", s.referer)

		resp, err := s.client.Do(req)
		if err != nil {
			lastErr = fmt.Errorf("fetch: %w", err)
			continue
		}

		body, err := io.ReadAll(resp.Body)
		resp.Body.Close()
		if err != nil {
			lastErr = fmt.Errorf("read body: %w", err)
			continue
		}
		if resp.StatusCode != http.StatusOK {
			lastErr = fmt.Errorf("unexpected status %d", resp.StatusCode)
			continue
		}
		if len(body) < 1000 || strings.Contains(string(body), "Access denied") {
			lastErr = fmt.Errorf("blocked response (%d bytes)", len(body))
			continue
		}

		doc, err := goquery.NewDocumentFromReader(strings.NewReader(string(body)))
		if err != nil {
			lastErr = fmt.Errorf("parse html: %w", err)
			continue
		}
		return doc, nil
	}
	return nil, fmt.Errorf("fetch %s failed after %d attempts: %w", url, s.retries+1, lastErr)
}

func (s *Scraper) downloadImage(ctx context.Context, imgURL, pageURL, savePath string) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, imgURL, nil)
	if err != nil {
		return fmt.Errorf("create request: %w", err)
	}
	req.Header.Set("User-Agent", httputil.RandomUserAgent())
	req.Header.Set("Referer", pageURL)

	resp, err := s.client.Do(req)
	if err != nil {
		return fmt.Errorf("fetch image: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("unexpected status %d", resp.StatusCode)
	}

	f, err := os.Create(savePath)
	if err != nil {
		return fmt.Errorf("create file: %w", err)
	}
	defer f.Close()

	if _, err := io.Copy(f, resp.Body); err != nil {
		os.Remove(savePath)
		return fmt.Errorf("write file: %w", err)
	}
	return nil
}

func (s *Scraper) mirror(ctx context.Context, propertyID, filename, savePath string) {
	f, err := os.Open(savePath)
	if err != nil {
		log.Printf("Images: open for upload %s: %v", savePath, err)
		return
	}
	defer f.Close()

	if _, err := s.uploader.UploadImage(ctx, propertyID, filename, f); err != nil {
		log.Printf("Images: upload %s: %v", filename, err)
	}
}

func writeMetadata(propertyDir string, target input.Target, result models.ImageResult) error {
	var b strings.Builder
	fmt.Fprintf(&b, "URL: %s\n", target.URL)
	fmt.Fprintf(&b, "Property ID: %s\n", target.ID)
	fmt.Fprintf(&b, "Title: %s\n", target.Title)
	fmt.Fprintf(&b, "Image count: %d\n", result.ImageCount)
	b.WriteString("\nImages:\n")
	for _, img := range result.Images {
		fmt.Fprintf(&b, "- %s -> %s\n", img.URL, filepath.Base(img.SavedPath))
	}
	return os.WriteFile(filepath.Join(propertyDir, "metadata.txt"), []byte(b.String()), 0o644)
}

func imageExt(imgURL string) string {
	ext := strings.ToLower(filepath.Ext(imgURL))
	if i := strings.IndexByte(ext, '?'); i >= 0 {
		ext = ext[:i]
	}
	switch ext {
	case ".jpg", ".jpeg", ".png", ".webp":
		return ext
	default:
		return ".jpg"
	}
}

func sleepCtx(ctx context.Context, d time.Duration) {
	timer := time.NewTimer(d)
	defer timer.Stop()
	select {
	case <-ctx.Done():
	case <-timer.C:
	}
}
