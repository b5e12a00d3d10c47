package scraper

import (
	"context"
	"fmt"
	"io"
	"log"
	"math/rand"
	"net/http"
	"strings"
	"sync"
	"time"

	"github.com/PuerkitoBio/goquery"

	"bds_scraper/config"
	"bds_scraper/extract"
	"bds_scraper/httputil"
	"bds_scraper/models"
)

// HTTPHandler scrapes through plain requests with rotated User-Agents
// and bounded retries. It is the default; the browser handler exists
// for the days the portal tightens its bot checks.
type HTTPHandler struct {
	cfg     *config.SiteConfig
	client  *http.Client
	retries int
	delay   time.Duration

	mu        sync.Mutex
	lastFetch time.Time
}

func NewHTTPHandler(siteCfg *config.SiteConfig, scraperCfg *config.ScraperConfig, clients *httputil.Clients) *HTTPHandler {
	delay := time.Duration(siteCfg.RateLimitMS) * time.Millisecond
	if delay == 0 {
		delay = time.Duration(scraperCfg.DelayMS) * time.Millisecond
	}
	return &HTTPHandler{
		cfg:     siteCfg,
		client:  clients.Scraping,
		retries: scraperCfg.Retries,
		delay:   delay,
	}
}

func (h *HTTPHandler) ID() string {
	return h.cfg.ID
}

func (h *HTTPHandler) Close() {}

// DiscoverURLs walks search pages 1..maxPages and collects every card
// link. A page with no cards ends the walk early.
func (h *HTTPHandler) DiscoverURLs(ctx context.Context, maxPages int) ([]string, error) {
	if maxPages <= 0 {
		maxPages = h.cfg.MaxPages
	}

	var urls []string
	for page := 1; page <= maxPages; page++ {
		pageURL := h.cfg.SearchURL(page)
		log.Printf("[%s] search page %d: %s", h.cfg.ID, page, pageURL)

		doc, err := h.fetchDocument(ctx, pageURL)
		if err != nil {
			if page == 1 {
				return nil, err
			}
			log.Printf("[%s] page %d failed, stopping discovery: %v", h.cfg.ID, page, err)
			break
		}

		links := extract.CardLinks(doc, h.cfg.BaseURL)
		if len(links) == 0 {
			log.Printf("[%s] no listings on page %d, stopping", h.cfg.ID, page)
			break
		}
		urls = append(urls, links...)
	}
	return urls, nil
}

// FetchListing pulls and extracts one detail page.
func (h *HTTPHandler) FetchListing(ctx context.Context, url string) (*models.ListingRecord, error) {
	doc, err := h.fetchDocument(ctx, url)
	if err != nil {
		return nil, err
	}

	rec := &models.ListingRecord{Link: url}
	if err := extract.Detail(doc, rec); err != nil {
		return nil, err
	}
	return rec, nil
}

func (h *HTTPHandler) fetchDocument(ctx context.Context, url string) (*goquery.Document, error) {
	h.politenessDelay(ctx)

	var lastErr error
	for attempt := 0; attempt <= h.retries; attempt++ {
		if attempt > 0 {
			backoff := time.Duration(float64(attempt+1)*(2+3*rand.Float64())) * time.Second
			log.Printf("[%s] retry %d/%d for %s in %.1fs", h.cfg.ID, attempt, h.retries, url, backoff.Seconds())
			sleepCtx(ctx, backoff)
		}
		if err := ctx.Err(); err != nil {
			return nil, err
		}

		doc, err := h.fetchOnce(ctx, url)
		h.mu.Lock()
		h.lastFetch = time.Now()
		h.mu.Unlock()
		if err == nil {
			return doc, nil
		}
		lastErr = err
	}
	return nil, fmt.Errorf("fetch %s failed after %d attempts: %w", url, h.retries+1, lastErr)
}

func (h *HTTPHandler) fetchOnce(ctx context.Context, url string) (*goquery.Document, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return nil, fmt.Errorf("create request: %w", err)
	}
	httputil.BrowserHeaders(req.Header)
	req.Header.Set("User-Agent", httputil.RandomUserAgent())
	req.Header.Set("Referer", h.cfg.BaseURL+"/")

	resp, err := h.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("fetch: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("unexpected status %d", resp.StatusCode)
	}

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("read body: %w", err)
	}
	if blocked(body) {
		return nil, fmt.Errorf("blocked response (%d bytes)", len(body))
	}

	doc, err := goquery.NewDocumentFromReader(strings.NewReader(string(body)))
	if err != nil {
		return nil, fmt.Errorf("parse html: %w", err)
	}
	return doc, nil
}

// blocked flags the portal's bot-wall responses: stub pages and the
// access-denied interstitial.
func blocked(body []byte) bool {
	if len(body) < 1000 {
		return true
	}
	return strings.Contains(string(body), "Access denied") ||
		strings.Contains(string(body), "Access Denied")
}

// politenessDelay spaces every request at least the configured delay
// from the previous one, jittered so spacing is not uniform. The first
// request of a run goes out immediately.
func (h *HTTPHandler) politenessDelay(ctx context.Context) {
	h.mu.Lock()
	last := h.lastFetch
	h.mu.Unlock()
	if last.IsZero() {
		return
	}

	jitter := time.Duration(rand.Int63n(int64(h.delay)/2 + 1))
	if wait := h.delay + jitter - time.Since(last); wait > 0 {
		sleepCtx(ctx, wait)
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
