package scraper

import (
	"context"
	"fmt"
	"log"
	"math/rand"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"github.com/PuerkitoBio/goquery"
	"github.com/playwright-community/playwright-go"

	"bds_scraper/config"
	"bds_scraper/extract"
	"bds_scraper/models"
)

const (
	minPageDelay = 2 * time.Second
	maxPageDelay = 5 * time.Second
)

// BrowserHandler drives a real Chromium session via playwright. It is
// slower than the HTTP handler but survives the portal's bot wall, and
// it can read the search filter menu, the last-resort property type
// source a fetched page cannot expose.
type BrowserHandler struct {
	cfg         *config.SiteConfig
	pw          *playwright.Playwright
	context     playwright.BrowserContext
	mu          sync.Mutex
	initialized bool
}

func NewBrowserHandler(cfg *config.SiteConfig) *BrowserHandler {
	return &BrowserHandler{cfg: cfg}
}

func (h *BrowserHandler) ID() string {
	return h.cfg.ID
}

func (h *BrowserHandler) ensureBrowser() error {
	h.mu.Lock()
	defer h.mu.Unlock()

	if h.initialized {
		return nil
	}

	var err error
	h.pw, err = playwright.Run()
	if err != nil {
		return fmt.Errorf("failed to start playwright: %w", err)
	}

	cwd, _ := os.Getwd()
	userDataDir := filepath.Join(cwd, "browser_data")
	h.context, err = h.pw.Chromium.LaunchPersistentContext(userDataDir, playwright.BrowserTypeLaunchPersistentContextOptions{
		Headless: playwright.Bool(true),
		Args: []string{
			"--disable-blink-features=AutomationControlled",
			"--disable-dev-shm-usage",
			"--no-sandbox",
		},
	})
	if err != nil {
		return fmt.Errorf("failed to launch browser: %w", err)
	}

	h.initialized = true
	return nil
}

func (h *BrowserHandler) Close() {
	h.mu.Lock()
	defer h.mu.Unlock()

	if h.context != nil {
		h.context.Close()
	}
	if h.pw != nil {
		h.pw.Stop()
	}
	h.initialized = false
}

// DiscoverURLs pages through the search results clicking the
// pagination control, collecting card links as it goes.
func (h *BrowserHandler) DiscoverURLs(ctx context.Context, maxPages int) ([]string, error) {
	if maxPages <= 0 {
		maxPages = h.cfg.MaxPages
	}
	if err := h.ensureBrowser(); err != nil {
		return nil, err
	}

	page, err := h.context.NewPage()
	if err != nil {
		return nil, fmt.Errorf("failed to create page: %w", err)
	}
	defer page.Close()

	var urls []string
	for pageNum := 1; pageNum <= maxPages; pageNum++ {
		if err := ctx.Err(); err != nil {
			return urls, err
		}

		searchURL := h.cfg.SearchURL(pageNum)
		log.Printf("[%s] browser page %d: %s", h.cfg.ID, pageNum, searchURL)

		if _, err := page.Goto(searchURL, playwright.PageGotoOptions{
			Timeout:   playwright.Float(60000),
			WaitUntil: playwright.WaitUntilStateDomcontentloaded,
		}); err != nil {
			log.Printf("[%s] navigation error (continuing): %v", h.cfg.ID, err)
		}

		h.humanDelay(2000, 4000)
		h.simulateHumanBehavior(page)
		h.handleConsent(page)

		if _, err := page.WaitForSelector(".js__product-link-for-product-id", playwright.PageWaitForSelectorOptions{
			Timeout: playwright.Float(10000),
		}); err != nil {
			log.Printf("[%s] no listings on page %d, stopping", h.cfg.ID, pageNum)
			break
		}

		links, err := h.collectCardLinks(page)
		if err != nil {
			return urls, err
		}
		if len(links) == 0 {
			break
		}
		urls = append(urls, links...)

		// The pagination arrow disappears on the last results page.
		next := page.Locator("a.re__pagination-icon:not(.re__pagination-icon--no-effect)").First()
		if visible, _ := next.IsVisible(); !visible {
			log.Printf("[%s] no next page after %d", h.cfg.ID, pageNum)
			break
		}

		delay := minPageDelay + time.Duration(rand.Int63n(int64(maxPageDelay-minPageDelay)))
		time.Sleep(delay)
	}

	return urls, nil
}

func (h *BrowserHandler) collectCardLinks(page playwright.Page) ([]string, error) {
	elements, err := page.Locator(".js__product-link-for-product-id").All()
	if err != nil {
		return nil, fmt.Errorf("locate cards: %w", err)
	}

	var links []string
	for _, el := range elements {
		href, err := el.GetAttribute("href")
		if err != nil || href == "" {
			continue
		}
		if !strings.HasPrefix(href, "http") {
			href = h.cfg.BaseURL + href
		}
		links = append(links, href)
	}
	return links, nil
}

// FetchListing renders a detail page and extracts the record from its
// settled DOM. When the page itself cannot classify the listing, the
// active filter in the site's property-type menu is read as a last
// tier.
func (h *BrowserHandler) FetchListing(ctx context.Context, url string) (*models.ListingRecord, error) {
	if err := h.ensureBrowser(); err != nil {
		return nil, err
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	page, err := h.context.NewPage()
	if err != nil {
		return nil, fmt.Errorf("failed to create page: %w", err)
	}
	defer page.Close()

	if _, err := page.Goto(url, playwright.PageGotoOptions{
		Timeout:   playwright.Float(60000),
		WaitUntil: playwright.WaitUntilStateDomcontentloaded,
	}); err != nil {
		return nil, fmt.Errorf("goto %s: %w", url, err)
	}

	h.humanDelay(1500, 3000)
	h.handleConsent(page)

	content, err := page.Content()
	if err != nil {
		return nil, fmt.Errorf("read page content: %w", err)
	}

	doc, err := goquery.NewDocumentFromReader(strings.NewReader(content))
	if err != nil {
		return nil, fmt.Errorf("parse html: %w", err)
	}

	rec := &models.ListingRecord{Link: url}
	if err := extract.Detail(doc, rec); err != nil {
		return nil, err
	}

	if rec.PropertyType == "" {
		rec.PropertyType = h.propertyTypeFromFilterMenu(page)
	}
	return rec, nil
}

// propertyTypeFromFilterMenu opens the "Loại nhà đất" dropdown and
// reads whichever filter option the portal marked active for this
// listing. Best effort; an empty string means the menu gave nothing.
func (h *BrowserHandler) propertyTypeFromFilterMenu(page playwright.Page) string {
	button := page.Locator("a:has-text('Loại nhà đất')").First()
	if visible, _ := button.IsVisible(); !visible {
		return ""
	}
	button.Click()
	h.humanDelay(500, 1000)

	options, err := page.Locator(".js__search-filter[data-type='nhà đất']").All()
	if err != nil {
		return ""
	}
	for _, opt := range options {
		class, _ := opt.GetAttribute("class")
		if strings.Contains(class, "re__search-filter-active") {
			text, _ := opt.TextContent()
			return strings.TrimSpace(text)
		}
	}
	return ""
}

func (h *BrowserHandler) handleConsent(page playwright.Page) {
	consentSelectors := []string{
		"button:has-text('Đồng ý')",
		"button[id*='accept']",
		"button[class*='accept']",
		"button[class*='consent']",
		"#didomi-notice-agree-button",
		"button:has-text('Accept')",
		"button:has-text('OK')",
	}

	for _, selector := range consentSelectors {
		btn := page.Locator(selector).First()
		if visible, _ := btn.IsVisible(); visible {
			log.Printf("Clicking consent button: %s", selector)
			btn.Click()
			page.WaitForTimeout(2000)
			break
		}
	}
}

func (h *BrowserHandler) simulateHumanBehavior(page playwright.Page) {
	page.Mouse().Move(float64(300+rand.Intn(400)), float64(200+rand.Intn(300)))
	page.WaitForTimeout(float64(200 + rand.Intn(300)))
	page.Mouse().Move(float64(400+rand.Intn(300)), float64(300+rand.Intn(200)))
	page.WaitForTimeout(float64(200 + rand.Intn(300)))

	scrollAmount := 100 + rand.Intn(300)
	page.Evaluate(fmt.Sprintf(`window.scrollBy(0, %d)`, scrollAmount))
}

func (h *BrowserHandler) humanDelay(minMs, maxMs int) {
	delay := minMs + rand.Intn(maxMs-minMs)
	time.Sleep(time.Duration(delay) * time.Millisecond)
}
