package scraper

import (
	"context"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"bds_scraper/config"
	"bds_scraper/httputil"
)

// pad pushes a response body past the stub-page threshold so the
// block detector does not trip on small test fixtures.
func pad(html string) string {
	return html + "<!-- " + strings.Repeat("filler ", 200) + " -->"
}

func searchPageHTML(links ...string) string {
	var b strings.Builder
	b.WriteString("<html><body><div class='re__srp-list'>")
	for i, link := range links {
		fmt.Fprintf(&b, `<a class="js__product-link-for-product-id" href="%s"><span class="re__card-title">Nhà %d</span></a>`, link, i+1)
	}
	b.WriteString("</div></body></html>")
	return pad(b.String())
}

const detailHTML = `<html><body>
<h1 class="re__pr-title">Bán nhà riêng Quận 7, 86m2</h1>
<div class="re__pr-short-info-item"><span class="title">Mức giá</span><span class="value">6,8 tỷ</span></div>
<div class="re__pr-specs-content-item">
  <div class="re__pr-specs-content-item-title">Diện tích</div>
  <div class="re__pr-specs-content-item-value">86 m²</div>
</div>
<div class="js__pr-description">Nhà đẹp, 3 phòng ngủ, 2 wc.</div>
</body></html>`

func testSite(baseURL string) *config.SiteConfig {
	return &config.SiteConfig{
		ID:         "batdongsan",
		Name:       "Batdongsan",
		Handler:    "http",
		BaseURL:    baseURL,
		SearchPath: "/nha-dat-ban-tp-hcm",
		MaxPages:   3,
	}
}

func newTestHTTPHandler(srv *httptest.Server) *HTTPHandler {
	scraperCfg := &config.ScraperConfig{Retries: 0, DelayMS: 1}
	return NewHTTPHandler(testSite(srv.URL), scraperCfg, httputil.NewClients(""))
}

func TestDiscoverURLsPaginates(t *testing.T) {
	mux := http.NewServeMux()
	srv := httptest.NewServer(mux)
	defer srv.Close()

	mux.HandleFunc("/nha-dat-ban-tp-hcm", func(w http.ResponseWriter, r *http.Request) {
		fmt.Fprint(w, searchPageHTML("/ban-nha-1-pr100", "/ban-nha-2-pr200"))
	})
	mux.HandleFunc("/nha-dat-ban-tp-hcm/p2", func(w http.ResponseWriter, r *http.Request) {
		fmt.Fprint(w, searchPageHTML("/ban-nha-3-pr300"))
	})
	mux.HandleFunc("/nha-dat-ban-tp-hcm/p3", func(w http.ResponseWriter, r *http.Request) {
		// No cards on the last page ends the walk.
		fmt.Fprint(w, pad("<html><body><p>Hết kết quả</p></body></html>"))
	})

	h := newTestHTTPHandler(srv)
	urls, err := h.DiscoverURLs(context.Background(), 3)
	if err != nil {
		t.Fatalf("DiscoverURLs: %v", err)
	}
	want := []string{
		srv.URL + "/ban-nha-1-pr100",
		srv.URL + "/ban-nha-2-pr200",
		srv.URL + "/ban-nha-3-pr300",
	}
	if len(urls) != len(want) {
		t.Fatalf("got %d urls, want %d: %v", len(urls), len(want), urls)
	}
	for i, u := range want {
		if urls[i] != u {
			t.Errorf("urls[%d] = %s, want %s", i, urls[i], u)
		}
	}
}

func TestDiscoverURLsFirstPageFailure(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "nope", http.StatusForbidden)
	}))
	defer srv.Close()

	h := newTestHTTPHandler(srv)
	if _, err := h.DiscoverURLs(context.Background(), 2); err == nil {
		t.Fatal("expected error when the first search page fails")
	}
}

func TestFetchListingExtractsDetail(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		fmt.Fprint(w, pad(detailHTML))
	}))
	defer srv.Close()

	h := newTestHTTPHandler(srv)
	rec, err := h.FetchListing(context.Background(), srv.URL+"/ban-nha-rieng-pr100")
	if err != nil {
		t.Fatalf("FetchListing: %v", err)
	}
	if rec.Title != "Bán nhà riêng Quận 7, 86m2" {
		t.Errorf("title = %q", rec.Title)
	}
	if rec.PriceVND == nil || *rec.PriceVND != 6.8e9 {
		t.Errorf("price = %v, want 6.8e9", rec.PriceVND)
	}
	if rec.AreaM2 == nil || *rec.AreaM2 != 86 {
		t.Errorf("area = %v, want 86", rec.AreaM2)
	}
}

func TestFetchListingBlockedPage(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		fmt.Fprint(w, "Access denied")
	}))
	defer srv.Close()

	h := newTestHTTPHandler(srv)
	if _, err := h.FetchListing(context.Background(), srv.URL+"/ban-nha-pr1"); err == nil {
		t.Fatal("expected error for blocked response")
	}
	// The handler must also reject larger access-denied interstitials.
	if !blocked([]byte(pad("<html><body>Access denied</body></html>"))) {
		t.Error("padded access-denied page not flagged as blocked")
	}
}

func TestFetchListingSpacesRequests(t *testing.T) {
	var hits []time.Time
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		hits = append(hits, time.Now())
		fmt.Fprint(w, pad(detailHTML))
	}))
	defer srv.Close()

	site := testSite(srv.URL)
	site.RateLimitMS = 50
	h := NewHTTPHandler(site, &config.ScraperConfig{Retries: 0}, httputil.NewClients(""))

	for i := 0; i < 3; i++ {
		if _, err := h.FetchListing(context.Background(), srv.URL+"/ban-nha-pr1"); err != nil {
			t.Fatalf("FetchListing %d: %v", i, err)
		}
	}

	if len(hits) != 3 {
		t.Fatalf("server saw %d requests, want 3", len(hits))
	}
	for i := 1; i < len(hits); i++ {
		if gap := hits[i].Sub(hits[i-1]); gap < 50*time.Millisecond {
			t.Errorf("gap between request %d and %d = %v, want >= 50ms", i-1, i, gap)
		}
	}
}

func TestFetchListingSendsBrowserHeaders(t *testing.T) {
	var gotUA, gotReferer string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotUA = r.Header.Get("User-Agent")
		gotReferer = r.Header.Get("Referer")
		fmt.Fprint(w, pad(detailHTML))
	}))
	defer srv.Close()

	h := newTestHTTPHandler(srv)
	if _, err := h.FetchListing(context.Background(), srv.URL+"/ban-nha-pr1"); err != nil {
		t.Fatalf("FetchListing: %v", err)
	}
	if !strings.Contains(gotUA, "Mozilla") {
		t.Errorf("user agent = %q, want a browser string", gotUA)
	}
	if gotReferer != srv.URL+"/" {
		t.Errorf("referer = %q, want %q", gotReferer, srv.URL+"/")
	}
}
