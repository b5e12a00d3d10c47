package extract

import (
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/PuerkitoBio/goquery"

	"bds_scraper/models"
)

func loadFixture(t *testing.T, name string) *goquery.Document {
	t.Helper()
	path := filepath.Join("testdata", name)
	data, err := os.ReadFile(path)
	if err != nil {
		t.Fatalf("failed to read fixture %s: %v", name, err)
	}
	doc, err := goquery.NewDocumentFromReader(strings.NewReader(string(data)))
	if err != nil {
		t.Fatalf("failed to parse fixture %s: %v", name, err)
	}
	return doc
}

func TestCardLinks(t *testing.T) {
	doc := loadFixture(t, "search_page.html")

	links := CardLinks(doc, "https://batdongsan.com.vn/nha-dat-ban-tp-hcm")
	if len(links) != 2 {
		t.Fatalf("expected 2 links, got %d: %v", len(links), links)
	}
	if links[0] != "https://batdongsan.com.vn/ban-nha-rieng-duong-le-van-luong-1/pr123" {
		t.Fatalf("relative href not resolved: %s", links[0])
	}
	if links[1] != "https://batdongsan.com.vn/ban-can-ho-chung-cu-sunrise/pr456" {
		t.Fatalf("unexpected second link %s", links[1])
	}
}

func TestCard_Basic(t *testing.T) {
	doc := loadFixture(t, "search_page.html")

	card := doc.Find(".re__card-full").First()
	rec, err := Card(card, "https://batdongsan.com.vn")
	if err != nil {
		t.Fatalf("card extraction failed: %v", err)
	}

	if rec.Title != "Bán nhà riêng hẻm Lê Văn Lương, Quận 7" {
		t.Fatalf("unexpected title %q", rec.Title)
	}
	if rec.Link != "https://batdongsan.com.vn/ban-nha-rieng-duong-le-van-luong-1/pr123" {
		t.Fatalf("unexpected link %q", rec.Link)
	}
	if rec.PriceRaw != "6,8 tỷ" {
		t.Fatalf("unexpected raw price %q", rec.PriceRaw)
	}
	if rec.PriceVND == nil || *rec.PriceVND != 6.8e9 {
		t.Fatalf("price not parsed: %v", rec.PriceVND)
	}
	if rec.AreaM2 == nil || *rec.AreaM2 != 86 {
		t.Fatalf("area not parsed: %v", rec.AreaM2)
	}
	if rec.District != "Quận 7" {
		t.Fatalf("district = %q; want Quận 7", rec.District)
	}
	if rec.PricePerM2 == "" {
		t.Fatal("expected derived price per m²")
	}
	if rec.PropertyType != "Nhà riêng" {
		t.Fatalf("property type = %q; want Nhà riêng", rec.PropertyType)
	}
}

func TestCard_NegotiablePrice(t *testing.T) {
	doc := loadFixture(t, "search_page.html")

	card := doc.Find(".re__card-full").Eq(1)
	rec, err := Card(card, "https://batdongsan.com.vn")
	if err != nil {
		t.Fatalf("card extraction failed: %v", err)
	}
	if rec.PriceVND != nil {
		t.Fatalf("negotiable price parsed to %v; want nil", *rec.PriceVND)
	}
	if rec.PricePerM2 != "" {
		t.Fatalf("price per m² derived without price: %q", rec.PricePerM2)
	}
	if rec.PropertyType != "Căn hộ" {
		t.Fatalf("property type = %q; want Căn hộ", rec.PropertyType)
	}
}

func TestCard_NoTitle(t *testing.T) {
	doc := loadFixture(t, "search_page.html")

	card := doc.Find(".re__card-full").Eq(2)
	if _, err := Card(card, "https://batdongsan.com.vn"); err != ErrNoStructure {
		t.Fatalf("expected ErrNoStructure, got %v", err)
	}
}

func TestDetail_Basic(t *testing.T) {
	doc := loadFixture(t, "detail_basic.html")

	rec := &models.ListingRecord{Link: "https://batdongsan.com.vn/ban-nha-rieng-lam-van-ben/pr789"}
	if err := Detail(doc, rec); err != nil {
		t.Fatalf("detail extraction failed: %v", err)
	}

	if rec.Title != "Bán nhà riêng 2 mặt hẻm Lâm Văn Bền, Quận 7" {
		t.Fatalf("unexpected title %q", rec.Title)
	}
	if !strings.Contains(rec.Address, "Lâm Văn Bền") {
		t.Fatalf("unexpected address %q", rec.Address)
	}
	if rec.PriceVND == nil || *rec.PriceVND != 6.8e9 {
		t.Fatalf("price not parsed: %v", rec.PriceVND)
	}
	if rec.AreaM2 == nil || *rec.AreaM2 != 86 {
		t.Fatalf("area not parsed: %v", rec.AreaM2)
	}
	if rec.Bedrooms == nil || *rec.Bedrooms != 4 {
		t.Fatalf("bedrooms = %v; want 4", rec.Bedrooms)
	}
	if rec.Toilets == nil || *rec.Toilets != 3 {
		t.Fatalf("toilets = %v; want 3", rec.Toilets)
	}
	if rec.Frontage == nil || *rec.Frontage != 4.5 {
		t.Fatalf("frontage = %v; want 4.5", rec.Frontage)
	}
	if rec.HouseDirection != "Đông Nam" {
		t.Fatalf("house direction = %q", rec.HouseDirection)
	}
	if rec.LegalStatus != "Sổ hồng/Sổ đỏ" {
		t.Fatalf("legal status = %q", rec.LegalStatus)
	}
	if rec.District != "Quận 7" {
		t.Fatalf("district = %q; want Quận 7 from breadcrumb", rec.District)
	}
	if rec.PropertyType != "Nhà riêng" {
		t.Fatalf("property type = %q; want Nhà riêng", rec.PropertyType)
	}
	if !strings.Contains(rec.Description, "hẻm xe hơi") {
		t.Fatalf("unexpected description %q", rec.Description)
	}
}

func TestDetail_Coordinates(t *testing.T) {
	doc := loadFixture(t, "detail_basic.html")

	lat, lng, ok := Coordinates(doc)
	if !ok {
		t.Fatal("expected coordinates from map iframe")
	}
	if lat != 10.7411 || lng != 106.7099 {
		t.Fatalf("got %v,%v; want 10.7411,106.7099", lat, lng)
	}
}

func TestDetail_Images(t *testing.T) {
	doc := loadFixture(t, "detail_basic.html")

	urls := ImageURLs(doc, "https://batdongsan.com.vn/ban-nha-rieng-lam-van-ben/pr789")
	if len(urls) != 2 {
		t.Fatalf("expected 2 unique images, got %d: %v", len(urls), urls)
	}
	if urls[0] != "https://file4.batdongsan.com.vn/2025/01/house1.jpg" {
		t.Fatalf("unexpected first image %s", urls[0])
	}
	for _, u := range urls {
		if strings.Contains(u, "logo") {
			t.Fatalf("site chrome leaked into images: %s", u)
		}
	}
}

func TestDetail_NoStructure(t *testing.T) {
	doc, err := goquery.NewDocumentFromReader(strings.NewReader("<html><body><h1>Access denied</h1></body></html>"))
	if err != nil {
		t.Fatal(err)
	}
	rec := &models.ListingRecord{Link: "https://example.com/x"}
	if err := Detail(doc, rec); err != ErrNoStructure {
		t.Fatalf("expected ErrNoStructure, got %v", err)
	}
}

func TestPropertyTypeFromURL(t *testing.T) {
	tests := []struct {
		link string
		want string
	}{
		{"https://batdongsan.com.vn/ban-can-ho-chung-cu-q7/pr1", "Căn hộ chung cư"},
		{"https://batdongsan.com.vn/ban-dat-nen-du-an/pr2", "Đất nền"},
		{"https://batdongsan.com.vn/dat-tho-cu-cu-chi/pr3", "Đất"},
		{"https://batdongsan.com.vn/tin-tuc/pr4", ""},
	}

	for _, tt := range tests {
		if got := PropertyType("", tt.link, nil); got != tt.want {
			t.Errorf("PropertyType(url=%q) = %q; want %q", tt.link, got, tt.want)
		}
	}
}

func TestIsPropertyImage(t *testing.T) {
	tests := []struct {
		url  string
		want bool
	}{
		{"https://file4.batdongsan.com.vn/2025/01/house1.jpg", true},
		{"https://cdn.example.com/photos/12345", true},
		{"https://batdongsan.com.vn/icons/arrow.png", false},
		{"https://batdongsan.com.vn/logo-header.png", false},
		{"https://example.com/pixel.gif?tracking=1", false},
		{"", false},
	}

	for _, tt := range tests {
		if got := IsPropertyImage(tt.url); got != tt.want {
			t.Errorf("IsPropertyImage(%q) = %v; want %v", tt.url, got, tt.want)
		}
	}
}
