package extract

import (
	"net/url"
	"strings"

	"github.com/PuerkitoBio/goquery"
)

// Gallery selector tiers, broadest last. The first tier that yields
// anything wins.
var (
	gallerySelectors = ".re__pr-carousel-wrapper, .image-gallery, .property-images, .carousel-inner, .slider-wrapper, .js__product-detail-slider1, .product-detail-slider1, .pswp__zoom-wrap"
	contentSelectors = ".re__pr-carousel-item img, .content-area img, .property-detail img, .main-content img, .product-detail img, .pr-image"
)

// Attribute names an <img> may carry its real URL under, checked in
// order. Lazy loaders put the placeholder in src.
var imageAttrs = []string{"data-src", "src", "data-lazy-src", "data-original", "data-lazy"}

// URL fragments that mark chrome rather than property photos.
var ignoredImagePatterns = []string{
	"/icons/", "/logo", "avatar", "icon", "thumb", "banner",
	"button", "pixel.", "tracking", "favicon", "loading.gif",
}

var imageExtensions = []string{".jpg", ".jpeg", ".png", ".webp"}

// ImageURLs collects the property photo URLs of a detail page:
// gallery containers first, then content images, then any image that
// passes the property-photo filter. Duplicates are dropped, first
// occurrence kept.
func ImageURLs(doc *goquery.Document, base string) []string {
	var urls []string

	doc.Find(gallerySelectors).Find("img").Each(func(_ int, img *goquery.Selection) {
		if u := imageURL(img, base); u != "" {
			urls = append(urls, u)
		}
	})

	if len(urls) == 0 {
		doc.Find(contentSelectors).Each(func(_ int, img *goquery.Selection) {
			if u := imageURL(img, base); u != "" && IsPropertyImage(u) {
				urls = append(urls, u)
			}
		})
	}

	if len(urls) == 0 {
		doc.Find("img").Each(func(_ int, img *goquery.Selection) {
			if u := imageURL(img, base); u != "" && IsPropertyImage(u) {
				urls = append(urls, u)
			}
		})
	}

	return dedupeStrings(urls)
}

// imageURL picks the first usable URL attribute off an <img>, skipping
// inline data URIs and resolving relative paths.
func imageURL(img *goquery.Selection, base string) string {
	for _, attr := range imageAttrs {
		u, ok := img.Attr(attr)
		if !ok || u == "" {
			continue
		}
		if strings.HasPrefix(u, "data:") {
			continue
		}
		if !strings.HasPrefix(u, "http://") && !strings.HasPrefix(u, "https://") {
			u = resolveURL(base, u)
		}
		return u
	}
	return ""
}

// IsPropertyImage reports whether a URL plausibly points at a listing
// photo rather than site chrome. Known chrome patterns are rejected,
// then the path needs a photo extension or, failing that, an
// image-ish keyword somewhere in the URL.
func IsPropertyImage(imgURL string) bool {
	if imgURL == "" {
		return false
	}
	lower := strings.ToLower(imgURL)
	for _, pattern := range ignoredImagePatterns {
		if strings.Contains(lower, pattern) {
			return false
		}
	}

	path := lower
	if parsed, err := url.Parse(imgURL); err == nil {
		path = strings.ToLower(parsed.Path)
	}
	for _, ext := range imageExtensions {
		if strings.HasSuffix(path, ext) {
			return true
		}
	}

	for _, indicator := range []string{"image", "photo", "picture", "img"} {
		if strings.Contains(lower, indicator) {
			return true
		}
	}
	return false
}

func dedupeStrings(in []string) []string {
	seen := make(map[string]struct{}, len(in))
	out := in[:0]
	for _, s := range in {
		if _, ok := seen[s]; ok {
			continue
		}
		seen[s] = struct{}{}
		out = append(out, s)
	}
	return out
}
