package httputil

import (
	"crypto/tls"
	"net/http"
	"net/url"
	"time"
)

type Clients struct {
	Scraping *http.Client // target site pages, optionally proxied
	Images   *http.Client // image downloads, longer timeout
	Geocode  *http.Client // Nominatim API
}

func NewClients(proxyURL string) *Clients {
	scraping := &http.Client{
		Timeout: 30 * time.Second,
	}

	if proxyURL != "" {
		if parsed, err := url.Parse(proxyURL); err == nil {
			scraping.Transport = &http.Transport{
				Proxy:             http.ProxyURL(parsed),
				ForceAttemptHTTP2: false,
				TLSNextProto:      make(map[string]func(string, *tls.Conn) http.RoundTripper),
			}
		}
	}

	return &Clients{
		Scraping: scraping,
		Images:   &http.Client{Timeout: 45 * time.Second},
		Geocode:  &http.Client{Timeout: 10 * time.Second},
	}
}
