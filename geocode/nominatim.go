// Package geocode resolves listing addresses to coordinates through
// the OpenStreetMap Nominatim API. It is a best-effort collaborator:
// callers treat a miss the same as a lookup they never made.
package geocode

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"time"
)

const defaultEndpoint = "https://nominatim.openstreetmap.org/search"

// Nominatim is a rate-limited geocoding client. The public API allows
// one request per second, which minInterval enforces.
type Nominatim struct {
	client      *http.Client
	endpoint    string
	userAgent   string
	minInterval time.Duration
	lastRequest time.Time
}

func NewNominatim(client *http.Client) *Nominatim {
	return &Nominatim{
		client:      client,
		endpoint:    defaultEndpoint,
		userAgent:   "batdongsan_scraper",
		minInterval: time.Second,
	}
}

type searchResult struct {
	Lat string `json:"lat"`
	Lon string `json:"lon"`
}

// Geocode looks up an address scoped to Ho Chi Minh City. ok is false
// on any miss or transport failure.
func (n *Nominatim) Geocode(ctx context.Context, address string) (lat, lng float64, ok bool) {
	if address == "" {
		return 0, 0, false
	}

	n.throttle(ctx)

	query := url.Values{}
	query.Set("q", fmt.Sprintf("%s, Hồ Chí Minh, Việt Nam", address))
	query.Set("format", "json")
	query.Set("limit", "1")

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, n.endpoint+"?"+query.Encode(), nil)
	if err != nil {
		return 0, 0, false
	}
	req.Header.Set("User-Agent", n.userAgent)

	resp, err := n.client.Do(req)
	if err != nil {
		return 0, 0, false
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return 0, 0, false
	}

	body, err := io.ReadAll(io.LimitReader(resp.Body, 1<<20))
	if err != nil {
		return 0, 0, false
	}

	var results []searchResult
	if err := json.Unmarshal(body, &results); err != nil || len(results) == 0 {
		return 0, 0, false
	}

	lat, errLat := strconv.ParseFloat(results[0].Lat, 64)
	lng, errLng := strconv.ParseFloat(results[0].Lon, 64)
	if errLat != nil || errLng != nil {
		return 0, 0, false
	}
	return lat, lng, true
}

func (n *Nominatim) throttle(ctx context.Context) {
	wait := n.minInterval - time.Since(n.lastRequest)
	if wait > 0 {
		timer := time.NewTimer(wait)
		defer timer.Stop()
		select {
		case <-ctx.Done():
		case <-timer.C:
		}
	}
	n.lastRequest = time.Now()
}
