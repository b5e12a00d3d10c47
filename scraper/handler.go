package scraper

import (
	"context"

	"bds_scraper/config"
	"bds_scraper/httputil"
	"bds_scraper/models"
)

// Handler fetches one site. DiscoverURLs walks the search results and
// returns detail-page URLs; FetchListing pulls one listing record.
type Handler interface {
	ID() string
	DiscoverURLs(ctx context.Context, maxPages int) ([]string, error)
	FetchListing(ctx context.Context, url string) (*models.ListingRecord, error)
	Close()
}

func NewHandler(siteCfg *config.SiteConfig, scraperCfg *config.ScraperConfig, clients *httputil.Clients) Handler {
	switch siteCfg.Handler {
	case "browser":
		return NewBrowserHandler(siteCfg)
	case "http":
		return NewHTTPHandler(siteCfg, scraperCfg, clients)
	default:
		return NewHTTPHandler(siteCfg, scraperCfg, clients)
	}
}
