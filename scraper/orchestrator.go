package scraper

import (
	"context"
	"errors"
	"fmt"
	"log"
	"time"

	"bds_scraper/config"
	"bds_scraper/enrich"
	"bds_scraper/extract"
	"bds_scraper/geocode"
	"bds_scraper/httputil"
	"bds_scraper/identity"
	"bds_scraper/input"
	"bds_scraper/models"
	"bds_scraper/storage"
)

// ListingStore is the document store the pipeline persists into.
type ListingStore interface {
	BulkUpsert(ctx context.Context, records []*models.ListingRecord) (*storage.UpsertReport, error)
}

// Orchestrator drives the full pipeline for each configured site:
// discover, fetch, extract, enrich, dedupe, persist. Failures on one
// listing never abort the run; they are counted and logged.
type Orchestrator struct {
	cfg      *config.Config
	ops      *storage.SQLiteStore
	listings ListingStore
	geocoder *geocode.Nominatim
	handlers map[string]Handler
	paused   bool
}

func NewOrchestrator(cfg *config.Config, ops *storage.SQLiteStore, listings ListingStore, clients *httputil.Clients) *Orchestrator {
	handlers := make(map[string]Handler)
	for id, siteCfg := range cfg.Sites {
		handlers[id] = NewHandler(siteCfg, &cfg.Scraper, clients)
	}

	return &Orchestrator{
		cfg:      cfg,
		ops:      ops,
		listings: listings,
		handlers: handlers,
	}
}

// SetGeocoder enables the address-geocoding fallback for listings
// whose pages expose no coordinates.
func (o *Orchestrator) SetGeocoder(g *geocode.Nominatim) {
	o.geocoder = g
}

func (o *Orchestrator) RunAll(ctx context.Context) error {
	if o.paused {
		log.Println("Scraper is paused, skipping run")
		return nil
	}

	for siteID := range o.cfg.Sites {
		if err := o.RunSite(ctx, siteID); err != nil {
			log.Printf("Error running site %s: %v", siteID, err)
		}
	}

	return nil
}

// RunSite discovers listing URLs from the site's search pages and
// processes them.
func (o *Orchestrator) RunSite(ctx context.Context, siteID string) error {
	handler, ok := o.handlers[siteID]
	if !ok {
		return fmt.Errorf("no handler for site: %s", siteID)
	}
	siteCfg := o.cfg.Sites[siteID]

	run := models.NewScrapeRun(siteID)
	if _, err := o.ops.CreateRun(run); err != nil {
		return err
	}
	defer o.finishRun(run)

	o.log(run.ID, models.LogLevelInfo, fmt.Sprintf("Starting scrape for %s", siteCfg.Name), siteID)

	urls, err := handler.DiscoverURLs(ctx, o.cfg.Scraper.MaxPages)
	if err != nil {
		o.log(run.ID, models.LogLevelError, fmt.Sprintf("Discovery failed: %v", err), siteID)
		run.ErrorsCount++
		run.Status = models.RunStatusFailed
		return err
	}
	o.log(run.ID, models.LogLevelInfo, fmt.Sprintf("Discovered %d listing URLs", len(urls)), siteID)

	if max := o.cfg.Scraper.MaxDetailed; max > 0 && len(urls) > max {
		o.log(run.ID, models.LogLevelInfo, fmt.Sprintf("Limiting detail fetch to first %d", max), siteID)
		urls = urls[:max]
	}

	records := o.fetchAll(ctx, handler, run, urls)
	return o.persist(ctx, run, records)
}

// RunTargets processes an explicit URL list (from a urls file, CSV or
// prior dataset) through the same pipeline, skipping discovery.
func (o *Orchestrator) RunTargets(ctx context.Context, siteID string, targets []input.Target) error {
	handler, ok := o.handlers[siteID]
	if !ok {
		return fmt.Errorf("no handler for site: %s", siteID)
	}

	run := models.NewScrapeRun(siteID)
	if _, err := o.ops.CreateRun(run); err != nil {
		return err
	}
	defer o.finishRun(run)

	o.log(run.ID, models.LogLevelInfo, fmt.Sprintf("Processing %d targets from input file", len(targets)), siteID)

	urls := make([]string, 0, len(targets))
	for _, t := range targets {
		urls = append(urls, t.URL)
	}

	records := o.fetchAll(ctx, handler, run, urls)
	return o.persist(ctx, run, records)
}

// RunImport upserts a previously exported dataset straight into the
// document store, re-stamping identities but not refetching pages.
func (o *Orchestrator) RunImport(ctx context.Context, path string) error {
	ds, err := storage.ReadDataset(path)
	if err != nil {
		return err
	}

	records := make([]*models.ListingRecord, 0, len(ds.Listings))
	for i := range ds.Listings {
		rec := ds.Listings[i]
		if rec.Link == "" {
			continue
		}
		identity.KeyFor(&rec)
		records = append(records, &rec)
	}
	records = identity.Dedupe(records)
	if len(records) == 0 {
		return fmt.Errorf("no importable listings in %s", path)
	}

	report, err := o.listings.BulkUpsert(ctx, records)
	if err != nil {
		return err
	}
	for _, id := range report.Failed {
		log.Printf("[import] upsert rejected for %s", id)
	}
	log.Printf("Imported %d listings from %s (upserted %d, modified %d, failed %d)",
		len(records), path, report.Upserted, report.Modified, len(report.Failed))
	return nil
}

// fetchAll pulls each detail page sequentially. Structure misses are
// skips, other failures errors; both leave the loop running.
func (o *Orchestrator) fetchAll(ctx context.Context, handler Handler, run *models.ScrapeRun, urls []string) []*models.ListingRecord {
	var records []*models.ListingRecord
	for i, url := range urls {
		if ctx.Err() != nil {
			o.log(run.ID, models.LogLevelWarn, "Run canceled", run.SiteID)
			break
		}

		log.Printf("[%s] listing %d/%d: %s", run.SiteID, i+1, len(urls), url)
		run.URLsProcessed++

		rec, err := handler.FetchListing(ctx, url)
		if err != nil {
			if errors.Is(err, extract.ErrNoStructure) {
				o.log(run.ID, models.LogLevelWarn, fmt.Sprintf("No listing structure at %s, skipping", url), run.SiteID)
				run.Skipped++
			} else {
				o.log(run.ID, models.LogLevelError, fmt.Sprintf("Fetch error for %s: %v", url, err), run.SiteID)
				run.ErrorsCount++
			}
			continue
		}

		o.finalize(ctx, rec)
		records = append(records, rec)
		run.ListingsFound++
	}
	return records
}

// finalize runs the per-record tail of the pipeline: backfill, the
// geocoding fallback and identity stamping.
func (o *Orchestrator) finalize(ctx context.Context, rec *models.ListingRecord) {
	enrich.Backfill(rec)

	if rec.Latitude == nil && o.geocoder != nil && rec.Address != "" {
		if lat, lng, ok := o.geocoder.Geocode(ctx, rec.Address); ok {
			rec.Latitude, rec.Longitude = &lat, &lng
		}
	}

	identity.KeyFor(rec)
}

// persist dedupes the batch, bulk-upserts it into the document store
// and refreshes the dataset export.
func (o *Orchestrator) persist(ctx context.Context, run *models.ScrapeRun, records []*models.ListingRecord) error {
	records = identity.Dedupe(records)
	run.ListingsKept = len(records)

	if len(records) == 0 {
		run.Status = models.RunStatusCompleted
		o.log(run.ID, models.LogLevelWarn, "Nothing to persist", run.SiteID)
		return nil
	}

	report, err := o.listings.BulkUpsert(ctx, records)
	if err != nil {
		o.log(run.ID, models.LogLevelError, fmt.Sprintf("Bulk upsert failed: %v", err), run.SiteID)
		run.ErrorsCount++
		run.Status = models.RunStatusFailed
		return err
	}
	for _, id := range report.Failed {
		o.log(run.ID, models.LogLevelError, fmt.Sprintf("Upsert rejected for %s", id), run.SiteID)
		run.ErrorsCount++
	}

	if path := o.cfg.Output.DatasetPath; path != "" {
		if err := storage.WriteDataset(path, records); err != nil {
			o.log(run.ID, models.LogLevelError, fmt.Sprintf("Dataset export failed: %v", err), run.SiteID)
			run.ErrorsCount++
		}
	}

	run.Status = models.RunStatusCompleted
	o.log(run.ID, models.LogLevelInfo,
		fmt.Sprintf("Completed: %d processed, %d kept, %d skipped, %d errors (upserted %d, modified %d)",
			run.URLsProcessed, run.ListingsKept, run.Skipped, run.ErrorsCount,
			report.Upserted, report.Modified), run.SiteID)
	return nil
}

func (o *Orchestrator) finishRun(run *models.ScrapeRun) {
	now := time.Now()
	run.FinishedAt = &now
	if run.Status == models.RunStatusRunning {
		run.Status = models.RunStatusCompleted
	}
	o.ops.UpdateRun(run)
	o.ops.UpdateSiteStats(run.SiteID)
}

func (o *Orchestrator) Pause()         { o.paused = true }
func (o *Orchestrator) Resume()        { o.paused = false }
func (o *Orchestrator) IsPaused() bool { return o.paused }

func (o *Orchestrator) GetSiteIDs() []string {
	var ids []string
	for id := range o.cfg.Sites {
		ids = append(ids, id)
	}
	return ids
}

// CloseHandlers releases any browser sessions handlers may hold.
func (o *Orchestrator) CloseHandlers() {
	for _, h := range o.handlers {
		h.Close()
	}
}

func (o *Orchestrator) log(runID int64, level models.LogLevel, message, siteID string) {
	log.Printf("[%s] %s: %s", level, siteID, message)
	o.ops.Log(&runID, level, message, siteID)
}
