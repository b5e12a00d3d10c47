package scraper

import (
	"context"
	"errors"
	"fmt"
	"path/filepath"
	"testing"

	"bds_scraper/config"
	"bds_scraper/extract"
	"bds_scraper/models"
	"bds_scraper/storage"
)

type fakeHandler struct {
	urls     []string
	listings map[string]*models.ListingRecord
	errs     map[string]error
	fetched  []string
}

func (f *fakeHandler) ID() string { return "test" }
func (f *fakeHandler) Close()     {}

func (f *fakeHandler) DiscoverURLs(ctx context.Context, maxPages int) ([]string, error) {
	return f.urls, nil
}

func (f *fakeHandler) FetchListing(ctx context.Context, url string) (*models.ListingRecord, error) {
	f.fetched = append(f.fetched, url)
	if err, ok := f.errs[url]; ok {
		return nil, err
	}
	rec, ok := f.listings[url]
	if !ok {
		return nil, fmt.Errorf("unexpected url %s", url)
	}
	return rec, nil
}

type fakeStore struct {
	upserted []*models.ListingRecord
	err      error
}

func (f *fakeStore) BulkUpsert(ctx context.Context, records []*models.ListingRecord) (*storage.UpsertReport, error) {
	if f.err != nil {
		return nil, f.err
	}
	f.upserted = append(f.upserted, records...)
	return &storage.UpsertReport{Upserted: int64(len(records))}, nil
}

func newTestOrchestrator(t *testing.T, handler Handler, store ListingStore) *Orchestrator {
	t.Helper()

	dir := t.TempDir()
	ops, err := storage.NewSQLiteStore(filepath.Join(dir, "ops.db"))
	if err != nil {
		t.Fatalf("NewSQLiteStore: %v", err)
	}
	t.Cleanup(func() { ops.Close() })

	cfg := &config.Config{
		Scraper: config.ScraperConfig{MaxPages: 1, MaxDetailed: 10},
		Output:  config.OutputConfig{DatasetPath: filepath.Join(dir, "dataset.json")},
		Sites: map[string]*config.SiteConfig{
			"test": {ID: "test", Name: "Test Site"},
		},
	}

	o := &Orchestrator{
		cfg:      cfg,
		ops:      ops,
		listings: store,
		handlers: map[string]Handler{"test": handler},
	}
	return o
}

func detailRecord(link, title, address string) *models.ListingRecord {
	area := 85.0
	return &models.ListingRecord{
		Link:    link,
		Title:   title,
		Address: address,
		AreaM2:  &area,
	}
}

func TestRunSitePipeline(t *testing.T) {
	handler := &fakeHandler{
		urls: []string{
			"https://example.com/nha-1-pr100",
			"https://example.com/nha-2-pr200",
			"https://example.com/bad",
			"https://example.com/empty",
		},
		listings: map[string]*models.ListingRecord{
			"https://example.com/nha-1-pr100": detailRecord("https://example.com/nha-1-pr100", "Bán nhà Quận 7", "Quận 7, TP.HCM"),
			"https://example.com/nha-2-pr200": detailRecord("https://example.com/nha-2-pr200", "Bán nhà Quận 1", "Quận 1, TP.HCM"),
		},
		errs: map[string]error{
			"https://example.com/bad":   errors.New("boom"),
			"https://example.com/empty": extract.ErrNoStructure,
		},
	}
	store := &fakeStore{}
	o := newTestOrchestrator(t, handler, store)

	if err := o.RunSite(context.Background(), "test"); err != nil {
		t.Fatalf("RunSite: %v", err)
	}

	if len(store.upserted) != 2 {
		t.Fatalf("upserted %d records, want 2", len(store.upserted))
	}
	for _, rec := range store.upserted {
		if rec.UniqueID == "" {
			t.Errorf("record %s has no unique ID", rec.Link)
		}
		if rec.Bedrooms == nil {
			t.Errorf("record %s was not backfilled", rec.Link)
		}
	}

	run, err := o.ops.GetLastRun("test")
	if err != nil || run == nil {
		t.Fatalf("GetLastRun: %v", err)
	}
	if run.Status != models.RunStatusCompleted {
		t.Errorf("run status = %s, want completed", run.Status)
	}
	if run.URLsProcessed != 4 || run.ListingsKept != 2 || run.Skipped != 1 || run.ErrorsCount != 1 {
		t.Errorf("run counters = %d/%d/%d/%d, want 4/2/1/1",
			run.URLsProcessed, run.ListingsKept, run.Skipped, run.ErrorsCount)
	}
}

func TestRunSiteDedupesBeforePersist(t *testing.T) {
	// Same title+address on two URLs that resolve to the same listing
	// identity must upsert once.
	rec1 := detailRecord("https://example.com/same", "Bán nhà", "Quận 7")
	rec2 := detailRecord("https://example.com/same", "Bán nhà", "Quận 7")
	handler := &fakeHandler{
		urls: []string{"https://example.com/a", "https://example.com/b"},
		listings: map[string]*models.ListingRecord{
			"https://example.com/a": rec1,
			"https://example.com/b": rec2,
		},
	}
	store := &fakeStore{}
	o := newTestOrchestrator(t, handler, store)

	if err := o.RunSite(context.Background(), "test"); err != nil {
		t.Fatalf("RunSite: %v", err)
	}
	if len(store.upserted) != 1 {
		t.Fatalf("upserted %d records, want 1 after dedupe", len(store.upserted))
	}
}

func TestRunSiteMaxDetailedLimit(t *testing.T) {
	handler := &fakeHandler{
		listings: map[string]*models.ListingRecord{},
	}
	for i := 0; i < 5; i++ {
		url := fmt.Sprintf("https://example.com/nha-%d", i)
		handler.urls = append(handler.urls, url)
		handler.listings[url] = detailRecord(url, fmt.Sprintf("Nhà %d", i), "Quận 3")
	}
	store := &fakeStore{}
	o := newTestOrchestrator(t, handler, store)
	o.cfg.Scraper.MaxDetailed = 2

	if err := o.RunSite(context.Background(), "test"); err != nil {
		t.Fatalf("RunSite: %v", err)
	}
	if len(handler.fetched) != 2 {
		t.Fatalf("fetched %d detail pages, want 2", len(handler.fetched))
	}
}

func TestRunSiteUpsertFailure(t *testing.T) {
	handler := &fakeHandler{
		urls: []string{"https://example.com/nha-1"},
		listings: map[string]*models.ListingRecord{
			"https://example.com/nha-1": detailRecord("https://example.com/nha-1", "Bán nhà", "Quận 7"),
		},
	}
	store := &fakeStore{err: errors.New("mongo down")}
	o := newTestOrchestrator(t, handler, store)

	if err := o.RunSite(context.Background(), "test"); err == nil {
		t.Fatal("RunSite should fail when the store is down")
	}

	run, err := o.ops.GetLastRun("test")
	if err != nil || run == nil {
		t.Fatalf("GetLastRun: %v", err)
	}
	if run.Status != models.RunStatusFailed {
		t.Errorf("run status = %s, want failed", run.Status)
	}
}

func TestRunImportUpsertsWithoutFetching(t *testing.T) {
	handler := &fakeHandler{}
	store := &fakeStore{}
	o := newTestOrchestrator(t, handler, store)

	listings := []*models.ListingRecord{
		detailRecord("https://example.com/nha-1", "Nhà 1", "Quận 7"),
		{Link: ""},
		detailRecord("https://example.com/nha-1", "Nhà 1", "Quận 7"),
		detailRecord("https://example.com/nha-2", "Nhà 2", "Quận 1"),
	}
	path := filepath.Join(t.TempDir(), "export.json")
	if err := storage.WriteDataset(path, listings); err != nil {
		t.Fatalf("WriteDataset: %v", err)
	}

	if err := o.RunImport(context.Background(), path); err != nil {
		t.Fatalf("RunImport: %v", err)
	}

	if len(handler.fetched) != 0 {
		t.Errorf("import fetched %d pages, want none", len(handler.fetched))
	}
	if len(store.upserted) != 2 {
		t.Fatalf("upserted %d records, want 2 after link filter and dedupe", len(store.upserted))
	}
	for _, rec := range store.upserted {
		if rec.UniqueID == "" {
			t.Errorf("imported record %s has no unique ID", rec.Link)
		}
	}
}

func TestRunImportMissingFile(t *testing.T) {
	o := newTestOrchestrator(t, &fakeHandler{}, &fakeStore{})
	if err := o.RunImport(context.Background(), filepath.Join(t.TempDir(), "absent.json")); err == nil {
		t.Fatal("expected error for missing dataset file")
	}
}

type cancelingHandler struct {
	*fakeHandler
	cancel context.CancelFunc
}

func (c *cancelingHandler) FetchListing(ctx context.Context, url string) (*models.ListingRecord, error) {
	rec, err := c.fakeHandler.FetchListing(ctx, url)
	c.cancel()
	return rec, err
}

func TestRunSiteStopsOnCancel(t *testing.T) {
	inner := &fakeHandler{
		urls: []string{"https://example.com/nha-1", "https://example.com/nha-2"},
		listings: map[string]*models.ListingRecord{
			"https://example.com/nha-1": detailRecord("https://example.com/nha-1", "Nhà 1", "Quận 7"),
			"https://example.com/nha-2": detailRecord("https://example.com/nha-2", "Nhà 2", "Quận 7"),
		},
	}
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	handler := &cancelingHandler{fakeHandler: inner, cancel: cancel}
	store := &fakeStore{}
	o := newTestOrchestrator(t, handler, store)

	if err := o.RunSite(ctx, "test"); err != nil {
		t.Fatalf("RunSite: %v", err)
	}
	if len(inner.fetched) != 1 {
		t.Fatalf("fetched %d listings after cancel, want 1", len(inner.fetched))
	}
}

func TestPauseSkipsRuns(t *testing.T) {
	handler := &fakeHandler{urls: []string{"https://example.com/nha-1"}}
	store := &fakeStore{}
	o := newTestOrchestrator(t, handler, store)

	o.Pause()
	if err := o.RunAll(context.Background()); err != nil {
		t.Fatalf("RunAll: %v", err)
	}
	if len(handler.fetched) != 0 {
		t.Error("paused orchestrator still fetched listings")
	}
}
