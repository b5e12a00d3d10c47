package storage

import (
	"path/filepath"
	"testing"
	"time"

	"bds_scraper/models"
)

func newTestStore(t *testing.T) *SQLiteStore {
	t.Helper()
	store, err := NewSQLiteStore(filepath.Join(t.TempDir(), "ops.db"))
	if err != nil {
		t.Fatalf("open store: %v", err)
	}
	t.Cleanup(func() { store.Close() })
	return store
}

func TestRunLifecycle(t *testing.T) {
	store := newTestStore(t)

	run := models.NewScrapeRun("batdongsan")
	id, err := store.CreateRun(run)
	if err != nil {
		t.Fatalf("create run: %v", err)
	}
	if id == 0 || run.ID != id {
		t.Fatalf("run ID not assigned: id=%d run.ID=%d", id, run.ID)
	}

	finished := time.Now()
	run.FinishedAt = &finished
	run.Status = models.RunStatusCompleted
	run.URLsProcessed = 30
	run.ListingsFound = 28
	run.ListingsKept = 25
	run.Skipped = 2
	run.ErrorsCount = 1
	if err := store.UpdateRun(run); err != nil {
		t.Fatalf("update run: %v", err)
	}

	got, err := store.GetRun(id)
	if err != nil {
		t.Fatalf("get run: %v", err)
	}
	if got == nil {
		t.Fatal("run not found after update")
	}
	if got.Status != models.RunStatusCompleted {
		t.Fatalf("status = %s; want completed", got.Status)
	}
	if got.ListingsKept != 25 || got.Skipped != 2 {
		t.Fatalf("counters not persisted: %+v", got)
	}
	if got.FinishedAt == nil {
		t.Fatal("finished_at not persisted")
	}
	if got.RunUID != run.RunUID {
		t.Fatalf("run_uid = %s; want %s", got.RunUID, run.RunUID)
	}
}

func TestGetRunMissing(t *testing.T) {
	store := newTestStore(t)

	got, err := store.GetRun(999)
	if err != nil {
		t.Fatalf("get run: %v", err)
	}
	if got != nil {
		t.Fatalf("expected nil for missing run, got %+v", got)
	}
}

func TestGetLastRun(t *testing.T) {
	store := newTestStore(t)

	first := models.NewScrapeRun("batdongsan")
	first.StartedAt = time.Now().Add(-time.Hour)
	if _, err := store.CreateRun(first); err != nil {
		t.Fatal(err)
	}
	second := models.NewScrapeRun("batdongsan")
	if _, err := store.CreateRun(second); err != nil {
		t.Fatal(err)
	}

	got, err := store.GetLastRun("batdongsan")
	if err != nil {
		t.Fatalf("get last run: %v", err)
	}
	if got == nil || got.RunUID != second.RunUID {
		t.Fatalf("expected latest run %s, got %+v", second.RunUID, got)
	}

	other, err := store.GetLastRun("other-site")
	if err != nil {
		t.Fatal(err)
	}
	if other != nil {
		t.Fatalf("expected nil for unknown site, got %+v", other)
	}
}

func TestRunLogs(t *testing.T) {
	store := newTestStore(t)

	run := models.NewScrapeRun("batdongsan")
	id, err := store.CreateRun(run)
	if err != nil {
		t.Fatal(err)
	}

	if err := store.Log(&id, models.LogLevelInfo, "fetched 20 cards", "batdongsan"); err != nil {
		t.Fatalf("log: %v", err)
	}
	if err := store.Log(&id, models.LogLevelError, "detail fetch failed", "batdongsan"); err != nil {
		t.Fatalf("log: %v", err)
	}

	logs, err := store.GetLogsForRun(id)
	if err != nil {
		t.Fatalf("get logs: %v", err)
	}
	if len(logs) != 2 {
		t.Fatalf("expected 2 logs, got %d", len(logs))
	}
	if logs[0].Message != "fetched 20 cards" || logs[0].Level != models.LogLevelInfo {
		t.Fatalf("unexpected first log %+v", logs[0])
	}
}

func TestUpdateSiteStats(t *testing.T) {
	store := newTestStore(t)

	run := models.NewScrapeRun("batdongsan")
	if _, err := store.CreateRun(run); err != nil {
		t.Fatal(err)
	}
	finished := time.Now()
	run.FinishedAt = &finished
	run.Status = models.RunStatusCompleted
	run.ListingsKept = 10
	if err := store.UpdateRun(run); err != nil {
		t.Fatal(err)
	}

	if err := store.UpdateSiteStats("batdongsan"); err != nil {
		t.Fatalf("update site stats: %v", err)
	}
	// Second call exercises the upsert path.
	if err := store.UpdateSiteStats("batdongsan"); err != nil {
		t.Fatalf("update site stats again: %v", err)
	}
}
