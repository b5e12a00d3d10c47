package models

import (
	"time"

	"github.com/google/uuid"
)

type RunStatus string

const (
	RunStatusRunning   RunStatus = "running"
	RunStatusCompleted RunStatus = "completed"
	RunStatusFailed    RunStatus = "failed"
)

// ScrapeRun is one execution of the pipeline against a site, recorded in
// the local ops database.
type ScrapeRun struct {
	ID            int64      `json:"id" db:"id"`
	RunUID        string     `json:"run_uid" db:"run_uid"`
	SiteID        string     `json:"site_id" db:"site_id"`
	StartedAt     time.Time  `json:"started_at" db:"started_at"`
	FinishedAt    *time.Time `json:"finished_at" db:"finished_at"`
	Status        RunStatus  `json:"status" db:"status"`
	URLsProcessed int        `json:"urls_processed" db:"urls_processed"`
	ListingsFound int        `json:"listings_found" db:"listings_found"`
	ListingsKept  int        `json:"listings_kept" db:"listings_kept"`
	Skipped       int        `json:"skipped" db:"skipped"`
	ErrorsCount   int        `json:"errors_count" db:"errors_count"`
}

// NewScrapeRun starts a run record for the given site.
func NewScrapeRun(siteID string) *ScrapeRun {
	return &ScrapeRun{
		RunUID:    uuid.NewString(),
		SiteID:    siteID,
		StartedAt: time.Now(),
		Status:    RunStatusRunning,
	}
}

type LogLevel string

const (
	LogLevelInfo  LogLevel = "info"
	LogLevelWarn  LogLevel = "warn"
	LogLevelError LogLevel = "error"
)

type ScrapeLog struct {
	ID        int64     `json:"id" db:"id"`
	RunID     *int64    `json:"run_id" db:"run_id"`
	Timestamp time.Time `json:"timestamp" db:"timestamp"`
	Level     LogLevel  `json:"level" db:"level"`
	Message   string    `json:"message" db:"message"`
	SiteID    string    `json:"site_id" db:"site_id"`
}
