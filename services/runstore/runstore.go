package runstore

import (
	"context"
	"errors"
	"time"
)

// RunStatus is the lifecycle state of a scraper run
type RunStatus string

const (
	StatusQueued    RunStatus = "queued"
	StatusRunning   RunStatus = "running"
	StatusSucceeded RunStatus = "succeeded"
	StatusFailed    RunStatus = "failed"
)

// ErrNotFound is returned when a run id is unknown
var ErrNotFound = errors.New("runstore: run not found")

// RunRecord is the persisted metadata of one scraper run
type RunRecord struct {
	ID            string    `json:"id"`
	Status        RunStatus `json:"status"`
	InputPath     string    `json:"input_path"`
	InputFilename string    `json:"input_filename"`
	Source        string    `json:"source"`
	Artifacts     Artifacts `json:"artifacts"`
	Error         string    `json:"error,omitempty"`
	CreatedAt     time.Time `json:"created_at"`
	UpdatedAt     time.Time `json:"updated_at"`
}

// Artifacts holds the output paths of a completed run
type Artifacts struct {
	OutputDir          string `json:"output_dir,omitempty"`
	CSVPath            string `json:"csv_path,omitempty"`
	SummaryPath        string `json:"summary_path,omitempty"`
	ImagesZipPath      string `json:"images_zip_path,omitempty"`
	ScreenshotsZipPath string `json:"screenshots_zip_path,omitempty"`
	ArchivePath        string `json:"archive_path,omitempty"`
}

// Store persists run lifecycle and artifact metadata
type Store interface {
	// CreateRun persists a new run in the queued state
	CreateRun(ctx context.Context, record *RunRecord) error

	// MarkRunning transitions a run to running
	MarkRunning(ctx context.Context, id string) error

	// MarkSucceeded transitions a run to succeeded with its artifacts
	MarkSucceeded(ctx context.Context, id string, artifacts Artifacts) error

	// MarkFailed transitions a run to failed with an error message
	MarkFailed(ctx context.Context, id string, errMsg string) error

	// GetRun retrieves a run by id
	GetRun(ctx context.Context, id string) (*RunRecord, error)

	// ListRuns returns the most recent runs, newest first
	ListRuns(ctx context.Context, limit int) ([]*RunRecord, error)

	// Close releases the store's resources
	Close() error
}
