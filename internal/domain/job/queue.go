package job

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"

	"github.com/CarsonReik/Compr-sub000/internal/domain/platform"
)

// ---------------------------------------------------------------------------
// Queue Errors
// ---------------------------------------------------------------------------

var (
	ErrJobNotFound       = errors.New("job: job not found")
	ErrDuplicateJob      = errors.New("job: job with this ID already exists")
	ErrDuplicateInFlight = errors.New("job: listing already has an active job for this platform and operation")
	ErrNotResumable      = errors.New("job: only jobs awaiting verification can be resumed")
)

// ---------------------------------------------------------------------------
// Queue
// ---------------------------------------------------------------------------

// Queue is the durable job queue. Claim hands each queued job to exactly one
// worker even with many workers polling concurrently; a job claimed by one
// worker is invisible to the others until it is requeued or recovered.
type Queue interface {
	// Enqueue inserts a queued job. ErrDuplicateJob when the id is taken,
	// ErrDuplicateInFlight when a non-terminal job for the same
	// (listing, platform, operation) already exists.
	Enqueue(ctx context.Context, j *Job) error

	// Claim atomically takes the oldest due queued job, transitions it to
	// processing under workerID, and returns it. Returns (nil, nil) when
	// nothing is due.
	Claim(ctx context.Context, workerID string) (*Job, error)

	// Ack settles a claimed job as completed and persists the platform
	// identifiers and warnings already applied via Complete
	Ack(ctx context.Context, j *Job) error

	// Nack settles a failed execution: retryable requeues the job with
	// nextRunAt as its earliest restart, terminal moves it straight to
	// failed. The kind and message are recorded either way.
	Nack(ctx context.Context, j *Job, retryable bool, kind platform.FailureKind, message string, nextRunAt *time.Time) error

	// Park suspends a claimed job until a human clears the platform's
	// verification challenge. Parked jobs are only released by Resume.
	Park(ctx context.Context, j *Job, message string) error

	// Save persists the job's current state after a transition
	Save(ctx context.Context, j *Job) error

	// FindByID returns the job or ErrJobNotFound
	FindByID(ctx context.Context, id uuid.UUID) (*Job, error)

	// FindByListing returns a listing's jobs ordered per the filter,
	// newest first by default
	FindByListing(ctx context.Context, listingID uuid.UUID, filter ListFilter) ([]*Job, error)

	// CountByStatus returns job counts grouped by status
	CountByStatus(ctx context.Context) (map[Status]int64, error)

	// RecoverStale requeues jobs stuck in processing longer than olderThan,
	// without consuming an attempt. Returns the number recovered.
	RecoverStale(ctx context.Context, olderThan time.Duration) (int64, error)
}

// ---------------------------------------------------------------------------
// ListFilter
// ---------------------------------------------------------------------------

// ListFilter shapes job history queries. OrderBy is validated against a
// column whitelist by the store; unknown fields fall back to created_at.
type ListFilter struct {
	OrderBy  string
	OrderDir string
}

// ---------------------------------------------------------------------------
// Result
// ---------------------------------------------------------------------------

// Result is the outcome reported back to the host application when a job
// reaches a settled state
type Result struct {
	JobID             uuid.UUID            `json:"jobId"`
	Success           bool                 `json:"success"`
	ListingID         uuid.UUID            `json:"listingId"`
	Platform          platform.Code        `json:"platform"`
	Operation         Operation            `json:"operation"`
	Status            Status               `json:"status"`
	PlatformListingID string               `json:"platformListingId,omitempty"`
	PlatformURL       string               `json:"platformUrl,omitempty"`
	ErrorKind         platform.FailureKind `json:"errorKind,omitempty"`
	ErrorMessage      string               `json:"error,omitempty"`
	Warnings          []string             `json:"warnings,omitempty"`
}

// ResultFor builds the outcome view of a job in its current state
func ResultFor(j *Job) Result {
	return Result{
		JobID:             j.ID,
		Success:           j.Status == StatusCompleted,
		ListingID:         j.ListingID,
		Platform:          j.Platform,
		Operation:         j.Operation,
		Status:            j.Status,
		PlatformListingID: j.PlatformListingID,
		PlatformURL:       j.PlatformURL,
		ErrorKind:         j.ErrorKind,
		ErrorMessage:      j.ErrorMessage,
		Warnings:          j.Warnings,
	}
}
