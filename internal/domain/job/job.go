package job

import (
	"time"

	"github.com/google/uuid"

	"github.com/CarsonReik/Compr-sub000/internal/domain/listing"
	"github.com/CarsonReik/Compr-sub000/internal/domain/platform"
	"github.com/CarsonReik/Compr-sub000/internal/domain/shared"
)

// Job is one marketplace operation for one listing on one platform. Jobs are
// claimed atomically, executed by at most one worker at a time, and settle in
// completed, failed or pending_verification.
type Job struct {
	shared.BaseAggregateRoot
	ListingID            uuid.UUID
	UserID               uuid.UUID
	Platform             platform.Code
	Operation            Operation
	Listing              listing.Normalized
	EncryptedCredentials string

	Status       Status
	ErrorKind    platform.FailureKind // last failure classification, if any
	ErrorMessage string

	Attempt       int // executions started, including the current one
	MaxAttempts   int
	AuthFailures  int // authentication failures seen across attempts
	ElementMisses int // element_not_found failures seen across attempts

	NextRunAt *time.Time // earliest time the queue may hand the job out again
	ClaimedBy string     // worker holding the job while processing

	PlatformListingID string // filled on successful create
	PlatformURL       string
	Warnings          []string // non-fatal problems from the last attempt

	StartedAt   *time.Time
	CompletedAt *time.Time
}

// DefaultMaxAttempts bounds executions of a single job across all retryable
// failure kinds.
const DefaultMaxAttempts = 4

// New creates a queued job. A zero id means the engine assigns one;
// upstream systems that pre-allocate job ids pass them through.
func New(
	id uuid.UUID,
	listingID uuid.UUID,
	userID uuid.UUID,
	code platform.Code,
	op Operation,
	item listing.Normalized,
	encryptedCredentials string,
) (*Job, error) {
	if listingID == uuid.Nil {
		return nil, shared.NewDomainError("INVALID_LISTING_ID", "Listing ID cannot be empty")
	}
	if userID == uuid.Nil {
		return nil, shared.NewDomainError("INVALID_USER_ID", "User ID cannot be empty")
	}
	if !code.IsValid() {
		return nil, shared.NewDomainError("INVALID_PLATFORM", "Unknown platform: "+code.String())
	}
	if !op.IsValid() {
		return nil, shared.NewDomainError("INVALID_OPERATION", "Unknown operation: "+op.String())
	}
	if encryptedCredentials == "" {
		return nil, shared.NewDomainError("INVALID_CREDENTIALS", "Encrypted credentials cannot be empty")
	}
	if op == OperationCreate {
		if err := item.Validate(); err != nil {
			return nil, shared.NewDomainError("INVALID_LISTING", err.Error())
		}
	}

	root := shared.NewBaseAggregateRoot()
	if id != uuid.Nil {
		root = shared.NewBaseAggregateRootWithID(id)
	}

	j := &Job{
		BaseAggregateRoot:    root,
		ListingID:            listingID,
		UserID:               userID,
		Platform:             code,
		Operation:            op,
		Listing:              item,
		EncryptedCredentials: encryptedCredentials,
		Status:               StatusQueued,
		MaxAttempts:          DefaultMaxAttempts,
	}

	j.AddDomainEvent(NewJobQueuedEvent(j))

	return j, nil
}

// Start marks the job as claimed by a worker and begins an attempt
func (j *Job) Start(workerID string) error {
	if !j.Status.CanTransitionTo(StatusProcessing) {
		return shared.NewDomainError("INVALID_STATE",
			"Cannot start processing from status: "+j.Status.String())
	}

	oldStatus := j.Status
	now := time.Now()
	j.Status = StatusProcessing
	j.ClaimedBy = workerID
	j.Attempt++
	j.StartedAt = &now
	j.NextRunAt = nil
	j.Warnings = nil
	j.UpdatedAt = now
	j.IncrementVersion()

	j.AddDomainEvent(NewJobStatusChangedEvent(j, oldStatus, StatusProcessing))

	return nil
}

// Complete marks the job as successfully finished. For create operations the
// platform's identifiers are recorded on the job.
func (j *Job) Complete(platformListingID, platformURL string, warnings []string) error {
	if !j.Status.CanTransitionTo(StatusCompleted) {
		return shared.NewDomainError("INVALID_STATE",
			"Cannot complete from status: "+j.Status.String())
	}

	oldStatus := j.Status
	now := time.Now()
	j.Status = StatusCompleted
	j.PlatformListingID = platformListingID
	j.PlatformURL = platformURL
	j.Warnings = warnings
	j.ErrorKind = ""
	j.ErrorMessage = ""
	j.ClaimedBy = ""
	j.CompletedAt = &now
	j.UpdatedAt = now
	j.IncrementVersion()

	j.AddDomainEvent(NewJobStatusChangedEvent(j, oldStatus, StatusCompleted))
	j.AddDomainEvent(NewJobCompletedEvent(j))

	return nil
}

// Fail marks the job as terminally failed
func (j *Job) Fail(kind platform.FailureKind, message string) error {
	if j.Status.IsTerminal() {
		return shared.NewDomainError("INVALID_STATE",
			"Cannot fail a job that is already in terminal status: "+j.Status.String())
	}

	oldStatus := j.Status
	j.Status = StatusFailed
	j.ErrorKind = kind
	j.ErrorMessage = message
	j.ClaimedBy = ""
	now := time.Now()
	j.CompletedAt = &now
	j.UpdatedAt = now
	j.IncrementVersion()

	j.AddDomainEvent(NewJobStatusChangedEvent(j, oldStatus, StatusFailed))
	j.AddDomainEvent(NewJobFailedEvent(j))

	return nil
}

// Park suspends the job until a human completes the platform's challenge.
// Parked jobs are deliberately not terminal and never retried by the engine
// on its own.
func (j *Job) Park(message string) error {
	if !j.Status.CanTransitionTo(StatusPendingVerification) {
		return shared.NewDomainError("INVALID_STATE",
			"Cannot park from status: "+j.Status.String())
	}

	oldStatus := j.Status
	j.Status = StatusPendingVerification
	j.ErrorKind = platform.FailureVerification
	j.ErrorMessage = message
	j.ClaimedBy = ""
	j.UpdatedAt = time.Now()
	j.IncrementVersion()

	j.AddDomainEvent(NewJobStatusChangedEvent(j, oldStatus, StatusPendingVerification))
	j.AddDomainEvent(NewJobParkedEvent(j))

	return nil
}

// ScheduleRetry returns the job to the queue, to be handed out no earlier
// than nextRunAt
func (j *Job) ScheduleRetry(kind platform.FailureKind, message string, nextRunAt time.Time) error {
	if !j.Status.CanTransitionTo(StatusQueued) {
		return shared.NewDomainError("INVALID_STATE",
			"Cannot requeue from status: "+j.Status.String())
	}

	oldStatus := j.Status
	j.Status = StatusQueued
	j.ErrorKind = kind
	j.ErrorMessage = message
	j.ClaimedBy = ""
	j.NextRunAt = &nextRunAt
	j.UpdatedAt = time.Now()
	j.IncrementVersion()

	j.AddDomainEvent(NewJobStatusChangedEvent(j, oldStatus, StatusQueued))

	return nil
}

// Resume puts a parked job back on the queue after the caller reports the
// verification challenge as completed. The authentication budget resets;
// the challenge was resolved out of band, so the next login starts clean.
func (j *Job) Resume() error {
	if j.Status != StatusPendingVerification {
		return ErrNotResumable
	}

	oldStatus := j.Status
	now := time.Now()
	j.Status = StatusQueued
	j.ErrorKind = ""
	j.ErrorMessage = ""
	j.AuthFailures = 0
	j.NextRunAt = &now
	j.UpdatedAt = now
	j.IncrementVersion()

	j.AddDomainEvent(NewJobStatusChangedEvent(j, oldStatus, StatusQueued))
	j.AddDomainEvent(NewJobResumedEvent(j))

	return nil
}

// NoteFailure records a classified failure against the job's per-kind
// budgets without changing status. The dispatcher decides afterwards whether
// the job retries, parks or fails.
func (j *Job) NoteFailure(kind platform.FailureKind, message string) {
	j.ErrorKind = kind
	j.ErrorMessage = message
	switch kind {
	case platform.FailureAuthentication:
		j.AuthFailures++
	case platform.FailureElementNotFound:
		j.ElementMisses++
	}
	j.UpdatedAt = time.Now()
}

// AttemptsExhausted returns true when no further executions are allowed
func (j *Job) AttemptsExhausted() bool {
	return j.Attempt >= j.MaxAttempts
}

// IsTerminal returns true if the job is in a terminal state
func (j *Job) IsTerminal() bool {
	return j.Status.IsTerminal()
}

// IsParked returns true if the job awaits human verification
func (j *Job) IsParked() bool {
	return j.Status == StatusPendingVerification
}
