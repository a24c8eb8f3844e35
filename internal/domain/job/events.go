package job

import (
	"github.com/CarsonReik/Compr-sub000/internal/domain/platform"
	"github.com/CarsonReik/Compr-sub000/internal/domain/shared"
	"github.com/google/uuid"
)

// AggregateTypeJob is the aggregate type for crosslisting jobs
const AggregateTypeJob = "CrosslistJob"

// Event type constants
const (
	EventTypeJobQueued        = "CrosslistJobQueued"
	EventTypeJobStatusChanged = "CrosslistJobStatusChanged"
	EventTypeJobCompleted     = "CrosslistJobCompleted"
	EventTypeJobFailed        = "CrosslistJobFailed"
	EventTypeJobParked        = "CrosslistJobParked"
	EventTypeJobResumed       = "CrosslistJobResumed"
)

// JobQueuedEvent is published when a job enters the queue
type JobQueuedEvent struct {
	shared.BaseDomainEvent
	JobID     uuid.UUID     `json:"job_id"`
	ListingID uuid.UUID     `json:"listing_id"`
	Platform  platform.Code `json:"platform"`
	Operation Operation     `json:"operation"`
}

// NewJobQueuedEvent creates a new JobQueuedEvent
func NewJobQueuedEvent(j *Job) *JobQueuedEvent {
	return &JobQueuedEvent{
		BaseDomainEvent: shared.NewBaseDomainEvent(EventTypeJobQueued, AggregateTypeJob, j.ID, j.UserID),
		JobID:           j.ID,
		ListingID:       j.ListingID,
		Platform:        j.Platform,
		Operation:       j.Operation,
	}
}

// JobStatusChangedEvent is published on every status transition
type JobStatusChangedEvent struct {
	shared.BaseDomainEvent
	JobID     uuid.UUID     `json:"job_id"`
	ListingID uuid.UUID     `json:"listing_id"`
	Platform  platform.Code `json:"platform"`
	Operation Operation     `json:"operation"`
	OldStatus Status        `json:"old_status"`
	NewStatus Status        `json:"new_status"`
	Attempt   int           `json:"attempt"`
}

// NewJobStatusChangedEvent creates a new JobStatusChangedEvent
func NewJobStatusChangedEvent(j *Job, oldStatus, newStatus Status) *JobStatusChangedEvent {
	return &JobStatusChangedEvent{
		BaseDomainEvent: shared.NewBaseDomainEvent(EventTypeJobStatusChanged, AggregateTypeJob, j.ID, j.UserID),
		JobID:           j.ID,
		ListingID:       j.ListingID,
		Platform:        j.Platform,
		Operation:       j.Operation,
		OldStatus:       oldStatus,
		NewStatus:       newStatus,
		Attempt:         j.Attempt,
	}
}

// JobCompletedEvent is published when a job finishes successfully
type JobCompletedEvent struct {
	shared.BaseDomainEvent
	JobID             uuid.UUID     `json:"job_id"`
	ListingID         uuid.UUID     `json:"listing_id"`
	Platform          platform.Code `json:"platform"`
	Operation         Operation     `json:"operation"`
	PlatformListingID string        `json:"platform_listing_id,omitempty"`
	PlatformURL       string        `json:"platform_url,omitempty"`
	Warnings          []string      `json:"warnings,omitempty"`
}

// NewJobCompletedEvent creates a new JobCompletedEvent
func NewJobCompletedEvent(j *Job) *JobCompletedEvent {
	return &JobCompletedEvent{
		BaseDomainEvent:   shared.NewBaseDomainEvent(EventTypeJobCompleted, AggregateTypeJob, j.ID, j.UserID),
		JobID:             j.ID,
		ListingID:         j.ListingID,
		Platform:          j.Platform,
		Operation:         j.Operation,
		PlatformListingID: j.PlatformListingID,
		PlatformURL:       j.PlatformURL,
		Warnings:          j.Warnings,
	}
}

// JobFailedEvent is published when a job ends without success
type JobFailedEvent struct {
	shared.BaseDomainEvent
	JobID        uuid.UUID            `json:"job_id"`
	ListingID    uuid.UUID            `json:"listing_id"`
	Platform     platform.Code        `json:"platform"`
	Operation    Operation            `json:"operation"`
	ErrorKind    platform.FailureKind `json:"error_kind"`
	ErrorMessage string               `json:"error_message"`
	Attempt      int                  `json:"attempt"`
}

// NewJobFailedEvent creates a new JobFailedEvent
func NewJobFailedEvent(j *Job) *JobFailedEvent {
	return &JobFailedEvent{
		BaseDomainEvent: shared.NewBaseDomainEvent(EventTypeJobFailed, AggregateTypeJob, j.ID, j.UserID),
		JobID:           j.ID,
		ListingID:       j.ListingID,
		Platform:        j.Platform,
		Operation:       j.Operation,
		ErrorKind:       j.ErrorKind,
		ErrorMessage:    j.ErrorMessage,
		Attempt:         j.Attempt,
	}
}

// JobParkedEvent is published when a job is suspended for human verification
type JobParkedEvent struct {
	shared.BaseDomainEvent
	JobID        uuid.UUID     `json:"job_id"`
	ListingID    uuid.UUID     `json:"listing_id"`
	Platform     platform.Code `json:"platform"`
	ErrorMessage string        `json:"error_message"`
}

// NewJobParkedEvent creates a new JobParkedEvent
func NewJobParkedEvent(j *Job) *JobParkedEvent {
	return &JobParkedEvent{
		BaseDomainEvent: shared.NewBaseDomainEvent(EventTypeJobParked, AggregateTypeJob, j.ID, j.UserID),
		JobID:           j.ID,
		ListingID:       j.ListingID,
		Platform:        j.Platform,
		ErrorMessage:    j.ErrorMessage,
	}
}

// JobResumedEvent is published when a parked job returns to the queue
type JobResumedEvent struct {
	shared.BaseDomainEvent
	JobID    uuid.UUID     `json:"job_id"`
	Platform platform.Code `json:"platform"`
}

// NewJobResumedEvent creates a new JobResumedEvent
func NewJobResumedEvent(j *Job) *JobResumedEvent {
	return &JobResumedEvent{
		BaseDomainEvent: shared.NewBaseDomainEvent(EventTypeJobResumed, AggregateTypeJob, j.ID, j.UserID),
		JobID:           j.ID,
		Platform:        j.Platform,
	}
}
