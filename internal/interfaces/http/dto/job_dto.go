package dto

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/CarsonReik/Compr-sub000/internal/domain/job"
	"github.com/CarsonReik/Compr-sub000/internal/domain/listing"
	"github.com/CarsonReik/Compr-sub000/internal/domain/platform"
)

// ---------------------------------------------------------------------------
// Requests
// ---------------------------------------------------------------------------

// ImageRefRequest is one photo reference in an enqueue payload
type ImageRefRequest struct {
	URL         string `json:"url,omitempty"`
	Key         string `json:"key,omitempty"`
	Filename    string `json:"filename" binding:"required"`
	ContentType string `json:"contentType,omitempty"`
}

// NormalizedListingRequest mirrors the listing contract the host dashboard
// produces. Deep validation (positive price, condition vocabulary, image
// presence for creates) belongs to the domain; binding tags only reject
// payloads too malformed to build a listing from.
type NormalizedListingRequest struct {
	Title        string            `json:"title"`
	Description  string            `json:"description"`
	Price        decimal.Decimal   `json:"price"`
	Quantity     int               `json:"quantity"`
	Condition    string            `json:"condition"`
	Brand        string            `json:"brand,omitempty"`
	Size         string            `json:"size,omitempty"`
	Color        string            `json:"color,omitempty"`
	Images       []ImageRefRequest `json:"images"`
	CategoryPath []string          `json:"categoryPath,omitempty"`
	Tags         []string          `json:"tags,omitempty"`
	Overrides    map[string]string `json:"overrides,omitempty"`
}

// EnqueueJobRequest is the inbound job payload. jobId is optional; the
// engine assigns one when absent.
type EnqueueJobRequest struct {
	JobID                string                   `json:"jobId,omitempty" binding:"omitempty,uuid"`
	UserID               string                   `json:"userId" binding:"required,uuid"`
	ListingID            string                   `json:"listingId" binding:"required,uuid"`
	Platform             string                   `json:"platform" binding:"required,platformcode"`
	Operation            string                   `json:"operation" binding:"required,oneof=create delete"`
	Listing              NormalizedListingRequest `json:"normalizedListingData"`
	EncryptedCredentials string                   `json:"encryptedCredentials" binding:"required"`
}

// ToDomain converts the request into domain values. UUID fields are already
// format-checked by binding, so parse errors here are programming errors.
func (r *EnqueueJobRequest) ToDomain() (jobID, userID, listingID uuid.UUID, item listing.Normalized, err error) {
	if r.JobID != "" {
		if jobID, err = uuid.Parse(r.JobID); err != nil {
			return
		}
	}
	if userID, err = uuid.Parse(r.UserID); err != nil {
		return
	}
	if listingID, err = uuid.Parse(r.ListingID); err != nil {
		return
	}

	images := make([]listing.ImageRef, len(r.Listing.Images))
	for i, img := range r.Listing.Images {
		images[i] = listing.ImageRef{
			URL:         img.URL,
			Key:         img.Key,
			Filename:    img.Filename,
			ContentType: img.ContentType,
		}
	}
	item = listing.Normalized{
		Title:        r.Listing.Title,
		Description:  r.Listing.Description,
		Price:        r.Listing.Price,
		Quantity:     r.Listing.Quantity,
		Condition:    listing.Condition(r.Listing.Condition),
		Brand:        r.Listing.Brand,
		Size:         r.Listing.Size,
		Color:        r.Listing.Color,
		Images:       images,
		CategoryPath: r.Listing.CategoryPath,
		Tags:         r.Listing.Tags,
		Overrides:    r.Listing.Overrides,
	}
	return
}

// ---------------------------------------------------------------------------
// Responses
// ---------------------------------------------------------------------------

// JobResponse is the wire view of a job
type JobResponse struct {
	ID                string     `json:"id"`
	ListingID         string     `json:"listingId"`
	UserID            string     `json:"userId"`
	Platform          string     `json:"platform"`
	Operation         string     `json:"operation"`
	Status            string     `json:"status"`
	ErrorKind         string     `json:"errorKind,omitempty"`
	ErrorMessage      string     `json:"error,omitempty"`
	Attempt           int        `json:"attempt"`
	MaxAttempts       int        `json:"maxAttempts"`
	PlatformListingID string     `json:"platformListingId,omitempty"`
	PlatformURL       string     `json:"platformUrl,omitempty"`
	Warnings          []string   `json:"warnings,omitempty"`
	NextRunAt         *time.Time `json:"nextRunAt,omitempty"`
	CreatedAt         time.Time  `json:"createdAt"`
	StartedAt         *time.Time `json:"startedAt,omitempty"`
	CompletedAt       *time.Time `json:"completedAt,omitempty"`
}

// JobResponseFromDomain converts a domain job to its wire view
func JobResponseFromDomain(j *job.Job) JobResponse {
	return JobResponse{
		ID:                j.ID.String(),
		ListingID:         j.ListingID.String(),
		UserID:            j.UserID.String(),
		Platform:          j.Platform.String(),
		Operation:         j.Operation.String(),
		Status:            j.Status.String(),
		ErrorKind:         j.ErrorKind.String(),
		ErrorMessage:      j.ErrorMessage,
		Attempt:           j.Attempt,
		MaxAttempts:       j.MaxAttempts,
		PlatformListingID: j.PlatformListingID,
		PlatformURL:       j.PlatformURL,
		Warnings:          j.Warnings,
		NextRunAt:         j.NextRunAt,
		CreatedAt:         j.CreatedAt,
		StartedAt:         j.StartedAt,
		CompletedAt:       j.CompletedAt,
	}
}

// ResultResponse is the outbound result contract: {success, listingId,
// platform, platformListingId?, platformUrl?, error?}
type ResultResponse struct {
	JobID             string   `json:"jobId"`
	Success           bool     `json:"success"`
	ListingID         string   `json:"listingId"`
	Platform          string   `json:"platform"`
	Status            string   `json:"status"`
	PlatformListingID string   `json:"platformListingId,omitempty"`
	PlatformURL       string   `json:"platformUrl,omitempty"`
	ErrorKind         string   `json:"errorKind,omitempty"`
	Error             string   `json:"error,omitempty"`
	Warnings          []string `json:"warnings,omitempty"`
}

// ResultResponseFromDomain converts a job result to its wire view
func ResultResponseFromDomain(r job.Result) ResultResponse {
	return ResultResponse{
		JobID:             r.JobID.String(),
		Success:           r.Success,
		ListingID:         r.ListingID.String(),
		Platform:          r.Platform.String(),
		Status:            r.Status.String(),
		PlatformListingID: r.PlatformListingID,
		PlatformURL:       r.PlatformURL,
		ErrorKind:         r.ErrorKind.String(),
		Error:             r.ErrorMessage,
		Warnings:          r.Warnings,
	}
}

// PlatformListingResponse is the wire view of a listing's presence on one
// platform
type PlatformListingResponse struct {
	ListingID         string    `json:"listingId"`
	UserID            string    `json:"userId"`
	Platform          string    `json:"platform"`
	PlatformListingID string    `json:"platformListingId"`
	PlatformURL       string    `json:"platformUrl"`
	Status            string    `json:"status"`
	LastSyncedAt      time.Time `json:"lastSyncedAt"`
}

// PlatformListingResponseFromDomain converts a platform listing record
func PlatformListingResponseFromDomain(pl *platform.PlatformListing) PlatformListingResponse {
	return PlatformListingResponse{
		ListingID:         pl.ListingID.String(),
		UserID:            pl.UserID.String(),
		Platform:          pl.Platform.String(),
		PlatformListingID: pl.PlatformListingID,
		PlatformURL:       pl.PlatformURL,
		Status:            pl.Status.String(),
		LastSyncedAt:      pl.LastSyncedAt,
	}
}

// QueueStatsResponse reports job counts by status
type QueueStatsResponse struct {
	Counts map[string]int64 `json:"counts"`
}

// QueueStatsResponseFromDomain converts the status counts map
func QueueStatsResponseFromDomain(counts map[job.Status]int64) QueueStatsResponse {
	out := QueueStatsResponse{Counts: make(map[string]int64, len(counts))}
	for status, n := range counts {
		out.Counts[status.String()] = n
	}
	return out
}

// JobEventMessage is one websocket frame on the job event stream
type JobEventMessage struct {
	EventType string    `json:"eventType"`
	JobID     string    `json:"jobId"`
	Status    string    `json:"status,omitempty"`
	OldStatus string    `json:"oldStatus,omitempty"`
	Attempt   int       `json:"attempt,omitempty"`
	Timestamp time.Time `json:"timestamp"`
}
