package platform

import (
	"context"
	"time"

	"github.com/google/uuid"
)

// ListingStatus represents the state of a listing's presence on a platform
type ListingStatus string

const (
	// ListingStatusActive means the listing is live on the platform
	ListingStatusActive ListingStatus = "active"
	// ListingStatusDeleted means the listing was removed from the platform
	ListingStatusDeleted ListingStatus = "deleted"
)

// IsValid checks if the ListingStatus is a valid value
func (s ListingStatus) IsValid() bool {
	return s == ListingStatusActive || s == ListingStatusDeleted
}

// String returns the string representation of ListingStatus
func (s ListingStatus) String() string {
	return string(s)
}

// PlatformListing records where a seller's listing lives on one platform.
// One row exists per (listing, platform) pair regardless of how many jobs
// ran against it; repeated completions update the same row.
type PlatformListing struct {
	ID                uuid.UUID
	ListingID         uuid.UUID
	UserID            uuid.UUID
	Platform          Code
	PlatformListingID string
	PlatformURL       string
	Status            ListingStatus
	LastSyncedAt      time.Time
	CreatedAt         time.Time
	UpdatedAt         time.Time
}

// NewPlatformListing creates an active platform listing record
func NewPlatformListing(listingID, userID uuid.UUID, code Code, platformListingID, platformURL string) *PlatformListing {
	now := time.Now()
	return &PlatformListing{
		ID:                uuid.New(),
		ListingID:         listingID,
		UserID:            userID,
		Platform:          code,
		PlatformListingID: platformListingID,
		PlatformURL:       platformURL,
		Status:            ListingStatusActive,
		LastSyncedAt:      now,
		CreatedAt:         now,
		UpdatedAt:         now,
	}
}

// MarkDeleted records that the platform no longer carries the listing
func (p *PlatformListing) MarkDeleted() {
	now := time.Now()
	p.Status = ListingStatusDeleted
	p.LastSyncedAt = now
	p.UpdatedAt = now
}

// PlatformListingRepository persists platform listing records
type PlatformListingRepository interface {
	// Upsert inserts or updates the record for (ListingID, Platform)
	Upsert(ctx context.Context, pl *PlatformListing) error
	// Find returns the record for the pair or ErrListingLinkMissing
	Find(ctx context.Context, listingID uuid.UUID, code Code) (*PlatformListing, error)
	// FindByListing returns all platform records for a listing
	FindByListing(ctx context.Context, listingID uuid.UUID) ([]*PlatformListing, error)
}
