package models

import (
	"time"

	"github.com/CarsonReik/Compr-sub000/internal/domain/platform"
	"github.com/google/uuid"
)

// PlatformListingModel is the GORM model for the platform_listings table
type PlatformListingModel struct {
	ID                uuid.UUID `gorm:"type:uuid;primary_key"`
	ListingID         uuid.UUID `gorm:"column:listing_id;type:uuid;not null;uniqueIndex:uq_platform_listings_pair"`
	UserID            uuid.UUID `gorm:"column:user_id;type:uuid;not null;index"`
	Platform          string    `gorm:"type:varchar(32);not null;uniqueIndex:uq_platform_listings_pair"`
	PlatformListingID string    `gorm:"column:platform_listing_id;type:varchar(128);not null"`
	PlatformURL       string    `gorm:"column:platform_url;type:text"`
	Status            string    `gorm:"type:varchar(16);not null"`
	LastSyncedAt      time.Time `gorm:"column:last_synced_at;not null"`
	CreatedAt         time.Time `gorm:"not null"`
	UpdatedAt         time.Time `gorm:"not null"`
}

// TableName returns the table name for PlatformListingModel
func (PlatformListingModel) TableName() string {
	return "platform_listings"
}

// ToDomain converts PlatformListingModel to a domain PlatformListing
func (m *PlatformListingModel) ToDomain() *platform.PlatformListing {
	return &platform.PlatformListing{
		ID:                m.ID,
		ListingID:         m.ListingID,
		UserID:            m.UserID,
		Platform:          platform.Code(m.Platform),
		PlatformListingID: m.PlatformListingID,
		PlatformURL:       m.PlatformURL,
		Status:            platform.ListingStatus(m.Status),
		LastSyncedAt:      m.LastSyncedAt,
		CreatedAt:         m.CreatedAt,
		UpdatedAt:         m.UpdatedAt,
	}
}

// PlatformListingModelFromDomain creates a PlatformListingModel from a domain PlatformListing
func PlatformListingModelFromDomain(pl *platform.PlatformListing) *PlatformListingModel {
	return &PlatformListingModel{
		ID:                pl.ID,
		ListingID:         pl.ListingID,
		UserID:            pl.UserID,
		Platform:          string(pl.Platform),
		PlatformListingID: pl.PlatformListingID,
		PlatformURL:       pl.PlatformURL,
		Status:            string(pl.Status),
		LastSyncedAt:      pl.LastSyncedAt,
		CreatedAt:         pl.CreatedAt,
		UpdatedAt:         pl.UpdatedAt,
	}
}
