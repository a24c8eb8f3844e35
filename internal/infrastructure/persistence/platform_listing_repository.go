package persistence

import (
	"context"
	"errors"

	"github.com/CarsonReik/Compr-sub000/internal/domain/platform"
	"github.com/CarsonReik/Compr-sub000/internal/infrastructure/persistence/models"
	"github.com/google/uuid"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// GormPlatformListingRepository implements platform.PlatformListingRepository using GORM
type GormPlatformListingRepository struct {
	db *gorm.DB
}

// NewGormPlatformListingRepository creates a new GormPlatformListingRepository
func NewGormPlatformListingRepository(db *gorm.DB) *GormPlatformListingRepository {
	return &GormPlatformListingRepository{db: db}
}

var _ platform.PlatformListingRepository = (*GormPlatformListingRepository)(nil)

// Upsert creates or updates the record for (listing_id, platform). Repeated
// completions against the same pair land on the same row.
func (r *GormPlatformListingRepository) Upsert(ctx context.Context, pl *platform.PlatformListing) error {
	model := models.PlatformListingModelFromDomain(pl)

	return r.db.WithContext(ctx).Clauses(clause.OnConflict{
		Columns: []clause.Column{{Name: "listing_id"}, {Name: "platform"}},
		DoUpdates: clause.AssignmentColumns([]string{
			"platform_listing_id",
			"platform_url",
			"status",
			"last_synced_at",
			"updated_at",
		}),
	}).Create(model).Error
}

// Find returns the record for the pair or platform.ErrListingLinkMissing
func (r *GormPlatformListingRepository) Find(ctx context.Context, listingID uuid.UUID, code platform.Code) (*platform.PlatformListing, error) {
	var model models.PlatformListingModel
	if err := r.db.WithContext(ctx).
		Where("listing_id = ? AND platform = ?", listingID, string(code)).
		First(&model).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, platform.ErrListingLinkMissing
		}
		return nil, err
	}
	return model.ToDomain(), nil
}

// FindByListing returns all platform records for a listing
func (r *GormPlatformListingRepository) FindByListing(ctx context.Context, listingID uuid.UUID) ([]*platform.PlatformListing, error) {
	var listingModels []models.PlatformListingModel
	if err := r.db.WithContext(ctx).
		Where("listing_id = ?", listingID).
		Order("platform ASC").
		Find(&listingModels).Error; err != nil {
		return nil, err
	}

	records := make([]*platform.PlatformListing, len(listingModels))
	for i := range listingModels {
		records[i] = listingModels[i].ToDomain()
	}
	return records, nil
}
