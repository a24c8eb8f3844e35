package crosslist

import (
	"context"

	"go.uber.org/zap"

	"github.com/CarsonReik/Compr-sub000/internal/domain/job"
	"github.com/CarsonReik/Compr-sub000/internal/domain/platform"
	"github.com/CarsonReik/Compr-sub000/internal/domain/shared"
)

// Reporter reacts to job lifecycle transitions reported by the dispatcher.
// It owns the platform listing records: a completed create upserts the row,
// a completed delete marks it deleted. Adapters never touch these records.
type Reporter struct {
	listings platform.PlatformListingRepository
	bus      shared.EventPublisher
	logger   *zap.Logger
}

// NewReporter creates a new Reporter
func NewReporter(listings platform.PlatformListingRepository, bus shared.EventPublisher, logger *zap.Logger) *Reporter {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Reporter{
		listings: listings,
		bus:      bus,
		logger:   logger.Named("crosslist.reporter"),
	}
}

// JobStarted publishes the processing transition
func (r *Reporter) JobStarted(ctx context.Context, j *job.Job) {
	r.publishEvents(ctx, j)
}

// JobFinished records the settled outcome. The queue has already persisted
// the job itself; what remains is the listing record and the event stream.
func (r *Reporter) JobFinished(ctx context.Context, j *job.Job) {
	if j.Status == job.StatusCompleted {
		r.syncListing(ctx, j)
	}
	r.publishEvents(ctx, j)
}

// syncListing upserts the platform listing record for a completed job
func (r *Reporter) syncListing(ctx context.Context, j *job.Job) {
	switch j.Operation {
	case job.OperationCreate:
		pl := platform.NewPlatformListing(j.ListingID, j.UserID, j.Platform,
			j.PlatformListingID, j.PlatformURL)
		if err := r.listings.Upsert(ctx, pl); err != nil {
			r.logger.Error("failed to upsert platform listing",
				zap.String("job_id", j.ID.String()),
				zap.String("listing_id", j.ListingID.String()),
				zap.String("platform", j.Platform.String()),
				zap.Error(err),
			)
		}

	case job.OperationDelete:
		pl, err := r.listings.Find(ctx, j.ListingID, j.Platform)
		if err != nil {
			// A delete that completed without a record is harmless; the
			// listing is gone either way.
			r.logger.Warn("no platform listing record for completed delete",
				zap.String("job_id", j.ID.String()),
				zap.String("listing_id", j.ListingID.String()),
				zap.String("platform", j.Platform.String()),
				zap.Error(err),
			)
			return
		}
		pl.MarkDeleted()
		if err := r.listings.Upsert(ctx, pl); err != nil {
			r.logger.Error("failed to mark platform listing deleted",
				zap.String("job_id", j.ID.String()),
				zap.String("listing_id", j.ListingID.String()),
				zap.String("platform", j.Platform.String()),
				zap.Error(err),
			)
		}
	}
}

func (r *Reporter) publishEvents(ctx context.Context, j *job.Job) {
	if r.bus == nil {
		return
	}
	events := j.GetDomainEvents()
	if len(events) == 0 {
		return
	}
	if err := r.bus.Publish(ctx, events...); err != nil {
		r.logger.Warn("failed to publish job events", zap.Error(err))
	}
	j.ClearDomainEvents()
}
