package crosslist

import (
	"context"
	"fmt"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/CarsonReik/Compr-sub000/internal/domain/job"
	"github.com/CarsonReik/Compr-sub000/internal/domain/listing"
	"github.com/CarsonReik/Compr-sub000/internal/domain/platform"
	"github.com/CarsonReik/Compr-sub000/internal/domain/shared"
)

// EnqueueRequest is the inbound job payload from the host application.
// JobID is optional; when absent the engine assigns one.
type EnqueueRequest struct {
	JobID                uuid.UUID
	UserID               uuid.UUID
	ListingID            uuid.UUID
	Platform             platform.Code
	Operation            job.Operation
	Listing              listing.Normalized
	EncryptedCredentials string
}

// Service is the caller-facing surface of the crosslisting engine. It accepts
// jobs, answers status queries and resumes parked jobs; execution itself is
// the dispatcher's business.
type Service struct {
	queue    job.Queue
	listings platform.PlatformListingRepository
	registry platform.Registry
	bus      shared.EventPublisher
	logger   *zap.Logger
}

// NewService creates a new crosslisting service
func NewService(
	queue job.Queue,
	listings platform.PlatformListingRepository,
	registry platform.Registry,
	bus shared.EventPublisher,
	logger *zap.Logger,
) *Service {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Service{
		queue:    queue,
		listings: listings,
		registry: registry,
		bus:      bus,
		logger:   logger.Named("crosslist"),
	}
}

// Enqueue validates the payload and places a new job on the queue. Delete
// jobs are resolved against the platform listing record here, so a delete for
// a listing that was never published fails fast instead of spending a browser
// attempt on it.
func (s *Service) Enqueue(ctx context.Context, req EnqueueRequest) (*job.Job, error) {
	if _, err := s.registry.Get(req.Platform); err != nil {
		return nil, shared.NewDomainError("INVALID_PLATFORM",
			fmt.Sprintf("Platform %q is not supported", req.Platform))
	}

	j, err := job.New(req.JobID, req.ListingID, req.UserID, req.Platform,
		req.Operation, req.Listing, req.EncryptedCredentials)
	if err != nil {
		return nil, err
	}

	if req.Operation == job.OperationDelete {
		link, err := s.listings.Find(ctx, req.ListingID, req.Platform)
		if err != nil {
			return nil, err
		}
		if link.Status == platform.ListingStatusDeleted {
			return nil, shared.NewDomainError("ALREADY_DELETED",
				"Listing is already removed from "+req.Platform.DisplayName())
		}
		j.PlatformListingID = link.PlatformListingID
		j.PlatformURL = link.PlatformURL
	}

	if err := s.queue.Enqueue(ctx, j); err != nil {
		return nil, err
	}

	s.publishEvents(ctx, j)
	s.logger.Info("job enqueued",
		zap.String("job_id", j.ID.String()),
		zap.String("listing_id", j.ListingID.String()),
		zap.String("platform", j.Platform.String()),
		zap.String("operation", j.Operation.String()),
	)
	return j, nil
}

// Get returns the job in its current state
func (s *Service) Get(ctx context.Context, jobID uuid.UUID) (*job.Job, error) {
	return s.queue.FindByID(ctx, jobID)
}

// Result returns the typed outcome view of a job. Callers polling for
// completion read Success plus the platform identifiers or the error.
func (s *Service) Result(ctx context.Context, jobID uuid.UUID) (job.Result, error) {
	j, err := s.queue.FindByID(ctx, jobID)
	if err != nil {
		return job.Result{}, err
	}
	return job.ResultFor(j), nil
}

// Resume requeues a job parked for verification. This is the explicit,
// caller-triggered step after the seller completes the platform's challenge;
// whether the challenge is actually cleared is confirmed by the session
// validation of the next attempt, not here.
func (s *Service) Resume(ctx context.Context, jobID uuid.UUID) (*job.Job, error) {
	j, err := s.queue.FindByID(ctx, jobID)
	if err != nil {
		return nil, err
	}
	if err := j.Resume(); err != nil {
		return nil, err
	}
	if err := s.queue.Save(ctx, j); err != nil {
		return nil, err
	}

	s.publishEvents(ctx, j)
	s.logger.Info("parked job resumed",
		zap.String("job_id", j.ID.String()),
		zap.String("platform", j.Platform.String()),
	)
	return j, nil
}

// JobsForListing returns all jobs recorded for a listing, ordered per the
// filter (newest first by default)
func (s *Service) JobsForListing(ctx context.Context, listingID uuid.UUID, filter job.ListFilter) ([]*job.Job, error) {
	return s.queue.FindByListing(ctx, listingID, filter)
}

// PlatformListings returns where the listing currently lives across platforms
func (s *Service) PlatformListings(ctx context.Context, listingID uuid.UUID) ([]*platform.PlatformListing, error) {
	return s.listings.FindByListing(ctx, listingID)
}

// QueueStats returns job counts grouped by status
func (s *Service) QueueStats(ctx context.Context) (map[job.Status]int64, error) {
	return s.queue.CountByStatus(ctx)
}

// Platforms returns the codes of all registered marketplace adapters
func (s *Service) Platforms() []platform.Code {
	return s.registry.Codes()
}

// publishEvents drains the aggregate's domain events onto the bus. Event
// delivery is best-effort; the persisted job state is the source of truth.
func (s *Service) publishEvents(ctx context.Context, j *job.Job) {
	if s.bus == nil {
		return
	}
	events := j.GetDomainEvents()
	if len(events) == 0 {
		return
	}
	if err := s.bus.Publish(ctx, events...); err != nil {
		s.logger.Warn("failed to publish job events", zap.Error(err))
	}
	j.ClearDomainEvents()
}
