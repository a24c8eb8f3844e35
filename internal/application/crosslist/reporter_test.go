package crosslist

import (
	"context"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/CarsonReik/Compr-sub000/internal/domain/job"
	"github.com/CarsonReik/Compr-sub000/internal/domain/platform"
)

func completedJob(t *testing.T, op job.Operation) *job.Job {
	t.Helper()
	item := validListing()
	j, err := job.New(uuid.Nil, uuid.New(), uuid.New(), platform.CodePoshmark, op, item, "blob")
	require.NoError(t, err)
	require.NoError(t, j.Start("w1"))
	j.ClearDomainEvents()
	return j
}

func TestReporterCompletedCreateUpsertsListing(t *testing.T) {
	listings := newMemListings()
	bus := &capturingBus{}
	rep := NewReporter(listings, bus, nil)

	j := completedJob(t, job.OperationCreate)
	require.NoError(t, j.Complete("abc123", "https://poshmark.com/listing/abc123", []string{"image 2 failed to upload"}))

	rep.JobFinished(context.Background(), j)

	pl, err := listings.Find(context.Background(), j.ListingID, platform.CodePoshmark)
	require.NoError(t, err)
	assert.Equal(t, "abc123", pl.PlatformListingID)
	assert.Contains(t, pl.PlatformURL, "abc123")
	assert.Equal(t, platform.ListingStatusActive, pl.Status)

	assert.Contains(t, bus.types(), job.EventTypeJobCompleted)
	assert.Empty(t, j.GetDomainEvents())
}

func TestReporterCompletedDeleteMarksDeleted(t *testing.T) {
	listings := newMemListings()
	rep := NewReporter(listings, &capturingBus{}, nil)

	j := completedJob(t, job.OperationDelete)
	pl := platform.NewPlatformListing(j.ListingID, j.UserID, j.Platform, "abc123", "https://poshmark.com/listing/abc123")
	require.NoError(t, listings.Upsert(context.Background(), pl))

	require.NoError(t, j.Complete("abc123", pl.PlatformURL, nil))
	rep.JobFinished(context.Background(), j)

	stored, err := listings.Find(context.Background(), j.ListingID, j.Platform)
	require.NoError(t, err)
	assert.Equal(t, platform.ListingStatusDeleted, stored.Status)
}

func TestReporterCompletedDeleteWithoutRecordIsHarmless(t *testing.T) {
	listings := newMemListings()
	rep := NewReporter(listings, &capturingBus{}, nil)

	j := completedJob(t, job.OperationDelete)
	require.NoError(t, j.Complete("gone", "", nil))

	// must not panic or create a record
	rep.JobFinished(context.Background(), j)
	_, err := listings.Find(context.Background(), j.ListingID, j.Platform)
	assert.ErrorIs(t, err, platform.ErrListingLinkMissing)
}

func TestReporterFailedJobLeavesListingsAlone(t *testing.T) {
	listings := newMemListings()
	bus := &capturingBus{}
	rep := NewReporter(listings, bus, nil)

	j := completedJob(t, job.OperationCreate)
	require.NoError(t, j.Fail(platform.FailureValidation, "title too long"))

	rep.JobFinished(context.Background(), j)

	_, err := listings.Find(context.Background(), j.ListingID, j.Platform)
	assert.ErrorIs(t, err, platform.ErrListingLinkMissing)
	assert.Contains(t, bus.types(), job.EventTypeJobFailed)
}

func TestReporterParkedJobPublishesWithoutListingChange(t *testing.T) {
	listings := newMemListings()
	bus := &capturingBus{}
	rep := NewReporter(listings, bus, nil)

	j := completedJob(t, job.OperationCreate)
	require.NoError(t, j.Park("verification code sent to your phone"))

	rep.JobFinished(context.Background(), j)

	_, err := listings.Find(context.Background(), j.ListingID, j.Platform)
	assert.ErrorIs(t, err, platform.ErrListingLinkMissing)
	assert.Contains(t, bus.types(), job.EventTypeJobParked)
	assert.Equal(t, job.StatusPendingVerification, j.Status)
}

func TestReporterJobStartedPublishesTransition(t *testing.T) {
	bus := &capturingBus{}
	rep := NewReporter(newMemListings(), bus, nil)

	item := validListing()
	j, err := job.New(uuid.Nil, uuid.New(), uuid.New(), platform.CodeMercari, job.OperationCreate, item, "blob")
	require.NoError(t, err)
	require.NoError(t, j.Start("w1"))

	rep.JobStarted(context.Background(), j)
	assert.Contains(t, bus.types(), job.EventTypeJobStatusChanged)
}
