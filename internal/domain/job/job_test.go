package job

import (
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/CarsonReik/Compr-sub000/internal/domain/listing"
	"github.com/CarsonReik/Compr-sub000/internal/domain/platform"
)

func testListing() listing.Normalized {
	return listing.Normalized{
		Title:     "Vintage denim jacket",
		Price:     decimal.NewFromFloat(42.50),
		Quantity:  1,
		Condition: listing.ConditionGood,
		Images: []listing.ImageRef{
			{URL: "https://cdn.example.com/a.jpg", Filename: "a.jpg"},
		},
	}
}

func newTestJob(t *testing.T) *Job {
	t.Helper()
	j, err := New(uuid.Nil, uuid.New(), uuid.New(), platform.CodePoshmark, OperationCreate, testListing(), "abc123:def456:0011")
	require.NoError(t, err)
	return j
}

func TestNew(t *testing.T) {
	listingID := uuid.New()
	userID := uuid.New()

	tests := []struct {
		name        string
		id          uuid.UUID
		listingID   uuid.UUID
		userID      uuid.UUID
		code        platform.Code
		op          Operation
		item        listing.Normalized
		creds       string
		expectError bool
		errorMsg    string
	}{
		{
			name:      "valid create job",
			listingID: listingID,
			userID:    userID,
			code:      platform.CodePoshmark,
			op:        OperationCreate,
			item:      testListing(),
			creds:     "aa:bb:cc",
		},
		{
			name:      "caller supplied id is kept",
			id:        uuid.MustParse("7b68e777-1f3a-4d44-9f2d-0a2f3a3f5f10"),
			listingID: listingID,
			userID:    userID,
			code:      platform.CodeMercari,
			op:        OperationCreate,
			item:      testListing(),
			creds:     "aa:bb:cc",
		},
		{
			name:        "nil listing id",
			listingID:   uuid.Nil,
			userID:      userID,
			code:        platform.CodePoshmark,
			op:          OperationCreate,
			item:        testListing(),
			creds:       "aa:bb:cc",
			expectError: true,
			errorMsg:    "Listing ID cannot be empty",
		},
		{
			name:        "nil user id",
			listingID:   listingID,
			userID:      uuid.Nil,
			code:        platform.CodePoshmark,
			op:          OperationCreate,
			item:        testListing(),
			creds:       "aa:bb:cc",
			expectError: true,
			errorMsg:    "User ID cannot be empty",
		},
		{
			name:        "unknown platform",
			listingID:   listingID,
			userID:      userID,
			code:        platform.Code("ebay"),
			op:          OperationCreate,
			item:        testListing(),
			creds:       "aa:bb:cc",
			expectError: true,
			errorMsg:    "Unknown platform",
		},
		{
			name:        "unknown operation",
			listingID:   listingID,
			userID:      userID,
			code:        platform.CodeDepop,
			op:          Operation("relist"),
			item:        testListing(),
			creds:       "aa:bb:cc",
			expectError: true,
			errorMsg:    "Unknown operation",
		},
		{
			name:        "missing credentials",
			listingID:   listingID,
			userID:      userID,
			code:        platform.CodeDepop,
			op:          OperationCreate,
			item:        testListing(),
			creds:       "",
			expectError: true,
			errorMsg:    "Encrypted credentials cannot be empty",
		},
		{
			name:      "create with invalid listing",
			listingID: listingID,
			userID:    userID,
			code:      platform.CodePoshmark,
			op:        OperationCreate,
			item: listing.Normalized{
				Title:     "No photos",
				Price:     decimal.NewFromInt(10),
				Quantity:  1,
				Condition: listing.ConditionNew,
			},
			creds:       "aa:bb:cc",
			expectError: true,
			errorMsg:    "at least one image",
		},
		{
			name:        "delete skips listing validation",
			listingID:   listingID,
			userID:      userID,
			code:        platform.CodePoshmark,
			op:          OperationDelete,
			item:        listing.Normalized{},
			creds:       "aa:bb:cc",
			expectError: false,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			j, err := New(tt.id, tt.listingID, tt.userID, tt.code, tt.op, tt.item, tt.creds)

			if tt.expectError {
				require.Error(t, err)
				assert.Contains(t, err.Error(), tt.errorMsg)
				return
			}

			require.NoError(t, err)
			require.NotNil(t, j)

			if tt.id != uuid.Nil {
				assert.Equal(t, tt.id, j.ID)
			} else {
				assert.NotEqual(t, uuid.Nil, j.ID)
			}
			assert.Equal(t, StatusQueued, j.Status)
			assert.Equal(t, 0, j.Attempt)
			assert.Equal(t, DefaultMaxAttempts, j.MaxAttempts)
			assert.Nil(t, j.StartedAt)
			assert.Nil(t, j.CompletedAt)

			events := j.GetDomainEvents()
			require.Len(t, events, 1)
			assert.Equal(t, EventTypeJobQueued, events[0].EventType())
		})
	}
}

func TestJob_Start(t *testing.T) {
	j := newTestJob(t)

	err := j.Start("worker-1")
	require.NoError(t, err)

	assert.Equal(t, StatusProcessing, j.Status)
	assert.Equal(t, "worker-1", j.ClaimedBy)
	assert.Equal(t, 1, j.Attempt)
	assert.NotNil(t, j.StartedAt)

	// A processing job cannot be started again
	err = j.Start("worker-2")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "Cannot start processing")
	assert.Equal(t, "worker-1", j.ClaimedBy)
	assert.Equal(t, 1, j.Attempt)
}

func TestJob_Complete(t *testing.T) {
	j := newTestJob(t)
	require.NoError(t, j.Start("worker-1"))

	err := j.Complete("pm-123", "https://poshmark.com/listing/pm-123", []string{"2 of 3 photos uploaded"})
	require.NoError(t, err)

	assert.Equal(t, StatusCompleted, j.Status)
	assert.Equal(t, "pm-123", j.PlatformListingID)
	assert.Equal(t, "https://poshmark.com/listing/pm-123", j.PlatformURL)
	assert.Equal(t, []string{"2 of 3 photos uploaded"}, j.Warnings)
	assert.Empty(t, j.ClaimedBy)
	assert.NotNil(t, j.CompletedAt)
	assert.True(t, j.IsTerminal())

	res := ResultFor(j)
	assert.True(t, res.Success)
	assert.Equal(t, "pm-123", res.PlatformListingID)
	assert.Equal(t, []string{"2 of 3 photos uploaded"}, res.Warnings)
}

func TestJob_CompleteFromQueued(t *testing.T) {
	j := newTestJob(t)

	err := j.Complete("pm-1", "https://example.com", nil)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "Cannot complete")
	assert.Equal(t, StatusQueued, j.Status)
}

func TestJob_Fail(t *testing.T) {
	j := newTestJob(t)
	require.NoError(t, j.Start("worker-1"))

	err := j.Fail(platform.FailureValidation, "title exceeds platform limit")
	require.NoError(t, err)

	assert.Equal(t, StatusFailed, j.Status)
	assert.Equal(t, platform.FailureValidation, j.ErrorKind)
	assert.Equal(t, "title exceeds platform limit", j.ErrorMessage)
	assert.True(t, j.IsTerminal())

	res := ResultFor(j)
	assert.False(t, res.Success)
	assert.Equal(t, platform.FailureValidation, res.ErrorKind)

	// Terminal jobs stay failed
	err = j.Fail(platform.FailureNetwork, "again")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "already in terminal status")
}

func TestJob_Park(t *testing.T) {
	j := newTestJob(t)
	require.NoError(t, j.Start("worker-1"))

	err := j.Park("platform requested an SMS code")
	require.NoError(t, err)

	assert.Equal(t, StatusPendingVerification, j.Status)
	assert.Equal(t, platform.FailureVerification, j.ErrorKind)
	assert.False(t, j.IsTerminal(), "parked is not terminal")
	assert.True(t, j.IsParked())

	// The engine never moves a parked job anywhere but back to queued
	assert.Error(t, j.Complete("x", "y", nil))
	assert.Error(t, j.Park("again"))
}

func TestJob_Resume(t *testing.T) {
	j := newTestJob(t)
	require.NoError(t, j.Start("worker-1"))
	j.NoteFailure(platform.FailureAuthentication, "challenge")
	require.NoError(t, j.Park("platform requested an SMS code"))

	err := j.Resume()
	require.NoError(t, err)

	assert.Equal(t, StatusQueued, j.Status)
	assert.Empty(t, j.ErrorKind)
	assert.Empty(t, j.ErrorMessage)
	assert.Equal(t, 0, j.AuthFailures, "auth budget resets on resume")
	require.NotNil(t, j.NextRunAt)
	assert.WithinDuration(t, time.Now(), *j.NextRunAt, time.Minute)

	// Only parked jobs resume
	err = j.Resume()
	assert.ErrorIs(t, err, ErrNotResumable)
}

func TestJob_ScheduleRetry(t *testing.T) {
	j := newTestJob(t)
	require.NoError(t, j.Start("worker-1"))

	next := time.Now().Add(30 * time.Second)
	err := j.ScheduleRetry(platform.FailureNetwork, "connection reset", next)
	require.NoError(t, err)

	assert.Equal(t, StatusQueued, j.Status)
	assert.Equal(t, platform.FailureNetwork, j.ErrorKind)
	assert.Empty(t, j.ClaimedBy)
	require.NotNil(t, j.NextRunAt)
	assert.Equal(t, next, *j.NextRunAt)
	assert.Equal(t, 1, j.Attempt, "retry does not consume an attempt until restarted")

	// Second attempt picks up from the queue
	require.NoError(t, j.Start("worker-2"))
	assert.Equal(t, 2, j.Attempt)
	assert.Nil(t, j.NextRunAt)
}

func TestJob_NoteFailure(t *testing.T) {
	j := newTestJob(t)

	j.NoteFailure(platform.FailureAuthentication, "bad password")
	j.NoteFailure(platform.FailureAuthentication, "bad password")
	j.NoteFailure(platform.FailureElementNotFound, "#submit missing")
	j.NoteFailure(platform.FailureNetwork, "timeout")

	assert.Equal(t, 2, j.AuthFailures)
	assert.Equal(t, 1, j.ElementMisses)
	assert.Equal(t, platform.FailureNetwork, j.ErrorKind)
	assert.Equal(t, "timeout", j.ErrorMessage)
}

func TestJob_AttemptsExhausted(t *testing.T) {
	j := newTestJob(t)
	j.MaxAttempts = 2

	assert.False(t, j.AttemptsExhausted())
	require.NoError(t, j.Start("w"))
	assert.False(t, j.AttemptsExhausted())
	require.NoError(t, j.ScheduleRetry(platform.FailureNetwork, "x", time.Now()))
	require.NoError(t, j.Start("w"))
	assert.True(t, j.AttemptsExhausted())
}
