package dispatch

import (
	"errors"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/CarsonReik/Compr-sub000/internal/domain/job"
	"github.com/CarsonReik/Compr-sub000/internal/domain/listing"
	"github.com/CarsonReik/Compr-sub000/internal/domain/platform"
)

func dispatchTestItem() listing.Normalized {
	return listing.Normalized{
		Title:     "Vintage denim jacket",
		Price:     decimal.RequireFromString("24.50"),
		Quantity:  1,
		Condition: listing.ConditionGood,
		Images: []listing.ImageRef{
			{URL: "https://cdn.example.com/photo-1.jpg", Filename: "photo-1.jpg"},
			{URL: "https://cdn.example.com/photo-2.jpg", Filename: "photo-2.jpg"},
		},
	}
}

func newDispatchJob(t *testing.T) *job.Job {
	t.Helper()
	j, err := job.New(uuid.Nil, uuid.New(), uuid.New(), platform.CodePoshmark, job.OperationCreate, dispatchTestItem(), "sealed-blob")
	require.NoError(t, err)
	return j
}

func newTestClassifier() *Classifier {
	c := NewClassifier(2, 30*time.Second, 10*time.Minute)
	c.now = func() time.Time { return time.Date(2026, 3, 14, 12, 0, 0, 0, time.UTC) }
	return c
}

// delayBounds asserts the decision's restart lies within [want, want*1.1]
// of the classifier's clock, the jitter band for a backoff of want
func delayBounds(t *testing.T, c *Classifier, d Decision, want time.Duration) {
	t.Helper()
	delay := d.NextRunAt.Sub(c.now())
	assert.GreaterOrEqual(t, delay, want)
	assert.LessOrEqual(t, delay, want+want/10)
}

func TestClassifier_VerificationParks(t *testing.T) {
	c := newTestClassifier()
	j := newDispatchJob(t)
	j.Attempt = j.MaxAttempts // even with no attempts left

	d := c.Classify(j, platform.NewVerificationRequired("captcha wall"))

	assert.Equal(t, OutcomePark, d.Outcome)
	assert.Equal(t, platform.FailureVerification, d.Kind)
}

func TestClassifier_ValidationFailsImmediately(t *testing.T) {
	c := newTestClassifier()
	j := newDispatchJob(t)
	j.Attempt = 1

	d := c.Classify(j, platform.NewValidationRejected("price", "below minimum"))

	assert.Equal(t, OutcomeFail, d.Outcome)
	assert.Equal(t, platform.FailureValidation, d.Kind)
}

func TestClassifier_AuthenticationRetriesOnce(t *testing.T) {
	c := newTestClassifier()

	t.Run("first rejection retries immediately for a fresh login", func(t *testing.T) {
		j := newDispatchJob(t)
		j.Attempt = 1
		j.AuthFailures = 1

		d := c.Classify(j, platform.NewAuthenticationFailure("session rejected"))

		assert.Equal(t, OutcomeRetry, d.Outcome)
		assert.Equal(t, c.now(), d.NextRunAt)
	})

	t.Run("second rejection is terminal", func(t *testing.T) {
		j := newDispatchJob(t)
		j.Attempt = 2
		j.AuthFailures = 2

		d := c.Classify(j, platform.NewAuthenticationFailure("session rejected"))

		assert.Equal(t, OutcomeFail, d.Outcome)
	})
}

func TestClassifier_ElementMissesAreBounded(t *testing.T) {
	c := newTestClassifier()

	t.Run("misses within the budget retry with backoff", func(t *testing.T) {
		j := newDispatchJob(t)
		j.Attempt = 1
		j.ElementMisses = 1

		d := c.Classify(j, platform.NewElementNotFound(`input[name="title"]`, nil))

		assert.Equal(t, OutcomeRetry, d.Outcome)
		delayBounds(t, c, d, 30*time.Second)
	})

	t.Run("a miss past the budget declares the adapter stale", func(t *testing.T) {
		j := newDispatchJob(t)
		j.Attempt = 3
		j.ElementMisses = 3

		d := c.Classify(j, platform.NewElementNotFound(`input[name="title"]`, nil))

		assert.Equal(t, OutcomeFail, d.Outcome)
		assert.Contains(t, d.Message, "adapter selectors need updating")
	})
}

func TestClassifier_NetworkBacksOffExponentially(t *testing.T) {
	c := newTestClassifier()
	err := platform.NewNetworkError("connection reset", nil)

	j := newDispatchJob(t)
	j.Attempt = 1
	delayBounds(t, c, c.Classify(j, err), 30*time.Second)

	j.Attempt = 2
	delayBounds(t, c, c.Classify(j, err), time.Minute)

	j.Attempt = 3
	delayBounds(t, c, c.Classify(j, err), 2*time.Minute)
}

func TestClassifier_BackoffIsCapped(t *testing.T) {
	c := newTestClassifier()
	j := newDispatchJob(t)
	j.Attempt = 3
	j.MaxAttempts = 100

	d := c.Classify(j, platform.NewNetworkError("connection reset", nil))
	require.Equal(t, OutcomeRetry, d.Outcome)

	j.Attempt = 60
	d = c.Classify(j, platform.NewNetworkError("connection reset", nil))
	delay := d.NextRunAt.Sub(c.now())
	assert.LessOrEqual(t, delay, 11*time.Minute, "cap plus jitter")
}

func TestClassifier_ExhaustedAttemptsFail(t *testing.T) {
	c := newTestClassifier()
	j := newDispatchJob(t)
	j.Attempt = j.MaxAttempts

	d := c.Classify(j, platform.NewNetworkError("connection reset", nil))

	assert.Equal(t, OutcomeFail, d.Outcome)
	assert.Equal(t, platform.FailureNetwork, d.Kind)
}

func TestClassifier_UnclassifiedErrorsRetryAsNetwork(t *testing.T) {
	c := newTestClassifier()
	j := newDispatchJob(t)
	j.Attempt = 1

	d := c.Classify(j, errors.New("something unexpected"))

	assert.Equal(t, OutcomeRetry, d.Outcome)
	assert.Equal(t, platform.FailureNetwork, d.Kind)
}

func TestClassifier_UploadRetriesWithinBudget(t *testing.T) {
	c := newTestClassifier()
	j := newDispatchJob(t)
	j.Attempt = 2

	d := c.Classify(j, platform.NewUploadFailure("no images could be uploaded", nil))

	assert.Equal(t, OutcomeRetry, d.Outcome)
	assert.Equal(t, platform.FailureUpload, d.Kind)
}
