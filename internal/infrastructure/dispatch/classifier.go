package dispatch

import (
	"math/rand"
	"time"

	"github.com/CarsonReik/Compr-sub000/internal/domain/job"
	"github.com/CarsonReik/Compr-sub000/internal/domain/platform"
)

// Outcome is the dispatcher's disposition of a failed attempt
type Outcome string

const (
	// OutcomeRetry requeues the job for another attempt
	OutcomeRetry Outcome = "retry"
	// OutcomeFail settles the job as terminally failed
	OutcomeFail Outcome = "fail"
	// OutcomePark suspends the job until a human clears a challenge
	OutcomePark Outcome = "park"
)

// Decision carries the disposition plus the retry schedule when one applies
type Decision struct {
	Outcome   Outcome
	Kind      platform.FailureKind
	Message   string
	NextRunAt time.Time // earliest restart, valid when Outcome is OutcomeRetry
}

// Classifier turns a failed attempt into a retry, park or fail decision.
// Each failure kind has its own budget: authentication gets one fresh-login
// retry, element misses get a bounded number before the adapter is declared
// stale, transient kinds back off exponentially within the attempt budget,
// and validation rejections never retry because resubmitting the same
// listing cannot change the platform's answer.
type Classifier struct {
	elementRetryLimit int
	baseDelay         time.Duration
	maxDelay          time.Duration
	now               func() time.Time
}

// NewClassifier creates a classifier; zero arguments receive defaults
func NewClassifier(elementRetryLimit int, baseDelay, maxDelay time.Duration) *Classifier {
	if elementRetryLimit <= 0 {
		elementRetryLimit = 2
	}
	if baseDelay <= 0 {
		baseDelay = 30 * time.Second
	}
	if maxDelay <= 0 {
		maxDelay = 10 * time.Minute
	}
	return &Classifier{
		elementRetryLimit: elementRetryLimit,
		baseDelay:         baseDelay,
		maxDelay:          maxDelay,
		now:               time.Now,
	}
}

// Classify decides what happens to the job after err. The failure is assumed
// to be already recorded on the job via NoteFailure, so the per-kind counters
// include the current one.
func (c *Classifier) Classify(j *job.Job, err error) Decision {
	kind := platform.KindOf(err)
	msg := err.Error()

	switch kind {
	case platform.FailureVerification:
		return Decision{Outcome: OutcomePark, Kind: kind, Message: msg}
	case platform.FailureValidation:
		return Decision{Outcome: OutcomeFail, Kind: kind, Message: msg}
	}

	if j.AttemptsExhausted() {
		return Decision{Outcome: OutcomeFail, Kind: kind, Message: msg}
	}

	switch kind {
	case platform.FailureAuthentication:
		// A second rejection after a fresh login means the credentials
		// themselves are bad; retrying further just risks a lockout.
		if j.AuthFailures > 1 {
			return Decision{Outcome: OutcomeFail, Kind: kind, Message: msg}
		}
		return Decision{Outcome: OutcomeRetry, Kind: kind, Message: msg, NextRunAt: c.now()}

	case platform.FailureElementNotFound:
		if j.ElementMisses > c.elementRetryLimit {
			return Decision{Outcome: OutcomeFail, Kind: kind, Message: msg + "; adapter selectors need updating"}
		}
		return Decision{Outcome: OutcomeRetry, Kind: kind, Message: msg, NextRunAt: c.now().Add(c.backoff(j.ElementMisses))}

	default:
		// network, upload and anything unclassified
		return Decision{Outcome: OutcomeRetry, Kind: kind, Message: msg, NextRunAt: c.now().Add(c.backoff(j.Attempt))}
	}
}

// backoff is baseDelay * 2^(n-1) capped at maxDelay, plus up to 10% jitter
// so a burst of failures does not retry in lockstep
func (c *Classifier) backoff(n int) time.Duration {
	if n < 1 {
		n = 1
	}
	delay := c.baseDelay
	for i := 1; i < n; i++ {
		delay *= 2
		if delay >= c.maxDelay {
			break
		}
	}
	if delay > c.maxDelay {
		delay = c.maxDelay
	}
	return delay + time.Duration(rand.Int63n(int64(delay)/10+1))
}
