package dispatch

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/CarsonReik/Compr-sub000/internal/domain/job"
	"github.com/CarsonReik/Compr-sub000/internal/domain/platform"
	"github.com/CarsonReik/Compr-sub000/internal/infrastructure/automation"
)

// ---------------------------------------------------------------------------
// Config
// ---------------------------------------------------------------------------

// Config holds worker pool, rate and retry settings for the dispatcher
type Config struct {
	// Workers is the number of concurrent job executions
	Workers int
	// RateLimit is the number of job starts allowed per window across all
	// platforms and workers
	RateLimit int
	// RateWindow is the sliding window the rate limit applies to
	RateWindow time.Duration
	// ClaimInterval is the queue poll cadence when idle or waiting
	ClaimInterval time.Duration
	// JobTimeout is the wall clock budget for one attempt
	JobTimeout time.Duration
	// ElementRetryLimit is how many element_not_found failures a job may
	// accumulate before it fails for good
	ElementRetryLimit int
	// RetryBaseDelay is the first backoff step for transient failures
	RetryBaseDelay time.Duration
	// RetryMaxDelay caps the backoff
	RetryMaxDelay time.Duration
	// StaleAfter is the processing age at which a claim is treated as a
	// crashed worker
	StaleAfter time.Duration
	// StaleSweepInterval is how often stale claims are recovered
	StaleSweepInterval time.Duration
}

// DefaultConfig returns the production defaults
func DefaultConfig() Config {
	return Config{
		Workers:            2,
		RateLimit:          10,
		RateWindow:         time.Minute,
		ClaimInterval:      2 * time.Second,
		JobTimeout:         5 * time.Minute,
		ElementRetryLimit:  2,
		RetryBaseDelay:     30 * time.Second,
		RetryMaxDelay:      10 * time.Minute,
		StaleAfter:         10 * time.Minute,
		StaleSweepInterval: time.Minute,
	}
}

// Validate validates the configuration
func (c *Config) Validate() error {
	if c.Workers <= 0 {
		return ErrInvalidConfig
	}
	if c.RateLimit <= 0 {
		return ErrInvalidConfig
	}
	if c.RateWindow <= 0 {
		return ErrInvalidConfig
	}
	if c.ClaimInterval <= 0 {
		return ErrInvalidConfig
	}
	if c.JobTimeout <= 0 {
		return ErrInvalidConfig
	}
	if c.StaleAfter <= 0 {
		return ErrInvalidConfig
	}
	if c.StaleSweepInterval <= 0 {
		return ErrInvalidConfig
	}
	return nil
}

// ---------------------------------------------------------------------------
// Collaborator Seams
// ---------------------------------------------------------------------------

// PageFactory leases an isolated browser page for one attempt. The release
// function must run on every code path; the dispatcher defers it at the
// claim site so a panicking attempt still frees its page.
type PageFactory interface {
	NewPage(ctx context.Context) (platform.Page, func(), error)
}

// SessionResolver produces an authenticated session for a job, reusing a
// stored one when the platform still accepts it
type SessionResolver interface {
	Resolve(ctx context.Context, page platform.Page, adapter platform.Adapter, userID uuid.UUID, encryptedCredentials string) (*platform.Session, error)
	Invalidate(ctx context.Context, userID uuid.UUID, code platform.Code) error
}

// Reporter observes job lifecycle transitions. The dispatcher reports; the
// application layer decides which listings and events to update.
type Reporter interface {
	JobStarted(ctx context.Context, j *job.Job)
	JobFinished(ctx context.Context, j *job.Job)
}

type noopReporter struct{}

func (noopReporter) JobStarted(context.Context, *job.Job)  {}
func (noopReporter) JobFinished(context.Context, *job.Job) {}

// EnginePages adapts the browser engine to the PageFactory seam, fixing the
// interaction mode attempts run in
type EnginePages struct {
	Engine *automation.Engine
	Mode   automation.Mode
}

// NewPage leases a page from the engine
func (p EnginePages) NewPage(ctx context.Context) (platform.Page, func(), error) {
	return p.Engine.NewPage(ctx, p.Mode)
}

// ---------------------------------------------------------------------------
// Dispatcher
// ---------------------------------------------------------------------------

// Dispatcher runs the worker pool that drains the job queue. Each worker
// waits for a slot in the engine-wide rate window, claims one job, executes
// the attempt on a fresh page and settles the outcome through the queue.
// A stale sweeper recovers claims from crashed workers.
type Dispatcher struct {
	config     Config
	queue      job.Queue
	registry   platform.Registry
	pages      PageFactory
	sessions   SessionResolver
	reporter   Reporter
	limiter    RateLimiter
	classifier *Classifier
	logger     *zap.Logger

	instanceID string
	cancel     context.CancelFunc
	wg         sync.WaitGroup
	mu         sync.Mutex
	isRunning  bool
}

// NewDispatcher creates a dispatcher. A nil limiter gets an in-process one;
// a nil reporter is allowed and ignored.
func NewDispatcher(
	config Config,
	queue job.Queue,
	registry platform.Registry,
	pages PageFactory,
	sessions SessionResolver,
	reporter Reporter,
	limiter RateLimiter,
	logger *zap.Logger,
) (*Dispatcher, error) {
	if err := config.Validate(); err != nil {
		return nil, err
	}
	if queue == nil {
		return nil, errors.New("dispatch: queue is required")
	}
	if registry == nil {
		return nil, errors.New("dispatch: registry is required")
	}
	if pages == nil {
		return nil, errors.New("dispatch: page factory is required")
	}
	if sessions == nil {
		return nil, errors.New("dispatch: session resolver is required")
	}
	if reporter == nil {
		reporter = noopReporter{}
	}
	if limiter == nil {
		limiter = NewMemoryRateLimiter(config.RateLimit, config.RateWindow)
	}
	if logger == nil {
		logger = zap.NewNop()
	}

	return &Dispatcher{
		config:     config,
		queue:      queue,
		registry:   registry,
		pages:      pages,
		sessions:   sessions,
		reporter:   reporter,
		limiter:    limiter,
		classifier: NewClassifier(config.ElementRetryLimit, config.RetryBaseDelay, config.RetryMaxDelay),
		logger:     logger.Named("dispatch"),
		instanceID: uuid.NewString()[:8],
	}, nil
}

// Start launches the workers and the stale sweeper
func (d *Dispatcher) Start(ctx context.Context) error {
	d.mu.Lock()
	if d.isRunning {
		d.mu.Unlock()
		return nil
	}
	d.isRunning = true
	d.mu.Unlock()

	ctx, cancel := context.WithCancel(ctx)
	d.cancel = cancel

	for i := 0; i < d.config.Workers; i++ {
		d.wg.Add(1)
		go d.worker(ctx, i)
	}
	d.wg.Add(1)
	go d.sweeper(ctx)

	d.logger.Info("dispatcher started",
		zap.Int("workers", d.config.Workers),
		zap.Int("rate_limit", d.config.RateLimit),
		zap.Duration("rate_window", d.config.RateWindow),
		zap.Duration("job_timeout", d.config.JobTimeout),
	)
	return nil
}

// Stop gracefully stops the dispatcher, waiting for in-flight attempts up to
// the context's deadline
func (d *Dispatcher) Stop(ctx context.Context) error {
	d.mu.Lock()
	if !d.isRunning {
		d.mu.Unlock()
		return nil
	}
	d.isRunning = false
	d.mu.Unlock()

	if d.cancel != nil {
		d.cancel()
	}

	done := make(chan struct{})
	go func() {
		d.wg.Wait()
		close(done)
	}()

	select {
	case <-done:
		d.logger.Info("dispatcher stopped gracefully")
		return nil
	case <-ctx.Done():
		d.logger.Warn("dispatcher stop timed out")
		return ctx.Err()
	}
}

// worker claims and executes jobs until the context ends
func (d *Dispatcher) worker(ctx context.Context, index int) {
	defer d.wg.Done()

	workerID := d.workerID(index)
	logger := d.logger.With(zap.String("worker_id", workerID))
	logger.Debug("worker started")

	for {
		select {
		case <-ctx.Done():
			logger.Debug("worker stopping")
			return
		default:
		}

		// The window is held before claiming so a claimed job never sits
		// in processing waiting on rate, where a long wait would trip the
		// stale sweep and hand the job to a second worker.
		token, ok := d.awaitSlot(ctx, logger)
		if !ok {
			logger.Debug("worker stopping")
			return
		}

		j, err := d.queue.Claim(ctx, workerID)
		if err != nil {
			if ctx.Err() == nil {
				logger.Warn("claim failed", zap.Error(err))
			}
			d.releaseSlot(ctx, token, logger)
			d.idle(ctx)
			continue
		}
		if j == nil {
			d.releaseSlot(ctx, token, logger)
			d.idle(ctx)
			continue
		}
		d.execute(ctx, j, workerID)
	}
}

func (d *Dispatcher) workerID(index int) string {
	return fmt.Sprintf("%s-w%d", d.instanceID, index)
}

func (d *Dispatcher) idle(ctx context.Context) {
	select {
	case <-ctx.Done():
	case <-time.After(d.config.ClaimInterval):
	}
}

// execute runs one claimed job through an attempt and settles the outcome
func (d *Dispatcher) execute(ctx context.Context, j *job.Job, workerID string) {
	logger := d.logger.With(
		zap.String("worker_id", workerID),
		zap.String("job_id", j.ID.String()),
		zap.String("platform", j.Platform.String()),
		zap.String("operation", j.Operation.String()),
		zap.Int("attempt", j.Attempt),
		zap.Int("max_attempts", j.MaxAttempts),
	)

	d.reporter.JobStarted(ctx, j)
	logger.Info("executing job")

	attemptCtx, cancel := context.WithTimeout(ctx, d.config.JobTimeout)
	err := d.runAttempt(attemptCtx, j)
	cancel()

	if err == nil {
		if ackErr := d.queue.Ack(ctx, j); ackErr != nil {
			logger.Error("failed to persist completed job", zap.Error(ackErr))
		}
		logger.Info("job completed",
			zap.String("platform_listing_id", j.PlatformListingID),
			zap.Int("warnings", len(j.Warnings)),
		)
		d.reporter.JobFinished(ctx, j)
		return
	}

	if ctx.Err() != nil {
		// Shutdown interrupted the attempt. The claim stays put and the
		// stale sweeper hands it out again without consuming an attempt.
		logger.Info("attempt interrupted by shutdown", zap.Error(err))
		return
	}
	if errors.Is(err, context.DeadlineExceeded) {
		err = platform.NewNetworkError("attempt exceeded the job timeout", err)
	}

	kind := platform.KindOf(err)
	j.NoteFailure(kind, err.Error())

	if kind == platform.FailureAuthentication {
		// Drop the stored session so the retry starts from a fresh login
		if invErr := d.sessions.Invalidate(ctx, j.UserID, j.Platform); invErr != nil {
			logger.Warn("failed to invalidate session", zap.Error(invErr))
		}
	}

	decision := d.classifier.Classify(j, err)
	switch decision.Outcome {
	case OutcomePark:
		if parkErr := d.queue.Park(ctx, j, decision.Message); parkErr != nil {
			logger.Error("failed to park job", zap.Error(parkErr))
		}
		logger.Warn("job parked for verification", zap.String("reason", decision.Message))

	case OutcomeRetry:
		next := decision.NextRunAt
		if nackErr := d.queue.Nack(ctx, j, true, decision.Kind, decision.Message, &next); nackErr != nil {
			logger.Error("failed to requeue job", zap.Error(nackErr))
		}
		logger.Warn("job requeued",
			zap.String("failure_kind", decision.Kind.String()),
			zap.Time("next_run_at", next),
		)

	case OutcomeFail:
		if nackErr := d.queue.Nack(ctx, j, false, decision.Kind, decision.Message, nil); nackErr != nil {
			logger.Error("failed to persist failed job", zap.Error(nackErr))
		}
		logger.Error("job failed",
			zap.String("failure_kind", decision.Kind.String()),
			zap.String("reason", decision.Message),
		)
	}
	d.reporter.JobFinished(ctx, j)
}

// awaitSlot blocks until the engine-wide rate window has room, returning the
// slot token. A limiter outage fails open: freezing all publishing because
// Redis is down would be worse than briefly exceeding the window.
func (d *Dispatcher) awaitSlot(ctx context.Context, logger *zap.Logger) (string, bool) {
	for {
		token, ok, err := d.limiter.Allow(ctx)
		if err != nil {
			logger.Warn("rate limiter unavailable; proceeding", zap.Error(err))
			return "", true
		}
		if ok {
			return token, true
		}
		select {
		case <-ctx.Done():
			return "", false
		case <-time.After(d.config.ClaimInterval):
		}
	}
}

// releaseSlot hands back a slot that never turned into a job start
func (d *Dispatcher) releaseSlot(ctx context.Context, token string, logger *zap.Logger) {
	if token == "" {
		return
	}
	if err := d.limiter.Release(ctx, token); err != nil && ctx.Err() == nil {
		logger.Warn("failed to release rate slot", zap.Error(err))
	}
}

// runAttempt performs the marketplace operation for the job on a fresh page
func (d *Dispatcher) runAttempt(ctx context.Context, j *job.Job) error {
	adapter, err := d.registry.Get(j.Platform)
	if err != nil {
		return platform.NewValidationRejected("platform", err.Error())
	}

	page, release, err := d.pages.NewPage(ctx)
	if err != nil {
		return platform.NewNetworkError("browser page unavailable", err)
	}
	defer release()

	sess, err := d.sessions.Resolve(ctx, page, adapter, j.UserID, j.EncryptedCredentials)
	if err != nil {
		return err
	}

	switch j.Operation {
	case job.OperationCreate:
		result, err := adapter.CreateListing(ctx, page, sess, &j.Listing)
		if err != nil {
			return err
		}
		return j.Complete(result.PlatformListingID, result.PlatformURL, result.Warnings)

	case job.OperationDelete:
		if err := adapter.DeleteListing(ctx, page, sess, j.PlatformListingID); err != nil {
			return err
		}
		return j.Complete(j.PlatformListingID, j.PlatformURL, nil)

	default:
		return platform.NewValidationRejected("operation", "unknown operation "+j.Operation.String())
	}
}

// sweeper periodically requeues jobs abandoned by crashed workers
func (d *Dispatcher) sweeper(ctx context.Context) {
	defer d.wg.Done()

	ticker := time.NewTicker(d.config.StaleSweepInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			n, err := d.queue.RecoverStale(ctx, d.config.StaleAfter)
			if err != nil {
				if ctx.Err() == nil {
					d.logger.Warn("stale recovery failed", zap.Error(err))
				}
				continue
			}
			if n > 0 {
				d.logger.Info("requeued stale jobs", zap.Int64("count", n))
			}
		}
	}
}
