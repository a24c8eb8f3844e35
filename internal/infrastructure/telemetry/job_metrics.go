package telemetry

import (
	"context"
	"sync"
	"time"

	"github.com/google/uuid"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"

	"github.com/CarsonReik/Compr-sub000/internal/domain/job"
	"github.com/CarsonReik/Compr-sub000/internal/domain/shared"
)

// JobMetrics records crosslisting job lifecycle metrics. It implements
// shared.EventHandler, so subscribing it to the event bus is the only wiring
// it needs; the dispatcher and services stay metrics-free.
type JobMetrics struct {
	enqueued *Counter
	settled  *Counter
	failures *Counter
	parked   *Counter
	resumed  *Counter
	duration *Histogram

	mu      sync.Mutex
	started map[uuid.UUID]time.Time
}

// NewJobMetrics creates the job metric instruments on the given meter.
func NewJobMetrics(meter metric.Meter) (*JobMetrics, error) {
	enqueued, err := NewCounter(meter,
		"crosslist_jobs_enqueued_total",
		"Total jobs accepted into the queue",
		"{job}")
	if err != nil {
		return nil, err
	}

	settled, err := NewCounter(meter,
		"crosslist_jobs_settled_total",
		"Total jobs that reached a settled state",
		"{job}")
	if err != nil {
		return nil, err
	}

	failures, err := NewCounter(meter,
		"crosslist_job_failures_total",
		"Total job failures by kind",
		"{failure}")
	if err != nil {
		return nil, err
	}

	parked, err := NewCounter(meter,
		"crosslist_jobs_parked_total",
		"Total jobs suspended for human verification",
		"{job}")
	if err != nil {
		return nil, err
	}

	resumed, err := NewCounter(meter,
		"crosslist_jobs_resumed_total",
		"Total parked jobs released back to the queue",
		"{job}")
	if err != nil {
		return nil, err
	}

	duration, err := NewHistogram(meter, HistogramOpts{
		Name:        "crosslist_job_duration_seconds",
		Description: "Wall time from claim to settled state",
		Unit:        "s",
		Boundaries:  JobDurationBuckets,
	})
	if err != nil {
		return nil, err
	}

	return &JobMetrics{
		enqueued: enqueued,
		settled:  settled,
		failures: failures,
		parked:   parked,
		resumed:  resumed,
		duration: duration,
		started:  make(map[uuid.UUID]time.Time),
	}, nil
}

var _ shared.EventHandler = (*JobMetrics)(nil)

// EventTypes returns the job lifecycle events the metrics care about.
func (m *JobMetrics) EventTypes() []string {
	return []string{
		job.EventTypeJobQueued,
		job.EventTypeJobStatusChanged,
		job.EventTypeJobCompleted,
		job.EventTypeJobFailed,
		job.EventTypeJobParked,
		job.EventTypeJobResumed,
	}
}

// Handle records metrics for a job lifecycle event.
func (m *JobMetrics) Handle(ctx context.Context, event shared.DomainEvent) error {
	switch e := event.(type) {
	case *job.JobQueuedEvent:
		m.enqueued.Inc(ctx,
			AttrPlatform.String(e.Platform.String()),
			AttrOperation.String(e.Operation.String()),
		)

	case *job.JobStatusChangedEvent:
		if e.NewStatus == job.StatusProcessing {
			m.markStarted(e.JobID, event.OccurredAt())
		}

	case *job.JobCompletedEvent:
		m.settled.Inc(ctx,
			AttrPlatform.String(e.Platform.String()),
			AttrOperation.String(e.Operation.String()),
			AttrJobStatus.String(job.StatusCompleted.String()),
		)
		m.recordDuration(ctx, e.JobID, event.OccurredAt(),
			AttrPlatform.String(e.Platform.String()),
			AttrOperation.String(e.Operation.String()),
		)

	case *job.JobFailedEvent:
		m.settled.Inc(ctx,
			AttrPlatform.String(e.Platform.String()),
			AttrOperation.String(e.Operation.String()),
			AttrJobStatus.String(job.StatusFailed.String()),
		)
		m.failures.Inc(ctx,
			AttrPlatform.String(e.Platform.String()),
			AttrFailureKind.String(e.ErrorKind.String()),
		)
		m.recordDuration(ctx, e.JobID, event.OccurredAt(),
			AttrPlatform.String(e.Platform.String()),
			AttrOperation.String(e.Operation.String()),
		)

	case *job.JobParkedEvent:
		m.parked.Inc(ctx, AttrPlatform.String(e.Platform.String()))
		m.forget(e.JobID)

	case *job.JobResumedEvent:
		m.resumed.Inc(ctx, AttrPlatform.String(e.Platform.String()))
	}

	return nil
}

func (m *JobMetrics) markStarted(jobID uuid.UUID, at time.Time) {
	m.mu.Lock()
	defer m.mu.Unlock()
	// First transition to processing wins; retries keep the original start
	if _, ok := m.started[jobID]; !ok {
		m.started[jobID] = at
	}
}

func (m *JobMetrics) forget(jobID uuid.UUID) {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.started, jobID)
}

func (m *JobMetrics) recordDuration(ctx context.Context, jobID uuid.UUID, settledAt time.Time, attrs ...attribute.KeyValue) {
	m.mu.Lock()
	startedAt, ok := m.started[jobID]
	delete(m.started, jobID)
	m.mu.Unlock()

	if !ok {
		return
	}
	m.duration.Record(ctx, settledAt.Sub(startedAt).Seconds(), attrs...)
}
