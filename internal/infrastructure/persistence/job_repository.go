package persistence

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/CarsonReik/Compr-sub000/internal/domain/job"
	"github.com/CarsonReik/Compr-sub000/internal/domain/platform"
	"github.com/CarsonReik/Compr-sub000/internal/infrastructure/persistence/models"
	"github.com/google/uuid"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// GormJobQueue implements job.Queue using GORM
type GormJobQueue struct {
	db *gorm.DB
}

// NewGormJobQueue creates a new GormJobQueue
func NewGormJobQueue(db *gorm.DB) *GormJobQueue {
	return &GormJobQueue{db: db}
}

var _ job.Queue = (*GormJobQueue)(nil)

// Enqueue inserts a queued job. Both the primary key and the partial unique
// index on (listing_id, platform, operation) for active jobs are absorbed by
// ON CONFLICT DO NOTHING, so concurrent duplicate submissions race safely;
// a zero-row insert is disambiguated afterwards.
func (r *GormJobQueue) Enqueue(ctx context.Context, j *job.Job) error {
	model := models.JobModelFromDomain(j)
	result := r.db.WithContext(ctx).
		Clauses(clause.OnConflict{DoNothing: true}).
		Create(model)
	if result.Error != nil {
		return result.Error
	}
	if result.RowsAffected == 0 {
		var count int64
		if err := r.db.WithContext(ctx).Model(&models.JobModel{}).
			Where("id = ?", j.ID).
			Count(&count).Error; err != nil {
			return err
		}
		if count > 0 {
			return job.ErrDuplicateJob
		}
		return job.ErrDuplicateInFlight
	}
	return nil
}

// Claim atomically hands the oldest due queued job to workerID. The row is
// locked with FOR UPDATE SKIP LOCKED inside a transaction, so concurrent
// claimers never block on each other and never receive the same job.
func (r *GormJobQueue) Claim(ctx context.Context, workerID string) (*job.Job, error) {
	var claimed *job.Job

	err := r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var rows []models.JobModel
		if err := tx.
			Clauses(clause.Locking{Strength: "UPDATE", Options: "SKIP LOCKED"}).
			Where("status = ? AND (next_run_at IS NULL OR next_run_at <= ?)",
				string(job.StatusQueued), time.Now()).
			Order("created_at ASC").
			Limit(1).
			Find(&rows).Error; err != nil {
			return err
		}
		if len(rows) == 0 {
			return nil
		}

		j := rows[0].ToDomain()
		if err := j.Start(workerID); err != nil {
			return err
		}

		if err := tx.Model(&models.JobModel{}).
			Where("id = ?", j.ID).
			Updates(map[string]interface{}{
				"status":      string(j.Status),
				"claimed_by":  j.ClaimedBy,
				"attempt":     j.Attempt,
				"started_at":  j.StartedAt,
				"next_run_at": nil,
				"warnings":    "[]",
				"updated_at":  j.UpdatedAt,
				"version":     j.Version,
			}).Error; err != nil {
			return err
		}

		claimed = j
		return nil
	})
	if err != nil {
		return nil, err
	}
	return claimed, nil
}

// Ack settles a claimed job whose Complete transition has already been applied
func (r *GormJobQueue) Ack(ctx context.Context, j *job.Job) error {
	return r.Save(ctx, j)
}

// Nack settles a failed execution. Retryable failures requeue the job with
// nextRunAt as its earliest restart; terminal ones move it straight to failed.
func (r *GormJobQueue) Nack(ctx context.Context, j *job.Job, retryable bool, kind platform.FailureKind, message string, nextRunAt *time.Time) error {
	if retryable {
		runAt := time.Now()
		if nextRunAt != nil {
			runAt = *nextRunAt
		}
		if err := j.ScheduleRetry(kind, message, runAt); err != nil {
			return err
		}
	} else {
		if err := j.Fail(kind, message); err != nil {
			return err
		}
	}
	return r.Save(ctx, j)
}

// Park suspends a claimed job until a human clears the verification challenge
func (r *GormJobQueue) Park(ctx context.Context, j *job.Job, message string) error {
	if err := j.Park(message); err != nil {
		return err
	}
	return r.Save(ctx, j)
}

// Save saves a job (insert or update)
func (r *GormJobQueue) Save(ctx context.Context, j *job.Job) error {
	model := models.JobModelFromDomain(j)
	return r.db.WithContext(ctx).Save(model).Error
}

// FindByID finds a job by ID
func (r *GormJobQueue) FindByID(ctx context.Context, id uuid.UUID) (*job.Job, error) {
	var model models.JobModel
	if err := r.db.WithContext(ctx).First(&model, "id = ?", id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, job.ErrJobNotFound
		}
		return nil, err
	}
	return model.ToDomain(), nil
}

// FindByListing finds all jobs for a listing ordered per the filter
func (r *GormJobQueue) FindByListing(ctx context.Context, listingID uuid.UUID, filter job.ListFilter) ([]*job.Job, error) {
	// Sort fields are whitelisted to prevent SQL injection
	sortField := ValidateSortField(filter.OrderBy, JobSortFields, "created_at")
	sortOrder := ValidateSortOrder(filter.OrderDir)

	var jobModels []models.JobModel
	if err := r.db.WithContext(ctx).
		Where("listing_id = ?", listingID).
		Order(fmt.Sprintf("%s %s", sortField, sortOrder)).
		Find(&jobModels).Error; err != nil {
		return nil, err
	}

	jobs := make([]*job.Job, len(jobModels))
	for i := range jobModels {
		jobs[i] = jobModels[i].ToDomain()
	}
	return jobs, nil
}

// CountByStatus returns job counts grouped by status
func (r *GormJobQueue) CountByStatus(ctx context.Context) (map[job.Status]int64, error) {
	var rows []struct {
		Status string
		Count  int64
	}
	if err := r.db.WithContext(ctx).
		Model(&models.JobModel{}).
		Select("status, count(*) as count").
		Group("status").
		Scan(&rows).Error; err != nil {
		return nil, err
	}

	counts := make(map[job.Status]int64, len(rows))
	for _, row := range rows {
		counts[job.Status(row.Status)] = row.Count
	}
	return counts, nil
}

// RecoverStale requeues jobs stuck in processing longer than olderThan.
// The attempt counter is handed back: a worker that died mid-flight should
// not burn the job's retry budget.
func (r *GormJobQueue) RecoverStale(ctx context.Context, olderThan time.Duration) (int64, error) {
	now := time.Now()
	cutoff := now.Add(-olderThan)

	result := r.db.WithContext(ctx).
		Model(&models.JobModel{}).
		Where("status = ? AND started_at IS NOT NULL AND started_at < ?",
			string(job.StatusProcessing), cutoff).
		Updates(map[string]interface{}{
			"status":      string(job.StatusQueued),
			"claimed_by":  "",
			"attempt":     gorm.Expr("GREATEST(attempt - 1, 0)"),
			"next_run_at": now,
			"updated_at":  now,
		})
	return result.RowsAffected, result.Error
}
